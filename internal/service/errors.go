package service

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound            = errors.New("not found")
	ErrValidation          = errors.New("invalid request")
	ErrInsufficientCredits = errors.New("insufficient credits")
	ErrPastDate            = errors.New("scheduled date must be in the future")
	ErrNoMedia             = errors.New("post has no media to publish")
	ErrCompliance          = errors.New("tiktok settings are not compliant")
	ErrNoEligibleContent   = errors.New("no content has both a caption and an image")
	ErrAlreadyProcessing   = errors.New("image enhancement already in progress")
	ErrWatchTimeout        = errors.New("enhancement did not finish in time")
	ErrNotConnected        = errors.New("tiktok account is not connected")
	ErrInvalidState        = errors.New("invalid or expired oauth state")
	ErrUpstream            = errors.New("upstream service failed")
	ErrLoadFailed          = errors.New("failed to load content")

	errAllStylesFailed       = errors.New("every caption style failed")
	errEnhancementSuperseded = errors.New("item left processing before the enhancement finished")
)

func validationError(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrValidation, fmt.Sprintf(format, args...))
}

func upstreamError(service string, err error) error {
	return fmt.Errorf("%w: %s: %v", ErrUpstream, service, err)
}

// IsTerminal reports whether another attempt at the same operation cannot
// succeed. Anything else, such as a dropped database connection, is transient.
func IsTerminal(err error) bool {
	terminal := []error{
		ErrNotFound,
		ErrValidation,
		ErrCompliance,
		ErrNoMedia,
		ErrNotConnected,
		ErrUpstream,
		ErrWatchTimeout,
	}
	for _, target := range terminal {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}
