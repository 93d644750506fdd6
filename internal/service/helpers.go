package service

import (
	"time"
)

// defaultTokenLifetime applies when TikTok omits expires_in.
const defaultTokenLifetime = 24 * time.Hour

func tokenExpiry(now time.Time, expiresIn int) time.Time {
	if expiresIn <= 0 {
		return now.Add(defaultTokenLifetime)
	}
	return now.Add(time.Duration(expiresIn) * time.Second)
}
