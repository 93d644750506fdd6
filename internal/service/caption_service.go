package service

import (
	"context"
	"log/slog"
	"sync"

	"github.com/maheshrc27/captionflow/internal/models"
	"github.com/maheshrc27/captionflow/internal/observability"
	"github.com/maheshrc27/captionflow/internal/repository"
)

type CaptionService interface {
	Generate(ctx context.Context, userID string, kind models.ContentKind, itemID string) (string, error)
	GenerateMultiple(ctx context.Context, userID, productID string) ([]string, error)
	ClearCaption(ctx context.Context, userID string, kind models.ContentKind, itemID string) error
	Credits(ctx context.Context, userID string) (int, error)
}

type captionService struct {
	cr  repository.ContentRepository
	rr  repository.RestaurantRepository
	pfr repository.ProfileRepository
	llm TextGenerator
}

func NewCaptionService(
	cr repository.ContentRepository,
	rr repository.RestaurantRepository,
	pfr repository.ProfileRepository,
	llm TextGenerator) CaptionService {
	return &captionService{
		cr:  cr,
		rr:  rr,
		pfr: pfr,
		llm: llm,
	}
}

// Generate spends one credit, asks the LLM for a caption and stores it on
// the item. The credit is refunded if the LLM call or the write fails.
func (s *captionService) Generate(ctx context.Context, userID string, kind models.ContentKind, itemID string) (string, error) {
	item, rest, err := s.loadContext(ctx, userID, kind, itemID)
	if err != nil {
		return "", err
	}

	if err := s.spendCredit(ctx, userID); err != nil {
		return "", err
	}

	caption, err := s.llm.Complete(ctx, captionSystemPrompt, BuildCaptionPrompt(rest, item), defaultCaptionTemperature)
	if err != nil {
		s.refund(ctx, userID)
		observability.CaptionsGenerated.WithLabelValues(string(kind), "llm_error").Inc()
		return "", upstreamError("caption generation", err)
	}

	if err := s.cr.SetCaption(ctx, kind, itemID, userID, &caption); err != nil {
		s.refund(ctx, userID)
		observability.CaptionsGenerated.WithLabelValues(string(kind), "persist_error").Inc()
		return "", err
	}

	observability.CaptionsGenerated.WithLabelValues(string(kind), "ok").Inc()
	return caption, nil
}

// GenerateMultiple returns one caption per style for a single credit. Styles
// whose call fails are left out; the credit is refunded only if all fail.
func (s *captionService) GenerateMultiple(ctx context.Context, userID, productID string) ([]string, error) {
	item, rest, err := s.loadContext(ctx, userID, models.ContentKindProduct, productID)
	if err != nil {
		return nil, err
	}

	if err := s.spendCredit(ctx, userID); err != nil {
		return nil, err
	}

	styled := generateStyledCaptions(ctx, s.llm, BuildCaptionPrompt(rest, item))

	captions := make([]string, 0, len(styled))
	for _, c := range styled {
		if c != "" {
			captions = append(captions, c)
		}
	}
	if len(captions) == 0 {
		s.refund(ctx, userID)
		observability.CaptionsGenerated.WithLabelValues(string(models.ContentKindProduct), "llm_error").Inc()
		return nil, upstreamError("caption generation", errAllStylesFailed)
	}

	observability.CaptionsGenerated.WithLabelValues(string(models.ContentKindProduct), "ok").Inc()
	return captions, nil
}

func (s *captionService) ClearCaption(ctx context.Context, userID string, kind models.ContentKind, itemID string) error {
	item, err := s.cr.GetByID(ctx, kind, itemID, userID)
	if err != nil {
		return err
	}
	if item == nil {
		return ErrNotFound
	}
	return s.cr.SetCaption(ctx, kind, itemID, userID, nil)
}

func (s *captionService) Credits(ctx context.Context, userID string) (int, error) {
	return s.pfr.GetCredits(ctx, userID)
}

func (s *captionService) loadContext(ctx context.Context, userID string, kind models.ContentKind, itemID string) (*models.ContentItem, *models.Restaurant, error) {
	if !kind.Valid() {
		return nil, nil, validationError("unknown content kind %q", kind)
	}

	item, err := s.cr.GetByID(ctx, kind, itemID, userID)
	if err != nil {
		return nil, nil, err
	}
	if item == nil {
		return nil, nil, ErrNotFound
	}

	rest, err := s.rr.GetByOwnerID(ctx, userID)
	if err != nil {
		return nil, nil, err
	}
	if rest == nil {
		return nil, nil, validationError("create your restaurant profile before generating captions")
	}
	return item, rest, nil
}

func (s *captionService) spendCredit(ctx context.Context, userID string) error {
	_, ok, err := s.pfr.DecrementCredit(ctx, userID)
	if err != nil {
		return err
	}
	if !ok {
		return ErrInsufficientCredits
	}
	return nil
}

// refund runs detached from ctx so a dropped request still gets its credit back.
func (s *captionService) refund(ctx context.Context, userID string) {
	if _, err := s.pfr.RefundCredit(context.WithoutCancel(ctx), userID); err != nil {
		slog.Error("failed to refund credit", "user_id", userID, "error", err)
		return
	}
	observability.CreditsRefunded.Inc()
}

// generateStyledCaptions runs one LLM call per caption style concurrently.
// The result has one entry per style, empty where the call failed.
func generateStyledCaptions(ctx context.Context, llm TextGenerator, prompt string) []string {
	captions := make([]string, len(captionStyles))

	var wg sync.WaitGroup
	for i, style := range captionStyles {
		wg.Add(1)
		go func(i int, style captionStyle) {
			defer wg.Done()

			caption, err := llm.Complete(ctx, captionSystemPrompt, styledPrompt(prompt, style), style.Temperature)
			if err != nil {
				slog.Info("styled caption failed", "style", style.Name, "error", err)
				return
			}
			captions[i] = caption
		}(i, style)
	}
	wg.Wait()

	return captions
}
