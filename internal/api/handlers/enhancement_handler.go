package handlers

import (
	"context"
	"errors"
	"log/slog"

	"github.com/gofiber/fiber/v2"
	"github.com/maheshrc27/captionflow/internal/service"
	"github.com/maheshrc27/captionflow/internal/transfer"
)

type EnhancementHandler struct {
	s service.EnhancementService
}

func NewEnhancementHandler(s service.EnhancementService) *EnhancementHandler {
	return &EnhancementHandler{s: s}
}

func (h *EnhancementHandler) Start(c *fiber.Ctx) error {
	kind, ok := parseKind(c)
	if !ok {
		return invalidKind(c)
	}

	item, err := h.s.Start(c.Context(), GetUserID(c), kind, c.Params("id"))
	if err != nil {
		return respondError(c, err)
	}
	return c.Status(fiber.StatusAccepted).JSON(item)
}

func (h *EnhancementHandler) Retry(c *fiber.Ctx) error {
	kind, ok := parseKind(c)
	if !ok {
		return invalidKind(c)
	}

	item, err := h.s.Retry(c.Context(), GetUserID(c), kind, c.Params("id"))
	if err != nil {
		return respondError(c, err)
	}
	return c.Status(fiber.StatusAccepted).JSON(item)
}

// Watch blocks until the enhancement settles or the watch gives up. Giving
// up is not an error for the client, which keeps showing the item as busy.
func (h *EnhancementHandler) Watch(c *fiber.Ctx) error {
	kind, ok := parseKind(c)
	if !ok {
		return invalidKind(c)
	}

	status, err := h.s.Watch(c.Context(), GetUserID(c), kind, c.Params("id"))
	switch {
	case errors.Is(err, service.ErrWatchTimeout):
		return c.Status(fiber.StatusOK).JSON(fiber.Map{
			"status":    status,
			"timed_out": true,
		})
	case errors.Is(err, context.Canceled):
		return c.Status(fiber.StatusOK).JSON(fiber.Map{
			"status":    status,
			"cancelled": true,
		})
	case err != nil:
		return respondError(c, err)
	}

	return c.Status(fiber.StatusOK).JSON(transfer.EnhancementStatusResponse{
		ID:     c.Params("id"),
		Kind:   string(kind),
		Status: status,
	})
}

func (h *EnhancementHandler) CancelWatch(c *fiber.Ctx) error {
	kind, ok := parseKind(c)
	if !ok {
		return invalidKind(c)
	}

	cancelled := h.s.CancelWatch(GetUserID(c), kind, c.Params("id"))
	return c.Status(fiber.StatusOK).JSON(fiber.Map{"cancelled": cancelled})
}

func (h *EnhancementHandler) SelectVersion(c *fiber.Ctx) error {
	kind, ok := parseKind(c)
	if !ok {
		return invalidKind(c)
	}

	req := new(transfer.SelectVersionRequest)
	if err := c.BodyParser(req); err != nil {
		slog.Info(err.Error())
		return badRequest(c, "Invalid request body")
	}

	if err := h.s.SelectVersion(c.Context(), GetUserID(c), kind, c.Params("id"), req.Version); err != nil {
		return respondError(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// Markers lists the items the client should still show as enhancing.
func (h *EnhancementHandler) Markers(c *fiber.Ctx) error {
	active, err := h.s.Reconcile(c.Context(), GetUserID(c))
	if err != nil {
		return respondError(c, err)
	}
	if active == nil {
		active = []string{}
	}
	return c.Status(fiber.StatusOK).JSON(fiber.Map{"processing": active})
}
