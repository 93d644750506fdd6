package handlers

import (
	"github.com/gofiber/fiber/v2"
	"github.com/maheshrc27/captionflow/internal/service"
	"github.com/maheshrc27/captionflow/internal/transfer"
)

type CaptionHandler struct {
	s service.CaptionService
}

func NewCaptionHandler(s service.CaptionService) *CaptionHandler {
	return &CaptionHandler{s: s}
}

func (h *CaptionHandler) Generate(c *fiber.Ctx) error {
	kind, ok := parseKind(c)
	if !ok {
		return invalidKind(c)
	}

	caption, err := h.s.Generate(c.Context(), GetUserID(c), kind, c.Params("id"))
	if err != nil {
		return respondError(c, err)
	}
	return c.Status(fiber.StatusOK).JSON(transfer.CaptionResponse{Caption: caption})
}

func (h *CaptionHandler) GenerateMultiple(c *fiber.Ctx) error {
	captions, err := h.s.GenerateMultiple(c.Context(), GetUserID(c), c.Params("id"))
	if err != nil {
		return respondError(c, err)
	}
	return c.Status(fiber.StatusOK).JSON(transfer.CaptionsResponse{Captions: captions})
}

func (h *CaptionHandler) Clear(c *fiber.Ctx) error {
	kind, ok := parseKind(c)
	if !ok {
		return invalidKind(c)
	}

	if err := h.s.ClearCaption(c.Context(), GetUserID(c), kind, c.Params("id")); err != nil {
		return respondError(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

func (h *CaptionHandler) Credits(c *fiber.Ctx) error {
	credits, err := h.s.Credits(c.Context(), GetUserID(c))
	if err != nil {
		return respondError(c, err)
	}
	return c.Status(fiber.StatusOK).JSON(transfer.CreditsResponse{Credits: credits})
}
