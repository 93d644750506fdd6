package handlers

import (
	"github.com/gofiber/fiber/v2"
	"github.com/maheshrc27/captionflow/internal/service"
	"github.com/maheshrc27/captionflow/internal/transfer"
)

type VariantHandler struct {
	s service.VariantService
}

func NewVariantHandler(s service.VariantService) *VariantHandler {
	return &VariantHandler{s: s}
}

func (h *VariantHandler) Generate(c *fiber.Ctx) error {
	products, err := h.s.Generate(c.Context(), GetUserID(c), c.Params("id"))
	if err != nil {
		return respondError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(transfer.VariantsResponse{Products: products})
}
