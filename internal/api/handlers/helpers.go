package handlers

import (
	"errors"
	"log/slog"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/maheshrc27/captionflow/internal/models"
	"github.com/maheshrc27/captionflow/internal/service"
)

func GetUserID(c *fiber.Ctx) string {
	userID, _ := c.Locals("user_id").(string)
	return userID
}

// parseKind accepts both "product" and "products" style path segments.
func parseKind(c *fiber.Ctx) (models.ContentKind, bool) {
	kind := models.ContentKind(strings.TrimSuffix(strings.ToLower(c.Params("kind")), "s"))
	return kind, kind.Valid()
}

func invalidKind(c *fiber.Ctx) error {
	return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
		"error": "kind must be product or image",
	})
}

func badRequest(c *fiber.Ctx, msg string) error {
	return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
		"error": msg,
	})
}

// respondError maps service errors onto HTTP statuses.
func respondError(c *fiber.Ctx, err error) error {
	switch {
	case errors.Is(err, service.ErrInsufficientCredits):
		return c.Status(fiber.StatusPaymentRequired).JSON(fiber.Map{
			"error": "insufficient credits",
			"code":  "no_credits",
		})
	case errors.Is(err, service.ErrNotFound):
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": err.Error()})
	case errors.Is(err, service.ErrValidation),
		errors.Is(err, service.ErrPastDate),
		errors.Is(err, service.ErrNoMedia),
		errors.Is(err, service.ErrCompliance),
		errors.Is(err, service.ErrNoEligibleContent),
		errors.Is(err, service.ErrInvalidState):
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	case errors.Is(err, service.ErrAlreadyProcessing),
		errors.Is(err, service.ErrNotConnected):
		return c.Status(fiber.StatusConflict).JSON(fiber.Map{"error": err.Error()})
	case errors.Is(err, service.ErrUpstream):
		slog.Info(err.Error())
		return c.Status(fiber.StatusBadGateway).JSON(fiber.Map{"error": err.Error()})
	default:
		slog.Error("request failed", "path", c.Path(), "error", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Something went wrong",
		})
	}
}
