package handlers

import (
	"log/slog"
	"strconv"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/maheshrc27/captionflow/internal/service"
	"github.com/maheshrc27/captionflow/internal/transfer"
)

type ContentHandler struct {
	s service.ContentService
}

func NewContentHandler(s service.ContentService) *ContentHandler {
	return &ContentHandler{s: s}
}

func (h *ContentHandler) ListContent(c *fiber.Ctx) error {
	items, err := h.s.List(c.Context(), GetUserID(c))
	if err != nil {
		return respondError(c, err)
	}
	return c.Status(fiber.StatusOK).JSON(items)
}

func (h *ContentHandler) Upload(c *fiber.Ctx) error {
	kind, ok := parseKind(c)
	if !ok {
		return invalidKind(c)
	}

	file, err := c.FormFile("file")
	if err != nil {
		slog.Info(err.Error())
		return badRequest(c, "No file selected")
	}

	meta := &transfer.ContentUpload{
		Name:        c.FormValue("name"),
		Description: c.FormValue("description"),
		Category:    c.FormValue("category"),
	}
	if raw := strings.TrimSpace(c.FormValue("price")); raw != "" {
		price, err := strconv.ParseFloat(raw, 64)
		if err != nil || price < 0 {
			return badRequest(c, "price must be a non-negative number")
		}
		meta.Price = &price
	}

	item, err := h.s.Upload(c.Context(), GetUserID(c), kind, file, meta)
	if err != nil {
		return respondError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(item)
}

func (h *ContentHandler) Update(c *fiber.Ctx) error {
	kind, ok := parseKind(c)
	if !ok {
		return invalidKind(c)
	}

	upd := new(transfer.ContentUpdate)
	if err := c.BodyParser(upd); err != nil {
		slog.Info(err.Error())
		return badRequest(c, "Invalid request body")
	}

	item, err := h.s.Update(c.Context(), GetUserID(c), kind, c.Params("id"), upd)
	if err != nil {
		return respondError(c, err)
	}
	return c.Status(fiber.StatusOK).JSON(item)
}

func (h *ContentHandler) Delete(c *fiber.Ctx) error {
	kind, ok := parseKind(c)
	if !ok {
		return invalidKind(c)
	}

	if err := h.s.Delete(c.Context(), GetUserID(c), kind, c.Params("id")); err != nil {
		return respondError(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}
