package handlers

import (
	"log/slog"

	"github.com/gofiber/fiber/v2"
	"github.com/maheshrc27/captionflow/internal/service"
	"github.com/maheshrc27/captionflow/internal/transfer"
)

type ScheduleHandler struct {
	s service.SchedulingService
}

func NewScheduleHandler(s service.SchedulingService) *ScheduleHandler {
	return &ScheduleHandler{s: s}
}

func (h *ScheduleHandler) ListPosts(c *fiber.Ctx) error {
	posts, err := h.s.ListPosts(c.Context(), GetUserID(c))
	if err != nil {
		return respondError(c, err)
	}
	return c.Status(fiber.StatusOK).JSON(posts)
}

func (h *ScheduleHandler) CreatePost(c *fiber.Ctx) error {
	req := new(transfer.PostCreation)
	if err := c.BodyParser(req); err != nil {
		slog.Info(err.Error())
		return badRequest(c, "Invalid request body")
	}

	post, err := h.s.CreatePost(c.Context(), GetUserID(c), req)
	if err != nil {
		return respondError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(post)
}

func (h *ScheduleHandler) ScheduleAutomatic(c *fiber.Ctx) error {
	posts, err := h.s.ScheduleAutomatic(c.Context(), GetUserID(c))
	if err != nil {
		return respondError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(transfer.ScheduleResponse{
		Created: len(posts),
		Posts:   posts,
	})
}

func (h *ScheduleHandler) CancelAll(c *fiber.Ctx) error {
	n, err := h.s.CancelAll(c.Context(), GetUserID(c))
	if err != nil {
		return respondError(c, err)
	}
	return c.Status(fiber.StatusOK).JSON(transfer.CancelResponse{Cancelled: n})
}

func (h *ScheduleHandler) UpdatePostDate(c *fiber.Ctx) error {
	req := new(transfer.PostDateUpdate)
	if err := c.BodyParser(req); err != nil {
		slog.Info(err.Error())
		return badRequest(c, "Invalid request body")
	}

	post, err := h.s.UpdatePostDate(c.Context(), GetUserID(c), c.Params("id"), req)
	if err != nil {
		return respondError(c, err)
	}
	return c.Status(fiber.StatusOK).JSON(post)
}

func (h *ScheduleHandler) DeletePost(c *fiber.Ctx) error {
	if err := h.s.DeletePost(c.Context(), GetUserID(c), c.Params("id")); err != nil {
		return respondError(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

func (h *ScheduleHandler) PostNow(c *fiber.Ctx) error {
	post, err := h.s.PostNow(c.Context(), GetUserID(c), c.Params("id"))
	if err != nil {
		return respondError(c, err)
	}
	return c.Status(fiber.StatusOK).JSON(post)
}
