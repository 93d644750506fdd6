package handlers

import (
	"fmt"
	"log/slog"
	"net/url"

	"github.com/gofiber/fiber/v2"
	config "github.com/maheshrc27/captionflow/configs"
	"github.com/maheshrc27/captionflow/internal/service"
	"github.com/maheshrc27/captionflow/internal/transfer"
)

type TiktokHandler struct {
	tt  service.TiktokService
	cfg config.Config
}

func NewTiktokHandler(tt service.TiktokService, cfg config.Config) *TiktokHandler {
	return &TiktokHandler{tt: tt, cfg: cfg}
}

// Login returns the authorize URL instead of redirecting, since the browser
// cannot attach the bearer token to a top-level navigation.
func (h *TiktokHandler) Login(c *fiber.Ctx) error {
	authURL, err := h.tt.LoginStart(c.Context(), GetUserID(c))
	if err != nil {
		return respondError(c, err)
	}
	return c.Status(fiber.StatusOK).JSON(transfer.TiktokLoginResponse{URL: authURL})
}

func (h *TiktokHandler) Callback(c *fiber.Ctx) error {
	if reason := c.Query("error"); reason != "" {
		slog.Info("tiktok authorization declined", "error", reason, "description", c.Query("error_description"))
		return h.redirect(c, "error")
	}

	code := c.Query("code")
	state := c.Query("state")
	if code == "" || state == "" {
		return badRequest(c, "Missing code or state")
	}

	if _, err := h.tt.Callback(c.Context(), code, state); err != nil {
		slog.Info(err.Error())
		return h.redirect(c, "error")
	}
	return h.redirect(c, "connected")
}

func (h *TiktokHandler) redirect(c *fiber.Ctx, result string) error {
	redirectURL := fmt.Sprintf("%s/dashboard/settings?tiktok=%s", h.cfg.FrontendURL, url.QueryEscape(result))
	return c.Redirect(redirectURL, fiber.StatusTemporaryRedirect)
}

func (h *TiktokHandler) Config(c *fiber.Ctx) error {
	return c.Status(fiber.StatusOK).JSON(h.tt.Config())
}

func (h *TiktokHandler) Connection(c *fiber.Ctx) error {
	conn, err := h.tt.Connection(c.Context(), GetUserID(c))
	if err != nil {
		return respondError(c, err)
	}
	return c.Status(fiber.StatusOK).JSON(conn)
}

func (h *TiktokHandler) CreatorInfo(c *fiber.Ctx) error {
	info, err := h.tt.CreatorInfo(c.Context(), GetUserID(c))
	if err != nil {
		return respondError(c, err)
	}
	return c.Status(fiber.StatusOK).JSON(info)
}

func (h *TiktokHandler) Refresh(c *fiber.Ctx) error {
	if err := h.tt.RefreshToken(c.Context(), GetUserID(c)); err != nil {
		return respondError(c, err)
	}
	return c.Status(fiber.StatusOK).JSON(fiber.Map{"message": "Token refreshed"})
}

func (h *TiktokHandler) Disconnect(c *fiber.Ctx) error {
	if err := h.tt.Disconnect(c.Context(), GetUserID(c)); err != nil {
		return respondError(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

func (h *TiktokHandler) ProcessImage(c *fiber.Ctx) error {
	req := new(transfer.ProcessImageRequest)
	if err := c.BodyParser(req); err != nil {
		slog.Info(err.Error())
		return badRequest(c, "Invalid request body")
	}
	if req.ImagePath == "" {
		return badRequest(c, "image_path is required")
	}

	resp, err := h.tt.ProcessImageForTikTok(c.Context(), GetUserID(c), req.ImagePath)
	if err != nil {
		return respondError(c, err)
	}
	return c.Status(fiber.StatusOK).JSON(resp)
}
