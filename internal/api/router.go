package api

import (
	"github.com/gofiber/fiber/v2"
	"github.com/maheshrc27/captionflow/internal/api/handlers"
)

type Handlers struct {
	Content     *handlers.ContentHandler
	Caption     *handlers.CaptionHandler
	Enhancement *handlers.EnhancementHandler
	Schedule    *handlers.ScheduleHandler
	Variant     *handlers.VariantHandler
	Tiktok      *handlers.TiktokHandler
}

// RegisterRoutes mounts the public routes on app and everything else under
// /api behind auth.
func RegisterRoutes(app *fiber.App, h Handlers, auth fiber.Handler) {
	app.Get("/health", func(c *fiber.Ctx) error {
		return c.Status(fiber.StatusOK).JSON(fiber.Map{"status": "ok"})
	})
	app.Get("/auth/tiktok/callback", h.Tiktok.Callback)

	api := app.Group("/api")
	api.Use(auth)

	api.Get("/credits", h.Caption.Credits)

	api.Get("/content", h.Content.ListContent)
	api.Post("/content/:kind", h.Content.Upload)
	api.Patch("/content/:kind/:id", h.Content.Update)
	api.Delete("/content/:kind/:id", h.Content.Delete)

	api.Post("/content/:kind/:id/caption", h.Caption.Generate)
	api.Delete("/content/:kind/:id/caption", h.Caption.Clear)
	api.Post("/products/:id/captions", h.Caption.GenerateMultiple)

	api.Post("/content/:kind/:id/enhance", h.Enhancement.Start)
	api.Post("/content/:kind/:id/enhance/retry", h.Enhancement.Retry)
	api.Get("/content/:kind/:id/enhance", h.Enhancement.Watch)
	api.Delete("/content/:kind/:id/enhance", h.Enhancement.CancelWatch)
	api.Put("/content/:kind/:id/version", h.Enhancement.SelectVersion)
	api.Get("/enhancements", h.Enhancement.Markers)

	api.Post("/products/:id/variants", h.Variant.Generate)

	api.Get("/posts", h.Schedule.ListPosts)
	api.Post("/posts", h.Schedule.CreatePost)
	api.Post("/posts/auto", h.Schedule.ScheduleAutomatic)
	api.Delete("/posts/scheduled", h.Schedule.CancelAll)
	api.Patch("/posts/:id/date", h.Schedule.UpdatePostDate)
	api.Delete("/posts/:id", h.Schedule.DeletePost)
	api.Post("/posts/:id/publish", h.Schedule.PostNow)

	api.Get("/tiktok", h.Tiktok.Connection)
	api.Delete("/tiktok", h.Tiktok.Disconnect)
	api.Get("/tiktok/login", h.Tiktok.Login)
	api.Get("/tiktok/config", h.Tiktok.Config)
	api.Get("/tiktok/creator-info", h.Tiktok.CreatorInfo)
	api.Post("/tiktok/refresh", h.Tiktok.Refresh)
	api.Post("/tiktok/process-image", h.Tiktok.ProcessImage)
}
