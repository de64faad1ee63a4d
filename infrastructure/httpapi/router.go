package httpapi

import (
	"github.com/gofiber/fiber/v2"
)

// RegisterRoutes wires the REST surface onto the fiber app. Everything
// under /api/v1 except auth requires a bearer token.
func RegisterRoutes(app *fiber.App, h *Handlers) {
	app.Get("/health", h.Health)

	api := app.Group("/api/v1")

	auth := api.Group("/auth")
	auth.Post("/register", h.Register)
	auth.Post("/login", h.Login)

	protected := api.Group("", RequireAuth())

	protected.Get("/conversations", h.ListConversations)
	protected.Get("/conversations/:partnerId/messages", h.GetHistory)

	protected.Get("/messages/unread-count", h.UnreadCount)
	protected.Get("/messages/search", h.SearchMessages)
	protected.Post("/messages", h.SendMessage)

	protected.Put("/connections/:partnerId", h.Connect)
	protected.Delete("/connections/:partnerId", h.Disconnect)
}
