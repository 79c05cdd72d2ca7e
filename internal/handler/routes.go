package handler

import (
	"github.com/gofiber/fiber/v2"
	"github.com/softiel/backend/internal/middleware"
)

// Handlers groups everything mounted under /api/v1.
type Handlers struct {
	Auth     *AuthHandler
	Comment  *CommentHandler
	Activity *ActivityHandler
	Health   *HealthHandler
}

func RegisterRoutes(api fiber.Router, h Handlers, authMiddleware *middleware.AuthMiddleware) {
	// Health check
	if h.Health != nil {
		api.Get("/health", h.Health.Healthz)
		api.Get("/ready", h.Health.Readyz)
	}

	// Auth routes
	authRoutes := api.Group("/auth")
	authRoutes.Post("/login", h.Auth.Login)
	authRoutes.Post("/logout", authMiddleware.Required(), h.Auth.Logout)
	authRoutes.Get("/me", authMiddleware.Required(), authMiddleware.AdminOnly(), h.Auth.Me)

	// Public comment routes
	api.Get("/blogs/:blog_id/comments", authMiddleware.Optional(), h.Comment.List)
	api.Post("/blogs/:blog_id/comments", authMiddleware.Optional(), h.Comment.Create)
	api.Post("/comments/:id/like", authMiddleware.Optional(), h.Comment.Like)
	api.Delete("/comments/:id/like", authMiddleware.Optional(), h.Comment.Unlike)

	// Admin routes
	adminRoutes := api.Group("/admin", authMiddleware.Required(), authMiddleware.AdminOnly())
	adminRoutes.Get("/blogs/:blog_id/comments", h.Comment.AdminList)
	adminRoutes.Get("/blogs/:blog_id/comments/export", h.Comment.Export)
	adminRoutes.Post("/blogs/:blog_id/comments/reply", h.Comment.AdminReply)
	adminRoutes.Get("/comments/pending", h.Comment.Pending)
	adminRoutes.Post("/comments/:id/approve", h.Comment.Approve)
	adminRoutes.Post("/comments/:id/reject", h.Comment.Reject)
	adminRoutes.Delete("/comments/:id", h.Comment.Delete)

	adminRoutes.Get("/activities", h.Activity.List)
	adminRoutes.Get("/activities/count", h.Activity.Count)
	adminRoutes.Patch("/activities/read-all", h.Activity.MarkAllAsRead)
	adminRoutes.Patch("/activities/:id/read", h.Activity.MarkAsRead)
}
