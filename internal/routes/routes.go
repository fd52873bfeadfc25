package routes

import (
	"net/http"

	"blackfall_back_end/internal/handlers/webhook"
	"blackfall_back_end/internal/middleware"

	"github.com/gin-gonic/gin"
)

func RegisterRoutes(r *gin.Engine, h *webhook.Handler) {
	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	// Webhook Stripe — authentifié par signature, pas par jeton
	r.POST("/api/webhooks/stripe", h.HandleStripeWebhook)

	// Back-office commandes (suivi opérateur)
	admin := r.Group("/api/orders", middleware.RequireAdminToken)
	admin.GET("", h.ListOrders)
	admin.GET("/search", h.SearchOrders)
	admin.GET("/:sessionId", h.GetOrder)
}
