package http

import (
	"time"

	"finance_ledger/internal/http/handlers"
	"finance_ledger/internal/http/middleware"
	"finance_ledger/internal/ws"

	"github.com/gin-gonic/gin"
)

// RegisterRoutes wires the HTTP surface. Rate limits are per-IP: a
// general ceiling on the API group and a tighter one on auth endpoints.
func RegisterRoutes(r *gin.Engine, h *handlers.Handler, hh *handlers.HealthHandler, hub *ws.Hub, limiter *middleware.Limiter) {
	r.GET("/health", hh.Health)
	r.GET("/health/live", hh.Liveness)
	r.GET("/health/ready", hh.Readiness)

	api := r.Group("/api/v1")
	api.Use(limiter.PerIP(120, time.Minute))

	auth := api.Group("/auth")
	auth.Use(limiter.PerIP(10, time.Minute))
	{
		auth.POST("/register", h.Register)
		auth.POST("/login", h.Login)
	}

	protected := api.Group("/")
	protected.Use(middleware.JWT())
	{
		protected.GET("/me", h.Me)

		// статические маршруты раньше параметрических
		protected.GET("/transactions/summary", h.Summary)
		protected.GET("/transactions/filter", h.FilterTransactions)
		protected.GET("/transactions/statement", h.Statement)

		protected.GET("/transactions", h.ListTransactions)
		protected.POST("/transactions", h.CreateTransaction)
		protected.GET("/transactions/:id", h.GetTransaction)
		protected.PATCH("/transactions/:id", h.UpdateTransaction)
		protected.DELETE("/transactions/:id", h.DeleteTransaction)
	}

	r.GET("/ws", h.WS(hub))
}
