package routes

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/metagameshop/shop-backend/internal/config"
	"github.com/metagameshop/shop-backend/internal/handlers"
	"github.com/metagameshop/shop-backend/internal/middleware"
)

// HandlerDependencies holds all the handlers needed for routing.
// RateLimiter is optional; nil leaves write endpoints unthrottled.
type HandlerDependencies struct {
	PaymentHandler  *handlers.PaymentHandler
	AdminHandler    *handlers.AdminHandler
	PurchaseHandler *handlers.PurchaseHandler
	OrderHandler    *handlers.OrderHandler
	RateLimiter     middleware.Counter
}

// SetupRouter sets up the router
func SetupRouter(cfg *config.Config, deps HandlerDependencies) *gin.Engine {
	router := gin.New()

	// Add middleware
	router.Use(gin.Recovery())
	router.Use(middleware.RequestIDMiddleware())
	router.Use(middleware.LoggerMiddleware())
	router.Use(middleware.CORSMiddleware(cfg.Server.AllowedOrigins))

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status": "ok",
		})
	})

	adminAuth := middleware.AdminAuthMiddleware(cfg.Auth)
	throttle := func(c *gin.Context) { c.Next() }
	if deps.RateLimiter != nil {
		throttle = middleware.RateLimitMiddleware(deps.RateLimiter, cfg.RateLimit.Requests, cfg.RateLimit.Window)
	}

	api := router.Group(cfg.Server.BasePath)
	{
		// Payment routes
		payments := api.Group("/payments")
		{
			payments.POST("/create", throttle, deps.PaymentHandler.CreatePayment)
			payments.GET("/balance/:userId", deps.PaymentHandler.GetBalance)
			payments.GET("/user/:userId", deps.PaymentHandler.GetUserPayments)
			payments.GET("/admin/pending", adminAuth, deps.PaymentHandler.GetPendingPayments)
		}

		// Admin routes
		admin := api.Group("/admin")
		admin.Use(adminAuth)
		{
			admin.PUT("/approve-payment/:paymentId", deps.AdminHandler.ApprovePayment)
			admin.PUT("/reject-payment/:paymentId", deps.AdminHandler.RejectPayment)
			admin.GET("/users", deps.AdminHandler.GetUsers)
			admin.GET("/stats", deps.AdminHandler.GetStats)
			admin.GET("/payments", deps.AdminHandler.GetPayments)
		}

		api.POST("/purchases", throttle, deps.PurchaseHandler.CreatePurchase)

		// Order history routes
		orders := api.Group("/orders")
		{
			orders.GET("/user/:userId", deps.OrderHandler.GetUserOrders)
			orders.GET("/user/:userId/stats", deps.OrderHandler.GetUserOrderStats)
		}
	}

	return router
}
