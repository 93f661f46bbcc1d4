package http

import (
	"net/http"
	"time"

	"purchase-order-backend/internal/adapter/middleware"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

type RouterConfig struct {
	Health    *Handler
	Orders    *OrderHandler
	Approvals *ApprovalHandler

	// Redis backs idempotent POSTs; nil disables the middleware.
	Redis          *redis.Client
	IdempotencyTTL time.Duration

	RateLimitRPS   float64
	RateLimitBurst int

	// Metrics is served on GET /metrics when set.
	Metrics http.Handler
	Log     *zap.Logger
}

func NewRouter(cfg RouterConfig) *echo.Echo {
	log := cfg.Log
	if log == nil {
		log = zap.NewNop()
	}

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Validator = NewValidator()
	e.Use(echomw.RequestID(), middleware.RequestLog(log), echomw.Recover())

	// routes
	e.GET("/health", cfg.Health.Health)
	if cfg.Metrics != nil {
		e.GET("/metrics", echo.WrapHandler(cfg.Metrics))
	}

	var idem, optIdem []echo.MiddlewareFunc
	if cfg.Redis != nil {
		idem = append(idem, middleware.IdempotencyMiddleware(cfg.Redis, cfg.IdempotencyTTL, log))
		// approvers post the bare body; the single-use token already bounds retries
		optIdem = append(optIdem, middleware.OptionalIdempotency(cfg.Redis, cfg.IdempotencyTTL, log))
	}

	orders := e.Group("/orders", idem...)
	orders.POST("", cfg.Orders.CreateOrder)
	orders.GET("", cfg.Orders.ListOrders)
	orders.GET("/by-number/:number", cfg.Orders.GetOrderByNumber)
	orders.GET("/:id", cfg.Orders.GetOrder)
	orders.PUT("/:id/items", cfg.Orders.ReplaceItems)
	orders.POST("/:id/complete", cfg.Orders.CompleteOrder)
	orders.POST("/:id/cancel", cfg.Orders.CancelOrder)
	orders.POST("/:id/approval-token", cfg.Approvals.IssueToken)

	public := e.Group("/approval-order", middleware.RateLimit(cfg.RateLimitRPS, cfg.RateLimitBurst))
	public.GET("", cfg.Approvals.ReviewOrder)
	public.POST("/resolve", cfg.Approvals.Resolve, optIdem...)

	return e
}
