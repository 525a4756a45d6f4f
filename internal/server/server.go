package server

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"marketpay-backend/internal/config"
	"marketpay-backend/internal/usecase"
)

// Services bundles what the HTTP layer calls into.
type Services struct {
	Orders   *usecase.OrderService
	Payments *usecase.PaymentService
	Webhooks *usecase.WebhookService
	Sellers  *usecase.SellerService
	// Ping checks storage for the health endpoint; nil means always healthy.
	Ping func(ctx context.Context) error
}

type Server struct {
	cfg    config.Config
	svc    Services
	log    *slog.Logger
	engine *gin.Engine
}

func New(cfg config.Config, svc Services, log *slog.Logger) *Server {
	if log == nil {
		log = slog.Default()
	}
	s := &Server{
		cfg:    cfg,
		svc:    svc,
		log:    log,
		engine: gin.New(),
	}
	s.engine.Use(requestID(), s.requestLogger(), s.recovery())
	// cors.New panics on an empty allow-list.
	if len(cfg.AllowedOrigins) > 0 {
		s.engine.Use(cors.New(cors.Config{
			AllowOrigins:     cfg.AllowedOrigins,
			AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
			AllowHeaders:     []string{"Content-Type", "Authorization"},
			ExposeHeaders:    []string{"Content-Length"},
			AllowCredentials: true,
			MaxAge:           600 * time.Second,
		}))
	}
	s.routes()
	return s
}

func (s *Server) Handler() http.Handler {
	return s.engine
}

func (s *Server) routes() {
	limit := newIPLimiter(s.cfg.RateLimit.RPS, s.cfg.RateLimit.Burst)
	s.engine.NoRoute(func(c *gin.Context) {
		s.err(c, http.StatusNotFound, "NotFound", "route not found")
	})

	api := s.engine.Group("/api")
	api.GET("/health", s.handleHealth)

	orders := api.Group("/orders", limit.middleware(s))
	orders.POST("", s.handleCreateOrder)
	orders.GET("/:orderId", s.handleGetOrder)

	api.GET("/checkout/:token", s.handleCheckout)

	payments := api.Group("/payments", limit.middleware(s))
	payments.POST("/onboard", s.handleOnboard)
	payments.GET("/callback", s.handleOnboardCallback)
	payments.POST("/create-intent", s.handleCreateIntent)
	payments.POST("/portal", s.handlePortal)

	api.POST("/webhooks/stripe", s.handleStripeWebhook)

	sellers := api.Group("/sellers")
	sellers.GET("/by-email/:email", s.handleGetSellerByEmail)
	sellers.GET("/:id", s.handleGetSeller)
	sellers.POST("", s.handleCreateSeller)
}

func (s *Server) handleHealth(c *gin.Context) {
	if s.svc.Ping != nil {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
		defer cancel()
		if err := s.svc.Ping(ctx); err != nil {
			s.log.Error("health check failed", "error", err)
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable"})
			return
		}
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}
