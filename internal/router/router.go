package router

import (
	"pixcharge/config"
	"pixcharge/internal/handler"
	"pixcharge/internal/middleware"
	"pixcharge/internal/repository"
	"pixcharge/internal/service"
	"pixcharge/internal/webhook"
	"pixcharge/internal/ws"
	"pixcharge/pkg/pix"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"gorm.io/gorm"
)

// Setup wires repositories, services and handlers. Status changes go to the
// websocket hub plus any extra publishers (e.g. the AMQP broker). The
// returned stop func releases background workers.
func Setup(cfg *config.Config, db *gorm.DB, psp pix.Provider, log zerolog.Logger, publishers ...service.StatusPublisher) (*gin.Engine, func()) {
	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middleware.RequestLogger(log.With().Str("component", "http").Logger()))

	// Repositories
	paymentRepo := repository.NewPaymentRepository(db)
	userRepo := repository.NewUserRepository(db)

	statusHub := ws.NewHub()

	// Services
	notifSvc := service.NewNotificationService(log, append([]service.StatusPublisher{statusHub}, publishers...)...)
	reconciler := service.NewReconciler(paymentRepo, notifSvc, log)
	chargeSvc := service.NewChargeService(psp, paymentRepo, userRepo, reconciler, log)

	// Handlers
	pixHandler := handler.NewPixHandler(chargeSvc)
	webhookHandler := handler.NewPixWebhookHandler(chargeSvc, webhook.NewVerifier(cfg.Webhook.Secret, cfg.Webhook.Tolerance))

	r.GET("/healthz", handler.Health(db))

	api := r.Group("/api/v1")

	// PSP callbacks authenticate by signature, not by service token.
	// Some PSPs append /pix to the registered URL.
	api.POST("/webhooks/pix", webhookHandler.Handle)
	api.POST("/webhooks/pix/pix", webhookHandler.Handle)

	// Webhooks arrive from a handful of PSP addresses, so only callers of
	// the payments API are rate limited.
	stop := func() {}
	payments := api.Group("/payments/pix")
	if cfg.API.RateLimit > 0 {
		limiter := middleware.NewInMemoryRateLimiter(cfg.API.RateLimit, cfg.API.RateWindow)
		payments.Use(middleware.RateLimit(limiter))
		stop = limiter.Stop
	}
	payments.Use(middleware.ServiceAuth(&cfg.API))
	{
		payments.POST("", pixHandler.Create)
		payments.GET("", pixHandler.List)
		payments.GET("/:txid", pixHandler.Get)
		payments.POST("/:txid/check", pixHandler.Check)
	}

	r.GET("/ws/payments/:txid", ws.UpgradeStatusWS(&cfg.API, statusHub, chargeSvc, service.ErrPaymentNotFound, log))

	return r, stop
}
