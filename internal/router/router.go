package router

import (
	"time"

	"shulepay/config"
	"shulepay/internal/domain"
	"shulepay/internal/handler"
	"shulepay/internal/middleware"
	"shulepay/internal/repository"
	"shulepay/internal/service"
	"shulepay/pkg/mpesa"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

func Setup(cfg *config.Config, db *gorm.DB) *gin.Engine {
	if cfg.Server.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middleware.RateLimit(middleware.NewInMemoryRateLimiter(100, time.Minute)))

	// Repositories
	invoiceRepo := repository.NewInvoiceRepository(db)
	requestRepo := repository.NewPaymentRequestRepository(db)
	paymentRepo := repository.NewPaymentRepository(db)
	auditRepo := repository.NewCallbackAuditRepository(db)

	// Services
	callbackURL := ""
	if cfg.Mpesa.CallbackBaseURL != "" {
		callbackURL = cfg.Mpesa.CallbackBaseURL + "/api/v1/webhooks/mpesa"
	}
	gateway := mpesa.NewClient(cfg.Mpesa.Env, cfg.Mpesa.ConsumerKey, cfg.Mpesa.ConsumerSecret, cfg.Mpesa.Shortcode, cfg.Mpesa.Passkey, callbackURL)
	paySvc := service.NewPaymentService(db, invoiceRepo, requestRepo, paymentRepo, gateway)

	// Handlers
	mpesaHandler := handler.NewMpesaHandler(paySvc, requestRepo)
	webhookHandler := handler.NewMpesaWebhookHandler(paySvc, auditRepo)
	invoiceHandler := handler.NewInvoiceHandler(invoiceRepo, requestRepo, paySvc)
	auditHandler := handler.NewAuditHandler(auditRepo)

	authMw := middleware.AuthRequired(&cfg.JWT)
	staffMw := middleware.RequireRole(domain.RoleBursar, domain.RoleAdmin)

	api := r.Group("/api/v1")
	{
		api.POST("/payments/mpesa/initiate", authMw, mpesaHandler.Initiate)
		api.GET("/payments/mpesa/:checkout_request_id", authMw, mpesaHandler.Status)

		invoices := api.Group("/invoices")
		invoices.Use(authMw)
		{
			invoices.POST("", staffMw, invoiceHandler.Create)
			invoices.GET("/:id", invoiceHandler.Get)
			invoices.POST("/:id/payments", staffMw, invoiceHandler.RecordPayment)
		}

		api.GET("/admin/callback-audits", authMw, staffMw, auditHandler.List)

		api.POST("/webhooks/mpesa", webhookHandler.Handle)
	}

	return r
}
