package server

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/smallbiznis/storefront/internal/authorization"
	cartdomain "github.com/smallbiznis/storefront/internal/cart/domain"
	catalogdomain "github.com/smallbiznis/storefront/internal/catalog/domain"
	checkoutdomain "github.com/smallbiznis/storefront/internal/checkout/domain"
	"github.com/smallbiznis/storefront/internal/config"
	fulfillmentdomain "github.com/smallbiznis/storefront/internal/fulfillment/domain"
	inventorydomain "github.com/smallbiznis/storefront/internal/inventory/domain"
	"github.com/smallbiznis/storefront/internal/notification"
	"github.com/smallbiznis/storefront/internal/observability"
	obsmiddleware "github.com/smallbiznis/storefront/internal/observability/logger"
	obsmetrics "github.com/smallbiznis/storefront/internal/observability/metrics"
	obstracing "github.com/smallbiznis/storefront/internal/observability/tracing"
	orderdomain "github.com/smallbiznis/storefront/internal/order/domain"
	paymentdomain "github.com/smallbiznis/storefront/internal/payment/domain"
	"github.com/smallbiznis/storefront/internal/ratelimit"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

var Module = fx.Module("http.server",
	fx.Provide(registerGin),
	fx.Invoke(NewServer),
	fx.Invoke(run),
)

func NewEngine(obsCfg observability.Config, httpMetrics *obsmetrics.HTTPMetrics) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(obsmiddleware.GinMiddleware(obsmiddleware.MiddlewareConfig{
		Debug:           obsCfg.Debug(),
		ErrorClassifier: classifyErrorForLog,
	}))
	r.Use(obstracing.GinMiddleware())
	r.Use(httpMetrics.GinMiddleware())
	r.Use(ErrorHandlingMiddleware())

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	return r
}

func registerGin(obsCfg observability.Config, httpMetrics *obsmetrics.HTTPMetrics) *gin.Engine {
	if !obsCfg.Debug() {
		gin.SetMode(gin.ReleaseMode)
	}
	return NewEngine(obsCfg, httpMetrics)
}

func run(lc fx.Lifecycle, cfg config.Config, r *gin.Engine, log *zap.Logger) {
	addr := strings.TrimSpace(cfg.HTTPAddr)
	if addr == "" {
		addr = ":8080"
	}
	srv := &http.Server{
		Addr:              addr,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			go func() {
				log.Info("http server listening", zap.String("addr", addr))
				if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
					panic(err)
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			shutdownCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		},
	})
}

type Server struct {
	engine          *gin.Engine
	cfg             config.Config
	log             *zap.Logger
	authzSvc        authorization.Service
	catalogSvc      catalogdomain.Service
	inventorySvc    inventorydomain.Service
	cartSvc         cartdomain.Service
	checkoutSvc     checkoutdomain.Service
	orderSvc        orderdomain.Service
	paymentSvc      paymentdomain.Service
	retrySvc        fulfillmentdomain.RetryService
	notifier        *notification.Service
	checkoutLimiter *ratelimit.CheckoutLimiter
}

type ServerParams struct {
	fx.In

	Gin             *gin.Engine
	Cfg             config.Config
	Log             *zap.Logger
	AuthzSvc        authorization.Service
	CatalogSvc      catalogdomain.Service
	InventorySvc    inventorydomain.Service
	CartSvc         cartdomain.Service
	CheckoutSvc     checkoutdomain.Service
	OrderSvc        orderdomain.Service
	PaymentSvc      paymentdomain.Service
	RetrySvc        fulfillmentdomain.RetryService
	Notifier        *notification.Service
	CheckoutLimiter *ratelimit.CheckoutLimiter `optional:"true"`
}

func NewServer(p ServerParams) *Server {
	svc := &Server{
		engine:          p.Gin,
		cfg:             p.Cfg,
		log:             p.Log.Named("http.server"),
		authzSvc:        p.AuthzSvc,
		catalogSvc:      p.CatalogSvc,
		inventorySvc:    p.InventorySvc,
		cartSvc:         p.CartSvc,
		checkoutSvc:     p.CheckoutSvc,
		orderSvc:        p.OrderSvc,
		paymentSvc:      p.PaymentSvc,
		retrySvc:        p.RetrySvc,
		notifier:        p.Notifier,
		checkoutLimiter: p.CheckoutLimiter,
	}

	svc.registerAPIRoutes()
	svc.registerAdminRoutes()

	return svc
}

func (s *Server) Engine() *gin.Engine {
	return s.engine
}

func (s *Server) registerAPIRoutes() {
	api := s.engine.Group("/api")

	api.POST("/checkout/sessions", s.CheckoutRateLimit(), s.CreateCheckoutSession)

	api.GET("/carts/:id", s.GetCart)
	api.POST("/carts/:id/items", s.AddCartItem)

	api.GET("/orders/:session_id", s.GetOrder)

	api.POST("/payments/webhooks/:provider", s.HandlePaymentWebhook)
}

func (s *Server) registerAdminRoutes() {
	admin := s.engine.Group("/admin")
	admin.Use(s.AdminKeyRequired())

	inventory := admin.Group("/inventory")
	inventory.GET("", s.authorizeAdmin(authorization.ObjectInventory, authorization.ActionView), s.ListInventory)
	inventory.GET("/:product_id/:variant_id", s.authorizeAdmin(authorization.ObjectInventory, authorization.ActionView), s.GetInventoryRow)
	inventory.PUT("/:product_id/:variant_id/quantity", s.authorizeAdmin(authorization.ObjectInventory, authorization.ActionAdjust), s.SetInventoryQuantity)
	inventory.POST("/:product_id/:variant_id/adjustments", s.authorizeAdmin(authorization.ObjectInventory, authorization.ActionAdjust), s.AdjustInventory)
	inventory.GET("/:product_id/:variant_id/history", s.authorizeAdmin(authorization.ObjectInventory, authorization.ActionView), s.InventoryHistory)
	inventory.GET("/:product_id/:variant_id/verify", s.authorizeAdmin(authorization.ObjectInventory, authorization.ActionView), s.VerifyInventoryRow)
	inventory.DELETE("/:product_id/:variant_id", s.authorizeAdmin(authorization.ObjectInventory, authorization.ActionAdjust), s.RemoveInventoryRow)

	products := admin.Group("/products")
	products.POST("", s.authorizeAdmin(authorization.ObjectProduct, authorization.ActionManage), s.CreateProduct)
	products.GET("/:product_id", s.authorizeAdmin(authorization.ObjectProduct, authorization.ActionManage), s.GetProduct)
	products.POST("/:product_id/variants", s.authorizeAdmin(authorization.ObjectProduct, authorization.ActionManage), s.AddVariant)

	admin.GET("/orders/:session_id", s.authorizeAdmin(authorization.ObjectOrder, authorization.ActionView), s.GetOrder)
	admin.GET("/orders/:session_id/packing-slip", s.authorizeAdmin(authorization.ObjectOrder, authorization.ActionView), s.GetPackingSlip)

	admin.GET("/fulfillment/retries", s.authorizeAdmin(authorization.ObjectFulfillment, authorization.ActionView), s.ListFulfillmentRetries)
}
