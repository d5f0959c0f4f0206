// Package server wires the HTTP surface: generation, billing, admin and
// webhook routes.
package server

import (
	"context"
	"net/http"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/cluo0901/roomgpt/internal/auth"
	billingdomain "github.com/cluo0901/roomgpt/internal/billing/domain"
	checkoutdomain "github.com/cluo0901/roomgpt/internal/checkout/domain"
	"github.com/cluo0901/roomgpt/internal/config"
	"github.com/cluo0901/roomgpt/internal/generation"
	"github.com/cluo0901/roomgpt/internal/observability"
	obslogger "github.com/cluo0901/roomgpt/internal/observability/logger"
	obsmetrics "github.com/cluo0901/roomgpt/internal/observability/metrics"
	obstracing "github.com/cluo0901/roomgpt/internal/observability/tracing"
	paymentdomain "github.com/cluo0901/roomgpt/internal/payment/domain"
	"github.com/cluo0901/roomgpt/internal/ratelimit"
	userdomain "github.com/cluo0901/roomgpt/internal/user/domain"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

var Module = fx.Module("http.server",
	fx.Provide(registerGin),
	fx.Invoke(NewServer),
	fx.Invoke(run),
)

// NewEngine builds the gin engine with the shared middleware chain.
func NewEngine(obsCfg observability.Config, httpMetrics *obsmetrics.HTTPMetrics) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(obslogger.GinMiddleware(obslogger.MiddlewareConfig{
		Debug:           obsCfg.Debug(),
		ErrorClassifier: classifyErrorForLog,
	}))
	r.Use(obstracing.GinMiddleware())
	r.Use(obsmetrics.GinMiddleware(httpMetrics))
	r.Use(ErrorHandlingMiddleware())

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	return r
}

func registerGin(obsCfg observability.Config, httpMetrics *obsmetrics.HTTPMetrics) *gin.Engine {
	return NewEngine(obsCfg, httpMetrics)
}

func run(lc fx.Lifecycle, r *gin.Engine, cfg config.Config, log *zap.Logger) {
	srv := &http.Server{
		Addr:    cfg.HTTPAddr,
		Handler: r,
	}

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			log.Info("http server listening", zap.String("addr", cfg.HTTPAddr))
			go func() {
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
	engine *gin.Engine
	cfg    config.Config
	db     *gorm.DB
	genID  *snowflake.Node

	verifier        *auth.Verifier
	userRepo        userdomain.Repository
	billingSvc      billingdomain.Service
	checkoutSvc     checkoutdomain.Service
	paymentSvc      paymentdomain.Service
	generationSvc   *generation.Client
	generateLimiter *ratelimit.GenerateLimiter
	metrics         *obsmetrics.Metrics
}

type ServerParams struct {
	fx.In

	Gin   *gin.Engine
	Cfg   config.Config
	DB    *gorm.DB
	GenID *snowflake.Node

	Verifier      *auth.Verifier
	UserRepo      userdomain.Repository
	BillingSvc    billingdomain.Service
	CheckoutSvc   checkoutdomain.Service
	PaymentSvc    paymentdomain.Service
	GenerationSvc *generation.Client

	GenerateLimiter *ratelimit.GenerateLimiter `optional:"true"`
	Metrics         *obsmetrics.Metrics        `optional:"true"`
}

func NewServer(p ServerParams) *Server {
	s := &Server{
		engine: p.Gin,
		cfg:    p.Cfg,
		db:     p.DB,
		genID:  p.GenID,

		verifier:        p.Verifier,
		userRepo:        p.UserRepo,
		billingSvc:      p.BillingSvc,
		checkoutSvc:     p.CheckoutSvc,
		paymentSvc:      p.PaymentSvc,
		generationSvc:   p.GenerationSvc,
		generateLimiter: p.GenerateLimiter,
		metrics:         p.Metrics,
	}

	s.registerRoutes()
	return s
}

func (s *Server) Engine() *gin.Engine {
	return s.engine
}

func (s *Server) registerRoutes() {
	s.engine.POST("/generate", s.RateLimitGenerate(), s.AuthRequired(), s.HandleGenerate)

	api := s.engine.Group("/api")

	billing := api.Group("/billing")
	billing.GET("/me", s.AuthRequired(), s.HandleBillingOverview)
	billing.POST("/checkout", s.AuthRequired(), s.HandleCheckout)
	billing.POST("/webhook", s.HandlePaymentWebhook)

	admin := api.Group("/admin", s.AuthRequired(), s.AdminRequired())
	admin.POST("/users", s.HandleAdminUsers)
}
