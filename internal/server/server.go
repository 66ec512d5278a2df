package server

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/smallbiznis/quotar/internal/config"
	customerdomain "github.com/smallbiznis/quotar/internal/customer/domain"
	dashboarddomain "github.com/smallbiznis/quotar/internal/dashboard/domain"
	"github.com/smallbiznis/quotar/internal/observability"
	obsmiddleware "github.com/smallbiznis/quotar/internal/observability/logger"
	obsmetrics "github.com/smallbiznis/quotar/internal/observability/metrics"
	obstracing "github.com/smallbiznis/quotar/internal/observability/tracing"
	quotationdomain "github.com/smallbiznis/quotar/internal/quotation/domain"
	"go.uber.org/fx"
	"gorm.io/gorm"
)

var Module = fx.Module("http.server",
	fx.Provide(NewEngine),
	fx.Provide(NewServer),
	fx.Invoke(registerRoutes),
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
	r.Use(obsmetrics.GinMiddleware(httpMetrics))
	r.Use(ErrorHandlingMiddleware())

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	return r
}

type Server struct {
	engine *gin.Engine
	cfg    config.Config
	db     *gorm.DB

	quotationSvc quotationdomain.Service
	customerSvc  customerdomain.Service
	dashboardSvc dashboarddomain.Service
}

type ServerParams struct {
	fx.In

	Gin          *gin.Engine
	Cfg          config.Config
	DB           *gorm.DB
	QuotationSvc quotationdomain.Service
	CustomerSvc  customerdomain.Service
	DashboardSvc dashboarddomain.Service
}

func NewServer(p ServerParams) *Server {
	return &Server{
		engine: p.Gin,
		cfg:    p.Cfg,
		db:     p.DB,

		quotationSvc: p.QuotationSvc,
		customerSvc:  p.CustomerSvc,
		dashboardSvc: p.DashboardSvc,
	}
}

func (s *Server) Engine() *gin.Engine {
	return s.engine
}

func registerRoutes(s *Server) {
	s.registerAPIRoutes()
}

func (s *Server) registerAPIRoutes() {
	api := s.engine.Group("/api")

	quotations := api.Group("/quotations")
	{
		quotations.POST("", s.CreateQuotation)
		quotations.GET("", s.ListQuotations)
		quotations.GET("/:id", s.GetQuotation)
		quotations.PUT("/:id", s.UpdateQuotation)
		quotations.DELETE("/:id", s.DeleteQuotation)
		quotations.POST("/:id/status", s.UpdateQuotationStatus)
		quotations.GET("/:id/pdf", s.DownloadQuotationPDF)
		quotations.POST("/:id/send", s.SendQuotation)
	}

	customers := api.Group("/customers")
	{
		customers.GET("", s.ListCustomers)
		customers.GET("/:id", s.GetCustomer)
	}

	api.GET("/dashboard", s.Dashboard)
}

func run(lc fx.Lifecycle, cfg config.Config, r *gin.Engine) {
	srv := &http.Server{
		Addr:    cfg.HTTPAddr,
		Handler: r,
	}

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
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
