// Package server exposes the ops surface: health, prometheus metrics, and an
// on-demand recompute trigger. The ledger itself is driven by event
// application and the recompute worker, not by HTTP.
package server

import (
	"context"
	"net/http"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/smallbiznis/gastrack/internal/config"
	reportdomain "github.com/smallbiznis/gastrack/internal/report/domain"
	"github.com/smallbiznis/gastrack/pkg/tenantctx"
)

var Module = fx.Module("http.server",
	fx.Provide(NewEngine),
	fx.Invoke(registerRoutes),
	fx.Invoke(run),
)

func NewEngine(log *zap.Logger) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(requestLogger(log.Named("http")))
	return r
}

func registerRoutes(r *gin.Engine, db *gorm.DB, reports reportdomain.Service) {
	r.GET("/healthz", func(c *gin.Context) {
		sqlDB, err := db.DB()
		if err == nil {
			err = sqlDB.PingContext(c.Request.Context())
		}
		if err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "degraded", "error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	internal := r.Group("/internal", tenantFromHeader())
	internal.POST("/recompute", recomputeHandler(reports))
}

// tenantFromHeader puts the caller's tenant id on the request context so
// downstream layers see it the same way the worker path does.
func tenantFromHeader() gin.HandlerFunc {
	return func(c *gin.Context) {
		raw := c.GetHeader("X-Tenant-ID")
		if raw == "" {
			c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "missing X-Tenant-ID header"})
			return
		}
		id, err := snowflake.ParseString(raw)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "invalid X-Tenant-ID header"})
			return
		}
		c.Request = c.Request.WithContext(tenantctx.WithTenantID(c.Request.Context(), id))
		c.Next()
	}
}

// recomputeHandler rebuilds a tenant's reconciled views on demand, ahead of
// the worker's next pass. Useful after a backfill of historical events.
func recomputeHandler(reports reportdomain.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := c.Request.Context()
		tenantID, ok := tenantctx.TenantID(ctx)
		if !ok {
			c.JSON(http.StatusBadRequest, gin.H{"error": "missing tenant"})
			return
		}

		to := time.Now().UTC()
		from := to.AddDate(0, 0, -30)
		var err error
		if raw := c.Query("from"); raw != "" {
			if from, err = time.Parse(time.DateOnly, raw); err != nil {
				c.JSON(http.StatusBadRequest, gin.H{"error": "invalid from date"})
				return
			}
		}
		if raw := c.Query("to"); raw != "" {
			if to, err = time.Parse(time.DateOnly, raw); err != nil {
				c.JSON(http.StatusBadRequest, gin.H{"error": "invalid to date"})
				return
			}
		}

		if raw := c.Query("cylinder_size_id"); raw != "" {
			sizeID, err := snowflake.ParseString(raw)
			if err != nil {
				c.JSON(http.StatusBadRequest, gin.H{"error": "invalid cylinder_size_id"})
				return
			}
			report, err := reports.RecomputeSize(ctx, tenantID, sizeID, from, to)
			if err != nil {
				c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
				return
			}
			c.JSON(http.StatusOK, report)
			return
		}

		if err := reports.RecomputeTenant(ctx, tenantID, from, to); err != nil {
			c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	}
}

func requestLogger(log *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		log.Info("request",
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("latency", time.Since(start)),
		)
	}
}

func run(lc fx.Lifecycle, cfg config.Config, r *gin.Engine, log *zap.Logger) {
	srv := &http.Server{
		Addr:    cfg.HTTPAddr,
		Handler: r,
	}

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			go func() {
				if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
					log.Fatal("http server failed", zap.Error(err))
				}
			}()
			log.Info("http server listening", zap.String("addr", cfg.HTTPAddr))
			return nil
		},
		OnStop: func(ctx context.Context) error {
			shutdownCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		},
	})
}
