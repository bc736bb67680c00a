// Package worker drives periodic recomputation. The apply path only books
// raw flows; this worker is what keeps the derived balances converging on
// the flows as events, corrections and late shipments land.
package worker

import (
	"context"
	"time"

	"go.uber.org/fx"
	"go.uber.org/zap"

	catalogdomain "github.com/smallbiznis/gastrack/internal/catalog/domain"
	"github.com/smallbiznis/gastrack/internal/clock"
	"github.com/smallbiznis/gastrack/internal/config"
	"github.com/smallbiznis/gastrack/internal/observability/metrics"
	reportdomain "github.com/smallbiznis/gastrack/internal/report/domain"
	"github.com/smallbiznis/gastrack/pkg/tenantctx"
)

type Params struct {
	fx.In

	Catalog catalogdomain.Service
	Reports reportdomain.Service
	Clock   clock.Clock
	Config  config.Config
	Log     *zap.Logger
	Metrics *metrics.Metrics `optional:"true"`
}

type Worker struct {
	catalog catalogdomain.Service
	reports reportdomain.Service
	clock   clock.Clock
	cfg     config.RecomputeConfig
	metrics *metrics.Metrics
	log     *zap.Logger
}

func NewWorker(p Params) *Worker {
	return &Worker{
		catalog: p.Catalog,
		reports: p.Reports,
		clock:   p.Clock,
		cfg:     p.Config.Recompute,
		metrics: p.Metrics,
		log:     p.Log.Named("report.recompute"),
	}
}

func (w *Worker) RunForever(ctx context.Context) {
	ticker := time.NewTicker(w.cfg.PollInterval)
	defer ticker.Stop()

	for {
		if err := w.RunOnce(ctx); err != nil {
			w.log.Warn("recompute run failed", zap.Error(err))
		}

		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

// RunOnce recomputes the lookback window for every active tenant. A tenant
// failing does not stop the sweep.
func (w *Worker) RunOnce(parentCtx context.Context) error {
	ctx, cancel := context.WithTimeout(parentCtx, w.cfg.RunTimeout)
	defer cancel()

	tenants, err := w.catalog.ListActiveTenants(ctx)
	if err != nil {
		return err
	}

	to := w.clock.Now()
	from := to.AddDate(0, 0, -w.cfg.LookbackDays)

	for _, tenant := range tenants {
		tenantCtx, cancel := context.WithTimeout(tenantctx.WithTenantID(ctx, tenant.ID), w.cfg.UnitTimeout)
		err := w.reports.RecomputeTenant(tenantCtx, tenant.ID, from, to)
		cancel()

		if err != nil {
			w.metrics.RecordRecomputeRun(ctx, "failed")
			w.log.Warn("tenant recompute failed",
				zap.Int64("tenant_id", int64(tenant.ID)),
				zap.Error(err))
			continue
		}
		w.metrics.RecordRecomputeRun(ctx, "ok")
	}

	return nil
}
