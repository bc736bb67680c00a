package report

import (
	"context"

	"go.uber.org/fx"

	"github.com/smallbiznis/gastrack/internal/config"
	"github.com/smallbiznis/gastrack/internal/report/service"
	"github.com/smallbiznis/gastrack/internal/report/worker"
)

var Module = fx.Module("report",
	fx.Provide(
		service.NewService,
		worker.NewWorker,
	),
	fx.Invoke(runWorker),
)

func runWorker(lc fx.Lifecycle, cfg config.Config, w *worker.Worker) {
	if !cfg.Recompute.Enabled {
		return
	}

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			ctx, cancel := context.WithCancel(context.Background())

			go w.RunForever(ctx)

			lc.Append(fx.Hook{
				OnStop: func(context.Context) error {
					cancel()
					return nil
				},
			})

			return nil
		},
	})
}
