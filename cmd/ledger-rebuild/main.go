// Command ledger-rebuild recomputes the reconciled daily balances for one
// tenant over a date range. Use it after bulk imports or manual corrections,
// when waiting for the background worker's next sweep is not an option.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/bwmarrin/snowflake"
	"go.uber.org/fx"
	"go.uber.org/zap"

	"github.com/smallbiznis/gastrack/internal/cache"
	"github.com/smallbiznis/gastrack/internal/catalog"
	"github.com/smallbiznis/gastrack/internal/clock"
	"github.com/smallbiznis/gastrack/internal/config"
	"github.com/smallbiznis/gastrack/internal/ledger"
	"github.com/smallbiznis/gastrack/internal/logger"
	"github.com/smallbiznis/gastrack/internal/migration"
	"github.com/smallbiznis/gastrack/internal/observability"
	"github.com/smallbiznis/gastrack/internal/receivable"
	reportdomain "github.com/smallbiznis/gastrack/internal/report/domain"
	reportservice "github.com/smallbiznis/gastrack/internal/report/service"
	"github.com/smallbiznis/gastrack/internal/shipment"
	"github.com/smallbiznis/gastrack/pkg/db"
)

func main() {
	tenantFlag := flag.Int64("tenant", 0, "Required: tenant id")
	sizeFlag := flag.Int64("size", 0, "Optional: cylinder size id; all active sizes when omitted")
	fromFlag := flag.String("from", "", "Rebuild from date (YYYY-MM-DD); defaults to 30 days back")
	toFlag := flag.String("to", "", "Rebuild through date (YYYY-MM-DD); defaults to today")
	flag.Parse()

	if *tenantFlag == 0 {
		fmt.Fprintln(os.Stderr, "--tenant is required")
		os.Exit(1)
	}

	to := time.Now().UTC()
	if *toFlag != "" {
		parsed, err := time.Parse(time.DateOnly, *toFlag)
		if err != nil {
			fmt.Fprintf(os.Stderr, "invalid to date: %v\n", err)
			os.Exit(1)
		}
		to = parsed
	}
	from := to.AddDate(0, 0, -30)
	if *fromFlag != "" {
		parsed, err := time.Parse(time.DateOnly, *fromFlag)
		if err != nil {
			fmt.Fprintf(os.Stderr, "invalid from date: %v\n", err)
			os.Exit(1)
		}
		from = parsed
	}

	tenantID := snowflake.ParseInt64(*tenantFlag)
	sizeID := snowflake.ParseInt64(*sizeFlag)

	app := fx.New(
		config.Module,
		logger.Module,
		observability.Module,
		fx.Provide(registerSnowflake),
		db.Module,
		clock.Module,
		cache.Module,
		migration.Module,

		catalog.Module,
		ledger.Module,
		shipment.Module,
		receivable.Module,
		fx.Provide(reportservice.NewService),

		fx.Invoke(func(lc fx.Lifecycle, reports reportdomain.Service, log *zap.Logger, shutdowner fx.Shutdowner) {
			lc.Append(fx.Hook{
				OnStart: func(context.Context) error {
					go func() {
						ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
						defer cancel()

						var err error
						if sizeID != 0 {
							_, err = reports.RecomputeSize(ctx, tenantID, sizeID, from, to)
						} else {
							err = reports.RecomputeTenant(ctx, tenantID, from, to)
						}
						if err != nil {
							log.Error("rebuild failed", zap.Error(err))
							_ = shutdowner.Shutdown(fx.ExitCode(1))
							return
						}
						log.Info("rebuild complete",
							zap.Int64("tenant_id", int64(tenantID)),
							zap.Time("from", from),
							zap.Time("to", to))
						_ = shutdowner.Shutdown()
					}()
					return nil
				},
			})
		}),
	)
	app.Run()
}

func registerSnowflake() *snowflake.Node {
	node, err := snowflake.NewNode(1)
	if err != nil {
		panic(err)
	}
	return node
}
