package main

import (
	"github.com/bwmarrin/snowflake"
	"go.uber.org/fx"

	"github.com/smallbiznis/gastrack/internal/cache"
	"github.com/smallbiznis/gastrack/internal/catalog"
	"github.com/smallbiznis/gastrack/internal/clock"
	"github.com/smallbiznis/gastrack/internal/config"
	"github.com/smallbiznis/gastrack/internal/ledger"
	"github.com/smallbiznis/gastrack/internal/logger"
	"github.com/smallbiznis/gastrack/internal/migration"
	"github.com/smallbiznis/gastrack/internal/observability"
	"github.com/smallbiznis/gastrack/internal/receivable"
	"github.com/smallbiznis/gastrack/internal/report"
	"github.com/smallbiznis/gastrack/internal/server"
	"github.com/smallbiznis/gastrack/internal/shipment"
	"github.com/smallbiznis/gastrack/pkg/db"
)

func main() {
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
		report.Module,

		server.Module,
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
