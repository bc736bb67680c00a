package ledger

import (
	"go.uber.org/fx"

	"github.com/smallbiznis/gastrack/internal/ledger/repository"
	"github.com/smallbiznis/gastrack/internal/ledger/service"
)

var Module = fx.Module("ledger",
	fx.Provide(
		repository.NewRepository,
		service.NewService,
	),
)
