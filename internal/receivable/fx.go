package receivable

import (
	"go.uber.org/fx"

	"github.com/smallbiznis/gastrack/internal/receivable/repository"
	"github.com/smallbiznis/gastrack/internal/receivable/service"
)

var Module = fx.Module("receivable",
	fx.Provide(
		repository.NewRepository,
		service.NewService,
	),
)
