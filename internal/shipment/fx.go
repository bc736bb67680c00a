package shipment

import (
	"go.uber.org/fx"

	"github.com/smallbiznis/gastrack/internal/shipment/repository"
	"github.com/smallbiznis/gastrack/internal/shipment/service"
)

var Module = fx.Module("shipment",
	fx.Provide(
		repository.NewRepository,
		service.NewService,
	),
)
