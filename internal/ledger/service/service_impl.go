// Package service orchestrates event application: normalize, validate against
// the catalog and sequence rules, then merge and commit under a per-key lock.
package service

import (
	"context"
	"errors"

	"github.com/bwmarrin/snowflake"
	"github.com/redis/go-redis/v9"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/smallbiznis/gastrack/internal/cache"
	catalogdomain "github.com/smallbiznis/gastrack/internal/catalog/domain"
	"github.com/smallbiznis/gastrack/internal/clock"
	"github.com/smallbiznis/gastrack/internal/ledger/domain"
	"github.com/smallbiznis/gastrack/internal/ledger/merge"
	"github.com/smallbiznis/gastrack/internal/ledger/normalizer"
	"github.com/smallbiznis/gastrack/internal/ledger/validator"
	"github.com/smallbiznis/gastrack/internal/observability/metrics"
	receivabledomain "github.com/smallbiznis/gastrack/internal/receivable/domain"
	shipmentdomain "github.com/smallbiznis/gastrack/internal/shipment/domain"
)

type Params struct {
	fx.In

	DB          *gorm.DB
	Repo        domain.Repository
	Shipments   shipmentdomain.Repository
	Receivables receivabledomain.Repository
	Catalog     catalogdomain.Service
	Resolver    cache.CatalogResolverCache
	Clock       clock.Clock
	Log         *zap.Logger
	Redis       *redis.Client    `optional:"true"`
	Metrics     *metrics.Metrics `optional:"true"`
}

type ledgerService struct {
	db          *gorm.DB
	repo        domain.Repository
	shipments   shipmentdomain.Repository
	receivables receivabledomain.Repository
	catalog     catalogdomain.Service
	resolver    cache.CatalogResolverCache
	clock       clock.Clock
	validate    *validator.Validator
	locks       *keyLock
	metrics     *metrics.Metrics
	log         *zap.Logger
}

func NewService(p Params) domain.Service {
	return &ledgerService{
		db:          p.DB,
		repo:        p.Repo,
		shipments:   p.Shipments,
		receivables: p.Receivables,
		catalog:     p.Catalog,
		resolver:    p.Resolver,
		clock:       p.Clock,
		validate:    validator.New(),
		locks:       newKeyLock(p.Redis),
		metrics:     p.Metrics,
		log:         p.Log.Named("ledger.service"),
	}
}

func (s *ledgerService) ApplyOnboarding(ctx context.Context, event domain.OnboardingEvent) (*domain.ApplyResult, error) {
	if event.TenantID == 0 {
		return nil, domain.ErrMissingTenant
	}
	delta := normalizer.Onboarding(event)
	return s.apply(ctx, delta, func(vctx validator.Context) ([]domain.Violation, error) {
		return s.validate.ValidateOnboarding(event, vctx)
	})
}

func (s *ledgerService) ApplySale(ctx context.Context, event domain.SalesEvent) (*domain.ApplyResult, error) {
	if event.TenantID == 0 {
		return nil, domain.ErrMissingTenant
	}
	delta := normalizer.Sale(event)
	return s.apply(ctx, delta, func(vctx validator.Context) ([]domain.Violation, error) {
		return s.validate.ValidateSale(event, vctx)
	})
}

func (s *ledgerService) ApplyShipment(ctx context.Context, event domain.ShipmentEvent) (*domain.ApplyResult, error) {
	if event.TenantID == 0 {
		return nil, domain.ErrMissingTenant
	}

	// The delta depends on the shipment's prior status, which is only known
	// inside the transaction. A placeholder delta carries the key for
	// locking; the real one is built by the commit hook.
	key := domain.Delta{
		EventID:        event.EventID,
		Kind:           domain.KindShipment,
		TenantID:       event.TenantID,
		Date:           domain.DateOnly(event.Date),
		ProductID:      event.ProductID,
		CylinderSizeID: event.CylinderSizeID,
	}

	return s.applyShipment(ctx, key, event)
}

// resolve loads catalog references for validation, going through the TTL
// resolver cache first. A missing reference comes back as a nil pointer for
// the validator to flag, not as an error.
func (s *ledgerService) resolve(ctx context.Context, tenantID, sizeID, productID snowflake.ID) (*catalogdomain.CylinderSize, *catalogdomain.Product, error) {
	size, ok := s.resolver.GetSize(tenantID.String(), sizeID.String())
	if !ok {
		found, err := s.catalog.GetCylinderSize(ctx, tenantID, sizeID)
		switch {
		case errors.Is(err, catalogdomain.ErrSizeNotFound):
		case err != nil:
			return nil, nil, err
		default:
			size = found
			s.resolver.SetSize(tenantID.String(), sizeID.String(), size)
		}
	}

	var product *catalogdomain.Product
	if productID != 0 {
		product, ok = s.resolver.GetProduct(tenantID.String(), productID.String())
		if !ok {
			found, err := s.catalog.GetProduct(ctx, tenantID, productID)
			switch {
			case errors.Is(err, catalogdomain.ErrProductNotFound):
			case err != nil:
				return nil, nil, err
			default:
				product = found
				s.resolver.SetProduct(tenantID.String(), productID.String(), product)
			}
		}
	}

	return size, product, nil
}

func (s *ledgerService) resolveDriver(ctx context.Context, tenantID, driverID snowflake.ID) (*catalogdomain.Driver, error) {
	driver, ok := s.resolver.GetDriver(tenantID.String(), driverID.String())
	if ok {
		return driver, nil
	}
	found, err := s.catalog.GetDriver(ctx, tenantID, driverID)
	switch {
	case errors.Is(err, catalogdomain.ErrDriverNotFound):
		return nil, nil
	case err != nil:
		return nil, err
	}
	s.resolver.SetDriver(tenantID.String(), driverID.String(), found)
	return found, nil
}

type validateFn func(vctx validator.Context) ([]domain.Violation, error)

func (s *ledgerService) apply(ctx context.Context, delta domain.Delta, validate validateFn) (*domain.ApplyResult, error) {
	size, product, err := s.resolve(ctx, delta.TenantID, delta.CylinderSizeID, delta.ProductID)
	if err != nil {
		return nil, err
	}
	var driver *catalogdomain.Driver
	if delta.DriverID != 0 {
		if driver, err = s.resolveDriver(ctx, delta.TenantID, delta.DriverID); err != nil {
			return nil, err
		}
	}

	release, err := s.locks.Acquire(ctx, delta.Key())
	if err != nil {
		return nil, err
	}
	defer release()

	var result domain.ApplyResult
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		hasOnboarding, err := s.repo.HasOnboarding(ctx, tx, delta.TenantID, delta.CylinderSizeID)
		if err != nil {
			return err
		}
		hasPrior, err := s.repo.HasAnyEvents(ctx, tx, delta.TenantID, delta.CylinderSizeID)
		if err != nil {
			return err
		}

		violations, err := validate(validator.Context{
			Size:           size,
			Product:        product,
			Driver:         driver,
			HasOnboarding:  hasOnboarding,
			HasPriorEvents: hasPrior,
			Now:            s.clock.Now(),
		})
		if err != nil {
			return err
		}
		if len(violations) > 0 {
			result = domain.ApplyResult{Status: domain.ApplyStatusRejected, Violations: violations}
			return nil
		}

		fresh, err := s.repo.MarkProcessed(ctx, tx, domain.ProcessedEvent{
			TenantID:       delta.TenantID,
			Date:           delta.Date,
			ProductID:      delta.ProductID,
			CylinderSizeID: delta.CylinderSizeID,
			EventID:        delta.EventID,
		})
		if err != nil {
			return err
		}
		if !fresh {
			result = domain.ApplyResult{Status: domain.ApplyStatusDeduplicated}
			return nil
		}

		existing, err := s.repo.FindDay(ctx, tx, delta.Key())
		if err != nil {
			return err
		}
		day, fault := merge.Merge(existing, delta)
		if err := s.repo.SaveDay(ctx, tx, day); err != nil {
			return err
		}
		if fault != nil {
			s.log.Warn("balance identity broken after merge",
				zap.Int64("tenant_id", int64(delta.TenantID)),
				zap.Time("date", delta.Date),
				zap.Error(fault))
		}

		if err := s.appendReceivable(ctx, tx, delta); err != nil {
			return err
		}

		result = domain.ApplyResult{
			Status:       domain.ApplyStatusApplied,
			BalanceFault: fault,
			Day:          day,
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.record(ctx, delta.Kind, &result)
	return &result, nil
}

// applyShipment is the shipment-specific variant: the prior shipment status
// is read inside the transaction so the normalizer can tell a completion
// re-delivery from a first delivery, and the lifecycle record is upserted in
// the same commit.
func (s *ledgerService) applyShipment(ctx context.Context, key domain.Delta, event domain.ShipmentEvent) (*domain.ApplyResult, error) {
	size, product, err := s.resolve(ctx, key.TenantID, key.CylinderSizeID, key.ProductID)
	if err != nil {
		return nil, err
	}

	release, err := s.locks.Acquire(ctx, key.Key())
	if err != nil {
		return nil, err
	}
	defer release()

	var result domain.ApplyResult
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		hasOnboarding, err := s.repo.HasOnboarding(ctx, tx, key.TenantID, key.CylinderSizeID)
		if err != nil {
			return err
		}
		hasPrior, err := s.repo.HasAnyEvents(ctx, tx, key.TenantID, key.CylinderSizeID)
		if err != nil {
			return err
		}

		violations, err := s.validate.ValidateShipment(event, validator.Context{
			Size:           size,
			Product:        product,
			HasOnboarding:  hasOnboarding,
			HasPriorEvents: hasPrior,
			Now:            s.clock.Now(),
		})
		if err != nil {
			return err
		}
		if len(violations) > 0 {
			result = domain.ApplyResult{Status: domain.ApplyStatusRejected, Violations: violations}
			return nil
		}

		fresh, err := s.repo.MarkProcessed(ctx, tx, domain.ProcessedEvent{
			TenantID:       key.TenantID,
			Date:           key.Date,
			ProductID:      key.ProductID,
			CylinderSizeID: key.CylinderSizeID,
			EventID:        key.EventID,
		})
		if err != nil {
			return err
		}
		if !fresh {
			result = domain.ApplyResult{Status: domain.ApplyStatusDeduplicated}
			return nil
		}

		record, err := s.shipments.FindByShipmentID(ctx, tx, event.TenantID, event.ShipmentID)
		if err != nil {
			return err
		}
		var prior *domain.ShipmentStatus
		if record != nil {
			status := record.Status
			prior = &status
		}

		delta := normalizer.Shipment(event, prior)

		existing, err := s.repo.FindDay(ctx, tx, delta.Key())
		if err != nil {
			return err
		}
		day, fault := merge.Merge(existing, delta)
		if err := s.repo.SaveDay(ctx, tx, day); err != nil {
			return err
		}

		if err := s.shipments.Save(ctx, tx, shipmentRecord(record, event)); err != nil {
			return err
		}

		result = domain.ApplyResult{
			Status:       domain.ApplyStatusApplied,
			BalanceFault: fault,
			Day:          day,
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.record(ctx, domain.KindShipment, &result)
	return &result, nil
}

func (s *ledgerService) record(ctx context.Context, kind domain.EventKind, result *domain.ApplyResult) {
	s.metrics.RecordEvent(ctx, string(kind), string(result.Status))
	if result.BalanceFault != nil {
		s.metrics.RecordBalanceFault(ctx)
	}
}

// shipmentRecord folds the event into the stored lifecycle record. Terminal
// timestamps stick once set.
func shipmentRecord(record *shipmentdomain.ShipmentRecord, event domain.ShipmentEvent) *shipmentdomain.ShipmentRecord {
	if record == nil {
		record = &shipmentdomain.ShipmentRecord{
			ShipmentID:       event.ShipmentID,
			TenantID:         event.TenantID,
			Date:             domain.DateOnly(event.Date),
			ProductID:        event.ProductID,
			CylinderSizeID:   event.CylinderSizeID,
			Direction:        event.Direction,
			Quantity:         event.Quantity,
			Cost:             event.Cost,
			IsRefillPurchase: event.IsRefillPurchase,
		}
	}
	record.Status = event.Status
	switch event.Status {
	case domain.ShipmentStatusCompleted:
		if record.CompletedAt == nil {
			completedAt := event.Date
			if event.CompletedAt != nil {
				completedAt = *event.CompletedAt
			}
			record.CompletedAt = &completedAt
		}
	case domain.ShipmentStatusCancelled:
		if record.CancelledAt == nil {
			cancelledAt := event.Date
			if event.CancelledAt != nil {
				cancelledAt = *event.CancelledAt
			}
			record.CancelledAt = &cancelledAt
		}
	}
	return record
}

// appendReceivable forwards the sale's driver side-channel to the receivable
// store. Only refill sales with an attributed driver move receivables.
func (s *ledgerService) appendReceivable(ctx context.Context, tx *gorm.DB, delta domain.Delta) error {
	if delta.Kind != domain.KindSale || delta.DriverID == 0 {
		return nil
	}
	if delta.RefillQtySold == 0 && delta.CylindersDeposited == 0 &&
		delta.Revenue.IsZero() && delta.CashDeposited.IsZero() {
		return nil
	}
	return s.receivables.Append(ctx, tx, receivabledomain.DriverDay{
		TenantID:           delta.TenantID,
		DriverID:           delta.DriverID,
		CylinderSizeID:     delta.CylinderSizeID,
		Date:               delta.Date,
		RefillQtySold:      delta.RefillQtySold,
		CylindersDeposited: delta.CylindersDeposited,
		Revenue:            delta.Revenue,
		CashDeposited:      delta.CashDeposited,
	})
}
