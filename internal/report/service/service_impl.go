// Package service rebuilds the reconciled daily views. Carry-forward runs
// per cylinder size and never proportionally across sizes: a 12kg shortfall
// must not bleed into the 50kg books.
package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/smallbiznis/gastrack/internal/cache"
	catalogdomain "github.com/smallbiznis/gastrack/internal/catalog/domain"
	ledgerdomain "github.com/smallbiznis/gastrack/internal/ledger/domain"
	receivabledomain "github.com/smallbiznis/gastrack/internal/receivable/domain"
	"github.com/smallbiznis/gastrack/internal/report/domain"
	shipmentdomain "github.com/smallbiznis/gastrack/internal/shipment/domain"
)

type Params struct {
	fx.In

	DB          *gorm.DB
	Ledger      ledgerdomain.Repository
	Shipments   shipmentdomain.Service
	Receivables receivabledomain.Service
	Catalog     catalogdomain.Service
	Reports     cache.ReportCache
	Log         *zap.Logger
}

type reportService struct {
	db          *gorm.DB
	ledger      ledgerdomain.Repository
	shipments   shipmentdomain.Service
	receivables receivabledomain.Service
	catalog     catalogdomain.Service
	reports     cache.ReportCache
	log         *zap.Logger
}

func NewService(p Params) domain.Service {
	return &reportService{
		db:          p.DB,
		ledger:      p.Ledger,
		shipments:   p.Shipments,
		receivables: p.Receivables,
		catalog:     p.Catalog,
		reports:     p.Reports,
		log:         p.Log.Named("report.service"),
	}
}

// position is the carried start-of-day stock for one size.
type position struct {
	full  int64
	empty int64
}

func (s *reportService) RecomputeSize(ctx context.Context, tenantID, sizeID snowflake.ID, from, to time.Time) (*domain.RangeReport, error) {
	from = ledgerdomain.DateOnly(from)
	to = ledgerdomain.DateOnly(to)
	if to.Before(from) {
		return nil, domain.ErrInvalidRange
	}

	baseline, err := s.ledger.OnboardingBaseline(ctx, s.db, tenantID, sizeID)
	if err != nil {
		return nil, err
	}
	if baseline == nil {
		return nil, domain.ErrNoBaseline
	}
	onboarded := ledgerdomain.DateOnly(*baseline.OnboardedAt)
	if to.Before(onboarded) {
		return nil, domain.ErrInvalidRange
	}
	if from.Before(onboarded) {
		from = onboarded
	}

	// The chain needs the previous day's closing position. When the day
	// before the range has no aggregate row the whole chain is replayed
	// from the onboarding date; replay is cheap relative to being wrong.
	start := from
	var prev position
	if from.After(onboarded) {
		prevDay, err := s.ledger.FindAggregateDay(ctx, s.db, tenantID, sizeID, from.AddDate(0, 0, -1))
		if err != nil {
			return nil, err
		}
		if prevDay != nil && hasClosingPosition(prevDay) {
			prev = position{full: prevDay.FullCylinders, empty: prevDay.EmptyCylinders}
		} else {
			// An aggregate row can exist before any recompute has run:
			// onboarding writes one to hold the baseline columns. Its
			// derived balances are still zero and must not seed the
			// chain, so replay from onboarding instead.
			start = onboarded
		}
	}
	if start.Equal(onboarded) {
		prev = position{full: baseline.FullQty, empty: baseline.EmptyQty}
	}

	flowsByDay, err := s.flows(ctx, tenantID, sizeID, start, to)
	if err != nil {
		return nil, err
	}

	report := &domain.RangeReport{
		TenantID:       tenantID,
		CylinderSizeID: sizeID,
		From:           from,
		To:             to,
	}

	for day := start; !day.After(to); day = day.AddDate(0, 0, 1) {
		sizeDay, next, err := s.recomputeDay(ctx, tenantID, sizeID, day, prev, baseline, flowsByDay[day])
		if err != nil {
			return nil, err
		}
		prev = next
		if !day.Before(from) {
			report.Days = append(report.Days, *sizeDay)
		}
		// A rewritten aggregate row makes any cached daily view stale.
		s.reports.Delete(ctx, fmt.Sprintf("daily:%d:%s", tenantID, day.Format(time.DateOnly)))
	}

	return report, nil
}

// hasClosingPosition reports whether an aggregate row carries recomputed
// balances, as opposed to the zeroed sentinel row onboarding leaves behind.
func hasClosingPosition(row *ledgerdomain.LedgerDay) bool {
	return row.FullCylinders != 0 || row.EmptyCylinders != 0 || row.TotalCylinders != 0
}

func (s *reportService) flows(ctx context.Context, tenantID, sizeID snowflake.ID, from, to time.Time) (map[time.Time]ledgerdomain.DayFlows, error) {
	rows, err := s.ledger.SizeFlowsByDay(ctx, s.db, tenantID, sizeID, from, to)
	if err != nil {
		return nil, err
	}
	byDay := make(map[time.Time]ledgerdomain.DayFlows, len(rows))
	for _, row := range rows {
		byDay[ledgerdomain.DateOnly(row.Date)] = row
	}
	return byDay, nil
}

// recomputeDay derives one day's closing position from the carried one, and
// persists it as the size's aggregate row. Negative intermediate stock is
// clamped to zero and reported; the raw figure survives in the diagnostic.
func (s *reportService) recomputeDay(ctx context.Context, tenantID, sizeID snowflake.ID, day time.Time, prev position, baseline *ledgerdomain.Baseline, f ledgerdomain.DayFlows) (*domain.SizeDay, position, error) {
	var diagnostics []domain.Diagnostic

	// Full stock only grows when cylinders physically arrive: package
	// purchases and completed refill deliveries. A pending refill purchase
	// is tracked as outstanding, never as stock.
	totalSales := f.PackageSalesQty + f.RefillSalesQty
	rawFull := prev.full + f.PackagePurchaseQty + f.RefillReceivedQty - totalSales
	full := rawFull
	if full < 0 {
		diagnostics = append(diagnostics, domain.Diagnostic{
			Field:   "full_cylinders",
			Raw:     rawFull,
			Clamped: 0,
			Message: "sold more full cylinders than the books held",
		})
		full = 0
	}

	// Empties leave with the refill purchase at creation, whatever its
	// status; the exchange already happened.
	emptyBuySell := f.IncomingEmptyQty - f.OutgoingEmptyQty
	rawEmpty := prev.empty + f.RefillSalesQty + emptyBuySell - f.RefillPurchaseQty
	empty := rawEmpty
	if empty < 0 {
		diagnostics = append(diagnostics, domain.Diagnostic{
			Field:   "empty_cylinders",
			Raw:     rawEmpty,
			Clamped: 0,
			Message: "exchanged more empties than the books held",
		})
		empty = 0
	}

	outstanding, err := s.shipments.OutstandingRefillQtyAsOf(ctx, tenantID, sizeID, day)
	if err != nil {
		diagnostics = append(diagnostics, domain.Diagnostic{
			Field:   "outstanding_refill_qty",
			Message: fmt.Sprintf("outstanding shipments unavailable: %v", err),
		})
		outstanding = 0
	}

	receivables, err := s.receivables.TotalEmptyReceivablesAsOf(ctx, tenantID, sizeID, day)
	if err != nil {
		diagnostics = append(diagnostics, domain.Diagnostic{
			Field:   "empty_cylinder_receivables",
			Message: fmt.Sprintf("driver receivables unavailable: %v", err),
		})
		receivables = 0
	}
	cashReceivables, err := s.receivables.TotalCashReceivablesAsOf(ctx, tenantID, sizeID, day)
	if err != nil {
		diagnostics = append(diagnostics, domain.Diagnostic{
			Field:   "total_cash_receivables",
			Message: fmt.Sprintf("cash receivables unavailable: %v", err),
		})
		cashReceivables = decimal.Zero
	}

	// Receivables owed at onboarding sit outside the driver ledger and
	// never decay; they stack on top of the folded driver balances.
	receivables += baseline.ReceivableQty
	cashReceivables = cashReceivables.Add(baseline.CashReceivable)

	rawEmptyInStock := empty - receivables
	emptyInStock := rawEmptyInStock
	if emptyInStock < 0 {
		diagnostics = append(diagnostics, domain.Diagnostic{
			Field:   "empty_in_stock",
			Raw:     rawEmptyInStock,
			Clamped: 0,
			Message: "drivers owe more empties than exist on the books",
		})
		emptyInStock = 0
	}

	sizeDay := &domain.SizeDay{
		Date:                     day,
		CylinderSizeID:           sizeID,
		FullCylinders:            full,
		EmptyCylinders:           empty,
		OutstandingRefillQty:     outstanding,
		TotalCylinders:           full + empty + outstanding,
		EmptyCylinderReceivables: receivables,
		EmptyInStock:             emptyInStock,
		PackageSalesQty:          f.PackageSalesQty,
		RefillSalesQty:           f.RefillSalesQty,
		PackageSalesRevenue:      f.PackageSalesRevenue,
		RefillSalesRevenue:       f.RefillSalesRevenue,
		TotalCashReceivables:     cashReceivables,
		Status:                   domain.DayStatusOK,
		Diagnostics:              diagnostics,
	}
	if len(diagnostics) > 0 {
		sizeDay.Status = domain.DayStatusDegraded
	}

	if err := s.persistAggregate(ctx, tenantID, sizeID, day, sizeDay, f); err != nil {
		return nil, position{}, err
	}

	return sizeDay, position{full: full, empty: empty}, nil
}

// persistAggregate writes the size's sentinel aggregate row for the day,
// preserving any onboarding columns already on it.
func (s *reportService) persistAggregate(ctx context.Context, tenantID, sizeID snowflake.ID, day time.Time, sd *domain.SizeDay, f ledgerdomain.DayFlows) error {
	row, err := s.ledger.FindAggregateDay(ctx, s.db, tenantID, sizeID, day)
	if err != nil {
		return err
	}
	if row == nil {
		row = &ledgerdomain.LedgerDay{
			TenantID:       tenantID,
			Date:           day,
			ProductID:      ledgerdomain.AggregateProductID,
			CylinderSizeID: sizeID,
		}
	}

	row.PackageSalesQty = f.PackageSalesQty
	row.RefillSalesQty = f.RefillSalesQty
	row.PackageSalesRevenue = f.PackageSalesRevenue
	row.RefillSalesRevenue = f.RefillSalesRevenue
	row.PackagePurchaseQty = f.PackagePurchaseQty
	row.RefillPurchaseQty = f.RefillPurchaseQty
	row.RefillReceivedQty = f.RefillReceivedQty
	row.IncomingEmptyQty = f.IncomingEmptyQty
	row.OutgoingEmptyQty = f.OutgoingEmptyQty

	row.FullCylinders = sd.FullCylinders
	row.EmptyCylinders = sd.EmptyCylinders
	row.TotalCylinders = sd.TotalCylinders
	row.EmptyCylinderReceivables = sd.EmptyCylinderReceivables
	row.TotalCylinderReceivables = sd.EmptyCylinderReceivables + sd.OutstandingRefillQty
	row.TotalCashReceivables = sd.TotalCashReceivables

	return s.ledger.SaveDay(ctx, s.db, row)
}

func (s *reportService) RecomputeTenant(ctx context.Context, tenantID snowflake.ID, from, to time.Time) error {
	sizes, err := s.catalog.ListActiveCylinderSizes(ctx, tenantID)
	if err != nil {
		return err
	}

	var (
		wg   sync.WaitGroup
		mu   sync.Mutex
		errs []error
	)
	for _, size := range sizes {
		wg.Add(1)
		go func(size catalogdomain.CylinderSize) {
			defer wg.Done()
			if _, err := s.RecomputeSize(ctx, tenantID, size.ID, from, to); err != nil {
				if errors.Is(err, domain.ErrNoBaseline) {
					return
				}
				s.log.Error("size recompute failed",
					zap.Int64("tenant_id", int64(tenantID)),
					zap.Int64("cylinder_size_id", int64(size.ID)),
					zap.Error(err))
				mu.Lock()
				errs = append(errs, fmt.Errorf("size %d: %w", size.ID, err))
				mu.Unlock()
			}
		}(size)
	}
	wg.Wait()

	return errors.Join(errs...)
}

func (s *reportService) DailyReport(ctx context.Context, tenantID snowflake.ID, date time.Time) (*domain.DailyReport, error) {
	date = ledgerdomain.DateOnly(date)
	key := fmt.Sprintf("daily:%d:%s", tenantID, date.Format(time.DateOnly))
	if payload, ok := s.reports.Get(ctx, key); ok {
		var cached domain.DailyReport
		if err := json.Unmarshal(payload, &cached); err == nil {
			return &cached, nil
		}
	}

	sizes, err := s.catalog.ListActiveCylinderSizes(ctx, tenantID)
	if err != nil {
		return nil, err
	}

	daily := &domain.DailyReport{
		TenantID: tenantID,
		Date:     date,
		Status:   domain.DayStatusOK,
	}
	for _, size := range sizes {
		row, err := s.ledger.FindAggregateDay(ctx, s.db, tenantID, size.ID, date)
		if err != nil {
			return nil, err
		}
		breakdown := domain.SizeBreakdown{CylinderSizeID: size.ID, SizeCode: size.Code}
		if row == nil {
			breakdown.Day = domain.SizeDay{
				Date:           date,
				CylinderSizeID: size.ID,
				Status:         domain.DayStatusFailed,
			}
			daily.Status = domain.DayStatusFailed
		} else {
			breakdown.Day = sizeDayFromRow(row)
		}
		daily.Breakdown = append(daily.Breakdown, breakdown)
	}

	if payload, err := json.Marshal(daily); err == nil {
		s.reports.Set(ctx, key, payload)
	}
	return daily, nil
}

func (s *reportService) RangeReport(ctx context.Context, tenantID, sizeID snowflake.ID, from, to time.Time) (*domain.RangeReport, error) {
	from = ledgerdomain.DateOnly(from)
	to = ledgerdomain.DateOnly(to)
	if to.Before(from) {
		return nil, domain.ErrInvalidRange
	}

	key := fmt.Sprintf("range:%d:%d:%s:%s",
		tenantID, sizeID, from.Format(time.DateOnly), to.Format(time.DateOnly))
	if payload, ok := s.reports.Get(ctx, key); ok {
		var cached domain.RangeReport
		if err := json.Unmarshal(payload, &cached); err == nil {
			return &cached, nil
		}
	}

	report := &domain.RangeReport{
		TenantID:       tenantID,
		CylinderSizeID: sizeID,
		From:           from,
		To:             to,
	}
	for day := from; !day.After(to); day = day.AddDate(0, 0, 1) {
		row, err := s.ledger.FindAggregateDay(ctx, s.db, tenantID, sizeID, day)
		if err != nil {
			return nil, err
		}
		if row == nil {
			report.Days = append(report.Days, domain.SizeDay{
				Date:           day,
				CylinderSizeID: sizeID,
				Status:         domain.DayStatusFailed,
			})
			continue
		}
		report.Days = append(report.Days, sizeDayFromRow(row))
	}

	if payload, err := json.Marshal(report); err == nil {
		s.reports.Set(ctx, key, payload)
	}
	return report, nil
}

// sizeDayFromRow rebuilds the report view from a persisted aggregate row.
// Diagnostics are not persisted, so read-path days report OK.
func sizeDayFromRow(row *ledgerdomain.LedgerDay) domain.SizeDay {
	outstanding := row.TotalCylinders - row.FullCylinders - row.EmptyCylinders
	if outstanding < 0 {
		outstanding = 0
	}
	emptyInStock := row.EmptyCylinders - row.EmptyCylinderReceivables
	if emptyInStock < 0 {
		emptyInStock = 0
	}
	return domain.SizeDay{
		Date:                     ledgerdomain.DateOnly(row.Date),
		CylinderSizeID:           row.CylinderSizeID,
		FullCylinders:            row.FullCylinders,
		EmptyCylinders:           row.EmptyCylinders,
		OutstandingRefillQty:     outstanding,
		TotalCylinders:           row.TotalCylinders,
		EmptyCylinderReceivables: row.EmptyCylinderReceivables,
		EmptyInStock:             emptyInStock,
		PackageSalesQty:          row.PackageSalesQty,
		RefillSalesQty:           row.RefillSalesQty,
		PackageSalesRevenue:      row.PackageSalesRevenue,
		RefillSalesRevenue:       row.RefillSalesRevenue,
		TotalCashReceivables:     row.TotalCashReceivables,
		Status:                   domain.DayStatusOK,
	}
}
