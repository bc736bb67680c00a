package service

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/glebarez/sqlite"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/smallbiznis/gastrack/internal/cache"
	catalogdomain "github.com/smallbiznis/gastrack/internal/catalog/domain"
	catalogservice "github.com/smallbiznis/gastrack/internal/catalog/service"
	"github.com/smallbiznis/gastrack/internal/clock"
	ledgerdomain "github.com/smallbiznis/gastrack/internal/ledger/domain"
	ledgerrepository "github.com/smallbiznis/gastrack/internal/ledger/repository"
	ledgerservice "github.com/smallbiznis/gastrack/internal/ledger/service"
	"github.com/smallbiznis/gastrack/internal/migration"
	receivablerepository "github.com/smallbiznis/gastrack/internal/receivable/repository"
	receivableservice "github.com/smallbiznis/gastrack/internal/receivable/service"
	"github.com/smallbiznis/gastrack/internal/report/domain"
	shipmentrepository "github.com/smallbiznis/gastrack/internal/shipment/repository"
	shipmentservice "github.com/smallbiznis/gastrack/internal/shipment/service"
)

type reportFixture struct {
	svc       domain.Service
	apply     ledgerdomain.Service
	db        *gorm.DB
	ledger    ledgerdomain.Repository
	tenantID  snowflake.ID
	sizeID    snowflake.ID
	productID snowflake.ID
	driverID  snowflake.ID
}

func setupReports(t *testing.T) *reportFixture {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared&_loc=auto", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("db handle: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)

	if err := migration.AutoMigrate(db); err != nil {
		t.Fatalf("migrate: %v", err)
	}

	node, err := snowflake.NewNode(1)
	if err != nil {
		t.Fatalf("new node: %v", err)
	}
	catalog := catalogservice.NewService(catalogservice.Params{DB: db, Log: zap.NewNop(), GenID: node})

	ctx := context.Background()
	tenant, err := catalog.CreateTenant(ctx, catalogdomain.CreateTenantRequest{Name: "Report Distributor"})
	if err != nil {
		t.Fatalf("create tenant: %v", err)
	}
	size, err := catalog.CreateCylinderSize(ctx, catalogdomain.CreateCylinderSizeRequest{
		TenantID: tenant.ID, Code: "12KG", Name: "12 kg",
	})
	if err != nil {
		t.Fatalf("create size: %v", err)
	}
	product, err := catalog.CreateProduct(ctx, catalogdomain.CreateProductRequest{
		TenantID: tenant.ID, CylinderSizeID: size.ID, SKU: "GAS-12", Name: "LPG 12kg",
	})
	if err != nil {
		t.Fatalf("create product: %v", err)
	}
	driver, err := catalog.CreateDriver(ctx, catalogdomain.CreateDriverRequest{
		TenantID: tenant.ID, Code: "DRV-1", Name: "Driver One",
	})
	if err != nil {
		t.Fatalf("create driver: %v", err)
	}

	ledgerRepo := ledgerrepository.NewRepository()
	shipmentRepo := shipmentrepository.NewRepository()
	receivableRepo := receivablerepository.NewRepository()

	apply := ledgerservice.NewService(ledgerservice.Params{
		DB:          db,
		Repo:        ledgerRepo,
		Shipments:   shipmentRepo,
		Receivables: receivableRepo,
		Catalog:     catalog,
		Resolver:    cache.NewCatalogResolverCache(),
		Clock:       clock.NewFakeClock(time.Date(2024, 4, 10, 12, 0, 0, 0, time.UTC)),
		Log:         zap.NewNop(),
	})

	svc := NewService(Params{
		DB:     db,
		Ledger: ledgerRepo,
		Shipments: shipmentservice.NewService(shipmentservice.Params{
			DB: db, Repo: shipmentRepo, Log: zap.NewNop(),
		}),
		Receivables: receivableservice.NewService(receivableservice.Params{
			DB: db, Repo: receivableRepo, Log: zap.NewNop(),
		}),
		Catalog: catalog,
		Reports: cache.NewMemoryReportCache(),
		Log:     zap.NewNop(),
	})

	return &reportFixture{
		svc:       svc,
		apply:     apply,
		db:        db,
		ledger:    ledgerRepo,
		tenantID:  tenant.ID,
		sizeID:    size.ID,
		productID: product.ID,
		driverID:  driver.ID,
	}
}

func reportDay(d int) time.Time {
	return time.Date(2024, 4, d, 0, 0, 0, 0, time.UTC)
}

func (f *reportFixture) onboardAggregate(t *testing.T, full, empty int64) {
	t.Helper()
	date := reportDay(1)
	row := &ledgerdomain.LedgerDay{
		TenantID:           f.tenantID,
		Date:               date,
		ProductID:          ledgerdomain.AggregateProductID,
		CylinderSizeID:     f.sizeID,
		OnboardingDate:     &date,
		OnboardingFullQty:  full,
		OnboardingEmptyQty: empty,
	}
	if err := f.ledger.SaveDay(context.Background(), f.db, row); err != nil {
		t.Fatalf("save onboarding row: %v", err)
	}
}

func (f *reportFixture) addFlows(t *testing.T, productID snowflake.ID, date time.Time, mutate func(*ledgerdomain.LedgerDay)) {
	t.Helper()
	row := &ledgerdomain.LedgerDay{
		TenantID:       f.tenantID,
		Date:           date,
		ProductID:      productID,
		CylinderSizeID: f.sizeID,
	}
	mutate(row)
	if err := f.ledger.SaveDay(context.Background(), f.db, row); err != nil {
		t.Fatalf("save flow row: %v", err)
	}
}

func TestRecomputeSizeCarriesForward(t *testing.T) {
	f := setupReports(t)
	f.onboardAggregate(t, 100, 50)

	productID := snowflake.ParseInt64(9001)
	f.addFlows(t, productID, reportDay(2), func(row *ledgerdomain.LedgerDay) {
		row.RefillSalesQty = 10
		row.RefillSalesRevenue = decimal.NewFromInt(500)
		row.PackagePurchaseQty = 5
		row.RefillPurchaseQty = 8
		row.RefillReceivedQty = 8
		row.IncomingEmptyQty = 3
		row.OutgoingEmptyQty = 1
	})

	report, err := f.svc.RecomputeSize(context.Background(), f.tenantID, f.sizeID, reportDay(1), reportDay(3))
	if err != nil {
		t.Fatalf("recompute: %v", err)
	}
	if len(report.Days) != 3 {
		t.Fatalf("got %d days, want 3", len(report.Days))
	}

	day1 := report.Days[0]
	if day1.FullCylinders != 100 || day1.EmptyCylinders != 50 {
		t.Fatalf("day1 = full %d empty %d, want 100/50", day1.FullCylinders, day1.EmptyCylinders)
	}

	// full: 100 + 5 + 8 received - 10 sold; empty: 50 + 10 + (3-1) - 8 exchanged.
	day2 := report.Days[1]
	if day2.FullCylinders != 103 {
		t.Fatalf("day2 full = %d, want 103", day2.FullCylinders)
	}
	if day2.EmptyCylinders != 54 {
		t.Fatalf("day2 empty = %d, want 54", day2.EmptyCylinders)
	}
	if day2.Status != domain.DayStatusOK {
		t.Fatalf("day2 status = %s, diagnostics %v", day2.Status, day2.Diagnostics)
	}

	// A quiet day carries the position unchanged.
	day3 := report.Days[2]
	if day3.FullCylinders != 103 || day3.EmptyCylinders != 54 {
		t.Fatalf("day3 = full %d empty %d, want carried 103/54", day3.FullCylinders, day3.EmptyCylinders)
	}

	// Every day got its aggregate row persisted.
	agg, err := f.ledger.FindAggregateDay(context.Background(), f.db, f.tenantID, f.sizeID, reportDay(3))
	if err != nil {
		t.Fatalf("find aggregate: %v", err)
	}
	if agg == nil || agg.FullCylinders != 103 {
		t.Fatalf("aggregate day3 = %+v", agg)
	}

	// The onboarding columns survived the recompute of day 1.
	onboardRow, err := f.ledger.FindAggregateDay(context.Background(), f.db, f.tenantID, f.sizeID, reportDay(1))
	if err != nil {
		t.Fatalf("find onboarding row: %v", err)
	}
	if onboardRow.OnboardingDate == nil || onboardRow.OnboardingFullQty != 100 {
		t.Fatalf("onboarding columns lost: %+v", onboardRow)
	}
}

func TestRecomputeSizeClampsOversoldDay(t *testing.T) {
	f := setupReports(t)
	f.onboardAggregate(t, 5, 0)

	productID := snowflake.ParseInt64(9001)
	f.addFlows(t, productID, reportDay(2), func(row *ledgerdomain.LedgerDay) {
		row.RefillSalesQty = 10
	})

	report, err := f.svc.RecomputeSize(context.Background(), f.tenantID, f.sizeID, reportDay(2), reportDay(2))
	if err != nil {
		t.Fatalf("recompute: %v", err)
	}
	day := report.Days[0]
	if day.FullCylinders != 0 {
		t.Fatalf("full = %d, want clamped 0", day.FullCylinders)
	}
	if day.Status != domain.DayStatusDegraded {
		t.Fatalf("status = %s, want DEGRADED", day.Status)
	}
	found := false
	for _, diag := range day.Diagnostics {
		if diag.Field == "full_cylinders" && diag.Raw == -5 && diag.Clamped == 0 {
			found = true
		}
	}
	if !found {
		t.Fatalf("no full_cylinders diagnostic with raw -5 clamped to 0: %v", day.Diagnostics)
	}
}

// The fleet identity holds across a refill purchase's whole lifecycle:
// while the order is open its cylinders are outstanding, not stock, and
// completion moves them into stock without changing the total.
func TestRecomputeSizeIncludesOutstandingAndReceivables(t *testing.T) {
	f := setupReports(t)
	ctx := context.Background()

	result, err := f.apply.ApplyOnboarding(ctx, ledgerdomain.OnboardingEvent{
		EventID:        "ob-1",
		TenantID:       f.tenantID,
		Date:           reportDay(1),
		ProductID:      f.productID,
		CylinderSizeID: f.sizeID,
		FullQty:        100,
		EmptyQty:       50,
	})
	if err != nil {
		t.Fatalf("onboard: %v", err)
	}
	if result.Status != ledgerdomain.ApplyStatusApplied {
		t.Fatalf("onboard status = %s, violations %v", result.Status, result.Violations)
	}

	shipmentID := snowflake.ParseInt64(500)
	result, err = f.apply.ApplyShipment(ctx, ledgerdomain.ShipmentEvent{
		EventID:          "ship-1",
		ShipmentID:       shipmentID,
		TenantID:         f.tenantID,
		Date:             reportDay(2),
		ProductID:        f.productID,
		CylinderSizeID:   f.sizeID,
		Direction:        ledgerdomain.DirectionIncomingFull,
		Quantity:         8,
		Cost:             decimal.NewFromInt(80),
		IsRefillPurchase: true,
		Status:           ledgerdomain.ShipmentStatusPending,
	})
	if err != nil {
		t.Fatalf("pending shipment: %v", err)
	}
	if result.Status != ledgerdomain.ApplyStatusApplied {
		t.Fatalf("shipment status = %s, violations %v", result.Status, result.Violations)
	}

	result, err = f.apply.ApplySale(ctx, ledgerdomain.SalesEvent{
		EventID:        "sale-1",
		SaleID:         snowflake.ParseInt64(600),
		TenantID:       f.tenantID,
		Date:           reportDay(2),
		ProductID:      f.productID,
		CylinderSizeID: f.sizeID,
		DriverID:       f.driverID,
		Type:           ledgerdomain.SaleTypeRefill,
		Quantity:       4,
		Revenue:        decimal.NewFromInt(200),
	})
	if err != nil {
		t.Fatalf("sale: %v", err)
	}
	if result.Status != ledgerdomain.ApplyStatusApplied {
		t.Fatalf("sale status = %s, violations %v", result.Status, result.Violations)
	}

	report, err := f.svc.RecomputeSize(ctx, f.tenantID, f.sizeID, reportDay(2), reportDay(2))
	if err != nil {
		t.Fatalf("recompute: %v", err)
	}
	day := report.Days[0]
	// full: 100 - 4 sold; empty: 50 + 4 - 8 handed over. The 8 on order
	// are outstanding, not stock.
	if day.FullCylinders != 96 || day.EmptyCylinders != 46 {
		t.Fatalf("day2 = full %d empty %d, want 96/46", day.FullCylinders, day.EmptyCylinders)
	}
	if day.OutstandingRefillQty != 8 {
		t.Fatalf("outstanding = %d, want 8", day.OutstandingRefillQty)
	}
	if day.TotalCylinders != 150 {
		t.Fatalf("total = %d, want the constant fleet 150", day.TotalCylinders)
	}
	if day.EmptyCylinderReceivables != 4 {
		t.Fatalf("receivables = %d, want 4", day.EmptyCylinderReceivables)
	}
	if day.EmptyInStock != 42 {
		t.Fatalf("empty in stock = %d, want 42", day.EmptyInStock)
	}
	if !day.TotalCashReceivables.Equal(decimal.NewFromInt(200)) {
		t.Fatalf("cash receivables = %s, want 200", day.TotalCashReceivables)
	}

	completedAt := reportDay(3)
	result, err = f.apply.ApplyShipment(ctx, ledgerdomain.ShipmentEvent{
		EventID:          "ship-1-done",
		ShipmentID:       shipmentID,
		TenantID:         f.tenantID,
		Date:             reportDay(2),
		ProductID:        f.productID,
		CylinderSizeID:   f.sizeID,
		Direction:        ledgerdomain.DirectionIncomingFull,
		Quantity:         8,
		Cost:             decimal.NewFromInt(80),
		IsRefillPurchase: true,
		Status:           ledgerdomain.ShipmentStatusCompleted,
		CompletedAt:      &completedAt,
	})
	if err != nil {
		t.Fatalf("complete shipment: %v", err)
	}
	if result.Status != ledgerdomain.ApplyStatusApplied {
		t.Fatalf("completion status = %s, violations %v", result.Status, result.Violations)
	}

	report, err = f.svc.RecomputeSize(ctx, f.tenantID, f.sizeID, reportDay(1), reportDay(3))
	if err != nil {
		t.Fatalf("recompute after completion: %v", err)
	}
	day3 := report.Days[2]
	if day3.FullCylinders != 104 || day3.EmptyCylinders != 46 {
		t.Fatalf("day3 = full %d empty %d, want 104/46", day3.FullCylinders, day3.EmptyCylinders)
	}
	if day3.OutstandingRefillQty != 0 {
		t.Fatalf("outstanding after completion = %d, want 0", day3.OutstandingRefillQty)
	}
	if day3.TotalCylinders != 150 {
		t.Fatalf("total after completion = %d, want 150", day3.TotalCylinders)
	}
}

// Receivables owed at onboarding stay on the books on top of the driver
// ledger.
func TestRecomputeSizeCountsOnboardingReceivables(t *testing.T) {
	f := setupReports(t)
	ctx := context.Background()

	result, err := f.apply.ApplyOnboarding(ctx, ledgerdomain.OnboardingEvent{
		EventID:        "ob-1",
		TenantID:       f.tenantID,
		Date:           reportDay(1),
		ProductID:      f.productID,
		CylinderSizeID: f.sizeID,
		FullQty:        100,
		EmptyQty:       50,
		ReceivableQty:  5,
		CashReceivable: decimal.NewFromInt(80),
	})
	if err != nil {
		t.Fatalf("onboard: %v", err)
	}
	if result.Status != ledgerdomain.ApplyStatusApplied {
		t.Fatalf("onboard status = %s, violations %v", result.Status, result.Violations)
	}

	report, err := f.svc.RecomputeSize(ctx, f.tenantID, f.sizeID, reportDay(1), reportDay(1))
	if err != nil {
		t.Fatalf("recompute: %v", err)
	}
	day := report.Days[0]
	if day.EmptyCylinderReceivables != 5 {
		t.Fatalf("receivables = %d, want the onboarding 5", day.EmptyCylinderReceivables)
	}
	if day.EmptyInStock != 45 {
		t.Fatalf("empty in stock = %d, want 45", day.EmptyInStock)
	}
	if !day.TotalCashReceivables.Equal(decimal.NewFromInt(80)) {
		t.Fatalf("cash receivables = %s, want 80", day.TotalCashReceivables)
	}
}

func TestRecomputeSizeRangeErrors(t *testing.T) {
	f := setupReports(t)

	_, err := f.svc.RecomputeSize(context.Background(), f.tenantID, f.sizeID, reportDay(5), reportDay(2))
	if !errors.Is(err, domain.ErrInvalidRange) {
		t.Fatalf("inverted range err = %v, want ErrInvalidRange", err)
	}

	_, err = f.svc.RecomputeSize(context.Background(), f.tenantID, f.sizeID, reportDay(1), reportDay(2))
	if !errors.Is(err, domain.ErrNoBaseline) {
		t.Fatalf("no onboarding err = %v, want ErrNoBaseline", err)
	}
}

func TestRangeReportMarksGapsFailed(t *testing.T) {
	f := setupReports(t)
	f.onboardAggregate(t, 100, 50)

	// Only days 1-2 were recomputed; day 3 has no aggregate row.
	if _, err := f.svc.RecomputeSize(context.Background(), f.tenantID, f.sizeID, reportDay(1), reportDay(2)); err != nil {
		t.Fatalf("recompute: %v", err)
	}

	report, err := f.svc.RangeReport(context.Background(), f.tenantID, f.sizeID, reportDay(1), reportDay(3))
	if err != nil {
		t.Fatalf("range report: %v", err)
	}
	if len(report.Days) != 3 {
		t.Fatalf("got %d days, want 3", len(report.Days))
	}
	if report.Days[0].Status != domain.DayStatusOK || report.Days[1].Status != domain.DayStatusOK {
		t.Fatalf("recomputed days not OK: %s / %s", report.Days[0].Status, report.Days[1].Status)
	}
	if report.Days[2].Status != domain.DayStatusFailed {
		t.Fatalf("missing day status = %s, want FAILED", report.Days[2].Status)
	}

	_, err = f.svc.RangeReport(context.Background(), f.tenantID, f.sizeID, reportDay(3), reportDay(1))
	if !errors.Is(err, domain.ErrInvalidRange) {
		t.Fatalf("inverted range err = %v, want ErrInvalidRange", err)
	}
}

func TestDailyReportMarksMissingDayFailed(t *testing.T) {
	f := setupReports(t)
	f.onboardAggregate(t, 100, 50)

	// No recompute ran for this date, so there is no aggregate row.
	daily, err := f.svc.DailyReport(context.Background(), f.tenantID, reportDay(9))
	if err != nil {
		t.Fatalf("daily report: %v", err)
	}
	if len(daily.Breakdown) != 1 {
		t.Fatalf("got %d sizes, want 1", len(daily.Breakdown))
	}
	if daily.Breakdown[0].Day.Status != domain.DayStatusFailed {
		t.Fatalf("status = %s, want FAILED", daily.Breakdown[0].Day.Status)
	}
}

func TestDailyReportReadsRecomputedDay(t *testing.T) {
	f := setupReports(t)
	f.onboardAggregate(t, 100, 50)

	productID := snowflake.ParseInt64(9001)
	f.addFlows(t, productID, reportDay(2), func(row *ledgerdomain.LedgerDay) {
		row.RefillSalesQty = 10
		row.PackagePurchaseQty = 5
		row.RefillPurchaseQty = 8
		row.RefillReceivedQty = 8
		row.IncomingEmptyQty = 3
		row.OutgoingEmptyQty = 1
	})
	if _, err := f.svc.RecomputeSize(context.Background(), f.tenantID, f.sizeID, reportDay(1), reportDay(2)); err != nil {
		t.Fatalf("recompute: %v", err)
	}

	daily, err := f.svc.DailyReport(context.Background(), f.tenantID, reportDay(2))
	if err != nil {
		t.Fatalf("daily report: %v", err)
	}
	if len(daily.Breakdown) != 1 {
		t.Fatalf("got %d sizes, want 1", len(daily.Breakdown))
	}
	day := daily.Breakdown[0].Day
	if day.FullCylinders != 103 || day.EmptyCylinders != 54 {
		t.Fatalf("daily = full %d empty %d, want 103/54", day.FullCylinders, day.EmptyCylinders)
	}

	// Second read comes from cache and must agree.
	again, err := f.svc.DailyReport(context.Background(), f.tenantID, reportDay(2))
	if err != nil {
		t.Fatalf("cached daily report: %v", err)
	}
	if again.Breakdown[0].Day.FullCylinders != 103 {
		t.Fatalf("cached full = %d, want 103", again.Breakdown[0].Day.FullCylinders)
	}
}
