package service

import (
	"context"
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
	"github.com/smallbiznis/gastrack/internal/ledger/domain"
	"github.com/smallbiznis/gastrack/internal/ledger/repository"
	"github.com/smallbiznis/gastrack/internal/migration"
	receivabledomain "github.com/smallbiznis/gastrack/internal/receivable/domain"
	receivablerepository "github.com/smallbiznis/gastrack/internal/receivable/repository"
	shipmentdomain "github.com/smallbiznis/gastrack/internal/shipment/domain"
	shipmentrepository "github.com/smallbiznis/gastrack/internal/shipment/repository"
)

type fixture struct {
	svc       domain.Service
	db        *gorm.DB
	tenantID  snowflake.ID
	sizeID    snowflake.ID
	productID snowflake.ID
	driverID  snowflake.ID
	clock     *clock.FakeClock
}

func setupLedger(t *testing.T) *fixture {
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
	sqlDB.SetMaxIdleConns(1)
	_ = db.Exec("PRAGMA busy_timeout = 5000").Error

	if err := migration.AutoMigrate(db); err != nil {
		t.Fatalf("migrate: %v", err)
	}

	node, err := snowflake.NewNode(1)
	if err != nil {
		t.Fatalf("new node: %v", err)
	}

	catalog := catalogservice.NewService(catalogservice.Params{
		DB:    db,
		Log:   zap.NewNop(),
		GenID: node,
	})

	ctx := context.Background()
	tenant, err := catalog.CreateTenant(ctx, catalogdomain.CreateTenantRequest{Name: "Test Distributor"})
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

	fake := clock.NewFakeClock(time.Date(2024, 3, 15, 12, 0, 0, 0, time.UTC))
	svc := NewService(Params{
		DB:          db,
		Repo:        repository.NewRepository(),
		Shipments:   shipmentrepository.NewRepository(),
		Receivables: receivablerepository.NewRepository(),
		Catalog:     catalog,
		Resolver:    cache.NewCatalogResolverCache(),
		Clock:       fake,
		Log:         zap.NewNop(),
	})

	return &fixture{
		svc:       svc,
		db:        db,
		tenantID:  tenant.ID,
		sizeID:    size.ID,
		productID: product.ID,
		driverID:  driver.ID,
		clock:     fake,
	}
}

func (f *fixture) onboard(t *testing.T, full, empty int64) {
	t.Helper()
	result, err := f.svc.ApplyOnboarding(context.Background(), domain.OnboardingEvent{
		EventID:        "onboard-1",
		TenantID:       f.tenantID,
		Date:           time.Date(2024, 3, 10, 8, 0, 0, 0, time.UTC),
		CylinderSizeID: f.sizeID,
		ProductID:      f.productID,
		FullQty:        full,
		EmptyQty:       empty,
	})
	if err != nil {
		t.Fatalf("onboard: %v", err)
	}
	if result.Status != domain.ApplyStatusApplied {
		t.Fatalf("onboard status = %s, violations %v", result.Status, result.Violations)
	}
}

func (f *fixture) refillSale(t *testing.T, eventID string, qty int64, revenue int64) *domain.ApplyResult {
	t.Helper()
	result, err := f.svc.ApplySale(context.Background(), domain.SalesEvent{
		EventID:        eventID,
		SaleID:         snowflake.ParseInt64(1),
		TenantID:       f.tenantID,
		Date:           time.Date(2024, 3, 11, 9, 0, 0, 0, time.UTC),
		ProductID:      f.productID,
		CylinderSizeID: f.sizeID,
		DriverID:       f.driverID,
		Type:           domain.SaleTypeRefill,
		Quantity:       qty,
		Revenue:        decimal.NewFromInt(revenue),
	})
	if err != nil {
		t.Fatalf("sale %s: %v", eventID, err)
	}
	return result
}

func TestApplySaleAccumulatesAcrossEvents(t *testing.T) {
	f := setupLedger(t)
	f.onboard(t, 100, 50)

	first := f.refillSale(t, "sale-1", 4, 200)
	if first.Status != domain.ApplyStatusApplied {
		t.Fatalf("first sale status = %s, violations %v", first.Status, first.Violations)
	}
	second := f.refillSale(t, "sale-2", 3, 150)
	if second.Status != domain.ApplyStatusApplied {
		t.Fatalf("second sale status = %s", second.Status)
	}

	if second.Day.RefillSalesQty != 7 {
		t.Fatalf("refill qty = %d, want 7", second.Day.RefillSalesQty)
	}
	if !second.Day.RefillSalesRevenue.Equal(decimal.NewFromInt(350)) {
		t.Fatalf("revenue = %s, want 350", second.Day.RefillSalesRevenue)
	}
}

func TestApplySaleDuplicateEventIsDeduplicated(t *testing.T) {
	f := setupLedger(t)
	f.onboard(t, 100, 50)

	f.refillSale(t, "sale-1", 4, 200)
	dup := f.refillSale(t, "sale-1", 4, 200)
	if dup.Status != domain.ApplyStatusDeduplicated {
		t.Fatalf("duplicate status = %s, want DEDUPLICATED", dup.Status)
	}

	var day domain.LedgerDay
	err := f.db.Where("tenant_id = ? AND product_id = ?", f.tenantID, f.productID).First(&day).Error
	if err != nil {
		t.Fatalf("load day: %v", err)
	}
	if day.RefillSalesQty != 4 {
		t.Fatalf("duplicate changed the ledger: qty = %d, want 4", day.RefillSalesQty)
	}
}

func TestApplySaleBeforeOnboardingRejected(t *testing.T) {
	f := setupLedger(t)

	result := f.refillSale(t, "sale-1", 4, 200)
	if result.Status != domain.ApplyStatusRejected {
		t.Fatalf("status = %s, want REJECTED", result.Status)
	}
	if len(result.Violations) == 0 {
		t.Fatal("rejection must carry violations")
	}

	var count int64
	f.db.Model(&domain.ProcessedEvent{}).Count(&count)
	if count != 0 {
		t.Fatalf("rejected event was marked processed: %d rows", count)
	}
}

func TestApplySaleWritesDriverReceivable(t *testing.T) {
	f := setupLedger(t)
	f.onboard(t, 100, 50)
	f.refillSale(t, "sale-1", 4, 200)

	var row receivabledomain.DriverDay
	err := f.db.Where("tenant_id = ? AND driver_id = ?", f.tenantID, f.driverID).First(&row).Error
	if err != nil {
		t.Fatalf("load receivable: %v", err)
	}
	if row.RefillQtySold != 4 {
		t.Fatalf("refill qty sold = %d, want 4", row.RefillQtySold)
	}
	if !row.Revenue.Equal(decimal.NewFromInt(200)) {
		t.Fatalf("revenue = %s, want 200", row.Revenue)
	}
}

func TestApplyShipmentLifecycle(t *testing.T) {
	f := setupLedger(t)
	f.onboard(t, 100, 50)

	shipmentID := snowflake.ParseInt64(777)
	created, err := f.svc.ApplyShipment(context.Background(), domain.ShipmentEvent{
		EventID:          "ship-1",
		ShipmentID:       shipmentID,
		TenantID:         f.tenantID,
		Date:             time.Date(2024, 3, 11, 10, 0, 0, 0, time.UTC),
		ProductID:        f.productID,
		CylinderSizeID:   f.sizeID,
		Direction:        domain.DirectionIncomingFull,
		Quantity:         8,
		Cost:             decimal.NewFromInt(80),
		IsRefillPurchase: true,
		Status:           domain.ShipmentStatusPending,
	})
	if err != nil {
		t.Fatalf("create shipment: %v", err)
	}
	if created.Status != domain.ApplyStatusApplied {
		t.Fatalf("create status = %s, violations %v", created.Status, created.Violations)
	}
	if created.Day.RefillPurchaseQty != 8 {
		t.Fatalf("refill purchase = %d, want 8 on creation", created.Day.RefillPurchaseQty)
	}

	completedAt := time.Date(2024, 3, 13, 9, 0, 0, 0, time.UTC)
	completed, err := f.svc.ApplyShipment(context.Background(), domain.ShipmentEvent{
		EventID:          "ship-1-done",
		ShipmentID:       shipmentID,
		TenantID:         f.tenantID,
		Date:             time.Date(2024, 3, 11, 10, 0, 0, 0, time.UTC),
		ProductID:        f.productID,
		CylinderSizeID:   f.sizeID,
		Direction:        domain.DirectionIncomingFull,
		Quantity:         8,
		Cost:             decimal.NewFromInt(80),
		IsRefillPurchase: true,
		Status:           domain.ShipmentStatusCompleted,
		CompletedAt:      &completedAt,
	})
	if err != nil {
		t.Fatalf("complete shipment: %v", err)
	}
	if want := time.Date(2024, 3, 13, 0, 0, 0, 0, time.UTC); !completed.Day.Date.Equal(want) {
		t.Fatalf("completion booked on %v, want the completion day %v", completed.Day.Date, want)
	}
	if completed.Day.RefillPurchaseQty != 0 {
		t.Fatalf("completion day re-counted the refill purchase: %d", completed.Day.RefillPurchaseQty)
	}
	if completed.Day.RefillReceivedQty != 8 {
		t.Fatalf("refill received = %d, want 8 on completion day", completed.Day.RefillReceivedQty)
	}
	if completed.Day.IncomingFullQty != 8 {
		t.Fatalf("incoming full = %d, want 8 after completion", completed.Day.IncomingFullQty)
	}

	var creationDay domain.LedgerDay
	err = f.db.Where("tenant_id = ? AND product_id = ? AND date = ?",
		f.tenantID, f.productID, time.Date(2024, 3, 11, 0, 0, 0, 0, time.UTC)).
		First(&creationDay).Error
	if err != nil {
		t.Fatalf("load creation day: %v", err)
	}
	if creationDay.RefillPurchaseQty != 8 || creationDay.RefillReceivedQty != 0 {
		t.Fatalf("creation day = purchase %d received %d, want 8 and 0",
			creationDay.RefillPurchaseQty, creationDay.RefillReceivedQty)
	}

	var record shipmentdomain.ShipmentRecord
	if err := f.db.Where("shipment_id = ?", shipmentID).First(&record).Error; err != nil {
		t.Fatalf("load shipment: %v", err)
	}
	if record.Status != domain.ShipmentStatusCompleted || record.CompletedAt == nil {
		t.Fatalf("record = %+v", record)
	}
}
