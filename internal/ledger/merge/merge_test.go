package merge

import (
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"

	ledgerdomain "github.com/smallbiznis/gastrack/internal/ledger/domain"
)

func testKey() (snowflake.ID, time.Time, snowflake.ID, snowflake.ID) {
	date := time.Date(2024, 3, 10, 0, 0, 0, 0, time.UTC)
	return snowflake.ParseInt64(100), date, snowflake.ParseInt64(200), snowflake.ParseInt64(300)
}

func TestMergeCreatesRowWhenMissing(t *testing.T) {
	tenantID, date, productID, sizeID := testKey()
	delta := ledgerdomain.Delta{
		TenantID:       tenantID,
		Date:           date,
		ProductID:      productID,
		CylinderSizeID: sizeID,
		Quantities: map[ledgerdomain.Field]int64{
			ledgerdomain.FieldRefillSalesQty: 5,
		},
		Amounts: map[ledgerdomain.Field]decimal.Decimal{
			ledgerdomain.FieldRefillSalesRevenue: decimal.NewFromInt(250),
		},
	}

	day, fault := Merge(nil, delta)
	if fault != nil {
		t.Fatalf("unexpected fault: %v", fault)
	}
	if day.TenantID != tenantID || day.ProductID != productID || day.CylinderSizeID != sizeID {
		t.Fatalf("key not carried: %+v", day)
	}
	if day.RefillSalesQty != 5 {
		t.Fatalf("refill qty = %d, want 5", day.RefillSalesQty)
	}
	if !day.RefillSalesRevenue.Equal(decimal.NewFromInt(250)) {
		t.Fatalf("revenue = %s, want 250", day.RefillSalesRevenue)
	}
}

func TestMergeAccumulatesFlows(t *testing.T) {
	tenantID, date, productID, sizeID := testKey()
	existing := &ledgerdomain.LedgerDay{
		TenantID:           tenantID,
		Date:               date,
		ProductID:          productID,
		CylinderSizeID:     sizeID,
		RefillSalesQty:     5,
		RefillSalesRevenue: decimal.NewFromInt(250),
	}
	delta := ledgerdomain.Delta{
		TenantID:       tenantID,
		Date:           date,
		ProductID:      productID,
		CylinderSizeID: sizeID,
		Quantities: map[ledgerdomain.Field]int64{
			ledgerdomain.FieldRefillSalesQty: 3,
		},
		Amounts: map[ledgerdomain.Field]decimal.Decimal{
			ledgerdomain.FieldRefillSalesRevenue: decimal.NewFromInt(150),
		},
	}

	day, fault := Merge(existing, delta)
	if fault != nil {
		t.Fatalf("unexpected fault: %v", fault)
	}
	if day.RefillSalesQty != 8 {
		t.Fatalf("refill qty = %d, want 8", day.RefillSalesQty)
	}
	if !day.RefillSalesRevenue.Equal(decimal.NewFromInt(400)) {
		t.Fatalf("revenue = %s, want 400", day.RefillSalesRevenue)
	}
	if existing.RefillSalesQty != 5 {
		t.Fatalf("merge mutated its input: %d", existing.RefillSalesQty)
	}
}

func TestMergeReplacesBalances(t *testing.T) {
	tenantID, date, productID, sizeID := testKey()
	existing := &ledgerdomain.LedgerDay{
		TenantID:       tenantID,
		Date:           date,
		ProductID:      productID,
		CylinderSizeID: sizeID,
		FullCylinders:  10,
		EmptyCylinders: 4,
		TotalCylinders: 14,
	}
	delta := ledgerdomain.Delta{
		TenantID:       tenantID,
		Date:           date,
		ProductID:      productID,
		CylinderSizeID: sizeID,
		Quantities: map[ledgerdomain.Field]int64{
			ledgerdomain.FieldFullCylinders:  7,
			ledgerdomain.FieldEmptyCylinders: 9,
			ledgerdomain.FieldTotalCylinders: 16,
		},
	}

	day, fault := Merge(existing, delta)
	if fault != nil {
		t.Fatalf("unexpected fault: %v", fault)
	}
	if day.FullCylinders != 7 || day.EmptyCylinders != 9 || day.TotalCylinders != 16 {
		t.Fatalf("balances not replaced: %+v", day)
	}
}

func TestMergeReportsBalanceFaultButStillMerges(t *testing.T) {
	tenantID, date, productID, sizeID := testKey()
	delta := ledgerdomain.Delta{
		TenantID:       tenantID,
		Date:           date,
		ProductID:      productID,
		CylinderSizeID: sizeID,
		Quantities: map[ledgerdomain.Field]int64{
			ledgerdomain.FieldFullCylinders:  7,
			ledgerdomain.FieldEmptyCylinders: 9,
			ledgerdomain.FieldTotalCylinders: 99,
		},
	}

	day, fault := Merge(nil, delta)
	if fault == nil {
		t.Fatal("expected balance fault")
	}
	if fault.TotalCylinders != 99 || fault.FullCylinders != 7 || fault.EmptyCylinders != 9 {
		t.Fatalf("fault = %+v", fault)
	}
	if day.TotalCylinders != 99 {
		t.Fatalf("fault must not block the merge, total = %d", day.TotalCylinders)
	}
}

func TestMergePartialBalanceSkipsIdentityCheck(t *testing.T) {
	tenantID, date, productID, sizeID := testKey()
	delta := ledgerdomain.Delta{
		TenantID:       tenantID,
		Date:           date,
		ProductID:      productID,
		CylinderSizeID: sizeID,
		Quantities: map[ledgerdomain.Field]int64{
			ledgerdomain.FieldFullCylinders: 7,
		},
	}

	_, fault := Merge(nil, delta)
	if fault != nil {
		t.Fatalf("identity check requires all three balance fields, got fault %v", fault)
	}
}

func TestMergeSetsOnboardingDateOnce(t *testing.T) {
	tenantID, date, productID, sizeID := testKey()
	delta := ledgerdomain.Delta{
		TenantID:       tenantID,
		Date:           date,
		ProductID:      productID,
		CylinderSizeID: sizeID,
		OnboardingDate: &date,
		Quantities: map[ledgerdomain.Field]int64{
			ledgerdomain.FieldOnboardingFullQty:  100,
			ledgerdomain.FieldOnboardingEmptyQty: 50,
		},
	}

	day, _ := Merge(nil, delta)
	if day.OnboardingDate == nil || !day.OnboardingDate.Equal(date) {
		t.Fatalf("onboarding date = %v, want %v", day.OnboardingDate, date)
	}
	if day.OnboardingFullQty != 100 || day.OnboardingEmptyQty != 50 {
		t.Fatalf("onboarding quantities = %d/%d", day.OnboardingFullQty, day.OnboardingEmptyQty)
	}
}
