package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
)

type EventKind string

const (
	KindOnboarding EventKind = "ONBOARDING"
	KindSale       EventKind = "SALE"
	KindShipment   EventKind = "SHIPMENT"
)

// FieldPolicy is how a delta field combines with an existing ledger row.
type FieldPolicy int8

const (
	// PolicyReplace overwrites the stored value: onboarding baselines and
	// recomputed balances are point-in-time facts.
	PolicyReplace FieldPolicy = iota
	// PolicyAccumulate adds to the stored value: sales and shipments are
	// flows delivered as independent events within a day.
	PolicyAccumulate
)

// Field names a LedgerDay column a delta may carry.
type Field string

const (
	FieldOnboardingFullQty       Field = "onboarding_full_qty"
	FieldOnboardingEmptyQty      Field = "onboarding_empty_qty"
	FieldOnboardingReceivableQty Field = "onboarding_receivable_qty"

	FieldPackageSalesQty    Field = "package_sales_qty"
	FieldRefillSalesQty     Field = "refill_sales_qty"
	FieldPackagePurchaseQty Field = "package_purchase_qty"
	FieldRefillPurchaseQty  Field = "refill_purchase_qty"
	FieldRefillReceivedQty  Field = "refill_received_qty"
	FieldIncomingFullQty    Field = "incoming_full_qty"
	FieldIncomingEmptyQty   Field = "incoming_empty_qty"
	FieldOutgoingFullQty    Field = "outgoing_full_qty"
	FieldOutgoingEmptyQty   Field = "outgoing_empty_qty"

	FieldFullCylinders            Field = "full_cylinders"
	FieldEmptyCylinders           Field = "empty_cylinders"
	FieldTotalCylinders           Field = "total_cylinders"
	FieldEmptyCylinderReceivables Field = "empty_cylinder_receivables"
	FieldTotalCylinderReceivables Field = "total_cylinder_receivables"

	FieldPackageSalesRevenue  Field = "package_sales_revenue"
	FieldRefillSalesRevenue   Field = "refill_sales_revenue"
	FieldShipmentCost             Field = "shipment_cost"
	FieldTotalCashReceivables     Field = "total_cash_receivables"
	FieldOnboardingCashReceivable Field = "onboarding_cash_receivable"
)

// QuantityFieldSpec binds a quantity field to its merge policy and its
// LedgerDay accessors, so the merge engine never branches on event type.
type QuantityFieldSpec struct {
	Policy FieldPolicy
	Get    func(*LedgerDay) int64
	Set    func(*LedgerDay, int64)
}

// AmountFieldSpec is the decimal counterpart of QuantityFieldSpec.
type AmountFieldSpec struct {
	Policy FieldPolicy
	Get    func(*LedgerDay) decimal.Decimal
	Set    func(*LedgerDay, decimal.Decimal)
}

// QuantityFields is the authoritative policy registry for count columns.
var QuantityFields = map[Field]QuantityFieldSpec{
	FieldOnboardingFullQty: {PolicyReplace,
		func(d *LedgerDay) int64 { return d.OnboardingFullQty },
		func(d *LedgerDay, v int64) { d.OnboardingFullQty = v }},
	FieldOnboardingEmptyQty: {PolicyReplace,
		func(d *LedgerDay) int64 { return d.OnboardingEmptyQty },
		func(d *LedgerDay, v int64) { d.OnboardingEmptyQty = v }},
	FieldOnboardingReceivableQty: {PolicyReplace,
		func(d *LedgerDay) int64 { return d.OnboardingReceivableQty },
		func(d *LedgerDay, v int64) { d.OnboardingReceivableQty = v }},

	FieldPackageSalesQty: {PolicyAccumulate,
		func(d *LedgerDay) int64 { return d.PackageSalesQty },
		func(d *LedgerDay, v int64) { d.PackageSalesQty = v }},
	FieldRefillSalesQty: {PolicyAccumulate,
		func(d *LedgerDay) int64 { return d.RefillSalesQty },
		func(d *LedgerDay, v int64) { d.RefillSalesQty = v }},
	FieldPackagePurchaseQty: {PolicyAccumulate,
		func(d *LedgerDay) int64 { return d.PackagePurchaseQty },
		func(d *LedgerDay, v int64) { d.PackagePurchaseQty = v }},
	FieldRefillPurchaseQty: {PolicyAccumulate,
		func(d *LedgerDay) int64 { return d.RefillPurchaseQty },
		func(d *LedgerDay, v int64) { d.RefillPurchaseQty = v }},
	FieldRefillReceivedQty: {PolicyAccumulate,
		func(d *LedgerDay) int64 { return d.RefillReceivedQty },
		func(d *LedgerDay, v int64) { d.RefillReceivedQty = v }},
	FieldIncomingFullQty: {PolicyAccumulate,
		func(d *LedgerDay) int64 { return d.IncomingFullQty },
		func(d *LedgerDay, v int64) { d.IncomingFullQty = v }},
	FieldIncomingEmptyQty: {PolicyAccumulate,
		func(d *LedgerDay) int64 { return d.IncomingEmptyQty },
		func(d *LedgerDay, v int64) { d.IncomingEmptyQty = v }},
	FieldOutgoingFullQty: {PolicyAccumulate,
		func(d *LedgerDay) int64 { return d.OutgoingFullQty },
		func(d *LedgerDay, v int64) { d.OutgoingFullQty = v }},
	FieldOutgoingEmptyQty: {PolicyAccumulate,
		func(d *LedgerDay) int64 { return d.OutgoingEmptyQty },
		func(d *LedgerDay, v int64) { d.OutgoingEmptyQty = v }},

	FieldFullCylinders: {PolicyReplace,
		func(d *LedgerDay) int64 { return d.FullCylinders },
		func(d *LedgerDay, v int64) { d.FullCylinders = v }},
	FieldEmptyCylinders: {PolicyReplace,
		func(d *LedgerDay) int64 { return d.EmptyCylinders },
		func(d *LedgerDay, v int64) { d.EmptyCylinders = v }},
	FieldTotalCylinders: {PolicyReplace,
		func(d *LedgerDay) int64 { return d.TotalCylinders },
		func(d *LedgerDay, v int64) { d.TotalCylinders = v }},
	FieldEmptyCylinderReceivables: {PolicyReplace,
		func(d *LedgerDay) int64 { return d.EmptyCylinderReceivables },
		func(d *LedgerDay, v int64) { d.EmptyCylinderReceivables = v }},
	FieldTotalCylinderReceivables: {PolicyReplace,
		func(d *LedgerDay) int64 { return d.TotalCylinderReceivables },
		func(d *LedgerDay, v int64) { d.TotalCylinderReceivables = v }},
}

// AmountFields is the authoritative policy registry for money columns.
var AmountFields = map[Field]AmountFieldSpec{
	FieldPackageSalesRevenue: {PolicyAccumulate,
		func(d *LedgerDay) decimal.Decimal { return d.PackageSalesRevenue },
		func(d *LedgerDay, v decimal.Decimal) { d.PackageSalesRevenue = v }},
	FieldRefillSalesRevenue: {PolicyAccumulate,
		func(d *LedgerDay) decimal.Decimal { return d.RefillSalesRevenue },
		func(d *LedgerDay, v decimal.Decimal) { d.RefillSalesRevenue = v }},
	FieldShipmentCost: {PolicyAccumulate,
		func(d *LedgerDay) decimal.Decimal { return d.ShipmentCost },
		func(d *LedgerDay, v decimal.Decimal) { d.ShipmentCost = v }},
	FieldTotalCashReceivables: {PolicyReplace,
		func(d *LedgerDay) decimal.Decimal { return d.TotalCashReceivables },
		func(d *LedgerDay, v decimal.Decimal) { d.TotalCashReceivables = v }},
	FieldOnboardingCashReceivable: {PolicyReplace,
		func(d *LedgerDay) decimal.Decimal { return d.OnboardingCashReceivable },
		func(d *LedgerDay, v decimal.Decimal) { d.OnboardingCashReceivable = v }},
}

// Delta is a normalized, typed view of one raw event. Only the fields present
// in Quantities/Amounts are applied; presence in the map is what "present"
// means for replace semantics.
type Delta struct {
	EventID        string
	Kind           EventKind
	TenantID       snowflake.ID
	Date           time.Time
	ProductID      snowflake.ID
	CylinderSizeID snowflake.ID

	Quantities map[Field]int64
	Amounts    map[Field]decimal.Decimal

	// Onboarding tag, replace-once alongside the baseline quantities.
	OnboardingDate *time.Time

	// Receivable side-channel for sales, consumed by the driver reconciler
	// rather than merged into the ledger row.
	DriverID           snowflake.ID
	RefillQtySold      int64
	CylindersDeposited int64
	Revenue            decimal.Decimal
	CashDeposited      decimal.Decimal
}

// Key returns the ledger row this delta merges into.
func (d Delta) Key() DayKey {
	return DayKey{
		TenantID:       d.TenantID,
		Date:           d.Date,
		ProductID:      d.ProductID,
		CylinderSizeID: d.CylinderSizeID,
	}
}

// TouchesBalance reports whether the delta replaces all three balance fields,
// which obliges the merge engine to re-check the balance identity.
func (d Delta) TouchesBalance() bool {
	_, full := d.Quantities[FieldFullCylinders]
	_, empty := d.Quantities[FieldEmptyCylinders]
	_, total := d.Quantities[FieldTotalCylinders]
	return full && empty && total
}
