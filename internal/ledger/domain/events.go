package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
)

type SaleType string

const (
	// SaleTypePackage is a full cylinder sold with no empty returned in exchange.
	SaleTypePackage SaleType = "PACKAGE"
	// SaleTypeRefill is a gas sale where the customer swaps an empty for a full.
	SaleTypeRefill SaleType = "REFILL"
)

type ShipmentDirection string

const (
	DirectionIncomingFull  ShipmentDirection = "INCOMING_FULL"
	DirectionIncomingEmpty ShipmentDirection = "INCOMING_EMPTY"
	DirectionOutgoingFull  ShipmentDirection = "OUTGOING_FULL"
	DirectionOutgoingEmpty ShipmentDirection = "OUTGOING_EMPTY"
)

type ShipmentStatus string

const (
	ShipmentStatusPending   ShipmentStatus = "PENDING"
	ShipmentStatusCompleted ShipmentStatus = "COMPLETED"
	ShipmentStatusCancelled ShipmentStatus = "CANCELLED"
)

// OnboardingEvent records a tenant's initial inventory snapshot for one
// cylinder size. It must be the first event ever seen for that size.
type OnboardingEvent struct {
	EventID        string          `json:"event_id" validate:"required"`
	TenantID       snowflake.ID    `json:"tenant_id" validate:"required"`
	Date           time.Time       `json:"date" validate:"required"`
	CylinderSizeID snowflake.ID    `json:"cylinder_size_id" validate:"required"`
	ProductID      snowflake.ID    `json:"product_id"`
	FullQty        int64           `json:"full_qty" validate:"gte=0"`
	EmptyQty       int64           `json:"empty_qty" validate:"gte=0"`
	ReceivableQty  int64           `json:"receivable_qty" validate:"gte=0"`
	CashReceivable decimal.Decimal `json:"cash_receivable"`
	// TotalQty is optional; when supplied it must equal FullQty+EmptyQty
	// exactly, which catches corrupted snapshots at the door.
	TotalQty *int64 `json:"total_qty"`
}

// SalesEvent is one completed sale transaction. Many sales for the same
// (date, product) key arrive independently and accumulate.
type SalesEvent struct {
	EventID            string          `json:"event_id" validate:"required"`
	SaleID             snowflake.ID    `json:"sale_id" validate:"required"`
	TenantID           snowflake.ID    `json:"tenant_id" validate:"required"`
	Date               time.Time       `json:"date" validate:"required"`
	ProductID          snowflake.ID    `json:"product_id" validate:"required"`
	CylinderSizeID     snowflake.ID    `json:"cylinder_size_id" validate:"required"`
	DriverID           snowflake.ID    `json:"driver_id"`
	Type               SaleType        `json:"type" validate:"required,oneof=PACKAGE REFILL"`
	Quantity           int64           `json:"quantity" validate:"gte=0"`
	Revenue            decimal.Decimal `json:"revenue"`
	Discount           decimal.Decimal `json:"discount"`
	CashDeposited      decimal.Decimal `json:"cash_deposited"`
	CylindersDeposited int64           `json:"cylinders_deposited" validate:"gte=0"`
}

// ShipmentEvent is a shipment creation or a status transition. Completion
// events re-deliver the shipment with StatusCompleted and a completion
// timestamp, under a fresh event id.
type ShipmentEvent struct {
	EventID          string            `json:"event_id" validate:"required"`
	ShipmentID       snowflake.ID      `json:"shipment_id" validate:"required"`
	TenantID         snowflake.ID      `json:"tenant_id" validate:"required"`
	Date             time.Time         `json:"date" validate:"required"`
	ProductID        snowflake.ID      `json:"product_id" validate:"required"`
	CylinderSizeID   snowflake.ID      `json:"cylinder_size_id" validate:"required"`
	Direction        ShipmentDirection `json:"direction" validate:"required,oneof=INCOMING_FULL INCOMING_EMPTY OUTGOING_FULL OUTGOING_EMPTY"`
	Quantity         int64             `json:"quantity" validate:"gte=0"`
	Cost             decimal.Decimal   `json:"cost"`
	IsRefillPurchase bool              `json:"is_refill_purchase"`
	Status           ShipmentStatus    `json:"status" validate:"required,oneof=PENDING COMPLETED CANCELLED"`
	CompletedAt      *time.Time        `json:"completed_at"`
	CancelledAt      *time.Time        `json:"cancelled_at"`
}

// DateOnly truncates a timestamp to its UTC calendar day. Every ledger row is
// keyed by this normalized date.
func DateOnly(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// NextDay returns the exclusive end-of-day boundary for a ledger date.
func NextDay(t time.Time) time.Time {
	return DateOnly(t).AddDate(0, 0, 1)
}
