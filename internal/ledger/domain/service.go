package domain

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// ApplyStatus is the outcome of delivering one event to the ledger.
type ApplyStatus string

const (
	// ApplyStatusApplied means the delta was merged and committed.
	ApplyStatusApplied ApplyStatus = "APPLIED"
	// ApplyStatusDeduplicated means the event id was already recorded for
	// the key; nothing changed.
	ApplyStatusDeduplicated ApplyStatus = "DEDUPLICATED"
	// ApplyStatusRejected means validation failed; nothing was committed.
	ApplyStatusRejected ApplyStatus = "REJECTED"
)

// ApplyResult reports what one event delivery did.
type ApplyResult struct {
	Status       ApplyStatus   `json:"status"`
	Violations   []Violation   `json:"violations,omitempty"`
	BalanceFault *BalanceFault `json:"balance_fault,omitempty"`
	Day          *LedgerDay    `json:"day,omitempty"`
}

type Service interface {
	ApplyOnboarding(ctx context.Context, event OnboardingEvent) (*ApplyResult, error)
	ApplySale(ctx context.Context, event SalesEvent) (*ApplyResult, error)
	ApplyShipment(ctx context.Context, event ShipmentEvent) (*ApplyResult, error)
}

// DayFlows is the per-date flow aggregate for one cylinder size, summed over
// all of the size's products. The carry-forward calculator consumes these.
type DayFlows struct {
	Date                time.Time       `json:"date"`
	PackageSalesQty     int64           `json:"package_sales_qty"`
	RefillSalesQty      int64           `json:"refill_sales_qty"`
	PackageSalesRevenue decimal.Decimal `json:"package_sales_revenue"`
	RefillSalesRevenue  decimal.Decimal `json:"refill_sales_revenue"`
	PackagePurchaseQty  int64           `json:"package_purchase_qty"`
	RefillPurchaseQty   int64           `json:"refill_purchase_qty"`
	RefillReceivedQty   int64           `json:"refill_received_qty"`
	IncomingEmptyQty    int64           `json:"incoming_empty_qty"`
	OutgoingEmptyQty    int64           `json:"outgoing_empty_qty"`
}

// Baseline is the onboarding starting point for one cylinder size, summed
// across the size's products.
type Baseline struct {
	FullQty        int64           `json:"full_qty"`
	EmptyQty       int64           `json:"empty_qty"`
	ReceivableQty  int64           `json:"receivable_qty"`
	CashReceivable decimal.Decimal `json:"cash_receivable"`
	OnboardedAt    *time.Time      `json:"onboarded_at"`
}

// Repository is the keyed record store behind the ledger. Writes go through
// the merge engine only.
type Repository interface {
	FindDay(ctx context.Context, db *gorm.DB, key DayKey) (*LedgerDay, error)
	SaveDay(ctx context.Context, db *gorm.DB, day *LedgerDay) error
	// MarkProcessed records the event id for a ledger key. It returns false
	// when the id was already present (duplicate delivery).
	MarkProcessed(ctx context.Context, db *gorm.DB, event ProcessedEvent) (bool, error)
	HasOnboarding(ctx context.Context, db *gorm.DB, tenantID, sizeID snowflake.ID) (bool, error)
	HasAnyEvents(ctx context.Context, db *gorm.DB, tenantID, sizeID snowflake.ID) (bool, error)
	SizeFlowsByDay(ctx context.Context, db *gorm.DB, tenantID, sizeID snowflake.ID, from, to time.Time) ([]DayFlows, error)
	FindAggregateDay(ctx context.Context, db *gorm.DB, tenantID, sizeID snowflake.ID, date time.Time) (*LedgerDay, error)
	OnboardingBaseline(ctx context.Context, db *gorm.DB, tenantID, sizeID snowflake.ID) (*Baseline, error)
}

var (
	// ErrMissingTenant is a programmer error, not a validation outcome.
	ErrMissingTenant = errors.New("missing_tenant")
	// ErrStoreUnavailable wraps record-store failures; retryable.
	ErrStoreUnavailable = errors.New("store_unavailable")
)
