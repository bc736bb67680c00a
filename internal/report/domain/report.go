// Package domain defines the reconciled daily ledger views. The recompute
// engine carries balances forward per cylinder size, writes the results back
// as per-size aggregate rows, and reports clamps and gaps as diagnostics
// instead of failing the day.
package domain

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
)

// DayStatus grades one recomputed day.
type DayStatus string

const (
	// DayStatusOK means every figure was derived from complete inputs.
	DayStatusOK DayStatus = "OK"
	// DayStatusDegraded means the day was computed but a figure had to be
	// clamped or an input was missing; diagnostics say which.
	DayStatusDegraded DayStatus = "DEGRADED"
	// DayStatusFailed means the day could not be computed at all.
	DayStatusFailed DayStatus = "FAILED"
)

// Diagnostic explains one adjustment made while reconciling a day. Raw keeps
// the pre-clamp value so auditors can see how far off the books were.
type Diagnostic struct {
	Field   string `json:"field"`
	Raw     int64  `json:"raw"`
	Clamped int64  `json:"clamped"`
	Message string `json:"message"`
}

// SizeDay is the reconciled position of one cylinder size at the end of one
// day.
type SizeDay struct {
	Date           time.Time    `json:"date"`
	CylinderSizeID snowflake.ID `json:"cylinder_size_id"`

	FullCylinders        int64 `json:"full_cylinders"`
	EmptyCylinders       int64 `json:"empty_cylinders"`
	OutstandingRefillQty int64 `json:"outstanding_refill_qty"`
	TotalCylinders       int64 `json:"total_cylinders"`

	EmptyCylinderReceivables int64 `json:"empty_cylinder_receivables"`
	EmptyInStock             int64 `json:"empty_in_stock"`

	PackageSalesQty     int64           `json:"package_sales_qty"`
	RefillSalesQty      int64           `json:"refill_sales_qty"`
	PackageSalesRevenue decimal.Decimal `json:"package_sales_revenue"`
	RefillSalesRevenue  decimal.Decimal `json:"refill_sales_revenue"`

	TotalCashReceivables decimal.Decimal `json:"total_cash_receivables"`

	Status      DayStatus    `json:"status"`
	Diagnostics []Diagnostic `json:"diagnostics,omitempty"`
}

// RangeReport is a contiguous run of reconciled days for one size.
type RangeReport struct {
	TenantID       snowflake.ID `json:"tenant_id"`
	CylinderSizeID snowflake.ID `json:"cylinder_size_id"`
	From           time.Time    `json:"from"`
	To             time.Time    `json:"to"`
	Days           []SizeDay    `json:"days"`
}

// SizeBreakdown is one size's slice of a tenant-wide daily report.
type SizeBreakdown struct {
	CylinderSizeID snowflake.ID `json:"cylinder_size_id"`
	SizeCode       string       `json:"size_code"`
	Day            SizeDay      `json:"day"`
}

// DailyReport is the tenant-wide position for one date, one breakdown per
// active cylinder size.
type DailyReport struct {
	TenantID  snowflake.ID    `json:"tenant_id"`
	Date      time.Time       `json:"date"`
	Status    DayStatus       `json:"status"`
	Breakdown []SizeBreakdown `json:"breakdown"`
}

// Service recomputes and serves the reconciled views.
type Service interface {
	// RecomputeSize rebuilds one size's carry-forward chain over the date
	// range and persists the aggregate rows. The returned report reflects
	// what was written.
	RecomputeSize(ctx context.Context, tenantID, sizeID snowflake.ID, from, to time.Time) (*RangeReport, error)
	// RecomputeTenant rebuilds every active size of the tenant, sizes in
	// parallel. Per-size failures degrade the run, never abort it.
	RecomputeTenant(ctx context.Context, tenantID snowflake.ID, from, to time.Time) error
	DailyReport(ctx context.Context, tenantID snowflake.ID, date time.Time) (*DailyReport, error)
	RangeReport(ctx context.Context, tenantID, sizeID snowflake.ID, from, to time.Time) (*RangeReport, error)
}

var (
	ErrInvalidRange = errors.New("invalid_date_range")
	ErrNoBaseline   = errors.New("no_onboarding_baseline")
)
