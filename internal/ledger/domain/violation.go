package domain

import "fmt"

// Violation is one business-rule failure. Violations are returned as data so
// batch importers can report every problem in one pass instead of stopping at
// the first.
type Violation struct {
	Field   string `json:"field"`
	Message string `json:"message"`
	Value   any    `json:"value,omitempty"`
}

func (v Violation) String() string {
	return fmt.Sprintf("%s: %s (got %v)", v.Field, v.Message, v.Value)
}

// BalanceFault records a broken balance identity found after a merge. The
// merge is still committed (the ledger must stay available even when upstream
// data is inconsistent) but the fault is surfaced for manual review.
type BalanceFault struct {
	Key            DayKey `json:"key"`
	FullCylinders  int64  `json:"full_cylinders"`
	EmptyCylinders int64  `json:"empty_cylinders"`
	TotalCylinders int64  `json:"total_cylinders"`
}

func (f *BalanceFault) Error() string {
	return fmt.Sprintf("ledger balance fault: total %d != full %d + empty %d",
		f.TotalCylinders, f.FullCylinders, f.EmptyCylinders)
}
