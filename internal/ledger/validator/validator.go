// Package validator guards the ledger: every event is checked against the
// tenant catalog and the event-sequence rules before it may produce a delta.
// Business-rule failures come back as data, never as errors.
package validator

import (
	"fmt"
	"time"

	"github.com/bwmarrin/snowflake"
	playground "github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"
	catalogdomain "github.com/smallbiznis/gastrack/internal/catalog/domain"
	ledgerdomain "github.com/smallbiznis/gastrack/internal/ledger/domain"
)

// Context carries everything the rules need besides the event itself. The
// caller resolves catalog references and sequence state; the validator stays
// a pure function of its inputs.
type Context struct {
	Size           *catalogdomain.CylinderSize
	Product        *catalogdomain.Product
	Driver         *catalogdomain.Driver
	HasOnboarding  bool
	HasPriorEvents bool
	Now            time.Time
}

type Validator struct {
	check *playground.Validate
}

func New() *Validator {
	return &Validator{check: playground.New()}
}

// ValidateOnboarding returns all rule violations for an onboarding snapshot.
// An empty list means the event may be applied.
func (v *Validator) ValidateOnboarding(event ledgerdomain.OnboardingEvent, vctx Context) ([]ledgerdomain.Violation, error) {
	if event.TenantID == 0 {
		return nil, ledgerdomain.ErrMissingTenant
	}

	violations := v.structViolations(event)
	violations = append(violations, commonViolations(event.Date, event.ProductID, event.CylinderSizeID, vctx)...)
	violations = appendNegative(violations, "cash_receivable", event.CashReceivable)

	if vctx.HasOnboarding {
		violations = append(violations, ledgerdomain.Violation{
			Field:   "cylinder_size_id",
			Message: "cylinder size is already onboarded; onboarding cannot be recorded twice",
			Value:   event.CylinderSizeID.String(),
		})
	} else if vctx.HasPriorEvents {
		violations = append(violations, ledgerdomain.Violation{
			Field:   "cylinder_size_id",
			Message: "onboarding must be the first event recorded for a cylinder size",
			Value:   event.CylinderSizeID.String(),
		})
	}

	if event.FullQty == 0 && event.EmptyQty == 0 && event.ReceivableQty == 0 && event.CashReceivable.IsZero() {
		violations = append(violations, ledgerdomain.Violation{
			Field:   "full_qty",
			Message: "onboarding must record at least one non-zero quantity",
		})
	}

	if event.TotalQty != nil {
		want := event.FullQty + event.EmptyQty
		if *event.TotalQty != want {
			violations = append(violations, ledgerdomain.Violation{
				Field:   "total_qty",
				Message: fmt.Sprintf("total must equal full + empty: computed %d, provided %d", want, *event.TotalQty),
				Value:   *event.TotalQty,
			})
		}
	}

	return violations, nil
}

// ValidateSale returns all rule violations for a sale transaction.
func (v *Validator) ValidateSale(event ledgerdomain.SalesEvent, vctx Context) ([]ledgerdomain.Violation, error) {
	if event.TenantID == 0 {
		return nil, ledgerdomain.ErrMissingTenant
	}

	violations := v.structViolations(event)
	violations = append(violations, commonViolations(event.Date, event.ProductID, event.CylinderSizeID, vctx)...)
	violations = appendNegative(violations, "revenue", event.Revenue)
	violations = appendNegative(violations, "discount", event.Discount)
	violations = appendNegative(violations, "cash_deposited", event.CashDeposited)
	violations = append(violations, sequenceViolations(event.CylinderSizeID, vctx)...)

	if event.DriverID != 0 {
		switch {
		case vctx.Driver == nil:
			violations = append(violations, ledgerdomain.Violation{
				Field:   "driver_id",
				Message: "driver does not belong to tenant",
				Value:   event.DriverID.String(),
			})
		case !vctx.Driver.Active:
			violations = append(violations, ledgerdomain.Violation{
				Field:   "driver_id",
				Message: "driver is inactive",
				Value:   event.DriverID.String(),
			})
		}
	}

	return violations, nil
}

// ValidateShipment returns all rule violations for a shipment event.
func (v *Validator) ValidateShipment(event ledgerdomain.ShipmentEvent, vctx Context) ([]ledgerdomain.Violation, error) {
	if event.TenantID == 0 {
		return nil, ledgerdomain.ErrMissingTenant
	}

	violations := v.structViolations(event)
	violations = append(violations, commonViolations(event.Date, event.ProductID, event.CylinderSizeID, vctx)...)
	violations = appendNegative(violations, "cost", event.Cost)
	violations = append(violations, sequenceViolations(event.CylinderSizeID, vctx)...)

	if event.Status == ledgerdomain.ShipmentStatusCompleted && event.CompletedAt == nil {
		violations = append(violations, ledgerdomain.Violation{
			Field:   "completed_at",
			Message: "completed shipments must carry a completion timestamp",
		})
	}

	return violations, nil
}

func (v *Validator) structViolations(event any) []ledgerdomain.Violation {
	err := v.check.Struct(event)
	if err == nil {
		return nil
	}
	fieldErrs, ok := err.(playground.ValidationErrors)
	if !ok {
		return []ledgerdomain.Violation{{Field: "event", Message: err.Error()}}
	}
	violations := make([]ledgerdomain.Violation, 0, len(fieldErrs))
	for _, fe := range fieldErrs {
		violations = append(violations, ledgerdomain.Violation{
			Field:   fe.Field(),
			Message: fmt.Sprintf("failed %q constraint", fe.Tag()),
			Value:   fe.Value(),
		})
	}
	return violations
}

func commonViolations(date time.Time, productID, sizeID snowflake.ID, vctx Context) []ledgerdomain.Violation {
	var violations []ledgerdomain.Violation

	if ledgerdomain.DateOnly(date).After(ledgerdomain.DateOnly(vctx.Now)) {
		violations = append(violations, ledgerdomain.Violation{
			Field:   "date",
			Message: "date must not be in the future",
			Value:   date.Format(time.DateOnly),
		})
	}

	if vctx.Size == nil {
		violations = append(violations, ledgerdomain.Violation{
			Field:   "cylinder_size_id",
			Message: "cylinder size does not belong to tenant",
			Value:   sizeID.String(),
		})
	} else if !vctx.Size.Active {
		violations = append(violations, ledgerdomain.Violation{
			Field:   "cylinder_size_id",
			Message: "cylinder size is inactive",
			Value:   sizeID.String(),
		})
	}

	if productID != 0 {
		switch {
		case vctx.Product == nil:
			violations = append(violations, ledgerdomain.Violation{
				Field:   "product_id",
				Message: "product does not belong to tenant",
				Value:   productID.String(),
			})
		case !vctx.Product.Active:
			violations = append(violations, ledgerdomain.Violation{
				Field:   "product_id",
				Message: "product is inactive",
				Value:   productID.String(),
			})
		case vctx.Size != nil && vctx.Product.CylinderSizeID != vctx.Size.ID:
			violations = append(violations, ledgerdomain.Violation{
				Field:   "cylinder_size_id",
				Message: "product belongs to a different cylinder size",
				Value:   sizeID.String(),
			})
		}
	}

	return violations
}

func sequenceViolations(sizeID snowflake.ID, vctx Context) []ledgerdomain.Violation {
	if vctx.HasOnboarding {
		return nil
	}
	return []ledgerdomain.Violation{{
		Field:   "cylinder_size_id",
		Message: "no onboarding recorded for cylinder size; onboarding must come first",
		Value:   sizeID.String(),
	}}
}

func appendNegative(violations []ledgerdomain.Violation, field string, amount decimal.Decimal) []ledgerdomain.Violation {
	if !amount.IsNegative() {
		return violations
	}
	return append(violations, ledgerdomain.Violation{
		Field:   field,
		Message: "amount must not be negative",
		Value:   amount.String(),
	})
}
