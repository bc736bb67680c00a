// Package merge is the ledger upsert core. It combines a validated delta
// with the existing per-day record using the field-policy registry: replace
// for point-in-time facts, accumulate for flows.
package merge

import (
	ledgerdomain "github.com/smallbiznis/gastrack/internal/ledger/domain"
)

// Merge produces the merged row for a delta. existing may be nil when the
// key has never been written. The returned fault, when non-nil, means the
// delta replaced all three balance fields with values that break
// total == full + empty; the merged row is still returned because the ledger
// never blocks on inconsistent upstream data.
func Merge(existing *ledgerdomain.LedgerDay, delta ledgerdomain.Delta) (*ledgerdomain.LedgerDay, *ledgerdomain.BalanceFault) {
	var result ledgerdomain.LedgerDay
	if existing != nil {
		result = *existing
	} else {
		result = ledgerdomain.LedgerDay{
			TenantID:       delta.TenantID,
			Date:           delta.Date,
			ProductID:      delta.ProductID,
			CylinderSizeID: delta.CylinderSizeID,
		}
	}

	for field, value := range delta.Quantities {
		spec, ok := ledgerdomain.QuantityFields[field]
		if !ok {
			continue
		}
		switch spec.Policy {
		case ledgerdomain.PolicyAccumulate:
			spec.Set(&result, spec.Get(&result)+value)
		default:
			spec.Set(&result, value)
		}
	}

	for field, value := range delta.Amounts {
		spec, ok := ledgerdomain.AmountFields[field]
		if !ok {
			continue
		}
		switch spec.Policy {
		case ledgerdomain.PolicyAccumulate:
			spec.Set(&result, spec.Get(&result).Add(value))
		default:
			spec.Set(&result, value)
		}
	}

	if delta.OnboardingDate != nil {
		onboarded := *delta.OnboardingDate
		result.OnboardingDate = &onboarded
	}

	var fault *ledgerdomain.BalanceFault
	if delta.TouchesBalance() {
		if result.TotalCylinders != result.FullCylinders+result.EmptyCylinders {
			fault = &ledgerdomain.BalanceFault{
				Key:            result.Key(),
				FullCylinders:  result.FullCylinders,
				EmptyCylinders: result.EmptyCylinders,
				TotalCylinders: result.TotalCylinders,
			}
		}
	}

	return &result, fault
}
