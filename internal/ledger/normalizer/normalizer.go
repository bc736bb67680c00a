// Package normalizer converts raw domain events into typed deltas tagged with
// field-level merge policies. It is a pure transform with no side effects.
package normalizer

import (
	"github.com/shopspring/decimal"
	ledgerdomain "github.com/smallbiznis/gastrack/internal/ledger/domain"
)

// MoneyPrecision is the fixed decimal precision for monetary amounts.
// Rounding here prevents floating-point drift across repeated accumulation.
const MoneyPrecision = 2

// Onboarding turns an onboarding snapshot into a replace-only delta.
func Onboarding(event ledgerdomain.OnboardingEvent) ledgerdomain.Delta {
	date := ledgerdomain.DateOnly(event.Date)
	return ledgerdomain.Delta{
		EventID:        event.EventID,
		Kind:           ledgerdomain.KindOnboarding,
		TenantID:       event.TenantID,
		Date:           date,
		ProductID:      event.ProductID,
		CylinderSizeID: event.CylinderSizeID,
		OnboardingDate: &date,
		Quantities: map[ledgerdomain.Field]int64{
			ledgerdomain.FieldOnboardingFullQty:       event.FullQty,
			ledgerdomain.FieldOnboardingEmptyQty:      event.EmptyQty,
			ledgerdomain.FieldOnboardingReceivableQty: event.ReceivableQty,
		},
		Amounts: map[ledgerdomain.Field]decimal.Decimal{
			ledgerdomain.FieldOnboardingCashReceivable: round(event.CashReceivable),
		},
	}
}

// Sale turns one sale transaction into an accumulating delta. Revenue is
// recorded net of discount.
func Sale(event ledgerdomain.SalesEvent) ledgerdomain.Delta {
	revenue := round(event.Revenue.Sub(event.Discount))

	quantities := make(map[ledgerdomain.Field]int64, 1)
	amounts := make(map[ledgerdomain.Field]decimal.Decimal, 1)
	switch event.Type {
	case ledgerdomain.SaleTypeRefill:
		quantities[ledgerdomain.FieldRefillSalesQty] = event.Quantity
		amounts[ledgerdomain.FieldRefillSalesRevenue] = revenue
	default:
		quantities[ledgerdomain.FieldPackageSalesQty] = event.Quantity
		amounts[ledgerdomain.FieldPackageSalesRevenue] = revenue
	}

	delta := ledgerdomain.Delta{
		EventID:        event.EventID,
		Kind:           ledgerdomain.KindSale,
		TenantID:       event.TenantID,
		Date:           ledgerdomain.DateOnly(event.Date),
		ProductID:      event.ProductID,
		CylinderSizeID: event.CylinderSizeID,
		Quantities:     quantities,
		Amounts:        amounts,

		DriverID:           event.DriverID,
		CylindersDeposited: event.CylindersDeposited,
		Revenue:            revenue,
		CashDeposited:      round(event.CashDeposited),
	}
	if event.Type == ledgerdomain.SaleTypeRefill {
		delta.RefillQtySold = event.Quantity
	}
	return delta
}

// Shipment turns a shipment event into an accumulating delta. Refill-tagged
// incoming-full shipments book the refill purchase at creation whatever their
// status: the empties were already handed over in exchange. The full
// cylinders only arrive on completion, booked as refill_received_qty on the
// completion day so the outstanding window and the stock never overlap.
// Every other flow lands once, on the day the shipment completes.
//
// prior is the shipment's last known status, nil on first delivery. It keeps
// a completion re-delivery from re-counting flows already booked at creation.
func Shipment(event ledgerdomain.ShipmentEvent, prior *ledgerdomain.ShipmentStatus) ledgerdomain.Delta {
	completed := event.Status == ledgerdomain.ShipmentStatusCompleted
	wasCompleted := prior != nil && *prior == ledgerdomain.ShipmentStatusCompleted
	newlyCompleted := completed && !wasCompleted
	creation := prior == nil

	date := ledgerdomain.DateOnly(event.Date)
	if newlyCompleted && event.CompletedAt != nil {
		date = ledgerdomain.DateOnly(*event.CompletedAt)
	}

	quantities := make(map[ledgerdomain.Field]int64, 2)
	amounts := make(map[ledgerdomain.Field]decimal.Decimal, 1)

	switch event.Direction {
	case ledgerdomain.DirectionIncomingFull:
		if event.IsRefillPurchase {
			if creation {
				quantities[ledgerdomain.FieldRefillPurchaseQty] = event.Quantity
				amounts[ledgerdomain.FieldShipmentCost] = round(event.Cost)
			}
			if newlyCompleted {
				quantities[ledgerdomain.FieldRefillReceivedQty] = event.Quantity
			}
		} else if newlyCompleted {
			quantities[ledgerdomain.FieldPackagePurchaseQty] = event.Quantity
			amounts[ledgerdomain.FieldShipmentCost] = round(event.Cost)
		}
		if newlyCompleted {
			quantities[ledgerdomain.FieldIncomingFullQty] = event.Quantity
		}
	case ledgerdomain.DirectionIncomingEmpty:
		if newlyCompleted {
			quantities[ledgerdomain.FieldIncomingEmptyQty] = event.Quantity
			amounts[ledgerdomain.FieldShipmentCost] = round(event.Cost)
		}
	case ledgerdomain.DirectionOutgoingFull:
		if newlyCompleted {
			quantities[ledgerdomain.FieldOutgoingFullQty] = event.Quantity
			amounts[ledgerdomain.FieldShipmentCost] = round(event.Cost)
		}
	case ledgerdomain.DirectionOutgoingEmpty:
		if newlyCompleted {
			quantities[ledgerdomain.FieldOutgoingEmptyQty] = event.Quantity
			amounts[ledgerdomain.FieldShipmentCost] = round(event.Cost)
		}
	}

	return ledgerdomain.Delta{
		EventID:        event.EventID,
		Kind:           ledgerdomain.KindShipment,
		TenantID:       event.TenantID,
		Date:           date,
		ProductID:      event.ProductID,
		CylinderSizeID: event.CylinderSizeID,
		Quantities:     quantities,
		Amounts:        amounts,
	}
}

func round(v decimal.Decimal) decimal.Decimal {
	return v.Round(MoneyPrecision)
}
