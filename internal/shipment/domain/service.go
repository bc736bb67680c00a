package domain

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"

	ledgerdomain "github.com/smallbiznis/gastrack/internal/ledger/domain"
)

// Repository is the transactional store for shipment state. The ledger apply
// path reads prior status and upserts the record inside its own transaction.
type Repository interface {
	FindByShipmentID(ctx context.Context, tx *gorm.DB, tenantID, shipmentID snowflake.ID) (*ShipmentRecord, error)
	Save(ctx context.Context, tx *gorm.DB, record *ShipmentRecord) error
	OutstandingAsOf(ctx context.Context, tx *gorm.DB, tenantID, sizeID snowflake.ID, date time.Time) ([]ShipmentRecord, error)
	OutstandingRefillQtyAsOf(ctx context.Context, tx *gorm.DB, tenantID, sizeID snowflake.ID, date time.Time) (int64, error)
}

// Service is the query surface over shipment history.
type Service interface {
	Get(ctx context.Context, tenantID, shipmentID snowflake.ID) (*ShipmentRecord, error)
	// OutstandingAsOf reconstructs the shipments that were in flight at the
	// end of the given day, regardless of what has happened to them since.
	OutstandingAsOf(ctx context.Context, tenantID, sizeID snowflake.ID, date time.Time) ([]ShipmentRecord, error)
	OutstandingRefillQtyAsOf(ctx context.Context, tenantID, sizeID snowflake.ID, date time.Time) (int64, error)
	ListByStatus(ctx context.Context, tenantID snowflake.ID, status ledgerdomain.ShipmentStatus) ([]ShipmentRecord, error)
}

var (
	ErrShipmentNotFound = errors.New("shipment_not_found")
)
