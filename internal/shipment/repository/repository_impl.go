package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	ledgerdomain "github.com/smallbiznis/gastrack/internal/ledger/domain"
	"github.com/smallbiznis/gastrack/internal/shipment/domain"
)

type shipmentRepository struct{}

// NewRepository returns the gorm-backed shipment store.
func NewRepository() domain.Repository {
	return &shipmentRepository{}
}

func (r *shipmentRepository) FindByShipmentID(ctx context.Context, tx *gorm.DB, tenantID, shipmentID snowflake.ID) (*domain.ShipmentRecord, error) {
	var record domain.ShipmentRecord
	err := tx.WithContext(ctx).
		Where("tenant_id = ? AND shipment_id = ?", tenantID, shipmentID).
		First(&record).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ledgerdomain.ErrStoreUnavailable, err)
	}
	return &record, nil
}

func (r *shipmentRepository) Save(ctx context.Context, tx *gorm.DB, record *domain.ShipmentRecord) error {
	err := tx.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "shipment_id"}},
		UpdateAll: true,
	}).Create(record).Error
	if err != nil {
		return fmt.Errorf("%w: %v", ledgerdomain.ErrStoreUnavailable, err)
	}
	return nil
}

// outstandingScope selects shipments in flight at the end of the given day:
// created on or before it, and neither completed nor cancelled within it.
func outstandingScope(tx *gorm.DB, tenantID, sizeID snowflake.ID, date time.Time) *gorm.DB {
	boundary := ledgerdomain.NextDay(date)
	return tx.Model(&domain.ShipmentRecord{}).
		Where("tenant_id = ? AND cylinder_size_id = ?", tenantID, sizeID).
		Where("date < ?", boundary).
		Where("completed_at IS NULL OR completed_at >= ?", boundary).
		Where("cancelled_at IS NULL OR cancelled_at >= ?", boundary)
}

func (r *shipmentRepository) OutstandingAsOf(ctx context.Context, tx *gorm.DB, tenantID, sizeID snowflake.ID, date time.Time) ([]domain.ShipmentRecord, error) {
	var records []domain.ShipmentRecord
	err := outstandingScope(tx.WithContext(ctx), tenantID, sizeID, date).
		Order("date ASC, shipment_id ASC").
		Find(&records).Error
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ledgerdomain.ErrStoreUnavailable, err)
	}
	return records, nil
}

func (r *shipmentRepository) OutstandingRefillQtyAsOf(ctx context.Context, tx *gorm.DB, tenantID, sizeID snowflake.ID, date time.Time) (int64, error) {
	var qty struct{ Total int64 }
	err := outstandingScope(tx.WithContext(ctx), tenantID, sizeID, date).
		Select("COALESCE(SUM(quantity), 0) AS total").
		Where("direction = ? AND is_refill_purchase = ?", ledgerdomain.DirectionIncomingFull, true).
		Scan(&qty).Error
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ledgerdomain.ErrStoreUnavailable, err)
	}
	return qty.Total, nil
}
