package service

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"

	ledgerdomain "github.com/smallbiznis/gastrack/internal/ledger/domain"
	"github.com/smallbiznis/gastrack/internal/shipment/domain"
)

type Params struct {
	fx.In
	DB   *gorm.DB
	Repo domain.Repository
	Log  *zap.Logger
}

type shipmentService struct {
	db   *gorm.DB
	repo domain.Repository
	log  *zap.Logger
}

func NewService(p Params) domain.Service {
	return &shipmentService{
		db:   p.DB,
		repo: p.Repo,
		log:  p.Log.Named("shipment.service"),
	}
}

func (s *shipmentService) Get(ctx context.Context, tenantID, shipmentID snowflake.ID) (*domain.ShipmentRecord, error) {
	record, err := s.repo.FindByShipmentID(ctx, s.db, tenantID, shipmentID)
	if err != nil {
		return nil, err
	}
	if record == nil {
		return nil, domain.ErrShipmentNotFound
	}
	return record, nil
}

func (s *shipmentService) OutstandingAsOf(ctx context.Context, tenantID, sizeID snowflake.ID, date time.Time) ([]domain.ShipmentRecord, error) {
	return s.repo.OutstandingAsOf(ctx, s.db, tenantID, sizeID, ledgerdomain.DateOnly(date))
}

func (s *shipmentService) OutstandingRefillQtyAsOf(ctx context.Context, tenantID, sizeID snowflake.ID, date time.Time) (int64, error) {
	return s.repo.OutstandingRefillQtyAsOf(ctx, s.db, tenantID, sizeID, ledgerdomain.DateOnly(date))
}

func (s *shipmentService) ListByStatus(ctx context.Context, tenantID snowflake.ID, status ledgerdomain.ShipmentStatus) ([]domain.ShipmentRecord, error) {
	var records []domain.ShipmentRecord
	err := s.db.WithContext(ctx).
		Where("tenant_id = ? AND status = ?", tenantID, status).
		Order("date ASC").
		Find(&records).Error
	if err != nil {
		return nil, err
	}
	return records, nil
}
