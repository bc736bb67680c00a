package service

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"

	ledgerdomain "github.com/smallbiznis/gastrack/internal/ledger/domain"
	"github.com/smallbiznis/gastrack/internal/receivable/domain"
)

type Params struct {
	fx.In
	DB   *gorm.DB
	Repo domain.Repository
	Log  *zap.Logger
}

type receivableService struct {
	db   *gorm.DB
	repo domain.Repository
	log  *zap.Logger
}

func NewService(p Params) domain.Service {
	return &receivableService{
		db:   p.DB,
		repo: p.Repo,
		log:  p.Log.Named("receivable.service"),
	}
}

// fold walks a driver's activity in date order and applies the running
// clamp: each day's balance is the previous balance plus what was sold minus
// what was deposited, floored at zero. An over-deposit forgives nothing
// beyond the outstanding amount.
func fold(days []domain.DriverDay) (int64, decimal.Decimal) {
	var cylinders int64
	cash := decimal.Zero
	for _, day := range days {
		cylinders += day.RefillQtySold - day.CylindersDeposited
		if cylinders < 0 {
			cylinders = 0
		}
		cash = cash.Add(day.Revenue).Sub(day.CashDeposited)
		if cash.IsNegative() {
			cash = decimal.Zero
		}
	}
	return cylinders, cash
}

func (s *receivableService) DriverBalanceAsOf(ctx context.Context, tenantID, driverID, sizeID snowflake.ID, date time.Time) (*domain.DriverBalance, error) {
	days, err := s.repo.DaysThrough(ctx, s.db, tenantID, driverID, sizeID, ledgerdomain.DateOnly(date))
	if err != nil {
		return nil, err
	}
	cylinders, cash := fold(days)
	return &domain.DriverBalance{
		DriverID:        driverID,
		CylinderSizeID:  sizeID,
		CylinderBalance: cylinders,
		CashBalance:     cash,
	}, nil
}

func (s *receivableService) BalancesAsOf(ctx context.Context, tenantID, sizeID snowflake.ID, date time.Time) ([]domain.DriverBalance, error) {
	through := ledgerdomain.DateOnly(date)
	drivers, err := s.repo.DriversWithActivity(ctx, s.db, tenantID, sizeID, through)
	if err != nil {
		return nil, err
	}
	balances := make([]domain.DriverBalance, 0, len(drivers))
	for _, driverID := range drivers {
		days, err := s.repo.DaysThrough(ctx, s.db, tenantID, driverID, sizeID, through)
		if err != nil {
			return nil, err
		}
		cylinders, cash := fold(days)
		balances = append(balances, domain.DriverBalance{
			DriverID:        driverID,
			CylinderSizeID:  sizeID,
			CylinderBalance: cylinders,
			CashBalance:     cash,
		})
	}
	return balances, nil
}

func (s *receivableService) TotalEmptyReceivablesAsOf(ctx context.Context, tenantID, sizeID snowflake.ID, date time.Time) (int64, error) {
	balances, err := s.BalancesAsOf(ctx, tenantID, sizeID, date)
	if err != nil {
		return 0, err
	}
	var total int64
	for _, b := range balances {
		total += b.CylinderBalance
	}
	return total, nil
}

func (s *receivableService) TotalCashReceivablesAsOf(ctx context.Context, tenantID, sizeID snowflake.ID, date time.Time) (decimal.Decimal, error) {
	balances, err := s.BalancesAsOf(ctx, tenantID, sizeID, date)
	if err != nil {
		return decimal.Zero, err
	}
	total := decimal.Zero
	for _, b := range balances {
		total = total.Add(b.CashBalance)
	}
	return total, nil
}
