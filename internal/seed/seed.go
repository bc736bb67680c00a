// Package seed bootstraps a demo tenant so a fresh install has data to look
// at: two cylinder sizes, a product and a driver per size, and the opening
// inventory snapshot.
package seed

import (
	"context"
	"errors"
	"math/rand"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/google/uuid"
	"github.com/oklog/ulid/v2"
	"gorm.io/gorm"

	catalogdomain "github.com/smallbiznis/gastrack/internal/catalog/domain"
	ledgerdomain "github.com/smallbiznis/gastrack/internal/ledger/domain"
)

const demoTenantName = "Demo Gas Distributor"

type demoSize struct {
	code      string
	name      string
	sku       string
	product   string
	fullQty   int64
	emptyQty  int64
	driver    string
	driverKey string
}

var demoSizes = []demoSize{
	{code: "12KG", name: "12 kg cylinder", sku: "GAS-12", product: "LPG 12kg", fullQty: 100, emptyQty: 50, driver: "Demo Driver A", driverKey: "DRV-A"},
	{code: "50KG", name: "50 kg cylinder", sku: "GAS-50", product: "LPG 50kg", fullQty: 40, emptyQty: 10, driver: "Demo Driver B", driverKey: "DRV-B"},
}

// EnsureDemoTenant seeds the demo tenant once; reruns are no-ops.
func EnsureDemoTenant(db *gorm.DB) error {
	if db == nil {
		return errors.New("seed database handle is required")
	}

	node, err := snowflake.NewNode(1)
	if err != nil {
		return err
	}

	ctx := context.Background()
	return db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var existing catalogdomain.Tenant
		err := tx.Where("name = ?", demoTenantName).First(&existing).Error
		if err == nil {
			return nil
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}

		tenant := catalogdomain.Tenant{
			ID:          node.Generate(),
			ExternalRef: uuid.NewString(),
			Name:        demoTenantName,
			Timezone:    "UTC",
			Active:      true,
		}
		if err := tx.Create(&tenant).Error; err != nil {
			return err
		}

		today := ledgerdomain.DateOnly(time.Now())
		entropy := ulid.Monotonic(rand.New(rand.NewSource(today.UnixNano())), 0)

		for _, spec := range demoSizes {
			size := catalogdomain.CylinderSize{
				ID:       node.Generate(),
				TenantID: tenant.ID,
				Code:     spec.code,
				Name:     spec.name,
				Active:   true,
			}
			if err := tx.Create(&size).Error; err != nil {
				return err
			}

			product := catalogdomain.Product{
				ID:             node.Generate(),
				TenantID:       tenant.ID,
				CylinderSizeID: size.ID,
				SKU:            spec.sku,
				Name:           spec.product,
				Active:         true,
			}
			if err := tx.Create(&product).Error; err != nil {
				return err
			}

			driver := catalogdomain.Driver{
				ID:       node.Generate(),
				TenantID: tenant.ID,
				Code:     spec.driverKey,
				Name:     spec.driver,
				Active:   true,
			}
			if err := tx.Create(&driver).Error; err != nil {
				return err
			}

			eventID := ulid.MustNew(ulid.Timestamp(today), entropy).String()
			row := ledgerdomain.LedgerDay{
				TenantID:           tenant.ID,
				Date:               today,
				ProductID:          product.ID,
				CylinderSizeID:     size.ID,
				OnboardingDate:     &today,
				OnboardingFullQty:  spec.fullQty,
				OnboardingEmptyQty: spec.emptyQty,
				FullCylinders:      spec.fullQty,
				EmptyCylinders:     spec.emptyQty,
				TotalCylinders:     spec.fullQty + spec.emptyQty,
			}
			if err := tx.Create(&row).Error; err != nil {
				return err
			}
			if err := tx.Create(&ledgerdomain.ProcessedEvent{
				TenantID:       tenant.ID,
				Date:           today,
				ProductID:      product.ID,
				CylinderSizeID: size.ID,
				EventID:        eventID,
			}).Error; err != nil {
				return err
			}
		}

		return nil
	})
}
