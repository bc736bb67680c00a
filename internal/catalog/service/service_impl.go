package service

import (
	"context"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/google/uuid"
	catalogdomain "github.com/smallbiznis/gastrack/internal/catalog/domain"
	"github.com/smallbiznis/gastrack/pkg/db"
	"github.com/smallbiznis/gastrack/pkg/repository"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB    *gorm.DB
	Log   *zap.Logger
	GenID *snowflake.Node
}

type Service struct {
	db    *gorm.DB
	log   *zap.Logger
	genID *snowflake.Node

	tenants  repository.Repository[catalogdomain.Tenant]
	sizes    repository.Repository[catalogdomain.CylinderSize]
	products repository.Repository[catalogdomain.Product]
	drivers  repository.Repository[catalogdomain.Driver]
}

func NewService(p Params) catalogdomain.Service {
	return &Service{
		db:    p.DB,
		log:   p.Log.Named("catalog.service"),
		genID: p.GenID,

		tenants:  repository.ProvideStore[catalogdomain.Tenant](p.DB),
		sizes:    repository.ProvideStore[catalogdomain.CylinderSize](p.DB),
		products: repository.ProvideStore[catalogdomain.Product](p.DB),
		drivers:  repository.ProvideStore[catalogdomain.Driver](p.DB),
	}
}

func (s *Service) CreateTenant(ctx context.Context, req catalogdomain.CreateTenantRequest) (*catalogdomain.Tenant, error) {
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return nil, catalogdomain.ErrInvalidName
	}
	timezone := strings.TrimSpace(req.Timezone)
	if timezone == "" {
		timezone = "UTC"
	}

	tenant := &catalogdomain.Tenant{
		ID:          s.genID.Generate(),
		ExternalRef: uuid.NewString(),
		Name:        name,
		Timezone:    timezone,
		Active:      true,
	}
	if err := s.tenants.Create(ctx, tenant); err != nil {
		return nil, err
	}
	return tenant, nil
}

func (s *Service) GetTenant(ctx context.Context, id snowflake.ID) (*catalogdomain.Tenant, error) {
	if id == 0 {
		return nil, catalogdomain.ErrInvalidTenant
	}
	tenant, err := s.tenants.FindOne(ctx, &catalogdomain.Tenant{ID: id})
	if err != nil {
		return nil, err
	}
	if tenant == nil {
		return nil, catalogdomain.ErrTenantNotFound
	}
	return tenant, nil
}

func (s *Service) ListActiveTenants(ctx context.Context) ([]catalogdomain.Tenant, error) {
	rows, err := s.tenants.Find(ctx, &catalogdomain.Tenant{Active: true})
	if err != nil {
		return nil, err
	}
	tenants := make([]catalogdomain.Tenant, 0, len(rows))
	for _, row := range rows {
		tenants = append(tenants, *row)
	}
	return tenants, nil
}

func (s *Service) CreateCylinderSize(ctx context.Context, req catalogdomain.CreateCylinderSizeRequest) (*catalogdomain.CylinderSize, error) {
	if req.TenantID == 0 {
		return nil, catalogdomain.ErrInvalidTenant
	}
	code := strings.TrimSpace(req.Code)
	if code == "" {
		return nil, catalogdomain.ErrInvalidCode
	}
	name := strings.TrimSpace(req.Name)
	if name == "" {
		name = code
	}

	size := &catalogdomain.CylinderSize{
		ID:       s.genID.Generate(),
		TenantID: req.TenantID,
		Code:     code,
		Name:     name,
		Active:   true,
	}
	if err := s.sizes.Create(ctx, size); err != nil {
		if db.IsDuplicateKeyErr(err) {
			return nil, catalogdomain.ErrDuplicateCode
		}
		return nil, err
	}
	return size, nil
}

func (s *Service) GetCylinderSize(ctx context.Context, tenantID, id snowflake.ID) (*catalogdomain.CylinderSize, error) {
	if tenantID == 0 {
		return nil, catalogdomain.ErrInvalidTenant
	}
	size, err := s.sizes.FindOne(ctx, &catalogdomain.CylinderSize{ID: id, TenantID: tenantID})
	if err != nil {
		return nil, err
	}
	if size == nil {
		return nil, catalogdomain.ErrSizeNotFound
	}
	return size, nil
}

func (s *Service) ListActiveCylinderSizes(ctx context.Context, tenantID snowflake.ID) ([]catalogdomain.CylinderSize, error) {
	if tenantID == 0 {
		return nil, catalogdomain.ErrInvalidTenant
	}
	rows, err := s.sizes.Find(ctx, &catalogdomain.CylinderSize{TenantID: tenantID, Active: true})
	if err != nil {
		return nil, err
	}
	sizes := make([]catalogdomain.CylinderSize, 0, len(rows))
	for _, row := range rows {
		sizes = append(sizes, *row)
	}
	return sizes, nil
}

func (s *Service) DeactivateCylinderSize(ctx context.Context, tenantID, id snowflake.ID) error {
	if _, err := s.GetCylinderSize(ctx, tenantID, id); err != nil {
		return err
	}
	return s.sizes.Update(ctx, id.String(), map[string]any{"active": false})
}

func (s *Service) CreateProduct(ctx context.Context, req catalogdomain.CreateProductRequest) (*catalogdomain.Product, error) {
	if req.TenantID == 0 {
		return nil, catalogdomain.ErrInvalidTenant
	}
	sku := strings.TrimSpace(req.SKU)
	if sku == "" {
		return nil, catalogdomain.ErrInvalidCode
	}
	// The size reference is immutable after creation, so it must exist and
	// belong to the same tenant up front.
	size, err := s.GetCylinderSize(ctx, req.TenantID, req.CylinderSizeID)
	if err != nil {
		return nil, err
	}

	product := &catalogdomain.Product{
		ID:             s.genID.Generate(),
		TenantID:       req.TenantID,
		CylinderSizeID: size.ID,
		SKU:            sku,
		Name:           strings.TrimSpace(req.Name),
		Active:         true,
	}
	if err := s.products.Create(ctx, product); err != nil {
		if db.IsDuplicateKeyErr(err) {
			return nil, catalogdomain.ErrDuplicateCode
		}
		return nil, err
	}
	return product, nil
}

func (s *Service) GetProduct(ctx context.Context, tenantID, id snowflake.ID) (*catalogdomain.Product, error) {
	if tenantID == 0 {
		return nil, catalogdomain.ErrInvalidTenant
	}
	product, err := s.products.FindOne(ctx, &catalogdomain.Product{ID: id, TenantID: tenantID})
	if err != nil {
		return nil, err
	}
	if product == nil {
		return nil, catalogdomain.ErrProductNotFound
	}
	return product, nil
}

func (s *Service) ListProductsBySize(ctx context.Context, tenantID, sizeID snowflake.ID) ([]catalogdomain.Product, error) {
	if tenantID == 0 {
		return nil, catalogdomain.ErrInvalidTenant
	}
	rows, err := s.products.Find(ctx, &catalogdomain.Product{TenantID: tenantID, CylinderSizeID: sizeID})
	if err != nil {
		return nil, err
	}
	products := make([]catalogdomain.Product, 0, len(rows))
	for _, row := range rows {
		products = append(products, *row)
	}
	return products, nil
}

func (s *Service) CreateDriver(ctx context.Context, req catalogdomain.CreateDriverRequest) (*catalogdomain.Driver, error) {
	if req.TenantID == 0 {
		return nil, catalogdomain.ErrInvalidTenant
	}
	code := strings.TrimSpace(req.Code)
	if code == "" {
		return nil, catalogdomain.ErrInvalidCode
	}

	driver := &catalogdomain.Driver{
		ID:       s.genID.Generate(),
		TenantID: req.TenantID,
		Code:     code,
		Name:     strings.TrimSpace(req.Name),
		Active:   true,
	}
	if err := s.drivers.Create(ctx, driver); err != nil {
		if db.IsDuplicateKeyErr(err) {
			return nil, catalogdomain.ErrDuplicateCode
		}
		return nil, err
	}
	return driver, nil
}

func (s *Service) GetDriver(ctx context.Context, tenantID, id snowflake.ID) (*catalogdomain.Driver, error) {
	if tenantID == 0 {
		return nil, catalogdomain.ErrInvalidTenant
	}
	driver, err := s.drivers.FindOne(ctx, &catalogdomain.Driver{ID: id, TenantID: tenantID})
	if err != nil {
		return nil, err
	}
	if driver == nil {
		return nil, catalogdomain.ErrDriverNotFound
	}
	return driver, nil
}

func (s *Service) ListActiveDrivers(ctx context.Context, tenantID snowflake.ID) ([]catalogdomain.Driver, error) {
	if tenantID == 0 {
		return nil, catalogdomain.ErrInvalidTenant
	}
	rows, err := s.drivers.Find(ctx, &catalogdomain.Driver{TenantID: tenantID, Active: true})
	if err != nil {
		return nil, err
	}
	drivers := make([]catalogdomain.Driver, 0, len(rows))
	for _, row := range rows {
		drivers = append(drivers, *row)
	}
	return drivers, nil
}
