package cache

import (
	"strings"
	"time"

	catalogdomain "github.com/smallbiznis/gastrack/internal/catalog/domain"
)

const (
	defaultSizeTTL    = 10 * time.Minute
	defaultProductTTL = 10 * time.Minute
	defaultDriverTTL  = 10 * time.Minute
)

// CatalogResolverCache stores hot-path catalog lookups for event ingestion.
type CatalogResolverCache interface {
	GetSize(tenantID, sizeID string) (*catalogdomain.CylinderSize, bool)
	SetSize(tenantID, sizeID string, size *catalogdomain.CylinderSize)
	GetProduct(tenantID, productID string) (*catalogdomain.Product, bool)
	SetProduct(tenantID, productID string, product *catalogdomain.Product)
	GetDriver(tenantID, driverID string) (*catalogdomain.Driver, bool)
	SetDriver(tenantID, driverID string, driver *catalogdomain.Driver)
}

type catalogResolverCache struct {
	sizes    Cache[string, *catalogdomain.CylinderSize]
	products Cache[string, *catalogdomain.Product]
	drivers  Cache[string, *catalogdomain.Driver]

	sizeTTL    time.Duration
	productTTL time.Duration
	driverTTL  time.Duration
}

// NewCatalogResolverCache returns an in-memory cache tuned for event ingest.
func NewCatalogResolverCache() CatalogResolverCache {
	return &catalogResolverCache{
		sizes:      NewTTLCache[string, *catalogdomain.CylinderSize](),
		products:   NewTTLCache[string, *catalogdomain.Product](),
		drivers:    NewTTLCache[string, *catalogdomain.Driver](),
		sizeTTL:    defaultSizeTTL,
		productTTL: defaultProductTTL,
		driverTTL:  defaultDriverTTL,
	}
}

func (c *catalogResolverCache) GetSize(tenantID, sizeID string) (*catalogdomain.CylinderSize, bool) {
	return c.sizes.Get(cacheKey(tenantID, sizeID))
}

func (c *catalogResolverCache) SetSize(tenantID, sizeID string, size *catalogdomain.CylinderSize) {
	if size == nil {
		return
	}
	c.sizes.Set(cacheKey(tenantID, sizeID), size, c.sizeTTL)
}

func (c *catalogResolverCache) GetProduct(tenantID, productID string) (*catalogdomain.Product, bool) {
	return c.products.Get(cacheKey(tenantID, productID))
}

func (c *catalogResolverCache) SetProduct(tenantID, productID string, product *catalogdomain.Product) {
	if product == nil {
		return
	}
	c.products.Set(cacheKey(tenantID, productID), product, c.productTTL)
}

func (c *catalogResolverCache) GetDriver(tenantID, driverID string) (*catalogdomain.Driver, bool) {
	return c.drivers.Get(cacheKey(tenantID, driverID))
}

func (c *catalogResolverCache) SetDriver(tenantID, driverID string, driver *catalogdomain.Driver) {
	if driver == nil {
		return
	}
	c.drivers.Set(cacheKey(tenantID, driverID), driver, c.driverTTL)
}

func cacheKey(parts ...string) string {
	values := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed == "" {
			continue
		}
		values = append(values, strings.ToLower(trimmed))
	}
	return strings.Join(values, "|")
}
