package catalog

import (
	"context"

	"github.com/ladiaria/utopia-billing/internal/types"
)

// ProductRepository provides read access to catalog products
type ProductRepository interface {
	Get(ctx context.Context, id string) (*Product, error)
	GetBatch(ctx context.Context, ids []string) ([]*Product, error)
	List(ctx context.Context) ([]*Product, error)
	ListByType(ctx context.Context, productType types.ProductType) ([]*Product, error)
}

// PriceRuleRepository provides read access to bundling rules
type PriceRuleRepository interface {
	// ListActive returns active rules ordered by ascending priority,
	// ties broken by id
	ListActive(ctx context.Context) ([]*PriceRule, error)
}

// ProductBundleRepository provides read access to rule-exemption bundles
type ProductBundleRepository interface {
	GetBatch(ctx context.Context, ids []string) ([]*ProductBundle, error)
}

// AdvancedDiscountRepository resolves discount products to their
// advanced-discount definitions
type AdvancedDiscountRepository interface {
	// GetByProduct returns nil without error when the product has no
	// advanced discount definition
	GetByProduct(ctx context.Context, discountProductID string) (*AdvancedDiscount, error)
}
