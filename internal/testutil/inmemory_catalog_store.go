package testutil

import (
	"context"

	"github.com/samber/lo"

	"github.com/ladiaria/utopia-billing/internal/domain/catalog"
	ierr "github.com/ladiaria/utopia-billing/internal/errors"
	"github.com/ladiaria/utopia-billing/internal/types"
)

// InMemoryProductStore implements catalog.ProductRepository
type InMemoryProductStore struct {
	*InMemoryStore[*catalog.Product]
}

// NewInMemoryProductStore creates a new in-memory product store
func NewInMemoryProductStore() *InMemoryProductStore {
	return &InMemoryProductStore{
		InMemoryStore: NewInMemoryStore[*catalog.Product](),
	}
}

func (s *InMemoryProductStore) Add(product *catalog.Product) {
	_ = s.InMemoryStore.Create(context.Background(), product.ID, product)
}

func (s *InMemoryProductStore) Get(ctx context.Context, id string) (*catalog.Product, error) {
	product, err := s.InMemoryStore.Get(ctx, id)
	if err != nil {
		return nil, ierr.NewError("product not found").
			WithHint("product not found").
			WithReportableDetails(map[string]any{"product_id": id}).
			Mark(ierr.ErrNotFound)
	}
	return product, nil
}

func (s *InMemoryProductStore) GetBatch(ctx context.Context, ids []string) ([]*catalog.Product, error) {
	result := make([]*catalog.Product, 0, len(ids))
	for _, id := range ids {
		product, err := s.Get(ctx, id)
		if err != nil {
			return nil, err
		}
		result = append(result, product)
	}
	return result, nil
}

func (s *InMemoryProductStore) List(ctx context.Context) ([]*catalog.Product, error) {
	return s.InMemoryStore.List(ctx, nil, productSortFn)
}

func (s *InMemoryProductStore) ListByType(ctx context.Context, productType types.ProductType) ([]*catalog.Product, error) {
	return s.InMemoryStore.List(ctx, func(ctx context.Context, p *catalog.Product) bool {
		return p != nil && p.Type == productType
	}, productSortFn)
}

func (s *InMemoryProductStore) resolveSlug(ctx context.Context, slug string) (string, bool) {
	products, err := s.InMemoryStore.List(ctx, func(ctx context.Context, p *catalog.Product) bool {
		return p != nil && p.Slug == slug
	}, nil)
	if err != nil || len(products) == 0 {
		return "", false
	}
	return products[0].ID, true
}

func productSortFn(i, j *catalog.Product) bool {
	return i.ID < j.ID
}

// InMemoryPriceRuleStore implements catalog.PriceRuleRepository
type InMemoryPriceRuleStore struct {
	*InMemoryStore[*catalog.PriceRule]
}

// NewInMemoryPriceRuleStore creates a new in-memory price rule store
func NewInMemoryPriceRuleStore() *InMemoryPriceRuleStore {
	return &InMemoryPriceRuleStore{
		InMemoryStore: NewInMemoryStore[*catalog.PriceRule](),
	}
}

func (s *InMemoryPriceRuleStore) Add(rule *catalog.PriceRule) {
	_ = s.InMemoryStore.Create(context.Background(), rule.ID, rule)
}

func (s *InMemoryPriceRuleStore) ListActive(ctx context.Context) ([]*catalog.PriceRule, error) {
	return s.InMemoryStore.List(ctx, func(ctx context.Context, r *catalog.PriceRule) bool {
		return r != nil && r.Active
	}, func(i, j *catalog.PriceRule) bool {
		if i.Priority != j.Priority {
			return i.Priority < j.Priority
		}
		return i.ID < j.ID
	})
}

// InMemoryProductBundleStore implements catalog.ProductBundleRepository
type InMemoryProductBundleStore struct {
	*InMemoryStore[*catalog.ProductBundle]
}

// NewInMemoryProductBundleStore creates a new in-memory bundle store
func NewInMemoryProductBundleStore() *InMemoryProductBundleStore {
	return &InMemoryProductBundleStore{
		InMemoryStore: NewInMemoryStore[*catalog.ProductBundle](),
	}
}

func (s *InMemoryProductBundleStore) Add(bundle *catalog.ProductBundle) {
	_ = s.InMemoryStore.Create(context.Background(), bundle.ID, bundle)
}

func (s *InMemoryProductBundleStore) GetBatch(ctx context.Context, ids []string) ([]*catalog.ProductBundle, error) {
	return s.InMemoryStore.List(ctx, func(ctx context.Context, b *catalog.ProductBundle) bool {
		return b != nil && lo.Contains(ids, b.ID)
	}, func(i, j *catalog.ProductBundle) bool {
		return i.ID < j.ID
	})
}

// InMemoryAdvancedDiscountStore implements catalog.AdvancedDiscountRepository,
// keyed by the discount product id
type InMemoryAdvancedDiscountStore struct {
	*InMemoryStore[*catalog.AdvancedDiscount]
}

// NewInMemoryAdvancedDiscountStore creates a new in-memory advanced discount store
func NewInMemoryAdvancedDiscountStore() *InMemoryAdvancedDiscountStore {
	return &InMemoryAdvancedDiscountStore{
		InMemoryStore: NewInMemoryStore[*catalog.AdvancedDiscount](),
	}
}

func (s *InMemoryAdvancedDiscountStore) Add(discount *catalog.AdvancedDiscount) {
	_ = s.InMemoryStore.Create(context.Background(), discount.DiscountProductID, discount)
}

func (s *InMemoryAdvancedDiscountStore) GetByProduct(ctx context.Context, discountProductID string) (*catalog.AdvancedDiscount, error) {
	discount, err := s.InMemoryStore.Get(ctx, discountProductID)
	if err != nil {
		return nil, nil
	}
	return discount, nil
}
