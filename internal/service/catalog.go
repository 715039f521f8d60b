package service

import (
	"context"

	"github.com/samber/lo"

	"github.com/ladiaria/utopia-billing/internal/cache"
	"github.com/ladiaria/utopia-billing/internal/domain/catalog"
	ierr "github.com/ladiaria/utopia-billing/internal/errors"
	"github.com/ladiaria/utopia-billing/internal/types"
)

// CatalogService is the read side of the product catalog. Catalog rows are
// immutable for the duration of a billing run, so reads are cached
// process-wide until Invalidate is called.
type CatalogService interface {
	GetProduct(ctx context.Context, id string) (*catalog.Product, error)
	GetProducts(ctx context.Context, ids []string) (map[string]*catalog.Product, error)
	ListProductsByType(ctx context.Context, productType types.ProductType) ([]*catalog.Product, error)

	// ListActiveRules returns validated active rules in evaluation order.
	// A broken rule definition fails the whole load: it would affect every
	// subscription, so it must not surface per subscription.
	ListActiveRules(ctx context.Context) ([]*catalog.PriceRule, error)

	GetBundles(ctx context.Context, ids []string) ([]*catalog.ProductBundle, error)
	GetAdvancedDiscount(ctx context.Context, discountProductID string) (*catalog.AdvancedDiscount, error)

	// Invalidate drops all cached catalog state; call after out-of-band
	// catalog edits
	Invalidate(ctx context.Context)
}

type catalogService struct {
	ServiceParams
}

func NewCatalogService(params ServiceParams) CatalogService {
	return &catalogService{ServiceParams: params}
}

func (s *catalogService) GetProduct(ctx context.Context, id string) (*catalog.Product, error) {
	key := cache.GenerateKey(cache.PrefixProduct, id)
	if cached, found := s.Cache.Get(ctx, key); found {
		if product, ok := cached.(*catalog.Product); ok {
			return product, nil
		}
	}

	product, err := s.ProductRepo.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	s.Cache.Set(ctx, key, product, cache.DefaultExpiration)
	return product, nil
}

func (s *catalogService) GetProducts(ctx context.Context, ids []string) (map[string]*catalog.Product, error) {
	products := make(map[string]*catalog.Product, len(ids))
	missing := make([]string, 0, len(ids))

	for _, id := range ids {
		key := cache.GenerateKey(cache.PrefixProduct, id)
		if cached, found := s.Cache.Get(ctx, key); found {
			if product, ok := cached.(*catalog.Product); ok {
				products[id] = product
				continue
			}
		}
		missing = append(missing, id)
	}

	if len(missing) > 0 {
		fetched, err := s.ProductRepo.GetBatch(ctx, missing)
		if err != nil {
			return nil, err
		}
		for _, product := range fetched {
			products[product.ID] = product
			s.Cache.Set(ctx, cache.GenerateKey(cache.PrefixProduct, product.ID), product, cache.DefaultExpiration)
		}
	}

	return products, nil
}

func (s *catalogService) ListProductsByType(ctx context.Context, productType types.ProductType) ([]*catalog.Product, error) {
	return s.ProductRepo.ListByType(ctx, productType)
}

func (s *catalogService) ListActiveRules(ctx context.Context) ([]*catalog.PriceRule, error) {
	key := cache.GenerateKey(cache.PrefixPriceRule, "active")
	if cached, found := s.Cache.Get(ctx, key); found {
		if rules, ok := cached.([]*catalog.PriceRule); ok {
			return rules, nil
		}
	}

	rules, err := s.PriceRuleRepo.ListActive(ctx)
	if err != nil {
		return nil, err
	}

	for _, rule := range rules {
		if err := rule.Validate(); err != nil {
			return nil, err
		}
	}

	s.Cache.Set(ctx, key, rules, cache.DefaultExpiration)
	return rules, nil
}

func (s *catalogService) GetBundles(ctx context.Context, ids []string) ([]*catalog.ProductBundle, error) {
	if len(ids) == 0 {
		return nil, nil
	}

	key := cache.GenerateKey(cache.PrefixProductBundle, ids)
	if cached, found := s.Cache.Get(ctx, key); found {
		if bundles, ok := cached.([]*catalog.ProductBundle); ok {
			return bundles, nil
		}
	}

	bundles, err := s.ProductBundleRepo.GetBatch(ctx, ids)
	if err != nil {
		return nil, err
	}

	s.Cache.Set(ctx, key, bundles, cache.DefaultExpiration)
	return bundles, nil
}

func (s *catalogService) GetAdvancedDiscount(ctx context.Context, discountProductID string) (*catalog.AdvancedDiscount, error) {
	key := cache.GenerateKey(cache.PrefixAdvancedDiscount, discountProductID)
	if cached, found := s.Cache.Get(ctx, key); found {
		if discount, ok := cached.(*catalog.AdvancedDiscount); ok {
			return discount, nil
		}
	}

	discount, err := s.AdvancedDiscountRepo.GetByProduct(ctx, discountProductID)
	if err != nil {
		if ierr.IsNotFound(err) {
			return nil, nil
		}
		return nil, err
	}
	if discount == nil {
		return nil, nil
	}

	s.Cache.Set(ctx, key, discount, cache.DefaultExpiration)
	return discount, nil
}

func (s *catalogService) Invalidate(ctx context.Context) {
	prefixes := []string{
		cache.PrefixProduct,
		cache.PrefixPriceRule,
		cache.PrefixProductBundle,
		cache.PrefixAdvancedDiscount,
	}
	lo.ForEach(prefixes, func(prefix string, _ int) {
		s.Cache.DeleteByPrefix(ctx, prefix)
	})
	s.Logger.Infow("catalog cache invalidated")
}
