package testutil

import (
	"context"
	"time"

	"github.com/ladiaria/utopia-billing/internal/domain/subscription"
	ierr "github.com/ladiaria/utopia-billing/internal/errors"
	"github.com/ladiaria/utopia-billing/internal/types"
)

// InMemorySubscriptionStore implements subscription.Repository
type InMemorySubscriptionStore struct {
	subs     *InMemoryStore[*subscription.Subscription]
	products *InMemoryStore[*subscription.SubscriptionProduct]
}

// NewInMemorySubscriptionStore creates a new in-memory subscription store
func NewInMemorySubscriptionStore() *InMemorySubscriptionStore {
	return &InMemorySubscriptionStore{
		subs:     NewInMemoryStore[*subscription.Subscription](),
		products: NewInMemoryStore[*subscription.SubscriptionProduct](),
	}
}

func (s *InMemorySubscriptionStore) Add(sub *subscription.Subscription) {
	_ = s.subs.Create(context.Background(), sub.ID, sub)
}

func (s *InMemorySubscriptionStore) AddProduct(row *subscription.SubscriptionProduct) {
	if row.ID == "" {
		row.ID = types.GenerateUUIDWithPrefix(types.UUID_PREFIX_SUBSCRIPTION_PRODUCT)
	}
	_ = s.products.Create(context.Background(), row.ID, row)
}

func (s *InMemorySubscriptionStore) Get(ctx context.Context, id string) (*subscription.Subscription, error) {
	sub, err := s.subs.Get(ctx, id)
	if err != nil {
		return nil, ierr.NewError("subscription not found").
			WithHint("subscription not found").
			WithReportableDetails(map[string]any{"subscription_id": id}).
			Mark(ierr.ErrNotFound)
	}
	return sub, nil
}

func (s *InMemorySubscriptionStore) Update(ctx context.Context, sub *subscription.Subscription) error {
	return s.subs.Update(ctx, sub.ID, sub)
}

func (s *InMemorySubscriptionStore) ListDueIDs(ctx context.Context, billingDate time.Time, graceDays int) ([]string, error) {
	due, err := s.subs.List(ctx, func(ctx context.Context, sub *subscription.Subscription) bool {
		return sub != nil && sub.Active && sub.IsDue(billingDate, graceDays)
	}, func(i, j *subscription.Subscription) bool {
		return i.ID < j.ID
	})
	if err != nil {
		return nil, err
	}

	ids := make([]string, 0, len(due))
	for _, sub := range due {
		ids = append(ids, sub.ID)
	}
	return ids, nil
}

func (s *InMemorySubscriptionStore) GetProducts(ctx context.Context, subscriptionID string) ([]*subscription.SubscriptionProduct, error) {
	return s.products.List(ctx, func(ctx context.Context, row *subscription.SubscriptionProduct) bool {
		return row != nil && row.SubscriptionID == subscriptionID
	}, subscriptionProductSortFn)
}

func (s *InMemorySubscriptionStore) GetActiveProducts(ctx context.Context, subscriptionID string) ([]*subscription.SubscriptionProduct, error) {
	return s.products.List(ctx, func(ctx context.Context, row *subscription.SubscriptionProduct) bool {
		return row != nil && row.SubscriptionID == subscriptionID && row.Active
	}, subscriptionProductSortFn)
}

func (s *InMemorySubscriptionStore) RemoveProduct(ctx context.Context, subscriptionID, productID string) error {
	rows, err := s.products.List(ctx, func(ctx context.Context, row *subscription.SubscriptionProduct) bool {
		return row != nil && row.SubscriptionID == subscriptionID && row.ProductID == productID
	}, nil)
	if err != nil {
		return err
	}
	for _, row := range rows {
		_ = s.products.Delete(ctx, row.ID)
	}
	return nil
}

func (s *InMemorySubscriptionStore) Clear() {
	s.subs.Clear()
	s.products.Clear()
}

func subscriptionProductSortFn(i, j *subscription.SubscriptionProduct) bool {
	return i.ProductID < j.ProductID
}
