package subscription

import (
	"context"
	"time"
)

// Repository provides access to subscriptions and their product rows
type Repository interface {
	Get(ctx context.Context, id string) (*Subscription, error)
	Update(ctx context.Context, sub *Subscription) error

	// ListDueIDs returns ids of active subscriptions whose next_billing is
	// within the due window for the given billing date
	ListDueIDs(ctx context.Context, billingDate time.Time, graceDays int) ([]string, error)

	// GetProducts returns every product row of a subscription, paused
	// included
	GetProducts(ctx context.Context, subscriptionID string) ([]*SubscriptionProduct, error)

	// GetActiveProducts returns only the rows that participate in the
	// current period's pricing
	GetActiveProducts(ctx context.Context, subscriptionID string) ([]*SubscriptionProduct, error)

	// RemoveProduct deletes the (subscription, product) row; removing a
	// product that is not present is not an error
	RemoveProduct(ctx context.Context, subscriptionID, productID string) error
}
