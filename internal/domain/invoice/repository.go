package invoice

import (
	"context"
)

// Repository persists invoices and their items
type Repository interface {
	// CreateWithItems persists the invoice and all its items. Callers wrap
	// this in a transaction together with the subscription mutations of the
	// same billing run.
	CreateWithItems(ctx context.Context, inv *Invoice) error

	Get(ctx context.Context, id string) (*Invoice, error)

	// ListBySubscription returns the subscription's invoices, newest first
	ListBySubscription(ctx context.Context, subscriptionID string) ([]*Invoice, error)

	// MonthsBilledWithProduct sums the service months of the subscription's
	// invoices that carry an item for the given product slug. Drives
	// temporary-discount expiry.
	MonthsBilledWithProduct(ctx context.Context, subscriptionID, productSlug string) (int, error)
}
