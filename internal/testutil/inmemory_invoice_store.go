package testutil

import (
	"context"
	"time"

	"github.com/ladiaria/utopia-billing/internal/domain/invoice"
	ierr "github.com/ladiaria/utopia-billing/internal/errors"
)

// slugResolver maps a product slug to its id; the invoice store needs it
// because items reference products by id while temporary-discount expiry
// counts by slug
type slugResolver interface {
	resolveSlug(ctx context.Context, slug string) (string, bool)
}

// InMemoryInvoiceStore implements invoice.Repository
type InMemoryInvoiceStore struct {
	*InMemoryStore[*invoice.Invoice]
	products slugResolver
}

// NewInMemoryInvoiceStore creates a new in-memory invoice store backed by
// the given product store for slug lookups
func NewInMemoryInvoiceStore(products *InMemoryProductStore) *InMemoryInvoiceStore {
	return &InMemoryInvoiceStore{
		InMemoryStore: NewInMemoryStore[*invoice.Invoice](),
		products:      products,
	}
}

func (s *InMemoryInvoiceStore) CreateWithItems(ctx context.Context, inv *invoice.Invoice) error {
	if inv == nil {
		return ierr.NewError("invoice cannot be nil").
			WithHint("invoice cannot be nil").
			Mark(ierr.ErrValidation)
	}
	return s.InMemoryStore.Create(ctx, inv.ID, inv)
}

func (s *InMemoryInvoiceStore) Get(ctx context.Context, id string) (*invoice.Invoice, error) {
	inv, err := s.InMemoryStore.Get(ctx, id)
	if err != nil {
		return nil, ierr.NewError("invoice not found").
			WithHint("invoice not found").
			WithReportableDetails(map[string]any{"invoice_id": id}).
			Mark(ierr.ErrNotFound)
	}
	return inv, nil
}

func (s *InMemoryInvoiceStore) ListBySubscription(ctx context.Context, subscriptionID string) ([]*invoice.Invoice, error) {
	return s.InMemoryStore.List(ctx, func(ctx context.Context, inv *invoice.Invoice) bool {
		return inv != nil && inv.SubscriptionID == subscriptionID
	}, func(i, j *invoice.Invoice) bool {
		return i.CreationDate.After(j.CreationDate)
	})
}

func (s *InMemoryInvoiceStore) MonthsBilledWithProduct(ctx context.Context, subscriptionID, productSlug string) (int, error) {
	productID, ok := s.products.resolveSlug(ctx, productSlug)
	if !ok {
		return 0, nil
	}

	invoices, err := s.ListBySubscription(ctx, subscriptionID)
	if err != nil {
		return 0, err
	}

	months := 0
	for _, inv := range invoices {
		for _, item := range inv.Items {
			if item.ProductID != nil && *item.ProductID == productID {
				months += monthsBetween(inv.ServiceFrom, inv.ServiceTo)
				break
			}
		}
	}
	return months, nil
}

func monthsBetween(from, to time.Time) int {
	months := int(to.Month()) - int(from.Month()) + 12*(to.Year()-from.Year())
	if months < 0 {
		return 0
	}
	return months
}
