package postgres

import (
	"context"
	"database/sql"
	"time"

	"github.com/ladiaria/utopia-billing/internal/domain/subscription"
	ierr "github.com/ladiaria/utopia-billing/internal/errors"
	"github.com/ladiaria/utopia-billing/internal/logger"
	"github.com/ladiaria/utopia-billing/internal/postgres"
	"github.com/ladiaria/utopia-billing/internal/types"
)

const subscriptionColumns = `
	id, contact_id, active, type, state, frequency, payment_type,
	start_date, end_date, next_billing, envelope, free_envelope,
	balance, billing_name, billing_email, updated_from_id,
	status, created_at, updated_at, created_by, updated_by
`

const subscriptionProductColumns = `
	id, subscription_id, product_id, copies, active,
	address, city, state, route_id, "order", has_envelope,
	status, created_at, updated_at, created_by, updated_by
`

type subscriptionRepository struct {
	db     postgres.IClient
	logger *logger.Logger
}

func NewSubscriptionRepository(db postgres.IClient, logger *logger.Logger) subscription.Repository {
	return &subscriptionRepository{db: db, logger: logger}
}

func (r *subscriptionRepository) Get(ctx context.Context, id string) (*subscription.Subscription, error) {
	query := `SELECT ` + subscriptionColumns + ` FROM subscriptions WHERE id = $1 AND status != $2`

	var sub subscription.Subscription
	err := r.db.Querier(ctx).GetContext(ctx, &sub, query, id, types.StatusDeleted)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, ierr.NewErrorf("subscription %s not found", id).
				WithHint("subscription not found").
				Mark(ierr.ErrNotFound)
		}
		return nil, ierr.WithError(err).
			WithHint("failed to get subscription").
			Mark(ierr.ErrDatabase)
	}
	return &sub, nil
}

func (r *subscriptionRepository) Update(ctx context.Context, sub *subscription.Subscription) error {
	query := `
		UPDATE subscriptions SET
			active = :active,
			state = :state,
			frequency = :frequency,
			payment_type = :payment_type,
			end_date = :end_date,
			next_billing = :next_billing,
			envelope = :envelope,
			free_envelope = :free_envelope,
			balance = :balance,
			billing_name = :billing_name,
			billing_email = :billing_email,
			updated_at = :updated_at,
			updated_by = :updated_by
		WHERE id = :id`

	sub.UpdatedAt = time.Now().UTC()
	sub.UpdatedBy = types.GetUserID(ctx)

	result, err := r.db.Querier(ctx).NamedExecContext(ctx, query, sub)
	if err != nil {
		return ierr.WithError(err).
			WithHint("failed to update subscription").
			Mark(ierr.ErrDatabase)
	}
	if rows, err := result.RowsAffected(); err == nil && rows == 0 {
		return ierr.NewErrorf("subscription %s not found", sub.ID).
			WithHint("subscription not found").
			Mark(ierr.ErrNotFound)
	}
	return nil
}

func (r *subscriptionRepository) ListDueIDs(ctx context.Context, billingDate time.Time, graceDays int) ([]string, error) {
	query := `
		SELECT id FROM subscriptions
		WHERE active = true
			AND next_billing IS NOT NULL
			AND next_billing <= $1
			AND status != $2
		ORDER BY id`

	cutoff := billingDate.AddDate(0, 0, graceDays)

	var ids []string
	err := r.db.Querier(ctx).SelectContext(ctx, &ids, query, cutoff, types.StatusDeleted)
	if err != nil {
		return nil, ierr.WithError(err).
			WithHint("failed to list due subscriptions").
			Mark(ierr.ErrDatabase)
	}
	return ids, nil
}

func (r *subscriptionRepository) GetProducts(ctx context.Context, subscriptionID string) ([]*subscription.SubscriptionProduct, error) {
	query := `SELECT ` + subscriptionProductColumns + `
		FROM subscription_products
		WHERE subscription_id = $1 AND status != $2
		ORDER BY product_id`

	var rows []*subscription.SubscriptionProduct
	err := r.db.Querier(ctx).SelectContext(ctx, &rows, query, subscriptionID, types.StatusDeleted)
	if err != nil {
		return nil, ierr.WithError(err).
			WithHint("failed to list subscription products").
			Mark(ierr.ErrDatabase)
	}
	return rows, nil
}

func (r *subscriptionRepository) GetActiveProducts(ctx context.Context, subscriptionID string) ([]*subscription.SubscriptionProduct, error) {
	query := `SELECT ` + subscriptionProductColumns + `
		FROM subscription_products
		WHERE subscription_id = $1 AND active = true AND status != $2
		ORDER BY product_id`

	var rows []*subscription.SubscriptionProduct
	err := r.db.Querier(ctx).SelectContext(ctx, &rows, query, subscriptionID, types.StatusDeleted)
	if err != nil {
		return nil, ierr.WithError(err).
			WithHint("failed to list active subscription products").
			Mark(ierr.ErrDatabase)
	}
	return rows, nil
}

func (r *subscriptionRepository) RemoveProduct(ctx context.Context, subscriptionID, productID string) error {
	query := `DELETE FROM subscription_products WHERE subscription_id = $1 AND product_id = $2`

	_, err := r.db.Querier(ctx).ExecContext(ctx, query, subscriptionID, productID)
	if err != nil {
		return ierr.WithError(err).
			WithHint("failed to remove subscription product").
			Mark(ierr.ErrDatabase)
	}
	return nil
}
