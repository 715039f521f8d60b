package postgres

import (
	"context"
	"database/sql"

	"github.com/ladiaria/utopia-billing/internal/domain/invoice"
	ierr "github.com/ladiaria/utopia-billing/internal/errors"
	"github.com/ladiaria/utopia-billing/internal/logger"
	"github.com/ladiaria/utopia-billing/internal/postgres"
	"github.com/ladiaria/utopia-billing/internal/types"
)

const invoiceColumns = `
	id, invoice_number, contact_id, subscription_id, amount, payment_type,
	creation_date, service_from, service_to, expiration_date,
	billing_name, billing_address, billing_city, billing_state,
	route_id, "order",
	status, created_at, updated_at, created_by, updated_by
`

const invoiceItemColumns = `
	id, invoice_id, description, type, type_dr, price, copies, amount,
	product_id, subscription_id,
	status, created_at, updated_at, created_by, updated_by
`

type invoiceRepository struct {
	db     postgres.IClient
	logger *logger.Logger
}

func NewInvoiceRepository(db postgres.IClient, logger *logger.Logger) invoice.Repository {
	return &invoiceRepository{db: db, logger: logger}
}

// CreateWithItems runs on the querier from the ambient context, so a
// caller's transaction covers the invoice and its items together.
func (r *invoiceRepository) CreateWithItems(ctx context.Context, inv *invoice.Invoice) error {
	if inv == nil {
		return ierr.NewError("invoice is required").
			WithHint("invoice is required").
			Mark(ierr.ErrValidation)
	}

	querier := r.db.Querier(ctx)

	invoiceQuery := `
		INSERT INTO invoices (` + invoiceColumns + `)
		VALUES (
			:id, :invoice_number, :contact_id, :subscription_id, :amount, :payment_type,
			:creation_date, :service_from, :service_to, :expiration_date,
			:billing_name, :billing_address, :billing_city, :billing_state,
			:route_id, :order,
			:status, :created_at, :updated_at, :created_by, :updated_by
		)`

	if _, err := querier.NamedExecContext(ctx, invoiceQuery, inv); err != nil {
		return ierr.WithError(err).
			WithHint("failed to create invoice").
			WithReportableDetails(map[string]any{"invoice_id": inv.ID}).
			Mark(ierr.ErrDatabase)
	}

	itemQuery := `
		INSERT INTO invoice_items (` + invoiceItemColumns + `)
		VALUES (
			:id, :invoice_id, :description, :type, :type_dr, :price, :copies, :amount,
			:product_id, :subscription_id,
			:status, :created_at, :updated_at, :created_by, :updated_by
		)`

	for _, item := range inv.Items {
		if _, err := querier.NamedExecContext(ctx, itemQuery, item); err != nil {
			return ierr.WithError(err).
				WithHint("failed to create invoice item").
				WithReportableDetails(map[string]any{
					"invoice_id": inv.ID,
					"item_id":    item.ID,
				}).
				Mark(ierr.ErrDatabase)
		}
	}

	r.logger.Debugw("created invoice",
		"invoice_id", inv.ID,
		"invoice_number", inv.InvoiceNumber,
		"items", len(inv.Items))
	return nil
}

func (r *invoiceRepository) Get(ctx context.Context, id string) (*invoice.Invoice, error) {
	query := `SELECT ` + invoiceColumns + ` FROM invoices WHERE id = $1 AND status != $2`

	var inv invoice.Invoice
	err := r.db.Querier(ctx).GetContext(ctx, &inv, query, id, types.StatusDeleted)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, ierr.NewErrorf("invoice %s not found", id).
				WithHint("invoice not found").
				Mark(ierr.ErrNotFound)
		}
		return nil, ierr.WithError(err).
			WithHint("failed to get invoice").
			Mark(ierr.ErrDatabase)
	}

	items, err := r.getItems(ctx, inv.ID)
	if err != nil {
		return nil, err
	}
	inv.Items = items
	return &inv, nil
}

func (r *invoiceRepository) ListBySubscription(ctx context.Context, subscriptionID string) ([]*invoice.Invoice, error) {
	query := `SELECT ` + invoiceColumns + `
		FROM invoices
		WHERE subscription_id = $1 AND status != $2
		ORDER BY creation_date DESC, id DESC`

	var invoices []*invoice.Invoice
	err := r.db.Querier(ctx).SelectContext(ctx, &invoices, query, subscriptionID, types.StatusDeleted)
	if err != nil {
		return nil, ierr.WithError(err).
			WithHint("failed to list invoices").
			Mark(ierr.ErrDatabase)
	}

	for _, inv := range invoices {
		items, err := r.getItems(ctx, inv.ID)
		if err != nil {
			return nil, err
		}
		inv.Items = items
	}
	return invoices, nil
}

func (r *invoiceRepository) MonthsBilledWithProduct(ctx context.Context, subscriptionID, productSlug string) (int, error) {
	query := `
		SELECT COALESCE(SUM(
			(EXTRACT(YEAR FROM i.service_to) - EXTRACT(YEAR FROM i.service_from)) * 12 +
			(EXTRACT(MONTH FROM i.service_to) - EXTRACT(MONTH FROM i.service_from))
		), 0)
		FROM invoices i
		WHERE i.subscription_id = $1
			AND i.status != $2
			AND EXISTS (
				SELECT 1 FROM invoice_items ii
				JOIN products p ON p.id = ii.product_id
				WHERE ii.invoice_id = i.id AND p.slug = $3
			)`

	var months int
	err := r.db.Querier(ctx).GetContext(ctx, &months, query, subscriptionID, types.StatusDeleted, productSlug)
	if err != nil {
		return 0, ierr.WithError(err).
			WithHint("failed to sum billed months").
			Mark(ierr.ErrDatabase)
	}
	return months, nil
}

func (r *invoiceRepository) getItems(ctx context.Context, invoiceID string) ([]*invoice.InvoiceItem, error) {
	query := `SELECT ` + invoiceItemColumns + `
		FROM invoice_items
		WHERE invoice_id = $1 AND status != $2
		ORDER BY id`

	var items []*invoice.InvoiceItem
	err := r.db.Querier(ctx).SelectContext(ctx, &items, query, invoiceID, types.StatusDeleted)
	if err != nil {
		return nil, ierr.WithError(err).
			WithHint("failed to list invoice items").
			Mark(ierr.ErrDatabase)
	}
	return items, nil
}
