package postgres

import (
	"context"
	"database/sql"

	"github.com/lib/pq"

	"github.com/ladiaria/utopia-billing/internal/domain/catalog"
	ierr "github.com/ladiaria/utopia-billing/internal/errors"
	"github.com/ladiaria/utopia-billing/internal/logger"
	"github.com/ladiaria/utopia-billing/internal/postgres"
	"github.com/ladiaria/utopia-billing/internal/types"
)

const productColumns = `
	id, name, slug, type, price, billing_priority, edition_frequency,
	temporary_discount_months, target_product_id, has_implicit_discount,
	digital, status, created_at, updated_at, created_by, updated_by
`

type productRepository struct {
	db     postgres.IClient
	logger *logger.Logger
}

func NewProductRepository(db postgres.IClient, logger *logger.Logger) catalog.ProductRepository {
	return &productRepository{db: db, logger: logger}
}

func (r *productRepository) Get(ctx context.Context, id string) (*catalog.Product, error) {
	query := `SELECT ` + productColumns + ` FROM products WHERE id = $1 AND status != $2`

	var product catalog.Product
	err := r.db.Querier(ctx).GetContext(ctx, &product, query, id, types.StatusDeleted)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, ierr.NewErrorf("product %s not found", id).
				WithHint("product not found").
				Mark(ierr.ErrNotFound)
		}
		return nil, ierr.WithError(err).
			WithHint("failed to get product").
			Mark(ierr.ErrDatabase)
	}
	return &product, nil
}

func (r *productRepository) GetBatch(ctx context.Context, ids []string) ([]*catalog.Product, error) {
	query := `SELECT ` + productColumns + ` FROM products WHERE id = ANY($1) AND status != $2 ORDER BY id`

	var products []*catalog.Product
	err := r.db.Querier(ctx).SelectContext(ctx, &products, query, pq.Array(ids), types.StatusDeleted)
	if err != nil {
		return nil, ierr.WithError(err).
			WithHint("failed to get products").
			Mark(ierr.ErrDatabase)
	}

	if len(products) != len(ids) {
		found := make(map[string]bool, len(products))
		for _, product := range products {
			found[product.ID] = true
		}
		for _, id := range ids {
			if !found[id] {
				return nil, ierr.NewErrorf("product %s not found", id).
					WithHint("product not found").
					Mark(ierr.ErrNotFound)
			}
		}
	}
	return products, nil
}

func (r *productRepository) List(ctx context.Context) ([]*catalog.Product, error) {
	query := `SELECT ` + productColumns + ` FROM products WHERE status != $1 ORDER BY id`

	var products []*catalog.Product
	err := r.db.Querier(ctx).SelectContext(ctx, &products, query, types.StatusDeleted)
	if err != nil {
		return nil, ierr.WithError(err).
			WithHint("failed to list products").
			Mark(ierr.ErrDatabase)
	}
	return products, nil
}

func (r *productRepository) ListByType(ctx context.Context, productType types.ProductType) ([]*catalog.Product, error) {
	query := `SELECT ` + productColumns + ` FROM products WHERE type = $1 AND status != $2 ORDER BY id`

	var products []*catalog.Product
	err := r.db.Querier(ctx).SelectContext(ctx, &products, query, productType, types.StatusDeleted)
	if err != nil {
		return nil, ierr.WithError(err).
			WithHint("failed to list products by type").
			Mark(ierr.ErrDatabase)
	}
	return products, nil
}
