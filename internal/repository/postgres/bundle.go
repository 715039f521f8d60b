package postgres

import (
	"context"

	"github.com/lib/pq"
	"github.com/samber/lo"

	"github.com/ladiaria/utopia-billing/internal/domain/catalog"
	ierr "github.com/ladiaria/utopia-billing/internal/errors"
	"github.com/ladiaria/utopia-billing/internal/logger"
	"github.com/ladiaria/utopia-billing/internal/postgres"
	"github.com/ladiaria/utopia-billing/internal/types"
)

type productBundleRepository struct {
	db     postgres.IClient
	logger *logger.Logger
}

func NewProductBundleRepository(db postgres.IClient, logger *logger.Logger) catalog.ProductBundleRepository {
	return &productBundleRepository{db: db, logger: logger}
}

type productBundleRow struct {
	catalog.ProductBundle
	ProductIDs pq.StringArray `db:"product_ids"`
}

func (row *productBundleRow) toBundle() *catalog.ProductBundle {
	bundle := row.ProductBundle
	bundle.ProductIDs = row.ProductIDs
	return &bundle
}

func (r *productBundleRepository) GetBatch(ctx context.Context, ids []string) ([]*catalog.ProductBundle, error) {
	query := `
		SELECT id, name, product_ids,
			status, created_at, updated_at, created_by, updated_by
		FROM product_bundles
		WHERE id = ANY($1) AND status != $2
		ORDER BY id`

	var rows []*productBundleRow
	err := r.db.Querier(ctx).SelectContext(ctx, &rows, query, pq.Array(ids), types.StatusDeleted)
	if err != nil {
		return nil, ierr.WithError(err).
			WithHint("failed to get product bundles").
			Mark(ierr.ErrDatabase)
	}
	return lo.Map(rows, func(row *productBundleRow, _ int) *catalog.ProductBundle {
		return row.toBundle()
	}), nil
}
