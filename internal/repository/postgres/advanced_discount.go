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

type advancedDiscountRepository struct {
	db     postgres.IClient
	logger *logger.Logger
}

func NewAdvancedDiscountRepository(db postgres.IClient, logger *logger.Logger) catalog.AdvancedDiscountRepository {
	return &advancedDiscountRepository{db: db, logger: logger}
}

type advancedDiscountRow struct {
	catalog.AdvancedDiscount
	FindProductIDs pq.StringArray `db:"find_product_ids"`
}

func (r *advancedDiscountRepository) GetByProduct(ctx context.Context, discountProductID string) (*catalog.AdvancedDiscount, error) {
	query := `
		SELECT id, discount_product_id, find_product_ids, value_mode, value,
			status, created_at, updated_at, created_by, updated_by
		FROM advanced_discounts
		WHERE discount_product_id = $1 AND status != $2`

	var row advancedDiscountRow
	err := r.db.Querier(ctx).GetContext(ctx, &row, query, discountProductID, types.StatusDeleted)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, ierr.WithError(err).
			WithHint("failed to get advanced discount").
			Mark(ierr.ErrDatabase)
	}

	discount := row.AdvancedDiscount
	discount.FindProductIDs = row.FindProductIDs
	return &discount, nil
}
