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

type priceRuleRepository struct {
	db     postgres.IClient
	logger *logger.Logger
}

func NewPriceRuleRepository(db postgres.IClient, logger *logger.Logger) catalog.PriceRuleRepository {
	return &priceRuleRepository{db: db, logger: logger}
}

// priceRuleRow carries the array columns sqlx cannot scan into []string
type priceRuleRow struct {
	catalog.PriceRule
	ProductsPool    pq.StringArray `db:"products_pool"`
	ProductsNotPool pq.StringArray `db:"products_not_pool"`
	IgnoreBundleIDs pq.StringArray `db:"ignore_bundle_ids"`
}

func (row *priceRuleRow) toRule() *catalog.PriceRule {
	rule := row.PriceRule
	rule.ProductsPool = row.ProductsPool
	rule.ProductsNotPool = row.ProductsNotPool
	rule.IgnoreBundleIDs = row.IgnoreBundleIDs
	return &rule
}

func (r *priceRuleRepository) ListActive(ctx context.Context) ([]*catalog.PriceRule, error) {
	query := `
		SELECT id, active, priority, mode, wildcard_mode,
			amount_to_pick, amount_to_pick_condition,
			products_pool, products_not_pool,
			choose_one_product_id, resulting_product_id,
			ignore_bundle_ids, legacy_mode_two,
			status, created_at, updated_at, created_by, updated_by
		FROM price_rules
		WHERE active = true AND status != $1
		ORDER BY priority, id`

	var rows []*priceRuleRow
	err := r.db.Querier(ctx).SelectContext(ctx, &rows, query, types.StatusDeleted)
	if err != nil {
		return nil, ierr.WithError(err).
			WithHint("failed to list price rules").
			Mark(ierr.ErrDatabase)
	}
	return lo.Map(rows, func(row *priceRuleRow, _ int) *catalog.PriceRule {
		return row.toRule()
	}), nil
}
