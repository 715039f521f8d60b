package catalog

import (
	"github.com/samber/lo"

	ierr "github.com/ladiaria/utopia-billing/internal/errors"
	"github.com/ladiaria/utopia-billing/internal/types"
)

// PriceRule is a bundling rule: when its pool condition matches the working
// product set, the rule rewrites the set according to its mode. Rules are
// evaluated strictly by ascending priority, ties broken by id.
type PriceRule struct {
	ID       string `json:"id" db:"id"`
	Active   bool   `json:"active" db:"active"`
	Priority int    `json:"priority" db:"priority"`

	Mode         types.RuleMode     `json:"mode" db:"mode"`
	WildcardMode types.WildcardMode `json:"wildcard_mode" db:"wildcard_mode"`

	AmountToPick          int                   `json:"amount_to_pick" db:"amount_to_pick"`
	AmountToPickCondition types.AmountCondition `json:"amount_to_pick_condition" db:"amount_to_pick_condition"`

	// ProductsPool is the set of products this rule matches against
	ProductsPool []string `json:"products_pool" db:"-"`

	// ProductsNotPool vetoes the rule when any member is present in the
	// input or in a prior rule's output
	ProductsNotPool []string `json:"products_not_pool" db:"-"`

	// ChooseOneProductID is the single product replaced in mode 2
	ChooseOneProductID *string `json:"choose_one_product_id" db:"choose_one_product_id"`

	// ResultingProductID is the product written into the output map
	ResultingProductID *string `json:"resulting_product_id" db:"resulting_product_id"`

	// IgnoreBundleIDs lists product bundles that exempt the rule: when the
	// working input's product set equals a bundle's set, the rule is skipped
	IgnoreBundleIDs []string `json:"ignore_bundle_ids" db:"-"`

	// LegacyModeTwo reproduces the historical mode-2 bookkeeping, which
	// wrote the matched pool product's copies under the chosen product's id
	// instead of replacing it with the resulting product
	LegacyModeTwo bool `json:"legacy_mode_two" db:"legacy_mode_two"`

	types.BaseModel
}

// Validate fails loudly on broken rule definitions. A rule missing the
// product its mode requires would corrupt every subscription it touches,
// so this runs at catalog-load time, not per subscription.
func (r *PriceRule) Validate() error {
	if err := r.Mode.Validate(); err != nil {
		return ierr.WithError(err).
			WithHintf("price rule %s has an invalid mode", r.ID).
			Mark(ierr.ErrRuleDefinition)
	}
	if err := r.WildcardMode.Validate(); err != nil {
		return ierr.WithError(err).
			WithHintf("price rule %s has an invalid wildcard mode", r.ID).
			Mark(ierr.ErrRuleDefinition)
	}
	if r.WildcardMode == types.WildcardModeNone {
		if err := r.AmountToPickCondition.Validate(); err != nil {
			return ierr.WithError(err).
				WithHintf("price rule %s has an invalid amount condition", r.ID).
				Mark(ierr.ErrRuleDefinition)
		}
		// eq with amount_to_pick 0 matches an empty pool intersection, and
		// the replace modes then have no matched product to read copies from
		if r.AmountToPickCondition == types.AmountConditionEquals && r.AmountToPick < 1 {
			return ierr.NewErrorf("price rule %s requires amount_to_pick >= 1 with an equality condition", r.ID).
				WithHint("fix the rule definition before running billing").
				Mark(ierr.ErrRuleDefinition)
		}
	}

	if r.WildcardMode == types.WildcardModePoolAndAny {
		if r.ResultingProductID == nil {
			return ierr.NewErrorf("price rule %s wildcard mode requires a resulting product", r.ID).
				WithHint("fix the rule definition before running billing").
				Mark(ierr.ErrRuleDefinition)
		}
		return nil
	}

	switch r.Mode {
	case types.RuleModeReplaceAll, types.RuleModeAddOne:
		if r.ResultingProductID == nil {
			return ierr.NewErrorf("price rule %s mode %d requires a resulting product", r.ID, r.Mode).
				WithHint("fix the rule definition before running billing").
				Mark(ierr.ErrRuleDefinition)
		}
	case types.RuleModeReplaceOne:
		if r.ChooseOneProductID == nil {
			return ierr.NewErrorf("price rule %s mode 2 requires a chosen product", r.ID).
				WithHint("fix the rule definition before running billing").
				Mark(ierr.ErrRuleDefinition)
		}
		if r.ResultingProductID == nil && !r.LegacyModeTwo {
			return ierr.NewErrorf("price rule %s mode 2 requires a resulting product", r.ID).
				WithHint("fix the rule definition before running billing").
				Mark(ierr.ErrRuleDefinition)
		}
	}
	return nil
}

// InPool reports whether a product id belongs to the rule's pool
func (r *PriceRule) InPool(productID string) bool {
	return lo.Contains(r.ProductsPool, productID)
}
