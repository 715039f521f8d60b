package catalog

import (
	"github.com/samber/lo"

	"github.com/ladiaria/utopia-billing/internal/types"
)

// ProductBundle is a named product set used only as a price rule skip
// condition: a rule listing the bundle is exempt when the working input's
// product set matches the bundle's set exactly.
type ProductBundle struct {
	ID         string   `json:"id" db:"id"`
	Name       string   `json:"name" db:"name"`
	ProductIDs []string `json:"product_ids" db:"-"`

	types.BaseModel
}

// MatchesExactly reports whether the given product ids equal the bundle's
// set, ignoring order and copies
func (b *ProductBundle) MatchesExactly(productIDs []string) bool {
	if len(productIDs) != len(b.ProductIDs) {
		return false
	}
	left, right := lo.Compact(lo.Uniq(productIDs)), lo.Compact(lo.Uniq(b.ProductIDs))
	if len(left) != len(right) {
		return false
	}
	return lo.Every(right, left)
}
