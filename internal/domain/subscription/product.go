package subscription

import (
	"github.com/ladiaria/utopia-billing/internal/types"
)

// SubscriptionProduct is the join row between a subscription and a catalog
// product. At most one row exists per (subscription, product) pair.
type SubscriptionProduct struct {
	ID             string `json:"id" db:"id"`
	SubscriptionID string `json:"subscription_id" db:"subscription_id"`
	ProductID      string `json:"product_id" db:"product_id"`

	// Copies is always >= 1
	Copies int `json:"copies" db:"copies"`

	// Active false means the product is paused: excluded from the current
	// period's pricing without being removed
	Active bool `json:"active" db:"active"`

	// Delivery address for this product; nil for digital products
	Address *string `json:"address" db:"address"`
	City    string  `json:"city" db:"city"`
	State   string  `json:"state" db:"state"`

	// RouteID and Order place the product on a distribution route
	RouteID *int `json:"route_id" db:"route_id"`
	Order   *int `json:"order" db:"order"`

	HasEnvelope types.EnvelopeState `json:"has_envelope" db:"has_envelope"`

	types.BaseModel
}
