package invoice

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/ladiaria/utopia-billing/internal/types"
)

// Invoice is the output ledger of one billed period. Created once,
// never mutated by this engine afterwards.
type Invoice struct {
	ID            string `json:"id" db:"id"`
	InvoiceNumber string `json:"invoice_number" db:"invoice_number"`

	ContactID      string `json:"contact_id" db:"contact_id"`
	SubscriptionID string `json:"subscription_id" db:"subscription_id"`

	// Amount equals the signed sum of the items at creation time:
	// items and surcharges add, discounts subtract. Always integral,
	// the rounding item absorbs any fraction.
	Amount decimal.Decimal `json:"amount" db:"amount"`

	PaymentType types.PaymentType `json:"payment_type" db:"payment_type"`

	CreationDate time.Time `json:"creation_date" db:"creation_date"`

	// ServiceFrom/ServiceTo is the billed period,
	// service_to = service_from + frequency months
	ServiceFrom time.Time `json:"service_from" db:"service_from"`
	ServiceTo   time.Time `json:"service_to" db:"service_to"`

	// ExpirationDate = creation_date + dpp days
	ExpirationDate time.Time `json:"expiration_date" db:"expiration_date"`

	BillingName    string `json:"billing_name" db:"billing_name"`
	BillingAddress string `json:"billing_address" db:"billing_address"`
	BillingCity    string `json:"billing_city" db:"billing_city"`
	BillingState   string `json:"billing_state" db:"billing_state"`

	RouteID *int `json:"route_id" db:"route_id"`
	Order   *int `json:"order" db:"order"`

	Items []*InvoiceItem `json:"items" db:"-"`

	types.BaseModel
}

// SignedTotal recomputes the invoice total from its items
func (i *Invoice) SignedTotal() decimal.Decimal {
	total := decimal.Zero
	for _, item := range i.Items {
		total = total.Add(item.SignedAmount())
	}
	return total
}
