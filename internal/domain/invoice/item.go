package invoice

import (
	"github.com/shopspring/decimal"

	"github.com/ladiaria/utopia-billing/internal/types"
)

// InvoiceItem is one line of an invoice. Amounts are pre-resolved to
// absolute currency before storage; TypeDR is descriptive only.
type InvoiceItem struct {
	ID        string `json:"id" db:"id"`
	InvoiceID string `json:"invoice_id" db:"invoice_id"`

	Description string `json:"description" db:"description"`

	Type   types.InvoiceItemType `json:"type" db:"type"`
	TypeDR types.ItemDRType      `json:"type_dr" db:"type_dr"`

	// Price is the unit price; Amount = Price * Copies for item rows and
	// Amount = Price for discount/surcharge rows
	Price  decimal.Decimal `json:"price" db:"price"`
	Copies int             `json:"copies" db:"copies"`
	Amount decimal.Decimal `json:"amount" db:"amount"`

	ProductID      *string `json:"product_id" db:"product_id"`
	SubscriptionID *string `json:"subscription_id" db:"subscription_id"`

	types.BaseModel
}

// SignedAmount returns the item's contribution to the invoice total
func (i *InvoiceItem) SignedAmount() decimal.Decimal {
	if i.Type == types.InvoiceItemTypeDiscount {
		return i.Amount.Neg()
	}
	return i.Amount
}
