package subscription

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/ladiaria/utopia-billing/internal/types"
)

// Subscription is the billable unit: a contact's set of products on a
// billing cadence.
type Subscription struct {
	ID        string `json:"id" db:"id"`
	ContactID string `json:"contact_id" db:"contact_id"`

	Active bool                     `json:"active" db:"active"`
	Type   types.SubscriptionType   `json:"type" db:"type"`
	State  types.SubscriptionStatus `json:"state" db:"state"`

	// Frequency is the billing cadence in months
	Frequency types.BillingFrequency `json:"frequency" db:"frequency"`

	PaymentType *types.PaymentType `json:"payment_type" db:"payment_type"`

	StartDate time.Time `json:"start_date" db:"start_date"`
	EndDate   *time.Time `json:"end_date" db:"end_date"`

	// NextBilling is the billing clock: the first day of the next unbilled
	// service period. Advanced by exactly one cadence per successful bill.
	NextBilling *time.Time `json:"next_billing" db:"next_billing"`

	Envelope     bool `json:"envelope" db:"envelope"`
	FreeEnvelope bool `json:"free_envelope" db:"free_envelope"`

	// Balance is signed: positive means credit owed to the customer
	// (next invoice is discounted), negative means the customer owes us
	// (next invoice is surcharged). Nil when settled.
	Balance *decimal.Decimal `json:"balance" db:"balance"`

	// BillingName overrides the contact name on invoices when set
	BillingName *string `json:"billing_name" db:"billing_name"`

	// BillingEmail is the address fallback for digital and one-shot
	// products that have no street address
	BillingEmail *string `json:"billing_email" db:"billing_email"`

	// UpdatedFromID links to the subscription this one superseded,
	// forming the permanency chain. Not on the billing hot path.
	UpdatedFromID *string `json:"updated_from_id" db:"updated_from_id"`

	types.BaseModel
}

// IsBillable reports whether this subscription can enter a billing run at
// all; due-date checks are separate.
func (s *Subscription) IsBillable() bool {
	return s.Active && s.Type.IsBillable()
}

// IsDue reports whether the billing clock has reached the billing date,
// widened by the configured grace days.
func (s *Subscription) IsDue(billingDate time.Time, graceDays int) bool {
	if s.NextBilling == nil {
		return false
	}
	return !s.NextBilling.After(billingDate.AddDate(0, 0, graceDays))
}

// NextBillingBase returns the date the next billing advancement starts
// from: the current clock, or the start date when the clock was never set.
func (s *Subscription) NextBillingBase() time.Time {
	if s.NextBilling != nil {
		return *s.NextBilling
	}
	return s.StartDate
}
