package types

import (
	"fmt"

	"github.com/samber/lo"
)

// SubscriptionType classifies how a subscription is sold and whether it is billable
type SubscriptionType string

const (
	SubscriptionTypeNormal      SubscriptionType = "normal"
	SubscriptionTypeCorporate   SubscriptionType = "corporate"
	SubscriptionTypePromotional SubscriptionType = "promotional"
	SubscriptionTypeFree        SubscriptionType = "free"
	SubscriptionTypeAffiliate   SubscriptionType = "affiliate"
)

func (t SubscriptionType) String() string {
	return string(t)
}

func (t SubscriptionType) Validate() error {
	allowed := []SubscriptionType{
		SubscriptionTypeNormal,
		SubscriptionTypeCorporate,
		SubscriptionTypePromotional,
		SubscriptionTypeFree,
		SubscriptionTypeAffiliate,
	}
	if !lo.Contains(allowed, t) {
		return fmt.Errorf("invalid subscription type: %s", t)
	}
	return nil
}

// IsBillable reports whether periodic invoicing applies to this subscription type
func (t SubscriptionType) IsBillable() bool {
	return t == SubscriptionTypeNormal || t == SubscriptionTypeCorporate
}

// SubscriptionStatus is the operational state of a subscription
type SubscriptionStatus string

const (
	SubscriptionStatusOK        SubscriptionStatus = "ok"
	SubscriptionStatusDebtor    SubscriptionStatus = "debtor"
	SubscriptionStatusPaused    SubscriptionStatus = "paused"
	SubscriptionStatusCancelled SubscriptionStatus = "cancelled"
)

func (s SubscriptionStatus) String() string {
	return string(s)
}

// PaymentType is the collection method agreed with the customer
type PaymentType string

const (
	PaymentTypeCash       PaymentType = "cash"
	PaymentTypeDebit      PaymentType = "debit"
	PaymentTypeCreditCard PaymentType = "credit_card"
	PaymentTypeTransfer   PaymentType = "transfer"
)

// BillingFrequency is the billing cadence in months
type BillingFrequency int

const (
	BillingFrequencyMonthly    BillingFrequency = 1
	BillingFrequencyBimonthly  BillingFrequency = 2
	BillingFrequencyQuarterly  BillingFrequency = 3
	BillingFrequencySemiannual BillingFrequency = 6
	BillingFrequencyAnnual     BillingFrequency = 12
)

func (f BillingFrequency) Validate() error {
	allowed := []BillingFrequency{
		BillingFrequencyMonthly,
		BillingFrequencyBimonthly,
		BillingFrequencyQuarterly,
		BillingFrequencySemiannual,
		BillingFrequencyAnnual,
	}
	if !lo.Contains(allowed, f) {
		return fmt.Errorf("invalid billing frequency: %d", f)
	}
	return nil
}

func (f BillingFrequency) Months() int {
	return int(f)
}

// EnvelopeState is the tri-state envelope assignment on a subscription product
type EnvelopeState int

const (
	EnvelopeUnset    EnvelopeState = 0
	EnvelopeAssigned EnvelopeState = 1
	EnvelopeNone     EnvelopeState = 2
)
