package types

// BillingOutcomeKind is the coarse result of billing one subscription
type BillingOutcomeKind string

const (
	BillingOutcomeBilled  BillingOutcomeKind = "billed"
	BillingOutcomeSkipped BillingOutcomeKind = "skipped"
	BillingOutcomeFailed  BillingOutcomeKind = "failed"
)

// SkipReason is an expected, non-exceptional reason a subscription was not billed
type SkipReason string

const (
	SkipReasonNotDue             SkipReason = "not_due"
	SkipReasonInactive           SkipReason = "inactive"
	SkipReasonWrongType          SkipReason = "wrong_type"
	SkipReasonNoNextBilling      SkipReason = "no_next_billing"
	SkipReasonMissingPaymentType SkipReason = "missing_payment_type"
	SkipReasonEndDateReached     SkipReason = "end_date_reached"
)

// FailReason is a business or persistence error surfaced to the operator
type FailReason string

const (
	FailReasonNoBillingData    FailReason = "no_billing_data"
	FailReasonRouteRequired    FailReason = "route_required"
	FailReasonRouteExcluded    FailReason = "route_excluded"
	FailReasonZeroAmount       FailReason = "zero_amount"
	FailReasonPersistenceError FailReason = "persistence_error"
)
