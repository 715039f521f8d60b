package service

import (
	"context"
	"sort"
	"time"

	"github.com/samber/lo"
	"github.com/shopspring/decimal"

	"github.com/ladiaria/utopia-billing/internal/domain/catalog"
	"github.com/ladiaria/utopia-billing/internal/domain/invoice"
	"github.com/ladiaria/utopia-billing/internal/domain/subscription"
	"github.com/ladiaria/utopia-billing/internal/types"
)

// BillingResult is the per-subscription outcome of a billing attempt
type BillingResult struct {
	SubscriptionID string                   `json:"subscription_id"`
	Kind           types.BillingOutcomeKind `json:"kind"`
	SkipReason     types.SkipReason         `json:"skip_reason,omitempty"`
	FailReason     types.FailReason         `json:"fail_reason,omitempty"`
	InvoiceID      string                   `json:"invoice_id,omitempty"`
	Amount         int64                    `json:"amount,omitempty"`
	Detail         string                   `json:"detail,omitempty"`
}

func skipped(subscriptionID string, reason types.SkipReason) *BillingResult {
	return &BillingResult{
		SubscriptionID: subscriptionID,
		Kind:           types.BillingOutcomeSkipped,
		SkipReason:     reason,
	}
}

func failed(subscriptionID string, reason types.FailReason, detail string) *BillingResult {
	return &BillingResult{
		SubscriptionID: subscriptionID,
		Kind:           types.BillingOutcomeFailed,
		FailReason:     reason,
		Detail:         detail,
	}
}

// billingData is the invoice header resolved from the subscription's
// product rows
type billingData struct {
	Name    string
	Address string
	City    string
	State   string
	RouteID *int
	Order   *int
}

// BillingService drives one subscription through a billing cycle:
// eligibility, pricing, invoice creation, side effects, clock advancement.
// Eligibility misses are Skipped outcomes, business violations are Failed
// outcomes; neither mutates anything. All mutations of a successful run
// commit in a single transaction.
type BillingService interface {
	BillSubscription(ctx context.Context, subscriptionID string, billingDate time.Time) *BillingResult
}

type billingService struct {
	ServiceParams
	catalogService CatalogService
	bundler        BundleService
	pricer         PricingService
}

func NewBillingService(
	params ServiceParams,
	catalogService CatalogService,
	bundler BundleService,
	pricer PricingService,
) BillingService {
	return &billingService{
		ServiceParams:  params,
		catalogService: catalogService,
		bundler:        bundler,
		pricer:         pricer,
	}
}

func (s *billingService) BillSubscription(ctx context.Context, subscriptionID string, billingDate time.Time) *BillingResult {
	billingDate = types.DateOnly(billingDate)

	sub, err := s.SubRepo.Get(ctx, subscriptionID)
	if err != nil {
		return failed(subscriptionID, types.FailReasonPersistenceError, err.Error())
	}

	if result := s.checkEligibility(sub, billingDate); result != nil {
		return result
	}

	products, err := s.SubRepo.GetActiveProducts(ctx, sub.ID)
	if err != nil {
		return failed(sub.ID, types.FailReasonPersistenceError, err.Error())
	}

	data, result := s.resolveBillingData(ctx, sub, products)
	if result != nil {
		return result
	}

	inv, oneShots, temporary, result := s.buildInvoice(ctx, sub, products, data, billingDate)
	if result != nil {
		return result
	}

	// steps 6-9 are atomic: a failure leaves no partial invoice and an
	// unadvanced billing clock
	err = s.DB.WithTx(ctx, func(txCtx context.Context) error {
		if err := s.InvoiceRepo.CreateWithItems(txCtx, inv); err != nil {
			return err
		}
		if err := s.removeOneShots(txCtx, sub, products, oneShots, billingDate); err != nil {
			return err
		}
		if err := s.expireTemporaryDiscounts(txCtx, sub, temporary); err != nil {
			return err
		}

		next := types.AddMonths(sub.NextBillingBase(), sub.Frequency.Months())
		sub.NextBilling = &next
		return s.SubRepo.Update(txCtx, sub)
	})
	if err != nil {
		s.Logger.Errorw("billing transaction failed",
			"subscription_id", sub.ID,
			"billing_date", billingDate,
			"error", err,
		)
		return failed(sub.ID, types.FailReasonPersistenceError, err.Error())
	}

	s.Logger.Infow("subscription billed",
		"subscription_id", sub.ID,
		"invoice_id", inv.ID,
		"amount", inv.Amount.IntPart(),
		"service_from", inv.ServiceFrom,
		"service_to", inv.ServiceTo,
	)

	return &BillingResult{
		SubscriptionID: sub.ID,
		Kind:           types.BillingOutcomeBilled,
		InvoiceID:      inv.ID,
		Amount:         inv.Amount.IntPart(),
	}
}

// checkEligibility returns a Skipped result when any precondition fails,
// nil when the subscription should be billed. Preconditions are expected
// conditions, not errors.
func (s *billingService) checkEligibility(sub *subscription.Subscription, billingDate time.Time) *BillingResult {
	if !sub.Active {
		return skipped(sub.ID, types.SkipReasonInactive)
	}
	if !sub.Type.IsBillable() {
		return skipped(sub.ID, types.SkipReasonWrongType)
	}
	if sub.NextBilling == nil {
		return skipped(sub.ID, types.SkipReasonNoNextBilling)
	}
	if sub.PaymentType == nil {
		return skipped(sub.ID, types.SkipReasonMissingPaymentType)
	}
	if sub.EndDate != nil && !sub.NextBilling.Before(*sub.EndDate) {
		return skipped(sub.ID, types.SkipReasonEndDateReached)
	}
	if !sub.IsDue(billingDate, s.Config.Billing.GraceDays) {
		return skipped(sub.ID, types.SkipReasonNotDue)
	}
	return nil
}

// resolveBillingData scans the subscription's product rows in billing
// priority order and takes the header data from the first usable one.
// Digital and one-shot products fall back to the billing email.
func (s *billingService) resolveBillingData(
	ctx context.Context,
	sub *subscription.Subscription,
	rows []*subscription.SubscriptionProduct,
) (*billingData, *BillingResult) {
	products, err := s.catalogProducts(ctx, rows)
	if err != nil {
		return nil, failed(sub.ID, types.FailReasonPersistenceError, err.Error())
	}

	ordered := make([]*subscription.SubscriptionProduct, len(rows))
	copy(ordered, rows)
	sort.SliceStable(ordered, func(i, j int) bool {
		return billingPriority(products[ordered[i].ProductID]) < billingPriority(products[ordered[j].ProductID])
	})

	var data *billingData
	for _, row := range ordered {
		product := products[row.ProductID]
		if product == nil || product.Type != types.ProductTypeSubscription {
			continue
		}

		address := row.Address
		if address == nil && (product.Digital || product.IsOneShot()) {
			address = sub.BillingEmail
		}
		if address == nil {
			continue
		}

		data = &billingData{
			Name:    billingName(sub),
			Address: *address,
			City:    row.City,
			State:   row.State,
			RouteID: row.RouteID,
			Order:   row.Order,
		}
		break
	}

	if data == nil {
		if !s.Config.Billing.ForceDummyMissingBillingData {
			return nil, failed(sub.ID, types.FailReasonNoBillingData,
				"subscription contains no usable billing address")
		}
		data = &billingData{
			Name:    billingName(sub),
			Address: "Dummy address, please complete",
		}
	}

	if s.Config.Billing.RequireRouteForBilling {
		if data.RouteID == nil {
			return nil, failed(sub.ID, types.FailReasonRouteRequired,
				"subscription requires a route to be billed")
		}
		if s.Config.Billing.IsRouteExcluded(*data.RouteID) {
			return nil, failed(sub.ID, types.FailReasonRouteExcluded,
				"subscription is on a route excluded from billing")
		}
	}

	return data, nil
}

// buildInvoice prices the subscription and assembles the invoice with all
// its line items, without persisting anything
func (s *billingService) buildInvoice(
	ctx context.Context,
	sub *subscription.Subscription,
	rows []*subscription.SubscriptionProduct,
	data *billingData,
	billingDate time.Time,
) (*invoice.Invoice, []*catalog.Product, []*catalog.Product, *BillingResult) {
	raw := make(ProductMap, len(rows))
	for _, row := range rows {
		raw[row.ProductID] = row.Copies
	}

	resolved, err := s.bundler.Resolve(ctx, raw)
	if err != nil {
		return nil, nil, nil, failed(sub.ID, types.FailReasonPersistenceError, err.Error())
	}

	amount, items, err := s.pricer.PriceItems(ctx, resolved, sub.Frequency)
	if err != nil {
		return nil, nil, nil, failed(sub.ID, types.FailReasonPersistenceError, err.Error())
	}

	// envelope surcharge: flat per flagged product per month
	if surcharge := s.envelopeItem(sub, rows); surcharge != nil {
		items = append(items, surcharge)
		amount = amount.Add(surcharge.Amount)
	}

	// balance: positive is credit owed to the customer (discount, capped so
	// the invoice never goes negative), negative is debt (surcharge)
	var balanceApplied decimal.Decimal
	if sub.Balance != nil && !sub.Balance.IsZero() {
		var balanceItem *invoice.InvoiceItem
		balanceItem, balanceApplied = s.balanceItem(sub, amount)
		items = append(items, balanceItem)
		amount = amount.Add(balanceItem.SignedAmount())
	}

	// the stored amount is integral; a rounding item absorbs the fraction
	rounded := amount.Round(0)
	if !rounded.Equal(amount) {
		diff := rounded.Sub(amount)
		itemType := types.InvoiceItemTypeSurcharge
		if diff.IsNegative() {
			itemType = types.InvoiceItemTypeDiscount
		}
		items = append(items, &invoice.InvoiceItem{
			Description: "Rounding",
			Type:        itemType,
			TypeDR:      types.ItemDRTypeValue,
			Copies:      1,
			Price:       diff.Abs(),
			Amount:      diff.Abs(),
		})
		amount = rounded
	}

	if !amount.IsPositive() {
		return nil, nil, nil, failed(sub.ID, types.FailReasonZeroAmount,
			"invoice amount is zero or negative")
	}

	// consume the credit only now that the invoice is known to be created
	s.settleBalance(sub, balanceApplied)

	serviceFrom := *sub.NextBilling
	inv := &invoice.Invoice{
		ID:             types.GenerateUUIDWithPrefix(types.UUID_PREFIX_INVOICE),
		InvoiceNumber:  types.GenerateShortIDWithPrefix(types.SHORT_ID_PREFIX_INVOICE),
		ContactID:      sub.ContactID,
		SubscriptionID: sub.ID,
		Amount:         amount,
		PaymentType:    *sub.PaymentType,
		CreationDate:   billingDate,
		ServiceFrom:    serviceFrom,
		ServiceTo:      types.AddMonths(serviceFrom, sub.Frequency.Months()),
		ExpirationDate: billingDate.AddDate(0, 0, s.Config.Billing.DefaultDPP),
		BillingName:    data.Name,
		BillingAddress: data.Address,
		BillingCity:    data.City,
		BillingState:   data.State,
		RouteID:        data.RouteID,
		Order:          data.Order,
		BaseModel:      types.GetDefaultBaseModel(ctx),
	}

	for _, item := range items {
		item.ID = types.GenerateUUIDWithPrefix(types.UUID_PREFIX_INVOICE_ITEM)
		item.InvoiceID = inv.ID
		item.SubscriptionID = lo.ToPtr(sub.ID)
		item.BaseModel = types.GetDefaultBaseModel(ctx)
	}
	inv.Items = items

	oneShots, temporary, err := s.sideEffectProducts(ctx, items)
	if err != nil {
		return nil, nil, nil, failed(sub.ID, types.FailReasonPersistenceError, err.Error())
	}

	return inv, oneShots, temporary, nil
}

func (s *billingService) envelopeItem(sub *subscription.Subscription, rows []*subscription.SubscriptionProduct) *invoice.InvoiceItem {
	price := s.Config.Billing.EnvelopeUnitPrice()
	if !price.IsPositive() || !sub.Envelope || sub.FreeEnvelope {
		return nil
	}

	flagged := lo.CountBy(rows, func(row *subscription.SubscriptionProduct) bool {
		return row.HasEnvelope == types.EnvelopeAssigned
	})
	if flagged == 0 {
		return nil
	}

	amount := price.
		Mul(decimal.NewFromInt(int64(flagged))).
		Mul(decimal.NewFromInt(int64(sub.Frequency.Months())))
	return &invoice.InvoiceItem{
		Description: "Envelope",
		Type:        types.InvoiceItemTypeSurcharge,
		TypeDR:      types.ItemDRTypeValue,
		Price:       price,
		Copies:      flagged,
		Amount:      amount,
	}
}

func (s *billingService) balanceItem(sub *subscription.Subscription, amount decimal.Decimal) (*invoice.InvoiceItem, decimal.Decimal) {
	balance := *sub.Balance
	if balance.IsPositive() {
		applied := decimal.Min(balance, amount)
		return &invoice.InvoiceItem{
			Description: "Balance",
			Type:        types.InvoiceItemTypeDiscount,
			TypeDR:      types.ItemDRTypeValue,
			Copies:      1,
			Price:       applied,
			Amount:      applied,
		}, applied
	}
	owed := balance.Abs()
	return &invoice.InvoiceItem{
		Description: "Balance owed",
		Type:        types.InvoiceItemTypeSurcharge,
		TypeDR:      types.ItemDRTypeValue,
		Copies:      1,
		Price:       owed,
		Amount:      owed,
	}, decimal.Zero
}

// settleBalance consumes the applied credit, or clears a surcharged debt
func (s *billingService) settleBalance(sub *subscription.Subscription, applied decimal.Decimal) {
	if sub.Balance == nil || sub.Balance.IsZero() {
		return
	}
	if sub.Balance.IsPositive() {
		remaining := sub.Balance.Sub(applied)
		if remaining.IsPositive() {
			sub.Balance = &remaining
		} else {
			sub.Balance = nil
		}
		return
	}
	// the whole debt was surcharged onto this invoice
	sub.Balance = nil
}

// sideEffectProducts collects the billed products that trigger post-invoice
// mutations: one-shots get removed, temporary discounts may expire
func (s *billingService) sideEffectProducts(ctx context.Context, items []*invoice.InvoiceItem) ([]*catalog.Product, []*catalog.Product, error) {
	var oneShots, temporary []*catalog.Product
	seen := make(map[string]bool)

	for _, item := range items {
		if item.ProductID == nil || seen[*item.ProductID] {
			continue
		}
		seen[*item.ProductID] = true

		product, err := s.catalogService.GetProduct(ctx, *item.ProductID)
		if err != nil {
			return nil, nil, err
		}
		if product.IsOneShot() {
			oneShots = append(oneShots, product)
		}
		if product.IsTemporaryDiscount() {
			temporary = append(temporary, product)
		}
	}
	return oneShots, temporary, nil
}

// removeOneShots removes billed one-shot products; when that empties the
// subscription it is closed outright
func (s *billingService) removeOneShots(
	ctx context.Context,
	sub *subscription.Subscription,
	rows []*subscription.SubscriptionProduct,
	oneShots []*catalog.Product,
	billingDate time.Time,
) error {
	if len(oneShots) == 0 {
		return nil
	}

	for _, product := range oneShots {
		if err := s.SubRepo.RemoveProduct(ctx, sub.ID, product.ID); err != nil {
			return err
		}
	}

	remaining, err := s.SubRepo.GetProducts(ctx, sub.ID)
	if err != nil {
		return err
	}
	if len(remaining) == 0 {
		sub.Active = false
		sub.EndDate = &billingDate
		s.Logger.Infow("subscription emptied by one-shot billing, closing",
			"subscription_id", sub.ID)
	}
	return nil
}

// expireTemporaryDiscounts removes discount products that have been billed
// for their configured number of months, counting the invoice just created
func (s *billingService) expireTemporaryDiscounts(
	ctx context.Context,
	sub *subscription.Subscription,
	temporary []*catalog.Product,
) error {
	for _, product := range temporary {
		months, err := s.InvoiceRepo.MonthsBilledWithProduct(ctx, sub.ID, product.Slug)
		if err != nil {
			return err
		}
		if months >= *product.TemporaryDiscountMonths {
			if err := s.SubRepo.RemoveProduct(ctx, sub.ID, product.ID); err != nil {
				return err
			}
			s.Logger.Infow("temporary discount expired",
				"subscription_id", sub.ID,
				"product_id", product.ID,
				"months_billed", months,
			)
		}
	}
	return nil
}

func (s *billingService) catalogProducts(ctx context.Context, rows []*subscription.SubscriptionProduct) (map[string]*catalog.Product, error) {
	ids := lo.Map(rows, func(row *subscription.SubscriptionProduct, _ int) string {
		return row.ProductID
	})
	return s.catalogService.GetProducts(ctx, ids)
}

func billingPriority(product *catalog.Product) int {
	if product == nil || product.BillingPriority == nil {
		// unset priorities sort last
		return 1 << 30
	}
	return *product.BillingPriority
}

func billingName(sub *subscription.Subscription) string {
	if sub.BillingName != nil && *sub.BillingName != "" {
		return *sub.BillingName
	}
	return sub.ContactID
}
