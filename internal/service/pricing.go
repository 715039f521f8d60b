package service

import (
	"context"
	"fmt"

	"github.com/samber/lo"
	"github.com/shopspring/decimal"

	"github.com/ladiaria/utopia-billing/internal/domain/catalog"
	"github.com/ladiaria/utopia-billing/internal/domain/invoice"
	ierr "github.com/ladiaria/utopia-billing/internal/errors"
	"github.com/ladiaria/utopia-billing/internal/types"
)

// PricingService turns a resolved product map into a priced amount. The
// itemized variant additionally emits the invoice line items whose signed
// sum equals the returned amount exactly.
//
// Evaluation order is a contract: subscription and flat discount
// accumulation first, then advanced discounts, then the single percentage
// discount, then the frequency multiplier, then the frequency discount.
// Swapping advanced and percentage changes the total. All rounding is
// half away from zero.
type PricingService interface {
	// Price returns the integer currency amount for one billed period
	Price(ctx context.Context, resolved ProductMap, frequency types.BillingFrequency) (int64, error)

	// PriceItems returns the unrounded decimal amount together with the
	// line items. The caller owns final rounding (a rounding line item).
	PriceItems(ctx context.Context, resolved ProductMap, frequency types.BillingFrequency) (decimal.Decimal, []*invoice.InvoiceItem, error)
}

type pricingService struct {
	ServiceParams
	catalog CatalogService
}

func NewPricingService(params ServiceParams, catalogService CatalogService) PricingService {
	return &pricingService{
		ServiceParams: params,
		catalog:       catalogService,
	}
}

func (s *pricingService) Price(ctx context.Context, resolved ProductMap, frequency types.BillingFrequency) (int64, error) {
	total, _, err := s.PriceItems(ctx, resolved, frequency)
	if err != nil {
		return 0, err
	}
	return total.Round(0).IntPart(), nil
}

// priceState carries the two running subtotals of the pipeline. The split
// exists because targeted and implicit discounts pre-discount their lines:
// those amounts ("affectable") are exempt from the untargeted percentage
// discount and the frequency discount, which read only the non-affectable
// subtotal. The non-affectable subtotal is per month until the frequency
// multiplication step; the affectable subtotal is kept frequency-scaled
// from the start because its discounts net at line level.
type priceState struct {
	affectable    decimal.Decimal
	nonAffectable decimal.Decimal
	items         []*invoice.InvoiceItem
}

func (s *pricingService) PriceItems(ctx context.Context, resolved ProductMap, frequency types.BillingFrequency) (decimal.Decimal, []*invoice.InvoiceItem, error) {
	if err := frequency.Validate(); err != nil {
		return decimal.Zero, nil, ierr.WithError(err).Mark(ierr.ErrValidation)
	}

	products, err := s.catalog.GetProducts(ctx, sortedIDs(resolved))
	if err != nil {
		return decimal.Zero, nil, err
	}

	// partition the resolved map: priced lines vs discounts; unknown
	// product ids are a catalog integrity problem, not a skippable row
	var priced, discounts []*catalog.Product
	for _, id := range sortedIDs(resolved) {
		product, ok := products[id]
		if !ok {
			return decimal.Zero, nil, ierr.NewErrorf("resolved product %s is not in the catalog", id).
				Mark(ierr.ErrNotFound)
		}
		if product.Type.IsDiscount() {
			discounts = append(discounts, product)
		} else {
			priced = append(priced, product)
		}
	}

	state := &priceState{affectable: decimal.Zero, nonAffectable: decimal.Zero}
	months := decimal.NewFromInt(int64(frequency.Months()))

	discounts = s.accumulatePriced(state, resolved, priced, discounts, frequency)

	var percentage *catalog.Product
	var advanced []*catalog.Product

	// untargeted flat discounts apply outright; percentage and advanced
	// discounts are deferred because they read the accumulated subtotal
	for _, product := range discounts {
		switch product.Type {
		case types.ProductTypeFlatDiscount:
			amount := product.Price.Mul(months)
			state.items = append(state.items, &invoice.InvoiceItem{
				Description: itemDescription(product.Name, frequency, false),
				Type:        types.InvoiceItemTypeDiscount,
				TypeDR:      types.ItemDRTypeValue,
				Price:       product.Price.Mul(months),
				Copies:      1,
				Amount:      amount,
				ProductID:   lo.ToPtr(product.ID),
			})
			state.nonAffectable = state.nonAffectable.Sub(product.Price)
		case types.ProductTypePercentageDiscount:
			if percentage != nil {
				return decimal.Zero, nil, ierr.NewErrorf(
					"products %s and %s are both percentage discounts in one billing",
					percentage.ID, product.ID).
					WithHint("a subscription may carry at most one percentage discount").
					Mark(ierr.ErrAmbiguousRule)
			}
			percentage = product
		case types.ProductTypeAdvancedDiscount:
			advanced = append(advanced, product)
		}
	}

	// advanced discounts run before the percentage discount reads the
	// subtotal; each is independent of the others
	for _, product := range advanced {
		if err := s.applyAdvancedDiscount(ctx, state, resolved, products, product, frequency); err != nil {
			return decimal.Zero, nil, err
		}
	}

	if percentage != nil {
		// the product's price field stores the percentage
		amount := state.nonAffectable.Mul(percentage.Price).Div(decimal.NewFromInt(100)).Round(0)
		state.items = append(state.items, &invoice.InvoiceItem{
			Description: itemDescription(percentage.Name, frequency, false),
			Type:        types.InvoiceItemTypeDiscount,
			TypeDR:      types.ItemDRTypeValue,
			Price:       amount.Mul(months),
			Copies:      1,
			Amount:      amount.Mul(months),
			ProductID:   lo.ToPtr(percentage.ID),
		})
		state.nonAffectable = state.nonAffectable.Sub(amount)
	}

	// the non-affectable subtotal is accumulated per month and scales to
	// the billing cadence here; affectable contributions were accumulated
	// already scaled because their discounts net at line level
	state.nonAffectable = state.nonAffectable.Mul(months)

	if pct := s.Config.Billing.FrequencyDiscountPct(frequency); pct.IsPositive() {
		amount := state.nonAffectable.Mul(pct).Div(decimal.NewFromInt(100)).Round(0)
		state.items = append(state.items, &invoice.InvoiceItem{
			Description: fmt.Sprintf("%d months discount (%s%% discount)", frequency.Months(), pct.String()),
			Type:        types.InvoiceItemTypeDiscount,
			TypeDR:      types.ItemDRTypeValue,
			Price:       amount,
			Copies:      1,
			Amount:      amount,
		})
		state.nonAffectable = state.nonAffectable.Sub(amount)
	}

	return state.affectable.Add(state.nonAffectable), state.items, nil
}

// accumulatePriced emits one item per priced line and nets targeted
// discounts against their target line. Returns the discounts that remain
// unconsumed.
func (s *pricingService) accumulatePriced(
	state *priceState,
	resolved ProductMap,
	priced []*catalog.Product,
	discounts []*catalog.Product,
	frequency types.BillingFrequency,
) []*catalog.Product {
	months := decimal.NewFromInt(int64(frequency.Months()))

	for _, product := range priced {
		copies := resolved[product.ID]

		// one-shot products bill a single edition no matter the cadence
		lineMonths := months
		if product.IsOneShot() {
			lineMonths = decimal.NewFromInt(1)
		}
		lineAmount := product.Price.Mul(decimal.NewFromInt(int64(copies))).Mul(lineMonths)

		state.items = append(state.items, &invoice.InvoiceItem{
			Description: itemDescription(product.Name, frequency, product.IsOneShot()),
			Type:        types.InvoiceItemTypeItem,
			TypeDR:      types.ItemDRTypeValue,
			Price:       product.Price,
			Copies:      copies,
			Amount:      lineAmount,
			ProductID:   lo.ToPtr(product.ID),
		})

		// a discount explicitly targeting this product nets against its
		// line; the pair lands in the affectable subtotal
		targetIdx := lo.IndexOf(lo.Map(discounts, func(d *catalog.Product, _ int) string {
			if d.TargetProductID == nil {
				return ""
			}
			return *d.TargetProductID
		}), product.ID)

		if targetIdx >= 0 {
			discount := discounts[targetIdx]
			delta := lineAmount

			var discountAmount decimal.Decimal
			switch discount.Type {
			case types.ProductTypeFlatDiscount:
				discountCopies := resolved[discount.ID]
				if discountCopies == 0 {
					discountCopies = 1
				}
				discountAmount = discount.Price.Mul(lineMonths).Mul(decimal.NewFromInt(int64(discountCopies)))
			default:
				// percentage of the targeted line
				discountAmount = delta.Mul(discount.Price).Div(decimal.NewFromInt(100)).Round(0)
			}

			state.items = append(state.items, &invoice.InvoiceItem{
				Description: itemDescription(discount.Name, frequency, false),
				Type:        types.InvoiceItemTypeDiscount,
				TypeDR:      types.ItemDRTypeValue,
				Price:       discountAmount,
				Copies:      1,
				Amount:      discountAmount,
				ProductID:   lo.ToPtr(discount.ID),
			})
			state.affectable = state.affectable.Add(delta.Sub(discountAmount))
			discounts = append(discounts[:targetIdx], discounts[targetIdx+1:]...)
			continue
		}

		// pre-discounted products stay out of the percentage and
		// frequency discount base, as do one-shot lines, whose amount
		// must not scale with the cadence
		if product.HasImplicitDiscount || product.IsOneShot() {
			state.affectable = state.affectable.Add(lineAmount)
		} else {
			state.nonAffectable = state.nonAffectable.Add(product.Price.Mul(decimal.NewFromInt(int64(copies))))
		}
	}

	return discounts
}

// applyAdvancedDiscount resolves one advanced discount product and
// subtracts it from the running subtotal
func (s *pricingService) applyAdvancedDiscount(
	ctx context.Context,
	state *priceState,
	resolved ProductMap,
	products map[string]*catalog.Product,
	product *catalog.Product,
	frequency types.BillingFrequency,
) error {
	months := decimal.NewFromInt(int64(frequency.Months()))

	definition, err := s.catalog.GetAdvancedDiscount(ctx, product.ID)
	if err != nil {
		return err
	}
	if definition == nil {
		// no definition row: the discount is inert, matching the original
		// engine which skipped it silently; log so the data can be fixed
		s.Logger.Warnw("advanced discount product has no definition",
			"product_id", product.ID)
		return nil
	}

	// provisional sub-amount over the find products present in the mix:
	// subscription lines add, everything else subtracts
	subAmount := decimal.Zero
	for _, findID := range definition.FindProductIDs {
		copies, present := resolved[findID]
		if !present {
			continue
		}
		findProduct, ok := products[findID]
		if !ok {
			findProduct, err = s.catalog.GetProduct(ctx, findID)
			if err != nil {
				return err
			}
		}
		line := findProduct.Price.Mul(decimal.NewFromInt(int64(copies)))
		if findProduct.Type == types.ProductTypeSubscription {
			subAmount = subAmount.Add(line)
		} else {
			subAmount = subAmount.Sub(line)
		}
	}

	amount := definition.Amount(subAmount)
	state.items = append(state.items, &invoice.InvoiceItem{
		Description: itemDescription(product.Name, frequency, false),
		Type:        types.InvoiceItemTypeDiscount,
		TypeDR:      types.ItemDRTypeValue,
		Price:       amount.Mul(months),
		Copies:      1,
		Amount:      amount.Mul(months),
		ProductID:   lo.ToPtr(product.ID),
	})
	state.nonAffectable = state.nonAffectable.Sub(amount)
	return nil
}

// itemDescription suffixes multi-month cadences; one-shot products bill a
// single edition regardless of cadence and get no suffix
func itemDescription(name string, frequency types.BillingFrequency, oneShot bool) string {
	if frequency.Months() > 1 && !oneShot {
		return fmt.Sprintf("%s %d months", name, frequency.Months())
	}
	return name
}
