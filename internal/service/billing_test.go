package service

import (
	"testing"
	"time"

	"github.com/samber/lo"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/suite"

	"github.com/ladiaria/utopia-billing/internal/domain/catalog"
	"github.com/ladiaria/utopia-billing/internal/domain/subscription"
	"github.com/ladiaria/utopia-billing/internal/testutil"
	"github.com/ladiaria/utopia-billing/internal/types"
)

type BillingServiceSuite struct {
	testutil.BaseServiceTestSuite
	billing BillingService
}

func TestBillingService(t *testing.T) {
	suite.Run(t, new(BillingServiceSuite))
}

func (s *BillingServiceSuite) SetupTest() {
	s.BaseServiceTestSuite.SetupTest()

	params := ServiceParams{
		Logger:               s.GetLogger(),
		Config:               s.GetConfig(),
		DB:                   s.GetDB(),
		Cache:                s.GetCache(),
		ProductRepo:          s.GetStores().ProductRepo,
		PriceRuleRepo:        s.GetStores().PriceRuleRepo,
		ProductBundleRepo:    s.GetStores().ProductBundleRepo,
		AdvancedDiscountRepo: s.GetStores().AdvancedDiscountRepo,
		SubRepo:              s.GetStores().SubRepo,
		InvoiceRepo:          s.GetStores().InvoiceRepo,
	}
	catalogService := NewCatalogService(params)
	s.billing = NewBillingService(
		params,
		catalogService,
		NewBundleService(params, catalogService),
		NewPricingService(params, catalogService),
	)
}

func (s *BillingServiceSuite) billingDate() time.Time {
	return time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
}

func (s *BillingServiceSuite) addProduct(product *catalog.Product) *catalog.Product {
	s.GetStores().ProductRepo.(*testutil.InMemoryProductStore).Add(product)
	return product
}

// seedSubscription creates a quarterly subscription due on the billing
// date, carrying the newspaper product with an address
func (s *BillingServiceSuite) seedSubscription() *subscription.Subscription {
	s.addProduct(&catalog.Product{
		ID:    "prod_newspaper",
		Name:  "Newspaper",
		Slug:  "newspaper",
		Type:  types.ProductTypeSubscription,
		Price: decimal.NewFromInt(500),
	})

	sub := &subscription.Subscription{
		ID:          "subs_1",
		ContactID:   "contact_1",
		Active:      true,
		Type:        types.SubscriptionTypeNormal,
		Frequency:   types.BillingFrequencyQuarterly,
		PaymentType: lo.ToPtr(types.PaymentTypeCash),
		StartDate:   time.Date(2023, 10, 1, 0, 0, 0, 0, time.UTC),
		NextBilling: lo.ToPtr(s.billingDate()),
	}
	s.GetStores().SubRepo.(*testutil.InMemorySubscriptionStore).Add(sub)
	s.GetStores().SubRepo.(*testutil.InMemorySubscriptionStore).AddProduct(&subscription.SubscriptionProduct{
		SubscriptionID: sub.ID,
		ProductID:      "prod_newspaper",
		Copies:         1,
		Active:         true,
		Address:        lo.ToPtr("18 de Julio 1234"),
		City:           "Montevideo",
		State:          "Montevideo",
	})
	return sub
}

func (s *BillingServiceSuite) TestBilledAdvancesExactlyOneCadence() {
	sub := s.seedSubscription()

	result := s.billing.BillSubscription(s.GetContext(), sub.ID, s.billingDate())

	s.Equal(types.BillingOutcomeBilled, result.Kind)
	s.Equal(int64(1500), result.Amount)
	s.NotEmpty(result.InvoiceID)

	stored, err := s.GetStores().SubRepo.Get(s.GetContext(), sub.ID)
	s.NoError(err)
	s.Equal(time.Date(2024, 4, 1, 0, 0, 0, 0, time.UTC), *stored.NextBilling)

	inv, err := s.GetStores().InvoiceRepo.Get(s.GetContext(), result.InvoiceID)
	s.NoError(err)
	s.Equal(s.billingDate(), inv.ServiceFrom)
	s.Equal(time.Date(2024, 4, 1, 0, 0, 0, 0, time.UTC), inv.ServiceTo)
	s.Equal(s.billingDate().AddDate(0, 0, 10), inv.ExpirationDate)
	s.Equal("18 de Julio 1234", inv.BillingAddress)
	s.True(inv.Amount.Equal(inv.SignedTotal()))
}

func (s *BillingServiceSuite) TestNotDueIsIdempotentSkip() {
	sub := s.seedSubscription()
	sub.NextBilling = lo.ToPtr(time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC))

	for i := 0; i < 2; i++ {
		result := s.billing.BillSubscription(s.GetContext(), sub.ID, s.billingDate())
		s.Equal(types.BillingOutcomeSkipped, result.Kind)
		s.Equal(types.SkipReasonNotDue, result.SkipReason)
	}

	stored, err := s.GetStores().SubRepo.Get(s.GetContext(), sub.ID)
	s.NoError(err)
	s.Equal(time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC), *stored.NextBilling)
	invoices, err := s.GetStores().InvoiceRepo.ListBySubscription(s.GetContext(), sub.ID)
	s.NoError(err)
	s.Empty(invoices)
}

func (s *BillingServiceSuite) TestGraceDaysWidenDueWindow() {
	sub := s.seedSubscription()
	sub.NextBilling = lo.ToPtr(time.Date(2024, 1, 3, 0, 0, 0, 0, time.UTC))

	result := s.billing.BillSubscription(s.GetContext(), sub.ID, s.billingDate())
	s.Equal(types.SkipReasonNotDue, result.SkipReason)

	s.GetConfig().Billing.GraceDays = 2
	result = s.billing.BillSubscription(s.GetContext(), sub.ID, s.billingDate())
	s.Equal(types.BillingOutcomeBilled, result.Kind)
}

func (s *BillingServiceSuite) TestSkipReasons() {
	testCases := []struct {
		name   string
		mutate func(sub *subscription.Subscription)
		reason types.SkipReason
	}{
		{
			name:   "inactive",
			mutate: func(sub *subscription.Subscription) { sub.Active = false },
			reason: types.SkipReasonInactive,
		},
		{
			name:   "free_type",
			mutate: func(sub *subscription.Subscription) { sub.Type = types.SubscriptionTypeFree },
			reason: types.SkipReasonWrongType,
		},
		{
			name:   "no_next_billing",
			mutate: func(sub *subscription.Subscription) { sub.NextBilling = nil },
			reason: types.SkipReasonNoNextBilling,
		},
		{
			name:   "missing_payment_type",
			mutate: func(sub *subscription.Subscription) { sub.PaymentType = nil },
			reason: types.SkipReasonMissingPaymentType,
		},
		{
			name: "end_date_reached",
			mutate: func(sub *subscription.Subscription) {
				sub.EndDate = lo.ToPtr(s.billingDate())
			},
			reason: types.SkipReasonEndDateReached,
		},
	}

	for _, tc := range testCases {
		s.Run(tc.name, func() {
			s.ClearStores()
			sub := s.seedSubscription()
			tc.mutate(sub)

			result := s.billing.BillSubscription(s.GetContext(), sub.ID, s.billingDate())

			s.Equal(types.BillingOutcomeSkipped, result.Kind)
			s.Equal(tc.reason, result.SkipReason)
		})
	}
}

func (s *BillingServiceSuite) TestZeroAmountFailsWithoutMutation() {
	sub := s.seedSubscription()
	s.addProduct(&catalog.Product{
		ID:    "prod_full_off",
		Name:  "Full discount",
		Type:  types.ProductTypeFlatDiscount,
		Price: decimal.NewFromInt(500),
	})
	s.GetStores().SubRepo.(*testutil.InMemorySubscriptionStore).AddProduct(&subscription.SubscriptionProduct{
		SubscriptionID: sub.ID,
		ProductID:      "prod_full_off",
		Copies:         1,
		Active:         true,
	})

	result := s.billing.BillSubscription(s.GetContext(), sub.ID, s.billingDate())

	s.Equal(types.BillingOutcomeFailed, result.Kind)
	s.Equal(types.FailReasonZeroAmount, result.FailReason)

	stored, err := s.GetStores().SubRepo.Get(s.GetContext(), sub.ID)
	s.NoError(err)
	s.Equal(s.billingDate(), *stored.NextBilling)
	invoices, err := s.GetStores().InvoiceRepo.ListBySubscription(s.GetContext(), sub.ID)
	s.NoError(err)
	s.Empty(invoices)
}

func (s *BillingServiceSuite) TestPausedProductsAreExcluded() {
	sub := s.seedSubscription()
	s.addProduct(&catalog.Product{
		ID:    "prod_digital",
		Name:  "Digital",
		Type:  types.ProductTypeSubscription,
		Price: decimal.NewFromInt(300),
	})
	s.GetStores().SubRepo.(*testutil.InMemorySubscriptionStore).AddProduct(&subscription.SubscriptionProduct{
		SubscriptionID: sub.ID,
		ProductID:      "prod_digital",
		Copies:         1,
		Active:         false,
	})

	result := s.billing.BillSubscription(s.GetContext(), sub.ID, s.billingDate())

	s.Equal(types.BillingOutcomeBilled, result.Kind)
	// only the newspaper was billed
	s.Equal(int64(1500), result.Amount)

	// the paused row is still on the subscription
	rows, err := s.GetStores().SubRepo.GetProducts(s.GetContext(), sub.ID)
	s.NoError(err)
	s.Len(rows, 2)
}

func (s *BillingServiceSuite) TestMissingBillingDataFails() {
	sub := s.seedSubscription()
	s.GetStores().SubRepo.(*testutil.InMemorySubscriptionStore).Clear()
	s.GetStores().SubRepo.(*testutil.InMemorySubscriptionStore).Add(sub)
	s.GetStores().SubRepo.(*testutil.InMemorySubscriptionStore).AddProduct(&subscription.SubscriptionProduct{
		SubscriptionID: sub.ID,
		ProductID:      "prod_newspaper",
		Copies:         1,
		Active:         true,
		// no address
	})

	result := s.billing.BillSubscription(s.GetContext(), sub.ID, s.billingDate())

	s.Equal(types.BillingOutcomeFailed, result.Kind)
	s.Equal(types.FailReasonNoBillingData, result.FailReason)
	s.Equal(s.billingDate(), *sub.NextBilling)
}

func (s *BillingServiceSuite) TestForcedDummyBillingData() {
	s.GetConfig().Billing.ForceDummyMissingBillingData = true
	sub := s.seedSubscription()
	s.GetStores().SubRepo.(*testutil.InMemorySubscriptionStore).Clear()
	s.GetStores().SubRepo.(*testutil.InMemorySubscriptionStore).Add(sub)
	s.GetStores().SubRepo.(*testutil.InMemorySubscriptionStore).AddProduct(&subscription.SubscriptionProduct{
		SubscriptionID: sub.ID,
		ProductID:      "prod_newspaper",
		Copies:         1,
		Active:         true,
	})

	result := s.billing.BillSubscription(s.GetContext(), sub.ID, s.billingDate())

	s.Equal(types.BillingOutcomeBilled, result.Kind)
	inv, err := s.GetStores().InvoiceRepo.Get(s.GetContext(), result.InvoiceID)
	s.NoError(err)
	s.Equal("Dummy address, please complete", inv.BillingAddress)
}

func (s *BillingServiceSuite) TestDigitalProductFallsBackToEmail() {
	sub := s.seedSubscription()
	sub.BillingEmail = lo.ToPtr("reader@example.com")
	s.GetStores().SubRepo.(*testutil.InMemorySubscriptionStore).Clear()
	s.GetStores().SubRepo.(*testutil.InMemorySubscriptionStore).Add(sub)
	s.addProduct(&catalog.Product{
		ID:      "prod_digital",
		Name:    "Digital",
		Type:    types.ProductTypeSubscription,
		Price:   decimal.NewFromInt(300),
		Digital: true,
	})
	s.GetStores().SubRepo.(*testutil.InMemorySubscriptionStore).AddProduct(&subscription.SubscriptionProduct{
		SubscriptionID: sub.ID,
		ProductID:      "prod_digital",
		Copies:         1,
		Active:         true,
	})

	result := s.billing.BillSubscription(s.GetContext(), sub.ID, s.billingDate())

	s.Equal(types.BillingOutcomeBilled, result.Kind)
	inv, err := s.GetStores().InvoiceRepo.Get(s.GetContext(), result.InvoiceID)
	s.NoError(err)
	s.Equal("reader@example.com", inv.BillingAddress)
}

func (s *BillingServiceSuite) TestBillingPriorityOrdersDataResolution() {
	sub := s.seedSubscription()
	s.GetStores().SubRepo.(*testutil.InMemorySubscriptionStore).Clear()
	s.GetStores().SubRepo.(*testutil.InMemorySubscriptionStore).Add(sub)

	s.addProduct(&catalog.Product{
		ID:              "prod_priority",
		Name:            "Weekend edition",
		Type:            types.ProductTypeSubscription,
		Price:           decimal.NewFromInt(200),
		BillingPriority: lo.ToPtr(1),
	})
	s.GetStores().SubRepo.(*testutil.InMemorySubscriptionStore).AddProduct(&subscription.SubscriptionProduct{
		SubscriptionID: sub.ID,
		ProductID:      "prod_newspaper", // no billing priority, sorts last
		Copies:         1,
		Active:         true,
		Address:        lo.ToPtr("Fallback street 1"),
	})
	s.GetStores().SubRepo.(*testutil.InMemorySubscriptionStore).AddProduct(&subscription.SubscriptionProduct{
		SubscriptionID: sub.ID,
		ProductID:      "prod_priority",
		Copies:         1,
		Active:         true,
		Address:        lo.ToPtr("Priority avenue 9"),
	})

	result := s.billing.BillSubscription(s.GetContext(), sub.ID, s.billingDate())

	s.Equal(types.BillingOutcomeBilled, result.Kind)
	inv, err := s.GetStores().InvoiceRepo.Get(s.GetContext(), result.InvoiceID)
	s.NoError(err)
	s.Equal("Priority avenue 9", inv.BillingAddress)
}

func (s *BillingServiceSuite) TestRouteRequiredAndExcluded() {
	s.GetConfig().Billing.RequireRouteForBilling = true
	sub := s.seedSubscription()

	result := s.billing.BillSubscription(s.GetContext(), sub.ID, s.billingDate())
	s.Equal(types.FailReasonRouteRequired, result.FailReason)

	s.GetStores().SubRepo.(*testutil.InMemorySubscriptionStore).RemoveProduct(s.GetContext(), sub.ID, "prod_newspaper")
	s.GetStores().SubRepo.(*testutil.InMemorySubscriptionStore).AddProduct(&subscription.SubscriptionProduct{
		SubscriptionID: sub.ID,
		ProductID:      "prod_newspaper",
		Copies:         1,
		Active:         true,
		Address:        lo.ToPtr("18 de Julio 1234"),
		RouteID:        lo.ToPtr(55),
	})

	s.GetConfig().Billing.ExcludedRoutes = []int{55}
	result = s.billing.BillSubscription(s.GetContext(), sub.ID, s.billingDate())
	s.Equal(types.FailReasonRouteExcluded, result.FailReason)

	s.GetConfig().Billing.ExcludedRoutes = nil
	result = s.billing.BillSubscription(s.GetContext(), sub.ID, s.billingDate())
	s.Equal(types.BillingOutcomeBilled, result.Kind)
}

func (s *BillingServiceSuite) TestEnvelopeSurcharge() {
	s.GetConfig().Billing.EnvelopePrice = 20
	sub := s.seedSubscription()
	sub.Envelope = true
	s.GetStores().SubRepo.(*testutil.InMemorySubscriptionStore).RemoveProduct(s.GetContext(), sub.ID, "prod_newspaper")
	s.GetStores().SubRepo.(*testutil.InMemorySubscriptionStore).AddProduct(&subscription.SubscriptionProduct{
		SubscriptionID: sub.ID,
		ProductID:      "prod_newspaper",
		Copies:         1,
		Active:         true,
		Address:        lo.ToPtr("18 de Julio 1234"),
		HasEnvelope:    types.EnvelopeAssigned,
	})

	result := s.billing.BillSubscription(s.GetContext(), sub.ID, s.billingDate())

	s.Equal(types.BillingOutcomeBilled, result.Kind)
	// 1500 plus 20 * 1 product * 3 months
	s.Equal(int64(1560), result.Amount)
}

func (s *BillingServiceSuite) TestFreeEnvelopeIsNotCharged() {
	s.GetConfig().Billing.EnvelopePrice = 20
	sub := s.seedSubscription()
	sub.Envelope = true
	sub.FreeEnvelope = true
	s.GetStores().SubRepo.(*testutil.InMemorySubscriptionStore).RemoveProduct(s.GetContext(), sub.ID, "prod_newspaper")
	s.GetStores().SubRepo.(*testutil.InMemorySubscriptionStore).AddProduct(&subscription.SubscriptionProduct{
		SubscriptionID: sub.ID,
		ProductID:      "prod_newspaper",
		Copies:         1,
		Active:         true,
		Address:        lo.ToPtr("18 de Julio 1234"),
		HasEnvelope:    types.EnvelopeAssigned,
	})

	result := s.billing.BillSubscription(s.GetContext(), sub.ID, s.billingDate())

	s.Equal(types.BillingOutcomeBilled, result.Kind)
	s.Equal(int64(1500), result.Amount)
}

func (s *BillingServiceSuite) TestPositiveBalanceDiscountsAndSettles() {
	sub := s.seedSubscription()
	sub.Balance = lo.ToPtr(decimal.NewFromInt(200))

	result := s.billing.BillSubscription(s.GetContext(), sub.ID, s.billingDate())

	s.Equal(types.BillingOutcomeBilled, result.Kind)
	s.Equal(int64(1300), result.Amount)

	stored, err := s.GetStores().SubRepo.Get(s.GetContext(), sub.ID)
	s.NoError(err)
	s.Nil(stored.Balance)
}

func (s *BillingServiceSuite) TestNegativeBalanceSurchargesAndClears() {
	sub := s.seedSubscription()
	sub.Balance = lo.ToPtr(decimal.NewFromInt(-80))

	result := s.billing.BillSubscription(s.GetContext(), sub.ID, s.billingDate())

	s.Equal(types.BillingOutcomeBilled, result.Kind)
	s.Equal(int64(1580), result.Amount)

	stored, err := s.GetStores().SubRepo.Get(s.GetContext(), sub.ID)
	s.NoError(err)
	s.Nil(stored.Balance)
}

func (s *BillingServiceSuite) TestRoundingItemMakesAmountIntegral() {
	sub := s.seedSubscription()
	s.GetStores().ProductRepo.(*testutil.InMemoryProductStore).Clear()
	s.addProduct(&catalog.Product{
		ID:    "prod_newspaper",
		Name:  "Newspaper",
		Slug:  "newspaper",
		Type:  types.ProductTypeSubscription,
		Price: decimal.NewFromFloat(166.83),
	})

	result := s.billing.BillSubscription(s.GetContext(), sub.ID, s.billingDate())

	s.Equal(types.BillingOutcomeBilled, result.Kind)
	// 166.83 * 3 = 500.49 rounds down to 500
	s.Equal(int64(500), result.Amount)

	inv, err := s.GetStores().InvoiceRepo.Get(s.GetContext(), result.InvoiceID)
	s.NoError(err)
	s.True(inv.Amount.Equal(inv.SignedTotal()))
	s.True(inv.Amount.IsInteger())
}

func (s *BillingServiceSuite) TestOneShotProductIsRemovedAndClosesEmptySubscription() {
	sub := s.seedSubscription()
	s.GetStores().SubRepo.(*testutil.InMemorySubscriptionStore).Clear()
	s.GetStores().SubRepo.(*testutil.InMemorySubscriptionStore).Add(sub)
	sub.BillingEmail = lo.ToPtr("reader@example.com")
	s.addProduct(&catalog.Product{
		ID:               "prod_book",
		Name:             "Anniversary book",
		Type:             types.ProductTypeSubscription,
		Price:            decimal.NewFromInt(900),
		EditionFrequency: lo.ToPtr(types.EditionFrequencyOneShot),
	})
	s.GetStores().SubRepo.(*testutil.InMemorySubscriptionStore).AddProduct(&subscription.SubscriptionProduct{
		SubscriptionID: sub.ID,
		ProductID:      "prod_book",
		Copies:         1,
		Active:         true,
	})

	result := s.billing.BillSubscription(s.GetContext(), sub.ID, s.billingDate())

	s.Equal(types.BillingOutcomeBilled, result.Kind)
	// one-shot products bill a single edition despite the quarterly cadence
	s.Equal(int64(900), result.Amount)

	rows, err := s.GetStores().SubRepo.GetProducts(s.GetContext(), sub.ID)
	s.NoError(err)
	s.Empty(rows)

	stored, err := s.GetStores().SubRepo.Get(s.GetContext(), sub.ID)
	s.NoError(err)
	s.False(stored.Active)
	s.Equal(s.billingDate(), *stored.EndDate)
}

func (s *BillingServiceSuite) TestTemporaryDiscountExpiresAfterConfiguredMonths() {
	sub := s.seedSubscription()
	s.addProduct(&catalog.Product{
		ID:                      "prod_promo",
		Name:                    "Three months promo",
		Slug:                    "three-months-promo",
		Type:                    types.ProductTypeFlatDiscount,
		Price:                   decimal.NewFromInt(100),
		TemporaryDiscountMonths: lo.ToPtr(3),
	})
	s.GetStores().SubRepo.(*testutil.InMemorySubscriptionStore).AddProduct(&subscription.SubscriptionProduct{
		SubscriptionID: sub.ID,
		ProductID:      "prod_promo",
		Copies:         1,
		Active:         true,
	})

	// one quarterly invoice covers the full three promo months
	result := s.billing.BillSubscription(s.GetContext(), sub.ID, s.billingDate())

	s.Equal(types.BillingOutcomeBilled, result.Kind)
	// (500 - 100) * 3
	s.Equal(int64(1200), result.Amount)

	rows, err := s.GetStores().SubRepo.GetProducts(s.GetContext(), sub.ID)
	s.NoError(err)
	s.Len(rows, 1)
	s.Equal("prod_newspaper", rows[0].ProductID)
}

func (s *BillingServiceSuite) TestTemporaryDiscountSurvivesEarlyCycles() {
	sub := s.seedSubscription()
	s.addProduct(&catalog.Product{
		ID:                      "prod_promo",
		Name:                    "Six months promo",
		Slug:                    "six-months-promo",
		Type:                    types.ProductTypeFlatDiscount,
		Price:                   decimal.NewFromInt(100),
		TemporaryDiscountMonths: lo.ToPtr(6),
	})
	s.GetStores().SubRepo.(*testutil.InMemorySubscriptionStore).AddProduct(&subscription.SubscriptionProduct{
		SubscriptionID: sub.ID,
		ProductID:      "prod_promo",
		Copies:         1,
		Active:         true,
	})

	result := s.billing.BillSubscription(s.GetContext(), sub.ID, s.billingDate())
	s.Equal(types.BillingOutcomeBilled, result.Kind)

	// three of six promo months consumed, the discount stays
	rows, err := s.GetStores().SubRepo.GetProducts(s.GetContext(), sub.ID)
	s.NoError(err)
	s.Len(rows, 2)

	// the second cycle reaches six months and expires it
	result = s.billing.BillSubscription(s.GetContext(), sub.ID, time.Date(2024, 4, 1, 0, 0, 0, 0, time.UTC))
	s.Equal(types.BillingOutcomeBilled, result.Kind)

	rows, err = s.GetStores().SubRepo.GetProducts(s.GetContext(), sub.ID)
	s.NoError(err)
	s.Len(rows, 1)
	s.Equal("prod_newspaper", rows[0].ProductID)
}
