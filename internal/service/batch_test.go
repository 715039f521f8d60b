package service

import (
	"fmt"
	"sync"
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

type BatchServiceSuite struct {
	testutil.BaseServiceTestSuite
	batch BatchService
}

func TestBatchService(t *testing.T) {
	suite.Run(t, new(BatchServiceSuite))
}

func (s *BatchServiceSuite) SetupTest() {
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
	billing := NewBillingService(
		params,
		catalogService,
		NewBundleService(params, catalogService),
		NewPricingService(params, catalogService),
	)
	s.batch = NewBatchService(params, billing)
}

func (s *BatchServiceSuite) billingDate() time.Time {
	return time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
}

func (s *BatchServiceSuite) seedSubscription(id string, price int64, paymentType *types.PaymentType) {
	productID := "prod_" + id
	s.GetStores().ProductRepo.(*testutil.InMemoryProductStore).Add(&catalog.Product{
		ID:    productID,
		Name:  "Product " + id,
		Type:  types.ProductTypeSubscription,
		Price: decimal.NewFromInt(price),
	})

	sub := &subscription.Subscription{
		ID:          id,
		ContactID:   "contact_" + id,
		Active:      true,
		Type:        types.SubscriptionTypeNormal,
		Frequency:   types.BillingFrequencyMonthly,
		PaymentType: paymentType,
		StartDate:   time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
		NextBilling: lo.ToPtr(s.billingDate()),
	}
	s.GetStores().SubRepo.(*testutil.InMemorySubscriptionStore).Add(sub)
	s.GetStores().SubRepo.(*testutil.InMemorySubscriptionStore).AddProduct(&subscription.SubscriptionProduct{
		SubscriptionID: sub.ID,
		ProductID:      productID,
		Copies:         1,
		Active:         true,
		Address:        lo.ToPtr("Some street 1"),
	})
}

func (s *BatchServiceSuite) TestRunBillsEveryDueSubscription() {
	s.seedSubscription("subs_a", 100, lo.ToPtr(types.PaymentTypeCash))
	s.seedSubscription("subs_b", 200, lo.ToPtr(types.PaymentTypeDebit))
	s.seedSubscription("subs_c", 300, lo.ToPtr(types.PaymentTypeCash))

	result, err := s.batch.RunBatch(s.GetContext(), s.billingDate())

	s.NoError(err)
	s.Equal(3, result.Total)
	s.Equal(3, result.Billed)
	s.Zero(result.Skipped)
	s.Zero(result.Failed)

	for _, id := range []string{"subs_a", "subs_b", "subs_c"} {
		sub, err := s.GetStores().SubRepo.Get(s.GetContext(), id)
		s.NoError(err)
		s.Equal(time.Date(2024, 4, 1, 0, 0, 0, 0, time.UTC), *sub.NextBilling)

		invoices, err := s.GetStores().InvoiceRepo.ListBySubscription(s.GetContext(), id)
		s.NoError(err)
		s.Len(invoices, 1)
	}
}

func (s *BatchServiceSuite) TestRunMixesOutcomes() {
	s.seedSubscription("subs_ok", 100, lo.ToPtr(types.PaymentTypeCash))
	// listed as due but skipped by the driver's eligibility check
	s.seedSubscription("subs_nopay", 200, nil)
	// priced to zero, fails
	s.seedSubscription("subs_zero", 0, lo.ToPtr(types.PaymentTypeCash))

	result, err := s.batch.RunBatch(s.GetContext(), s.billingDate())

	s.NoError(err)
	s.Equal(3, result.Total)
	s.Equal(1, result.Billed)
	s.Equal(1, result.Skipped)
	s.Equal(1, result.Failed)

	byID := lo.KeyBy(result.Results, func(r *BillingResult) string { return r.SubscriptionID })
	s.Equal(types.BillingOutcomeBilled, byID["subs_ok"].Kind)
	s.Equal(types.SkipReasonMissingPaymentType, byID["subs_nopay"].SkipReason)
	s.Equal(types.FailReasonZeroAmount, byID["subs_zero"].FailReason)

	// failed and skipped subscriptions keep their billing clock
	for _, id := range []string{"subs_nopay", "subs_zero"} {
		sub, err := s.GetStores().SubRepo.Get(s.GetContext(), id)
		s.NoError(err)
		s.Equal(s.billingDate(), *sub.NextBilling)
	}
}

func (s *BatchServiceSuite) TestRunWithNothingDue() {
	s.seedSubscription("subs_future", 100, lo.ToPtr(types.PaymentTypeCash))
	sub, err := s.GetStores().SubRepo.Get(s.GetContext(), "subs_future")
	s.NoError(err)
	sub.NextBilling = lo.ToPtr(time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC))

	result, err := s.batch.RunBatch(s.GetContext(), s.billingDate())

	s.NoError(err)
	s.Zero(result.Total)
	s.Empty(result.Results)
}

func (s *BatchServiceSuite) TestLockTableIsStableAndBounded() {
	batch := s.batch.(*batchService)

	// same id always maps to the same mutex
	s.Same(batch.lockFor("subs_1"), batch.lockFor("subs_1"))

	// arbitrarily many distinct ids share a fixed set of stripes
	stripes := make(map[*sync.Mutex]bool)
	for i := 0; i < lockStripes*4; i++ {
		stripes[batch.lockFor(fmt.Sprintf("subs_%d", i))] = true
	}
	s.LessOrEqual(len(stripes), lockStripes)
}
