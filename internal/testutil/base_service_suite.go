package testutil

import (
	"context"
	"time"

	"github.com/stretchr/testify/suite"

	"github.com/ladiaria/utopia-billing/internal/cache"
	"github.com/ladiaria/utopia-billing/internal/config"
	"github.com/ladiaria/utopia-billing/internal/domain/catalog"
	"github.com/ladiaria/utopia-billing/internal/domain/invoice"
	"github.com/ladiaria/utopia-billing/internal/domain/subscription"
	"github.com/ladiaria/utopia-billing/internal/logger"
	"github.com/ladiaria/utopia-billing/internal/postgres"
	"github.com/ladiaria/utopia-billing/internal/types"
	"github.com/ladiaria/utopia-billing/internal/validator"
)

// Stores holds all the repository interfaces for testing
type Stores struct {
	ProductRepo          catalog.ProductRepository
	PriceRuleRepo        catalog.PriceRuleRepository
	ProductBundleRepo    catalog.ProductBundleRepository
	AdvancedDiscountRepo catalog.AdvancedDiscountRepository
	SubRepo              subscription.Repository
	InvoiceRepo          invoice.Repository
}

// BaseServiceTestSuite provides common functionality for all service test suites
type BaseServiceTestSuite struct {
	suite.Suite
	ctx    context.Context
	stores Stores
	db     postgres.IClient
	cache  cache.Cache
	logger *logger.Logger
	config *config.Configuration
	now    time.Time
}

// SetupSuite is called once before running the tests in the suite
func (s *BaseServiceTestSuite) SetupSuite() {
	validator.NewValidator()
	s.logger = logger.NewNopLogger()
}

// SetupTest is called before each test
func (s *BaseServiceTestSuite) SetupTest() {
	// fresh config every test, tests mutate billing knobs
	s.config = config.GetDefaultConfig()
	s.setupContext()
	s.setupStores()
	s.now = time.Now().UTC()
}

// TearDownTest is called after each test
func (s *BaseServiceTestSuite) TearDownTest() {
	s.ClearStores()
}

func (s *BaseServiceTestSuite) setupContext() {
	s.ctx = context.Background()
	s.ctx = context.WithValue(s.ctx, types.CtxUserID, types.DefaultUserID)
	s.ctx = context.WithValue(s.ctx, types.CtxRequestID, types.GenerateUUID())
}

func (s *BaseServiceTestSuite) setupStores() {
	productStore := NewInMemoryProductStore()
	s.stores = Stores{
		ProductRepo:          productStore,
		PriceRuleRepo:        NewInMemoryPriceRuleStore(),
		ProductBundleRepo:    NewInMemoryProductBundleStore(),
		AdvancedDiscountRepo: NewInMemoryAdvancedDiscountStore(),
		SubRepo:              NewInMemorySubscriptionStore(),
		InvoiceRepo:          NewInMemoryInvoiceStore(productStore),
	}

	s.db = NewMockPostgresClient(s.logger)
	s.cache = cache.Initialize(s.config, s.logger)
}

// ClearStores resets every repository to an empty state
func (s *BaseServiceTestSuite) ClearStores() {
	s.stores.ProductRepo.(*InMemoryProductStore).Clear()
	s.stores.PriceRuleRepo.(*InMemoryPriceRuleStore).Clear()
	s.stores.ProductBundleRepo.(*InMemoryProductBundleStore).Clear()
	s.stores.AdvancedDiscountRepo.(*InMemoryAdvancedDiscountStore).Clear()
	s.stores.SubRepo.(*InMemorySubscriptionStore).Clear()
	s.stores.InvoiceRepo.(*InMemoryInvoiceStore).Clear()
	s.cache.Flush(s.ctx)
}

// GetContext returns the test context
func (s *BaseServiceTestSuite) GetContext() context.Context {
	return s.ctx
}

// GetConfig returns the test configuration
func (s *BaseServiceTestSuite) GetConfig() *config.Configuration {
	return s.config
}

// GetStores returns all test repositories
func (s *BaseServiceTestSuite) GetStores() Stores {
	return s.stores
}

// GetDB returns the test database client
func (s *BaseServiceTestSuite) GetDB() postgres.IClient {
	return s.db
}

// GetCache returns the test cache
func (s *BaseServiceTestSuite) GetCache() cache.Cache {
	return s.cache
}

// GetLogger returns the test logger
func (s *BaseServiceTestSuite) GetLogger() *logger.Logger {
	return s.logger
}

// GetNow returns the timestamp fixed at test setup
func (s *BaseServiceTestSuite) GetNow() time.Time {
	return s.now
}
