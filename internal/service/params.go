package service

import (
	"github.com/ladiaria/utopia-billing/internal/cache"
	"github.com/ladiaria/utopia-billing/internal/config"
	"github.com/ladiaria/utopia-billing/internal/domain/catalog"
	"github.com/ladiaria/utopia-billing/internal/domain/invoice"
	"github.com/ladiaria/utopia-billing/internal/domain/subscription"
	"github.com/ladiaria/utopia-billing/internal/logger"
	"github.com/ladiaria/utopia-billing/internal/postgres"
)

// ServiceParams holds common dependencies for services
type ServiceParams struct {
	Logger *logger.Logger
	Config *config.Configuration
	DB     postgres.IClient
	Cache  cache.Cache

	// Repositories
	ProductRepo          catalog.ProductRepository
	PriceRuleRepo        catalog.PriceRuleRepository
	ProductBundleRepo    catalog.ProductBundleRepository
	AdvancedDiscountRepo catalog.AdvancedDiscountRepository
	SubRepo              subscription.Repository
	InvoiceRepo          invoice.Repository
}
