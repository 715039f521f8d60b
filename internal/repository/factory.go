package repository

import (
	"github.com/ladiaria/utopia-billing/internal/domain/catalog"
	"github.com/ladiaria/utopia-billing/internal/domain/invoice"
	"github.com/ladiaria/utopia-billing/internal/domain/subscription"
	"github.com/ladiaria/utopia-billing/internal/logger"
	"github.com/ladiaria/utopia-billing/internal/postgres"
	postgresRepo "github.com/ladiaria/utopia-billing/internal/repository/postgres"
)

func NewProductRepository(db postgres.IClient, logger *logger.Logger) catalog.ProductRepository {
	return postgresRepo.NewProductRepository(db, logger)
}

func NewPriceRuleRepository(db postgres.IClient, logger *logger.Logger) catalog.PriceRuleRepository {
	return postgresRepo.NewPriceRuleRepository(db, logger)
}

func NewProductBundleRepository(db postgres.IClient, logger *logger.Logger) catalog.ProductBundleRepository {
	return postgresRepo.NewProductBundleRepository(db, logger)
}

func NewAdvancedDiscountRepository(db postgres.IClient, logger *logger.Logger) catalog.AdvancedDiscountRepository {
	return postgresRepo.NewAdvancedDiscountRepository(db, logger)
}

func NewSubscriptionRepository(db postgres.IClient, logger *logger.Logger) subscription.Repository {
	return postgresRepo.NewSubscriptionRepository(db, logger)
}

func NewInvoiceRepository(db postgres.IClient, logger *logger.Logger) invoice.Repository {
	return postgresRepo.NewInvoiceRepository(db, logger)
}
