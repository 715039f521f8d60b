package main

import (
	"context"
	"flag"
	"time"

	"github.com/jmoiron/sqlx"
	"go.uber.org/fx"

	"github.com/ladiaria/utopia-billing/internal/cache"
	"github.com/ladiaria/utopia-billing/internal/config"
	"github.com/ladiaria/utopia-billing/internal/domain/catalog"
	"github.com/ladiaria/utopia-billing/internal/domain/invoice"
	"github.com/ladiaria/utopia-billing/internal/domain/subscription"
	"github.com/ladiaria/utopia-billing/internal/logger"
	"github.com/ladiaria/utopia-billing/internal/postgres"
	"github.com/ladiaria/utopia-billing/internal/repository"
	"github.com/ladiaria/utopia-billing/internal/service"
	"github.com/ladiaria/utopia-billing/internal/types"
	"github.com/ladiaria/utopia-billing/internal/validator"
)

func init() {
	// All billing dates are calendar dates in UTC
	time.Local = time.UTC
}

type runOptions struct {
	billingDate    time.Time
	subscriptionID string
}

func parseFlags() (*runOptions, error) {
	dateArg := flag.String("date", "", "billing date in YYYY-MM-DD format, defaults to today")
	subArg := flag.String("subscription", "", "bill a single subscription id instead of every due one")
	flag.Parse()

	opts := &runOptions{
		billingDate:    types.DateOnly(time.Now().UTC()),
		subscriptionID: *subArg,
	}
	if *dateArg != "" {
		parsed, err := time.Parse("2006-01-02", *dateArg)
		if err != nil {
			return nil, err
		}
		opts.billingDate = parsed
	}
	return opts, nil
}

func newLogger(cfg *config.Configuration) (*logger.Logger, error) {
	return logger.NewLogger(cfg.Logging.Level)
}

func newServiceParams(
	cfg *config.Configuration,
	log *logger.Logger,
	db postgres.IClient,
	cacheClient cache.Cache,
	productRepo catalog.ProductRepository,
	priceRuleRepo catalog.PriceRuleRepository,
	productBundleRepo catalog.ProductBundleRepository,
	advancedDiscountRepo catalog.AdvancedDiscountRepository,
	subRepo subscription.Repository,
	invoiceRepo invoice.Repository,
) service.ServiceParams {
	return service.ServiceParams{
		Logger:               log,
		Config:               cfg,
		DB:                   db,
		Cache:                cacheClient,
		ProductRepo:          productRepo,
		PriceRuleRepo:        priceRuleRepo,
		ProductBundleRepo:    productBundleRepo,
		AdvancedDiscountRepo: advancedDiscountRepo,
		SubRepo:              subRepo,
		InvoiceRepo:          invoiceRepo,
	}
}

func main() {
	opts, err := parseFlags()
	if err != nil {
		logger.L.Fatalw("invalid arguments", "error", err)
	}

	app := fx.New(
		fx.Provide(
			validator.NewValidator,
			config.NewConfig,
			newLogger,
			cache.Initialize,
			postgres.NewDB,
			postgres.NewClient,

			repository.NewProductRepository,
			repository.NewPriceRuleRepository,
			repository.NewProductBundleRepository,
			repository.NewAdvancedDiscountRepository,
			repository.NewSubscriptionRepository,
			repository.NewInvoiceRepository,

			newServiceParams,

			service.NewCatalogService,
			service.NewBundleService,
			service.NewPricingService,
			service.NewBillingService,
			service.NewBatchService,
		),
		fx.Invoke(func(lc fx.Lifecycle, shutdowner fx.Shutdowner, deps runDeps) {
			lc.Append(fx.Hook{
				OnStart: func(context.Context) error {
					go func() {
						run(opts, deps)
						_ = shutdowner.Shutdown()
					}()
					return nil
				},
				OnStop: func(context.Context) error {
					return deps.DBConn.Close()
				},
			})
		}),
	)

	app.Run()
}

type runDeps struct {
	fx.In

	Logger  *logger.Logger
	DBConn  *sqlx.DB
	Billing service.BillingService
	Batch   service.BatchService
}

func run(opts *runOptions, deps runDeps) {
	ctx := context.Background()

	if opts.subscriptionID != "" {
		result := deps.Billing.BillSubscription(ctx, opts.subscriptionID, opts.billingDate)
		deps.Logger.Infow("billing finished",
			"subscription_id", result.SubscriptionID,
			"outcome", result.Kind,
			"skip_reason", result.SkipReason,
			"fail_reason", result.FailReason,
			"invoice_id", result.InvoiceID,
			"amount", result.Amount,
			"detail", result.Detail,
		)
		return
	}

	result, err := deps.Batch.RunBatch(ctx, opts.billingDate)
	if err != nil {
		deps.Logger.Errorw("billing run failed", "error", err)
		return
	}
	deps.Logger.Infow("billing run finished",
		"billing_date", result.BillingDate,
		"total", result.Total,
		"billed", result.Billed,
		"skipped", result.Skipped,
		"failed", result.Failed,
	)
}
