package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/joho/godotenv"
	"github.com/samber/lo"
	"github.com/shopspring/decimal"
	"github.com/spf13/viper"

	"github.com/ladiaria/utopia-billing/internal/types"
	"github.com/ladiaria/utopia-billing/internal/validator"
)

type Configuration struct {
	Deployment DeploymentConfig `validate:"required"`
	Logging    LoggingConfig    `validate:"required"`
	Postgres   PostgresConfig
	Cache      CacheConfig
	Billing    BillingConfig `validate:"required"`
}

type DeploymentConfig struct {
	Mode string `mapstructure:"mode" validate:"required"`
}

type LoggingConfig struct {
	Level string `mapstructure:"level" validate:"required"`
}

type PostgresConfig struct {
	Host                   string `mapstructure:"host"`
	Port                   int    `mapstructure:"port"`
	User                   string `mapstructure:"user"`
	Password               string `mapstructure:"password"`
	DBName                 string `mapstructure:"dbname"`
	SSLMode                string `mapstructure:"sslmode"`
	MaxOpenConns           int    `mapstructure:"max_open_conns"`
	MaxIdleConns           int    `mapstructure:"max_idle_conns"`
	ConnMaxLifetimeMinutes int    `mapstructure:"conn_max_lifetime_minutes"`
}

type CacheConfig struct {
	Enabled bool `mapstructure:"enabled"`
}

// BillingConfig is the explicit replacement for the settings lookups the
// billing engine depends on. Every knob the pricing pipeline or the cycle
// driver reads lives here; there is no ambient global state.
type BillingConfig struct {
	// EnvelopePrice is the per-product, per-month envelope surcharge.
	// Zero disables envelope billing entirely.
	EnvelopePrice float64 `mapstructure:"envelope_price"`

	// Frequency discount percentages for multi-month cadences
	Discount3Months  float64 `mapstructure:"discount_3_months"`
	Discount6Months  float64 `mapstructure:"discount_6_months"`
	Discount12Months float64 `mapstructure:"discount_12_months"`

	// GraceDays widens the due window: a subscription is due when
	// next_billing <= billing_date + GraceDays
	GraceDays int `mapstructure:"grace_days"`

	// DefaultDPP is the number of days until a created invoice expires
	DefaultDPP int `mapstructure:"default_dpp" validate:"required,gt=0"`

	// ForceDummyMissingBillingData bills with placeholder billing data
	// instead of failing when a subscription has no usable address
	ForceDummyMissingBillingData bool `mapstructure:"force_dummy_missing_billing_data"`

	// RequireRouteForBilling rejects subscriptions whose billing data
	// resolves without a distribution route
	RequireRouteForBilling bool `mapstructure:"require_route_for_billing"`

	// ExcludedRoutes lists routes whose subscriptions must not be billed
	ExcludedRoutes []int `mapstructure:"excluded_routes"`

	// BatchWorkers is the parallelism of a batch billing run
	BatchWorkers int `mapstructure:"batch_workers" validate:"required,gt=0"`
}

// FrequencyDiscountPct returns the configured discount percentage for a
// billing cadence, zero when the cadence carries no discount.
func (b BillingConfig) FrequencyDiscountPct(frequency types.BillingFrequency) decimal.Decimal {
	switch frequency.Months() {
	case 3:
		return decimal.NewFromFloat(b.Discount3Months)
	case 6:
		return decimal.NewFromFloat(b.Discount6Months)
	case 12:
		return decimal.NewFromFloat(b.Discount12Months)
	default:
		return decimal.Zero
	}
}

// EnvelopeUnitPrice returns the envelope surcharge as currency
func (b BillingConfig) EnvelopeUnitPrice() decimal.Decimal {
	return decimal.NewFromFloat(b.EnvelopePrice)
}

// IsRouteExcluded reports whether a route is barred from billing
func (b BillingConfig) IsRouteExcluded(route int) bool {
	return lo.Contains(b.ExcludedRoutes, route)
}

func NewConfig() (*Configuration, error) {
	// .env is optional, real deployments use environment variables
	_ = godotenv.Load()

	v := viper.New()

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath("./internal/config")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")
	v.AddConfigPath("/etc/utopia-billing")

	v.SetEnvPrefix("UTOPIA")
	v.SetEnvKeyReplacer(strings.NewReplacer(
		".", "_",
		"-", "_",
	))
	v.AutomaticEnv()

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		if !errors.As(err, &viper.ConfigFileNotFoundError{}) {
			return nil, err
		}
	}

	var config Configuration
	if err := v.Unmarshal(&config); err != nil {
		return nil, err
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}

	return &config, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("deployment.mode", "local")
	v.SetDefault("logging.level", "info")
	v.SetDefault("postgres.host", "localhost")
	v.SetDefault("postgres.port", 5432)
	v.SetDefault("postgres.sslmode", "disable")
	v.SetDefault("postgres.max_open_conns", 10)
	v.SetDefault("postgres.max_idle_conns", 5)
	v.SetDefault("postgres.conn_max_lifetime_minutes", 30)
	v.SetDefault("cache.enabled", true)
	v.SetDefault("billing.default_dpp", 10)
	v.SetDefault("billing.grace_days", 0)
	v.SetDefault("billing.batch_workers", 4)
}

func (c Configuration) Validate() error {
	return validator.ValidateRequest(c)
}

// GetDefaultConfig returns a default configuration for local development
// and tests. Not suitable for production.
func GetDefaultConfig() *Configuration {
	return &Configuration{
		Deployment: DeploymentConfig{Mode: "local"},
		Logging:    LoggingConfig{Level: "debug"},
		Cache:      CacheConfig{Enabled: true},
		Billing: BillingConfig{
			Discount3Months:  0,
			Discount6Months:  0,
			Discount12Months: 0,
			GraceDays:        0,
			DefaultDPP:       10,
			BatchWorkers:     2,
		},
	}
}

func (c PostgresConfig) GetDSN() string {
	return fmt.Sprintf(
		"user=%s password=%s dbname=%s host=%s port=%d sslmode=%s",
		c.User, c.Password, c.DBName, c.Host, c.Port, c.SSLMode,
	)
}
