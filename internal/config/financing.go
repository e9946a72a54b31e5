package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/spf13/viper"
)

// FinancingPolicy holds the business knobs of the schedule engine
type FinancingPolicy struct {
	DefaultPaymentDay      int
	DefaultFinancingMonths int
	MaxFinancingMonths     int
	OverdueSweepInterval   time.Duration
	MinInstallmentAmount   decimal.Decimal
}

// DefaultFinancingPolicy returns the policy used when no file is provided
func DefaultFinancingPolicy() FinancingPolicy {
	return FinancingPolicy{
		DefaultPaymentDay:      15,
		DefaultFinancingMonths: 12,
		MaxFinancingMonths:     360,
		OverdueSweepInterval:   time.Hour,
		MinInstallmentAmount:   decimal.RequireFromString("0.01"),
	}
}

// LoadFinancingPolicy reads financing.yml from path (or the default search paths when path is empty).
// LOTES_FINANCING_* environment variables override file values.
func LoadFinancingPolicy(path string) (FinancingPolicy, error) {
	defaults := DefaultFinancingPolicy()

	v := viper.New()
	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("financing")
		v.SetConfigType("yml")
		v.AddConfigPath("/etc/lotes-api")
		v.AddConfigPath(".")
	}

	v.SetEnvPrefix("LOTES")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetDefault("financing.default_payment_day", defaults.DefaultPaymentDay)
	v.SetDefault("financing.default_financing_months", defaults.DefaultFinancingMonths)
	v.SetDefault("financing.max_financing_months", defaults.MaxFinancingMonths)
	v.SetDefault("financing.overdue_sweep_interval", defaults.OverdueSweepInterval)
	v.SetDefault("financing.min_installment_amount", defaults.MinInstallmentAmount.String())

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) || path != "" {
			return FinancingPolicy{}, fmt.Errorf("read financing policy: %w", err)
		}
	}

	policy := FinancingPolicy{
		DefaultPaymentDay:      v.GetInt("financing.default_payment_day"),
		DefaultFinancingMonths: v.GetInt("financing.default_financing_months"),
		MaxFinancingMonths:     v.GetInt("financing.max_financing_months"),
		OverdueSweepInterval:   v.GetDuration("financing.overdue_sweep_interval"),
	}

	minAmount, err := decimal.NewFromString(v.GetString("financing.min_installment_amount"))
	if err != nil {
		return FinancingPolicy{}, fmt.Errorf("financing.min_installment_amount: %w", err)
	}
	policy.MinInstallmentAmount = minAmount

	if err := policy.Validate(); err != nil {
		return FinancingPolicy{}, err
	}
	return policy, nil
}

// Validate checks the policy for values the engine cannot work with
func (p FinancingPolicy) Validate() error {
	if p.DefaultPaymentDay < 1 || p.DefaultPaymentDay > 31 {
		return fmt.Errorf("default_payment_day must be between 1 and 31, got %d", p.DefaultPaymentDay)
	}
	if p.MaxFinancingMonths < 1 {
		return fmt.Errorf("max_financing_months must be positive, got %d", p.MaxFinancingMonths)
	}
	if p.DefaultFinancingMonths < 1 || p.DefaultFinancingMonths > p.MaxFinancingMonths {
		return fmt.Errorf("default_financing_months must be between 1 and %d, got %d", p.MaxFinancingMonths, p.DefaultFinancingMonths)
	}
	if p.OverdueSweepInterval <= 0 {
		return fmt.Errorf("overdue_sweep_interval must be positive")
	}
	if !p.MinInstallmentAmount.IsPositive() {
		return fmt.Errorf("min_installment_amount must be positive")
	}
	return nil
}
