package config

import (
	"errors"
	"log"
	"strings"
	"sync/atomic"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
)

// CompanyProfile is the issuing company identity printed on quotations,
// PDFs, and outgoing emails, plus document defaults.
type CompanyProfile struct {
	Name           string `mapstructure:"name"`
	Address        string `mapstructure:"address"`
	Email          string `mapstructure:"email"`
	Phone          string `mapstructure:"phone"`
	BankDetails    string `mapstructure:"bankDetails"`
	CurrencySymbol string `mapstructure:"currencySymbol"`

	// NumberTemplate drives quotation numbering, e.g. "QT-{YYYY}{MM}{DD}-{SEQ3}".
	NumberTemplate string `mapstructure:"numberTemplate"`

	// DefaultTaxRateUnits is the pre-filled tax rate in stored units
	// (500 = 5.00%).
	DefaultTaxRateUnits int64 `mapstructure:"defaultTaxRateUnits"`
}

func DefaultCompanyProfile() CompanyProfile {
	return CompanyProfile{
		Name:                "Quotar",
		Address:             "",
		Email:               "quotes@example.com",
		CurrencySymbol:      "$",
		NumberTemplate:      "QT-{YYYY}{MM}{DD}-{SEQ3}",
		DefaultTaxRateUnits: 500,
	}
}

// CompanyProfileHolder serves the current profile and hot-reloads it
// when company.yml changes on disk.
type CompanyProfileHolder struct {
	current atomic.Value // holds CompanyProfile
}

func NewCompanyProfileHolder() (*CompanyProfileHolder, error) {
	v := viper.New()

	v.SetConfigName("company")
	v.SetConfigType("yml")
	v.AddConfigPath("/var/lib/quotar/config")
	v.AddConfigPath("/etc/quotar")
	v.AddConfigPath(".")

	v.SetEnvPrefix("QUOTAR")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	defaults := DefaultCompanyProfile()
	v.SetDefault("company.name", defaults.Name)
	v.SetDefault("company.email", defaults.Email)
	v.SetDefault("company.currencySymbol", defaults.CurrencySymbol)
	v.SetDefault("company.numberTemplate", defaults.NumberTemplate)
	v.SetDefault("company.defaultTaxRateUnits", defaults.DefaultTaxRateUnits)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, err
		}
	}

	var profile CompanyProfile
	if err := v.UnmarshalKey("company", &profile); err != nil {
		return nil, err
	}
	if err := validateCompanyProfile(profile); err != nil {
		return nil, err
	}

	holder := &CompanyProfileHolder{}
	holder.current.Store(profile)

	v.WatchConfig()
	v.OnConfigChange(func(e fsnotify.Event) {
		var updated CompanyProfile
		if err := v.UnmarshalKey("company", &updated); err != nil {
			log.Printf("[company-config] reload failed: %v", err)
			return
		}
		if err := validateCompanyProfile(updated); err != nil {
			log.Printf("[company-config] invalid config ignored: %v", err)
			return
		}
		holder.current.Store(updated)
		log.Printf("[company-config] reloaded from %s", e.Name)
	})

	return holder, nil
}

// NewStaticCompanyProfileHolder wraps a fixed profile, bypassing the
// file watcher. Intended for tests.
func NewStaticCompanyProfileHolder(p CompanyProfile) *CompanyProfileHolder {
	holder := &CompanyProfileHolder{}
	holder.current.Store(p)
	return holder
}

func (h *CompanyProfileHolder) Get() CompanyProfile {
	return h.current.Load().(CompanyProfile)
}

func validateCompanyProfile(p CompanyProfile) error {
	if strings.TrimSpace(p.Name) == "" {
		return errors.New("company.name cannot be empty")
	}
	if strings.TrimSpace(p.NumberTemplate) == "" {
		return errors.New("company.numberTemplate cannot be empty")
	}
	if p.DefaultTaxRateUnits < 0 {
		return errors.New("company.defaultTaxRateUnits cannot be negative")
	}
	return nil
}
