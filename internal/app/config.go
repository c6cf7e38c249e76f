package app

import (
	"os"
	"time"

	"github.com/cristalhq/aconfig"
	"github.com/cristalhq/aconfig/aconfigyaml"
	"github.com/go-faster/errors"
)

// Config holds the complete application configuration, loadable from
// environment variables (KART_ prefix), flags, or YAML config files.
type Config struct {
	Addr         string `default:"0.0.0.0:8080" usage:"API server listen address"`
	Currency     string `default:"₹" usage:"Currency symbol used in discount messages"`
	MaxBodyBytes int64  `default:"1048576" usage:"Maximum quote request body size" flag:"max-body-bytes"`
	Rules        RulesConfig
	Graceful     GracefulConfig
}

// RulesConfig is the discount catalogue. Percent maps use the "key:percent"
// list form, e.g. KART_RULES_BRANDS="PUMA:40,NIKE:25". Voucher restriction
// maps use "code:value" where multi-valued entries are separated by "|".
type RulesConfig struct {
	Order      []string          `default:"brand,category,voucher,bank" usage:"Rule application order"`
	Brands     map[string]string `default:"PUMA:40" usage:"Brand discounts (brand:percent)"`
	Categories map[string]string `default:"T-shirts:10" usage:"Category discounts (category:percent)"`
	BrandTiers map[string]string `usage:"Brand tier discounts (tier:percent)" flag:"brand-tiers"`
	Tiers      map[string]string `usage:"Customer tier discounts (tier:percent)"`

	Vouchers              map[string]string `default:"SUPER69:69" usage:"Voucher codes (code:percent)"`
	VoucherExcludedBrands map[string]string `usage:"Brands a voucher does not apply to (code:brand|brand)" flag:"voucher-excluded-brands"`
	VoucherCategories     map[string]string `usage:"Categories a voucher is limited to (code:category|category)" flag:"voucher-categories"`
	VoucherTiers          map[string]string `usage:"Customer tier required by a voucher (code:tier)" flag:"voucher-tiers"`
	VoucherMinItems       map[string]string `usage:"Minimum cart quantity for a voucher (code:count)" flag:"voucher-min-items"`
	VoucherMaxDiscount    map[string]string `usage:"Maximum reduction of a voucher (code:amount)" flag:"voucher-max-discount"`

	Banks           map[string]string `default:"ICICI:10" usage:"Bank card offers (bank:percent)"`
	BankBasis       string            `default:"original" usage:"Price a bank offer is computed on: original or running" flag:"bank-basis"`
	BankCardTypes   []string          `usage:"Card types eligible for bank offers; empty means any" flag:"bank-card-types"`
	BankMaxDiscount string            `usage:"Maximum reduction of a bank offer" flag:"bank-max-discount"`
}

// GracefulConfig controls graceful shutdown timing.
type GracefulConfig struct {
	ReadinessDelay  time.Duration `default:"3s"  usage:"Delay after readiness=false before shutdown" flag:"readiness-delay"`
	ShutdownTimeout time.Duration `default:"15s" usage:"Maximum shutdown duration" flag:"shutdown-timeout"`
}

// LoaderFor returns an aconfig loader reading dst from KART_ environment
// variables, flags and the standard YAML config files.
func LoaderFor(dst any) *aconfig.Loader {
	return aconfig.LoaderFor(dst, aconfig.Config{
		EnvPrefix: "KART",
		Files:     []string{"config.yaml", "/etc/kart/config.yaml"},
		FileDecoders: map[string]aconfig.FileDecoder{
			".yaml": aconfigyaml.New(),
		},
	})
}

// LoadConfig loads configuration from environment variables, YAML config files,
// and applies platform-specific defaults.
func LoadConfig() (*Config, error) {
	var cfg Config
	if err := LoaderFor(&cfg).Load(); err != nil {
		return nil, errors.Wrap(err, "load config")
	}
	cfg.applyPlatformDefaults()

	if cfg.MaxBodyBytes <= 0 {
		return nil, errors.Errorf("max body bytes must be positive, got %d", cfg.MaxBodyBytes)
	}
	return &cfg, nil
}

// applyPlatformDefaults maps a platform-provided PORT (Railway, Render, etc.)
// onto the default listen address.
func (c *Config) applyPlatformDefaults() {
	if port := os.Getenv("PORT"); port != "" && c.Addr == "0.0.0.0:8080" {
		c.Addr = "0.0.0.0:" + port
	}
}
