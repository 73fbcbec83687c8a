package seeder

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config is the catalog seeder configuration.
type Config struct {
	Version  string         `mapstructure:"version" yaml:"version"`
	Defaults DefaultsConfig `mapstructure:"defaults" yaml:"defaults"`
}

// DefaultsConfig holds the generation and pacing settings.
type DefaultsConfig struct {
	Count           int           `mapstructure:"count" yaml:"count"`
	Concurrency     int           `mapstructure:"concurrency" yaml:"concurrency"`
	Interval        time.Duration `mapstructure:"interval" yaml:"interval"`
	Seed            int64         `mapstructure:"seed" yaml:"seed"`
	PriceMin        float64       `mapstructure:"price_min" yaml:"price_min"`
	PriceMax        float64       `mapstructure:"price_max" yaml:"price_max"`
	MaxQuantity     int           `mapstructure:"max_quantity" yaml:"max_quantity"`
	OutOfStockRatio float64       `mapstructure:"out_of_stock_ratio" yaml:"out_of_stock_ratio"`
	CategoryIDs     []int64       `mapstructure:"category_ids" yaml:"category_ids"`
	Regions         []string      `mapstructure:"regions" yaml:"regions"`
	WithImages      bool          `mapstructure:"with_images" yaml:"with_images"`
}

// LoadConfig loads configuration with cascade: flags > ./seeder.yaml > ~/.shopctl/seeder.yaml > defaults
func LoadConfig(configPath string) (*Config, error) {
	v := viper.New()

	setDefaults(v)

	v.SetConfigName("seeder")
	v.SetConfigType("yaml")
	v.SetEnvPrefix("SEEDER")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.AddConfigPath(".")
		if home, err := os.UserHomeDir(); err == nil {
			v.AddConfigPath(filepath.Join(home, ".shopctl"))
		}
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &config, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("version", "1.0")

	v.SetDefault("defaults.count", 20)
	v.SetDefault("defaults.concurrency", 4)
	v.SetDefault("defaults.interval", 0)
	v.SetDefault("defaults.seed", 0)
	v.SetDefault("defaults.price_min", 1.0)
	v.SetDefault("defaults.price_max", 500.0)
	v.SetDefault("defaults.max_quantity", 100)
	v.SetDefault("defaults.out_of_stock_ratio", 0.1)
	v.SetDefault("defaults.regions", []string{"EU", "US", "APAC"})
	v.SetDefault("defaults.with_images", false)
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	d := c.Defaults

	if d.Count <= 0 {
		return fmt.Errorf("count must be positive, got %d", d.Count)
	}
	if d.Concurrency <= 0 {
		return fmt.Errorf("concurrency must be positive, got %d", d.Concurrency)
	}
	if d.PriceMin < 0 || d.PriceMax < d.PriceMin {
		return fmt.Errorf("invalid price range %.2f-%.2f", d.PriceMin, d.PriceMax)
	}
	if d.MaxQuantity < 1 {
		return fmt.Errorf("max_quantity must be at least 1, got %d", d.MaxQuantity)
	}
	if d.OutOfStockRatio < 0 || d.OutOfStockRatio > 1 {
		return fmt.Errorf("out_of_stock_ratio must be between 0 and 1, got %.2f", d.OutOfStockRatio)
	}
	for _, id := range d.CategoryIDs {
		if id <= 0 {
			return fmt.Errorf("invalid category id %d", id)
		}
	}

	return nil
}
