package cmd

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/shopfront/shopctl/internal/client"
	"github.com/shopfront/shopctl/internal/logging"
	"github.com/shopfront/shopctl/internal/seeder"
	"github.com/shopfront/shopctl/pkg/output"
)

var seederCfgFile string

var seederCmd = &cobra.Command{
	Use:   "seeder",
	Short: "Catalog seeder commands",
	Long:  "Generate realistic demo products and create them in the catalog",
}

var seederRunCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the catalog seeder",
	Long: `Generate products and create them through the product API. Requires
an admin session.

Configuration cascade (priority order):
  1. Command-line flags
  2. ./seeder.yaml (project directory)
  3. ~/.shopctl/seeder.yaml (user directory)
  4. Built-in defaults

Examples:
  # Create the default 20 products
  shopctl seeder run

  # Reproducible catalog with images
  shopctl seeder run --count 50 --seed 7 --images`,
	RunE: runSeeder,
}

var seederValidateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate seeder configuration",
	Long:  "Check if the seeder configuration file is valid without running the seeder",
	RunE: func(cmd *cobra.Command, args []string) error {
		config, err := seeder.LoadConfig(seederCfgFile)
		if err != nil {
			return fmt.Errorf("configuration validation failed: %w", err)
		}

		d := config.Defaults
		output.Success("Configuration is valid")
		output.Field("Version", config.Version)
		output.Field("Count", d.Count)
		output.Field("Concurrency", d.Concurrency)
		output.Field("Interval", d.Interval)
		output.Field("Price range", fmt.Sprintf("%.2f-%.2f", d.PriceMin, d.PriceMax))
		output.Field("Max quantity", d.MaxQuantity)
		output.Field("Out of stock", fmt.Sprintf("%.0f%%", d.OutOfStockRatio*100))
		output.Field("Regions", d.Regions)
		if len(d.CategoryIDs) > 0 {
			output.Field("Categories", d.CategoryIDs)
		}
		output.Field("Images", d.WithImages)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(seederCmd)
	seederCmd.AddCommand(seederRunCmd)
	seederCmd.AddCommand(seederValidateCmd)

	seederCmd.PersistentFlags().StringVar(&seederCfgFile, "seeder-config", "", "seeder config file (default: ./seeder.yaml or ~/.shopctl/seeder.yaml)")

	seederRunCmd.Flags().IntP("count", "c", 0, "Number of products to create")
	seederRunCmd.Flags().IntP("concurrency", "j", 0, "Requests in flight at once")
	seederRunCmd.Flags().Duration("interval", 0, "Pause between products (e.g. 200ms)")
	seederRunCmd.Flags().Int64("seed", 0, "Random seed for a reproducible catalog")
	seederRunCmd.Flags().Int64Slice("category-id", nil, "Category IDs to assign (repeatable)")
	seederRunCmd.Flags().Bool("images", false, "Upload a generated placeholder image with each product")
}

func runSeeder(cmd *cobra.Command, args []string) error {
	config, err := seeder.LoadConfig(seederCfgFile)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	flags := cmd.Flags()
	if flags.Changed("count") {
		config.Defaults.Count, _ = flags.GetInt("count")
	}
	if flags.Changed("concurrency") {
		config.Defaults.Concurrency, _ = flags.GetInt("concurrency")
	}
	if flags.Changed("interval") {
		config.Defaults.Interval, _ = flags.GetDuration("interval")
	}
	if flags.Changed("seed") {
		config.Defaults.Seed, _ = flags.GetInt64("seed")
	}
	if flags.Changed("category-id") {
		config.Defaults.CategoryIDs, _ = flags.GetInt64Slice("category-id")
	}
	if flags.Changed("images") {
		config.Defaults.WithImages, _ = flags.GetBool("images")
	}
	if err := config.Validate(); err != nil {
		return err
	}

	level, _ := flags.GetString("log-level")
	if level == "" {
		level = "info"
	}
	logger := logging.New(logging.ParseLevel(level), "text", cmd.ErrOrStderr()).
		With().
		Str(logging.FieldProfile, profileName(cmd)).
		Logger()

	products := client.NewProductClient(newAPIClient(cmd))
	start := time.Now()
	result, err := seeder.NewRunner(config, products, logger).Run(cmd.Context())
	if err != nil {
		return fmt.Errorf("seeder failed after %d products: %w", result.Created, err)
	}

	output.Success("Created %d products in %s", result.Created, time.Since(start).Round(time.Millisecond))
	if result.Failed > 0 {
		output.Warn("%d products could not be created", result.Failed)
	}
	return nil
}
