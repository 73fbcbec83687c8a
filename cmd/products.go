package cmd

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/shopfront/shopctl/internal/client"
	"github.com/shopfront/shopctl/pkg/output"
)

var productsCmd = &cobra.Command{
	Use:     "products",
	Aliases: []string{"product"},
	Short:   "Product catalog",
	Long:    "Browse, search and manage products in the catalog",
}

var productsListCmd = &cobra.Command{
	Use:     "list",
	Aliases: []string{"ls"},
	Short:   "List products",
	Long: `List products. Without --sort the first --limit products are returned;
with --sort price or --sort name the whole catalog is ordered by --order.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		limit, _ := cmd.Flags().GetInt("limit")
		sortBy, _ := cmd.Flags().GetString("sort")
		orderFlag, _ := cmd.Flags().GetString("order")

		products := client.NewProductClient(newAPIClient(cmd))

		var (
			list []client.Product
			err  error
		)
		switch strings.ToLower(sortBy) {
		case "":
			list, err = products.List(cmd.Context(), limit)
		case "price", "name":
			order, perr := client.ParseSortOrder(orderFlag)
			if perr != nil {
				return perr
			}
			if strings.EqualFold(sortBy, "price") {
				list, err = products.SortByPrice(cmd.Context(), order)
			} else {
				list, err = products.SortByName(cmd.Context(), order)
			}
		default:
			return fmt.Errorf("invalid sort field %q (want price or name)", sortBy)
		}
		if err != nil {
			return fmt.Errorf("failed to list products: %w", err)
		}

		return printProducts(cmd, list)
	},
}

var productsSearchCmd = &cobra.Command{
	Use:   "search [description]",
	Short: "Search products by description",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		products := client.NewProductClient(newAPIClient(cmd))
		list, err := products.Search(cmd.Context(), strings.Join(args, " "))
		if err != nil {
			return fmt.Errorf("failed to search products: %w", err)
		}
		return printProducts(cmd, list)
	},
}

var productsGetCmd = &cobra.Command{
	Use:   "get [id]",
	Short: "Get a product by ID",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := parseID(args[0], "product")
		if err != nil {
			return err
		}

		api := newAPIClient(cmd)
		product, err := client.NewProductClient(api).Get(cmd.Context(), id)
		if err != nil {
			return fmt.Errorf("failed to get product: %w", err)
		}

		format, _ := outputFormat(cmd)
		return output.Print(format, product, func() {
			output.Field("ID", product.ID)
			output.Field("Name", product.Name)
			output.Field("Description", product.Description)
			output.Field("Price", formatPrice(product.Price))
			output.Field("Quantity", product.Quantity)
			output.Field("Status", stockStatus(*product))
			if product.SKU != "" {
				output.Field("SKU", product.SKU)
			}
			if product.Manufacturer != "" {
				output.Field("Manufacturer", product.Manufacturer)
			}
			if product.Region != "" {
				output.Field("Region", product.Region)
			}
			if product.Category != nil {
				output.Field("Category", product.Category)
			}
			output.Field("Image", client.NewImageClient(api).ProductImageURL(product.ID))
		})
	},
}

var productsCreateCmd = &cobra.Command{
	Use:   "create",
	Short: "Create a product",
	Long:  "Create a product, optionally uploading its image in the same request (admin only)",
	RunE: func(cmd *cobra.Command, args []string) error {
		fields := productFieldsFromFlags(cmd.Flags(), client.ProductFields{})

		var image *client.Upload
		if path, _ := cmd.Flags().GetString("image"); path != "" {
			var err error
			if image, err = client.UploadFromFile(path); err != nil {
				return err
			}
		}

		product, err := client.NewProductClient(newAPIClient(cmd)).Create(cmd.Context(), fields, image)
		if err != nil {
			return fmt.Errorf("failed to create product: %w", err)
		}

		output.Success("Product created: %s", productLabel(*product))
		if product.ID != 0 {
			output.Info("ID: %d", product.ID)
		}
		return nil
	},
}

var productsUpdateCmd = &cobra.Command{
	Use:   "update [id]",
	Short: "Update a product",
	Long:  "Change the given fields of a product; other fields keep their current values (admin only)",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := parseID(args[0], "product")
		if err != nil {
			return err
		}

		products := client.NewProductClient(newAPIClient(cmd))
		current, err := products.Get(cmd.Context(), id)
		if err != nil {
			return fmt.Errorf("failed to get product: %w", err)
		}

		base := client.ProductFields{
			Name:         current.Name,
			Description:  current.Description,
			Price:        current.Price,
			Quantity:     current.Quantity,
			Manufacturer: current.Manufacturer,
			Region:       current.Region,
		}
		if current.Category != nil {
			base.CategoryID = current.Category.ID
		}

		updated, err := products.Update(cmd.Context(), id, productFieldsFromFlags(cmd.Flags(), base))
		if err != nil {
			return fmt.Errorf("failed to update product: %w", err)
		}

		if updated.ID == 0 {
			updated = current
		}
		output.Success("Product updated: %s", productLabel(*updated))
		return nil
	},
}

var productsDeleteCmd = &cobra.Command{
	Use:     "delete [id]",
	Aliases: []string{"rm"},
	Short:   "Delete a product (admin only)",
	Args:    cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := parseID(args[0], "product")
		if err != nil {
			return err
		}

		if err := client.NewProductClient(newAPIClient(cmd)).Delete(cmd.Context(), id); err != nil {
			return fmt.Errorf("failed to delete product: %w", err)
		}

		output.Success("Product %d deleted", id)
		return nil
	},
}

func printProducts(cmd *cobra.Command, list []client.Product) error {
	format, _ := outputFormat(cmd)
	if format != output.FormatTable {
		return output.Print(format, list, nil)
	}

	if len(list) == 0 {
		output.Info("No products found")
		return nil
	}

	table := output.NewTable([]string{"ID", "Name", "Description", "Price", "Qty", "Category", "Status"})
	for _, p := range list {
		table.AddRow([]string{
			strconv.FormatInt(p.ID, 10),
			p.Name,
			truncate(p.Description, 40),
			formatPrice(p.Price),
			strconv.Itoa(p.Quantity),
			p.Category.String(),
			stockStatus(p),
		})
	}
	table.Render()
	return nil
}

// productFieldsFromFlags overlays the flags the user set onto base.
func productFieldsFromFlags(flags *pflag.FlagSet, base client.ProductFields) client.ProductFields {
	if flags.Changed("name") {
		base.Name, _ = flags.GetString("name")
	}
	if flags.Changed("description") {
		base.Description, _ = flags.GetString("description")
	}
	if flags.Changed("price") {
		base.Price, _ = flags.GetFloat64("price")
	}
	if flags.Changed("quantity") {
		base.Quantity, _ = flags.GetInt("quantity")
	}
	if flags.Changed("manufacturer") {
		base.Manufacturer, _ = flags.GetString("manufacturer")
	}
	if flags.Changed("region") {
		base.Region, _ = flags.GetString("region")
	}
	if flags.Changed("category-id") {
		base.CategoryID, _ = flags.GetInt64("category-id")
	}
	return base
}

func addProductFieldFlags(cmd *cobra.Command) {
	cmd.Flags().String("name", "", "Product name")
	cmd.Flags().StringP("description", "d", "", "Product description")
	cmd.Flags().Float64("price", 0, "Unit price")
	cmd.Flags().Int("quantity", 0, "Quantity in stock")
	cmd.Flags().String("manufacturer", "", "Manufacturer")
	cmd.Flags().String("region", "", "Region")
	cmd.Flags().Int64("category-id", 0, "Category ID")
}

func productLabel(p client.Product) string {
	if p.Name != "" {
		return p.Name
	}
	return p.Description
}

func formatPrice(price float64) string {
	return strconv.FormatFloat(price, 'f', 2, 64)
}

func stockStatus(p client.Product) string {
	if p.InStock() {
		return "in stock"
	}
	return "out of stock"
}

func truncate(s string, max int) string {
	r := []rune(s)
	if len(r) <= max {
		return s
	}
	return string(r[:max-3]) + "..."
}

func init() {
	rootCmd.AddCommand(productsCmd)
	productsCmd.AddCommand(productsListCmd)
	productsCmd.AddCommand(productsSearchCmd)
	productsCmd.AddCommand(productsGetCmd)
	productsCmd.AddCommand(productsCreateCmd)
	productsCmd.AddCommand(productsUpdateCmd)
	productsCmd.AddCommand(productsDeleteCmd)

	productsListCmd.Flags().Int("limit", client.DefaultListLimit, "Maximum number of products")
	productsListCmd.Flags().String("sort", "", "Sort by field: price or name")
	productsListCmd.Flags().String("order", string(client.SortAsc), "Sort order: asc or desc")

	addProductFieldFlags(productsCreateCmd)
	productsCreateCmd.Flags().String("image", "", "Image file to upload with the product")
	productsCreateCmd.MarkFlagRequired("description")
	productsCreateCmd.MarkFlagRequired("price")

	addProductFieldFlags(productsUpdateCmd)
}
