package main

import (
	"errors"
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"storefront/internal/client"
	"storefront/internal/models"
	"storefront/internal/services"
)

var (
	productsQuery    models.ListQuery
	productsCriteria models.Criteria
	productsSort     string
	productsRetries  int
)

var productsCmd = &cobra.Command{
	Use:   "products",
	Short: "Fetch and print a product listing",
	Long: `Fetches one listing from the Catalog Service, applies the local filters
and sort order, and prints the visible products.`,
	Args: cobra.NoArgs,
	RunE: runProducts,
}

func init() {
	f := productsCmd.Flags()
	f.StringVar(&productsQuery.Gender, "gender", "", "gender sent to the Catalog Service")
	f.StringVar(&productsQuery.Category, "category", "", "category sent to the Catalog Service")
	f.StringVar(&productsQuery.Keyword, "keyword", "", "keyword sent to the Catalog Service")
	f.StringVar(&productsQuery.OnSale, "on-sale", "", `"true" to fetch sale items only`)
	f.StringVar(&productsCriteria.Color, "color", "", "keep products offered in this color")
	f.StringVar(&productsCriteria.Size, "size", "", "keep products offered in this size")
	f.StringVar(&productsCriteria.PriceRange, "price-range", "", "under-25, 25-50, 50-100 or over-100")
	f.StringVar(&productsSort, "sort", "", "name, price-low or price-high")
	f.IntVar(&productsRetries, "retry", 0, "retries after a failed fetch")
}

func runProducts(cmd *cobra.Command, _ []string) error {
	cfg, logger, err := setup()
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	api, err := client.New(cfg.APIURL, client.WithLogger(logger.Named("client")))
	if err != nil {
		return err
	}

	view := services.NewListingView(api,
		services.WithFetchTimeout(cfg.FetchTimeout),
		services.WithViewLogger(logger.Named("listing")))

	ctx := cmd.Context()
	err = view.Navigate(ctx, productsQuery)
	for attempt := 0; err != nil && attempt < productsRetries; attempt++ {
		fmt.Fprintf(cmd.ErrOrStderr(), "fetch failed: %v, retrying\n", err)
		err = view.Retry(ctx)
	}
	if err != nil && !errors.Is(err, services.ErrSuperseded) {
		return fmt.Errorf("could not load products: %w", err)
	}

	criteria := view.Criteria()
	criteria.Color = productsCriteria.Color
	criteria.Size = productsCriteria.Size
	criteria.PriceRange = productsCriteria.PriceRange
	criteria.OnSale = productsQuery.OnSale == "true"
	view.SetCriteria(criteria)
	view.SetSort(models.SortKey(productsSort))

	return printProducts(cmd.OutOrStdout(), view.Visible())
}

func printProducts(out io.Writer, products []models.Product) error {
	w := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tNAME\tCATEGORY\tPRICE\tSTOCK")
	for _, p := range products {
		price := fmt.Sprintf("%.2f", p.DisplayPrice())
		if original, ok := p.OriginalPrice(); ok {
			price += fmt.Sprintf(" (was %.2f)", original)
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%d\n", p.ID, p.Name, p.Category, price, p.CountInStock)
	}
	fmt.Fprintf(w, "\n%d products\n", len(products))
	return w.Flush()
}
