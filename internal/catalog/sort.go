package catalog

import (
	"cmp"
	"math"
	"slices"

	"golang.org/x/text/collate"
	"golang.org/x/text/language"

	"storefront/internal/models"
)

// ApplySorting returns a sorted copy of products. The sort is stable, so
// equal keys keep their input order. Unknown keys leave the order unchanged.
func ApplySorting(products []models.Product, key models.SortKey) []models.Product {
	sorted := slices.Clone(products)
	if sorted == nil {
		sorted = []models.Product{}
	}

	switch key {
	case models.SortName:
		// collate.Collator is not safe for concurrent use.
		col := collate.New(language.English)
		slices.SortStableFunc(sorted, func(a, b models.Product) int {
			return col.CompareString(a.Name, b.Name)
		})
	case models.SortPriceLow:
		slices.SortStableFunc(sorted, func(a, b models.Product) int {
			return cmp.Compare(a.DisplayPrice(), b.DisplayPrice())
		})
	case models.SortPriceHigh:
		slices.SortStableFunc(sorted, func(a, b models.Product) int {
			return cmp.Compare(b.DisplayPrice(), a.DisplayPrice())
		})
	}

	return sorted
}

// ValidSortKey reports whether key selects a known order. The empty key is
// valid and means input order.
func ValidSortKey(key models.SortKey) bool {
	switch key {
	case "", models.SortName, models.SortPriceLow, models.SortPriceHigh:
		return true
	}
	return false
}

// ApplyPagination returns the requested page and the total page count.
// Pages are 1-based; a page past the end is empty.
func ApplyPagination(products []models.Product, page, limit int) ([]models.Product, int) {
	if limit <= 0 {
		return products, 1
	}
	if page <= 0 {
		page = 1
	}

	total := len(products)
	totalPages := int(math.Ceil(float64(total) / float64(limit)))

	start := (page - 1) * limit
	if start >= total {
		return []models.Product{}, totalPages
	}

	end := start + limit
	if end > total {
		end = total
	}

	return products[start:end], totalPages
}

// Visible composes filtering and sorting the way every listing renders.
func Visible(products []models.Product, c models.Criteria, key models.SortKey) []models.Product {
	return ApplySorting(ApplyFilters(products, c), key)
}
