package catalog

import (
	"slices"
	"strings"

	"storefront/internal/models"
)

// AllValues is the sentinel filter value meaning "no constraint".
const AllValues = "all"

// Price buckets understood by Criteria.PriceRange. The 25 and 50 boundaries
// belong to both adjacent buckets.
const (
	PriceUnder25 = "under-25"
	Price25To50  = "25-50"
	Price50To100 = "50-100"
	PriceOver100 = "over-100"
)

// Predicate reports whether a product satisfies one criterion.
type Predicate func(models.Product) bool

// Predicates returns one predicate per active criterion. Inactive criteria
// (empty, "all", unknown price range) contribute nothing.
func Predicates(c models.Criteria) []Predicate {
	var preds []Predicate

	if active(c.Category) {
		category := c.Category
		preds = append(preds, func(p models.Product) bool { return p.Category == category })
	}
	if active(c.Gender) {
		gender := c.Gender
		preds = append(preds, func(p models.Product) bool { return p.Gender == gender })
	}
	if active(c.Color) {
		color := c.Color
		preds = append(preds, func(p models.Product) bool { return slices.Contains(p.Colors, color) })
	}
	if active(c.Size) {
		size := c.Size
		preds = append(preds, func(p models.Product) bool { return slices.Contains(p.Sizes, size) })
	}
	if inRange := priceBucket(c.PriceRange); inRange != nil {
		preds = append(preds, func(p models.Product) bool { return inRange(p.DisplayPrice()) })
	}
	if c.Keyword != "" {
		keyword := strings.ToLower(c.Keyword)
		preds = append(preds, func(p models.Product) bool {
			return strings.Contains(strings.ToLower(p.Name), keyword)
		})
	}
	if c.OnSale {
		preds = append(preds, func(p models.Product) bool { return p.OnSale })
	}

	return preds
}

// ApplyFilters returns the products matching every active criterion, in
// input order.
func ApplyFilters(products []models.Product, c models.Criteria) []models.Product {
	return Filter(products, Predicates(c)...)
}

// Filter keeps the products that satisfy all predicates.
func Filter(products []models.Product, preds ...Predicate) []models.Product {
	filtered := make([]models.Product, 0, len(products))
	for _, product := range products {
		if matchAll(product, preds) {
			filtered = append(filtered, product)
		}
	}
	return filtered
}

func matchAll(p models.Product, preds []Predicate) bool {
	for _, pred := range preds {
		if !pred(p) {
			return false
		}
	}
	return true
}

func active(v string) bool {
	return v != "" && v != AllValues
}

func priceBucket(name string) func(float64) bool {
	switch name {
	case PriceUnder25:
		return func(price float64) bool { return price < 25 }
	case Price25To50:
		return func(price float64) bool { return price >= 25 && price <= 50 }
	case Price50To100:
		return func(price float64) bool { return price >= 50 && price <= 100 }
	case PriceOver100:
		return func(price float64) bool { return price > 100 }
	default:
		return nil
	}
}

// ValidPriceRange reports whether name is a known bucket or the sentinel.
func ValidPriceRange(name string) bool {
	return !active(name) || priceBucket(name) != nil
}
