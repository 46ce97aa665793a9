package catalog

import "storefront/internal/models"

// BuildFacets summarises products for the filter bar: distinct categories in
// first-seen order, the display price range and stock availability.
func BuildFacets(products []models.Product) models.Facets {
	facets := models.Facets{Categories: []string{}}
	seen := make(map[string]struct{})

	for i, p := range products {
		if p.Category != "" {
			if _, ok := seen[p.Category]; !ok {
				seen[p.Category] = struct{}{}
				facets.Categories = append(facets.Categories, p.Category)
			}
		}

		price := p.DisplayPrice()
		if i == 0 || price < facets.PriceRange.Min {
			facets.PriceRange.Min = price
		}
		if i == 0 || price > facets.PriceRange.Max {
			facets.PriceRange.Max = price
		}

		if p.CountInStock > 0 {
			facets.Availability.InStock++
		} else {
			facets.Availability.OutOfStock++
		}
	}

	return facets
}
