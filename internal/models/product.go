package models

// PlaceholderImage is used when a catalog record carries no usable image.
const PlaceholderImage = "/placeholder.svg"

// CatalogEntry is a product record exactly as the Catalog Service sent it.
// Any field may be missing or carry an unexpected type.
type CatalogEntry map[string]any

// Product is the canonical product used by filtering, sorting and rendering.
type Product struct {
	ID           string   `json:"id"`
	Name         string   `json:"name"`
	Description  string   `json:"description,omitempty"`
	Price        float64  `json:"price"`
	Images       []string `json:"image"`
	Category     string   `json:"category"`
	Gender       string   `json:"gender,omitempty"`
	Brand        string   `json:"brand,omitempty"`
	Sizes        []string `json:"size"`
	Colors       []string `json:"color"`
	CountInStock int      `json:"countInStock"`
	OnSale       bool     `json:"onSale"`
	SalePrice    *float64 `json:"salePrice,omitempty"`
	IsNew        bool     `json:"isNew"`
	Featured     bool     `json:"featured"`
	Rating       float64  `json:"rating"`
	NumReviews   int      `json:"numReviews"`
}

// DisplayPrice is the sale price when the product is on sale and a sale price
// is set, otherwise the list price.
func (p Product) DisplayPrice() float64 {
	if p.OnSale && p.SalePrice != nil && *p.SalePrice > 0 {
		return *p.SalePrice
	}
	return p.Price
}

// OriginalPrice returns the crossed-out list price shown next to a sale price.
func (p Product) OriginalPrice() (float64, bool) {
	if p.DisplayPrice() != p.Price {
		return p.Price, true
	}
	return 0, false
}

// PrimaryImage returns the first image.
func (p Product) PrimaryImage() string {
	if len(p.Images) == 0 || p.Images[0] == "" {
		return PlaceholderImage
	}
	return p.Images[0]
}

// Criteria is the set of optional listing filters. Empty values and "all"
// mean no constraint.
type Criteria struct {
	Category   string `json:"category,omitempty"`
	Gender     string `json:"gender,omitempty"`
	Color      string `json:"color,omitempty"`
	Size       string `json:"size,omitempty"`
	PriceRange string `json:"priceRange,omitempty"` // under-25, 25-50, 50-100, over-100
	Keyword    string `json:"keyword,omitempty"`
	OnSale     bool   `json:"onSale,omitempty"`
}

// SortKey selects the listing order.
type SortKey string

const (
	SortName      SortKey = "name"
	SortPriceLow  SortKey = "price-low"
	SortPriceHigh SortKey = "price-high"
)

// ListQuery is the set of parameters forwarded to GET /api/products.
type ListQuery struct {
	Gender   string `json:"gender,omitempty"`
	Category string `json:"category,omitempty"`
	Keyword  string `json:"keyword,omitempty"`
	OnSale   string `json:"onSale,omitempty"`
	Limit    int    `json:"limit,omitempty"`
	Page     int    `json:"page,omitempty"`
}

// Criteria returns the filters implied by the fetch parameters, so a
// navigation preselects the matching filter controls. The keyword is
// applied locally as well, since the Catalog Service may ignore it.
func (q ListQuery) Criteria() Criteria {
	return Criteria{
		Category: q.Category,
		Gender:   q.Gender,
		Keyword:  q.Keyword,
	}
}

// Facets summarises a product set for the filter controls.
type Facets struct {
	Categories   []string   `json:"categories"`
	PriceRange   PriceRange `json:"priceRange"`
	Availability Stock      `json:"availability"`
}

type PriceRange struct {
	Min float64 `json:"min"`
	Max float64 `json:"max"`
}

type Stock struct {
	InStock    int `json:"inStock"`
	OutOfStock int `json:"outOfStock"`
}

// SearchParams is a storefront listing request: what to fetch, how to
// filter and sort it, and which page to show.
type SearchParams struct {
	Query    ListQuery `json:"query"`
	Criteria Criteria  `json:"criteria"`
	Sort     SortKey   `json:"sort,omitempty"`
	Page     int       `json:"page"`
	Limit    int       `json:"limit"`
}

type SearchResponse struct {
	Products   []Product `json:"products"`
	Total      int       `json:"total"`
	Page       int       `json:"page"`
	Limit      int       `json:"limit"`
	TotalPages int       `json:"totalPages"`
	Facets     Facets    `json:"facets"`
	Criteria   Criteria  `json:"criteria"`
	Sort       SortKey   `json:"sort,omitempty"`
	Duration   string    `json:"duration"`
}

type ErrorResponse struct {
	Error   string `json:"error"`
	Code    int    `json:"code"`
	Message string `json:"message"`
	Details string `json:"details,omitempty"`
}
