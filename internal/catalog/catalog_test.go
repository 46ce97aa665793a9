package catalog

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"storefront/internal/models"
)

func decodeEntry(t *testing.T, raw string) models.CatalogEntry {
	t.Helper()
	var entry models.CatalogEntry
	require.NoError(t, json.Unmarshal([]byte(raw), &entry))
	return entry
}

func priced(id string, price float64) models.Product {
	return models.Product{ID: id, Name: id, Price: price, Images: []string{models.PlaceholderImage}}
}

func ids(products []models.Product) []string {
	out := make([]string, 0, len(products))
	for _, p := range products {
		out = append(out, p.ID)
	}
	return out
}

func TestNormalize_EmptyRecord(t *testing.T) {
	p := Normalize(models.CatalogEntry{})

	assert.Equal(t, "", p.ID)
	assert.Equal(t, []string{models.PlaceholderImage}, p.Images)
	assert.NotNil(t, p.Sizes)
	assert.NotNil(t, p.Colors)
	assert.Empty(t, p.Sizes)
	assert.Empty(t, p.Colors)
	assert.Equal(t, 0, p.CountInStock)
	assert.False(t, p.OnSale)
	assert.Nil(t, p.SalePrice)
	assert.Equal(t, "", p.Category)
}

func TestNormalize_Coercion(t *testing.T) {
	tests := []struct {
		name  string
		raw   string
		check func(t *testing.T, p models.Product)
	}{
		{
			name: "numeric id",
			raw:  `{"id": 42}`,
			check: func(t *testing.T, p models.Product) {
				assert.Equal(t, "42", p.ID)
			},
		},
		{
			name: "mongo style id",
			raw:  `{"_id": "65a1f"}`,
			check: func(t *testing.T, p models.Product) {
				assert.Equal(t, "65a1f", p.ID)
			},
		},
		{
			name: "single image string",
			raw:  `{"image": "/a.jpg"}`,
			check: func(t *testing.T, p models.Product) {
				assert.Equal(t, []string{"/a.jpg"}, p.Images)
			},
		},
		{
			name: "image array",
			raw:  `{"image": ["/a.jpg", "/b.jpg"]}`,
			check: func(t *testing.T, p models.Product) {
				assert.Equal(t, []string{"/a.jpg", "/b.jpg"}, p.Images)
			},
		},
		{
			name: "image of wrong type",
			raw:  `{"image": 7}`,
			check: func(t *testing.T, p models.Product) {
				assert.Equal(t, []string{models.PlaceholderImage}, p.Images)
			},
		},
		{
			name: "sizes from comma string keep order and duplicates",
			raw:  `{"size": " L, S ,, L,"}`,
			check: func(t *testing.T, p models.Product) {
				assert.Equal(t, []string{"L", "S", "L"}, p.Sizes)
			},
		},
		{
			name: "colors from array",
			raw:  `{"color": ["red", "blue"]}`,
			check: func(t *testing.T, p models.Product) {
				assert.Equal(t, []string{"red", "blue"}, p.Colors)
			},
		},
		{
			name: "numeric sizes from array",
			raw:  `{"size": [38, 40, null]}`,
			check: func(t *testing.T, p models.Product) {
				assert.Equal(t, []string{"38", "40"}, p.Sizes)
			},
		},
		{
			name: "numeric strings",
			raw:  `{"price": "$1,299.50", "countInStock": "3"}`,
			check: func(t *testing.T, p models.Product) {
				assert.Equal(t, 1299.5, p.Price)
				assert.Equal(t, 3, p.CountInStock)
			},
		},
		{
			name: "garbage numerics",
			raw:  `{"price": {"amount": 3}, "rating": [1], "countInStock": -4}`,
			check: func(t *testing.T, p models.Product) {
				assert.Zero(t, p.Price)
				assert.Zero(t, p.Rating)
				assert.Zero(t, p.CountInStock)
			},
		},
		{
			name: "sale price kept",
			raw:  `{"onSale": true, "salePrice": 19.5}`,
			check: func(t *testing.T, p models.Product) {
				require.NotNil(t, p.SalePrice)
				assert.Equal(t, 19.5, *p.SalePrice)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.check(t, Normalize(decodeEntry(t, tt.raw)))
		})
	}
}

func TestNormalize_Idempotent(t *testing.T) {
	first := Normalize(decodeEntry(t, `{
		"id": 7, "name": "Hoodie", "price": 60, "image": "/h.jpg",
		"category": "tops", "gender": "Women", "size": "S,M", "color": ["grey"],
		"countInStock": 4, "onSale": true, "salePrice": 45, "rating": 4.5, "numReviews": 12
	}`))

	encoded, err := json.Marshal(first)
	require.NoError(t, err)
	second := Normalize(decodeEntry(t, string(encoded)))

	assert.Equal(t, first, second)
}

func TestDisplayPrice(t *testing.T) {
	sale := 20.0
	zero := 0.0

	assert.Equal(t, 20.0, models.Product{Price: 30, OnSale: true, SalePrice: &sale}.DisplayPrice())
	assert.Equal(t, 30.0, models.Product{Price: 30, OnSale: false, SalePrice: &sale}.DisplayPrice())
	assert.Equal(t, 30.0, models.Product{Price: 30, OnSale: true}.DisplayPrice())
	assert.Equal(t, 30.0, models.Product{Price: 30, OnSale: true, SalePrice: &zero}.DisplayPrice())
}

func TestApplyFilters_Stable(t *testing.T) {
	a := models.Product{ID: "A", Category: "tops"}
	b := models.Product{ID: "B", Category: "bottoms"}
	c := models.Product{ID: "C", Category: "tops"}

	got := ApplyFilters([]models.Product{a, b, c}, models.Criteria{Category: "tops"})

	assert.Equal(t, []string{"A", "C"}, ids(got))
}

func TestApplyFilters_SentinelAll(t *testing.T) {
	products := []models.Product{{ID: "1", Category: "tops"}, {ID: "2", Gender: "Men"}}

	got := ApplyFilters(products, models.Criteria{Category: AllValues, Gender: AllValues, PriceRange: AllValues})

	assert.Equal(t, []string{"1", "2"}, ids(got))
}

func TestApplyFilters_Criteria(t *testing.T) {
	sale := 15.0
	products := []models.Product{
		{ID: "tee", Name: "Cotton Tee", Price: 30, Category: "tops", Gender: "Men", Colors: []string{"red"}, Sizes: []string{"S", "M"}},
		{ID: "dress", Name: "Summer Dress", Price: 80, Category: "dresses", Gender: "Women", Colors: []string{"blue"}, Sizes: []string{"M"}},
		{ID: "cap", Name: "cap", Price: 40, OnSale: true, SalePrice: &sale, Category: "accessories", Colors: []string{"Red"}},
	}

	tests := []struct {
		name     string
		criteria models.Criteria
		want     []string
	}{
		{"gender", models.Criteria{Gender: "Women"}, []string{"dress"}},
		{"color is case sensitive", models.Criteria{Color: "red"}, []string{"tee"}},
		{"size", models.Criteria{Size: "M"}, []string{"tee", "dress"}},
		{"keyword ignores case", models.Criteria{Keyword: "COTTON"}, []string{"tee"}},
		{"on sale", models.Criteria{OnSale: true}, []string{"cap"}},
		{"price uses display price", models.Criteria{PriceRange: PriceUnder25}, []string{"cap"}},
		{"over 100", models.Criteria{PriceRange: PriceOver100}, []string{}},
		{"unknown bucket ignored", models.Criteria{PriceRange: "cheap"}, []string{"tee", "dress", "cap"}},
		{"and composition", models.Criteria{Size: "M", Gender: "Men"}, []string{"tee"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ids(ApplyFilters(products, tt.criteria)))
		})
	}
}

func TestApplyFilters_PriceBoundaries(t *testing.T) {
	fifty := []models.Product{priced("fifty", 50)}
	assert.Len(t, ApplyFilters(fifty, models.Criteria{PriceRange: Price25To50}), 1)
	assert.Len(t, ApplyFilters(fifty, models.Criteria{PriceRange: Price50To100}), 1)

	twentyFive := []models.Product{priced("25", 25)}
	assert.Empty(t, ApplyFilters(twentyFive, models.Criteria{PriceRange: PriceUnder25}))
	assert.Len(t, ApplyFilters(twentyFive, models.Criteria{PriceRange: Price25To50}), 1)

	hundred := []models.Product{priced("100", 100)}
	assert.Len(t, ApplyFilters(hundred, models.Criteria{PriceRange: Price50To100}), 1)
	assert.Empty(t, ApplyFilters(hundred, models.Criteria{PriceRange: PriceOver100}))
}

func TestFilter_CompositionOrder(t *testing.T) {
	products := []models.Product{
		{ID: "1", Category: "tops", Gender: "Men", Price: 30, Sizes: []string{"S"}},
		{ID: "2", Category: "tops", Gender: "Women", Price: 30, Sizes: []string{"S"}},
		{ID: "3", Category: "tops", Gender: "Men", Price: 90, Sizes: []string{"S"}},
		{ID: "4", Category: "bottoms", Gender: "Men", Price: 30, Sizes: []string{"L"}},
	}
	preds := Predicates(models.Criteria{Category: "tops", Gender: "Men", PriceRange: Price25To50, Size: "S"})
	require.Len(t, preds, 4)

	want := ids(Filter(products, preds...))
	reversed := []Predicate{preds[3], preds[2], preds[1], preds[0]}
	assert.Equal(t, want, ids(Filter(products, reversed...)))

	// Applying one criterion at a time is the same as applying them together.
	stepwise := products
	for _, pred := range preds {
		stepwise = Filter(stepwise, pred)
	}
	assert.Equal(t, want, ids(stepwise))
	assert.Equal(t, []string{"1"}, want)
}

func TestApplySorting(t *testing.T) {
	sale := 5.0
	products := []models.Product{
		{ID: "b", Name: "banana", Price: 20},
		{ID: "A", Name: "Apple", Price: 10},
		{ID: "c", Name: "cherry", Price: 30, OnSale: true, SalePrice: &sale},
		{ID: "a2", Name: "apple", Price: 10},
	}

	t.Run("price low", func(t *testing.T) {
		got := ApplySorting(products, models.SortPriceLow)
		assert.Equal(t, []string{"c", "A", "a2", "b"}, ids(got))
		for i := 1; i < len(got); i++ {
			assert.LessOrEqual(t, got[i-1].DisplayPrice(), got[i].DisplayPrice())
		}
	})

	t.Run("price high keeps ties in input order", func(t *testing.T) {
		got := ApplySorting(products, models.SortPriceHigh)
		assert.Equal(t, []string{"b", "A", "a2", "c"}, ids(got))
		for i := 1; i < len(got); i++ {
			assert.GreaterOrEqual(t, got[i-1].DisplayPrice(), got[i].DisplayPrice())
		}
	})

	t.Run("name uses collation", func(t *testing.T) {
		got := ApplySorting(products, models.SortName)
		assert.Equal(t, "banana", got[2].Name)
		assert.Equal(t, "cherry", got[3].Name)
	})

	t.Run("unknown key is identity", func(t *testing.T) {
		assert.Equal(t, ids(products), ids(ApplySorting(products, "popularity")))
	})

	t.Run("input untouched", func(t *testing.T) {
		_ = ApplySorting(products, models.SortPriceLow)
		assert.Equal(t, []string{"b", "A", "c", "a2"}, ids(products))
	})
}

func TestApplyPagination(t *testing.T) {
	products := []models.Product{priced("1", 1), priced("2", 2), priced("3", 3)}

	page, total := ApplyPagination(products, 2, 2)
	assert.Equal(t, []string{"3"}, ids(page))
	assert.Equal(t, 2, total)

	page, total = ApplyPagination(products, 5, 2)
	assert.Empty(t, page)
	assert.Equal(t, 2, total)
}

func TestEndToEnd_SaleTee(t *testing.T) {
	p := Normalize(decodeEntry(t, `{"id":1,"name":"Tee","price":30,"onSale":true,"salePrice":20,"size":"S, M","color":["red"]}`))

	assert.Equal(t, 20.0, p.DisplayPrice())
	assert.Equal(t, []string{"S", "M"}, p.Sizes)
	assert.Equal(t, []string{"red"}, p.Colors)

	list := []models.Product{p}
	assert.Len(t, ApplyFilters(list, models.Criteria{PriceRange: PriceUnder25}), 1)
	assert.Empty(t, ApplyFilters(list, models.Criteria{PriceRange: Price25To50}))
}

func TestBuildFacets(t *testing.T) {
	products := []models.Product{
		{ID: "1", Category: "tops", Price: 30, CountInStock: 2},
		{ID: "2", Category: "", Price: 10},
		{ID: "3", Category: "bottoms", Price: 55, CountInStock: 1},
		{ID: "4", Category: "tops", Price: 20},
	}

	f := BuildFacets(products)

	assert.Equal(t, []string{"tops", "bottoms"}, f.Categories)
	assert.Equal(t, models.PriceRange{Min: 10, Max: 55}, f.PriceRange)
	assert.Equal(t, models.Stock{InStock: 2, OutOfStock: 2}, f.Availability)
}
