// Package catalog turns raw Catalog Service records into canonical products
// and derives the visible listing from them.
//
// Everything here is pure: inputs are never mutated and every call returns a
// fresh slice, so a fetched product set can be shared between views.
package catalog

import (
	"storefront/internal/models"
	"storefront/pkg/utils"
)

// Normalize converts a raw catalog record into a Product. It never fails:
// malformed or missing fields degrade to their zero value.
//
// A missing countInStock becomes 0 and is indistinguishable from a reported
// zero stock count.
func Normalize(raw models.CatalogEntry) models.Product {
	p := models.Product{
		ID:           utils.String(raw["id"]),
		Name:         utils.String(raw["name"]),
		Description:  utils.String(raw["description"]),
		Price:        utils.Float(raw["price"]),
		Images:       normalizeImages(raw["image"]),
		Category:     utils.String(raw["category"]),
		Gender:       utils.String(raw["gender"]),
		Brand:        utils.String(raw["brand"]),
		Sizes:        utils.List(raw["size"]),
		Colors:       utils.List(raw["color"]),
		CountInStock: utils.Int(raw["countInStock"]),
		OnSale:       utils.Bool(raw["onSale"]),
		SalePrice:    utils.OptionalFloat(raw["salePrice"]),
		IsNew:        utils.Bool(raw["isNew"]),
		Featured:     utils.Bool(raw["featured"]),
		Rating:       utils.Float(raw["rating"]),
		NumReviews:   utils.Int(raw["numReviews"]),
	}
	if p.ID == "" {
		p.ID = utils.String(raw["_id"])
	}
	return p
}

// NormalizeAll normalizes every record, preserving order.
func NormalizeAll(raw []models.CatalogEntry) []models.Product {
	products := make([]models.Product, 0, len(raw))
	for _, r := range raw {
		products = append(products, Normalize(r))
	}
	return products
}

func normalizeImages(v any) []string {
	switch img := v.(type) {
	case string:
		if img != "" {
			return []string{img}
		}
	case []any, []string:
		if images := utils.List(img); len(images) > 0 {
			return images
		}
	}
	return []string{models.PlaceholderImage}
}
