package catalog

import (
	"storefront/internal/models"
	"storefront/pkg/utils"
)

// NormalizeOrder converts a raw order record with the same total-default
// policy as Normalize.
func NormalizeOrder(raw map[string]any) models.Order {
	o := models.Order{
		ID:         utils.String(raw["_id"]),
		TotalPrice: utils.Float(raw["totalPrice"]),
		Status:     utils.String(raw["status"]),
		CreatedAt:  utils.String(raw["createdAt"]),
		Items:      []models.OrderItem{},
	}
	if o.ID == "" {
		o.ID = utils.String(raw["id"])
	}

	if user, ok := raw["user"].(map[string]any); ok {
		o.User = models.Customer{
			Name:  utils.String(user["name"]),
			Email: utils.String(user["email"]),
		}
	}

	items, _ := raw["orderItems"].([]any)
	for _, item := range items {
		fields, ok := item.(map[string]any)
		if !ok {
			continue
		}
		o.Items = append(o.Items, models.OrderItem{
			Name:     utils.String(fields["name"]),
			Quantity: utils.Int(fields["quantity"]),
			Price:    utils.Float(fields["price"]),
		})
	}

	return o
}

// NormalizeUser converts a raw account record returned by login.
func NormalizeUser(raw map[string]any) models.User {
	u := models.User{
		ID:    utils.String(raw["_id"]),
		Name:  utils.String(raw["name"]),
		Email: utils.String(raw["email"]),
		Role:  utils.String(raw["role"]),
	}
	if u.ID == "" {
		u.ID = utils.String(raw["id"])
	}
	if u.Role == "" && utils.Bool(raw["isAdmin"]) {
		u.Role = "admin"
	}
	return u
}
