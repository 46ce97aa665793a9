package fakeapi

// SampleProducts returns catalog records in the mixed shapes the real
// backend produces: numeric and string ids, comma separated and array
// sizes, single and multiple images, missing optional fields.
func SampleProducts() []map[string]any {
	return []map[string]any{
		{
			"id": 1, "name": "Essential Cotton Tee", "price": 29.99,
			"image": "/images/women-tshirt1.jpg", "category": "basics", "gender": "Women",
			"size": "XS, S, M, L", "color": "white, black", "countInStock": 25,
			"featured": true, "isNew": true, "rating": 4.6, "numReviews": 128,
		},
		{
			"id": 2, "name": "Comfort Fit Joggers", "price": 64.99,
			"image": []any{"/images/men-pants1.jpg", "/images/men-pants1b.jpg"}, "category": "bottoms", "gender": "Men",
			"size": []any{"M", "L", "XL"}, "color": []any{"grey", "navy"}, "countInStock": 12,
			"onSale": true, "salePrice": 49.99, "rating": 4.3, "numReviews": 54,
		},
		{
			"id": "3", "name": "Ribbed Tank Top", "price": 24.99,
			"image": "/images/women-tshirt2.jpg", "category": "basics", "gender": "Women",
			"size": "S,M", "color": "red",
		},
		{
			"id": 4, "name": "Classic Crew Neck", "price": 34.99,
			"category": "basics", "gender": "Men", "size": "M, L", "color": []any{"black"},
			"countInStock": 0,
		},
		{
			"id": 5, "name": "Wool Overcoat", "price": 189,
			"image": "/images/men-coat1.jpg", "category": "outerwear", "gender": "Men",
			"size": "L, XL", "color": "camel", "countInStock": 3, "featured": true,
		},
		{
			"id": 6, "name": "Linen Summer Dress", "price": 50,
			"image": "/images/women-dress1.jpg", "category": "dresses", "gender": "Women",
			"size": "XS,S,M", "color": "blue, white", "countInStock": 8,
		},
		{
			"id": 7, "name": "Canvas Tote", "price": "$18.00",
			"category": "accessories", "color": "natural", "countInStock": 40,
		},
		{
			"id": 8, "name": "Denim Jacket", "price": 98,
			"image": "/images/women-jacket1.jpg", "category": "outerwear", "gender": "Women",
			"size": "S, M, L", "color": "blue", "countInStock": 6, "onSale": true, "salePrice": 79,
		},
	}
}

func SampleOrders() []map[string]any {
	return []map[string]any{
		{
			"_id": "ord-1001", "status": "pending", "totalPrice": 79.98, "createdAt": "2026-10-01T10:00:00Z",
			"user":       map[string]any{"name": "Jane Doe", "email": "jane@example.com"},
			"orderItems": []any{map[string]any{"name": "Essential Cotton Tee", "quantity": 2, "price": 29.99}},
		},
		{
			"_id": "ord-1002", "status": "paid", "totalPrice": 189, "createdAt": "2026-10-02T12:30:00Z",
			"user":       map[string]any{"name": "Sam Lee", "email": "sam@example.com"},
			"orderItems": []any{map[string]any{"name": "Wool Overcoat", "quantity": 1, "price": 189}},
		},
		{
			"_id": 1003, "status": "delivered", "totalPrice": 49.99, "createdAt": "2026-10-03T08:15:00Z",
			"user":       map[string]any{"name": "Alex Kim", "email": "alex@example.com"},
			"orderItems": []any{map[string]any{"name": "Comfort Fit Joggers", "quantity": 1, "price": 49.99}},
		},
		{
			"_id": "ord-1004", "status": "cancelled", "totalPrice": 24.99, "createdAt": "2026-10-04T16:45:00Z",
			"orderItems": []any{},
		},
	}
}
