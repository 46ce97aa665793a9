package session

import (
	"errors"
	"slices"

	"github.com/shopspring/decimal"

	"storefront/internal/models"
)

// IntentType is the closed set of changes views may request on the cart or
// the wishlist.
type IntentType string

const (
	AddItem     IntentType = "ADD_ITEM"
	RemoveItem  IntentType = "REMOVE_ITEM"
	SetQuantity IntentType = "SET_QUANTITY"
	Clear       IntentType = "CLEAR"
)

var (
	ErrInvalidIntent = errors.New("session: invalid intent")
	ErrUnknownItem   = errors.New("session: item not found")
)

// Intent is one requested change. Product is required for AddItem;
// ProductID (with Size and Color for cart lines) identifies the item for
// RemoveItem and SetQuantity.
type Intent struct {
	Type      IntentType      `json:"type"`
	Product   *models.Product `json:"product,omitempty"`
	ProductID string          `json:"productId,omitempty"`
	Size      string          `json:"size,omitempty"`
	Color     string          `json:"color,omitempty"`
	Quantity  int             `json:"quantity,omitempty"`
}

// CartItem is one cart line. A product in two sizes is two lines.
type CartItem struct {
	ProductID string  `json:"productId"`
	Name      string  `json:"name"`
	Price     float64 `json:"price"`
	Image     string  `json:"image"`
	Size      string  `json:"size,omitempty"`
	Color     string  `json:"color,omitempty"`
	Quantity  int     `json:"quantity"`
}

func (i CartItem) key() lineKey { return lineKey{i.ProductID, i.Size, i.Color} }

// Subtotal is price times quantity, computed in decimal.
func (i CartItem) Subtotal() decimal.Decimal {
	return decimal.NewFromFloat(i.Price).Mul(decimal.NewFromInt(int64(i.Quantity)))
}

type lineKey struct{ id, size, color string }

type Cart struct {
	Items []CartItem `json:"items"`
}

// Count is the number of units in the cart.
func (c Cart) Count() int {
	n := 0
	for _, item := range c.Items {
		n += item.Quantity
	}
	return n
}

// Total is the sum of line subtotals rounded to cents.
func (c Cart) Total() decimal.Decimal {
	total := decimal.Zero
	for _, item := range c.Items {
		total = total.Add(item.Subtotal())
	}
	return total.Round(2)
}

func (c Cart) clone() Cart {
	return Cart{Items: slices.Clone(c.Items)}
}

// apply returns the cart with the intent applied. The receiver is not modified.
func (c Cart) apply(in Intent) (Cart, error) {
	next := c.clone()

	switch in.Type {
	case AddItem:
		if in.Product == nil {
			return c, ErrInvalidIntent
		}
		qty := in.Quantity
		if qty <= 0 {
			qty = 1
		}
		line := CartItem{
			ProductID: in.Product.ID,
			Name:      in.Product.Name,
			Price:     in.Product.DisplayPrice(),
			Image:     in.Product.PrimaryImage(),
			Size:      in.Size,
			Color:     in.Color,
			Quantity:  qty,
		}
		if idx := next.index(line.key()); idx >= 0 {
			next.Items[idx].Quantity += qty
		} else {
			next.Items = append(next.Items, line)
		}

	case RemoveItem:
		idx := next.index(lineKey{in.ProductID, in.Size, in.Color})
		if idx < 0 {
			return c, ErrUnknownItem
		}
		next.Items = slices.Delete(next.Items, idx, idx+1)

	case SetQuantity:
		idx := next.index(lineKey{in.ProductID, in.Size, in.Color})
		if idx < 0 {
			return c, ErrUnknownItem
		}
		if in.Quantity <= 0 {
			next.Items = slices.Delete(next.Items, idx, idx+1)
		} else {
			next.Items[idx].Quantity = in.Quantity
		}

	case Clear:
		next.Items = nil

	default:
		return c, ErrInvalidIntent
	}

	if next.Items == nil {
		next.Items = []CartItem{}
	}
	return next, nil
}

func (c Cart) index(k lineKey) int {
	return slices.IndexFunc(c.Items, func(item CartItem) bool { return item.key() == k })
}

type WishlistItem struct {
	ProductID string  `json:"productId"`
	Name      string  `json:"name"`
	Price     float64 `json:"price"`
	Image     string  `json:"image"`
	Category  string  `json:"category,omitempty"`
}

type Wishlist struct {
	Items []WishlistItem `json:"items"`
}

func (w Wishlist) Contains(productID string) bool {
	return w.index(productID) >= 0
}

func (w Wishlist) index(productID string) int {
	return slices.IndexFunc(w.Items, func(item WishlistItem) bool { return item.ProductID == productID })
}

// apply returns the wishlist with the intent applied. Adding an item that
// is already present is a no-op; SetQuantity is not a wishlist intent.
func (w Wishlist) apply(in Intent) (Wishlist, error) {
	next := Wishlist{Items: slices.Clone(w.Items)}

	switch in.Type {
	case AddItem:
		if in.Product == nil {
			return w, ErrInvalidIntent
		}
		if !next.Contains(in.Product.ID) {
			next.Items = append(next.Items, WishlistItem{
				ProductID: in.Product.ID,
				Name:      in.Product.Name,
				Price:     in.Product.DisplayPrice(),
				Image:     in.Product.PrimaryImage(),
				Category:  in.Product.Category,
			})
		}

	case RemoveItem:
		idx := next.index(in.ProductID)
		if idx < 0 {
			return w, ErrUnknownItem
		}
		next.Items = slices.Delete(next.Items, idx, idx+1)

	case Clear:
		next.Items = nil

	default:
		return w, ErrInvalidIntent
	}

	if next.Items == nil {
		next.Items = []WishlistItem{}
	}
	return next, nil
}
