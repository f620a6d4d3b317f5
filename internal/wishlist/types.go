package wishlist

import "time"

// DefaultName is used when a wishlist is created without a name.
const DefaultName = "Default Wishlist"

// Item is a product saved to a wishlist. An empty VariantID means the product
// as a whole.
type Item struct {
	ProductID string    `json:"productId"`
	VariantID string    `json:"variantId,omitempty"`
	AddedAt   time.Time `json:"addedAt"`
}

// Wishlist is a customer's named collection of products within a shop.
type Wishlist struct {
	ID         string    `json:"id"`
	CustomerID string    `json:"customerId"`
	ShopID     string    `json:"shopId"`
	Name       string    `json:"name"`
	Items      []Item    `json:"items"`
	CreatedAt  time.Time `json:"createdAt"`
	UpdatedAt  time.Time `json:"updatedAt"`
}

// ItemRef is a wishlist item flattened with its owning wishlist.
type ItemRef struct {
	Item
	WishlistID string `json:"wishlistId"`
	CustomerID string `json:"customerId"`
}

func (w *Wishlist) clone() Wishlist {
	out := *w
	out.Items = make([]Item, len(w.Items))
	copy(out.Items, w.Items)
	return out
}

func (w *Wishlist) indexOf(productID, variantID string) int {
	for i, item := range w.Items {
		if item.ProductID == productID && item.VariantID == variantID {
			return i
		}
	}
	return -1
}
