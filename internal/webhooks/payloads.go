package webhooks

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/shopspring/decimal"
)

// ID is a Shopify identifier. Shopify sends numeric ids as JSON numbers; some
// clients forward them as strings, so both are accepted.
type ID string

func (id *ID) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*id = ""
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*id = ID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("invalid shopify id %s: %w", data, err)
	}
	*id = ID(n.String())
	return nil
}

func (id ID) String() string {
	return string(id)
}

type ProductImage struct {
	Src string `json:"src"`
}

type ProductVariant struct {
	ID                ID                  `json:"id"`
	Title             string              `json:"title"`
	Price             decimal.Decimal     `json:"price"`
	CompareAtPrice    decimal.NullDecimal `json:"compare_at_price"`
	InventoryQuantity int                 `json:"inventory_quantity"`
	InventoryItemID   ID                  `json:"inventory_item_id"`
}

// ProductPayload is the products/update body.
type ProductPayload struct {
	ID       ID               `json:"id"`
	Title    string           `json:"title"`
	Handle   string           `json:"handle"`
	Images   []ProductImage   `json:"images"`
	Variants []ProductVariant `json:"variants"`
}

func (p ProductPayload) imageURL() string {
	if len(p.Images) == 0 {
		return ""
	}
	return p.Images[0].Src
}

// InventoryLevelPayload is the inventory_levels/update body. Available is nil
// when Shopify does not track the quantity.
type InventoryLevelPayload struct {
	InventoryItemID ID     `json:"inventory_item_id"`
	LocationID      ID     `json:"location_id"`
	Available       *int   `json:"available"`
	UpdatedAt       string `json:"updated_at,omitempty"`
}

type LineItem struct {
	ProductID ID     `json:"product_id"`
	VariantID ID     `json:"variant_id"`
	Title     string `json:"title"`
	Quantity  int    `json:"quantity"`
}

type OrderCustomer struct {
	ID ID `json:"id"`
}

// OrderPayload is the orders/create body.
type OrderPayload struct {
	ID        ID             `json:"id"`
	LineItems []LineItem     `json:"line_items"`
	Customer  *OrderCustomer `json:"customer,omitempty"`
}

func decodePayload(raw json.RawMessage, out any) error {
	if len(bytes.TrimSpace(raw)) == 0 {
		return fmt.Errorf("empty payload")
	}
	return json.Unmarshal(raw, out)
}
