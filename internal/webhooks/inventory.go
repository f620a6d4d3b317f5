package webhooks

import (
	"context"
	"sync"
)

// InventoryItem is what an inventory item id resolves to.
type InventoryItem struct {
	ProductID string
	VariantID string
	Title     string
	Handle    string
	ImageURL  string
	Price     string
}

// InventoryResolver maps an inventory item onto its product and variant. A nil
// item with a nil error means the item is unknown.
type InventoryResolver interface {
	Resolve(ctx context.Context, shop, inventoryItemID string) (*InventoryItem, error)
}

// InventoryIndex remembers inventory items seen on product updates so later
// inventory level updates can be attributed to a variant.
type InventoryIndex struct {
	mu    sync.RWMutex
	shops map[string]map[string]InventoryItem
}

func NewInventoryIndex() *InventoryIndex {
	return &InventoryIndex{shops: make(map[string]map[string]InventoryItem)}
}

// IndexProduct records every variant of the product that carries an
// inventory item id.
func (x *InventoryIndex) IndexProduct(shop string, product ProductPayload) int {
	x.mu.Lock()
	defer x.mu.Unlock()
	items := x.shops[shop]
	if items == nil {
		items = make(map[string]InventoryItem)
		x.shops[shop] = items
	}
	indexed := 0
	for _, v := range product.Variants {
		if v.InventoryItemID == "" {
			continue
		}
		items[v.InventoryItemID.String()] = InventoryItem{
			ProductID: product.ID.String(),
			VariantID: v.ID.String(),
			Title:     product.Title,
			Handle:    product.Handle,
			ImageURL:  product.imageURL(),
			Price:     v.Price.StringFixed(2),
		}
		indexed++
	}
	return indexed
}

func (x *InventoryIndex) Resolve(_ context.Context, shop, inventoryItemID string) (*InventoryItem, error) {
	x.mu.RLock()
	defer x.mu.RUnlock()
	item, ok := x.shops[shop][inventoryItemID]
	if !ok {
		return nil, nil
	}
	return &item, nil
}

// PurgeShop forgets the shop's items and returns how many were dropped.
func (x *InventoryIndex) PurgeShop(shop string) int {
	x.mu.Lock()
	defer x.mu.Unlock()
	n := len(x.shops[shop])
	delete(x.shops, shop)
	return n
}
