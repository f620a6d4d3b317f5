package wishlist

import (
	"fmt"
	"sync"
	"time"

	pkgerrors "github.com/angelmondragon/shopwish-backend/pkg/errors"
)

// ErrNotFound is returned when an operation targets an unknown wishlist.
var ErrNotFound = pkgerrors.New(pkgerrors.CodeNotFound, "wishlist not found")

// Store keeps wishlists in memory in creation order.
type Store struct {
	mu    sync.RWMutex
	items map[string]*Wishlist
	order []string
	now   func() time.Time
}

// NewStore returns an empty wishlist store.
func NewStore() *Store {
	return &Store{
		items: make(map[string]*Wishlist),
		now:   time.Now,
	}
}

// WithClock overrides the time source; used by tests.
func (s *Store) WithClock(now func() time.Time) *Store {
	if now != nil {
		s.now = now
	}
	return s
}

// Create starts an empty wishlist. Ids are shop_customer_<unix millis>; a
// numeric suffix is appended when two wishlists land on the same millisecond.
func (s *Store) Create(customerID, shopID, name string) Wishlist {
	if name == "" {
		name = DefaultName
	}
	now := s.now().UTC()

	s.mu.Lock()
	defer s.mu.Unlock()
	base := fmt.Sprintf("%s_%s_%d", shopID, customerID, now.UnixMilli())
	id := base
	for n := 2; s.items[id] != nil; n++ {
		id = fmt.Sprintf("%s-%d", base, n)
	}
	w := &Wishlist{
		ID:         id,
		CustomerID: customerID,
		ShopID:     shopID,
		Name:       name,
		Items:      []Item{},
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	s.items[id] = w
	s.order = append(s.order, id)
	return w.clone()
}

// AddItem saves the product to the wishlist. Adding a pair that is already
// present leaves the wishlist untouched.
func (s *Store) AddItem(wishlistID, productID, variantID string) (Wishlist, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	w, ok := s.items[wishlistID]
	if !ok {
		return Wishlist{}, ErrNotFound
	}
	if w.indexOf(productID, variantID) >= 0 {
		return w.clone(), nil
	}
	now := s.now().UTC()
	w.Items = append(w.Items, Item{ProductID: productID, VariantID: variantID, AddedAt: now})
	w.UpdatedAt = now
	return w.clone(), nil
}

// RemoveItem drops the exact (product, variant) pair. Removing an absent pair
// is a no-op.
func (s *Store) RemoveItem(wishlistID, productID, variantID string) (Wishlist, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	w, ok := s.items[wishlistID]
	if !ok {
		return Wishlist{}, ErrNotFound
	}
	idx := w.indexOf(productID, variantID)
	if idx < 0 {
		return w.clone(), nil
	}
	w.Items = append(w.Items[:idx], w.Items[idx+1:]...)
	w.UpdatedAt = s.now().UTC()
	return w.clone(), nil
}

// Get returns a copy of the wishlist.
func (s *Store) Get(wishlistID string) (Wishlist, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	w, ok := s.items[wishlistID]
	if !ok {
		return Wishlist{}, false
	}
	return w.clone(), true
}

// ListForCustomer returns the customer's wishlists within the shop.
func (s *Store) ListForCustomer(customerID, shopID string) []Wishlist {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Wishlist, 0)
	for _, id := range s.order {
		w := s.items[id]
		if w.CustomerID == customerID && w.ShopID == shopID {
			out = append(out, w.clone())
		}
	}
	return out
}

// ListAllItemsForShop flattens every item of every wishlist in the shop.
func (s *Store) ListAllItemsForShop(shopID string) []ItemRef {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]ItemRef, 0)
	for _, id := range s.order {
		w := s.items[id]
		if w.ShopID != shopID {
			continue
		}
		for _, item := range w.Items {
			out = append(out, ItemRef{Item: item, WishlistID: w.ID, CustomerID: w.CustomerID})
		}
	}
	return out
}

// Shops lists every shop holding at least one wishlist, in first-seen order.
func (s *Store) Shops() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	seen := make(map[string]struct{})
	out := make([]string, 0)
	for _, id := range s.order {
		shop := s.items[id].ShopID
		if _, ok := seen[shop]; ok {
			continue
		}
		seen[shop] = struct{}{}
		out = append(out, shop)
	}
	return out
}

// PurgeShop drops every wishlist in the shop and returns how many were removed.
func (s *Store) PurgeShop(shopID string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	kept := s.order[:0]
	removed := 0
	for _, id := range s.order {
		if s.items[id].ShopID == shopID {
			delete(s.items, id)
			removed++
			continue
		}
		kept = append(kept, id)
	}
	s.order = kept
	return removed
}
