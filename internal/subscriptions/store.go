package subscriptions

import (
	"fmt"
	"sync"
	"time"

	"github.com/angelmondragon/shopwish-backend/pkg/enums"
)

// Store keeps subscriptions in memory, keyed by their natural key. Iteration
// follows first-insertion order so alert fan-out is deterministic.
type Store struct {
	mu    sync.RWMutex
	items map[Key]*Subscription
	order []Key
	ids   map[string]Key
	now   func() time.Time
}

// NewStore returns an empty subscription store.
func NewStore() *Store {
	return &Store{
		items: make(map[Key]*Subscription),
		ids:   make(map[string]Key),
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

// Subscribe creates or replaces the subscription for the natural key. A
// repeated subscribe reactivates the record and refreshes CreatedAt; an empty
// type defaults to back_in_stock. The rendered id is suffixed when another key
// already renders to the same string.
func (s *Store) Subscribe(customerID, shopID, productID, variantID string, notificationType enums.NotificationType) Subscription {
	if notificationType == "" {
		notificationType = enums.NotificationTypeBackInStock
	}
	key := Key{
		ShopID:     shopID,
		CustomerID: customerID,
		ProductID:  productID,
		VariantID:  variantID,
		Type:       notificationType,
	}
	sub := &Subscription{
		CustomerID:       customerID,
		ShopID:           shopID,
		ProductID:        productID,
		VariantID:        variantID,
		NotificationType: notificationType,
		IsActive:         true,
		CreatedAt:        s.now().UTC(),
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if existing, ok := s.items[key]; ok {
		sub.ID = existing.ID
	} else {
		sub.ID = s.uniqueID(key.ID())
		s.ids[sub.ID] = key
		s.order = append(s.order, key)
	}
	s.items[key] = sub
	return *sub
}

func (s *Store) uniqueID(base string) string {
	id := base
	for n := 2; ; n++ {
		if _, taken := s.ids[id]; !taken {
			return id
		}
		id = fmt.Sprintf("%s-%d", base, n)
	}
}

func (s *Store) lookup(id string) (*Subscription, bool) {
	key, ok := s.ids[id]
	if !ok {
		return nil, false
	}
	sub, ok := s.items[key]
	return sub, ok
}

// Unsubscribe deactivates the subscription. The record is retained; ok is
// false when the id is unknown.
func (s *Store) Unsubscribe(id string) (Subscription, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sub, ok := s.lookup(id)
	if !ok {
		return Subscription{}, false
	}
	sub.IsActive = false
	return *sub, true
}

// Get returns the subscription with the given id, active or not.
func (s *Store) Get(id string) (Subscription, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	sub, ok := s.lookup(id)
	if !ok {
		return Subscription{}, false
	}
	return *sub, true
}

// FindActiveForProduct lists active subscriptions for the product. An empty
// variantID matches every variant.
func (s *Store) FindActiveForProduct(shopID, productID, variantID string) []Subscription {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Subscription, 0)
	for _, key := range s.order {
		if sub := s.items[key]; sub.matches(shopID, productID, variantID) {
			out = append(out, *sub)
		}
	}
	return out
}

// ListActiveForCustomer lists the customer's active subscriptions in the shop.
func (s *Store) ListActiveForCustomer(customerID, shopID string) []Subscription {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Subscription, 0)
	for _, key := range s.order {
		sub := s.items[key]
		if sub.IsActive && sub.CustomerID == customerID && sub.ShopID == shopID {
			out = append(out, *sub)
		}
	}
	return out
}

// PurgeShop drops every subscription belonging to the shop and returns how
// many were removed.
func (s *Store) PurgeShop(shopID string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	kept := s.order[:0]
	removed := 0
	for _, key := range s.order {
		if key.ShopID == shopID {
			delete(s.ids, s.items[key].ID)
			delete(s.items, key)
			removed++
			continue
		}
		kept = append(kept, key)
	}
	s.order = kept
	return removed
}
