package notifications

import (
	"sync"
	"time"

	"github.com/angelmondragon/shopwish-backend/pkg/enums"
	"github.com/hashicorp/golang-lru/v2/expirable"
)

// DedupKey identifies an alert for suppression purposes.
type DedupKey struct {
	ShopID     string
	CustomerID string
	ProductID  string
	VariantID  string
	Type       enums.NotificationType
}

// Deduper suppresses identical alerts raised within a sliding window. A nil
// Deduper allows everything. The LRU TTL only bounds memory; suppression is
// decided against the injected clock.
type Deduper struct {
	mu     sync.Mutex
	window time.Duration
	now    func() time.Time
	cache  *expirable.LRU[DedupKey, time.Time]
}

// NewDeduper returns nil when window is not positive, which disables dedup.
func NewDeduper(window time.Duration, capacity int) *Deduper {
	if window <= 0 {
		return nil
	}
	if capacity <= 0 {
		capacity = 10000
	}
	return &Deduper{
		window: window,
		now:    time.Now,
		cache:  expirable.NewLRU[DedupKey, time.Time](capacity, nil, window),
	}
}

// WithClock overrides the time source; used by tests.
func (d *Deduper) WithClock(now func() time.Time) *Deduper {
	if d != nil && now != nil {
		d.now = now
	}
	return d
}

// Allow reports whether an alert for key may be raised now and, if so,
// starts a new window for it.
func (d *Deduper) Allow(key DedupKey) bool {
	if d == nil {
		return true
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	now := d.now()
	if started, seen := d.cache.Peek(key); seen && now.Sub(started) < d.window {
		return false
	}
	d.cache.Add(key, now)
	return true
}

// ForgetShop clears every window held for the shop.
func (d *Deduper) ForgetShop(shopID string) {
	if d == nil {
		return
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	for _, key := range d.cache.Keys() {
		if key.ShopID == shopID {
			d.cache.Remove(key)
		}
	}
}
