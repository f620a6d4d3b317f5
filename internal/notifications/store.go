package notifications

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

// Store keeps notification records in memory in creation order.
type Store struct {
	mu    sync.RWMutex
	items map[string]*Record
	order []string
	now   func() time.Time
	newID func() string
}

// NewStore returns an empty notification store. Ids are time-ordered UUIDv7s.
func NewStore() *Store {
	return &Store{
		items: make(map[string]*Record),
		now:   time.Now,
		newID: newRecordID,
	}
}

func newRecordID() string {
	id, err := uuid.NewV7()
	if err != nil {
		return uuid.NewString()
	}
	return id.String()
}

// WithClock overrides the time source; used by tests.
func (s *Store) WithClock(now func() time.Time) *Store {
	if now != nil {
		s.now = now
	}
	return s
}

// Create appends an unsent record.
func (s *Store) Create(params CreateParams) Record {
	rec := &Record{
		ID:               s.newID(),
		CustomerID:       params.CustomerID,
		ShopID:           params.ShopID,
		ProductID:        params.ProductID,
		VariantID:        params.VariantID,
		NotificationType: params.NotificationType,
		Message:          params.Message,
		CreatedAt:        s.now().UTC(),
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.items[rec.ID] = rec
	s.order = append(s.order, rec.ID)
	return rec.clone()
}

// MarkSent flags the record as delivered. Unknown ids are ignored and a record
// that is already sent keeps its original SentAt.
func (s *Store) MarkSent(id string) (Record, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.items[id]
	if !ok {
		return Record{}, false
	}
	if !rec.Sent {
		sentAt := s.now().UTC()
		rec.Sent = true
		rec.SentAt = &sentAt
	}
	return rec.clone(), true
}

// Get returns a copy of the record.
func (s *Store) Get(id string) (Record, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rec, ok := s.items[id]
	if !ok {
		return Record{}, false
	}
	return rec.clone(), true
}

// ListPending lists the shop's unsent records.
func (s *Store) ListPending(shopID string) []Record {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Record, 0)
	for _, id := range s.order {
		rec := s.items[id]
		if rec.ShopID == shopID && !rec.Sent {
			out = append(out, rec.clone())
		}
	}
	return out
}

// PurgeShop drops every record of the shop and returns how many were removed.
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

// DeleteSentBefore drops sent records whose SentAt is before cutoff. Pending
// records are never removed.
func (s *Store) DeleteSentBefore(cutoff time.Time) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	kept := s.order[:0]
	removed := 0
	for _, id := range s.order {
		rec := s.items[id]
		if rec.Sent && rec.SentAt != nil && rec.SentAt.Before(cutoff) {
			delete(s.items, id)
			removed++
			continue
		}
		kept = append(kept, id)
	}
	s.order = kept
	return removed
}
