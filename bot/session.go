package bot

import (
	"container/list"
	"fmt"
	"sync"
	"time"
)

// SessionStore tracks which users have assistant mode active. State is
// process-local and resets on restart, which is fine for a single instance.
type SessionStore struct {
	mu     sync.RWMutex
	active map[string]bool
}

func NewSessionStore() *SessionStore {
	return &SessionStore{active: make(map[string]bool)}
}

// AssistantActive reports whether free-form ordering is enabled for phone.
func (s *SessionStore) AssistantActive(phone string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.active[phone]
}

// SetAssistant toggles assistant mode for phone.
func (s *SessionStore) SetAssistant(phone string, on bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if on {
		s.active[phone] = true
	} else {
		delete(s.active, phone)
	}
}

// DedupCache suppresses exact immediate message repeats from the transport.
// Fingerprints combine sender, text and a coarse time bucket; the cache
// evicts its oldest entry once full (FIFO, not LRU).
type DedupCache struct {
	mu       sync.Mutex
	capacity int
	seen     map[string]struct{}
	order    *list.List
}

func NewDedupCache(capacity int) *DedupCache {
	if capacity <= 0 {
		capacity = 100
	}
	return &DedupCache{
		capacity: capacity,
		seen:     make(map[string]struct{}),
		order:    list.New(),
	}
}

// Seen records the message fingerprint and reports whether it was already
// present.
func (d *DedupCache) Seen(sender, text string, at time.Time) bool {
	key := fmt.Sprintf("%s|%s|%d", sender, text, at.Unix()/60)

	d.mu.Lock()
	defer d.mu.Unlock()

	if _, ok := d.seen[key]; ok {
		return true
	}
	d.seen[key] = struct{}{}
	d.order.PushBack(key)
	if d.order.Len() > d.capacity {
		oldest := d.order.Front()
		d.order.Remove(oldest)
		delete(d.seen, oldest.Value.(string))
	}
	return false
}
