package whatsapp

import (
	"sync"
	"time"
)

// seenMessages remembers inbound message ids so webhook redeliveries are
// answered once.
type seenMessages struct {
	mu   sync.Mutex
	ttl  time.Duration
	now  func() time.Time
	seen map[string]time.Time
}

func newSeenMessages(ttl time.Duration) *seenMessages {
	return &seenMessages{ttl: ttl, now: time.Now, seen: make(map[string]time.Time)}
}

// firstSight records id and reports whether it had not been seen within ttl.
func (s *seenMessages) firstSight(id string) bool {
	if id == "" {
		return true
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	for k, at := range s.seen {
		if now.Sub(at) > s.ttl {
			delete(s.seen, k)
		}
	}
	if _, ok := s.seen[id]; ok {
		return false
	}
	s.seen[id] = now
	return true
}
