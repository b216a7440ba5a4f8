package state

import (
	"sync"
	"time"
)

// Store remembers the last payload published per state topic and when it
// was sent.
type Store interface {
	GetLast(topic string) (payload string, sentAt time.Time, ok bool)
	Update(topic, payload string)
}

type entry struct {
	payload string
	sentAt  time.Time
}

type store struct {
	last map[string]entry
	mu   sync.RWMutex
}

func NewStore() Store {
	return &store{last: make(map[string]entry)}
}

func (s *store) GetLast(topic string) (string, time.Time, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.last[topic]
	return e.payload, e.sentAt, ok
}

func (s *store) Update(topic, payload string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.last[topic] = entry{payload: payload, sentAt: time.Now()}
}
