package translation

import (
	"errors"
	"sort"
	"sync"

	"github.com/yoockh/ameena/internal/metrics"
)

var ErrSessionExists = errors.New("session already registered")

// Registry tracks live sessions by id. The transport inserts on connect and
// removes on disconnect; shutdown closes whatever is left.
type Registry struct {
	mu       sync.RWMutex
	sessions map[string]*Session
	m        *metrics.Metrics
}

func NewRegistry(m *metrics.Metrics) *Registry {
	return &Registry{sessions: make(map[string]*Session), m: m}
}

func (r *Registry) Add(s *Session) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.sessions[s.ID]; ok {
		return ErrSessionExists
	}
	r.sessions[s.ID] = s
	r.gauge()
	return nil
}

func (r *Registry) Get(id string) (*Session, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.sessions[id]
	return s, ok
}

// Remove unregisters and closes the session. Unknown ids are ignored.
func (r *Registry) Remove(id string) {
	r.mu.Lock()
	s, ok := r.sessions[id]
	delete(r.sessions, id)
	r.gauge()
	r.mu.Unlock()

	if ok {
		s.Close()
	}
}

func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sessions)
}

func (r *Registry) IDs() []string {
	r.mu.RLock()
	ids := make([]string, 0, len(r.sessions))
	for id := range r.sessions {
		ids = append(ids, id)
	}
	r.mu.RUnlock()
	sort.Strings(ids)
	return ids
}

// CloseAll closes every registered session concurrently and empties the
// registry.
func (r *Registry) CloseAll() {
	r.mu.Lock()
	all := r.sessions
	r.sessions = make(map[string]*Session)
	r.gauge()
	r.mu.Unlock()

	var wg sync.WaitGroup
	for _, s := range all {
		wg.Add(1)
		go func(s *Session) {
			defer wg.Done()
			s.Close()
		}(s)
	}
	wg.Wait()
}

// callers hold r.mu
func (r *Registry) gauge() {
	if r.m != nil {
		r.m.ActiveSessions.Set(float64(len(r.sessions)))
	}
}
