package survey

import (
	"sync"
	"time"
)

// Repository хранит активные сессии в памяти процесса.
type Repository struct {
	mu       sync.Mutex
	sessions map[string]*Session
	ttl      time.Duration
}

func NewRepository(ttl time.Duration) *Repository {
	return &Repository{sessions: make(map[string]*Session), ttl: ttl}
}

// Save добавляет сессию и заодно выбрасывает просроченные.
func (r *Repository) Save(s *Session, now time.Time) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.ttl > 0 {
		for id, old := range r.sessions {
			if now.Sub(old.CreatedAt) > r.ttl {
				delete(r.sessions, id)
			}
		}
	}
	r.sessions[s.ID] = s
}

func (r *Repository) Get(id string) (*Session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	s, ok := r.sessions[id]
	if !ok {
		return nil, ErrSessionNotFound
	}
	return s, nil
}

func (r *Repository) Delete(id string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	_, ok := r.sessions[id]
	delete(r.sessions, id)
	return ok
}

func (r *Repository) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.sessions)
}
