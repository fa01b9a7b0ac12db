package session

import (
	"errors"
	"math/rand"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"

	"monger-backend/internal/model"
)

var ErrNotFound = errors.New("session not found")

// Store holds live conversational sessions. Sessions are ephemeral: they
// exist only here and are evicted by the sweeper; durable customer facts are
// persisted elsewhere.
//
// WithLock serializes all work on a single session id. Every read-modify-write
// of a session must run inside it.
type Store interface {
	Create(s model.Session) error
	Get(id string) (model.Session, error)
	Update(id string, fn func(s *model.Session) error) error
	AppendMessage(id, role, content string) (model.SessionMessage, error)
	RecentMessages(id string, n int) ([]model.SessionMessage, error)
	ClearMessages(id string) error
	Delete(id string) error
	WithLock(id string, fn func() error) error
	ActiveIDs() []string
}

// MemoryStore is the in-process Store. A per-id mutex map backs WithLock so a
// slow engine call on one session never blocks turns on another.
type MemoryStore struct {
	mu       sync.RWMutex
	sessions map[string]*model.Session
	locks    map[string]*sync.Mutex

	now     func() time.Time
	entropy *ulid.MonotonicEntropy
	entMu   sync.Mutex
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		sessions: make(map[string]*model.Session),
		locks:    make(map[string]*sync.Mutex),
		now:      time.Now,
		entropy:  ulid.Monotonic(rand.New(rand.NewSource(time.Now().UnixNano())), 0),
	}
}

func (m *MemoryStore) newMessageID() string {
	m.entMu.Lock()
	defer m.entMu.Unlock()
	return ulid.MustNew(ulid.Timestamp(m.now()), m.entropy).String()
}

func (m *MemoryStore) Create(s model.Session) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.sessions[s.SessionID]; ok {
		return errors.New("session already exists")
	}
	clone := s.Clone()
	m.sessions[s.SessionID] = &clone
	m.locks[s.SessionID] = &sync.Mutex{}
	return nil
}

func (m *MemoryStore) Get(id string) (model.Session, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.sessions[id]
	if !ok {
		return model.Session{}, ErrNotFound
	}
	return s.Clone(), nil
}

func (m *MemoryStore) Update(id string, fn func(s *model.Session) error) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[id]
	if !ok {
		return ErrNotFound
	}
	if err := fn(s); err != nil {
		return err
	}
	s.LastActivityAt = m.now()
	return nil
}

func (m *MemoryStore) AppendMessage(id, role, content string) (model.SessionMessage, error) {
	msg := model.SessionMessage{
		MessageID: m.newMessageID(),
		Role:      role,
		Content:   content,
		CreatedAt: m.now(),
	}
	err := m.Update(id, func(s *model.Session) error {
		s.Messages = append(s.Messages, msg)
		return nil
	})
	if err != nil {
		return model.SessionMessage{}, err
	}
	return msg, nil
}

func (m *MemoryStore) RecentMessages(id string, n int) ([]model.SessionMessage, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.sessions[id]
	if !ok {
		return nil, ErrNotFound
	}
	msgs := s.Messages
	if n > 0 && len(msgs) > n {
		msgs = msgs[len(msgs)-n:]
	}
	out := make([]model.SessionMessage, len(msgs))
	copy(out, msgs)
	return out, nil
}

func (m *MemoryStore) ClearMessages(id string) error {
	return m.Update(id, func(s *model.Session) error {
		s.Messages = nil
		return nil
	})
}

func (m *MemoryStore) Delete(id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.sessions[id]; !ok {
		return ErrNotFound
	}
	delete(m.sessions, id)
	delete(m.locks, id)
	return nil
}

// WithLock runs fn while holding the session's own mutex. The lock outlives
// the session entry so a sweep racing a turn still serializes correctly.
func (m *MemoryStore) WithLock(id string, fn func() error) error {
	m.mu.Lock()
	lock, ok := m.locks[id]
	if !ok {
		lock = &sync.Mutex{}
		m.locks[id] = lock
	}
	m.mu.Unlock()

	lock.Lock()
	defer lock.Unlock()
	return fn()
}

func (m *MemoryStore) ActiveIDs() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	ids := make([]string, 0, len(m.sessions))
	for id := range m.sessions {
		ids = append(ids, id)
	}
	return ids
}
