package session

import (
	"sync"
	"time"

	"ourfish-bknd/internal/aggregate"
	"ourfish-bknd/internal/geo"
)

// Session is one user's dashboard state. Values are replaced wholesale.
type Session struct {
	// Chain is the live selection, edited before the next apply.
	Chain geo.Chain
	// Applied is the selection Result was computed from.
	Applied geo.Chain
	Filter  aggregate.FilterState
	// Result is the last computed set of tables, exported on demand.
	Result    aggregate.Result
	UpdatedAt time.Time
}

type entry struct {
	// update serializes read-modify-write cycles on one session
	update   sync.Mutex
	s        Session
	lastSeen time.Time
}

// Store keeps sessions in memory. Idle sessions are evicted lazily when the
// store is next written to, and the least recently seen session is dropped
// once max sessions are stored.
type Store struct {
	mu       sync.Mutex
	ttl      time.Duration
	max      int
	now      func() time.Time
	sessions map[string]*entry
}

// NewStore creates a store. A zero ttl or max disables that limit.
func NewStore(ttl time.Duration, max int) *Store {
	return &Store{ttl: ttl, max: max, now: time.Now, sessions: map[string]*entry{}}
}

// Get returns the session for key, or false if there is none or it expired.
func (s *Store) Get(key string) (Session, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.live(key, s.now())
	if !ok {
		return Session{}, false
	}
	return e.s, true
}

// Put stores sess under key.
func (s *Store) Put(key string, sess Session) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	sess.UpdatedAt = now
	if e, ok := s.sessions[key]; ok {
		e.s = sess
		e.lastSeen = now
		return
	}
	s.insert(key, &entry{s: sess, lastSeen: now}, now)
}

// Update runs fn on the current session for key, creating it with init when
// absent, and stores the result. Updates of one key run one at a time, so
// concurrent edits of the same session are not lost. When fn fails the
// session is left as it was and returned with the error.
func (s *Store) Update(key string, init func() Session, fn func(Session) (Session, error)) (Session, error) {
	e := s.entryFor(key, init)

	e.update.Lock()
	defer e.update.Unlock()

	s.mu.Lock()
	cur := e.s
	s.mu.Unlock()

	next, err := fn(cur)
	if err != nil {
		return cur, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.now()
	next.UpdatedAt = now
	e.s = next
	e.lastSeen = now
	if stored, ok := s.sessions[key]; !ok || stored != e {
		// evicted while fn ran
		s.insert(key, e, now)
	}
	return next, nil
}

func (s *Store) entryFor(key string, init func() Session) *entry {
	s.mu.Lock()
	e, ok := s.live(key, s.now())
	s.mu.Unlock()
	if ok {
		return e
	}

	sess := init()

	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.now()
	if e, ok := s.live(key, now); ok {
		return e
	}
	sess.UpdatedAt = now
	e = &entry{s: sess, lastSeen: now}
	s.insert(key, e, now)
	return e
}

// Delete drops a session.
func (s *Store) Delete(key string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, key)
}

// Len is the number of stored sessions, expired ones included until evicted.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sessions)
}

// live returns the unexpired entry for key and marks it seen. s.mu is held.
func (s *Store) live(key string, now time.Time) (*entry, bool) {
	e, ok := s.sessions[key]
	if !ok {
		return nil, false
	}
	if s.expired(e, now) {
		delete(s.sessions, key)
		return nil, false
	}
	e.lastSeen = now
	return e, true
}

// insert evicts and then adds e under key. s.mu is held.
func (s *Store) insert(key string, e *entry, now time.Time) {
	s.evict(now)
	for s.max > 0 && len(s.sessions) >= s.max {
		s.dropOldest()
	}
	s.sessions[key] = e
}

func (s *Store) expired(e *entry, now time.Time) bool {
	return s.ttl > 0 && now.Sub(e.lastSeen) > s.ttl
}

func (s *Store) evict(now time.Time) {
	for k, e := range s.sessions {
		if s.expired(e, now) {
			delete(s.sessions, k)
		}
	}
}

func (s *Store) dropOldest() {
	var (
		oldestKey string
		oldest    time.Time
		found     bool
	)
	for k, e := range s.sessions {
		if !found || e.lastSeen.Before(oldest) || (e.lastSeen.Equal(oldest) && k < oldestKey) {
			oldestKey, oldest, found = k, e.lastSeen, true
		}
	}
	if found {
		delete(s.sessions, oldestKey)
	}
}
