// Package session holds Phase-1 output between the two halves of the
// human-in-the-loop workflow, keyed by an opaque session ID.
package session

import (
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/minwoopark/alarmsense/pkg/models"
)

// Session is the intermediate state a Phase-1 call leaves behind for Phase 2:
// the resolved alarm identity, the ranked candidates the user is choosing
// from, and the context the report writer needs.
type Session struct {
	ID             string
	AlarmDate      string
	AlarmEqpID     string
	AlarmKPI       string
	Candidates     []models.RootCause
	KPIData        models.KPIDaily
	ContextText    string
	ProblemSummary string
	CreatedAt      time.Time
}

type item struct {
	session   Session
	expiresAt time.Time
}

// Store is a concurrency-safe session map with per-entry TTL. Sessions
// expire independently of the analysis cache; Phase 2 must re-validate
// existence before proceeding.
type Store struct {
	mu       sync.Mutex
	ttl      time.Duration
	sessions map[string]item
	now      func() time.Time
}

// NewStore creates a session store whose entries live for ttl.
func NewStore(ttl time.Duration) *Store {
	return &Store{
		ttl:      ttl,
		sessions: make(map[string]item),
		now:      time.Now,
	}
}

// Put stores the session under a freshly minted ID and returns it.
// IDs are random UUIDs, never sequential.
func (s *Store) Put(sess Session) string {
	id := uuid.NewString()
	sess.ID = id
	sess.CreatedAt = s.now()

	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions[id] = item{session: sess, expiresAt: sess.CreatedAt.Add(s.ttl)}
	return id
}

// Get returns the session for id. Expired or unknown IDs report not-found;
// expired entries are removed on access.
func (s *Store) Get(id string) (Session, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	it, ok := s.sessions[id]
	if !ok {
		return Session{}, false
	}
	if s.now().After(it.expiresAt) {
		delete(s.sessions, id)
		return Session{}, false
	}
	return it.session, true
}

// Delete removes id if present.
func (s *Store) Delete(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, id)
}

// Len reports the number of live and not-yet-swept sessions.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sessions)
}
