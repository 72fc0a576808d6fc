package app

import (
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"

	"effortline/internal/entry"
)

// ErrInFlight is returned when the same logical action is already running
// for a session.
var ErrInFlight = errors.New("request in progress")

// ErrNoSession is returned for an unknown or signed-out session id.
var ErrNoSession = errors.New("session not found")

// Guard keys for the actions that must not overlap within a session.
const KeyCommit = "commit"

func RatingKey(submissionID string) string { return "rating:" + submissionID }

// Session is the per-sign-in application context. It owns the identity, the
// draft collection and the in-flight guard. It is created at sign-in and
// dropped at sign-out.
type Session struct {
	ID        string
	Identity  string
	Admin     bool
	CreatedAt time.Time
	Staging   *entry.Staging

	service  bool
	mu       sync.Mutex
	inFlight map[string]struct{}
}

func NewSession(identity string, admin bool, val *entry.Validator) *Session {
	return &Session{
		ID:        uuid.NewString(),
		Identity:  identity,
		Admin:     admin,
		CreatedAt: time.Now().UTC(),
		Staging:   entry.NewStaging(val),
		inFlight:  map[string]struct{}{},
	}
}

// TryAcquire marks key as running. The returned release must be called when
// the action completes. A key already held yields ErrInFlight.
func (s *Session) TryAcquire(key string) (func(), error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.inFlight == nil {
		s.inFlight = map[string]struct{}{}
	}
	if _, busy := s.inFlight[key]; busy {
		return nil, ErrInFlight
	}
	s.inFlight[key] = struct{}{}
	var once sync.Once
	return func() {
		once.Do(func() {
			s.mu.Lock()
			delete(s.inFlight, key)
			s.mu.Unlock()
		})
	}, nil
}

// Sessions is the registry of live sessions, keyed by session id. Sign-in
// sessions older than the TTL are swept; API key sessions are not.
type Sessions struct {
	mu    sync.RWMutex
	byID  map[string]*Session
	val   *entry.Validator
	admin func(identity string) bool
	ttl   time.Duration
}

// NewSessions returns an empty registry. isAdmin is evaluated once per
// sign-in.
func NewSessions(val *entry.Validator, isAdmin func(identity string) bool) *Sessions {
	return &Sessions{byID: map[string]*Session{}, val: val, admin: isAdmin}
}

// SetTTL sets how long a sign-in session lives. Zero disables sweeping.
func (r *Sessions) SetTTL(d time.Duration) {
	r.mu.Lock()
	r.ttl = d
	r.mu.Unlock()
}

// Create registers a new sign-in session, sweeping expired ones first.
func (r *Sessions) Create(identity string) *Session {
	admin := r.admin != nil && r.admin(identity)
	s := NewSession(identity, admin, r.val)
	r.Sweep(s.CreatedAt)
	r.mu.Lock()
	r.byID[s.ID] = s
	r.mu.Unlock()
	return s
}

// Sweep drops sign-in sessions created a TTL or more before now and clears
// their drafts. It returns how many it dropped.
func (r *Sessions) Sweep(now time.Time) int {
	r.mu.Lock()
	if r.ttl <= 0 {
		r.mu.Unlock()
		return 0
	}
	var expired []*Session
	for id, s := range r.byID {
		if s.service || now.Sub(s.CreatedAt) < r.ttl {
			continue
		}
		expired = append(expired, s)
		delete(r.byID, id)
	}
	r.mu.Unlock()
	for _, s := range expired {
		s.Staging.Clear()
	}
	return len(expired)
}

// Service returns the long-lived session of an API key holder, creating it
// on first use. It is keyed by identity and never expires.
func (r *Sessions) Service(identity string) *Session {
	key := "key:" + identity
	r.mu.Lock()
	defer r.mu.Unlock()
	if s, ok := r.byID[key]; ok {
		return s
	}
	admin := r.admin != nil && r.admin(identity)
	s := NewSession(identity, admin, r.val)
	s.ID = key
	s.service = true
	r.byID[key] = s
	return s
}

func (r *Sessions) Get(id string) (*Session, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.byID[id]
	if !ok {
		return nil, ErrNoSession
	}
	return s, nil
}

// Delete drops the session and clears its staged entries.
func (r *Sessions) Delete(id string) bool {
	r.mu.Lock()
	s, ok := r.byID[id]
	delete(r.byID, id)
	r.mu.Unlock()
	if ok {
		s.Staging.Clear()
	}
	return ok
}

func (r *Sessions) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.byID)
}
