package filters

import (
	"net/http"
	"sync"
	"time"

	"github.com/cockroachdb/errors"
)

// CookieName is the cookie holding the persisted filter state.
const CookieName = "job_filters"

// CookieMaxAge is the retention window of the filter cookie.
const CookieMaxAge = 90 * 24 * time.Hour

// ErrNotReady is returned when the store is mutated before Init completed.
var ErrNotReady = errors.New("filter store not initialized")

// Phase is the initialization state of a Store.
type Phase int

const (
	PhaseUninitialized Phase = iota
	PhaseLoading
	PhaseReady
)

func (p Phase) String() string {
	switch p {
	case PhaseUninitialized:
		return "uninitialized"
	case PhaseLoading:
		return "loading"
	case PhaseReady:
		return "ready"
	default:
		return "unknown"
	}
}

// Store wraps a State with its initialization lifecycle and cookie
// persistence. Consumers render a placeholder until Ready reports true.
type Store struct {
	mu     sync.Mutex
	phase  Phase
	state  State
	dirty  bool
	secure bool
}

// NewStore returns an uninitialized store. secure marks the written cookie Secure.
func NewStore(secure bool) *Store {
	return &Store{state: Defaults(), secure: secure}
}

// Init loads the persisted state from the request cookie. Calling Init on an
// initialized store is a no-op.
func (s *Store) Init(r *http.Request) State {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.phase != PhaseUninitialized {
		return s.state
	}
	s.phase = PhaseLoading

	raw := ""
	if c, err := r.Cookie(CookieName); err == nil {
		raw = c.Value
	}
	s.state = Load(raw)
	s.phase = PhaseReady
	return s.state
}

// Phase returns the current initialization phase.
func (s *Store) Phase() Phase {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.phase
}

// Ready reports whether the persisted state has been applied.
func (s *Store) Ready() bool {
	return s.Phase() == PhaseReady
}

// State returns the current in-memory configuration.
func (s *Store) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Update replaces one field and marks the state for write-back.
func (s *Store) Update(field, value string) (State, error) {
	return s.mutate(func(st State) (State, error) { return st.Set(field, value) })
}

// Clear resets the filters, keeping the sort preference.
func (s *Store) Clear() (State, error) {
	return s.mutate(func(st State) (State, error) { return st.Clear(), nil })
}

// ToggleStatus adds or removes one status code.
func (s *Store) ToggleStatus(code string) (State, error) {
	return s.mutate(func(st State) (State, error) { return st.ToggleStatus(code) })
}

func (s *Store) mutate(fn func(State) (State, error)) (State, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.phase != PhaseReady {
		return s.state, ErrNotReady
	}
	next, err := fn(s.state)
	if err != nil {
		return s.state, err
	}
	s.state = next
	s.dirty = true
	return next, nil
}

// Persist writes the state cookie if the state changed since Init. Writing
// is best-effort: the in-memory state is authoritative either way.
func (s *Store) Persist(w http.ResponseWriter) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.dirty {
		return
	}
	http.SetCookie(w, Cookie(s.state, s.secure))
	s.dirty = false
}

// Cookie builds the job_filters cookie for st.
func Cookie(st State, secure bool) *http.Cookie {
	return &http.Cookie{
		Name:     CookieName,
		Value:    st.Encode(),
		Path:     "/",
		MaxAge:   int(CookieMaxAge.Seconds()),
		Expires:  time.Now().Add(CookieMaxAge),
		Secure:   secure,
		HttpOnly: false,
		SameSite: http.SameSiteLaxMode,
	}
}
