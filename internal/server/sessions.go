package server

import (
	"net/http"
	"sync"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	lru "github.com/hashicorp/golang-lru"

	"github.com/jonathan/job-dashboard/internal/listing"
	"github.com/jonathan/job-dashboard/internal/view"
)

// SessionCookie identifies the browser's list session.
const SessionCookie = "dash_sid"

// DefaultSessionTTL is the lifetime of a list session cookie.
const DefaultSessionTTL = 30 * 24 * time.Hour

// SessionClaims represents JWT claims carrying the list session id.
type SessionClaims struct {
	SessionID string `json:"sid"`
	jwt.RegisteredClaims
}

// SessionSigner signs and validates list session ids.
type SessionSigner struct {
	secret []byte
	ttl    time.Duration
}

// NewSessionSigner creates a signer. ttl <= 0 selects DefaultSessionTTL.
func NewSessionSigner(secret string, ttl time.Duration) *SessionSigner {
	if ttl <= 0 {
		ttl = DefaultSessionTTL
	}
	return &SessionSigner{secret: []byte(secret), ttl: ttl}
}

// Sign returns a signed token for the session id.
func (s *SessionSigner) Sign(sessionID string) (string, error) {
	now := time.Now()
	claims := &SessionClaims{
		SessionID: sessionID,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(now.Add(s.ttl)),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	tokenString, err := token.SignedString(s.secret)
	if err != nil {
		return "", errors.Wrap(err, "failed to sign session")
	}
	return tokenString, nil
}

// Parse validates a signed token and returns its session id.
func (s *SessionSigner) Parse(tokenString string) (string, error) {
	if tokenString == "" {
		return "", errors.New("session token is empty")
	}

	claims := &SessionClaims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (any, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.Newf("unexpected signing method: %v", token.Header["alg"])
		}
		return s.secret, nil
	})
	if err != nil {
		return "", errors.Wrap(err, "failed to parse session")
	}
	if !token.Valid {
		return "", errors.New("session is not valid")
	}
	if _, err := uuid.Parse(claims.SessionID); err != nil {
		return "", errors.Wrap(err, "malformed session id")
	}
	return claims.SessionID, nil
}

// ListSession is the server-side state of one browser: its job list pager,
// plus the cover letters and role scores produced during the session.
type ListSession struct {
	ID      string
	Pager   *listing.Pager
	Letters *view.CoverLetters
	Scores  *view.RoleScores
}

// SessionOptions configures the session store.
type SessionOptions struct {
	Secret    string
	TTL       time.Duration
	CacheSize int
	PageSize  int
	Secure    bool
}

// SessionStore keeps list sessions in a bounded LRU keyed by session id.
// Evicted sessions start over with page 1 on their next request.
type SessionStore struct {
	signer   *SessionSigner
	cache    *lru.Cache
	fetch    listing.FetchFunc
	pageSize int
	secure   bool
	ttl      time.Duration
	mu       sync.Mutex
}

// NewSessionStore creates a session store whose pagers fetch with fetch.
func NewSessionStore(opts SessionOptions, fetch listing.FetchFunc) (*SessionStore, error) {
	if opts.Secret == "" {
		return nil, errors.New("session secret is required")
	}
	size := opts.CacheSize
	if size <= 0 {
		size = 1024
	}
	cache, err := lru.New(size)
	if err != nil {
		return nil, errors.Wrap(err, "failed to create session cache")
	}
	signer := NewSessionSigner(opts.Secret, opts.TTL)
	return &SessionStore{
		signer:   signer,
		cache:    cache,
		fetch:    fetch,
		pageSize: opts.PageSize,
		secure:   opts.Secure,
		ttl:      signer.ttl,
	}, nil
}

// Get returns the session of the request, creating one and setting its
// cookie on w when the request carries none or an invalid one.
func (st *SessionStore) Get(w http.ResponseWriter, r *http.Request) (*ListSession, error) {
	id := ""
	if c, err := r.Cookie(SessionCookie); err == nil {
		if sid, err := st.signer.Parse(c.Value); err == nil {
			id = sid
		}
	}

	if id == "" {
		id = uuid.NewString()
		token, err := st.signer.Sign(id)
		if err != nil {
			return nil, err
		}
		http.SetCookie(w, &http.Cookie{
			Name:     SessionCookie,
			Value:    token,
			Path:     "/",
			MaxAge:   int(st.ttl.Seconds()),
			HttpOnly: true,
			Secure:   st.secure,
			SameSite: http.SameSiteLaxMode,
		})
	}

	st.mu.Lock()
	defer st.mu.Unlock()
	if v, ok := st.cache.Get(id); ok {
		return v.(*ListSession), nil
	}
	sess := &ListSession{
		ID:      id,
		Pager:   listing.NewPager(st.fetch, st.pageSize),
		Letters: view.NewCoverLetters(),
		Scores:  view.NewRoleScores(),
	}
	st.cache.Add(id, sess)
	return sess, nil
}

// Len returns the number of live sessions.
func (st *SessionStore) Len() int {
	return st.cache.Len()
}
