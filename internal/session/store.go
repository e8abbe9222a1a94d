// Package session owns the client's belief about the current authenticated
// identity: who is logged in, the access token attached to API calls, and
// whether persisted state has been loaded yet. All mutation goes through the
// store's methods; consumers read snapshots or subscribe to changes.
package session

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"

	"github.com/TheFastest599/flowtrack/internal/api"
	"github.com/TheFastest599/flowtrack/internal/kv"
	"github.com/TheFastest599/flowtrack/internal/model"
)

// kvName is the namespace the session tuple is persisted under.
const kvName = "auth"

// State is an immutable snapshot of session state.
//
// Invariant: LoggedIn implies User != nil and AccessToken != "".
// Invariant: Hydrated transitions false -> true exactly once per process.
type State struct {
	User        *model.User
	AccessToken string
	LoggedIn    bool
	IsLoading   bool
	Hydrated    bool
	Err         string // last user-facing auth error, "" when none
}

// persistedSession is the tuple written to the KV store. Overwritten
// wholesale on every session-affecting change. RefreshToken is carried for
// transports implementing api.CredentialCarrier, so a new process can renew
// the session it inherited instead of starting logged out.
type persistedSession struct {
	AccessToken  string      `json:"access_token"`
	RefreshToken string      `json:"refresh_token,omitempty"`
	User         *model.User `json:"user"`
	LoggedIn     bool        `json:"logged_in"`
}

// Store owns session state. It is the only writer of session truth.
type Store struct {
	auth   api.AuthAPI
	kv     kv.Store
	logger *slog.Logger

	// tokenSink receives every access-token change, so the HTTP client
	// always signs requests with the current credential.
	tokenSink func(string)

	mu    sync.Mutex
	state State

	hydratedCh chan struct{} // closed once Hydrate has run

	subMu   sync.Mutex
	subs    map[int]func(State)
	nextSub int
}

// Option configures a Store.
type Option func(*Store)

// WithLogger sets the logger used for storage and logout failures.
func WithLogger(l *slog.Logger) Option {
	return func(s *Store) { s.logger = l }
}

// WithTokenSink registers a callback invoked with the access token whenever
// it changes (including the empty token on logout).
func WithTokenSink(fn func(string)) Option {
	return func(s *Store) { s.tokenSink = fn }
}

// NewStore creates a session store in the unauthenticated, unhydrated state.
func NewStore(auth api.AuthAPI, store kv.Store, opts ...Option) *Store {
	s := &Store{
		auth:       auth,
		kv:         store,
		logger:     slog.Default(),
		hydratedCh: make(chan struct{}),
		subs:       make(map[int]func(State)),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Snapshot returns a copy of the current session state.
func (s *Store) Snapshot() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// HydrationDone returns a channel closed once persisted state has been
// loaded. The refresh scheduler waits on this before its first refresh.
func (s *Store) HydrationDone() <-chan struct{} {
	return s.hydratedCh
}

// Subscribe registers an observer called with a snapshot after every state
// change. The returned cancel function unregisters it.
func (s *Store) Subscribe(fn func(State)) func() {
	s.subMu.Lock()
	id := s.nextSub
	s.nextSub++
	s.subs[id] = fn
	s.subMu.Unlock()
	return func() {
		s.subMu.Lock()
		delete(s.subs, id)
		s.subMu.Unlock()
	}
}

func (s *Store) notify(st State) {
	s.subMu.Lock()
	fns := make([]func(State), 0, len(s.subs))
	for _, fn := range s.subs {
		fns = append(fns, fn)
	}
	s.subMu.Unlock()
	for _, fn := range fns {
		fn(st)
	}
}

// Hydrate loads the persisted session tuple, exactly once. An absent or
// unreadable record leaves the store unauthenticated; either way the store
// is marked hydrated. Safe to call more than once; later calls are no-ops.
func (s *Store) Hydrate() {
	s.mu.Lock()
	if s.state.Hydrated {
		s.mu.Unlock()
		return
	}

	var refreshToken string
	raw, ok, err := s.kv.Get(kvName)
	if err != nil {
		s.logger.Warn("session: reading persisted state failed, continuing in memory", "error", err)
	}
	if ok && err == nil {
		var saved persistedSession
		if err := json.Unmarshal(raw, &saved); err != nil {
			s.logger.Warn("session: persisted state corrupt, ignoring", "error", err)
		} else if saved.LoggedIn && saved.User != nil && saved.AccessToken != "" {
			s.state.User = saved.User
			s.state.AccessToken = saved.AccessToken
			s.state.LoggedIn = true
			refreshToken = saved.RefreshToken
		}
	}
	s.state.Hydrated = true
	st := s.state
	s.mu.Unlock()

	if st.LoggedIn {
		if cc, ok := s.auth.(api.CredentialCarrier); ok && refreshToken != "" {
			cc.SetRefreshCredential(refreshToken)
		}
		s.pushToken(st.AccessToken)
	}
	close(s.hydratedCh)
	s.notify(st)
}

// Login authenticates with the server. On failure the prior session fields
// are left untouched and the error is also recorded on the state for
// observers; Login never leaves the store in a half-updated state.
func (s *Store) Login(ctx context.Context, email, password string) (*model.User, error) {
	s.setLoading()

	sess, err := s.auth.Login(ctx, email, password)
	if err != nil {
		s.setAuthError(err)
		return nil, err
	}
	s.adoptSession(sess)
	return sess.User, nil
}

// Register creates an account and adopts the server-issued session exactly
// as Login does.
func (s *Store) Register(ctx context.Context, req *api.RegisterRequest) (*model.User, error) {
	s.setLoading()

	sess, err := s.auth.Register(ctx, req)
	if err != nil {
		s.setAuthError(err)
		return nil, err
	}
	s.adoptSession(sess)
	return sess.User, nil
}

// RefreshSession renews the access token. On success it keeps the current
// user and swaps in the new token. On failure it clears the session to its
// unauthenticated state and returns false — unless a concurrent login
// replaced the token while the refresh was in flight, in which case the
// fresher session is left alone.
func (s *Store) RefreshSession(ctx context.Context) bool {
	s.mu.Lock()
	startToken := s.state.AccessToken
	s.mu.Unlock()

	token, err := s.auth.Refresh(ctx)
	if err != nil || token == "" {
		s.mu.Lock()
		if s.state.AccessToken != startToken {
			// A login won the race; this failure belongs to a session
			// that no longer exists.
			s.mu.Unlock()
			return false
		}
		s.clearLocked()
		st := s.state
		s.mu.Unlock()

		s.pushToken("")
		s.persist(st)
		s.notify(st)
		return false
	}

	s.mu.Lock()
	s.state.AccessToken = token
	// LoggedIn implies a non-nil user; a refresh that somehow succeeds
	// without an identity on record does not count as a login.
	s.state.LoggedIn = s.state.User != nil
	st := s.state
	s.mu.Unlock()

	s.pushToken(token)
	s.persist(st)
	s.notify(st)
	return true
}

// Logout clears the session immediately, then best-effort notifies the
// server. A failed network call is logged and never re-establishes the
// session. Idempotent.
func (s *Store) Logout(ctx context.Context) {
	s.mu.Lock()
	s.clearLocked()
	st := s.state
	s.mu.Unlock()

	s.pushToken("")
	s.persist(st)
	s.notify(st)

	if err := s.auth.Logout(ctx); err != nil {
		s.logger.Warn("session: server logout failed", "error", err)
	}
}

// --- internal state transitions ---

func (s *Store) setLoading() {
	s.mu.Lock()
	s.state.IsLoading = true
	s.state.Err = ""
	st := s.state
	s.mu.Unlock()
	s.notify(st)
}

func (s *Store) setAuthError(err error) {
	s.mu.Lock()
	s.state.IsLoading = false
	s.state.Err = err.Error()
	st := s.state
	s.mu.Unlock()
	s.notify(st)
}

func (s *Store) adoptSession(sess *api.Session) {
	s.mu.Lock()
	s.state.User = sess.User
	s.state.AccessToken = sess.AccessToken
	s.state.LoggedIn = true
	s.state.IsLoading = false
	s.state.Err = ""
	st := s.state
	s.mu.Unlock()

	s.pushToken(sess.AccessToken)
	s.persist(st)
	s.notify(st)
}

// clearLocked resets session fields to unauthenticated defaults. Hydrated is
// preserved: it never reverts within a process lifetime.
func (s *Store) clearLocked() {
	hydrated := s.state.Hydrated
	s.state = State{Hydrated: hydrated}
}

func (s *Store) pushToken(token string) {
	if s.tokenSink != nil {
		s.tokenSink(token)
	}
}

// persist writes the session tuple wholesale. Storage failures are logged
// and the session continues in memory only.
func (s *Store) persist(st State) {
	if !st.LoggedIn {
		if err := s.kv.Remove(kvName); err != nil {
			s.logger.Warn("session: clearing persisted state failed", "error", err)
		}
		return
	}
	saved := persistedSession{
		AccessToken: st.AccessToken,
		User:        st.User,
		LoggedIn:    true,
	}
	if cc, ok := s.auth.(api.CredentialCarrier); ok {
		saved.RefreshToken = cc.RefreshCredential()
	}
	raw, err := json.Marshal(saved)
	if err != nil {
		s.logger.Warn("session: encoding persisted state failed", "error", err)
		return
	}
	if err := s.kv.Set(kvName, raw); err != nil {
		s.logger.Warn("session: persisting state failed, continuing in memory", "error", err)
	}
}
