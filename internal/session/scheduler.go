package session

import (
	"context"
	"log/slog"
	"time"
)

// DefaultRefreshInterval is how often the access token is silently renewed.
// Access tokens live 15 minutes server-side; refreshing at 14 keeps a margin.
const DefaultRefreshInterval = 14 * time.Minute

// RefreshScheduler renews the session in the background: once immediately
// after hydration, then on a fixed period. A failed refresh (which already
// cleared the session) parks the scheduler until a later login brings the
// session back, at which point the periodic path resumes.
type RefreshScheduler struct {
	store    *Store
	interval time.Duration
	logger   *slog.Logger

	// onSessionEnd is invoked after a refresh failure has torn the session
	// down, so route guards re-evaluate and redirect.
	onSessionEnd func()

	stopCh chan struct{}
	doneCh chan struct{}
}

// SchedulerOption configures a RefreshScheduler.
type SchedulerOption func(*RefreshScheduler)

// WithInterval overrides the refresh period (tests use milliseconds).
func WithInterval(d time.Duration) SchedulerOption {
	return func(s *RefreshScheduler) { s.interval = d }
}

// WithSessionEndFunc registers the callback fired when a refresh failure
// ends the session.
func WithSessionEndFunc(fn func()) SchedulerOption {
	return func(s *RefreshScheduler) { s.onSessionEnd = fn }
}

// WithSchedulerLogger sets the logger.
func WithSchedulerLogger(l *slog.Logger) SchedulerOption {
	return func(s *RefreshScheduler) { s.logger = l }
}

// NewRefreshScheduler creates a scheduler bound to the given store. Call
// Start to begin and Stop to tear down.
func NewRefreshScheduler(store *Store, opts ...SchedulerOption) *RefreshScheduler {
	s := &RefreshScheduler{
		store:    store,
		interval: DefaultRefreshInterval,
		logger:   slog.Default(),
		stopCh:   make(chan struct{}),
		doneCh:   make(chan struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Start launches the background refresh loop. It waits for the store to
// hydrate before the first refresh.
func (s *RefreshScheduler) Start() {
	go s.run()
}

// Stop cancels the refresh loop deterministically and waits for it to exit.
// Idempotent only via the caller; call Stop once.
func (s *RefreshScheduler) Stop() {
	close(s.stopCh)
	<-s.doneCh
}

func (s *RefreshScheduler) run() {
	defer close(s.doneCh)

	select {
	case <-s.store.HydrationDone():
	case <-s.stopCh:
		return
	}

	// reloginCh gets a signal whenever the store reports a logged-in
	// state, which is how the scheduler wakes up after a refresh failure
	// parked it.
	reloginCh := make(chan struct{}, 1)
	cancel := s.store.Subscribe(func(st State) {
		if st.LoggedIn {
			select {
			case reloginCh <- struct{}{}:
			default:
			}
		}
	})
	defer cancel()

	for {
		if s.runActive() {
			return // stopped
		}

		// Drop any stale wake-up from the active phase.
		select {
		case <-reloginCh:
		default:
		}

		// A login that raced the failed refresh survives it (the store's
		// token guard kept it); the session is live, so resume renewing
		// instead of parking.
		if s.store.Snapshot().LoggedIn {
			continue
		}

		// Session ended; wait for a fresh login or teardown.
		if s.onSessionEnd != nil {
			s.onSessionEnd()
		}
		s.logger.Info("session: background refresh parked until next login")

		select {
		case <-s.stopCh:
			return
		case <-reloginCh:
			s.logger.Info("session: background refresh resumed")
		}
	}
}

// runActive performs the immediate refresh and then ticks at the configured
// interval until a refresh fails. Returns true when the scheduler was
// stopped, false when the session ended.
func (s *RefreshScheduler) runActive() (stopped bool) {
	if !s.store.RefreshSession(context.Background()) {
		return false
	}

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-s.stopCh:
			return true
		case <-ticker.C:
			if !s.store.RefreshSession(context.Background()) {
				return false
			}
		}
	}
}
