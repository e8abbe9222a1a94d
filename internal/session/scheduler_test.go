package session

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/TheFastest599/flowtrack/internal/api"
)

func TestSchedulerRefreshesAfterHydration(t *testing.T) {
	var refreshes atomic.Int64
	auth := &fakeAuth{
		refreshFn: func() (string, error) {
			refreshes.Add(1)
			return "T1", nil
		},
	}
	s, _ := newTestStore(auth)

	sched := NewRefreshScheduler(s, WithInterval(20*time.Millisecond))
	sched.Start()
	defer sched.Stop()

	// Nothing happens before hydration.
	time.Sleep(50 * time.Millisecond)
	if n := refreshes.Load(); n != 0 {
		t.Fatalf("refreshed %d times before hydration", n)
	}

	s.Hydrate()

	// Immediate refresh, then periodic ones.
	waitFor(t, time.Second, func() bool { return refreshes.Load() >= 3 })
}

func TestSchedulerParksOnFailureAndResumesOnLogin(t *testing.T) {
	var refreshes atomic.Int64
	var healthy atomic.Bool
	auth := &fakeAuth{
		loginFn: func(string, string) (*api.Session, error) {
			return &api.Session{AccessToken: "T1", User: userA()}, nil
		},
		refreshFn: func() (string, error) {
			refreshes.Add(1)
			if healthy.Load() {
				return "T2", nil
			}
			return "", api.ErrSessionExpired
		},
	}
	s, _ := newTestStore(auth)

	var ended atomic.Int64
	sched := NewRefreshScheduler(s,
		WithInterval(10*time.Millisecond),
		WithSessionEndFunc(func() { ended.Add(1) }))
	sched.Start()
	defer sched.Stop()

	s.Hydrate()

	// First refresh fails; scheduler parks after signalling session end.
	waitFor(t, time.Second, func() bool { return ended.Load() >= 1 })
	parked := refreshes.Load()
	time.Sleep(60 * time.Millisecond)
	if refreshes.Load() != parked {
		t.Fatal("scheduler kept refreshing after session ended")
	}

	// A fresh login restarts the periodic path.
	healthy.Store(true)
	if _, err := s.Login(context.Background(), "a@x.com", "pw"); err != nil {
		t.Fatalf("Login: %v", err)
	}
	waitFor(t, time.Second, func() bool { return refreshes.Load() > parked })
}

func TestSchedulerResumesWhenLoginRacesFailedRefresh(t *testing.T) {
	var refreshes atomic.Int64
	firstStall := make(chan struct{})
	auth := &fakeAuth{
		loginFn: func(string, string) (*api.Session, error) {
			return &api.Session{AccessToken: "T1", User: userA()}, nil
		},
		refreshFn: func() (string, error) {
			if refreshes.Add(1) == 1 {
				<-firstStall
				return "", api.ErrSessionExpired
			}
			return "T2", nil
		},
	}
	s, _ := newTestStore(auth)

	var ended atomic.Int64
	sched := NewRefreshScheduler(s,
		WithInterval(10*time.Millisecond),
		WithSessionEndFunc(func() { ended.Add(1) }))
	sched.Start()
	defer sched.Stop()

	s.Hydrate()
	waitFor(t, time.Second, func() bool { return refreshes.Load() == 1 })

	// Login completes while the first refresh is still in flight; the store's
	// token guard will keep this session when the stale refresh fails.
	if _, err := s.Login(context.Background(), "a@x.com", "pw"); err != nil {
		t.Fatalf("Login: %v", err)
	}
	close(firstStall)

	// The scheduler must resume renewing the surviving session, not park.
	waitFor(t, time.Second, func() bool { return refreshes.Load() >= 3 })
	if n := ended.Load(); n != 0 {
		t.Errorf("onSessionEnd fired %d times for a live session, want 0", n)
	}
	st := s.Snapshot()
	if !st.LoggedIn || st.AccessToken != "T2" {
		t.Errorf("session after resumed renewal: %+v", st)
	}
}

func TestSchedulerStopBeforeHydration(t *testing.T) {
	s, _ := newTestStore(&fakeAuth{})
	sched := NewRefreshScheduler(s, WithInterval(10*time.Millisecond))
	sched.Start()

	done := make(chan struct{})
	go func() {
		sched.Stop()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Stop did not return")
	}
}

func TestSchedulerStopCancelsTimer(t *testing.T) {
	var refreshes atomic.Int64
	auth := &fakeAuth{
		refreshFn: func() (string, error) {
			refreshes.Add(1)
			return "T1", nil
		},
	}
	s, _ := newTestStore(auth)
	s.Hydrate()

	sched := NewRefreshScheduler(s, WithInterval(10*time.Millisecond))
	sched.Start()
	waitFor(t, time.Second, func() bool { return refreshes.Load() >= 2 })
	sched.Stop()

	n := refreshes.Load()
	time.Sleep(50 * time.Millisecond)
	if refreshes.Load() != n {
		t.Error("refreshes continued after Stop")
	}
}
