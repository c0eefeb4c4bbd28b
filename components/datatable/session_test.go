package datatable

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSessionManagerLifecycle(t *testing.T) {
	now := time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC)
	mgr := NewSessionManager(SessionOptions{TTL: time.Hour, Now: func() time.Time { return now }})
	var closed []string
	mgr.OnLogout(func(_ context.Context, token string) { closed = append(closed, token) })

	session, err := mgr.Login(context.Background(), Credentials{Email: "ops@store.test", Password: "x"})
	require.NoError(t, err)
	assert.NotEmpty(t, session.Token)
	assert.Equal(t, "ops", session.User.Name)
	assert.Equal(t, now.Add(time.Hour), session.ExpiresAt)

	found, err := mgr.Lookup(context.Background(), session.Token)
	require.NoError(t, err)
	assert.Equal(t, session, found)

	require.NoError(t, mgr.Logout(context.Background(), session.Token))
	assert.Equal(t, []string{session.Token}, closed)
	_, err = mgr.Lookup(context.Background(), session.Token)
	assert.ErrorIs(t, err, ErrNoSession)
}

func TestSessionManagerExpiresSessions(t *testing.T) {
	now := time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC)
	mgr := NewSessionManager(SessionOptions{TTL: time.Minute, Now: func() time.Time { return now }})
	torn := 0
	mgr.OnLogout(func(context.Context, string) { torn++ })
	session, err := mgr.Login(context.Background(), Credentials{Email: "a@b.c"})
	require.NoError(t, err)

	now = now.Add(2 * time.Minute)
	_, err = mgr.Lookup(context.Background(), session.Token)
	assert.ErrorIs(t, err, ErrNoSession)
	assert.Equal(t, 1, torn)
}

func TestSessionManagerSweepEndsExpiredSessions(t *testing.T) {
	now := time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC)
	telemetry := &recordingTelemetry{}
	mgr := NewSessionManager(SessionOptions{TTL: time.Minute, Telemetry: telemetry, Now: func() time.Time { return now }})
	svc := NewService(Options{Registry: seededRegistry(t, sampleCustomers()), Debounce: time.Hour})
	mgr.OnLogout(svc.CloseSession)

	stale, err := mgr.Login(context.Background(), Credentials{Email: "stale@store.test"})
	require.NoError(t, err)
	_, err = svc.Table(context.Background(), ViewerContext{SessionID: stale.Token}, "customers")
	require.NoError(t, err)

	now = now.Add(45 * time.Second)
	fresh, err := mgr.Login(context.Background(), Credentials{Email: "fresh@store.test"})
	require.NoError(t, err)
	_, err = svc.Table(context.Background(), ViewerContext{SessionID: fresh.Token}, "customers")
	require.NoError(t, err)
	assert.Equal(t, 2, svc.ViewCount())

	now = now.Add(30 * time.Second)
	ended, err := mgr.Sweep(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, ended)
	assert.Equal(t, 1, svc.ViewCount())
	assert.Contains(t, telemetry.events, "datatable.session.swept")

	_, err = mgr.Lookup(context.Background(), fresh.Token)
	assert.NoError(t, err)

	ended, err = NewSessionManager(SessionOptions{Store: &failingSessionStore{}}).Sweep(context.Background())
	assert.NoError(t, err)
	assert.Zero(t, ended)
}

func TestSessionManagerStartSweeper(t *testing.T) {
	var mu sync.Mutex
	now := time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC)
	clock := func() time.Time {
		mu.Lock()
		defer mu.Unlock()
		return now
	}
	mgr := NewSessionManager(SessionOptions{TTL: time.Minute, Now: clock})
	ended := make(chan string, 1)
	mgr.OnLogout(func(_ context.Context, token string) { ended <- token })
	session, err := mgr.Login(context.Background(), Credentials{Email: "a@b.c"})
	require.NoError(t, err)

	mu.Lock()
	now = now.Add(2 * time.Minute)
	mu.Unlock()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	mgr.StartSweeper(ctx, 5*time.Millisecond)
	select {
	case token := <-ended:
		assert.Equal(t, session.Token, token)
	case <-time.After(time.Second):
		t.Fatal("sweeper never ended the expired session")
	}
}

type failingSessionStore struct {
	err error
}

func (s *failingSessionStore) Save(context.Context, Session) error { return nil }

func (s *failingSessionStore) Get(context.Context, string) (Session, bool, error) {
	return Session{}, false, s.err
}

func (s *failingSessionStore) Delete(context.Context, string) error { return s.err }

func TestSessionManagerReportsStoreErrors(t *testing.T) {
	boom := errors.New("store offline")
	telemetry := &recordingTelemetry{}
	mgr := NewSessionManager(SessionOptions{Store: &failingSessionStore{err: boom}, Telemetry: telemetry})
	torn := 0
	mgr.OnLogout(func(context.Context, string) { torn++ })

	err := mgr.Logout(context.Background(), "token")
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, 1, torn)
	assert.Equal(t, []string{
		"datatable.session.store_error",
		"datatable.session.store_error",
		"datatable.session.logout",
	}, telemetry.events)
}

func TestSessionManagerRejectsEmptyEmail(t *testing.T) {
	mgr := NewSessionManager(SessionOptions{})
	_, err := mgr.Login(context.Background(), Credentials{})
	assert.ErrorIs(t, err, ErrInvalidCredentials)
	_, err = mgr.Lookup(context.Background(), "")
	assert.ErrorIs(t, err, ErrNoSession)
}

func TestSessionContext(t *testing.T) {
	_, ok := SessionFromContext(context.Background())
	assert.False(t, ok)
	ctx := ContextWithSession(context.Background(), Session{Token: "t", User: User{Email: "e"}})
	session, ok := SessionFromContext(ctx)
	require.True(t, ok)
	assert.Equal(t, "e", session.User.Email)
}

func TestRouteGuardDecide(t *testing.T) {
	guard := DefaultRouteGuard()
	cases := []struct {
		name   string
		path   string
		authed bool
		want   GuardDecision
	}{
		{"protected without session", "/tables/customers", false, GuardDecision{Action: GuardRedirect, Location: "/login?from=%2Ftables%2Fcustomers"}},
		{"protected with session", "/tables/customers", true, GuardDecision{Action: GuardAllow}},
		{"root without session", "/", false, GuardDecision{Action: GuardRedirect, Location: "/login?from=%2F"}},
		{"public with session", "/login", true, GuardDecision{Action: GuardRedirect, Location: "/"}},
		{"public without session", "/register", false, GuardDecision{Action: GuardAllow}},
		{"api without session", "/api/tables/customers", false, GuardDecision{Action: GuardUnauthorized}},
		{"api with session", "/api/tables/customers", true, GuardDecision{Action: GuardAllow}},
		{"auth api without session", "/api/auth/login", false, GuardDecision{Action: GuardAllow}},
		{"unlisted path", "/healthz", false, GuardDecision{Action: GuardAllow}},
		{"prefix is not a segment", "/tablesx", false, GuardDecision{Action: GuardAllow}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, guard.Decide(tc.path, tc.authed))
		})
	}
}
