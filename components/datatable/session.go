package datatable

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

const (
	// DefaultSessionTTL bounds how long an issued token stays valid.
	DefaultSessionTTL = 12 * time.Hour
	// DefaultSweepInterval is how often StartSweeper looks for expired sessions.
	DefaultSweepInterval = time.Minute
)

var (
	// ErrNoSession is returned when a token is missing, unknown or expired.
	ErrNoSession = errors.New("datatable: no active session")
	// ErrInvalidCredentials is returned by authenticators rejecting a login.
	ErrInvalidCredentials = errors.New("datatable: invalid credentials")
)

// User identifies the signed-in operator.
type User struct {
	Email string `json:"email"`
	Name  string `json:"name,omitempty"`
	// AccessToken is the upstream credential issued by a remote
	// authenticator. It never leaves the server.
	AccessToken string `json:"-"`
}

// Session is the explicit replacement for ambient auth state. It is passed
// through context.Context to everything that needs it.
type Session struct {
	Token     string    `json:"token"`
	User      User      `json:"user"`
	IssuedAt  time.Time `json:"issued_at"`
	ExpiresAt time.Time `json:"expires_at"`
}

// Expired reports whether the session is past its expiry at now.
func (s Session) Expired(now time.Time) bool {
	return !s.ExpiresAt.IsZero() && !now.Before(s.ExpiresAt)
}

// Credentials carries a login attempt.
type Credentials struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Authenticator resolves credentials into a user.
type Authenticator interface {
	Authenticate(ctx context.Context, creds Credentials) (User, error)
}

// AuthenticatorFunc adapts a function to Authenticator.
type AuthenticatorFunc func(ctx context.Context, creds Credentials) (User, error)

// Authenticate implements Authenticator.
func (fn AuthenticatorFunc) Authenticate(ctx context.Context, creds Credentials) (User, error) {
	return fn(ctx, creds)
}

// AcceptAllAuthenticator admits any non-empty email. It backs demo logins.
type AcceptAllAuthenticator struct{}

// Authenticate implements Authenticator.
func (AcceptAllAuthenticator) Authenticate(_ context.Context, creds Credentials) (User, error) {
	email := strings.TrimSpace(creds.Email)
	if email == "" {
		return User{}, ErrInvalidCredentials
	}
	name := email
	if at := strings.Index(email, "@"); at > 0 {
		name = email[:at]
	}
	return User{Email: email, Name: name}, nil
}

// SessionStore persists sessions by token.
type SessionStore interface {
	Save(ctx context.Context, session Session) error
	Get(ctx context.Context, token string) (Session, bool, error)
	Delete(ctx context.Context, token string) error
}

// SessionLister is implemented by stores that can enumerate their sessions,
// which lets SessionManager.Sweep end expired ones nobody looks up again.
type SessionLister interface {
	Sessions(ctx context.Context) ([]Session, error)
}

// InMemorySessionStore keeps sessions in a map.
type InMemorySessionStore struct {
	mu       sync.RWMutex
	sessions map[string]Session
}

// NewInMemorySessionStore builds an empty store.
func NewInMemorySessionStore() *InMemorySessionStore {
	return &InMemorySessionStore{sessions: map[string]Session{}}
}

// Save implements SessionStore.
func (s *InMemorySessionStore) Save(_ context.Context, session Session) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions[session.Token] = session
	return nil
}

// Get implements SessionStore.
func (s *InMemorySessionStore) Get(_ context.Context, token string) (Session, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	session, ok := s.sessions[token]
	return session, ok, nil
}

// Delete implements SessionStore.
func (s *InMemorySessionStore) Delete(_ context.Context, token string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, token)
	return nil
}

// Sessions implements SessionLister.
func (s *InMemorySessionStore) Sessions(_ context.Context) ([]Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Session, 0, len(s.sessions))
	for _, session := range s.sessions {
		out = append(out, session)
	}
	return out, nil
}

// SessionOptions configures a SessionManager.
type SessionOptions struct {
	Store         SessionStore
	Authenticator Authenticator
	TTL           time.Duration
	Telemetry     Telemetry
	Now           func() time.Time
}

// SessionManager issues, resolves and revokes sessions.
type SessionManager struct {
	store     SessionStore
	auth      Authenticator
	ttl       time.Duration
	telemetry Telemetry
	now       func() time.Time

	mu        sync.Mutex
	teardowns []func(ctx context.Context, token string)
}

// NewSessionManager wires the manager with safe defaults.
func NewSessionManager(opts SessionOptions) *SessionManager {
	if opts.Store == nil {
		opts.Store = NewInMemorySessionStore()
	}
	if opts.Authenticator == nil {
		opts.Authenticator = AcceptAllAuthenticator{}
	}
	if opts.TTL <= 0 {
		opts.TTL = DefaultSessionTTL
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &SessionManager{
		store:     opts.Store,
		auth:      opts.Authenticator,
		ttl:       opts.TTL,
		telemetry: normalizeTelemetry(opts.Telemetry),
		now:       opts.Now,
	}
}

// OnLogout registers a callback run when a session ends.
func (m *SessionManager) OnLogout(fn func(ctx context.Context, token string)) {
	if fn == nil {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.teardowns = append(m.teardowns, fn)
}

// Login authenticates the credentials and issues a session.
func (m *SessionManager) Login(ctx context.Context, creds Credentials) (Session, error) {
	user, err := m.auth.Authenticate(ctx, creds)
	if err != nil {
		return Session{}, err
	}
	now := m.now()
	session := Session{
		Token:     uuid.NewString(),
		User:      user,
		IssuedAt:  now,
		ExpiresAt: now.Add(m.ttl),
	}
	if err := m.store.Save(ctx, session); err != nil {
		return Session{}, err
	}
	m.telemetry.Record(ContextWithSession(ctx, session), "datatable.session.login", map[string]any{
		"expires_at": session.ExpiresAt,
	})
	return session, nil
}

// Lookup resolves a token into a live session.
func (m *SessionManager) Lookup(ctx context.Context, token string) (Session, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return Session{}, ErrNoSession
	}
	session, ok, err := m.store.Get(ctx, token)
	if err != nil {
		return Session{}, err
	}
	if !ok {
		return Session{}, ErrNoSession
	}
	if session.Expired(m.now()) {
		_ = m.end(ctx, token)
		return Session{}, ErrNoSession
	}
	return session, nil
}

// Logout revokes the token and runs teardown callbacks. Unknown tokens are
// ignored. Teardowns run even when the store fails to delete the session;
// the store error is returned afterwards.
func (m *SessionManager) Logout(ctx context.Context, token string) error {
	token = strings.TrimSpace(token)
	if token == "" {
		return nil
	}
	session, ok, err := m.store.Get(ctx, token)
	if err != nil {
		m.storeError(ctx, "get", err)
	} else if ok {
		ctx = ContextWithSession(ctx, session)
	}
	err = m.end(ctx, token)
	m.telemetry.Record(ctx, "datatable.session.logout", nil)
	return err
}

// Sweep ends every expired session still held by the store and returns how
// many it ended. Stores that cannot list their sessions are left alone.
func (m *SessionManager) Sweep(ctx context.Context) (int, error) {
	lister, ok := m.store.(SessionLister)
	if !ok {
		return 0, nil
	}
	sessions, err := lister.Sessions(ctx)
	if err != nil {
		m.storeError(ctx, "list", err)
		return 0, err
	}
	now := m.now()
	ended := 0
	var errs []error
	for _, session := range sessions {
		if !session.Expired(now) {
			continue
		}
		if err := m.end(ContextWithSession(ctx, session), session.Token); err != nil {
			errs = append(errs, err)
		}
		ended++
	}
	if ended > 0 {
		m.telemetry.Record(ctx, "datatable.session.swept", map[string]any{"sessions": ended})
	}
	return ended, errors.Join(errs...)
}

// StartSweeper runs Sweep every interval until ctx is done.
func (m *SessionManager) StartSweeper(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = DefaultSweepInterval
	}
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				_, _ = m.Sweep(ctx)
			}
		}
	}()
}

func (m *SessionManager) end(ctx context.Context, token string) error {
	err := m.store.Delete(ctx, token)
	if err != nil {
		m.storeError(ctx, "delete", err)
		err = fmt.Errorf("datatable: delete session: %w", err)
	}
	m.mu.Lock()
	teardowns := append([]func(context.Context, string){}, m.teardowns...)
	m.mu.Unlock()
	for _, fn := range teardowns {
		fn(ctx, token)
	}
	return err
}

func (m *SessionManager) storeError(ctx context.Context, op string, err error) {
	m.telemetry.Record(ctx, "datatable.session.store_error", map[string]any{
		"op":    op,
		"error": err.Error(),
	})
}

type sessionContextKey struct{}

// ContextWithSession attaches a session to ctx.
func ContextWithSession(ctx context.Context, session Session) context.Context {
	return context.WithValue(ctx, sessionContextKey{}, session)
}

// SessionFromContext returns the session attached to ctx.
func SessionFromContext(ctx context.Context) (Session, bool) {
	if ctx == nil {
		return Session{}, false
	}
	session, ok := ctx.Value(sessionContextKey{}).(Session)
	return session, ok
}

// GuardAction is the outcome of a route guard decision.
type GuardAction int

const (
	GuardAllow GuardAction = iota
	GuardRedirect
	GuardUnauthorized
)

// GuardDecision tells the transport what to do with a request.
type GuardDecision struct {
	Action   GuardAction
	Location string
}

// RouteGuard classifies paths as protected or public and decides access.
type RouteGuard struct {
	Protected []string
	Public    []string
	LoginPath string
	HomePath  string
	APIPrefix string
	AuthPath  string
}

// DefaultRouteGuard mirrors the admin layout: everything under /tables and
// the root are protected, /login is public.
func DefaultRouteGuard() RouteGuard {
	return RouteGuard{
		Protected: []string{"/", "/tables"},
		Public:    []string{"/login", "/register", "/forgot-password", "/reset-password"},
		LoginPath: "/login",
		HomePath:  "/",
		APIPrefix: "/api",
		AuthPath:  "/api/auth",
	}
}

// Decide returns the access decision for path given whether a live session
// exists. Paths must be relative to the mount point.
func (g RouteGuard) Decide(path string, authenticated bool) GuardDecision {
	if path == "" {
		path = "/"
	}
	if g.APIPrefix != "" && matchesPrefix(path, g.APIPrefix) {
		if authenticated || (g.AuthPath != "" && matchesPrefix(path, g.AuthPath)) {
			return GuardDecision{Action: GuardAllow}
		}
		return GuardDecision{Action: GuardUnauthorized}
	}
	if g.isPublic(path) {
		if authenticated {
			return GuardDecision{Action: GuardRedirect, Location: g.home()}
		}
		return GuardDecision{Action: GuardAllow}
	}
	if g.isProtected(path) && !authenticated {
		login := g.LoginPath
		if login == "" {
			login = "/login"
		}
		return GuardDecision{Action: GuardRedirect, Location: login + "?from=" + url.QueryEscape(path)}
	}
	return GuardDecision{Action: GuardAllow}
}

func (g RouteGuard) home() string {
	if g.HomePath == "" {
		return "/"
	}
	return g.HomePath
}

func (g RouteGuard) isPublic(path string) bool {
	for _, prefix := range g.Public {
		if matchesPrefix(path, prefix) {
			return true
		}
	}
	return false
}

func (g RouteGuard) isProtected(path string) bool {
	for _, prefix := range g.Protected {
		if prefix == "/" {
			if path == "/" {
				return true
			}
			continue
		}
		if matchesPrefix(path, prefix) {
			return true
		}
	}
	return false
}

func matchesPrefix(path, prefix string) bool {
	if prefix == "" {
		return false
	}
	if path == prefix {
		return true
	}
	return strings.HasPrefix(path, strings.TrimSuffix(prefix, "/")+"/")
}
