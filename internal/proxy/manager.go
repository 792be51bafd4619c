// Package proxy manages authenticated institutional proxy sessions
// (EZproxy, WebVPN) and URL rewriting through them.
package proxy

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/LLLin000/paper-fetcher/internal/config"
	"github.com/LLLin000/paper-fetcher/internal/fetch"
)

const (
	// DefaultLoginTimeout bounds the interactive login wait.
	DefaultLoginTimeout = 10 * time.Minute

	// DefaultTestURL is probed (through the proxy) to validate a session.
	DefaultTestURL = "https://www.nature.com"
)

// Manager owns at most one live session for its institution. Session state
// is persisted across restarts; invalidation is lazy, at the next validity
// probe. Only one login flow runs at a time; reusing an already-established
// session takes only a read lock.
type Manager struct {
	inst    *config.Institution
	scheme  Scheme
	store   *SessionStore
	auth    Authenticator
	limiter *fetch.HostLimiter
	logger  zerolog.Logger

	loginTimeout time.Duration
	testURL      string

	mu     sync.RWMutex
	client *fetch.Client // jar-backed; non-nil once a session is established
}

// ManagerOption configures a Manager.
type ManagerOption func(*Manager)

// WithLoginTimeout bounds the interactive login wait.
func WithLoginTimeout(d time.Duration) ManagerOption {
	return func(m *Manager) { m.loginTimeout = d }
}

// WithTestURL overrides the session validity probe target.
func WithTestURL(u string) ManagerOption {
	return func(m *Manager) { m.testURL = u }
}

// WithManagerLogger sets the manager logger.
func WithManagerLogger(l zerolog.Logger) ManagerOption {
	return func(m *Manager) { m.logger = l }
}

// NewManager creates a session manager for one institution. The limiter is
// the shared host limiter, so proxied requests honor the same politeness
// window as direct ones.
func NewManager(inst *config.Institution, store *SessionStore, auth Authenticator, limiter *fetch.HostLimiter, opts ...ManagerOption) (*Manager, error) {
	if inst == nil {
		return nil, ErrNotConfigured
	}
	scheme, err := NewScheme(inst)
	if err != nil {
		return nil, err
	}

	m := &Manager{
		inst:         inst,
		scheme:       scheme,
		store:        store,
		auth:         auth,
		limiter:      limiter,
		logger:       zerolog.Nop(),
		loginTimeout: DefaultLoginTimeout,
		testURL:      inst.TestURL,
	}
	if m.testURL == "" {
		m.testURL = DefaultTestURL
	}
	for _, opt := range opts {
		opt(m)
	}
	return m, nil
}

// Institution returns the managed institution's tag.
func (m *Manager) Institution() string { return m.inst.Name }

// Apply rewrites a target URL through the institution's proxy scheme.
func (m *Manager) Apply(target string) (string, error) {
	return m.scheme.Apply(target)
}

// HasSession reports whether a session is established in this process.
func (m *Manager) HasSession() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.client != nil
}

// Login ensures a valid session. With force false, a persisted session that
// passes the validity probe is reused without interaction; otherwise the
// interactive flow runs (bounded by the login timeout) and the resulting
// session is persisted.
func (m *Manager) Login(ctx context.Context, force bool) error {
	m.mu.RLock()
	ready := m.client != nil
	m.mu.RUnlock()
	if ready && !force {
		return nil
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	// Another caller may have logged in while we waited for the lock.
	if m.client != nil && !force {
		return nil
	}

	if !force {
		if ok, err := m.tryPersisted(ctx); err == nil && ok {
			return nil
		}
	}

	return m.interactiveLogin(ctx)
}

// tryPersisted loads the stored session and keeps it if the probe passes.
// Callers must hold m.mu.
func (m *Manager) tryPersisted(ctx context.Context) (bool, error) {
	session, err := m.store.Load(m.inst.Name)
	if err != nil || session == nil {
		return false, err
	}

	client, err := m.clientFor(session)
	if err != nil {
		return false, err
	}
	if !m.probe(ctx, client) {
		m.logger.Info().Str("institution", m.inst.Name).Msg("persisted session expired")
		return false, nil
	}

	m.logger.Info().Str("institution", m.inst.Name).Msg("reusing persisted proxy session")
	m.client = client
	return true, nil
}

// interactiveLogin drives the user-attended flow. Callers must hold m.mu.
func (m *Manager) interactiveLogin(ctx context.Context) error {
	loginURL, err := m.scheme.Apply(m.testURL)
	if err != nil {
		return err
	}

	authCtx, cancel := context.WithTimeout(ctx, m.loginTimeout)
	defer cancel()

	m.logger.Info().Str("institution", m.inst.Name).Msg("starting interactive login")
	cookies, err := m.auth.Login(authCtx, loginURL)
	if err != nil {
		if authCtx.Err() != nil && ctx.Err() == nil {
			return fmt.Errorf("%w after %s", ErrAuthTimeout, m.loginTimeout)
		}
		return err
	}

	session := &Session{
		Institution: m.inst.Name,
		Scheme:      m.scheme.Name(),
		Cookies:     cookies,
		SavedAt:     time.Now().UTC(),
	}

	client, err := m.clientFor(session)
	if err != nil {
		return err
	}
	if !m.probe(ctx, client) {
		return fmt.Errorf("%w: session probe never succeeded", ErrAuthFailed)
	}

	if err := m.store.Save(session); err != nil {
		return fmt.Errorf("persisting session: %w", err)
	}
	m.logger.Info().Str("institution", m.inst.Name).Int("cookies", len(cookies)).Msg("proxy session established")
	m.client = client
	return nil
}

// Fetch retrieves a URL through the authenticated session, rewriting it
// first. Fails with ErrNoSession when Login has not succeeded.
func (m *Manager) Fetch(ctx context.Context, target string) (*fetch.Response, error) {
	m.mu.RLock()
	client := m.client
	m.mu.RUnlock()
	if client == nil {
		return nil, ErrNoSession
	}

	proxied, err := m.scheme.Apply(target)
	if err != nil {
		return nil, err
	}
	return client.Get(ctx, proxied)
}

// Logout drops the in-process session and deletes the persisted one.
func (m *Manager) Logout() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.client = nil
	return m.store.Delete(m.inst.Name)
}

// clientFor builds a jar-backed fetch client for a session.
func (m *Manager) clientFor(session *Session) (*fetch.Client, error) {
	jar, err := session.Jar()
	if err != nil {
		return nil, err
	}
	hc := &http.Client{Jar: jar, Timeout: fetch.DefaultTimeout}
	return fetch.NewClient(m.limiter, fetch.WithHTTPClient(hc), fetch.WithLogger(m.logger)), nil
}

// probe checks whether a client holds a valid session: the proxied test URL
// must fetch cleanly and not bounce back to the proxy's login page.
func (m *Manager) probe(ctx context.Context, client *fetch.Client) bool {
	proxied, err := m.scheme.Apply(m.testURL)
	if err != nil {
		return false
	}
	resp, err := client.Get(ctx, proxied)
	if err != nil {
		return false
	}
	final := strings.ToLower(resp.FinalURL)
	if strings.Contains(final, "login") && m.scheme.Applied(resp.FinalURL) {
		return false
	}
	return true
}
