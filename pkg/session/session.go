// Package session keeps the client side of an authenticated session: the
// bearer token, the signed-in user and the page the user should be on.
//
// A Manager is created once with New and mutated only through its methods.
// It is safe for concurrent use.
package session

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"slices"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

const defaultHTTPTimeout = 10 * time.Second

// State is the authentication state of a Manager.
type State int

const (
	// Unauthenticated means no token is held.
	Unauthenticated State = iota
	// Pending means a token is held but the user has not been verified.
	Pending
	// Authenticated means both the token and the verified user are held.
	Authenticated
)

func (s State) String() string {
	switch s {
	case Unauthenticated:
		return "unauthenticated"
	case Pending:
		return "pending"
	case Authenticated:
		return "authenticated"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// Navigator moves the user to another page.
type Navigator interface {
	Redirect(path string)
}

// NavigatorFunc adapts a function to Navigator.
type NavigatorFunc func(path string)

func (f NavigatorFunc) Redirect(path string) { f(path) }

// Config wires a Manager to its collaborators.
type Config struct {
	// BaseURL is the root of the auth API, e.g. "http://localhost:8080".
	BaseURL string
	// HTTPClient defaults to a client with a 10s timeout.
	HTTPClient *http.Client
	Store      TokenStore
	Navigator  Navigator
	// Routes defaults to DefaultRoutes when SignIn is empty.
	Routes Routes
	Logger zerolog.Logger
}

// Manager holds the session state.
type Manager struct {
	api    apiClient
	store  TokenStore
	nav    Navigator
	routes Routes
	log    zerolog.Logger

	mu    sync.Mutex
	token string
	user  *User
	path  string
}

// New builds a Manager and restores any token found in the store.
func New(cfg Config) (*Manager, error) {
	if cfg.BaseURL == "" {
		return nil, errors.New("session: base URL is required")
	}
	if cfg.Store == nil {
		return nil, errors.New("session: token store is required")
	}
	if cfg.Navigator == nil {
		return nil, errors.New("session: navigator is required")
	}

	client := cfg.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: defaultHTTPTimeout}
	}
	routes := cfg.Routes
	if routes.SignIn == "" {
		routes = DefaultRoutes()
	}

	m := &Manager{
		api:    apiClient{baseURL: cfg.BaseURL, http: client},
		store:  cfg.Store,
		nav:    cfg.Navigator,
		routes: routes,
		log:    cfg.Logger.With().Str("component", "session").Logger(),
	}

	token, err := cfg.Store.Load()
	if err != nil {
		m.log.Warn().Err(err).Msg("stored token unreadable, starting signed out")
	}
	m.token = token

	return m, nil
}

// State reports the current authentication state.
func (m *Manager) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.stateLocked()
}

func (m *Manager) stateLocked() State {
	switch {
	case m.token == "":
		return Unauthenticated
	case m.user == nil:
		return Pending
	default:
		return Authenticated
	}
}

// IsAuthenticated reports whether both a token and a verified user are held.
func (m *Manager) IsAuthenticated() bool {
	return m.State() == Authenticated
}

// User returns a copy of the signed-in user, or nil.
func (m *Manager) User() *User {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.user == nil {
		return nil
	}
	u := *m.user
	u.Roles = slices.Clone(m.user.Roles)
	return &u
}

// HasRole reports whether the signed-in user holds role.
func (m *Manager) HasRole(role string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.user != nil && slices.Contains(m.user.Roles, role)
}

// DashboardFor returns the landing page for a holder of roles.
func (m *Manager) DashboardFor(roles []string) string {
	return m.routes.DashboardFor(roles)
}

// CheckAuthOnLoad reconciles the session with the page just loaded.
//
// On a public page a held token is verified; a valid one sends the user to
// their dashboard, an invalid one is discarded. On a protected page a missing
// token redirects to sign-in and an invalid one logs out. Error pages are left
// alone.
func (m *Manager) CheckAuthOnLoad(ctx context.Context, path string) {
	m.mu.Lock()
	m.path = path
	hasToken := m.token != ""
	m.mu.Unlock()

	switch {
	case m.routes.isErrorPage(path):
		return

	case m.routes.isAuthPage(path) || m.routes.isHome(path):
		if !hasToken {
			return
		}
		user, err := m.FetchUser(ctx)
		if err != nil {
			m.log.Info().Err(err).Str("path", path).Msg("stored token rejected, discarding")
			m.clear()
			return
		}
		m.redirect(m.routes.DashboardFor(user.Roles))

	default:
		if !hasToken {
			m.redirect(m.routes.SignIn)
			return
		}
		if _, err := m.FetchUser(ctx); err != nil {
			m.log.Info().Err(err).Str("path", path).Msg("session could not be verified, logging out")
			m.Logout()
		}
	}
}

// FetchUser loads the current user with the held token. On failure the
// cached user is dropped and the error returned; the token is kept.
func (m *Manager) FetchUser(ctx context.Context) (*User, error) {
	m.mu.Lock()
	token := m.token
	m.mu.Unlock()

	if token == "" {
		return nil, ErrNoToken
	}

	var user User
	err := m.api.call(ctx, http.MethodGet, "/api/users/me", token, nil, &user, "could not load the current user")

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.token != token {
		// Signed out or replaced while the request was in flight.
		return nil, ErrNoToken
	}
	if err != nil {
		m.user = nil
		return nil, err
	}
	m.user = &user

	m.log.Debug().Str("user_id", user.ID).Strs("roles", user.Roles).Msg("user loaded")
	u := user
	return &u, nil
}

// SignIn exchanges credentials for a token, stores it, loads the user and
// redirects to the user's dashboard. Server rejections are returned as
// *APIError.
func (m *Manager) SignIn(ctx context.Context, email, password string) (*User, error) {
	var resp signInResponse
	if err := m.api.call(ctx, http.MethodPost, "/api/auth/signIn", "",
		signInRequest{Email: email, Password: password}, &resp, "sign in failed"); err != nil {
		return nil, err
	}
	if resp.Token == "" {
		return nil, errors.New("session: sign-in response carried no token")
	}

	if err := m.store.Save(resp.Token); err != nil {
		m.log.Warn().Err(err).Msg("token not persisted, session will not survive a restart")
	}
	m.mu.Lock()
	m.token = resp.Token
	m.user = nil
	m.mu.Unlock()

	user, err := m.FetchUser(ctx)
	if err != nil {
		m.clear()
		return nil, err
	}

	m.log.Info().Str("user_id", user.ID).Msg("signed in")
	m.redirect(m.routes.DashboardFor(user.Roles))
	return user, nil
}

// SignUp registers a new account. It does not sign the user in.
func (m *Manager) SignUp(ctx context.Context, req SignUpRequest) (*UserSummary, error) {
	var summary UserSummary
	if err := m.api.call(ctx, http.MethodPost, "/api/auth/signUp", "", req, &summary, "sign up failed"); err != nil {
		return nil, err
	}
	m.log.Info().Str("user_id", summary.ID).Msg("signed up")
	return &summary, nil
}

// Logout drops the token and user and redirects to sign-in, unless the user
// is already on the sign-in or sign-up page.
func (m *Manager) Logout() {
	m.clear()

	m.mu.Lock()
	path := m.path
	m.mu.Unlock()

	if !m.routes.isAuthPage(path) {
		m.redirect(m.routes.SignIn)
	}
}

// CheckRouteAccess decides whether the user may stay on path, redirecting
// when not. Public pages are always allowed, though an authenticated user is
// sent from sign-in or sign-up to their dashboard. Other pages need a
// session, and restricted pages one of their roles.
func (m *Manager) CheckRouteAccess(path string) bool {
	m.mu.Lock()
	m.path = path
	authenticated := m.stateLocked() == Authenticated
	var roles []string
	if m.user != nil {
		roles = slices.Clone(m.user.Roles)
	}
	m.mu.Unlock()

	if m.routes.isPublic(path) {
		if authenticated && m.routes.isAuthPage(path) {
			m.redirect(m.routes.DashboardFor(roles))
		}
		return true
	}

	if !authenticated {
		m.redirect(m.routes.SignIn)
		return false
	}

	if required := m.routes.requiredRoles(path); len(required) > 0 {
		if !slices.ContainsFunc(required, func(r string) bool { return slices.Contains(roles, r) }) {
			m.log.Warn().Str("path", path).Strs("roles", roles).Msg("route forbidden")
			m.redirect(m.routes.Forbidden)
			return false
		}
	}
	return true
}

func (m *Manager) clear() {
	if err := m.store.Clear(); err != nil {
		m.log.Warn().Err(err).Msg("stored token could not be removed")
	}
	m.mu.Lock()
	m.token = ""
	m.user = nil
	m.mu.Unlock()
}

func (m *Manager) redirect(path string) {
	m.mu.Lock()
	m.path = path
	m.mu.Unlock()

	m.log.Debug().Str("to", path).Msg("redirect")
	m.nav.Redirect(path)
}
