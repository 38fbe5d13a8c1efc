package session

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/rs/zerolog"
)

const (
	adminToken = "tok-admin"
	userToken  = "tok-user"
)

// fakeAPI serves the subset of the auth API the Manager talks to.
type fakeAPI struct {
	mu      sync.Mutex
	signUps []SignUpRequest
}

func (f *fakeAPI) handler() http.Handler {
	users := map[string]User{
		adminToken: {ID: "u1", Email: "admin@x.com", Name: "Ada", Roles: []string{"admin", "user"}},
		userToken:  {ID: "u2", Email: "bob@x.com", Name: "Bob", Roles: []string{"user"}},
	}
	credentials := map[string]string{
		"admin@x.com|Admin#123": adminToken,
		"bob@x.com|Bob#12345":   userToken,
		"ghost@x.com|Ghost#123": "tok-orphan",
	}

	writeJSON := func(w http.ResponseWriter, code int, v any) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(code)
		_ = json.NewEncoder(w).Encode(v)
	}

	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/auth/signIn", func(w http.ResponseWriter, r *http.Request) {
		var req signInRequest
		_ = json.NewDecoder(r.Body).Decode(&req)
		token, ok := credentials[req.Email+"|"+req.Password]
		if !ok {
			writeJSON(w, http.StatusUnauthorized, map[string]string{"message": "invalid credentials"})
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"token": token})
	})
	mux.HandleFunc("POST /api/auth/signUp", func(w http.ResponseWriter, r *http.Request) {
		var req SignUpRequest
		_ = json.NewDecoder(r.Body).Decode(&req)
		if req.Email == "taken@x.com" {
			writeJSON(w, http.StatusBadRequest, map[string]string{"message": "email already in use"})
			return
		}
		f.mu.Lock()
		f.signUps = append(f.signUps, req)
		f.mu.Unlock()
		writeJSON(w, http.StatusCreated, UserSummary{ID: "u9", Email: req.Email, Name: req.Name, LastName: req.LastName})
	})
	mux.HandleFunc("GET /api/users/me", func(w http.ResponseWriter, r *http.Request) {
		token := strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer ")
		user, ok := users[token]
		if !ok {
			writeJSON(w, http.StatusUnauthorized, map[string]string{"message": "invalid or expired token"})
			return
		}
		writeJSON(w, http.StatusOK, user)
	})
	return mux
}

type recordingNavigator struct {
	mu    sync.Mutex
	paths []string
}

func (n *recordingNavigator) Redirect(path string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.paths = append(n.paths, path)
}

func (n *recordingNavigator) last() string {
	n.mu.Lock()
	defer n.mu.Unlock()
	if len(n.paths) == 0 {
		return ""
	}
	return n.paths[len(n.paths)-1]
}

func (n *recordingNavigator) count() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.paths)
}

type fixture struct {
	api   *fakeAPI
	nav   *recordingNavigator
	store *MemoryStore
	logs  *bytes.Buffer
	mgr   *Manager
}

func newFixture(t *testing.T, storedToken string) *fixture {
	t.Helper()
	api := &fakeAPI{}
	srv := httptest.NewServer(api.handler())
	t.Cleanup(srv.Close)

	f := &fixture{
		api:   api,
		nav:   &recordingNavigator{},
		store: NewMemoryStore(storedToken),
		logs:  &bytes.Buffer{},
	}
	mgr, err := New(Config{
		BaseURL:    srv.URL,
		HTTPClient: srv.Client(),
		Store:      f.store,
		Navigator:  f.nav,
		Logger:     zerolog.New(f.logs).Level(zerolog.DebugLevel),
	})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	f.mgr = mgr
	return f
}

func (f *fixture) storedToken(t *testing.T) string {
	t.Helper()
	tok, _ := f.store.Load()
	return tok
}

func TestNew_RequiresCollaborators(t *testing.T) {
	nav := NavigatorFunc(func(string) {})
	cases := map[string]Config{
		"base url":  {Store: NewMemoryStore(""), Navigator: nav},
		"store":     {BaseURL: "http://x", Navigator: nav},
		"navigator": {BaseURL: "http://x", Store: NewMemoryStore("")},
	}
	for name, cfg := range cases {
		if _, err := New(cfg); err == nil {
			t.Errorf("%s: expected error", name)
		}
	}
}

func TestNew_RestoresStoredTokenAsPending(t *testing.T) {
	f := newFixture(t, userToken)
	if got := f.mgr.State(); got != Pending {
		t.Fatalf("expected pending, got %v", got)
	}
	if f.mgr.IsAuthenticated() {
		t.Fatalf("pending session must not count as authenticated")
	}
}

func TestSignIn_AdminGoesToAdminDashboard(t *testing.T) {
	f := newFixture(t, "")

	user, err := f.mgr.SignIn(context.Background(), "admin@x.com", "Admin#123")
	if err != nil {
		t.Fatalf("SignIn: %v", err)
	}
	if user.ID != "u1" {
		t.Fatalf("unexpected user: %+v", user)
	}
	if got := f.nav.last(); got != "/admin-dashboard.html" {
		t.Fatalf("expected admin dashboard, got %q", got)
	}
	if f.storedToken(t) != adminToken {
		t.Fatalf("token not persisted")
	}
	if f.mgr.State() != Authenticated || !f.mgr.HasRole("admin") {
		t.Fatalf("expected authenticated admin, got %v", f.mgr.State())
	}
}

func TestSignIn_UserGoesToUserDashboard(t *testing.T) {
	f := newFixture(t, "")

	if _, err := f.mgr.SignIn(context.Background(), "bob@x.com", "Bob#12345"); err != nil {
		t.Fatalf("SignIn: %v", err)
	}
	if got := f.nav.last(); got != "/user-dashboard.html" {
		t.Fatalf("expected user dashboard, got %q", got)
	}
	if f.mgr.HasRole("admin") {
		t.Fatalf("user must not hold admin")
	}
}

func TestSignIn_PropagatesServerMessage(t *testing.T) {
	f := newFixture(t, "")

	_, err := f.mgr.SignIn(context.Background(), "bob@x.com", "wrong")
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("expected *APIError, got %v", err)
	}
	if apiErr.Status != http.StatusUnauthorized || apiErr.Message != "invalid credentials" {
		t.Fatalf("unexpected error: %+v", apiErr)
	}
	if f.nav.count() != 0 || f.storedToken(t) != "" || f.mgr.State() != Unauthenticated {
		t.Fatalf("failed sign-in must not change the session")
	}
}

func TestSignIn_UserFetchFailureClearsSession(t *testing.T) {
	f := newFixture(t, "")

	if _, err := f.mgr.SignIn(context.Background(), "ghost@x.com", "Ghost#123"); err == nil {
		t.Fatalf("expected error when the user cannot be loaded")
	}
	if f.storedToken(t) != "" || f.mgr.State() != Unauthenticated {
		t.Fatalf("expected cleared session")
	}
	if f.nav.count() != 0 {
		t.Fatalf("expected no redirect, got %v", f.nav.paths)
	}
}

func TestSignUp_DoesNotSignIn(t *testing.T) {
	f := newFixture(t, "")

	summary, err := f.mgr.SignUp(context.Background(), SignUpRequest{
		Email:    "new@x.com",
		Password: "Secret#123",
		Name:     "New",
		Roles:    []string{"user"},
	})
	if err != nil {
		t.Fatalf("SignUp: %v", err)
	}
	if summary.ID != "u9" || summary.Email != "new@x.com" {
		t.Fatalf("unexpected summary: %+v", summary)
	}
	if f.mgr.State() != Unauthenticated || f.nav.count() != 0 {
		t.Fatalf("sign-up must not authenticate or redirect")
	}
	if len(f.api.signUps) != 1 || f.api.signUps[0].Roles[0] != "user" {
		t.Fatalf("unexpected request sent: %+v", f.api.signUps)
	}
}

func TestSignUp_PropagatesServerMessage(t *testing.T) {
	f := newFixture(t, "")

	_, err := f.mgr.SignUp(context.Background(), SignUpRequest{Email: "taken@x.com", Password: "Secret#123"})
	var apiErr *APIError
	if !errors.As(err, &apiErr) || apiErr.Message != "email already in use" {
		t.Fatalf("expected duplicate email error, got %v", err)
	}
}

func TestFetchUser_WithoutToken(t *testing.T) {
	f := newFixture(t, "")
	if _, err := f.mgr.FetchUser(context.Background()); !errors.Is(err, ErrNoToken) {
		t.Fatalf("expected ErrNoToken, got %v", err)
	}
}

func TestFetchUser_InvalidTokenKeepsToken(t *testing.T) {
	f := newFixture(t, "tok-stale")

	_, err := f.mgr.FetchUser(context.Background())
	var apiErr *APIError
	if !errors.As(err, &apiErr) || apiErr.Status != http.StatusUnauthorized {
		t.Fatalf("expected 401 APIError, got %v", err)
	}
	if f.mgr.State() != Pending || f.mgr.User() != nil {
		t.Fatalf("expected pending state with no user, got %v", f.mgr.State())
	}
}

func TestCheckAuthOnLoad(t *testing.T) {
	tests := []struct {
		name         string
		stored       string
		path         string
		wantRedirect string
		wantState    State
		wantStored   string
	}{
		{"public page valid admin token", adminToken, "/signin.html", "/admin-dashboard.html", Authenticated, adminToken},
		{"home page valid user token", userToken, "/", "/user-dashboard.html", Authenticated, userToken},
		{"public page stale token stays", "tok-stale", "/signup.html", "", Unauthenticated, ""},
		{"public page no token", "", "/index.html", "", Unauthenticated, ""},
		{"protected page no token", "", "/profile.html", "/signin.html", Unauthenticated, ""},
		{"protected page stale token logs out", "tok-stale", "/profile.html", "/signin.html", Unauthenticated, ""},
		{"protected page valid token", userToken, "/profile.html", "", Authenticated, userToken},
		{"error page untouched", "", "/404.html", "", Unauthenticated, ""},
		{"forbidden page untouched", "tok-stale", "/403.html", "", Pending, "tok-stale"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t, tt.stored)
			f.mgr.CheckAuthOnLoad(context.Background(), tt.path)

			if got := f.nav.last(); got != tt.wantRedirect {
				t.Fatalf("redirect: expected %q, got %q", tt.wantRedirect, got)
			}
			if got := f.mgr.State(); got != tt.wantState {
				t.Fatalf("state: expected %v, got %v", tt.wantState, got)
			}
			if got := f.storedToken(t); got != tt.wantStored {
				t.Fatalf("stored token: expected %q, got %q", tt.wantStored, got)
			}
		})
	}
}

func TestLogout(t *testing.T) {
	f := newFixture(t, "")
	if _, err := f.mgr.SignIn(context.Background(), "bob@x.com", "Bob#12345"); err != nil {
		t.Fatalf("SignIn: %v", err)
	}

	f.mgr.Logout()

	if f.nav.last() != "/signin.html" {
		t.Fatalf("expected redirect to sign-in, got %q", f.nav.last())
	}
	if f.mgr.State() != Unauthenticated || f.mgr.User() != nil || f.storedToken(t) != "" {
		t.Fatalf("expected cleared session")
	}
}

func TestLogout_OnAuthPageDoesNotRedirect(t *testing.T) {
	f := newFixture(t, "")
	f.mgr.CheckRouteAccess("/signup.html")

	f.mgr.Logout()

	if f.nav.count() != 0 {
		t.Fatalf("expected no redirect from sign-up page, got %v", f.nav.paths)
	}
}

func TestCheckRouteAccess(t *testing.T) {
	signedInAs := func(t *testing.T, email, password string) *fixture {
		f := newFixture(t, "")
		if email != "" {
			if _, err := f.mgr.SignIn(context.Background(), email, password); err != nil {
				t.Fatalf("SignIn: %v", err)
			}
		}
		f.nav.paths = nil
		return f
	}

	tests := []struct {
		name         string
		email, pass  string
		path         string
		wantAllowed  bool
		wantRedirect string
	}{
		{"anonymous on home", "", "", "/", true, ""},
		{"anonymous on 403", "", "", "/403.html", true, ""},
		{"anonymous on protected", "", "", "/user-dashboard.html", false, "/signin.html"},
		{"user on sign-in goes to dashboard", "bob@x.com", "Bob#12345", "/signin.html", true, "/user-dashboard.html"},
		{"admin on sign-up goes to dashboard", "admin@x.com", "Admin#123", "/signup.html", true, "/admin-dashboard.html"},
		{"user on protected", "bob@x.com", "Bob#12345", "/user-dashboard.html", true, ""},
		{"user on admin page", "bob@x.com", "Bob#12345", "/admin-dashboard.html", false, "/403.html"},
		{"admin on admin page", "admin@x.com", "Admin#123", "/admin-dashboard.html", true, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := signedInAs(t, tt.email, tt.pass)

			if got := f.mgr.CheckRouteAccess(tt.path); got != tt.wantAllowed {
				t.Fatalf("allowed: expected %v, got %v", tt.wantAllowed, got)
			}
			if got := f.nav.last(); got != tt.wantRedirect {
				t.Fatalf("redirect: expected %q, got %q", tt.wantRedirect, got)
			}
		})
	}
}

func TestCheckRouteAccess_PendingIsNotAuthenticated(t *testing.T) {
	f := newFixture(t, userToken)

	if f.mgr.CheckRouteAccess("/user-dashboard.html") {
		t.Fatalf("unverified token must not grant access")
	}
	if f.nav.last() != "/signin.html" {
		t.Fatalf("expected redirect to sign-in, got %q", f.nav.last())
	}
}

func TestManager_NeverLogsToken(t *testing.T) {
	f := newFixture(t, "tok-stale")
	ctx := context.Background()

	f.mgr.CheckAuthOnLoad(ctx, "/profile.html")
	if _, err := f.mgr.SignIn(ctx, "admin@x.com", "Admin#123"); err != nil {
		t.Fatalf("SignIn: %v", err)
	}
	f.mgr.Logout()

	out := f.logs.String()
	if out == "" {
		t.Fatalf("expected debug output")
	}
	for _, secret := range []string{"tok-stale", adminToken, "Admin#123"} {
		if strings.Contains(out, secret) {
			t.Fatalf("log output leaked %q", secret)
		}
	}
}

func TestUser_ReturnsCopy(t *testing.T) {
	f := newFixture(t, "")
	if _, err := f.mgr.SignIn(context.Background(), "admin@x.com", "Admin#123"); err != nil {
		t.Fatalf("SignIn: %v", err)
	}

	u := f.mgr.User()
	u.Roles[0] = "tampered"
	if !f.mgr.HasRole("admin") {
		t.Fatalf("mutating the returned user must not affect the session")
	}
}

func TestState_String(t *testing.T) {
	if Unauthenticated.String() != "unauthenticated" || Pending.String() != "pending" || Authenticated.String() != "authenticated" {
		t.Fatalf("unexpected state names")
	}
}
