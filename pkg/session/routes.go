package session

import (
	"path"
	"slices"
)

// RoleDestination maps a role to the page its holders land on after sign-in.
type RoleDestination struct {
	Role string
	Path string
}

// Routes describes the page layout the Manager navigates between.
type Routes struct {
	SignIn    string
	SignUp    string
	Home      []string
	Forbidden string
	NotFound  string

	// Dashboards is checked in order; the first role the user holds wins.
	Dashboards       []RoleDestination
	DefaultDashboard string

	// Restricted lists pages that require at least one of the given roles.
	Restricted map[string][]string
}

// DefaultRoutes returns the layout served by the bundled static pages.
func DefaultRoutes() Routes {
	return Routes{
		SignIn:    "/signin.html",
		SignUp:    "/signup.html",
		Home:      []string{"/", "/index.html"},
		Forbidden: "/403.html",
		NotFound:  "/404.html",
		Dashboards: []RoleDestination{
			{Role: "admin", Path: "/admin-dashboard.html"},
		},
		DefaultDashboard: "/user-dashboard.html",
		Restricted: map[string][]string{
			"/admin-dashboard.html": {"admin"},
		},
	}
}

// DashboardFor returns the landing page for a holder of roles.
func (r Routes) DashboardFor(roles []string) string {
	for _, d := range r.Dashboards {
		if slices.Contains(roles, d.Role) {
			return d.Path
		}
	}
	return r.DefaultDashboard
}

func (r Routes) isAuthPage(p string) bool {
	p = clean(p)
	return p == r.SignIn || p == r.SignUp
}

func (r Routes) isHome(p string) bool {
	return slices.Contains(r.Home, clean(p))
}

func (r Routes) isErrorPage(p string) bool {
	p = clean(p)
	return p == r.Forbidden || p == r.NotFound
}

// isPublic reports whether p is reachable without a session.
func (r Routes) isPublic(p string) bool {
	return r.isAuthPage(p) || r.isHome(p) || r.isErrorPage(p)
}

func (r Routes) requiredRoles(p string) []string {
	return r.Restricted[clean(p)]
}

func clean(p string) string {
	if p == "" {
		return "/"
	}
	return path.Clean("/" + p)
}
