package session

import "testing"

func TestRoutes_DashboardFor(t *testing.T) {
	r := DefaultRoutes()
	r.Dashboards = append(r.Dashboards, RoleDestination{Role: "editor", Path: "/editor.html"})

	cases := []struct {
		roles []string
		want  string
	}{
		{[]string{"admin"}, "/admin-dashboard.html"},
		{[]string{"user", "admin"}, "/admin-dashboard.html"},
		{[]string{"editor", "admin"}, "/admin-dashboard.html"},
		{[]string{"editor"}, "/editor.html"},
		{[]string{"user"}, "/user-dashboard.html"},
		{nil, "/user-dashboard.html"},
	}
	for _, c := range cases {
		if got := r.DashboardFor(c.roles); got != c.want {
			t.Errorf("DashboardFor(%v) = %q, want %q", c.roles, got, c.want)
		}
	}
}

func TestRoutes_Classification(t *testing.T) {
	r := DefaultRoutes()

	if !r.isAuthPage("signin.html") || !r.isAuthPage("/signup.html") {
		t.Fatalf("expected auth pages to match")
	}
	if !r.isHome("") || !r.isHome("/index.html") {
		t.Fatalf("expected home pages to match")
	}
	if !r.isErrorPage("/403.html") || !r.isErrorPage("/a/../404.html") {
		t.Fatalf("expected error pages to match")
	}
	if r.isPublic("/user-dashboard.html") {
		t.Fatalf("dashboard must not be public")
	}
	if got := r.requiredRoles("/admin-dashboard.html"); len(got) != 1 || got[0] != "admin" {
		t.Fatalf("unexpected restricted roles: %v", got)
	}
}
