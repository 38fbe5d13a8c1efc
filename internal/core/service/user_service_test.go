package service

import (
	"context"
	"errors"
	"reflect"
	"testing"

	"github.com/rs/zerolog"

	"github.com/userportal/auth-service/internal/core/domain"
)

func TestUserService_GetByID_MatchesSignUpRoles(t *testing.T) {
	f := newAuthFixture(t)
	users := NewUserService(f.users, zerolog.Nop())

	defaulted, err := f.svc.SignUp(context.Background(), signUpInput("a@x.com"))
	if err != nil {
		t.Fatalf("sign up: %v", err)
	}
	admin, err := f.svc.SignUp(context.Background(), signUpInput("b@x.com", "admin", "editor"))
	if err != nil {
		t.Fatalf("sign up: %v", err)
	}

	got, err := users.GetByID(context.Background(), defaulted.ID)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if !reflect.DeepEqual(got.Roles, []string{"user"}) {
		t.Fatalf("expected default roles, got %v", got.Roles)
	}
	if got.Email != "a@x.com" || got.PhoneNumber != "+51987654321" || got.Address != "12 Analytical St" {
		t.Fatalf("unexpected profile: %+v", got)
	}
	if got.Birthdate == nil || got.Birthdate.Year() != 2003 {
		t.Fatalf("expected birthdate, got %v", got.Birthdate)
	}

	got, err = users.GetByID(context.Background(), admin.ID)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if !reflect.DeepEqual(got.Roles, []string{"admin", "editor"}) {
		t.Fatalf("expected requested roles, got %v", got.Roles)
	}
}

func TestUserService_GetByID_NotFound(t *testing.T) {
	f := newAuthFixture(t)
	users := NewUserService(f.users, zerolog.Nop())

	if _, err := users.GetByID(context.Background(), "never-created"); !errors.Is(err, domain.ErrUserNotFound) {
		t.Fatalf("expected ErrUserNotFound, got %v", err)
	}
}

func TestUserService_GetAll(t *testing.T) {
	f := newAuthFixture(t)
	users := NewUserService(f.users, zerolog.Nop())

	for _, email := range []string{"a@x.com", "b@x.com", "c@x.com"} {
		if _, err := f.svc.SignUp(context.Background(), signUpInput(email)); err != nil {
			t.Fatalf("sign up %s: %v", email, err)
		}
	}

	all, err := users.GetAll(context.Background())
	if err != nil {
		t.Fatalf("GetAll: %v", err)
	}
	if len(all) != 3 {
		t.Fatalf("expected 3 users, got %d", len(all))
	}
	for i, email := range []string{"a@x.com", "b@x.com", "c@x.com"} {
		if all[i].Email != email {
			t.Fatalf("user %d: expected %s, got %s", i, email, all[i].Email)
		}
	}
}

func TestUserService_GetAll_Error(t *testing.T) {
	f := newAuthFixture(t)
	boom := errors.New("db down")
	f.users.findErr = boom

	if _, err := NewUserService(f.users, zerolog.Nop()).GetAll(context.Background()); !errors.Is(err, boom) {
		t.Fatalf("expected wrapped error, got %v", err)
	}
}
