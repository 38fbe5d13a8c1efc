package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/userportal/auth-service/internal/api/metrics"
	"github.com/userportal/auth-service/internal/core/domain"
	"github.com/userportal/auth-service/internal/core/ports"
)

// dummyPassword is hashed once at construction so that sign-in for an unknown
// email still pays for one bcrypt comparison.
const dummyPassword = "userportal-timing-equaliser"

// AuthService implements sign-up and sign-in.
type AuthService struct {
	users   ports.UserRepository
	roles   ports.RoleRepository
	hasher  ports.PasswordHasher
	tokens  ports.TokenIssuer
	limiter ports.AttemptLimiter
	audit   ports.AuditSink
	log     zerolog.Logger

	allowedRoles map[string]struct{}
	dummyHash    string
	now          func() time.Time
}

// AuthOption customises an AuthService.
type AuthOption func(*AuthService)

// WithAttemptLimiter enables sign-in throttling.
func WithAttemptLimiter(l ports.AttemptLimiter) AuthOption {
	return func(s *AuthService) { s.limiter = l }
}

// WithAuditSink sends authentication events to sink.
func WithAuditSink(sink ports.AuditSink) AuthOption {
	return func(s *AuthService) { s.audit = sink }
}

// WithAllowedSignUpRoles restricts the roles a caller may request at sign-up.
// An empty list leaves sign-up unrestricted.
func WithAllowedSignUpRoles(roles []string) AuthOption {
	return func(s *AuthService) {
		if len(roles) == 0 {
			s.allowedRoles = nil
			return
		}
		s.allowedRoles = make(map[string]struct{}, len(roles))
		for _, r := range roles {
			if r = strings.TrimSpace(r); r != "" {
				s.allowedRoles[r] = struct{}{}
			}
		}
	}
}

func NewAuthService(
	users ports.UserRepository,
	roles ports.RoleRepository,
	hasher ports.PasswordHasher,
	tokens ports.TokenIssuer,
	log zerolog.Logger,
	opts ...AuthOption,
) (*AuthService, error) {
	s := &AuthService{
		users:  users,
		roles:  roles,
		hasher: hasher,
		tokens: tokens,
		log:    log,
		now:    func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		opt(s)
	}

	dummy, err := hasher.Hash(dummyPassword)
	if err != nil {
		return nil, fmt.Errorf("auth service: prepare dummy hash: %w", err)
	}
	s.dummyHash = dummy
	return s, nil
}

// SignUp registers a new account. The password is hashed before it reaches
// the repository and is never logged.
func (s *AuthService) SignUp(ctx context.Context, in ports.SignUpInput) (*ports.UserSummary, error) {
	existing, err := s.users.FindByEmail(ctx, in.Email)
	switch {
	case err == nil && existing != nil:
		return nil, domain.ErrDuplicateEmail
	case err != nil && !errors.Is(err, domain.ErrUserNotFound):
		return nil, fmt.Errorf("sign up: lookup email: %w", err)
	}

	roleNames := normaliseRoles(in.Roles)
	if err := s.checkRolePolicy(roleNames); err != nil {
		return nil, err
	}

	hash, err := s.hasher.Hash(in.Password)
	if err != nil {
		return nil, fmt.Errorf("sign up: hash password: %w", err)
	}

	roleIDs := make([]string, 0, len(roleNames))
	for _, name := range roleNames {
		role, err := s.roles.FindOrCreate(ctx, name)
		if err != nil {
			return nil, fmt.Errorf("sign up: resolve role %q: %w", name, err)
		}
		roleIDs = append(roleIDs, role.ID)
	}

	now := s.now()
	created, err := s.users.Create(ctx, &domain.User{
		Email:        in.Email,
		PasswordHash: hash,
		Name:         in.Name,
		LastName:     in.LastName,
		PhoneNumber:  in.PhoneNumber,
		Birthdate:    in.Birthdate,
		ProfileURL:   in.ProfileURL,
		Address:      in.Address,
		RoleIDs:      roleIDs,
		Roles:        roleNames,
		CreatedAt:    now,
		UpdatedAt:    now,
	})
	if err != nil {
		if errors.Is(err, domain.ErrDuplicateEmail) {
			return nil, domain.ErrDuplicateEmail
		}
		return nil, fmt.Errorf("sign up: create user: %w", err)
	}

	metrics.SignUpsTotal.Inc()
	s.record(domain.EventSignUp, created.Email, created.ID)
	s.log.Info().Str("user_id", created.ID).Strs("roles", roleNames).Msg("user signed up")

	return &ports.UserSummary{
		ID:       created.ID,
		Email:    created.Email,
		Name:     created.Name,
		LastName: created.LastName,
	}, nil
}

// SignIn verifies credentials and issues a session token. Unknown emails and
// wrong passwords fail with the same error.
func (s *AuthService) SignIn(ctx context.Context, email, password string) (string, error) {
	if s.limiter != nil {
		wait, err := s.limiter.Blocked(ctx, email)
		if err != nil {
			s.log.Warn().Err(err).Msg("attempt limiter unavailable, continuing")
		} else if wait > 0 {
			metrics.SignInsTotal.WithLabelValues("throttled").Inc()
			s.record(domain.EventSignInThrottled, email, "")
			return "", domain.ErrTooManyAttempts
		}
	}

	user, err := s.users.FindByEmail(ctx, email)
	if err != nil {
		if !errors.Is(err, domain.ErrUserNotFound) {
			return "", fmt.Errorf("sign in: lookup email: %w", err)
		}
		_ = s.hasher.Compare(s.dummyHash, password)
		s.fail(ctx, email, "")
		return "", domain.ErrInvalidCredentials
	}

	if err := s.hasher.Compare(user.PasswordHash, password); err != nil {
		if !errors.Is(err, domain.ErrInvalidCredentials) {
			return "", fmt.Errorf("sign in: compare password: %w", err)
		}
		s.fail(ctx, email, user.ID)
		return "", domain.ErrInvalidCredentials
	}

	token, err := s.tokens.Issue(user.ID, user.Roles)
	if err != nil {
		return "", fmt.Errorf("sign in: issue token: %w", err)
	}

	if s.limiter != nil {
		if err := s.limiter.Reset(ctx, email); err != nil {
			s.log.Warn().Err(err).Str("user_id", user.ID).Msg("failed to reset sign-in attempts")
		}
	}

	metrics.SignInsTotal.WithLabelValues("success").Inc()
	s.record(domain.EventSignInSuccess, email, user.ID)
	s.log.Info().Str("user_id", user.ID).Strs("roles", user.Roles).Msg("user signed in")

	return token, nil
}

func (s *AuthService) fail(ctx context.Context, email, userID string) {
	metrics.SignInsTotal.WithLabelValues("failure").Inc()
	s.record(domain.EventSignInFailure, email, userID)
	if s.limiter != nil {
		if err := s.limiter.RecordFailure(ctx, email); err != nil {
			s.log.Warn().Err(err).Msg("failed to record sign-in failure")
		}
	}
	ev := s.log.Debug()
	if userID != "" {
		ev = ev.Str("user_id", userID)
	}
	ev.Msg("sign-in rejected")
}

func (s *AuthService) checkRolePolicy(roles []string) error {
	if s.allowedRoles == nil {
		return nil
	}
	for _, r := range roles {
		if _, ok := s.allowedRoles[r]; !ok {
			return fmt.Errorf("%w: %s", domain.ErrRoleNotAllowed, r)
		}
	}
	return nil
}

func (s *AuthService) record(t domain.AuthEventType, email, userID string) {
	if s.audit == nil {
		return
	}
	s.audit.Enqueue(domain.AuthEvent{Type: t, Email: email, UserID: userID, At: s.now()})
}

// normaliseRoles trims, drops blanks and duplicates, and falls back to the
// default role. Order of first appearance is kept.
func normaliseRoles(in []string) []string {
	seen := make(map[string]struct{}, len(in))
	out := make([]string, 0, len(in))
	for _, r := range in {
		r = strings.TrimSpace(r)
		if r == "" {
			continue
		}
		if _, dup := seen[r]; dup {
			continue
		}
		seen[r] = struct{}{}
		out = append(out, r)
	}
	if len(out) == 0 {
		out = append(out, domain.RoleUser)
	}
	return out
}
