package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/userportal/auth-service/internal/api/metrics"
	"github.com/userportal/auth-service/internal/core/domain"
	"github.com/userportal/auth-service/internal/core/ports"
)

var errInvalidAuthEvent = errors.New("invalid auth event")

type auditService struct {
	repo ports.AuditRepository
	log  zerolog.Logger
}

// NewAuditService returns an AuditService that writes to repo.
func NewAuditService(repo ports.AuditRepository, log zerolog.Logger) ports.AuditService {
	return &auditService{repo: repo, log: log}
}

// Record validates and persists a single authentication event.
func (s *auditService) Record(ctx context.Context, ev domain.AuthEvent) error {
	start := time.Now()

	switch ev.Type {
	case domain.EventSignUp, domain.EventSignInSuccess, domain.EventSignInFailure, domain.EventSignInThrottled:
	default:
		metrics.AuditErrorsTotal.WithLabelValues("invalid_type").Inc()
		return fmt.Errorf("record audit event: %w: type %q", errInvalidAuthEvent, ev.Type)
	}
	if ev.Email == "" {
		metrics.AuditErrorsTotal.WithLabelValues("missing_email").Inc()
		return fmt.Errorf("record audit event: %w: missing email", errInvalidAuthEvent)
	}
	if ev.At.IsZero() {
		ev.At = time.Now().UTC()
	}

	if err := s.repo.InsertEvent(ctx, &ev); err != nil {
		metrics.AuditErrorsTotal.WithLabelValues("insert_failed").Inc()
		return fmt.Errorf("record audit event: %w", err)
	}

	metrics.AuditEventsTotal.WithLabelValues(string(ev.Type)).Inc()
	metrics.AuditRecordDuration.Observe(time.Since(start).Seconds())

	s.log.Debug().
		Str("type", string(ev.Type)).
		Str("user_id", ev.UserID).
		Msg("auth event recorded")

	return nil
}
