package ports

import (
	"context"

	"github.com/userportal/auth-service/internal/core/domain"
)

// AuditService stores a single authentication event.
type AuditService interface {
	Record(ctx context.Context, event domain.AuthEvent) error
}

// AuditSink accepts events for asynchronous recording. Enqueue must not block
// the request path for long.
type AuditSink interface {
	Enqueue(event domain.AuthEvent)
}
