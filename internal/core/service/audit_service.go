package service

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/learnpath/lms-api/internal/core/domain"
	"github.com/learnpath/lms-api/internal/core/ports"
	"github.com/learnpath/lms-api/internal/pkg/metrics"
)

type auditService struct {
	repo ports.AuthEventRepository
	log  zerolog.Logger
}

// NewAuditService returns an AuditService persisting events through repo.
func NewAuditService(repo ports.AuthEventRepository, log zerolog.Logger) ports.AuditService {
	return &auditService{repo: repo, log: log}
}

// Record stores one audit event.
func (s *auditService) Record(ctx context.Context, event domain.AuthEvent) error {
	if event.Type == "" {
		return fmt.Errorf("record audit event: %w: missing type", domain.ErrInvalidInput)
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now().UTC()
	}

	if err := s.repo.InsertEvent(ctx, &event); err != nil {
		metrics.AuditEventsTotal.WithLabelValues(string(event.Type), "error").Inc()
		return fmt.Errorf("record audit event: %w", err)
	}

	metrics.AuditEventsTotal.WithLabelValues(string(event.Type), "stored").Inc()
	s.log.Debug().
		Str("type", string(event.Type)).
		Str("subject", event.Subject).
		Msg("audit event stored")
	return nil
}
