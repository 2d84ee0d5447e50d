package service

import (
	"context"
	"sync"
	"time"

	"civic-ledger/internal/core/domain"
	"civic-ledger/internal/core/ports"

	"github.com/rs/zerolog"
)

const (
	auditQueueSize    = 256
	auditWriteTimeout = 5 * time.Second
)

// AuditServiceImpl writes audit entries from a single background writer so
// request handlers never wait on the audit table.
type AuditServiceImpl struct {
	repo  ports.AuditRepository
	log   zerolog.Logger
	queue chan *domain.AuditLog
	once  sync.Once
	done  chan struct{}
}

// NewAuditService starts the writer. If repo is nil, entries only go to the
// logger. Call Close to flush on shutdown.
func NewAuditService(repo ports.AuditRepository, log zerolog.Logger) *AuditServiceImpl {
	s := &AuditServiceImpl{
		repo:  repo,
		log:   log,
		queue: make(chan *domain.AuditLog, auditQueueSize),
		done:  make(chan struct{}),
	}
	go s.run()
	return s
}

// Log enqueues entry. A full queue drops the entry with a warning.
func (s *AuditServiceImpl) Log(_ context.Context, entry *domain.AuditLog) {
	select {
	case s.queue <- entry:
	default:
		s.log.Warn().Str("action", string(entry.Action)).Msg("audit queue full, dropping entry")
	}
}

// Close stops accepting entries and waits for queued ones to be written.
func (s *AuditServiceImpl) Close() {
	s.once.Do(func() { close(s.queue) })
	<-s.done
}

func (s *AuditServiceImpl) run() {
	defer close(s.done)
	for entry := range s.queue {
		ev := s.log.Info().
			Str("action", string(entry.Action)).
			Str("resource_type", entry.ResourceType).
			Str("resource_id", entry.ResourceID).
			Str("ip", entry.IPAddress)
		if entry.ActorID != nil {
			ev = ev.Str("actor_id", entry.ActorID.String())
		}
		ev.Msg("audit")

		if s.repo == nil {
			continue
		}
		ctx, cancel := context.WithTimeout(context.Background(), auditWriteTimeout)
		if err := s.repo.Create(ctx, entry); err != nil {
			s.log.Warn().Err(err).Str("action", string(entry.Action)).Msg("failed to persist audit log")
		}
		cancel()
	}
}
