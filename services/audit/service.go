// Package audit appends request records off the hot path. Writes are
// fire-and-forget: an audit failure never fails the request it describes.
package audit

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/quotagate/gateway/models"
	"github.com/quotagate/gateway/repositories"
	"go.uber.org/zap"
)

// writeTimeout bounds each detached audit insert
const writeTimeout = 5 * time.Second

// Entry describes one completed metered call
type Entry struct {
	AccountID      uuid.UUID
	PromptLength   int
	ResponseLength int
	LatencyMs      int64
	CreditsCharged int64
}

// Service records audit entries asynchronously
type Service struct {
	records repositories.RequestRecordRepository
	logger  *zap.Logger
	wg      sync.WaitGroup
}

// NewService creates a new audit service
func NewService(records repositories.RequestRecordRepository, logger *zap.Logger) *Service {
	return &Service{
		records: records,
		logger:  logger,
	}
}

// Record appends an audit entry in the background. The write uses a detached
// context so a canceled request cannot abort it; failures are logged and
// swallowed.
func (s *Service) Record(entry Entry) {
	rec := models.NewRequestRecord(
		entry.AccountID,
		entry.PromptLength,
		entry.ResponseLength,
		entry.LatencyMs,
		entry.CreditsCharged,
	)

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()

		ctx, cancel := context.WithTimeout(context.Background(), writeTimeout)
		defer cancel()

		if err := s.records.Insert(ctx, rec); err != nil {
			s.logger.Error("audit write failed",
				zap.String("account_id", rec.AccountID.String()),
				zap.String("record_id", rec.ID.String()),
				zap.Error(err))
			return
		}

		s.logger.Debug("audit record written",
			zap.String("record_id", rec.ID.String()))
	}()
}

// History returns the newest audit entries for an account
func (s *Service) History(ctx context.Context, accountID uuid.UUID, limit, offset int) ([]*models.RequestRecord, error) {
	if limit <= 0 || limit > 100 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}
	return s.records.GetByAccountID(ctx, accountID, limit, offset)
}

// Wait blocks until all in-flight audit writes finish. Called during drain so
// billed requests do not lose their records on shutdown.
func (s *Service) Wait() {
	s.wg.Wait()
}
