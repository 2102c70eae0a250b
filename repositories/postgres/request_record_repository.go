package postgres

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/quotagate/gateway/models"
	"github.com/quotagate/gateway/repositories"
	"go.uber.org/zap"
)

// RequestRecordRepository implements the repositories.RequestRecordRepository interface
type RequestRecordRepository struct {
	db     *DB
	logger *zap.Logger
}

// NewRequestRecordRepository creates a new request record repository
func NewRequestRecordRepository(db *DB, logger *zap.Logger) repositories.RequestRecordRepository {
	return &RequestRecordRepository{
		db:     db,
		logger: logger,
	}
}

// Insert appends a new request record
func (r *RequestRecordRepository) Insert(ctx context.Context, rec *models.RequestRecord) error {
	query := `
		INSERT INTO request_records (id, account_id, timestamp, prompt_length, response_length, latency_ms, credits_charged)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`

	executor := GetExecutor(ctx, r.db)
	_, err := executor.ExecContext(ctx, query,
		rec.ID,
		rec.AccountID,
		rec.Timestamp,
		rec.PromptLength,
		rec.ResponseLength,
		rec.LatencyMs,
		rec.CreditsCharged,
	)

	if err != nil {
		return fmt.Errorf("failed to insert request record: %w", err)
	}

	r.logger.Debug("request record inserted",
		zap.String("id", rec.ID.String()),
		zap.String("account_id", rec.AccountID.String()))
	return nil
}

// GetByAccountID retrieves records for an account with pagination, newest first
func (r *RequestRecordRepository) GetByAccountID(ctx context.Context, accountID uuid.UUID, limit, offset int) ([]*models.RequestRecord, error) {
	query := `
		SELECT id, account_id, timestamp, prompt_length, response_length, latency_ms, credits_charged
		FROM request_records
		WHERE account_id = $1
		ORDER BY timestamp DESC
		LIMIT $2 OFFSET $3
	`

	executor := GetExecutor(ctx, r.db)
	rows, err := executor.QueryContext(ctx, query, accountID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to query request records: %w", err)
	}
	defer rows.Close()

	var records []*models.RequestRecord
	for rows.Next() {
		rec := &models.RequestRecord{}
		err := rows.Scan(
			&rec.ID,
			&rec.AccountID,
			&rec.Timestamp,
			&rec.PromptLength,
			&rec.ResponseLength,
			&rec.LatencyMs,
			&rec.CreditsCharged,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan request record: %w", err)
		}
		records = append(records, rec)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating request record rows: %w", err)
	}

	return records, nil
}
