package storage

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	"github.com/cuongbtq/whisper-go/internal/worker/domain"
	"github.com/jmoiron/sqlx"
)

// Storage handles all database operations for the worker
type Storage struct {
	db     *sqlx.DB
	logger *slog.Logger
}

// NewStorage creates a new Storage instance
func NewStorage(db *sqlx.DB, logger *slog.Logger) *Storage {
	return &Storage{
		db:     db,
		logger: logger,
	}
}

// ClaimExtraction attempts to claim an extraction using optimistic locking
// Returns full extraction details on success, error if already claimed or not found
func (s *Storage) ClaimExtraction(ctx context.Context, extractionID, workerID string) (*domain.ExtractionJob, error) {
	query := `
		UPDATE extractions
		SET status = $1,
		    worker_id = $2,
		    started_at = NOW(),
		    last_heartbeat_at = NOW(),
		    updated_at = NOW()
		WHERE extraction_id = $3
		  AND status = $4
		RETURNING extraction_id, source_url, file_path, mode, output_mode,
		          pages_to_extract, tag, retry_count, max_retries, timeout_seconds
	`

	var job domain.ExtractionJob
	err := s.db.QueryRowContext(ctx, query, domain.ExtractionStatusRunning, workerID, extractionID, domain.ExtractionStatusPending).Scan(
		&job.ExtractionID,
		&job.SourceURL,
		&job.FilePath,
		&job.Mode,
		&job.OutputMode,
		&job.PagesToExtract,
		&job.Tag,
		&job.RetryCount,
		&job.MaxRetries,
		&job.TimeoutSeconds,
	)

	if err != nil {
		if err == sql.ErrNoRows {
			s.logger.Warn("Failed to claim extraction - already claimed or not found",
				slog.String("extraction_id", extractionID),
				slog.String("worker_id", workerID),
			)
			return nil, domain.ErrExtractionAlreadyClaimed
		}
		return nil, fmt.Errorf("failed to claim extraction: %w", err)
	}

	job.Status = domain.ExtractionStatusRunning
	job.WorkerID = workerID

	s.logger.Info("Extraction claimed successfully",
		slog.String("extraction_id", extractionID),
		slog.String("worker_id", workerID),
	)

	return &job, nil
}

// CompleteExtraction marks an extraction COMPLETED and stores its result
func (s *Storage) CompleteExtraction(ctx context.Context, extractionID, whisperHash, resultText string) error {
	query := `
		UPDATE extractions
		SET status = $1,
			whisper_hash = $2,
			result_text = $3,
			failure_reason = '',
			completed_at = NOW(),
			updated_at = NOW()
		WHERE extraction_id = $4
	`

	_, err := s.db.ExecContext(ctx, query, domain.ExtractionStatusCompleted, whisperHash, resultText, extractionID)
	if err != nil {
		return fmt.Errorf("failed to complete extraction: %w", err)
	}

	s.logger.Info("Extraction completed",
		slog.String("extraction_id", extractionID),
		slog.String("whisper_hash", whisperHash),
	)

	return nil
}

// FailExtraction marks an extraction FAILED with a reason and bumps the
// retry counter so the requeue decision can see how many attempts ran
func (s *Storage) FailExtraction(ctx context.Context, extractionID, whisperHash, reason string) error {
	query := `
		UPDATE extractions
		SET status = $1,
			whisper_hash = $2,
			failure_reason = $3,
			retry_count = retry_count + 1,
			completed_at = NOW(),
			updated_at = NOW()
		WHERE extraction_id = $4
	`

	_, err := s.db.ExecContext(ctx, query, domain.ExtractionStatusFailed, whisperHash, reason, extractionID)
	if err != nil {
		return fmt.Errorf("failed to update extraction status: %w", err)
	}

	s.logger.Info("Extraction marked failed",
		slog.String("extraction_id", extractionID),
		slog.String("reason", reason),
	)

	return nil
}

// RequeueExtraction returns a failed attempt to PENDING for another try
func (s *Storage) RequeueExtraction(ctx context.Context, extractionID string) error {
	query := `
		UPDATE extractions
		SET status = $1,
			worker_id = NULL,
			retry_count = retry_count + 1,
			updated_at = NOW()
		WHERE extraction_id = $2
	`

	_, err := s.db.ExecContext(ctx, query, domain.ExtractionStatusPending, extractionID)
	if err != nil {
		return fmt.Errorf("failed to requeue extraction: %w", err)
	}

	return nil
}

// UpdateHeartbeat updates the last_heartbeat_at timestamp for a running extraction
func (s *Storage) UpdateHeartbeat(ctx context.Context, extractionID string) error {
	query := `
		UPDATE extractions
		SET last_heartbeat_at = NOW(),
		    updated_at = NOW()
		WHERE extraction_id = $1 AND status = $2
	`

	result, err := s.db.ExecContext(ctx, query, extractionID, domain.ExtractionStatusRunning)
	if err != nil {
		return fmt.Errorf("failed to update extraction heartbeat: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}

	if rowsAffected == 0 {
		s.logger.Warn("Heartbeat update - no rows affected (extraction may not be running)",
			slog.String("extraction_id", extractionID),
		)
	}

	return nil
}
