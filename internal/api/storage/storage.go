package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/cuongbtq/whisper-go/internal/api/domain"
	"github.com/cuongbtq/whisper-go/internal/api/model"
	"github.com/cuongbtq/whisper-go/shared/postgresql"
	"github.com/jmoiron/sqlx"
)

type Storage struct {
	db *sqlx.DB
}

func NewStorage(pg *postgresql.Client) *Storage {
	return &Storage{
		db: pg.GetDB(),
	}
}

func (s *Storage) CreateExtraction(ctx context.Context, extraction *model.Extraction) error {
	query := `
		INSERT INTO extractions (
			extraction_id, idempotency_key, source_url, file_path,
			mode, output_mode, pages_to_extract, tag,
			status, created_at, updated_at
		) VALUES (
			$1, $2, $3, $4,
			$5, $6, $7, $8,
			$9, $10, $11
		)
	`

	_, err := s.db.ExecContext(
		ctx,
		query,
		extraction.ExtractionID,
		extraction.IdempotencyKey,
		extraction.SourceURL,
		extraction.FilePath,
		extraction.Mode,
		extraction.OutputMode,
		extraction.PagesToExtract,
		extraction.Tag,
		extraction.Status,
		extraction.CreatedAt,
		extraction.UpdatedAt,
	)

	if err != nil {
		return fmt.Errorf("failed to create extraction: %w", err)
	}

	return nil
}

func (s *Storage) GetExtractionByID(ctx context.Context, extractionID string) (*model.Extraction, error) {
	var extraction model.Extraction
	query := `
		SELECT
			extraction_id, idempotency_key, source_url, file_path,
			mode, output_mode, pages_to_extract, tag,
			status, whisper_hash, result_text, failure_reason,
			created_at, updated_at
		FROM extractions
		WHERE extraction_id = $1
	`

	err := s.db.GetContext(ctx, &extraction, query, extractionID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrExtractionNotFound
		}
		return nil, fmt.Errorf("failed to get extraction: %w", err)
	}

	return &extraction, nil
}

type ExtractionFilter struct {
	Status   string
	Tag      string
	PageSize int
	Cursor   *ExtractionCursor
}

type ExtractionCursor struct {
	CreatedAt    time.Time
	ExtractionID string
}

func (s *Storage) ListExtractions(ctx context.Context, filter ExtractionFilter) ([]model.Extraction, error) {
	query := `
        SELECT
            extraction_id, idempotency_key, source_url, file_path,
            mode, output_mode, pages_to_extract, tag,
            status, whisper_hash, result_text, failure_reason,
            created_at, updated_at
        FROM extractions
        WHERE 1=1
    `
	args := []interface{}{}
	argIdx := 1

	// Filters
	if filter.Status != "" {
		query += fmt.Sprintf(" AND status = $%d", argIdx)
		args = append(args, filter.Status)
		argIdx++
	}

	if filter.Tag != "" {
		query += fmt.Sprintf(" AND tag = $%d", argIdx)
		args = append(args, filter.Tag)
		argIdx++
	}

	if filter.Cursor != nil {
		query += fmt.Sprintf(" AND (created_at, extraction_id) < ($%d, $%d)", argIdx, argIdx+1)
		args = append(args, filter.Cursor.CreatedAt, filter.Cursor.ExtractionID)
		argIdx += 2
	}

	// Order by created_at DESC, extraction_id DESC for consistent pagination
	query += " ORDER BY created_at DESC, extraction_id DESC"

	// Fetch one extra to determine if there are more results
	query += fmt.Sprintf(" LIMIT $%d", argIdx)
	args = append(args, filter.PageSize+1)

	var extractions []model.Extraction
	err := s.db.SelectContext(ctx, &extractions, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list extractions: %w", err)
	}

	return extractions, nil
}

func (s *Storage) DeleteExtraction(ctx context.Context, extractionID string) error {
	query := `DELETE FROM extractions WHERE extraction_id = $1`

	result, err := s.db.ExecContext(ctx, query, extractionID)
	if err != nil {
		return fmt.Errorf("failed to delete extraction: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return domain.ErrExtractionNotFound
	}

	return nil
}
