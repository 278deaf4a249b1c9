package model

import "time"

type Extraction struct {
	ExtractionID   string    `db:"extraction_id"`
	IdempotencyKey string    `db:"idempotency_key"`
	SourceURL      string    `db:"source_url"`
	FilePath       string    `db:"file_path"`
	Mode           string    `db:"mode"`
	OutputMode     string    `db:"output_mode"`
	PagesToExtract string    `db:"pages_to_extract"`
	Tag            string    `db:"tag"`
	Status         string    `db:"status"`
	WhisperHash    string    `db:"whisper_hash"`
	ResultText     string    `db:"result_text"`
	FailureReason  string    `db:"failure_reason"`
	CreatedAt      time.Time `db:"created_at"`
	UpdatedAt      time.Time `db:"updated_at"`
}
