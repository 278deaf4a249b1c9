package dto

type CreateExtractionRequest struct {
	IdempotencyKey string `json:"idempotency_key" binding:"required"`
	SourceURL      string `json:"source_url"`
	FilePath       string `json:"file_path"`
	Mode           string `json:"mode"`
	OutputMode     string `json:"output_mode"`
	PagesToExtract string `json:"pages_to_extract"`
	Tag            string `json:"tag"`
}

type ListExtractionsRequest struct {
	Status   string `form:"status"`
	Tag      string `form:"tag"`
	PageSize int    `form:"page_size"`
	Cursor   string `form:"cursor"`
}

type ListExtractionsResponse struct {
	Extractions []ExtractionDTO `json:"extractions"`
	NextCursor  string          `json:"next_cursor,omitempty"`
}

type ExtractionDTO struct {
	ExtractionID   string `json:"extraction_id"`
	IdempotencyKey string `json:"idempotency_key"`
	SourceURL      string `json:"source_url,omitempty"`
	FilePath       string `json:"file_path,omitempty"`
	Mode           string `json:"mode,omitempty"`
	OutputMode     string `json:"output_mode,omitempty"`
	PagesToExtract string `json:"pages_to_extract,omitempty"`
	Tag            string `json:"tag,omitempty"`
	Status         string `json:"status"`
	WhisperHash    string `json:"whisper_hash,omitempty"`
	ResultText     string `json:"result_text,omitempty"`
	FailureReason  string `json:"failure_reason,omitempty"`
	CreatedAt      string `json:"created_at"`
	UpdatedAt      string `json:"updated_at"`
}
