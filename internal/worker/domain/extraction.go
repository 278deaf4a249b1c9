package domain

// Extraction status constants
const (
	ExtractionStatusPending   = "PENDING"
	ExtractionStatusRunning   = "RUNNING"
	ExtractionStatusCompleted = "COMPLETED"
	ExtractionStatusFailed    = "FAILED"
	ExtractionStatusCanceled  = "CANCELED"
)

// ExtractionJob represents an extraction row claimed for worker processing
type ExtractionJob struct {
	ExtractionID   string
	SourceURL      string
	FilePath       string
	Mode           string
	OutputMode     string
	PagesToExtract string
	Tag            string
	Status         string
	WorkerID       string
	RetryCount     int
	MaxRetries     int
	TimeoutSeconds int
}

// ExtractionMessage represents an extraction job message from RabbitMQ
type ExtractionMessage struct {
	ExtractionID string `json:"extraction_id"`
	DeliveryTag  uint64 `json:"-"`
}
