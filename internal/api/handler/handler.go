package handler

import (
	"log/slog"

	"github.com/cuongbtq/whisper-go/internal/api/storage"
	"github.com/cuongbtq/whisper-go/shared/postgresql"
	"github.com/cuongbtq/whisper-go/shared/rabbitmq"
)

// Dependencies holds all dependencies needed by handlers
type Dependencies struct {
	Logger       *slog.Logger
	DBClient     *postgresql.Client
	RabbitClient *rabbitmq.Client
}

// ExtractionHandler handles extraction-related HTTP requests
type ExtractionHandler struct {
	logger       *slog.Logger
	storage      *storage.Storage
	rabbitClient *rabbitmq.Client
}

// NewExtractionHandler creates a new ExtractionHandler instance
func NewExtractionHandler(deps *Dependencies) *ExtractionHandler {
	return &ExtractionHandler{
		logger:       deps.Logger,
		storage:      storage.NewStorage(deps.DBClient),
		rabbitClient: deps.RabbitClient,
	}
}
