package worker

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/cuongbtq/whisper-go/internal/worker/domain"
	"github.com/cuongbtq/whisper-go/internal/worker/storage"
	"github.com/cuongbtq/whisper-go/shared/postgresql"
	"github.com/cuongbtq/whisper-go/shared/rabbitmq"
	"github.com/cuongbtq/whisper-go/whisper"
	"github.com/google/uuid"
)

// Config holds worker configuration
type Config struct {
	Logger            *slog.Logger
	DBClient          *postgresql.Client
	RabbitClient      *rabbitmq.Client
	Whisper           *whisper.Client
	Concurrency       int
	PrefetchCount     int
	ExtractionTimeout time.Duration
	HeartbeatInterval time.Duration
	// WaitTimeout is the per-extraction whisper wait budget in seconds.
	WaitTimeout int
	QueueName   string
}

// Worker consumes extraction messages and drives the whisper client
type Worker struct {
	logger            *slog.Logger
	dbClient          *postgresql.Client
	rabbitClient      *rabbitmq.Client
	whisper           *whisper.Client
	storage           *storage.Storage
	workerID          string
	concurrency       int
	prefetchCount     int
	extractionTimeout time.Duration
	heartbeatInterval time.Duration
	waitTimeout       int
	queueName         string
	jobsChan          chan *domain.ExtractionMessage
	wg                sync.WaitGroup
	stopChan          chan struct{}
}

// NewWorker creates a new worker instance
func NewWorker(cfg *Config) *Worker {
	concurrency := cfg.Concurrency
	if concurrency <= 0 {
		concurrency = 1
	}

	heartbeatInterval := cfg.HeartbeatInterval
	if heartbeatInterval <= 0 {
		heartbeatInterval = 30 * time.Second
	}

	return &Worker{
		logger:            cfg.Logger,
		dbClient:          cfg.DBClient,
		rabbitClient:      cfg.RabbitClient,
		whisper:           cfg.Whisper,
		storage:           storage.NewStorage(cfg.DBClient.GetDB(), cfg.Logger),
		workerID:          fmt.Sprintf("whisper-worker-%s", uuid.New().String()[:8]),
		concurrency:       concurrency,
		prefetchCount:     cfg.PrefetchCount,
		extractionTimeout: cfg.ExtractionTimeout,
		heartbeatInterval: heartbeatInterval,
		waitTimeout:       cfg.WaitTimeout,
		queueName:         cfg.QueueName,
		jobsChan:          make(chan *domain.ExtractionMessage, concurrency),
		stopChan:          make(chan struct{}),
	}
}

// Start begins consuming and processing extractions. It blocks until
// the context is canceled or the consumer fails.
func (w *Worker) Start(ctx context.Context) error {
	w.logger.Info("Starting worker",
		slog.String("worker_id", w.workerID),
		slog.Int("concurrency", w.concurrency),
		slog.Duration("extraction_timeout", w.extractionTimeout),
	)

	deliveries, err := w.setupConsumer(ctx)
	if err != nil {
		return fmt.Errorf("failed to setup consumer: %w", err)
	}

	w.spawnWorkerPool(ctx)
	w.startMessageDispatcher(ctx, deliveries)

	return nil
}

// Stop gracefully stops the worker
func (w *Worker) Stop() {
	w.logger.Info("Stopping worker...")
	close(w.stopChan)
	w.wg.Wait()
	w.logger.Info("Worker stopped")
}
