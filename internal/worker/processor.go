package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/cuongbtq/whisper-go/internal/worker/domain"
	"github.com/cuongbtq/whisper-go/whisper"
)

// processExtraction handles the complete extraction processing flow:
// claim -> submit to whisper -> wait for completion -> store result
func (w *Worker) processExtraction(ctx context.Context, msg *domain.ExtractionMessage) error {
	startTime := time.Now()

	w.logger.Info("Processing extraction",
		slog.String("extraction_id", msg.ExtractionID),
		slog.String("worker_id", w.workerID),
	)

	// Claim the extraction with optimistic locking
	job, err := w.storage.ClaimExtraction(ctx, msg.ExtractionID, w.workerID)
	if err != nil {
		if errors.Is(err, domain.ErrExtractionAlreadyClaimed) {
			w.logger.Warn("Extraction already claimed by another worker",
				slog.String("extraction_id", msg.ExtractionID),
			)
			return err
		}
		return domain.NewRetryableError(fmt.Errorf("failed to claim extraction: %w", err))
	}

	// Create extraction context with timeout
	timeout := w.extractionTimeout
	if job.TimeoutSeconds > 0 {
		timeout = time.Duration(job.TimeoutSeconds) * time.Second
	}
	extractionCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	// Start heartbeat goroutine so stalled workers can be detected
	heartbeatDone := make(chan struct{})
	go w.runHeartbeat(extractionCtx, job.ExtractionID, heartbeatDone)
	defer close(heartbeatDone)

	result, err := w.whisper.Whisper(extractionCtx, &whisper.WhisperRequest{
		URL:               job.SourceURL,
		FilePath:          job.FilePath,
		Mode:              job.Mode,
		OutputMode:        job.OutputMode,
		PagesToExtract:    job.PagesToExtract,
		Tag:               job.Tag,
		WaitForCompletion: true,
		WaitTimeout:       w.waitTimeout,
	})
	if err != nil {
		return w.handleExtractionFailure(ctx, job, "", err)
	}

	if result.StatusCode != 200 {
		failureErr := fmt.Errorf("extraction did not complete: %s", result.Message)
		return w.handleExtractionFailure(ctx, job, result.WhisperHash, failureErr)
	}

	// Store the extracted text
	if err := w.storage.CompleteExtraction(ctx, job.ExtractionID, result.WhisperHash, result.Extraction.ResultText); err != nil {
		return domain.NewRetryableError(fmt.Errorf("failed to store extraction result: %w", err))
	}

	w.logger.Info("Extraction processed successfully",
		slog.String("extraction_id", job.ExtractionID),
		slog.String("whisper_hash", result.WhisperHash),
		slog.Duration("duration", time.Since(startTime)),
	)

	return nil
}

// handleExtractionFailure decides between requeueing the extraction for
// another attempt and marking it permanently failed
func (w *Worker) handleExtractionFailure(ctx context.Context, job *domain.ExtractionJob, whisperHash string, failureErr error) error {
	retryable := isRetryableFailure(failureErr)

	w.logger.Error("Extraction attempt failed",
		slog.String("extraction_id", job.ExtractionID),
		slog.Int("retry_count", job.RetryCount),
		slog.Int("max_retries", job.MaxRetries),
		slog.Bool("retryable", retryable),
		slog.String("error", failureErr.Error()),
	)

	if retryable && job.RetryCount < job.MaxRetries {
		if err := w.storage.RequeueExtraction(ctx, job.ExtractionID); err != nil {
			w.logger.Error("Failed to requeue extraction",
				slog.String("extraction_id", job.ExtractionID),
				slog.String("error", err.Error()),
			)
		}
		return domain.NewRetryableError(failureErr)
	}

	if err := w.storage.FailExtraction(ctx, job.ExtractionID, whisperHash, failureErr.Error()); err != nil {
		w.logger.Error("Failed to mark extraction failed",
			slog.String("extraction_id", job.ExtractionID),
			slog.String("error", err.Error()),
		)
	}

	if retryable {
		return fmt.Errorf("%w: %s", domain.ErrMaxRetriesExceeded, failureErr.Error())
	}
	return failureErr
}

// isRetryableFailure classifies extraction failures. Transport problems,
// server-side errors, and wait-budget timeouts are worth another attempt.
// Validation errors and client-side rejections are permanent.
func isRetryableFailure(err error) bool {
	var transportErr *whisper.TransportError
	if errors.As(err, &transportErr) {
		return true
	}

	var remoteErr *whisper.RemoteError
	if errors.As(err, &remoteErr) {
		return remoteErr.StatusCode >= 500
	}

	var validationErr *whisper.ValidationError
	if errors.As(err, &validationErr) {
		return false
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}

	// Non-typed failures come from a folded wait result (timeouts,
	// transient status failures) and deserve another attempt
	return true
}

// runHeartbeat periodically updates the extraction heartbeat until the
// extraction finishes or the context is canceled
func (w *Worker) runHeartbeat(ctx context.Context, extractionID string, done <-chan struct{}) {
	ticker := time.NewTicker(w.heartbeatInterval)
	defer ticker.Stop()

	for {
		select {
		case <-done:
			return
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := w.storage.UpdateHeartbeat(ctx, extractionID); err != nil {
				w.logger.Warn("Failed to update heartbeat",
					slog.String("extraction_id", extractionID),
					slog.String("error", err.Error()),
				)
			}
		}
	}
}
