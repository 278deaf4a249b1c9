package whisper

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"path/filepath"
	"time"
)

// timeoutMessage is reported when the wait budget is exhausted. The
// remote job may still complete; the handle stays usable for a later
// manual status check.
const timeoutMessage = "operation timed out"

// Whisper submits a document for extraction. A 200 response means the
// service did the work inline and the extraction is returned directly;
// a 202 means the job was queued, and the returned result carries only
// the job handle and initial status unless WaitForCompletion was
// requested, in which case the completion poller runs before returning.
func (c *Client) Whisper(ctx context.Context, req *WhisperRequest) (*JobResult, error) {
	if err := req.validate(); err != nil {
		return nil, err
	}

	params := req.queryParams()

	var body io.Reader
	var size int64
	if req.FilePath != "" {
		f, fileSize, err := openSourceFile(req.FilePath)
		if err != nil {
			return nil, err
		}
		defer f.Close()

		body = f
		size = fileSize
		if params.Get("file_name") == "" {
			params.Set("file_name", filepath.Base(req.FilePath))
		}
	}

	c.logger.Info("Submitting whisper job",
		slog.String("file_path", req.FilePath),
		slog.String("url", req.URL),
		slog.String("mode", req.Mode),
		slog.Bool("wait_for_completion", req.WaitForCompletion),
	)

	status, header, raw, err := c.do(ctx, http.MethodPost, "/whisper", params, body, size, "application/octet-stream")
	if err != nil {
		return nil, err
	}

	switch status {
	case http.StatusOK:
		return normalizeSyncResult(header, raw)

	case http.StatusAccepted:
		var accepted acceptedResponse
		if err := json.Unmarshal(raw, &accepted); err != nil {
			return nil, fmt.Errorf("failed to decode accepted response: %w", err)
		}

		c.logger.Info("Whisper job accepted for async processing",
			slog.String("whisper_hash", accepted.WhisperHash),
			slog.String("status", string(accepted.Status)),
		)

		if req.WaitForCompletion {
			budget := time.Duration(req.waitBudget()) * time.Second
			return c.WaitForCompletion(ctx, accepted.WhisperHash, budget)
		}
		return normalizeAcceptedResult(&accepted), nil

	default:
		return nil, remoteError(status, raw)
	}
}

// Status fetches the current remote-reported state of a job. Terminal
// states are stable: repeated checks on a terminal handle keep returning
// the same state.
func (c *Client) Status(ctx context.Context, whisperHash string) (*StatusResponse, error) {
	query := url.Values{"whisper_hash": []string{whisperHash}}

	status, _, raw, err := c.do(ctx, http.MethodGet, "/whisper-status", query, nil, 0, "")
	if err != nil {
		return nil, err
	}
	if status != http.StatusOK {
		return nil, remoteError(status, raw)
	}

	var sr StatusResponse
	if err := json.Unmarshal(raw, &sr); err != nil {
		return nil, fmt.Errorf("failed to decode status response: %w", err)
	}
	sr.StatusCode = status
	if sr.WhisperHash == "" {
		sr.WhisperHash = whisperHash
	}

	return &sr, nil
}

// Retrieve fetches the extraction payload of a processed job.
func (c *Client) Retrieve(ctx context.Context, whisperHash string) (*JobResult, error) {
	query := url.Values{"whisper_hash": []string{whisperHash}}

	status, _, raw, err := c.do(ctx, http.MethodGet, "/whisper-retrieve", query, nil, 0, "")
	if err != nil {
		return nil, err
	}
	if status != http.StatusOK {
		return nil, remoteError(status, raw)
	}

	var extraction Extraction
	if err := json.Unmarshal(raw, &extraction); err != nil {
		return nil, fmt.Errorf("failed to decode retrieve response: %w", err)
	}

	return &JobResult{
		StatusCode:  http.StatusOK,
		Status:      StatusProcessed,
		WhisperHash: whisperHash,
		Extraction:  extraction,
	}, nil
}

// WaitForCompletion polls the job status on a fixed interval until a
// terminal state is reached or the wall-clock budget elapses, measured
// from loop entry. Remote and transport failures during the wait are
// folded into the returned result with FailureStatusCode; the only
// raised failure is the delivered/unknown abort, where the job can no
// longer be retrieved. Budget exhaustion is a result, not an error, and
// the context cancels the wait at both the request and the sleep.
func (c *Client) WaitForCompletion(ctx context.Context, whisperHash string, budget time.Duration) (*JobResult, error) {
	start := time.Now()

	c.logger.Info("Waiting for whisper job completion",
		slog.String("whisper_hash", whisperHash),
		slog.Duration("budget", budget),
		slog.Duration("poll_interval", c.pollInterval),
	)

	for {
		if time.Since(start) > budget {
			c.logger.Warn("Wait budget exhausted",
				slog.String("whisper_hash", whisperHash),
				slog.Duration("budget", budget),
			)
			return &JobResult{
				StatusCode:  FailureStatusCode,
				Message:     timeoutMessage,
				WhisperHash: whisperHash,
			}, nil
		}

		sr, err := c.Status(ctx, whisperHash)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			return c.foldWaitFailure(whisperHash, err), nil
		}

		switch sr.Status {
		case StatusProcessing, StatusAccepted:
			// Non-terminal: re-arm and poll again.

		case StatusProcessed:
			result, err := c.Retrieve(ctx, whisperHash)
			if err != nil {
				if ctx.Err() != nil {
					return nil, ctx.Err()
				}
				return c.foldWaitFailure(whisperHash, err), nil
			}
			c.logger.Info("Whisper job completed",
				slog.String("whisper_hash", whisperHash),
				slog.Duration("elapsed", time.Since(start)),
			)
			return result, nil

		case StatusDelivered, StatusUnknown:
			// The payload is gone; nothing a retry or retrieve can do.
			return nil, &RemoteError{
				StatusCode: sr.StatusCode,
				Message:    fmt.Sprintf("whisper job %s is %s and can no longer be retrieved", whisperHash, sr.Status),
			}

		case StatusError, StatusFailed:
			message := sr.Message
			if message == "" {
				message = fmt.Sprintf("whisper job %s reported status %s", whisperHash, sr.Status)
			}
			c.logger.Error("Whisper job failed",
				slog.String("whisper_hash", whisperHash),
				slog.String("status", string(sr.Status)),
				slog.String("message", message),
			)
			return &JobResult{
				StatusCode:  FailureStatusCode,
				Status:      sr.Status,
				Message:     message,
				WhisperHash: whisperHash,
			}, nil

		default:
			c.logger.Warn("Unrecognized whisper status, continuing to poll",
				slog.String("whisper_hash", whisperHash),
				slog.String("status", string(sr.Status)),
			)
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(c.pollInterval):
		}
	}
}

// foldWaitFailure converts a status/retrieve failure inside the polling
// loop into a terminal result, per the propagation rules: the poller
// reports failures through the result object rather than raising them.
func (c *Client) foldWaitFailure(whisperHash string, err error) *JobResult {
	message := err.Error()
	var remoteErr *RemoteError
	if errors.As(err, &remoteErr) {
		message = remoteErr.Message
	}

	c.logger.Error("Whisper wait aborted",
		slog.String("whisper_hash", whisperHash),
		slog.String("error", err.Error()),
	)

	return &JobResult{
		StatusCode:  FailureStatusCode,
		Message:     message,
		WhisperHash: whisperHash,
	}
}

// GetUsageInfo fetches the account usage snapshot.
func (c *Client) GetUsageInfo(ctx context.Context) (*UsageInfo, error) {
	status, _, raw, err := c.do(ctx, http.MethodGet, "/get-usage-info", nil, nil, 0, "")
	if err != nil {
		return nil, err
	}
	if status != http.StatusOK {
		return nil, remoteError(status, raw)
	}

	var usage UsageInfo
	if err := json.Unmarshal(raw, &usage); err != nil {
		return nil, fmt.Errorf("failed to decode usage response: %w", err)
	}

	return &usage, nil
}

// normalizeSyncResult builds the caller-facing result from an
// inline-completed submission. The job handle comes from the structured
// body, falling back to the response header older deployments use.
func normalizeSyncResult(header http.Header, raw []byte) (*JobResult, error) {
	var sync syncResponse
	if err := json.Unmarshal(raw, &sync); err != nil {
		return nil, fmt.Errorf("failed to decode whisper response: %w", err)
	}

	whisperHash := sync.WhisperHash
	if whisperHash == "" {
		whisperHash = header.Get("whisper-hash")
	}

	return &JobResult{
		StatusCode:  http.StatusOK,
		Status:      StatusProcessed,
		WhisperHash: whisperHash,
		Extraction:  sync.Extraction,
	}, nil
}

// normalizeAcceptedResult builds the caller-facing result from a queued
// submission. The extraction stays empty; polling is the caller's job.
func normalizeAcceptedResult(accepted *acceptedResponse) *JobResult {
	status := accepted.Status
	if status == "" {
		status = StatusProcessing
	}

	return &JobResult{
		StatusCode:  http.StatusAccepted,
		Status:      status,
		Message:     accepted.Message,
		WhisperHash: accepted.WhisperHash,
	}
}

// remoteError builds a RemoteError from a non-success response,
// preferring the structured remote message over the raw body.
func remoteError(status int, raw []byte) *RemoteError {
	var body remoteErrorBody
	if err := json.Unmarshal(raw, &body); err == nil && body.Message != "" {
		return &RemoteError{StatusCode: status, Message: body.Message}
	}

	message := string(raw)
	if message == "" {
		message = http.StatusText(status)
	}
	return &RemoteError{StatusCode: status, Message: message}
}
