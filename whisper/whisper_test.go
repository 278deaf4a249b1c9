package whisper

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// whisperBackend is an httptest-backed mock of the remote service with
// a scripted status sequence.
type whisperBackend struct {
	t *testing.T

	submitStatus int
	submitBody   string
	submitHeader map[string]string

	statusSequence []string
	statusCalls    atomic.Int64

	retrieveBody   string
	retrieveStatus int

	submitCalls atomic.Int64
}

func (b *whisperBackend) server() *httptest.Server {
	mux := http.NewServeMux()

	mux.HandleFunc("/whisper", func(w http.ResponseWriter, r *http.Request) {
		b.submitCalls.Add(1)
		assert.Equal(b.t, http.MethodPost, r.Method)
		assert.Equal(b.t, "test-key", r.Header.Get("whisper-key"))

		for key, value := range b.submitHeader {
			w.Header().Set(key, value)
		}
		w.WriteHeader(b.submitStatus)
		fmt.Fprint(w, b.submitBody)
	})

	mux.HandleFunc("/whisper-status", func(w http.ResponseWriter, r *http.Request) {
		call := b.statusCalls.Add(1)
		assert.NotEmpty(b.t, r.URL.Query().Get("whisper_hash"))

		index := int(call) - 1
		if index >= len(b.statusSequence) {
			index = len(b.statusSequence) - 1
		}

		status := b.statusSequence[index]
		if status == "500" {
			w.WriteHeader(http.StatusInternalServerError)
			fmt.Fprint(w, `{"message": "status lookup failed"}`)
			return
		}

		fmt.Fprintf(w, `{"status": %q}`, status)
	})

	mux.HandleFunc("/whisper-retrieve", func(w http.ResponseWriter, r *http.Request) {
		assert.NotEmpty(b.t, r.URL.Query().Get("whisper_hash"))

		if b.retrieveStatus != 0 && b.retrieveStatus != http.StatusOK {
			w.WriteHeader(b.retrieveStatus)
			fmt.Fprint(w, `{"message": "retrieve failed"}`)
			return
		}
		fmt.Fprint(w, b.retrieveBody)
	})

	return httptest.NewServer(mux)
}

func TestWhisperSyncCompletion(t *testing.T) {
	tests := []struct {
		name         string
		submitBody   string
		submitHeader map[string]string
		wantHash     string
	}{
		{
			name:       "handle in structured body",
			submitBody: `{"whisper_hash": "aa11|bb22", "result_text": "hello world"}`,
			wantHash:   "aa11|bb22",
		},
		{
			name:         "handle falls back to response header",
			submitBody:   `{"result_text": "hello world"}`,
			submitHeader: map[string]string{"whisper-hash": "cc33|dd44"},
			wantHash:     "cc33|dd44",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			backend := &whisperBackend{
				t:            t,
				submitStatus: http.StatusOK,
				submitBody:   tt.submitBody,
				submitHeader: tt.submitHeader,
			}
			server := backend.server()
			defer server.Close()

			client := newTestClient(t, server.URL)

			result, err := client.Whisper(context.Background(), &WhisperRequest{
				URL: "https://example.com/doc.pdf",
			})
			require.NoError(t, err)

			assert.Equal(t, http.StatusOK, result.StatusCode)
			assert.Equal(t, StatusProcessed, result.Status)
			assert.Equal(t, tt.wantHash, result.WhisperHash)
			assert.Equal(t, "hello world", result.Extraction.ResultText)
		})
	}
}

func TestWhisperAcceptedWithoutWait(t *testing.T) {
	backend := &whisperBackend{
		t:            t,
		submitStatus: http.StatusAccepted,
		submitBody:   `{"message": "whisper operation initiated", "status": "processing", "whisper_hash": "ee55|ff66"}`,
	}
	server := backend.server()
	defer server.Close()

	client := newTestClient(t, server.URL)

	result, err := client.Whisper(context.Background(), &WhisperRequest{
		URL:  "https://example.com/doc.pdf",
		Mode: ModeLowCost,
	})
	require.NoError(t, err)

	assert.Equal(t, http.StatusAccepted, result.StatusCode)
	assert.Equal(t, StatusProcessing, result.Status)
	assert.Equal(t, "ee55|ff66", result.WhisperHash)
	assert.Empty(t, result.Extraction.ResultText)
	assert.Equal(t, int64(0), backend.statusCalls.Load(), "no polling without wait")
}

func TestWhisperRemoteError(t *testing.T) {
	backend := &whisperBackend{
		t:            t,
		submitStatus: http.StatusPaymentRequired,
		submitBody:   `{"message": "page quota exhausted"}`,
	}
	server := backend.server()
	defer server.Close()

	client := newTestClient(t, server.URL)

	result, err := client.Whisper(context.Background(), &WhisperRequest{
		URL: "https://example.com/doc.pdf",
	})
	require.Error(t, err)
	assert.Nil(t, result)

	var remoteErr *RemoteError
	require.ErrorAs(t, err, &remoteErr)
	assert.Equal(t, http.StatusPaymentRequired, remoteErr.StatusCode)
	assert.Equal(t, "page quota exhausted", remoteErr.Message)
}

func TestWhisperValidationBeforeNetwork(t *testing.T) {
	backend := &whisperBackend{t: t, submitStatus: http.StatusOK}
	server := backend.server()
	defer server.Close()

	client := newTestClient(t, server.URL)

	result, err := client.Whisper(context.Background(), &WhisperRequest{})
	require.Error(t, err)
	assert.Nil(t, result)

	var validationErr *ValidationError
	assert.ErrorAs(t, err, &validationErr)
	assert.Equal(t, int64(0), backend.submitCalls.Load(), "no request may be attempted")
}

func TestWhisperFileSubmission(t *testing.T) {
	content := []byte("%PDF-1.4 fake document body")
	path := filepath.Join(t.TempDir(), "credit_card.pdf")
	require.NoError(t, os.WriteFile(path, content, 0o644))

	mux := http.NewServeMux()
	mux.HandleFunc("/whisper", func(w http.ResponseWriter, r *http.Request) {
		body, err := os.ReadFile(path)
		require.NoError(t, err)

		received, readErr := io.ReadAll(r.Body)
		require.NoError(t, readErr)

		assert.Equal(t, int64(len(body)), r.ContentLength)
		assert.Equal(t, "application/octet-stream", r.Header.Get("Content-Type"))
		assert.Equal(t, body, received)
		assert.Equal(t, "credit_card.pdf", r.URL.Query().Get("file_name"))
		assert.Empty(t, r.URL.Query().Get("url"))

		w.WriteHeader(http.StatusAccepted)
		fmt.Fprint(w, `{"status": "processing", "whisper_hash": "gg77|hh88"}`)
	})
	server := httptest.NewServer(mux)
	defer server.Close()

	client := newTestClient(t, server.URL)

	result, err := client.Whisper(context.Background(), &WhisperRequest{FilePath: path})
	require.NoError(t, err)
	assert.Equal(t, "gg77|hh88", result.WhisperHash)
}

func TestWaitForCompletionSuccess(t *testing.T) {
	// The mock reports processing twice before turning processed, so the
	// client must poll exactly twice before the retrieval.
	backend := &whisperBackend{
		t:              t,
		submitStatus:   http.StatusAccepted,
		submitBody:     `{"status": "processing", "whisper_hash": "ii99|jj00"}`,
		statusSequence: []string{"processing", "processing", "processed"},
		retrieveBody:   `{"result_text": "<text>", "webhook_metadata": ""}`,
	}
	server := backend.server()
	defer server.Close()

	client := newTestClient(t, server.URL)

	result, err := client.Whisper(context.Background(), &WhisperRequest{
		FileName:          "credit_card.pdf",
		URL:               "https://example.com/credit_card.pdf",
		WaitForCompletion: true,
		WaitTimeout:       120,
	})
	require.NoError(t, err)

	assert.Equal(t, http.StatusOK, result.StatusCode)
	assert.Equal(t, StatusProcessed, result.Status)
	assert.Equal(t, "<text>", result.Extraction.ResultText)
	assert.Equal(t, int64(3), backend.statusCalls.Load())

	// The waited result must match a direct retrieval of the same handle.
	direct, err := client.Retrieve(context.Background(), result.WhisperHash)
	require.NoError(t, err)
	assert.Equal(t, direct.Extraction, result.Extraction)
	assert.Equal(t, direct.StatusCode, result.StatusCode)
}

func TestWaitForCompletionTerminalFailure(t *testing.T) {
	tests := []struct {
		name   string
		status string
	}{
		{name: "current vocabulary", status: "failed"},
		{name: "legacy vocabulary", status: "error"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			backend := &whisperBackend{
				t:              t,
				submitStatus:   http.StatusAccepted,
				submitBody:     `{"status": "processing", "whisper_hash": "kk11|ll22"}`,
				statusSequence: []string{"processing", tt.status},
			}
			server := backend.server()
			defer server.Close()

			client := newTestClient(t, server.URL)

			result, err := client.Whisper(context.Background(), &WhisperRequest{
				URL:               "https://example.com/doc.pdf",
				WaitForCompletion: true,
				WaitTimeout:       120,
			})
			require.NoError(t, err, "terminal failure is a result, not an error")

			assert.Equal(t, FailureStatusCode, result.StatusCode)
			assert.Equal(t, Status(tt.status), result.Status)
			assert.NotEmpty(t, result.Message)
			assert.Empty(t, result.Extraction.ResultText)
		})
	}
}

func TestWaitForCompletionDeliveredAborts(t *testing.T) {
	backend := &whisperBackend{
		t:              t,
		submitStatus:   http.StatusAccepted,
		submitBody:     `{"status": "processing", "whisper_hash": "mm33|nn44"}`,
		statusSequence: []string{"delivered"},
	}
	server := backend.server()
	defer server.Close()

	client := newTestClient(t, server.URL)

	result, err := client.Whisper(context.Background(), &WhisperRequest{
		URL:               "https://example.com/doc.pdf",
		WaitForCompletion: true,
		WaitTimeout:       120,
	})
	require.Error(t, err)
	assert.Nil(t, result)

	var remoteErr *RemoteError
	require.ErrorAs(t, err, &remoteErr)
	assert.Contains(t, remoteErr.Message, "can no longer be retrieved")
}

func TestWaitForCompletionTimeout(t *testing.T) {
	backend := &whisperBackend{
		t:              t,
		statusSequence: []string{"processing"},
	}
	server := backend.server()
	defer server.Close()

	client := newTestClient(t, server.URL)

	budget := 30 * time.Millisecond
	start := time.Now()

	result, err := client.WaitForCompletion(context.Background(), "oo55|pp66", budget)
	elapsed := time.Since(start)

	require.NoError(t, err, "budget exhaustion is a result, not an error")
	assert.Equal(t, FailureStatusCode, result.StatusCode)
	assert.Equal(t, timeoutMessage, result.Message)
	assert.Equal(t, "oo55|pp66", result.WhisperHash)
	assert.Empty(t, result.Extraction.ResultText)

	// Bounded overshoot: at most one poll interval past the budget, plus
	// scheduling slack.
	assert.Less(t, elapsed, budget+client.pollInterval+100*time.Millisecond)
}

func TestWaitForCompletionStatusCallFatal(t *testing.T) {
	backend := &whisperBackend{
		t:              t,
		statusSequence: []string{"processing", "500"},
	}
	server := backend.server()
	defer server.Close()

	client := newTestClient(t, server.URL)

	result, err := client.WaitForCompletion(context.Background(), "qq77|rr88", time.Minute)
	require.NoError(t, err)

	assert.Equal(t, FailureStatusCode, result.StatusCode)
	assert.Equal(t, "status lookup failed", result.Message)
	assert.Empty(t, result.Extraction.ResultText)
}

func TestWaitForCompletionCancellation(t *testing.T) {
	backend := &whisperBackend{
		t:              t,
		statusSequence: []string{"processing"},
	}
	server := backend.server()
	defer server.Close()

	client := newTestClient(t, server.URL)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	result, err := client.WaitForCompletion(ctx, "ss99|tt00", time.Minute)
	require.Error(t, err)
	assert.Nil(t, result)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestStatusIdempotentOnTerminalJob(t *testing.T) {
	backend := &whisperBackend{
		t:              t,
		statusSequence: []string{"processed"},
	}
	server := backend.server()
	defer server.Close()

	client := newTestClient(t, server.URL)

	for i := 0; i < 3; i++ {
		sr, err := client.Status(context.Background(), "uu11|vv22")
		require.NoError(t, err)
		assert.Equal(t, StatusProcessed, sr.Status)
		assert.True(t, sr.Status.IsTerminal())
	}
}

func TestTransportError(t *testing.T) {
	server := httptest.NewServer(http.NotFoundHandler())
	serverURL := server.URL
	server.Close() // connection refused from here on

	client := newTestClient(t, serverURL)

	result, err := client.Whisper(context.Background(), &WhisperRequest{
		URL: "https://example.com/doc.pdf",
	})
	require.Error(t, err)
	assert.Nil(t, result)

	var transportErr *TransportError
	require.ErrorAs(t, err, &transportErr)
	assert.NotNil(t, transportErr.Unwrap())
}

func TestJobResultSingleStatusCodeField(t *testing.T) {
	result := &JobResult{
		StatusCode:  http.StatusOK,
		Status:      StatusProcessed,
		WhisperHash: "ww33|xx44",
	}

	raw, err := json.Marshal(result)
	require.NoError(t, err)

	var fields map[string]json.RawMessage
	require.NoError(t, json.Unmarshal(raw, &fields))

	assert.Contains(t, fields, "status_code")
	for _, legacy := range []string{"statusCode", "status-code", "code"} {
		assert.NotContains(t, fields, legacy)
	}
}

func TestStatusVocabulary(t *testing.T) {
	tests := []struct {
		status      Status
		terminal    bool
		retrievable bool
	}{
		{status: StatusAccepted, terminal: false, retrievable: false},
		{status: StatusProcessing, terminal: false, retrievable: false},
		{status: StatusProcessed, terminal: true, retrievable: true},
		{status: StatusDelivered, terminal: true, retrievable: false},
		{status: StatusUnknown, terminal: true, retrievable: false},
		{status: StatusError, terminal: true, retrievable: false},
		{status: StatusFailed, terminal: true, retrievable: false},
	}

	for _, tt := range tests {
		t.Run(string(tt.status), func(t *testing.T) {
			assert.Equal(t, tt.terminal, tt.status.IsTerminal())
			assert.Equal(t, tt.retrievable, tt.status.Retrievable())
		})
	}
}
