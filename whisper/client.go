package whisper

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/cuongbtq/whisper-go/shared/logger"
)

// Environment variables recognized at client construction. Explicit
// Config values always take precedence.
const (
	EnvBaseURL        = "WHISPER_BASE_URL"
	EnvAPIKey         = "WHISPER_API_KEY"
	EnvRequestTimeout = "WHISPER_REQUEST_TIMEOUT"
	EnvLogLevel       = "WHISPER_LOG_LEVEL"
)

const (
	// DefaultBaseURL is the production endpoint of the whisper service.
	DefaultBaseURL = "https://api.whisperextract.io/api/v2"

	// apiKeyHeader carries the API key on every request.
	apiKeyHeader = "whisper-key"

	defaultRequestTimeout = 120 * time.Second
	defaultPollInterval   = 5 * time.Second
)

// Config holds client configuration. Zero values fall back to the
// corresponding environment variable, then to the built-in default.
type Config struct {
	BaseURL        string
	APIKey         string
	RequestTimeout time.Duration // per-request network timeout
	PollInterval   time.Duration // delay between completion polls
	LogLevel       string        // debug, info, warn, error

	// Logger overrides the tint console logger built from LogLevel.
	Logger *slog.Logger

	// HTTPClient overrides the default transport. The RequestTimeout
	// field is ignored when a custom client is supplied.
	HTTPClient *http.Client
}

// Client is the whisper job client. It keeps no mutable state across
// calls and is safe for concurrent use.
type Client struct {
	baseURL      string
	apiKey       string
	pollInterval time.Duration
	httpClient   *http.Client
	logger       *slog.Logger
}

// NewClient creates a whisper client, resolving environment overrides
// once. An API key is required, from Config or WHISPER_API_KEY.
func NewClient(cfg Config) (*Client, error) {
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = os.Getenv(EnvBaseURL)
	}
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	baseURL = strings.TrimRight(baseURL, "/")

	apiKey := cfg.APIKey
	if apiKey == "" {
		apiKey = os.Getenv(EnvAPIKey)
	}
	if apiKey == "" {
		return nil, &ValidationError{Message: "api key is required (Config.APIKey or " + EnvAPIKey + ")"}
	}

	requestTimeout := cfg.RequestTimeout
	if requestTimeout == 0 {
		if raw := os.Getenv(EnvRequestTimeout); raw != "" {
			seconds, err := strconv.Atoi(raw)
			if err != nil {
				return nil, &ValidationError{Message: fmt.Sprintf("invalid %s value %q", EnvRequestTimeout, raw)}
			}
			requestTimeout = time.Duration(seconds) * time.Second
		}
	}
	if requestTimeout == 0 {
		requestTimeout = defaultRequestTimeout
	}

	pollInterval := cfg.PollInterval
	if pollInterval == 0 {
		pollInterval = defaultPollInterval
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: requestTimeout}
	}

	log := cfg.Logger
	if log == nil {
		level := cfg.LogLevel
		if level == "" {
			level = os.Getenv(EnvLogLevel)
		}
		appLogger, err := logger.New(&logger.Config{Level: level, Format: "console"})
		if err != nil {
			return nil, fmt.Errorf("failed to initialize logger: %w", err)
		}
		log = appLogger.Logger
	}

	return &Client{
		baseURL:      baseURL,
		apiKey:       apiKey,
		pollInterval: pollInterval,
		httpClient:   httpClient,
		logger:       log,
	}, nil
}

// do issues one request against the service and reads the full response
// body. Network-level failures come back as *TransportError; non-2xx
// responses are returned as-is for the caller to interpret.
func (c *Client) do(ctx context.Context, method, path string, query url.Values, body io.Reader, contentLength int64, contentType string) (int, http.Header, []byte, error) {
	endpoint := c.baseURL + path
	if len(query) > 0 {
		endpoint += "?" + query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, body)
	if err != nil {
		return 0, nil, nil, fmt.Errorf("failed to build request: %w", err)
	}

	req.Header.Set(apiKeyHeader, c.apiKey)
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	if contentLength > 0 {
		req.ContentLength = contentLength
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Error("Request failed",
			slog.String("method", method),
			slog.String("path", path),
			slog.Any("error", err),
		)
		return 0, nil, nil, &TransportError{Err: err}
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return 0, nil, nil, &TransportError{Err: err}
	}

	c.logger.Debug("Request completed",
		slog.String("method", method),
		slog.String("path", path),
		slog.Int("status", resp.StatusCode),
		slog.Int("body_size", len(raw)),
	)

	return resp.StatusCode, resp.Header, raw, nil
}
