package whisper

import (
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// newTestClient builds a client pointed at a test server with a fast
// poll interval and silenced logging.
func newTestClient(t *testing.T, baseURL string) *Client {
	t.Helper()

	client, err := NewClient(Config{
		BaseURL:      baseURL,
		APIKey:       "test-key",
		PollInterval: 5 * time.Millisecond,
		Logger:       slog.New(slog.NewTextHandler(io.Discard, nil)),
	})
	require.NoError(t, err)

	return client
}

func TestNewClient(t *testing.T) {
	tests := []struct {
		name      string
		config    Config
		env       map[string]string
		wantErr   bool
		errString string
		checkFunc func(t *testing.T, client *Client)
	}{
		{
			name:      "missing api key",
			config:    Config{},
			env:       map[string]string{EnvAPIKey: ""},
			wantErr:   true,
			errString: "api key is required",
		},
		{
			name:   "api key from environment",
			config: Config{},
			env:    map[string]string{EnvAPIKey: "env-key", EnvBaseURL: ""},
			checkFunc: func(t *testing.T, client *Client) {
				assert.Equal(t, "env-key", client.apiKey)
				assert.Equal(t, DefaultBaseURL, client.baseURL)
			},
		},
		{
			name:   "explicit values win over environment",
			config: Config{APIKey: "explicit-key", BaseURL: "https://staging.example.com/v2"},
			env: map[string]string{
				EnvAPIKey:  "env-key",
				EnvBaseURL: "https://env.example.com/v2",
			},
			checkFunc: func(t *testing.T, client *Client) {
				assert.Equal(t, "explicit-key", client.apiKey)
				assert.Equal(t, "https://staging.example.com/v2", client.baseURL)
			},
		},
		{
			name:   "trailing slash trimmed from base url",
			config: Config{APIKey: "k", BaseURL: "https://api.example.com/v2/"},
			checkFunc: func(t *testing.T, client *Client) {
				assert.Equal(t, "https://api.example.com/v2", client.baseURL)
			},
		},
		{
			name:   "request timeout from environment",
			config: Config{APIKey: "k"},
			env:    map[string]string{EnvRequestTimeout: "30"},
			checkFunc: func(t *testing.T, client *Client) {
				assert.Equal(t, 30*time.Second, client.httpClient.Timeout)
			},
		},
		{
			name:      "invalid request timeout in environment",
			config:    Config{APIKey: "k"},
			env:       map[string]string{EnvRequestTimeout: "not-a-number"},
			wantErr:   true,
			errString: "invalid WHISPER_REQUEST_TIMEOUT",
		},
		{
			name:   "defaults applied",
			config: Config{APIKey: "k"},
			env:    map[string]string{EnvRequestTimeout: ""},
			checkFunc: func(t *testing.T, client *Client) {
				assert.Equal(t, defaultPollInterval, client.pollInterval)
				assert.Equal(t, defaultRequestTimeout, client.httpClient.Timeout)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for key, value := range tt.env {
				t.Setenv(key, value)
			}

			client, err := NewClient(tt.config)

			if tt.wantErr {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.errString)
				assert.Nil(t, client)
			} else {
				require.NoError(t, err)
				require.NotNil(t, client)
				if tt.checkFunc != nil {
					tt.checkFunc(t, client)
				}
			}
		})
	}
}
