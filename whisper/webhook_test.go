package whisper

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// webhookBackend keeps registrations in memory, keyed by name, the way
// the management endpoint behaves.
type webhookBackend struct {
	mu    sync.Mutex
	hooks map[string]WebhookRegistration
}

func (b *webhookBackend) server(t *testing.T) *httptest.Server {
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/whisper-manage-callback", r.URL.Path)

		b.mu.Lock()
		defer b.mu.Unlock()

		switch r.Method {
		case http.MethodPost, http.MethodPut:
			var registration WebhookRegistration
			require.NoError(t, json.NewDecoder(r.Body).Decode(&registration))

			_, exists := b.hooks[registration.WebhookName]
			b.hooks[registration.WebhookName] = registration

			if r.Method == http.MethodPost && !exists {
				w.WriteHeader(http.StatusCreated)
			}
			fmt.Fprint(w, `{"message": "ok"}`)

		case http.MethodGet:
			name := r.URL.Query().Get("webhook_name")
			registration, ok := b.hooks[name]
			if !ok {
				w.WriteHeader(http.StatusNotFound)
				fmt.Fprint(w, `{"message": "webhook not found"}`)
				return
			}
			require.NoError(t, json.NewEncoder(w).Encode(registration))

		case http.MethodDelete:
			name := r.URL.Query().Get("webhook_name")
			if _, ok := b.hooks[name]; !ok {
				w.WriteHeader(http.StatusNotFound)
				fmt.Fprint(w, `{"message": "webhook not found"}`)
				return
			}
			delete(b.hooks, name)
			fmt.Fprint(w, `{"message": "deleted"}`)
		}
	}))
}

func TestWebhookLifecycle(t *testing.T) {
	backend := &webhookBackend{hooks: make(map[string]WebhookRegistration)}
	server := backend.server(t)
	defer server.Close()

	client := newTestClient(t, server.URL)
	ctx := context.Background()

	// Register
	created, err := client.RegisterWebhook(ctx, "https://hook/x", "", "name1")
	require.NoError(t, err)
	assert.Equal(t, http.StatusCreated, created.StatusCode)

	// Fetch
	details, err := client.GetWebhookDetails(ctx, "name1")
	require.NoError(t, err)
	assert.Equal(t, "https://hook/x", details.URL)
	assert.Equal(t, "", details.AuthToken)
	assert.Equal(t, "name1", details.WebhookName)
	assert.Equal(t, http.StatusOK, details.StatusCode)

	// Update
	updated, err := client.UpdateWebhook(ctx, "https://hook/y", "token-2", "name1")
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, updated.StatusCode)

	details, err = client.GetWebhookDetails(ctx, "name1")
	require.NoError(t, err)
	assert.Equal(t, "https://hook/y", details.URL)
	assert.Equal(t, "token-2", details.AuthToken)

	// Delete
	deleted, err := client.DeleteWebhook(ctx, "name1")
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, deleted.StatusCode)

	// Fetch after delete fails with the remote status attached
	details, err = client.GetWebhookDetails(ctx, "name1")
	require.Error(t, err)
	assert.Nil(t, details)

	var remoteErr *RemoteError
	require.ErrorAs(t, err, &remoteErr)
	assert.Equal(t, http.StatusNotFound, remoteErr.StatusCode)
	assert.Equal(t, "webhook not found", remoteErr.Message)
}

func TestWebhookRemoteErrors(t *testing.T) {
	tests := []struct {
		name string
		call func(ctx context.Context, client *Client) error
	}{
		{
			name: "register",
			call: func(ctx context.Context, client *Client) error {
				_, err := client.RegisterWebhook(ctx, "https://hook/x", "", "n")
				return err
			},
		},
		{
			name: "update",
			call: func(ctx context.Context, client *Client) error {
				_, err := client.UpdateWebhook(ctx, "https://hook/x", "", "n")
				return err
			},
		},
		{
			name: "delete",
			call: func(ctx context.Context, client *Client) error {
				_, err := client.DeleteWebhook(ctx, "n")
				return err
			},
		},
	}

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
		fmt.Fprint(w, `{"message": "invalid api key"}`)
	}))
	defer server.Close()

	client := newTestClient(t, server.URL)

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.call(context.Background(), client)
			require.Error(t, err)

			var remoteErr *RemoteError
			require.ErrorAs(t, err, &remoteErr)
			assert.Equal(t, http.StatusForbidden, remoteErr.StatusCode)
			assert.Equal(t, "invalid api key", remoteErr.Message)
		})
	}
}
