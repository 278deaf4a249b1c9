package whisper

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
)

const webhookPath = "/whisper-manage-callback"

// RegisterWebhook creates a named callback registration on the service.
func (c *Client) RegisterWebhook(ctx context.Context, targetURL, authToken, webhookName string) (*WebhookResult, error) {
	return c.sendWebhook(ctx, http.MethodPost, targetURL, authToken, webhookName)
}

// UpdateWebhook replaces the URL and auth token of an existing
// registration.
func (c *Client) UpdateWebhook(ctx context.Context, targetURL, authToken, webhookName string) (*WebhookResult, error) {
	return c.sendWebhook(ctx, http.MethodPut, targetURL, authToken, webhookName)
}

// GetWebhookDetails fetches a registration by name.
func (c *Client) GetWebhookDetails(ctx context.Context, webhookName string) (*WebhookDetails, error) {
	query := url.Values{"webhook_name": []string{webhookName}}

	status, _, raw, err := c.do(ctx, http.MethodGet, webhookPath, query, nil, 0, "")
	if err != nil {
		return nil, err
	}
	if status != http.StatusOK {
		return nil, remoteError(status, raw)
	}

	var details WebhookDetails
	if err := json.Unmarshal(raw, &details); err != nil {
		return nil, fmt.Errorf("failed to decode webhook details: %w", err)
	}
	details.StatusCode = status

	return &details, nil
}

// DeleteWebhook removes a registration by name.
func (c *Client) DeleteWebhook(ctx context.Context, webhookName string) (*WebhookResult, error) {
	query := url.Values{"webhook_name": []string{webhookName}}

	status, _, raw, err := c.do(ctx, http.MethodDelete, webhookPath, query, nil, 0, "")
	if err != nil {
		return nil, err
	}
	if status < http.StatusOK || status >= http.StatusMultipleChoices {
		return nil, remoteError(status, raw)
	}

	return webhookResult(status, raw), nil
}

// sendWebhook issues a create or update with the registration as JSON
// body. Both calls share the same endpoint and response handling.
func (c *Client) sendWebhook(ctx context.Context, method, targetURL, authToken, webhookName string) (*WebhookResult, error) {
	registration := WebhookRegistration{
		URL:         targetURL,
		AuthToken:   authToken,
		WebhookName: webhookName,
	}

	payload, err := json.Marshal(registration)
	if err != nil {
		return nil, fmt.Errorf("failed to encode webhook registration: %w", err)
	}

	status, _, raw, err := c.do(ctx, method, webhookPath, nil, bytes.NewReader(payload), int64(len(payload)), "application/json")
	if err != nil {
		return nil, err
	}
	if status < http.StatusOK || status >= http.StatusMultipleChoices {
		return nil, remoteError(status, raw)
	}

	return webhookResult(status, raw), nil
}

// webhookResult attaches the HTTP status code to a success response.
func webhookResult(status int, raw []byte) *WebhookResult {
	result := WebhookResult{StatusCode: status}

	var body remoteErrorBody
	if err := json.Unmarshal(raw, &body); err == nil {
		result.Message = body.Message
	}

	return &result
}
