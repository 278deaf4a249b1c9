package whisper

import "encoding/json"

// Status represents the remote-reported state of a whisper job. The
// label set below is the current API vocabulary; the older single
// endpoint reported "error" where the current one reports "failed", so
// both are recognized as terminal failures.
type Status string

const (
	StatusAccepted   Status = "accepted"
	StatusProcessing Status = "processing"
	StatusProcessed  Status = "processed"
	StatusDelivered  Status = "delivered"
	StatusUnknown    Status = "unknown"
	StatusError      Status = "error"
	StatusFailed     Status = "failed"
)

// IsTerminal reports whether no further state transition can occur.
func (s Status) IsTerminal() bool {
	switch s {
	case StatusProcessed, StatusDelivered, StatusUnknown, StatusError, StatusFailed:
		return true
	}
	return false
}

// Retrievable reports whether the extraction payload can still be
// fetched. A delivered or unknown job is terminal but its payload is
// gone.
func (s Status) Retrievable() bool {
	return s == StatusProcessed
}

// StatusResponse is the answer to a status check, with the HTTP status
// code of the call attached.
type StatusResponse struct {
	WhisperHash string `json:"whisper_hash,omitempty"`
	Status      Status `json:"status"`
	Message     string `json:"message,omitempty"`
	StatusCode  int    `json:"status_code"`
}

// Extraction holds the extracted content of a processed job. It stays
// empty until the job reaches terminal success.
type Extraction struct {
	ResultText         string            `json:"result_text"`
	ConfidenceMetadata []json.RawMessage `json:"confidence_metadata,omitempty"`
	LineMetadata       []json.RawMessage `json:"line_metadata,omitempty"`
	Metadata           json.RawMessage   `json:"metadata,omitempty"`
	WebhookMetadata    string            `json:"webhook_metadata,omitempty"`
}

// JobResult is the normalized response returned to the caller for
// submissions and retrievals, regardless of whether the sync or async
// path produced it. StatusCode is the only status-code field; the
// legacy field name used by the old submit endpoint never surfaces.
type JobResult struct {
	StatusCode  int        `json:"status_code"`
	Status      Status     `json:"status,omitempty"`
	Message     string     `json:"message,omitempty"`
	WhisperHash string     `json:"whisper_hash,omitempty"`
	Extraction  Extraction `json:"extraction"`
}

// WebhookRegistration is the named callback record managed on the
// service. No local copy is retained; the remote side is the source of
// truth.
type WebhookRegistration struct {
	URL         string `json:"url"`
	AuthToken   string `json:"auth_token"`
	WebhookName string `json:"webhook_name"`
}

// WebhookDetails is a fetched registration with the HTTP status code of
// the call attached.
type WebhookDetails struct {
	WebhookRegistration
	StatusCode int `json:"status_code"`
}

// WebhookResult reports the outcome of a webhook create/update/delete.
type WebhookResult struct {
	StatusCode int    `json:"status_code"`
	Message    string `json:"message,omitempty"`
}

// Highlight is the positional metadata of a single extracted line.
type Highlight struct {
	Page          int     `json:"page"`
	PageHeight    int     `json:"page_height"`
	BaseY         int     `json:"base_y"`
	BaseYPercent  float64 `json:"base_y_percent"`
	Height        int     `json:"height"`
	HeightPercent float64 `json:"height_percent"`
	BBox          []int   `json:"bbox,omitempty"`
}

// UsageInfo is the account usage snapshot from the usage endpoint.
type UsageInfo struct {
	CurrentPageCount int    `json:"current_page_count"`
	TodayPageCount   int    `json:"today_page_count"`
	OveragePageCount int    `json:"overage_page_count"`
	DailyQuota       int    `json:"daily_quota"`
	MonthlyQuota     int    `json:"monthly_quota"`
	SubscriptionPlan string `json:"subscription_plan"`
}

// acceptedResponse is the raw 202 body of an async submission: a job
// handle and an initial status, no extraction content.
type acceptedResponse struct {
	Message     string `json:"message"`
	Status      Status `json:"status"`
	WhisperHash string `json:"whisper_hash"`
}

// syncResponse is the raw 200 body of an inline-completed submission:
// the extraction itself with the job handle alongside. Older deployments
// put the handle in a response header instead; Whisper falls back to it
// when the body carries none.
type syncResponse struct {
	Extraction
	WhisperHash string `json:"whisper_hash"`
}

// remoteErrorBody is the error shape the service uses for non-success
// responses. Additional fields are ignored.
type remoteErrorBody struct {
	Message string `json:"message"`
}
