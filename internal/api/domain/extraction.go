package domain

import (
	"errors"
)

const (
	ExtractionStatusPending   = "PENDING"
	ExtractionStatusRunning   = "RUNNING"
	ExtractionStatusCompleted = "COMPLETED"
	ExtractionStatusFailed    = "FAILED"
	ExtractionStatusCanceled  = "CANCELED"
)

var (
	ErrExtractionNotFound = errors.New("extraction not found")
)

// IsTerminalStatus reports whether an extraction can no longer change
// state. Only terminal extractions may be deleted.
func IsTerminalStatus(status string) bool {
	switch status {
	case ExtractionStatusCompleted, ExtractionStatusFailed, ExtractionStatusCanceled:
		return true
	}
	return false
}
