package whisper

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWhisperRequestValidate(t *testing.T) {
	tests := []struct {
		name      string
		request   *WhisperRequest
		wantErr   bool
		errString string
	}{
		{
			name:      "missing both sources",
			request:   &WhisperRequest{},
			wantErr:   true,
			errString: "either FilePath or URL",
		},
		{
			name: "both sources supplied",
			request: &WhisperRequest{
				FilePath: "invoice.pdf",
				URL:      "https://example.com/invoice.pdf",
			},
			wantErr:   true,
			errString: "mutually exclusive",
		},
		{
			name: "negative wait timeout",
			request: &WhisperRequest{
				FilePath:    "invoice.pdf",
				WaitTimeout: -1,
			},
			wantErr:   true,
			errString: "out of range",
		},
		{
			name: "wait timeout above maximum",
			request: &WhisperRequest{
				FilePath:    "invoice.pdf",
				WaitTimeout: 201,
			},
			wantErr:   true,
			errString: "out of range",
		},
		{
			name: "valid file source",
			request: &WhisperRequest{
				FilePath:    "invoice.pdf",
				WaitTimeout: 120,
			},
			wantErr: false,
		},
		{
			name: "valid url source",
			request: &WhisperRequest{
				URL: "https://example.com/invoice.pdf",
			},
			wantErr: false,
		},
		{
			name: "wait timeout at maximum",
			request: &WhisperRequest{
				URL:         "https://example.com/invoice.pdf",
				WaitTimeout: MaxWaitTimeout,
			},
			wantErr: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.request.validate()

			if tt.wantErr {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.errString)

				var validationErr *ValidationError
				assert.ErrorAs(t, err, &validationErr)
			} else {
				require.NoError(t, err)
			}
		})
	}
}

func TestWhisperRequestQueryParams(t *testing.T) {
	t.Run("all fields mapped to wire names", func(t *testing.T) {
		req := &WhisperRequest{
			URL:                     "https://example.com/doc.pdf",
			Mode:                    ModeHighQuality,
			OutputMode:              OutputModeLayoutPreserving,
			PagesToExtract:          "1-3,7",
			PageSeparator:           "<<<page>>>",
			MedianFilterSize:        3,
			GaussianBlurRadius:      2,
			LineSplitterTolerance:   0.4,
			LineSplitterStrategy:    "left-priority",
			HorizontalStretchFactor: 1.1,
			MarkVerticalLines:       true,
			MarkHorizontalLines:     true,
			Lang:                    "eng",
			Tag:                     "invoices",
			FileName:                "doc.pdf",
			UseWebhook:              "hook1",
			WebhookMetadata:         "batch-42",
		}

		params := req.queryParams()

		assert.Equal(t, "https://example.com/doc.pdf", params.Get("url"))
		assert.Equal(t, "high_quality", params.Get("mode"))
		assert.Equal(t, "layout_preserving", params.Get("output_mode"))
		assert.Equal(t, "1-3,7", params.Get("pages_to_extract"))
		assert.Equal(t, "<<<page>>>", params.Get("page_separator"))
		assert.Equal(t, "3", params.Get("median_filter_size"))
		assert.Equal(t, "2", params.Get("gaussian_blur_radius"))
		assert.Equal(t, "0.4", params.Get("line_splitter_tolerance"))
		assert.Equal(t, "left-priority", params.Get("line_splitter_strategy"))
		assert.Equal(t, "1.1", params.Get("horizontal_stretch_factor"))
		assert.Equal(t, "true", params.Get("mark_vertical_lines"))
		assert.Equal(t, "true", params.Get("mark_horizontal_lines"))
		assert.Equal(t, "eng", params.Get("lang"))
		assert.Equal(t, "invoices", params.Get("tag"))
		assert.Equal(t, "doc.pdf", params.Get("file_name"))
		assert.Equal(t, "hook1", params.Get("use_webhook"))
		assert.Equal(t, "batch-42", params.Get("webhook_metadata"))
	})

	t.Run("zero values omitted", func(t *testing.T) {
		req := &WhisperRequest{URL: "https://example.com/doc.pdf"}

		params := req.queryParams()

		assert.Len(t, params, 1)
		assert.Equal(t, "https://example.com/doc.pdf", params.Get("url"))
	})

	t.Run("local file sends no url parameter", func(t *testing.T) {
		req := &WhisperRequest{FilePath: "/tmp/doc.pdf", Mode: ModeNativeText}

		params := req.queryParams()

		assert.Empty(t, params.Get("url"))
		assert.Equal(t, "native_text", params.Get("mode"))
	})
}

func TestWhisperRequestWaitBudget(t *testing.T) {
	tests := []struct {
		name    string
		timeout int
		want    int
	}{
		{name: "explicit timeout", timeout: 60, want: 60},
		{name: "zero falls back to default", timeout: 0, want: DefaultWaitTimeout},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := &WhisperRequest{URL: "https://example.com/doc.pdf", WaitTimeout: tt.timeout}
			assert.Equal(t, tt.want, req.waitBudget())
		})
	}
}
