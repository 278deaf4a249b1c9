package whisper

import (
	"fmt"
	"io"
	"net/url"
	"os"
	"strconv"
)

// Processing modes accepted by the whisper endpoint.
const (
	ModeNativeText  = "native_text"
	ModeLowCost     = "low_cost"
	ModeHighQuality = "high_quality"
	ModeForm        = "form"
)

// Output modes accepted by the whisper endpoint.
const (
	OutputModeLayoutPreserving = "layout_preserving"
	OutputModeText             = "text"
)

// Bounds on the wait-for-completion budget, in seconds.
const (
	MinWaitTimeout     = 0
	MaxWaitTimeout     = 200
	DefaultWaitTimeout = 180
)

// WhisperRequest configures one extraction job. Exactly one of FilePath
// and URL must be set: a local file is streamed as the request body, a
// remote URL is fetched by the service itself.
type WhisperRequest struct {
	FilePath string
	URL      string

	Mode                    string
	OutputMode              string
	PagesToExtract          string
	PageSeparator           string
	MedianFilterSize        int
	GaussianBlurRadius      int
	LineSplitterTolerance   float64
	LineSplitterStrategy    string
	HorizontalStretchFactor float64
	MarkVerticalLines       bool
	MarkHorizontalLines     bool
	Lang                    string
	Tag                     string
	FileName                string
	UseWebhook              string
	WebhookMetadata         string

	// WaitForCompletion blocks the submission until the job reaches a
	// terminal state or WaitTimeout seconds elapse.
	WaitForCompletion bool
	WaitTimeout       int
}

// validate enforces local preconditions before any network call.
func (r *WhisperRequest) validate() error {
	if r.FilePath == "" && r.URL == "" {
		return &ValidationError{Message: "either FilePath or URL must be provided"}
	}
	if r.FilePath != "" && r.URL != "" {
		return &ValidationError{Message: "FilePath and URL are mutually exclusive"}
	}
	if r.WaitTimeout < MinWaitTimeout || r.WaitTimeout > MaxWaitTimeout {
		return &ValidationError{Message: fmt.Sprintf("WaitTimeout %d out of range [%d, %d]", r.WaitTimeout, MinWaitTimeout, MaxWaitTimeout)}
	}
	return nil
}

// waitBudget returns the effective wait timeout in seconds.
func (r *WhisperRequest) waitBudget() int {
	if r.WaitTimeout > 0 {
		return r.WaitTimeout
	}
	return DefaultWaitTimeout
}

// queryParams maps the request fields to their wire names. The mapping
// is a fixed table; zero values are omitted and the service applies its
// own defaults.
func (r *WhisperRequest) queryParams() url.Values {
	v := url.Values{}

	if r.URL != "" {
		v.Set("url", r.URL)
	}
	if r.Mode != "" {
		v.Set("mode", r.Mode)
	}
	if r.OutputMode != "" {
		v.Set("output_mode", r.OutputMode)
	}
	if r.PagesToExtract != "" {
		v.Set("pages_to_extract", r.PagesToExtract)
	}
	if r.PageSeparator != "" {
		v.Set("page_separator", r.PageSeparator)
	}
	if r.MedianFilterSize > 0 {
		v.Set("median_filter_size", strconv.Itoa(r.MedianFilterSize))
	}
	if r.GaussianBlurRadius > 0 {
		v.Set("gaussian_blur_radius", strconv.Itoa(r.GaussianBlurRadius))
	}
	if r.LineSplitterTolerance > 0 {
		v.Set("line_splitter_tolerance", strconv.FormatFloat(r.LineSplitterTolerance, 'f', -1, 64))
	}
	if r.LineSplitterStrategy != "" {
		v.Set("line_splitter_strategy", r.LineSplitterStrategy)
	}
	if r.HorizontalStretchFactor > 0 {
		v.Set("horizontal_stretch_factor", strconv.FormatFloat(r.HorizontalStretchFactor, 'f', -1, 64))
	}
	if r.MarkVerticalLines {
		v.Set("mark_vertical_lines", "true")
	}
	if r.MarkHorizontalLines {
		v.Set("mark_horizontal_lines", "true")
	}
	if r.Lang != "" {
		v.Set("lang", r.Lang)
	}
	if r.Tag != "" {
		v.Set("tag", r.Tag)
	}
	if r.FileName != "" {
		v.Set("file_name", r.FileName)
	}
	if r.UseWebhook != "" {
		v.Set("use_webhook", r.UseWebhook)
	}
	if r.WebhookMetadata != "" {
		v.Set("webhook_metadata", r.WebhookMetadata)
	}

	return v
}

// openSourceFile opens the local source read-only and reports its exact
// size so the body can be sent with a known Content-Length instead of
// being buffered. Failures are validation errors: no network call has
// happened yet.
func openSourceFile(path string) (io.ReadCloser, int64, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, 0, &ValidationError{Message: fmt.Sprintf("failed to open source file: %v", err)}
	}

	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, 0, &ValidationError{Message: fmt.Sprintf("failed to stat source file: %v", err)}
	}

	return f, info.Size(), nil
}
