package publisher

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/jgoulah/energylog/internal/errs"
	"github.com/jgoulah/energylog/pkg/models"
)

// Webhook submits batches to the spreadsheet endpoint
type Webhook struct {
	url    string
	client *http.Client
}

// NewWebhook creates a webhook submitter. The client follows redirects, which
// is how hosted script endpoints hand back their response.
func NewWebhook(url string, timeout time.Duration) (*Webhook, error) {
	if strings.TrimSpace(url) == "" {
		return nil, errs.New(errs.KindConfiguration, "webhook url is required")
	}
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Webhook{
		url:    url,
		client: &http.Client{Timeout: timeout},
	}, nil
}

// Submit posts the whole batch in one request and classifies the response
func (w *Webhook) Submit(ctx context.Context, batch models.Batch) (models.SubmitResult, error) {
	body, err := json.Marshal(batch)
	if err != nil {
		return models.SubmitResult{}, fmt.Errorf("encoding payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, w.url, bytes.NewReader(body))
	if err != nil {
		return models.SubmitResult{}, errs.Wrap(errs.KindConfiguration, err, "creating request")
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := w.client.Do(req)
	if err != nil {
		return models.SubmitResult{}, errs.Wrap(errs.KindTransport, err, "posting to webhook")
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return models.SubmitResult{}, &errs.Error{
			Kind:       errs.KindTransport,
			Message:    "reading webhook response",
			StatusCode: resp.StatusCode,
			Err:        err,
		}
	}

	return Classify(resp.StatusCode, respBody)
}

// Classify interprets a webhook response. A JSON object body is authoritative
// through its success flag; anything else falls back to the status code,
// where 2xx and 405 are accepted as qualified successes.
func Classify(statusCode int, body []byte) (models.SubmitResult, error) {
	if parsed, ok := parseResponse(body); ok {
		if parsed.Success == nil || !*parsed.Success {
			msg := strings.TrimSpace(parsed.Error)
			if msg == "" {
				msg = strings.TrimSpace(parsed.Message)
			}
			if msg == "" {
				msg = "webhook reported failure without a message"
			}
			return models.SubmitResult{StatusCode: statusCode, Message: msg},
				&errs.Error{Kind: errs.KindSubmissionRejected, Message: msg, StatusCode: statusCode}
		}
		return models.SubmitResult{
			Success:    true,
			Message:    parsed.Message,
			Device:     parsed.Device,
			Sheet:      parsed.Sheet,
			RowsAdded:  int(parsed.RowsAdded),
			StatusCode: statusCode,
		}, nil
	}

	switch {
	case statusCode >= 200 && statusCode < 300:
		return models.SubmitResult{
			Success:    true,
			Qualified:  true,
			StatusCode: statusCode,
			Message:    fmt.Sprintf("webhook returned status %d without a JSON confirmation", statusCode),
		}, nil
	case statusCode == http.StatusMethodNotAllowed:
		return models.SubmitResult{
			Success:    true,
			Qualified:  true,
			StatusCode: statusCode,
			Message:    "webhook returned 405 after redirect; data is usually saved, verify the sheet manually",
		}, nil
	default:
		return models.SubmitResult{StatusCode: statusCode}, errs.Transport(statusCode, string(body))
	}
}

type response struct {
	Success   *bool   `json:"success"`
	Message   string  `json:"message"`
	Error     string  `json:"error"`
	Device    string  `json:"device"`
	Sheet     string  `json:"sheet"`
	RowsAdded float64 `json:"rows_added"`
}

func parseResponse(body []byte) (response, bool) {
	body = bytes.TrimSpace(body)
	if len(body) == 0 || body[0] != '{' {
		return response{}, false
	}
	var r response
	if err := json.Unmarshal(body, &r); err != nil {
		return response{}, false
	}
	return r, true
}
