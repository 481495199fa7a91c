package publishers

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/cardscout-hq/cardscout-harvester/internal/logger"
	"github.com/cardscout-hq/cardscout-harvester/pkg/httpclient"
	"github.com/go-resty/resty/v2"
)

// httpErrorBodyLimit caps how much of a failing response lands in the error.
const httpErrorBodyLimit = 512

// httpPublisher posts run events to a configured webhook endpoint.
type httpPublisher struct {
	id      string
	typ     string
	method  string
	url     string
	headers map[string]string
	client  *resty.Client
	log     logger.Logger
}

func newHTTPPublisher(_ context.Context, cfg PublisherConfig, log logger.Logger) (Publisher, error) {
	if cfg.HTTP == nil {
		return nil, fmt.Errorf("publisher %q missing http configuration", cfg.ID)
	}

	return &httpPublisher{
		id:      cfg.ID,
		typ:     TypeHTTP,
		method:  cfg.HTTP.Method,
		url:     cfg.HTTP.URL,
		headers: cfg.HTTP.Headers,
		client:  httpclient.NewRestyHTTPClient(time.Duration(cfg.HTTP.TimeoutSeconds) * time.Second),
		log:     logger.Ensure(log),
	}, nil
}

func (h *httpPublisher) ID() string   { return h.id }
func (h *httpPublisher) Type() string { return h.typ }

// Publish posts the encoded event. Configured headers are applied first so
// the JSON content type always wins.
func (h *httpPublisher) Publish(ctx context.Context, evt Event) error {
	payload, err := evt.Encode()
	if err != nil {
		return err
	}

	req := h.client.R().SetContext(ctx)
	for name, value := range h.headers {
		req.SetHeader(name, value)
	}
	req.SetHeader("Content-Type", "application/json")
	req.SetBody(payload)

	resp, err := req.Execute(h.method, h.url)
	if err != nil {
		return fmt.Errorf("http request: %w", err)
	}
	if resp.IsError() {
		return fmt.Errorf("http response status %d: %s", resp.StatusCode(), failureDetail(resp.Body()))
	}

	h.log.DebugObj("http publisher delivered event", "publisher_http_delivery", map[string]any{
		"publisher_id": h.id,
		"run_id":       evt.RunID,
		"status":       resp.StatusCode(),
	})
	return nil
}

// failureDetail trims a failing response body down to something loggable.
func failureDetail(body []byte) string {
	detail := strings.TrimSpace(string(body))
	if detail == "" {
		return "(empty body)"
	}
	if len(detail) > httpErrorBodyLimit {
		detail = detail[:httpErrorBodyLimit]
	}
	return detail
}
