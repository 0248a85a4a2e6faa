package metering

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/cozy-creator/product-studio/internal/config"
	"github.com/cozy-creator/product-studio/internal/utils/webhookutil"
)

var ErrNotConfigured = errors.New("metering endpoint is not configured")

// Event is one usage report for overage units.
type Event struct {
	EventName   string    `json:"event_name"`
	CustomerRef string    `json:"customer_ref"`
	Quantity    int       `json:"quantity"`
	Timestamp   time.Time `json:"timestamp"`
}

type Reporter interface {
	// ReportUsage returns the billing collaborator's event id.
	ReportUsage(ctx context.Context, event Event) (string, error)
}

type eventResponse struct {
	ID string `json:"id"`
}

type HTTPReporter struct {
	client   *http.Client
	endpoint string
	apiKey   string
}

func NewHTTPReporter(cfg *config.MeteringConfig) (*HTTPReporter, error) {
	if cfg == nil || cfg.Endpoint == "" {
		return nil, ErrNotConfigured
	}

	return &HTTPReporter{
		client:   &http.Client{Timeout: 10 * time.Second},
		endpoint: cfg.Endpoint,
		apiKey:   cfg.APIKey,
	}, nil
}

func (r *HTTPReporter) ReportUsage(ctx context.Context, event Event) (string, error) {
	headers := map[string]string{}
	if r.apiKey != "" {
		headers["Authorization"] = "Bearer " + r.apiKey
	}

	resp, err := webhookutil.PostJSON[Event, eventResponse](ctx, r.client, r.endpoint, headers, event)
	if err != nil {
		return "", err
	}
	return resp.ID, nil
}

// NopReporter is used when no metering endpoint is configured.
type NopReporter struct{}

func (NopReporter) ReportUsage(context.Context, Event) (string, error) {
	return "", nil
}

// NewReporter returns an HTTPReporter when an endpoint is set and a
// NopReporter otherwise.
func NewReporter(cfg *config.MeteringConfig) Reporter {
	r, err := NewHTTPReporter(cfg)
	if err != nil {
		return NopReporter{}
	}
	return r
}
