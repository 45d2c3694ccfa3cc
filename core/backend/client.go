package backend

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-resty/resty/v2"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.opentelemetry.io/otel/attribute"
)

const defaultBaseURL = "http://localhost:8000"

var (
	// ErrBackend marks any request the backend itself rejected, as opposed
	// to transport failures and local validation.
	ErrBackend = errors.New("backend rejected the request")
	// ErrDocumentNotFound is returned when the backend does not know the
	// requested document.
	ErrDocumentNotFound = errors.New("document not found")
	// ErrNotPDF is returned before any upload happens when the file does not
	// look like a PDF.
	ErrNotPDF = errors.New("file is not a PDF")
	// ErrFileTooLarge is returned before any upload happens when the file is
	// over the upload size limit.
	ErrFileTooLarge = errors.New("file is too large to upload")
)

// Client talks to the Recallify backend API. It is safe for concurrent use.
type Client struct {
	http *resty.Client
}

type ClientOption func(*Client)

func WithBaseURL(baseURL string) ClientOption {
	return func(c *Client) { c.http.SetBaseURL(baseURL) }
}

func WithTimeout(timeout time.Duration) ClientOption {
	return func(c *Client) { c.http.SetTimeout(timeout) }
}

func NewClient(opts ...ClientOption) *Client {
	httpClient := resty.New().
		SetBaseURL(defaultBaseURL).
		SetTransport(otelhttp.NewTransport(http.DefaultTransport,
			otelhttp.WithSpanNameFormatter(func(operationName string, request *http.Request) string {
				return operationName + " " + request.URL.Path
			}),
		))

	client := &Client{http: httpClient}
	for _, opt := range opts {
		opt(client)
	}

	return client
}

type HealthStatus struct {
	Status  string `json:"status"`
	Message string `json:"message"`
}

// Health reports whether the backend is reachable and operational.
func (c *Client) Health(ctx context.Context) (*HealthStatus, error) {
	ctx, span := tracer.Start(ctx, "check backend health")
	defer span.End()

	resp, err := c.http.R().SetContext(ctx).Get("/health")
	if err != nil {
		err = fmt.Errorf("failed to reach backend: %w", err)
		span.RecordError(err)
		return nil, err
	}

	span.SetAttributes(attribute.Int("response.status_code", resp.StatusCode()))
	if resp.StatusCode() != http.StatusOK {
		err := apiError("health check", resp)
		span.RecordError(err)
		return nil, err
	}

	var status HealthStatus
	if err := json.Unmarshal(resp.Body(), &status); err != nil {
		err = fmt.Errorf("failed to parse health response: %w", err)
		span.RecordError(err)
		return nil, err
	}

	return &status, nil
}

// apiError turns a non-OK response into an error wrapping ErrBackend,
// preferring the detail message the backend attaches to failures.
func apiError(operation string, resp *resty.Response) error {
	var payload struct {
		Detail string `json:"detail"`
	}
	if err := json.Unmarshal(resp.Body(), &payload); err == nil && payload.Detail != "" {
		return fmt.Errorf("%w: %s: %s", ErrBackend, operation, payload.Detail)
	}
	return fmt.Errorf("%w: %s: %s", ErrBackend, operation, resp.Status())
}
