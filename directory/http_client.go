package directory

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	apperrors "github.com/jrsteele09/go-admin-console/internal/errors"
	"github.com/jrsteele09/go-admin-console/tenants"
	"github.com/rs/zerolog"
	"golang.org/x/oauth2"
)

const defaultRequestTimeout = 10 * time.Second

// HTTPClient implements Client against the content-management API's tenant
// endpoints. Requests carry the session credential as a bearer token via an
// oauth2 transport, so a completed tenant switch is picked up on the very
// next request without rebuilding the client.
type HTTPClient struct {
	baseURL string
	http    *http.Client
	timeout time.Duration
	log     zerolog.Logger
}

// HTTPClientOption modifies an HTTPClient during construction.
type HTTPClientOption func(*HTTPClient)

// WithRequestTimeout caps the duration of every directory request. A request
// exceeding the cap fails as ErrDirectoryUnavailable rather than hanging.
func WithRequestTimeout(d time.Duration) HTTPClientOption {
	return func(c *HTTPClient) {
		c.timeout = d
	}
}

// WithTokenSource installs the bearer-credential source for outbound requests.
func WithTokenSource(ts oauth2.TokenSource) HTTPClientOption {
	return func(c *HTTPClient) {
		c.http = oauth2.NewClient(context.Background(), ts)
	}
}

// WithLogger sets the logger used for request diagnostics.
func WithLogger(log zerolog.Logger) HTTPClientOption {
	return func(c *HTTPClient) {
		c.log = log
	}
}

// NewHTTPClient creates a directory client rooted at baseURL.
func NewHTTPClient(baseURL string, options ...HTTPClientOption) *HTTPClient {
	c := &HTTPClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{},
		timeout: defaultRequestTimeout,
		log:     zerolog.Nop(),
	}
	for _, opt := range options {
		opt(c)
	}
	return c
}

// listEnvelope is the response wrapper of the my-tenants endpoint.
type listEnvelope struct {
	Success bool             `json:"success"`
	Message string           `json:"message"`
	Data    []tenants.Tenant `json:"data"`
}

// currentEnvelope is the response wrapper of the current-tenant endpoint.
type currentEnvelope struct {
	Success bool            `json:"success"`
	Data    *tenants.Tenant `json:"data"`
}

// ListTenants implements Client.
func (c *HTTPClient) ListTenants(ctx context.Context) ([]tenants.Tenant, error) {
	body, err := c.get(ctx, "/my-tenants")
	if err != nil {
		return nil, err
	}

	var envelope listEnvelope
	if err := json.Unmarshal(body, &envelope); err != nil {
		return nil, apperrors.Wrapf(apperrors.ErrDirectoryUnavailable, "malformed my-tenants response: %v", err)
	}
	if !envelope.Success {
		return nil, apperrors.Wrapf(apperrors.ErrDirectoryUnavailable, "my-tenants rejected: %s", envelope.Message)
	}
	return envelope.Data, nil
}

// CurrentTenant implements Client. A non-success envelope means "no active
// tenant", not a failure.
func (c *HTTPClient) CurrentTenant(ctx context.Context) (*tenants.Tenant, error) {
	body, err := c.get(ctx, "/current-tenant")
	if err != nil {
		return nil, err
	}

	var envelope currentEnvelope
	if err := json.Unmarshal(body, &envelope); err != nil {
		return nil, apperrors.Wrapf(apperrors.ErrDirectoryUnavailable, "malformed current-tenant response: %v", err)
	}
	if !envelope.Success {
		return nil, nil
	}
	return envelope.Data, nil
}

// SelectTenant implements Client.
func (c *HTTPClient) SelectTenant(ctx context.Context, tenantID string) (*Selection, error) {
	payload, err := json.Marshal(map[string]string{"tenantId": tenantID})
	if err != nil {
		return nil, fmt.Errorf("[SelectTenant] marshalling request: %w", err)
	}

	body, err := c.post(ctx, "/select-tenant", payload)
	if err != nil {
		return nil, err
	}
	return NormalizeSelection(body, tenantID)
}

func (c *HTTPClient) get(ctx context.Context, path string) ([]byte, error) {
	return c.do(ctx, http.MethodGet, path, nil)
}

func (c *HTTPClient) post(ctx context.Context, path string, body []byte) ([]byte, error) {
	return c.do(ctx, http.MethodPost, path, body)
}

func (c *HTTPClient) do(ctx context.Context, method, path string, body []byte) ([]byte, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return nil, apperrors.Wrapf(apperrors.ErrDirectoryUnavailable, "building %s %s: %v", method, path, err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		c.log.Debug().Err(err).Str("path", path).Msg("directory request failed")
		return nil, apperrors.Wrapf(apperrors.ErrDirectoryUnavailable, "%s %s: %v", method, path, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, apperrors.Wrapf(apperrors.ErrDirectoryUnavailable, "reading %s %s response: %v", method, path, err)
	}
	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		return nil, apperrors.Wrapf(apperrors.ErrDirectoryUnavailable, "%s %s returned status %d", method, path, resp.StatusCode)
	}
	return raw, nil
}

var _ Client = (*HTTPClient)(nil)
