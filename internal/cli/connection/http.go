package connection

import (
	"bytes"
	"context"
	"crypto/tls"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/yndnr/quotaledger/internal/infra/buildinfo"
	"github.com/yndnr/quotaledger/internal/storage"
)

// DefaultTimeout bounds one request round trip.
const DefaultTimeout = 30 * time.Second

// APIError is a non-2xx reply from the server.
type APIError struct {
	Status  int
	Code    string
	Message string
}

func (e *APIError) Error() string {
	if e.Code == "" {
		return fmt.Sprintf("request failed with status %d", e.Status)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// AuthorityView is the public description of the server identity.
type AuthorityView struct {
	Code      string `json:"code"`
	PublicKey string `json:"public_key"`
}

// Health is the body of /health and /ready.
type Health struct {
	Status  string `json:"status"`
	Version string `json:"version"`
	Error   string `json:"error,omitempty"`
}

// HTTPClient talks to one ledger server.
type HTTPClient struct {
	baseURL    string
	adminToken string
	client     *http.Client
}

// NewHTTPClient creates a client for server. A bare host:port gets an
// http:// scheme. tlsConfig may be nil.
func NewHTTPClient(server, adminToken string, tlsConfig *tls.Config) *HTTPClient {
	baseURL := strings.TrimRight(server, "/")
	if !strings.HasPrefix(baseURL, "http://") && !strings.HasPrefix(baseURL, "https://") {
		baseURL = "http://" + baseURL
	}

	transport := http.DefaultTransport.(*http.Transport).Clone()
	if tlsConfig != nil {
		transport.TLSClientConfig = tlsConfig
	}

	return &HTTPClient{
		baseURL:    baseURL,
		adminToken: adminToken,
		client: &http.Client{
			Timeout:   DefaultTimeout,
			Transport: transport,
		},
	}
}

// BaseURL returns the server base URL.
func (c *HTTPClient) BaseURL() string {
	return c.baseURL
}

// Health calls GET /health.
func (c *HTTPClient) Health(ctx context.Context) (*Health, error) {
	var h Health
	if err := c.do(ctx, http.MethodGet, "/health", nil, &h, false); err != nil {
		return nil, err
	}
	return &h, nil
}

// IssueQuota submits a signed issuance request and returns the quota
// envelopes in hex.
func (c *HTTPClient) IssueQuota(ctx context.Context, requestHex string) ([]string, error) {
	body := map[string]string{"issue_quota_request": requestHex}
	var out []string
	if err := c.do(ctx, http.MethodPost, "/api/quota", body, &out, false); err != nil {
		return nil, err
	}
	return out, nil
}

// RecycleQuota recycles quota envelopes and returns their ids.
func (c *HTTPClient) RecycleQuota(ctx context.Context, envelopes []string) ([]string, error) {
	var out []string
	if err := c.do(ctx, http.MethodDelete, "/api/quota", envelopes, &out, false); err != nil {
		return nil, err
	}
	return out, nil
}

// ConvertQuota submits a signed conversion request and returns the new
// quota envelopes in hex.
func (c *HTTPClient) ConvertQuota(ctx context.Context, requestHex string) ([]string, error) {
	body := map[string]string{"convert_quota_request": requestHex}
	var out []string
	if err := c.do(ctx, http.MethodPut, "/api/quota", body, &out, false); err != nil {
		return nil, err
	}
	return out, nil
}

// GetQuota fetches the stored record of one quota.
func (c *HTTPClient) GetQuota(ctx context.Context, id string) (*storage.Record, error) {
	var rec storage.Record
	if err := c.do(ctx, http.MethodGet, "/api/quota/"+id, nil, &rec, false); err != nil {
		return nil, err
	}
	return &rec, nil
}

// DescribeAuthority returns the current server identity.
func (c *HTTPClient) DescribeAuthority(ctx context.Context) (*AuthorityView, error) {
	return c.authority(ctx, http.MethodGet, nil)
}

// CreateAuthority replaces the server identity with a random one.
func (c *HTTPClient) CreateAuthority(ctx context.Context) (*AuthorityView, error) {
	return c.authority(ctx, http.MethodPost, nil)
}

// RotateAuthority replaces the server identity with the one derived from
// seedHex.
func (c *HTTPClient) RotateAuthority(ctx context.Context, seedHex string) (*AuthorityView, error) {
	return c.authority(ctx, http.MethodPut, map[string]string{"seed": seedHex})
}

func (c *HTTPClient) authority(ctx context.Context, method string, body any) (*AuthorityView, error) {
	var v AuthorityView
	if err := c.do(ctx, method, "/api/admin/meta", body, &v, true); err != nil {
		return nil, err
	}
	return &v, nil
}

// do sends one request and unwraps the response envelope into target.
func (c *HTTPClient) do(ctx context.Context, method, path string, body, target any, admin bool) error {
	var bodyReader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshal body: %w", err)
		}
		bodyReader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, bodyReader)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("User-Agent", buildinfo.UserAgent("quota-cli"))
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if admin && c.adminToken != "" {
		req.Header.Set("Authorization", "Bearer "+c.adminToken)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	return ParseResponse(resp, target)
}

// envelope mirrors the server response wrapper.
type envelope struct {
	Code    string          `json:"code"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

// ParseResponse closes resp.Body and decodes its data field into target.
// Replies with status >= 400 become *APIError.
func ParseResponse(resp *http.Response, target any) error {
	defer resp.Body.Close()

	var env envelope
	decodeErr := json.NewDecoder(resp.Body).Decode(&env)

	if resp.StatusCode >= 400 {
		apiErr := &APIError{Status: resp.StatusCode}
		if decodeErr == nil {
			apiErr.Code, apiErr.Message = env.Code, env.Message
		}
		return apiErr
	}
	if decodeErr != nil {
		return fmt.Errorf("parse response: %w", decodeErr)
	}

	if target != nil && len(env.Data) > 0 {
		if err := json.Unmarshal(env.Data, target); err != nil {
			return fmt.Errorf("parse response data: %w", err)
		}
	}
	return nil
}

// IsStatus reports whether err is an APIError with the given status.
func IsStatus(err error, status int) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.Status == status
}
