package arr

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	json "github.com/goccy/go-json"

	"langarr/internal/services"
)

// Service identifiers for the two supported manager types.
const (
	ServiceRadarr = "radarr"
	ServiceSonarr = "sonarr"
)

const (
	apiBase            = "/api/v3"
	defaultHTTPTimeout = 10 * time.Second
	errorBodyLimit     = 2048
)

// HTTPDoer describes the HTTP client used by remote service clients.
type HTTPDoer interface {
	Do(req *http.Request) (*http.Response, error)
}

// Client is the shared HTTP layer under Radarr and Sonarr: API key auth,
// /api/v3 base path, JSON codec, and error bodies folded into error detail.
type Client struct {
	service string
	baseURL string
	apiKey  string
	http    HTTPDoer
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient overrides the default HTTP client.
func WithHTTPClient(client HTTPDoer) Option {
	return func(c *Client) {
		if client != nil {
			c.http = client
		}
	}
}

func newClient(service, baseURL, apiKey string, opts ...Option) (*Client, error) {
	baseURL = strings.TrimSpace(baseURL)
	if baseURL == "" {
		return nil, services.Wrap(services.ErrConfiguration, service, "new client", "base url required", nil)
	}
	apiKey = strings.TrimSpace(apiKey)
	if apiKey == "" {
		return nil, services.Wrap(services.ErrConfiguration, service, "new client", "api key required", nil)
	}
	c := &Client{
		service: service,
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
		http:    &http.Client{Timeout: defaultHTTPTimeout},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// Service returns the service identifier this client talks to.
func (c *Client) Service() string {
	return c.service
}

// SystemStatus identifies the remote application and version. Used as the
// preflight connection test before a sync pass.
func (c *Client) SystemStatus(ctx context.Context) (SystemStatus, error) {
	var status SystemStatus
	err := c.get(ctx, "/system/status", nil, &status)
	return status, err
}

// QualityProfiles lists the server's quality profiles.
func (c *Client) QualityProfiles(ctx context.Context) ([]QualityProfile, error) {
	var profiles []QualityProfile
	err := c.get(ctx, "/qualityprofile", nil, &profiles)
	return profiles, err
}

// Tags lists the server's tags.
func (c *Client) Tags(ctx context.Context) ([]Tag, error) {
	var tags []Tag
	err := c.get(ctx, "/tag", nil, &tags)
	return tags, err
}

// CreateTag creates a tag with the given label and returns it with its
// server-assigned ID.
func (c *Client) CreateTag(ctx context.Context, label string) (Tag, error) {
	label = strings.TrimSpace(label)
	if label == "" {
		return Tag{}, services.Wrap(services.ErrValidation, c.service, "create tag", "label required", nil)
	}
	body := struct {
		Label string `json:"label"`
	}{Label: label}
	var tag Tag
	err := c.post(ctx, "/tag", body, &tag)
	return tag, err
}

func (c *Client) get(ctx context.Context, path string, query url.Values, out any) error {
	return c.do(ctx, http.MethodGet, path, query, nil, out)
}

func (c *Client) post(ctx context.Context, path string, body, out any) error {
	return c.do(ctx, http.MethodPost, path, nil, body, out)
}

func (c *Client) put(ctx context.Context, path string, body, out any) error {
	return c.do(ctx, http.MethodPut, path, nil, body, out)
}

func (c *Client) do(ctx context.Context, method, path string, query url.Values, body, out any) error {
	op := method + " " + path

	endpoint := c.baseURL + apiBase + path
	if len(query) > 0 {
		endpoint += "?" + query.Encode()
	}

	var reader io.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			return services.Wrap(services.ErrValidation, c.service, op, "encode request", err)
		}
		reader = bytes.NewReader(encoded)
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, reader)
	if err != nil {
		return services.Wrap(services.ErrValidation, c.service, op, "build request", err)
	}
	req.Header.Set("X-Api-Key", c.apiKey)
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return services.Wrap(services.ErrTransient, c.service, op, "request failed", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return services.Wrap(services.ErrTransient, c.service, op, "read response", err)
	}

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		detail := fmt.Sprintf("http %d: %s", resp.StatusCode, bodyExcerpt(data))
		switch resp.StatusCode {
		case http.StatusUnauthorized, http.StatusForbidden:
			return services.Wrap(services.ErrConfiguration, c.service, op, detail, nil)
		case http.StatusNotFound:
			return services.Wrap(services.ErrNotFound, c.service, op, detail, nil)
		default:
			return services.Wrap(services.ErrTransient, c.service, op, detail, nil)
		}
	}

	if out == nil || len(data) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return services.Wrap(services.ErrTransient, c.service, op, "decode response", err)
	}
	return nil
}

func bodyExcerpt(body []byte) string {
	text := strings.TrimSpace(string(body))
	if text == "" {
		return "(empty body)"
	}
	if len(text) > errorBodyLimit {
		text = text[:errorBodyLimit] + "..."
	}
	return text
}
