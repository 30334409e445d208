// Package overseerr is the request-broker client. It reads pending
// Overseerr requests, resolves original-language metadata from Overseerr's
// TMDB cache, and rewrites request quality profiles before the request
// reaches Radarr or Sonarr.
package overseerr

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	json "github.com/goccy/go-json"

	"langarr/internal/services"
)

const (
	component          = "overseerr"
	apiBase            = "/api/v1"
	defaultHTTPTimeout = 10 * time.Second
	errorBodyLimit     = 2048
	pendingPageSize    = 100
)

// HTTPDoer describes the HTTP client used for broker requests.
type HTTPDoer interface {
	Do(req *http.Request) (*http.Response, error)
}

// Client talks to one Overseerr (or Jellyseerr) server.
type Client struct {
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

// New builds a broker client for the given Overseerr base URL.
func New(baseURL, apiKey string, opts ...Option) (*Client, error) {
	baseURL = strings.TrimSpace(baseURL)
	if baseURL == "" {
		return nil, services.Wrap(services.ErrConfiguration, component, "new client", "base url required", nil)
	}
	apiKey = strings.TrimSpace(apiKey)
	if apiKey == "" {
		return nil, services.Wrap(services.ErrConfiguration, component, "new client", "api key required", nil)
	}
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
		http:    &http.Client{Timeout: defaultHTTPTimeout},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// Status identifies the remote Overseerr build. Used as the preflight
// connection test before a broker pass.
func (c *Client) Status(ctx context.Context) (Status, error) {
	var status Status
	err := c.get(ctx, "/status", nil, &status)
	return status, err
}

// PendingRequests returns the first page of requests awaiting approval.
func (c *Client) PendingRequests(ctx context.Context) ([]Request, error) {
	query := url.Values{}
	query.Set("filter", "pending")
	query.Set("take", strconv.Itoa(pendingPageSize))
	var envelope struct {
		Results []Request `json:"results"`
	}
	if err := c.get(ctx, "/request", query, &envelope); err != nil {
		return nil, err
	}
	return envelope.Results, nil
}

// Movie returns Overseerr's cached TMDB metadata for a movie.
func (c *Client) Movie(ctx context.Context, tmdbID int64) (MediaDetails, error) {
	var details MediaDetails
	err := c.get(ctx, "/movie/"+strconv.FormatInt(tmdbID, 10), nil, &details)
	return details, err
}

// TV returns Overseerr's cached TMDB metadata for a series.
func (c *Client) TV(ctx context.Context, tmdbID int64) (MediaDetails, error) {
	var details MediaDetails
	err := c.get(ctx, "/tv/"+strconv.FormatInt(tmdbID, 10), nil, &details)
	return details, err
}

// ServerProfiles lists the quality profiles Overseerr mirrors for one of
// its configured servers. service is "radarr" or "sonarr"; serverID is
// Overseerr's own id for that server, not anything the remote knows.
func (c *Client) ServerProfiles(ctx context.Context, service string, serverID int) ([]Profile, error) {
	if service != "radarr" && service != "sonarr" {
		return nil, services.Wrap(services.ErrValidation, component, "server profiles", fmt.Sprintf("unsupported service %q", service), nil)
	}
	var envelope struct {
		Profiles []Profile `json:"profiles"`
	}
	path := "/service/" + service + "/" + strconv.Itoa(serverID)
	if err := c.get(ctx, path, nil, &envelope); err != nil {
		return nil, err
	}
	return envelope.Profiles, nil
}

// UpdateRequest rewrites a pending request's quality profile. Overseerr
// requires the media type in the PUT body, and series requests must carry
// their season list back or the update clears it.
func (c *Client) UpdateRequest(ctx context.Context, id int64, mediaType string, profileID int, seasons []int) error {
	if mediaType != MediaTypeMovie && mediaType != MediaTypeTV {
		return services.Wrap(services.ErrValidation, component, "update request", fmt.Sprintf("unsupported media type %q", mediaType), nil)
	}
	body := struct {
		MediaType string `json:"mediaType"`
		ProfileID int    `json:"profileId"`
		Seasons   []int  `json:"seasons,omitempty"`
	}{MediaType: mediaType, ProfileID: profileID}
	if mediaType == MediaTypeTV {
		body.Seasons = seasons
	}
	return c.put(ctx, "/request/"+strconv.FormatInt(id, 10), body, nil)
}

func (c *Client) get(ctx context.Context, path string, query url.Values, out any) error {
	return c.do(ctx, http.MethodGet, path, query, nil, out)
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
			return services.Wrap(services.ErrValidation, component, op, "encode request", err)
		}
		reader = bytes.NewReader(encoded)
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, reader)
	if err != nil {
		return services.Wrap(services.ErrValidation, component, op, "build request", err)
	}
	req.Header.Set("X-Api-Key", c.apiKey)
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return services.Wrap(services.ErrTransient, component, op, "request failed", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return services.Wrap(services.ErrTransient, component, op, "read response", err)
	}

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		detail := fmt.Sprintf("http %d: %s", resp.StatusCode, bodyExcerpt(data))
		switch resp.StatusCode {
		case http.StatusUnauthorized, http.StatusForbidden:
			return services.Wrap(services.ErrConfiguration, component, op, detail, nil)
		case http.StatusNotFound:
			return services.Wrap(services.ErrNotFound, component, op, detail, nil)
		default:
			return services.Wrap(services.ErrTransient, component, op, detail, nil)
		}
	}

	if out == nil || len(data) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return services.Wrap(services.ErrTransient, component, op, "decode response", err)
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
