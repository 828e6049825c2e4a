package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// Client talks to the shop's REST API. It is stateless apart from the
// credentials it was built with and safe for concurrent use.
type Client struct {
	baseURL *url.URL
	http    *http.Client
	creds   Credentials
	logger  *slog.Logger
}

func NewClient(baseURL string, httpClient *http.Client, creds Credentials, logger *slog.Logger) (*Client, error) {
	u, err := url.Parse(strings.TrimRight(baseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("parsing api base url: %w", err)
	}
	if u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("api base url %q must be absolute", baseURL)
	}
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 15 * time.Second}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{baseURL: u, http: httpClient, creds: creds, logger: logger}, nil
}

// WithCredentials returns a copy of c that sends creds instead.
func (c *Client) WithCredentials(creds Credentials) *Client {
	cp := *c
	cp.creds = creds
	return &cp
}

func (c *Client) endpoint(path, query string) string {
	u := *c.baseURL
	u.Path = c.baseURL.Path + "/" + strings.TrimLeft(path, "/")
	u.RawQuery = query
	return u.String()
}

type errorBody struct {
	Message string `json:"message"`
	Error   string `json:"error"`
}

func (c *Client) do(ctx context.Context, resource, method, path, query string, body, out any) error {
	var reader io.Reader
	if body != nil {
		js, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encoding %s payload: %w", resource, err)
		}
		reader = bytes.NewReader(js)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.endpoint(path, query), reader)
	if err != nil {
		return &FetchError{Resource: resource, Err: err}
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.creds != nil {
		c.creds.Apply(req)
	}

	start := time.Now()
	res, err := c.http.Do(req)
	if err != nil {
		return &FetchError{Resource: resource, Err: err}
	}
	defer res.Body.Close()

	c.logger.Debug("api call",
		"method", method,
		"path", req.URL.Path,
		"status", res.StatusCode,
		"duration_ms", time.Since(start).Milliseconds(),
	)

	if res.StatusCode < 200 || res.StatusCode > 299 {
		fe := &FetchError{Resource: resource, StatusCode: res.StatusCode}
		var eb errorBody
		if err := json.NewDecoder(io.LimitReader(res.Body, 64<<10)).Decode(&eb); err == nil {
			fe.Message = eb.Message
			if fe.Message == "" {
				fe.Message = eb.Error
			}
		}
		return fe
	}

	if out == nil || res.StatusCode == http.StatusNoContent {
		_, _ = io.Copy(io.Discard, res.Body)
		return nil
	}
	if err := json.NewDecoder(res.Body).Decode(out); err != nil {
		if err == io.EOF {
			return nil
		}
		return &FetchError{Resource: resource, StatusCode: res.StatusCode, Err: fmt.Errorf("decoding response: %w", err)}
	}
	return nil
}

// Get decodes the JSON document at path into out.
func (c *Client) Get(ctx context.Context, path string, out any) error {
	return c.do(ctx, path, http.MethodGet, path, "", nil, out)
}

// Create posts body to the collection and decodes the created entity into
// out when out is not nil.
func (c *Client) Create(ctx context.Context, resource string, body, out any) error {
	return c.do(ctx, resource, http.MethodPost, resource, "", body, out)
}

// Delete removes one record of the collection.
func (c *Client) Delete(ctx context.Context, resource, id string) error {
	return c.do(ctx, resource, http.MethodDelete, resource+"/"+url.PathEscape(id), "", nil, nil)
}
