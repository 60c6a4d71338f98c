package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/net/publicsuffix"
)

const (
	requestTimeout = 10 * time.Second
	maxErrorBody   = 4096

	// AuthCookie mirrors the bearer token for servers that read it from a
	// cookie instead of the Authorization header.
	AuthCookie = "auth-token"
)

// Client is the instagram-light REST client. A Client is bound to at most
// one bearer token; use WithToken to derive an authenticated copy.
type Client struct {
	baseURL string
	token   string
	http    *http.Client
}

// NewClient creates a new API client. A nil httpClient gets a default one
// with a cookie jar and the standard request timeout.
func NewClient(baseURL string, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = NewHTTPClient(requestTimeout)
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    httpClient,
	}
}

// NewHTTPClient returns an http.Client with a cookie jar, so the auth
// cookie the backend expects travels with every request.
func NewHTTPClient(timeout time.Duration) *http.Client {
	jar, _ := cookiejar.New(&cookiejar.Options{PublicSuffixList: publicsuffix.List})
	return &http.Client{Timeout: timeout, Jar: jar}
}

// WithToken returns a copy of c that authenticates with token. The copy
// shares the underlying http.Client.
func (c *Client) WithToken(token string) *Client {
	cp := *c
	cp.token = token
	if token != "" && c.http.Jar != nil {
		if u, err := url.Parse(c.baseURL); err == nil {
			c.http.Jar.SetCookies(u, []*http.Cookie{{
				Name:     AuthCookie,
				Value:    token,
				Path:     "/",
				SameSite: http.SameSiteStrictMode,
			}})
		}
	}
	return &cp
}

// Token returns the bearer token the client sends, if any.
func (c *Client) Token() string {
	return c.token
}

// BaseURL returns the API root without a trailing slash.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// getJSON fetches path and decodes the JSON response into dst.
func (c *Client) getJSON(ctx context.Context, op, path string, dst interface{}) error {
	return c.do(ctx, op, http.MethodGet, path, nil, "", dst)
}

// sendJSON encodes body as JSON and decodes the response into dst.
// A nil dst discards the response body.
func (c *Client) sendJSON(ctx context.Context, op, method, path string, body, dst interface{}) error {
	var r io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode %s payload: %w", op, err)
		}
		r = bytes.NewReader(payload)
	}
	return c.do(ctx, op, method, path, r, "application/json; charset=utf-8", dst)
}

func (c *Client) do(ctx context.Context, op, method, path string, body io.Reader, contentType string, dst interface{}) error {
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("build %s request: %w", op, err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", "instalight/1.0")
	req.Header.Set("X-Request-ID", uuid.NewString())
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return &transportError{op: op, err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &Error{Op: op, Status: resp.StatusCode, Message: readErrorMessage(resp.Body)}
	}

	if dst == nil || resp.StatusCode == http.StatusNoContent {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(dst); err != nil {
		return fmt.Errorf("decode %s response: %w", op, err)
	}
	return nil
}

// readErrorMessage extracts {"error": "..."} from an error body, falling
// back to the raw text.
func readErrorMessage(r io.Reader) string {
	body, _ := io.ReadAll(io.LimitReader(r, maxErrorBody))
	var er errorResponse
	if err := json.Unmarshal(body, &er); err == nil && er.Error != "" {
		return er.Error
	}
	return strings.TrimSpace(string(body))
}
