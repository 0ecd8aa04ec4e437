// Package httputil provides a security-hardened HTTP client and input
// sanitization utilities shared by all provider pipelines.
package httputil

import (
	"crypto/tls"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strings"
	"time"
)

const userAgent = "Mozilla/5.0 (X11; Linux x86_64; rv:109.0) Gecko/20100101 Firefox/121.0"

// maxBodySize caps response bodies read into memory.
const maxBodySize = 10 * 1024 * 1024

// Client wraps an http.Client with a cookie jar and exposes the final
// redirected URL of each request, which login flows need to read
// authorization codes and session cookies.
type Client struct {
	hc *http.Client
}

// Response is the decoded transport result of one Fetch.
type Response struct {
	Status   int
	Body     []byte
	FinalURL *url.URL // URL after following redirects
}

// NewClient creates a hardened client with its own cookie jar.
func NewClient() *Client {
	jar, _ := cookiejar.New(nil)
	return &Client{
		hc: &http.Client{
			Timeout: 30 * time.Second,
			Jar:     jar,
			Transport: &http.Transport{
				TLSClientConfig: &tls.Config{
					MinVersion: tls.VersionTLS12,
				},
				ForceAttemptHTTP2:   true,
				MaxIdleConns:        10,
				IdleConnTimeout:     30 * time.Second,
				MaxIdleConnsPerHost: 5,
			},
		},
	}
}

// Fetch performs a request and reads the full body. Redirects are
// followed; the response reports where the chain ended. Non-2xx
// statuses are not errors here, callers inspect Status.
func (c *Client) Fetch(method, rawURL string, headers map[string]string, body io.Reader) (*Response, error) {
	if err := ValidateURL(rawURL); err != nil {
		return nil, fmt.Errorf("invalid URL: %w", err)
	}

	req, err := http.NewRequest(method, rawURL, body)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}

	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Accept-Language", "en-US,en;q=0.5")
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := c.hc.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	// Read one byte past the cap so truncation is detected instead of
	// handing a silently cut-off document to a parser.
	data, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize+1))
	if err != nil {
		return nil, fmt.Errorf("reading response: %w", err)
	}
	if len(data) > maxBodySize {
		return nil, fmt.Errorf("response body for %s exceeds %d bytes", rawURL, maxBodySize)
	}

	return &Response{
		Status:   resp.StatusCode,
		Body:     data,
		FinalURL: resp.Request.URL,
	}, nil
}

// Get fetches a URL with browser-like headers.
func (c *Client) Get(rawURL string) (*Response, error) {
	return c.Fetch(http.MethodGet, rawURL, map[string]string{
		"Accept": "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8",
	}, nil)
}

// GetJSON fetches a URL with a JSON accept header and requires a 200.
func (c *Client) GetJSON(rawURL string, headers map[string]string) ([]byte, error) {
	h := map[string]string{"Accept": "application/json"}
	for k, v := range headers {
		h[k] = v
	}
	resp, err := c.Fetch(http.MethodGet, rawURL, h, nil)
	if err != nil {
		return nil, err
	}
	if resp.Status != http.StatusOK {
		return nil, fmt.Errorf("unexpected status %d for %s", resp.Status, rawURL)
	}
	return resp.Body, nil
}

// PostForm submits URL-encoded form values.
func (c *Client) PostForm(rawURL string, values url.Values, headers map[string]string) (*Response, error) {
	h := map[string]string{"Content-Type": "application/x-www-form-urlencoded"}
	for k, v := range headers {
		h[k] = v
	}
	return c.Fetch(http.MethodPost, rawURL, h, strings.NewReader(values.Encode()))
}

// PostJSON submits a JSON payload.
func (c *Client) PostJSON(rawURL string, payload []byte, headers map[string]string) (*Response, error) {
	h := map[string]string{
		"Content-Type": "application/json",
		"Accept":       "application/json",
	}
	for k, v := range headers {
		h[k] = v
	}
	return c.Fetch(http.MethodPost, rawURL, h, strings.NewReader(string(payload)))
}

// SetCookie stores a cookie in the jar for siteURL, as if the site had
// set it itself.
func (c *Client) SetCookie(siteURL, name, value string) {
	u, err := url.Parse(siteURL)
	if err != nil {
		return
	}
	c.hc.Jar.SetCookies(u, []*http.Cookie{{Name: name, Value: value, Path: "/"}})
}

// CookieValue returns the value of a named cookie stored for siteURL,
// or "" when the jar has none.
func (c *Client) CookieValue(siteURL, name string) string {
	u, err := url.Parse(siteURL)
	if err != nil {
		return ""
	}
	for _, cookie := range c.hc.Jar.Cookies(u) {
		if cookie.Name == name {
			return cookie.Value
		}
	}
	return ""
}
