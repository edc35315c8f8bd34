package utils

import (
	"context"
	"crypto/tls"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"golang.org/x/net/proxy"

	"boxfetch/internal"
)

// defaultUserAgent mirrors a desktop browser; the shared-link web endpoints
// serve a different page to obvious non-browser clients.
const defaultUserAgent = "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36"

// HTTPClientConfig contains configuration for the HTTP client
type HTTPClientConfig struct {
	Timeout  time.Duration
	ProxyURL string
}

// HTTPClient wraps http.Client with the headers and transport settings the
// Box endpoints expect. It performs no retries: a failed request surfaces to
// the caller, and retry across calls is the caller's decision.
type HTTPClient struct {
	client    *http.Client
	streaming *http.Client
	userAgent string
	mutex     sync.RWMutex
}

// NewHTTPClient creates a new HTTP client with default configuration
func NewHTTPClient() *HTTPClient {
	return NewHTTPClientWithConfig(&HTTPClientConfig{
		Timeout: 30 * time.Second,
	})
}

// NewHTTPClientWithConfig creates a new HTTP client with custom configuration
func NewHTTPClientWithConfig(config *HTTPClientConfig) *HTTPClient {
	transport := &http.Transport{
		DialContext: (&net.Dialer{
			Timeout:   10 * time.Second,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		TLSHandshakeTimeout:   10 * time.Second,
		ResponseHeaderTimeout: 15 * time.Second,
		ExpectContinueTimeout: 1 * time.Second,
		MaxIdleConns:          100,
		MaxIdleConnsPerHost:   10,
		IdleConnTimeout:       90 * time.Second,
		TLSClientConfig: &tls.Config{
			InsecureSkipVerify: false,
		},
	}

	if config.ProxyURL != "" {
		if err := configureProxy(transport, config.ProxyURL); err != nil {
			internal.LogWarn("Failed to configure proxy %s: %v", config.ProxyURL, err)
		}
	}

	checkRedirect := func(req *http.Request, via []*http.Request) error {
		if len(via) >= 10 {
			return fmt.Errorf("too many redirects")
		}
		return nil
	}

	return &HTTPClient{
		client: &http.Client{
			Transport:     transport,
			Timeout:       config.Timeout,
			CheckRedirect: checkRedirect,
		},
		// The streaming client has no overall timeout: it carries download
		// bodies whose read time is unbounded. Cancellation comes from the
		// request context instead.
		streaming: &http.Client{
			Transport:     transport,
			CheckRedirect: checkRedirect,
		},
		userAgent: defaultUserAgent,
	}
}

// configureProxy sets up proxy configuration for the transport
func configureProxy(transport *http.Transport, proxyURL string) error {
	parsedURL, err := url.Parse(proxyURL)
	if err != nil {
		return fmt.Errorf("invalid proxy URL: %w", err)
	}

	switch parsedURL.Scheme {
	case "http", "https":
		transport.Proxy = http.ProxyURL(parsedURL)
	case "socks5":
		dialer, err := proxy.SOCKS5("tcp", parsedURL.Host, nil, proxy.Direct)
		if err != nil {
			return fmt.Errorf("failed to create SOCKS5 proxy: %w", err)
		}
		transport.DialContext = func(ctx context.Context, network, addr string) (net.Conn, error) {
			return dialer.Dial(network, addr)
		}
	default:
		return fmt.Errorf("unsupported proxy scheme: %s", parsedURL.Scheme)
	}

	return nil
}

// Get performs a GET request
func (c *HTTPClient) Get(ctx context.Context, url string, headers map[string]string) (*http.Response, error) {
	req, err := c.newRequest(ctx, http.MethodGet, url, "", headers)
	if err != nil {
		return nil, err
	}

	internal.GetLogger().LogHTTPRequest(req)
	return c.client.Do(req)
}

// GetStream performs a GET request on the streaming client, whose responses
// may be read for an unbounded time without tripping a client timeout.
func (c *HTTPClient) GetStream(ctx context.Context, url string, headers map[string]string) (*http.Response, error) {
	req, err := c.newRequest(ctx, http.MethodGet, url, "", headers)
	if err != nil {
		return nil, err
	}

	internal.GetLogger().LogHTTPRequest(req)
	return c.streaming.Do(req)
}

// PostForm performs a POST request with a URL-encoded form body
func (c *HTTPClient) PostForm(ctx context.Context, url string, form url.Values) (*http.Response, error) {
	req, err := c.newRequest(ctx, http.MethodPost, url, form.Encode(), nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	internal.GetLogger().LogHTTPRequest(req)
	return c.client.Do(req)
}

// newRequest builds a request with the client's default headers applied
func (c *HTTPClient) newRequest(ctx context.Context, method, url, body string, headers map[string]string) (*http.Request, error) {
	var reader *strings.Reader
	if body != "" {
		reader = strings.NewReader(body)
	} else {
		reader = strings.NewReader("")
	}

	req, err := http.NewRequestWithContext(ctx, method, url, reader)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	c.mutex.RLock()
	req.Header.Set("User-Agent", c.userAgent)
	c.mutex.RUnlock()

	req.Header.Set("Accept", "*/*")
	req.Header.Set("Accept-Language", "en-US,en;q=0.9")

	for key, value := range headers {
		req.Header.Set(key, value)
	}

	return req, nil
}

// GetCurrentUserAgent returns the current user agent string
func (c *HTTPClient) GetCurrentUserAgent() string {
	c.mutex.RLock()
	defer c.mutex.RUnlock()
	return c.userAgent
}

// SetUserAgent sets a custom user agent string
func (c *HTTPClient) SetUserAgent(userAgent string) {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	c.userAgent = userAgent
}

// IsNetworkError reports whether an error looks like a transport-level
// failure rather than an application response.
func IsNetworkError(err error) bool {
	if err == nil {
		return false
	}

	errStr := strings.ToLower(err.Error())
	networkErrors := []string{
		"timeout",
		"connection refused",
		"connection reset",
		"no such host",
		"network is unreachable",
		"temporary failure",
		"i/o timeout",
		"broken pipe",
	}

	for _, pattern := range networkErrors {
		if strings.Contains(errStr, pattern) {
			return true
		}
	}

	return false
}
