package http

import (
	"context"
	"crypto/tls"
	"crypto/x509"
	"io"
	"net"
	"net/http"
	neturl "net/url"
	"time"
)

const (
	// DefaultTimeout bounds a whole exchange, including reading the response
	DefaultTimeout = 20 * time.Second
	// DefaultOpenTimeout bounds establishing the connection and TLS handshake
	DefaultOpenTimeout = 20 * time.Second
	// DefaultMaxRedirects is the maximum number of redirects to follow
	DefaultMaxRedirects = 4
	// DefaultUserAgent is sent with every probe unless overridden
	DefaultUserAgent = "webmatch/1.0"
)

type Client struct {
	httpClient     *http.Client
	followRedirect bool
	maxRedirects   int
	proxyURL       string
	rootCAs        *x509.CertPool
	transport      http.RoundTripper
	defaultHeaders map[string]string
}

type ClientOption func(*Client)

// NewClient builds a client with the fixed probe timeouts. Redirects are not
// followed unless WithFollowRedirects(true) is given.
func NewClient(opts ...ClientOption) *Client {
	c := &Client{
		maxRedirects: DefaultMaxRedirects,
		defaultHeaders: map[string]string{
			"User-Agent": DefaultUserAgent,
		},
	}

	for _, opt := range opts {
		opt(c)
	}

	transport := c.transport
	if transport == nil {
		t := &http.Transport{
			Proxy: http.ProxyFromEnvironment,
			DialContext: (&net.Dialer{
				Timeout: DefaultOpenTimeout,
			}).DialContext,
			TLSHandshakeTimeout: DefaultOpenTimeout,
		}
		if c.rootCAs != nil {
			t.TLSClientConfig = &tls.Config{RootCAs: c.rootCAs}
		}
		if c.proxyURL != "" {
			proxyURL, err := neturl.Parse(c.proxyURL)
			if err == nil {
				t.Proxy = http.ProxyURL(proxyURL)
			}
		}
		transport = t
	}

	redirectPolicy := func(req *http.Request, via []*http.Request) error {
		if !c.followRedirect {
			return http.ErrUseLastResponse
		}
		// via holds every request already sent, so the hop about to be
		// followed is number len(via).
		if len(via) > c.maxRedirects {
			return http.ErrUseLastResponse
		}
		return nil
	}

	c.httpClient = &http.Client{
		Transport:     transport,
		Timeout:       DefaultTimeout,
		CheckRedirect: redirectPolicy,
	}

	return c
}

// MakeConnection returns a client configured for one probe.
func MakeConnection(followRedirects bool, opts ...ClientOption) *Client {
	all := make([]ClientOption, 0, len(opts)+1)
	all = append(all, opts...)
	all = append(all, WithFollowRedirects(followRedirects))
	return NewClient(all...)
}

func WithFollowRedirects(follow bool) ClientOption {
	return func(c *Client) {
		c.followRedirect = follow
	}
}

func WithDefaultHeader(key, value string) ClientOption {
	return func(c *Client) {
		c.defaultHeaders[key] = value
	}
}

// WithDefaultHeaders sets multiple default headers for all requests
func WithDefaultHeaders(headers map[string]string) ClientOption {
	return func(c *Client) {
		for k, v := range headers {
			c.defaultHeaders[k] = v
		}
	}
}

// WithProxy sets the proxy URL for all requests
func WithProxy(proxyURL string) ClientOption {
	return func(c *Client) {
		c.proxyURL = proxyURL
	}
}

// WithRootCAs replaces the system trust store, for private CAs.
func WithRootCAs(pool *x509.CertPool) ClientOption {
	return func(c *Client) {
		c.rootCAs = pool
	}
}

// WithTransport swaps the round tripper. Proxy and root CA options are
// ignored when a transport is supplied.
func WithTransport(rt http.RoundTripper) ClientOption {
	return func(c *Client) {
		c.transport = rt
	}
}

func (c *Client) Do(req *Request) (*Response, error) {
	if err := ValidateURL(req.URL); err != nil {
		return nil, err
	}

	httpReq, err := http.NewRequestWithContext(context.Background(), req.Method, req.URL, nil)
	if err != nil {
		return nil, err
	}

	for k, v := range c.defaultHeaders {
		httpReq.Header.Set(k, v)
	}

	for k, v := range req.Headers {
		httpReq.Header.Set(k, v)
	}

	start := time.Now()
	httpResp, err := c.httpClient.Do(httpReq)
	duration := time.Since(start)

	if err != nil {
		return nil, err
	}
	defer httpResp.Body.Close()

	respBody, err := io.ReadAll(httpResp.Body)
	if err != nil {
		return nil, err
	}

	headers := make(map[string]string)
	for k := range httpResp.Header {
		headers[k] = httpResp.Header.Get(k)
	}

	finalURL := req.URL
	if httpResp.Request != nil && httpResp.Request.URL != nil {
		finalURL = httpResp.Request.URL.String()
	}

	return &Response{
		StatusCode: httpResp.StatusCode,
		Status:     httpResp.Status,
		Headers:    headers,
		Body:       respBody,
		Duration:   duration,
		URL:        finalURL,
	}, nil
}

func (c *Client) Head(url string) (*Response, error) {
	return c.Do(NewHeadRequest(url))
}

func (c *Client) Get(url string) (*Response, error) {
	return c.Do(NewRequest(http.MethodGet, url))
}
