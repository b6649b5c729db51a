package collector

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strconv"
	"time"
)

// maxBodyBytes caps how much of an upstream body is read.
const maxBodyBytes = 4 << 20

// Config holds per-provider client settings.
type Config struct {
	BaseURL string
	APIKey  string
	Timeout time.Duration
}

// Client is a small wrapper around http.Client that classifies responses.
type Client struct {
	HTTP      *http.Client
	UserAgent string
	Headers   map[string]string
}

// NewClient returns a client with the given overall request timeout.
func NewClient(timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	transport := &http.Transport{
		Proxy:                 http.ProxyFromEnvironment,
		DialContext:           (&net.Dialer{Timeout: 5 * time.Second, KeepAlive: 30 * time.Second}).DialContext,
		MaxIdleConns:          50,
		MaxIdleConnsPerHost:   10,
		ForceAttemptHTTP2:     true,
		IdleConnTimeout:       90 * time.Second,
		TLSHandshakeTimeout:   5 * time.Second,
		ExpectContinueTimeout: time.Second,
	}
	return &Client{
		HTTP:      &http.Client{Timeout: timeout, Transport: transport},
		UserAgent: "remessa-segura-backend/1.0",
	}
}

// Response is a classified upstream response. Body is set only for 200.
type Response struct {
	Outcome    Outcome
	StatusCode int
	Body       []byte
	RetryAfter time.Duration
	Err        error
}

// Get performs a GET and classifies the result. It never returns a Go error;
// failures are reported through Outcome and Err.
func (c *Client) Get(ctx context.Context, url string) Response {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return Response{Outcome: OutcomeTransient, Err: fmt.Errorf("building request: %w", err)}
	}
	req.Header.Set("Accept", "application/json")
	if c.UserAgent != "" {
		req.Header.Set("User-Agent", c.UserAgent)
	}
	for k, v := range c.Headers {
		req.Header.Set(k, v)
	}

	resp, err := c.HTTP.Do(req)
	if err != nil {
		return Response{Outcome: OutcomeTransient, Err: fmt.Errorf("requesting %s: %w", req.URL.Path, err)}
	}
	defer resp.Body.Close()

	out := Response{
		Outcome:    Classify(resp.StatusCode),
		StatusCode: resp.StatusCode,
		RetryAfter: parseRetryAfter(resp.Header.Get("Retry-After")),
	}
	if out.Outcome != OutcomeOK {
		// Drain so the connection can be reused.
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxBodyBytes))
		out.Err = fmt.Errorf("unexpected status: %d", resp.StatusCode)
		return out
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes+1))
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
			return Response{Outcome: OutcomeTransient, StatusCode: resp.StatusCode, Err: err}
		}
		return Response{Outcome: OutcomeTransient, StatusCode: resp.StatusCode, Err: fmt.Errorf("reading body: %w", err)}
	}
	if len(body) > maxBodyBytes {
		return Response{Outcome: OutcomeSchema, StatusCode: resp.StatusCode, Err: fmt.Errorf("body exceeds %d bytes", maxBodyBytes)}
	}
	out.Body = body
	return out
}

// parseRetryAfter accepts delta-seconds only; HTTP dates are ignored.
func parseRetryAfter(v string) time.Duration {
	if v == "" {
		return 0
	}
	secs, err := strconv.Atoi(v)
	if err != nil || secs < 0 {
		return 0
	}
	return time.Duration(secs) * time.Second
}
