package collector

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClient_Get_OK(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "application/json", r.Header.Get("Accept"))
		assert.Equal(t, "Bearer tok", r.Header.Get("Authorization"))
		w.Write([]byte(`{"ok":true}`))
	}))
	defer server.Close()

	c := NewClient(time.Second)
	c.Headers = map[string]string{"Authorization": "Bearer tok"}

	resp := c.Get(context.Background(), server.URL+"/x")
	require.Equal(t, OutcomeOK, resp.Outcome)
	assert.JSONEq(t, `{"ok":true}`, string(resp.Body))
}

func TestClient_Get_RateLimitedWithHint(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Retry-After", "120")
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer server.Close()

	resp := NewClient(time.Second).Get(context.Background(), server.URL)
	assert.Equal(t, OutcomeRateLimited, resp.Outcome)
	assert.Equal(t, 120*time.Second, resp.RetryAfter)
	assert.Nil(t, resp.Body)
}

func TestClient_Get_TransportError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := server.URL
	server.Close()

	resp := NewClient(time.Second).Get(context.Background(), url)
	assert.Equal(t, OutcomeTransient, resp.Outcome)
	assert.Error(t, resp.Err)
}

func TestClient_Get_Timeout(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(2 * time.Second):
		}
	}))
	defer server.Close()

	resp := NewClient(50 * time.Millisecond).Get(context.Background(), server.URL)
	assert.Equal(t, OutcomeTransient, resp.Outcome)
}

func TestParseRetryAfter(t *testing.T) {
	assert.Equal(t, 30*time.Second, parseRetryAfter("30"))
	assert.Equal(t, time.Duration(0), parseRetryAfter(""))
	assert.Equal(t, time.Duration(0), parseRetryAfter("Wed, 21 Oct 2015 07:28:00 GMT"))
	assert.Equal(t, time.Duration(0), parseRetryAfter("-5"))
}
