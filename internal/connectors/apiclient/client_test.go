package apiclient

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/shelfsync/internal/core/domain"
)

type payload struct {
	Name string `json:"name"`
}

func TestNew_RejectsBadBaseURL(t *testing.T) {
	for _, raw := range []string{"", "not a url", "/relative/only"} {
		_, err := New(raw, "")
		assert.Error(t, err, raw)
	}
}

func TestClient_GetJSON(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v3/list/", r.URL.Path)
		assert.Equal(t, "c1", r.URL.Query().Get("pageCursor"))
		assert.Equal(t, "Token secret", r.Header.Get("Authorization"))
		assert.Equal(t, UserAgent, r.Header.Get("User-Agent"))
		_, _ = w.Write([]byte(`{"name":"ok"}`))
	}))
	defer srv.Close()

	c, err := New(srv.URL+"/api/v3", TokenAuthorization("secret"))
	require.NoError(t, err)

	var out payload
	err = c.GetJSON(context.Background(), "list/", url.Values{"pageCursor": {"c1"}}, &out)
	require.NoError(t, err)
	assert.Equal(t, "ok", out.Name)
}

func TestClient_APIErrors(t *testing.T) {
	tests := []struct {
		status int
		is     error
	}{
		{http.StatusUnauthorized, domain.ErrAuthInvalid},
		{http.StatusForbidden, domain.ErrAuthInvalid},
		{http.StatusNotFound, domain.ErrNotFound},
	}
	for _, tt := range tests {
		t.Run(http.StatusText(tt.status), func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				http.Error(w, "nope", tt.status)
			}))
			defer srv.Close()

			c, err := New(srv.URL, "")
			require.NoError(t, err)

			err = c.GetJSON(context.Background(), "x", nil, &payload{})
			require.Error(t, err)
			assert.ErrorIs(t, err, tt.is)

			var apiErr *APIError
			require.ErrorAs(t, err, &apiErr)
			assert.Equal(t, tt.status, apiErr.StatusCode)
			assert.Equal(t, "nope", apiErr.Message)
		})
	}
}

func TestClient_ServerErrorIsNotASentinel(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	c, err := New(srv.URL, "")
	require.NoError(t, err)

	err = c.GetJSON(context.Background(), "x", nil, &payload{})
	require.Error(t, err)
	assert.False(t, IsRateLimited(err))
	assert.False(t, IsUnauthorized(err))
	assert.False(t, IsNotFound(err))
}

func TestClient_RetriesAfterRateLimit(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		if calls.Add(1) < 3 {
			w.Header().Set("Retry-After", "0")
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		_, _ = w.Write([]byte(`{"name":"finally"}`))
	}))
	defer srv.Close()

	c, err := New(srv.URL, "", WithDefaultBackoff(time.Millisecond))
	require.NoError(t, err)

	var out payload
	require.NoError(t, c.GetJSON(context.Background(), "x", nil, &out))
	assert.Equal(t, "finally", out.Name)
	assert.Equal(t, int32(3), calls.Load())
}

func TestClient_GivesUpAfterRetries(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer srv.Close()

	c, err := New(srv.URL, "", WithDefaultBackoff(time.Millisecond), WithRetries(2))
	require.NoError(t, err)

	err = c.GetJSON(context.Background(), "x", nil, &payload{})
	assert.True(t, IsRateLimited(err))
	assert.ErrorIs(t, err, domain.ErrRateLimited)
	assert.Equal(t, int32(3), calls.Load())
}

func TestClient_DoesNotSleepThroughLongRetryAfter(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls.Add(1)
		w.Header().Set("Retry-After", "3600")
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer srv.Close()

	c, err := New(srv.URL, "")
	require.NoError(t, err)

	err = c.GetJSON(context.Background(), "x", nil, &payload{})
	var rateErr *RateLimitError
	require.ErrorAs(t, err, &rateErr)
	assert.Equal(t, time.Hour, rateErr.RetryAfter)
	assert.Equal(t, int32(1), calls.Load())
}

func TestClient_DecodeError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{not json`))
	}))
	defer srv.Close()

	c, err := New(srv.URL, "")
	require.NoError(t, err)

	err = c.GetJSON(context.Background(), "x", url.Values{"token": {"abc"}}, &payload{})
	require.Error(t, err)
	assert.NotContains(t, err.Error(), "abc")
}

func TestParseRetryAfter(t *testing.T) {
	assert.Equal(t, time.Duration(0), parseRetryAfter(""))
	assert.Equal(t, 5*time.Second, parseRetryAfter("5"))
	assert.Equal(t, time.Duration(0), parseRetryAfter("soon"))

	at := time.Now().Add(time.Minute).UTC().Format(http.TimeFormat)
	d := parseRetryAfter(at)
	assert.Greater(t, d, 50*time.Second)
	assert.LessOrEqual(t, d, time.Minute)
}

func TestRateLimiter_Backoff(t *testing.T) {
	r := NewRateLimiter(0, 0)
	r.defaultBackoff = 20 * time.Millisecond

	assert.Equal(t, 20*time.Millisecond, r.Backoff(0))

	start := time.Now()
	require.NoError(t, r.Wait(context.Background()))
	assert.GreaterOrEqual(t, time.Since(start), 15*time.Millisecond)

	r.Backoff(time.Hour)
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	assert.ErrorIs(t, r.Wait(ctx), context.DeadlineExceeded)
}

func TestTokenAuthorization(t *testing.T) {
	assert.Equal(t, "Token abc", TokenAuthorization(" abc "))
	assert.Equal(t, "", TokenAuthorization(""))
}
