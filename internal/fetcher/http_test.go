package fetcher

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/time/rate"
)

func newTestFetcher() *HTTPFetcher {
	return NewHTTPFetcher(HTTPOptions{
		UserAgent:      "test-agent",
		Timeout:        5 * time.Second,
		MaxRetries:     3,
		RequestsPerSec: 1000,
		BackoffBase:    time.Millisecond,
	})
}

func TestPage(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "test-agent", r.Header.Get("User-Agent"))
		assert.Equal(t, "text/html", r.Header.Get("Accept"))
		w.Write([]byte("<title>Zepto | Jobs</title>"))
	}))
	defer srv.Close()

	status, body, err := newTestFetcher().Page(context.Background(), srv.URL+"/companies/zepto")
	require.NoError(t, err)
	defer body.Close()

	data, err := io.ReadAll(body)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, "<title>Zepto | Jobs</title>", string(data))
}

func TestPage_InvalidURL(t *testing.T) {
	_, _, err := newTestFetcher().Page(context.Background(), "://bad")
	assert.Error(t, err)
}

func TestPage_ContextCancelled(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("ok"))
	}))
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, _, err := newTestFetcher().Page(ctx, srv.URL+"/data")
	require.Error(t, err)
}

func TestPostJSON(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))

		var body map[string]any
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, float64(2), body["page"])

		w.Write([]byte(`{"items":[{"slug":"zepto"}],"count":7}`))
	}))
	defer srv.Close()

	var out struct {
		Items []map[string]any `json:"items"`
		Count json.Number      `json:"count"`
	}
	err := newTestFetcher().PostJSON(context.Background(), srv.URL, map[string]any{"page": 2}, &out)
	require.NoError(t, err)
	require.Len(t, out.Items, 1)
	assert.Equal(t, "zepto", out.Items[0]["slug"])
	assert.Equal(t, json.Number("7"), out.Count)
}

func TestPostJSON_RetriesResendBody(t *testing.T) {
	var attempts atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		b, _ := io.ReadAll(r.Body)
		assert.JSONEq(t, `{"page":0}`, string(b), "body replayed on every attempt")
		if attempts.Add(1) < 2 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		w.Write([]byte(`{}`))
	}))
	defer srv.Close()

	err := newTestFetcher().PostJSON(context.Background(), srv.URL, map[string]int{"page": 0}, nil)
	require.NoError(t, err)
	assert.Equal(t, int32(2), attempts.Load())
}

func TestPostJSON_BadStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnprocessableEntity)
	}))
	defer srv.Close()

	err := newTestFetcher().PostJSON(context.Background(), srv.URL, struct{}{}, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unexpected status 422")
}

func TestPostJSON_BadResponse(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{nope`))
	}))
	defer srv.Close()

	var out map[string]any
	err := newTestFetcher().PostJSON(context.Background(), srv.URL, struct{}{}, &out)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "decode response")
}

func TestPage_ReturnsClientErrors(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		w.Write([]byte("<title>gone</title>"))
	}))
	defer srv.Close()

	status, body, err := newTestFetcher().Page(context.Background(), srv.URL+"/jobs/x")
	require.NoError(t, err)
	defer body.Close()
	assert.Equal(t, http.StatusNotFound, status)
}

func TestRetryOnServerError(t *testing.T) {
	var attempts atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if attempts.Add(1) < 3 {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		w.Write([]byte("success"))
	}))
	defer srv.Close()

	status, body, err := newTestFetcher().Page(context.Background(), srv.URL+"/retry")
	require.NoError(t, err)
	defer body.Close()
	assert.Equal(t, http.StatusOK, status)

	data, err := io.ReadAll(body)
	require.NoError(t, err)
	assert.Equal(t, "success", string(data))
	assert.Equal(t, int32(3), attempts.Load())
}

func TestRetryExhausted(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	f := NewHTTPFetcher(HTTPOptions{MaxRetries: 2, BackoffBase: time.Millisecond})
	_, _, err := f.Page(context.Background(), srv.URL+"/fail")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "all retries exhausted")
}

func TestRateLimiting(t *testing.T) {
	var reqTimes []time.Time
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		reqTimes = append(reqTimes, time.Now())
		w.Write([]byte("ok"))
	}))
	defer srv.Close()

	limiters := map[string]*rate.Limiter{
		srv.Listener.Addr().String(): rate.NewLimiter(2, 1),
	}
	f := NewHTTPFetcher(HTTPOptions{
		Timeout:      5 * time.Second,
		MaxRetries:   1,
		RateLimiters: limiters,
	})

	ctx := context.Background()
	for range 3 {
		_, body, err := f.Page(ctx, srv.URL+"/limited")
		require.NoError(t, err)
		body.Close()
	}

	// With 2 req/s and burst=1, 3 requests take at least ~1s.
	require.GreaterOrEqual(t, len(reqTimes), 3)
	duration := reqTimes[len(reqTimes)-1].Sub(reqTimes[0])
	assert.GreaterOrEqual(t, duration.Milliseconds(), int64(500), "requests should be rate limited")
}

func TestLimiterFor_SharedPerHost(t *testing.T) {
	f := NewHTTPFetcher(HTTPOptions{RequestsPerSec: 3})
	a, _ := url.Parse("https://jobs.lsvp.com/a")
	b, _ := url.Parse("https://jobs.lsvp.com/b")
	c, _ := url.Parse("https://jobs.nexusvp.com/a")

	assert.Same(t, f.limiterFor(a), f.limiterFor(b))
	assert.NotSame(t, f.limiterFor(a), f.limiterFor(c))
	assert.InDelta(t, 3.0, float64(f.limiterFor(a).Limit()), 0.001)
}

func TestNewHTTPFetcher_Defaults(t *testing.T) {
	f := NewHTTPFetcher(HTTPOptions{})
	assert.Equal(t, "portfolio-jobs/1.0", f.opts.UserAgent)
	assert.Equal(t, 30*time.Second, f.opts.Timeout)
	assert.Equal(t, 3, f.opts.MaxRetries)
	assert.Equal(t, time.Second, f.opts.BackoffBase)
	assert.InDelta(t, 5.0, f.opts.RequestsPerSec, 0.001)

	transport, ok := f.client.Transport.(*http.Transport)
	require.True(t, ok)
	assert.Equal(t, 10, transport.MaxIdleConnsPerHost)
	assert.Equal(t, 20, transport.MaxConnsPerHost)
}

func TestAdaptiveLimiter_OnSuccess_IncreasesRate(t *testing.T) {
	lim := NewAdaptiveLimiter(10, 10)

	lim.OnSuccess()
	assert.InDelta(t, 12.0, float64(lim.Limit()), 0.1)

	lim.OnSuccess()
	assert.InDelta(t, 14.4, float64(lim.Limit()), 0.1)
}

func TestAdaptiveLimiter_OnRateLimit_DecreasesRate(t *testing.T) {
	lim := NewAdaptiveLimiter(10, 10)

	lim.OnRateLimit()
	assert.InDelta(t, 5.0, float64(lim.Limit()), 0.1)

	lim.OnRateLimit()
	assert.InDelta(t, 2.5, float64(lim.Limit()), 0.1)
}

func TestAdaptiveLimiter_Bounds(t *testing.T) {
	lim := NewAdaptiveLimiter(10, 10)
	for range 20 {
		lim.OnSuccess()
	}
	assert.InDelta(t, 20.0, float64(lim.Limit()), 0.1, "capped at 2x")

	for range 10 {
		lim.OnRateLimit()
	}
	assert.InDelta(t, 2.5, float64(lim.Limit()), 0.1, "floored at 1/4")
}

func TestAdaptiveLimiter_Wait_ContextCancelled(t *testing.T) {
	lim := NewAdaptiveLimiter(0.001, 0)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.Error(t, lim.Wait(ctx))
}

func TestDoWithRetry_429_AdaptiveBackoff(t *testing.T) {
	var attempts atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if attempts.Add(1) <= 2 {
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		w.Write([]byte("ok"))
	}))
	defer srv.Close()

	u, _ := url.Parse(srv.URL)
	lim := NewAdaptiveLimiter(100, 100)
	f := NewHTTPFetcher(HTTPOptions{
		MaxRetries:       3,
		BackoffBase:      time.Millisecond,
		AdaptiveLimiters: map[string]*AdaptiveLimiter{u.Host: lim},
	})

	_, body, err := f.Page(context.Background(), srv.URL+"/data")
	require.NoError(t, err)
	defer body.Close()

	assert.Equal(t, int32(3), attempts.Load())
	// 100 -> 50 -> 25 -> 30
	assert.InDelta(t, 30.0, float64(lim.Limit()), 0.1)
}

func TestDefaultAdaptiveLimiters(t *testing.T) {
	limiters := DefaultAdaptiveLimiters()
	require.Contains(t, limiters, "api.getro.com")
	assert.InDelta(t, 5.0, float64(limiters["api.getro.com"].Limit()), 0.1)

	f := NewHTTPFetcher(HTTPOptions{})
	u, _ := url.Parse("https://api.getro.com/api/v2/collections/8672/search/companies")
	assert.NotNil(t, f.adaptiveLimiterFor(u))
	u, _ = url.Parse("https://careers.peakxv.com/api-boards/search-companies")
	assert.Nil(t, f.adaptiveLimiterFor(u))
}
