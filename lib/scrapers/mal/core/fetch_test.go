package core

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"anidata-backend/lib/throttle"

	"github.com/stretchr/testify/require"
)

type recordingSleeper struct {
	bases []time.Duration
}

func (r *recordingSleeper) Sleep(ctx context.Context, base time.Duration) error {
	r.bases = append(r.bases, base)
	return ctx.Err()
}

func newTestClient(t *testing.T, baseUrl string, sleeper throttle.Sleeper) *Client {
	t.Helper()
	client, err := NewClient(ClientOptions{
		BaseUrl:   baseUrl,
		UserAgent: "test-agent",
		Sleeper:   sleeper,
	})
	require.NoError(t, err)
	return client
}

func TestFetchSuccessShortCircuits(t *testing.T) {
	var hits atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.Write([]byte("ok"))
	}))
	defer server.Close()

	client := newTestClient(t, server.URL, throttle.Nop{})
	res, err := client.Fetch(context.Background(), server.URL, nil)
	require.NoError(t, err)
	require.Equal(t, "ok", res.String())
	require.EqualValues(t, 1, hits.Load())
}

func TestFetchExhaustsBudget(t *testing.T) {
	var hits atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	sleeper := &recordingSleeper{}
	client := newTestClient(t, server.URL, sleeper)
	_, err := client.Fetch(context.Background(), server.URL, nil)
	require.ErrorIs(t, err, ErrExhausted)
	// exactly the configured number of attempts, never more
	require.EqualValues(t, DefaultAttempts, hits.Load())
	require.Equal(t, []time.Duration{throttle.Retry, throttle.Retry, throttle.Retry}, sleeper.bases)
}

func TestFetchAccessDeniedStopsImmediately(t *testing.T) {
	var hits atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.WriteHeader(http.StatusForbidden)
	}))
	defer server.Close()

	sleeper := &recordingSleeper{}
	client := newTestClient(t, server.URL, sleeper)
	_, err := client.Fetch(context.Background(), server.URL, nil)
	require.ErrorIs(t, err, ErrAccessDenied)
	require.EqualValues(t, 1, hits.Load())
	require.Empty(t, sleeper.bases)
}

func TestFetchRecoversWithinBudget(t *testing.T) {
	var hits atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if hits.Add(1) < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.Write([]byte("ok"))
	}))
	defer server.Close()

	client := newTestClient(t, server.URL, throttle.Nop{})
	res, err := client.Fetch(context.Background(), server.URL, nil)
	require.NoError(t, err)
	require.Equal(t, "ok", res.String())
	require.EqualValues(t, 3, hits.Load())
}

func TestFetchTransportFailureUsesLongCooldown(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	deadUrl := server.URL
	server.Close()

	sleeper := &recordingSleeper{}
	client := newTestClient(t, deadUrl, sleeper)
	client.Http.SetTimeout(time.Second)

	_, err := client.Fetch(context.Background(), deadUrl, nil)
	require.ErrorIs(t, err, ErrExhausted)
	require.Equal(t, []time.Duration{throttle.Transport, throttle.Transport, throttle.Transport}, sleeper.bases)
}

func TestFetchSendsHeaders(t *testing.T) {
	var gotClientId atomic.Value
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotClientId.Store(r.Header.Get("X-MAL-CLIENT-ID"))
		w.Write([]byte("{}"))
	}))
	defer server.Close()

	client := newTestClient(t, server.URL, throttle.Nop{})
	_, err := client.Fetch(context.Background(), server.URL, map[string]string{
		"X-MAL-CLIENT-ID": "abc123",
	})
	require.NoError(t, err)
	require.Equal(t, "abc123", gotClientId.Load())
}
