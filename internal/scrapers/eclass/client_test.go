package eclass

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"eclassbot-backend/internal/components/telemetry"

	"github.com/stretchr/testify/require"
)

type recordedSleeps struct {
	mutex sync.Mutex
	waits []time.Duration
}

func (r *recordedSleeps) sleep(ctx context.Context, d time.Duration) error {
	r.mutex.Lock()
	defer r.mutex.Unlock()
	r.waits = append(r.waits, d)
	return ctx.Err()
}

// statusServer answers with statuses in order, repeating the last one.
func statusServer(t *testing.T, headers map[string]string, statuses ...int) (*httptest.Server, *int) {
	var mutex sync.Mutex
	hits := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mutex.Lock()
		status := statuses[len(statuses)-1]
		if hits < len(statuses) {
			status = statuses[hits]
		}
		hits++
		mutex.Unlock()
		for k, v := range headers {
			w.Header().Set(k, v)
		}
		w.WriteHeader(status)
		w.Write([]byte("<html><body>ok</body></html>"))
	}))
	t.Cleanup(srv.Close)
	return srv, &hits
}

func newTestClient(t *testing.T, baseUrl string, sleeps *recordedSleeps) *Client {
	client, err := NewClient(Options{
		BaseUrl: baseUrl,
		Timeout: 2 * time.Second,
		Sleep:   sleeps.sleep,
	}, telemetry.NewRecorder())
	require.NoError(t, err)
	return client
}

func TestRetryStateMachine(t *testing.T) {
	cases := []struct {
		name      string
		statuses  []int
		headers   map[string]string
		expected  error
		hits      int
		waits     int
		firstWait time.Duration
	}{
		{name: "success", statuses: []int{200}, hits: 1},
		{name: "5xx then success", statuses: []int{503, 502, 200}, hits: 3, waits: 2},
		{name: "5xx exhausted", statuses: []int{500}, expected: ErrTemporaryServer, hits: 4, waits: 3},
		{name: "403 exhausted", statuses: []int{403}, expected: ErrBlocked, hits: 4, waits: 3},
		{name: "403 recovers", statuses: []int{403, 200}, hits: 2, waits: 1},
		{name: "429 exhausted", statuses: []int{429}, expected: ErrRateLimited, hits: 4, waits: 3},
		{
			name:      "429 honours retry-after",
			statuses:  []int{429, 200},
			headers:   map[string]string{"Retry-After": "7"},
			hits:      2,
			waits:     1,
			firstWait: 7 * time.Second,
		},
		{name: "404 is not retried", statuses: []int{404}, expected: ErrClient, hits: 1},
		{name: "400 is not retried", statuses: []int{400}, expected: ErrClient, hits: 1},
	}

	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			srv, hits := statusServer(t, c.headers, c.statuses...)
			sleeps := &recordedSleeps{}
			client := newTestClient(t, srv.URL, sleeps)

			_, err := client.get(context.Background(), srv.URL+"/page")
			if c.expected == nil {
				require.NoError(t, err)
			} else {
				require.ErrorIs(t, err, c.expected)
			}
			require.Equal(t, c.hits, *hits)
			require.Len(t, sleeps.waits, c.waits)
			if c.firstWait != 0 {
				require.Equal(t, c.firstWait, sleeps.waits[0])
			}
		})
	}
}

func TestRetryNetworkError(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	target := srv.URL
	srv.Close()

	sleeps := &recordedSleeps{}
	client := newTestClient(t, target, sleeps)
	_, err := client.get(context.Background(), target+"/")
	require.ErrorIs(t, err, ErrNetwork)
	require.Equal(t, KindNetwork, Kind(err))
	require.Len(t, sleeps.waits, 3)
}

func TestRetryStopsOnCancel(t *testing.T) {
	srv, hits := statusServer(t, nil, 503)
	client, err := NewClient(Options{
		BaseUrl: srv.URL,
		Sleep: func(ctx context.Context, d time.Duration) error {
			return context.Canceled
		},
	}, telemetry.NewRecorder())
	require.NoError(t, err)

	_, err = client.get(context.Background(), srv.URL)
	require.ErrorIs(t, err, ErrNetwork)
	require.True(t, errors.Is(err, context.Canceled))
	require.Equal(t, 1, *hits)
}

func TestBackoff(t *testing.T) {
	policy := DefaultRetryPolicy()
	for attempt := 0; attempt < 4; attempt++ {
		d := policy.Backoff(attempt)
		base := policy.BackoffBase << attempt
		require.GreaterOrEqual(t, d, base)
		require.Less(t, d, base+policy.BackoffJitter)
	}

	d, ok := policy.RetryAfter("3")
	require.True(t, ok)
	require.Equal(t, 3*time.Second, d)
	d, ok = policy.RetryAfter("100000")
	require.True(t, ok)
	require.Equal(t, policy.MaxRetryAfter, d)
	_, ok = policy.RetryAfter("Wed, 21 Oct 2015 07:28:00 GMT")
	require.False(t, ok)
}

func TestKind(t *testing.T) {
	require.Equal(t, KindLoginFailed, Kind(ErrLoginFailed))
	require.Equal(t, KindBlocked, Kind(statusError("GET", "/x", 403)))
	require.Equal(t, KindUnexpected, Kind(errors.New("boom")))
	require.True(t, InvalidatesCredentials(ErrAuthExpired))
	require.False(t, InvalidatesCredentials(ErrRateLimited))
}
