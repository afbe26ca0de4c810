package identity

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"verigate/internal/identity/metrics"
	"verigate/internal/platform/config"
)

func newTestClient(t *testing.T, handler http.HandlerFunc, opts ...Option) (*Client, *atomic.Int32) {
	t.Helper()
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		handler(w, r)
	}))
	t.Cleanup(srv.Close)

	cfg := config.IdentityConfig{
		Endpoint:    srv.URL,
		AuthHeader:  "Authorization",
		AuthScheme:  "Bearer",
		StripPrefix: "Bearer ",
		Timeout:     time.Second,
		UserAgent:   "verigate-test",
	}
	return New(cfg, opts...), &calls
}

func TestValidateSuccess(t *testing.T) {
	headers := make(chan http.Header, 1)
	client, calls := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		headers <- r.Header.Clone()
		_, _ = w.Write([]byte(`{"id":42,"name":"Alice","displayName":"Ally","hasVerifiedBadge":true}`))
	})

	id, err := client.Validate(context.Background(), "  Bearer abcdefghijklmnopqrstuvwxyz  ")
	require.NoError(t, err)
	assert.Equal(t, &Identity{ID: 42, Name: "Alice", DisplayName: "Ally", HasVerifiedBadge: true}, id)
	got := <-headers
	assert.Equal(t, "Bearer abcdefghijklmnopqrstuvwxyz", got.Get("Authorization"))
	assert.Equal(t, "verigate-test", got.Get("User-Agent"))
	assert.EqualValues(t, 1, calls.Load())
}

func TestValidateEmptyCredentialMakesNoCall(t *testing.T) {
	client, calls := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	for _, raw := range []string{"", "   ", "Bearer ", "\tBearer   \n"} {
		_, err := client.Validate(context.Background(), raw)
		require.Error(t, err)
		assert.Equal(t, KindEmptyCredential, KindOf(err), "raw=%q", raw)
	}
	assert.Zero(t, calls.Load())
}

func TestValidateStatusMapping(t *testing.T) {
	tests := []struct {
		name     string
		status   int
		body     string
		kind     Kind
		terminal bool
	}{
		{"unauthorized", http.StatusUnauthorized, "", KindUnauthorized, true},
		{"forbidden", http.StatusForbidden, "", KindForbidden, true},
		{"rate limited", http.StatusTooManyRequests, "", KindRateLimited, false},
		{"server error", http.StatusBadGateway, "", KindRemoteError, false},
		{"unexpected status", http.StatusTeapot, "", KindRemoteError, false},
		{"missing name", http.StatusOK, `{"id":42}`, KindMalformedResponse, true},
		{"missing id", http.StatusOK, `{"name":"Alice"}`, KindMalformedResponse, true},
		{"not json", http.StatusOK, `<html>`, KindMalformedResponse, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client, _ := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			})

			id, err := client.Validate(context.Background(), "abcdefghijklmnopqrstuvwxyz")
			require.Error(t, err)
			assert.Nil(t, id)
			assert.Equal(t, tt.kind, KindOf(err))
			assert.Equal(t, tt.terminal, IsTerminal(err))
		})
	}
}

func TestValidateTimeout(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(2 * time.Second):
		}
	})
	client.timeout = 50 * time.Millisecond

	_, err := client.Validate(context.Background(), "abcdefghijklmnopqrstuvwxyz")
	require.Error(t, err)
	assert.Equal(t, KindTimeout, KindOf(err))
	assert.False(t, IsTerminal(err))
}

func TestValidateCustomHeaderWithoutScheme(t *testing.T) {
	keys := make(chan string, 1)
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		keys <- r.Header.Get("X-Api-Key")
		_, _ = w.Write([]byte(`{"id":7,"name":"bob"}`))
	})
	client.authHeader = "X-Api-Key"
	client.authScheme = ""

	_, err := client.Validate(context.Background(), "abcdefghijklmnopqrstuvwxyz")
	require.NoError(t, err)
	assert.Equal(t, "abcdefghijklmnopqrstuvwxyz", <-keys)
}

func TestValidateRecordsMetrics(t *testing.T) {
	m := metrics.New(prometheus.NewRegistry())
	client, _ := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}, WithMetrics(m))

	_, _ = client.Validate(context.Background(), "abcdefghijklmnopqrstuvwxyz")
	_, _ = client.Validate(context.Background(), "")

	assert.Equal(t, 1.0, testutil.ToFloat64(m.Outcomes.WithLabelValues(string(KindUnauthorized))))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Outcomes.WithLabelValues(string(KindEmptyCredential))))
}

func TestKindClassification(t *testing.T) {
	for _, k := range []Kind{KindUnauthorized, KindForbidden, KindMalformedResponse} {
		assert.True(t, k.Terminal(), k)
		assert.False(t, k.Transient(), k)
	}
	for _, k := range []Kind{KindTimeout, KindRateLimited, KindRemoteError, KindStoreUnavailable, KindThrottled} {
		assert.False(t, k.Terminal(), k)
		assert.True(t, k.Transient(), k)
	}
	for _, k := range []Kind{KindEmptyCredential, KindTooShort} {
		assert.False(t, k.Terminal(), k)
		assert.False(t, k.Transient(), k)
	}
}

func TestFingerprint(t *testing.T) {
	a := Fingerprint("abcdefghijklmnopqrstuvwxyz")
	assert.Len(t, a, 12)
	assert.Equal(t, a, Fingerprint("abcdefghijklmnopqrstuvwxyz"))
	assert.NotEqual(t, a, Fingerprint("abcdefghijklmnopqrstuvwxy0"))
	assert.Empty(t, Fingerprint(""))
}
