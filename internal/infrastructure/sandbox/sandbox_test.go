package sandbox

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"rillcast/pkg/config"
	"rillcast/pkg/retry"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

type countingObserver struct {
	ok, failed int32
}

func (o *countingObserver) ObserveToken(_ string, _ time.Duration, ok bool) {
	if ok {
		atomic.AddInt32(&o.ok, 1)
		return
	}
	atomic.AddInt32(&o.failed, 1)
}

func fastRetry() retry.Config {
	return retry.Config{MaxAttempts: 3, InitialDelay: time.Millisecond, MaxDelay: time.Millisecond, Multiplier: 1}
}

func TestHTTPIssuer_ReturnsToken(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/app-1/room-manager", r.URL.Path)
		assert.Equal(t, "stream-1", r.URL.Query().Get("roomName"))
		assert.Equal(t, "Demo User-host", r.URL.Query().Get("peerName"))
		_, _ = w.Write([]byte(`{"peerToken":"tok-123","url":"wss://example"}`))
	}))
	defer srv.Close()

	obs := &countingObserver{}
	issuer := NewHTTPIssuer(HTTPIssuerConfig{BaseURL: srv.URL + "/", AppID: "app-1", Retry: fastRetry()}, obs, zaptest.NewLogger(t).Sugar())

	token, err := issuer.PeerToken(context.Background(), "stream-1", "Demo User-host")
	require.NoError(t, err)
	assert.Equal(t, "tok-123", token)
	assert.Equal(t, int32(1), obs.ok)
}

func TestHTTPIssuer_ClientErrorYieldsEmptyToken(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		http.Error(w, "unknown app", http.StatusNotFound)
	}))
	defer srv.Close()

	obs := &countingObserver{}
	issuer := NewHTTPIssuer(HTTPIssuerConfig{BaseURL: srv.URL, AppID: "YOUR_FISHJAM_ID", Retry: fastRetry()}, obs, zaptest.NewLogger(t).Sugar())

	token, err := issuer.PeerToken(context.Background(), "room", "peer")
	require.NoError(t, err)
	assert.Empty(t, token)
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
	assert.Equal(t, int32(1), obs.failed)
}

func TestHTTPIssuer_RetriesServerErrors(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		_, _ = w.Write([]byte(`{"peerToken":"late"}`))
	}))
	defer srv.Close()

	issuer := NewHTTPIssuer(HTTPIssuerConfig{BaseURL: srv.URL, AppID: "a", Retry: fastRetry()}, nil, zaptest.NewLogger(t).Sugar())
	token, err := issuer.PeerToken(context.Background(), "room", "peer")
	require.NoError(t, err)
	assert.Equal(t, "late", token)
	assert.Equal(t, int32(3), atomic.LoadInt32(&calls))
}

func TestHTTPIssuer_MalformedBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`not json`))
	}))
	defer srv.Close()

	issuer := NewHTTPIssuer(HTTPIssuerConfig{BaseURL: srv.URL, AppID: "a", Retry: fastRetry()}, nil, zaptest.NewLogger(t).Sugar())
	token, err := issuer.PeerToken(context.Background(), "room", "peer")
	require.NoError(t, err)
	assert.Empty(t, token)
}

func TestLocalIssuer_SignsVerifiableToken(t *testing.T) {
	secret := []byte("secret")
	issuer := NewLocalIssuer(secret, time.Hour, nil, zaptest.NewLogger(t).Sugar())

	token, err := issuer.PeerToken(context.Background(), "stream-1", "Demo User-host")
	require.NoError(t, err)
	require.NotEmpty(t, token)

	claims, err := ParseToken(secret, token)
	require.NoError(t, err)
	assert.Equal(t, "stream-1", claims.Room)
	assert.Equal(t, "Demo User-host", claims.PeerName)
	assert.NotEmpty(t, claims.ID)

	_, err = ParseToken([]byte("other"), token)
	assert.Error(t, err)
}

func TestLocalIssuer_ExpiredToken(t *testing.T) {
	secret := []byte("secret")
	issuer := NewLocalIssuer(secret, time.Minute, nil, zaptest.NewLogger(t).Sugar())
	issuer.now = func() time.Time { return time.Now().Add(-time.Hour) }

	token, err := issuer.PeerToken(context.Background(), "r", "p")
	require.NoError(t, err)
	_, err = ParseToken(secret, token)
	assert.Error(t, err)
}

func TestNewIssuer_SelectsByMode(t *testing.T) {
	cfg := config.DefaultConfig()
	logger := zaptest.NewLogger(t).Sugar()

	issuer, err := NewIssuer(cfg, nil, logger)
	require.NoError(t, err)
	assert.IsType(t, &LocalIssuer{}, issuer)

	cfg.Sandbox.Mode = "http"
	issuer, err = NewIssuer(cfg, nil, logger)
	require.NoError(t, err)
	assert.IsType(t, &HTTPIssuer{}, issuer)

	cfg.Sandbox.Mode = "other"
	_, err = NewIssuer(cfg, nil, logger)
	assert.Error(t, err)
}
