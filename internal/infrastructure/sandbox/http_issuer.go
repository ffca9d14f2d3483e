package sandbox

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"rillcast/pkg/retry"

	"go.uber.org/zap"
)

type HTTPIssuerConfig struct {
	BaseURL string
	AppID   string
	Client  *http.Client
	Retry   retry.Config
}

// HTTPIssuer asks a hosted room manager for peer tokens.
type HTTPIssuer struct {
	cfg      HTTPIssuerConfig
	observer TokenObserver
	logger   *zap.SugaredLogger
}

type roomManagerResponse struct {
	PeerToken string `json:"peerToken"`
	URL       string `json:"url,omitempty"`
}

func NewHTTPIssuer(cfg HTTPIssuerConfig, observer TokenObserver, logger *zap.SugaredLogger) *HTTPIssuer {
	if cfg.Client == nil {
		cfg.Client = http.DefaultClient
	}
	return &HTTPIssuer{cfg: cfg, observer: observer, logger: logger}
}

// PeerToken returns "" with a nil error when the room manager answers but
// gives no token. Transport failures are retried and then returned.
func (i *HTTPIssuer) PeerToken(ctx context.Context, roomName, displayName string) (string, error) {
	start := time.Now()
	token, err := retry.DoValue(ctx, i.cfg.Retry, func(ctx context.Context) (string, error) {
		return i.fetch(ctx, roomName, displayName)
	})
	if i.observer != nil {
		i.observer.ObserveToken("http", time.Since(start), err == nil && token != "")
	}
	if err != nil {
		i.logger.Errorw("room manager request failed", "room", roomName, "error", err)
		return "", err
	}
	return token, nil
}

func (i *HTTPIssuer) endpoint(roomName, displayName string) string {
	q := url.Values{}
	q.Set("roomName", roomName)
	q.Set("peerName", displayName)
	base := strings.TrimRight(i.cfg.BaseURL, "/")
	return fmt.Sprintf("%s/%s/room-manager?%s", base, url.PathEscape(i.cfg.AppID), q.Encode())
}

func (i *HTTPIssuer) fetch(ctx context.Context, roomName, displayName string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, i.endpoint(roomName, displayName), nil)
	if err != nil {
		return "", retry.Permanent(fmt.Errorf("build room manager request: %w", err))
	}

	resp, err := i.cfg.Client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 64*1024))
	if err != nil {
		return "", err
	}

	if resp.StatusCode >= 500 {
		return "", fmt.Errorf("room manager returned %d", resp.StatusCode)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		i.logger.Warnw("room manager refused token request",
			"room", roomName,
			"status", resp.StatusCode,
			"body", string(body),
		)
		return "", nil
	}

	var out roomManagerResponse
	if err := json.Unmarshal(body, &out); err != nil {
		i.logger.Warnw("room manager returned malformed body", "room", roomName, "error", err)
		return "", nil
	}
	return out.PeerToken, nil
}
