package sandbox

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Claims is the payload of a locally issued peer token.
type Claims struct {
	Room     string `json:"room"`
	PeerName string `json:"peer_name"`
	jwt.RegisteredClaims
}

// LocalIssuer signs HS256 peer tokens in process.
type LocalIssuer struct {
	secret   []byte
	ttl      time.Duration
	now      func() time.Time
	observer TokenObserver
	logger   *zap.SugaredLogger
}

func NewLocalIssuer(secret []byte, ttl time.Duration, observer TokenObserver, logger *zap.SugaredLogger) *LocalIssuer {
	return &LocalIssuer{
		secret:   secret,
		ttl:      ttl,
		now:      time.Now,
		observer: observer,
		logger:   logger,
	}
}

func (i *LocalIssuer) PeerToken(ctx context.Context, roomName, displayName string) (string, error) {
	start := time.Now()
	token, err := i.sign(roomName, displayName)
	if i.observer != nil {
		i.observer.ObserveToken("local", time.Since(start), err == nil)
	}
	if err != nil {
		i.logger.Errorw("failed to sign peer token", "room", roomName, "error", err)
		return "", err
	}
	return token, nil
}

func (i *LocalIssuer) sign(roomName, displayName string) (string, error) {
	now := i.now()
	claims := Claims{
		Room:     roomName,
		PeerName: displayName,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Subject:   displayName,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(i.ttl)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(i.secret)
}

// ParseToken verifies a token signed by a LocalIssuer with the same secret.
func ParseToken(secret []byte, tokenString string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return secret, nil
	})
	if err != nil {
		return nil, err
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, errors.New("invalid peer token")
	}
	return claims, nil
}
