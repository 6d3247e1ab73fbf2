package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gofrs/uuid/v5"
	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"

	"github.com/sandai/arena/src/domain/shared"
)

type contextKey string

const (
	correlationKey contextKey = "correlation_id"
	identityKey    contextKey = "identity"
)

func (s *Server) correlationMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		reqID := r.Header.Get("X-Request-Id")
		if reqID == "" {
			reqID = generateCorrelationID()
			w.Header().Set("X-Request-Id", reqID)
		}
		ctx := context.WithValue(r.Context(), correlationKey, reqID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func generateCorrelationID() string {
	return uuid.Must(uuid.NewV4()).String()
}

func correlationIDFromContext(ctx context.Context) string {
	if value, ok := ctx.Value(correlationKey).(string); ok {
		return value
	}
	return ""
}

// Identity is the caller as asserted by a verified token.
type Identity struct {
	ID       shared.PlayerID
	Nickname string
}

type Claims struct {
	Nickname string `json:"nickname"`
	jwt.RegisteredClaims
}

var errUnauthenticated = errors.New("missing or invalid token")

// Authenticator verifies HS256 tokens issued by the identity service.
type Authenticator struct {
	Secret []byte
	Clock  func() time.Time
}

func NewAuthenticator(secret string) *Authenticator {
	return &Authenticator{Secret: []byte(secret), Clock: time.Now}
}

func (a *Authenticator) Verify(raw string) (Identity, error) {
	var claims Claims
	_, err := jwt.ParseWithClaims(raw, &claims, func(*jwt.Token) (any, error) {
		return a.Secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithTimeFunc(a.Clock))
	if err != nil {
		return Identity{}, fmt.Errorf("%w: %v", errUnauthenticated, err)
	}
	if claims.Subject == "" {
		return Identity{}, fmt.Errorf("%w: token has no subject", errUnauthenticated)
	}
	nickname := claims.Nickname
	if nickname == "" {
		nickname = claims.Subject
	}
	return Identity{ID: shared.PlayerID(claims.Subject), Nickname: nickname}, nil
}

// tokenFromRequest reads a bearer token, falling back to the token query
// parameter that browsers use for websocket upgrades.
func tokenFromRequest(r *http.Request) string {
	if h := r.Header.Get("Authorization"); h != "" {
		if token, ok := strings.CutPrefix(h, "Bearer "); ok {
			return strings.TrimSpace(token)
		}
	}
	return r.URL.Query().Get("token")
}

func (s *Server) authMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id, err := s.cfg.Auth.Verify(tokenFromRequest(r))
		if err != nil {
			s.writeError(w, http.StatusUnauthorized, errUnauthenticated)
			return
		}
		if _, err := s.cfg.Players.EnsurePlayer(r.Context(), id.ID, id.Nickname); err != nil {
			s.cfg.Logger.Warn("failed to provision player", zap.String("player_id", id.ID.String()), zap.Error(err))
		}
		ctx := context.WithValue(r.Context(), identityKey, id)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func identityFromContext(ctx context.Context) Identity {
	id, _ := ctx.Value(identityKey).(Identity)
	return id
}
