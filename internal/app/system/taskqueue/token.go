// internal/app/system/taskqueue/token.go
package taskqueue

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const (
	tokenIssuer   = "melange-dispatcher"
	tokenLifetime = 5 * time.Minute
)

// TaskClaims identifies the task a dispatcher request delivers.
type TaskClaims struct {
	TaskID string `json:"tid"`
	jwt.RegisteredClaims
}

// Signer issues and verifies the HS256 bearer tokens that authenticate
// dispatcher requests to /tasks endpoints.
type Signer struct {
	key []byte
	now func() time.Time
}

// NewSigner creates a Signer for secret.
func NewSigner(secret string) *Signer {
	return &Signer{key: []byte(secret), now: time.Now}
}

// Sign returns a token for one delivery of the named task.
func (s *Signer) Sign(taskName, taskID string) (string, error) {
	now := s.now()
	claims := TaskClaims{
		TaskID: taskID,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    tokenIssuer,
			Subject:   taskName,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(tokenLifetime)),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.key)
	if err != nil {
		return "", fmt.Errorf("sign task token: %w", err)
	}
	return signed, nil
}

// Verify parses and validates a token, rejecting other algorithms.
func (s *Signer) Verify(token string) (*TaskClaims, error) {
	claims := &TaskClaims{}
	_, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (any, error) {
		return s.key, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(tokenIssuer),
		jwt.WithTimeFunc(s.now),
	)
	if err != nil {
		return nil, err
	}
	return claims, nil
}

var errNoBearer = errors.New("missing bearer token")

func bearer(r *http.Request) (string, error) {
	h := r.Header.Get("Authorization")
	tok, ok := strings.CutPrefix(h, "Bearer ")
	if !ok || tok == "" {
		return "", errNoBearer
	}
	return tok, nil
}

// RequireTaskToken rejects requests without a valid dispatcher token with 401.
func (s *Signer) RequireTaskToken(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		tok, err := bearer(r)
		if err == nil {
			_, err = s.Verify(tok)
		}
		if err != nil {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusUnauthorized)
			_, _ = w.Write([]byte(`{"error":"invalid task token"}`))
			return
		}
		next.ServeHTTP(w, r)
	})
}
