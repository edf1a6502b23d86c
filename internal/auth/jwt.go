package auth

import (
	"fmt"
	"time"

	"github.com/fedutinova/drivescribe/internal/common"
	"github.com/golang-jwt/jwt/v5"
)

const Audience = "drivescribe"

// Claims identify an integration (for example an n8n workflow) allowed to
// submit jobs.
type Claims struct {
	jwt.RegisteredClaims
}

func NewToken(secret, issuer, subject string, ttl time.Duration) (string, error) {
	now := time.Now()
	cl := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:   issuer,
			Subject:  subject,
			IssuedAt: jwt.NewNumericDate(now),
			Audience: []string{Audience},
		},
	}
	// ttl <= 0 mints a non-expiring token for long-lived integrations
	if ttl > 0 {
		cl.ExpiresAt = jwt.NewNumericDate(now.Add(ttl))
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, cl)
	return token.SignedString([]byte(secret))
}

func ParseToken(secret, issuer, tokenStr string) (*Claims, error) {
	parser := jwt.NewParser(
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(issuer),
		jwt.WithAudience(Audience),
	)
	cl := &Claims{}
	if _, err := parser.ParseWithClaims(tokenStr, cl, func(t *jwt.Token) (any, error) {
		return []byte(secret), nil
	}); err != nil {
		return nil, fmt.Errorf("%w: %w", common.ErrUnauthorized, err)
	}
	return cl, nil
}
