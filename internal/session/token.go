package session

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/injunweb/injunctl/internal/domain"
)

// Claims are the session token claims the client relies on.
type Claims struct {
	ExpiresAt time.Time
	IsAdmin   bool
	Subject   string
	Username  string
}

// ExpiredAt reports whether the claims are expired at now. A token is usable
// only while now is strictly before its expiry.
func (c Claims) ExpiredAt(now time.Time) bool {
	return !now.Before(c.ExpiresAt)
}

var unverifiedParser = jwt.NewParser(jwt.WithoutClaimsValidation())

// Decode reads the claims of a session token without verifying its
// signature. The server is the only authority on token validity; the client
// only needs the expiry and the admin flag to decide what to show.
//
// Any failure wraps [domain.ErrInvalidToken].
func Decode(token string) (Claims, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return Claims{}, fmt.Errorf("%w: empty token", domain.ErrInvalidToken)
	}

	mc := jwt.MapClaims{}
	if _, _, err := unverifiedParser.ParseUnverified(token, mc); err != nil {
		return Claims{}, fmt.Errorf("%w: %v", domain.ErrInvalidToken, err)
	}

	exp, err := mc.GetExpirationTime()
	if err != nil {
		return Claims{}, fmt.Errorf("%w: %v", domain.ErrInvalidToken, err)
	}
	if exp == nil {
		return Claims{}, fmt.Errorf("%w: missing exp claim", domain.ErrInvalidToken)
	}

	claims := Claims{ExpiresAt: exp.Time.UTC()}
	// A missing or non-boolean is_admin claim means a regular user.
	if v, ok := mc["is_admin"].(bool); ok {
		claims.IsAdmin = v
	}
	switch sub := mc["sub"].(type) {
	case string:
		claims.Subject = sub
	case float64:
		claims.Subject = strconv.FormatFloat(sub, 'f', -1, 64)
	}
	if name, ok := mc["username"].(string); ok {
		claims.Username = name
	}
	return claims, nil
}
