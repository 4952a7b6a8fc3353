// Package auth contains the password hasher and the access token codec.
package auth

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/paralympics/authapi/internal/common"
)

func init() {
	// iat and exp carry the full issue time instead of whole seconds.
	jwt.TimePrecision = time.Nanosecond
}

// Codec issues and validates HS256 access tokens.
// The zero value is not usable; construct with NewCodec.
type Codec struct {
	secret []byte
	ttl    time.Duration
}

func NewCodec(secret []byte, ttl time.Duration) (*Codec, error) {
	if len(secret) == 0 {
		return nil, errors.New("token signing secret is empty")
	}
	if ttl <= 0 {
		return nil, fmt.Errorf("token validity must be positive, got %v", ttl)
	}
	s := make([]byte, len(secret))
	copy(s, secret)
	return &Codec{secret: s, ttl: ttl}, nil
}

// TTL is the validity period of issued tokens.
func (c *Codec) TTL() time.Duration {
	return c.ttl
}

// Issue signs a token for principalID valid from now until now+TTL.
func (c *Codec) Issue(principalID string, now time.Time) (string, error) {
	if principalID == "" {
		return "", errors.New("principal id is empty")
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Subject:   principalID,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(c.ttl)),
	})

	signed, err := token.SignedString(c.secret)
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}
	return signed, nil
}

// Validate checks the token signature and expiry at now and returns the
// embedded principal id. A token is expired from exp on, inclusive.
//
// Errors: common.ErrTokenMalformed, common.ErrTokenBadSignature,
// common.ErrTokenExpired, each wrapping the parser's cause.
func (c *Codec) Validate(tokenString string, now time.Time) (string, error) {
	claims := &accessClaims{}

	_, err := jwt.ParseWithClaims(tokenString, claims,
		func(t *jwt.Token) (interface{}, error) {
			return c.secret, nil
		},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(func() time.Time { return now }),
	)
	if err != nil {
		return "", classify(err)
	}

	if claims.Subject == "" {
		return "", fmt.Errorf("%w: subject missing", common.ErrTokenMalformed)
	}
	return claims.Subject, nil
}

func classify(err error) error {
	switch {
	case errors.Is(err, jwt.ErrTokenSignatureInvalid):
		return fmt.Errorf("%w: %v", common.ErrTokenBadSignature, err)
	case errors.Is(err, jwt.ErrTokenExpired):
		return fmt.Errorf("%w: %v", common.ErrTokenExpired, err)
	default:
		return fmt.Errorf("%w: %v", common.ErrTokenMalformed, err)
	}
}

// accessClaims keeps iat and exp as decimal text so they decode to the
// nanosecond. jwt.NumericDate decodes through float64.
type accessClaims struct {
	Subject   string      `json:"sub"`
	IssuedAt  json.Number `json:"iat,omitempty"`
	ExpiresAt json.Number `json:"exp,omitempty"`
}

func (c *accessClaims) GetExpirationTime() (*jwt.NumericDate, error) {
	return numericDate(c.ExpiresAt)
}

func (c *accessClaims) GetIssuedAt() (*jwt.NumericDate, error) {
	return numericDate(c.IssuedAt)
}

func (c *accessClaims) GetNotBefore() (*jwt.NumericDate, error) { return nil, nil }

func (c *accessClaims) GetIssuer() (string, error) { return "", nil }

func (c *accessClaims) GetSubject() (string, error) { return c.Subject, nil }

func (c *accessClaims) GetAudience() (jwt.ClaimStrings, error) { return nil, nil }

func numericDate(n json.Number) (*jwt.NumericDate, error) {
	if n == "" {
		return nil, nil
	}
	t, err := parseEpoch(string(n))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", jwt.ErrInvalidType, err)
	}
	return &jwt.NumericDate{Time: t}, nil
}

// parseEpoch reads "<seconds>[.<fraction>]" exactly, to the nanosecond.
// Other number forms fall back to float parsing.
func parseEpoch(s string) (time.Time, error) {
	whole, frac, _ := strings.Cut(s, ".")
	sec, err := strconv.ParseInt(whole, 10, 64)
	if err != nil || strings.ContainsAny(frac, "eE+-") {
		f, ferr := strconv.ParseFloat(s, 64)
		if ferr != nil {
			return time.Time{}, ferr
		}
		round, fraction := math.Modf(f)
		return time.Unix(int64(round), int64(fraction*1e9)), nil
	}
	if len(frac) > 9 {
		frac = frac[:9]
	}
	var nsec int64
	if frac != "" {
		if nsec, err = strconv.ParseInt(frac+strings.Repeat("0", 9-len(frac)), 10, 64); err != nil {
			return time.Time{}, err
		}
	}
	if strings.HasPrefix(whole, "-") {
		nsec = -nsec
	}
	return time.Unix(sec, nsec), nil
}
