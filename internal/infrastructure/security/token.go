package security

import (
	"fmt"
	"time"

	"streamhub/internal/core/domain"

	"github.com/golang-jwt/jwt/v5"
)

const DefaultAccessTokenTTL = 30 * time.Minute

// JWTCodec signs HMAC JWTs carrying the principal in "sub" and expiry in "exp".
// Tokens are stateless: there is no revocation, and rotating the secret
// invalidates every outstanding token.
type JWTCodec struct {
	secret []byte
	method jwt.SigningMethod
}

func NewJWTCodec(secret, algorithm string) (*JWTCodec, error) {
	if secret == "" {
		return nil, fmt.Errorf("jwt secret must not be empty")
	}
	if algorithm == "" {
		algorithm = jwt.SigningMethodHS256.Alg()
	}
	method, ok := jwt.GetSigningMethod(algorithm).(*jwt.SigningMethodHMAC)
	if !ok {
		return nil, fmt.Errorf("unsupported jwt algorithm %q", algorithm)
	}
	return &JWTCodec{secret: []byte(secret), method: method}, nil
}

func (c *JWTCodec) Issue(subject string, now time.Time, ttl time.Duration) (string, error) {
	if ttl <= 0 {
		ttl = DefaultAccessTokenTTL
	}
	// NumericDate has whole-second precision. Round exp up so a token is
	// never rejected before its full ttl has elapsed.
	expiry := now.Add(ttl)
	if whole := expiry.Truncate(time.Second); whole.Before(expiry) {
		expiry = whole.Add(time.Second)
	}
	claims := jwt.RegisteredClaims{
		Subject:   subject,
		ExpiresAt: jwt.NewNumericDate(expiry),
		IssuedAt:  jwt.NewNumericDate(now),
		NotBefore: jwt.NewNumericDate(now),
	}
	token, err := jwt.NewWithClaims(c.method, claims).SignedString(c.secret)
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}
	return token, nil
}

// Verify returns the subject of a valid token. Every failure, whether
// malformed, badly signed or expired, is reported as domain.ErrInvalidToken.
func (c *JWTCodec) Verify(tokenString string, now time.Time) (string, error) {
	claims := &jwt.RegisteredClaims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		return c.secret, nil
	},
		jwt.WithValidMethods([]string{c.method.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(func() time.Time { return now }),
	)
	if err != nil || !token.Valid {
		return "", domain.ErrInvalidToken
	}
	if claims.Subject == "" {
		return "", domain.ErrInvalidToken
	}
	return claims.Subject, nil
}
