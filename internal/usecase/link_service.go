package usecase

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const linkIssuer = "marketpay"

// LinkService signs checkout links so an emailed payment URL can be checked
// for tampering and expiry.
type LinkService struct {
	Secret string
	TTL    time.Duration
	Now    func() time.Time
}

func (s *LinkService) Enabled() bool {
	return s.Secret != ""
}

func (s *LinkService) Issue(orderID string) (string, error) {
	now := s.now()
	ttl := s.TTL
	if ttl <= 0 {
		ttl = 7 * 24 * time.Hour
	}
	claims := jwt.RegisteredClaims{
		Issuer:    linkIssuer,
		Subject:   orderID,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
	}
	t := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return t.SignedString([]byte(s.Secret))
}

// Resolve returns the order id carried by token.
func (s *LinkService) Resolve(token string) (string, error) {
	var claims jwt.RegisteredClaims
	parsed, err := jwt.ParseWithClaims(token, &claims, func(t *jwt.Token) (any, error) {
		return []byte(s.Secret), nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(linkIssuer),
		jwt.WithTimeFunc(s.now),
	)
	if err != nil || !parsed.Valid {
		return "", ErrBadRequest("invalid or expired checkout link")
	}
	if claims.Subject == "" {
		return "", ErrBadRequest("invalid or expired checkout link")
	}
	return claims.Subject, nil
}

func (s *LinkService) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now()
}
