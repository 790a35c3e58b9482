package token

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/daryakhm/flower_shop/internal/models"
)

const defaultTTL = 24 * time.Hour

// Service issues and validates the HS256 Bearer tokens used by the API.
type Service struct {
	Secret []byte
	TTL    time.Duration
}

type Claims struct {
	UserID  uint
	IsAdmin bool
}

func (s *Service) Sign(user *models.User) (string, error) {
	ttl := s.TTL
	if ttl == 0 {
		ttl = defaultTTL
	}
	claims := jwt.MapClaims{
		"sub": user.ID,
		"adm": user.IsAdmin,
		"exp": time.Now().Add(ttl).Unix(),
	}
	t := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return t.SignedString(s.Secret)
}

func (s *Service) Parse(raw string) (*Claims, error) {
	t, err := jwt.Parse(raw, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return s.Secret, nil
	})
	if err != nil || !t.Valid {
		return nil, fmt.Errorf("invalid token: %w", err)
	}

	claims, ok := t.Claims.(jwt.MapClaims)
	if !ok {
		return nil, fmt.Errorf("cannot parse claims")
	}

	sub, ok := claims["sub"].(float64)
	if !ok {
		return nil, fmt.Errorf("missing sub claim")
	}

	adm, _ := claims["adm"].(bool)

	return &Claims{UserID: uint(sub), IsAdmin: adm}, nil
}
