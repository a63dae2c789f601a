// Package auth issues and verifies bearer tokens and hashes credentials.
package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v4"

	"projectmanager/internal/apperr"
	"projectmanager/internal/models"
)

// Claims is the token payload. The user id is a string so it can carry a
// UUID.
type Claims struct {
	UserID string      `json:"user_id"`
	Email  string      `json:"email"`
	Role   models.Role `json:"role"`
	jwt.RegisteredClaims
}

type TokenIssuer struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

func NewTokenIssuer(secret string, ttl time.Duration) *TokenIssuer {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &TokenIssuer{secret: []byte(secret), ttl: ttl, now: time.Now}
}

// Issue signs an HS256 token for id.
func (ti *TokenIssuer) Issue(id models.Identity) (string, error) {
	now := ti.now()
	claims := Claims{
		UserID: id.ID,
		Email:  id.Email,
		Role:   id.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ti.ttl)),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	s, err := token.SignedString(ti.secret)
	if err != nil {
		return "", apperr.Internal("Error generating token", err)
	}
	return s, nil
}

// Parse verifies tokenString and returns the identity it carries.
func (ti *TokenIssuer) Parse(tokenString string) (models.Identity, error) {
	var claims Claims
	token, err := jwt.ParseWithClaims(tokenString, &claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return ti.secret, nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return models.Identity{}, apperr.Unauthenticated("Token expired")
		}
		return models.Identity{}, apperr.Unauthenticated("Invalid token")
	}
	if !token.Valid || claims.UserID == "" {
		return models.Identity{}, apperr.Unauthenticated("Invalid token claims")
	}
	return models.Identity{ID: claims.UserID, Email: claims.Email, Role: claims.Role}, nil
}
