// Package auth verifies bearer tokens and guards gin routes.
package auth

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
)

const userKey = "auth.user"

// Claims identifies the caller.
type Claims struct {
	ID      string `json:"_id"`
	Name    string `json:"name"`
	Email   string `json:"email"`
	IsAdmin bool   `json:"isAdmin"`
	jwt.RegisteredClaims
}

type Guard struct {
	secret []byte
	ttl    time.Duration
}

func NewGuard(secret string, ttl time.Duration) *Guard {
	if ttl <= 0 {
		ttl = 30 * 24 * time.Hour
	}
	return &Guard{secret: []byte(secret), ttl: ttl}
}

// Sign issues a token for the given identity.
func (g *Guard) Sign(c Claims) (string, error) {
	now := time.Now()
	c.RegisteredClaims = jwt.RegisteredClaims{
		Subject:   c.ID,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(g.ttl)),
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, c).SignedString(g.secret)
}

func (g *Guard) Parse(token string) (*Claims, error) {
	claims := &Claims{}
	parsed, err := jwt.ParseWithClaims(token, claims, func(*jwt.Token) (interface{}, error) {
		return g.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		return nil, fmt.Errorf("parse token: %w", err)
	}
	if !parsed.Valid || claims.ID == "" {
		return nil, errors.New("parse token: missing identity")
	}
	return claims, nil
}

// RequireUser rejects requests without a valid bearer token.
func (g *Guard) RequireUser() gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if header == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"message": "No Token"})
			return
		}
		// Bearer XXXXXX
		token := strings.TrimSpace(strings.TrimPrefix(header, "Bearer "))
		claims, err := g.Parse(token)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"message": "Invalid Token"})
			return
		}
		c.Set(userKey, claims)
		c.Next()
	}
}

// RequireAdmin must run after RequireUser.
func (g *Guard) RequireAdmin() gin.HandlerFunc {
	return func(c *gin.Context) {
		if user, ok := CurrentUser(c); !ok || !user.IsAdmin {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"message": "Invalid Admin Token"})
			return
		}
		c.Next()
	}
}

func CurrentUser(c *gin.Context) (*Claims, bool) {
	v, ok := c.Get(userKey)
	if !ok {
		return nil, false
	}
	claims, ok := v.(*Claims)
	return claims, ok
}
