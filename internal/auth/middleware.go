package auth

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

const sessionContextKey = "onboarding.session"

// Claims are the JWT claims issued by the auth service. The GitHub and
// LinkedIn fields are absent until the corresponding account is linked.
type Claims struct {
	AccountHandle      string `json:"account_handle,omitempty"`
	LinkedAccountID    string `json:"linked_account_id,omitempty"`
	LinkedAccountName  string `json:"linked_account_name,omitempty"`
	LinkedAccountImage string `json:"linked_account_image,omitempty"`
	jwt.RegisteredClaims
}

// Middleware validates the bearer token and stores the resulting Session in
// the gin context. Requests without a valid token are rejected.
func Middleware(secret string) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if !strings.HasPrefix(header, "Bearer ") {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing bearer token"})
			return
		}

		session, err := ParseToken(strings.TrimPrefix(header, "Bearer "), secret)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid session token"})
			return
		}

		c.Set(sessionContextKey, session)
		c.Next()
	}
}

// ParseToken verifies an HS256 session token and extracts the session record.
func ParseToken(tokenString, secret string) (Session, error) {
	var claims Claims
	token, err := jwt.ParseWithClaims(tokenString, &claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return []byte(secret), nil
	})
	if err != nil {
		return Session{}, fmt.Errorf("failed to parse session token: %w", err)
	}
	if !token.Valid {
		return Session{}, fmt.Errorf("session token is not valid")
	}

	userID, err := uuid.Parse(claims.Subject)
	if err != nil {
		return Session{}, fmt.Errorf("invalid subject claim: %w", err)
	}

	return Session{
		UserID:             userID,
		AccountHandle:      claims.AccountHandle,
		LinkedAccountID:    claims.LinkedAccountID,
		LinkedAccountName:  claims.LinkedAccountName,
		LinkedAccountImage: claims.LinkedAccountImage,
	}, nil
}

// SessionFromContext returns the session stored by Middleware.
func SessionFromContext(c *gin.Context) (Session, bool) {
	v, ok := c.Get(sessionContextKey)
	if !ok {
		return Session{}, false
	}
	session, ok := v.(Session)
	return session, ok
}
