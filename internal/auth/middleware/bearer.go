package middleware

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"

	"github.com/mkpublisher/showcase/internal/auth"
	"github.com/mkpublisher/showcase/internal/remote"
)

// Claims are the fields of a Supabase access token this server reads.
type Claims struct {
	jwt.RegisteredClaims
	Email string `json:"email,omitempty"`
	Role  string `json:"role,omitempty"`
}

// Verifier turns a bearer token into the claims of its user.
type Verifier interface {
	Verify(ctx context.Context, token string) (*Claims, error)
}

// JWTVerifier checks HS256 tokens signed with the project's JWT secret.
type JWTVerifier struct {
	secret []byte
}

func NewJWTVerifier(secret string) (*JWTVerifier, error) {
	if strings.TrimSpace(secret) == "" {
		return nil, errors.New("SUPABASE_JWT_SECRET is required")
	}
	return &JWTVerifier{secret: []byte(secret)}, nil
}

func (v *JWTVerifier) Verify(_ context.Context, tokenString string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return v.secret, nil
	}, jwt.WithExpirationRequired())
	if err != nil {
		return nil, fmt.Errorf("token validation failed: %w", err)
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || claims.Subject == "" {
		return nil, errors.New("invalid claims")
	}
	return claims, nil
}

// RemoteVerifier asks the auth service who owns the token. It is used when no
// JWT secret is configured, e.g. with the in-memory backend.
type RemoteVerifier struct {
	Auth remote.Auth
}

func (v RemoteVerifier) Verify(ctx context.Context, token string) (*Claims, error) {
	u, err := v.Auth.GetUser(ctx, token)
	if err != nil {
		return nil, err
	}
	c := &Claims{Email: u.Email, Role: "authenticated"}
	c.Subject = u.ID
	return c, nil
}

// BearerAuth validates the access token and stores the user in the context.
func BearerAuth(v Verifier) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := extractToken(c)
		if token == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"ok": false, "error": "missing authorization token"})
			return
		}

		claims, err := v.Verify(c.Request.Context(), token)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"ok": false, "error": "invalid token"})
			return
		}

		c.Set(auth.CtxUserID, claims.Subject)
		c.Set(auth.CtxEmail, claims.Email)
		c.Set(auth.CtxAccessToken, token)
		c.Next()
	}
}

// extractToken extracts the Bearer token from the Authorization header
func extractToken(c *gin.Context) string {
	bearerToken := c.GetHeader("Authorization")
	if len(bearerToken) > 7 && strings.EqualFold(bearerToken[:7], "Bearer ") {
		return strings.TrimSpace(bearerToken[7:])
	}
	return ""
}
