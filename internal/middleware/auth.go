package middleware

import (
	"fmt"
	"net/http"
	"strings"
	"time"
	"vip-payment-api/internal/config"
	"vip-payment-api/internal/models"
	"vip-payment-api/internal/response"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
)

// Claims carried in the access token
type Claims struct {
	UserID uint   `json:"user_id"`
	Role   string `json:"role"`
	jwt.RegisteredClaims
}

// rolePermissions maps roles onto the privileged capabilities. The admin
// role carries the transaction override permissions used by the manual
// reconciliation endpoints.
var rolePermissions = map[string][]string{
	models.RoleAdmin: {"transactions:manage"},
}

// GenerateToken issues a signed access token for a user
func GenerateToken(userID uint, role string, ttl time.Duration) (string, error) {
	claims := Claims{
		UserID: userID,
		Role:   role,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(ttl)),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(config.AppConfig.JWTSecret))
}

// ParseToken validates a token string and returns its claims
func ParseToken(tokenStr string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenStr, &Claims{}, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return []byte(config.AppConfig.JWTSecret), nil
	})
	if err != nil {
		return nil, err
	}
	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, fmt.Errorf("invalid token")
	}
	return claims, nil
}

// RequireAuth rejects requests without a valid Bearer token
func RequireAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		claims, err := claimsFromHeader(c)
		if err != nil {
			response.ErrorJSON(c, http.StatusUnauthorized, "Authorization required")
			c.Abort()
			return
		}
		c.Set("user_id", claims.UserID)
		c.Set("role", claims.Role)
		c.Next()
	}
}

// OptionalAuth extracts claims when a token is present but lets anonymous
// requests through. Handlers treat a missing user_id as an anonymous caller.
func OptionalAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		if claims, err := claimsFromHeader(c); err == nil {
			c.Set("user_id", claims.UserID)
			c.Set("role", claims.Role)
		}
		c.Next()
	}
}

// RequirePermission gates an endpoint on a role-derived permission
func RequirePermission(permission string) gin.HandlerFunc {
	return func(c *gin.Context) {
		claims, err := claimsFromHeader(c)
		if err != nil {
			response.ErrorJSON(c, http.StatusUnauthorized, "Authorization required")
			c.Abort()
			return
		}
		if !hasPermission(claims.Role, permission) {
			response.ErrorJSON(c, http.StatusForbidden, "Insufficient permissions")
			c.Abort()
			return
		}
		c.Set("user_id", claims.UserID)
		c.Set("role", claims.Role)
		c.Next()
	}
}

func claimsFromHeader(c *gin.Context) (*Claims, error) {
	authHeader := c.GetHeader("Authorization")
	if authHeader == "" || !strings.HasPrefix(authHeader, "Bearer ") {
		return nil, fmt.Errorf("missing bearer token")
	}
	return ParseToken(strings.TrimPrefix(authHeader, "Bearer "))
}

func hasPermission(role, permission string) bool {
	for _, p := range rolePermissions[role] {
		if p == permission {
			return true
		}
	}
	return false
}

// CallerID returns the authenticated user id, or 0 for anonymous callers
func CallerID(c *gin.Context) uint {
	if v, exists := c.Get("user_id"); exists {
		if id, ok := v.(uint); ok {
			return id
		}
	}
	return 0
}

// IsAdmin reports whether the caller holds the admin role
func IsAdmin(c *gin.Context) bool {
	if v, exists := c.Get("role"); exists {
		if role, ok := v.(string); ok {
			return role == models.RoleAdmin
		}
	}
	return false
}
