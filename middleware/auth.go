package middleware

import (
	"errors"
	"net/http"
	"strings"

	"hazard-service/models"

	"github.com/apex/log"
	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
)

const (
	userContextKey = "user"
)

// AuthMiddleware validates a Bearer JWT locally and stores the
// authenticated user in the request context. One explicit user struct is
// carried through the request instead of ad-hoc profile state.
func AuthMiddleware(jwtSecret string) gin.HandlerFunc {
	secret := []byte(jwtSecret)
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			log.Warnf("Missing authorization header from %s", c.ClientIP())
			c.JSON(http.StatusUnauthorized, gin.H{"error": "missing authorization header"})
			c.Abort()
			return
		}

		tokenString := extractToken(authHeader)
		if tokenString == "" {
			log.Warnf("Invalid authorization format from %s", c.ClientIP())
			c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid authorization format"})
			c.Abort()
			return
		}

		user, err := validateToken(tokenString, secret)
		if err != nil {
			log.Warnf("Invalid token from %s: %v", c.ClientIP(), err)
			c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid or expired token"})
			c.Abort()
			return
		}

		log.Debugf("Token validated for user %s from %s", user.ID, c.ClientIP())
		c.Set(userContextKey, user)
		c.Next()
	}
}

func extractToken(authHeader string) string {
	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) != 2 || parts[0] != "Bearer" {
		return ""
	}
	return parts[1]
}

func validateToken(tokenString string, secret []byte) (*models.AuthenticatedUser, error) {
	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("invalid signing method")
		}
		return secret, nil
	})
	if err != nil || !token.Valid {
		return nil, errors.New("invalid token")
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return nil, errors.New("invalid token claims")
	}

	// Refresh tokens cannot authenticate requests.
	if tokenType, _ := claims["type"].(string); tokenType == "refresh" {
		return nil, errors.New("cannot use refresh token for authentication")
	}

	userID, ok := claims["user_id"].(string)
	if !ok || userID == "" {
		return nil, errors.New("invalid user id in token")
	}

	email, _ := claims["email"].(string)
	return &models.AuthenticatedUser{ID: userID, Email: email}, nil
}

// GetUser extracts the authenticated user from the gin context.
func GetUser(c *gin.Context) *models.AuthenticatedUser {
	if v, ok := c.Get(userContextKey); ok {
		if user, ok := v.(*models.AuthenticatedUser); ok {
			return user
		}
	}
	return nil
}
