package handler

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	jwt "github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

const tokenTTL = 72 * time.Hour

// generateJWT issues an HS256 token carrying the anonymous user id.
func generateJWT(secret, userID string) (string, error) {
	claims := jwt.MapClaims{
		"sub": userID,
		"exp": time.Now().Add(tokenTTL).Unix(),
		"iss": "fadechat-service",
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(secret))
}

// validateToken parses the token and returns the user id it carries.
func validateToken(secret, tokenString string) (string, error) {
	token, err := jwt.Parse(tokenString, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return []byte(secret), nil
	})
	if err != nil || !token.Valid {
		return "", errors.New("invalid or expired token")
	}
	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return "", errors.New("invalid token claims")
	}
	userID, _ := claims["sub"].(string)
	if userID == "" {
		return "", errors.New("token carries no user id")
	}
	return userID, nil
}

// GetToken mints a fresh anonymous identity and a JWT for it.
func (h *Handler) GetToken(c *gin.Context) {
	userID := uuid.New().String()

	token, err := generateJWT(h.Cfg.JWTSecret, userID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to create token"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"token": token, "userId": userID})
}

// bearerUserID resolves the authenticated user from the Authorization header,
// or "" when the request carries no usable token.
func (h *Handler) bearerUserID(c *gin.Context) string {
	authHeader := c.GetHeader("Authorization")
	if !strings.HasPrefix(authHeader, "Bearer ") {
		return ""
	}
	userID, err := validateToken(h.Cfg.JWTSecret, strings.TrimPrefix(authHeader, "Bearer "))
	if err != nil {
		return ""
	}
	return userID
}
