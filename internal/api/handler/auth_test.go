package handler_test

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"fadechat/backend/internal/api/handler"
	"fadechat/backend/internal/config"

	"github.com/gin-gonic/gin"
	jwt "github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "test-secret"

func newTestRouter() *gin.Engine {
	gin.SetMode(gin.TestMode)
	h := handler.NewHandler(nil, nil, &config.Config{JWTSecret: testSecret},
		slog.New(slog.NewTextHandler(io.Discard, nil)))
	r := gin.New()
	r.GET("/auth/token", h.GetToken)
	r.PUT("/profile", h.UpsertProfile)
	return r
}

func parseToken(t *testing.T, tokenString, secret string) (jwt.MapClaims, error) {
	t.Helper()
	token, err := jwt.Parse(tokenString, func(tk *jwt.Token) (interface{}, error) {
		if _, ok := tk.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return []byte(secret), nil
	})
	if err != nil {
		return nil, err
	}
	return token.Claims.(jwt.MapClaims), nil
}

func TestGetTokenIssuesValidJWT(t *testing.T) {
	r := newTestRouter()

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/auth/token", nil))

	require.Equal(t, http.StatusOK, w.Code)
	var body struct {
		Token  string `json:"token"`
		UserID string `json:"userId"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))

	_, err := uuid.Parse(body.UserID)
	assert.NoError(t, err, "issued user id must be a valid UUID")

	claims, err := parseToken(t, body.Token, testSecret)
	require.NoError(t, err)
	assert.Equal(t, body.UserID, claims["sub"])
}

func TestGetTokenRejectedByWrongSecret(t *testing.T) {
	r := newTestRouter()

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/auth/token", nil))
	require.Equal(t, http.StatusOK, w.Code)

	var body struct {
		Token string `json:"token"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))

	_, err := parseToken(t, body.Token, "other-secret")
	assert.Error(t, err)
}

func TestUpsertProfileWithoutBearerRejected(t *testing.T) {
	r := newTestRouter()

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodPut, "/profile", nil))
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestUpsertProfileWithGarbageTokenRejected(t *testing.T) {
	r := newTestRouter()

	req := httptest.NewRequest(http.MethodPut, "/profile", nil)
	req.Header.Set("Authorization", "Bearer not.a.token")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}
