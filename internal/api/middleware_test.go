package api

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
)

func newTestContext(method, path, apiKeyHeaderValue string) (*gin.Context, *httptest.ResponseRecorder) {
	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	req := httptest.NewRequest(method, path, nil)
	if apiKeyHeaderValue != "" {
		req.Header.Set(apiKeyHeader, apiKeyHeaderValue)
	}
	c.Request = req
	return c, w
}

func TestAPIKeyMiddleware_DisabledWhenKeyEmpty(t *testing.T) {
	c, w := newTestContext(http.MethodGet, "/", "")
	APIKeyMiddleware("")(c)

	assert.False(t, c.IsAborted())
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestAPIKeyMiddleware_MissingHeaderRejected(t *testing.T) {
	c, w := newTestContext(http.MethodGet, "/", "")
	APIKeyMiddleware("secret")(c)

	assert.True(t, c.IsAborted())
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestAPIKeyMiddleware_WrongKeyRejected(t *testing.T) {
	c, w := newTestContext(http.MethodGet, "/", "wrong")
	APIKeyMiddleware("secret")(c)

	assert.True(t, c.IsAborted())
	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestAPIKeyMiddleware_CorrectKeyAllowed(t *testing.T) {
	c, _ := newTestContext(http.MethodGet, "/", "secret")
	APIKeyMiddleware("secret")(c)

	assert.False(t, c.IsAborted())
}
