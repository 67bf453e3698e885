// internal/middleware/middleware_test.go
package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/javajoker/eco-backend/internal/config"
	"github.com/javajoker/eco-backend/internal/services"
	"github.com/javajoker/eco-backend/internal/utils"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func TestParseLanguage(t *testing.T) {
	tests := map[string]string{
		"":                        "en",
		"zh-TW,zh;q=0.9,en;q=0.8": "zh_TW",
		"fr-FR, en-GB;q=0.5":      "en",
		"de":                      "en",
		"zh-Hant":                 "zh_TW",
		" en-US , zh-TW;q=0.1":    "en",
	}
	for header, want := range tests {
		assert.Equal(t, want, ParseLanguage(header), header)
	}
}

func serve(r *gin.Engine, req *http.Request) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestAuthAndPermission(t *testing.T) {
	jwt := utils.NewJWTManager("test-secret", time.Minute, time.Hour)
	authz, err := services.NewAuthorizationService("")
	require.NoError(t, err)

	r := gin.New()
	r.POST("/products", AuthRequired(jwt), RequirePermission(authz, services.PermCatalogWrite), func(c *gin.Context) {
		role, _ := utils.GetUserRoleFromContext(c)
		c.String(http.StatusOK, role)
	})

	token := func(role string) string {
		tok, err := jwt.GenerateAccessToken(uuid.New(), "Tess", "tess@example.com", role)
		require.NoError(t, err)
		return tok
	}

	req := httptest.NewRequest(http.MethodPost, "/products", nil)
	assert.Equal(t, http.StatusUnauthorized, serve(r, req).Code)

	req = httptest.NewRequest(http.MethodPost, "/products", nil)
	req.Header.Set("Authorization", "Bearer not-a-token")
	assert.Equal(t, http.StatusUnauthorized, serve(r, req).Code)

	req = httptest.NewRequest(http.MethodPost, "/products", nil)
	req.Header.Set("Authorization", "Bearer "+token("Operations"))
	assert.Equal(t, http.StatusForbidden, serve(r, req).Code)

	req = httptest.NewRequest(http.MethodPost, "/products", nil)
	req.Header.Set("Authorization", "Bearer "+token("Engineer"))
	w := serve(r, req)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "Engineer", w.Body.String())
}

func TestQueryTokenOnlyOnWebsocketRoute(t *testing.T) {
	jwt := utils.NewJWTManager("test-secret", time.Minute, time.Hour)
	tok, err := jwt.GenerateAccessToken(uuid.New(), "Tess", "tess@example.com", "Engineer")
	require.NoError(t, err)

	ok := func(c *gin.Context) { c.Status(http.StatusOK) }
	r := gin.New()
	r.GET("/products", AuthRequired(jwt), ok)
	r.GET("/ws/notifications", WebsocketAuthRequired(jwt), ok)

	req := httptest.NewRequest(http.MethodGet, "/products?token="+tok, nil)
	assert.Equal(t, http.StatusUnauthorized, serve(r, req).Code)

	req = httptest.NewRequest(http.MethodGet, "/ws/notifications?token="+tok, nil)
	assert.Equal(t, http.StatusOK, serve(r, req).Code)

	req = httptest.NewRequest(http.MethodGet, "/ws/notifications", nil)
	req.Header.Set("Authorization", "Bearer "+tok)
	assert.Equal(t, http.StatusOK, serve(r, req).Code)

	req = httptest.NewRequest(http.MethodGet, "/ws/notifications?token=garbage", nil)
	assert.Equal(t, http.StatusUnauthorized, serve(r, req).Code)
}

func TestRequestIDIsEchoedOrGenerated(t *testing.T) {
	r := gin.New()
	r.Use(RequestID())
	r.GET("/", func(c *gin.Context) { c.Status(http.StatusNoContent) })

	w := serve(r, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.NotEmpty(t, w.Header().Get(RequestIDHeader))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(RequestIDHeader, "abc-123")
	assert.Equal(t, "abc-123", serve(r, req).Header().Get(RequestIDHeader))
}

func TestAuthRateLimit(t *testing.T) {
	limits := NewRateLimits(config.RateLimitConfig{Enabled: true, GeneralPerSec: 100, GeneralBurst: 100, AuthPerMinute: 1, AuthBurst: 2})

	r := gin.New()
	r.POST("/login", limits.Auth(), func(c *gin.Context) { c.Status(http.StatusOK) })

	codes := make([]int, 0, 3)
	for i := 0; i < 3; i++ {
		req := httptest.NewRequest(http.MethodPost, "/login", nil)
		req.RemoteAddr = "192.0.2.10:4000"
		codes = append(codes, serve(r, req).Code)
	}
	assert.Equal(t, []int{http.StatusOK, http.StatusOK, http.StatusTooManyRequests}, codes)

	disabled := NewRateLimits(config.RateLimitConfig{})
	r = gin.New()
	r.POST("/login", disabled.Auth(), func(c *gin.Context) { c.Status(http.StatusOK) })
	for i := 0; i < 5; i++ {
		assert.Equal(t, http.StatusOK, serve(r, httptest.NewRequest(http.MethodPost, "/login", nil)).Code)
	}
}
