// internal/utils/pagination_test.go
package utils

import (
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
)

func TestLikePatternEscapesWildcards(t *testing.T) {
	assert.Equal(t, `%50\% off\_now%`, LikePattern("50% OFF_now"))
	assert.Equal(t, `%a\\b%`, LikePattern(`a\b`))
}

func TestSearchCondition(t *testing.T) {
	cond, args := SearchCondition("Bolt", "products.name", "products.id")
	assert.Equal(t, `(LOWER(products.name) LIKE ? ESCAPE '\' OR LOWER(products.id) LIKE ? ESCAPE '\')`, cond)
	assert.Equal(t, []interface{}{"%bolt%", "%bolt%"}, args)
}

func TestPaginationHeaders(t *testing.T) {
	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest("GET", "/api/products?page=2&limit=500", nil)

	params := GetPaginationParams(c)
	assert.Equal(t, 2, params.Page)
	assert.Equal(t, 20, params.Limit)

	PaginatedResponse(c, CreatePaginationResult([]string{"a"}, 41, params))
	assert.Equal(t, "41", w.Header().Get("X-Total-Count"))
	assert.Equal(t, "2", w.Header().Get("X-Page"))
	assert.Equal(t, "20", w.Header().Get("X-Per-Page"))
	assert.Equal(t, "3", w.Header().Get("X-Total-Pages"))
	assert.JSONEq(t, `["a"]`, w.Body.String())
}
