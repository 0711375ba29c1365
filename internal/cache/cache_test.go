package cache

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
)

func TestCacheSetGet(t *testing.T) {
	c := NewCache(time.Minute)

	c.Set("key", []byte("value"))

	data, found := c.Get("key")
	assert.True(t, found)
	assert.Equal(t, []byte("value"), data)

	_, found = c.Get("missing")
	assert.False(t, found)
}

func TestCacheExpiry(t *testing.T) {
	c := NewCache(10 * time.Millisecond)

	c.Set("key", []byte("value"))
	time.Sleep(20 * time.Millisecond)

	_, found := c.Get("key")
	assert.False(t, found)
}

func TestCacheClear(t *testing.T) {
	c := NewCache(time.Minute)

	c.Set("a", []byte("1"))
	c.Set("b", []byte("2"))
	assert.Equal(t, 2, c.Size())

	c.Clear()
	assert.Equal(t, 0, c.Size())
}

func TestCacheMiddlewareServesCachedResponse(t *testing.T) {
	gin.SetMode(gin.TestMode)

	c := NewCache(time.Minute)
	calls := 0

	r := gin.New()
	r.Use(c.Middleware("/leaderboard"))
	r.GET("/leaderboard", func(ctx *gin.Context) {
		calls++
		ctx.JSON(http.StatusOK, gin.H{"calls": calls})
	})

	for i := 0; i < 3; i++ {
		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/leaderboard", nil)
		r.ServeHTTP(w, req)
		assert.Equal(t, http.StatusOK, w.Code)
		assert.JSONEq(t, `{"calls": 1}`, w.Body.String())
	}

	assert.Equal(t, 1, calls)
}

func TestCacheMiddlewareSkipsUncachedPaths(t *testing.T) {
	gin.SetMode(gin.TestMode)

	c := NewCache(time.Minute)
	calls := 0

	r := gin.New()
	r.Use(c.Middleware("/leaderboard"))
	r.GET("/health", func(ctx *gin.Context) {
		calls++
		ctx.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	for i := 0; i < 2; i++ {
		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/health", nil)
		r.ServeHTTP(w, req)
	}

	assert.Equal(t, 2, calls)
}
