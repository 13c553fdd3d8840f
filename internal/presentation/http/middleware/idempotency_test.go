package middleware

import (
	"net/http"
	"net/http/httptest"
	"strconv"
	"sync/atomic"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newIdempotencyRouter(store *IdempotencyStore, calls *atomic.Int64) *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.Use(func(c *gin.Context) {
		if raw := c.GetHeader("X-User-ID"); raw != "" {
			userID, _ := strconv.ParseInt(raw, 10, 64)
			c.Set("user_id", userID)
		}
		c.Next()
	})
	router.POST("/submit", IdempotencyRequired(store), func(c *gin.Context) {
		n := calls.Add(1)
		c.JSON(200, gin.H{"success": true, "call": n})
	})
	return router
}

func TestIdempotencyRequired_ReplaysStoredResponse(t *testing.T) {
	var calls atomic.Int64
	router := newIdempotencyRouter(NewIdempotencyStore(), &calls)

	do := func() *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPost, "/submit", nil)
		req.Header.Set("X-User-ID", "10")
		req.Header.Set(IdempotencyKeyHeader, "key-1")
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)
		return w
	}

	first := do()
	require.Equal(t, 200, first.Code)
	assert.Empty(t, first.Header().Get("X-Idempotency-Replayed"))

	second := do()
	require.Equal(t, 200, second.Code)
	assert.Equal(t, "true", second.Header().Get("X-Idempotency-Replayed"))
	assert.Equal(t, first.Body.String(), second.Body.String())

	// The handler only ever ran once.
	assert.Equal(t, int64(1), calls.Load())
}

func TestIdempotencyRequired_KeysAreScopedPerUser(t *testing.T) {
	var calls atomic.Int64
	router := newIdempotencyRouter(NewIdempotencyStore(), &calls)

	for _, userID := range []string{"10", "11"} {
		req := httptest.NewRequest(http.MethodPost, "/submit", nil)
		req.Header.Set("X-User-ID", userID)
		req.Header.Set(IdempotencyKeyHeader, "shared-key")
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)
		require.Equal(t, 200, w.Code)
	}

	assert.Equal(t, int64(2), calls.Load())
}

func TestIdempotencyRequired_MissingKey(t *testing.T) {
	var calls atomic.Int64
	router := newIdempotencyRouter(NewIdempotencyStore(), &calls)

	req := httptest.NewRequest(http.MethodPost, "/submit", nil)
	req.Header.Set("X-User-ID", "10")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, 400, w.Code)
	assert.Zero(t, calls.Load())
}

func TestIdempotencyRequired_MissingUser(t *testing.T) {
	var calls atomic.Int64
	router := newIdempotencyRouter(NewIdempotencyStore(), &calls)

	req := httptest.NewRequest(http.MethodPost, "/submit", nil)
	req.Header.Set(IdempotencyKeyHeader, "key-1")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, 401, w.Code)
	assert.Zero(t, calls.Load())
}

func TestIdempotencyRequired_ErrorsAreNotCached(t *testing.T) {
	gin.SetMode(gin.TestMode)
	store := NewIdempotencyStore()
	var calls atomic.Int64

	router := gin.New()
	router.Use(func(c *gin.Context) {
		c.Set("user_id", int64(10))
		c.Next()
	})
	router.POST("/submit", IdempotencyRequired(store), func(c *gin.Context) {
		if calls.Add(1) == 1 {
			c.JSON(422, gin.H{"success": false})
			return
		}
		c.JSON(200, gin.H{"success": true})
	})

	do := func() *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPost, "/submit", nil)
		req.Header.Set(IdempotencyKeyHeader, "key-1")
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)
		return w
	}

	assert.Equal(t, 422, do().Code)
	// A failed attempt may be retried with the same key.
	assert.Equal(t, 200, do().Code)
	assert.Equal(t, int64(2), calls.Load())
}
