package middleware

import (
	"bytes"
	"fmt"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
)

const (
	// IdempotencyKeyHeader is the HTTP header for idempotency keys
	IdempotencyKeyHeader = "Idempotency-Key"
	// IdempotencyKeyTTL is how long keys are valid
	IdempotencyKeyTTL = 24 * time.Hour
)

// cachedResponse is a stored response for a processed idempotency key.
type cachedResponse struct {
	statusCode int
	body       []byte
	expiresAt  time.Time
}

func (r *cachedResponse) expired() bool {
	return time.Now().After(r.expiresAt)
}

// IdempotencyStore keeps processed keys in memory. Keys are scoped to the
// operator so two cashiers can reuse the same client-generated key.
type IdempotencyStore struct {
	mu      sync.Mutex
	entries map[string]*cachedResponse
	ttl     time.Duration
}

// NewIdempotencyStore creates a new in-memory idempotency store.
func NewIdempotencyStore() *IdempotencyStore {
	s := &IdempotencyStore{
		entries: make(map[string]*cachedResponse),
		ttl:     IdempotencyKeyTTL,
	}
	go s.cleanupLoop()
	return s
}

func storeKey(userID int64, key string) string {
	return fmt.Sprintf("%d:%s", userID, key)
}

func (s *IdempotencyStore) get(userID int64, key string) *cachedResponse {
	s.mu.Lock()
	defer s.mu.Unlock()
	entry, ok := s.entries[storeKey(userID, key)]
	if !ok || entry.expired() {
		return nil
	}
	return entry
}

func (s *IdempotencyStore) put(userID int64, key string, statusCode int, body []byte) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries[storeKey(userID, key)] = &cachedResponse{
		statusCode: statusCode,
		body:       body,
		expiresAt:  time.Now().Add(s.ttl),
	}
}

func (s *IdempotencyStore) cleanupLoop() {
	ticker := time.NewTicker(time.Hour)
	defer ticker.Stop()

	for range ticker.C {
		s.mu.Lock()
		for key, entry := range s.entries {
			if entry.expired() {
				delete(s.entries, key)
			}
		}
		s.mu.Unlock()
	}
}

// responseWriter wraps gin.ResponseWriter to capture the response body
type responseWriter struct {
	gin.ResponseWriter
	body *bytes.Buffer
}

func (w responseWriter) Write(b []byte) (int, error) {
	w.body.Write(b)
	return w.ResponseWriter.Write(b)
}

// IdempotencyRequired prevents duplicate submissions: the same key replays
// the stored response instead of re-running the handler.
func IdempotencyRequired(store *IdempotencyStore) gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.Request.Method != "POST" {
			c.Next()
			return
		}

		idempotencyKey := c.GetHeader(IdempotencyKeyHeader)
		if idempotencyKey == "" {
			c.JSON(400, gin.H{
				"success": false,
				"message": "Idempotency-Key header is required for this request",
			})
			c.Abort()
			return
		}

		userIDValue, exists := c.Get("user_id")
		userID, ok := userIDValue.(int64)
		if !exists || !ok || userID == 0 {
			c.JSON(401, gin.H{
				"success": false,
				"message": "User not authenticated",
			})
			c.Abort()
			return
		}

		// Replay the stored response if this key was already processed
		if existing := store.get(userID, idempotencyKey); existing != nil {
			c.Header("X-Idempotency-Replayed", "true")
			c.Data(existing.statusCode, "application/json", existing.body)
			c.Abort()
			return
		}

		// Capture the response
		blw := &responseWriter{body: bytes.NewBufferString(""), ResponseWriter: c.Writer}
		c.Writer = blw

		c.Next()

		// Only store successful responses (2xx status codes)
		if c.Writer.Status() >= 200 && c.Writer.Status() < 300 {
			store.put(userID, idempotencyKey, c.Writer.Status(), blw.body.Bytes())
		}
	}
}
