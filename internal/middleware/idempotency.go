package middleware

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"instantride/internal/logger"
	"instantride/internal/redis"
)

const (
	idempotencyHeader = "Idempotency-Key"
	idempotencyTTL    = 24 * time.Hour
	// inflightTTL bounds how long a crashed request keeps its key reserved.
	inflightTTL = time.Minute
)

// cachedResponse stores the response for idempotent requests.
type cachedResponse struct {
	StatusCode int         `json:"status_code"`
	Body       []byte      `json:"body"`
	Headers    http.Header `json:"headers"`
}

// responseWriter wraps gin.ResponseWriter to capture the response.
type responseWriter struct {
	gin.ResponseWriter
	body *bytes.Buffer
}

func (w *responseWriter) Write(b []byte) (int, error) {
	w.body.Write(b)
	return w.ResponseWriter.Write(b)
}

// IdempotencyMiddleware replays the stored response when a mutating request
// repeats its Idempotency-Key, so a retried booking or payment start does
// not run twice. Keys are scoped to the route.
func IdempotencyMiddleware(store redis.ResponseStoreInterface, log logger.ILogger) gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.Request.Method != http.MethodPost && c.Request.Method != http.MethodPut && c.Request.Method != http.MethodPatch {
			c.Next()
			return
		}

		key := c.GetHeader(idempotencyHeader)
		if key == "" || store == nil {
			c.Next()
			return
		}

		ctx := c.Request.Context()
		cacheKey := c.Request.Method + " " + c.Request.URL.Path + " " + key

		data, err := store.GetResponse(ctx, cacheKey)
		if err != nil {
			// Store unavailable - proceed without idempotency.
			log.Warning("idempotency lookup failed", logger.String("key", key), logger.Error(err))
			c.Next()
			return
		}
		if replay(c, data) {
			return
		}

		reserved, err := store.ReserveKey(ctx, cacheKey, inflightTTL)
		if err != nil {
			log.Warning("idempotency reservation failed", logger.String("key", key), logger.Error(err))
			c.Next()
			return
		}
		if !reserved {
			// The holder may have finished between the lookup and the
			// reservation.
			if data, err := store.GetResponse(ctx, cacheKey); err == nil && replay(c, data) {
				return
			}
			c.AbortWithStatusJSON(http.StatusConflict, gin.H{"error": "a request with this Idempotency-Key is still in progress"})
			return
		}
		defer func() {
			if err := store.ReleaseKey(context.WithoutCancel(ctx), cacheKey); err != nil {
				log.Warning("idempotency release failed", logger.String("key", key), logger.Error(err))
			}
		}()

		w := &responseWriter{
			ResponseWriter: c.Writer,
			body:           &bytes.Buffer{},
		}
		c.Writer = w

		c.Next()

		// Server errors are worth retrying, so they are not replayed.
		if status := c.Writer.Status(); status >= 200 && status < 500 {
			response := cachedResponse{
				StatusCode: status,
				Body:       w.body.Bytes(),
				Headers:    extractResponseHeaders(c),
			}
			data, err := json.Marshal(&response)
			if err == nil {
				err = store.SetResponse(ctx, cacheKey, data, idempotencyTTL)
			}
			if err != nil {
				log.Warning("idempotency store failed", logger.String("key", key), logger.Error(err))
			}
		}
	}
}

// replay writes the stored response in data and reports whether it did.
func replay(c *gin.Context, data []byte) bool {
	if data == nil {
		return false
	}
	var cached cachedResponse
	if err := json.Unmarshal(data, &cached); err != nil {
		return false
	}
	for k, v := range cached.Headers {
		for _, val := range v {
			c.Header(k, val)
		}
	}
	c.Header("Idempotent-Replayed", "true")
	c.Data(cached.StatusCode, "application/json", cached.Body)
	c.Abort()
	return true
}

// extractResponseHeaders extracts headers to cache.
func extractResponseHeaders(c *gin.Context) http.Header {
	headers := make(http.Header)
	if ct := c.Writer.Header().Get("Content-Type"); ct != "" {
		headers.Set("Content-Type", ct)
	}
	return headers
}
