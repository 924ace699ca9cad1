package middleware

import (
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
)

const maxPeekBody = 1 << 20

// LoginRateLimit caps login attempts per email (or client IP when the body
// has none) within a one-minute window. Without Redis, or on Redis errors,
// requests pass through.
func LoginRateLimit(cache *redis.Client, maxPerMin int, logger *slog.Logger) gin.HandlerFunc {
	if maxPerMin <= 0 {
		maxPerMin = 5
	}
	return func(c *gin.Context) {
		if cache == nil {
			c.Next()
			return
		}
		ctx := c.Request.Context()

		key := "rl:login:" + loginSubject(c)
		// INCR and EXPIRE NX commit together; a key missing its TTL regains one.
		var incr *redis.IntCmd
		_, err := cache.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			incr = pipe.Incr(ctx, key)
			pipe.ExpireNX(ctx, key, time.Minute)
			return nil
		})
		if err != nil {
			logger.WarnContext(ctx, "rate limit: redis unavailable", "error", err)
			c.Next()
			return
		}
		cnt := incr.Val()
		if cnt > int64(maxPerMin) {
			c.Header("Retry-After", "60")
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{"error": "too many login attempts, try again later"})
			return
		}
		c.Next()
	}
}

// loginSubject peeks at the JSON body for an email and restores the body
// for the handler.
func loginSubject(c *gin.Context) string {
	if c.Request.Body != nil {
		body, err := io.ReadAll(io.LimitReader(c.Request.Body, maxPeekBody))
		c.Request.Body.Close()
		c.Request.Body = io.NopCloser(bytes.NewReader(body))
		if err == nil {
			var req struct {
				Email string `json:"email"`
			}
			if json.Unmarshal(body, &req) == nil {
				if email := strings.ToLower(strings.TrimSpace(req.Email)); email != "" {
					return email
				}
			}
		}
	}
	return c.ClientIP()
}
