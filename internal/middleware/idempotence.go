package middleware

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/strategiq/swot/internal/pkg/response"
	"github.com/strategiq/swot/internal/pkg/session"
)

const (
	idempotenceHeader     = "X-Idempotence"
	defaultIdempotenceTTL = 10 * time.Second
	idempotencePrefix     = "swot:idempotence:"
)

// Idempotence rejects a repeated submission of the same form from the same
// client while the first one is in flight or within ttl of its success.
func Idempotence(rdb *redis.Client, ttl time.Duration) gin.HandlerFunc {
	if ttl <= 0 {
		ttl = defaultIdempotenceTTL
	}

	return func(c *gin.Context) {
		if rdb == nil || c.Request.Method == http.MethodGet {
			c.Next()
			return
		}

		key, err := resolveIdempotenceKey(c)
		if err != nil || key == "" {
			c.Next()
			return
		}

		redisKey := idempotencePrefix + key
		ctx := c.Request.Context()

		val, err := rdb.Get(ctx, redisKey).Result()
		if err == nil {
			msg := fmt.Sprintf("Duplicate request, please wait %d seconds before resubmitting", int(ttl.Seconds()))
			if val == "0" {
				msg = "The same request is already being processed"
			}
			response.Error(c, http.StatusConflict, msg)
			return
		}
		if !errors.Is(err, redis.Nil) {
			c.Next()
			return
		}

		if setErr := rdb.Set(ctx, redisKey, "0", ttl).Err(); setErr != nil {
			c.Next()
			return
		}

		c.Next()

		status := c.Writer.Status()
		if status >= 200 && status < 300 {
			rdb.Set(ctx, redisKey, "1", redis.KeepTTL)
		} else {
			rdb.Del(ctx, redisKey)
		}
	}
}

// resolveIdempotenceKey hashes the request line, body, client and session
// cookie. An explicit X-Idempotence header wins.
func resolveIdempotenceKey(c *gin.Context) (string, error) {
	if hdr := c.GetHeader(idempotenceHeader); hdr != "" {
		return hdr, nil
	}

	body, err := io.ReadAll(c.Request.Body)
	if err != nil {
		return "", err
	}
	c.Request.Body = io.NopCloser(bytes.NewBuffer(body))

	ua := c.Request.UserAgent()
	ip := c.ClientIP()
	cookie, _ := c.Cookie(session.CookieName)

	if len(body) == 0 && ua == "" && ip == "" && cookie == "" {
		return "", nil
	}

	raw := c.Request.Method + "|" + c.Request.URL.String() + "|" + string(body) + "|" + ua + "|" + ip + "|" + cookie
	h := sha256.Sum256([]byte(raw))
	return hex.EncodeToString(h[:]), nil
}
