package httpapi

import (
	"crypto/subtle"
	"net/http"
	"time"

	"github.com/adityapallipati/voice-agent/pkg/logger"
	"github.com/adityapallipati/voice-agent/pkg/utils"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
)

const webhookSecretHeader = "X-Webhook-Secret"

// RequireWebhookSecret authenticates provider webhook deliveries with the
// shared secret. Constant-time compare; no token machinery on this path.
func RequireWebhookSecret(secret string) gin.HandlerFunc {
	return func(c *gin.Context) {
		got := c.GetHeader(webhookSecretHeader)
		if secret == "" || subtle.ConstantTimeCompare([]byte(got), []byte(secret)) != 1 {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid webhook secret"})
			return
		}
		c.Next()
	}
}

const callCapKey = "cap:inbound_calls"

// CallConcurrencyCap bounds how many inbound call pipelines run at once.
// When Redis is down the cap fails open; dropping calls is worse than
// briefly exceeding the limit.
func CallConcurrencyCap(rdb *redis.Client, limit int, ttl time.Duration) gin.HandlerFunc {
	return func(c *gin.Context) {
		if rdb == nil || limit <= 0 {
			c.Next()
			return
		}
		ok, err := utils.AcquireConcurrencyCap(c.Request.Context(), rdb, callCapKey, limit, ttl)
		if err != nil {
			logger.FromGin(c).Warn("concurrency cap check failed", "err", err)
			c.Next()
			return
		}
		if !ok {
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{"error": "call processing at capacity"})
			return
		}
		defer func() {
			if err := utils.ReleaseConcurrencyCap(c.Request.Context(), rdb, callCapKey); err != nil {
				logger.FromGin(c).Warn("concurrency cap release failed", "err", err)
			}
		}()
		c.Next()
	}
}
