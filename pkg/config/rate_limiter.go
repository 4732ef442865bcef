package config

import (
	"fmt"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/patrickmn/go-cache"
	"go.uber.org/zap"
)

// ContextSubjectKey is where the auth middleware stores the token subject.
const ContextSubjectKey = "x-subject"

type RateLimitEndpointConfig struct {
	Requests int
	Window   time.Duration
	KeyFunc  func(*gin.Context) string
}

// RateLimiter counts requests per route and caller in fixed windows held
// in a go-cache.
type RateLimiter struct {
	cache   *cache.Cache
	config  map[string]RateLimitEndpointConfig
	logger  *zap.Logger
	metrics *AppMetrics
	mutex   sync.Mutex
}

type RateLimitEntry struct {
	Count     int
	ResetTime time.Time
}

func NewRateLimiter(logger *zap.Logger, metrics *AppMetrics) *RateLimiter {
	configs := map[string]RateLimitEndpointConfig{
		"GET /todos":                  {Requests: 100, Window: time.Minute, KeyFunc: callerKey},
		"POST /todos":                 {Requests: 30, Window: time.Minute, KeyFunc: callerKey},
		"PATCH /todos/:id":            {Requests: 30, Window: time.Minute, KeyFunc: callerKey},
		"DELETE /todos/:id":           {Requests: 10, Window: time.Minute, KeyFunc: callerKey},
		"POST /tools/:name":           {Requests: 60, Window: time.Minute, KeyFunc: callerKey},
		"POST /sessions/:id/messages": {Requests: 60, Window: time.Minute, KeyFunc: callerKey},
		"default":                     {Requests: 60, Window: time.Minute, KeyFunc: clientIP},
	}

	return &RateLimiter{
		cache:   cache.New(5*time.Minute, 10*time.Minute),
		config:  configs,
		logger:  logger,
		metrics: metrics,
	}
}

func (rl *RateLimiter) RateLimitMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		route := c.FullPath()
		if route == "" {
			route = c.Request.URL.Path
		}

		methodRoute := c.Request.Method + " " + route
		config := rl.configFor(methodRoute)
		key := fmt.Sprintf("rate_limit:%s:%s", methodRoute, config.KeyFunc(c))

		allowed, remaining, resetTime := rl.checkRateLimit(key, config)

		c.Header("X-RateLimit-Limit", strconv.Itoa(config.Requests))
		c.Header("X-RateLimit-Remaining", strconv.Itoa(remaining))
		c.Header("X-RateLimit-Reset", strconv.FormatInt(resetTime.Unix(), 10))

		if !allowed {
			if rl.metrics != nil {
				rl.metrics.RecordRateLimitHit(c.Request.Context(), route)
			}

			rl.logger.Warn("Rate limit exceeded",
				zap.String("key", key),
				zap.Int("limit", config.Requests),
				zap.Duration("window", config.Window))

			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
				"error":       "Rate limit exceeded",
				"message":     fmt.Sprintf("Too many requests. Limit: %d per %v", config.Requests, config.Window),
				"retry_after": int(time.Until(resetTime).Seconds()),
			})
			return
		}

		if rl.metrics != nil {
			rl.metrics.RecordRateLimitAllowed(c.Request.Context(), route)
		}

		c.Next()
	}
}

func (rl *RateLimiter) configFor(methodRoute string) RateLimitEndpointConfig {
	rl.mutex.Lock()
	defer rl.mutex.Unlock()

	if config, ok := rl.config[methodRoute]; ok {
		return config
	}

	return rl.config["default"]
}

func (rl *RateLimiter) checkRateLimit(key string, config RateLimitEndpointConfig) (bool, int, time.Time) {
	now := time.Now()

	rl.mutex.Lock()
	defer rl.mutex.Unlock()

	if entry, found := rl.cache.Get(key); found {
		current := entry.(RateLimitEntry)

		if now.Before(current.ResetTime) {
			if current.Count >= config.Requests {
				return false, 0, current.ResetTime
			}

			current.Count++
			rl.cache.Set(key, current, time.Until(current.ResetTime))

			return true, config.Requests - current.Count, current.ResetTime
		}
	}

	resetTime := now.Add(config.Window)
	rl.cache.Set(key, RateLimitEntry{Count: 1, ResetTime: resetTime}, config.Window)

	return true, config.Requests - 1, resetTime
}

// SetConfig overrides the limit for "METHOD /route" or "default".
func (rl *RateLimiter) SetConfig(methodRoute string, config RateLimitEndpointConfig) {
	rl.mutex.Lock()
	defer rl.mutex.Unlock()

	if config.KeyFunc == nil {
		config.KeyFunc = callerKey
	}

	rl.config[methodRoute] = config
}

func (rl *RateLimiter) GetStats() map[string]any {
	rl.mutex.Lock()
	defer rl.mutex.Unlock()

	return map[string]any{
		"active_entries": rl.cache.ItemCount(),
		"configs":        len(rl.config),
	}
}

// callerKey prefers the authenticated subject and falls back to the IP.
func callerKey(c *gin.Context) string {
	if subject, ok := c.Get(ContextSubjectKey); ok {
		return fmt.Sprintf("sub_%v", subject)
	}

	return clientIP(c)
}

func clientIP(c *gin.Context) string {
	if ip := c.ClientIP(); ip != "" {
		return ip
	}

	return "unknown"
}
