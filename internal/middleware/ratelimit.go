package middleware

import (
	"fmt"
	"log/slog"
	"math"
	"strconv"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	apierrors "github.com/yukikurage/taskpick-api/internal/errors"
	"golang.org/x/time/rate"
)

// RateLimiterConfig holds the per-user request budgets.
type RateLimiterConfig struct {
	GeneralRate     rate.Limit // requests per second across the API
	GeneralBurst    int
	AssistantRate   rate.Limit // requests per second to the assistant
	AssistantBurst  int
	CleanupInterval time.Duration
}

// RateLimiterConfigPerMinute builds a config from per-minute budgets; the burst equals the budget.
func RateLimiterConfigPerMinute(generalPerMin, assistantPerMin int) RateLimiterConfig {
	return RateLimiterConfig{
		GeneralRate:     rate.Limit(float64(generalPerMin) / 60.0),
		GeneralBurst:    generalPerMin,
		AssistantRate:   rate.Limit(float64(assistantPerMin) / 60.0),
		AssistantBurst:  assistantPerMin,
		CleanupInterval: 5 * time.Minute,
	}
}

type userLimiter struct {
	limiter    *rate.Limiter
	lastAccess time.Time
}

// limiterSet is one family of per-user limiters.
type limiterSet struct {
	name     string
	limit    rate.Limit
	burst    int
	mu       sync.Mutex
	limiters map[string]*userLimiter
}

func newLimiterSet(name string, limit rate.Limit, burst int) *limiterSet {
	return &limiterSet{
		name:     name,
		limit:    limit,
		burst:    burst,
		limiters: make(map[string]*userLimiter),
	}
}

func (s *limiterSet) get(userID string) *rate.Limiter {
	s.mu.Lock()
	defer s.mu.Unlock()

	ul, ok := s.limiters[userID]
	if !ok {
		ul = &userLimiter{limiter: rate.NewLimiter(s.limit, s.burst)}
		s.limiters[userID] = ul
	}
	ul.lastAccess = time.Now()
	return ul.limiter
}

func (s *limiterSet) len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.limiters)
}

func (s *limiterSet) evictIdle(now time.Time, ttl time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for userID, ul := range s.limiters {
		if now.Sub(ul.lastAccess) > ttl {
			delete(s.limiters, userID)
		}
	}
}

// middleware must run after RequireAuth or RequireIdentity.
func (s *limiterSet) middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, ok := GetUserID(c)
		if !ok {
			c.Next()
			return
		}

		if !s.get(userID).Allow() {
			slog.Warn("rate limit exceeded",
				slog.String("user_id", userID),
				slog.String("limit_type", s.name),
			)
			c.Header("Retry-After", strconv.Itoa(retryAfterSeconds(s.limit)))
			apierrors.TooManyRequests(c, "")
			c.Abort()
			return
		}
		c.Next()
	}
}

// RateLimiter tracks request budgets per user.
type RateLimiter struct {
	config    RateLimiterConfig
	general   *limiterSet
	assistant *limiterSet
	stopCh    chan struct{}
	stopOnce  sync.Once
}

// NewRateLimiter creates a RateLimiter and starts evicting idle users in the background.
func NewRateLimiter(config RateLimiterConfig) (*RateLimiter, error) {
	if config.GeneralRate <= 0 || config.AssistantRate <= 0 {
		return nil, fmt.Errorf("rate limits must be positive")
	}
	if config.CleanupInterval <= 0 {
		config.CleanupInterval = 5 * time.Minute
	}

	rl := &RateLimiter{
		config:    config,
		general:   newLimiterSet("general", config.GeneralRate, config.GeneralBurst),
		assistant: newLimiterSet("assistant", config.AssistantRate, config.AssistantBurst),
		stopCh:    make(chan struct{}),
	}
	go rl.cleanupLoop()
	return rl, nil
}

// Stop ends the background cleanup.
func (rl *RateLimiter) Stop() {
	rl.stopOnce.Do(func() { close(rl.stopCh) })
}

// General limits every authenticated request.
func (rl *RateLimiter) General() gin.HandlerFunc {
	return rl.general.middleware()
}

// Assistant limits assistant calls independently of the general budget.
func (rl *RateLimiter) Assistant() gin.HandlerFunc {
	return rl.assistant.middleware()
}

// GeneralLimiterCount reports how many users have a general limiter.
func (rl *RateLimiter) GeneralLimiterCount() int {
	return rl.general.len()
}

// AssistantLimiterCount reports how many users have an assistant limiter.
func (rl *RateLimiter) AssistantLimiterCount() int {
	return rl.assistant.len()
}

func (rl *RateLimiter) cleanupLoop() {
	ticker := time.NewTicker(rl.config.CleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			rl.cleanup(time.Now())
		case <-rl.stopCh:
			return
		}
	}
}

// cleanup drops limiters idle for more than twice the cleanup interval.
func (rl *RateLimiter) cleanup(now time.Time) {
	ttl := rl.config.CleanupInterval * 2
	rl.general.evictIdle(now, ttl)
	rl.assistant.evictIdle(now, ttl)
}

// retryAfterSeconds estimates how long until one token is refilled.
func retryAfterSeconds(r rate.Limit) int {
	sec := int(math.Ceil(1.0 / float64(r)))
	if sec < 1 {
		sec = 1
	}
	return sec
}
