package http

import (
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"
)

const (
	// OperatorHeader carries the acting operator. Authentication happens in
	// front of this service.
	OperatorHeader = "X-Operator"

	// PreviewTokenHeader returns the token for the next preview
	PreviewTokenHeader = "X-Preview-Token"

	operatorKey = "operator"
)

// requireOperator rejects API calls without an operator
func requireOperator() gin.HandlerFunc {
	return func(c *gin.Context) {
		operator := strings.TrimSpace(c.GetHeader(OperatorHeader))
		if operator == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, Response{
				Success: false,
				Error:   OperatorHeader + " header is required",
			})
			return
		}
		c.Set(operatorKey, operator)
		c.Next()
	}
}

type operatorLimit struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// operatorLimiter keeps one token bucket per operator
type operatorLimiter struct {
	mu        sync.Mutex
	config    RateLimitConfig
	limits    map[string]*operatorLimit
	idle      time.Duration
	lastPrune time.Time
	now       func() time.Time
}

func newOperatorLimiter(config RateLimitConfig) *operatorLimiter {
	return &operatorLimiter{
		config: config,
		limits: make(map[string]*operatorLimit),
		idle:   30 * time.Minute,
		now:    time.Now,
	}
}

func (l *operatorLimiter) allow(operator string) bool {
	if l.config.PerSecond <= 0 {
		return true
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	if now.Sub(l.lastPrune) > l.idle {
		for key, lim := range l.limits {
			if now.Sub(lim.lastSeen) > l.idle {
				delete(l.limits, key)
			}
		}
		l.lastPrune = now
	}

	lim, ok := l.limits[operator]
	if !ok {
		burst := l.config.Burst
		if burst < 1 {
			burst = 1
		}
		lim = &operatorLimit{limiter: rate.NewLimiter(rate.Limit(l.config.PerSecond), burst)}
		l.limits[operator] = lim
	}
	lim.lastSeen = now
	return lim.limiter.AllowN(now, 1)
}

// Limit rejects requests of an operator that exceeded its rate
func (l *operatorLimiter) Limit() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !l.allow(c.GetString(operatorKey)) {
			c.AbortWithStatusJSON(http.StatusTooManyRequests, Response{
				Success: false,
				Error:   "rate limit exceeded",
			})
			return
		}
		c.Next()
	}
}
