package api

import (
	"net/http"
	"strings"
	"sync"
	"time"

	"farmlink/internal/auth"
	"farmlink/internal/models"
	"farmlink/internal/orders"
	"farmlink/internal/router"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

const actorKey = "actor"

func (s *Server) requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		s.logger.Debug("request",
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("latency", time.Since(start)),
			zap.String("client_ip", c.ClientIP()))
	}
}

func (s *Server) metrics() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()
		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		s.deps.Monitor.RecordRequest(c.Request.Method, route, c.Writer.Status())
	}
}

func (s *Server) cors() gin.HandlerFunc {
	allowed := make(map[string]bool, len(s.origins))
	for _, o := range s.origins {
		allowed[o] = true
	}
	return func(c *gin.Context) {
		origin := c.GetHeader("Origin")
		if origin != "" && (allowed["*"] || allowed[origin]) {
			c.Header("Access-Control-Allow-Origin", origin)
			c.Header("Access-Control-Allow-Headers", "authorization, content-type")
			c.Header("Access-Control-Allow-Methods", "GET, POST, PUT, OPTIONS")
			c.Header("Vary", "Origin")
		}
		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}
		c.Next()
	}
}

// authRequired validates the bearer token and loads the caller's current role,
// so role changes apply without a new token. Browsers cannot set headers on a
// websocket handshake, so access_token is also read from the query.
func (s *Server) authRequired() gin.HandlerFunc {
	return func(c *gin.Context) {
		token, err := auth.ExtractToken(c.GetHeader("Authorization"))
		if err != nil {
			token = c.Query("access_token")
		}
		if token == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Authentication required"})
			return
		}

		claims, err := s.deps.Auth.Authenticate(token)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Invalid or expired token"})
			return
		}
		role, err := s.deps.Auth.LookupRole(c.Request.Context(), claims.UserID)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "User not found"})
			return
		}

		c.Set(actorKey, orders.Actor{UserID: claims.UserID, Role: role})
		c.Next()
	}
}

func actorFrom(c *gin.Context) orders.Actor {
	actor, _ := c.MustGet(actorKey).(orders.Actor)
	return actor
}

// requireRole runs the route guard for the caller. A redirect to the login page
// becomes 401; any other redirect is 403 carrying the caller's landing route.
func (s *Server) requireRole(roles ...models.Role) gin.HandlerFunc {
	return func(c *gin.Context) {
		actor := actorFrom(c)
		sess := models.Session{UserID: actor.UserID, Role: actor.Role, IsAuthenticated: true}
		decision := router.Guard(roles, sess)
		switch {
		case decision.Kind == router.Allow:
			c.Next()
		case decision.Path == router.LoginPath:
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Authentication required"})
		default:
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "Insufficient permissions", "redirect": decision.Path})
		}
	}
}

// requireRoute guards a group with the roles the client router assigns to prefix.
func (s *Server) requireRoute(prefix string) gin.HandlerFunc {
	roles, _ := router.RequiredRoles(prefix)
	return s.requireRole(roles...)
}

type visitor struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// RateLimiter keeps a token bucket per client IP.
type RateLimiter struct {
	mu        sync.Mutex
	visitors  map[string]*visitor
	requests  int
	window    time.Duration
	lastSweep time.Time
	now       func() time.Time
}

// NewRateLimiter allows requests per window for each client, bursting up to requests.
func NewRateLimiter(requests int, window time.Duration) *RateLimiter {
	return &RateLimiter{
		visitors:  make(map[string]*visitor),
		requests:  requests,
		window:    window,
		lastSweep: time.Now(),
		now:       time.Now,
	}
}

// Allow reports whether ip may make another request now.
func (rl *RateLimiter) Allow(ip string) bool {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := rl.now()
	if now.Sub(rl.lastSweep) > 2*rl.window {
		for key, v := range rl.visitors {
			if now.Sub(v.lastSeen) > 2*rl.window {
				delete(rl.visitors, key)
			}
		}
		rl.lastSweep = now
	}

	v, ok := rl.visitors[ip]
	if !ok {
		perSecond := float64(rl.requests) / rl.window.Seconds()
		v = &visitor{limiter: rate.NewLimiter(rate.Limit(perSecond), rl.requests)}
		rl.visitors[ip] = v
	}
	v.lastSeen = now
	return v.limiter.AllowN(now, 1)
}

// Middleware rejects clients over their budget with 429.
func (rl *RateLimiter) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !rl.Allow(c.ClientIP()) {
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{"error": "Rate limit exceeded. Please try again later."})
			return
		}
		c.Next()
	}
}

func queryOrEmpty(c *gin.Context, key string) string {
	return strings.TrimSpace(c.Query(key))
}
