// Package api exposes the marketplace over HTTP.
package api

import (
	"context"
	"net/http"
	"time"

	"farmlink/internal/auth"
	"farmlink/internal/config"
	"farmlink/internal/models"
	"farmlink/internal/monitoring"
	"farmlink/internal/orders"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// ProductRepository is the listing storage used by the product routes.
type ProductRepository interface {
	ListProducts(ctx context.Context, farmerID string) ([]models.Product, error)
	CreateProduct(ctx context.Context, p *models.Product) error
	SetSuggestedPrices(ctx context.Context, farmerID string, prices map[string]float64) error
}

// UserDirectory lists accounts for the admin console.
type UserDirectory interface {
	ListUsers(ctx context.Context) ([]models.UserWithProfile, error)
}

// Forecaster produces weather reports.
type Forecaster interface {
	Forecast(ctx context.Context, req models.WeatherRequest) (*models.WeatherReport, error)
}

// Predictor produces pricing reports.
type Predictor interface {
	Predict(ctx context.Context, req models.PricingRequest) (*models.PricingReport, error)
}

// Geocoder resolves place names.
type Geocoder interface {
	Search(ctx context.Context, name string) ([]models.Place, error)
}

// Deps are the services behind the routes. Monitor may be nil.
type Deps struct {
	Auth     *auth.Service
	Orders   *orders.Service
	Products ProductRepository
	Users    UserDirectory
	Weather  Forecaster
	Pricing  Predictor
	Geocoder Geocoder
	Monitor  *monitoring.Monitor
	Logger   *zap.Logger
}

// Server is the HTTP API.
type Server struct {
	router  *gin.Engine
	deps    Deps
	logger  *zap.Logger
	limiter *RateLimiter
	origins []string
}

// NewServer builds the router. Call gin.SetMode before this in production.
func NewServer(cfg *config.Config, deps Deps) *Server {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	s := &Server{
		router:  gin.New(),
		deps:    deps,
		logger:  logger,
		limiter: NewRateLimiter(cfg.RateLimit.Requests, cfg.RateLimit.Window),
		origins: cfg.Server.AllowedOrigins,
	}
	s.router.Use(gin.Recovery(), s.requestLogger(), s.metrics(), s.cors())
	s.setupRoutes()
	return s
}

// Handler returns the root handler.
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) setupRoutes() {
	s.router.GET("/health", s.health)

	v1 := s.router.Group("/api/v1")

	public := v1.Group("", s.limiter.Middleware())
	{
		public.POST("/auth/signup", s.signUp)
		public.POST("/auth/signin", s.signIn)
		public.GET("/trace/:lotId", s.trace)
		public.GET("/geocode", s.geocode)
	}

	authed := v1.Group("", s.authRequired())
	{
		authed.POST("/auth/signout", s.signOut)
		authed.GET("/auth/events", s.authEvents)
		authed.GET("/session", s.session)
		authed.GET("/profiles/:id", s.profile)
		authed.GET("/profiles/:id/role", s.profileRole)
	}

	farmer := authed.Group("/farmer", s.requireRoute("/farmer"))
	{
		farmer.GET("/orders", s.farmerOrders)
		farmer.POST("/orders/:id/:action", s.transitionOrder)
		farmer.GET("/products", s.farmerProducts)
		farmer.POST("/products", s.createProduct)
		farmer.POST("/weather", s.weather)
		farmer.POST("/pricing", s.pricing)
	}

	consumer := authed.Group("/consumer", s.requireRoute("/consumer"))
	{
		consumer.GET("/orders", s.consumerOrders)
		consumer.GET("/products", s.consumerProducts)
	}

	admin := authed.Group("/admin", s.requireRoute("/admin"))
	{
		admin.GET("/users", s.listUsers)
		admin.PUT("/users/:id/role", s.updateRole)
	}
}

func (s *Server) health(c *gin.Context) {
	status := s.deps.Monitor.Status()
	status["status"] = "ok"
	status["time"] = time.Now().UTC().Format(time.RFC3339)
	c.JSON(http.StatusOK, status)
}
