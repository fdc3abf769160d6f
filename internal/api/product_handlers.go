package api

import (
	"fmt"
	"net/http"

	"farmlink/internal/models"
	"farmlink/internal/pricing"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type productInput struct {
	Name    string  `json:"name" binding:"required"`
	Price   float64 `json:"price"`
	Unit    string  `json:"unit"`
	Stock   int     `json:"stock"`
	Grade   string  `json:"grade"`
	Organic bool    `json:"organic"`
}

func (s *Server) farmerProducts(c *gin.Context) {
	products, err := s.deps.Products.ListProducts(c.Request.Context(), actorFrom(c).UserID)
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, products)
}

func (s *Server) consumerProducts(c *gin.Context) {
	products, err := s.deps.Products.ListProducts(c.Request.Context(), "")
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, products)
}

func (s *Server) createProduct(c *gin.Context) {
	var in productInput
	if err := c.ShouldBindJSON(&in); err != nil {
		s.writeError(c, fmt.Errorf("%w: %v", models.ErrInvalidInput, err))
		return
	}

	ctx := c.Request.Context()
	actor := actorFrom(c)
	product := &models.Product{
		FarmerID: actor.UserID,
		Name:     in.Name,
		Price:    in.Price,
		Unit:     in.Unit,
		Stock:    in.Stock,
		Grade:    in.Grade,
		Organic:  in.Organic,
	}
	if profile, err := s.deps.Auth.LookupProfile(ctx, actor.UserID); err == nil {
		product.Farmer = profile.FullName
		product.Farm = profile.FarmName
	}
	if product.Unit == "" {
		product.Unit = "kg"
	}

	if err := s.deps.Products.CreateProduct(ctx, product); err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, product)
}

func (s *Server) weather(c *gin.Context) {
	var req models.WeatherRequest
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			s.writeError(c, fmt.Errorf("%w: %v", models.ErrInvalidInput, err))
			return
		}
	}
	report, err := s.deps.Weather.Forecast(c.Request.Context(), req)
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, report)
}

// pricing returns the market report and stores its predicted prices as the
// farmer's suggested listing prices.
func (s *Server) pricing(c *gin.Context) {
	var req models.PricingRequest
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			s.writeError(c, fmt.Errorf("%w: %v", models.ErrInvalidInput, err))
			return
		}
	}

	ctx := c.Request.Context()
	report, err := s.deps.Pricing.Predict(ctx, req)
	if err != nil {
		s.writeError(c, err)
		return
	}

	farmerID := actorFrom(c).UserID
	if err := s.deps.Products.SetSuggestedPrices(ctx, farmerID, pricing.SuggestedPrices(report)); err != nil {
		s.logger.Warn("failed to store suggested prices", zap.String("farmer_id", farmerID), zap.Error(err))
	}
	c.JSON(http.StatusOK, report)
}

func (s *Server) geocode(c *gin.Context) {
	places, err := s.deps.Geocoder.Search(c.Request.Context(), queryOrEmpty(c, "name"))
	if err != nil {
		s.writeError(c, err)
		return
	}
	if places == nil {
		places = []models.Place{}
	}
	c.JSON(http.StatusOK, places)
}
