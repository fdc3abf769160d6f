package api

import (
	"errors"
	"fmt"
	"net/http"

	"farmlink/internal/models"
	"farmlink/internal/orders"

	"github.com/gin-gonic/gin"
)

func (s *Server) farmerOrders(c *gin.Context) {
	status, err := orders.ParseStatusFilter(c.Query("status"))
	if err != nil {
		s.writeError(c, err)
		return
	}
	list, err := s.deps.Orders.ListForFarmer(c.Request.Context(), actorFrom(c), status)
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, list)
}

func (s *Server) consumerOrders(c *gin.Context) {
	list, err := s.deps.Orders.ListForConsumer(c.Request.Context(), actorFrom(c))
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, list)
}

func (s *Server) transitionOrder(c *gin.Context) {
	action, ok := models.ParseOrderAction(c.Param("action"))
	if !ok {
		s.writeError(c, fmt.Errorf("%w: unknown action %q", models.ErrInvalidInput, c.Param("action")))
		return
	}
	order, err := s.deps.Orders.Transition(c.Request.Context(), actorFrom(c), c.Param("id"), action)
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, order)
}

// trace is the public lot lookup. Unknown lots answer 404 with the lot id so
// the page can render "Lot Not Found".
func (s *Server) trace(c *gin.Context) {
	lotID := c.Param("lotId")
	lot, err := s.deps.Orders.Trace(c.Request.Context(), lotID)
	if errors.Is(err, models.ErrNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "Lot Not Found", "lotId": lotID})
		return
	}
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, lot)
}
