package orders

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"farmlink/internal/database"
	"farmlink/internal/models"

	"go.uber.org/zap"
)

// Repository is the order persistence the service drives.
type Repository interface {
	ListOrders(ctx context.Context, filter database.OrderFilter) ([]models.Order, error)
	GetOrder(ctx context.Context, id string) (*models.Order, error)
	FindLot(ctx context.Context, lotID string) (*models.Order, error)
	SaveOrder(ctx context.Context, order *models.Order, from models.OrderStatus) error
}

// Recorder receives order metrics.
type Recorder interface {
	RecordTransition(action string, err error)
	RecordLotLookup(found bool)
}

// Actor is the authenticated caller of an order operation.
type Actor struct {
	UserID string
	Role   models.Role
}

// Service applies the order state machine to stored orders.
type Service struct {
	repo     Repository
	recorder Recorder
	logger   *zap.Logger
	now      func() time.Time
}

// NewService creates an order service. recorder may be nil.
func NewService(repo Repository, recorder Recorder, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{repo: repo, recorder: recorder, logger: logger, now: time.Now}
}

// ParseStatusFilter accepts "", "all" or any status name.
func ParseStatusFilter(s string) (models.OrderStatus, error) {
	if s == "" || strings.EqualFold(s, "all") {
		return "", nil
	}
	status, ok := models.ParseOrderStatus(s)
	if !ok {
		return "", fmt.Errorf("%w: unknown order status %q", models.ErrInvalidInput, s)
	}
	return status, nil
}

// ListForFarmer returns the orders a farmer fulfils, optionally by status.
// Admins see every order.
func (s *Service) ListForFarmer(ctx context.Context, actor Actor, status models.OrderStatus) ([]models.Order, error) {
	filter := database.OrderFilter{Status: status}
	if actor.Role != models.RoleAdmin {
		filter.FarmerID = actor.UserID
	}
	return s.repo.ListOrders(ctx, filter)
}

// ListForConsumer returns the orders a consumer placed.
func (s *Service) ListForConsumer(ctx context.Context, actor Actor) ([]models.Order, error) {
	return s.repo.ListOrders(ctx, database.OrderFilter{ConsumerID: actor.UserID})
}

// Transition applies a farmer action to an order and persists it. Only the
// owning farmer or an admin may drive an order.
func (s *Service) Transition(ctx context.Context, actor Actor, orderID string, action models.OrderAction) (*models.Order, error) {
	order, err := s.transition(ctx, actor, orderID, action)
	if s.recorder != nil {
		s.recorder.RecordTransition(string(action), err)
	}
	if err != nil {
		s.logger.Info("order transition rejected",
			zap.String("order_id", orderID),
			zap.String("action", string(action)),
			zap.Error(err))
		return nil, err
	}
	s.logger.Info("order transitioned",
		zap.String("order_id", order.ID),
		zap.String("action", string(action)),
		zap.String("status", string(order.Status)))
	return order, nil
}

func (s *Service) transition(ctx context.Context, actor Actor, orderID string, action models.OrderAction) (*models.Order, error) {
	order, err := s.repo.GetOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if actor.Role != models.RoleAdmin && order.FarmerID != actor.UserID {
		return nil, fmt.Errorf("order %s: %w", orderID, models.ErrForbidden)
	}

	from := order.Status
	if err := order.Apply(action, s.now()); err != nil {
		return nil, err
	}
	if order.Status == models.OrderStatusDelivered {
		order.ETA = ""
	}
	if err := s.repo.SaveOrder(ctx, order, from); err != nil {
		return nil, err
	}
	return order, nil
}

// Trace returns the public view of a lot.
func (s *Service) Trace(ctx context.Context, lotID string) (models.Lot, error) {
	order, err := s.repo.FindLot(ctx, lotID)
	if s.recorder != nil {
		s.recorder.RecordLotLookup(err == nil)
	}
	if errors.Is(err, models.ErrNotFound) {
		return models.Lot{}, fmt.Errorf("lot %s: %w", lotID, models.ErrNotFound)
	}
	if err != nil {
		return models.Lot{}, err
	}
	return models.LotFromOrder(order), nil
}
