package database

import (
	"context"
	"fmt"

	"farmlink/internal/models"

	"github.com/jinzhu/gorm"
)

// OrderFilter narrows an order listing. Empty fields match everything.
type OrderFilter struct {
	FarmerID   string
	ConsumerID string
	Status     models.OrderStatus
}

// OrderStore persists orders, their tracking events and lot provenance.
type OrderStore struct {
	db *gorm.DB
}

// NewOrderStore creates an order store on an open connection.
func NewOrderStore(db *gorm.DB) *OrderStore {
	return &OrderStore{db: db}
}

func byTimeline(db *gorm.DB) *gorm.DB {
	return db.Order("seq ASC")
}

// ListOrders returns matching orders, newest first, with timelines and provenance.
func (s *OrderStore) ListOrders(ctx context.Context, filter OrderFilter) ([]models.Order, error) {
	q := s.db.Preload("TrackingEvents", byTimeline)
	if filter.FarmerID != "" {
		q = q.Where("farmer_id = ?", filter.FarmerID)
	}
	if filter.ConsumerID != "" {
		q = q.Where("consumer_id = ?", filter.ConsumerID)
	}
	if filter.Status != "" {
		q = q.Where("status = ?", filter.Status)
	}

	var orders []models.Order
	if err := q.Order("date DESC").Find(&orders).Error; err != nil {
		return nil, fmt.Errorf("failed to list orders: %w", err)
	}
	if err := s.attachTraceability(orders); err != nil {
		return nil, err
	}
	return orders, nil
}

// GetOrder loads one order by id.
func (s *OrderStore) GetOrder(ctx context.Context, id string) (*models.Order, error) {
	return s.findOne("id = ?", id)
}

// FindLot loads the order that carries the lot id.
func (s *OrderStore) FindLot(ctx context.Context, lotID string) (*models.Order, error) {
	return s.findOne("lot_id = ?", lotID)
}

func (s *OrderStore) findOne(where string, arg string) (*models.Order, error) {
	var order models.Order
	err := s.db.Preload("TrackingEvents", byTimeline).Where(where, arg).First(&order).Error
	if gorm.IsRecordNotFoundError(err) {
		return nil, models.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load order: %w", err)
	}
	orders := []models.Order{order}
	if err := s.attachTraceability(orders); err != nil {
		return nil, err
	}
	return &orders[0], nil
}

func (s *OrderStore) attachTraceability(orders []models.Order) error {
	if len(orders) == 0 {
		return nil
	}
	lotIDs := make([]string, len(orders))
	for i, o := range orders {
		lotIDs[i] = o.LotID
	}
	var records []models.TraceabilityRecord
	if err := s.db.Where("lot_id IN (?)", lotIDs).Find(&records).Error; err != nil {
		return fmt.Errorf("failed to load traceability: %w", err)
	}
	byLot := make(map[string]models.TraceabilityRecord, len(records))
	for _, r := range records {
		byLot[r.LotID] = r
	}
	for i := range orders {
		if r, ok := byLot[orders[i].LotID]; ok {
			rec := r
			orders[i].Traceability = &rec
		}
	}
	return nil
}

// CreateOrder inserts a new order with its timeline and provenance record.
func (s *OrderStore) CreateOrder(ctx context.Context, order *models.Order) error {
	order.EnsureTimeline()
	if err := order.Validate(); err != nil {
		return err
	}
	return transaction(ctx, s.db, func(tx *gorm.DB) error {
		var count int
		if err := tx.Model(&models.Order{}).Where("id = ? OR lot_id = ?", order.ID, order.LotID).Count(&count).Error; err != nil {
			return err
		}
		if count > 0 {
			return fmt.Errorf("order %s / %s: %w", order.ID, order.LotID, models.ErrConflict)
		}
		if err := tx.Set("gorm:save_associations", false).Create(order).Error; err != nil {
			if uniqueViolation(err) {
				return fmt.Errorf("order %s / %s: %w", order.ID, order.LotID, models.ErrConflict)
			}
			return err
		}
		for i := range order.TrackingEvents {
			if err := tx.Create(&order.TrackingEvents[i]).Error; err != nil {
				return err
			}
		}
		if order.Traceability != nil {
			order.Traceability.LotID = order.LotID
			if err := tx.Create(order.Traceability).Error; err != nil {
				return err
			}
		}
		return nil
	})
}

// SaveOrder writes status and timeline changes of an order whose stored status is
// still from. A concurrent change in between is ErrConflict. Provenance is never rewritten.
func (s *OrderStore) SaveOrder(ctx context.Context, order *models.Order, from models.OrderStatus) error {
	return transaction(ctx, s.db, func(tx *gorm.DB) error {
		res := tx.Model(&models.Order{}).Where("id = ? AND status = ?", order.ID, from).Updates(map[string]interface{}{
			"status": order.Status,
			"eta":    order.ETA,
		})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			var count int
			if err := tx.Model(&models.Order{}).Where("id = ?", order.ID).Count(&count).Error; err != nil {
				return err
			}
			if count == 0 {
				return models.ErrNotFound
			}
			return fmt.Errorf("order %s is no longer %s: %w", order.ID, from, models.ErrConflict)
		}
		for i := range order.TrackingEvents {
			ev := &order.TrackingEvents[i]
			ev.OrderID = order.ID
			if err := tx.Save(ev).Error; err != nil {
				return err
			}
		}
		return nil
	})
}
