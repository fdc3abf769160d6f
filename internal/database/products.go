package database

import (
	"context"
	"fmt"
	"strings"

	"farmlink/internal/models"

	"github.com/jinzhu/gorm"
)

// ProductStore persists farmer listings.
type ProductStore struct {
	db *gorm.DB
}

// NewProductStore creates a product store on an open connection.
func NewProductStore(db *gorm.DB) *ProductStore {
	return &ProductStore{db: db}
}

// ListProducts returns listings; a non-empty farmerID restricts to that farmer.
func (s *ProductStore) ListProducts(ctx context.Context, farmerID string) ([]models.Product, error) {
	q := s.db.Order("id ASC")
	if farmerID != "" {
		q = q.Where("farmer_id = ?", farmerID)
	}
	var products []models.Product
	if err := q.Find(&products).Error; err != nil {
		return nil, fmt.Errorf("failed to list products: %w", err)
	}
	return products, nil
}

// CreateProduct inserts a listing.
func (s *ProductStore) CreateProduct(ctx context.Context, p *models.Product) error {
	p.Name = strings.TrimSpace(p.Name)
	if p.Name == "" {
		return fmt.Errorf("%w: product name is required", models.ErrInvalidInput)
	}
	if p.Price < 0 || p.Stock < 0 {
		return fmt.Errorf("%w: price and stock must not be negative", models.ErrInvalidInput)
	}
	if err := s.db.Create(p).Error; err != nil {
		return fmt.Errorf("failed to create product: %w", err)
	}
	return nil
}

// SetSuggestedPrices stores the latest AI price for the farmer's listings whose name
// matches a predicted crop, case-insensitively.
func (s *ProductStore) SetSuggestedPrices(ctx context.Context, farmerID string, prices map[string]float64) error {
	if len(prices) == 0 {
		return nil
	}
	products, err := s.ListProducts(ctx, farmerID)
	if err != nil {
		return err
	}
	return transaction(ctx, s.db, func(tx *gorm.DB) error {
		for _, p := range products {
			price, ok := matchPrice(p.Name, prices)
			if !ok {
				continue
			}
			if err := tx.Model(&models.Product{}).Where("id = ?", p.ID).Update("ai_price", price).Error; err != nil {
				return err
			}
		}
		return nil
	})
}

// matchPrice matches "Organic Tomatoes" to a "tomatoes" prediction. When several
// crops appear in the name the longest wins, then the alphabetically first.
func matchPrice(name string, prices map[string]float64) (float64, bool) {
	lower := strings.ToLower(name)
	best, found := "", false
	var price float64
	for crop, p := range prices {
		c := strings.ToLower(strings.TrimSpace(crop))
		if c == "" || !strings.Contains(lower, c) {
			continue
		}
		if !found || len(c) > len(best) || (len(c) == len(best) && c < best) {
			best, price, found = c, p, true
		}
	}
	return price, found
}
