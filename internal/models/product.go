package models

import "time"

// Product is a farmer's listing shown to consumers
type Product struct {
	ID        uint      `gorm:"primary_key" json:"id"`
	FarmerID  string    `gorm:"index" json:"farmerId"`
	Farmer    string    `json:"farmer"`
	Farm      string    `json:"farm"`
	Name      string    `gorm:"not null" json:"name"`
	Price     float64   `json:"price"`
	AIPrice   float64   `gorm:"column:ai_price" json:"aiPrice,omitempty"`
	Unit      string    `json:"unit"`
	Stock     int       `json:"stock"`
	Grade     string    `json:"grade"`
	Organic   bool      `json:"organic"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"-"`
}
