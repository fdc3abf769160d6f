package models

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
)

// StringSlice represents a slice of strings that can be stored in the database
type StringSlice []string

// Value converts the slice to a JSON string for storage
func (s StringSlice) Value() (driver.Value, error) {
	if len(s) == 0 {
		return "[]", nil
	}
	b, err := json.Marshal([]string(s))
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

// Scan converts the database value back to a slice
func (s *StringSlice) Scan(value interface{}) error {
	if value == nil {
		*s = StringSlice{}
		return nil
	}

	switch v := value.(type) {
	case []byte:
		return json.Unmarshal(v, s)
	case string:
		return json.Unmarshal([]byte(v), s)
	default:
		return errors.New("unsupported type for StringSlice")
	}
}

// TraceabilityRecord is the provenance data of a lot. It is written once at seeding or
// order creation and never updated.
type TraceabilityRecord struct {
	LotID           string      `gorm:"primary_key" json:"lotId"`
	Product         string      `json:"product"`
	Farm            string      `json:"farm"`
	FarmLocation    string      `json:"farmLocation"`
	HarvestDate     string      `json:"harvestDate"`
	QualityGrade    string      `json:"qualityGrade"`
	QualityScanDate string      `json:"qualityScanDate,omitempty"`
	Temperature     string      `json:"temperature,omitempty"`
	Certifications  StringSlice `gorm:"type:text" json:"certifications"`
}

// Lot is the public traceability view: provenance plus the product journey.
type Lot struct {
	LotID        string             `json:"lotId"`
	OrderID      string             `json:"orderId"`
	Status       OrderStatus        `json:"status"`
	ETA          string             `json:"eta,omitempty"`
	Traceability TraceabilityRecord `json:"traceability"`
	Journey      []TrackingEvent    `json:"journey"`
}

// LotFromOrder builds the public view of an order's lot.
func LotFromOrder(o *Order) Lot {
	lot := Lot{
		LotID:   o.LotID,
		OrderID: o.ID,
		Status:  o.Status,
		ETA:     o.ETA,
		Journey: append([]TrackingEvent(nil), o.TrackingEvents...),
	}
	if o.Traceability != nil {
		lot.Traceability = *o.Traceability
	} else {
		lot.Traceability = TraceabilityRecord{LotID: o.LotID, Farm: o.Farm}
	}
	return lot
}
