package models

import "time"

// Stage is one step of a lot's physical journey.
type Stage string

const (
	StageHarvest   Stage = "harvest"
	StageQuality   Stage = "quality"
	StagePacked    Stage = "packed"
	StageShipped   Stage = "shipped"
	StageInTransit Stage = "in_transit"
	StageDelivered Stage = "delivered"
)

// Stages lists every stage in canonical order.
var Stages = []Stage{StageHarvest, StageQuality, StagePacked, StageShipped, StageInTransit, StageDelivered}

// Index returns the position of the stage in Stages, or -1 for an unknown stage.
func (s Stage) Index() int {
	switch s {
	case StageHarvest:
		return 0
	case StageQuality:
		return 1
	case StagePacked:
		return 2
	case StageShipped:
		return 3
	case StageInTransit:
		return 4
	case StageDelivered:
		return 5
	}
	return -1
}

// Title is the default timeline heading for the stage.
func (s Stage) Title() string {
	switch s {
	case StageHarvest:
		return "Harvested"
	case StageQuality:
		return "Quality Inspected"
	case StagePacked:
		return "Packed & Labeled"
	case StageShipped:
		return "Shipped"
	case StageInTransit:
		return "In Transit"
	case StageDelivered:
		return "Delivered"
	}
	return string(s)
}

// TrackingEvent is a timestamped stage in an order's timeline
type TrackingEvent struct {
	ID          uint       `gorm:"primary_key" json:"-"`
	OrderID     string     `gorm:"index;not null" json:"-"`
	Seq         int        `json:"-"`
	Type        Stage      `gorm:"type:varchar(16)" json:"type"`
	Title       string     `json:"title"`
	Description string     `json:"description"`
	Location    string     `json:"location,omitempty"`
	Completed   bool       `json:"completed"`
	Timestamp   *time.Time `json:"timestamp,omitempty"`
}

// NewTrackingEvent returns a pending event for the stage.
func NewTrackingEvent(stage Stage) TrackingEvent {
	return TrackingEvent{
		Type:        stage,
		Seq:         stage.Index(),
		Title:       stage.Title(),
		Description: "Awaiting update",
	}
}
