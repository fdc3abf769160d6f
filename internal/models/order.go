package models

import (
	"fmt"
	"time"
)

// Order represents a marketplace order for one traceable lot
type Order struct {
	ID             string          `gorm:"primary_key" json:"id"`
	LotID          string          `gorm:"unique_index;not null" json:"lotId"`
	Items          string          `json:"items"`
	Total          string          `json:"total"`
	Date           time.Time       `json:"date"`
	Status         OrderStatus     `gorm:"type:varchar(16);index" json:"status"`
	Consumer       string          `json:"consumer"`
	ConsumerID     string          `gorm:"index" json:"consumerId,omitempty"`
	Farm           string          `json:"farm"`
	FarmerID       string          `gorm:"index" json:"farmerId,omitempty"`
	ETA            string          `gorm:"column:eta" json:"eta,omitempty"`
	TrackingEvents []TrackingEvent `gorm:"foreignkey:OrderID" json:"trackingEvents"`
	CreatedAt      time.Time       `json:"-"`
	UpdatedAt      time.Time       `json:"-"`

	// Loaded by lot id, not by gorm
	Traceability *TraceabilityRecord `gorm:"-" json:"traceability,omitempty"`
}

// OrderStatus represents the possible states of an order
type OrderStatus string

const (
	OrderStatusPending   OrderStatus = "Pending"
	OrderStatusPacked    OrderStatus = "Packed"
	OrderStatusShipped   OrderStatus = "Shipped"
	OrderStatusInTransit OrderStatus = "In Transit"
	OrderStatusDelivered OrderStatus = "Delivered"
	OrderStatusCancelled OrderStatus = "Cancelled"
)

// ParseOrderStatus accepts the display form ("In Transit") and the path form ("in_transit").
func ParseOrderStatus(s string) (OrderStatus, bool) {
	switch s {
	case "Pending", "pending":
		return OrderStatusPending, true
	case "Packed", "packed":
		return OrderStatusPacked, true
	case "Shipped", "shipped":
		return OrderStatusShipped, true
	case "In Transit", "in_transit", "in-transit":
		return OrderStatusInTransit, true
	case "Delivered", "delivered":
		return OrderStatusDelivered, true
	case "Cancelled", "cancelled":
		return OrderStatusCancelled, true
	}
	return "", false
}

// Terminal reports whether no transition leaves this status.
func (s OrderStatus) Terminal() bool {
	return s == OrderStatusDelivered || s == OrderStatusCancelled
}

// Stage returns the tracking stage a status corresponds to.
// Pending and Cancelled have no stage of their own.
func (s OrderStatus) Stage() (Stage, bool) {
	switch s {
	case OrderStatusPacked:
		return StagePacked, true
	case OrderStatusShipped:
		return StageShipped, true
	case OrderStatusInTransit:
		return StageInTransit, true
	case OrderStatusDelivered:
		return StageDelivered, true
	case OrderStatusPending, OrderStatusCancelled:
		return "", false
	}
	return "", false
}

// OrderAction is a farmer initiated status change.
type OrderAction string

const (
	ActionAccept  OrderAction = "accept"
	ActionReject  OrderAction = "reject"
	ActionShip    OrderAction = "ship"
	ActionTransit OrderAction = "transit"
	ActionDeliver OrderAction = "deliver"
)

// ParseOrderAction validates an action name taken from a request path.
func ParseOrderAction(s string) (OrderAction, bool) {
	switch a := OrderAction(s); a {
	case ActionAccept, ActionReject, ActionShip, ActionTransit, ActionDeliver:
		return a, true
	}
	return "", false
}

// NextStatus returns the status reached by applying the action, or ErrInvalidTransition.
func NextStatus(from OrderStatus, action OrderAction) (OrderStatus, error) {
	var required, next OrderStatus
	switch action {
	case ActionAccept:
		required, next = OrderStatusPending, OrderStatusPacked
	case ActionReject:
		required, next = OrderStatusPending, OrderStatusCancelled
	case ActionShip:
		required, next = OrderStatusPacked, OrderStatusShipped
	case ActionTransit:
		required, next = OrderStatusShipped, OrderStatusInTransit
	case ActionDeliver:
		required, next = OrderStatusInTransit, OrderStatusDelivered
	default:
		return from, fmt.Errorf("%w: unknown action %q", ErrInvalidTransition, action)
	}
	if from != required {
		return from, fmt.Errorf("%w: cannot %s an order that is %s", ErrInvalidTransition, action, from)
	}
	return next, nil
}

// Apply moves the order through one transition and completes the matching tracking
// events. On error the order is left untouched.
func (o *Order) Apply(action OrderAction, at time.Time) error {
	next, err := NextStatus(o.Status, action)
	if err != nil {
		return err
	}
	o.EnsureTimeline()
	if stage, ok := next.Stage(); ok {
		o.completeThrough(stage, at)
	}
	o.Status = next
	return nil
}

// Accept moves a pending order to Packed.
func (o *Order) Accept(at time.Time) error { return o.Apply(ActionAccept, at) }

// Reject cancels a pending order.
func (o *Order) Reject(at time.Time) error { return o.Apply(ActionReject, at) }

// MarkShipped moves a packed order to Shipped.
func (o *Order) MarkShipped(at time.Time) error { return o.Apply(ActionShip, at) }

// MarkInTransit moves a shipped order to In Transit.
func (o *Order) MarkInTransit(at time.Time) error { return o.Apply(ActionTransit, at) }

// MarkDelivered moves an in-transit order to Delivered.
func (o *Order) MarkDelivered(at time.Time) error { return o.Apply(ActionDeliver, at) }

func (o *Order) completeThrough(stage Stage, at time.Time) {
	limit := stage.Index()
	for i := range o.TrackingEvents {
		ev := &o.TrackingEvents[i]
		if ev.Type.Index() > limit || ev.Completed {
			continue
		}
		ts := at
		ev.Completed = true
		ev.Timestamp = &ts
	}
}

// EnsureTimeline fills in any missing canonical tracking events and sorts them into
// stage order. Existing events keep their data.
func (o *Order) EnsureTimeline() {
	byStage := make(map[Stage]TrackingEvent, len(o.TrackingEvents))
	for _, ev := range o.TrackingEvents {
		if ev.Type.Index() < 0 {
			continue
		}
		byStage[ev.Type] = ev
	}
	timeline := make([]TrackingEvent, 0, len(Stages))
	for i, stage := range Stages {
		ev, ok := byStage[stage]
		if !ok {
			ev = NewTrackingEvent(stage)
		}
		ev.OrderID = o.ID
		ev.Seq = i
		timeline = append(timeline, ev)
	}
	o.TrackingEvents = timeline
}

// CompletedCount returns the number of completed tracking events.
func (o *Order) CompletedCount() int {
	n := 0
	for _, ev := range o.TrackingEvents {
		if ev.Completed {
			n++
		}
	}
	return n
}

// HighestCompleted returns the index of the furthest completed stage, or -1.
func (o *Order) HighestCompleted() int {
	highest := -1
	for _, ev := range o.TrackingEvents {
		if ev.Completed && ev.Type.Index() > highest {
			highest = ev.Type.Index()
		}
	}
	return highest
}

// DerivedStatus is the status category implied by the tracking events alone.
func (o *Order) DerivedStatus() OrderStatus {
	switch h := o.HighestCompleted(); {
	case h >= StageDelivered.Index():
		return OrderStatusDelivered
	case h >= StageInTransit.Index():
		return OrderStatusInTransit
	case h >= StageShipped.Index():
		return OrderStatusShipped
	case h >= StagePacked.Index():
		return OrderStatusPacked
	default:
		return OrderStatusPending
	}
}

// Validate checks the timeline shape, monotonic progress and status consistency.
func (o *Order) Validate() error {
	if o.ID == "" || o.LotID == "" {
		return fmt.Errorf("order requires id and lot id")
	}
	if len(o.TrackingEvents) != len(Stages) {
		return fmt.Errorf("order %s: expected %d tracking events, got %d", o.ID, len(Stages), len(o.TrackingEvents))
	}
	seenIncomplete := false
	for i, ev := range o.TrackingEvents {
		if ev.Type != Stages[i] {
			return fmt.Errorf("order %s: event %d is %q, want %q", o.ID, i, ev.Type, Stages[i])
		}
		if ev.Completed && seenIncomplete {
			return fmt.Errorf("order %s: %s completed after an incomplete stage", o.ID, ev.Type)
		}
		if !ev.Completed {
			seenIncomplete = true
		}
	}
	if o.Status == OrderStatusCancelled {
		if o.HighestCompleted() >= StagePacked.Index() {
			return fmt.Errorf("order %s: cancelled after packing", o.ID)
		}
		return nil
	}
	if derived := o.DerivedStatus(); derived != o.Status {
		return fmt.Errorf("order %s: status %s does not match tracking (%s)", o.ID, o.Status, derived)
	}
	return nil
}
