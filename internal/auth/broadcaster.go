package auth

import (
	"sync"

	"farmlink/internal/models"
)

// EventRecorder counts published events.
type EventRecorder interface {
	RecordAuthEvent(eventType string)
}

// Broadcaster fans auth events out to per-user subscribers. Sends never block:
// a subscriber whose buffer is full misses the event.
type Broadcaster struct {
	mu       sync.Mutex
	subs     map[string]map[int]chan models.AuthEvent
	next     int
	recorder EventRecorder
}

const subscriberBuffer = 8

// NewBroadcaster creates a broadcaster. recorder may be nil.
func NewBroadcaster(recorder EventRecorder) *Broadcaster {
	return &Broadcaster{
		subs:     make(map[string]map[int]chan models.AuthEvent),
		recorder: recorder,
	}
}

// Subscribe registers for events of userID. The returned cancel func closes the
// channel and is safe to call more than once.
func (b *Broadcaster) Subscribe(userID string) (<-chan models.AuthEvent, func()) {
	return b.subscribe(userID, nil)
}

// SubscribeWith is Subscribe with initial queued on the new channel only,
// ahead of any later event.
func (b *Broadcaster) SubscribeWith(userID string, initial models.AuthEvent) (<-chan models.AuthEvent, func()) {
	return b.subscribe(userID, &initial)
}

func (b *Broadcaster) subscribe(userID string, initial *models.AuthEvent) (<-chan models.AuthEvent, func()) {
	b.mu.Lock()
	defer b.mu.Unlock()

	id := b.next
	b.next++
	ch := make(chan models.AuthEvent, subscriberBuffer)
	if initial != nil {
		ch <- *initial
	}
	if b.subs[userID] == nil {
		b.subs[userID] = make(map[int]chan models.AuthEvent)
	}
	b.subs[userID][id] = ch

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			b.mu.Lock()
			defer b.mu.Unlock()
			delete(b.subs[userID], id)
			if len(b.subs[userID]) == 0 {
				delete(b.subs, userID)
			}
			close(ch)
		})
	}
	return ch, cancel
}

// Publish delivers the event to every subscriber of userID.
func (b *Broadcaster) Publish(userID string, event models.AuthEvent) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.recorder != nil {
		b.recorder.RecordAuthEvent(string(event.Type))
	}
	for _, ch := range b.subs[userID] {
		select {
		case ch <- event:
		default:
		}
	}
}

// Subscribers returns the number of live subscriptions for userID.
func (b *Broadcaster) Subscribers(userID string) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.subs[userID])
}
