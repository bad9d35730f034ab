package amqp

import (
	"encoding/json"
	"time"
)

// Notification kinds carried on the wire.
const (
	KindDailySummary = "daily_summary"
	KindPendingAlert = "pending_alert"
	KindProjection   = "projection"
)

// Notification is a rendered message ready for delivery. The consumer
// relays Body verbatim; Kind lets it route or filter.
type Notification struct {
	Kind      string    `json:"kind"`
	Title     string    `json:"title"`
	Body      string    `json:"body"`
	Timestamp time.Time `json:"timestamp"`
}

func NewNotification(kind, title, body string) *Notification {
	return &Notification{
		Kind:      kind,
		Title:     title,
		Body:      body,
		Timestamp: time.Now(),
	}
}

// ToJSON converts the message to JSON bytes
func (n *Notification) ToJSON() ([]byte, error) {
	return json.Marshal(n)
}

// NotificationFromJSON creates a message from JSON bytes
func NotificationFromJSON(data []byte) (*Notification, error) {
	var n Notification
	if err := json.Unmarshal(data, &n); err != nil {
		return nil, err
	}
	return &n, nil
}
