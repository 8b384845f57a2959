// Package queue carries booking notices over RabbitMQ: a publisher used as
// a notification dispatcher and a consumer that records every notice.
package queue

import "time"

// NotificationQueue is the durable queue notices are published to.
const NotificationQueue = "notifications.booking"

// Notification is one outbound notice as it travels through the broker.
type Notification struct {
    To      string    `json:"to"`
    Subject string    `json:"subject"`
    Body    string    `json:"body"`
    SentAt  time.Time `json:"sent_at"`
}
