package model

import (
    "encoding/json"
    "time"
)

// EventFields are the attributes shared by every instance of one logical
// event.  A logical event is the set of instances with the same tenant and
// title; after any edit all of them carry identical EventFields.
type EventFields struct {
    Title          string          `json:"title"`
    Description    string          `json:"description,omitempty"`
    Location       string          `json:"location,omitempty"`
    ImageURL       string          `json:"image_url,omitempty"`
    Category       string          `json:"category,omitempty"`
    Duration       string          `json:"duration,omitempty"`
    ReservationFee float64         `json:"reservation_fee"`
    Extra          json.RawMessage `json:"extra,omitempty"`
}

// EventInstance is one calendar occurrence of a logical event.  A nil Date
// means "coming soon".
type EventInstance struct {
    ID       int64      `json:"id"`
    TenantID string     `json:"tenant_id"`
    Date     *time.Time `json:"date"`
    Active   bool       `json:"active"`
    EventFields
    CreatedAt time.Time    `json:"created_at"`
    Tickets   []TicketType `json:"ticket_types,omitempty"`
}

// SameDate reports whether two nullable dates denote the same occurrence.
func SameDate(a, b *time.Time) bool {
    if a == nil || b == nil {
        return a == nil && b == nil
    }
    return a.Equal(*b)
}

// TicketType is a named offering on one instance.  Capacity is the stock
// the operator last configured plus what was already reserved at that
// moment; it is the target of a stock reset.
type TicketType struct {
    ID       int64   `json:"id"`
    EventID  int64   `json:"event_id"`
    Name     string  `json:"name"`
    Price    float64 `json:"price"`
    Stock    int     `json:"stock"`
    Capacity int     `json:"capacity"`
}

// TicketSpec is one desired offering handed to the synchronizer.
type TicketSpec struct {
    Name  string  `json:"name"`
    Price float64 `json:"price"`
    Stock int     `json:"stock"`
}
