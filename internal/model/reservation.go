package model

import "time"

// Reservation is an immutable booking against one ticket type.  TenantID
// is denormalised from the ticket type's event.
type Reservation struct {
    ID               int64     `json:"id"`
    TicketTypeID     int64     `json:"ticket_type_id"`
    TenantID         string    `json:"tenant_id"`
    Customer                   // name, email, phone
    Quantity         int       `json:"quantity"`
    ReservationCode  string    `json:"reservation_code"`
    PaymentReference string    `json:"payment_reference"`
    CreatedAt        time.Time `json:"created_at"`
}

// Customer holds the walk-up contact fields captured at booking time.
type Customer struct {
    Name  string `json:"customer_name"`
    Email string `json:"customer_email"`
    Phone string `json:"customer_phone"`
}

// BookingRequest is the input of the atomic book primitive.
type BookingRequest struct {
    TicketTypeID int64    `json:"ticket_type_id"`
    Quantity     int      `json:"quantity"`
    Customer     Customer `json:"customer"`
}

// BookingReceipt is what a successful book returns to the caller.
type BookingReceipt struct {
    ReservationID    int64  `json:"reservation_id"`
    ReservationCode  string `json:"reservation_code"`
    PaymentReference string `json:"payment_reference"`
    TenantID         string `json:"-"`
}

// ReservationView is a reservation joined with the names a dashboard shows.
type ReservationView struct {
    Reservation
    TicketName string `json:"ticket_name"`
    EventTitle string `json:"event_title"`
}
