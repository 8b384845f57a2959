package repository

import (
	"context"
	"time"

	"github.com/jmoiron/sqlx"
)

// ReservationExportRow is one flattened reservation for offline use.
type ReservationExportRow struct {
	ReservationID    int64      `db:"reservation_id" json:"reservation_id"`
	ReservationCode  string     `db:"reservation_code" json:"reservation_code"`
	PaymentReference string     `db:"payment_reference" json:"payment_reference"`
	CustomerName     string     `db:"customer_name" json:"customer_name"`
	CustomerEmail    string     `db:"customer_email" json:"customer_email"`
	CustomerPhone    string     `db:"customer_phone" json:"customer_phone"`
	Quantity         int        `db:"quantity" json:"quantity"`
	TicketName       string     `db:"ticket_name" json:"ticket_name"`
	UnitPrice        float64    `db:"unit_price" json:"unit_price"`
	EventTitle       string     `db:"event_title" json:"event_title"`
	EventDate        *time.Time `db:"event_date" json:"event_date"`
	CreatedAt        time.Time  `db:"created_at" json:"created_at"`
}

// TenantExportRow is one flattened tenant with its volume figures.
type TenantExportRow struct {
	TenantID     string    `db:"tenant_id" json:"tenant_id"`
	Name         string    `db:"name" json:"name"`
	OwnerEmail   *string   `db:"owner_email" json:"owner_email"`
	Active       bool      `db:"active" json:"active"`
	Featured     bool      `db:"featured" json:"featured"`
	Events       int       `db:"events" json:"events"`
	Reservations int       `db:"reservations" json:"reservations"`
	CreatedAt    time.Time `db:"created_at" json:"created_at"`
}

// ExportRepo serves the read-only export listings through sqlx struct
// scanning.  It never writes.
type ExportRepo struct {
	db *sqlx.DB
}

// NewExportRepo returns an ExportRepo bound to db.
func NewExportRepo(db *sqlx.DB) *ExportRepo { return &ExportRepo{db: db} }

// Reservations lists a tenant's reservations, oldest first.
func (r *ExportRepo) Reservations(ctx context.Context, tenantID string) ([]ReservationExportRow, error) {
	const q = `
SELECT r.id AS reservation_id, r.reservation_code, r.payment_reference,
       r.customer_name, r.customer_email, r.customer_phone, r.quantity,
       tt.name AS ticket_name, tt.price AS unit_price,
       e.title AS event_title, e.date AS event_date, r.created_at
FROM reservations r
JOIN ticket_types tt ON tt.id = r.ticket_type_id
JOIN event_instances e ON e.id = tt.event_id
WHERE r.tenant_id = ?
ORDER BY r.created_at, r.id`
	rows := []ReservationExportRow{}
	if err := r.db.SelectContext(ctx, &rows, q, tenantID); err != nil {
		return nil, err
	}
	return rows, nil
}

// Tenants lists every tenant with event and reservation counts.
func (r *ExportRepo) Tenants(ctx context.Context) ([]TenantExportRow, error) {
	const q = `
SELECT t.id AS tenant_id, t.name, a.email AS owner_email, t.active, t.featured,
       (SELECT COUNT(*) FROM event_instances e WHERE e.tenant_id = t.id) AS events,
       (SELECT COUNT(*) FROM reservations r WHERE r.tenant_id = t.id) AS reservations,
       t.created_at
FROM tenants t
LEFT JOIN accounts a ON a.id = t.owner_id
ORDER BY t.created_at`
	rows := []TenantExportRow{}
	if err := r.db.SelectContext(ctx, &rows, q); err != nil {
		return nil, err
	}
	return rows, nil
}
