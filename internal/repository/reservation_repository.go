package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/iliyamo/tenant-ticketing/internal/model"
)

// ReservationRepo provides persistence for reservations and implements the
// two stock primitives.  Reservations are never updated, only inserted and
// deleted.
type ReservationRepo struct{ q DBTX }

// maxCodeAttempts bounds regeneration of a colliding reservation code.
const maxCodeAttempts = 5

const reservationColumns = "r.id, r.ticket_type_id, r.tenant_id, r.customer_name, r.customer_email, r.customer_phone, r.quantity, r.reservation_code, r.payment_reference, r.created_at"

// book is the check-and-decrement primitive.  r.q must be a transaction:
// the conditional UPDATE takes the row lock, so a concurrent booking of the
// same ticket type waits and then re-evaluates stock >= quantity against
// the committed value.
func (r *ReservationRepo) book(ctx context.Context, req model.BookingRequest) (*model.BookingReceipt, error) {
	res, err := r.q.ExecContext(ctx,
		"UPDATE ticket_types SET stock = stock - ? WHERE id = ? AND stock >= ?",
		req.Quantity, req.TicketTypeID, req.Quantity)
	if err != nil {
		return nil, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return nil, err
	}
	if n == 0 {
		var one int
		err := r.q.QueryRowContext(ctx, "SELECT 1 FROM ticket_types WHERE id = ?", req.TicketTypeID).Scan(&one)
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		if err != nil {
			return nil, err
		}
		return nil, ErrInsufficientStock
	}

	var tenantID string
	err = r.q.QueryRowContext(ctx,
		"SELECT e.tenant_id FROM ticket_types tt JOIN event_instances e ON e.id = tt.event_id WHERE tt.id = ?",
		req.TicketTypeID).Scan(&tenantID)
	if err != nil {
		return nil, fmt.Errorf("resolve tenant: %w", err)
	}

	out := &model.BookingReceipt{TenantID: tenantID, PaymentReference: newPaymentReference()}
	for attempt := 1; ; attempt++ {
		code, err := newReservationCode()
		if err != nil {
			return nil, err
		}
		res, err = r.q.ExecContext(ctx,
			`INSERT INTO reservations (ticket_type_id, tenant_id, customer_name, customer_email, customer_phone, quantity, reservation_code, payment_reference)
			 VALUES (?,?,?,?,?,?,?,?)`,
			req.TicketTypeID, tenantID, req.Customer.Name, req.Customer.Email, req.Customer.Phone,
			req.Quantity, code, out.PaymentReference)
		if isDuplicate(err) && attempt < maxCodeAttempts {
			continue
		}
		if err != nil {
			return nil, err
		}
		out.ReservationCode = code
		break
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, err
	}
	out.ReservationID = id
	return out, nil
}

// RestoreStock adds quantity back to a ticket type in one statement, so
// concurrent writers cannot lose the update.
func (r *ReservationRepo) RestoreStock(ctx context.Context, ticketTypeID int64, quantity int) error {
	res, err := r.q.ExecContext(ctx, "UPDATE ticket_types SET stock = stock + ? WHERE id = ?", quantity, ticketTypeID)
	if err != nil {
		return err
	}
	return affectedOrNotFound(res)
}

// GetReservation fetches one reservation.
func (r *ReservationRepo) GetReservation(ctx context.Context, id int64) (*model.Reservation, error) {
	var res model.Reservation
	err := r.q.QueryRowContext(ctx, "SELECT "+reservationColumns+" FROM reservations r WHERE r.id = ?", id).
		Scan(reservationDest(&res)...)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &res, nil
}

// ListReservationsByTenant returns the tenant's reservations, newest first,
// with ticket and event names attached.
func (r *ReservationRepo) ListReservationsByTenant(ctx context.Context, tenantID string) ([]model.ReservationView, error) {
	rows, err := r.q.QueryContext(ctx,
		`SELECT `+reservationColumns+`, tt.name, e.title
		 FROM reservations r
		 JOIN ticket_types tt ON tt.id = r.ticket_type_id
		 JOIN event_instances e ON e.id = tt.event_id
		 WHERE r.tenant_id = ? ORDER BY r.created_at DESC, r.id DESC`, tenantID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []model.ReservationView
	for rows.Next() {
		var v model.ReservationView
		dest := append(reservationDest(&v.Reservation), &v.TicketName, &v.EventTitle)
		if err := rows.Scan(dest...); err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, rows.Err()
}

// DeleteReservation removes one reservation row.  Stock is not touched;
// callers restore it first.
func (r *ReservationRepo) DeleteReservation(ctx context.Context, id int64) error {
	res, err := r.q.ExecContext(ctx, "DELETE FROM reservations WHERE id = ?", id)
	if err != nil {
		return err
	}
	return affectedOrNotFound(res)
}

// DeleteReservationsByTenant removes every reservation of a tenant.
func (r *ReservationRepo) DeleteReservationsByTenant(ctx context.Context, tenantID string) (int64, error) {
	res, err := r.q.ExecContext(ctx, "DELETE FROM reservations WHERE tenant_id = ?", tenantID)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func reservationDest(res *model.Reservation) []any {
	return []any{&res.ID, &res.TicketTypeID, &res.TenantID, &res.Customer.Name, &res.Customer.Email,
		&res.Customer.Phone, &res.Quantity, &res.ReservationCode, &res.PaymentReference, &res.CreatedAt}
}
