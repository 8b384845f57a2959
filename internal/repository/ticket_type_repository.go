package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/iliyamo/tenant-ticketing/internal/model"
)

// TicketTypeRepo provides persistence for ticket types.  Capacity is kept
// alongside stock so a reset can restore capacity minus what is reserved
// without ever breaking stock + reserved == capacity.
type TicketTypeRepo struct{ q DBTX }

const ticketColumns = "tt.id, tt.event_id, tt.name, tt.price, tt.stock, tt.capacity"

// reservedSum is the live reserved quantity of the ticket type aliased tt.
const reservedSum = "(SELECT COALESCE(SUM(r.quantity), 0) FROM reservations r WHERE r.ticket_type_id = tt.id)"

// ListTicketTypes returns the offerings of one instance in id order.
func (r *TicketTypeRepo) ListTicketTypes(ctx context.Context, eventID int64) ([]model.TicketType, error) {
	return r.list(ctx, "SELECT "+ticketColumns+" FROM ticket_types tt WHERE tt.event_id = ? ORDER BY tt.id", eventID)
}

// ListTicketTypesByTenant returns every offering of a tenant, lowest stock first.
func (r *TicketTypeRepo) ListTicketTypesByTenant(ctx context.Context, tenantID string) ([]model.TicketType, error) {
	return r.list(ctx,
		"SELECT "+ticketColumns+" FROM ticket_types tt JOIN event_instances e ON e.id = tt.event_id WHERE e.tenant_id = ? ORDER BY tt.stock, tt.id",
		tenantID)
}

func (r *TicketTypeRepo) list(ctx context.Context, q string, args ...any) ([]model.TicketType, error) {
	rows, err := r.q.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []model.TicketType
	for rows.Next() {
		var t model.TicketType
		if err := rows.Scan(&t.ID, &t.EventID, &t.Name, &t.Price, &t.Stock, &t.Capacity); err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

// GetTicketType fetches one ticket type.
func (r *TicketTypeRepo) GetTicketType(ctx context.Context, id int64) (*model.TicketType, error) {
	var t model.TicketType
	err := r.q.QueryRowContext(ctx, "SELECT "+ticketColumns+" FROM ticket_types tt WHERE tt.id = ?", id).
		Scan(&t.ID, &t.EventID, &t.Name, &t.Price, &t.Stock, &t.Capacity)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &t, nil
}

// CreateTicketType inserts t with capacity equal to its initial stock.
func (r *TicketTypeRepo) CreateTicketType(ctx context.Context, t *model.TicketType) error {
	res, err := r.q.ExecContext(ctx,
		"INSERT INTO ticket_types (event_id, name, price, stock, capacity) VALUES (?,?,?,?,?)",
		t.EventID, t.Name, t.Price, t.Stock, t.Stock)
	if err != nil {
		if isDuplicate(err) {
			return ErrDuplicate
		}
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	t.ID = id
	t.Capacity = t.Stock
	return nil
}

// UpdateTicketType sets price and remaining stock in place.  Capacity is
// recomputed as the new stock plus what is already reserved.
func (r *TicketTypeRepo) UpdateTicketType(ctx context.Context, t *model.TicketType) error {
	res, err := r.q.ExecContext(ctx,
		"UPDATE ticket_types tt SET tt.price = ?, tt.stock = ?, tt.capacity = ? + "+reservedSum+" WHERE tt.id = ?",
		t.Price, t.Stock, t.Stock, t.ID)
	if err != nil {
		return err
	}
	return affectedOrNotFound(res)
}

// RenameTicketType changes only the label, used by moderation.
func (r *TicketTypeRepo) RenameTicketType(ctx context.Context, id int64, name string) error {
	res, err := r.q.ExecContext(ctx, "UPDATE ticket_types SET name = ? WHERE id = ?", name, id)
	if err != nil {
		return err
	}
	return affectedOrNotFound(res)
}

// DeleteTicketType removes one ticket type.  It refuses with ErrConflict
// while reservations still point at it.
func (r *TicketTypeRepo) DeleteTicketType(ctx context.Context, id int64) error {
	res, err := r.q.ExecContext(ctx,
		"DELETE FROM ticket_types WHERE id = ? AND NOT EXISTS (SELECT 1 FROM reservations WHERE ticket_type_id = ?)", id, id)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		if _, err := r.GetTicketType(ctx, id); err != nil {
			return err
		}
		return ErrConflict
	}
	return nil
}

// DeleteTicketTypesByTenant removes every ticket type under a tenant's events.
func (r *TicketTypeRepo) DeleteTicketTypesByTenant(ctx context.Context, tenantID string) (int64, error) {
	res, err := r.q.ExecContext(ctx,
		"DELETE tt FROM ticket_types tt JOIN event_instances e ON e.id = tt.event_id WHERE e.tenant_id = ?", tenantID)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// ReservedQuantity sums the live reservations on a ticket type.
func (r *TicketTypeRepo) ReservedQuantity(ctx context.Context, ticketTypeID int64) (int, error) {
	var n int
	err := r.q.QueryRowContext(ctx,
		"SELECT COALESCE(SUM(quantity), 0) FROM reservations WHERE ticket_type_id = ?", ticketTypeID).Scan(&n)
	return n, err
}

// ResetEventStock restores every ticket type of an instance to capacity
// minus live reservations and returns how many ticket types were touched.
func (r *TicketTypeRepo) ResetEventStock(ctx context.Context, eventID int64) (int64, error) {
	res, err := r.q.ExecContext(ctx,
		"UPDATE ticket_types tt SET tt.stock = GREATEST(CAST(tt.capacity AS SIGNED) - "+reservedSum+", 0) WHERE tt.event_id = ?",
		eventID)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// ResetTenantStock is ResetEventStock over every instance of a tenant.
func (r *TicketTypeRepo) ResetTenantStock(ctx context.Context, tenantID string) (int64, error) {
	res, err := r.q.ExecContext(ctx,
		`UPDATE ticket_types tt JOIN event_instances e ON e.id = tt.event_id
		 SET tt.stock = GREATEST(CAST(tt.capacity AS SIGNED) - `+reservedSum+`, 0) WHERE e.tenant_id = ?`,
		tenantID)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
