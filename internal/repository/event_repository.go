package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/iliyamo/tenant-ticketing/internal/model"
)

// EventRepo provides persistence for event instances.  A logical event has
// no row of its own; it is the set of instances sharing tenant_id and
// title, served by the (tenant_id, title) index.
type EventRepo struct{ q DBTX }

const eventColumns = "id, tenant_id, title, description, location, image_url, category, date, duration, reservation_fee, active, extra, created_at"

// CreateEvent inserts e and populates its ID and CreatedAt.
func (r *EventRepo) CreateEvent(ctx context.Context, e *model.EventInstance) error {
	res, err := r.q.ExecContext(ctx,
		`INSERT INTO event_instances (tenant_id, title, description, location, image_url, category, date, duration, reservation_fee, active, extra)
		 VALUES (?,?,?,?,?,?,?,?,?,?,?)`,
		e.TenantID, e.Title, nullString(e.Description), nullString(e.Location), nullString(e.ImageURL),
		nullString(e.Category), nullTime(e.Date), nullString(e.Duration), e.ReservationFee, e.Active, nullJSON(e.Extra))
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	e.ID = id
	// Re-read the server defaulted timestamp.
	return r.q.QueryRowContext(ctx, "SELECT created_at FROM event_instances WHERE id = ?", id).Scan(&e.CreatedAt)
}

// GetEvent fetches one instance by id.
func (r *EventRepo) GetEvent(ctx context.Context, id int64) (*model.EventInstance, error) {
	return scanEvent(r.q.QueryRowContext(ctx, "SELECT "+eventColumns+" FROM event_instances WHERE id = ?", id))
}

// FindEvent looks up the first instance of tenantID with the same title and
// date.  A nil date matches only instances without a date.
func (r *EventRepo) FindEvent(ctx context.Context, tenantID, title string, date *time.Time) (*model.EventInstance, error) {
	if date == nil {
		return scanEvent(r.q.QueryRowContext(ctx,
			"SELECT "+eventColumns+" FROM event_instances WHERE tenant_id = ? AND title = ? AND date IS NULL ORDER BY id LIMIT 1",
			tenantID, title))
	}
	return scanEvent(r.q.QueryRowContext(ctx,
		"SELECT "+eventColumns+" FROM event_instances WHERE tenant_id = ? AND title = ? AND date = ? ORDER BY id LIMIT 1",
		tenantID, title, date.UTC()))
}

// ListSiblings returns every instance of the logical event in creation order.
// The order is the reconciliation target and must stay stable.
func (r *EventRepo) ListSiblings(ctx context.Context, tenantID, title string) ([]model.EventInstance, error) {
	return r.list(ctx,
		"SELECT "+eventColumns+" FROM event_instances WHERE tenant_id = ? AND title = ? ORDER BY id",
		tenantID, title)
}

// ListEventsByTenant returns the tenant's instances by date, undated last.
func (r *EventRepo) ListEventsByTenant(ctx context.Context, tenantID string, activeOnly bool) ([]model.EventInstance, error) {
	q := "SELECT " + eventColumns + " FROM event_instances WHERE tenant_id = ?"
	if activeOnly {
		q += " AND active = 1"
	}
	q += " ORDER BY date IS NULL, date, id"
	return r.list(ctx, q, tenantID)
}

func (r *EventRepo) list(ctx context.Context, q string, args ...any) ([]model.EventInstance, error) {
	rows, err := r.q.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []model.EventInstance
	for rows.Next() {
		e, err := scanEvent(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *e)
	}
	return out, rows.Err()
}

// UpdateEvent overwrites the shared fields, date and active flag of e.
func (r *EventRepo) UpdateEvent(ctx context.Context, e *model.EventInstance) error {
	res, err := r.q.ExecContext(ctx,
		`UPDATE event_instances SET title=?, description=?, location=?, image_url=?, category=?, date=?, duration=?,
		 reservation_fee=?, active=?, extra=? WHERE id=?`,
		e.Title, nullString(e.Description), nullString(e.Location), nullString(e.ImageURL), nullString(e.Category),
		nullTime(e.Date), nullString(e.Duration), e.ReservationFee, e.Active, nullJSON(e.Extra), e.ID)
	if err != nil {
		return err
	}
	return affectedOrNotFound(res)
}

// DeleteEvent removes one instance; its ticket types and their reservations
// go with it through the foreign keys.
func (r *EventRepo) DeleteEvent(ctx context.Context, id int64) error {
	res, err := r.q.ExecContext(ctx, "DELETE FROM event_instances WHERE id = ?", id)
	if err != nil {
		return err
	}
	return affectedOrNotFound(res)
}

// DeleteEventsByTenant removes every instance of a tenant.
func (r *EventRepo) DeleteEventsByTenant(ctx context.Context, tenantID string) (int64, error) {
	res, err := r.q.ExecContext(ctx, "DELETE FROM event_instances WHERE tenant_id = ?", tenantID)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func scanEvent(row rowScanner) (*model.EventInstance, error) {
	var (
		e                                         model.EventInstance
		desc, location, image, category, duration sql.NullString
		date                                      sql.NullTime
		extra                                     []byte
	)
	err := row.Scan(&e.ID, &e.TenantID, &e.Title, &desc, &location, &image, &category, &date,
		&duration, &e.ReservationFee, &e.Active, &extra, &e.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	e.Description = desc.String
	e.Location = location.String
	e.ImageURL = image.String
	e.Category = category.String
	e.Duration = duration.String
	if date.Valid {
		d := date.Time.UTC()
		e.Date = &d
	}
	if len(extra) > 0 {
		e.Extra = append([]byte(nil), extra...)
	}
	return &e, nil
}
