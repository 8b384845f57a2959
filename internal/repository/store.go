package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/iliyamo/tenant-ticketing/internal/model"
)

// DBTX is satisfied by both *sql.DB and *sql.Tx so every repository can run
// inside or outside a transaction.
type DBTX interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// Accounts persists login credentials.
type Accounts interface {
	CreateAccount(ctx context.Context, a *model.Account) error
	GetAccount(ctx context.Context, id string) (*model.Account, error)
	GetAccountByEmail(ctx context.Context, email string) (*model.Account, error)
	UpdateAccountPassword(ctx context.Context, id, hash string) error
	DeleteAccount(ctx context.Context, id string) error
}

// Tenants persists tenant rows.
type Tenants interface {
	CreateTenant(ctx context.Context, t *model.Tenant) error
	GetTenant(ctx context.Context, id string) (*model.Tenant, error)
	GetTenantByOwner(ctx context.Context, accountID string) (*model.Tenant, error)
	ListTenants(ctx context.Context) ([]model.Tenant, error)
	UpdateTenant(ctx context.Context, t *model.Tenant) error
	DeleteTenant(ctx context.Context, id string) error
}

// Events persists event instances.  Siblings are the instances sharing a
// tenant and title, always returned in id order.
type Events interface {
	CreateEvent(ctx context.Context, e *model.EventInstance) error
	GetEvent(ctx context.Context, id int64) (*model.EventInstance, error)
	FindEvent(ctx context.Context, tenantID, title string, date *time.Time) (*model.EventInstance, error)
	ListSiblings(ctx context.Context, tenantID, title string) ([]model.EventInstance, error)
	ListEventsByTenant(ctx context.Context, tenantID string, activeOnly bool) ([]model.EventInstance, error)
	UpdateEvent(ctx context.Context, e *model.EventInstance) error
	DeleteEvent(ctx context.Context, id int64) error
	DeleteEventsByTenant(ctx context.Context, tenantID string) (int64, error)
}

// TicketTypes persists ticket types.  Stock only moves through Book,
// RestoreStock and the reset methods.
type TicketTypes interface {
	ListTicketTypes(ctx context.Context, eventID int64) ([]model.TicketType, error)
	ListTicketTypesByTenant(ctx context.Context, tenantID string) ([]model.TicketType, error)
	GetTicketType(ctx context.Context, id int64) (*model.TicketType, error)
	CreateTicketType(ctx context.Context, t *model.TicketType) error
	UpdateTicketType(ctx context.Context, t *model.TicketType) error
	RenameTicketType(ctx context.Context, id int64, name string) error
	DeleteTicketType(ctx context.Context, id int64) error
	DeleteTicketTypesByTenant(ctx context.Context, tenantID string) (int64, error)
	ReservedQuantity(ctx context.Context, ticketTypeID int64) (int, error)
	ResetEventStock(ctx context.Context, eventID int64) (int64, error)
	ResetTenantStock(ctx context.Context, tenantID string) (int64, error)
}

// Reservations persists bookings.  Book and RestoreStock are the atomic
// stock primitives.
type Reservations interface {
	Book(ctx context.Context, req model.BookingRequest) (*model.BookingReceipt, error)
	RestoreStock(ctx context.Context, ticketTypeID int64, quantity int) error
	GetReservation(ctx context.Context, id int64) (*model.Reservation, error)
	ListReservationsByTenant(ctx context.Context, tenantID string) ([]model.ReservationView, error)
	DeleteReservation(ctx context.Context, id int64) error
	DeleteReservationsByTenant(ctx context.Context, tenantID string) (int64, error)
}

// Audit appends to the audit log.  Entries are never updated.
type Audit interface {
	AppendAudit(ctx context.Context, e *model.AuditEntry) error
	ListAudit(ctx context.Context, table, recordID string) ([]model.AuditEntry, error)
}

// Store is the full domain store.  InTx runs fn against a store bound to a
// single transaction; calling InTx on a store already bound to one reuses it.
type Store interface {
	Accounts
	Tenants
	Events
	TicketTypes
	Reservations
	Audit
	InTx(ctx context.Context, fn func(Store) error) error
}

// SQLStore implements Store on MySQL.
type SQLStore struct {
	db *sql.DB
	tx *sql.Tx
	*AccountRepo
	*TenantRepo
	*EventRepo
	*TicketTypeRepo
	*ReservationRepo
	*AuditRepo
}

// NewSQLStore binds every repository to the pool.
func NewSQLStore(db *sql.DB) *SQLStore {
	return bind(db, nil, db)
}

func bind(db *sql.DB, tx *sql.Tx, q DBTX) *SQLStore {
	return &SQLStore{
		db:              db,
		tx:              tx,
		AccountRepo:     &AccountRepo{q: q},
		TenantRepo:      &TenantRepo{q: q},
		EventRepo:       &EventRepo{q: q},
		TicketTypeRepo:  &TicketTypeRepo{q: q},
		ReservationRepo: &ReservationRepo{q: q},
		AuditRepo:       &AuditRepo{q: q},
	}
}

// InTx implements Store.
func (s *SQLStore) InTx(ctx context.Context, fn func(Store) error) error {
	return s.inTx(ctx, func(t *SQLStore) error { return fn(t) })
}

func (s *SQLStore) inTx(ctx context.Context, fn func(*SQLStore) error) (err error) {
	if s.tx != nil {
		return fn(s)
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()
	if err := fn(bind(s.db, tx, tx)); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return err
	}
	committed = true
	return nil
}

// Book runs the check-and-decrement primitive in its own transaction, or in
// the caller's when the store is already transactional.
func (s *SQLStore) Book(ctx context.Context, req model.BookingRequest) (*model.BookingReceipt, error) {
	var out *model.BookingReceipt
	err := s.inTx(ctx, func(t *SQLStore) error {
		rec, err := t.ReservationRepo.book(ctx, req)
		if err != nil {
			return err
		}
		out = rec
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// rowScanner is implemented by *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

func nullString(s string) any {
	if s == "" {
		return nil
	}
	return s
}

func nullJSON(b []byte) any {
	if len(b) == 0 {
		return nil
	}
	return string(b)
}

func nullTime(t *time.Time) any {
	if t == nil {
		return nil
	}
	return t.UTC()
}

func affectedOrNotFound(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}
