package service

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/iliyamo/tenant-ticketing/internal/model"
	"github.com/iliyamo/tenant-ticketing/internal/repository"
)

// memState is the whole dataset of a memStore.  Transactions snapshot it
// and restore the snapshot on failure.
type memState struct {
	accounts     map[string]model.Account
	tenants      map[string]model.Tenant
	events       map[int64]model.EventInstance
	tickets      map[int64]model.TicketType
	reservations map[int64]model.Reservation
	audit        []model.AuditEntry
	seq          int64
}

func (s *memState) clone() *memState {
	c := &memState{
		accounts:     make(map[string]model.Account, len(s.accounts)),
		tenants:      make(map[string]model.Tenant, len(s.tenants)),
		events:       make(map[int64]model.EventInstance, len(s.events)),
		tickets:      make(map[int64]model.TicketType, len(s.tickets)),
		reservations: make(map[int64]model.Reservation, len(s.reservations)),
		audit:        append([]model.AuditEntry(nil), s.audit...),
		seq:          s.seq,
	}
	for k, v := range s.accounts {
		c.accounts[k] = v
	}
	for k, v := range s.tenants {
		c.tenants[k] = v
	}
	for k, v := range s.events {
		c.events[k] = v
	}
	for k, v := range s.tickets {
		c.tickets[k] = v
	}
	for k, v := range s.reservations {
		c.reservations[k] = v
	}
	return c
}

// memFaults injects failures into a memStore.
type memFaults struct {
	restoreFailures int   // RestoreStock fails this many more times
	appendErr       error // AppendAudit always fails with it
	storeDown       error // every account lookup fails with it
}

var errInjected = errors.New("injected failure")

// memStore implements repository.Store in memory.  A single mutex
// serialises everything; a transaction holds it until it finishes.
type memStore struct {
	mu     *sync.Mutex
	state  **memState
	faults *memFaults
	tx     bool
}

var _ repository.Store = (*memStore)(nil)

func newMemStore() *memStore {
	st := &memState{
		accounts:     map[string]model.Account{},
		tenants:      map[string]model.Tenant{},
		events:       map[int64]model.EventInstance{},
		tickets:      map[int64]model.TicketType{},
		reservations: map[int64]model.Reservation{},
	}
	return &memStore{mu: &sync.Mutex{}, state: &st, faults: &memFaults{}}
}

func (m *memStore) lock() func() {
	if m.tx {
		return func() {}
	}
	m.mu.Lock()
	return m.mu.Unlock
}

func (m *memStore) s() *memState { return *m.state }

func (m *memStore) next() int64 {
	m.s().seq++
	return m.s().seq
}

func (m *memStore) InTx(ctx context.Context, fn func(repository.Store) error) error {
	if m.tx {
		return fn(m)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	snapshot := m.s().clone()
	if err := fn(&memStore{mu: m.mu, state: m.state, faults: m.faults, tx: true}); err != nil {
		*m.state = snapshot
		return err
	}
	return nil
}

// accounts

func (m *memStore) CreateAccount(_ context.Context, a *model.Account) error {
	defer m.lock()()
	a.Email = strings.ToLower(strings.TrimSpace(a.Email))
	for _, x := range m.s().accounts {
		if x.Email == a.Email {
			return repository.ErrDuplicate
		}
	}
	if a.ID == "" {
		a.ID = uuid.NewString()
	}
	a.CreatedAt = time.Now().UTC()
	m.s().accounts[a.ID] = *a
	return nil
}

func (m *memStore) GetAccount(_ context.Context, id string) (*model.Account, error) {
	defer m.lock()()
	if m.faults.storeDown != nil {
		return nil, m.faults.storeDown
	}
	a, ok := m.s().accounts[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &a, nil
}

func (m *memStore) GetAccountByEmail(_ context.Context, email string) (*model.Account, error) {
	defer m.lock()()
	if m.faults.storeDown != nil {
		return nil, m.faults.storeDown
	}
	for _, a := range m.s().accounts {
		if a.Email == email {
			return &a, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (m *memStore) UpdateAccountPassword(_ context.Context, id, hash string) error {
	defer m.lock()()
	a, ok := m.s().accounts[id]
	if !ok {
		return repository.ErrNotFound
	}
	a.PasswordHash = hash
	m.s().accounts[id] = a
	return nil
}

func (m *memStore) DeleteAccount(_ context.Context, id string) error {
	defer m.lock()()
	if _, ok := m.s().accounts[id]; !ok {
		return repository.ErrNotFound
	}
	delete(m.s().accounts, id)
	return nil
}

// tenants

func (m *memStore) CreateTenant(_ context.Context, t *model.Tenant) error {
	defer m.lock()()
	if t.ID == "" {
		t.ID = uuid.NewString()
	}
	if _, ok := m.s().tenants[t.ID]; ok {
		return repository.ErrDuplicate
	}
	t.Active = true
	t.CreatedAt = time.Now().UTC()
	m.s().tenants[t.ID] = *t
	return nil
}

func (m *memStore) GetTenant(_ context.Context, id string) (*model.Tenant, error) {
	defer m.lock()()
	t, ok := m.s().tenants[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &t, nil
}

func (m *memStore) GetTenantByOwner(_ context.Context, accountID string) (*model.Tenant, error) {
	defer m.lock()()
	for _, t := range m.s().tenants {
		if t.OwnerID == accountID {
			return &t, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (m *memStore) ListTenants(_ context.Context) ([]model.Tenant, error) {
	defer m.lock()()
	out := make([]model.Tenant, 0, len(m.s().tenants))
	for _, t := range m.s().tenants {
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Featured != out[j].Featured {
			return out[i].Featured
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (m *memStore) UpdateTenant(_ context.Context, t *model.Tenant) error {
	defer m.lock()()
	if _, ok := m.s().tenants[t.ID]; !ok {
		return repository.ErrNotFound
	}
	m.s().tenants[t.ID] = *t
	return nil
}

func (m *memStore) DeleteTenant(_ context.Context, id string) error {
	defer m.lock()()
	if _, ok := m.s().tenants[id]; !ok {
		return repository.ErrNotFound
	}
	delete(m.s().tenants, id)
	return nil
}

// events

func (m *memStore) CreateEvent(_ context.Context, e *model.EventInstance) error {
	defer m.lock()()
	if _, ok := m.s().tenants[e.TenantID]; !ok {
		return fmt.Errorf("foreign key: tenant %q", e.TenantID)
	}
	e.ID = m.next()
	e.CreatedAt = time.Now().UTC()
	stored := *e
	stored.Tickets = nil
	m.s().events[e.ID] = stored
	return nil
}

func (m *memStore) GetEvent(_ context.Context, id int64) (*model.EventInstance, error) {
	defer m.lock()()
	e, ok := m.s().events[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &e, nil
}

func (m *memStore) FindEvent(_ context.Context, tenantID, title string, date *time.Time) (*model.EventInstance, error) {
	defer m.lock()()
	for _, e := range m.sortedEvents() {
		if e.TenantID == tenantID && e.Title == title && model.SameDate(e.Date, date) {
			return &e, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (m *memStore) sortedEvents() []model.EventInstance {
	out := make([]model.EventInstance, 0, len(m.s().events))
	for _, e := range m.s().events {
		out = append(out, e)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (m *memStore) ListSiblings(_ context.Context, tenantID, title string) ([]model.EventInstance, error) {
	defer m.lock()()
	var out []model.EventInstance
	for _, e := range m.sortedEvents() {
		if e.TenantID == tenantID && e.Title == title {
			out = append(out, e)
		}
	}
	return out, nil
}

func (m *memStore) ListEventsByTenant(_ context.Context, tenantID string, activeOnly bool) ([]model.EventInstance, error) {
	defer m.lock()()
	var out []model.EventInstance
	for _, e := range m.sortedEvents() {
		if e.TenantID == tenantID && (!activeOnly || e.Active) {
			out = append(out, e)
		}
	}
	return out, nil
}

func (m *memStore) UpdateEvent(_ context.Context, e *model.EventInstance) error {
	defer m.lock()()
	old, ok := m.s().events[e.ID]
	if !ok {
		return repository.ErrNotFound
	}
	stored := *e
	stored.TenantID = old.TenantID
	stored.CreatedAt = old.CreatedAt
	stored.Tickets = nil
	m.s().events[e.ID] = stored
	return nil
}

func (m *memStore) DeleteEvent(_ context.Context, id int64) error {
	defer m.lock()()
	if _, ok := m.s().events[id]; !ok {
		return repository.ErrNotFound
	}
	m.cascadeEvent(id)
	return nil
}

// cascadeEvent mirrors the ON DELETE CASCADE foreign keys.
func (m *memStore) cascadeEvent(id int64) {
	for tid, tt := range m.s().tickets {
		if tt.EventID != id {
			continue
		}
		for rid, r := range m.s().reservations {
			if r.TicketTypeID == tid {
				delete(m.s().reservations, rid)
			}
		}
		delete(m.s().tickets, tid)
	}
	delete(m.s().events, id)
}

func (m *memStore) DeleteEventsByTenant(_ context.Context, tenantID string) (int64, error) {
	defer m.lock()()
	var n int64
	for id, e := range m.s().events {
		if e.TenantID == tenantID {
			m.cascadeEvent(id)
			n++
		}
	}
	return n, nil
}

// ticket types

func (m *memStore) ListTicketTypes(_ context.Context, eventID int64) ([]model.TicketType, error) {
	defer m.lock()()
	var out []model.TicketType
	for _, tt := range m.s().tickets {
		if tt.EventID == eventID {
			out = append(out, tt)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m *memStore) ListTicketTypesByTenant(_ context.Context, tenantID string) ([]model.TicketType, error) {
	defer m.lock()()
	var out []model.TicketType
	for _, tt := range m.s().tickets {
		if m.s().events[tt.EventID].TenantID == tenantID {
			out = append(out, tt)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m *memStore) GetTicketType(_ context.Context, id int64) (*model.TicketType, error) {
	defer m.lock()()
	tt, ok := m.s().tickets[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &tt, nil
}

func (m *memStore) CreateTicketType(_ context.Context, t *model.TicketType) error {
	defer m.lock()()
	if _, ok := m.s().events[t.EventID]; !ok {
		return fmt.Errorf("foreign key: event %d", t.EventID)
	}
	for _, x := range m.s().tickets {
		if x.EventID == t.EventID && x.Name == t.Name {
			return repository.ErrDuplicate
		}
	}
	t.ID = m.next()
	t.Capacity = t.Stock
	m.s().tickets[t.ID] = *t
	return nil
}

func (m *memStore) reserved(ticketTypeID int64) int {
	n := 0
	for _, r := range m.s().reservations {
		if r.TicketTypeID == ticketTypeID {
			n += r.Quantity
		}
	}
	return n
}

func (m *memStore) UpdateTicketType(_ context.Context, t *model.TicketType) error {
	defer m.lock()()
	old, ok := m.s().tickets[t.ID]
	if !ok {
		return repository.ErrNotFound
	}
	old.Price = t.Price
	old.Stock = t.Stock
	old.Capacity = t.Stock + m.reserved(t.ID)
	m.s().tickets[t.ID] = old
	*t = old
	return nil
}

func (m *memStore) RenameTicketType(_ context.Context, id int64, name string) error {
	defer m.lock()()
	tt, ok := m.s().tickets[id]
	if !ok {
		return repository.ErrNotFound
	}
	tt.Name = name
	m.s().tickets[id] = tt
	return nil
}

func (m *memStore) DeleteTicketType(_ context.Context, id int64) error {
	defer m.lock()()
	if _, ok := m.s().tickets[id]; !ok {
		return repository.ErrNotFound
	}
	if m.reserved(id) > 0 {
		return repository.ErrConflict
	}
	delete(m.s().tickets, id)
	return nil
}

func (m *memStore) DeleteTicketTypesByTenant(_ context.Context, tenantID string) (int64, error) {
	defer m.lock()()
	var n int64
	for id, tt := range m.s().tickets {
		if m.s().events[tt.EventID].TenantID == tenantID {
			delete(m.s().tickets, id)
			n++
		}
	}
	return n, nil
}

func (m *memStore) ReservedQuantity(_ context.Context, ticketTypeID int64) (int, error) {
	defer m.lock()()
	return m.reserved(ticketTypeID), nil
}

func (m *memStore) resetWhere(match func(model.TicketType) bool) int64 {
	var n int64
	for id, tt := range m.s().tickets {
		if !match(tt) {
			continue
		}
		tt.Stock = tt.Capacity - m.reserved(id)
		if tt.Stock < 0 {
			tt.Stock = 0
		}
		m.s().tickets[id] = tt
		n++
	}
	return n
}

func (m *memStore) ResetEventStock(_ context.Context, eventID int64) (int64, error) {
	defer m.lock()()
	return m.resetWhere(func(tt model.TicketType) bool { return tt.EventID == eventID }), nil
}

func (m *memStore) ResetTenantStock(_ context.Context, tenantID string) (int64, error) {
	defer m.lock()()
	return m.resetWhere(func(tt model.TicketType) bool {
		return m.s().events[tt.EventID].TenantID == tenantID
	}), nil
}

// reservations

func (m *memStore) Book(_ context.Context, req model.BookingRequest) (*model.BookingReceipt, error) {
	defer m.lock()()
	tt, ok := m.s().tickets[req.TicketTypeID]
	if !ok {
		return nil, repository.ErrNotFound
	}
	if tt.Stock < req.Quantity {
		return nil, repository.ErrInsufficientStock
	}
	tt.Stock -= req.Quantity
	m.s().tickets[tt.ID] = tt
	r := model.Reservation{
		ID:               m.next(),
		TicketTypeID:     tt.ID,
		TenantID:         m.s().events[tt.EventID].TenantID,
		Customer:         req.Customer,
		Quantity:         req.Quantity,
		ReservationCode:  fmt.Sprintf("R%07d", m.s().seq),
		PaymentReference: fmt.Sprintf("PAY-%010X", m.s().seq),
		CreatedAt:        time.Now().UTC(),
	}
	m.s().reservations[r.ID] = r
	return &model.BookingReceipt{
		ReservationID:    r.ID,
		ReservationCode:  r.ReservationCode,
		PaymentReference: r.PaymentReference,
		TenantID:         r.TenantID,
	}, nil
}

func (m *memStore) RestoreStock(_ context.Context, ticketTypeID int64, quantity int) error {
	defer m.lock()()
	if m.faults.restoreFailures > 0 {
		m.faults.restoreFailures--
		return errInjected
	}
	tt, ok := m.s().tickets[ticketTypeID]
	if !ok {
		return repository.ErrNotFound
	}
	tt.Stock += quantity
	m.s().tickets[ticketTypeID] = tt
	return nil
}

func (m *memStore) GetReservation(_ context.Context, id int64) (*model.Reservation, error) {
	defer m.lock()()
	r, ok := m.s().reservations[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &r, nil
}

func (m *memStore) ListReservationsByTenant(_ context.Context, tenantID string) ([]model.ReservationView, error) {
	defer m.lock()()
	var out []model.ReservationView
	for _, r := range m.s().reservations {
		if r.TenantID != tenantID {
			continue
		}
		tt := m.s().tickets[r.TicketTypeID]
		out = append(out, model.ReservationView{
			Reservation: r,
			TicketName:  tt.Name,
			EventTitle:  m.s().events[tt.EventID].Title,
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m *memStore) DeleteReservation(_ context.Context, id int64) error {
	defer m.lock()()
	if _, ok := m.s().reservations[id]; !ok {
		return repository.ErrNotFound
	}
	delete(m.s().reservations, id)
	return nil
}

func (m *memStore) DeleteReservationsByTenant(_ context.Context, tenantID string) (int64, error) {
	defer m.lock()()
	var n int64
	for id, r := range m.s().reservations {
		if r.TenantID == tenantID {
			delete(m.s().reservations, id)
			n++
		}
	}
	return n, nil
}

// audit

func (m *memStore) AppendAudit(_ context.Context, e *model.AuditEntry) error {
	defer m.lock()()
	if m.faults.appendErr != nil {
		return m.faults.appendErr
	}
	e.ID = int64(len(m.s().audit) + 1)
	e.CreatedAt = time.Now().UTC()
	m.s().audit = append(m.s().audit, *e)
	return nil
}

func (m *memStore) ListAudit(_ context.Context, table, recordID string) ([]model.AuditEntry, error) {
	defer m.lock()()
	var out []model.AuditEntry
	for _, e := range m.s().audit {
		if e.Table == table && (recordID == "" || e.RecordID == recordID) {
			out = append(out, e)
		}
	}
	return out, nil
}

// test helpers

func (m *memStore) auditActions(table string) []model.AuditAction {
	entries, _ := m.ListAudit(context.Background(), table, "")
	out := make([]model.AuditAction, 0, len(entries))
	for _, e := range entries {
		out = append(out, e.Action)
	}
	return out
}

func (m *memStore) seedTenant(id string, active bool) model.Tenant {
	defer m.lock()()
	t := model.Tenant{ID: id, Name: id, Active: active, CreatedAt: time.Now().UTC()}
	m.s().tenants[id] = t
	return t
}

func (m *memStore) stock(id int64) int {
	tt, err := m.GetTicketType(context.Background(), id)
	if err != nil {
		return -1
	}
	return tt.Stock
}
