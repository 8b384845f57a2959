package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/iliyamo/tenant-ticketing/internal/model"
)

const (
	masterID = "master"
	tenantA  = "tenant-a"
	tenantB  = "tenant-b"
)

var (
	owner    = model.Principal{TenantID: tenantA, AccountID: "acc-a"}
	other    = model.Principal{TenantID: tenantB, AccountID: "acc-b"}
	elevated = model.Principal{TenantID: masterID, Elevated: true}
)

type testEnv struct {
	store        *memStore
	cache        *mockInvalidator
	notify       *mockNotifier
	events       *EventService
	reservations *ReservationEngine
	distributor  *Distributor
	tenants      *TenantService
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	log := zaptest.NewLogger(t)
	st := newMemStore()
	st.seedTenant(masterID, true)
	st.seedTenant(tenantA, true)
	st.seedTenant(tenantB, true)

	cache := &mockInvalidator{}
	cache.On("InvalidatePublic", mock.Anything).Return(nil).Maybe()
	notify := &mockNotifier{}
	notify.On("Send", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(nil).Maybe()

	rec := NewRecorder(log)
	return &testEnv{
		store:  st,
		cache:  cache,
		notify: notify,
		events: NewEventService(st, NewTicketSynchronizer(rec), rec, cache, log),
		reservations: NewReservationEngine(st, rec, notify, cache, ReservationConfig{
			NotifyTo:        "ops@example.com",
			RestoreInterval: time.Millisecond,
		}, log),
		distributor: NewDistributor(st, rec, cache, log),
		tenants:     NewTenantService(st, rec, cache, masterID, 4, log),
	}
}

type mockInvalidator struct{ mock.Mock }

func (m *mockInvalidator) InvalidatePublic(ctx context.Context) error {
	return m.Called(ctx).Error(0)
}

type mockNotifier struct{ mock.Mock }

func (m *mockNotifier) Send(ctx context.Context, to, subject, body string) error {
	return m.Called(ctx, to, subject, body).Error(0)
}

func date(s string) *time.Time {
	d, err := time.Parse("2006-01-02 15:04", s)
	if err != nil {
		panic(err)
	}
	return &d
}

// publish creates a logical event for tenantA and returns its instances in id order.
func (e *testEnv) publish(t *testing.T, title string, dates []*time.Time, tickets ...model.TicketSpec) []model.EventInstance {
	t.Helper()
	ctx := context.Background()
	_, err := e.events.CreateEventGroup(ctx, owner, tenantA, EventGroupInput{
		Fields:  model.EventFields{Title: title, Location: "Hall 1"},
		Dates:   dates,
		Tickets: tickets,
	})
	require.NoError(t, err)
	sib, err := e.store.ListSiblings(ctx, tenantA, title)
	require.NoError(t, err)
	return sib
}

func (e *testEnv) ticket(t *testing.T, eventID int64, name string) model.TicketType {
	t.Helper()
	tts, err := e.store.ListTicketTypes(context.Background(), eventID)
	require.NoError(t, err)
	for _, tt := range tts {
		if tt.Name == name {
			return tt
		}
	}
	t.Fatalf("ticket type %q not found on event %d", name, eventID)
	return model.TicketType{}
}

func booking(ticketTypeID int64, qty int) model.BookingRequest {
	return model.BookingRequest{
		TicketTypeID: ticketTypeID,
		Quantity:     qty,
		Customer:     model.Customer{Name: "Ada", Email: "ada@example.com", Phone: "555 0100"},
	}
}
