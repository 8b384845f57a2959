package service

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/iliyamo/tenant-ticketing/internal/model"
)

func TestCreateEventGroup_OneInstancePerDistinctDate(t *testing.T) {
	env := newTestEnv(t)
	d1, d2 := date("2026-11-01 20:00"), date("2026-11-02 20:00")

	sib := env.publish(t, "Concert", []*time.Time{d1, d2, date("2026-11-01 20:00")},
		model.TicketSpec{Name: "VIP", Price: 100, Stock: 5},
		model.TicketSpec{Name: "GA", Price: 10, Stock: 50})
	require.Len(t, sib, 2)
	assert.True(t, sib[0].Date.Equal(*d1))
	assert.True(t, sib[1].Date.Equal(*d2))
	for _, ev := range sib {
		assert.True(t, ev.Active)
		tts, err := env.store.ListTicketTypes(context.Background(), ev.ID)
		require.NoError(t, err)
		assert.Len(t, tts, 2)
	}
}

func TestCreateEventGroup_EmptyDatesSaveUndatedInstance(t *testing.T) {
	env := newTestEnv(t)
	sib := env.publish(t, "Coming soon", nil)
	require.Len(t, sib, 1)
	assert.Nil(t, sib[0].Date)
}

func TestCreateEventGroup_IsIdempotent(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	in := EventGroupInput{
		Fields:  model.EventFields{Title: "Concert"},
		Dates:   []*time.Time{date("2026-11-01 20:00"), nil},
		Tickets: []model.TicketSpec{{Name: "GA", Price: 10, Stock: 5}},
	}
	first, err := env.events.CreateEventGroup(ctx, owner, tenantA, in)
	require.NoError(t, err)
	assert.Len(t, first.Created, 2)

	second, err := env.events.CreateEventGroup(ctx, owner, tenantA, in)
	require.NoError(t, err)
	assert.Empty(t, second.Created)
	assert.ElementsMatch(t, first.Created, second.Skipped)

	sib, err := env.store.ListSiblings(ctx, tenantA, "Concert")
	require.NoError(t, err)
	assert.Len(t, sib, 2)
}

func TestCreateEventGroup_Validation(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	tests := []struct {
		name string
		in   EventGroupInput
	}{
		{"blank title", EventGroupInput{Fields: model.EventFields{Title: "  "}}},
		{"negative fee", EventGroupInput{Fields: model.EventFields{Title: "x", ReservationFee: -1}}},
		{"bad extra", EventGroupInput{Fields: model.EventFields{Title: "x", Extra: json.RawMessage("{")}}},
		{"negative stock", EventGroupInput{Fields: model.EventFields{Title: "x"},
			Tickets: []model.TicketSpec{{Name: "GA", Stock: -1}}}},
		{"unnamed ticket", EventGroupInput{Fields: model.EventFields{Title: "x"},
			Tickets: []model.TicketSpec{{Price: 1, Stock: 1}}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := env.events.CreateEventGroup(ctx, owner, tenantA, tt.in)
			assert.ErrorIs(t, err, ErrValidation)
		})
	}
	assert.Empty(t, env.store.s().events)
}

func TestCreateEventGroup_Authorization(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	in := EventGroupInput{Fields: model.EventFields{Title: "Concert"}}

	_, err := env.events.CreateEventGroup(ctx, other, tenantA, in)
	assert.ErrorIs(t, err, ErrUnauthorized)

	res, err := env.events.CreateEventGroup(ctx, elevated, tenantA, in)
	require.NoError(t, err)
	require.Len(t, res.Created, 1)

	entries, err := env.store.ListAudit(ctx, model.TableEvents, "")
	require.NoError(t, err)
	require.NotEmpty(t, entries)
	assert.Equal(t, model.ActorSuperAdmin, entries[0].Actor)

	_, err = env.events.CreateEventGroup(ctx, elevated, "nope", in)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestUpdateEventGroup_PositionalIdentity(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	sib := env.publish(t, "Concert",
		[]*time.Time{date("2026-11-01 20:00"), date("2026-11-02 20:00")},
		model.TicketSpec{Name: "GA", Price: 10, Stock: 5})
	ga0 := env.ticket(t, sib[0].ID, "GA")
	_, err := env.reservations.Book(ctx, booking(ga0.ID, 2))
	require.NoError(t, err)

	moved := []*time.Time{date("2026-12-01 19:00"), date("2026-12-02 19:00"), date("2026-12-03 19:00")}
	res, err := env.events.UpdateEventGroup(ctx, owner, sib[1].ID, EventGroupInput{
		Fields:  model.EventFields{Title: "Concert", Location: "Arena"},
		Dates:   moved,
		Tickets: []model.TicketSpec{{Name: "GA", Price: 12, Stock: 8}},
	})
	require.NoError(t, err)
	assert.Equal(t, []int64{sib[0].ID, sib[1].ID}, res.Updated)
	require.Len(t, res.Created, 1)
	assert.Empty(t, res.Deleted)

	after, err := env.store.ListSiblings(ctx, tenantA, "Concert")
	require.NoError(t, err)
	require.Len(t, after, 3)
	for i, ev := range after {
		assert.True(t, ev.Date.Equal(*moved[i]), "position %d", i)
		assert.Equal(t, "Arena", ev.Location)
	}

	// ticket types were updated in place; the booking still points at the same row
	ga0After := env.ticket(t, sib[0].ID, "GA")
	assert.Equal(t, ga0.ID, ga0After.ID)
	assert.Equal(t, 8, ga0After.Stock)
	assert.Equal(t, 10, ga0After.Capacity)
	assert.Equal(t, 12.0, ga0After.Price)
}

func TestUpdateEventGroup_DeletesOrphansWithAudit(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	sib := env.publish(t, "Concert", []*time.Time{
		date("2026-11-01 20:00"), date("2026-11-02 20:00"), date("2026-11-03 20:00"),
	}, model.TicketSpec{Name: "GA", Price: 10, Stock: 5})

	res, err := env.events.UpdateEventGroup(ctx, owner, sib[0].ID, EventGroupInput{
		Fields: model.EventFields{Title: "Concert"},
		Dates:  []*time.Time{date("2026-11-01 20:00")},
	})
	require.NoError(t, err)
	assert.Equal(t, []int64{sib[1].ID, sib[2].ID}, res.Deleted)

	after, err := env.store.ListSiblings(ctx, tenantA, "Concert")
	require.NoError(t, err)
	require.Len(t, after, 1)
	assert.Equal(t, sib[0].ID, after[0].ID)

	var deletes int
	for _, a := range env.store.auditActions(model.TableEvents) {
		if a == model.AuditDelete {
			deletes++
		}
	}
	assert.Equal(t, 2, deletes)

	// cascaded ticket types are gone with their instance
	tts, err := env.store.ListTicketTypes(ctx, sib[2].ID)
	require.NoError(t, err)
	assert.Empty(t, tts)
}

func TestUpdateEventGroup_ClearingDatesKeepsOneUndated(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	sib := env.publish(t, "Concert", []*time.Time{date("2026-11-01 20:00"), date("2026-11-02 20:00")})

	res, err := env.events.UpdateEventGroup(ctx, owner, sib[0].ID, EventGroupInput{
		Fields: model.EventFields{Title: "Concert"},
	})
	require.NoError(t, err)
	assert.Equal(t, []int64{sib[0].ID}, res.Updated)
	assert.Equal(t, []int64{sib[1].ID}, res.Deleted)

	after, err := env.store.ListSiblings(ctx, tenantA, "Concert")
	require.NoError(t, err)
	require.Len(t, after, 1)
	assert.Nil(t, after[0].Date)
}

func TestUpdateEventGroup_Unauthorized(t *testing.T) {
	env := newTestEnv(t)
	sib := env.publish(t, "Concert", nil)
	_, err := env.events.UpdateEventGroup(context.Background(), other, sib[0].ID, EventGroupInput{
		Fields: model.EventFields{Title: "Hijacked"},
	})
	assert.ErrorIs(t, err, ErrUnauthorized)

	ev, err := env.store.GetEvent(context.Background(), sib[0].ID)
	require.NoError(t, err)
	assert.Equal(t, "Concert", ev.Title)
}

func TestTicketSync_LaterDuplicateNameWins(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	sib := env.publish(t, "Concert", nil)

	ts := NewTicketSynchronizer(NewRecorder(zaptest.NewLogger(t)))
	res, err := ts.Sync(ctx, env.store, sib[0].ID, []model.TicketSpec{
		{Name: "GA", Price: 10, Stock: 5},
		{Name: "GA", Price: 15, Stock: 7},
	}, model.ActorAdmin)
	require.NoError(t, err)
	require.Len(t, res.Inserted, 1)
	assert.Equal(t, res.Inserted, res.Updated)

	ga := env.ticket(t, sib[0].ID, "GA")
	assert.Equal(t, 15.0, ga.Price)
	assert.Equal(t, 7, ga.Stock)
}

func TestTicketSync_LeavesUnlistedTypesAlone(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	sib := env.publish(t, "Concert", nil,
		model.TicketSpec{Name: "VIP", Price: 100, Stock: 5},
		model.TicketSpec{Name: "GA", Price: 10, Stock: 50})

	_, err := env.events.UpdateEventGroup(ctx, owner, sib[0].ID, EventGroupInput{
		Fields:  model.EventFields{Title: "Concert"},
		Tickets: []model.TicketSpec{{Name: "GA", Price: 11, Stock: 40}},
	})
	require.NoError(t, err)

	vip := env.ticket(t, sib[0].ID, "VIP")
	assert.Equal(t, 5, vip.Stock)
	assert.Equal(t, 40, env.ticket(t, sib[0].ID, "GA").Stock)
}
