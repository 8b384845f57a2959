package service

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"go.uber.org/zap"

	"github.com/iliyamo/tenant-ticketing/internal/model"
	"github.com/iliyamo/tenant-ticketing/internal/repository"
)

// DeleteEvent removes a single instance.  Siblings are not renumbered.
// When an elevated principal removes another tenant's instance, the title
// is first rewritten with the moderation marker and the instance is
// deactivated in a committed step, so a reader racing the delete sees the
// marker rather than the original content.
func (s *EventService) DeleteEvent(ctx context.Context, p model.Principal, id int64) error {
	ev, err := s.store.GetEvent(ctx, id)
	if err != nil {
		return storeErr("delete event", err)
	}
	if !p.CanAccess(ev.TenantID) {
		return ErrUnauthorized
	}

	if p.Moderates(ev.TenantID) {
		marked := *ev
		marked.Title = moderationLabel(ev.Title)
		marked.Active = false
		err := s.store.InTx(ctx, func(tx repository.Store) error {
			if err := tx.UpdateEvent(ctx, &marked); err != nil {
				return err
			}
			s.audit.Record(ctx, tx, model.TableEvents, ev.ID, model.AuditModerationDelete, ev, marked, model.ActorSuperAdmin)
			return nil
		})
		if err != nil {
			return storeErr("moderate event", err)
		}
	} else {
		s.audit.Record(ctx, s.store, model.TableEvents, ev.ID, model.AuditDelete, ev, nil, model.ActorAdmin)
	}

	if err := s.store.DeleteEvent(ctx, id); err != nil {
		return storeErr("delete event", err)
	}
	s.invalidate(ctx)
	return nil
}

// BulkDeleteResult reports per-id outcomes of BulkDeleteEvents.
type BulkDeleteResult struct {
	Deleted []int64          `json:"deleted"`
	Failed  map[int64]string `json:"failed,omitempty"`
}

// BulkDeleteEvents deletes each id independently through DeleteEvent and
// records one BULK_DELETE summary entry.  A failing id does not stop the
// others.
func (s *EventService) BulkDeleteEvents(ctx context.Context, p model.Principal, ids []int64) (*BulkDeleteResult, error) {
	if len(ids) == 0 {
		return nil, invalid("ids", "at least one id is required")
	}
	res := &BulkDeleteResult{Failed: map[int64]string{}}
	for _, id := range ids {
		if err := s.DeleteEvent(ctx, p, id); err != nil {
			res.Failed[id] = err.Error()
			continue
		}
		res.Deleted = append(res.Deleted, id)
	}
	actor := model.ActorAdmin
	if p.Elevated {
		actor = model.ActorSuperAdmin
	}
	s.audit.Record(ctx, s.store, model.TableEvents, "BULK", model.AuditBulkDelete, nil, res, actor)
	if len(res.Failed) == 0 {
		res.Failed = nil
	}
	return res, nil
}

// SetEventActive pauses or resumes an instance without deleting it.  An
// elevated principal pausing another tenant's instance marks its title as
// moderated.
func (s *EventService) SetEventActive(ctx context.Context, p model.Principal, id int64, active bool) (*model.EventInstance, error) {
	ev, err := s.store.GetEvent(ctx, id)
	if err != nil {
		return nil, storeErr("set event active", err)
	}
	if !p.CanAccess(ev.TenantID) {
		return nil, ErrUnauthorized
	}
	before := *ev
	ev.Active = active
	if !active && p.Moderates(ev.TenantID) {
		ev.Title = moderationLabel(ev.Title)
	}
	if err := s.store.UpdateEvent(ctx, ev); err != nil {
		return nil, storeErr("set event active", err)
	}
	s.audit.Record(ctx, s.store, model.TableEvents, ev.ID, model.AuditUpdate, before, ev, p.ActorFor(ev.TenantID))
	s.invalidate(ctx)
	return ev, nil
}

// DeleteTicketType removes one offering.  It is refused with ErrConflict
// while live reservations point at it; those must be cancelled first so
// their stock is accounted for.
func (s *EventService) DeleteTicketType(ctx context.Context, p model.Principal, id int64) error {
	tt, err := s.store.GetTicketType(ctx, id)
	if err != nil {
		return storeErr("delete ticket type", err)
	}
	ev, err := s.store.GetEvent(ctx, tt.EventID)
	if err != nil {
		return storeErr("delete ticket type", err)
	}
	if !p.CanAccess(ev.TenantID) {
		return ErrUnauthorized
	}
	reserved, err := s.store.ReservedQuantity(ctx, tt.ID)
	if err != nil {
		return storeErr("delete ticket type", err)
	}
	if reserved > 0 {
		return fmt.Errorf("ticket type %d has %d reserved units: %w", tt.ID, reserved, ErrConflict)
	}

	if p.Moderates(ev.TenantID) {
		label := moderationLabel(tt.Name)
		if err := s.store.RenameTicketType(ctx, tt.ID, label); err != nil {
			return storeErr("moderate ticket type", err)
		}
		marked := *tt
		marked.Name = label
		s.audit.Record(ctx, s.store, model.TableTicketTypes, tt.ID, model.AuditModerationDelete, tt, marked, model.ActorSuperAdmin)
	} else {
		s.audit.Record(ctx, s.store, model.TableTicketTypes, tt.ID, model.AuditDelete, tt, nil, model.ActorAdmin)
	}
	if err := s.store.DeleteTicketType(ctx, tt.ID); err != nil {
		return storeErr("delete ticket type", err)
	}
	s.invalidate(ctx)
	return nil
}

// ResetEventStock restores every ticket type of one instance to its
// capacity minus live reservations.
func (s *EventService) ResetEventStock(ctx context.Context, p model.Principal, eventID int64) (int64, error) {
	ev, err := s.store.GetEvent(ctx, eventID)
	if err != nil {
		return 0, storeErr("reset stock", err)
	}
	if !p.CanAccess(ev.TenantID) {
		return 0, ErrUnauthorized
	}
	n, err := s.store.ResetEventStock(ctx, eventID)
	if err != nil {
		return 0, storeErr("reset stock", err)
	}
	if n == 0 {
		return 0, fmt.Errorf("event %d has no ticket types: %w", eventID, ErrNotFound)
	}
	s.audit.Record(ctx, s.store, model.TableTicketTypes, eventID, model.AuditResetStock,
		nil, map[string]any{"event_id": eventID, "ticket_types": n}, p.ActorFor(ev.TenantID))
	s.invalidate(ctx)
	return n, nil
}

// ResetAllStock is ResetEventStock over every instance of tenantID.
func (s *EventService) ResetAllStock(ctx context.Context, p model.Principal, tenantID string) (int64, error) {
	if !p.CanAccess(tenantID) {
		return 0, ErrUnauthorized
	}
	n, err := s.store.ResetTenantStock(ctx, tenantID)
	if err != nil {
		return 0, storeErr("reset all stock", err)
	}
	s.audit.Record(ctx, s.store, model.TableTicketTypes, "BULK_RESET", model.AuditResetAllStock,
		nil, map[string]any{"tenant_id": tenantID, "ticket_types": n}, p.ActorFor(tenantID))
	s.invalidate(ctx)
	return n, nil
}

// Dashboard is the tenant's administrative overview.
type Dashboard struct {
	Tenant       *model.Tenant           `json:"tenant"`
	Events       []model.EventInstance   `json:"events"`
	Reservations []model.ReservationView `json:"reservations"`
	LowStock     []model.TicketType      `json:"stock"`
	Elevated     bool                    `json:"is_elevated"`
}

// Dashboard assembles the overview of the principal's tenant.
func (s *EventService) Dashboard(ctx context.Context, p model.Principal) (*Dashboard, error) {
	if p.TenantID == "" {
		return nil, ErrUnauthorized
	}
	t, err := s.store.GetTenant(ctx, p.TenantID)
	if err != nil && !errors.Is(err, repository.ErrNotFound) {
		return nil, storeErr("dashboard", err)
	}
	events, err := s.eventsWithTickets(ctx, p.TenantID, false)
	if err != nil {
		return nil, err
	}
	res, err := s.store.ListReservationsByTenant(ctx, p.TenantID)
	if err != nil {
		return nil, storeErr("dashboard", err)
	}
	stock, err := s.store.ListTicketTypesByTenant(ctx, p.TenantID)
	if err != nil {
		return nil, storeErr("dashboard", err)
	}
	return &Dashboard{Tenant: t, Events: events, Reservations: res, LowStock: stock, Elevated: p.Elevated}, nil
}

// Catalog is the public view of one tenant.
type Catalog struct {
	Tenant model.Tenant          `json:"tenant"`
	Events []model.EventInstance `json:"events"`
}

// PublicCatalog lists the active instances of an active tenant.  Suspended
// tenants look the same as missing ones.
func (s *EventService) PublicCatalog(ctx context.Context, tenantID string) (*Catalog, error) {
	t, err := s.store.GetTenant(ctx, tenantID)
	if err != nil {
		return nil, storeErr("public catalog", err)
	}
	if !t.Active {
		return nil, ErrNotFound
	}
	events, err := s.eventsWithTickets(ctx, tenantID, true)
	if err != nil {
		return nil, err
	}
	t.OwnerID = ""
	return &Catalog{Tenant: *t, Events: events}, nil
}

func (s *EventService) eventsWithTickets(ctx context.Context, tenantID string, activeOnly bool) ([]model.EventInstance, error) {
	events, err := s.store.ListEventsByTenant(ctx, tenantID, activeOnly)
	if err != nil {
		return nil, storeErr("list events", err)
	}
	for i := range events {
		tickets, err := s.store.ListTicketTypes(ctx, events[i].ID)
		if err != nil {
			return nil, storeErr("list ticket types", err)
		}
		sort.SliceStable(tickets, func(a, b int) bool { return tickets[a].Price < tickets[b].Price })
		events[i].Tickets = tickets
	}
	return events, nil
}

// SyncCache issues the invalidation signal on request.  Unlike the
// automatic signal after mutations, a failure here is returned.
func (s *EventService) SyncCache(ctx context.Context, p model.Principal) error {
	if p.TenantID == "" {
		return ErrUnauthorized
	}
	if err := s.cache.InvalidatePublic(ctx); err != nil {
		s.log.Error("manual cache sync failed", zap.Error(err))
		return &StoreError{Op: "sync cache", Err: err}
	}
	return nil
}
