package service

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/iliyamo/tenant-ticketing/internal/model"
	"github.com/iliyamo/tenant-ticketing/internal/repository"
)

// EventService owns the event catalog: group reconciliation, single
// instance administration, stock resets and the read views built on them.
type EventService struct {
	store   repository.Store
	tickets *TicketSynchronizer
	audit   *Recorder
	cache   Invalidator
	log     *zap.Logger
}

// NewEventService wires an EventService.  A nil cache disables invalidation.
func NewEventService(store repository.Store, tickets *TicketSynchronizer, rec *Recorder, cache Invalidator, log *zap.Logger) *EventService {
	if cache == nil {
		cache = NopInvalidator{}
	}
	return &EventService{store: store, tickets: tickets, audit: rec, cache: cache, log: log.Named("events")}
}

// EventGroupInput describes the desired state of a logical event: shared
// fields, the ordered date list (nil entries mean "no date") and the
// desired ticket offerings for every instance.
type EventGroupInput struct {
	Fields  model.EventFields
	Dates   []*time.Time
	Tickets []model.TicketSpec
}

// ReconcileResult reports the instance ids touched by one reconciliation.
type ReconcileResult struct {
	Created []int64 `json:"created"`
	Updated []int64 `json:"updated"`
	Deleted []int64 `json:"deleted"`
	Skipped []int64 `json:"skipped"`
}

func (in *EventGroupInput) normalize() error {
	in.Fields.Title = strings.TrimSpace(in.Fields.Title)
	if in.Fields.Title == "" {
		return invalid("title", "is required")
	}
	if in.Fields.ReservationFee < 0 {
		return invalid("reservation_fee", "must not be negative")
	}
	if len(in.Fields.Extra) > 0 && !json.Valid(in.Fields.Extra) {
		return invalid("extra", "must be valid JSON")
	}
	// An empty list still saves one undated instance so the logical
	// event never disappears by clearing its dates.
	if len(in.Dates) == 0 {
		in.Dates = []*time.Time{nil}
	}
	in.Dates = append([]*time.Time(nil), in.Dates...)
	for i, d := range in.Dates {
		if d != nil {
			u := d.UTC()
			in.Dates[i] = &u
		}
	}
	return validateTicketSpecs(in.Tickets)
}

// distinctDates drops repeated dates, keeping first occurrences in order.
func distinctDates(dates []*time.Time) []*time.Time {
	out := make([]*time.Time, 0, len(dates))
	for _, d := range dates {
		dup := false
		for _, seen := range out {
			if model.SameDate(seen, d) {
				dup = true
				break
			}
		}
		if !dup {
			out = append(out, d)
		}
	}
	return out
}

// CreateEventGroup publishes a logical event for tenantID: one instance per
// distinct date.  A date that already has an instance with the same title
// is skipped, so publishing twice is harmless.
func (s *EventService) CreateEventGroup(ctx context.Context, p model.Principal, tenantID string, in EventGroupInput) (*ReconcileResult, error) {
	if !p.CanAccess(tenantID) {
		return nil, ErrUnauthorized
	}
	if err := in.normalize(); err != nil {
		return nil, err
	}
	if _, err := s.store.GetTenant(ctx, tenantID); err != nil {
		return nil, storeErr("create event group", err)
	}
	actor := p.ActorFor(tenantID)

	var res ReconcileResult
	err := s.store.InTx(ctx, func(tx repository.Store) error {
		res = ReconcileResult{}
		for _, date := range distinctDates(in.Dates) {
			existing, err := tx.FindEvent(ctx, tenantID, in.Fields.Title, date)
			if err == nil {
				res.Skipped = append(res.Skipped, existing.ID)
				continue
			}
			if !errors.Is(err, repository.ErrNotFound) {
				return err
			}
			ev, err := s.insertInstance(ctx, tx, tenantID, in, date, actor)
			if err != nil {
				return err
			}
			res.Created = append(res.Created, ev.ID)
		}
		return nil
	})
	if err != nil {
		return nil, storeErr("create event group", err)
	}
	s.invalidate(ctx)
	s.log.Info("event group created",
		zap.String("tenant_id", tenantID), zap.String("title", in.Fields.Title),
		zap.Int("created", len(res.Created)), zap.Int("skipped", len(res.Skipped)))
	return &res, nil
}

// UpdateEventGroup reconciles the logical event containing instanceID with
// in.  Siblings are matched to desired dates by position: position i
// updates the i-th sibling in id order, extra dates insert new instances
// and siblings beyond the list are deleted.  The whole walk runs in one
// transaction.
func (s *EventService) UpdateEventGroup(ctx context.Context, p model.Principal, instanceID int64, in EventGroupInput) (*ReconcileResult, error) {
	anchor, err := s.store.GetEvent(ctx, instanceID)
	if err != nil {
		return nil, storeErr("update event group", err)
	}
	if !p.CanAccess(anchor.TenantID) {
		return nil, ErrUnauthorized
	}
	if err := in.normalize(); err != nil {
		return nil, err
	}
	actor := p.ActorFor(anchor.TenantID)

	var res ReconcileResult
	err = s.store.InTx(ctx, func(tx repository.Store) error {
		res = ReconcileResult{}
		siblings, err := tx.ListSiblings(ctx, anchor.TenantID, anchor.Title)
		if err != nil {
			return err
		}
		for i, date := range in.Dates {
			if i >= len(siblings) {
				ev, err := s.insertInstance(ctx, tx, anchor.TenantID, in, date, actor)
				if err != nil {
					return err
				}
				res.Created = append(res.Created, ev.ID)
				continue
			}
			before := siblings[i]
			ev := before
			ev.EventFields = in.Fields
			ev.Date = date
			if err := tx.UpdateEvent(ctx, &ev); err != nil {
				return err
			}
			if _, err := s.tickets.Sync(ctx, tx, ev.ID, in.Tickets, actor); err != nil {
				return err
			}
			s.audit.Record(ctx, tx, model.TableEvents, ev.ID, model.AuditUpdate, before, ev, actor)
			res.Updated = append(res.Updated, ev.ID)
		}
		if len(siblings) > len(in.Dates) {
			for _, orphan := range siblings[len(in.Dates):] {
				s.audit.Record(ctx, tx, model.TableEvents, orphan.ID, model.AuditDelete, orphan, nil, actor)
				if err := tx.DeleteEvent(ctx, orphan.ID); err != nil {
					return err
				}
				res.Deleted = append(res.Deleted, orphan.ID)
			}
		}
		return nil
	})
	if err != nil {
		return nil, storeErr("update event group", err)
	}
	s.invalidate(ctx)
	s.log.Info("event group reconciled",
		zap.Int64("anchor_id", instanceID), zap.String("tenant_id", anchor.TenantID),
		zap.Int("created", len(res.Created)), zap.Int("updated", len(res.Updated)), zap.Int("deleted", len(res.Deleted)))
	return &res, nil
}

// insertInstance creates one active instance and syncs its ticket types.
// A failed insert aborts before any ticket type is written.
func (s *EventService) insertInstance(ctx context.Context, tx repository.Store, tenantID string,
	in EventGroupInput, date *time.Time, actor string) (*model.EventInstance, error) {
	ev := &model.EventInstance{TenantID: tenantID, Date: date, Active: true, EventFields: in.Fields}
	if err := tx.CreateEvent(ctx, ev); err != nil {
		return nil, err
	}
	if _, err := s.tickets.Sync(ctx, tx, ev.ID, in.Tickets, actor); err != nil {
		return nil, err
	}
	s.audit.Record(ctx, tx, model.TableEvents, ev.ID, model.AuditInsert, nil, ev, actor)
	return ev, nil
}

func (s *EventService) invalidate(ctx context.Context) {
	if err := s.cache.InvalidatePublic(ctx); err != nil {
		s.log.Warn("catalog invalidation failed", zap.Error(err))
	}
}
