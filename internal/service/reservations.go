package service

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"sort"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v5"
	"go.uber.org/zap"

	"github.com/iliyamo/tenant-ticketing/internal/model"
	"github.com/iliyamo/tenant-ticketing/internal/repository"
)

// ReservationConfig tunes the reservation engine.
type ReservationConfig struct {
	NotifyTo        string        // recipient of booking notices
	RestoreAttempts uint          // tries of one restore-and-delete unit
	RestoreInterval time.Duration // first backoff interval between tries
	NotifyTimeout   time.Duration
}

func (c *ReservationConfig) defaults() {
	if c.RestoreAttempts == 0 {
		c.RestoreAttempts = 4
	}
	if c.RestoreInterval <= 0 {
		c.RestoreInterval = 50 * time.Millisecond
	}
	if c.NotifyTimeout <= 0 {
		c.NotifyTimeout = 5 * time.Second
	}
}

// ReservationEngine books and cancels reservations.  Stock only moves
// through the store's atomic primitives: Book checks and decrements in
// one transaction and cancellation restores and deletes in one.
type ReservationEngine struct {
	store  repository.Store
	audit  *Recorder
	notify Notifier
	cache  Invalidator
	cfg    ReservationConfig
	log    *zap.Logger
}

// NewReservationEngine wires a ReservationEngine.  notify and cache may be nil.
func NewReservationEngine(store repository.Store, rec *Recorder, notify Notifier, cache Invalidator,
	cfg ReservationConfig, log *zap.Logger) *ReservationEngine {
	cfg.defaults()
	if cache == nil {
		cache = NopInvalidator{}
	}
	return &ReservationEngine{store: store, audit: rec, notify: notify, cache: cache, cfg: cfg, log: log.Named("reservations")}
}

func validateBooking(req *model.BookingRequest) error {
	req.Customer.Name = strings.TrimSpace(req.Customer.Name)
	req.Customer.Email = strings.TrimSpace(req.Customer.Email)
	req.Customer.Phone = strings.TrimSpace(req.Customer.Phone)
	switch {
	case req.TicketTypeID <= 0:
		return invalid("ticket_type_id", "is required")
	case req.Quantity < 1:
		return invalid("quantity", "must be at least 1")
	case req.Customer.Name == "":
		return invalid("customer_name", "is required")
	case req.Customer.Email == "":
		return invalid("customer_email", "is required")
	case req.Customer.Phone == "":
		return invalid("customer_phone", "is required")
	}
	if _, err := mail.ParseAddress(req.Customer.Email); err != nil {
		return invalid("customer_email", "is not a valid address")
	}
	return nil
}

// Book reserves req.Quantity units.  ErrInsufficientStock and ErrNotFound
// come back unwrapped so callers can show "sold out".  The notice is sent
// after the reservation is committed and its failure never fails the
// booking.
func (e *ReservationEngine) Book(ctx context.Context, req model.BookingRequest) (*model.BookingReceipt, error) {
	if err := validateBooking(&req); err != nil {
		return nil, err
	}
	rec, err := e.store.Book(ctx, req)
	if err != nil {
		return nil, storeErr("book", err)
	}
	e.audit.Record(ctx, e.store, model.TableReservations, rec.ReservationID, model.AuditInsert, nil, map[string]any{
		"ticket_type_id":    req.TicketTypeID,
		"quantity":          req.Quantity,
		"customer":          req.Customer,
		"reservation_code":  rec.ReservationCode,
		"payment_reference": rec.PaymentReference,
	}, ActorStorefront)
	if err := e.cache.InvalidatePublic(ctx); err != nil {
		e.log.Warn("catalog invalidation failed", zap.Error(err))
	}
	e.sendNotice(ctx, req, rec)
	return rec, nil
}

func (e *ReservationEngine) sendNotice(ctx context.Context, req model.BookingRequest, rec *model.BookingReceipt) {
	if e.notify == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), e.cfg.NotifyTimeout)
	defer cancel()

	ticket, event := fmt.Sprintf("#%d", req.TicketTypeID), "?"
	if tt, err := e.store.GetTicketType(ctx, req.TicketTypeID); err == nil {
		ticket = tt.Name
		if ev, err := e.store.GetEvent(ctx, tt.EventID); err == nil {
			event = ev.Title
		}
	}
	subject := "New reservation " + rec.ReservationCode
	body := fmt.Sprintf("Customer: %s <%s> %s\nEvent: %s\nTicket: %s x%d\nReservation code: %s\nPayment reference: %s\n",
		req.Customer.Name, req.Customer.Email, req.Customer.Phone, event, ticket, req.Quantity,
		rec.ReservationCode, rec.PaymentReference)
	if err := e.notify.Send(ctx, e.cfg.NotifyTo, subject, body); err != nil {
		e.log.Warn("booking notice failed",
			zap.Int64("reservation_id", rec.ReservationID), zap.String("to", e.cfg.NotifyTo), zap.Error(err))
	}
}

// retry runs op until it succeeds, fails permanently or the attempts run
// out.  ErrNotFound is permanent.
func (e *ReservationEngine) retry(ctx context.Context, what string, op func() error) error {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = e.cfg.RestoreInterval
	_, err := backoff.Retry(ctx, func() (struct{}, error) {
		err := op()
		if errors.Is(err, ErrNotFound) || errors.Is(err, ErrUnauthorized) {
			return struct{}{}, backoff.Permanent(err)
		}
		return struct{}{}, err
	},
		backoff.WithBackOff(b),
		backoff.WithMaxTries(e.cfg.RestoreAttempts),
		backoff.WithNotify(func(err error, next time.Duration) {
			e.log.Warn("stock restore failed, retrying", zap.String("op", what), zap.Duration("in", next), zap.Error(err))
		}),
	)
	return err
}

// Cancel deletes a reservation and gives its units back.  Restore and
// delete commit together; a transient failure retries the whole unit with
// backoff and the cancel fails once the attempts are exhausted.  A
// concurrent cancel of the same reservation finds nothing to delete and
// rolls its restore back.
func (e *ReservationEngine) Cancel(ctx context.Context, p model.Principal, id int64) error {
	res, err := e.store.GetReservation(ctx, id)
	if err != nil {
		return storeErr("cancel reservation", err)
	}
	if !p.CanAccess(res.TenantID) {
		return ErrUnauthorized
	}
	actor := p.ActorFor(res.TenantID)

	err = e.retry(ctx, "cancel", func() error {
		return e.store.InTx(ctx, func(tx repository.Store) error {
			if err := tx.RestoreStock(ctx, res.TicketTypeID, res.Quantity); err != nil {
				return err
			}
			if err := tx.DeleteReservation(ctx, res.ID); err != nil {
				return err
			}
			e.audit.Record(ctx, tx, model.TableReservations, res.ID, model.AuditDelete, res, nil, actor)
			return nil
		})
	})
	if err != nil {
		return storeErr("cancel reservation", err)
	}
	if err := e.cache.InvalidatePublic(ctx); err != nil {
		e.log.Warn("catalog invalidation failed", zap.Error(err))
	}
	return nil
}

var errReservationSetChanged = errors.New("reservation set changed during cancel all")

// CancelAllResult summarises CancelAll.
type CancelAllResult struct {
	Reservations int           `json:"reservations"`
	Units        int           `json:"units"`
	Restored     map[int64]int `json:"restored"`
}

// CancelAll cancels every live reservation of tenantID.  Quantities are
// summed per ticket type first so each stock counter is touched once, in
// ascending id order.
func (e *ReservationEngine) CancelAll(ctx context.Context, p model.Principal, tenantID string) (*CancelAllResult, error) {
	if !p.CanAccess(tenantID) {
		return nil, ErrUnauthorized
	}
	actor := p.ActorFor(tenantID)

	var out *CancelAllResult
	err := e.retry(ctx, "cancel all", func() error {
		return e.store.InTx(ctx, func(tx repository.Store) error {
			live, err := tx.ListReservationsByTenant(ctx, tenantID)
			if err != nil {
				return err
			}
			res := &CancelAllResult{Reservations: len(live), Restored: map[int64]int{}}
			for _, r := range live {
				res.Restored[r.TicketTypeID] += r.Quantity
				res.Units += r.Quantity
			}
			ids := make([]int64, 0, len(res.Restored))
			for id := range res.Restored {
				ids = append(ids, id)
			}
			sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
			for _, id := range ids {
				if err := tx.RestoreStock(ctx, id, res.Restored[id]); err != nil {
					return err
				}
			}
			for _, r := range live {
				err := tx.DeleteReservation(ctx, r.ID)
				if errors.Is(err, ErrNotFound) {
					// cancelled concurrently; retry against a fresh listing
					return errReservationSetChanged
				}
				if err != nil {
					return err
				}
			}
			if len(live) > 0 {
				e.audit.Record(ctx, tx, model.TableReservations, 0, model.AuditDeleteAll, res, nil, actor)
			}
			out = res
			return nil
		})
	})
	if err != nil {
		return nil, storeErr("cancel all reservations", err)
	}
	if out.Reservations > 0 {
		if err := e.cache.InvalidatePublic(ctx); err != nil {
			e.log.Warn("catalog invalidation failed", zap.Error(err))
		}
	}
	return out, nil
}
