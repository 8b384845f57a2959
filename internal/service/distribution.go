package service

import (
	"context"
	"errors"
	"strings"

	"go.uber.org/zap"

	"github.com/iliyamo/tenant-ticketing/internal/model"
	"github.com/iliyamo/tenant-ticketing/internal/repository"
)

// Distributor copies one tenant's event into other tenants' catalogs.
type Distributor struct {
	store repository.Store
	audit *Recorder
	cache Invalidator
	log   *zap.Logger
}

// NewDistributor wires a Distributor.  A nil cache disables invalidation.
func NewDistributor(store repository.Store, rec *Recorder, cache Invalidator, log *zap.Logger) *Distributor {
	if cache == nil {
		cache = NopInvalidator{}
	}
	return &Distributor{store: store, audit: rec, cache: cache, log: log.Named("distribution")}
}

// DistributedCopy is one successful clone.
type DistributedCopy struct {
	TenantID string `json:"tenant_id"`
	EventID  int64  `json:"event_id"`
}

// DistributionFailure is one target that could not be served.
type DistributionFailure struct {
	TenantID string `json:"tenant_id"`
	Error    string `json:"error"`
}

// DistributionResult partitions the targets of one distribution.
type DistributionResult struct {
	Succeeded []DistributedCopy     `json:"succeeded"`
	Skipped   []string              `json:"skipped"`
	Failed    []DistributionFailure `json:"failed"`
}

var errDuplicateInstance = errors.New("instance already exists")

// Distribute clones sourceID with its ticket types into every target.  A
// target that already has an instance with the same title and date is
// skipped.  Each target is its own transaction; a failure is recorded and
// the remaining targets still run.
func (d *Distributor) Distribute(ctx context.Context, p model.Principal, sourceID int64, targets []string) (*DistributionResult, error) {
	if !p.Elevated {
		return nil, ErrUnauthorized
	}
	targets = uniqueTargets(targets)
	if len(targets) == 0 {
		return nil, invalid("target_tenant_ids", "at least one target is required")
	}
	src, err := d.store.GetEvent(ctx, sourceID)
	if err != nil {
		return nil, storeErr("distribute", err)
	}
	tickets, err := d.store.ListTicketTypes(ctx, sourceID)
	if err != nil {
		return nil, storeErr("distribute", err)
	}

	res := &DistributionResult{Succeeded: []DistributedCopy{}, Skipped: []string{}, Failed: []DistributionFailure{}}
	for _, target := range targets {
		id, err := d.cloneInto(ctx, src, tickets, target)
		switch {
		case err == nil:
			res.Succeeded = append(res.Succeeded, DistributedCopy{TenantID: target, EventID: id})
		case errors.Is(err, errDuplicateInstance):
			res.Skipped = append(res.Skipped, target)
		default:
			d.log.Warn("distribution target failed",
				zap.Int64("source_id", sourceID), zap.String("target", target), zap.Error(err))
			res.Failed = append(res.Failed, DistributionFailure{TenantID: target, Error: err.Error()})
		}
	}
	if len(res.Succeeded) > 0 {
		if err := d.cache.InvalidatePublic(ctx); err != nil {
			d.log.Warn("catalog invalidation failed", zap.Error(err))
		}
	}
	return res, nil
}

func (d *Distributor) cloneInto(ctx context.Context, src *model.EventInstance, tickets []model.TicketType, target string) (int64, error) {
	var id int64
	err := d.store.InTx(ctx, func(tx repository.Store) error {
		if _, err := tx.GetTenant(ctx, target); err != nil {
			return err
		}
		_, err := tx.FindEvent(ctx, target, src.Title, src.Date)
		if err == nil {
			return errDuplicateInstance
		}
		if !errors.Is(err, repository.ErrNotFound) {
			return err
		}
		clone := &model.EventInstance{TenantID: target, Date: src.Date, Active: src.Active, EventFields: src.EventFields}
		if err := tx.CreateEvent(ctx, clone); err != nil {
			return err
		}
		for _, t := range tickets {
			tt := &model.TicketType{EventID: clone.ID, Name: t.Name, Price: t.Price, Stock: t.Stock}
			if err := tx.CreateTicketType(ctx, tt); err != nil {
				return err
			}
		}
		d.audit.Record(ctx, tx, model.TableEvents, clone.ID, model.AuditDistribute, nil, map[string]any{
			"source_event_id":  src.ID,
			"source_tenant_id": src.TenantID,
			"target_tenant_id": target,
			"title":            clone.Title,
			"date":             clone.Date,
			"ticket_types":     len(tickets),
		}, model.ActorSuperAdmin)
		id = clone.ID
		return nil
	})
	return id, err
}

func uniqueTargets(in []string) []string {
	seen := make(map[string]bool, len(in))
	out := make([]string, 0, len(in))
	for _, t := range in {
		t = strings.TrimSpace(t)
		if t == "" || seen[t] {
			continue
		}
		seen[t] = true
		out = append(out, t)
	}
	return out
}
