package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/iliyamo/tenant-ticketing/internal/model"
	"github.com/iliyamo/tenant-ticketing/internal/repository"
)

// TicketSynchronizer reconciles desired offerings against the ticket types
// already attached to one instance.  Matching is by exact name.  Existing
// types are updated in place so reservations keep pointing at them;
// types missing from the desired list are left alone.
type TicketSynchronizer struct {
	audit *Recorder
}

// NewTicketSynchronizer returns a synchronizer auditing through rec.
func NewTicketSynchronizer(rec *Recorder) *TicketSynchronizer {
	return &TicketSynchronizer{audit: rec}
}

// SyncResult lists what one Sync call touched.
type SyncResult struct {
	Inserted []int64 `json:"inserted"`
	Updated  []int64 `json:"updated"`
}

// Sync applies specs to eventID in order.  A name repeated in specs is
// applied twice, so the later entry wins.
func (s *TicketSynchronizer) Sync(ctx context.Context, st repository.Store, eventID int64,
	specs []model.TicketSpec, actor string) (SyncResult, error) {
	var out SyncResult
	existing, err := st.ListTicketTypes(ctx, eventID)
	if err != nil {
		return out, fmt.Errorf("list ticket types: %w", err)
	}
	byName := make(map[string]*model.TicketType, len(existing))
	for i := range existing {
		byName[existing[i].Name] = &existing[i]
	}

	for _, spec := range specs {
		if tt, ok := byName[spec.Name]; ok {
			before := *tt
			tt.Price = spec.Price
			tt.Stock = spec.Stock
			if err := st.UpdateTicketType(ctx, tt); err != nil {
				return out, fmt.Errorf("update ticket type %q: %w", spec.Name, err)
			}
			s.audit.Record(ctx, st, model.TableTicketTypes, tt.ID, model.AuditUpdate, before, tt, actor)
			out.Updated = append(out.Updated, tt.ID)
			continue
		}
		tt := &model.TicketType{EventID: eventID, Name: spec.Name, Price: spec.Price, Stock: spec.Stock}
		if err := st.CreateTicketType(ctx, tt); err != nil {
			return out, fmt.Errorf("insert ticket type %q: %w", spec.Name, err)
		}
		s.audit.Record(ctx, st, model.TableTicketTypes, tt.ID, model.AuditInsert, nil, tt, actor)
		byName[tt.Name] = tt
		out.Inserted = append(out.Inserted, tt.ID)
	}
	return out, nil
}

// validateTicketSpecs rejects specs before any store call.
func validateTicketSpecs(specs []model.TicketSpec) error {
	for i, spec := range specs {
		field := fmt.Sprintf("ticket_types[%d]", i)
		if strings.TrimSpace(spec.Name) == "" {
			return invalid(field+".name", "is required")
		}
		if spec.Price < 0 {
			return invalid(field+".price", "must not be negative")
		}
		if spec.Stock < 0 {
			return invalid(field+".stock", "must not be negative")
		}
	}
	return nil
}
