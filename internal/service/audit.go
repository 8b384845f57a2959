package service

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/iliyamo/tenant-ticketing/internal/model"
	"github.com/iliyamo/tenant-ticketing/internal/repository"
)

// ActorStorefront labels mutations made by anonymous storefront customers.
const ActorStorefront = "Storefront"

// Recorder appends audit entries.  Writes are best effort: a failed append
// is logged and the calling operation carries on.
type Recorder struct {
	log *zap.Logger
}

// NewRecorder returns a Recorder logging failures to log.
func NewRecorder(log *zap.Logger) *Recorder {
	return &Recorder{log: log.Named("audit")}
}

// Record appends one entry through st, which may be transaction bound.
// oldData and newData are JSON encoded; nil leaves the column empty.
func (r *Recorder) Record(ctx context.Context, st repository.Audit, table string, recordID any,
	action model.AuditAction, oldData, newData any, actor string) {
	entry := &model.AuditEntry{
		Table:    table,
		RecordID: fmt.Sprint(recordID),
		Action:   action,
		OldData:  r.snapshot(oldData),
		NewData:  r.snapshot(newData),
		Actor:    actor,
	}
	if err := st.AppendAudit(ctx, entry); err != nil {
		r.log.Warn("audit append failed",
			zap.String("table", table),
			zap.String("record_id", entry.RecordID),
			zap.String("action", string(action)),
			zap.Error(err))
	}
}

func (r *Recorder) snapshot(v any) json.RawMessage {
	if v == nil {
		return nil
	}
	b, err := json.Marshal(v)
	if err != nil {
		r.log.Warn("audit snapshot encode failed", zap.Error(err))
		return nil
	}
	return b
}

// moderationLabel prefixes label with the moderation marker once.
func moderationLabel(label string) string {
	if strings.HasPrefix(label, model.ModerationMarker) {
		return label
	}
	return model.ModerationMarker + label
}
