package repository

import (
	"context"

	"github.com/iliyamo/tenant-ticketing/internal/model"
)

// AuditRepo appends to audit_log.  There is deliberately no update or
// delete method.
type AuditRepo struct{ q DBTX }

// AppendAudit inserts e and populates its ID.
func (r *AuditRepo) AppendAudit(ctx context.Context, e *model.AuditEntry) error {
	res, err := r.q.ExecContext(ctx,
		"INSERT INTO audit_log (table_name, record_id, action, old_data, new_data, performed_by) VALUES (?,?,?,?,?,?)",
		e.Table, e.RecordID, string(e.Action), nullJSON(e.OldData), nullJSON(e.NewData), e.Actor)
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	e.ID = id
	return nil
}

// ListAudit returns the history of one record, oldest first.
func (r *AuditRepo) ListAudit(ctx context.Context, table, recordID string) ([]model.AuditEntry, error) {
	rows, err := r.q.QueryContext(ctx,
		"SELECT id, table_name, record_id, action, old_data, new_data, performed_by, created_at FROM audit_log WHERE table_name = ? AND record_id = ? ORDER BY id",
		table, recordID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []model.AuditEntry
	for rows.Next() {
		var (
			e                model.AuditEntry
			action           string
			oldData, newData []byte
		)
		if err := rows.Scan(&e.ID, &e.Table, &e.RecordID, &action, &oldData, &newData, &e.Actor, &e.CreatedAt); err != nil {
			return nil, err
		}
		e.Action = model.AuditAction(action)
		if len(oldData) > 0 {
			e.OldData = append([]byte(nil), oldData...)
		}
		if len(newData) > 0 {
			e.NewData = append([]byte(nil), newData...)
		}
		out = append(out, e)
	}
	return out, rows.Err()
}
