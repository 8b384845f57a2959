package model

import (
    "encoding/json"
    "time"
)

// AuditAction enumerates the kinds of mutation recorded in the audit log.
type AuditAction string

const (
    AuditInsert           AuditAction = "INSERT"
    AuditUpdate           AuditAction = "UPDATE"
    AuditDelete           AuditAction = "DELETE"
    AuditDeleteAll        AuditAction = "DELETE_ALL"
    AuditResetStock       AuditAction = "RESET_STOCK"
    AuditResetAllStock    AuditAction = "RESET_ALL_STOCK"
    AuditDistribute       AuditAction = "DISTRIBUTE"
    AuditBulkDelete       AuditAction = "BULK_DELETE"
    AuditModerationDelete AuditAction = "MODERATION_DELETE"
)

// Audited table names.
const (
    TableTenants      = "tenants"
    TableEvents       = "event_instances"
    TableTicketTypes  = "ticket_types"
    TableReservations = "reservations"
)

// ModerationMarker prefixes the label of content removed by moderation.
const ModerationMarker = "[Removed by moderation] "

// AuditEntry is one append-only row of the audit log.
type AuditEntry struct {
    ID        int64           `json:"id"`
    Table     string          `json:"table_name"`
    RecordID  string          `json:"record_id"`
    Action    AuditAction     `json:"action"`
    OldData   json.RawMessage `json:"old_data,omitempty"`
    NewData   json.RawMessage `json:"new_data,omitempty"`
    Actor     string          `json:"performed_by"`
    CreatedAt time.Time       `json:"created_at"`
}
