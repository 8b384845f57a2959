package model

// Principal is the authorization context of one request.  It is computed
// from the session token and passed explicitly into every service call;
// nothing about the acting principal is kept in ambient state.
type Principal struct {
    TenantID       string // tenant the session is scoped to
    AccountID      string // login account, empty for legacy master sessions
    Elevated       bool   // cross-tenant authority
    ImpersonatedBy string // tenant id of the elevated operator that issued this session
}

// Actor labels written to the audit log.
const (
    ActorAdmin      = "Admin"
    ActorSuperAdmin = "Super Admin"
)

// CanAccess reports whether p may mutate data owned by tenantID.
func (p Principal) CanAccess(tenantID string) bool {
    return p.Elevated || (p.TenantID != "" && p.TenantID == tenantID)
}

// Moderates reports whether an action on tenantID is a moderation action:
// an elevated principal touching content it does not own.
func (p Principal) Moderates(tenantID string) bool {
    return p.Elevated && p.TenantID != tenantID
}

// ActorFor returns the audit actor label for an action on tenantID.
func (p Principal) ActorFor(tenantID string) string {
    if p.Moderates(tenantID) {
        return ActorSuperAdmin
    }
    return ActorAdmin
}
