package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/iliyamo/tenant-ticketing/internal/model"
)

// TenantRepo encapsulates all queries on the tenants table.
type TenantRepo struct{ q DBTX }

const tenantColumns = "id, name, logo_url, payment_profile, contact_phone, featured, active, category, owner_id, created_at"

// CreateTenant inserts t, assigning a uuid when ID is empty.  New tenants
// start active.
func (r *TenantRepo) CreateTenant(ctx context.Context, t *model.Tenant) error {
	if t.ID == "" {
		t.ID = newID()
	}
	t.Active = true
	_, err := r.q.ExecContext(ctx,
		"INSERT INTO tenants (id, name, logo_url, payment_profile, contact_phone, featured, active, category, owner_id) VALUES (?,?,?,?,?,?,?,?,?)",
		t.ID, t.Name, nullString(t.LogoURL), nullJSON(t.PaymentProfile), nullString(t.ContactPhone),
		t.Featured, t.Active, nullString(t.Category), nullString(t.OwnerID))
	if isDuplicate(err) {
		return ErrDuplicate
	}
	return err
}

// GetTenant fetches one tenant.
func (r *TenantRepo) GetTenant(ctx context.Context, id string) (*model.Tenant, error) {
	return scanTenant(r.q.QueryRowContext(ctx, "SELECT "+tenantColumns+" FROM tenants WHERE id = ?", id))
}

// GetTenantByOwner fetches the tenant owned by an account.
func (r *TenantRepo) GetTenantByOwner(ctx context.Context, accountID string) (*model.Tenant, error) {
	return scanTenant(r.q.QueryRowContext(ctx,
		"SELECT "+tenantColumns+" FROM tenants WHERE owner_id = ? ORDER BY created_at LIMIT 1", accountID))
}

// ListTenants returns featured tenants first, newest first within each group.
func (r *TenantRepo) ListTenants(ctx context.Context) ([]model.Tenant, error) {
	rows, err := r.q.QueryContext(ctx,
		"SELECT "+tenantColumns+" FROM tenants ORDER BY featured DESC, created_at DESC")
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []model.Tenant
	for rows.Next() {
		t, err := scanTenant(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *t)
	}
	return out, rows.Err()
}

// UpdateTenant overwrites every mutable column of t.
func (r *TenantRepo) UpdateTenant(ctx context.Context, t *model.Tenant) error {
	res, err := r.q.ExecContext(ctx,
		"UPDATE tenants SET name=?, logo_url=?, payment_profile=?, contact_phone=?, featured=?, active=?, category=? WHERE id=?",
		t.Name, nullString(t.LogoURL), nullJSON(t.PaymentProfile), nullString(t.ContactPhone),
		t.Featured, t.Active, nullString(t.Category), t.ID)
	if err != nil {
		return err
	}
	return affectedOrNotFound(res)
}

// DeleteTenant removes the tenant row only; callers delete dependent rows first.
func (r *TenantRepo) DeleteTenant(ctx context.Context, id string) error {
	res, err := r.q.ExecContext(ctx, "DELETE FROM tenants WHERE id = ?", id)
	if err != nil {
		return err
	}
	return affectedOrNotFound(res)
}

func scanTenant(row rowScanner) (*model.Tenant, error) {
	var (
		t                              model.Tenant
		logo, phone, category, ownerID sql.NullString
		profile                        []byte
	)
	err := row.Scan(&t.ID, &t.Name, &logo, &profile, &phone, &t.Featured, &t.Active, &category, &ownerID, &t.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	t.LogoURL = logo.String
	t.ContactPhone = phone.String
	t.Category = category.String
	t.OwnerID = ownerID.String
	if len(profile) > 0 {
		t.PaymentProfile = append([]byte(nil), profile...)
	}
	return &t, nil
}
