package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/mail"
	"strings"

	"go.uber.org/zap"

	"github.com/iliyamo/tenant-ticketing/internal/model"
	"github.com/iliyamo/tenant-ticketing/internal/repository"
	"github.com/iliyamo/tenant-ticketing/internal/utils"
)

// DefaultTenantName is used when a tenant is created without a name.
const DefaultTenantName = "New tenant"

// TenantService manages the tenant lifecycle.  Creation, listing,
// featuring, suspension and deletion are elevated-only; settings and
// password changes belong to the owner.
type TenantService struct {
	store      repository.Store
	audit      *Recorder
	cache      Invalidator
	masterID   string
	bcryptCost int
	log        *zap.Logger
}

// NewTenantService wires a TenantService.
func NewTenantService(store repository.Store, rec *Recorder, cache Invalidator, masterID string, bcryptCost int, log *zap.Logger) *TenantService {
	if cache == nil {
		cache = NopInvalidator{}
	}
	return &TenantService{store: store, audit: rec, cache: cache, masterID: masterID, bcryptCost: bcryptCost, log: log.Named("tenants")}
}

// NewTenantInput is the payload of CreateTenant.
type NewTenantInput struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
	Category string `json:"category"`
}

// CreateTenant provisions a login account and a tenant owned by it.  Both
// rows commit together or not at all.
func (s *TenantService) CreateTenant(ctx context.Context, p model.Principal, in NewTenantInput) (*model.Tenant, error) {
	if !p.Elevated {
		return nil, ErrUnauthorized
	}
	in.Email = strings.ToLower(strings.TrimSpace(in.Email))
	if in.Email == "" {
		return nil, invalid("email", "is required")
	}
	if _, err := mail.ParseAddress(in.Email); err != nil {
		return nil, invalid("email", "is not a valid address")
	}
	if err := utils.CheckNewPassword(in.Password, ""); err != nil {
		return nil, invalid("password", err.Error())
	}
	if strings.TrimSpace(in.Name) == "" {
		in.Name = DefaultTenantName
	}
	hash, err := utils.HashPassword(in.Password, s.bcryptCost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	var t *model.Tenant
	err = s.store.InTx(ctx, func(tx repository.Store) error {
		acc := &model.Account{Email: in.Email, PasswordHash: hash}
		if err := tx.CreateAccount(ctx, acc); err != nil {
			if errors.Is(err, repository.ErrDuplicate) {
				return invalid("email", "is already registered")
			}
			return err
		}
		t = &model.Tenant{Name: strings.TrimSpace(in.Name), Category: strings.TrimSpace(in.Category), OwnerID: acc.ID}
		if err := tx.CreateTenant(ctx, t); err != nil {
			return err
		}
		s.audit.Record(ctx, tx, model.TableTenants, t.ID, model.AuditInsert, nil, t, model.ActorSuperAdmin)
		return nil
	})
	if err != nil {
		return nil, storeErr("create tenant", err)
	}
	s.log.Info("tenant created", zap.String("tenant_id", t.ID), zap.String("owner_email", in.Email))
	return t, nil
}

// ListTenants returns every tenant, featured first.
func (s *TenantService) ListTenants(ctx context.Context, p model.Principal) ([]model.Tenant, error) {
	if !p.Elevated {
		return nil, ErrUnauthorized
	}
	ts, err := s.store.ListTenants(ctx)
	return ts, storeErr("list tenants", err)
}

// SetFeatured toggles the featured flag.
func (s *TenantService) SetFeatured(ctx context.Context, p model.Principal, id string, featured bool) (*model.Tenant, error) {
	if !p.Elevated {
		return nil, ErrUnauthorized
	}
	return s.mutate(ctx, id, model.ActorSuperAdmin, func(t *model.Tenant) error {
		t.Featured = featured
		return nil
	})
}

// SetActive suspends or reactivates a tenant.  The master tenant cannot be
// suspended.
func (s *TenantService) SetActive(ctx context.Context, p model.Principal, id string, active bool) (*model.Tenant, error) {
	if !p.Elevated {
		return nil, ErrUnauthorized
	}
	if id == s.masterID && !active {
		return nil, fmt.Errorf("master tenant cannot be suspended: %w", ErrConflict)
	}
	return s.mutate(ctx, id, model.ActorSuperAdmin, func(t *model.Tenant) error {
		t.Active = active
		return nil
	})
}

// UpdateSettings applies the owner-editable settings.  The contact phone
// keeps digits only and the payment profile must be a JSON object.
func (s *TenantService) UpdateSettings(ctx context.Context, p model.Principal, id string, in model.TenantSettings) (*model.Tenant, error) {
	if !p.CanAccess(id) {
		return nil, ErrUnauthorized
	}
	if len(in.PaymentProfile) > 0 {
		var obj map[string]any
		if err := json.Unmarshal(in.PaymentProfile, &obj); err != nil {
			return nil, invalid("payment_profile", "must be a JSON object")
		}
	}
	if in.Name != nil && strings.TrimSpace(*in.Name) == "" {
		return nil, invalid("name", "must not be empty")
	}
	return s.mutate(ctx, id, p.ActorFor(id), func(t *model.Tenant) error {
		if in.Name != nil {
			t.Name = strings.TrimSpace(*in.Name)
		}
		if in.LogoURL != nil {
			t.LogoURL = strings.TrimSpace(*in.LogoURL)
		}
		if in.ContactPhone != nil {
			t.ContactPhone = digitsOnly(*in.ContactPhone)
		}
		if in.Category != nil {
			t.Category = strings.TrimSpace(*in.Category)
		}
		if len(in.PaymentProfile) > 0 {
			t.PaymentProfile = in.PaymentProfile
		}
		return nil
	})
}

func (s *TenantService) mutate(ctx context.Context, id, actor string, apply func(*model.Tenant) error) (*model.Tenant, error) {
	t, err := s.store.GetTenant(ctx, id)
	if err != nil {
		return nil, storeErr("update tenant", err)
	}
	before := *t
	if err := apply(t); err != nil {
		return nil, err
	}
	if err := s.store.UpdateTenant(ctx, t); err != nil {
		return nil, storeErr("update tenant", err)
	}
	s.audit.Record(ctx, s.store, model.TableTenants, t.ID, model.AuditUpdate, before, t, actor)
	s.invalidate(ctx)
	return t, nil
}

// DeleteTenant hard-deletes a tenant with everything it owns:
// reservations, ticket types, events, the tenant row and its account,
// in that order and in one transaction.
func (s *TenantService) DeleteTenant(ctx context.Context, p model.Principal, id string) error {
	if !p.Elevated {
		return ErrUnauthorized
	}
	if id == s.masterID {
		return fmt.Errorf("master tenant cannot be deleted: %w", ErrConflict)
	}
	t, err := s.store.GetTenant(ctx, id)
	if err != nil {
		return storeErr("delete tenant", err)
	}
	err = s.store.InTx(ctx, func(tx repository.Store) error {
		if _, err := tx.DeleteReservationsByTenant(ctx, id); err != nil {
			return err
		}
		if _, err := tx.DeleteTicketTypesByTenant(ctx, id); err != nil {
			return err
		}
		if _, err := tx.DeleteEventsByTenant(ctx, id); err != nil {
			return err
		}
		if err := tx.DeleteTenant(ctx, id); err != nil {
			return err
		}
		if t.OwnerID != "" {
			if err := tx.DeleteAccount(ctx, t.OwnerID); err != nil {
				return err
			}
		}
		s.audit.Record(ctx, tx, model.TableTenants, id, model.AuditDelete, t, nil, model.ActorSuperAdmin)
		return nil
	})
	if err != nil {
		return storeErr("delete tenant", err)
	}
	s.invalidate(ctx)
	s.log.Info("tenant deleted", zap.String("tenant_id", id))
	return nil
}

// ChangePassword replaces the password of the principal's own account.
// Sessions without an account (legacy or emergency) cannot use it.
func (s *TenantService) ChangePassword(ctx context.Context, p model.Principal, password, confirm string) error {
	if p.AccountID == "" {
		return ErrUnauthorized
	}
	if confirm == "" {
		return invalid("confirm_password", "is required")
	}
	if err := utils.CheckNewPassword(password, confirm); err != nil {
		return invalid("password", err.Error())
	}
	hash, err := utils.HashPassword(password, s.bcryptCost)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}
	if err := s.store.UpdateAccountPassword(ctx, p.AccountID, hash); err != nil {
		return storeErr("change password", err)
	}
	s.audit.Record(ctx, s.store, "accounts", p.AccountID, model.AuditUpdate, nil,
		map[string]string{"field": "password_hash"}, model.ActorAdmin)
	return nil
}

func (s *TenantService) invalidate(ctx context.Context) {
	if err := s.cache.InvalidatePublic(ctx); err != nil {
		s.log.Warn("catalog invalidation failed", zap.Error(err))
	}
}

func digitsOnly(s string) string {
	var b strings.Builder
	for _, r := range s {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}
