package service

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/iliyamo/tenant-ticketing/internal/model"
	"github.com/iliyamo/tenant-ticketing/internal/repository"
	"github.com/iliyamo/tenant-ticketing/internal/utils"
)

// SessionConfig carries the secrets and identities the session service needs.
type SessionConfig struct {
	Secret          string
	TTL             time.Duration
	MasterTenantID  string
	ElevatedEmail   string // compared case-insensitively
	EmergencySecret string // empty disables the fallback login
}

// Sessions issues session tokens and resolves them into principals.
type Sessions struct {
	store repository.Store
	cfg   SessionConfig
	log   *zap.Logger
}

// NewSessions returns a session service.
func NewSessions(store repository.Store, cfg SessionConfig, log *zap.Logger) *Sessions {
	cfg.ElevatedEmail = strings.ToLower(strings.TrimSpace(cfg.ElevatedEmail))
	return &Sessions{store: store, cfg: cfg, log: log.Named("session")}
}

// MasterTenantID returns the reserved master tenant id.
func (s *Sessions) MasterTenantID() string { return s.cfg.MasterTenantID }

// Resolve turns a session token into a principal.  A missing or invalid
// token, an unknown tenant or a suspended tenant other than the master all
// yield ErrUnauthorized.
func (s *Sessions) Resolve(ctx context.Context, token string) (model.Principal, error) {
	if token == "" {
		return model.Principal{}, ErrUnauthorized
	}
	claims, err := utils.ParseSessionToken(s.cfg.Secret, token)
	if err != nil {
		return model.Principal{}, ErrUnauthorized
	}

	tenantID := claims.TenantID
	if tenantID == utils.LegacyMasterSentinel {
		tenantID = s.cfg.MasterTenantID
	}
	p := model.Principal{TenantID: tenantID, AccountID: claims.AccountID, ImpersonatedBy: claims.ImpersonatedBy}

	if tenantID != s.cfg.MasterTenantID {
		t, err := s.store.GetTenant(ctx, tenantID)
		if errors.Is(err, repository.ErrNotFound) {
			return model.Principal{}, ErrUnauthorized
		}
		if err != nil {
			return model.Principal{}, storeErr("resolve tenant", err)
		}
		if !t.Active {
			return model.Principal{}, ErrUnauthorized
		}
	}

	elevated, err := s.isElevated(ctx, tenantID, claims.AccountID)
	if err != nil {
		return model.Principal{}, err
	}
	p.Elevated = elevated
	return p, nil
}

// isElevated is true for the master tenant and for the configured operator
// account.  Impersonated sessions never carry an account id, so they are
// only elevated when they point at the master tenant.
func (s *Sessions) isElevated(ctx context.Context, tenantID, accountID string) (bool, error) {
	if tenantID == s.cfg.MasterTenantID {
		return true, nil
	}
	if accountID == "" || s.cfg.ElevatedEmail == "" {
		return false, nil
	}
	acc, err := s.store.GetAccount(ctx, accountID)
	if errors.Is(err, repository.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, storeErr("resolve account", err)
	}
	return strings.EqualFold(acc.Email, s.cfg.ElevatedEmail), nil
}

// Login verifies credentials and opens a session for the tenant owned by
// the account.  The operator account may own no tenant, in which case it
// is scoped to the master tenant.  The emergency secret is tried only
// after normal verification failed, including when the store is down.
func (s *Sessions) Login(ctx context.Context, email, password string) (utils.Session, model.Principal, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" {
		return utils.Session{}, model.Principal{}, invalid("email", "is required")
	}
	if password == "" {
		return utils.Session{}, model.Principal{}, invalid("password", "is required")
	}

	claims, err := s.verify(ctx, email, password)
	if err == nil {
		sess, err := s.issue(claims)
		if err != nil {
			return utils.Session{}, model.Principal{}, err
		}
		p, err := s.Resolve(ctx, sess.Token)
		return sess, p, err
	}
	if !errors.Is(err, ErrUnauthorized) {
		s.log.Error("credential verification failed", zap.String("email", email), zap.Error(err))
	}

	if s.emergencyMatch(password) {
		s.log.Warn("emergency secret used to open a master session", zap.String("email", email))
		sess, err := s.issue(utils.SessionClaims{TenantID: s.cfg.MasterTenantID})
		if err != nil {
			return utils.Session{}, model.Principal{}, err
		}
		return sess, model.Principal{TenantID: s.cfg.MasterTenantID, Elevated: true}, nil
	}
	return utils.Session{}, model.Principal{}, ErrUnauthorized
}

func (s *Sessions) verify(ctx context.Context, email, password string) (utils.SessionClaims, error) {
	acc, err := s.store.GetAccountByEmail(ctx, email)
	if errors.Is(err, repository.ErrNotFound) {
		return utils.SessionClaims{}, ErrUnauthorized
	}
	if err != nil {
		return utils.SessionClaims{}, storeErr("lookup account", err)
	}
	if !utils.VerifyPassword(acc.PasswordHash, password) {
		return utils.SessionClaims{}, ErrUnauthorized
	}

	t, err := s.store.GetTenantByOwner(ctx, acc.ID)
	switch {
	case errors.Is(err, repository.ErrNotFound):
		if s.cfg.ElevatedEmail != "" && strings.EqualFold(acc.Email, s.cfg.ElevatedEmail) {
			return utils.SessionClaims{TenantID: s.cfg.MasterTenantID, AccountID: acc.ID}, nil
		}
		return utils.SessionClaims{}, ErrUnauthorized
	case err != nil:
		return utils.SessionClaims{}, storeErr("lookup tenant", err)
	}
	if !t.Active && t.ID != s.cfg.MasterTenantID {
		return utils.SessionClaims{}, ErrUnauthorized
	}
	return utils.SessionClaims{TenantID: t.ID, AccountID: acc.ID}, nil
}

func (s *Sessions) emergencyMatch(password string) bool {
	if s.cfg.EmergencySecret == "" {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(password), []byte(s.cfg.EmergencySecret)) == 1
}

// Impersonate reissues an elevated principal's session scoped to target.
// The new session drops the account id and records the impersonator, so it
// is tenant-scoped and not elevated.
func (s *Sessions) Impersonate(ctx context.Context, p model.Principal, target string) (utils.Session, error) {
	if !p.Elevated {
		return utils.Session{}, ErrUnauthorized
	}
	if strings.TrimSpace(target) == "" {
		return utils.Session{}, invalid("tenant_id", "is required")
	}
	if _, err := s.store.GetTenant(ctx, target); err != nil {
		return utils.Session{}, storeErr("impersonate", err)
	}
	s.log.Info("impersonation", zap.String("operator_tenant", p.TenantID), zap.String("target_tenant", target))
	return s.issue(utils.SessionClaims{TenantID: target, ImpersonatedBy: p.TenantID})
}

func (s *Sessions) issue(claims utils.SessionClaims) (utils.Session, error) {
	sess, err := utils.NewSessionToken(s.cfg.Secret, claims, s.cfg.TTL)
	if err != nil {
		return utils.Session{}, fmt.Errorf("sign session: %w", err)
	}
	return sess, nil
}
