package repository

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"github.com/iliyamo/tenant-ticketing/internal/model"
)

// AccountRepo stores login accounts.  Emails are normalised to lower case
// on the way in and on lookup.
type AccountRepo struct{ q DBTX }

// CreateAccount inserts a, assigning a uuid when ID is empty.  A taken email
// yields ErrDuplicate.
func (r *AccountRepo) CreateAccount(ctx context.Context, a *model.Account) error {
	if a.ID == "" {
		a.ID = newID()
	}
	a.Email = strings.ToLower(strings.TrimSpace(a.Email))
	_, err := r.q.ExecContext(ctx,
		"INSERT INTO accounts (id, email, password_hash) VALUES (?,?,?)",
		a.ID, a.Email, a.PasswordHash)
	if isDuplicate(err) {
		return ErrDuplicate
	}
	return err
}

// GetAccount fetches an account by id.
func (r *AccountRepo) GetAccount(ctx context.Context, id string) (*model.Account, error) {
	return r.scan(r.q.QueryRowContext(ctx,
		"SELECT id,email,password_hash,created_at FROM accounts WHERE id=? LIMIT 1", id))
}

// GetAccountByEmail fetches an account by normalized email.
func (r *AccountRepo) GetAccountByEmail(ctx context.Context, email string) (*model.Account, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	return r.scan(r.q.QueryRowContext(ctx,
		"SELECT id,email,password_hash,created_at FROM accounts WHERE email=? LIMIT 1", email))
}

func (r *AccountRepo) scan(row *sql.Row) (*model.Account, error) {
	var a model.Account
	if err := row.Scan(&a.ID, &a.Email, &a.PasswordHash, &a.CreatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &a, nil
}

// UpdateAccountPassword replaces the stored hash.
func (r *AccountRepo) UpdateAccountPassword(ctx context.Context, id, hash string) error {
	res, err := r.q.ExecContext(ctx, "UPDATE accounts SET password_hash=? WHERE id=?", hash, id)
	if err != nil {
		return err
	}
	return affectedOrNotFound(res)
}

// DeleteAccount removes an account. Missing rows are not an error because
// tenants created before accounts existed have no owner.
func (r *AccountRepo) DeleteAccount(ctx context.Context, id string) error {
	_, err := r.q.ExecContext(ctx, "DELETE FROM accounts WHERE id=?", id)
	return err
}
