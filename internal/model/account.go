package model

import "time"

// Account is a login credential as stored in the `accounts` table.  A
// tenant references the account that owns it.
type Account struct {
    ID           string    // accounts.id (uuid)
    Email        string    // accounts.email, unique
    PasswordHash string    // accounts.password_hash (bcrypt)
    CreatedAt    time.Time // accounts.created_at
}
