package model

import (
    "encoding/json"
    "time"
)

// Tenant is an independently operated business publishing events.
type Tenant struct {
    ID             string          `json:"id"`
    Name           string          `json:"name"`
    LogoURL        string          `json:"logo_url,omitempty"`
    PaymentProfile json.RawMessage `json:"payment_profile,omitempty"` // free-form, country specific
    ContactPhone   string          `json:"contact_phone,omitempty"`   // digits only
    Featured       bool            `json:"featured"`
    Active         bool            `json:"active"`
    Category       string          `json:"category,omitempty"`
    OwnerID        string          `json:"owner_id,omitempty"`
    CreatedAt      time.Time       `json:"created_at"`
}

// TenantSettings are the owner-editable parts of a tenant.  Nil fields are
// left unchanged.
type TenantSettings struct {
    Name           *string         `json:"name,omitempty"`
    LogoURL        *string         `json:"logo_url,omitempty"`
    ContactPhone   *string         `json:"contact_phone,omitempty"`
    PaymentProfile json.RawMessage `json:"payment_profile,omitempty"`
    Category       *string         `json:"category,omitempty"`
}
