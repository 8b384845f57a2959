package utils // package utils provides helpers for session tokens and password hashing

import (
    "errors" // sentinel errors for token validation
    "time"   // expiry computation

    "github.com/golang-jwt/jwt/v5" // JWT library for signing and parsing sessions
)

// LegacyMasterSentinel is the tenant claim older sessions carry instead of a
// tenant id.  It always resolves to the master tenant.
const LegacyMasterSentinel = "true"

// ErrInvalidSession is returned for any token that fails signature,
// expiry or claim checks.
var ErrInvalidSession = errors.New("invalid session token")

// SessionClaims is the payload of a session token.  TenantID is the tenant
// the session is scoped to (or the legacy sentinel).  AccountID is the
// login account, absent for sessions opened with the emergency secret.
// ImpersonatedBy records the elevated tenant that reissued the session.
type SessionClaims struct {
    TenantID       string `json:"tid"`
    AccountID      string `json:"uid,omitempty"`
    ImpersonatedBy string `json:"imp,omitempty"`
    jwt.RegisteredClaims
}

// Session is a signed token together with its expiry so handlers can set
// the cookie lifetime.
type Session struct {
    Token string    // the serialized JWT string
    Exp   time.Time // the UTC expiration time
}

// NewSessionToken builds and signs an HS256 session for the given claims.
// Expiry and issued-at are set here from ttl.
func NewSessionToken(secret string, claims SessionClaims, ttl time.Duration) (Session, error) {
    now := time.Now().UTC()
    exp := now.Add(ttl)
    claims.IssuedAt = jwt.NewNumericDate(now)
    claims.ExpiresAt = jwt.NewNumericDate(exp)
    t := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
    signed, err := t.SignedString([]byte(secret))
    if err != nil {
        return Session{}, err
    }
    return Session{Token: signed, Exp: exp}, nil
}

// ParseSessionToken verifies raw with secret and returns its claims.  Only
// HMAC signatures are accepted and a tenant claim is mandatory.
func ParseSessionToken(secret, raw string) (*SessionClaims, error) {
    claims := &SessionClaims{}
    tok, err := jwt.ParseWithClaims(raw, claims, func(t *jwt.Token) (interface{}, error) {
        if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
            return nil, ErrInvalidSession
        }
        return []byte(secret), nil
    }, jwt.WithExpirationRequired())
    if err != nil || !tok.Valid {
        return nil, ErrInvalidSession
    }
    if claims.TenantID == "" {
        return nil, ErrInvalidSession
    }
    return claims, nil
}
