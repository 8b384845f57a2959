package repository

import (
	"crypto/rand"
	"strings"

	"github.com/google/uuid"
)

// codeAlphabet omits characters that are easy to misread over the phone
// (0/O, 1/I/L).
const codeAlphabet = "ABCDEFGHJKMNPQRSTUVWXYZ23456789"

const reservationCodeLen = 8

// newReservationCode returns a human-shareable reservation code.
func newReservationCode() (string, error) {
	buf := make([]byte, reservationCodeLen)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	for i, b := range buf {
		buf[i] = codeAlphabet[int(b)%len(codeAlphabet)]
	}
	return string(buf), nil
}

// newPaymentReference returns the reference a customer quotes when paying
// out of band.
func newPaymentReference() string {
	hex := strings.ReplaceAll(uuid.NewString(), "-", "")
	return "PAY-" + strings.ToUpper(hex[:10])
}

// newID returns the identifier used for tenants and accounts.
func newID() string { return uuid.NewString() }
