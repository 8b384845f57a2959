// Package repository is the MySQL adapter of the ticketing store.  The
// sentinel errors below let services and handlers distinguish failure
// scenarios without inspecting driver messages: ErrNotFound for missing
// rows, ErrInsufficientStock from the book primitive, ErrConflict when
// dependent records block a mutation and ErrDuplicate for unique key
// violations.
package repository

import (
	"errors"

	"github.com/go-sql-driver/mysql"
)

// ErrNotFound is returned when the referenced row does not exist.
var ErrNotFound = errors.New("not found")

// ErrInsufficientStock is returned by Book when the ticket type has fewer
// units left than requested.  Nothing is written in that case.
var ErrInsufficientStock = errors.New("insufficient stock")

// ErrConflict is returned when a delete or update cannot be performed
// because of dependent state, such as live reservations on a ticket type.
var ErrConflict = errors.New("conflict")

// ErrDuplicate is returned when an insert hits a unique key.
var ErrDuplicate = errors.New("duplicate")

// mysqlDuplicateEntry is ER_DUP_ENTRY.
const mysqlDuplicateEntry = 1062

func isDuplicate(err error) bool {
	var me *mysql.MySQLError
	return errors.As(err, &me) && me.Number == mysqlDuplicateEntry
}
