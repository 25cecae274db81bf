// Package repository defines error types that are reused across multiple
// repositories. These sentinel values allow the service layer to
// distinguish a missing row or a unique-key collision from an unexpected
// database failure without inspecting driver-specific errors itself.
package repository

import (
	"errors"
	"strings"

	"github.com/go-sql-driver/mysql"
)

// ErrConcertNotFound indicates that no concert has the requested ID.
var ErrConcertNotFound = errors.New("concert not found")

// ErrUserNotFound indicates that no user matches the lookup key.
var ErrUserNotFound = errors.New("user not found")

// ErrDuplicate is returned when an insert violates a unique key, such as
// registering a username or email that is already taken.
var ErrDuplicate = errors.New("duplicate key")

// isDuplicate reports whether err is a unique-constraint violation on
// either supported driver.
func isDuplicate(err error) bool {
	if err == nil {
		return false
	}
	var myErr *mysql.MySQLError
	if errors.As(err, &myErr) {
		return myErr.Number == 1062
	}
	return strings.Contains(err.Error(), "UNIQUE constraint failed")
}
