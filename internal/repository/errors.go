package repository

import (
	"database/sql"
	"errors"
)

// ErrNoRowsAffected signals that an update or delete matched no rows,
// typically because the row is gone or a status guard failed.
var ErrNoRowsAffected = errors.New("no rows affected")

func isNoRows(err error) bool {
	return errors.Is(err, sql.ErrNoRows)
}
