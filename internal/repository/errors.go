// Package repository stores venue layouts.  Sentinel errors let the
// handlers tell a missing venue from a clash with an existing one without
// looking at driver specifics.
package repository

import (
	"errors"

	"github.com/go-sql-driver/mysql"
)

// ErrConflict is returned when a venue cannot be stored because another
// venue already uses its name.  Handlers translate it into HTTP 409.
var ErrConflict = errors.New("conflict")

// mysqlDuplicateEntry is the server error number for a unique key clash.
const mysqlDuplicateEntry = 1062

// translate maps driver errors onto the package sentinels.
func translate(err error) error {
	var me *mysql.MySQLError
	if errors.As(err, &me) && me.Number == mysqlDuplicateEntry {
		return ErrConflict
	}
	return err
}
