package repo

import (
	"errors"
	"strings"

	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"

	"effortline/internal/db"
)

// Repo runs queries against the persistence store. DB may be the pool or a
// transaction; WithTx rebinds a copy to a transaction.
type Repo struct {
	DB db.DBTX
}

var (
	ErrNotFound  = errors.New("not found")
	ErrDuplicate = errors.New("duplicate")
)

// WithTx returns a Repo bound to tx.
func (r Repo) WithTx(tx db.DBTX) Repo {
	return Repo{DB: tx}
}

func isUniqueViolation(err error) bool {
	var se *sqlite.Error
	if !errors.As(err, &se) {
		return false
	}
	switch se.Code() {
	case sqlite3.SQLITE_CONSTRAINT_UNIQUE, sqlite3.SQLITE_CONSTRAINT_PRIMARYKEY:
		return true
	}
	// without extended result codes only the primary code is set
	return se.Code()&0xff == sqlite3.SQLITE_CONSTRAINT && strings.Contains(se.Error(), "UNIQUE")
}

func nullable(v string) any {
	if v == "" {
		return nil
	}
	return v
}
