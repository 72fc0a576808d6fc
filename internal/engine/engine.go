package engine

import (
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"effortline/internal/config"
	"effortline/internal/db"
	"effortline/internal/engine/auth"
	"effortline/internal/entry"
	"effortline/internal/repo"
)

// TimestampLayout is a fixed-width RFC 3339 UTC layout. Stored timestamps
// sort lexically in time order.
const TimestampLayout = "2006-01-02T15:04:05.000000Z07:00"

type Engine struct {
	DB        *sql.DB
	Repo      repo.Repo
	UoW       db.UnitOfWork
	Config    *config.Config
	Validator *entry.Validator
	Policy    auth.Policy
	Now       func() time.Time
}

func New(conn *sql.DB, cfg *config.Config) Engine {
	return Engine{
		DB:        conn,
		Repo:      repo.Repo{DB: conn},
		UoW:       db.NewSQLiteUnitOfWork(conn),
		Config:    cfg,
		Validator: entry.NewValidator(cfg.Entry),
		Policy:    auth.NewAllowList(cfg.Admins),
		Now:       time.Now,
	}
}

func (e Engine) now() time.Time {
	if e.Now != nil {
		return e.Now()
	}
	return time.Now()
}

func (e Engine) timestamp() string {
	return e.now().UTC().Format(TimestampLayout)
}

// StoreError is a failure that crossed the persistence boundary. Nothing is
// retried; the caller may try again.
type StoreError struct {
	Op  string
	Err error
}

func (e *StoreError) Error() string {
	return fmt.Sprintf("%s: store unavailable: %v", e.Op, e.Err)
}

func (e *StoreError) Unwrap() error { return e.Err }

func storeError(op string, err error) error {
	if err == nil {
		return nil
	}
	return &StoreError{Op: op, Err: err}
}

// RangeError reports a rating value outside the closed interval [Min, Max].
type RangeError struct {
	Value int
	Min   int
	Max   int
}

func (e *RangeError) Error() string {
	return fmt.Sprintf("rating must be between %d and %d, got %d", e.Min, e.Max, e.Value)
}

var (
	// ErrAlreadyRated is returned by Rate under the reject duplicate policy.
	ErrAlreadyRated = errors.New("submission already rated by this rater")
	// ErrNotRater is returned when an admin changes a rating someone else gave.
	ErrNotRater = errors.New("rating belongs to another rater")
	// ErrBatchTooLarge is returned for a batch that cannot go out as one insert.
	ErrBatchTooLarge = fmt.Errorf("a batch may hold at most %d entries", repo.MaxInsertBatch)
	ErrNoSubmitter   = errors.New("submitter identity required")
)

var titleCase = cases.Title(language.English)

// DisplayName derives a readable analyst name from an e-mail style identity:
// "jane.doe@example.com" becomes "Jane Doe".
func DisplayName(identity string) string {
	local := strings.TrimSpace(identity)
	if at := strings.IndexByte(local, '@'); at >= 0 {
		local = local[:at]
	}
	local = strings.NewReplacer(".", " ", "_", " ", "-", " ").Replace(local)
	local = strings.Join(strings.Fields(local), " ")
	if local == "" {
		return identity
	}
	return titleCase.String(local)
}
