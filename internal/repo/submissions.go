package repo

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"effortline/internal/domain"
)

// MaxInsertBatch bounds one bulk insert so it stays under SQLite's bound
// parameter limit.
const MaxInsertBatch = 1000

const submissionColumns = `id,analyst,deal_name,department,type,hours_worked,description,task_date,submitted_at`

// InsertSubmissions writes all rows with a single INSERT statement, in order.
func (r Repo) InsertSubmissions(ctx context.Context, rows []domain.Submission) error {
	if len(rows) == 0 {
		return errors.New("no submissions to insert")
	}
	if len(rows) > MaxInsertBatch {
		return fmt.Errorf("batch of %d submissions exceeds limit %d", len(rows), MaxInsertBatch)
	}
	placeholders := make([]string, 0, len(rows))
	args := make([]any, 0, len(rows)*9)
	for _, s := range rows {
		placeholders = append(placeholders, "(?,?,?,?,?,?,?,?,?)")
		args = append(args, s.ID, s.Analyst, s.DealName, s.Department, s.Type, s.HoursWorked, s.Description, s.TaskDate, s.SubmittedAt)
	}
	query := `INSERT INTO submissions(` + submissionColumns + `) VALUES ` + strings.Join(placeholders, ",")
	if _, err := r.DB.ExecContext(ctx, query, args...); err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("insert submissions: %w", ErrDuplicate)
		}
		return err
	}
	return nil
}

func (r Repo) GetSubmission(ctx context.Context, id string) (domain.Submission, error) {
	row := r.DB.QueryRowContext(ctx, `SELECT `+submissionColumns+` FROM submissions WHERE id=?`, id)
	var s domain.Submission
	err := row.Scan(&s.ID, &s.Analyst, &s.DealName, &s.Department, &s.Type, &s.HoursWorked, &s.Description, &s.TaskDate, &s.SubmittedAt)
	if err == sql.ErrNoRows {
		return domain.Submission{}, ErrNotFound
	}
	return s, err
}

// ListSubmissions returns every submission, most recent first.
func (r Repo) ListSubmissions(ctx context.Context) ([]domain.Submission, error) {
	return r.listSubmissions(ctx, `SELECT `+submissionColumns+` FROM submissions ORDER BY submitted_at DESC, rowid DESC`)
}

// ListSubmissionsByAnalyst returns one analyst's submissions, most recent first.
func (r Repo) ListSubmissionsByAnalyst(ctx context.Context, analyst string) ([]domain.Submission, error) {
	return r.listSubmissions(ctx, `SELECT `+submissionColumns+` FROM submissions WHERE analyst=? ORDER BY submitted_at DESC, rowid DESC`, analyst)
}

func (r Repo) listSubmissions(ctx context.Context, query string, args ...any) ([]domain.Submission, error) {
	rows, err := r.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	res := []domain.Submission{}
	for rows.Next() {
		var s domain.Submission
		if err := rows.Scan(&s.ID, &s.Analyst, &s.DealName, &s.Department, &s.Type, &s.HoursWorked, &s.Description, &s.TaskDate, &s.SubmittedAt); err != nil {
			return nil, err
		}
		res = append(res, s)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return res, nil
}
