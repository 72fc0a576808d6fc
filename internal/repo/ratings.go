package repo

import (
	"context"
	"database/sql"
	"fmt"

	"effortline/internal/domain"
)

const ratingColumns = `id,submission_id,value,rated_by,rated_at,analyst,deal_name,department,type,task_date`

func scanRating(scan func(dest ...any) error) (domain.Rating, error) {
	var rt domain.Rating
	err := scan(&rt.ID, &rt.SubmissionID, &rt.Value, &rt.RatedBy, &rt.RatedAt, &rt.Analyst, &rt.DealName, &rt.Department, &rt.Type, &rt.TaskDate)
	return rt, err
}

// InsertRating writes one rating. A second rating by the same rater for the
// same submission fails with ErrDuplicate.
func (r Repo) InsertRating(ctx context.Context, rt domain.Rating) error {
	_, err := r.DB.ExecContext(ctx, `INSERT INTO ratings(`+ratingColumns+`) VALUES (?,?,?,?,?,?,?,?,?,?)`,
		rt.ID, rt.SubmissionID, rt.Value, rt.RatedBy, rt.RatedAt, rt.Analyst, rt.DealName, rt.Department, rt.Type, rt.TaskDate)
	if err != nil && isUniqueViolation(err) {
		return fmt.Errorf("insert rating: %w", ErrDuplicate)
	}
	return err
}

// UpdateRatingValue overwrites value and rated_at. submission_id never changes.
func (r Repo) UpdateRatingValue(ctx context.Context, id string, value int, ratedAt string) error {
	res, err := r.DB.ExecContext(ctx, `UPDATE ratings SET value=?, rated_at=? WHERE id=?`, value, ratedAt, id)
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}

func (r Repo) GetRating(ctx context.Context, id string) (domain.Rating, error) {
	rt, err := scanRating(r.DB.QueryRowContext(ctx, `SELECT `+ratingColumns+` FROM ratings WHERE id=?`, id).Scan)
	if err == sql.ErrNoRows {
		return domain.Rating{}, ErrNotFound
	}
	return rt, err
}

// FindRatingBySubmissionAndRater returns the rater's rating for a submission.
func (r Repo) FindRatingBySubmissionAndRater(ctx context.Context, submissionID, rater string) (domain.Rating, error) {
	rt, err := scanRating(r.DB.QueryRowContext(ctx, `SELECT `+ratingColumns+` FROM ratings WHERE submission_id=? AND rated_by=?`, submissionID, rater).Scan)
	if err == sql.ErrNoRows {
		return domain.Rating{}, ErrNotFound
	}
	return rt, err
}

// ListRatings returns every rating, most recently rated first.
func (r Repo) ListRatings(ctx context.Context) ([]domain.Rating, error) {
	rows, err := r.DB.QueryContext(ctx, `SELECT `+ratingColumns+` FROM ratings ORDER BY rated_at DESC, rowid DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	res := []domain.Rating{}
	for rows.Next() {
		rt, err := scanRating(rows.Scan)
		if err != nil {
			return nil, err
		}
		res = append(res, rt)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return res, nil
}

// CountRatings returns how many ratings exist for a submission.
func (r Repo) CountRatings(ctx context.Context, submissionID string) (int, error) {
	var n int
	err := r.DB.QueryRowContext(ctx, `SELECT COUNT(*) FROM ratings WHERE submission_id=?`, submissionID).Scan(&n)
	return n, err
}
