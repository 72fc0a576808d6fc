package engine

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"effortline/internal/app"
	"effortline/internal/db"
	"effortline/internal/domain"
	"effortline/internal/entry"
	"effortline/internal/logger"
	"effortline/internal/repo"
)

// ViewEntry is the view a client returns to after a successful commit.
const ViewEntry = "entry"

type CommitResult struct {
	Submissions []domain.Submission `json:"submissions"`
	Count       int                 `json:"count"`
	TotalHours  float64             `json:"total_hours"`
	Message     string              `json:"message"`
	NextView    string              `json:"next_view"`
}

// Commit re-validates the batch and persists it as one ordered, all-or-nothing
// insert. Validation failures never reach the store.
func (e Engine) Commit(ctx context.Context, entries []domain.DraftEntry, submitter string) (CommitResult, error) {
	if len(entries) == 0 {
		return CommitResult{}, entry.ErrEmptyBatch
	}
	if strings.TrimSpace(submitter) == "" {
		return CommitResult{}, ErrNoSubmitter
	}
	if len(entries) > repo.MaxInsertBatch {
		return CommitResult{}, ErrBatchTooLarge
	}
	if err := entry.ValidateBatch(e.Validator, entries); err != nil {
		return CommitResult{}, err
	}

	submittedAt := e.timestamp()
	rows := make([]domain.Submission, 0, len(entries))
	var total float64
	for i, d := range entries {
		hours, ok := entry.ParseHours(d.HoursWorked)
		if !ok {
			return CommitResult{}, fmt.Errorf("entry %d: hours_worked not numeric", i)
		}
		total += hours
		rows = append(rows, domain.Submission{
			ID:          uuid.NewString(),
			Analyst:     submitter,
			DealName:    strings.TrimSpace(d.DealName),
			Department:  strings.TrimSpace(d.Department),
			Type:        strings.TrimSpace(d.Type),
			HoursWorked: hours,
			Description: strings.TrimSpace(d.Description),
			TaskDate:    strings.TrimSpace(d.TaskDate),
			SubmittedAt: submittedAt,
		})
	}

	err := e.UoW.WithinTx(ctx, func(ctx context.Context, tx db.DBTX) error {
		return e.Repo.WithTx(tx).InsertSubmissions(ctx, rows)
	})
	if err != nil {
		logger.C(ctx).Error().Err(err).Int("entries", len(rows)).Str("analyst", submitter).Msg("commit failed")
		return CommitResult{}, storeError("insert submissions", err)
	}
	logger.C(ctx).Info().Int("entries", len(rows)).Float64("hours", total).Str("analyst", submitter).Msg("batch committed")
	return CommitResult{
		Submissions: rows,
		Count:       len(rows),
		TotalHours:  total,
		Message:     commitMessage(len(rows)),
	}, nil
}

// CommitStaged commits the session's drafts and removes exactly the committed
// ones on success. Drafts added or edited while the insert runs are kept. On
// any failure the drafts stay in place so the analyst can retry.
func (e Engine) CommitStaged(ctx context.Context, sess *app.Session) (CommitResult, error) {
	release, err := sess.TryAcquire(app.KeyCommit)
	if err != nil {
		return CommitResult{}, err
	}
	defer release()

	entries, err := sess.Staging.CommitAll()
	if err != nil {
		return CommitResult{}, err
	}
	res, err := e.Commit(ctx, entries, sess.Identity)
	if err != nil {
		return CommitResult{}, err
	}
	sess.Staging.Discard(entries)
	res.NextView = ViewEntry
	return res, nil
}

// MySubmissions lists what analyst has committed, most recent first.
func (e Engine) MySubmissions(ctx context.Context, analyst string) ([]domain.Submission, error) {
	subs, err := e.Repo.ListSubmissionsByAnalyst(ctx, analyst)
	if err != nil {
		return nil, storeError("list submissions", err)
	}
	for i := range subs {
		subs[i].AnalystName = DisplayName(subs[i].Analyst)
	}
	return subs, nil
}

func commitMessage(n int) string {
	if n == 1 {
		return "1 entry submitted"
	}
	return fmt.Sprintf("%d entries submitted", n)
}
