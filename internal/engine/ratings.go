package engine

import (
	"context"
	"errors"

	"github.com/google/uuid"

	"effortline/internal/config"
	"effortline/internal/db"
	"effortline/internal/domain"
	"effortline/internal/engine/auth"
	"effortline/internal/logger"
	"effortline/internal/repo"
)

// RatingState is the rating status of one submission for one rater.
// The only transitions are Unrated -> Rated (rate) and Rated -> Rated
// (update); nothing moves a submission back to Unrated.
type RatingState int

const (
	Unrated RatingState = iota
	Rated
)

func (s RatingState) String() string {
	if s == Rated {
		return "rated"
	}
	return "unrated"
}

// Transition names the write a rate call performed.
type Transition string

const (
	TransitionInsert Transition = "insert"
	TransitionUpdate Transition = "update"
)

type RateResult struct {
	Rating     domain.Rating `json:"rating"`
	From       RatingState   `json:"-"`
	Transition Transition    `json:"transition"`
}

// Partition splits submissions into unrated and rated, keeping the input
// order of both submissions and ratings. Ratings that point at an unknown
// submission are ignored. rater selects the Mine rating of each rated item.
func Partition(subs []domain.Submission, ratings []domain.Rating, rater string) domain.Partition {
	bySub := make(map[string][]domain.Rating, len(ratings))
	for _, rt := range ratings {
		bySub[rt.SubmissionID] = append(bySub[rt.SubmissionID], rt)
	}
	p := domain.Partition{Unrated: []domain.Submission{}, Rated: []domain.RatedSubmission{}}
	for _, s := range subs {
		rs := bySub[s.ID]
		if len(rs) == 0 {
			p.Unrated = append(p.Unrated, s)
			continue
		}
		item := domain.RatedSubmission{Submission: s, Ratings: rs}
		for i := range rs {
			if rs[i].RatedBy == rater {
				mine := rs[i]
				item.Mine = &mine
				break
			}
		}
		p.Rated = append(p.Rated, item)
	}
	return p
}

// Reconcile fetches fresh submissions and ratings and partitions them. Non
// admin callers get ForbiddenError before anything is read.
func (e Engine) Reconcile(ctx context.Context, rater string) (domain.Partition, error) {
	if err := e.Authorize(ctx, rater); err != nil {
		return domain.Partition{}, err
	}
	subs, err := e.Repo.ListSubmissions(ctx)
	if err != nil {
		return domain.Partition{}, storeError("list submissions", err)
	}
	ratings, err := e.Repo.ListRatings(ctx)
	if err != nil {
		return domain.Partition{}, storeError("list ratings", err)
	}
	for i := range subs {
		subs[i].AnalystName = DisplayName(subs[i].Analyst)
	}
	return Partition(subs, ratings, rater), nil
}

// ListRatings returns every rating, most recently rated first.
func (e Engine) ListRatings(ctx context.Context, rater string) ([]domain.Rating, error) {
	if err := e.Authorize(ctx, rater); err != nil {
		return nil, err
	}
	ratings, err := e.Repo.ListRatings(ctx)
	if err != nil {
		return nil, storeError("list ratings", err)
	}
	return ratings, nil
}

// Authorize returns auth.ForbiddenError unless identity may rate.
func (e Engine) Authorize(ctx context.Context, identity string) error {
	return auth.Require(ctx, e.Policy, identity)
}

func (e Engine) ratingPolicy() config.RatingPolicy {
	if e.Config == nil {
		return config.Default().Rating
	}
	return e.Config.Rating
}

// CheckRange returns RangeError unless value lies in the configured range.
func (e Engine) CheckRange(value int) error {
	p := e.ratingPolicy()
	if !p.InRange(value) {
		return &RangeError{Value: value, Min: p.Min, Max: p.Max}
	}
	return nil
}

// Rate records rater's score for a submission. An unrated submission gets a
// new rating holding a snapshot of the submission. An already rated one is
// updated in place or refused, per rating.on_duplicate. An insert that loses
// a race to a concurrent insert is retried once, which then takes the update
// path.
func (e Engine) Rate(ctx context.Context, rater, submissionID string, value int) (RateResult, error) {
	if err := e.Authorize(ctx, rater); err != nil {
		return RateResult{}, err
	}
	if err := e.CheckRange(value); err != nil {
		return RateResult{}, err
	}
	res, err := e.rateOnce(ctx, rater, submissionID, value)
	if errors.Is(err, repo.ErrDuplicate) {
		logger.C(ctx).Warn().Str("submission", submissionID).Str("rater", rater).Msg("concurrent rating insert, retrying as update")
		res, err = e.rateOnce(ctx, rater, submissionID, value)
	}
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) || errors.Is(err, ErrAlreadyRated) {
			return RateResult{}, err
		}
		return RateResult{}, storeError("rate submission", err)
	}
	logger.C(ctx).Info().Str("submission", submissionID).Str("rater", rater).Int("value", value).
		Str("transition", string(res.Transition)).Msg("submission rated")
	return res, nil
}

func (e Engine) rateOnce(ctx context.Context, rater, submissionID string, value int) (RateResult, error) {
	var res RateResult
	err := e.UoW.WithinTx(ctx, func(ctx context.Context, tx db.DBTX) error {
		r := e.Repo.WithTx(tx)
		sub, err := r.GetSubmission(ctx, submissionID)
		if err != nil {
			return err
		}
		existing, err := r.FindRatingBySubmissionAndRater(ctx, sub.ID, rater)
		state := Rated
		if errors.Is(err, repo.ErrNotFound) {
			state = Unrated
		} else if err != nil {
			return err
		}
		now := e.timestamp()
		switch state {
		case Unrated:
			rt := snapshot(sub, uuid.NewString(), rater, value, now)
			if err := r.InsertRating(ctx, rt); err != nil {
				return err
			}
			res = RateResult{Rating: rt, From: Unrated, Transition: TransitionInsert}
		case Rated:
			if e.ratingPolicy().OnDuplicate == config.DuplicateReject {
				return ErrAlreadyRated
			}
			if err := r.UpdateRatingValue(ctx, existing.ID, value, now); err != nil {
				return err
			}
			existing.Value = value
			existing.RatedAt = now
			res = RateResult{Rating: existing, From: Rated, Transition: TransitionUpdate}
		}
		return nil
	})
	return res, err
}

// snapshot copies the submission attributes a rating keeps. Later reads
// never join back to the submission for them.
func snapshot(sub domain.Submission, id, rater string, value int, ratedAt string) domain.Rating {
	return domain.Rating{
		ID:           id,
		SubmissionID: sub.ID,
		Value:        value,
		RatedBy:      rater,
		RatedAt:      ratedAt,
		Analyst:      sub.Analyst,
		DealName:     sub.DealName,
		Department:   sub.Department,
		Type:         sub.Type,
		TaskDate:     sub.TaskDate,
	}
}

// UpdateRating overwrites the value of an existing rating and refreshes its
// rated_at. The submission stays rated. Only the admin who gave the rating may
// change it; anyone else gets ErrNotRater and the row is left alone.
func (e Engine) UpdateRating(ctx context.Context, rater, ratingID string, value int) (domain.Rating, error) {
	if err := e.Authorize(ctx, rater); err != nil {
		return domain.Rating{}, err
	}
	if err := e.CheckRange(value); err != nil {
		return domain.Rating{}, err
	}
	var out domain.Rating
	err := e.UoW.WithinTx(ctx, func(ctx context.Context, tx db.DBTX) error {
		r := e.Repo.WithTx(tx)
		current, err := r.GetRating(ctx, ratingID)
		if err != nil {
			return err
		}
		if current.RatedBy != rater {
			return ErrNotRater
		}
		if err := r.UpdateRatingValue(ctx, ratingID, value, e.timestamp()); err != nil {
			return err
		}
		out, err = r.GetRating(ctx, ratingID)
		return err
	})
	if err != nil {
		if errors.Is(err, ErrNotRater) {
			logger.C(ctx).Warn().Str("rating", ratingID).Str("rater", rater).Msg("rating update by another rater refused")
		}
		if errors.Is(err, repo.ErrNotFound) || errors.Is(err, ErrNotRater) {
			return domain.Rating{}, err
		}
		return domain.Rating{}, storeError("update rating", err)
	}
	logger.C(ctx).Info().Str("rating", ratingID).Str("rater", rater).Int("value", value).Msg("rating updated")
	return out, nil
}

// GetRating returns one rating, for callers that need its submission.
func (e Engine) GetRating(ctx context.Context, rater, ratingID string) (domain.Rating, error) {
	if err := e.Authorize(ctx, rater); err != nil {
		return domain.Rating{}, err
	}
	rt, err := e.Repo.GetRating(ctx, ratingID)
	if err != nil && !errors.Is(err, repo.ErrNotFound) {
		return domain.Rating{}, storeError("get rating", err)
	}
	return rt, err
}
