package predictions

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"slices"
	"sort"
	"strings"

	"github.com/google/uuid"

	"github.com/promo-vote/predictions-api/internal/domain"
	"github.com/promo-vote/predictions-api/internal/platform/submitlock"
	clockport "github.com/promo-vote/predictions-api/internal/ports/out/clock"
	"github.com/promo-vote/predictions-api/internal/ports/out/predictionrepo"
	"github.com/promo-vote/predictions-api/internal/ports/out/profilerepo"
)

type Service struct {
	repo     predictionrepo.Repository
	profiles profilerepo.Repository
	settings Settings
	clk      clockport.Clock

	newPredictionID func() domain.PredictionID

	submitting submitlock.Group
	resetting  submitlock.Lock
}

func NewService(repo predictionrepo.Repository, profiles profilerepo.Repository, settings Settings, clk clockport.Clock) *Service {
	return &Service{
		repo:     repo,
		profiles: profiles,
		settings: settings,
		clk:      clk,
		newPredictionID: func() domain.PredictionID {
			return domain.PredictionID(uuid.NewString())
		},
	}
}

// Submit records the caller's prediction for a peer. Predictions are immutable; a voter
// gets exactly one per target. Concurrent submissions by the same voter fail with
// submitlock.ErrInProgress.
func (s *Service) Submit(ctx context.Context, subject domain.SubjectID, in SubmitInput) (domain.Prediction, error) {
	return submitlock.DoKey(ctx, &s.submitting, string(subject), func(ctx context.Context) (domain.Prediction, error) {
		return s.submit(ctx, subject, in)
	})
}

func (s *Service) submit(ctx context.Context, subject domain.SubjectID, in SubmitInput) (domain.Prediction, error) {
	flags, err := s.settings.Flags(ctx)
	if err != nil {
		return domain.Prediction{}, err
	}
	if !flags.VotingEnabled {
		return domain.Prediction{}, &Error{
			Status:  403,
			Code:    "VOTING_DISABLED",
			Message: "voting is currently closed",
		}
	}

	voter, err := s.activeProfile(ctx, subject)
	if err != nil {
		return domain.Prediction{}, err
	}
	if in.TargetID == voter.ID {
		return domain.Prediction{}, &Error{
			Status:  422,
			Code:    "SELF_VOTE",
			Message: "you cannot vote for yourself",
		}
	}
	target, err := s.profiles.GetByID(ctx, in.TargetID)
	if err != nil || !target.Active {
		if err == nil || errors.Is(err, profilerepo.ErrNotFound) {
			return domain.Prediction{}, &Error{
				Status:  404,
				Code:    "TARGET_NOT_FOUND",
				Message: "target student not found",
			}
		}
		return domain.Prediction{}, err
	}

	validated, retakes := in.Validated, in.Retakes
	var votes map[string]domain.Verdict
	if len(in.Votes) > 0 {
		modules, err := s.settings.Modules(ctx)
		if err != nil {
			return domain.Prediction{}, err
		}
		votes, validated, retakes, err = tallyVotes(in.Votes, modules)
		if err != nil {
			return domain.Prediction{}, err
		}
	}
	if err := validateCount("validated", validated); err != nil {
		return domain.Prediction{}, err
	}
	if err := validateCount("retakes", retakes); err != nil {
		return domain.Prediction{}, err
	}

	p := predictionrepo.Prediction{
		ID:        s.newPredictionID(),
		VoterID:   voter.ID,
		TargetID:  target.ID,
		Validated: validated,
		Retakes:   retakes,
		Votes:     votes,
		CreatedAt: s.clk.Now(),
	}
	if err := s.repo.Create(ctx, p); err != nil {
		if errors.Is(err, predictionrepo.ErrAlreadyVoted) {
			return domain.Prediction{}, &Error{
				Status:  409,
				Code:    "ALREADY_VOTED",
				Message: fmt.Sprintf("you already voted for %s", target.FullName),
			}
		}
		return domain.Prediction{}, err
	}

	slog.InfoContext(ctx, "prediction submitted",
		"prediction_id", string(p.ID),
		"voter_id", string(p.VoterID),
		"target_id", string(p.TargetID),
	)
	out := toDomain(p)
	out.VoterName = voter.FullName
	out.TargetName = target.FullName
	return out, nil
}

// tallyVotes validates a per-module breakdown and derives the counts from it.
func tallyVotes(in map[string]domain.Verdict, modules []string) (map[string]domain.Verdict, int, int, error) {
	votes := make(map[string]domain.Verdict, len(in))
	var validated, retakes int
	for module, verdict := range in {
		if !slices.Contains(modules, module) {
			return nil, 0, 0, &Error{
				Status:  422,
				Code:    "VALIDATION_ERROR",
				Message: "invalid votes",
				Details: map[string]any{"votes": fmt.Sprintf("unknown module %q", module)},
			}
		}
		v := domain.Verdict(strings.ToLower(strings.TrimSpace(string(verdict))))
		if !v.Valid() {
			return nil, 0, 0, &Error{
				Status:  422,
				Code:    "VALIDATION_ERROR",
				Message: "invalid votes",
				Details: map[string]any{"votes": fmt.Sprintf("module %q: verdict must be validated or retake", module)},
			}
		}
		votes[module] = v
		if v == domain.VerdictValidated {
			validated++
		} else {
			retakes++
		}
	}
	return votes, validated, retakes, nil
}

func validateCount(field string, n int) error {
	if n < 0 || n > MaxCount {
		return &Error{
			Status:  422,
			Code:    "VALIDATION_ERROR",
			Message: "invalid " + field,
			Details: map[string]any{field: fmt.Sprintf("must be between 0 and %d", MaxCount)},
		}
	}
	return nil
}

// ListMine returns the predictions cast by the caller.
func (s *Service) ListMine(ctx context.Context, subject domain.SubjectID) ([]domain.Prediction, error) {
	me, err := s.provisioned(ctx, subject)
	if err != nil {
		return nil, err
	}
	ps, err := s.repo.ListByVoter(ctx, me.ID)
	if err != nil {
		return nil, err
	}
	names, err := s.names(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]domain.Prediction, 0, len(ps))
	for _, p := range ps {
		d := toDomain(p)
		d.VoterName = me.FullName
		d.TargetName = names[p.TargetID]
		out = append(out, d)
	}
	return out, nil
}

// Delete withdraws one of the caller's own predictions.
func (s *Service) Delete(ctx context.Context, subject domain.SubjectID, id domain.PredictionID) error {
	me, err := s.provisioned(ctx, subject)
	if err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, id, me.ID); err != nil {
		if errors.Is(err, predictionrepo.ErrNotFound) {
			return &Error{
				Status:  404,
				Code:    "PREDICTION_NOT_FOUND",
				Message: "prediction not found",
			}
		}
		return err
	}
	slog.InfoContext(ctx, "prediction deleted", "prediction_id", string(id), "voter_id", string(me.ID))
	return nil
}

// ListReceived returns the predictions made about the caller. Voter names are blanked
// when votes are anonymous.
func (s *Service) ListReceived(ctx context.Context, subject domain.SubjectID) ([]domain.Prediction, error) {
	me, err := s.provisioned(ctx, subject)
	if err != nil {
		return nil, err
	}
	flags, err := s.visibleFlags(ctx, me)
	if err != nil {
		return nil, err
	}
	ps, err := s.repo.ListByTarget(ctx, me.ID)
	if err != nil {
		return nil, err
	}
	var names map[domain.ProfileID]string
	if !flags.AnonymousVotes {
		if names, err = s.names(ctx); err != nil {
			return nil, err
		}
	}
	out := make([]domain.Prediction, 0, len(ps))
	for _, p := range ps {
		d := toDomain(p)
		d.TargetName = me.FullName
		if !flags.AnonymousVotes {
			d.VoterName = names[p.VoterID]
		} else {
			d.VoterID = ""
		}
		out = append(out, d)
	}
	return out, nil
}

// UserStats summarizes the predictions received by targetID.
func (s *Service) UserStats(ctx context.Context, subject domain.SubjectID, targetID domain.ProfileID) (domain.PredictionStats, error) {
	me, err := s.provisioned(ctx, subject)
	if err != nil {
		return domain.PredictionStats{}, err
	}
	if _, err := s.visibleFlags(ctx, me); err != nil {
		return domain.PredictionStats{}, err
	}
	if _, err := s.profiles.GetByID(ctx, targetID); err != nil {
		if errors.Is(err, profilerepo.ErrNotFound) {
			return domain.PredictionStats{}, &Error{
				Status:  404,
				Code:    "TARGET_NOT_FOUND",
				Message: "target student not found",
			}
		}
		return domain.PredictionStats{}, err
	}
	ps, err := s.repo.ListByTarget(ctx, targetID)
	if err != nil {
		return domain.PredictionStats{}, err
	}
	validated, retakes := averages(ps)
	return domain.PredictionStats{
		TotalVotes:   len(ps),
		AvgValidated: validated,
		AvgRetakes:   retakes,
	}, nil
}

// GlobalStats summarizes every prediction for administrators.
func (s *Service) GlobalStats(ctx context.Context) (domain.GlobalStats, error) {
	ps, err := s.repo.ListAll(ctx)
	if err != nil {
		return domain.GlobalStats{}, err
	}
	profiles, err := s.profiles.List(ctx, true)
	if err != nil {
		return domain.GlobalStats{}, err
	}

	out := domain.GlobalStats{TotalVotes: len(ps), TotalUsers: len(profiles)}
	for _, p := range profiles {
		if p.Active {
			out.ActiveUsers++
		}
	}
	out.AvgValidated, out.AvgRetakes = averages(ps)

	byTarget := make(map[domain.ProfileID]int)
	for _, p := range ps {
		byTarget[p.TargetID]++
	}
	// Profiles are listed by name, so ties go to the alphabetically first target.
	for _, p := range profiles {
		if n := byTarget[p.ID]; n > out.MostVotedCount {
			name := p.FullName
			out.MostVotedName = &name
			out.MostVotedCount = n
		}
	}
	return out, nil
}

// ListAll returns every prediction with both names filled in.
func (s *Service) ListAll(ctx context.Context) ([]domain.Prediction, error) {
	ps, err := s.repo.ListAll(ctx)
	if err != nil {
		return nil, err
	}
	names, err := s.names(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]domain.Prediction, 0, len(ps))
	for _, p := range ps {
		d := toDomain(p)
		d.VoterName = names[p.VoterID]
		d.TargetName = names[p.TargetID]
		out = append(out, d)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

// ResetAll deletes every prediction and returns how many were removed.
func (s *Service) ResetAll(ctx context.Context) (int, error) {
	return submitlock.Do(ctx, &s.resetting, func(ctx context.Context) (int, error) {
		n, err := s.repo.DeleteAll(ctx)
		if err != nil {
			return 0, err
		}
		slog.WarnContext(ctx, "all predictions reset", "deleted", n)
		return n, nil
	})
}

func (s *Service) provisioned(ctx context.Context, subject domain.SubjectID) (profilerepo.Profile, error) {
	p, err := s.profiles.GetBySubject(ctx, subject)
	if err != nil {
		if errors.Is(err, profilerepo.ErrNotFound) {
			return profilerepo.Profile{}, &Error{
				Status:  404,
				Code:    "PROFILE_NOT_PROVISIONED",
				Message: "No profile exists for the authenticated subject.",
			}
		}
		return profilerepo.Profile{}, err
	}
	return p, nil
}

func (s *Service) activeProfile(ctx context.Context, subject domain.SubjectID) (profilerepo.Profile, error) {
	p, err := s.provisioned(ctx, subject)
	if err != nil {
		return profilerepo.Profile{}, err
	}
	if !p.Active {
		return profilerepo.Profile{}, &Error{
			Status:  403,
			Code:    "PROFILE_INACTIVE",
			Message: "your account has been deactivated",
		}
	}
	return p, nil
}

// visibleFlags returns the current flags, rejecting non-admins while results are hidden.
func (s *Service) visibleFlags(ctx context.Context, me profilerepo.Profile) (domain.Flags, error) {
	flags, err := s.settings.Flags(ctx)
	if err != nil {
		return domain.Flags{}, err
	}
	isAdmin := me.Active && me.Role == domain.RoleAdmin
	if !flags.ShowResults && !isAdmin {
		return domain.Flags{}, &Error{
			Status:  403,
			Code:    "RESULTS_HIDDEN",
			Message: "results are not visible yet",
		}
	}
	return flags, nil
}

func (s *Service) names(ctx context.Context) (map[domain.ProfileID]string, error) {
	ps, err := s.profiles.List(ctx, true)
	if err != nil {
		return nil, err
	}
	out := make(map[domain.ProfileID]string, len(ps))
	for _, p := range ps {
		out[p.ID] = p.FullName
	}
	return out, nil
}

func averages(ps []predictionrepo.Prediction) (float64, float64) {
	if len(ps) == 0 {
		return 0, 0
	}
	var validated, retakes int
	for _, p := range ps {
		validated += p.Validated
		retakes += p.Retakes
	}
	n := float64(len(ps))
	return round1(float64(validated) / n), round1(float64(retakes) / n)
}

func round1(v float64) float64 {
	return math.Round(v*10) / 10
}

func toDomain(p predictionrepo.Prediction) domain.Prediction {
	var votes map[string]domain.Verdict
	if p.Votes != nil {
		votes = make(map[string]domain.Verdict, len(p.Votes))
		for k, v := range p.Votes {
			votes[k] = v
		}
	}
	return domain.Prediction{
		ID:        p.ID,
		VoterID:   p.VoterID,
		TargetID:  p.TargetID,
		Validated: p.Validated,
		Retakes:   p.Retakes,
		Votes:     votes,
		CreatedAt: p.CreatedAt,
	}
}
