package profiles

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"github.com/promo-vote/predictions-api/internal/domain"
	clockport "github.com/promo-vote/predictions-api/internal/ports/out/clock"
	"github.com/promo-vote/predictions-api/internal/ports/out/profilerepo"
)

const maxGroupLength = 50

type Service struct {
	repo profilerepo.Repository
	clk  clockport.Clock
}

func NewService(repo profilerepo.Repository, clk clockport.Clock) *Service {
	return &Service{repo: repo, clk: clk}
}

func (s *Service) GetMyProfile(ctx context.Context, subject domain.SubjectID) (domain.Profile, error) {
	p, err := s.repo.GetBySubject(ctx, subject)
	if err != nil {
		if errors.Is(err, profilerepo.ErrNotFound) {
			return domain.Profile{}, notProvisioned()
		}
		return domain.Profile{}, err
	}
	return ToDomain(p), nil
}

// ListVotable returns the active profiles the caller may cast a prediction for.
func (s *Service) ListVotable(ctx context.Context, subject domain.SubjectID) ([]domain.Profile, error) {
	me, err := s.GetMyProfile(ctx, subject)
	if err != nil {
		return nil, err
	}
	ps, err := s.repo.List(ctx, false)
	if err != nil {
		return nil, err
	}
	out := make([]domain.Profile, 0, len(ps))
	for _, p := range ps {
		if p.ID == me.ID {
			continue
		}
		out = append(out, ToDomain(p))
	}
	return out, nil
}

func (s *Service) ListAll(ctx context.Context) ([]domain.Profile, error) {
	ps, err := s.repo.List(ctx, true)
	if err != nil {
		return nil, err
	}
	out := make([]domain.Profile, 0, len(ps))
	for _, p := range ps {
		out = append(out, ToDomain(p))
	}
	return out, nil
}

// RequireAdmin returns the caller's profile when it is an active administrator.
func (s *Service) RequireAdmin(ctx context.Context, subject domain.SubjectID) (domain.Profile, error) {
	p, err := s.repo.GetBySubject(ctx, subject)
	if err != nil {
		if errors.Is(err, profilerepo.ErrNotFound) {
			return domain.Profile{}, forbidden()
		}
		return domain.Profile{}, err
	}
	me := ToDomain(p)
	if !me.IsAdmin() {
		return domain.Profile{}, forbidden()
	}
	return me, nil
}

func (s *Service) UpdateProfile(ctx context.Context, id domain.ProfileID, in UpdateProfileInput) (domain.Profile, error) {
	p, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, profilerepo.ErrNotFound) {
			return domain.Profile{}, &Error{
				Status:  404,
				Code:    "PROFILE_NOT_FOUND",
				Message: "profile not found",
			}
		}
		return domain.Profile{}, err
	}

	if in.Active.IsSpecified() {
		if in.Active.IsNull() {
			return domain.Profile{}, validationError("active", "cannot be null")
		}
		p.Active = in.Active.Value()
	}
	if in.Role.IsSpecified() {
		if in.Role.IsNull() {
			return domain.Profile{}, validationError("role", "cannot be null")
		}
		role := domain.Role(strings.ToLower(strings.TrimSpace(in.Role.Value())))
		if !role.Valid() {
			return domain.Profile{}, validationError("role", "must be student or admin")
		}
		p.Role = role
	}
	if err := applyNullableText(&p.Group, in.Group, "group"); err != nil {
		return domain.Profile{}, err
	}
	if err := applyNullableText(&p.Subgroup, in.Subgroup, "subgroup"); err != nil {
		return domain.Profile{}, err
	}

	p.UpdatedAt = s.clk.Now()
	if err := s.repo.Update(ctx, p); err != nil {
		if errors.Is(err, profilerepo.ErrNotFound) {
			return domain.Profile{}, &Error{Status: 404, Code: "PROFILE_NOT_FOUND", Message: "profile not found"}
		}
		return domain.Profile{}, err
	}
	slog.InfoContext(ctx, "profile updated",
		"profile_id", string(p.ID),
		"role", string(p.Role),
		"active", p.Active,
	)
	return ToDomain(p), nil
}

func applyNullableText(dst **string, o Optional[string], field string) error {
	if !o.IsSpecified() {
		return nil
	}
	if o.IsNull() {
		*dst = nil
		return nil
	}
	v := strings.TrimSpace(o.Value())
	if v == "" {
		*dst = nil
		return nil
	}
	if len([]rune(v)) > maxGroupLength {
		return validationError(field, "must be at most 50 characters")
	}
	*dst = &v
	return nil
}

func validationError(field, msg string) *Error {
	return &Error{
		Status:  422,
		Code:    "VALIDATION_ERROR",
		Message: "invalid " + field,
		Details: map[string]any{field: msg},
	}
}

func notProvisioned() *Error {
	return &Error{
		Status:  404,
		Code:    "PROFILE_NOT_PROVISIONED",
		Message: "No profile exists for the authenticated subject.",
	}
}

func forbidden() *Error {
	return &Error{
		Status:  403,
		Code:    "FORBIDDEN",
		Message: "administrator access required",
	}
}

// ToDomain converts a stored profile into its domain shape.
func ToDomain(p profilerepo.Profile) domain.Profile {
	return domain.Profile{
		ID:             p.ID,
		Subject:        p.Subject,
		FullName:       p.FullName,
		RegistrationID: p.RegistrationID,
		Email:          p.Email,
		Group:          cloneStringPtr(p.Group),
		Subgroup:       cloneStringPtr(p.Subgroup),
		Role:           p.Role,
		Active:         p.Active,
		CreatedAt:      p.CreatedAt,
		UpdatedAt:      p.UpdatedAt,
	}
}

func cloneStringPtr(p *string) *string {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}
