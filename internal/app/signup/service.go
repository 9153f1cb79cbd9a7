package signup

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/mail"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/promo-vote/predictions-api/internal/app/profiles"
	"github.com/promo-vote/predictions-api/internal/app/roster"
	"github.com/promo-vote/predictions-api/internal/domain"
	"github.com/promo-vote/predictions-api/internal/platform/submitlock"
	clockport "github.com/promo-vote/predictions-api/internal/ports/out/clock"
	"github.com/promo-vote/predictions-api/internal/ports/out/profilerepo"
	"github.com/promo-vote/predictions-api/internal/ports/out/registry"
)

// DefaultEligibilityTimeout bounds a single registry call.
const DefaultEligibilityTimeout = 5 * time.Second

const (
	minNameLength  = 2
	maxNameLength  = 150
	maxEmailLength = 254
)

type Service struct {
	roster   *roster.Matcher
	registry registry.Registry
	profiles profilerepo.Repository
	clk      clockport.Clock

	newProfileID func() domain.ProfileID
	registering  submitlock.Group

	// EligibilityTimeout bounds each registry call; zero means DefaultEligibilityTimeout.
	EligibilityTimeout time.Duration
}

func NewService(m *roster.Matcher, reg registry.Registry, profiles profilerepo.Repository, clk clockport.Clock) *Service {
	return &Service{
		roster:   m,
		registry: reg,
		profiles: profiles,
		clk:      clk,
		newProfileID: func() domain.ProfileID {
			return domain.ProfileID(uuid.NewString())
		},
		EligibilityTimeout: DefaultEligibilityTimeout,
	}
}

// ValidateAndResolve resolves a free-text name against the roster and, when it resolves
// to exactly one student, asks the registry whether that student may sign up.
//
// The registry is never called when local resolution fails. Registry failures fail
// closed: the student is reported unavailable. It never returns an error; every outcome
// is described by the Resolution.
func (s *Service) ValidateAndResolve(ctx context.Context, name string) Resolution {
	if strings.TrimSpace(name) == "" {
		return Resolution{Code: CodeNameRequired, Error: "name is required"}
	}

	res := s.roster.Resolve(name)
	switch res.Outcome {
	case roster.Ambiguous:
		return Resolution{Code: CodeAmbiguousName, Error: res.Message(), Candidates: res.Candidates}
	case roster.NotFound:
		return Resolution{Code: CodeStudentNotFound, Error: res.Message()}
	}
	student := res.Entry

	elig, err := s.checkEligibility(ctx, student.RegistrationID)
	if err != nil {
		slog.WarnContext(ctx, "eligibility check failed",
			"registration_id", string(student.RegistrationID),
			"error", err,
		)
		return Resolution{
			Valid:   true,
			Code:    CodeRegistryUnavailable,
			Error:   "could not reach the verification server; try again",
			Student: &student,
		}
	}

	if !elig.Valid {
		// The local roster is a convenience; the registry is the source of truth.
		return Resolution{
			Code:  CodeNotAllowlisted,
			Error: "this student is not authorized by the allow-list",
		}
	}
	if !elig.Available {
		return Resolution{
			Valid:   true,
			Code:    CodeAccountExists,
			Error:   fmt.Sprintf("an account already exists for %s", student.FullName),
			Student: &student,
		}
	}
	return Resolution{Valid: true, Available: true, Student: &student}
}

func (s *Service) checkEligibility(ctx context.Context, id domain.RegistrationID) (elig registry.Eligibility, err error) {
	timeout := s.EligibilityTimeout
	if timeout <= 0 {
		timeout = DefaultEligibilityTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("registry panic: %v", r)
		}
	}()
	elig, err = s.registry.CheckEligibility(ctx, id)
	if err != nil {
		return registry.Eligibility{}, err
	}
	return elig.Normalize(), nil
}

// Register provisions the caller's profile from a free-text name.
//
// Concurrent registrations for the same subject are rejected with submitlock.ErrInProgress.
func (s *Service) Register(ctx context.Context, subject domain.SubjectID, in RegisterInput) (domain.Profile, error) {
	return submitlock.DoKey(ctx, &s.registering, string(subject), func(ctx context.Context) (domain.Profile, error) {
		return s.register(ctx, subject, in)
	})
}

func (s *Service) register(ctx context.Context, subject domain.SubjectID, in RegisterInput) (domain.Profile, error) {
	if _, err := s.profiles.GetBySubject(ctx, subject); err == nil {
		return domain.Profile{}, &Error{
			Status:  409,
			Code:    "PROFILE_ALREADY_EXISTS",
			Message: "A profile already exists for the authenticated subject.",
		}
	} else if !errors.Is(err, profilerepo.ErrNotFound) {
		return domain.Profile{}, err
	}

	name := domain.NormalizeHumanName(in.Name)
	if n := len([]rune(name)); n < minNameLength || n > maxNameLength {
		return domain.Profile{}, &Error{
			Status:  422,
			Code:    "VALIDATION_ERROR",
			Message: "invalid name",
			Details: map[string]any{"name": fmt.Sprintf("must be %d-%d characters", minNameLength, maxNameLength)},
		}
	}
	email := strings.TrimSpace(in.Email)
	if err := validateEmail(email); err != nil {
		return domain.Profile{}, &Error{
			Status:  422,
			Code:    "VALIDATION_ERROR",
			Message: "invalid email",
			Details: map[string]any{"email": err.Error()},
		}
	}

	res := s.ValidateAndResolve(ctx, name)
	if !res.OK() {
		return domain.Profile{}, resolutionError(res)
	}
	student := *res.Student

	// The registry may lag behind local writes; check our own records too.
	if _, err := s.profiles.GetByRegistrationID(ctx, student.RegistrationID); err == nil {
		return domain.Profile{}, accountExists(student)
	} else if !errors.Is(err, profilerepo.ErrNotFound) {
		return domain.Profile{}, err
	}

	now := s.clk.Now()
	p := profilerepo.Profile{
		ID:             s.newProfileID(),
		Subject:        subject,
		FullName:       student.FullName,
		RegistrationID: student.RegistrationID,
		Email:          email,
		Group:          optionalString(student.Group),
		Subgroup:       optionalString(student.Subgroup),
		Role:           domain.RoleStudent,
		Active:         true,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	if err := s.profiles.Create(ctx, p); err != nil {
		switch {
		case errors.Is(err, profilerepo.ErrSubjectAlreadyBound):
			return domain.Profile{}, &Error{
				Status:  409,
				Code:    "PROFILE_ALREADY_EXISTS",
				Message: "A profile already exists for the authenticated subject.",
			}
		case errors.Is(err, profilerepo.ErrRegistrationClaimed):
			return domain.Profile{}, accountExists(student)
		}
		return domain.Profile{}, err
	}

	slog.InfoContext(ctx, "profile registered",
		"profile_id", string(p.ID),
		"registration_id", string(p.RegistrationID),
	)
	return profiles.ToDomain(p), nil
}

func resolutionError(res Resolution) *Error {
	e := &Error{Code: string(res.Code), Message: res.Error}
	switch res.Code {
	case CodeNotAllowlisted:
		e.Status = 403
	case CodeAccountExists:
		e.Status = 409
	case CodeRegistryUnavailable:
		e.Status = 503
	default:
		e.Status = 422
	}
	if len(res.Candidates) > 0 {
		e.Details = map[string]any{"candidates": res.Candidates}
	}
	return e
}

func accountExists(student domain.RosterEntry) *Error {
	return &Error{
		Status:  409,
		Code:    string(CodeAccountExists),
		Message: fmt.Sprintf("an account already exists for %s", student.FullName),
	}
}

func validateEmail(email string) error {
	if email == "" {
		return errors.New("must be non-empty")
	}
	if len(email) > maxEmailLength {
		return fmt.Errorf("must be at most %d characters", maxEmailLength)
	}
	addr, err := mail.ParseAddress(email)
	if err != nil {
		return err
	}
	// Ensure no "Name <email@x>" format sneaks in.
	if addr.Address != email {
		return errors.New("must be a bare email address")
	}
	return nil
}

func optionalString(s string) *string {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	return &s
}
