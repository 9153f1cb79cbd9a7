package httpapi

import (
	"time"

	"github.com/oapi-codegen/nullable"
	openapi_types "github.com/oapi-codegen/runtime/types"

	"github.com/promo-vote/predictions-api/internal/app/profiles"
	"github.com/promo-vote/predictions-api/internal/app/signup"
	"github.com/promo-vote/predictions-api/internal/domain"
)

type checkSignupRequest struct {
	Name string `json:"name"`
}

type rosterStudent struct {
	FullName       string                    `json:"fullName"`
	RegistrationID string                    `json:"registrationId"`
	Group          nullable.Nullable[string] `json:"group"`
	Subgroup       nullable.Nullable[string] `json:"subgroup"`
}

type checkSignupResponse struct {
	Valid      bool           `json:"valid"`
	Available  bool           `json:"available"`
	Code       string         `json:"code,omitempty"`
	Error      string         `json:"error,omitempty"`
	Student    *rosterStudent `json:"student,omitempty"`
	Candidates []string       `json:"candidates,omitempty"`
}

type registerProfileRequest struct {
	Name  string              `json:"name"`
	Email openapi_types.Email `json:"email"`
}

type profileJSON struct {
	ID             string                    `json:"id"`
	FullName       string                    `json:"fullName"`
	RegistrationID string                    `json:"registrationId"`
	Email          string                    `json:"email"`
	Group          nullable.Nullable[string] `json:"group"`
	Subgroup       nullable.Nullable[string] `json:"subgroup"`
	Role           string                    `json:"role"`
	Active         bool                      `json:"active"`
	CreatedAt      time.Time                 `json:"createdAt"`
	UpdatedAt      time.Time                 `json:"updatedAt"`
}

type profileResponse struct {
	Profile profileJSON `json:"profile"`
}

// votableProfileJSON is the peer-visible subset of a profile.
type votableProfileJSON struct {
	ID       string                    `json:"id"`
	FullName string                    `json:"fullName"`
	Group    nullable.Nullable[string] `json:"group"`
	Subgroup nullable.Nullable[string] `json:"subgroup"`
}

type updateProfileRequest struct {
	Active   nullable.Nullable[bool]   `json:"active,omitempty"`
	Role     nullable.Nullable[string] `json:"role,omitempty"`
	Group    nullable.Nullable[string] `json:"group,omitempty"`
	Subgroup nullable.Nullable[string] `json:"subgroup,omitempty"`
}

type statsJSON struct {
	TotalVotes   int     `json:"totalVotes"`
	AvgValidated float64 `json:"avgValidated"`
	AvgRetakes   float64 `json:"avgRetakes"`
}

type globalStatsJSON struct {
	TotalVotes     int                       `json:"totalVotes"`
	TotalUsers     int                       `json:"totalUsers"`
	ActiveUsers    int                       `json:"activeUsers"`
	MostVotedName  nullable.Nullable[string] `json:"mostVotedName"`
	MostVotedCount int                       `json:"mostVotedCount"`
	AvgValidated   float64                   `json:"avgValidated"`
	AvgRetakes     float64                   `json:"avgRetakes"`
}

type settingsResponse struct {
	VotingEnabled  bool     `json:"votingEnabled"`
	ShowResults    bool     `json:"showResults"`
	AnonymousVotes bool     `json:"anonymousVotes"`
	Modules        []string `json:"modules"`
}

type updateSettingRequest struct {
	Value string `json:"value"`
}

type moduleRequest struct {
	Name string `json:"name"`
}

type modulesResponse struct {
	Modules []string `json:"modules"`
}

type submitPredictionRequest struct {
	TargetID  string            `json:"targetId"`
	Validated int               `json:"validated"`
	Retakes   int               `json:"retakes"`
	Votes     map[string]string `json:"votes,omitempty"`
}

type predictionJSON struct {
	ID         string            `json:"id"`
	VoterID    string            `json:"voterId,omitempty"`
	VoterName  string            `json:"voterName,omitempty"`
	TargetID   string            `json:"targetId"`
	TargetName string            `json:"targetName,omitempty"`
	Validated  int               `json:"validated"`
	Retakes    int               `json:"retakes"`
	Votes      map[string]string `json:"votes,omitempty"`
	CreatedAt  time.Time         `json:"createdAt"`
}

type predictionResponse struct {
	Prediction predictionJSON `json:"prediction"`
}

type predictionsResponse struct {
	Predictions []predictionJSON `json:"predictions"`
}

func nullableString(p *string) nullable.Nullable[string] {
	if p == nil {
		return nullable.NewNullNullable[string]()
	}
	return nullable.NewNullableWithValue(*p)
}

func nullableNonEmpty(s string) nullable.Nullable[string] {
	if s == "" {
		return nullable.NewNullNullable[string]()
	}
	return nullable.NewNullableWithValue(s)
}

func checkSignupFromResolution(res signup.Resolution) checkSignupResponse {
	out := checkSignupResponse{
		Valid:      res.Valid,
		Available:  res.Available,
		Code:       string(res.Code),
		Error:      res.Error,
		Candidates: res.Candidates,
	}
	if res.Student != nil {
		out.Student = &rosterStudent{
			FullName:       res.Student.FullName,
			RegistrationID: string(res.Student.RegistrationID),
			Group:          nullableNonEmpty(res.Student.Group),
			Subgroup:       nullableNonEmpty(res.Student.Subgroup),
		}
	}
	return out
}

func profileFromDomain(p domain.Profile) profileJSON {
	return profileJSON{
		ID:             string(p.ID),
		FullName:       p.FullName,
		RegistrationID: string(p.RegistrationID),
		Email:          p.Email,
		Group:          nullableString(p.Group),
		Subgroup:       nullableString(p.Subgroup),
		Role:           string(p.Role),
		Active:         p.Active,
		CreatedAt:      p.CreatedAt.UTC(),
		UpdatedAt:      p.UpdatedAt.UTC(),
	}
}

func profilesFromDomain(ps []domain.Profile) []profileJSON {
	out := make([]profileJSON, 0, len(ps))
	for _, p := range ps {
		out = append(out, profileFromDomain(p))
	}
	return out
}

func votableFromDomain(ps []domain.Profile) []votableProfileJSON {
	out := make([]votableProfileJSON, 0, len(ps))
	for _, p := range ps {
		out = append(out, votableProfileJSON{
			ID:       string(p.ID),
			FullName: p.FullName,
			Group:    nullableString(p.Group),
			Subgroup: nullableString(p.Subgroup),
		})
	}
	return out
}

func updateProfileInputFromRequest(b updateProfileRequest) profiles.UpdateProfileInput {
	return profiles.UpdateProfileInput{
		Active:   optionalFromNullable(b.Active),
		Role:     optionalFromNullable(b.Role),
		Group:    optionalFromNullable(b.Group),
		Subgroup: optionalFromNullable(b.Subgroup),
	}
}

func optionalFromNullable[T any](n nullable.Nullable[T]) profiles.Optional[T] {
	if !n.IsSpecified() {
		return profiles.Unspecified[T]()
	}
	if n.IsNull() {
		return profiles.Null[T]()
	}
	v, err := n.Get()
	if err != nil {
		return profiles.Unspecified[T]()
	}
	return profiles.Some(v)
}

func predictionFromDomain(p domain.Prediction) predictionJSON {
	out := predictionJSON{
		ID:         string(p.ID),
		VoterID:    string(p.VoterID),
		VoterName:  p.VoterName,
		TargetID:   string(p.TargetID),
		TargetName: p.TargetName,
		Validated:  p.Validated,
		Retakes:    p.Retakes,
		CreatedAt:  p.CreatedAt.UTC(),
	}
	if len(p.Votes) > 0 {
		out.Votes = make(map[string]string, len(p.Votes))
		for k, v := range p.Votes {
			out.Votes[k] = string(v)
		}
	}
	return out
}

func predictionsFromDomain(ps []domain.Prediction) predictionsResponse {
	out := predictionsResponse{Predictions: make([]predictionJSON, 0, len(ps))}
	for _, p := range ps {
		out.Predictions = append(out.Predictions, predictionFromDomain(p))
	}
	return out
}

func globalStatsFromDomain(s domain.GlobalStats) globalStatsJSON {
	return globalStatsJSON{
		TotalVotes:     s.TotalVotes,
		TotalUsers:     s.TotalUsers,
		ActiveUsers:    s.ActiveUsers,
		MostVotedName:  nullableString(s.MostVotedName),
		MostVotedCount: s.MostVotedCount,
		AvgValidated:   s.AvgValidated,
		AvgRetakes:     s.AvgRetakes,
	}
}
