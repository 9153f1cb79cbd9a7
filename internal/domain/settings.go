package domain

// Setting keys understood by the application.
const (
	SettingVotingEnabled  = "voting_enabled"
	SettingShowResults    = "show_results"
	SettingAnonymousVotes = "anonymous_votes"
	SettingModulesList    = "modules_list"
)

// Flags is the parsed view of the boolean settings.
type Flags struct {
	VotingEnabled  bool
	ShowResults    bool
	AnonymousVotes bool
}
