package roster

import (
	"fmt"
	"strings"

	"github.com/promo-vote/predictions-api/internal/domain"
)

// Outcome tags a Result.
type Outcome int

const (
	NotFound Outcome = iota
	Found
	Ambiguous
)

func (o Outcome) String() string {
	switch o {
	case Found:
		return "found"
	case Ambiguous:
		return "ambiguous"
	default:
		return "not_found"
	}
}

// Reason explains a NotFound or Ambiguous outcome.
type Reason string

const (
	ReasonNone            Reason = ""
	ReasonEmptyName       Reason = "EMPTY_NAME"
	ReasonNoMatch         Reason = "NO_MATCH"
	ReasonDuplicateRecord Reason = "DUPLICATE_RECORD"
	ReasonTooMany         Reason = "TOO_MANY_MATCHES"
)

// MaxCandidates bounds the sample names returned for an ambiguous subset match.
const MaxCandidates = 3

// Result is the outcome of resolving a free-text name against the roster.
type Result struct {
	Outcome Outcome
	Reason  Reason

	// Entry is set only when Outcome is Found.
	Entry domain.RosterEntry
	// Candidates holds up to MaxCandidates sample full names for ambiguous subset matches.
	Candidates []string
	// Total is the number of entries that matched when Outcome is Ambiguous.
	Total int
}

// Message renders the user-facing explanation for the result; empty when found.
func (r Result) Message() string {
	switch r.Reason {
	case ReasonEmptyName:
		return "name is empty"
	case ReasonNoMatch:
		return "student not found in the roster"
	case ReasonDuplicateRecord:
		return "several students match this name exactly; contact an administrator"
	case ReasonTooMany:
		return fmt.Sprintf("%d students match this name; be more specific (e.g. %s...)", r.Total, strings.Join(r.Candidates, ", "))
	default:
		return ""
	}
}

type indexedEntry struct {
	entry  domain.RosterEntry
	tokens []string
	counts map[string]int
}

// Matcher resolves free-text names against a fixed roster.
// It never mutates after construction and is safe for concurrent use.
type Matcher struct {
	entries []indexedEntry
	byRegID map[domain.RegistrationID]int
}

func New(entries []domain.RosterEntry) *Matcher {
	m := &Matcher{
		entries: make([]indexedEntry, 0, len(entries)),
		byRegID: make(map[domain.RegistrationID]int, len(entries)),
	}
	for _, e := range entries {
		tokens := domain.NameTokens(e.FullName)
		m.entries = append(m.entries, indexedEntry{
			entry:  e,
			tokens: tokens,
			counts: tokenCounts(tokens),
		})
		if _, ok := m.byRegID[e.RegistrationID]; !ok && e.RegistrationID != "" {
			m.byRegID[e.RegistrationID] = len(m.entries) - 1
		}
	}
	return m
}

// Len returns the number of roster entries.
func (m *Matcher) Len() int { return len(m.entries) }

// Entries returns a copy of the roster.
func (m *Matcher) Entries() []domain.RosterEntry {
	out := make([]domain.RosterEntry, 0, len(m.entries))
	for _, ie := range m.entries {
		out = append(out, ie.entry)
	}
	return out
}

// ByRegistrationID looks up a roster entry by its registration id.
func (m *Matcher) ByRegistrationID(id domain.RegistrationID) (domain.RosterEntry, bool) {
	i, ok := m.byRegID[id]
	if !ok {
		return domain.RosterEntry{}, false
	}
	return m.entries[i].entry, true
}

// Resolve maps a free-text name to a single roster entry.
//
// Whole-name matches (same words, any order) are tried first; only when none exist does
// it fall back to entries containing every query word. Several whole-name matches are a
// data problem and are never resolved by picking one.
func (m *Matcher) Resolve(query string) Result {
	qTokens := domain.NameTokens(query)
	if len(qTokens) == 0 {
		return Result{Outcome: NotFound, Reason: ReasonEmptyName}
	}
	qCounts := tokenCounts(qTokens)

	var exact []domain.RosterEntry
	for _, ie := range m.entries {
		if len(ie.tokens) == len(qTokens) && sameCounts(ie.counts, qCounts) {
			exact = append(exact, ie.entry)
		}
	}
	switch len(exact) {
	case 0:
	case 1:
		return Result{Outcome: Found, Entry: exact[0]}
	default:
		return Result{Outcome: Ambiguous, Reason: ReasonDuplicateRecord, Total: len(exact)}
	}

	var subset []domain.RosterEntry
	for _, ie := range m.entries {
		if containsAll(ie.counts, qTokens) {
			subset = append(subset, ie.entry)
		}
	}
	switch len(subset) {
	case 0:
		return Result{Outcome: NotFound, Reason: ReasonNoMatch}
	case 1:
		return Result{Outcome: Found, Entry: subset[0]}
	}

	n := min(len(subset), MaxCandidates)
	candidates := make([]string, 0, n)
	for _, e := range subset[:n] {
		candidates = append(candidates, e.FullName)
	}
	return Result{
		Outcome:    Ambiguous,
		Reason:     ReasonTooMany,
		Candidates: candidates,
		Total:      len(subset),
	}
}

func tokenCounts(tokens []string) map[string]int {
	out := make(map[string]int, len(tokens))
	for _, t := range tokens {
		out[t]++
	}
	return out
}

// sameCounts compares token multisets. With equal token totals this is the same as
// "every query token is among the entry's tokens" unless a name repeats a word.
func sameCounts(a, b map[string]int) bool {
	if len(a) != len(b) {
		return false
	}
	for k, n := range a {
		if b[k] != n {
			return false
		}
	}
	return true
}

func containsAll(have map[string]int, tokens []string) bool {
	for _, t := range tokens {
		if have[t] == 0 {
			return false
		}
	}
	return true
}
