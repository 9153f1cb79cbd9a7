// Package rosterfile loads the student roster from its JSON export.
//
// The export is an array of objects:
//
//	[{"nom": "MOUTTALI BILAL", "matricule": "212345", "gp": "G1", "sgp": "SG2"}]
//
// matricule may be a JSON string or number.
package rosterfile

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/promo-vote/predictions-api/internal/domain"
)

type flexString string

func (f *flexString) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if bytes.Equal(b, []byte("null")) {
		*f = ""
		return nil
	}
	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*f = flexString(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return fmt.Errorf("expected string or number, got %s", b)
	}
	*f = flexString(n.String())
	return nil
}

type record struct {
	Name      string     `json:"nom"`
	Matricule flexString `json:"matricule"`
	Group     flexString `json:"gp"`
	Subgroup  flexString `json:"sgp"`
}

// Load reads and parses the roster file at path.
func Load(path string) ([]domain.RosterEntry, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open roster: %w", err)
	}
	defer f.Close()
	entries, err := Parse(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return entries, nil
}

// Parse decodes a roster export. Every record needs a name and a registration id.
func Parse(r io.Reader) ([]domain.RosterEntry, error) {
	var records []record
	dec := json.NewDecoder(r)
	if err := dec.Decode(&records); err != nil {
		return nil, fmt.Errorf("decode roster: %w", err)
	}
	out := make([]domain.RosterEntry, 0, len(records))
	for i, rec := range records {
		name := strings.TrimSpace(rec.Name)
		id := strings.TrimSpace(string(rec.Matricule))
		if name == "" || id == "" {
			return nil, fmt.Errorf("roster record %d: nom and matricule are required", i)
		}
		out = append(out, domain.RosterEntry{
			FullName:       name,
			RegistrationID: domain.RegistrationID(id),
			Group:          strings.TrimSpace(string(rec.Group)),
			Subgroup:       strings.TrimSpace(string(rec.Subgroup)),
		})
	}
	return out, nil
}
