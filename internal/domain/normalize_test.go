package domain

import (
	"reflect"
	"strings"
	"testing"
)

func TestNameTokens(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in   string
		want []string
	}{
		{in: "", want: nil},
		{in: "   ", want: nil},
		{in: "Bilal Mouttali", want: []string{"BILAL", "MOUTTALI"}},
		{in: "  bílàl\t mouttàli \n", want: []string{"BILAL", "MOUTTALI"}},
		{in: "Jean-Pierre O'Neil", want: []string{"JEANPIERRE", "ONEIL"}},
		{in: "Ça Ème 2nd", want: []string{"CA", "EME", "2ND"}},
		{in: "!!! ???", want: nil},
	}
	for _, tt := range tests {
		got := NameTokens(tt.in)
		if len(got) == 0 && len(tt.want) == 0 {
			continue
		}
		if !reflect.DeepEqual(got, tt.want) {
			t.Fatalf("NameTokens(%q)=%v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestNameTokens_Idempotent(t *testing.T) {
	t.Parallel()

	for _, in := range []string{"bílàl mouttàli", "Jean-Pierre  d'Arc", "ÉLODIE   Ñúñez 3", ""} {
		once := NameTokens(in)
		twice := NameTokens(strings.Join(once, " "))
		if len(once) == 0 && len(twice) == 0 {
			continue
		}
		if !reflect.DeepEqual(once, twice) {
			t.Fatalf("NameTokens not idempotent for %q: %v then %v", in, once, twice)
		}
	}
}

func TestNormalizeHumanName(t *testing.T) {
	t.Parallel()

	if got := NormalizeHumanName("  Alice   Smith "); got != "Alice Smith" {
		t.Fatalf("NormalizeHumanName()=%q", got)
	}
}
