package settings

import (
	"errors"
	"regexp"
	"strings"
)

const (
	// MaxModules caps the configured module list.
	MaxModules = 50

	maxModuleNameLength = 100
	maxSanitizedLength  = 500
)

// DefaultModules is served when no module list has been configured.
var DefaultModules = []string{
	"Analyse",
	"Algèbre",
	"Probabilités",
	"Statistiques",
	"Informatique",
	"Physique",
	"Anglais",
	"Communication",
}

var (
	angleBrackets = regexp.MustCompile(`[<>]`)
	jsProtocol    = regexp.MustCompile(`(?i)javascript:`)
	eventHandler  = regexp.MustCompile(`(?i)on\w+=`)

	moduleNamePattern = regexp.MustCompile(`^[a-zA-Z0-9\s\-'éèêëàâäôöùûüçÉÈÊËÀÂÄÔÖÙÛÜÇ]+$`)
)

// Sanitize strips markup and script fragments from free text and caps its length.
func Sanitize(s string) string {
	s = strings.TrimSpace(s)
	s = angleBrackets.ReplaceAllString(s, "")
	s = jsProtocol.ReplaceAllString(s, "")
	s = eventHandler.ReplaceAllString(s, "")
	if r := []rune(s); len(r) > maxSanitizedLength {
		s = string(r[:maxSanitizedLength])
	}
	return s
}

// NormalizeModuleName sanitizes and validates a module name.
func NormalizeModuleName(name string) (string, error) {
	s := strings.TrimSpace(Sanitize(name))
	if s == "" {
		return "", errors.New("module name is required")
	}
	if len([]rune(s)) > maxModuleNameLength {
		return "", errors.New("module name must be at most 100 characters")
	}
	if !moduleNamePattern.MatchString(s) {
		return "", errors.New("module name contains invalid characters")
	}
	return s, nil
}
