package settings

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"sync"

	"github.com/promo-vote/predictions-api/internal/domain"
	"github.com/promo-vote/predictions-api/internal/platform/submitlock"
	clockport "github.com/promo-vote/predictions-api/internal/ports/out/clock"
	"github.com/promo-vote/predictions-api/internal/ports/out/settingsrepo"
)

var booleanKeys = map[string]bool{
	domain.SettingVotingEnabled:  true,
	domain.SettingShowResults:    true,
	domain.SettingAnonymousVotes: true,
}

// Defaults returns the flag values a fresh store starts with. The postgres schema
// seeds the same values.
func Defaults() map[string]string {
	return map[string]string{
		domain.SettingVotingEnabled:  "true",
		domain.SettingShowResults:    "false",
		domain.SettingAnonymousVotes: "true",
	}
}

type Service struct {
	repo settingsrepo.Repository
	clk  clockport.Clock

	// Each module operation owns its own lock.
	addLock    submitlock.Lock
	renameLock submitlock.Lock
	deleteLock submitlock.Lock

	// modulesMu serializes read-modify-write of the module list.
	modulesMu sync.Mutex
}

// NewService returns a settings service backed by repo.
func NewService(repo settingsrepo.Repository, clk clockport.Clock) *Service {
	return &Service{repo: repo, clk: clk}
}

// All returns every stored setting as raw strings.
func (s *Service) All(ctx context.Context) (map[string]string, error) {
	return s.repo.All(ctx)
}

// Flags parses the boolean settings. Anything other than "true" reads as false.
func (s *Service) Flags(ctx context.Context) (domain.Flags, error) {
	all, err := s.repo.All(ctx)
	if err != nil {
		return domain.Flags{}, err
	}
	return domain.Flags{
		VotingEnabled:  all[domain.SettingVotingEnabled] == "true",
		ShowResults:    all[domain.SettingShowResults] == "true",
		AnonymousVotes: all[domain.SettingAnonymousVotes] == "true",
	}, nil
}

// Update writes a single known setting.
func (s *Service) Update(ctx context.Context, key, value string) error {
	key = strings.TrimSpace(key)
	switch {
	case booleanKeys[key]:
		value = strings.ToLower(strings.TrimSpace(value))
		if value != "true" && value != "false" {
			return validationError(key, "must be true or false")
		}
	case key == domain.SettingModulesList:
		modules, err := parseModuleList(value)
		if err != nil {
			return validationError(key, err.Error())
		}
		s.modulesMu.Lock()
		defer s.modulesMu.Unlock()
		return s.saveModules(ctx, modules)
	default:
		return &Error{
			Status:  404,
			Code:    "SETTING_NOT_FOUND",
			Message: fmt.Sprintf("unknown setting %q", key),
		}
	}
	if err := s.repo.Set(ctx, key, value, s.clk.Now()); err != nil {
		return err
	}
	slog.InfoContext(ctx, "setting updated", "key", key, "value", value)
	return nil
}

// Modules returns the configured module list, falling back to DefaultModules when the
// setting is missing or unreadable.
func (s *Service) Modules(ctx context.Context) ([]string, error) {
	raw, err := s.repo.Get(ctx, domain.SettingModulesList)
	if err != nil {
		if errors.Is(err, settingsrepo.ErrNotFound) {
			return slices.Clone(DefaultModules), nil
		}
		return nil, err
	}
	var modules []string
	if raw == "" || json.Unmarshal([]byte(raw), &modules) != nil {
		slog.WarnContext(ctx, "unreadable module list; using defaults")
		return slices.Clone(DefaultModules), nil
	}
	if modules == nil {
		modules = []string{}
	}
	return modules, nil
}

// AddModule appends a module. Concurrent calls fail with submitlock.ErrInProgress.
func (s *Service) AddModule(ctx context.Context, name string) ([]string, error) {
	return submitlock.Do(ctx, &s.addLock, func(ctx context.Context) ([]string, error) {
		clean, err := NormalizeModuleName(name)
		if err != nil {
			return nil, validationError("name", err.Error())
		}
		return s.editModules(ctx, func(modules []string) ([]string, error) {
			if slices.Contains(modules, clean) {
				return nil, moduleExists(clean)
			}
			if len(modules) >= MaxModules {
				return nil, &Error{
					Status:  422,
					Code:    "TOO_MANY_MODULES",
					Message: fmt.Sprintf("at most %d modules can be configured", MaxModules),
				}
			}
			return append(modules, clean), nil
		})
	})
}

// RenameModule renames a module in place, keeping its position.
func (s *Service) RenameModule(ctx context.Context, oldName, newName string) ([]string, error) {
	return submitlock.Do(ctx, &s.renameLock, func(ctx context.Context) ([]string, error) {
		clean, err := NormalizeModuleName(newName)
		if err != nil {
			return nil, validationError("name", err.Error())
		}
		return s.editModules(ctx, func(modules []string) ([]string, error) {
			i := slices.Index(modules, oldName)
			if i < 0 {
				return nil, moduleNotFound(oldName)
			}
			if clean == oldName {
				return modules, nil
			}
			if slices.Contains(modules, clean) {
				return nil, moduleExists(clean)
			}
			modules[i] = clean
			return modules, nil
		})
	})
}

// DeleteModule removes a module from the list.
func (s *Service) DeleteModule(ctx context.Context, name string) ([]string, error) {
	return submitlock.Do(ctx, &s.deleteLock, func(ctx context.Context) ([]string, error) {
		return s.editModules(ctx, func(modules []string) ([]string, error) {
			i := slices.Index(modules, name)
			if i < 0 {
				return nil, moduleNotFound(name)
			}
			return slices.Delete(modules, i, i+1), nil
		})
	})
}

// editModules applies fn to the current module list and stores the result.
// Edits hold modulesMu from read to write.
func (s *Service) editModules(ctx context.Context, fn func([]string) ([]string, error)) ([]string, error) {
	s.modulesMu.Lock()
	defer s.modulesMu.Unlock()

	modules, err := s.Modules(ctx)
	if err != nil {
		return nil, err
	}
	before := slices.Clone(modules)
	modules, err = fn(modules)
	if err != nil {
		return nil, err
	}
	if slices.Equal(before, modules) {
		return modules, nil
	}
	if err := s.saveModules(ctx, modules); err != nil {
		return nil, err
	}
	return modules, nil
}

func (s *Service) saveModules(ctx context.Context, modules []string) error {
	if modules == nil {
		modules = []string{}
	}
	b, err := json.Marshal(modules)
	if err != nil {
		return err
	}
	if err := s.repo.Set(ctx, domain.SettingModulesList, string(b), s.clk.Now()); err != nil {
		return err
	}
	slog.InfoContext(ctx, "module list updated", "count", len(modules))
	return nil
}

func parseModuleList(raw string) ([]string, error) {
	var in []string
	if err := json.Unmarshal([]byte(raw), &in); err != nil {
		return nil, errors.New("must be a JSON array of strings")
	}
	if len(in) > MaxModules {
		return nil, fmt.Errorf("at most %d modules", MaxModules)
	}
	out := make([]string, 0, len(in))
	for _, name := range in {
		clean, err := NormalizeModuleName(name)
		if err != nil {
			return nil, err
		}
		if slices.Contains(out, clean) {
			return nil, fmt.Errorf("duplicate module %q", clean)
		}
		out = append(out, clean)
	}
	return out, nil
}

func validationError(field, msg string) *Error {
	return &Error{
		Status:  422,
		Code:    "VALIDATION_ERROR",
		Message: "invalid " + field,
		Details: map[string]any{field: msg},
	}
}

func moduleExists(name string) *Error {
	return &Error{
		Status:  409,
		Code:    "MODULE_EXISTS",
		Message: fmt.Sprintf("module %q already exists", name),
	}
}

func moduleNotFound(name string) *Error {
	return &Error{
		Status:  404,
		Code:    "MODULE_NOT_FOUND",
		Message: fmt.Sprintf("module %q not found", name),
	}
}
