package settings

import (
	"context"
	"errors"
	"slices"
	"sync"
	"testing"
	"time"

	memclock "github.com/promo-vote/predictions-api/internal/adapters/memory/clock"
	memsettingsrepo "github.com/promo-vote/predictions-api/internal/adapters/memory/settingsrepo"
	"github.com/promo-vote/predictions-api/internal/domain"
	"github.com/promo-vote/predictions-api/internal/platform/submitlock"
	"github.com/promo-vote/predictions-api/internal/ports/out/settingsrepo"
)

func newTestService(seed map[string]string) *Service {
	return NewService(memsettingsrepo.NewRepo(seed), memclock.NewManualClock(time.Unix(100, 0).UTC()))
}

func TestService_Flags(t *testing.T) {
	t.Parallel()

	svc := newTestService(map[string]string{
		domain.SettingVotingEnabled:  "true",
		domain.SettingShowResults:    "false",
		domain.SettingAnonymousVotes: "yes",
	})
	got, err := svc.Flags(context.Background())
	if err != nil {
		t.Fatalf("Flags() err=%v", err)
	}
	want := domain.Flags{VotingEnabled: true}
	if got != want {
		t.Fatalf("Flags()=%+v, want %+v", got, want)
	}
}

func TestDefaults_OpenVotingWithHiddenAnonymousResults(t *testing.T) {
	t.Parallel()

	got, err := newTestService(Defaults()).Flags(context.Background())
	if err != nil {
		t.Fatalf("Flags() err=%v", err)
	}
	want := domain.Flags{VotingEnabled: true, AnonymousVotes: true}
	if got != want {
		t.Fatalf("Flags()=%+v, want %+v", got, want)
	}
}

func TestService_Update(t *testing.T) {
	t.Parallel()

	svc := newTestService(nil)
	if err := svc.Update(context.Background(), domain.SettingShowResults, " TRUE "); err != nil {
		t.Fatalf("Update() err=%v", err)
	}
	flags, _ := svc.Flags(context.Background())
	if !flags.ShowResults {
		t.Fatalf("ShowResults=false after update")
	}

	tests := []struct {
		key, value string
		wantStatus int
	}{
		{key: domain.SettingVotingEnabled, value: "maybe", wantStatus: 422},
		{key: "theme", value: "dark", wantStatus: 404},
		{key: domain.SettingModulesList, value: "not json", wantStatus: 422},
		{key: domain.SettingModulesList, value: `["A","A"]`, wantStatus: 422},
	}
	for _, tt := range tests {
		err := svc.Update(context.Background(), tt.key, tt.value)
		ae := (*Error)(nil)
		if !errors.As(err, &ae) || ae.Status != tt.wantStatus {
			t.Fatalf("Update(%q,%q) err=%v, want status %d", tt.key, tt.value, err, tt.wantStatus)
		}
	}

	if err := svc.Update(context.Background(), domain.SettingModulesList, `[" Analyse ","<Physique>"]`); err != nil {
		t.Fatalf("Update(modules) err=%v", err)
	}
	got, _ := svc.Modules(context.Background())
	if !slices.Equal(got, []string{"Analyse", "Physique"}) {
		t.Fatalf("Modules()=%v", got)
	}
}

func TestService_ModulesDefaults(t *testing.T) {
	t.Parallel()

	for name, seed := range map[string]map[string]string{
		"unset":      nil,
		"unreadable": {domain.SettingModulesList: "{oops"},
	} {
		got, err := newTestService(seed).Modules(context.Background())
		if err != nil {
			t.Fatalf("%s: Modules() err=%v", name, err)
		}
		if !slices.Equal(got, DefaultModules) {
			t.Fatalf("%s: Modules()=%v, want defaults", name, got)
		}
	}
}

func TestService_ModuleLifecycle(t *testing.T) {
	t.Parallel()

	svc := newTestService(map[string]string{domain.SettingModulesList: `["Analyse","Physique"]`})
	ctx := context.Background()

	got, err := svc.AddModule(ctx, " Économie ")
	if err != nil {
		t.Fatalf("AddModule() err=%v", err)
	}
	if !slices.Equal(got, []string{"Analyse", "Physique", "Économie"}) {
		t.Fatalf("AddModule()=%v", got)
	}

	ae := (*Error)(nil)
	if _, err := svc.AddModule(ctx, "Analyse"); !errors.As(err, &ae) || ae.Code != "MODULE_EXISTS" {
		t.Fatalf("AddModule(dup) err=%v, want MODULE_EXISTS", err)
	}
	if _, err := svc.AddModule(ctx, "C++"); !errors.As(err, &ae) || ae.Code != "VALIDATION_ERROR" {
		t.Fatalf("AddModule(invalid) err=%v, want VALIDATION_ERROR", err)
	}

	got, err = svc.RenameModule(ctx, "Physique", "Physique 2")
	if err != nil || !slices.Equal(got, []string{"Analyse", "Physique 2", "Économie"}) {
		t.Fatalf("RenameModule()=%v err=%v", got, err)
	}
	if _, err := svc.RenameModule(ctx, "Analyse", "Économie"); !errors.As(err, &ae) || ae.Code != "MODULE_EXISTS" {
		t.Fatalf("RenameModule(collision) err=%v, want MODULE_EXISTS", err)
	}
	if _, err := svc.RenameModule(ctx, "Chimie", "Chimie 2"); !errors.As(err, &ae) || ae.Code != "MODULE_NOT_FOUND" {
		t.Fatalf("RenameModule(missing) err=%v, want MODULE_NOT_FOUND", err)
	}

	got, err = svc.DeleteModule(ctx, "Analyse")
	if err != nil || !slices.Equal(got, []string{"Physique 2", "Économie"}) {
		t.Fatalf("DeleteModule()=%v err=%v", got, err)
	}
	if _, err := svc.DeleteModule(ctx, "Analyse"); !errors.As(err, &ae) || ae.Status != 404 {
		t.Fatalf("DeleteModule(missing) err=%v, want 404", err)
	}
}

func TestService_AddModuleCap(t *testing.T) {
	t.Parallel()

	svc := newTestService(nil)
	ctx := context.Background()
	names := make([]string, 0, MaxModules)
	for i := 0; len(names) < MaxModules; i++ {
		names = append(names, "Module "+string(rune('A'+i/26))+string(rune('a'+i%26)))
	}
	if err := svc.saveModules(ctx, names); err != nil {
		t.Fatalf("saveModules() err=%v", err)
	}
	_, err := svc.AddModule(ctx, "Extra")
	ae := (*Error)(nil)
	if !errors.As(err, &ae) || ae.Code != "TOO_MANY_MODULES" {
		t.Fatalf("AddModule() err=%v, want TOO_MANY_MODULES", err)
	}
}

func TestService_AddModuleRejectsConcurrentSubmission(t *testing.T) {
	t.Parallel()

	svc := newTestService(nil)
	release := make(chan struct{})
	entered := make(chan struct{})
	done := make(chan error, 1)
	go func() {
		done <- svc.addLock.Run(context.Background(), func(context.Context) error {
			close(entered)
			<-release
			return nil
		})
	}()
	<-entered

	if _, err := svc.AddModule(context.Background(), "Chimie"); !errors.Is(err, submitlock.ErrInProgress) {
		t.Fatalf("AddModule() err=%v, want ErrInProgress", err)
	}
	// Other module operations have their own locks.
	if _, err := svc.DeleteModule(context.Background(), "Analyse"); err != nil {
		t.Fatalf("DeleteModule() err=%v", err)
	}

	close(release)
	if err := <-done; err != nil {
		t.Fatalf("held Run err=%v", err)
	}
	if _, err := svc.AddModule(context.Background(), "Chimie"); err != nil {
		t.Fatalf("AddModule() after release err=%v", err)
	}
}

// slowReadRepo holds every read open for a while so overlapping edits see the same list.
type slowReadRepo struct {
	settingsrepo.Repository
	delay time.Duration
}

func (r slowReadRepo) Get(ctx context.Context, key string) (string, error) {
	v, err := r.Repository.Get(ctx, key)
	time.Sleep(r.delay)
	return v, err
}

func TestService_ConcurrentModuleEditsKeepEveryChange(t *testing.T) {
	t.Parallel()

	repo := slowReadRepo{
		Repository: memsettingsrepo.NewRepo(map[string]string{domain.SettingModulesList: `["A","B"]`}),
		delay:      20 * time.Millisecond,
	}
	svc := NewService(repo, memclock.NewManualClock(time.Unix(100, 0).UTC()))
	ctx := context.Background()

	start := make(chan struct{})
	errs := make(chan error, 3)
	var wg sync.WaitGroup
	wg.Add(3)
	go func() {
		defer wg.Done()
		<-start
		_, err := svc.AddModule(ctx, "C")
		errs <- err
	}()
	go func() {
		defer wg.Done()
		<-start
		_, err := svc.DeleteModule(ctx, "A")
		errs <- err
	}()
	go func() {
		defer wg.Done()
		<-start
		_, err := svc.RenameModule(ctx, "B", "B2")
		errs <- err
	}()
	close(start)
	wg.Wait()
	close(errs)
	for err := range errs {
		if err != nil {
			t.Fatalf("module edit err=%v", err)
		}
	}

	got, err := svc.Modules(ctx)
	if err != nil {
		t.Fatalf("Modules() err=%v", err)
	}
	if !slices.Equal(got, []string{"B2", "C"}) {
		t.Fatalf("Modules()=%v, want [B2 C]", got)
	}
}
