package settingsrepo

import (
	"testing"

	"github.com/promo-vote/predictions-api/internal/adapters/contracttest"
	settingsrepoport "github.com/promo-vote/predictions-api/internal/ports/out/settingsrepo"
)

func TestContract_SettingsRepo(t *testing.T) {
	contracttest.RunSettingsRepo(t, func(t *testing.T) (settingsrepoport.Repository, func()) {
		t.Helper()
		return NewRepo(map[string]string{"voting_enabled": "true"}), nil
	})
}
