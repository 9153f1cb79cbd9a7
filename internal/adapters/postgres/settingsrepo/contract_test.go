package settingsrepo

import (
	"testing"

	"github.com/promo-vote/predictions-api/internal/adapters/contracttest"
	"github.com/promo-vote/predictions-api/internal/adapters/postgres/testutil"
	settingsrepoport "github.com/promo-vote/predictions-api/internal/ports/out/settingsrepo"
)

func TestContract_PostgresSettingsRepo(t *testing.T) {
	pool := testutil.OpenMigratedPool(t)

	contracttest.RunSettingsRepo(t, func(t *testing.T) (settingsrepoport.Repository, func()) {
		t.Helper()
		return NewRepo(pool), nil
	})
}
