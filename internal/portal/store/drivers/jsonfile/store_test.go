package jsonfile_test

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/agriconnect/farmerportal/internal/portal/domain"
	"github.com/agriconnect/farmerportal/internal/portal/store"
	"github.com/agriconnect/farmerportal/internal/portal/store/drivers/jsonfile"
	"github.com/agriconnect/farmerportal/internal/portal/store/storetest"
	"github.com/agriconnect/farmerportal/pkg/cryptox"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func newDirStore(t *testing.T) store.Store {
	t.Helper()
	s, err := jsonfile.NewStore(t.TempDir())
	require.NoError(t, err)
	require.NoError(t, s.ApplyMigrations())
	return s
}

func TestConformance(t *testing.T) {
	storetest.Run(t, newDirStore)
}

func TestApplyMigrationsCreatesFiles(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "data")
	s, err := jsonfile.NewStore(dir)
	require.NoError(t, err)
	require.Error(t, s.Ping(context.Background()))

	require.NoError(t, s.ApplyMigrations())
	require.NoError(t, s.Ping(context.Background()))
	for _, name := range []string{"farmers.json", "admins.json", "subsidies.json", "notifications.json", "market_prices.json"} {
		info, err := os.Stat(filepath.Join(dir, name))
		require.NoError(t, err, name)
		require.Equal(t, os.FileMode(0o600), info.Mode().Perm())
	}
}

func TestDataSurvivesReopen(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()

	s, err := jsonfile.NewStore(dir)
	require.NoError(t, err)
	require.NoError(t, s.ApplyMigrations())

	f := storetest.NewFarmer(1)
	require.NoError(t, s.Farmers().Create(ctx, f))
	require.NoError(t, s.Admins().Create(ctx, storetest.NewAdmin("root@portal.in", domain.RoleMainAdmin)))

	reopened, err := jsonfile.NewStore(dir)
	require.NoError(t, err)
	got, err := reopened.Farmers().GetByEmail(ctx, f.Email)
	require.NoError(t, err)
	require.Equal(t, f.ID, got.ID)
	require.True(t, f.RegisteredAt.Equal(got.RegisteredAt))

	ok, err := reopened.Admins().ExistsWithRole(ctx, domain.RoleMainAdmin)
	require.NoError(t, err)
	require.True(t, ok)
}

func TestWritesOnlyRewriteTouchedFiles(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	s, err := jsonfile.NewStore(dir)
	require.NoError(t, err)
	require.NoError(t, s.ApplyMigrations())

	stat := func(name string) os.FileInfo {
		info, err := os.Stat(filepath.Join(dir, name))
		require.NoError(t, err)
		return info
	}
	untouched := []string{"admins.json", "subsidies.json", "notifications.json", "market_prices.json"}
	before := map[string]os.FileInfo{}
	for _, name := range append(untouched, "farmers.json") {
		before[name] = stat(name)
	}

	f := storetest.NewFarmer(1)
	require.NoError(t, s.Farmers().Create(ctx, f))
	require.NoError(t, s.Farmers().RecordLogin(ctx, f.ID, f.RegisteredAt.Add(time.Hour)))

	// writeJSON renames a fresh file into place, so a rewrite changes identity.
	require.False(t, os.SameFile(before["farmers.json"], stat("farmers.json")))
	for _, name := range untouched {
		require.True(t, os.SameFile(before[name], stat(name)), name)
	}

	admins := stat("admins.json")
	require.NoError(t, s.WithTx(ctx, func(tx store.Tx) error {
		return tx.Admins().Create(ctx, storetest.NewAdmin("root@portal.in", domain.RoleMainAdmin))
	}))
	require.False(t, os.SameFile(admins, stat("admins.json")))
	require.True(t, os.SameFile(before["subsidies.json"], stat("subsidies.json")))
}

func TestApplyMigrationsKeepsExistingFiles(t *testing.T) {
	dir := t.TempDir()
	s, err := jsonfile.NewStore(dir)
	require.NoError(t, err)
	require.NoError(t, s.ApplyMigrations())

	farmers, err := os.Stat(filepath.Join(dir, "farmers.json"))
	require.NoError(t, err)
	require.NoError(t, os.Remove(filepath.Join(dir, "market_prices.json")))

	require.NoError(t, s.ApplyMigrations())
	_, err = os.Stat(filepath.Join(dir, "market_prices.json"))
	require.NoError(t, err)
	again, err := os.Stat(filepath.Join(dir, "farmers.json"))
	require.NoError(t, err)
	require.True(t, os.SameFile(farmers, again))
}

func TestRolledBackTxLeavesFilesUntouched(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	s, err := jsonfile.NewStore(dir)
	require.NoError(t, err)
	require.NoError(t, s.ApplyMigrations())

	before, err := os.ReadFile(filepath.Join(dir, "farmers.json"))
	require.NoError(t, err)

	tx, err := s.Tx(ctx)
	require.NoError(t, err)
	require.NoError(t, tx.Farmers().Create(ctx, storetest.NewFarmer(1)))
	require.NoError(t, tx.Rollback())

	after, err := os.ReadFile(filepath.Join(dir, "farmers.json"))
	require.NoError(t, err)
	require.Equal(t, before, after)

	_, err = tx.Farmers().GetByID(ctx, "frm_any")
	require.Error(t, err, "finished tx must not be reused")
}

// legacyFarmers is a data file written by the earlier Node.js portal.
const legacyFarmers = `{
  "farmers": [
    {
      "_id": "1718000000000",
      "fullName": "Ramesh Gowda",
      "email": "Ramesh@Example.in",
      "mobile": "9876543210",
      "password": "%s",
      "location": "Mandya",
      "cropType": "sugarcane",
      "language": "kannada",
      "status": "approved",
      "isActive": true,
      "isVerified": true,
      "registeredAt": "2024-06-10T06:13:20.000Z",
      "approvedAt": "2024-06-11T08:00:00.000Z",
      "approvedBy": "admin",
      "lastLogin": null
    },
    {
      "_id": "1718000000001",
      "fullName": "Savitha Patil",
      "email": "savitha@example.in",
      "mobile": "9876543211",
      "password": "%s",
      "location": "Dharwad",
      "cropType": "cotton",
      "registeredAt": "2024-06-12T06:13:20.000Z",
      "lastLogin": null
    }
  ]
}`

func TestLoadsLegacyFarmers(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()

	hash, err := bcrypt.GenerateFromPassword([]byte("Passw0rd!"), bcrypt.MinCost)
	require.NoError(t, err)
	doc := []byte(fmtLegacy(string(hash)))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "farmers.json"), doc, 0o600))

	s, err := jsonfile.NewStore(dir)
	require.NoError(t, err)
	require.NoError(t, s.ApplyMigrations())

	ramesh, err := s.Farmers().GetByEmail(ctx, "ramesh@example.in")
	require.NoError(t, err)
	require.Equal(t, "1718000000000", ramesh.ID)
	require.Equal(t, domain.StatusApproved, ramesh.Status)
	require.Equal(t, domain.CropSugarcane, ramesh.CropType)
	require.NotNil(t, ramesh.ApprovedAt)

	ok, err := cryptox.VerifyPassword("Passw0rd!", ramesh.PasswordHash)
	require.NoError(t, err)
	require.True(t, ok)
	require.True(t, cryptox.NeedsRehash(ramesh.PasswordHash))

	savitha, err := s.Farmers().GetByEmail(ctx, "savitha@example.in")
	require.NoError(t, err)
	require.Equal(t, domain.StatusPending, savitha.Status)
	require.Equal(t, domain.LanguageEnglish, savitha.Language)
	require.Equal(t, savitha.RegisteredAt, savitha.UpdatedAt)

	counts, err := s.Farmers().CountByStatus(ctx)
	require.NoError(t, err)
	require.Equal(t, 2, counts.Total())
}

func fmtLegacy(hash string) string {
	return fmt.Sprintf(legacyFarmers, hash, hash)
}
