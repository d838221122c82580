//go:build integration

package accessctl

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/google/uuid"
	_ "github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
)

// setupPostgresTestDB starts a PostgreSQL container and applies the
// access-control migrations.
func setupPostgresTestDB(t *testing.T) *sql.DB {
	t.Helper()

	ctx := context.Background()

	postgresContainer, err := postgres.Run(ctx, "postgres:15-alpine",
		postgres.WithDatabase("accessctl_test"),
		postgres.WithUsername("test"),
		postgres.WithPassword("test"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60*time.Second)),
		postgres.BasicWaitStrategies(),
	)
	require.NoError(t, err, "Failed to start PostgreSQL container")
	t.Cleanup(func() {
		cleanupCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := postgresContainer.Terminate(cleanupCtx); err != nil {
			t.Logf("Warning: Failed to terminate container: %v", err)
		}
	})

	connStr, err := postgresContainer.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	db, err := sql.Open("postgres", connStr)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	require.NoError(t, db.Ping())
	require.NoError(t, RunMigrations(ctx, db))

	return db
}

func TestStoreIntegration_ProfileLifecycle(t *testing.T) {
	db := setupPostgresTestDB(t)
	ctx := context.Background()
	store := NewStore(db)

	profile := &AccessProfile{
		Name:           "family",
		Description:    "family albums",
		CanSeeNSFW:     false,
		StorageIDs:     []int64{1, 2},
		PersonGroupIDs: []int64{10},
		DateRanges: []DateRange{
			{From: time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC), To: time.Date(2020, 12, 31, 0, 0, 0, 0, time.UTC)},
		},
	}
	require.NoError(t, store.CreateProfile(ctx, profile))
	require.NotZero(t, profile.ID)

	loaded, err := store.GetProfile(ctx, profile.ID)
	require.NoError(t, err)
	assert.Equal(t, "family", loaded.Name)
	assert.ElementsMatch(t, []int64{1, 2}, loaded.StorageIDs)
	assert.ElementsMatch(t, []int64{10}, loaded.PersonGroupIDs)
	require.Len(t, loaded.DateRanges, 1)

	loaded.StorageIDs = []int64{2}
	loaded.CanSeeNSFW = true
	require.NoError(t, store.UpdateProfile(ctx, loaded))

	reloaded, err := store.GetProfile(ctx, profile.ID)
	require.NoError(t, err)
	assert.True(t, reloaded.CanSeeNSFW)
	assert.Equal(t, []int64{2}, reloaded.StorageIDs)

	require.NoError(t, store.DeleteProfile(ctx, profile.ID))
	_, err = store.GetProfile(ctx, profile.ID)
	assert.ErrorIs(t, err, ErrProfileNotFound)
}

func TestStoreIntegration_AssignmentsAndResolution(t *testing.T) {
	db := setupPostgresTestDB(t)
	ctx := context.Background()
	store := NewStore(db)

	direct := &AccessProfile{Name: "direct", StorageIDs: []int64{1}}
	require.NoError(t, store.CreateProfile(ctx, direct))
	viaRole := &AccessProfile{Name: "via-role", StorageIDs: []int64{2}, CanSeeNSFW: true}
	require.NoError(t, store.CreateProfile(ctx, viaRole))

	userID := uuid.New()
	roleID := uuid.New()
	require.NoError(t, store.AssignUser(ctx, direct.ID, userID))
	require.NoError(t, store.AssignRole(ctx, viaRole.ID, roleID))

	// assigning twice is a no-op
	require.NoError(t, store.AssignUser(ctx, direct.ID, userID))

	resolver := NewResolver(store, ResolverOptions{})
	access, err := resolver.Resolve(ctx, Identity{UserID: userID, RoleIDs: []uuid.UUID{roleID}})
	require.NoError(t, err)

	// grants from both paths union
	assert.True(t, access.HasStorage(1))
	assert.True(t, access.HasStorage(2))
	assert.False(t, access.HasStorage(3))
	assert.True(t, access.CanSeeNSFW)

	users, err := store.AssignedUsers(ctx)
	require.NoError(t, err)
	assert.Equal(t, []uuid.UUID{userID}, users)

	holders, err := store.UsersHoldingProfile(ctx, direct.ID)
	require.NoError(t, err)
	assert.Equal(t, []uuid.UUID{userID}, holders)

	require.NoError(t, store.UnassignUser(ctx, direct.ID, userID))
	require.NoError(t, store.UnassignRole(ctx, viaRole.ID, roleID))

	resolver.Invalidate(userID)
	access, err = resolver.Resolve(ctx, Identity{UserID: userID})
	require.NoError(t, err)
	assert.False(t, access.HasStorage(1))
}

func TestStoreIntegration_DeleteCascadesAssignments(t *testing.T) {
	db := setupPostgresTestDB(t)
	ctx := context.Background()
	store := NewStore(db)

	profile := &AccessProfile{Name: "transient", StorageIDs: []int64{9}}
	require.NoError(t, store.CreateProfile(ctx, profile))
	userID := uuid.New()
	require.NoError(t, store.AssignUser(ctx, profile.ID, userID))

	require.NoError(t, store.DeleteProfile(ctx, profile.ID))

	var count int
	require.NoError(t, db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM user_access_profiles WHERE profile_id = $1`, profile.ID).Scan(&count))
	assert.Zero(t, count)
}
