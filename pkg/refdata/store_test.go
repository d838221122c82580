package refdata

import (
	"context"
	"database/sql"
	"testing"

	_ "github.com/mattn/go-sqlite3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lumapix/photark/pkg/accessctl"
)

// Fixture catalog: storage 1 holds a faceless beach photo, storage 2 holds
// a family photo with bob's face (group 20). alice belongs to group 10.
func newRefCatalog(t *testing.T) *sql.DB {
	t.Helper()

	db, err := sql.Open("sqlite3", ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	stmts := []string{
		`CREATE TABLE storages (id INTEGER PRIMARY KEY, name TEXT NOT NULL, folder TEXT NOT NULL DEFAULT '')`,
		`CREATE TABLE photos (
			id INTEGER PRIMARY KEY,
			storage_id INTEGER NOT NULL,
			relative_path TEXT NOT NULL DEFAULT '',
			taken_date TIMESTAMP,
			taken_day INT,
			taken_month INT,
			is_bw BOOLEAN NOT NULL DEFAULT 0,
			is_adult BOOLEAN NOT NULL DEFAULT 0,
			is_racy BOOLEAN NOT NULL DEFAULT 0
		)`,
		`CREATE TABLE tags (id INTEGER PRIMARY KEY, name TEXT NOT NULL)`,
		`CREATE TABLE photo_tags (photo_id INTEGER NOT NULL, tag_id INTEGER NOT NULL)`,
		`CREATE TABLE persons (id INTEGER PRIMARY KEY, name TEXT NOT NULL)`,
		`CREATE TABLE person_groups (id INTEGER PRIMARY KEY, name TEXT NOT NULL)`,
		`CREATE TABLE person_person_groups (person_id INTEGER NOT NULL, person_group_id INTEGER NOT NULL)`,
		`CREATE TABLE faces (id INTEGER PRIMARY KEY, photo_id INTEGER NOT NULL, person_id INTEGER)`,

		`INSERT INTO storages (id, name, folder) VALUES (1, 'main', '/photos'), (2, 'archive', '/old')`,
		`INSERT INTO persons (id, name) VALUES (1, 'alice'), (2, 'bob')`,
		`INSERT INTO person_groups (id, name) VALUES (10, 'family'), (20, 'friends')`,
		`INSERT INTO person_person_groups (person_id, person_group_id) VALUES (1, 10), (2, 20)`,
		`INSERT INTO photos (id, storage_id, relative_path) VALUES (1, 1, '2019/spring'), (2, 2, 'archive/box1')`,
		`INSERT INTO tags (id, name) VALUES (1, 'beach'), (2, 'family')`,
		`INSERT INTO photo_tags (photo_id, tag_id) VALUES (1, 1), (2, 2)`,
		`INSERT INTO faces (photo_id, person_id) VALUES (2, 2)`,
	}
	for _, s := range stmts {
		_, err := db.Exec(s)
		require.NoError(t, err, s)
	}
	return db
}

func TestStore_ScopedLists(t *testing.T) {
	store := NewStore(newRefCatalog(t))
	ctx := context.Background()
	access := accessctl.EffectiveAccess{
		StorageIDs:     []int64{1},
		PersonGroupIDs: []int64{10},
		CanSeeNSFW:     true,
	}

	tags, err := store.Tags(ctx, access)
	require.NoError(t, err)
	assert.Equal(t, []Tag{{ID: 1, Name: "beach"}}, tags)

	persons, err := store.Persons(ctx, access)
	require.NoError(t, err)
	assert.Equal(t, []Person{{ID: 1, Name: "alice"}}, persons)

	storages, err := store.Storages(ctx, access)
	require.NoError(t, err)
	assert.Equal(t, []Storage{{ID: 1, Name: "main", Folder: "/photos"}}, storages)

	paths, err := store.Paths(ctx, access)
	require.NoError(t, err)
	assert.Equal(t, []Path{{StorageID: 1, RelativePath: "2019/spring"}}, paths)
}

func TestStore_AdminSeesEverything(t *testing.T) {
	store := NewStore(newRefCatalog(t))
	ctx := context.Background()
	admin := accessctl.AdminAccess()

	tags, err := store.Tags(ctx, admin)
	require.NoError(t, err)
	assert.Len(t, tags, 2)

	persons, err := store.Persons(ctx, admin)
	require.NoError(t, err)
	assert.Len(t, persons, 2)

	storages, err := store.Storages(ctx, admin)
	require.NoError(t, err)
	assert.Len(t, storages, 2)

	paths, err := store.Paths(ctx, admin)
	require.NoError(t, err)
	assert.Len(t, paths, 2)
}

func TestStore_DenyAllListsAreEmpty(t *testing.T) {
	store := NewStore(newRefCatalog(t))
	ctx := context.Background()
	deny := accessctl.DenyAll()

	tags, err := store.Tags(ctx, deny)
	require.NoError(t, err)
	assert.Empty(t, tags)

	persons, err := store.Persons(ctx, deny)
	require.NoError(t, err)
	assert.Empty(t, persons)

	storages, err := store.Storages(ctx, deny)
	require.NoError(t, err)
	assert.Empty(t, storages)

	paths, err := store.Paths(ctx, deny)
	require.NoError(t, err)
	assert.Empty(t, paths)
}
