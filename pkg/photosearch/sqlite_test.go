package photosearch

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lumapix/photark/pkg/accessctl"
)

// The end-to-end tests run the real queries against an in-memory SQLite
// catalog. The schema mirrors the Postgres migrations with SQLite column
// affinities.
const sqliteSchema = `
	CREATE TABLE storages (id INTEGER PRIMARY KEY, name TEXT NOT NULL, folder TEXT NOT NULL DEFAULT '');
	CREATE TABLE photos (
		id INTEGER PRIMARY KEY,
		storage_id INTEGER NOT NULL,
		relative_path TEXT NOT NULL DEFAULT '',
		taken_date TIMESTAMP,
		taken_day INT,
		taken_month INT,
		is_bw BOOLEAN NOT NULL DEFAULT 0,
		is_adult BOOLEAN NOT NULL DEFAULT 0,
		is_racy BOOLEAN NOT NULL DEFAULT 0
	);
	CREATE TABLE photo_captions (id INTEGER PRIMARY KEY, photo_id INTEGER NOT NULL, caption TEXT NOT NULL);
	CREATE TABLE tags (id INTEGER PRIMARY KEY, name TEXT NOT NULL);
	CREATE TABLE photo_tags (photo_id INTEGER NOT NULL, tag_id INTEGER NOT NULL);
	CREATE TABLE persons (id INTEGER PRIMARY KEY, name TEXT NOT NULL);
	CREATE TABLE person_groups (id INTEGER PRIMARY KEY, name TEXT NOT NULL);
	CREATE TABLE person_person_groups (person_id INTEGER NOT NULL, person_group_id INTEGER NOT NULL);
	CREATE TABLE faces (id INTEGER PRIMARY KEY, photo_id INTEGER NOT NULL, person_id INTEGER);
`

// Fixture catalog:
//
//	photo 1  storage 1  2019-03-10        faceless, caption "Sunset at the beach", tags beach
//	photo 2  storage 1  2021-03-31 18:30  face alice (group 10), tags beach+family
//	photo 3  storage 1  no taken date     faceless, adult
//	photo 4  storage 2  2020-05-05        face bob (group 20)
//	photo 5  storage 1  2019-04-01        faceless, racy
//	photo 6  storage 1  2019-03-10        unidentified face
func newCatalog(t *testing.T) *sql.DB {
	t.Helper()

	db, err := sql.Open("sqlite3", ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	_, err = db.Exec(sqliteSchema)
	require.NoError(t, err)

	ts := func(y int, m time.Month, d, hh, mm int) time.Time {
		return time.Date(y, m, d, hh, mm, 0, 0, time.UTC)
	}

	stmts := []struct {
		sql  string
		args []any
	}{
		{`INSERT INTO storages (id, name) VALUES (1, 'main'), (2, 'archive')`, nil},
		{`INSERT INTO persons (id, name) VALUES (1, 'alice'), (2, 'bob')`, nil},
		{`INSERT INTO person_groups (id, name) VALUES (10, 'family'), (20, 'friends')`, nil},
		{`INSERT INTO person_person_groups (person_id, person_group_id) VALUES (1, 10), (2, 20)`, nil},

		{`INSERT INTO photos (id, storage_id, relative_path, taken_date, taken_day, taken_month, is_bw, is_adult, is_racy)
			VALUES (1, 1, '2019/spring', ?, 10, 3, 0, 0, 0)`, []any{ts(2019, 3, 10, 9, 0)}},
		{`INSERT INTO photos (id, storage_id, relative_path, taken_date, taken_day, taken_month, is_bw, is_adult, is_racy)
			VALUES (2, 1, '2021/march', ?, 31, 3, 1, 0, 0)`, []any{ts(2021, 3, 31, 18, 30)}},
		{`INSERT INTO photos (id, storage_id, relative_path, is_adult)
			VALUES (3, 1, 'scans', 1)`, nil},
		{`INSERT INTO photos (id, storage_id, relative_path, taken_date, taken_day, taken_month)
			VALUES (4, 2, '2020/may', ?, 5, 5)`, []any{ts(2020, 5, 5, 12, 0)}},
		{`INSERT INTO photos (id, storage_id, relative_path, taken_date, taken_day, taken_month, is_racy)
			VALUES (5, 1, '2019/spring', ?, 1, 4, 1)`, []any{ts(2019, 4, 1, 16, 45)}},
		{`INSERT INTO photos (id, storage_id, relative_path, taken_date, taken_day, taken_month)
			VALUES (6, 1, '2019/spring', ?, 10, 3)`, []any{ts(2019, 3, 10, 9, 0)}},

		{`INSERT INTO photo_captions (photo_id, caption) VALUES (1, 'Sunset at the beach')`, nil},
		{`INSERT INTO photo_captions (photo_id, caption) VALUES (2, 'Family picnic')`, nil},

		{`INSERT INTO tags (id, name) VALUES (1, 'beach'), (2, 'family')`, nil},
		{`INSERT INTO photo_tags (photo_id, tag_id) VALUES (1, 1), (2, 1), (2, 2)`, nil},

		{`INSERT INTO faces (photo_id, person_id) VALUES (2, 1)`, nil},
		{`INSERT INTO faces (photo_id, person_id) VALUES (4, 2)`, nil},
		{`INSERT INTO faces (photo_id, person_id) VALUES (6, NULL)`, nil},
	}
	for _, s := range stmts {
		_, err := db.Exec(s.sql, s.args...)
		require.NoError(t, err, s.sql)
	}

	return db
}

type staticResolver struct {
	access map[uuid.UUID]accessctl.EffectiveAccess
}

func (r staticResolver) Resolve(_ context.Context, id accessctl.Identity) (accessctl.EffectiveAccess, error) {
	if id.IsAdmin {
		return accessctl.AdminAccess(), nil
	}
	return r.access[id.UserID], nil
}

func newTestService(t *testing.T, access accessctl.EffectiveAccess) (*Service, accessctl.Identity) {
	t.Helper()

	userID := uuid.New()
	svc := NewService(newCatalog(t), staticResolver{
		access: map[uuid.UUID]accessctl.EffectiveAccess{userID: access},
	}, ServiceOptions{})
	svc.now = func() time.Time { return time.Date(2024, 3, 10, 12, 0, 0, 0, time.UTC) }
	return svc, accessctl.Identity{UserID: userID}
}

func photoIDs(p *Page) []int64 {
	ids := make([]int64, len(p.Items))
	for i, item := range p.Items {
		ids[i] = item.ID
	}
	return ids
}

func TestSearch_AdminSeesFullCatalog(t *testing.T) {
	svc, _ := newTestService(t, accessctl.EffectiveAccess{})
	admin := accessctl.Identity{UserID: uuid.New(), IsAdmin: true}

	page, err := svc.Search(context.Background(), admin, SearchFilter{})
	require.NoError(t, err)

	assert.Equal(t, 6, page.TotalCount)
	// Newest first, ties broken by descending id, undated photos last.
	assert.Equal(t, []int64{2, 4, 5, 6, 1, 3}, photoIDs(page))
}

func TestSearch_DenyAllUserSeesNothing(t *testing.T) {
	svc, id := newTestService(t, accessctl.DenyAll())

	page, err := svc.Search(context.Background(), id, SearchFilter{})
	require.NoError(t, err)

	assert.Equal(t, 0, page.TotalCount)
	assert.Empty(t, page.Items)
}

func TestSearch_StorageScope(t *testing.T) {
	svc, id := newTestService(t, accessctl.EffectiveAccess{
		StorageIDs: []int64{1},
		CanSeeNSFW: true,
	})

	page, err := svc.Search(context.Background(), id, SearchFilter{})
	require.NoError(t, err)

	// Storage 2 is out of scope and, with no group grants, only faceless
	// photos remain.
	assert.Equal(t, 3, page.TotalCount)
	assert.Equal(t, []int64{5, 1, 3}, photoIDs(page))
}

func TestSearch_NSFWGate(t *testing.T) {
	svc, id := newTestService(t, accessctl.EffectiveAccess{StorageIDs: []int64{1}})

	page, err := svc.Search(context.Background(), id, SearchFilter{})
	require.NoError(t, err)

	assert.Equal(t, []int64{1}, photoIDs(page))
}

func TestSearch_PersonGroupsUnlockMatchingFaces(t *testing.T) {
	svc, id := newTestService(t, accessctl.EffectiveAccess{
		StorageIDs:     []int64{1},
		PersonGroupIDs: []int64{10},
		CanSeeNSFW:     true,
	})

	page, err := svc.Search(context.Background(), id, SearchFilter{})
	require.NoError(t, err)

	// Photo 2 (alice, group 10) becomes visible; photo 6 keeps its
	// unidentified face and stays hidden.
	assert.Equal(t, []int64{2, 5, 1, 3}, photoIDs(page))
}

func TestSearch_DateRangesORTogether(t *testing.T) {
	svc, id := newTestService(t, accessctl.EffectiveAccess{
		StorageIDs:     []int64{1},
		PersonGroupIDs: []int64{10},
		CanSeeNSFW:     true,
		DateRanges: []accessctl.DateRange{
			{From: time.Date(2019, 1, 1, 0, 0, 0, 0, time.UTC), To: time.Date(2019, 6, 30, 0, 0, 0, 0, time.UTC)},
			{From: time.Date(2021, 3, 1, 0, 0, 0, 0, time.UTC), To: time.Date(2021, 3, 31, 0, 0, 0, 0, time.UTC)},
		},
	})

	page, err := svc.Search(context.Background(), id, SearchFilter{})
	require.NoError(t, err)

	// Photo 2 was taken at 18:30 on the last granted day and still passes;
	// the undated photo 3 is never excluded on date grounds.
	assert.Equal(t, []int64{2, 5, 1, 3}, photoIDs(page))
}

func TestSearch_TagANDSemantics(t *testing.T) {
	svc, _ := newTestService(t, accessctl.EffectiveAccess{})
	admin := accessctl.Identity{UserID: uuid.New(), IsAdmin: true}

	page, err := svc.Search(context.Background(), admin, SearchFilter{TagIDs: []int64{1}})
	require.NoError(t, err)
	assert.Equal(t, []int64{2, 1}, photoIDs(page))

	// Requiring both tags narrows to the photo carrying both.
	page, err = svc.Search(context.Background(), admin, SearchFilter{TagIDs: []int64{1, 2}})
	require.NoError(t, err)
	assert.Equal(t, []int64{2}, photoIDs(page))
}

func TestSearch_CaptionSearch(t *testing.T) {
	svc, _ := newTestService(t, accessctl.EffectiveAccess{})
	admin := accessctl.Identity{UserID: uuid.New(), IsAdmin: true}

	page, err := svc.Search(context.Background(), admin, SearchFilter{Caption: "BEACH sunset"})
	require.NoError(t, err)
	assert.Equal(t, []int64{1}, photoIDs(page))
}

func TestSearch_PersonFilter(t *testing.T) {
	svc, _ := newTestService(t, accessctl.EffectiveAccess{})
	admin := accessctl.Identity{UserID: uuid.New(), IsAdmin: true}

	page, err := svc.Search(context.Background(), admin, SearchFilter{PersonIDs: []int64{1}})
	require.NoError(t, err)
	assert.Equal(t, []int64{2}, photoIDs(page))
}

func TestSearch_ThisDay(t *testing.T) {
	svc, _ := newTestService(t, accessctl.EffectiveAccess{})
	admin := accessctl.Identity{UserID: uuid.New(), IsAdmin: true}

	// The service clock is pinned to March 10.
	page, err := svc.Search(context.Background(), admin, SearchFilter{ThisDay: true})
	require.NoError(t, err)
	assert.Equal(t, []int64{6, 1}, photoIDs(page))
}

func TestSearch_StoragePathScope(t *testing.T) {
	svc, _ := newTestService(t, accessctl.EffectiveAccess{})
	admin := accessctl.Identity{UserID: uuid.New(), IsAdmin: true}

	page, err := svc.Search(context.Background(), admin, SearchFilter{
		StorageIDs:   []int64{1},
		RelativePath: "2019/spring",
	})
	require.NoError(t, err)
	assert.Equal(t, []int64{5, 6, 1}, photoIDs(page))
}

func TestSearch_Pagination(t *testing.T) {
	svc, _ := newTestService(t, accessctl.EffectiveAccess{})
	admin := accessctl.Identity{UserID: uuid.New(), IsAdmin: true}

	page, err := svc.Search(context.Background(), admin, SearchFilter{Page: 2, PageSize: 2})
	require.NoError(t, err)

	assert.Equal(t, 6, page.TotalCount)
	assert.Equal(t, []int64{5, 6}, photoIDs(page))
	assert.Equal(t, 2, page.Page)
	assert.Equal(t, 2, page.PageSize)

	// Pages past the end are empty but keep the true total.
	page, err = svc.Search(context.Background(), admin, SearchFilter{Page: 9, PageSize: 2})
	require.NoError(t, err)
	assert.Equal(t, 6, page.TotalCount)
	assert.Empty(t, page.Items)
}

func TestSearch_RepeatedFilterIsStable(t *testing.T) {
	svc, _ := newTestService(t, accessctl.EffectiveAccess{})
	admin := accessctl.Identity{UserID: uuid.New(), IsAdmin: true}
	filter := SearchFilter{TagIDs: []int64{2, 1, 1}, Caption: " beach "}

	first, err := svc.Search(context.Background(), admin, filter)
	require.NoError(t, err)
	second, err := svc.Search(context.Background(), admin, filter)
	require.NoError(t, err)

	assert.Equal(t, first, second)
}

func TestGetPhoto_AdminSeesAnyPhoto(t *testing.T) {
	svc, _ := newTestService(t, accessctl.EffectiveAccess{})
	admin := accessctl.Identity{UserID: uuid.New(), IsAdmin: true}

	item, err := svc.GetPhoto(context.Background(), admin, 3)
	require.NoError(t, err)

	assert.Equal(t, int64(3), item.ID)
	assert.True(t, item.IsAdult)
	assert.Nil(t, item.TakenDate)
}

func TestGetPhoto_UnknownIDIsNotFound(t *testing.T) {
	svc, _ := newTestService(t, accessctl.EffectiveAccess{})
	admin := accessctl.Identity{UserID: uuid.New(), IsAdmin: true}

	_, err := svc.GetPhoto(context.Background(), admin, 999)
	assert.ErrorIs(t, err, ErrPhotoNotFound)
}

func TestGetPhoto_HiddenPhotoReadsAsMissing(t *testing.T) {
	svc, id := newTestService(t, accessctl.EffectiveAccess{
		StorageIDs: []int64{1},
		CanSeeNSFW: true,
	})

	// Photo 4 exists but sits in storage 2; the caller cannot tell it
	// apart from a photo that was never there.
	_, err := svc.GetPhoto(context.Background(), id, 4)
	assert.ErrorIs(t, err, ErrPhotoNotFound)

	// Photo 2 carries alice's face and the caller holds no groups.
	_, err = svc.GetPhoto(context.Background(), id, 2)
	assert.ErrorIs(t, err, ErrPhotoNotFound)
}

func TestGetPhoto_GroupGrantUnlocksFace(t *testing.T) {
	svc, id := newTestService(t, accessctl.EffectiveAccess{
		StorageIDs:     []int64{1},
		PersonGroupIDs: []int64{10},
	})

	item, err := svc.GetPhoto(context.Background(), id, 2)
	require.NoError(t, err)
	assert.Equal(t, int64(2), item.ID)
	require.NotNil(t, item.TakenDate)

	// The unidentified face on photo 6 still blocks it.
	_, err = svc.GetPhoto(context.Background(), id, 6)
	assert.ErrorIs(t, err, ErrPhotoNotFound)
}

func TestGetPhoto_NSFWGate(t *testing.T) {
	svc, id := newTestService(t, accessctl.EffectiveAccess{StorageIDs: []int64{1}})

	_, err := svc.GetPhoto(context.Background(), id, 5)
	assert.ErrorIs(t, err, ErrPhotoNotFound)

	item, err := svc.GetPhoto(context.Background(), id, 1)
	require.NoError(t, err)
	assert.Equal(t, int64(1), item.ID)
}
