package refdata

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/lumapix/photark/pkg/accessctl"
	"github.com/lumapix/photark/pkg/acl"
)

// Tag is a catalog tag visible to the user.
type Tag struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

// Person is a catalog person visible to the user.
type Person struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

// Storage is a photo storage visible to the user.
type Storage struct {
	ID     int64  `json:"id"`
	Name   string `json:"name"`
	Folder string `json:"folder"`
}

// Path is a distinct folder within a storage that holds at least one photo
// visible to the user.
type Path struct {
	StorageID    int64  `json:"storage_id"`
	RelativePath string `json:"relative_path"`
}

// Store runs the reference-list queries against the catalog database.
type Store struct {
	db *sql.DB
}

// NewStore creates a reference-data store.
func NewStore(db *sql.DB) *Store {
	return &Store{db: db}
}

// Tags lists tags carried by at least one photo the user can see. Admins
// get the full tag list.
func (s *Store) Tags(ctx context.Context, access accessctl.EffectiveAccess) ([]Tag, error) {
	b := acl.NewSQLBuilder()
	where := "TRUE"
	if !access.IsAdmin {
		pred, err := acl.PhotoPredicate(access)
		if err != nil {
			return nil, fmt.Errorf("failed to compile access predicate: %w", err)
		}
		where = b.Compile(acl.Exists{
			Table: "photo_tags",
			Alias: "pt",
			Join:  "pt.tag_id = t.id",
			Where: acl.Exists{
				Table: "photos",
				Alias: "p",
				Join:  "p.id = pt.photo_id",
				Where: pred,
			},
		})
	}

	query := "SELECT t.id, t.name FROM tags t WHERE " + where + " ORDER BY t.name, t.id"
	rows, err := s.db.QueryContext(ctx, query, b.Args()...)
	if err != nil {
		return nil, fmt.Errorf("failed to query tags: %w", err)
	}
	defer rows.Close()

	tags := []Tag{}
	for rows.Next() {
		var t Tag
		if err := rows.Scan(&t.ID, &t.Name); err != nil {
			return nil, fmt.Errorf("failed to scan tag: %w", err)
		}
		tags = append(tags, t)
	}
	return tags, rows.Err()
}

// Persons lists persons belonging to at least one granted group. Admins get
// everyone.
func (s *Store) Persons(ctx context.Context, access accessctl.EffectiveAccess) ([]Person, error) {
	b := acl.NewSQLBuilder()
	where := "TRUE"
	if !access.IsAdmin {
		pred, err := acl.PersonPredicate(access)
		if err != nil {
			return nil, fmt.Errorf("failed to compile access predicate: %w", err)
		}
		where = b.Compile(pred)
	}

	query := "SELECT pr.id, pr.name FROM persons pr WHERE " + where + " ORDER BY pr.name, pr.id"
	rows, err := s.db.QueryContext(ctx, query, b.Args()...)
	if err != nil {
		return nil, fmt.Errorf("failed to query persons: %w", err)
	}
	defer rows.Close()

	persons := []Person{}
	for rows.Next() {
		var p Person
		if err := rows.Scan(&p.ID, &p.Name); err != nil {
			return nil, fmt.Errorf("failed to scan person: %w", err)
		}
		persons = append(persons, p)
	}
	return persons, rows.Err()
}

// Storages lists granted storages. Admins get all of them.
func (s *Store) Storages(ctx context.Context, access accessctl.EffectiveAccess) ([]Storage, error) {
	b := acl.NewSQLBuilder()
	where := "TRUE"
	if !access.IsAdmin {
		pred, err := acl.StoragePredicate(access)
		if err != nil {
			return nil, fmt.Errorf("failed to compile access predicate: %w", err)
		}
		where = b.Compile(pred)
	}

	query := "SELECT s.id, s.name, s.folder FROM storages s WHERE " + where + " ORDER BY s.name, s.id"
	rows, err := s.db.QueryContext(ctx, query, b.Args()...)
	if err != nil {
		return nil, fmt.Errorf("failed to query storages: %w", err)
	}
	defer rows.Close()

	storages := []Storage{}
	for rows.Next() {
		var st Storage
		if err := rows.Scan(&st.ID, &st.Name, &st.Folder); err != nil {
			return nil, fmt.Errorf("failed to scan storage: %w", err)
		}
		storages = append(storages, st)
	}
	return storages, rows.Err()
}

// Paths lists the distinct storage folders that contain at least one photo
// visible to the user.
func (s *Store) Paths(ctx context.Context, access accessctl.EffectiveAccess) ([]Path, error) {
	b := acl.NewSQLBuilder()
	where := "TRUE"
	if !access.IsAdmin {
		pred, err := acl.PhotoPredicate(access)
		if err != nil {
			return nil, fmt.Errorf("failed to compile access predicate: %w", err)
		}
		where = b.Compile(pred)
	}

	query := "SELECT DISTINCT p.storage_id, p.relative_path FROM photos p WHERE " + where +
		" ORDER BY p.storage_id, p.relative_path"
	rows, err := s.db.QueryContext(ctx, query, b.Args()...)
	if err != nil {
		return nil, fmt.Errorf("failed to query paths: %w", err)
	}
	defer rows.Close()

	paths := []Path{}
	for rows.Next() {
		var p Path
		if err := rows.Scan(&p.StorageID, &p.RelativePath); err != nil {
			return nil, fmt.Errorf("failed to scan path: %w", err)
		}
		paths = append(paths, p)
	}
	return paths, rows.Err()
}
