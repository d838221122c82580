package accessctl

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
)

// ErrProfileNotFound is returned when a profile id or name does not exist.
var ErrProfileNotFound = errors.New("access profile not found")

// Store handles access-control data persistence
type Store struct {
	db *sql.DB
}

// NewStore creates a new access-control store
func NewStore(db *sql.DB) *Store {
	return &Store{db: db}
}

// CreateProfile creates a new access profile with its grants.
func (s *Store) CreateProfile(ctx context.Context, profile *AccessProfile) error {
	if profile.Name == "" {
		return fmt.Errorf("profile name must not be empty")
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	now := time.Now()
	err = tx.QueryRowContext(ctx, `
		INSERT INTO access_profiles (name, description, can_see_nsfw, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id
	`,
		profile.Name,
		profile.Description,
		profile.CanSeeNSFW,
		now,
		now,
	).Scan(&profile.ID)
	if err != nil {
		return fmt.Errorf("failed to create access profile: %w", err)
	}

	if err := insertGrants(ctx, tx, profile); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit profile creation: %w", err)
	}

	profile.CreatedAt = now
	profile.UpdatedAt = now
	return nil
}

// GetProfile retrieves a profile and its grants by id.
func (s *Store) GetProfile(ctx context.Context, profileID int64) (*AccessProfile, error) {
	var profile AccessProfile
	err := s.db.QueryRowContext(ctx, `
		SELECT id, name, description, can_see_nsfw, created_at, updated_at
		FROM access_profiles
		WHERE id = $1
	`, profileID).Scan(
		&profile.ID,
		&profile.Name,
		&profile.Description,
		&profile.CanSeeNSFW,
		&profile.CreatedAt,
		&profile.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("%w: %d", ErrProfileNotFound, profileID)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get access profile: %w", err)
	}

	if err := s.loadGrants(ctx, []*AccessProfile{&profile}); err != nil {
		return nil, err
	}

	return &profile, nil
}

// ListProfiles lists all profiles with their grants, ordered by name.
func (s *Store) ListProfiles(ctx context.Context) ([]AccessProfile, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, name, description, can_see_nsfw, created_at, updated_at
		FROM access_profiles
		ORDER BY name ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to list access profiles: %w", err)
	}
	defer rows.Close()

	var profiles []AccessProfile
	for rows.Next() {
		var p AccessProfile
		if err := rows.Scan(&p.ID, &p.Name, &p.Description, &p.CanSeeNSFW, &p.CreatedAt, &p.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan access profile: %w", err)
		}
		profiles = append(profiles, p)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	refs := make([]*AccessProfile, len(profiles))
	for i := range profiles {
		refs[i] = &profiles[i]
	}
	if err := s.loadGrants(ctx, refs); err != nil {
		return nil, err
	}

	return profiles, nil
}

// UpdateProfile replaces a profile's fields and grants.
func (s *Store) UpdateProfile(ctx context.Context, profile *AccessProfile) error {
	if profile.Name == "" {
		return fmt.Errorf("profile name must not be empty")
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	profile.UpdatedAt = time.Now()
	res, err := tx.ExecContext(ctx, `
		UPDATE access_profiles
		SET name = $1, description = $2, can_see_nsfw = $3, updated_at = $4
		WHERE id = $5
	`,
		profile.Name,
		profile.Description,
		profile.CanSeeNSFW,
		profile.UpdatedAt,
		profile.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update access profile: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("%w: %d", ErrProfileNotFound, profile.ID)
	}

	for _, table := range []string{"access_profile_storages", "access_profile_person_groups", "access_profile_date_ranges"} {
		if _, err := tx.ExecContext(ctx, fmt.Sprintf(`DELETE FROM %s WHERE profile_id = $1`, table), profile.ID); err != nil {
			return fmt.Errorf("failed to clear profile grants: %w", err)
		}
	}

	if err := insertGrants(ctx, tx, profile); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit profile update: %w", err)
	}
	return nil
}

// DeleteProfile removes a profile. Grant and assignment rows cascade.
func (s *Store) DeleteProfile(ctx context.Context, profileID int64) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM access_profiles WHERE id = $1`, profileID)
	if err != nil {
		return fmt.Errorf("failed to delete access profile: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("%w: %d", ErrProfileNotFound, profileID)
	}
	return nil
}

// AssignUser links a user to a profile. Assigning twice is a no-op.
func (s *Store) AssignUser(ctx context.Context, profileID int64, userID uuid.UUID) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO user_access_profiles (user_id, profile_id)
		VALUES ($1, $2)
		ON CONFLICT (user_id, profile_id) DO NOTHING
	`, userID, profileID)
	if err != nil {
		return fmt.Errorf("failed to assign profile to user: %w", err)
	}
	return nil
}

// UnassignUser removes a user's link to a profile.
func (s *Store) UnassignUser(ctx context.Context, profileID int64, userID uuid.UUID) error {
	_, err := s.db.ExecContext(ctx,
		`DELETE FROM user_access_profiles WHERE user_id = $1 AND profile_id = $2`,
		userID, profileID)
	if err != nil {
		return fmt.Errorf("failed to unassign profile from user: %w", err)
	}
	return nil
}

// AssignRole links a role to a profile. Assigning twice is a no-op.
func (s *Store) AssignRole(ctx context.Context, profileID int64, roleID uuid.UUID) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO role_access_profiles (role_id, profile_id)
		VALUES ($1, $2)
		ON CONFLICT (role_id, profile_id) DO NOTHING
	`, roleID, profileID)
	if err != nil {
		return fmt.Errorf("failed to assign profile to role: %w", err)
	}
	return nil
}

// UnassignRole removes a role's link to a profile.
func (s *Store) UnassignRole(ctx context.Context, profileID int64, roleID uuid.UUID) error {
	_, err := s.db.ExecContext(ctx,
		`DELETE FROM role_access_profiles WHERE role_id = $1 AND profile_id = $2`,
		roleID, profileID)
	if err != nil {
		return fmt.Errorf("failed to unassign profile from role: %w", err)
	}
	return nil
}

// ProfilesForIdentity loads every profile assigned to the user directly or
// through any of the given roles. An unknown user simply has no rows: the
// result is an empty slice, not an error.
func (s *Store) ProfilesForIdentity(ctx context.Context, userID uuid.UUID, roleIDs []uuid.UUID) ([]AccessProfile, error) {
	roles := make([]string, len(roleIDs))
	for i, id := range roleIDs {
		roles[i] = id.String()
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT DISTINCT p.id, p.name, p.description, p.can_see_nsfw, p.created_at, p.updated_at
		FROM access_profiles p
		WHERE p.id IN (
			SELECT profile_id FROM user_access_profiles WHERE user_id = $1
			UNION
			SELECT profile_id FROM role_access_profiles WHERE role_id = ANY($2)
		)
		ORDER BY p.id ASC
	`, userID, pq.Array(roles))
	if err != nil {
		return nil, fmt.Errorf("failed to load profiles for user: %w", err)
	}
	defer rows.Close()

	var profiles []AccessProfile
	for rows.Next() {
		var p AccessProfile
		if err := rows.Scan(&p.ID, &p.Name, &p.Description, &p.CanSeeNSFW, &p.CreatedAt, &p.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan access profile: %w", err)
		}
		profiles = append(profiles, p)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	refs := make([]*AccessProfile, len(profiles))
	for i := range profiles {
		refs[i] = &profiles[i]
	}
	if err := s.loadGrants(ctx, refs); err != nil {
		return nil, err
	}

	return profiles, nil
}

// UsersHoldingProfile lists users directly assigned to a profile, for admin
// inspection. Users who hold the profile only through a role cannot be
// enumerated here; role membership lives in the identity system, which is
// why revocation paths purge the whole snapshot cache instead of walking
// this list.
func (s *Store) UsersHoldingProfile(ctx context.Context, profileID int64) ([]uuid.UUID, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT user_id FROM user_access_profiles WHERE profile_id = $1`, profileID)
	if err != nil {
		return nil, fmt.Errorf("failed to list users holding profile: %w", err)
	}
	defer rows.Close()

	var users []uuid.UUID
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan user id: %w", err)
		}
		users = append(users, id)
	}
	return users, rows.Err()
}

// AssignedUsers lists every user with at least one direct profile
// assignment. Used by cache warmers to enumerate identities worth
// precomputing; role-only holders are not included.
func (s *Store) AssignedUsers(ctx context.Context) ([]uuid.UUID, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT DISTINCT user_id FROM user_access_profiles ORDER BY user_id`)
	if err != nil {
		return nil, fmt.Errorf("failed to list assigned users: %w", err)
	}
	defer rows.Close()

	var users []uuid.UUID
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan user id: %w", err)
		}
		users = append(users, id)
	}
	return users, rows.Err()
}

func insertGrants(ctx context.Context, tx *sql.Tx, profile *AccessProfile) error {
	for _, id := range profile.StorageIDs {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO access_profile_storages (profile_id, storage_id) VALUES ($1, $2)
			ON CONFLICT DO NOTHING
		`, profile.ID, id); err != nil {
			return fmt.Errorf("failed to insert storage grant: %w", err)
		}
	}

	for _, id := range profile.PersonGroupIDs {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO access_profile_person_groups (profile_id, person_group_id) VALUES ($1, $2)
			ON CONFLICT DO NOTHING
		`, profile.ID, id); err != nil {
			return fmt.Errorf("failed to insert person-group grant: %w", err)
		}
	}

	for _, r := range profile.DateRanges {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO access_profile_date_ranges (profile_id, from_date, to_date) VALUES ($1, $2, $3)
		`, profile.ID, DateOnly(r.From), DateOnly(r.To)); err != nil {
			return fmt.Errorf("failed to insert date-range grant: %w", err)
		}
	}

	return nil
}

// loadGrants populates the grant slices of the given profiles in three
// queries total, independent of profile count.
func (s *Store) loadGrants(ctx context.Context, profiles []*AccessProfile) error {
	if len(profiles) == 0 {
		return nil
	}

	byID := make(map[int64]*AccessProfile, len(profiles))
	ids := make([]int64, 0, len(profiles))
	for _, p := range profiles {
		byID[p.ID] = p
		ids = append(ids, p.ID)
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT profile_id, storage_id FROM access_profile_storages
		WHERE profile_id = ANY($1) ORDER BY storage_id ASC
	`, pq.Array(ids))
	if err != nil {
		return fmt.Errorf("failed to load storage grants: %w", err)
	}
	for rows.Next() {
		var pid, sid int64
		if err := rows.Scan(&pid, &sid); err != nil {
			rows.Close()
			return fmt.Errorf("failed to scan storage grant: %w", err)
		}
		if p := byID[pid]; p != nil {
			p.StorageIDs = append(p.StorageIDs, sid)
		}
	}
	if err := closeRows(rows); err != nil {
		return err
	}

	rows, err = s.db.QueryContext(ctx, `
		SELECT profile_id, person_group_id FROM access_profile_person_groups
		WHERE profile_id = ANY($1) ORDER BY person_group_id ASC
	`, pq.Array(ids))
	if err != nil {
		return fmt.Errorf("failed to load person-group grants: %w", err)
	}
	for rows.Next() {
		var pid, gid int64
		if err := rows.Scan(&pid, &gid); err != nil {
			rows.Close()
			return fmt.Errorf("failed to scan person-group grant: %w", err)
		}
		if p := byID[pid]; p != nil {
			p.PersonGroupIDs = append(p.PersonGroupIDs, gid)
		}
	}
	if err := closeRows(rows); err != nil {
		return err
	}

	rows, err = s.db.QueryContext(ctx, `
		SELECT profile_id, from_date, to_date FROM access_profile_date_ranges
		WHERE profile_id = ANY($1) ORDER BY from_date ASC
	`, pq.Array(ids))
	if err != nil {
		return fmt.Errorf("failed to load date-range grants: %w", err)
	}
	for rows.Next() {
		var pid int64
		var r DateRange
		if err := rows.Scan(&pid, &r.From, &r.To); err != nil {
			rows.Close()
			return fmt.Errorf("failed to scan date-range grant: %w", err)
		}
		if p := byID[pid]; p != nil {
			p.DateRanges = append(p.DateRanges, r)
		}
	}
	return closeRows(rows)
}

func closeRows(rows *sql.Rows) error {
	if err := rows.Err(); err != nil {
		rows.Close()
		return err
	}
	return rows.Close()
}
