package accessctl

import (
	"context"
	"database/sql"
	"fmt"
)

// Migration represents a database migration
type Migration struct {
	Version     int
	Description string
	SQL         string
}

// GetMigrations returns all access-control migrations
func GetMigrations() []Migration {
	return []Migration{
		{
			Version:     1,
			Description: "Create access_profiles table",
			SQL: `
				CREATE TABLE IF NOT EXISTS access_profiles (
					id BIGSERIAL PRIMARY KEY,
					name VARCHAR(255) NOT NULL UNIQUE,
					description TEXT NOT NULL DEFAULT '',
					can_see_nsfw BOOLEAN NOT NULL DEFAULT FALSE,
					created_at TIMESTAMP NOT NULL DEFAULT NOW(),
					updated_at TIMESTAMP NOT NULL DEFAULT NOW()
				);

				CREATE INDEX idx_access_profiles_name ON access_profiles(name);
			`,
		},
		{
			Version:     2,
			Description: "Create profile grant tables",
			SQL: `
				CREATE TABLE IF NOT EXISTS access_profile_storages (
					profile_id BIGINT NOT NULL REFERENCES access_profiles(id) ON DELETE CASCADE,
					storage_id BIGINT NOT NULL,
					PRIMARY KEY (profile_id, storage_id)
				);

				CREATE TABLE IF NOT EXISTS access_profile_person_groups (
					profile_id BIGINT NOT NULL REFERENCES access_profiles(id) ON DELETE CASCADE,
					person_group_id BIGINT NOT NULL,
					PRIMARY KEY (profile_id, person_group_id)
				);

				CREATE TABLE IF NOT EXISTS access_profile_date_ranges (
					id BIGSERIAL PRIMARY KEY,
					profile_id BIGINT NOT NULL REFERENCES access_profiles(id) ON DELETE CASCADE,
					from_date DATE NOT NULL,
					to_date DATE NOT NULL
				);

				CREATE INDEX idx_access_profile_date_ranges_profile_id
					ON access_profile_date_ranges(profile_id);
			`,
		},
		{
			Version:     3,
			Description: "Create assignment tables",
			SQL: `
				CREATE TABLE IF NOT EXISTS user_access_profiles (
					user_id UUID NOT NULL,
					profile_id BIGINT NOT NULL REFERENCES access_profiles(id) ON DELETE CASCADE,
					PRIMARY KEY (user_id, profile_id)
				);

				CREATE INDEX idx_user_access_profiles_user_id ON user_access_profiles(user_id);

				CREATE TABLE IF NOT EXISTS role_access_profiles (
					role_id UUID NOT NULL,
					profile_id BIGINT NOT NULL REFERENCES access_profiles(id) ON DELETE CASCADE,
					PRIMARY KEY (role_id, profile_id)
				);

				CREATE INDEX idx_role_access_profiles_role_id ON role_access_profiles(role_id);
			`,
		},
	}
}

// RunMigrations applies all pending access-control migrations in order.
func RunMigrations(ctx context.Context, db *sql.DB) error {
	_, err := db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS accessctl_schema_migrations (
			version INT PRIMARY KEY,
			description TEXT NOT NULL,
			applied_at TIMESTAMP NOT NULL DEFAULT NOW()
		)
	`)
	if err != nil {
		return fmt.Errorf("failed to create migrations table: %w", err)
	}

	for _, m := range GetMigrations() {
		var applied bool
		err := db.QueryRowContext(ctx,
			`SELECT EXISTS (SELECT 1 FROM accessctl_schema_migrations WHERE version = $1)`,
			m.Version,
		).Scan(&applied)
		if err != nil {
			return fmt.Errorf("failed to check migration %d: %w", m.Version, err)
		}
		if applied {
			continue
		}

		if _, err := db.ExecContext(ctx, m.SQL); err != nil {
			return fmt.Errorf("failed to apply migration %d (%s): %w", m.Version, m.Description, err)
		}

		if _, err := db.ExecContext(ctx,
			`INSERT INTO accessctl_schema_migrations (version, description) VALUES ($1, $2)`,
			m.Version, m.Description,
		); err != nil {
			return fmt.Errorf("failed to record migration %d: %w", m.Version, err)
		}
	}

	return nil
}
