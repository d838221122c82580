package photosearch

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

// GetMigrations returns all catalog migrations
func GetMigrations() []Migration {
	return []Migration{
		{
			Version:     1,
			Description: "Create storages and photos tables",
			SQL: `
				CREATE TABLE IF NOT EXISTS storages (
					id BIGSERIAL PRIMARY KEY,
					name VARCHAR(255) NOT NULL UNIQUE,
					folder TEXT NOT NULL DEFAULT ''
				);

				CREATE TABLE IF NOT EXISTS photos (
					id BIGSERIAL PRIMARY KEY,
					storage_id BIGINT NOT NULL REFERENCES storages(id) ON DELETE CASCADE,
					relative_path TEXT NOT NULL DEFAULT '',
					taken_date TIMESTAMP,
					taken_day INT,
					taken_month INT,
					is_bw BOOLEAN NOT NULL DEFAULT FALSE,
					is_adult BOOLEAN NOT NULL DEFAULT FALSE,
					is_racy BOOLEAN NOT NULL DEFAULT FALSE
				);

				CREATE INDEX idx_photos_storage_id ON photos(storage_id);
				CREATE INDEX idx_photos_taken_date ON photos(taken_date DESC);
				CREATE INDEX idx_photos_taken_day_month ON photos(taken_day, taken_month);
			`,
		},
		{
			Version:     2,
			Description: "Create captions and tags tables",
			SQL: `
				CREATE TABLE IF NOT EXISTS photo_captions (
					id BIGSERIAL PRIMARY KEY,
					photo_id BIGINT NOT NULL REFERENCES photos(id) ON DELETE CASCADE,
					caption TEXT NOT NULL
				);

				CREATE INDEX idx_photo_captions_photo_id ON photo_captions(photo_id);

				CREATE TABLE IF NOT EXISTS tags (
					id BIGSERIAL PRIMARY KEY,
					name VARCHAR(255) NOT NULL UNIQUE
				);

				CREATE TABLE IF NOT EXISTS photo_tags (
					photo_id BIGINT NOT NULL REFERENCES photos(id) ON DELETE CASCADE,
					tag_id BIGINT NOT NULL REFERENCES tags(id) ON DELETE CASCADE,
					PRIMARY KEY (photo_id, tag_id)
				);

				CREATE INDEX idx_photo_tags_tag_id ON photo_tags(tag_id);
			`,
		},
		{
			Version:     3,
			Description: "Create persons, person groups and faces tables",
			SQL: `
				CREATE TABLE IF NOT EXISTS persons (
					id BIGSERIAL PRIMARY KEY,
					name VARCHAR(255) NOT NULL
				);

				CREATE TABLE IF NOT EXISTS person_groups (
					id BIGSERIAL PRIMARY KEY,
					name VARCHAR(255) NOT NULL UNIQUE
				);

				CREATE TABLE IF NOT EXISTS person_person_groups (
					person_id BIGINT NOT NULL REFERENCES persons(id) ON DELETE CASCADE,
					person_group_id BIGINT NOT NULL REFERENCES person_groups(id) ON DELETE CASCADE,
					PRIMARY KEY (person_id, person_group_id)
				);

				CREATE INDEX idx_person_person_groups_group_id
					ON person_person_groups(person_group_id);

				CREATE TABLE IF NOT EXISTS faces (
					id BIGSERIAL PRIMARY KEY,
					photo_id BIGINT NOT NULL REFERENCES photos(id) ON DELETE CASCADE,
					person_id BIGINT REFERENCES persons(id) ON DELETE SET NULL
				);

				CREATE INDEX idx_faces_photo_id ON faces(photo_id);
				CREATE INDEX idx_faces_person_id ON faces(person_id);
			`,
		},
	}
}

// RunMigrations applies all pending catalog migrations in order.
func RunMigrations(ctx context.Context, db *sql.DB) error {
	_, err := db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS catalog_schema_migrations (
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
			`SELECT EXISTS (SELECT 1 FROM catalog_schema_migrations WHERE version = $1)`,
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
			`INSERT INTO catalog_schema_migrations (version, description) VALUES ($1, $2)`,
			m.Version, m.Description,
		); err != nil {
			return fmt.Errorf("failed to record migration %d: %w", m.Version, err)
		}
	}

	return nil
}
