package photosearch

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/lumapix/photark/pkg/accessctl"
	"github.com/lumapix/photark/pkg/acl"
)

// ErrPhotoNotFound covers both a missing photo and one the caller may not
// see. Hiding the distinction keeps photo ids unenumerable.
var ErrPhotoNotFound = errors.New("photo not found")

// GetPhoto fetches a single photo and checks visibility in memory instead of
// compiling the access snapshot into SQL.
func (s *Service) GetPhoto(ctx context.Context, id accessctl.Identity, photoID int64) (*PhotoItem, error) {
	ctx, span := searchTracer.Start(ctx, "GetPhoto",
		trace.WithAttributes(
			attribute.Int64("photo_id", photoID),
			attribute.Bool("is_admin", id.IsAdmin),
		),
	)
	defer span.End()

	access, err := s.resolver.Resolve(ctx, id)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to resolve access")
		return nil, fmt.Errorf("failed to resolve access: %w", err)
	}

	var item PhotoItem
	var taken sql.NullTime
	err = s.db.QueryRowContext(ctx, `
		SELECT p.id, p.storage_id, p.relative_path, p.taken_date, p.is_bw, p.is_adult, p.is_racy
		FROM photos p
		WHERE p.id = $1`,
		photoID,
	).Scan(
		&item.ID,
		&item.StorageID,
		&item.RelativePath,
		&taken,
		&item.IsBW,
		&item.IsAdult,
		&item.IsRacy,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrPhotoNotFound
	}
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to query photo")
		return nil, fmt.Errorf("failed to query photo: %w", err)
	}
	if taken.Valid {
		t := taken.Time
		item.TakenDate = &t
	}

	faces, err := s.photoFaces(ctx, photoID)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to query faces")
		return nil, err
	}

	view := acl.PhotoView{
		StorageID: item.StorageID,
		TakenDate: item.TakenDate,
		IsAdult:   item.IsAdult,
		IsRacy:    item.IsRacy,
		Faces:     faces,
	}
	if !acl.PhotoVisible(access, view) {
		span.SetAttributes(attribute.Bool("visible", false))
		return nil, ErrPhotoNotFound
	}
	return &item, nil
}

// photoFaces loads the faces on a photo with the group memberships of the
// persons they are linked to. An unidentified face yields one row with a
// NULL person.
func (s *Service) photoFaces(ctx context.Context, photoID int64) ([]acl.FaceView, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT f.id, f.person_id, ppg.person_group_id
		FROM faces f
		LEFT JOIN person_person_groups ppg ON ppg.person_id = f.person_id
		WHERE f.photo_id = $1
		ORDER BY f.id`,
		photoID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query faces: %w", err)
	}
	defer rows.Close()

	var faces []acl.FaceView
	var lastFaceID int64
	for rows.Next() {
		var faceID int64
		var personID, groupID sql.NullInt64
		if err := rows.Scan(&faceID, &personID, &groupID); err != nil {
			return nil, fmt.Errorf("failed to scan face row: %w", err)
		}
		if len(faces) == 0 || faceID != lastFaceID {
			faces = append(faces, acl.FaceView{Identified: personID.Valid})
			lastFaceID = faceID
		}
		if groupID.Valid {
			face := &faces[len(faces)-1]
			face.PersonGroupIDs = append(face.PersonGroupIDs, groupID.Int64)
		}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating faces: %w", err)
	}
	return faces, nil
}
