package acl

import (
	"time"

	"github.com/lumapix/photark/pkg/accessctl"
)

// PhotoView is the in-memory projection of a photo needed for a point
// visibility check, for callers that already hold the row (detail pages,
// post-load filtering) and should not round-trip through SQL.
type PhotoView struct {
	StorageID int64
	TakenDate *time.Time
	IsAdult   bool
	IsRacy    bool
	Faces     []FaceView
}

// FaceView carries the group memberships of the person a face is linked to.
// An unidentified face has no groups.
type FaceView struct {
	Identified     bool
	PersonGroupIDs []int64
}

// PhotoVisible evaluates the same rules PhotoPredicate compiles, against an
// in-memory photo. Admin snapshots see everything.
func PhotoVisible(access accessctl.EffectiveAccess, photo PhotoView) bool {
	if access.IsAdmin {
		return true
	}
	if !access.HasStorage(photo.StorageID) {
		return false
	}
	if !access.DateAllowed(photo.TakenDate) {
		return false
	}
	if !access.CanSeeNSFW && (photo.IsAdult || photo.IsRacy) {
		return false
	}
	return facesVisible(access, photo.Faces)
}

// PersonVisible reports whether a person belonging to the given groups is
// visible under the snapshot.
func PersonVisible(access accessctl.EffectiveAccess, personGroupIDs []int64) bool {
	if access.IsAdmin {
		return true
	}
	for _, id := range personGroupIDs {
		if access.HasPersonGroup(id) {
			return true
		}
	}
	return false
}

// StorageVisible reports whether the storage is visible under the snapshot.
func StorageVisible(access accessctl.EffectiveAccess, storageID int64) bool {
	if access.IsAdmin {
		return true
	}
	return access.HasStorage(storageID)
}

func facesVisible(access accessctl.EffectiveAccess, faces []FaceView) bool {
	if len(faces) == 0 {
		return true
	}
	for _, face := range faces {
		if !face.Identified {
			continue
		}
		for _, id := range face.PersonGroupIDs {
			if access.HasPersonGroup(id) {
				return true
			}
		}
	}
	return false
}
