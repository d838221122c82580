package acl

import (
	"errors"
	"time"

	"github.com/lumapix/photark/pkg/accessctl"
)

// ErrAdminAccess is returned when a predicate is requested for an admin
// snapshot. Admin snapshots carry empty, deny-biased grant sets; evaluating
// them as an ACL would hide everything instead of showing everything.
// Callers must check IsAdmin and skip predicate application.
var ErrAdminAccess = errors.New("acl: predicates cannot be derived from an admin snapshot")

// Catalog table aliases the compiled predicates reference. Queries embedding
// these predicates must use the same aliases.
const (
	PhotoAlias   = "p"
	PersonAlias  = "pr"
	StorageAlias = "s"
)

// PhotoPredicate compiles the photo visibility rules for a non-admin
// snapshot. See the package documentation for the rules.
func PhotoPredicate(access accessctl.EffectiveAccess) (Predicate, error) {
	if access.IsAdmin {
		return nil, ErrAdminAccess
	}
	if len(access.StorageIDs) == 0 {
		return MatchNone{}, nil
	}

	return AndOf(
		ColumnInSet{Column: PhotoAlias + ".storage_id", IDs: access.StorageIDs},
		photoDatePredicate(access.DateRanges),
		photoNSFWPredicate(access.CanSeeNSFW),
		photoFacesPredicate(access.PersonGroupIDs),
	), nil
}

// PersonPredicate compiles person visibility: a person is visible iff it
// belongs to at least one granted group.
func PersonPredicate(access accessctl.EffectiveAccess) (Predicate, error) {
	if access.IsAdmin {
		return nil, ErrAdminAccess
	}
	if len(access.PersonGroupIDs) == 0 {
		return MatchNone{}, nil
	}

	return Exists{
		Table: "person_person_groups",
		Alias: "ppg",
		Join:  "ppg.person_id = " + PersonAlias + ".id",
		Where: ColumnInSet{Column: "ppg.person_group_id", IDs: access.PersonGroupIDs},
	}, nil
}

// StoragePredicate compiles storage visibility: a storage is visible iff its
// id is granted.
func StoragePredicate(access accessctl.EffectiveAccess) (Predicate, error) {
	if access.IsAdmin {
		return nil, ErrAdminAccess
	}
	if len(access.StorageIDs) == 0 {
		return MatchNone{}, nil
	}
	return ColumnInSet{Column: StorageAlias + ".id", IDs: access.StorageIDs}, nil
}

// photoDatePredicate OR's the granted ranges. Photos without a taken date
// pass: an unknown date never excludes a photo on date grounds.
func photoDatePredicate(ranges []accessctl.DateRange) Predicate {
	if len(ranges) == 0 {
		return MatchAll{}
	}

	preds := make([]Predicate, 0, len(ranges)+1)
	preds = append(preds, ColumnIsNull{Column: PhotoAlias + ".taken_date"})
	for _, r := range ranges {
		preds = append(preds, DateBetween{
			Column: PhotoAlias + ".taken_date",
			From:   accessctl.DateOnly(r.From),
			To:     endOfDay(r.To),
		})
	}
	return OrOf(preds...)
}

func photoNSFWPredicate(canSeeNSFW bool) Predicate {
	if canSeeNSFW {
		return MatchAll{}
	}
	return AndOf(
		ColumnEquals{Column: PhotoAlias + ".is_adult", Value: false},
		ColumnEquals{Column: PhotoAlias + ".is_racy", Value: false},
	)
}

// photoFacesPredicate implements the faceless-only default deny: with no
// group grants only photos without faces are visible; with grants, a photo
// with faces needs at least one face linked to a person in an allowed group.
func photoFacesPredicate(groupIDs []int64) Predicate {
	noFaces := Exists{
		Negated: true,
		Table:   "faces",
		Alias:   "f",
		Join:    "f.photo_id = " + PhotoAlias + ".id",
	}
	if len(groupIDs) == 0 {
		return noFaces
	}

	matchingFace := Exists{
		Table: "faces",
		Alias: "f",
		Join:  "f.photo_id = " + PhotoAlias + ".id",
		Where: AndOf(
			ColumnNotNull{Column: "f.person_id"},
			Exists{
				Table: "person_person_groups",
				Alias: "ppg",
				Join:  "ppg.person_id = f.person_id",
				Where: ColumnInSet{Column: "ppg.person_group_id", IDs: groupIDs},
			},
		),
	}

	return OrOf(noFaces, matchingFace)
}

func endOfDay(t time.Time) time.Time {
	return accessctl.DateOnly(t).Add(24*time.Hour - time.Second)
}
