package accessctl

import (
	"sort"
	"time"

	"github.com/google/uuid"
)

// AccessProfile is a named, reusable permission bundle assignable to users or
// roles. Grants are additive: a user's effective access is the union of every
// profile they hold.
type AccessProfile struct {
	ID             int64       `json:"id"`
	Name           string      `json:"name"`
	Description    string      `json:"description,omitempty"`
	CanSeeNSFW     bool        `json:"can_see_nsfw"`
	StorageIDs     []int64     `json:"storage_ids"`
	PersonGroupIDs []int64     `json:"person_group_ids"`
	DateRanges     []DateRange `json:"date_ranges"`
	CreatedAt      time.Time   `json:"created_at"`
	UpdatedAt      time.Time   `json:"updated_at"`
}

// DateRange is a closed [From, To] calendar-date interval. Only the date part
// is meaningful; both bounds are stored at midnight UTC.
type DateRange struct {
	From time.Time `json:"from"`
	To   time.Time `json:"to"`
}

// Contains reports whether t's calendar date falls inside the range.
func (r DateRange) Contains(t time.Time) bool {
	d := DateOnly(t)
	return !d.Before(DateOnly(r.From)) && !d.After(DateOnly(r.To))
}

// DateOnly truncates t to its calendar date at midnight UTC.
func DateOnly(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// UserAssignment links a user to an access profile.
type UserAssignment struct {
	UserID    uuid.UUID `json:"user_id"`
	ProfileID int64     `json:"profile_id"`
}

// RoleAssignment links a role to an access profile. Role membership itself is
// owned by the identity system; this package only maps role ids to profiles.
type RoleAssignment struct {
	RoleID    uuid.UUID `json:"role_id"`
	ProfileID int64     `json:"profile_id"`
}

// Identity is the authenticated caller as established by the auth layer:
// user id, held role ids, and whether the user is an administrator.
type Identity struct {
	UserID  uuid.UUID
	RoleIDs []uuid.UUID
	IsAdmin bool
}

// EffectiveAccess is the per-user union of all assigned profiles. Empty id
// sets are deny-biased: no storage grant means no photo is visible, no
// person-group grant means only faceless photos are visible. Callers must
// check IsAdmin before deriving predicates from the other fields.
type EffectiveAccess struct {
	StorageIDs     []int64     `json:"storage_ids"`      // deduplicated, ascending
	PersonGroupIDs []int64     `json:"person_group_ids"` // deduplicated, ascending
	DateRanges     []DateRange `json:"date_ranges"`      // duplicates allowed, OR'd
	CanSeeNSFW     bool        `json:"can_see_nsfw"`
	IsAdmin        bool        `json:"is_admin"`
}

// DenyAll is the effective access of a user with no assignments.
func DenyAll() EffectiveAccess {
	return EffectiveAccess{}
}

// AdminAccess marks the caller as an administrator. The grant fields are left
// empty on purpose: they are deny-biased and must never be evaluated for an
// admin.
func AdminAccess() EffectiveAccess {
	return EffectiveAccess{IsAdmin: true}
}

// HasStorage reports whether a storage id is granted.
func (a EffectiveAccess) HasStorage(id int64) bool {
	return containsID(a.StorageIDs, id)
}

// HasPersonGroup reports whether a person-group id is granted.
func (a EffectiveAccess) HasPersonGroup(id int64) bool {
	return containsID(a.PersonGroupIDs, id)
}

// DateAllowed reports whether a taken date passes the range grants: with no
// ranges there is no restriction, otherwise the date must fall inside at
// least one range. A nil taken date always passes.
func (a EffectiveAccess) DateAllowed(taken *time.Time) bool {
	if len(a.DateRanges) == 0 || taken == nil {
		return true
	}
	for _, r := range a.DateRanges {
		if r.Contains(*taken) {
			return true
		}
	}
	return false
}

// Union merges the grants of profiles into one effective access snapshot:
// set union for ids, concatenation for date ranges, logical OR for the NSFW
// flag. An empty profile list produces the deny-all snapshot.
func Union(profiles []AccessProfile) EffectiveAccess {
	if len(profiles) == 0 {
		return DenyAll()
	}

	storages := map[int64]struct{}{}
	groups := map[int64]struct{}{}
	var ranges []DateRange
	nsfw := false

	for _, p := range profiles {
		for _, id := range p.StorageIDs {
			storages[id] = struct{}{}
		}
		for _, id := range p.PersonGroupIDs {
			groups[id] = struct{}{}
		}
		ranges = append(ranges, p.DateRanges...)
		nsfw = nsfw || p.CanSeeNSFW
	}

	return EffectiveAccess{
		StorageIDs:     sortedIDs(storages),
		PersonGroupIDs: sortedIDs(groups),
		DateRanges:     ranges,
		CanSeeNSFW:     nsfw,
	}
}

func sortedIDs(set map[int64]struct{}) []int64 {
	ids := make([]int64, 0, len(set))
	for id := range set {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

func containsID(ids []int64, id int64) bool {
	for _, v := range ids {
		if v == id {
			return true
		}
	}
	return false
}
