package accessctl

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func TestUnion_EmptyIsDenyAll(t *testing.T) {
	access := Union(nil)

	assert.False(t, access.IsAdmin)
	assert.False(t, access.CanSeeNSFW)
	assert.Empty(t, access.StorageIDs)
	assert.Empty(t, access.PersonGroupIDs)
	assert.Empty(t, access.DateRanges)
}

func TestUnion_MergesProfiles(t *testing.T) {
	profiles := []AccessProfile{
		{
			Name:           "family",
			StorageIDs:     []int64{1, 2},
			PersonGroupIDs: []int64{10},
			DateRanges:     []DateRange{{From: date(2010, 1, 1), To: date(2010, 12, 31)}},
		},
		{
			Name:           "vacations",
			StorageIDs:     []int64{2, 3},
			PersonGroupIDs: []int64{10, 20},
			DateRanges:     []DateRange{{From: date(2010, 6, 1), To: date(2010, 6, 30)}},
			CanSeeNSFW:     true,
		},
	}

	access := Union(profiles)

	assert.Equal(t, []int64{1, 2, 3}, access.StorageIDs, "storage ids are set-unioned")
	assert.Equal(t, []int64{10, 20}, access.PersonGroupIDs, "group ids are set-unioned")
	assert.Len(t, access.DateRanges, 2, "date ranges concatenate, duplicates allowed")
	assert.True(t, access.CanSeeNSFW, "NSFW flag is OR'd")
	assert.False(t, access.IsAdmin)
}

func TestDateRange_Contains(t *testing.T) {
	r := DateRange{From: date(2010, 1, 1), To: date(2010, 1, 31)}

	assert.True(t, r.Contains(date(2010, 1, 1)), "closed lower bound")
	assert.True(t, r.Contains(date(2010, 1, 31)), "closed upper bound")
	assert.True(t, r.Contains(time.Date(2010, 1, 31, 23, 59, 59, 0, time.UTC)), "time of day ignored")
	assert.False(t, r.Contains(date(2009, 12, 31)))
	assert.False(t, r.Contains(date(2010, 2, 1)))
}

func TestEffectiveAccess_DateAllowed(t *testing.T) {
	access := EffectiveAccess{
		DateRanges: []DateRange{
			{From: date(2010, 1, 1), To: date(2010, 1, 31)},
			{From: date(2011, 12, 1), To: date(2011, 12, 31)},
		},
	}

	inSecond := date(2011, 12, 20)
	assert.True(t, access.DateAllowed(&inSecond), "ranges are OR'd")

	outside := date(2011, 6, 1)
	assert.False(t, access.DateAllowed(&outside))

	assert.True(t, access.DateAllowed(nil), "unknown taken date is never excluded on date grounds")

	noRanges := EffectiveAccess{}
	assert.True(t, noRanges.DateAllowed(&outside), "no ranges means no restriction")
}

func TestAdminAccess(t *testing.T) {
	access := AdminAccess()

	assert.True(t, access.IsAdmin)
	assert.Empty(t, access.StorageIDs)
	assert.Empty(t, access.PersonGroupIDs)
}
