package photosearch

import (
	"sort"
	"strings"
	"time"
)

const (
	// DefaultPageSize is used when a request does not specify a size.
	DefaultPageSize = 20
	// MaxPageSize caps a single page regardless of what the request asks for.
	MaxPageSize = 100
	// minCaptionTokenLen drops noise tokens from caption search. Shorter
	// tokens match too much of the catalog to be useful.
	minCaptionTokenLen = 3
)

// SearchFilter describes one catalog query. Flags narrow when set: IsBW
// keeps only black-and-white photos, IsAdultContent and IsRacyContent keep
// only the flagged ones. RelativePath is honored only together with a
// storage filter; a bare path would scan every storage.
type SearchFilter struct {
	IsBW           bool `json:"is_bw,omitempty"`
	IsAdultContent bool `json:"is_adult_content,omitempty"`
	IsRacyContent  bool `json:"is_racy_content,omitempty"`

	TakenDateFrom *time.Time `json:"taken_date_from,omitempty"`
	TakenDateTo   *time.Time `json:"taken_date_to,omitempty"`
	// ThisDay matches photos taken on today's calendar day and month in
	// any year.
	ThisDay bool `json:"this_day,omitempty"`

	StorageIDs   []int64 `json:"storage_ids,omitempty"`
	RelativePath string  `json:"relative_path,omitempty"`

	Caption string `json:"caption,omitempty"`

	// Tag and person filters use AND semantics: a photo must carry every
	// listed tag and every listed person.
	TagIDs    []int64 `json:"tag_ids,omitempty"`
	PersonIDs []int64 `json:"person_ids,omitempty"`

	// Page is 1-based. Zero or negative values mean the first page.
	Page     int `json:"page,omitempty"`
	PageSize int `json:"page_size,omitempty"`
}

// Normalize returns a copy with id lists deduplicated and sorted and the
// paging fields clamped to valid ranges. Normalization is idempotent:
// normalizing an already-normalized filter changes nothing, so equal inputs
// always produce identical SQL.
func (f SearchFilter) Normalize() SearchFilter {
	return f.normalizeWithCap(MaxPageSize)
}

func (f SearchFilter) normalizeWithCap(maxPageSize int) SearchFilter {
	f.StorageIDs = dedupeIDs(f.StorageIDs)
	f.TagIDs = dedupeIDs(f.TagIDs)
	f.PersonIDs = dedupeIDs(f.PersonIDs)
	f.RelativePath = strings.TrimSpace(f.RelativePath)
	f.Caption = strings.TrimSpace(f.Caption)

	if f.Page < 1 {
		f.Page = 1
	}
	if f.PageSize < 1 {
		f.PageSize = DefaultPageSize
	}
	if f.PageSize > maxPageSize {
		f.PageSize = maxPageSize
	}
	return f
}

// captionTokens splits the caption search text into lowercase tokens long
// enough to be worth matching. An empty result disables the caption clause.
func (f SearchFilter) captionTokens() []string {
	fields := strings.Fields(strings.ToLower(f.Caption))
	tokens := fields[:0]
	for _, tok := range fields {
		if len(tok) >= minCaptionTokenLen {
			tokens = append(tokens, tok)
		}
	}
	return tokens
}

func dedupeIDs(ids []int64) []int64 {
	if len(ids) == 0 {
		return nil
	}
	seen := make(map[int64]struct{}, len(ids))
	out := make([]int64, 0, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}
