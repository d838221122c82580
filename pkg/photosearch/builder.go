package photosearch

import (
	"fmt"
	"time"

	"github.com/lumapix/photark/pkg/accessctl"
	"github.com/lumapix/photark/pkg/acl"
)

// photoColumns are the projection the page query scans, in PhotoItem field
// order.
const photoColumns = "p.id, p.storage_id, p.relative_path, p.taken_date, p.is_bw, p.is_adult, p.is_racy"

// searchPredicate combines the user's filter clauses with the caller's
// compiled access predicate. Admins skip the access predicate entirely.
// The filter must already be normalized.
func searchPredicate(f SearchFilter, access accessctl.EffectiveAccess, now time.Time) (acl.Predicate, error) {
	user := filterPredicate(f, now)
	if access.IsAdmin {
		return user, nil
	}

	scope, err := acl.PhotoPredicate(access)
	if err != nil {
		return nil, fmt.Errorf("failed to compile access predicate: %w", err)
	}
	return acl.AndOf(user, scope), nil
}

// filterPredicate expresses the filter's clauses as a predicate tree over
// the photos table and its satellite tables.
func filterPredicate(f SearchFilter, now time.Time) acl.Predicate {
	var preds []acl.Predicate

	if f.IsBW {
		preds = append(preds, acl.ColumnEquals{Column: "p.is_bw", Value: true})
	}
	if f.IsAdultContent {
		preds = append(preds, acl.ColumnEquals{Column: "p.is_adult", Value: true})
	}
	if f.IsRacyContent {
		preds = append(preds, acl.ColumnEquals{Column: "p.is_racy", Value: true})
	}

	if f.TakenDateFrom != nil {
		preds = append(preds, acl.ColumnAtLeast{
			Column: "p.taken_date",
			Value:  accessctl.DateOnly(*f.TakenDateFrom),
		})
	}
	if f.TakenDateTo != nil {
		preds = append(preds, acl.ColumnAtMost{
			Column: "p.taken_date",
			Value:  endOfDay(*f.TakenDateTo),
		})
	}
	if f.ThisDay {
		preds = append(preds,
			acl.ColumnEquals{Column: "p.taken_day", Value: now.UTC().Day()},
			acl.ColumnEquals{Column: "p.taken_month", Value: int(now.UTC().Month())},
		)
	}

	if len(f.StorageIDs) > 0 {
		preds = append(preds, acl.ColumnInSet{Column: "p.storage_id", IDs: f.StorageIDs})
		if f.RelativePath != "" {
			preds = append(preds, acl.ColumnEquals{Column: "p.relative_path", Value: f.RelativePath})
		}
	}

	if tokens := f.captionTokens(); len(tokens) > 0 {
		likes := make([]acl.Predicate, len(tokens))
		for i, tok := range tokens {
			likes[i] = acl.ColumnLike{Column: "c.caption", Text: tok}
		}
		preds = append(preds, acl.Exists{
			Table: "photo_captions",
			Alias: "c",
			Join:  "c.photo_id = p.id",
			Where: acl.AndOf(likes...),
		})
	}

	// Every listed tag and person must be present on the photo, so each id
	// gets its own existence check.
	for _, tagID := range f.TagIDs {
		preds = append(preds, acl.Exists{
			Table: "photo_tags",
			Alias: "pt",
			Join:  "pt.photo_id = p.id",
			Where: acl.ColumnEquals{Column: "pt.tag_id", Value: tagID},
		})
	}
	for _, personID := range f.PersonIDs {
		preds = append(preds, acl.Exists{
			Table: "faces",
			Alias: "pf",
			Join:  "pf.photo_id = p.id",
			Where: acl.ColumnEquals{Column: "pf.person_id", Value: personID},
		})
	}

	return acl.AndOf(preds...)
}

// buildCountQuery lowers the predicate into the total-count statement.
func buildCountQuery(pred acl.Predicate) (string, []any) {
	b := acl.NewSQLBuilder()
	where := b.Compile(pred)
	return "SELECT COUNT(*) FROM photos p WHERE " + where, b.Args()
}

// buildPageQuery lowers the same predicate into the page statement. page is
// 1-based and both paging values must already be clamped.
func buildPageQuery(pred acl.Predicate, page, pageSize int) (string, []any) {
	b := acl.NewSQLBuilder()
	where := b.Compile(pred)
	query := fmt.Sprintf(
		"SELECT %s FROM photos p WHERE %s ORDER BY p.taken_date DESC NULLS LAST, p.id DESC LIMIT %s OFFSET %s",
		photoColumns, where, b.Bind(pageSize), b.Bind((page-1)*pageSize),
	)
	return query, b.Args()
}

func endOfDay(t time.Time) time.Time {
	return accessctl.DateOnly(t).Add(24*time.Hour - time.Second)
}
