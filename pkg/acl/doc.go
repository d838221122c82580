// Package acl compiles effective-access snapshots into boolean predicates
// over catalog entities.
//
// # Overview
//
// Predicates are data, not closures: a clause tree of tagged variants
// (column-in-set, flag-equals, date-between, exists-related-row, and/or)
// that a query-compilation step lowers into parameterized SQL. Keeping the
// predicate as a value lets the persistence layer push it into a native
// query while tests reason about it directly.
//
//	pred, err := acl.PhotoPredicate(access)
//	if err != nil { ... }
//	b := acl.NewSQLBuilder()
//	where := b.Compile(pred)
//	rows, err := db.QueryContext(ctx, "SELECT ... WHERE "+where, b.Args()...)
//
// # Visibility rules
//
// A photo is visible iff all of:
//
//  1. The storage grant set is non-empty and contains the photo's storage.
//     No storage grants means no photos, ever.
//  2. If date ranges are granted, the photo's taken date falls inside at
//     least one (ranges are OR'd). A photo without a taken date is never
//     excluded on date grounds.
//  3. The caller may see NSFW content, or the photo is flagged neither
//     adult nor racy.
//  4. With no person-group grants, only photos with zero detected faces are
//     visible (faceless-only default deny). With grants, a photo is visible
//     when it has no faces or at least one face belongs to an allowed group.
//
// A person is visible iff it belongs to at least one granted group; a
// storage iff its id is granted.
//
// # Admin bypass
//
// An admin snapshot is not a valid input: its empty grant sets would deny
// everything. Compiling one fails fast with ErrAdminAccess; callers must
// branch on IsAdmin and skip predicate application entirely.
//
// # Related Packages
//
//   - pkg/accessctl: produces the EffectiveAccess snapshots consumed here
//   - pkg/photosearch: intersects these predicates with user search filters
package acl
