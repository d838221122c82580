// Package photosearch turns user-supplied photo filters into paged,
// ACL-scoped catalog queries.
//
// A SearchFilter is normalized, expressed as a predicate tree (the same
// clause types the ACL compiler emits), intersected with the caller's
// compiled access predicate unless the caller is an admin, and lowered once
// into a single parameterized SQL statement. The count query and the page
// query are built from the identical predicate so totals always agree with
// the rows returned.
//
// Results are ordered newest first by taken date, with ties and undated
// photos ordered by descending id.
//
// Single-photo fetches skip SQL scoping: GetPhoto loads the row and its
// faces and evaluates the same visibility rules in memory, answering "not
// found" for photos the caller may not see.
package photosearch
