// Package refdata serves the reference lists the catalog UI needs to build
// filter controls: tags, persons, storages, and folder paths, each narrowed
// to what the requesting user is allowed to see.
//
// Lists are cached per user (admins share one unrestricted entry) behind a
// stampede-safe in-process cache, with an optional Redis layer underneath so
// a fleet of instances shares recomputed lists. Access-control changes
// invalidate a user's entries through the resolver's invalidation hooks.
package refdata
