// Package httputil provides HTTP utilities for standardized request/response handling.
//
// # Overview
//
// This package offers helper functions for JSON encoding/decoding, error responses,
// parameter parsing, and common HTTP middleware patterns.
//
// # Response Helpers
//
// JSON responses:
//
//	httputil.WriteSuccess(w, page)
//	httputil.WriteCreated(w, profile)
//
// Error responses:
//
//	httputil.WriteInternalError(w, err)
//	httputil.WriteValidationError(w, "invalid profile id")
//	httputil.WriteNotFoundError(w, "profile not found")
//
// # Request Parsing
//
// JSON parsing:
//
//	var filter photosearch.SearchFilter
//	if !httputil.ParseJSONOrError(w, r, &filter) {
//		return // Error response already written
//	}
//
// Path parameters:
//
//	id, ok := httputil.ParsePathInt64OrError(w, r, "id")
//
// # Middleware
//
// Registered on the router in order; LoggingMiddleware installs a
// request-scoped logger that RecoveryMiddleware and handlers retrieve with
// observability.GetLogger:
//
//	router.Use(
//		httputil.RequestIDMiddleware,
//		httputil.LoggingMiddleware(logger),
//		httputil.RecoveryMiddleware,
//		httputil.MaxBytesMiddleware(1024*1024),
//	)
//
// # Related Packages
//
//   - pkg/middleware: identity propagation and rate limiting
package httputil
