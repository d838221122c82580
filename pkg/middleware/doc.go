// Package middleware provides HTTP middleware for identity propagation and rate limiting.
//
// # Overview
//
// The service sits behind an authenticating gateway that terminates sessions
// and forwards the verified caller in request headers. This package turns
// those headers into an accessctl.Identity on the request context and
// enforces simple per-caller rate limits.
//
// # Middleware Components
//
// IdentityMiddleware: header-based identity extraction
//
//	router.Use(middleware.IdentityMiddleware(false))
//	// Reads X-User-Id, X-User-Roles, X-User-Admin into the request context
//
// RateLimitMiddleware: in-memory rate limiting keyed by user id
//
//	limiter := middleware.NewRateLimiter(nil)
//	router.Use(middleware.RateLimitMiddleware(limiter))
//
// # Related Packages
//
//   - pkg/accessctl: Identity type and effective access resolution
//   - pkg/contextkeys: context key definitions
package middleware
