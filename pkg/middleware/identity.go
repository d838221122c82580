package middleware

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/lumapix/photark/pkg/accessctl"
	"github.com/lumapix/photark/pkg/contextkeys"
)

// Headers set by the authenticating gateway.
const (
	HeaderUserID    = "X-User-Id"
	HeaderUserRoles = "X-User-Roles"
	HeaderUserAdmin = "X-User-Admin"
)

// IdentityMiddleware extracts the caller identity forwarded by the gateway.
// With optional=false, requests without a valid X-User-Id header are
// rejected with 401.
func IdentityMiddleware(optional bool) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id, ok := identityFromHeaders(r)
			if !ok {
				if optional {
					next.ServeHTTP(w, r)
					return
				}
				unauthorizedResponse(w, "missing or invalid identity headers")
				return
			}

			ctx := contextkeys.WithIdentity(r.Context(), id)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// GetIdentity returns the identity set by IdentityMiddleware, or false when
// the request carried none.
func GetIdentity(r *http.Request) (accessctl.Identity, bool) {
	id, ok := r.Context().Value(contextkeys.IdentityKey).(accessctl.Identity)
	return id, ok
}

// RequireAdmin rejects non-admin callers with 403. It must run after
// IdentityMiddleware.
func RequireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id, ok := GetIdentity(r)
		if !ok {
			unauthorizedResponse(w, "authentication required")
			return
		}
		if !id.IsAdmin {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusForbidden)
			json.NewEncoder(w).Encode(map[string]string{"error": "administrator access required"})
			return
		}
		next.ServeHTTP(w, r)
	})
}

func identityFromHeaders(r *http.Request) (accessctl.Identity, bool) {
	raw := r.Header.Get(HeaderUserID)
	if raw == "" {
		return accessctl.Identity{}, false
	}
	userID, err := uuid.Parse(raw)
	if err != nil {
		return accessctl.Identity{}, false
	}

	id := accessctl.Identity{
		UserID:  userID,
		IsAdmin: strings.EqualFold(r.Header.Get(HeaderUserAdmin), "true"),
	}

	// Malformed role ids are dropped rather than failing the request;
	// roles only ever widen access through profile assignments.
	if roles := r.Header.Get(HeaderUserRoles); roles != "" {
		for _, part := range strings.Split(roles, ",") {
			roleID, err := uuid.Parse(strings.TrimSpace(part))
			if err != nil {
				continue
			}
			id.RoleIDs = append(id.RoleIDs, roleID)
		}
	}
	return id, true
}

func unauthorizedResponse(w http.ResponseWriter, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	json.NewEncoder(w).Encode(map[string]string{"error": message})
}
