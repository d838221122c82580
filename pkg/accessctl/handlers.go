package accessctl

import (
	"errors"
	"net/http"

	"github.com/google/uuid"
	"github.com/gorilla/mux"

	"github.com/lumapix/photark/pkg/httputil"
)

// Handlers provides the admin HTTP surface for access profiles and their
// assignments. Routes must be mounted behind middleware.RequireAdmin.
type Handlers struct {
	store    *Store
	resolver *Resolver
}

// NewHandlers creates access-control handlers.
func NewHandlers(store *Store, resolver *Resolver) *Handlers {
	return &Handlers{store: store, resolver: resolver}
}

// RegisterRoutes registers all access-control admin routes. The router is
// expected to already carry the /access prefix and admin gating.
func (h *Handlers) RegisterRoutes(router *mux.Router) {
	// Profile management
	router.HandleFunc("/profiles", h.CreateProfile).Methods("POST")
	router.HandleFunc("/profiles", h.ListProfiles).Methods("GET")
	router.HandleFunc("/profiles/{id}", h.GetProfile).Methods("GET")
	router.HandleFunc("/profiles/{id}", h.UpdateProfile).Methods("PUT")
	router.HandleFunc("/profiles/{id}", h.DeleteProfile).Methods("DELETE")

	// Assignments
	router.HandleFunc("/profiles/{id}/users/{user_id}", h.AssignUser).Methods("PUT")
	router.HandleFunc("/profiles/{id}/users/{user_id}", h.UnassignUser).Methods("DELETE")
	router.HandleFunc("/profiles/{id}/roles/{role_id}", h.AssignRole).Methods("PUT")
	router.HandleFunc("/profiles/{id}/roles/{role_id}", h.UnassignRole).Methods("DELETE")
}

// CreateProfile creates a new access profile
func (h *Handlers) CreateProfile(w http.ResponseWriter, r *http.Request) {
	var profile AccessProfile
	if !httputil.ParseJSONOrError(w, r, &profile) {
		return
	}

	if err := h.store.CreateProfile(r.Context(), &profile); err != nil {
		httputil.WriteInternalError(w, err)
		return
	}
	httputil.WriteCreated(w, profile)
}

// ListProfiles lists all access profiles
func (h *Handlers) ListProfiles(w http.ResponseWriter, r *http.Request) {
	profiles, err := h.store.ListProfiles(r.Context())
	if err != nil {
		httputil.WriteInternalError(w, err)
		return
	}
	httputil.WriteSuccess(w, profiles)
}

// GetProfile returns one access profile with its grants
func (h *Handlers) GetProfile(w http.ResponseWriter, r *http.Request) {
	profileID, ok := profileIDFromRequest(w, r)
	if !ok {
		return
	}

	profile, err := h.store.GetProfile(r.Context(), profileID)
	if err != nil {
		if errors.Is(err, ErrProfileNotFound) {
			httputil.WriteNotFoundError(w, "profile not found")
			return
		}
		httputil.WriteInternalError(w, err)
		return
	}
	httputil.WriteSuccess(w, profile)
}

// UpdateProfile replaces a profile's grants and metadata. The profile may be
// held through roles whose members cannot be enumerated here, so every
// cached snapshot is purged before the response is sent; a revocation takes
// effect on the next request no matter how the profile was held.
func (h *Handlers) UpdateProfile(w http.ResponseWriter, r *http.Request) {
	profileID, ok := profileIDFromRequest(w, r)
	if !ok {
		return
	}

	var profile AccessProfile
	if !httputil.ParseJSONOrError(w, r, &profile) {
		return
	}
	profile.ID = profileID

	if err := h.store.UpdateProfile(r.Context(), &profile); err != nil {
		if errors.Is(err, ErrProfileNotFound) {
			httputil.WriteNotFoundError(w, "profile not found")
			return
		}
		httputil.WriteInternalError(w, err)
		return
	}

	h.resolver.InvalidateAllSnapshots()
	httputil.WriteSuccess(w, profile)
}

// DeleteProfile removes a profile and all its assignments
func (h *Handlers) DeleteProfile(w http.ResponseWriter, r *http.Request) {
	profileID, ok := profileIDFromRequest(w, r)
	if !ok {
		return
	}

	if err := h.store.DeleteProfile(r.Context(), profileID); err != nil {
		if errors.Is(err, ErrProfileNotFound) {
			httputil.WriteNotFoundError(w, "profile not found")
			return
		}
		httputil.WriteInternalError(w, err)
		return
	}

	h.resolver.InvalidateAllSnapshots()
	httputil.WriteNoContent(w)
}

// AssignUser grants a profile to a user
func (h *Handlers) AssignUser(w http.ResponseWriter, r *http.Request) {
	profileID, ok := profileIDFromRequest(w, r)
	if !ok {
		return
	}
	userID, ok := uuidFromRequest(w, r, "user_id")
	if !ok {
		return
	}

	if err := h.store.AssignUser(r.Context(), profileID, userID); err != nil {
		httputil.WriteInternalError(w, err)
		return
	}

	h.resolver.Invalidate(userID)
	httputil.WriteNoContent(w)
}

// UnassignUser revokes a profile from a user
func (h *Handlers) UnassignUser(w http.ResponseWriter, r *http.Request) {
	profileID, ok := profileIDFromRequest(w, r)
	if !ok {
		return
	}
	userID, ok := uuidFromRequest(w, r, "user_id")
	if !ok {
		return
	}

	if err := h.store.UnassignUser(r.Context(), profileID, userID); err != nil {
		httputil.WriteInternalError(w, err)
		return
	}

	h.resolver.Invalidate(userID)
	httputil.WriteNoContent(w)
}

// AssignRole grants a profile to a role
func (h *Handlers) AssignRole(w http.ResponseWriter, r *http.Request) {
	profileID, ok := profileIDFromRequest(w, r)
	if !ok {
		return
	}
	roleID, ok := uuidFromRequest(w, r, "role_id")
	if !ok {
		return
	}

	if err := h.store.AssignRole(r.Context(), profileID, roleID); err != nil {
		httputil.WriteInternalError(w, err)
		return
	}

	// A new grant widens access, so waiting out the snapshot TTL is
	// acceptable; only revocations purge the cache.
	httputil.WriteNoContent(w)
}

// UnassignRole revokes a profile from a role. The role's members cannot be
// enumerated, so every cached snapshot is purged before responding; holders
// must lose the grant on their next request, not when the TTL expires.
func (h *Handlers) UnassignRole(w http.ResponseWriter, r *http.Request) {
	profileID, ok := profileIDFromRequest(w, r)
	if !ok {
		return
	}
	roleID, ok := uuidFromRequest(w, r, "role_id")
	if !ok {
		return
	}

	if err := h.store.UnassignRole(r.Context(), profileID, roleID); err != nil {
		httputil.WriteInternalError(w, err)
		return
	}

	h.resolver.InvalidateAllSnapshots()
	httputil.WriteNoContent(w)
}

func profileIDFromRequest(w http.ResponseWriter, r *http.Request) (int64, bool) {
	return httputil.ParsePathInt64OrError(w, r, "id")
}

func uuidFromRequest(w http.ResponseWriter, r *http.Request, name string) (uuid.UUID, bool) {
	id, err := uuid.Parse(mux.Vars(r)[name])
	if err != nil {
		httputil.WriteValidationError(w, "invalid "+name)
		return uuid.Nil, false
	}
	return id, true
}
