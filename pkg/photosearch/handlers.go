package photosearch

import (
	"errors"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/lumapix/photark/pkg/httputil"
	"github.com/lumapix/photark/pkg/middleware"
	"github.com/lumapix/photark/pkg/observability"
)

// Handlers provides the photo search HTTP surface.
type Handlers struct {
	service *Service
}

// NewHandlers creates search handlers.
func NewHandlers(service *Service) *Handlers {
	return &Handlers{service: service}
}

// RegisterRoutes registers the search routes
func (h *Handlers) RegisterRoutes(router *mux.Router) {
	router.HandleFunc("/photos/search", h.Search).Methods("POST")
	router.HandleFunc("/photos/{id}", h.GetPhoto).Methods("GET")
}

// Search runs an ACL-scoped catalog query
func (h *Handlers) Search(w http.ResponseWriter, r *http.Request) {
	id, ok := middleware.GetIdentity(r)
	if !ok {
		httputil.WriteErrorMessage(w, http.StatusUnauthorized, "authentication required")
		return
	}

	var filter SearchFilter
	if !httputil.ParseJSONOrError(w, r, &filter) {
		return
	}

	page, err := h.service.Search(r.Context(), id, filter)
	if err != nil {
		observability.FromContext(r.Context()).WithError(err).Error("photo search failed")
		httputil.WriteInternalError(w, err)
		return
	}
	httputil.WriteSuccess(w, page)
}

// GetPhoto returns a single photo the caller is allowed to see
func (h *Handlers) GetPhoto(w http.ResponseWriter, r *http.Request) {
	id, ok := middleware.GetIdentity(r)
	if !ok {
		httputil.WriteErrorMessage(w, http.StatusUnauthorized, "authentication required")
		return
	}

	photoID, ok := httputil.ParsePathInt64OrError(w, r, "id")
	if !ok {
		return
	}

	item, err := h.service.GetPhoto(r.Context(), id, photoID)
	if err != nil {
		if errors.Is(err, ErrPhotoNotFound) {
			httputil.WriteNotFoundError(w, "photo not found")
			return
		}
		observability.FromContext(r.Context()).WithError(err).Error("photo lookup failed")
		httputil.WriteInternalError(w, err)
		return
	}
	httputil.WriteSuccess(w, item)
}
