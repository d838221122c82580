package refdata

import (
	"context"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/lumapix/photark/pkg/accessctl"
	"github.com/lumapix/photark/pkg/httputil"
	"github.com/lumapix/photark/pkg/middleware"
)

// Handlers provides the reference-data HTTP surface.
type Handlers struct {
	service *Service
}

// NewHandlers creates reference-data handlers.
func NewHandlers(service *Service) *Handlers {
	return &Handlers{service: service}
}

// RegisterRoutes registers the reference-data routes
func (h *Handlers) RegisterRoutes(router *mux.Router) {
	router.HandleFunc("/reference/tags", h.list(func(ctx context.Context, id accessctl.Identity) (any, error) {
		return h.service.Tags(ctx, id)
	})).Methods("GET")
	router.HandleFunc("/reference/persons", h.list(func(ctx context.Context, id accessctl.Identity) (any, error) {
		return h.service.Persons(ctx, id)
	})).Methods("GET")
	router.HandleFunc("/reference/storages", h.list(func(ctx context.Context, id accessctl.Identity) (any, error) {
		return h.service.Storages(ctx, id)
	})).Methods("GET")
	router.HandleFunc("/reference/paths", h.list(func(ctx context.Context, id accessctl.Identity) (any, error) {
		return h.service.Paths(ctx, id)
	})).Methods("GET")
}

func (h *Handlers) list(load func(context.Context, accessctl.Identity) (any, error)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := middleware.GetIdentity(r)
		if !ok {
			httputil.WriteErrorMessage(w, http.StatusUnauthorized, "authentication required")
			return
		}

		data, err := load(r.Context(), id)
		if err != nil {
			httputil.WriteInternalError(w, err)
			return
		}
		httputil.WriteSuccess(w, data)
	}
}
