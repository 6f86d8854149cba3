package api

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/jwtauth/v5"
	"github.com/go-chi/render"
	"github.com/google/uuid"
	"github.com/jinzhu/copier"

	"github.com/depothub/traindepot/pkg/catalog"
	idmerr "github.com/depothub/traindepot/pkg/errors"
)

// ErrorResponse is the generic error body
type ErrorResponse struct {
	Error string `json:"error"`
}

// ComponentResponse is the wire shape of one catalog entry
type ComponentResponse struct {
	ID               string `json:"id"`
	Type             string `json:"type"`
	Subtype          string `json:"subtype"`
	Image            string `json:"image,omitempty"`
	DescriptionImage string `json:"description_image,omitempty"`
	Description      string `json:"description"`
}

// Handle serves the train component catalog endpoints
type Handle struct {
	service *catalog.ComponentService
}

// NewHandle creates a new catalog API handle
func NewHandle(service *catalog.ComponentService) *Handle {
	return &Handle{service: service}
}

// Routes mounts the catalog endpoints behind access token authentication
func Routes(r chi.Router, handle *Handle, accessAuth *jwtauth.JWTAuth) {
	r.Group(func(r chi.Router) {
		r.Use(jwtauth.Verifier(accessAuth))
		r.Use(jwtauth.Authenticator(accessAuth))
		r.Get("/", handle.ListComponents)
		r.Get("/{id}", handle.GetComponentByID)
	})
}

// ListComponents handles GET /
func (h *Handle) ListComponents(w http.ResponseWriter, r *http.Request) {
	components, err := h.service.ListComponents(r.Context())
	if err != nil {
		renderError(w, r, err)
		return
	}

	out := make([]ComponentResponse, 0, len(components))
	for _, c := range components {
		out = append(out, toComponentResponse(c))
	}
	render.Status(r, http.StatusOK)
	render.JSON(w, r, out)
}

// GetComponentByID handles GET /{id}
func (h *Handle) GetComponentByID(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		render.Status(r, http.StatusBadRequest)
		render.JSON(w, r, ErrorResponse{Error: "Invalid component id"})
		return
	}

	component, err := h.service.GetComponentByID(r.Context(), id)
	if err != nil {
		renderError(w, r, err)
		return
	}

	render.Status(r, http.StatusOK)
	render.JSON(w, r, toComponentResponse(component))
}

func toComponentResponse(c catalog.TrainComponent) ComponentResponse {
	resp := ComponentResponse{}
	copier.Copy(&resp, &c)
	resp.ID = c.ID.String()
	resp.Type = string(c.Type)
	return resp
}

func renderError(w http.ResponseWriter, r *http.Request, err error) {
	code := idmerr.GetCode(err)
	status := idmerr.MapErrorCodeToHTTPStatus(code)
	message := "An internal error occurred"
	if status == http.StatusNotFound {
		message = "No train component found"
	} else {
		slog.Error("catalog request failed", "code", code, "err", err)
	}

	render.Status(r, status)
	render.JSON(w, r, ErrorResponse{Error: message})
}
