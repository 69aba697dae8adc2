package api

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/okian/scit/internal/domain/route"
)

type navigateRequest struct {
	To string `json:"to"`
}

// ProfileHandler exposes the stored profile and the navigation state.
type ProfileHandler struct {
	app Onboarding
}

// NewProfileHandler creates a new profile handler.
func NewProfileHandler(app Onboarding) *ProfileHandler {
	return &ProfileHandler{app: app}
}

// HandleProfile handles GET /profile requests.
func (h *ProfileHandler) HandleProfile(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w, "GET")
		return
	}
	p, err := h.app.Profile(r.Context())
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

// HandleRoute handles GET and POST /route requests.
func (h *ProfileHandler) HandleRoute(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
	case http.MethodPost:
		var req navigateRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "bad_request", fmt.Errorf("%w: %w", ErrBadRequest, err))
			return
		}
		if err := h.app.Navigate(r.Context(), route.Name(req.To)); err != nil {
			writeServiceError(w, err)
			return
		}
	default:
		methodNotAllowed(w, "GET, POST")
		return
	}

	rs, err := h.app.Route()
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, rs)
}
