package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"
)

// maxReviewWait caps GET /review?wait=.
const maxReviewWait = 30 * time.Second

// ReviewHandler handles the profile review screen.
type ReviewHandler struct {
	app Onboarding
}

// NewReviewHandler creates a new review handler.
func NewReviewHandler(app Onboarding) *ReviewHandler {
	return &ReviewHandler{app: app}
}

// HandleReview handles POST and GET /review requests. GET accepts a wait
// duration and then blocks until enrichment finished or the wait ran out.
func (h *ReviewHandler) HandleReview(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodPost:
		snap, err := h.app.OpenReview(r.Context())
		if err != nil {
			writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, snap)
	case http.MethodGet:
		h.get(w, r)
	default:
		methodNotAllowed(w, "GET, POST")
	}
}

func (h *ReviewHandler) get(w http.ResponseWriter, r *http.Request) {
	raw := r.URL.Query().Get("wait")
	if raw == "" {
		snap, err := h.app.Review()
		if err != nil {
			writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, snap)
		return
	}

	wait, err := time.ParseDuration(raw)
	if err != nil || wait < 0 {
		writeError(w, http.StatusBadRequest, "bad_request", fmt.Errorf("%w: invalid wait %q", ErrBadRequest, raw))
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), min(wait, maxReviewWait))
	defer cancel()

	snap, err := h.app.WaitReview(ctx)
	if err != nil && !errors.Is(err, context.DeadlineExceeded) {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, snap)
}
