package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/okian/scit/internal/adapters/device/sim"
	service "github.com/okian/scit/internal/app"
	"github.com/okian/scit/internal/domain/device"
)

// scanInput is one camera answer. A nil content means the user backed out.
type scanInput struct {
	Content *string `json:"content"`
}

// scannerRequest mirrors the OpenAPI schema for POST /scanner. Answers are
// the scripted dialog choices per dialog ID, in order.
type scannerRequest struct {
	Answers map[string][]string `json:"answers"`
	Scans   []scanInput         `json:"scans"`
}

func (r scannerRequest) validate() error {
	for id, choices := range r.Answers {
		if id == "" {
			return errors.New("empty dialog id in answers")
		}
		for _, c := range choices {
			if c == "" {
				return fmt.Errorf("empty answer for dialog %q", id)
			}
		}
	}
	return nil
}

type flowResponse struct {
	service.FlowResult
	Dialogs []device.Dialog `json:"dialogs"`
}

// ScannerHandler handles the scanner screen.
type ScannerHandler struct {
	app    Onboarding
	feeder Feeder
}

// NewScannerHandler creates a new scanner handler.
func NewScannerHandler(app Onboarding, feeder Feeder) *ScannerHandler {
	return &ScannerHandler{app: app, feeder: feeder}
}

// HandleScanner handles POST, GET and DELETE /scanner requests.
func (h *ScannerHandler) HandleScanner(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodPost:
		h.open(w, r)
	case http.MethodGet:
		writeJSON(w, http.StatusOK, h.app.Scanner())
	case http.MethodDelete:
		h.app.CloseScanner(r.Context())
		w.WriteHeader(http.StatusNoContent)
	default:
		methodNotAllowed(w, "GET, POST, DELETE")
	}
}

// open queues the scripted camera answers and runs the flow until it ends.
func (h *ScannerHandler) open(w http.ResponseWriter, r *http.Request) {
	var req scannerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		writeError(w, http.StatusBadRequest, "bad_request", fmt.Errorf("%w: %w", ErrBadRequest, err))
		return
	}
	if err := req.validate(); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", fmt.Errorf("%w: %w", ErrBadRequest, err))
		return
	}
	if h.app.Scanner().Running {
		writeServiceError(w, service.ErrScannerBusy)
		return
	}
	if err := h.feed(req.Scans); err != nil {
		writeServiceError(w, err)
		return
	}

	prompter := sim.NewPrompter(req.Answers)
	res, err := h.app.OpenScanner(r.Context(), prompter)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, flowResponse{FlowResult: res, Dialogs: prompter.Shown()})
}

func (h *ScannerHandler) feed(scans []scanInput) error {
	if h.feeder == nil {
		if len(scans) > 0 {
			return ErrNoFeeder
		}
		return nil
	}
	h.feeder.DrainScans()
	for _, s := range scans {
		var err error
		if s.Content == nil {
			err = h.feeder.QueueBackOut()
		} else {
			err = h.feeder.QueueScan(*s.Content)
		}
		if err != nil {
			h.feeder.DrainScans()
			return fmt.Errorf("%w: %w", ErrBackpressure, err)
		}
	}
	return nil
}
