package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/wolfman30/consult-booking/internal/booking"
	"github.com/wolfman30/consult-booking/internal/confirmation"
	"github.com/wolfman30/consult-booking/internal/observability/metrics"
	"github.com/wolfman30/consult-booking/internal/organizer"
	"github.com/wolfman30/consult-booking/internal/sessions"
	"github.com/wolfman30/consult-booking/pkg/logging"
)

const dateParamLayout = "2006-01-02"

// WizardHandlerConfig wires the booking wizard HTTP surface.
type WizardHandlerConfig struct {
	Store     sessions.Store
	Submitter booking.Submitter
	Metrics   *metrics.WizardMetrics
	Logger    *logging.Logger
	// DefaultUser supplies the organizer when the request carries none.
	DefaultUser   booking.SessionUser
	WizardOptions []booking.Option
	// LockRefresh is how often a running submission extends its lock.
	// Defaults to a third of sessions.SubmitLockTTL.
	LockRefresh time.Duration
}

// WizardHandler serves the three-step booking wizard over HTTP. Each session
// is a persisted wizard snapshot restored for the duration of one request.
type WizardHandler struct {
	store       sessions.Store
	submitter   booking.Submitter
	metrics     *metrics.WizardMetrics
	logger      *logging.Logger
	defaultUser booking.SessionUser
	opts        []booking.Option
	renderer    *confirmation.Renderer
	lockRefresh time.Duration
}

// NewWizardHandler creates the wizard handler.
func NewWizardHandler(cfg WizardHandlerConfig) *WizardHandler {
	if cfg.Store == nil {
		panic("handlers: session store required")
	}
	if cfg.Submitter == nil {
		panic("handlers: submitter required")
	}
	logger := cfg.Logger
	if logger == nil {
		logger = logging.Default()
	}
	opts := append([]booking.Option{booking.WithLogger(logger)}, cfg.WizardOptions...)
	refresh := cfg.LockRefresh
	if refresh <= 0 {
		refresh = sessions.SubmitLockTTL / 3
	}
	return &WizardHandler{
		store:       cfg.Store,
		submitter:   cfg.Submitter,
		metrics:     cfg.Metrics,
		logger:      logger,
		defaultUser: cfg.DefaultUser,
		opts:        opts,
		renderer:    confirmation.NewRenderer(),
		lockRefresh: refresh,
	}
}

// Routes mounts the wizard endpoints.
func (h *WizardHandler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Get("/options", h.Options)
	r.Post("/sessions", h.CreateSession)
	r.Route("/sessions/{sessionID}", func(s chi.Router) {
		s.Get("/", h.GetSession)
		s.Patch("/draft", h.UpdateDraft)
		s.Patch("/form", h.EditForm)
		s.Put("/selection", h.UpdateSelection)
		s.Post("/next", h.Next)
		s.Post("/prev", h.Prev)
		s.Post("/submit", h.Submit)
		s.Get("/confirmation", h.Confirmation)
	})
	return r
}

// SessionResponse is the client view of a wizard.
type SessionResponse struct {
	ID           string                    `json:"id"`
	Mode         booking.Mode              `json:"mode"`
	Step         booking.Step              `json:"step"`
	StepTitle    string                    `json:"stepTitle"`
	Progress     int                       `json:"progress"`
	HasNext      bool                      `json:"hasNext"`
	HasPrev      bool                      `json:"hasPrev"`
	Submitting   bool                      `json:"submitting"`
	Completed    bool                      `json:"completed"`
	Draft        booking.MeetingDraft      `json:"draft"`
	Selection    booking.Selection         `json:"selection"`
	Pending      booking.Patch             `json:"pending"`
	Notice       string                    `json:"notice,omitempty"`
	Confirmation *booking.SubmittedMeeting `json:"confirmation,omitempty"`
}

// ErrorResponse is returned for every failed wizard call.
type ErrorResponse struct {
	Error   string   `json:"error"`
	Step    string   `json:"step,omitempty"`
	Missing []string `json:"missing,omitempty"`
}

// SelectionRequest is the body of PUT /selection. Date is YYYY-MM-DD.
type SelectionRequest struct {
	Date      *string `json:"date,omitempty"`
	StartTime *string `json:"startTime,omitempty"`
	Timezone  *string `json:"timezone,omitempty"`
}

// Options handles GET /options.
func (h *WizardHandler) Options(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, booking.AvailableOptions())
}

// CreateSession handles POST /sessions. The body is an optional entry state.
func (h *WizardHandler) CreateSession(w http.ResponseWriter, r *http.Request) {
	var entry booking.Entry
	if err := decodeOptional(r, &entry); err != nil {
		writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: "Invalid request body"})
		return
	}

	var user booking.SessionUser = organizer.FromContext(r.Context())
	if _, ok := user.UserID(); !ok && h.defaultUser != nil {
		user = h.defaultUser
	}
	wiz := booking.NewWizard(entry, user, h.submitter, h.opts...)
	rec, err := h.store.Create(r.Context(), wiz.Snapshot())
	if err != nil {
		h.logger.Error("failed to create wizard session", "error", err)
		writeJSON(w, http.StatusInternalServerError, ErrorResponse{Error: booking.MsgGenericFailure})
		return
	}
	h.logger.Info("wizard session created", "session_id", rec.ID, "mode", string(wiz.Mode()))
	writeJSON(w, http.StatusCreated, h.view(rec.ID, wiz, false))
}

// GetSession handles GET /sessions/{sessionID}.
func (h *WizardHandler) GetSession(w http.ResponseWriter, r *http.Request) {
	rec, ok := h.load(w, r)
	if !ok {
		return
	}
	submitting, _ := h.store.Submitting(r.Context(), rec.ID)
	writeJSON(w, http.StatusOK, h.view(rec.ID, h.restore(rec), submitting))
}

// UpdateDraft handles PATCH /sessions/{sessionID}/draft.
func (h *WizardHandler) UpdateDraft(w http.ResponseWriter, r *http.Request) {
	var patch booking.Patch
	if err := json.NewDecoder(r.Body).Decode(&patch); err != nil {
		writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: "Invalid request body"})
		return
	}
	h.mutate(w, r, func(wiz *booking.Wizard) error {
		return wiz.Update(patch)
	})
}

// EditForm handles PATCH /sessions/{sessionID}/form. Edits stay pending
// until the next step move or submission.
func (h *WizardHandler) EditForm(w http.ResponseWriter, r *http.Request) {
	var patch booking.Patch
	if err := json.NewDecoder(r.Body).Decode(&patch); err != nil {
		writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: "Invalid request body"})
		return
	}
	h.mutate(w, r, func(wiz *booking.Wizard) error {
		return wiz.EditForm(patch)
	})
}

// UpdateSelection handles PUT /sessions/{sessionID}/selection. The timezone
// is applied first so the past-date check uses it.
func (h *WizardHandler) UpdateSelection(w http.ResponseWriter, r *http.Request) {
	var req SelectionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: "Invalid request body"})
		return
	}
	var date *time.Time
	if req.Date != nil {
		parsed, err := time.Parse(dateParamLayout, strings.TrimSpace(*req.Date))
		if err != nil {
			writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: "date must be YYYY-MM-DD", Step: booking.StepScheduling.String()})
			return
		}
		date = &parsed
	}
	h.mutate(w, r, func(wiz *booking.Wizard) error {
		if req.Timezone != nil {
			if err := wiz.SelectTimezone(*req.Timezone); err != nil {
				return err
			}
		}
		if date != nil {
			if err := wiz.SelectDate(*date); err != nil {
				return err
			}
		}
		if req.StartTime != nil {
			if err := wiz.SelectTime(*req.StartTime); err != nil {
				return err
			}
		}
		return nil
	})
}

// Next handles POST /sessions/{sessionID}/next.
func (h *WizardHandler) Next(w http.ResponseWriter, r *http.Request) {
	h.mutate(w, r, func(wiz *booking.Wizard) error {
		from := wiz.Step()
		err := wiz.Next()
		h.metrics.ObserveTransition(from.String(), "next", err == nil)
		return err
	})
}

// Prev handles POST /sessions/{sessionID}/prev.
func (h *WizardHandler) Prev(w http.ResponseWriter, r *http.Request) {
	h.mutate(w, r, func(wiz *booking.Wizard) error {
		from := wiz.Step()
		h.metrics.ObserveTransition(from.String(), "prev", wiz.Prev())
		return nil
	})
}

// Submit handles POST /sessions/{sessionID}/submit. A per-session lock keeps
// at most one submission in flight across requests and instances. It is
// refreshed while the remote call runs and released before the response is
// written.
func (h *WizardHandler) Submit(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "sessionID")
	ctx := r.Context()

	token, acquired, err := h.store.AcquireSubmit(ctx, id)
	if err != nil {
		h.logger.Error("failed to acquire submit lock", "session_id", id, "error", err)
		writeJSON(w, http.StatusInternalServerError, ErrorResponse{Error: booking.MsgGenericFailure})
		return
	}
	if !acquired {
		h.writeError(w, booking.ErrSubmissionInFlight, booking.StepConfirmation)
		return
	}

	stop := h.holdSubmitLock(id, token)
	status, payload := h.submitLocked(ctx, id)
	stop()

	// The request context may already be cancelled.
	if err := h.store.ReleaseSubmit(context.WithoutCancel(ctx), id, token); err != nil {
		h.logger.Warn("failed to release submit lock", "session_id", id, "error", err)
	}
	writeJSON(w, status, payload)
}

// holdSubmitLock refreshes the submit lock until the returned stop is called.
func (h *WizardHandler) holdSubmitLock(id, token string) (stop func()) {
	done := make(chan struct{})
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		ticker := time.NewTicker(h.lockRefresh)
		defer ticker.Stop()
		for {
			select {
			case <-done:
				return
			case <-ticker.C:
				held, err := h.store.RefreshSubmit(context.Background(), id, token)
				if err != nil {
					h.logger.Warn("failed to refresh submit lock", "session_id", id, "error", err)
				} else if !held {
					h.logger.Error("submit lock lost during submission", "session_id", id)
				}
			}
		}
	}()
	return func() {
		close(done)
		wg.Wait()
	}
}

func (h *WizardHandler) submitLocked(ctx context.Context, id string) (int, any) {
	rec, err := h.store.Get(ctx, id)
	if errors.Is(err, sessions.ErrNotFound) {
		return http.StatusNotFound, ErrorResponse{Error: "session not found"}
	}
	if err != nil {
		h.logger.Error("failed to load wizard session", "session_id", id, "error", err)
		return http.StatusInternalServerError, ErrorResponse{Error: booking.MsgGenericFailure}
	}

	wiz := h.restore(rec)
	_, submitErr := wiz.Submit(ctx)
	rec.Snapshot = wiz.Snapshot()

	if submitErr != nil {
		// Edits saved meanwhile win over the failed attempt's synced form.
		if err := h.store.Save(context.WithoutCancel(ctx), rec); err != nil && !errors.Is(err, sessions.ErrStale) {
			h.logger.Error("failed to save wizard session", "session_id", id, "error", err)
		}
		return h.errorResponse(submitErr, wiz.Step())
	}
	if err := h.saveSubmitted(context.WithoutCancel(ctx), rec); err != nil {
		h.logger.Error("failed to save submitted meeting", "session_id", id, "error", err)
		return http.StatusInternalServerError, ErrorResponse{Error: booking.MsgGenericFailure}
	}
	resp := h.view(rec.ID, wiz, false)
	resp.Notice = booking.SuccessNotice(wiz.Mode())
	return http.StatusOK, resp
}

// saveSubmitted persists a completed wizard. The meeting already exists
// remotely, so it replaces any edit saved after the submission read the
// session.
func (h *WizardHandler) saveSubmitted(ctx context.Context, rec *sessions.Record) error {
	const attempts = 3
	var err error
	for i := 0; i < attempts; i++ {
		err = h.store.Save(ctx, rec)
		if !errors.Is(err, sessions.ErrStale) {
			return err
		}
		latest, getErr := h.store.Get(ctx, rec.ID)
		if getErr != nil {
			return getErr
		}
		rec.Version = latest.Version
	}
	return err
}

// Confirmation handles GET /sessions/{sessionID}/confirmation. With
// ?format=text the thank-you page is rendered as plain text.
func (h *WizardHandler) Confirmation(w http.ResponseWriter, r *http.Request) {
	rec, ok := h.load(w, r)
	if !ok {
		return
	}
	if rec.Snapshot.Confirmation == nil {
		writeJSON(w, http.StatusNotFound, ErrorResponse{Error: "meeting not submitted yet", Step: rec.Snapshot.Step.String()})
		return
	}
	view := confirmation.Build(*rec.Snapshot.Confirmation, rec.Snapshot.Mode)
	if r.URL.Query().Get("format") != "text" {
		writeJSON(w, http.StatusOK, view)
		return
	}
	text, err := h.renderer.Render(view)
	if err != nil {
		h.logger.Error("failed to render confirmation", "session_id", rec.ID, "error", err)
		writeJSON(w, http.StatusInternalServerError, ErrorResponse{Error: booking.MsgGenericFailure})
		return
	}
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = io.WriteString(w, text)
}

func (h *WizardHandler) mutate(w http.ResponseWriter, r *http.Request, apply func(*booking.Wizard) error) {
	rec, ok := h.load(w, r)
	if !ok {
		return
	}
	submitting, err := h.store.Submitting(r.Context(), rec.ID)
	if err != nil {
		h.logger.Error("failed to check submit lock", "session_id", rec.ID, "error", err)
		writeJSON(w, http.StatusInternalServerError, ErrorResponse{Error: booking.MsgGenericFailure})
		return
	}
	if submitting {
		h.writeError(w, booking.ErrSubmissionInFlight, rec.Snapshot.Step)
		return
	}

	wiz := h.restore(rec)
	applyErr := apply(wiz)

	// Blocked moves still sync widget edits, so persist either way.
	rec.Snapshot = wiz.Snapshot()
	err = h.store.Save(r.Context(), rec)
	switch {
	case errors.Is(err, sessions.ErrStale):
		writeJSON(w, http.StatusConflict, ErrorResponse{Error: "This booking changed in the meantime, reload and try again", Step: wiz.Step().String()})
		return
	case errors.Is(err, sessions.ErrNotFound):
		writeJSON(w, http.StatusNotFound, ErrorResponse{Error: "session not found"})
		return
	case err != nil:
		h.logger.Error("failed to save wizard session", "session_id", rec.ID, "error", err)
		writeJSON(w, http.StatusInternalServerError, ErrorResponse{Error: booking.MsgGenericFailure})
		return
	}
	if applyErr != nil {
		h.writeError(w, applyErr, wiz.Step())
		return
	}
	writeJSON(w, http.StatusOK, h.view(rec.ID, wiz, false))
}

func (h *WizardHandler) load(w http.ResponseWriter, r *http.Request) (*sessions.Record, bool) {
	id := chi.URLParam(r, "sessionID")
	rec, err := h.store.Get(r.Context(), id)
	if errors.Is(err, sessions.ErrNotFound) {
		writeJSON(w, http.StatusNotFound, ErrorResponse{Error: "session not found"})
		return nil, false
	}
	if err != nil {
		h.logger.Error("failed to load wizard session", "session_id", id, "error", err)
		writeJSON(w, http.StatusInternalServerError, ErrorResponse{Error: booking.MsgGenericFailure})
		return nil, false
	}
	return rec, true
}

func (h *WizardHandler) restore(rec *sessions.Record) *booking.Wizard {
	return booking.Restore(rec.Snapshot, h.submitter, h.opts...)
}

func (h *WizardHandler) view(id string, wiz *booking.Wizard, submitting bool) SessionResponse {
	snap := wiz.Snapshot()
	title := ""
	for _, info := range booking.Steps() {
		if info.Step == snap.Step {
			title = info.Title
		}
	}
	return SessionResponse{
		ID:           id,
		Mode:         snap.Mode,
		Step:         snap.Step,
		StepTitle:    title,
		Progress:     booking.Progress(snap.Step),
		HasNext:      wiz.HasNext(),
		HasPrev:      wiz.HasPrev(),
		Submitting:   submitting,
		Completed:    snap.Confirmation != nil,
		Draft:        snap.Draft,
		Selection:    snap.Selection,
		Pending:      snap.Pending,
		Confirmation: snap.Confirmation,
	}
}

func (h *WizardHandler) writeError(w http.ResponseWriter, err error, step booking.Step) {
	status, resp := h.errorResponse(err, step)
	writeJSON(w, status, resp)
}

func (h *WizardHandler) errorResponse(err error, step booking.Step) (int, ErrorResponse) {
	resp := ErrorResponse{Error: booking.UserMessage(err), Step: step.String()}
	var (
		verr *booking.ValidationError
		terr *booking.TransportError
	)
	switch {
	case errors.As(err, &verr):
		resp.Step = verr.Step.String()
		resp.Missing = verr.Missing
		return http.StatusUnprocessableEntity, resp
	case errors.As(err, &terr):
		return http.StatusBadGateway, resp
	case errors.Is(err, booking.ErrSubmissionInFlight):
		resp.Error = "A submission is already in progress"
		return http.StatusConflict, resp
	case errors.Is(err, booking.ErrWizardCompleted):
		resp.Error = "This meeting has already been submitted"
		return http.StatusConflict, resp
	case errors.Is(err, booking.ErrNotAtConfirmation):
		resp.Error = "Complete the earlier steps before scheduling the meeting"
		return http.StatusConflict, resp
	case errors.Is(err, booking.ErrNoNextStep):
		resp.Error = "Confirmation is the last step"
		return http.StatusConflict, resp
	case errors.Is(err, booking.ErrMissingMeetingID):
		resp.Error = "The meeting being rescheduled has no id"
		return http.StatusUnprocessableEntity, resp
	default:
		h.logger.Error("wizard operation failed", "error", err)
		return http.StatusInternalServerError, resp
	}
}

func decodeOptional(r *http.Request, v any) error {
	if r.Body == nil {
		return nil
	}
	err := json.NewDecoder(r.Body).Decode(v)
	if errors.Is(err, io.EOF) {
		return nil
	}
	return err
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
