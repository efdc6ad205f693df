// Package api exposes the watcher management surface over JSON/HTTP.
//
// Routes:
//
//	GET    /health
//	GET    /watchers                  list watchers
//	POST   /watchers                  create a watcher
//	GET    /watchers/{id}             fetch one watcher
//	PUT    /watchers/{id}             replace query, schedule, prices and notifications
//	DELETE /watchers/{id}             delete a watcher
//	POST   /watchers/{id}/pause       stop the watcher's timer
//	POST   /watchers/{id}/resume      restart the watcher's timer
//	POST   /watchers/{id}/reschedule  change the cron schedule
//	POST   /watchers/{id}/run         run one cycle now, exempt from server timeouts
package api

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/aleister1102/marketwatch/internal/models"
	"github.com/rs/zerolog"
)

// WatcherService is the mutation and query surface the handlers drive.
type WatcherService interface {
	CreateWatcher(ctx context.Context, def models.WatcherDefinition) (*models.Watcher, error)
	UpdateWatcher(ctx context.Context, id string, def models.WatcherDefinition) (*models.Watcher, error)
	PauseWatcher(ctx context.Context, id string) (*models.Watcher, error)
	ResumeWatcher(ctx context.Context, id string) (*models.Watcher, error)
	RescheduleWatcher(ctx context.Context, id string, schedule string) (*models.Watcher, error)
	DeleteWatcher(ctx context.Context, id string) error
	TriggerWatcher(ctx context.Context, id string) (models.RunOutcome, error)
	GetWatcher(ctx context.Context, id string) (*models.Watcher, error)
	ListWatchers(ctx context.Context) ([]models.Watcher, error)
	NextRun(id string) (time.Time, bool)
}

// Handler holds the HTTP handlers.
type Handler struct {
	service WatcherService
	logger  zerolog.Logger
}

// NewHandler returns a configured Handler.
func NewHandler(service WatcherService, logger zerolog.Logger) *Handler {
	return &Handler{
		service: service,
		logger:  logger.With().Str("component", "APIHandler").Logger(),
	}
}

// RegisterRoutes mounts every route on mux.
func (h *Handler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /health", h.health)
	mux.HandleFunc("GET /watchers", h.listWatchers)
	mux.HandleFunc("POST /watchers", h.createWatcher)
	mux.HandleFunc("GET /watchers/{id}", h.getWatcher)
	mux.HandleFunc("PUT /watchers/{id}", h.updateWatcher)
	mux.HandleFunc("DELETE /watchers/{id}", h.deleteWatcher)
	mux.HandleFunc("POST /watchers/{id}/pause", h.pauseWatcher)
	mux.HandleFunc("POST /watchers/{id}/resume", h.resumeWatcher)
	mux.HandleFunc("POST /watchers/{id}/reschedule", h.rescheduleWatcher)
	mux.HandleFunc("POST /watchers/{id}/run", h.runWatcher)
}

// Routes returns a ServeMux with every route mounted, wrapped in the request
// logging and panic recovery middleware.
func (h *Handler) Routes() http.Handler {
	mux := http.NewServeMux()
	h.RegisterRoutes(mux)
	return withRecovery(h.logger, withRequestLogging(h.logger, mux))
}

func (h *Handler) health(w http.ResponseWriter, _ *http.Request) {
	jsonOK(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *Handler) listWatchers(w http.ResponseWriter, r *http.Request) {
	watchers, err := h.service.ListWatchers(r.Context())
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	views := make([]watcherView, 0, len(watchers))
	for i := range watchers {
		views = append(views, h.view(&watchers[i]))
	}
	jsonOK(w, http.StatusOK, views)
}

func (h *Handler) createWatcher(w http.ResponseWriter, r *http.Request) {
	var def models.WatcherDefinition
	if !decodeBody(w, r, &def) {
		return
	}

	watcher, err := h.service.CreateWatcher(r.Context(), def)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	jsonOK(w, http.StatusCreated, h.view(watcher))
}

func (h *Handler) getWatcher(w http.ResponseWriter, r *http.Request) {
	watcher, err := h.service.GetWatcher(r.Context(), r.PathValue("id"))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	jsonOK(w, http.StatusOK, h.view(watcher))
}

func (h *Handler) updateWatcher(w http.ResponseWriter, r *http.Request) {
	var def models.WatcherDefinition
	if !decodeBody(w, r, &def) {
		return
	}

	watcher, err := h.service.UpdateWatcher(r.Context(), r.PathValue("id"), def)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	jsonOK(w, http.StatusOK, h.view(watcher))
}

func (h *Handler) deleteWatcher(w http.ResponseWriter, r *http.Request) {
	if err := h.service.DeleteWatcher(r.Context(), r.PathValue("id")); err != nil {
		h.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) pauseWatcher(w http.ResponseWriter, r *http.Request) {
	watcher, err := h.service.PauseWatcher(r.Context(), r.PathValue("id"))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	jsonOK(w, http.StatusOK, h.view(watcher))
}

func (h *Handler) resumeWatcher(w http.ResponseWriter, r *http.Request) {
	watcher, err := h.service.ResumeWatcher(r.Context(), r.PathValue("id"))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	jsonOK(w, http.StatusOK, h.view(watcher))
}

func (h *Handler) rescheduleWatcher(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Schedule string `json:"schedule"`
	}
	if !decodeBody(w, r, &body) {
		return
	}

	watcher, err := h.service.RescheduleWatcher(r.Context(), r.PathValue("id"), body.Schedule)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	jsonOK(w, http.StatusOK, h.view(watcher))
}

func (h *Handler) runWatcher(w http.ResponseWriter, r *http.Request) {
	// A manual cycle can outlast the server timeouts, which would drop the
	// connection while the cycle keeps running.
	rc := http.NewResponseController(w)
	for _, setDeadline := range []func(time.Time) error{rc.SetReadDeadline, rc.SetWriteDeadline} {
		if err := setDeadline(time.Time{}); err != nil && !errors.Is(err, http.ErrNotSupported) {
			h.logger.Debug().Err(err).Msg("Could not clear connection deadline")
		}
	}

	outcome, err := h.service.TriggerWatcher(r.Context(), r.PathValue("id"))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	jsonOK(w, http.StatusOK, newOutcomeView(outcome))
}

func (h *Handler) view(watcher *models.Watcher) watcherView {
	v := watcherView{Watcher: watcher}
	if next, ok := h.service.NextRun(watcher.ID); ok && !next.IsZero() {
		v.NextRun = &next
	}
	return v
}
