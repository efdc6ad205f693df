package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/aleister1102/marketwatch/internal/common"
	"github.com/aleister1102/marketwatch/internal/models"
)

const maxRequestBodyBytes = 1 << 20

// watcherView is the JSON shape of a watcher, with its next scheduled tick.
type watcherView struct {
	*models.Watcher
	NextRun *time.Time `json:"next_run,omitempty"`
}

type deliveryView struct {
	Target         models.NotificationTarget `json:"target"`
	MessagesSent   int                       `json:"messages_sent"`
	MessagesFailed int                       `json:"messages_failed"`
	Error          string                    `json:"error,omitempty"`
}

type outcomeView struct {
	WatcherID   string           `json:"watcher_id"`
	Status      models.RunStatus `json:"status"`
	NewListings []models.Listing `json:"new_listings"`
	Deliveries  []deliveryView   `json:"deliveries"`
	Error       string           `json:"error,omitempty"`
	StartedAt   time.Time        `json:"started_at"`
	FinishedAt  time.Time        `json:"finished_at"`
}

func newOutcomeView(o models.RunOutcome) outcomeView {
	v := outcomeView{
		WatcherID:   o.WatcherID,
		Status:      o.Status,
		NewListings: o.NewListings,
		Deliveries:  make([]deliveryView, 0, len(o.Deliveries)),
		StartedAt:   o.StartedAt,
		FinishedAt:  o.FinishedAt,
	}
	if v.NewListings == nil {
		v.NewListings = []models.Listing{}
	}
	if o.Err != nil {
		v.Error = o.Err.Error()
	}
	for _, d := range o.Deliveries {
		dv := deliveryView{Target: d.Target, MessagesSent: d.MessagesSent, MessagesFailed: d.MessagesFailed}
		if d.LastErr != nil {
			dv.Error = d.LastErr.Error()
		}
		v.Deliveries = append(v.Deliveries, dv)
	}
	return v
}

// statusFor maps the error taxonomy onto HTTP status codes.
func statusFor(err error) int {
	var validationErr *common.ValidationError
	var scheduleErr *common.InvalidScheduleError
	switch {
	case errors.As(err, &validationErr), errors.As(err, &scheduleErr):
		return http.StatusBadRequest
	case common.IsNotFound(err):
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

func (h *Handler) writeError(w http.ResponseWriter, r *http.Request, err error) {
	code := statusFor(err)
	msg := err.Error()
	if code == http.StatusInternalServerError {
		h.logger.Error().Err(err).Str("method", r.Method).Str("path", r.URL.Path).Msg("Request failed")
		msg = "internal error"
	}
	jsonError(w, msg, code)
}

// decodeBody decodes a JSON request body into dst, writing a 400 on failure.
func decodeBody(w http.ResponseWriter, r *http.Request, dst any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxRequestBodyBytes)
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		jsonError(w, "invalid request body: "+err.Error(), http.StatusBadRequest)
		return false
	}
	return true
}

func jsonOK(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func jsonError(w http.ResponseWriter, msg string, code int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": msg})
}
