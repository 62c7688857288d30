// Package handler exposes the violation registry over HTTP: a JSON
// listing, an HTML table, and a health probe reporting snapshot age.
package handler

import (
	"html/template"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	dronemodels "dronewatch/internal/drones/models"
	pilotmodels "dronewatch/internal/pilot/models"
	"dronewatch/pkg/platform/httputil"
	"dronewatch/pkg/requestcontext"
)

// Registry provides the live violator records, sorted by serial.
type Registry interface {
	Snapshot() []pilotmodels.Pilot
}

// Snapshots provides the latest sensor capture for the health probe.
type Snapshots interface {
	Latest() (dronemodels.Capture, bool)
}

var indexTemplate = template.Must(template.New("index").Parse(`<table>
<caption>DMZ violating drone pilots</caption>
<tr><th>Pilot name</th><th>Email Address</th><th>Phone number</th><th>Closest distance to nest (mm)</th></tr>
{{- range .}}
<tr><td>{{.Name}}</td><td>{{.Email}}</td><td>{{.Phone}}</td><td>{{printf "%.0f" .ClosestDistance}}</td></tr>
{{- end}}
</table>
`))

// Handler wires violation endpoints to the registry and snapshot state.
type Handler struct {
	registry  Registry
	snapshots Snapshots
	logger    *slog.Logger
}

// New constructs a violations handler with its dependencies.
func New(registry Registry, snapshots Snapshots, logger *slog.Logger) *Handler {
	return &Handler{
		registry:  registry,
		snapshots: snapshots,
		logger:    logger,
	}
}

// Register mounts violation endpoints on the router.
func (h *Handler) Register(r chi.Router) {
	r.Get("/", h.HandleIndex)
	r.Get("/violations", h.HandleViolations)
	r.Get("/healthz", h.HandleHealth)
}

// Violator is the JSON shape of one violator record.
type Violator struct {
	Name            string  `json:"name"`
	Email           string  `json:"email"`
	Phone           string  `json:"phone"`
	ClosestDistance float64 `json:"closestDistance"`
}

// HandleViolations handles GET /violations requests.
func (h *Handler) HandleViolations(w http.ResponseWriter, r *http.Request) {
	pilots := h.live(r)
	out := make([]Violator, 0, len(pilots))
	for _, p := range pilots {
		out = append(out, Violator{
			Name:            p.Name(),
			Email:           p.Email(),
			Phone:           p.Phone(),
			ClosestDistance: p.ClosestDistance(),
		})
	}
	httputil.WriteJSON(w, http.StatusOK, out)
}

// HandleIndex handles GET / requests with the HTML violator table.
func (h *Handler) HandleIndex(w http.ResponseWriter, r *http.Request) {
	pilots := h.live(r)

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := indexTemplate.Execute(w, pilots); err != nil {
		h.logger.ErrorContext(r.Context(), "rendering violator table",
			"request_id", requestcontext.RequestID(r.Context()),
			"error", err,
		)
	}
}

// HandleHealth handles GET /healthz requests, reporting the age of the
// latest capture. The service is healthy even before the first capture;
// only the server being up is probed.
func (h *Handler) HandleHealth(w http.ResponseWriter, r *http.Request) {
	body := map[string]any{"status": "ok"}
	if capture, ok := h.snapshots.Latest(); ok {
		body["captureTime"] = capture.Time.Format(time.RFC3339)
		body["captureAgeSeconds"] = int64(time.Since(capture.Time).Seconds())
	}
	httputil.WriteJSON(w, http.StatusOK, body)
}

// live filters the registry snapshot against the request-scoped now so
// one response never mixes records across an eviction boundary.
func (h *Handler) live(r *http.Request) []pilotmodels.Pilot {
	now := requestcontext.Now(r.Context())
	pilots := h.registry.Snapshot()
	out := pilots[:0:0]
	for _, p := range pilots {
		if !p.Expired(now) {
			out = append(out, p)
		}
	}
	return out
}
