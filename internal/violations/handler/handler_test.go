package handler_test

import (
	"log/slog"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	dronemodels "dronewatch/internal/drones/models"
	pilotmodels "dronewatch/internal/pilot/models"
	"dronewatch/internal/violations/handler"
	"dronewatch/pkg/requestcontext"
	"dronewatch/pkg/testutil"
)

type fakeRegistry struct {
	pilots []pilotmodels.Pilot
}

func (f *fakeRegistry) Snapshot() []pilotmodels.Pilot { return f.pilots }

type fakeSnapshots struct {
	capture dronemodels.Capture
	polled  bool
}

func (f *fakeSnapshots) Latest() (dronemodels.Capture, bool) { return f.capture, f.polled }

func buildPilot(t *testing.T, b pilotmodels.Builder, now time.Time) pilotmodels.Pilot {
	t.Helper()
	p, err := b.Build(now)
	require.NoError(t, err)
	return *p
}

func newRouter(reg handler.Registry, snap handler.Snapshots, now time.Time) chi.Router {
	r := chi.NewRouter()
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
			next.ServeHTTP(w, req.WithContext(requestcontext.WithTime(req.Context(), now)))
		})
	})
	handler.New(reg, snap, slog.Default()).Register(r)
	return r
}

func TestHandleViolations(t *testing.T) {
	now := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	reg := &fakeRegistry{pilots: []pilotmodels.Pilot{
		buildPilot(t, pilotmodels.Builder{
			Serial:    "SN-1",
			FirstName: "Maija",
			LastName:  "Meikäläinen",
			Email:     "maija@example.com",
			Phone:     "+358401234567",
			Distance:  61234.5,
			Expire:    now.Add(10 * time.Minute),
		}, now),
		buildPilot(t, pilotmodels.Builder{
			Serial:   "SN-2",
			LastName: "[Pilot of SN-2]",
			Distance: 90000,
			Expire:   now.Add(10 * time.Minute),
		}, now),
	}}
	router := newRouter(reg, &fakeSnapshots{}, now)

	t.Run("lists violators as JSON", func(t *testing.T) {
		rr := testutil.DoRequest(router, testutil.NewRequest(t, http.MethodGet, "/violations"))
		testutil.AssertStatusOK(t, rr)

		got := testutil.UnmarshalResponse[[]handler.Violator](t, rr)
		require.Len(t, *got, 2)
		assert.Equal(t, "Maija Meikäläinen", (*got)[0].Name)
		assert.Equal(t, "maija@example.com", (*got)[0].Email)
		assert.Equal(t, "+358401234567", (*got)[0].Phone)
		assert.Equal(t, 61234.5, (*got)[0].ClosestDistance)
		assert.Equal(t, "[Pilot of SN-2]", (*got)[1].Name)
		assert.Empty(t, (*got)[1].Email)
	})

	t.Run("empty registry yields an empty array", func(t *testing.T) {
		empty := newRouter(&fakeRegistry{}, &fakeSnapshots{}, now)
		rr := testutil.DoRequest(empty, testutil.NewRequest(t, http.MethodGet, "/violations"))
		testutil.AssertStatusOK(t, rr)
		assert.Equal(t, "[]", strings.TrimSpace(rr.Body.String()))
	})

	t.Run("records expired at request time are filtered", func(t *testing.T) {
		later := newRouter(reg, &fakeSnapshots{}, now.Add(11*time.Minute))
		rr := testutil.DoRequest(later, testutil.NewRequest(t, http.MethodGet, "/violations"))
		testutil.AssertStatusOK(t, rr)

		got := testutil.UnmarshalResponse[[]handler.Violator](t, rr)
		assert.Empty(t, *got)
	})
}

func TestHandleIndex(t *testing.T) {
	now := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	reg := &fakeRegistry{pilots: []pilotmodels.Pilot{
		buildPilot(t, pilotmodels.Builder{
			Serial:    "SN-1",
			FirstName: "Maija",
			LastName:  "Meikäläinen",
			Email:     "maija@example.com",
			Phone:     "+358401234567",
			Distance:  61234.6,
			Expire:    now.Add(10 * time.Minute),
		}, now),
	}}
	router := newRouter(reg, &fakeSnapshots{}, now)

	rr := testutil.DoRequest(router, testutil.NewRequest(t, http.MethodGet, "/"))
	testutil.AssertStatusOK(t, rr)
	assert.Contains(t, rr.Header().Get("Content-Type"), "text/html")

	body := rr.Body.String()
	assert.Contains(t, body, "<caption>DMZ violating drone pilots</caption>")
	assert.Contains(t, body, "<td>Maija Meikäläinen</td>")
	assert.Contains(t, body, "<td>61235</td>")
}

func TestHandleHealth(t *testing.T) {
	now := time.Now()

	t.Run("reports capture age once polled", func(t *testing.T) {
		snap := &fakeSnapshots{
			capture: dronemodels.Capture{Time: now.Add(-4 * time.Second)},
			polled:  true,
		}
		router := newRouter(&fakeRegistry{}, snap, now)

		rr := testutil.DoRequest(router, testutil.NewRequest(t, http.MethodGet, "/healthz"))
		testutil.AssertStatusOK(t, rr)
		testutil.AssertJSONContains(t, rr, "status", "ok")
		testutil.AssertJSONHasKey(t, rr, "captureTime")
		testutil.AssertJSONHasKey(t, rr, "captureAgeSeconds")
	})

	t.Run("healthy before the first capture", func(t *testing.T) {
		router := newRouter(&fakeRegistry{}, &fakeSnapshots{}, now)

		rr := testutil.DoRequest(router, testutil.NewRequest(t, http.MethodGet, "/healthz"))
		testutil.AssertStatusOK(t, rr)
		testutil.AssertJSONContains(t, rr, "status", "ok")
	})
}
