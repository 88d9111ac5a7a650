package server

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	ws "github.com/gorilla/websocket"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/codrone/flightplanner/internal/planner"
	"github.com/codrone/flightplanner/internal/store"
	"github.com/codrone/flightplanner/pkg/plan"
)

type calmProvider struct{}

func (calmProvider) FetchForecast(ctx context.Context, loc plan.LatLng, window plan.TimeWindow) (plan.WeatherSnapshot, error) {
	return plan.WeatherSnapshot{WindSpeed: 3, Visibility: 12}, nil
}

func resolver(req plan.MissionRequirements) (plan.MissionRequirements, error) {
	if req.Type == "" {
		req.Type = plan.MissionSurvey
	}
	if !req.Type.Valid() {
		return plan.MissionRequirements{}, plan.ErrUnknownMissionType
	}
	if req.Altitude == 0 {
		req.Altitude = 120
	}
	if req.ForwardOverlap == 0 {
		req.ForwardOverlap = 80
	}
	if req.SideOverlap == 0 {
		req.SideOverlap = 70
	}
	if req.TargetSpeed == 0 {
		req.TargetSpeed = 10
	}
	return req, nil
}

func newTestServer(t *testing.T) (*httptest.Server, *store.Manager) {
	t.Helper()

	engine, err := planner.New(resolver, calmProvider{}, planner.Config{}, nil)
	require.NoError(t, err)

	st, err := store.NewManager(zerolog.Nop(), filepath.Join(t.TempDir(), "plans.db"))
	require.NoError(t, err)

	srv := httptest.NewServer(New(engine, st, zerolog.Nop()).Handler())
	t.Cleanup(srv.Close)
	return srv, st
}

func validRequest() plan.Request {
	return plan.Request{
		Boundary: []plan.LatLng{
			{Lat: 52.5200, Lng: 13.4050},
			{Lat: 52.5200, Lng: 13.4065},
			{Lat: 52.5209, Lng: 13.4065},
			{Lat: 52.5209, Lng: 13.4050},
		},
		Drone: plan.DroneSpecifications{
			Model:           "DJI Phantom 4",
			MaxFlightTime:   28,
			MaxSpeed:        20,
			MaxAltitude:     150,
			BatteryCapacity: 5870,
			Weight:          1380,
			WindResistance:  10,
			CameraSpecs:     plan.CameraSpecs{SensorWidth: 6.17, SensorHeight: 4.55, FocalLength: 8.8, Megapixels: 20},
		},
	}
}

func postPlan(t *testing.T, srv *httptest.Server, req plan.Request) *http.Response {
	t.Helper()
	body, err := json.Marshal(req)
	require.NoError(t, err)
	resp, err := http.Post(srv.URL+"/api/v1/plan", "application/json", bytes.NewReader(body))
	require.NoError(t, err)
	return resp
}

func TestHealthcheck(t *testing.T) {
	srv, _ := newTestServer(t)

	resp, err := http.Get(srv.URL + "/healthcheck")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestPlanEndpoint(t *testing.T) {
	srv, st := newTestServer(t)

	resp := postPlan(t, srv, validRequest())
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var p plan.MissionPlan
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&p))
	assert.Equal(t, plan.VerdictFeasible, p.Verdict)
	assert.NotEmpty(t, p.Pattern.Lines)

	recs, err := st.List(0)
	require.NoError(t, err)
	assert.Len(t, recs, 1, "plan should be persisted")
}

func TestPlanEndpointBadBoundary(t *testing.T) {
	srv, _ := newTestServer(t)

	req := validRequest()
	req.Boundary = req.Boundary[:2]

	resp := postPlan(t, srv, req)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)

	var body map[string]string
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Contains(t, body["error"], "degenerate")
}

func TestPlanEndpointBadJSON(t *testing.T) {
	srv, _ := newTestServer(t)

	resp, err := http.Post(srv.URL+"/api/v1/plan", "application/json", strings.NewReader("{nope"))
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestPlanEndpointUnknownMissionType(t *testing.T) {
	srv, _ := newTestServer(t)

	req := validRequest()
	req.Requirements.Type = "patrol"

	resp := postPlan(t, srv, req)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)
}

func TestGetAndListPlans(t *testing.T) {
	srv, _ := newTestServer(t)

	resp := postPlan(t, srv, validRequest())
	resp.Body.Close()

	listResp, err := http.Get(srv.URL + "/api/v1/plans")
	require.NoError(t, err)
	defer listResp.Body.Close()
	require.Equal(t, http.StatusOK, listResp.StatusCode)

	var recs []store.Record
	require.NoError(t, json.NewDecoder(listResp.Body).Decode(&recs))
	require.Len(t, recs, 1)

	getResp, err := http.Get(srv.URL + "/api/v1/plans/1")
	require.NoError(t, err)
	defer getResp.Body.Close()
	require.Equal(t, http.StatusOK, getResp.StatusCode)

	var p plan.MissionPlan
	require.NoError(t, json.NewDecoder(getResp.Body).Decode(&p))
	assert.Equal(t, plan.VerdictFeasible, p.Verdict)
}

func TestGetPlanNotFound(t *testing.T) {
	srv, _ := newTestServer(t)

	resp, err := http.Get(srv.URL + "/api/v1/plans/42")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestStorelessServer(t *testing.T) {
	engine, err := planner.New(resolver, calmProvider{}, planner.Config{}, nil)
	require.NoError(t, err)

	srv := httptest.NewServer(New(engine, nil, zerolog.Nop()).Handler())
	t.Cleanup(srv.Close)

	// Planning still works, it just is not persisted.
	resp := postPlan(t, srv, validRequest())
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	for _, path := range []string{"/api/v1/plans", "/api/v1/plans/1", "/api/v1/plans/1/kml"} {
		resp, err := http.Get(srv.URL + path)
		require.NoError(t, err, path)
		resp.Body.Close()
		assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode, path)
	}
}

func TestKMLEndpoint(t *testing.T) {
	srv, _ := newTestServer(t)

	resp := postPlan(t, srv, validRequest())
	resp.Body.Close()

	kmlResp, err := http.Get(srv.URL + "/api/v1/plans/1/kml?platform=dji&name=Site+A")
	require.NoError(t, err)
	defer kmlResp.Body.Close()
	require.Equal(t, http.StatusOK, kmlResp.StatusCode)
	assert.Contains(t, kmlResp.Header.Get("Content-Type"), "kml")
	assert.Contains(t, kmlResp.Header.Get("Content-Disposition"), "Site_A_dji.kml")

	var buf bytes.Buffer
	_, err = buf.ReadFrom(kmlResp.Body)
	require.NoError(t, err)
	assert.Contains(t, buf.String(), "<name>Site A</name>")
}

func TestStreamReceivesCompletedPlans(t *testing.T) {
	srv, _ := newTestServer(t)

	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http") + "/api/v1/stream"
	conn, _, err := ws.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err)
	defer conn.Close()

	// Give the server a moment to register the subscriber.
	time.Sleep(50 * time.Millisecond)

	resp := postPlan(t, srv, validRequest())
	resp.Body.Close()

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(5*time.Second)))
	_, message, err := conn.ReadMessage()
	require.NoError(t, err)

	var p plan.MissionPlan
	require.NoError(t, json.Unmarshal(message, &p))
	assert.Equal(t, plan.VerdictFeasible, p.Verdict)
}
