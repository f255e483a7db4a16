package session

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/richxcame/navigator/internal/directions"
	"github.com/richxcame/navigator/internal/navigation"
	"github.com/richxcame/navigator/pkg/common"
	"github.com/richxcame/navigator/pkg/httpclient"
	"github.com/richxcame/navigator/pkg/resilience"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type envelope struct {
	Success bool              `json:"success"`
	Data    json.RawMessage   `json:"data"`
	Error   *common.ErrorInfo `json:"error"`
}

func setupRouter(svc *Service) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	NewHandler(svc, nil, nil).RegisterRoutes(r.Group("/api/v1/navigation"))
	return r
}

func doRequest(t *testing.T, r *gin.Engine, method, path string, body interface{}) (*httptest.ResponseRecorder, envelope) {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	var env envelope
	if w.Header().Get("Content-Type") == "application/json; charset=utf-8" {
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env))
	}
	return w, env
}

func startViaAPI(t *testing.T, r *gin.Engine) View {
	t.Helper()
	route := testRoute()
	w, env := doRequest(t, r, http.MethodPost, "/api/v1/navigation/sessions", StartRequest{Route: &route})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var view View
	require.NoError(t, json.Unmarshal(env.Data, &view))
	return view
}

func sessionPath(id, suffix string) string {
	return fmt.Sprintf("/api/v1/navigation/sessions/%s%s", id, suffix)
}

func TestHandler_Start(t *testing.T) {
	f := newFixture(t, Config{})
	r := setupRouter(f.svc)

	view := startViaAPI(t, r)
	assert.NotEmpty(t, view.ID)
	assert.Equal(t, "driving", view.Mode)
	assert.Equal(t, "Head north on Main St", view.Instruction)
	assert.Equal(t, 2, view.StepCount)
}

func TestHandler_StartErrors(t *testing.T) {
	f := newFixture(t, Config{})
	r := setupRouter(f.svc)

	tests := []struct {
		name       string
		body       interface{}
		wantStatus int
		wantCode   string
	}{
		{
			name:       "unknown travel mode",
			body:       map[string]interface{}{"mode": "flying", "origin": LatLng{1, 2}, "destination": LatLng{3, 4}},
			wantStatus: http.StatusUnprocessableEntity,
			wantCode:   "VALIDATION_FAILED",
		},
		{
			name:       "latitude out of range",
			body:       map[string]interface{}{"origin": LatLng{95, 2}, "destination": LatLng{3, 4}},
			wantStatus: http.StatusUnprocessableEntity,
			wantCode:   "VALIDATION_FAILED",
		},
		{
			name:       "no route",
			body:       map[string]interface{}{},
			wantStatus: http.StatusBadRequest,
		},
		{
			name:       "no directions client",
			body:       map[string]interface{}{"origin": LatLng{1, 2}, "destination": LatLng{3, 4}},
			wantStatus: http.StatusServiceUnavailable,
		},
		{
			name:       "empty inline route",
			body:       map[string]interface{}{"route": map[string]interface{}{"steps": []interface{}{}}},
			wantStatus: http.StatusBadRequest,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w, env := doRequest(t, r, http.MethodPost, "/api/v1/navigation/sessions", tt.body)
			assert.Equal(t, tt.wantStatus, w.Code, w.Body.String())
			assert.False(t, env.Success)
			require.NotNil(t, env.Error)
			if tt.wantCode != "" {
				assert.Equal(t, tt.wantCode, env.Error.ErrorCode)
			}
		})
	}

	t.Run("malformed json", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/api/v1/navigation/sessions", bytes.NewBufferString("{"))
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})
}

func TestHandler_SessionLifecycle(t *testing.T) {
	f := newFixture(t, Config{})
	f.allowPositions()
	r := setupRouter(f.svc)
	view := startViaAPI(t, r)

	w, env := doRequest(t, r, http.MethodGet, sessionPath(view.ID, ""), nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.True(t, env.Success)

	fix := fixAt(pointB, 10)
	w, env = doRequest(t, r, http.MethodPost, sessionPath(view.ID, "/fixes"), fix)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var result FixResult
	require.NoError(t, json.Unmarshal(env.Data, &result))
	assert.True(t, result.Accepted)
	assert.Equal(t, 1, result.Session.StepIndex)
	require.Len(t, result.Events, 2)
	assert.Equal(t, navigation.EventStepCompleted, result.Events[0].Kind)

	w, _ = doRequest(t, r, http.MethodPost, sessionPath(view.ID, "/advance"), nil)
	assert.Equal(t, http.StatusConflict, w.Code)

	w, env = doRequest(t, r, http.MethodPut, sessionPath(view.ID, "/voice"), map[string]bool{"enabled": false})
	require.Equal(t, http.StatusOK, w.Code)
	var muted View
	require.NoError(t, json.Unmarshal(env.Data, &muted))
	assert.False(t, muted.Voice)

	w, _ = doRequest(t, r, http.MethodDelete, sessionPath(view.ID, ""), nil)
	assert.Equal(t, http.StatusOK, w.Code)

	w, env = doRequest(t, r, http.MethodDelete, sessionPath(view.ID, ""), nil)
	assert.Equal(t, http.StatusConflict, w.Code)
	require.NotNil(t, env.Error)
	assert.Equal(t, "navigation has already ended", env.Error.Message)

	w, _ = doRequest(t, r, http.MethodPost, sessionPath(view.ID, "/fixes"), fix)
	assert.Equal(t, http.StatusConflict, w.Code)
}

func TestHandler_SubmitFixValidation(t *testing.T) {
	f := newFixture(t, Config{})
	r := setupRouter(f.svc)
	view := startViaAPI(t, r)

	w, env := doRequest(t, r, http.MethodPost, sessionPath(view.ID, "/fixes"), map[string]float64{
		"latitude": 91, "longitude": 103.85, "accuracy": 5,
	})
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	require.NotNil(t, env.Error)
	assert.Contains(t, env.Error.Message, "latitude")

	w, _ = doRequest(t, r, http.MethodPost, sessionPath(view.ID, "/fixes"), map[string]float64{
		"latitude": 1.28, "longitude": 103.85, "accuracy": -1,
	})
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)

	w, env = doRequest(t, r, http.MethodPost, sessionPath(view.ID, "/fixes"), map[string]float64{
		"latitude": 1.28, "longitude": 103.85, "accuracy": 500,
	})
	require.Equal(t, http.StatusOK, w.Code)
	var result FixResult
	require.NoError(t, json.Unmarshal(env.Data, &result))
	assert.False(t, result.Accepted)
	assert.NotEmpty(t, result.Reason)
}

func TestHandler_SetVoiceRequiresEnabled(t *testing.T) {
	f := newFixture(t, Config{})
	r := setupRouter(f.svc)
	view := startViaAPI(t, r)

	w, _ := doRequest(t, r, http.MethodPut, sessionPath(view.ID, "/voice"), map[string]string{})
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
}

func TestHandler_UnknownSession(t *testing.T) {
	f := newFixture(t, Config{})
	r := setupRouter(f.svc)

	for _, tc := range []struct{ method, suffix string }{
		{http.MethodGet, ""},
		{http.MethodDelete, ""},
		{http.MethodPost, "/advance"},
		{http.MethodGet, "/route"},
		{http.MethodGet, "/route.kml"},
	} {
		w, _ := doRequest(t, r, tc.method, sessionPath("missing", tc.suffix), nil)
		assert.Equal(t, http.StatusNotFound, w.Code, "%s %s", tc.method, tc.suffix)
	}
}

func TestHandler_Route(t *testing.T) {
	f := newFixture(t, Config{})
	r := setupRouter(f.svc)
	view := startViaAPI(t, r)

	w, env := doRequest(t, r, http.MethodGet, sessionPath(view.ID, "/route"), nil)
	require.Equal(t, http.StatusOK, w.Code)
	var route navigation.Route
	require.NoError(t, json.Unmarshal(env.Data, &route))
	assert.Len(t, route.Steps, 2)
	assert.Equal(t, "Main St", route.Summary)

	w, _ = doRequest(t, r, http.MethodGet, sessionPath(view.ID, "/route.kml"), nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "application/vnd.google-earth.kml+xml", w.Header().Get("Content-Type"))
	assert.Contains(t, w.Header().Get("Content-Disposition"), view.ID)
	assert.Contains(t, w.Body.String(), "<kml")
	assert.Contains(t, w.Body.String(), "Turn left onto Orchard Rd")
}

func TestHandler_Nearby(t *testing.T) {
	f := newFixture(t, Config{})
	r := setupRouter(f.svc)
	startViaAPI(t, r)

	f.positions.On("GeoRadius", mock.Anything, PositionsKey, 103.85, 1.29, 1.0, 20).
		Return(nil, nil).Once()
	w, env := doRequest(t, r, http.MethodGet, "/api/v1/navigation/sessions/nearby?lat=1.29&lng=103.85", nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var body struct {
		Sessions []NearbySession `json:"sessions"`
		Count    int             `json:"count"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &body))
	assert.Equal(t, 0, body.Count)

	w, _ = doRequest(t, r, http.MethodGet, "/api/v1/navigation/sessions/nearby?lat=95&lng=103.85", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	w, _ = doRequest(t, r, http.MethodGet, "/api/v1/navigation/sessions/nearby?lat=1.29&lng=103.85&radius_km=100", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	w, _ = doRequest(t, r, http.MethodGet, "/api/v1/navigation/sessions/nearby?lat=1.29&lng=103.85&limit=0", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	f.positions.On("GeoRadius", mock.Anything, PositionsKey, 103.85, 1.29, 1.0, 20).
		Return(nil, errors.New("connection refused")).Once()
	w, _ = doRequest(t, r, http.MethodGet, "/api/v1/navigation/sessions/nearby?lat=1.29&lng=103.85", nil)
	assert.Equal(t, http.StatusInternalServerError, w.Code)
}

func TestHandler_NearbyWithoutIndex(t *testing.T) {
	r := setupRouter(NewService(Config{}))
	w, _ := doRequest(t, r, http.MethodGet, "/api/v1/navigation/sessions/nearby?lat=1.29&lng=103.85", nil)
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}

func TestToAppError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"not found", ErrSessionNotFound, http.StatusNotFound},
		{"limit", ErrSessionLimit, http.StatusTooManyRequests},
		{"route required", ErrRouteRequired, http.StatusBadRequest},
		{"invalid route", navigation.ErrInvalidRoute, http.StatusBadRequest},
		{"ended", navigation.ErrNavigationEnded, http.StatusConflict},
		{"last step", navigation.ErrLastStep, http.StatusConflict},
		{"no route", fmt.Errorf("directions request failed: %w", directions.ErrNoRouteFound), http.StatusNotFound},
		{"zero results", &directions.APIError{Status: "ZERO_RESULTS"}, http.StatusNotFound},
		{"denied", &directions.APIError{Status: "REQUEST_DENIED", Message: "bad key"}, http.StatusBadGateway},
		{"upstream http", fmt.Errorf("directions request failed: %w", &httpclient.HTTPError{StatusCode: 500}), http.StatusBadGateway},
		{"bad data", directions.ErrInvalidRouteData, http.StatusBadGateway},
		{"breaker open", resilience.ErrCircuitOpen, http.StatusServiceUnavailable},
		{"no provider", ErrDirectionsUnavailable, http.StatusServiceUnavailable},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var appErr *common.AppError
			require.True(t, errors.As(toAppError(tt.err), &appErr))
			assert.Equal(t, tt.want, appErr.Code)
		})
	}

	assert.Nil(t, toAppError(nil))
	plain := errors.New("boom")
	assert.Equal(t, plain, toAppError(plain))
}
