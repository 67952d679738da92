package chartclient

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newService(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()

	mux.HandleFunc("GET /api/health", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{
			"status":    "healthy",
			"timestamp": "2026-10-14T09:00:00+00:00",
			"version":   "2.0.0",
			"services": map[string]any{
				"ephemeris": map[string]any{"status": "healthy"},
			},
			"metrics": map[string]any{"requests": 3},
		})
	})
	mux.HandleFunc("GET /api/version", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{
			"api_version":    "2.0.0",
			"engine_version": "Enhanced Traditional Horary 2.0",
			"release_date":   "2025-05-31",
			"features":       []string{"Traditional horary analysis", "Timezone support"},
		})
	})
	mux.HandleFunc("GET /api/metrics", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{"status": "success", "metrics": map[string]any{}})
	})
	mux.HandleFunc("POST /api/calculate-chart", func(w http.ResponseWriter, r *http.Request) {
		var req map[string]any
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]any{"error": "No JSON data provided"})
			return
		}
		if req["location"] == "Atlantis" {
			writeJSON(w, http.StatusNotFound, map[string]any{
				"error": "Location not found: Atlantis", "success": false, "error_type": "LocationError",
			})
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{
			"judgment":   "YES",
			"confidence": 80,
			"echo":       req,
		})
	})
	mux.HandleFunc("POST /api/get-timezone", func(w http.ResponseWriter, r *http.Request) {
		var req locationRequest
		_ = json.NewDecoder(r.Body).Decode(&req)
		writeJSON(w, http.StatusOK, TimezoneResponse{
			Location: req.Location, Latitude: 51.5074, Longitude: -0.1278, Timezone: "Europe/London", Success: true,
		})
	})
	mux.HandleFunc("POST /api/current-time", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusInternalServerError, map[string]any{"error": "Internal server error: boom", "success": false})
	})

	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func TestClient_Health(t *testing.T) {
	srv := newService(t)
	c := New(srv.URL + "/")

	h, err := c.Health(context.Background())
	require.NoError(t, err)
	assert.True(t, h.Healthy())
	assert.Equal(t, "2.0.0", h.Version)
	assert.Equal(t, "healthy", h.Services["ephemeris"].Status)
	assert.JSONEq(t, `{"requests":3}`, string(h.Metrics))
	assert.Equal(t, srv.URL, c.BaseURL())
}

func TestClient_HealthUnhealthyKeepsBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusServiceUnavailable, map[string]any{
			"status": "unhealthy",
			"services": map[string]any{
				"computational_helpers": map[string]any{"status": "unhealthy", "error": "division by zero"},
			},
		})
	}))
	defer srv.Close()

	h, err := New(srv.URL).Health(context.Background())
	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, http.StatusServiceUnavailable, apiErr.StatusCode)
	require.NotNil(t, h)
	assert.False(t, h.Healthy())
	assert.Equal(t, "division by zero", h.Services["computational_helpers"].Error)
}

func TestClient_Version(t *testing.T) {
	srv := newService(t)

	v, err := New(srv.URL).Version(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "2.0.0", v.APIVersion)
	assert.Equal(t, "2025-05-31", v.ReleaseDate)
	assert.Len(t, v.Features, 2)
}

func TestClient_Metrics(t *testing.T) {
	srv := newService(t)

	m, err := New(srv.URL).Metrics(context.Background())
	require.NoError(t, err)
	assert.Contains(t, string(m), `"status":"success"`)
}

func TestClient_CalculateChart(t *testing.T) {
	srv := newService(t)
	c := New(srv.URL)

	noCurrent := false
	boost := 20.0
	res, err := c.CalculateChart(context.Background(), ChartRequest{
		Question:                  "Will I get the job?",
		Location:                  "London, UK",
		Date:                      "14/10/2026",
		Time:                      "09:30",
		UseCurrentTime:            &noCurrent,
		ManualHouses:              "1,10",
		IgnoreVoidMoon:            true,
		ExaltationConfidenceBoost: &boost,
	})
	require.NoError(t, err)
	assert.Equal(t, "YES", res.Judgment)
	assert.Equal(t, 80.0, res.Confidence)

	var body struct {
		Echo map[string]any `json:"echo"`
	}
	require.NoError(t, json.Unmarshal(res.Raw, &body))
	assert.Equal(t, false, body.Echo["useCurrentTime"])
	assert.Equal(t, "1,10", body.Echo["manualHouses"])
	assert.Equal(t, true, body.Echo["ignoreVoidMoon"])
	assert.Equal(t, 20.0, body.Echo["exaltationConfidenceBoost"])
	assert.NotContains(t, body.Echo, "ignoreRadicality", "unset flags are omitted")
	assert.NotContains(t, body.Echo, "timezone")
}

func TestClient_CalculateChartRequiresQuestion(t *testing.T) {
	_, err := New("http://127.0.0.1:1").CalculateChart(context.Background(), ChartRequest{Question: "  "})
	assert.Error(t, err)
}

func TestClient_ErrorEnvelope(t *testing.T) {
	srv := newService(t)
	c := New(srv.URL)

	_, err := c.CalculateChart(context.Background(), ChartRequest{Question: "Q", Location: "Atlantis"})
	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr), "got %v", err)
	assert.True(t, apiErr.NotFound())
	assert.Equal(t, "LocationError", apiErr.Type)
	assert.Equal(t, "Location not found: Atlantis", apiErr.Message)
	assert.Contains(t, apiErr.Error(), "LocationError")

	_, err = c.CurrentTime(context.Background(), "London")
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, http.StatusInternalServerError, apiErr.StatusCode)
	assert.Empty(t, apiErr.Type)
}

func TestClient_Timezone(t *testing.T) {
	srv := newService(t)
	c := New(srv.URL)

	tz, err := c.Timezone(context.Background(), " London, UK ")
	require.NoError(t, err)
	assert.Equal(t, "London, UK", tz.Location)
	assert.Equal(t, "Europe/London", tz.Timezone)
	assert.True(t, tz.Success)

	_, err = c.Timezone(context.Background(), "")
	assert.Error(t, err)
}

func TestClient_Status(t *testing.T) {
	srv := newService(t)

	st, err := New(srv.URL).Status(context.Background())
	require.NoError(t, err)
	require.NotNil(t, st.Health)
	require.NotNil(t, st.Version)
	assert.Equal(t, "healthy", st.Health.Status)
	assert.Equal(t, "Enhanced Traditional Horary 2.0", st.Version.EngineVersion)
}

func TestClient_Unreachable(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	_, err := New(url).Version(context.Background())
	require.Error(t, err)
	var apiErr *APIError
	assert.False(t, errors.As(err, &apiErr), "transport failures are not API errors")
}

func TestAPIError_Message(t *testing.T) {
	assert.Equal(t, "chart service returned HTTP 502", (&APIError{StatusCode: 502}).Error())
	assert.Equal(t, "chart service returned HTTP 400: Question is required",
		(&APIError{StatusCode: 400, Message: "Question is required"}).Error())
}
