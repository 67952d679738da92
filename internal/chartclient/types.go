package chartclient

import "encoding/json"

// HealthResponse is returned by GET /api/health.
type HealthResponse struct {
	Status    string                   `json:"status"`
	Timestamp string                   `json:"timestamp"`
	Version   string                   `json:"version"`
	Services  map[string]ServiceHealth `json:"services"`
	Metrics   json.RawMessage          `json:"metrics,omitempty"`
}

// Healthy reports whether the service considers itself fully healthy.
func (h *HealthResponse) Healthy() bool {
	return h.Status == "healthy"
}

// ServiceHealth is one internal service check.
type ServiceHealth struct {
	Status string `json:"status"`
	Error  string `json:"error,omitempty"`
}

// VersionResponse is returned by GET /api/version.
type VersionResponse struct {
	APIVersion    string   `json:"api_version"`
	EngineVersion string   `json:"engine_version"`
	ReleaseDate   string   `json:"release_date"`
	Features      []string `json:"features"`
}

// ChartRequest is the body of POST /api/calculate-chart. Unset optional
// fields are omitted so the service applies its own defaults.
type ChartRequest struct {
	Question       string `json:"question"`
	Location       string `json:"location,omitempty"`
	Date           string `json:"date,omitempty"`
	Time           string `json:"time,omitempty"`
	Timezone       string `json:"timezone,omitempty"`
	UseCurrentTime *bool  `json:"useCurrentTime,omitempty"`
	// ManualHouses is a comma-separated house list such as "1,7".
	ManualHouses string `json:"manualHouses,omitempty"`

	IgnoreRadicality          bool     `json:"ignoreRadicality,omitempty"`
	IgnoreVoidMoon            bool     `json:"ignoreVoidMoon,omitempty"`
	IgnoreCombustion          bool     `json:"ignoreCombustion,omitempty"`
	IgnoreSaturn7th           bool     `json:"ignoreSaturn7th,omitempty"`
	ExaltationConfidenceBoost *float64 `json:"exaltationConfidenceBoost,omitempty"`
}

// ChartResult is a computed chart. Its contents belong to the service and
// are passed through untouched; only the summary fields are decoded.
type ChartResult struct {
	Judgment   string          `json:"judgment"`
	Confidence float64         `json:"confidence"`
	Raw        json.RawMessage `json:"-"`
}

// TimezoneResponse is returned by POST /api/get-timezone.
type TimezoneResponse struct {
	Location  string  `json:"location"`
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
	Timezone  string  `json:"timezone"`
	Success   bool    `json:"success"`
}

// CurrentTimeResponse is returned by POST /api/current-time.
type CurrentTimeResponse struct {
	Location  string  `json:"location"`
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
	LocalTime string  `json:"local_time"`
	UTCTime   string  `json:"utc_time"`
	Timezone  string  `json:"timezone"`
	UTCOffset string  `json:"utc_offset"`
	Success   bool    `json:"success"`
}

type locationRequest struct {
	Location string `json:"location"`
}

// errorEnvelope is the service's error body.
type errorEnvelope struct {
	Error     string `json:"error"`
	ErrorType string `json:"error_type"`
	Success   *bool  `json:"success"`
}
