package config

import (
	"strings"
	"time"
)

const (
	apiBaseURLVar  = "TEAMTRACK_API_BASE_URL"
	httpTimeoutVar = "TEAMTRACK_HTTP_TIMEOUT"
	rateLimitVar   = "TEAMTRACK_RATE_LIMIT"
	rateBurstVar   = "TEAMTRACK_RATE_BURST"
)

type APIConfig interface {
	GetAPIBaseURL() string
	GetHTTPTimeout() time.Duration
	GetRateLimit() float64
	GetRateBurst() int
}

type API struct{}

var _ APIConfig = API{}

func (API) GetAPIBaseURL() string {
	return strings.TrimRight(GetEnv(apiBaseURLVar, "http://localhost:8000/api/v1"), "/")
}

func (API) GetHTTPTimeout() time.Duration {
	return GetDuration(httpTimeoutVar, 30*time.Second)
}

// GetRateLimit is in requests per second. Zero disables client-side throttling.
func (API) GetRateLimit() float64 {
	return GetFloat(rateLimitVar, 0)
}

func (API) GetRateBurst() int {
	return GetInt(rateBurstVar, 5)
}
