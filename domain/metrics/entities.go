package metrics

import "strconv"

// --- Instrument definitions ---

const (
	// TotalRequestsSuffix names the per-process request counter.
	TotalRequestsSuffix = "_total_requests"
	// ResponseTimeSuffix names the response-time histogram.
	ResponseTimeSuffix = "_response_time"

	// StatusCodeLabel is the only label carried by response-time samples.
	StatusCodeLabel = "http_status_code"

	// ResponseTimeUnit is the UCUM unit of response-time samples.
	ResponseTimeUnit = "ms"
)

// ResponseTimeBuckets are the explicit histogram bucket boundaries, in milliseconds.
var ResponseTimeBuckets = []float64{0, 50, 100, 200, 500, 1000, 2000}

// Definition describes one instrument exposed by a service.
type Definition struct {
	Name        string
	Description string
}

// Definitions returns the counter and histogram definitions for a metric prefix
// such as "frontend_service".
func Definitions(prefix string) (requests, responseTime Definition) {
	service := humanize(prefix)
	requests = Definition{
		Name:        prefix + TotalRequestsSuffix,
		Description: "Total number of requests to the " + service,
	}
	responseTime = Definition{
		Name:        prefix + ResponseTimeSuffix,
		Description: "Response time of the " + service,
	}
	return requests, responseTime
}

// StatusLabelValue renders a status code the way it appears in the exposition.
func StatusLabelValue(statusCode int) string {
	return strconv.Itoa(statusCode)
}

func humanize(prefix string) string {
	out := []byte(prefix)
	for i, c := range out {
		if c == '_' {
			out[i] = ' '
		}
	}
	return string(out)
}
