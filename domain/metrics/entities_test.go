package metrics

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDefinitions(t *testing.T) {
	requests, responseTime := Definitions("frontend_service")

	assert.Equal(t, "frontend_service_total_requests", requests.Name)
	assert.Equal(t, "Total number of requests to the frontend service", requests.Description)
	assert.Equal(t, "frontend_service_response_time", responseTime.Name)
	assert.Equal(t, "Response time of the frontend service", responseTime.Description)
}

func TestResponseTimeBuckets(t *testing.T) {
	assert.Equal(t, []float64{0, 50, 100, 200, 500, 1000, 2000}, ResponseTimeBuckets)
	assert.IsIncreasing(t, ResponseTimeBuckets)
}
