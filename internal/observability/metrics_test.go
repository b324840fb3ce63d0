package observability

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestMetricsCounters(t *testing.T) {
	m := NewMetrics()

	m.RecordRequest("/incidents", "GET", 200, 5*time.Millisecond)
	m.RecordRequest("/incidents", "GET", 200, 7*time.Millisecond)
	m.RecordRequest("/incidents", "POST", 201, 9*time.Millisecond)
	m.RecordError("/incidents", "POST", "VALIDATION_FAILED")

	assert.Equal(t, int64(2), m.RequestTotal("GET", "/incidents"))
	assert.Equal(t, int64(1), m.RequestTotal("POST", "/incidents"))
	assert.Equal(t, int64(0), m.RequestTotal("GET", "/problems"))
	assert.Equal(t, int64(1), m.ErrorTotal("POST", "/incidents", "VALIDATION_FAILED"))
	assert.Equal(t, int64(0), m.ErrorTotal("POST", "/incidents", "NOT_FOUND"))
}

func TestMetricsNilReceiver(t *testing.T) {
	var m *Metrics
	m.RecordRequest("/incidents", "GET", 200, time.Millisecond)
	m.RecordError("/incidents", "GET", "NOT_FOUND")
	assert.Equal(t, int64(0), m.RequestTotal("GET", "/incidents"))
	assert.Equal(t, int64(0), m.ErrorTotal("GET", "/incidents", "NOT_FOUND"))
}
