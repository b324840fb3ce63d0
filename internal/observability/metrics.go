package observability

import (
	"sync"
	"time"
)

type routeKey struct {
	method string
	path   string
}

// Metrics keeps in-process request and error counters per route.
type Metrics struct {
	mu       sync.Mutex
	requests map[routeKey]int64
	errors   map[routeKey]map[string]int64
}

// NewMetrics initializes counter storage.
func NewMetrics() *Metrics {
	return &Metrics{
		requests: make(map[routeKey]int64),
		errors:   make(map[routeKey]map[string]int64),
	}
}

// RecordRequest counts a completed request.
func (m *Metrics) RecordRequest(path, method string, status int, duration time.Duration) {
	if m == nil {
		return
	}
	m.mu.Lock()
	m.requests[routeKey{method: method, path: path}]++
	m.mu.Unlock()
}

// RecordError counts a request that resolved to a domain error code.
func (m *Metrics) RecordError(path, method, code string) {
	if m == nil {
		return
	}
	key := routeKey{method: method, path: path}
	m.mu.Lock()
	if m.errors[key] == nil {
		m.errors[key] = make(map[string]int64)
	}
	m.errors[key][code]++
	m.mu.Unlock()
}

// RequestTotal returns the request count for one route.
func (m *Metrics) RequestTotal(method, path string) int64 {
	if m == nil {
		return 0
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.requests[routeKey{method: method, path: path}]
}

// ErrorTotal returns the count of a domain error code on one route.
func (m *Metrics) ErrorTotal(method, path, code string) int64 {
	if m == nil {
		return 0
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.errors[routeKey{method: method, path: path}][code]
}
