package services

import (
	"net/http"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"cfdiag-api/pkg/models"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

// maxLogEntries bounds the in-memory request log used by the dashboard.
const maxLogEntries = 10000

// LogEntry is a single request log line.
type LogEntry struct {
	Timestamp    time.Time     `json:"timestamp"`
	Path         string        `json:"path"`
	Method       string        `json:"method"`
	StatusCode   int           `json:"statusCode"`
	ResponseTime time.Duration `json:"responseTime"`
}

// MonitoringService records request logs for the admin dashboard and exports
// Prometheus metrics for requests and diagnoses.
type MonitoringService struct {
	logs     []LogEntry
	mu       sync.RWMutex
	location *time.Location
	logger   *zap.Logger
	now      func() time.Time

	registry         *prometheus.Registry
	requests         *prometheus.CounterVec
	requestDuration  *prometheus.HistogramVec
	diagnoses        *prometheus.CounterVec
	diagnosisFailure *prometheus.CounterVec
}

// NewMonitoringService creates a service with its own metrics registry.
// Dashboard buckets are rendered in loc (UTC when nil).
func NewMonitoringService(loc *time.Location, logger *zap.Logger) *MonitoringService {
	if loc == nil {
		loc = time.UTC
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	s := &MonitoringService{
		logs:     make([]LogEntry, 0),
		location: loc,
		logger:   logger,
		now:      time.Now,
		registry: prometheus.NewRegistry(),
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "cfdiag_http_requests_total",
			Help: "HTTP requests by method, route and status.",
		}, []string{"method", "route", "status"}),
		requestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "cfdiag_http_request_duration_seconds",
			Help:    "HTTP request latency by method and route.",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "route"}),
		diagnoses: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "cfdiag_diagnoses_total",
			Help: "Stored diagnoses by hypothesis and addiction level.",
		}, []string{"hypothesis", "level"}),
		diagnosisFailure: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "cfdiag_diagnosis_failures_total",
			Help: "Rejected or failed diagnosis submissions by error code.",
		}, []string{"code"}),
	}
	s.registry.MustRegister(
		s.requests,
		s.requestDuration,
		s.diagnoses,
		s.diagnosisFailure,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return s
}

// LogRequest records a request, dropping the oldest entries past maxLogEntries.
func (s *MonitoringService) LogRequest(entry LogEntry) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.logs = append(s.logs, entry)
	if over := len(s.logs) - maxLogEntries; over > 0 {
		s.logs = s.logs[over:]
	}
}

// RecordDiagnosis counts a stored diagnosis.
func (s *MonitoringService) RecordDiagnosis(hypothesisCode string, level models.AddictionLevel) {
	s.diagnoses.WithLabelValues(hypothesisCode, string(level)).Inc()
}

// RecordDiagnosisFailure counts a rejected or failed submission.
func (s *MonitoringService) RecordDiagnosisFailure(code string) {
	s.diagnosisFailure.WithLabelValues(code).Inc()
}

// MetricsHandler serves the registry in the Prometheus text format.
func (s *MonitoringService) MetricsHandler() http.Handler {
	return promhttp.HandlerFor(s.registry, promhttp.HandlerOpts{Registry: s.registry})
}

// Registry exposes the registry for tests and extra collectors.
func (s *MonitoringService) Registry() *prometheus.Registry {
	return s.registry
}

// LoggingMiddleware records each request in the dashboard log, the
// Prometheus metrics and the structured log.
func (s *MonitoringService) LoggingMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := s.now()

		c.Next()

		path := c.Request.URL.Path
		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		status := c.Writer.Status()
		elapsed := s.now().Sub(start)

		s.requests.WithLabelValues(c.Request.Method, route, strconv.Itoa(status)).Inc()
		s.requestDuration.WithLabelValues(c.Request.Method, route).Observe(elapsed.Seconds())

		fields := []zap.Field{
			zap.String("method", c.Request.Method),
			zap.String("path", path),
			zap.Int("status", status),
			zap.Duration("latency", elapsed),
			zap.String("client_ip", c.ClientIP()),
		}
		if len(c.Errors) > 0 {
			fields = append(fields, zap.String("errors", c.Errors.String()))
		}
		switch {
		case status >= 500:
			s.logger.Error("request failed", fields...)
		case status >= 400:
			s.logger.Warn("request rejected", fields...)
		default:
			s.logger.Info("request", fields...)
		}

		// Admin and monitoring traffic is kept out of the dashboard.
		if strings.HasPrefix(path, "/api/v1/admin") || strings.HasPrefix(path, "/api/v1/monitoring") || path == "/metrics" {
			return
		}
		s.LogRequest(LogEntry{
			Timestamp:    start,
			Path:         path,
			Method:       c.Request.Method,
			StatusCode:   status,
			ResponseTime: elapsed,
		})
	}
}

// TimeBucket is the request count of one hour.
type TimeBucket struct {
	Time     string `json:"time"`
	Requests int    `json:"requests"`
}

// NamedValue is one slice of a status code chart.
type NamedValue struct {
	Name  string `json:"name"`
	Value int    `json:"value"`
}

// EndpointLatency is the average response time of a path in milliseconds.
type EndpointLatency struct {
	Endpoint     string `json:"endpoint"`
	ResponseTime int64  `json:"responseTime"`
}

// DashboardData is the aggregated view rendered by the admin dashboard.
type DashboardData struct {
	RequestsOverTime []TimeBucket      `json:"requestsOverTime"`
	Endpoints        map[string]int    `json:"endpoints"`
	StatusCodes      []NamedValue      `json:"statusCodes"`
	AvgResponseTimes []EndpointLatency `json:"avgResponseTimes"`
	RecentErrors     []LogEntry        `json:"recentErrors"`
}

// GetDashboardData aggregates the logs of the last periodHours hours.
func (s *MonitoringService) GetDashboardData(periodHours int) DashboardData {
	if periodHours <= 0 {
		periodHours = 24
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	now := s.now().In(s.location)
	since := now.Add(-time.Duration(periodHours) * time.Hour)

	filtered := make([]LogEntry, 0)
	for _, entry := range s.logs {
		if entry.Timestamp.After(since) {
			filtered = append(filtered, entry)
		}
	}

	// Buckets run from oldest to current hour.
	buckets := make([]TimeBucket, periodHours)
	index := make(map[string]int, periodHours)
	for i := 0; i < periodHours; i++ {
		target := now.Add(-time.Duration(periodHours-1-i) * time.Hour)
		buckets[i] = TimeBucket{Time: target.Format("15:00")}
		index[target.Truncate(time.Hour).Format(time.RFC3339)] = i
	}
	for _, entry := range filtered {
		key := entry.Timestamp.In(s.location).Truncate(time.Hour).Format(time.RFC3339)
		if i, ok := index[key]; ok {
			buckets[i].Requests++
		}
	}

	endpoints := make(map[string]int)
	for _, entry := range filtered {
		endpoints[entry.Path]++
	}

	var success, clientErr, serverErr int
	for _, entry := range filtered {
		switch {
		case entry.StatusCode >= 200 && entry.StatusCode < 300:
			success++
		case entry.StatusCode >= 400 && entry.StatusCode < 500:
			clientErr++
		case entry.StatusCode >= 500:
			serverErr++
		}
	}
	statusCodes := []NamedValue{
		{Name: "2xx Success", Value: success},
		{Name: "4xx Client Error", Value: clientErr},
		{Name: "5xx Server Error", Value: serverErr},
	}

	sum := make(map[string]time.Duration)
	count := make(map[string]int)
	for _, entry := range filtered {
		sum[entry.Path] += entry.ResponseTime
		count[entry.Path]++
	}
	latencies := make([]EndpointLatency, 0, len(sum))
	for path, total := range sum {
		latencies = append(latencies, EndpointLatency{
			Endpoint:     path,
			ResponseTime: total.Milliseconds() / int64(count[path]),
		})
	}
	sort.Slice(latencies, func(i, j int) bool { return latencies[i].Endpoint < latencies[j].Endpoint })

	recentErrors := make([]LogEntry, 0)
	for i := len(filtered) - 1; i >= 0 && len(recentErrors) < 10; i-- {
		if filtered[i].StatusCode >= 500 {
			recentErrors = append(recentErrors, filtered[i])
		}
	}

	return DashboardData{
		RequestsOverTime: buckets,
		Endpoints:        endpoints,
		StatusCodes:      statusCodes,
		AvgResponseTimes: latencies,
		RecentErrors:     recentErrors,
	}
}
