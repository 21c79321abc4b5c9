package observability

import (
	"database/sql"
	"fmt"
	"log/slog"
	"net/http"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"quizmaster/internal/auth"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
)

type key struct {
	Method string
	Path   string
	Status int
}

type stat struct {
	Count     int64
	LatencyMS float64
}

type gauge struct {
	name string
	fn   func() float64
}

type Collector struct {
	db     *sql.DB
	logger *slog.Logger

	mu           sync.RWMutex
	requestStats map[key]stat
	gauges       []gauge
	startedAt    time.Time
}

// NewCollector records request stats. db may be nil when storage is in memory.
func NewCollector(db *sql.DB, logger *slog.Logger) *Collector {
	if logger == nil {
		logger = slog.Default()
	}
	return &Collector{
		db:           db,
		logger:       logger,
		requestStats: make(map[key]stat),
		startedAt:    time.Now(),
	}
}

// RegisterGauge exports fn as quizmaster_<name>.
func (c *Collector) RegisterGauge(name string, fn func() float64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.gauges = append(c.gauges, gauge{name: name, fn: fn})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

func (c *Collector) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)

		latencyMS := float64(time.Since(start).Microseconds()) / 1000.0
		path := normalizedPath(r.URL.Path)

		c.mu.Lock()
		k := key{Method: r.Method, Path: path, Status: rec.status}
		s := c.requestStats[k]
		s.Count++
		s.LatencyMS += latencyMS
		c.requestStats[k] = s
		c.mu.Unlock()

		userID := ""
		if u, ok := auth.CurrentUser(r.Context()); ok {
			userID = u.ID
		}

		level := slog.LevelInfo
		if rec.status >= http.StatusInternalServerError {
			level = slog.LevelError
		}
		c.logger.LogAttrs(r.Context(), level, "http request",
			slog.String("request_id", middleware.GetReqID(r.Context())),
			slog.String("user_id", userID),
			slog.String("attempt_id", extractAttemptID(r.URL.Path)),
			slog.String("method", r.Method),
			slog.String("path", path),
			slog.Int("status", rec.status),
			slog.Float64("latency_ms", latencyMS),
			slog.String("remote_ip", strings.TrimSpace(r.RemoteAddr)),
		)
	})
}

func (c *Collector) MetricsHandler(w http.ResponseWriter, r *http.Request) {
	c.mu.RLock()
	statsCopy := make(map[key]stat, len(c.requestStats))
	for k, v := range c.requestStats {
		statsCopy[k] = v
	}
	gauges := append([]gauge(nil), c.gauges...)
	startedAt := c.startedAt
	c.mu.RUnlock()

	keys := make([]key, 0, len(statsCopy))
	for k := range statsCopy {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		if keys[i].Method != keys[j].Method {
			return keys[i].Method < keys[j].Method
		}
		if keys[i].Path != keys[j].Path {
			return keys[i].Path < keys[j].Path
		}
		return keys[i].Status < keys[j].Status
	})

	var sb strings.Builder
	sb.WriteString("# quizmaster observability metrics\n")
	sb.WriteString("# TYPE quizmaster_uptime_seconds gauge\n")
	sb.WriteString(fmt.Sprintf("quizmaster_uptime_seconds %.0f\n", time.Since(startedAt).Seconds()))

	for _, g := range gauges {
		sb.WriteString(fmt.Sprintf("# TYPE quizmaster_%s gauge\n", g.name))
		sb.WriteString(fmt.Sprintf("quizmaster_%s %g\n", g.name, g.fn()))
	}

	sb.WriteString("# TYPE quizmaster_http_requests_total counter\n")
	sb.WriteString("# TYPE quizmaster_http_request_latency_ms_sum counter\n")
	sb.WriteString("# TYPE quizmaster_http_request_latency_ms_avg gauge\n")
	for _, k := range keys {
		s := statsCopy[k]
		labels := fmt.Sprintf("method=\"%s\",path=\"%s\",status=\"%d\"", k.Method, k.Path, k.Status)
		sb.WriteString(fmt.Sprintf("quizmaster_http_requests_total{%s} %d\n", labels, s.Count))
		sb.WriteString(fmt.Sprintf("quizmaster_http_request_latency_ms_sum{%s} %.3f\n", labels, s.LatencyMS))
		avg := 0.0
		if s.Count > 0 {
			avg = s.LatencyMS / float64(s.Count)
		}
		sb.WriteString(fmt.Sprintf("quizmaster_http_request_latency_ms_avg{%s} %.3f\n", labels, avg))
	}

	if c.db != nil {
		dbs := c.db.Stats()
		sb.WriteString("# TYPE quizmaster_db_open_connections gauge\n")
		sb.WriteString(fmt.Sprintf("quizmaster_db_open_connections %d\n", dbs.OpenConnections))
		sb.WriteString("# TYPE quizmaster_db_in_use_connections gauge\n")
		sb.WriteString(fmt.Sprintf("quizmaster_db_in_use_connections %d\n", dbs.InUse))
		sb.WriteString("# TYPE quizmaster_db_idle_connections gauge\n")
		sb.WriteString(fmt.Sprintf("quizmaster_db_idle_connections %d\n", dbs.Idle))
		sb.WriteString("# TYPE quizmaster_db_wait_count counter\n")
		sb.WriteString(fmt.Sprintf("quizmaster_db_wait_count %d\n", dbs.WaitCount))
		sb.WriteString("# TYPE quizmaster_db_wait_duration_ms counter\n")
		sb.WriteString(fmt.Sprintf("quizmaster_db_wait_duration_ms %.3f\n", float64(dbs.WaitDuration.Microseconds())/1000.0))
	}

	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(sb.String()))
}

// normalizedPath folds numeric and uuid segments into {id} so metric labels
// stay bounded.
func normalizedPath(path string) string {
	if path == "" {
		return "/"
	}
	parts := strings.Split(path, "/")
	for i, p := range parts {
		if isID(p) {
			parts[i] = "{id}"
		}
	}
	return strings.Join(parts, "/")
}

func isID(seg string) bool {
	if seg == "" {
		return false
	}
	if _, err := strconv.ParseInt(seg, 10, 64); err == nil {
		return true
	}
	_, err := uuid.Parse(seg)
	return err == nil
}

func extractAttemptID(path string) string {
	parts := strings.Split(strings.Trim(path, "/"), "/")
	for i := 0; i < len(parts)-1; i++ {
		if parts[i] == "history" && isID(parts[i+1]) {
			return parts[i+1]
		}
	}
	return ""
}
