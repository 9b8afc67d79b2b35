package api

import (
	"fmt"
	"net/http"
	"runtime"
	"runtime/debug"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/xepoctpat/H3X-sub004/pkg/logging"
)

// panicRecoveryMiddleware turns a handler panic into a 500 instead of
// a dead connection.
func (s *Server) panicRecoveryMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if err := recover(); err != nil {
				s.logger.Error("panic in handler",
					logging.String("method", r.Method),
					logging.Path(r.URL.Path),
					logging.String("panic", fmt.Sprintf("%v", err)),
					logging.String("stack", string(debug.Stack())),
				)
				http.Error(w, "Internal server error", http.StatusInternalServerError)
			}
		}()
		next.ServeHTTP(w, r)
	})
}

func (s *Server) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		wrapper := &statusResponseWriter{ResponseWriter: w, statusCode: http.StatusOK}
		next.ServeHTTP(wrapper, r)
		s.logger.Debug("request",
			logging.String("method", r.Method),
			logging.Path(r.URL.Path),
			logging.Int("status", wrapper.statusCode),
			logging.Latency(time.Since(start)),
		)
	})
}

// corsMiddleware answers preflights and stamps the allowed origin. An
// empty origin list means any origin.
func (s *Server) corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		origin := "*"
		if len(s.cfg.CORSOrigins) > 0 {
			origin = ""
			requested := r.Header.Get("Origin")
			for _, allowed := range s.cfg.CORSOrigins {
				if allowed == requested || allowed == "*" {
					origin = requested
					break
				}
			}
		}
		if origin != "" {
			w.Header().Set("Access-Control-Allow-Origin", origin)
			w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, OPTIONS")
			w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization, X-API-Key")
		}

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// bodySizeLimitMiddleware rejects oversized bodies before handlers read
// them. MaxBytesReader backstops chunked requests with no length.
func (s *Server) bodySizeLimitMiddleware(next http.Handler, maxBytes int64) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.ContentLength > maxBytes {
			s.respondError(w, http.StatusRequestEntityTooLarge, "Request body too large")
			return
		}
		r.Body = http.MaxBytesReader(w, r.Body, maxBytes)
		next.ServeHTTP(w, r)
	})
}

// statusResponseWriter captures the status code a handler wrote.
type statusResponseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (w *statusResponseWriter) WriteHeader(statusCode int) {
	w.statusCode = statusCode
	w.ResponseWriter.WriteHeader(statusCode)
}

func (s *Server) metricsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.registry == nil {
			next.ServeHTTP(w, r)
			return
		}

		start := time.Now()
		s.registry.HTTPRequestsInFlight.Inc()
		defer s.registry.HTTPRequestsInFlight.Dec()

		wrapper := &statusResponseWriter{ResponseWriter: w, statusCode: http.StatusOK}
		next.ServeHTTP(wrapper, r)

		s.registry.RecordHTTPRequest(r.Method, r.URL.Path,
			strconv.Itoa(wrapper.statusCode), time.Since(start))
	})
}

// metricsGatherer returns the registry to scrape; an empty one when the
// server runs without metrics so /metrics still answers.
func (s *Server) metricsGatherer() prometheus.Gatherer {
	if s.registry != nil {
		return s.registry.GetPrometheusRegistry()
	}
	return prometheus.NewRegistry()
}

// updateSystemMetricsPeriodically refreshes uptime and runtime gauges
// every 10 seconds until shutdown.
func (s *Server) updateSystemMetricsPeriodically() {
	if s.registry == nil {
		return
	}

	ticker := time.NewTicker(10 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			s.registry.UptimeSeconds.Set(time.Since(s.startTime).Seconds())
			s.registry.GoRoutines.Set(float64(runtime.NumGoroutine()))

			var m runtime.MemStats
			runtime.ReadMemStats(&m)
			s.registry.MemoryAllocBytes.Set(float64(m.Alloc))
			s.registry.MemorySysBytes.Set(float64(m.Sys))
		case <-s.stopCh:
			return
		}
	}
}

// clientAddr resolves the caller's address, preferring proxy headers.
func clientAddr(r *http.Request) string {
	if ip := r.Header.Get("X-Real-IP"); ip != "" {
		return ip
	}
	if ip := r.Header.Get("X-Forwarded-For"); ip != "" {
		return ip
	}
	return r.RemoteAddr
}
