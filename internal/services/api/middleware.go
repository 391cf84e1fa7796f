package api

import (
	"bufio"
	"context"
	"fmt"
	"log"
	"net"
	"net/http"
	"runtime/debug"
	"strings"
	"time"

	"github.com/louisbranch/ontogenic.space/internal/platform/id"
	"github.com/louisbranch/ontogenic.space/internal/platform/requestctx"
	"github.com/louisbranch/ontogenic.space/internal/services/run/observability/audit"
	"github.com/louisbranch/ontogenic.space/internal/services/run/observability/audit/events"
	"github.com/louisbranch/ontogenic.space/internal/services/run/storage"
	"go.opentelemetry.io/otel/trace"
)

// RequestIDHeader carries the request correlation ID across HTTP calls.
const RequestIDHeader = "X-Ontogenic-Space-Request-Id"

// Middleware wraps an HTTP handler.
type Middleware func(http.Handler) http.Handler

// Chain applies middleware in declaration order.
func Chain(handler http.Handler, middleware ...Middleware) http.Handler {
	if handler == nil {
		handler = http.NotFoundHandler()
	}
	wrapped := handler
	for idx := len(middleware) - 1; idx >= 0; idx-- {
		if middleware[idx] == nil {
			continue
		}
		wrapped = middleware[idx](wrapped)
	}
	return wrapped
}

// RequestID injects and echoes a request id for correlation. Inbound
// IDs are trusted; absent ones are generated.
func RequestID() Middleware {
	return func(next http.Handler) http.Handler {
		if next == nil {
			next = http.NotFoundHandler()
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			requestID := strings.TrimSpace(r.Header.Get(RequestIDHeader))
			if requestID == "" {
				requestID = newRequestID()
				r.Header.Set(RequestIDHeader, requestID)
			}
			w.Header().Set(RequestIDHeader, requestID)
			r = r.WithContext(requestctx.WithRequestID(r.Context(), requestID))
			next.ServeHTTP(w, r)
		})
	}
}

func newRequestID() string {
	requestID, err := id.NewID()
	if err != nil {
		return fmt.Sprintf("req-%d", time.Now().UnixNano())
	}
	return requestID
}

// requestIDFrom prefers the context value set by RequestID and falls
// back to the inbound header for handlers outside the chain.
func requestIDFrom(r *http.Request) string {
	if r == nil {
		return ""
	}
	if requestID := requestctx.RequestIDFromContext(r.Context()); requestID != "" {
		return requestID
	}
	return strings.TrimSpace(r.Header.Get(RequestIDHeader))
}

// RecoverPanic converts panics into HTTP 500 responses.
func RecoverPanic() Middleware {
	return func(next http.Handler) http.Handler {
		if next == nil {
			next = http.NotFoundHandler()
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if recovered := recover(); recovered != nil {
					path := "-"
					method := "-"
					requestID := "-"
					if r != nil {
						path = strings.TrimSpace(r.URL.Path)
						method = strings.TrimSpace(r.Method)
						if rid := strings.TrimSpace(r.Header.Get(RequestIDHeader)); rid != "" {
							requestID = rid
						}
					}
					log.Printf(
						"panic recovered method=%s path=%s request_id=%s panic=%v stack=%s",
						method,
						path,
						requestID,
						recovered,
						strings.TrimSpace(string(debug.Stack())),
					)
					w.WriteHeader(http.StatusInternalServerError)
				}
			}()
			next.ServeHTTP(w, r)
		})
	}
}

// RequestLogger logs one line per request with correlation fields.
func RequestLogger(logger *log.Logger) Middleware {
	return func(next http.Handler) http.Handler {
		if next == nil {
			next = http.NotFoundHandler()
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if logger == nil || r == nil {
				next.ServeHTTP(w, r)
				return
			}
			recorder := &statusRecorder{ResponseWriter: w}
			start := time.Now()
			next.ServeHTTP(recorder, r)
			requestID := requestIDFrom(r)
			if requestID == "" {
				requestID = "-"
			}
			logger.Printf("method=%s path=%s status=%d bytes=%d latency=%s request_id=%s",
				r.Method, r.URL.Path, recorder.recordedStatus(), recorder.bytes,
				time.Since(start).Round(time.Millisecond), requestID)
		})
	}
}

// Audit emits one audit event per handled request, classified read or
// write by method.
func Audit(emitter *audit.Emitter) Middleware {
	return func(next http.Handler) http.Handler {
		if next == nil {
			next = http.NotFoundHandler()
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			recorder := &statusRecorder{ResponseWriter: w}
			next.ServeHTTP(recorder, r)
			if emitter == nil || r == nil {
				return
			}

			eventName := events.HTTPWrite
			methodKind := "write"
			if r.Method == http.MethodGet || r.Method == http.MethodHead {
				eventName = events.HTTPRead
				methodKind = "read"
			}

			status := recorder.recordedStatus()
			severity := audit.SeverityInfo
			switch {
			case status >= http.StatusInternalServerError:
				severity = audit.SeverityError
			case status >= http.StatusBadRequest:
				severity = audit.SeverityWarn
			}

			evt := storage.AuditEvent{
				EventName: eventName,
				Severity:  string(severity),
				RequestID: requestIDFrom(r),
				Attributes: map[string]any{
					"method":      r.Method,
					"path":        r.URL.Path,
					"method_kind": methodKind,
					"status":      status,
				},
			}
			if sc := trace.SpanFromContext(r.Context()).SpanContext(); sc.IsValid() {
				evt.TraceID = sc.TraceID().String()
				evt.SpanID = sc.SpanID().String()
			}

			// Hijacked websocket requests reach this point with their
			// context already canceled, so the write detaches from it.
			emitCtx := context.WithoutCancel(r.Context())
			if err := emitter.Emit(emitCtx, evt); err != nil {
				log.Printf("audit emit %s %s: %v", r.Method, r.URL.Path, err)
			}
		})
	}
}

// statusRecorder captures the response status and size for logging
// and audit classification.
type statusRecorder struct {
	http.ResponseWriter
	status int
	bytes  int
}

func (r *statusRecorder) WriteHeader(status int) {
	if r.status == 0 {
		r.status = status
	}
	r.ResponseWriter.WriteHeader(status)
}

func (r *statusRecorder) Write(p []byte) (int, error) {
	if r.status == 0 {
		r.status = http.StatusOK
	}
	n, err := r.ResponseWriter.Write(p)
	r.bytes += n
	return n, err
}

func (r *statusRecorder) recordedStatus() int {
	if r.status == 0 {
		return http.StatusOK
	}
	return r.status
}

// Hijack forwards to the wrapped writer so websocket upgrades keep
// working behind the middleware chain.
func (r *statusRecorder) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	hijacker, ok := r.ResponseWriter.(http.Hijacker)
	if !ok {
		return nil, nil, fmt.Errorf("response writer does not support hijacking")
	}
	return hijacker.Hijack()
}
