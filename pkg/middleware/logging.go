package middleware

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"mime"
	"net/http"
	"runtime/debug"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"

	"github.com/iota-uz/shepherd/pkg/constants"
	"github.com/iota-uz/shepherd/pkg/httpapi"
)

const redactedValue = "***"

type LoggerOptions struct {
	// LogBodies logs JSON request and response bodies up to MaxBodyLength bytes.
	// Larger or non-JSON bodies are logged by size only.
	LogBodies     bool
	MaxBodyLength int

	RequestIDHeader string
	RealIPHeader    string

	// RedactKeys are JSON object keys whose values are masked in logged bodies.
	RedactKeys []string
	Repanic    bool
}

// DefaultLoggerOptions masks the contact fields that identify a person.
func DefaultLoggerOptions() LoggerOptions {
	return LoggerOptions{
		LogBodies:       true,
		MaxBodyLength:   2048,
		RequestIDHeader: httpapi.RequestIDHeader,
		RealIPHeader:    "X-Real-IP",
		RedactKeys:      []string{"email", "phone", "address_line1", "address_line2", "notes"},
	}
}

// statusRecorder keeps the status code and at most limit bytes of the body.
type statusRecorder struct {
	http.ResponseWriter
	status  int
	written int64
	body    bytes.Buffer
	limit   int
}

func (w *statusRecorder) WriteHeader(code int) {
	if w.status != 0 {
		return
	}
	w.status = code
	w.ResponseWriter.WriteHeader(code)
}

func (w *statusRecorder) Write(b []byte) (int, error) {
	if w.status == 0 {
		w.WriteHeader(http.StatusOK)
	}
	if room := w.limit + 1 - w.body.Len(); room > 0 {
		if room > len(b) {
			room = len(b)
		}
		w.body.Write(b[:room])
	}
	n, err := w.ResponseWriter.Write(b)
	w.written += int64(n)
	return n, err
}

func (w *statusRecorder) Flush() {
	if flusher, ok := w.ResponseWriter.(http.Flusher); ok {
		flusher.Flush()
	}
}

func (w *statusRecorder) Status() int {
	if w.status == 0 {
		return http.StatusOK
	}
	return w.status
}

func realIP(r *http.Request, opts LoggerOptions) string {
	if opts.RealIPHeader != "" {
		if ip := r.Header.Get(opts.RealIPHeader); ip != "" {
			return ip
		}
	}
	return r.RemoteAddr
}

var tracer = otel.Tracer("shepherd-middleware")

// TracedMiddleware opens a child span named after the next middleware in the chain.
func TracedMiddleware(name string) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx, span := tracer.Start(r.Context(), "middleware."+name,
				trace.WithAttributes(attribute.String("middleware.name", name)))
			defer span.End()
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func isJSON(contentType string) bool {
	mt, _, err := mime.ParseMediaType(contentType)
	return err == nil && mt == "application/json"
}

// bodyFields describes body for the log: the redacted JSON document when it
// is small valid JSON, its size otherwise.
func bodyFields(prefix string, body []byte, contentType string, opts LoggerOptions) logrus.Fields {
	if len(body) == 0 {
		return nil
	}
	if !isJSON(contentType) || len(body) > opts.MaxBodyLength {
		return logrus.Fields{prefix + "-bytes": len(body)}
	}
	var doc any
	if err := json.Unmarshal(body, &doc); err != nil {
		return logrus.Fields{prefix + "-bytes": len(body), prefix + "-invalid": true}
	}
	return logrus.Fields{prefix: redact(doc, opts.RedactKeys)}
}

func redact(v any, keys []string) any {
	switch t := v.(type) {
	case map[string]any:
		for k, val := range t {
			masked := false
			for _, key := range keys {
				if k == key {
					masked = true
					break
				}
			}
			if masked {
				if s, ok := val.(string); ok && s == "" {
					continue
				}
				t[k] = redactedValue
				continue
			}
			t[k] = redact(val, keys)
		}
	case []any:
		for i := range t {
			t[i] = redact(t[i], keys)
		}
	}
	return v
}

func levelFor(status int) logrus.Level {
	switch {
	case status >= http.StatusInternalServerError:
		return logrus.ErrorLevel
	case status >= http.StatusBadRequest:
		return logrus.WarnLevel
	default:
		return logrus.InfoLevel
	}
}

// WithLogger puts a request-scoped logger into the context, starts the root
// span and turns handler panics into a JSON 500.
func WithLogger(logger *logrus.Logger, opts LoggerOptions) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			requestID := r.Header.Get(opts.RequestIDHeader)
			if requestID == "" {
				requestID = uuid.NewString()
			}
			w.Header().Set(httpapi.RequestIDHeader, requestID)

			log := logger.WithFields(logrus.Fields{
				"request-id": requestID,
				"method":     r.Method,
				"path":       r.URL.Path,
			})

			var reqFields logrus.Fields
			if opts.LogBodies && r.Body != nil && isJSON(r.Header.Get("Content-Type")) {
				body, err := io.ReadAll(r.Body)
				if err != nil {
					log.WithError(err).Warn("failed to read request body")
					_ = httpapi.Error(w, r, http.StatusBadRequest, httpapi.CodeBadRequest, "failed to read request body", nil)
					return
				}
				r.Body = io.NopCloser(bytes.NewReader(body))
				reqFields = bodyFields("request-body", body, r.Header.Get("Content-Type"), opts)
			} else if r.ContentLength > 0 {
				reqFields = logrus.Fields{"request-body-bytes": r.ContentLength}
			}

			propagator := propagation.TraceContext{}
			ctx := propagator.Extract(r.Context(), propagation.HeaderCarrier(r.Header))
			ctx, span := tracer.Start(ctx, "http.request",
				trace.WithAttributes(
					attribute.String("http.method", r.Method),
					attribute.String("http.route", r.URL.Path),
					attribute.String("http.request_id", requestID),
					attribute.String("net.peer.ip", realIP(r, opts)),
				),
			)
			defer span.End()
			if sc := span.SpanContext(); sc.HasTraceID() {
				w.Header().Set("X-Trace-Id", sc.TraceID().String())
				log = log.WithField("trace-id", sc.TraceID().String())
			}

			ctx = context.WithValue(ctx, constants.LoggerKey, log)
			ctx = context.WithValue(ctx, constants.RequestStart, start)

			rec := &statusRecorder{ResponseWriter: w, limit: opts.MaxBodyLength}

			defer func() {
				recovered := recover()
				if recovered == nil {
					return
				}
				log.WithFields(logrus.Fields{
					"panic":    recovered,
					"stack":    string(debug.Stack()),
					"ip":       realIP(r, opts),
					"duration": time.Since(start),
				}).Error("panic recovered in request handler")
				if rec.status == 0 {
					_ = httpapi.Error(rec, r, http.StatusInternalServerError, httpapi.CodeInternal,
						"internal server error", map[string]string{"path": r.URL.Path})
				}
				span.SetAttributes(attribute.Int("http.status_code", http.StatusInternalServerError))
				if opts.Repanic {
					panic(recovered)
				}
			}()

			next.ServeHTTP(rec, r.WithContext(ctx))

			status := rec.Status()
			duration := time.Since(start)
			span.SetAttributes(
				attribute.Int("http.status_code", status),
				attribute.Int64("http.request_duration_ms", duration.Milliseconds()),
			)

			entry := log.WithFields(logrus.Fields{
				"status":        status,
				"duration":      duration,
				"response-size": rec.written,
				"ip":            realIP(r, opts),
			}).WithFields(reqFields)
			if opts.LogBodies && rec.body.Len() <= opts.MaxBodyLength {
				entry = entry.WithFields(bodyFields("response-body", rec.body.Bytes(), rec.Header().Get("Content-Type"), opts))
			}
			entry.Log(levelFor(status), "request completed")
		})
	}
}
