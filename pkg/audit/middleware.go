package audit

import (
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/mux"

	"github.com/platinummonkey/backer/pkg/middleware"
	"github.com/platinummonkey/backer/pkg/observability"
)

// routes maps "METHOD template-suffix" to the event recorded for it
var routes = map[string]EventType{
	"POST /tiers/":              EventTypeTierCreate,
	"POST /tiers/{id}":          EventTypeTierUpdate,
	"POST /tiers/{id}/archive":  EventTypeTierArchive,
	"POST /tiers/{id}/benefits": EventTypeTierBenefitsUpdate,
	"POST /benefits/":           EventTypeBenefitCreate,
	"POST /benefits/{id}":       EventTypeBenefitUpdate,
	"DELETE /benefits/{id}":     EventTypeBenefitDelete,
	"POST /subscribe-sessions/": EventTypeSessionCreate,
	"GET /subscriptions/export": EventTypeSubscriptionsExport,
}

// Classify returns the event type of a method and route template. Templates
// are matched by suffix so the API prefix does not matter.
func Classify(method, template string) (EventType, bool) {
	for key, eventType := range routes {
		m, suffix, _ := strings.Cut(key, " ")
		if m == method && strings.HasSuffix(template, suffix) {
			return eventType, true
		}
	}
	return "", false
}

// Middleware provides HTTP middleware for audit logging. It must run as mux
// middleware after authentication so the route and subject are known.
type Middleware struct {
	logger Logger
	now    func() time.Time
}

// NewMiddleware creates a new audit middleware
func NewMiddleware(logger Logger) *Middleware {
	return &Middleware{logger: logger, now: time.Now}
}

type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

// Handler wraps an HTTP handler with audit logging
func (m *Middleware) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		template := ""
		if route := mux.CurrentRoute(r); route != nil {
			template, _ = route.GetPathTemplate()
		}
		eventType, ok := Classify(r.Method, template)
		if !ok {
			next.ServeHTTP(w, r)
			return
		}

		start := m.now()
		rw := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}
		next.ServeHTTP(rw, r)

		event := &Event{
			Timestamp:  start.UTC(),
			EventType:  eventType,
			Status:     StatusFor(rw.statusCode),
			RequestID:  observability.GetRequestID(r.Context()),
			IPAddress:  remoteIP(r),
			Method:     r.Method,
			Route:      template,
			ResourceID: mux.Vars(r)["id"],
			StatusCode: rw.statusCode,
			Duration:   m.now().Sub(start),
		}
		if subject := middleware.SubjectFromContext(r.Context()); !subject.IsAnonymous() {
			id := subject.UserID()
			event.UserID = &id
		}

		if err := m.logger.Log(r.Context(), event); err != nil {
			observability.FromContext(r.Context()).
				WithError(err).
				WithField("event_type", string(eventType)).
				Warn("Failed to record audit event")
		}
	})
}

func remoteIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
