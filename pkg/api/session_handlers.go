package api

import (
	"net/http"

	"github.com/gorilla/mux"

	"github.com/platinummonkey/backer/pkg/apierrors"
	"github.com/platinummonkey/backer/pkg/httputil"
	"github.com/platinummonkey/backer/pkg/middleware"
	"github.com/platinummonkey/backer/pkg/subscriptions"
)

// SessionHandlers handles subscribe session endpoints
type SessionHandlers struct {
	sessions SessionService
	limiter  func(http.Handler) http.Handler
}

// NewSessionHandlers creates new session handlers. A nil limiter leaves
// session creation unthrottled.
func NewSessionHandlers(sessions SessionService, limiter func(http.Handler) http.Handler) *SessionHandlers {
	return &SessionHandlers{sessions: sessions, limiter: limiter}
}

// RegisterRoutes registers session routes on a /subscribe-sessions subrouter
func (h *SessionHandlers) RegisterRoutes(router *mux.Router) {
	var create http.Handler = http.HandlerFunc(h.create)
	if h.limiter != nil {
		create = h.limiter(create)
	}
	router.Handle("/", create).Methods("POST")
	router.HandleFunc("/{id}", h.get).Methods("GET")
}

func (h *SessionHandlers) create(w http.ResponseWriter, r *http.Request) {
	var input subscriptions.SessionCreate
	if err := httputil.ParseJSON(r, &input); err != nil {
		httputil.WriteAPIError(w, r, err)
		return
	}

	session, err := h.sessions.Create(r.Context(), middleware.SubjectFromContext(r.Context()), input)
	if err != nil {
		httputil.WriteAPIError(w, r, err)
		return
	}

	httputil.WriteCreated(w, session)
}

func (h *SessionHandlers) get(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	if id == "" {
		httputil.WriteAPIError(w, r, apierrors.BadRequest("Missing session id"))
		return
	}

	session, err := h.sessions.Get(r.Context(), id)
	if err != nil {
		httputil.WriteAPIError(w, r, err)
		return
	}

	httputil.WriteSuccess(w, session)
}
