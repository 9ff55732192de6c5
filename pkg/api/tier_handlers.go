package api

import (
	"net/http"

	"github.com/google/uuid"
	"github.com/gorilla/mux"

	"github.com/platinummonkey/backer/pkg/httputil"
	"github.com/platinummonkey/backer/pkg/middleware"
	"github.com/platinummonkey/backer/pkg/search"
	"github.com/platinummonkey/backer/pkg/subscriptions"
)

// TierHandlers handles subscription tier endpoints
type TierHandlers struct {
	tiers    TierService
	resolver ScopeResolver
}

// NewTierHandlers creates new tier handlers
func NewTierHandlers(tiers TierService, resolver ScopeResolver) *TierHandlers {
	return &TierHandlers{tiers: tiers, resolver: resolver}
}

// RegisterRoutes registers tier routes on a /tiers subrouter
func (h *TierHandlers) RegisterRoutes(router *mux.Router) {
	router.HandleFunc("/search", h.search).Methods("GET")
	router.HandleFunc("/lookup", h.lookup).Methods("GET")
	router.Handle("/", middleware.RequireUser(http.HandlerFunc(h.create))).Methods("POST")
	router.Handle("/{id}", middleware.RequireUser(http.HandlerFunc(h.update))).Methods("POST")
	router.Handle("/{id}/archive", middleware.RequireUser(http.HandlerFunc(h.archive))).Methods("POST")
	router.Handle("/{id}/benefits", middleware.RequireUser(http.HandlerFunc(h.updateBenefits))).Methods("POST")
}

// tierBenefitsUpdate is the body of POST /tiers/{id}/benefits
type tierBenefitsUpdate struct {
	Benefits []uuid.UUID `json:"benefits"`
}

func (h *TierHandlers) search(w http.ResponseWriter, r *http.Request) {
	params, err := requiredScopeParams(r)
	if err != nil {
		httputil.WriteAPIError(w, r, err)
		return
	}
	direct, err := directOrganization(r)
	if err != nil {
		httputil.WriteAPIError(w, r, err)
		return
	}
	includeArchived, err := httputil.ParseQueryBool(r, "include_archived", false)
	if err != nil {
		httputil.WriteAPIError(w, r, err)
		return
	}
	tierType, err := tierTypeParam(r)
	if err != nil {
		httputil.WriteAPIError(w, r, err)
		return
	}
	pagination, err := paginationParams(r)
	if err != nil {
		httputil.WriteAPIError(w, r, err)
		return
	}

	sc, err := h.resolver.Resolve(r.Context(), params)
	if err != nil {
		httputil.WriteAPIError(w, r, err)
		return
	}

	subject := middleware.SubjectFromContext(r.Context())
	items, total, err := h.tiers.Search(r.Context(), subject, subscriptions.TierSearchParams{
		Scope:              sc,
		Type:               tierType,
		DirectOrganization: direct,
		IncludeArchived:    includeArchived,
		Pagination:         pagination,
	})
	if err != nil {
		httputil.WriteAPIError(w, r, err)
		return
	}

	httputil.WriteSuccess(w, search.NewListResource(items, total, pagination))
}

func (h *TierHandlers) lookup(w http.ResponseWriter, r *http.Request) {
	id, err := httputil.RequireQueryUUID(r, "subscription_tier_id")
	if err != nil {
		httputil.WriteAPIError(w, r, err)
		return
	}

	tier, err := h.tiers.Lookup(r.Context(), middleware.SubjectFromContext(r.Context()), id)
	if err != nil {
		httputil.WriteAPIError(w, r, err)
		return
	}

	httputil.WriteSuccess(w, tier)
}

func (h *TierHandlers) create(w http.ResponseWriter, r *http.Request) {
	var input subscriptions.TierCreate
	if err := httputil.ParseJSON(r, &input); err != nil {
		httputil.WriteAPIError(w, r, err)
		return
	}

	tier, err := h.tiers.Create(r.Context(), middleware.SubjectFromContext(r.Context()), input)
	if err != nil {
		httputil.WriteAPIError(w, r, err)
		return
	}

	httputil.WriteCreated(w, tier)
}

func (h *TierHandlers) update(w http.ResponseWriter, r *http.Request) {
	id, err := httputil.ParsePathUUID(r, "id")
	if err != nil {
		httputil.WriteAPIError(w, r, err)
		return
	}

	var input subscriptions.TierUpdate
	if err := httputil.ParseJSON(r, &input); err != nil {
		httputil.WriteAPIError(w, r, err)
		return
	}

	tier, err := h.tiers.Update(r.Context(), middleware.SubjectFromContext(r.Context()), id, input)
	if err != nil {
		httputil.WriteAPIError(w, r, err)
		return
	}

	httputil.WriteSuccess(w, tier)
}

func (h *TierHandlers) archive(w http.ResponseWriter, r *http.Request) {
	id, err := httputil.ParsePathUUID(r, "id")
	if err != nil {
		httputil.WriteAPIError(w, r, err)
		return
	}

	tier, err := h.tiers.Archive(r.Context(), middleware.SubjectFromContext(r.Context()), id)
	if err != nil {
		httputil.WriteAPIError(w, r, err)
		return
	}

	httputil.WriteSuccess(w, tier)
}

func (h *TierHandlers) updateBenefits(w http.ResponseWriter, r *http.Request) {
	id, err := httputil.ParsePathUUID(r, "id")
	if err != nil {
		httputil.WriteAPIError(w, r, err)
		return
	}

	var input tierBenefitsUpdate
	if err := httputil.ParseJSON(r, &input); err != nil {
		httputil.WriteAPIError(w, r, err)
		return
	}

	tier, err := h.tiers.UpdateBenefits(r.Context(), middleware.SubjectFromContext(r.Context()), id, input.Benefits)
	if err != nil {
		httputil.WriteAPIError(w, r, err)
		return
	}

	httputil.WriteSuccess(w, tier)
}
