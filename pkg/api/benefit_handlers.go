package api

import (
	"net/http"

	"github.com/gorilla/mux"

	"github.com/platinummonkey/backer/pkg/httputil"
	"github.com/platinummonkey/backer/pkg/middleware"
	"github.com/platinummonkey/backer/pkg/search"
	"github.com/platinummonkey/backer/pkg/subscriptions"
)

// BenefitHandlers handles subscription benefit endpoints. Every route
// requires a user.
type BenefitHandlers struct {
	benefits BenefitService
	resolver ScopeResolver
}

// NewBenefitHandlers creates new benefit handlers
func NewBenefitHandlers(benefits BenefitService, resolver ScopeResolver) *BenefitHandlers {
	return &BenefitHandlers{benefits: benefits, resolver: resolver}
}

// RegisterRoutes registers benefit routes on a /benefits subrouter
func (h *BenefitHandlers) RegisterRoutes(router *mux.Router) {
	router.Use(middleware.RequireUser)
	router.HandleFunc("/search", h.search).Methods("GET")
	router.HandleFunc("/lookup", h.lookup).Methods("GET")
	router.HandleFunc("/", h.create).Methods("POST")
	router.HandleFunc("/{id}", h.update).Methods("POST")
	router.HandleFunc("/{id}", h.delete).Methods("DELETE")
}

func (h *BenefitHandlers) search(w http.ResponseWriter, r *http.Request) {
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
	benefitType, err := benefitTypeParam(r)
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

	items, total, err := h.benefits.Search(r.Context(), middleware.SubjectFromContext(r.Context()), subscriptions.BenefitSearchParams{
		Scope:              sc,
		Type:               benefitType,
		DirectOrganization: direct,
		Pagination:         pagination,
	})
	if err != nil {
		httputil.WriteAPIError(w, r, err)
		return
	}

	httputil.WriteSuccess(w, search.NewListResource(items, total, pagination))
}

func (h *BenefitHandlers) lookup(w http.ResponseWriter, r *http.Request) {
	id, err := httputil.RequireQueryUUID(r, "subscription_benefit_id")
	if err != nil {
		httputil.WriteAPIError(w, r, err)
		return
	}

	benefit, err := h.benefits.Lookup(r.Context(), middleware.SubjectFromContext(r.Context()), id)
	if err != nil {
		httputil.WriteAPIError(w, r, err)
		return
	}

	httputil.WriteSuccess(w, benefit)
}

func (h *BenefitHandlers) create(w http.ResponseWriter, r *http.Request) {
	var input subscriptions.BenefitCreate
	if err := httputil.ParseJSON(r, &input); err != nil {
		httputil.WriteAPIError(w, r, err)
		return
	}

	benefit, err := h.benefits.Create(r.Context(), middleware.SubjectFromContext(r.Context()), input)
	if err != nil {
		httputil.WriteAPIError(w, r, err)
		return
	}

	httputil.WriteCreated(w, benefit)
}

func (h *BenefitHandlers) update(w http.ResponseWriter, r *http.Request) {
	id, err := httputil.ParsePathUUID(r, "id")
	if err != nil {
		httputil.WriteAPIError(w, r, err)
		return
	}

	var input subscriptions.BenefitUpdate
	if err := httputil.ParseJSON(r, &input); err != nil {
		httputil.WriteAPIError(w, r, err)
		return
	}

	benefit, err := h.benefits.Update(r.Context(), middleware.SubjectFromContext(r.Context()), id, input)
	if err != nil {
		httputil.WriteAPIError(w, r, err)
		return
	}

	httputil.WriteSuccess(w, benefit)
}

func (h *BenefitHandlers) delete(w http.ResponseWriter, r *http.Request) {
	id, err := httputil.ParsePathUUID(r, "id")
	if err != nil {
		httputil.WriteAPIError(w, r, err)
		return
	}

	if err := h.benefits.Delete(r.Context(), middleware.SubjectFromContext(r.Context()), id); err != nil {
		httputil.WriteAPIError(w, r, err)
		return
	}

	httputil.WriteNoContent(w)
}
