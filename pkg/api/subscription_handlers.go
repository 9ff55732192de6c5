package api

import (
	"bytes"
	"fmt"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"github.com/platinummonkey/backer/pkg/apierrors"
	"github.com/platinummonkey/backer/pkg/export"
	"github.com/platinummonkey/backer/pkg/httputil"
	"github.com/platinummonkey/backer/pkg/middleware"
	"github.com/platinummonkey/backer/pkg/observability"
	"github.com/platinummonkey/backer/pkg/search"
	"github.com/platinummonkey/backer/pkg/subscriptions"
)

// DestinationS3 asks the export endpoint for a presigned S3 link instead of
// an inline CSV body
const DestinationS3 = "s3"

// destinationDownload labels exports returned inline
const destinationDownload = "download"

// SummaryResponse is the body of GET /subscriptions/summary
type SummaryResponse struct {
	Periods []subscriptions.PeriodSummary `json:"periods"`
}

// ExportResponse is the body of an export delivered to S3
type ExportResponse struct {
	URL string `json:"url"`
}

// SubscriptionHandlers handles subscription read endpoints. Every route
// requires a user.
type SubscriptionHandlers struct {
	subscriptions SubscriptionService
	resolver      ScopeResolver
	uploader      export.Uploader
	otel          *observability.OTelMetrics
	now           func() time.Time
}

// NewSubscriptionHandlers creates new subscription handlers. A nil uploader
// disables destination=s3 exports.
func NewSubscriptionHandlers(subs SubscriptionService, resolver ScopeResolver, uploader export.Uploader) *SubscriptionHandlers {
	return &SubscriptionHandlers{
		subscriptions: subs,
		resolver:      resolver,
		uploader:      uploader,
		now:           time.Now,
	}
}

// RegisterRoutes registers subscription routes on a /subscriptions subrouter
func (h *SubscriptionHandlers) RegisterRoutes(router *mux.Router) {
	router.Use(middleware.RequireUser)
	router.HandleFunc("/summary", h.summary).Methods("GET")
	router.HandleFunc("/search", h.search).Methods("GET")
	router.HandleFunc("/export", h.export).Methods("GET")
}

func (h *SubscriptionHandlers) summary(w http.ResponseWriter, r *http.Request) {
	params, err := requiredScopeParams(r)
	if err != nil {
		httputil.WriteAPIError(w, r, err)
		return
	}
	start, err := dateParam(r, "start_date")
	if err != nil {
		httputil.WriteAPIError(w, r, err)
		return
	}
	end, err := dateParam(r, "end_date")
	if err != nil {
		httputil.WriteAPIError(w, r, err)
		return
	}
	tierType, err := tierTypeParam(r)
	if err != nil {
		httputil.WriteAPIError(w, r, err)
		return
	}
	tierID, err := httputil.ParseQueryUUID(r, "subscription_tier_id")
	if err != nil {
		httputil.WriteAPIError(w, r, err)
		return
	}
	direct, err := directOrganization(r)
	if err != nil {
		httputil.WriteAPIError(w, r, err)
		return
	}

	sc, err := h.resolver.Resolve(r.Context(), params)
	if err != nil {
		httputil.WriteAPIError(w, r, err)
		return
	}

	periods, err := h.subscriptions.Summary(r.Context(), middleware.SubjectFromContext(r.Context()), subscriptions.SummaryParams{
		Scope:              sc,
		Type:               tierType,
		TierID:             tierID,
		StartDate:          start,
		EndDate:            end,
		DirectOrganization: direct,
	})
	if err != nil {
		httputil.WriteAPIError(w, r, err)
		return
	}

	httputil.WriteSuccess(w, SummaryResponse{Periods: periods})
}

func (h *SubscriptionHandlers) search(w http.ResponseWriter, r *http.Request) {
	params, err := scopeParams(r)
	if err != nil {
		httputil.WriteAPIError(w, r, err)
		return
	}
	tierType, err := tierTypeParam(r)
	if err != nil {
		httputil.WriteAPIError(w, r, err)
		return
	}
	tierID, err := httputil.ParseQueryUUID(r, "subscription_tier_id")
	if err != nil {
		httputil.WriteAPIError(w, r, err)
		return
	}
	subscriberID, err := httputil.ParseQueryUUID(r, "subscriber_user_id")
	if err != nil {
		httputil.WriteAPIError(w, r, err)
		return
	}
	active, err := httputil.ParseOptionalQueryBool(r, "active")
	if err != nil {
		httputil.WriteAPIError(w, r, err)
		return
	}
	direct, err := directOrganization(r)
	if err != nil {
		httputil.WriteAPIError(w, r, err)
		return
	}
	pagination, err := paginationParams(r)
	if err != nil {
		httputil.WriteAPIError(w, r, err)
		return
	}
	sorting, err := search.ParseSorting(r.URL.Query()["sorting"], subscriptions.SortKeys, subscriptions.DefaultSorting)
	if err != nil {
		httputil.WriteAPIError(w, r, err)
		return
	}

	sc, err := h.resolver.ResolveOptional(r.Context(), params)
	if err != nil {
		httputil.WriteAPIError(w, r, err)
		return
	}

	items, total, err := h.subscriptions.Search(r.Context(), middleware.SubjectFromContext(r.Context()), subscriptions.SubscriptionSearchParams{
		Scope:              sc,
		Type:               tierType,
		TierID:             tierID,
		SubscriberUserID:   subscriberID,
		Active:             active,
		DirectOrganization: direct,
		Pagination:         pagination,
		Sorting:            sorting,
	})
	if err != nil {
		httputil.WriteAPIError(w, r, err)
		return
	}

	httputil.WriteSuccess(w, search.NewListResource(items, total, pagination))
}

func (h *SubscriptionHandlers) export(w http.ResponseWriter, r *http.Request) {
	params, err := requiredScopeParams(r)
	if err != nil {
		httputil.WriteAPIError(w, r, err)
		return
	}
	destination := httputil.ParseQueryString(r, "destination", "")
	if destination != "" && destination != DestinationS3 {
		httputil.WriteAPIError(w, r, apierrors.BadRequest("Invalid destination: %s", destination))
		return
	}
	if destination == DestinationS3 && h.uploader == nil {
		httputil.WriteAPIError(w, r, apierrors.BadRequest("Export storage is not configured"))
		return
	}

	sc, err := h.resolver.Resolve(r.Context(), params)
	if err != nil {
		httputil.WriteAPIError(w, r, err)
		return
	}

	rows, err := h.subscriptions.Export(r.Context(), middleware.SubjectFromContext(r.Context()), sc)
	if err != nil {
		httputil.WriteAPIError(w, r, err)
		return
	}

	var buf bytes.Buffer
	if err := export.WriteCSV(&buf, rows); err != nil {
		httputil.WriteAPIError(w, r, err)
		return
	}

	if destination == DestinationS3 {
		key := export.ObjectKey(sc.Organization.ID, h.now())
		url, err := h.uploader.Upload(r.Context(), key, buf.Bytes(), "text/csv")
		h.otel.RecordExport(r.Context(), DestinationS3, len(rows), buf.Len(), err)
		if err != nil {
			httputil.WriteAPIError(w, r, apierrors.Unavailable(err, "Export upload failed"))
			return
		}
		observability.FromContext(r.Context()).
			WithField("key", key).
			WithField("rows", len(rows)).
			Info("Subscriber export uploaded")
		httputil.WriteSuccess(w, ExportResponse{URL: url})
		return
	}

	h.otel.RecordExport(r.Context(), destinationDownload, len(rows), buf.Len(), nil)
	w.Header().Set("Content-Type", "text/csv")
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="%s_subscribers.csv"`, sc.Organization.Name))
	w.WriteHeader(http.StatusOK)
	w.Write(buf.Bytes())
}
