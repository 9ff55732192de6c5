package api

import (
	"net/http"

	"github.com/platinummonkey/backer/pkg/apierrors"
	"github.com/platinummonkey/backer/pkg/httputil"
	"github.com/platinummonkey/backer/pkg/orgs"
	"github.com/platinummonkey/backer/pkg/scope"
	"github.com/platinummonkey/backer/pkg/search"
	"github.com/platinummonkey/backer/pkg/subscriptions"
)

// scopeParams reads platform, organization_name and repository_name. The
// platform is only validated when present so optional scopes can omit it.
func scopeParams(r *http.Request) (scope.Params, error) {
	params := scope.Params{
		OrganizationName: httputil.ParseQueryString(r, "organization_name", ""),
		RepositoryName:   httputil.ParseQueryString(r, "repository_name", ""),
	}
	if raw := httputil.ParseQueryString(r, "platform", ""); raw != "" {
		platform, err := orgs.ParsePlatform(raw)
		if err != nil {
			return scope.Params{}, apierrors.BadRequest("Invalid platform: %s", raw)
		}
		params.Platform = platform
	}
	return params, nil
}

// requiredScopeParams also requires platform and organization_name
func requiredScopeParams(r *http.Request) (scope.Params, error) {
	params, err := scopeParams(r)
	if err != nil {
		return params, err
	}
	if params.Platform == "" {
		return params, apierrors.BadRequest("platform is required")
	}
	if params.OrganizationName == "" {
		return params, apierrors.BadRequest("organization_name is required")
	}
	return params, nil
}

func paginationParams(r *http.Request) (search.Pagination, error) {
	page, err := httputil.ParseQueryInt(r, "page", search.DefaultPage)
	if err != nil {
		return search.Pagination{}, err
	}
	limit, err := httputil.ParseQueryInt(r, "limit", search.DefaultLimit)
	if err != nil {
		return search.Pagination{}, err
	}
	return search.NewPagination(page, limit)
}

func directOrganization(r *http.Request) (bool, error) {
	return httputil.ParseQueryBool(r, "direct_organization", true)
}

func tierTypeParam(r *http.Request) (subscriptions.TierType, error) {
	raw := httputil.ParseQueryString(r, "type", "")
	if raw == "" {
		return "", nil
	}
	t := subscriptions.TierType(raw)
	if !t.Valid() {
		return "", apierrors.BadRequest("Invalid subscription tier type: %s", raw)
	}
	return t, nil
}

func benefitTypeParam(r *http.Request) (subscriptions.BenefitType, error) {
	raw := httputil.ParseQueryString(r, "type", "")
	if raw == "" {
		return "", nil
	}
	t := subscriptions.BenefitType(raw)
	if !t.Valid() {
		return "", apierrors.BadRequest("Invalid subscription benefit type: %s", raw)
	}
	return t, nil
}

func dateParam(r *http.Request, key string) (subscriptions.Date, error) {
	raw, err := httputil.RequireQueryString(r, key)
	if err != nil {
		return subscriptions.Date{}, err
	}
	return subscriptions.ParseDate(raw)
}
