package api

import (
	"context"
	"encoding/csv"
	"errors"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/platinummonkey/backer/pkg/apierrors"
	"github.com/platinummonkey/backer/pkg/auth"
	"github.com/platinummonkey/backer/pkg/export"
	"github.com/platinummonkey/backer/pkg/scope"
	"github.com/platinummonkey/backer/pkg/search"
	"github.com/platinummonkey/backer/pkg/subscriptions"
)

const scopeQuery = "platform=github&organization_name=" + testOrgName

func TestSubscriptionRoutesRequireUser(t *testing.T) {
	env := newTestEnv(t)
	for _, target := range []string{
		BasePath + "/subscriptions/summary?" + scopeQuery + "&start_date=2026-01-01&end_date=2026-03-31",
		BasePath + "/subscriptions/search",
		BasePath + "/subscriptions/export?" + scopeQuery,
	} {
		w := env.do("GET", target, "", "")
		assert.Equal(t, http.StatusUnauthorized, w.Code, target)
	}
}

func TestSubscriptionSummary(t *testing.T) {
	env := newTestEnv(t)
	tierID := uuid.New()
	var got subscriptions.SummaryParams
	env.subscriptions.summaryFunc = func(ctx context.Context, subject auth.Subject, params subscriptions.SummaryParams) ([]subscriptions.PeriodSummary, error) {
		got = params
		return []subscriptions.PeriodSummary{
			{StartDate: subscriptions.NewDate(2026, time.January, 1), EndDate: subscriptions.NewDate(2026, time.January, 31), Subscribers: 2, MRR: 1000},
			{StartDate: subscriptions.NewDate(2026, time.February, 1), EndDate: subscriptions.NewDate(2026, time.February, 28)},
		}, nil
	}

	target := BasePath + "/subscriptions/summary?" + scopeQuery +
		"&start_date=2026-01-15&end_date=2026-02-10&type=hobby&subscription_tier_id=" + tierID.String()
	w := env.do("GET", target, testToken, "")
	require.Equal(t, http.StatusOK, w.Code)

	assert.Equal(t, subscriptions.NewDate(2026, time.January, 15), got.StartDate)
	assert.Equal(t, subscriptions.NewDate(2026, time.February, 10), got.EndDate)
	assert.Equal(t, subscriptions.TierTypeHobby, got.Type)
	require.NotNil(t, got.TierID)
	assert.Equal(t, tierID, *got.TierID)
	assert.True(t, got.DirectOrganization)
	assert.Equal(t, testOrg, got.Scope.Organization)

	assert.JSONEq(t, `{"periods":[
		{"start_date":"2026-01-01","end_date":"2026-01-31","subscribers":2,"mrr":1000},
		{"start_date":"2026-02-01","end_date":"2026-02-28","subscribers":0,"mrr":0}
	]}`, w.Body.String())
}

func TestSubscriptionSummaryBadDates(t *testing.T) {
	env := newTestEnv(t)
	for _, query := range []string{
		"&end_date=2026-02-10",
		"&start_date=2026-01-01",
		"&start_date=01/01/2026&end_date=2026-02-10",
	} {
		w := env.do("GET", BasePath+"/subscriptions/summary?"+scopeQuery+query, testToken, "")
		assert.Equal(t, http.StatusBadRequest, w.Code, query)
	}
	assert.Zero(t, env.resolver.calls)
}

func TestSubscriptionSearch(t *testing.T) {
	env := newTestEnv(t)
	var got subscriptions.SubscriptionSearchParams
	env.subscriptions.searchFunc = func(ctx context.Context, subject auth.Subject, params subscriptions.SubscriptionSearchParams) ([]subscriptions.Subscription, int, error) {
		got = params
		return []subscriptions.Subscription{{ID: uuid.New(), Status: subscriptions.SubscriptionStatus("active")}}, 1, nil
	}

	w := env.do("GET", BasePath+"/subscriptions/search", testToken, "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Nil(t, got.Scope)
	assert.Nil(t, got.Active)
	assert.Equal(t, subscriptions.DefaultSorting, got.Sorting)
	assert.Zero(t, env.resolver.calls)

	w = env.do("GET", BasePath+"/subscriptions/search?"+scopeQuery+"&sorting=price_amount&sorting=-user&active=true", testToken, "")
	require.Equal(t, http.StatusOK, w.Code)
	require.NotNil(t, got.Scope)
	assert.Equal(t, testOrg, got.Scope.Organization)
	assert.Equal(t, []search.Sort{{Key: "price_amount"}, {Key: "user", Desc: true}}, got.Sorting)
	require.NotNil(t, got.Active)
	assert.True(t, *got.Active)
	assert.Nil(t, got.SubscriberUserID)

	subscriber := uuid.New()
	w = env.do("GET", BasePath+"/subscriptions/search?subscriber_user_id="+subscriber.String(), testToken, "")
	require.Equal(t, http.StatusOK, w.Code)
	require.NotNil(t, got.SubscriberUserID)
	assert.Equal(t, subscriber, *got.SubscriberUserID)
}

func TestSubscriptionSearchBadRequests(t *testing.T) {
	env := newTestEnv(t)
	searches := 0
	env.subscriptions.searchFunc = func(ctx context.Context, subject auth.Subject, params subscriptions.SubscriptionSearchParams) ([]subscriptions.Subscription, int, error) {
		searches++
		return nil, 0, nil
	}
	for _, query := range []string{
		"?sorting=email",
		"?repository_name=rocket",
		"?organization_name=" + testOrgName,
		"?platform=github",
		"?subscriber_user_id=bob",
		"?active=sometimes",
		"?type=gold",
	} {
		w := env.do("GET", BasePath+"/subscriptions/search"+query, testToken, "")
		assert.Equal(t, http.StatusBadRequest, w.Code, query)
	}
	assert.Zero(t, env.resolver.calls)
	assert.Zero(t, searches)
}

var exportRows = []subscriptions.SubscriberRow{
	{Email: "bob@example.com", Name: "bob", CreatedAt: time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC), Active: true, Tier: "Gold"},
}

func TestSubscriptionExportInline(t *testing.T) {
	env := newTestEnv(t)
	var gotScope *scope.Scope
	env.subscriptions.exportFunc = func(ctx context.Context, subject auth.Subject, sc *scope.Scope) ([]subscriptions.SubscriberRow, error) {
		gotScope = sc
		return exportRows, nil
	}

	w := env.do("GET", BasePath+"/subscriptions/export?"+scopeQuery, testToken, "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "text/csv", w.Header().Get("Content-Type"))
	assert.Contains(t, w.Header().Get("Content-Disposition"), "acme_subscribers.csv")
	assert.Equal(t, testOrg, gotScope.Organization)

	records, err := csv.NewReader(strings.NewReader(w.Body.String())).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, export.Header, records[0])
	assert.Equal(t, []string{"bob@example.com", "bob", "2026-01-02T03:04:05Z", "true", "Gold"}, records[1])
}

func TestSubscriptionExportS3(t *testing.T) {
	env := newTestEnv(t)
	env.subscriptions.exportFunc = func(ctx context.Context, subject auth.Subject, sc *scope.Scope) ([]subscriptions.SubscriberRow, error) {
		return exportRows, nil
	}
	now := time.Date(2026, 5, 6, 7, 8, 9, 0, time.UTC)
	env.build()
	env.server.subscriptionHandlers.now = func() time.Time { return now }

	w := env.do("GET", BasePath+"/subscriptions/export?"+scopeQuery+"&destination=s3", testToken, "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"url":"https://exports.example.com/file.csv"}`, w.Body.String())
	assert.Equal(t, export.ObjectKey(testOrg.ID, now), env.uploader.key)
	assert.Equal(t, "text/csv", env.uploader.contentType)
	assert.Contains(t, string(env.uploader.body), "bob@example.com")

	env.uploader.err = errors.New("access denied")
	w = env.do("GET", BasePath+"/subscriptions/export?"+scopeQuery+"&destination=s3", testToken, "")
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}

func TestSubscriptionExportErrors(t *testing.T) {
	env := newTestEnv(t)
	env.uploader = nil
	env.subscriptions.exportFunc = func(ctx context.Context, subject auth.Subject, sc *scope.Scope) ([]subscriptions.SubscriberRow, error) {
		return nil, apierrors.Forbidden("You don't have the permission to export subscribers")
	}

	w := env.do("GET", BasePath+"/subscriptions/export?"+scopeQuery+"&destination=s3", testToken, "")
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = env.do("GET", BasePath+"/subscriptions/export?"+scopeQuery+"&destination=ftp", testToken, "")
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = env.do("GET", BasePath+"/subscriptions/export?platform=github", testToken, "")
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = env.do("GET", BasePath+"/subscriptions/export?"+scopeQuery, testToken, "")
	assert.Equal(t, http.StatusForbidden, w.Code)
}
