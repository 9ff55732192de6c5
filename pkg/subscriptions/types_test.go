package subscriptions

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/platinummonkey/backer/pkg/apierrors"
)

func TestBenefitJSONDispatchesOnType(t *testing.T) {
	orgID := uuid.New()
	b := Benefit{
		ID:             uuid.New(),
		Type:           BenefitTypeGitHubRepository,
		Description:    "Private repo access",
		Selectable:     true,
		Properties:     GitHubRepositoryProperties{RepositoryOwner: "acme", RepositoryName: "secret", Permission: "pull"},
		OrganizationID: &orgID,
		CreatedAt:      testTime,
	}

	data, err := json.Marshal(b)
	require.NoError(t, err)

	var raw map[string]interface{}
	require.NoError(t, json.Unmarshal(data, &raw))
	assert.Equal(t, "github_repository", raw["type"])
	assert.Equal(t, map[string]interface{}{
		"repository_owner": "acme",
		"repository_name":  "secret",
		"permission":       "pull",
	}, raw["properties"])

	var decoded Benefit
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Equal(t, b.Properties, decoded.Properties)
	assert.Equal(t, orgID, *decoded.OrganizationID)
}

func TestBenefitJSONNilPropertiesEncodesSchemaDefaults(t *testing.T) {
	data, err := json.Marshal(Benefit{Type: BenefitTypeArticles})
	require.NoError(t, err)
	assert.Contains(t, string(data), `"properties":{"paid_articles":false}`)
}

func TestBenefitUnmarshalRejectsUnknownType(t *testing.T) {
	var b Benefit
	err := json.Unmarshal([]byte(`{"type":"newsletter","properties":{}}`), &b)
	assert.True(t, apierrors.IsBadRequest(err))
}

func TestTierJSONHidesProviderIDs(t *testing.T) {
	tier := Tier{ID: uuid.New(), Type: TierTypeHobby, Name: "Fan", StripeProductID: "prod_1", StripePriceID: "price_1"}
	data, err := json.Marshal(tier)
	require.NoError(t, err)
	assert.NotContains(t, string(data), "prod_1")
	assert.NotContains(t, string(data), "price_1")
}

func TestMonthlyPeriods(t *testing.T) {
	tests := []struct {
		name   string
		start  Date
		end    Date
		starts []string
	}{
		{name: "single day", start: NewDate(2026, time.February, 14), end: NewDate(2026, time.February, 14), starts: []string{"2026-02-01"}},
		{name: "year boundary", start: NewDate(2025, time.November, 30), end: NewDate(2026, time.January, 1), starts: []string{"2025-11-01", "2025-12-01", "2026-01-01"}},
		{name: "full year", start: NewDate(2026, time.January, 1), end: NewDate(2026, time.December, 31), starts: []string{
			"2026-01-01", "2026-02-01", "2026-03-01", "2026-04-01", "2026-05-01", "2026-06-01",
			"2026-07-01", "2026-08-01", "2026-09-01", "2026-10-01", "2026-11-01", "2026-12-01",
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			periods, err := MonthlyPeriods(tt.start, tt.end)
			require.NoError(t, err)
			require.Len(t, periods, len(tt.starts))
			for i, p := range periods {
				assert.Equal(t, tt.starts[i], p.Start.String())
				if i > 0 {
					assert.True(t, periods[i-1].End.AddDate(0, 0, 1).Equal(p.Start.Time), "periods must be contiguous")
				}
			}
			assert.False(t, periods[len(periods)-1].End.Before(tt.end.Time))
		})
	}
}

func TestMonthlyPeriodsLeapFebruary(t *testing.T) {
	periods, err := MonthlyPeriods(NewDate(2028, time.February, 10), NewDate(2028, time.February, 10))
	require.NoError(t, err)
	assert.Equal(t, "2028-02-29", periods[0].End.String())
}

func TestMonthlyPeriodsBounded(t *testing.T) {
	start := NewDate(2000, time.January, 31)
	periods, err := MonthlyPeriods(start, NewDate(2049, time.December, 1))
	require.NoError(t, err)
	assert.Len(t, periods, MaxPeriods)

	_, err = MonthlyPeriods(start, NewDate(2050, time.January, 1))
	assert.True(t, apierrors.IsBadRequest(err))

	_, err = MonthlyPeriods(NewDate(1, time.January, 1), NewDate(9999, time.December, 31))
	assert.True(t, apierrors.IsBadRequest(err))
}

func TestDateJSON(t *testing.T) {
	var d Date
	require.NoError(t, json.Unmarshal([]byte(`"2026-04-30"`), &d))
	assert.Equal(t, NewDate(2026, time.April, 30), d)

	data, err := json.Marshal(PeriodSummary{StartDate: d, EndDate: d})
	require.NoError(t, err)
	assert.Contains(t, string(data), `"start_date":"2026-04-30"`)

	assert.True(t, apierrors.IsBadRequest(json.Unmarshal([]byte(`"30/04/2026"`), &d)))
}
