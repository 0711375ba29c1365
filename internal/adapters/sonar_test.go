package adapters

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSonarAdapterFetchMetrics(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/measures/component", r.URL.Path)
		assert.Equal(t, "cohort_project-one", r.URL.Query().Get("component"))
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{
			"component": {
				"key": "cohort_project-one",
				"measures": [
					{"metric": "ncloc", "value": "12500"},
					{"metric": "coverage", "value": "84.3"},
					{"metric": "bugs", "value": "2"},
					{"metric": "vulnerabilities", "value": "0"},
					{"metric": "code_smells", "value": "37"},
					{"metric": "sqale_index", "value": "1560"},
					{"metric": "complexity", "value": "145"}
				]
			}
		}`))
	}))
	defer server.Close()

	adapter := NewSonarAdapterWithBaseURL("token", "cohort", server.URL)

	metrics, err := adapter.FetchMetrics(context.Background(), "cohort_project-one")
	require.NoError(t, err)

	require.NotNil(t, metrics.LinesOfCode)
	assert.Equal(t, 12500, *metrics.LinesOfCode)
	require.NotNil(t, metrics.Coverage)
	assert.Equal(t, 84.3, *metrics.Coverage)
	require.NotNil(t, metrics.Bugs)
	assert.Equal(t, 2, *metrics.Bugs)
	require.NotNil(t, metrics.Vulnerabilities)
	assert.Equal(t, 0, *metrics.Vulnerabilities)
	require.NotNil(t, metrics.CodeSmells)
	assert.Equal(t, 37, *metrics.CodeSmells)
	// 1560 minutes is 1 day 2 hours in the scoring grammar
	require.NotNil(t, metrics.TechnicalDebt)
	assert.Equal(t, "1d 2h", *metrics.TechnicalDebt)
	require.NotNil(t, metrics.Complexity)
	assert.Equal(t, 145, *metrics.Complexity)
}

func TestSonarAdapterPartialMeasures(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{
			"component": {
				"key": "cohort_no-tests",
				"measures": [
					{"metric": "bugs", "value": "5"}
				]
			}
		}`))
	}))
	defer server.Close()

	adapter := NewSonarAdapterWithBaseURL("", "cohort", server.URL)

	metrics, err := adapter.FetchMetrics(context.Background(), "cohort_no-tests")
	require.NoError(t, err)

	require.NotNil(t, metrics.Bugs)
	assert.Equal(t, 5, *metrics.Bugs)
	// uncollected measures stay nil, never zero
	assert.Nil(t, metrics.Coverage)
	assert.Nil(t, metrics.TechnicalDebt)
	assert.Nil(t, metrics.Complexity)
}

func TestSonarAdapterProjectNotFound(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		w.Write([]byte(`{"errors": [{"msg": "Component key not found"}]}`))
	}))
	defer server.Close()

	adapter := NewSonarAdapterWithBaseURL("", "cohort", server.URL)

	metrics, err := adapter.FetchMetrics(context.Background(), "cohort_missing")
	assert.Nil(t, metrics)
	assert.ErrorIs(t, err, ErrProjectNotFound)
}

func TestFormatDebtMinutes(t *testing.T) {
	tests := []struct {
		name     string
		minutes  int
		expected string
	}{
		{"zero debt", 0, "0min"},
		{"under an hour", 45, "0h"},
		{"hours only", 420, "7h"},
		{"days only", 2880, "2d"},
		{"days and hours", 7380, "5d 3h"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, formatDebtMinutes(tt.minutes))
		})
	}
}
