package adapters

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/BrainStation-23/learnathon-leaderboard/internal/types"
	"golang.org/x/time/rate"
)

const defaultSonarBaseURL = "https://sonarcloud.io"

// ErrProjectNotFound means the project key has no analysis on SonarCloud.
// Callers treat it as "metrics not collected" rather than a failure.
var ErrProjectNotFound = errors.New("sonar project not found")

// sonarMeasure is one metric value in the measures response
type sonarMeasure struct {
	Metric string `json:"metric"`
	Value  string `json:"value"`
}

// sonarComponentResponse is the envelope of the measures/component endpoint
type sonarComponentResponse struct {
	Component struct {
		Key      string         `json:"key"`
		Measures []sonarMeasure `json:"measures"`
	} `json:"component"`
}

// sonarMetricKeys are the measures requested for scoring
const sonarMetricKeys = "ncloc,coverage,bugs,vulnerabilities,code_smells,sqale_index,complexity"

// SonarAdapter fetches quality metrics from the SonarCloud web API
type SonarAdapter struct {
	token        string
	organization string
	baseURL      string
	client       *http.Client
	limiter      *rate.Limiter
}

// NewSonarAdapter creates a SonarCloud adapter for one organization
func NewSonarAdapter(token, organization string) *SonarAdapter {
	return &SonarAdapter{
		token:        token,
		organization: organization,
		baseURL:      defaultSonarBaseURL,
		client:       &http.Client{Timeout: 15 * time.Second},
		limiter:      rate.NewLimiter(rate.Limit(2), 5),
	}
}

// NewSonarAdapterWithBaseURL creates an adapter against a custom API base,
// used by tests and self-hosted SonarQube installs.
func NewSonarAdapterWithBaseURL(token, organization, baseURL string) *SonarAdapter {
	adapter := NewSonarAdapter(token, organization)
	adapter.baseURL = baseURL
	adapter.limiter = rate.NewLimiter(rate.Inf, 1)
	return adapter
}

// FetchMetrics fetches the quality measures for one project key. Metrics
// the analysis never produced stay nil on the result, which the scorer
// treats as zero contribution.
func (s *SonarAdapter) FetchMetrics(ctx context.Context, projectKey string) (*types.SonarMetrics, error) {
	if err := s.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limiter wait cancelled: %w", err)
	}

	endpoint := fmt.Sprintf("%s/api/measures/component?component=%s&metricKeys=%s",
		s.baseURL, url.QueryEscape(projectKey), sonarMetricKeys)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	if s.token != "" {
		req.Header.Set("Authorization", "Bearer "+s.token)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return nil, ErrProjectNotFound
	}
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("sonar API error: status %d, body: %s", resp.StatusCode, string(body))
	}

	var payload sonarComponentResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("failed to decode measures: %w", err)
	}

	return convertMeasures(payload.Component.Measures), nil
}

// convertMeasures maps the flat measure list onto the metrics struct
func convertMeasures(measures []sonarMeasure) *types.SonarMetrics {
	metrics := &types.SonarMetrics{}

	for _, m := range measures {
		switch m.Metric {
		case "ncloc":
			if v, err := strconv.Atoi(m.Value); err == nil {
				metrics.LinesOfCode = &v
			}
		case "coverage":
			if v, err := strconv.ParseFloat(m.Value, 64); err == nil {
				metrics.Coverage = &v
			}
		case "bugs":
			if v, err := strconv.Atoi(m.Value); err == nil {
				metrics.Bugs = &v
			}
		case "vulnerabilities":
			if v, err := strconv.Atoi(m.Value); err == nil {
				metrics.Vulnerabilities = &v
			}
		case "code_smells":
			if v, err := strconv.Atoi(m.Value); err == nil {
				metrics.CodeSmells = &v
			}
		case "sqale_index":
			if v, err := strconv.Atoi(m.Value); err == nil {
				debt := formatDebtMinutes(v)
				metrics.TechnicalDebt = &debt
			}
		case "complexity":
			if v, err := strconv.Atoi(m.Value); err == nil {
				metrics.Complexity = &v
			}
		}
	}

	return metrics
}

// formatDebtMinutes renders the sqale_index minute count in the combined
// days-and-hours grammar the scorer parses.
func formatDebtMinutes(minutes int) string {
	if minutes <= 0 {
		return "0min"
	}

	days := minutes / (24 * 60)
	hours := (minutes % (24 * 60)) / 60

	switch {
	case days > 0 && hours > 0:
		return fmt.Sprintf("%dd %dh", days, hours)
	case days > 0:
		return fmt.Sprintf("%dd", days)
	default:
		return fmt.Sprintf("%dh", hours)
	}
}
