// Package export renders leaderboard snapshots as downloadable CSV.
package export

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/BrainStation-23/learnathon-leaderboard/internal/cohort"
	"github.com/BrainStation-23/learnathon-leaderboard/internal/scoring"
	"github.com/BrainStation-23/learnathon-leaderboard/internal/types"
)

// absentValue marks a raw metric that was never collected
const absentValue = "n/a"

var csvHeader = []string{
	"Rank",
	"Repository",
	"Total Score",
	"Lines of Code",
	"Coverage",
	"Bugs",
	"Vulnerabilities",
	"Code Smells",
	"Technical Debt",
	"Complexity",
	"Coverage Score",
	"Bug Score",
	"Vulnerability Score",
	"Code Smell Score",
	"Debt Score",
	"Complexity Score",
	"Contributors",
	"Commits",
	"Tech Stacks",
	"Last Updated",
	"GitHub URL",
}

// WriteLeaderboard streams the ranked leaderboard as CSV, one row per
// repository. Raw metrics keep their units (percent for coverage, hours for
// technical debt); absent metrics render as "n/a" rather than zero.
func WriteLeaderboard(w io.Writer, items []cohort.LeaderboardItem) error {
	cw := csv.NewWriter(w)

	if err := cw.Write(csvHeader); err != nil {
		return fmt.Errorf("failed to write csv header: %w", err)
	}

	for _, item := range items {
		if err := cw.Write(leaderboardRow(item)); err != nil {
			return fmt.Errorf("failed to write csv row for %s: %w", item.RepositoryID, err)
		}
	}

	cw.Flush()
	if err := cw.Error(); err != nil {
		return fmt.Errorf("failed to flush csv: %w", err)
	}

	return nil
}

func leaderboardRow(item cohort.LeaderboardItem) []string {
	m := item.RawMetrics
	if m == nil {
		m = &types.SonarMetrics{}
	}
	cat := item.Scores.Categories

	commits := absentValue
	if item.CommitsCount != nil {
		commits = strconv.Itoa(*item.CommitsCount)
	}

	return []string{
		strconv.Itoa(item.Rank),
		item.RepositoryName,
		strconv.Itoa(item.Scores.TotalScore),
		formatCount(m.LinesOfCode),
		formatCoverage(m.Coverage),
		formatCount(m.Bugs),
		formatCount(m.Vulnerabilities),
		formatCount(m.CodeSmells),
		formatDebt(m.TechnicalDebt),
		formatCount(m.Complexity),
		strconv.Itoa(cat.Coverage),
		strconv.Itoa(cat.Bugs),
		strconv.Itoa(cat.Vulnerabilities),
		strconv.Itoa(cat.CodeSmells),
		strconv.Itoa(cat.TechnicalDebt),
		strconv.Itoa(cat.Complexity),
		strconv.Itoa(len(item.Contributors)),
		commits,
		strings.Join(item.TechStacks, ";"),
		item.LastUpdated.Format("2006-01-02"),
		item.GitHubURL,
	}
}

func formatCount(v *int) string {
	if v == nil {
		return absentValue
	}
	return strconv.Itoa(*v)
}

func formatCoverage(v *float64) string {
	if v == nil {
		return absentValue
	}
	return strconv.FormatFloat(*v, 'f', 1, 64) + "%"
}

// formatDebt reports technical debt in whole hours, the unit scoring uses
func formatDebt(v *string) string {
	if v == nil {
		return absentValue
	}
	return strconv.Itoa(scoring.ParseDebtHours(*v)) + "h"
}
