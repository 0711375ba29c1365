package scoring

import (
	"github.com/BrainStation-23/learnathon-leaderboard/internal/types"
)

// Bucket tables for the six category step functions. Buckets are scanned
// best to worst and the first match wins. A missing raw value never reaches
// the scan: it scores 0 for the category, which keeps "metric not collected"
// distinct from a genuinely perfect metric.

// coverage: inclusive lower bounds on the percentage
var coverageBuckets = []struct {
	min   float64
	score int
}{
	{90, 20},
	{80, 17},
	{70, 14},
	{60, 10},
}

const coverageFloorScore = 5

// bugs, code smells, debt hours, complexity: inclusive upper bounds
var bugBuckets = []struct {
	max   int
	score int
}{
	{1, 15},
	{3, 12},
	{6, 9},
	{10, 5},
}

var codeSmellBuckets = []struct {
	max   int
	score int
}{
	{10, 20},
	{25, 15},
	{50, 10},
	{100, 5},
}

var debtHourBuckets = []struct {
	max   int
	score int
}{
	{5, 20},
	{15, 15},
	{30, 10},
	{50, 5},
}

var complexityBuckets = []struct {
	max   int
	score int
}{
	{50, 10},
	{100, 8},
	{200, 6},
	{300, 4},
}

const worstBucketScore = 2

func scoreCoverage(coverage *float64) int {
	if coverage == nil {
		return 0
	}
	for _, b := range coverageBuckets {
		if *coverage >= b.min {
			return b.score
		}
	}
	return coverageFloorScore
}

func scoreBugs(bugs *int) int {
	if bugs == nil {
		return 0
	}
	for _, b := range bugBuckets {
		if *bugs <= b.max {
			return b.score
		}
	}
	return worstBucketScore
}

func scoreVulnerabilities(vulns *int) int {
	if vulns == nil {
		return 0
	}
	switch {
	case *vulns == 0:
		return 15
	case *vulns == 1:
		return 12
	case *vulns <= 3:
		return 9
	case *vulns <= 5:
		return 5
	default:
		return worstBucketScore
	}
}

func scoreCodeSmells(smells *int) int {
	if smells == nil {
		return 0
	}
	for _, b := range codeSmellBuckets {
		if *smells <= b.max {
			return b.score
		}
	}
	return worstBucketScore
}

// scoreTechnicalDebt converts the debt duration string to hours first.
// A nil debt string scores 0; an empty or unparseable string converts to
// 0 hours and scores through the normal scan (no reported debt is the
// best case, not a missing metric).
func scoreTechnicalDebt(debt *string) int {
	if debt == nil {
		return 0
	}
	hours := ParseDebtHours(*debt)
	for _, b := range debtHourBuckets {
		if hours <= b.max {
			return b.score
		}
	}
	return worstBucketScore
}

func scoreComplexity(complexity *int) int {
	if complexity == nil {
		return 0
	}
	for _, b := range complexityBuckets {
		if *complexity <= b.max {
			return b.score
		}
	}
	return worstBucketScore
}

// Score maps one repository's raw quality metrics to category scores and a
// 0-100 total. Pure and stateless: no I/O, fresh output on every call.
// A nil metrics object (project not found on SonarCloud) scores 0 across
// the board.
func Score(m *types.SonarMetrics) ScoredMetrics {
	if m == nil {
		return ScoredMetrics{}
	}

	categories := CategoryScores{
		Coverage:        scoreCoverage(m.Coverage),
		Bugs:            scoreBugs(m.Bugs),
		Vulnerabilities: scoreVulnerabilities(m.Vulnerabilities),
		CodeSmells:      scoreCodeSmells(m.CodeSmells),
		TechnicalDebt:   scoreTechnicalDebt(m.TechnicalDebt),
		Complexity:      scoreComplexity(m.Complexity),
	}

	total := categories.Coverage +
		categories.Bugs +
		categories.Vulnerabilities +
		categories.CodeSmells +
		categories.TechnicalDebt +
		categories.Complexity

	return ScoredMetrics{
		Categories: categories,
		TotalScore: total,
	}
}
