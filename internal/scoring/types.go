package scoring

// CategoryScores holds the points awarded per quality metric category
type CategoryScores struct {
	Coverage        int `json:"coverage"`
	Bugs            int `json:"bugs"`
	Vulnerabilities int `json:"vulnerabilities"`
	CodeSmells      int `json:"code_smells"`
	TechnicalDebt   int `json:"technical_debt"`
	Complexity      int `json:"complexity"`
}

// ScoredMetrics is the result of scoring one repository's raw metrics
type ScoredMetrics struct {
	Categories CategoryScores `json:"categories"`
	TotalScore int            `json:"total_score"`
}

// Category ceilings. The six ceilings sum to 100, so the total never needs
// a separate cap.
const (
	MaxCoverageScore      = 20
	MaxBugScore           = 15
	MaxVulnerabilityScore = 15
	MaxCodeSmellScore     = 20
	MaxTechnicalDebtScore = 20
	MaxComplexityScore    = 10
	MaxTotalScore         = 100
)
