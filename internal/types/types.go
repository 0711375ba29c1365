package types

import "time"

// SonarMetrics holds the raw quality metrics reported for one repository.
// Every field is optional: a nil pointer means the metric was not collected
// (for example the project was never analyzed on SonarCloud), which is
// distinct from a reported zero.
type SonarMetrics struct {
	LinesOfCode     *int     `json:"lines_of_code,omitempty"`
	Coverage        *float64 `json:"coverage,omitempty"`
	Bugs            *int     `json:"bugs,omitempty"`
	Vulnerabilities *int     `json:"vulnerabilities,omitempty"`
	CodeSmells      *int     `json:"code_smells,omitempty"`
	TechnicalDebt   *string  `json:"technical_debt,omitempty"`
	Complexity      *int     `json:"complexity,omitempty"`
}

// Contributor represents one GitHub contributor on a repository
type Contributor struct {
	Login         string `json:"login"`
	ID            int64  `json:"id"`
	AvatarURL     string `json:"avatar_url"`
	Contributions int    `json:"contributions"`
}

// SecurityIssue represents one open security finding on a repository
type SecurityIssue struct {
	Severity string `json:"severity"`
	Rule     string `json:"rule"`
	Message  string `json:"message"`
}

// FunnelStatus tracks what happened to a repository's contributor cohort
type FunnelStatus string

const (
	FunnelDroppedOut  FunnelStatus = "dropped_out"
	FunnelNoContact   FunnelStatus = "no_contact"
	FunnelGotJob      FunnelStatus = "got_job"
	FunnelOther       FunnelStatus = "other"
	FunnelStillActive FunnelStatus = "still_active"
)

// RawCommit carries the per-commit timestamp data used for monthly attribution
type RawCommit struct {
	SHA         string    `json:"sha"`
	AuthorLogin string    `json:"author_login"`
	CommittedAt time.Time `json:"committed_at"`
}

// RepoRecord is one repository as supplied by the data-access collaborators.
// Optional slices and pointers may be nil; the aggregation core treats them
// as empty rather than failing.
type RepoRecord struct {
	ID             string          `json:"id"`
	Name           string          `json:"name"`
	GitHubURL      string          `json:"github_url,omitempty"`
	LastUpdated    time.Time       `json:"last_updated"`
	Contributors   []Contributor   `json:"contributors,omitempty"`
	Commits        []RawCommit     `json:"commits,omitempty"`
	CommitsCount   *int            `json:"commits_count,omitempty"`
	Metrics        *SonarMetrics   `json:"metrics,omitempty"`
	SecurityIssues []SecurityIssue `json:"security_issues,omitempty"`
	TechStacks     []string        `json:"tech_stacks,omitempty"`
	FunnelStatus   FunnelStatus    `json:"funnel_status,omitempty"`
}
