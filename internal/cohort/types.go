package cohort

import (
	"time"

	"github.com/BrainStation-23/learnathon-leaderboard/internal/scoring"
	"github.com/BrainStation-23/learnathon-leaderboard/internal/types"
)

// LeaderboardItem is one ranked repository on the dashboard
type LeaderboardItem struct {
	Rank           int                   `json:"rank"`
	RepositoryID   string                `json:"repository_id"`
	RepositoryName string                `json:"repository_name"`
	GitHubURL      string                `json:"github_url,omitempty"`
	RawMetrics     *types.SonarMetrics   `json:"raw_metrics,omitempty"`
	Scores         scoring.ScoredMetrics `json:"scores"`
	LastUpdated    time.Time             `json:"last_updated"`
	Contributors   []types.Contributor   `json:"contributors,omitempty"`
	CommitsCount   *int                  `json:"commits_count,omitempty"`
	TechStacks     []string              `json:"tech_stacks,omitempty"`
}

// StackGroup is the hall-of-fame view for one tech stack: its top
// repositories ordered by total score, at most three.
type StackGroup struct {
	Stack string            `json:"stack"`
	Top   []LeaderboardItem `json:"top"`
}

// ActivityBucket classifies a repository by recent contributor activity
type ActivityBucket string

const (
	ActivityNone      ActivityBucket = "no_recent_activity"
	ActivityOne       ActivityBucket = "one_contributor"
	ActivityTwo       ActivityBucket = "two_contributors"
	ActivityThreePlus ActivityBucket = "three_or_more"
)

// ActivityDistribution is the four-bucket contributor-activity tally
type ActivityDistribution struct {
	NoRecentActivity int `json:"no_recent_activity"`
	OneContributor   int `json:"one_contributor"`
	TwoContributors  int `json:"two_contributors"`
	ThreeOrMore      int `json:"three_or_more"`
}

// StackCount tallies repositories for one tech stack, with sub-counts for
// dropped-out and inactive cohorts on that stack.
type StackCount struct {
	Stack        string `json:"stack"`
	Repositories int    `json:"repositories"`
	DroppedOut   int    `json:"dropped_out"`
	Inactive     int    `json:"inactive"`
}

// MonthBucket is one point of the monthly commit-activity series
type MonthBucket struct {
	Label     string     `json:"label"`
	Year      int        `json:"year"`
	Month     time.Month `json:"month"`
	Commits   int        `json:"commits"`
	Estimated bool       `json:"estimated"`
}

// CohortStats holds the cohort-wide distribution statistics
type CohortStats struct {
	TotalRepositories    int                        `json:"total_repositories"`
	TotalContributors    int                        `json:"total_contributors"`
	ActivityDistribution ActivityDistribution       `json:"activity_distribution"`
	FunnelDistribution   map[types.FunnelStatus]int `json:"funnel_distribution"`
	StackDistribution    []StackCount               `json:"stack_distribution"`
	MonthlyCommits       []MonthBucket              `json:"monthly_commits"`
}

// Snapshot is the full output of one aggregation pass
type Snapshot struct {
	Leaderboard []LeaderboardItem `json:"leaderboard"`
	HallOfFame  []StackGroup      `json:"hall_of_fame"`
	Stats       CohortStats       `json:"stats"`
	GeneratedAt time.Time         `json:"generated_at"`
}
