package cohort

import (
	"sort"
	"time"

	"github.com/BrainStation-23/learnathon-leaderboard/internal/scoring"
	"github.com/BrainStation-23/learnathon-leaderboard/internal/types"
	"github.com/ZanzyTHEbar/errbuilder-go"
)

// Config carries the policy inputs for one aggregation pass. All state is
// explicit: no ambient singletons, no reactive recomputation. The caller
// decides when to invoke Recompute.
type Config struct {
	// ExcludedLogins are contributor logins ignored when counting activity
	// (bot accounts, mentors, the cohort organizers themselves).
	ExcludedLogins []string

	// Activity holds the recency thresholds for the four activity buckets
	Activity ActivityPolicy

	// Fallback supplies monthly commit estimates for repositories without
	// per-commit timestamps. Nil means explicit zeros.
	Fallback FallbackEstimator

	// Clock overrides the time source, mainly for tests. Nil means time.Now.
	Clock func() time.Time
}

// Aggregator turns a collection of repository records into a ranked
// leaderboard, hall-of-fame groupings and cohort-wide statistics. It is a
// pure synchronous transform: safe for concurrent use because it only reads
// its inputs and allocates fresh outputs.
type Aggregator struct {
	cfg      Config
	excluded map[string]struct{}
}

// New creates an aggregator with the given policy configuration
func New(cfg Config) *Aggregator {
	if cfg.Activity.RecencyWindow == 0 {
		cfg.Activity = DefaultActivityPolicy()
	}

	excluded := make(map[string]struct{}, len(cfg.ExcludedLogins))
	for _, login := range cfg.ExcludedLogins {
		excluded[login] = struct{}{}
	}

	return &Aggregator{cfg: cfg, excluded: excluded}
}

// Recompute runs one full aggregation pass over the supplied records.
// Individual malformed records never fail the pass: absent optional fields
// are treated as zero or empty. Only a nil collection handle, meaning the
// upstream fetch itself failed, is an error.
func (a *Aggregator) Recompute(records []types.RepoRecord) (*Snapshot, error) {
	if records == nil {
		return nil, errbuilder.New().
			WithCode(errbuilder.CodeInvalidArgument).
			WithMsg("nil repository collection")
	}

	now := time.Now()
	if a.cfg.Clock != nil {
		now = a.cfg.Clock()
	}

	// Score first, then sort, so ranking stays deterministic regardless of
	// how callers batch the per-repository work.
	ranked := a.rank(records)

	return &Snapshot{
		Leaderboard: ranked,
		HallOfFame:  buildHallOfFame(ranked),
		Stats:       a.stats(records, now),
		GeneratedAt: now,
	}, nil
}

// rank scores every record and sorts descending by total score. Equal
// scores keep their original relative order.
func (a *Aggregator) rank(records []types.RepoRecord) []LeaderboardItem {
	items := make([]LeaderboardItem, 0, len(records))
	for _, record := range records {
		items = append(items, LeaderboardItem{
			RepositoryID:   record.ID,
			RepositoryName: record.Name,
			GitHubURL:      record.GitHubURL,
			RawMetrics:     record.Metrics,
			Scores:         scoring.Score(record.Metrics),
			LastUpdated:    record.LastUpdated,
			Contributors:   record.Contributors,
			CommitsCount:   record.CommitsCount,
			TechStacks:     record.TechStacks,
		})
	}

	sort.SliceStable(items, func(i, j int) bool {
		return items[i].Scores.TotalScore > items[j].Scores.TotalScore
	})

	for i := range items {
		items[i].Rank = i + 1
	}

	return items
}

// stats computes the cohort-wide distribution tallies in a single pass
func (a *Aggregator) stats(records []types.RepoRecord, now time.Time) CohortStats {
	stats := CohortStats{
		TotalRepositories: len(records),
		FunnelDistribution: map[types.FunnelStatus]int{
			types.FunnelDroppedOut:  0,
			types.FunnelNoContact:   0,
			types.FunnelGotJob:      0,
			types.FunnelOther:       0,
			types.FunnelStillActive: 0,
		},
	}

	seenLogins := make(map[string]struct{})
	stackTallies := make(map[string]*StackCount)

	for _, record := range records {
		bucket := classifyActivity(record, a.excluded, a.cfg.Activity, now)
		switch bucket {
		case ActivityOne:
			stats.ActivityDistribution.OneContributor++
		case ActivityTwo:
			stats.ActivityDistribution.TwoContributors++
		case ActivityThreePlus:
			stats.ActivityDistribution.ThreeOrMore++
		default:
			stats.ActivityDistribution.NoRecentActivity++
		}

		funnel := funnelStatus(record)
		stats.FunnelDistribution[funnel]++

		for _, c := range filteredContributors(record.Contributors, a.excluded) {
			seenLogins[c.Login] = struct{}{}
		}

		for _, stack := range record.TechStacks {
			if stack == "" {
				continue
			}
			tally, ok := stackTallies[stack]
			if !ok {
				tally = &StackCount{Stack: stack}
				stackTallies[stack] = tally
			}
			tally.Repositories++
			if funnel == types.FunnelDroppedOut {
				tally.DroppedOut++
			}
			if bucket == ActivityNone {
				tally.Inactive++
			}
		}
	}

	stats.TotalContributors = len(seenLogins)

	stats.StackDistribution = make([]StackCount, 0, len(stackTallies))
	for _, tally := range stackTallies {
		stats.StackDistribution = append(stats.StackDistribution, *tally)
	}
	sort.Slice(stats.StackDistribution, func(i, j int) bool {
		if stats.StackDistribution[i].Repositories != stats.StackDistribution[j].Repositories {
			return stats.StackDistribution[i].Repositories > stats.StackDistribution[j].Repositories
		}
		return stats.StackDistribution[i].Stack < stats.StackDistribution[j].Stack
	})

	stats.MonthlyCommits = monthlyCommitSeries(records, now, a.cfg.Fallback)

	return stats
}
