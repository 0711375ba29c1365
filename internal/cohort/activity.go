package cohort

import (
	"time"

	"github.com/BrainStation-23/learnathon-leaderboard/internal/types"
)

// ActivityPolicy holds the thresholds for contributor-activity bucketing.
// Bucket definitions are policy inputs supplied by the caller; the
// aggregator only applies them.
type ActivityPolicy struct {
	// RecencyWindow is how far back a repository's latest commit or update
	// may lie and still count as recent.
	RecencyWindow time.Duration
}

// DefaultActivityPolicy returns the standard 30-day recency window
func DefaultActivityPolicy() ActivityPolicy {
	return ActivityPolicy{RecencyWindow: 30 * 24 * time.Hour}
}

// filteredContributors returns the contributors whose login is not on the
// exclusion list, preserving input order.
func filteredContributors(contributors []types.Contributor, excluded map[string]struct{}) []types.Contributor {
	if len(excluded) == 0 {
		return contributors
	}

	kept := make([]types.Contributor, 0, len(contributors))
	for _, c := range contributors {
		if _, skip := excluded[c.Login]; skip {
			continue
		}
		kept = append(kept, c)
	}
	return kept
}

// lastActivity returns the most recent of the repository's update timestamp
// and its latest attributable commit.
func lastActivity(record types.RepoRecord) time.Time {
	latest := record.LastUpdated
	for _, commit := range record.Commits {
		if commit.CommittedAt.After(latest) {
			latest = commit.CommittedAt
		}
	}
	return latest
}

// classifyActivity places one repository into exactly one of the four
// activity buckets. A repository with no qualifying contributor, or whose
// last activity falls outside the recency window, is inactive; otherwise
// it buckets by qualifying contributor count capped at three-or-more.
func classifyActivity(record types.RepoRecord, excluded map[string]struct{}, policy ActivityPolicy, now time.Time) ActivityBucket {
	qualifying := filteredContributors(record.Contributors, excluded)
	if len(qualifying) == 0 {
		return ActivityNone
	}

	if policy.RecencyWindow > 0 && lastActivity(record).Before(now.Add(-policy.RecencyWindow)) {
		return ActivityNone
	}

	switch len(qualifying) {
	case 1:
		return ActivityOne
	case 2:
		return ActivityTwo
	default:
		return ActivityThreePlus
	}
}

// funnelStatus rolls the repository's cohort label up to a funnel bucket.
// Records without a label count as still active so that every repository
// contributes to exactly one bucket.
func funnelStatus(record types.RepoRecord) types.FunnelStatus {
	switch record.FunnelStatus {
	case types.FunnelDroppedOut, types.FunnelNoContact, types.FunnelGotJob, types.FunnelOther:
		return record.FunnelStatus
	default:
		return types.FunnelStillActive
	}
}
