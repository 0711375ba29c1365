package cohort

import (
	"time"

	"github.com/BrainStation-23/learnathon-leaderboard/internal/types"
)

// monthlyWindowSize is the fixed width of the commit-activity series: the
// current month plus the four preceding ones.
const monthlyWindowSize = 5

// FallbackEstimator decides what a repository contributes to the monthly
// series when it has no per-commit timestamp data. Implementations must be
// deterministic: the same record and window always produce the same counts.
type FallbackEstimator interface {
	// EstimateMonthly returns one count per window bucket, oldest first.
	// The slice length must equal the window size.
	EstimateMonthly(record types.RepoRecord, window int) []int
}

// ZeroFallback reports an explicit zero for repositories without real
// per-commit data. Months without attributable commits simply show no
// activity rather than a synthesized estimate.
type ZeroFallback struct{}

// EstimateMonthly returns all zeros
func (ZeroFallback) EstimateMonthly(_ types.RepoRecord, window int) []int {
	return make([]int, window)
}

// ProportionalFallback spreads a repository's total commit count across the
// window with fixed integer weights rising toward the newest month. The
// division remainder lands on the newest bucket so the distributed counts
// sum exactly to the repository's total.
type ProportionalFallback struct{}

// EstimateMonthly distributes CommitsCount over the window, newest-heavy
func (ProportionalFallback) EstimateMonthly(record types.RepoRecord, window int) []int {
	counts := make([]int, window)
	if record.CommitsCount == nil || *record.CommitsCount <= 0 {
		return counts
	}

	total := *record.CommitsCount
	weightSum := 0
	for i := 0; i < window; i++ {
		weightSum += i + 1
	}

	distributed := 0
	for i := 0; i < window; i++ {
		counts[i] = total * (i + 1) / weightSum
		distributed += counts[i]
	}
	counts[window-1] += total - distributed

	return counts
}

// monthStart truncates a timestamp to the first instant of its month in UTC
func monthStart(t time.Time) time.Time {
	utc := t.UTC()
	return time.Date(utc.Year(), utc.Month(), 1, 0, 0, 0, 0, time.UTC)
}

// monthlyCommitSeries builds the 5-bucket commit series, oldest to newest,
// covering the month of now and the four before it. Repositories with real
// per-commit timestamps are attributed by calendar month; the rest go
// through the fallback estimator.
func monthlyCommitSeries(records []types.RepoRecord, now time.Time, fallback FallbackEstimator) []MonthBucket {
	if fallback == nil {
		fallback = ZeroFallback{}
	}

	current := monthStart(now)
	buckets := make([]MonthBucket, monthlyWindowSize)
	for i := range buckets {
		start := current.AddDate(0, i-(monthlyWindowSize-1), 0)
		buckets[i] = MonthBucket{
			Label: start.Format("Jan"),
			Year:  start.Year(),
			Month: start.Month(),
		}
	}

	for _, record := range records {
		if len(record.Commits) > 0 {
			for _, commit := range record.Commits {
				start := monthStart(commit.CommittedAt)
				for i := range buckets {
					if start.Year() == buckets[i].Year && start.Month() == buckets[i].Month {
						buckets[i].Commits++
						break
					}
				}
			}
			continue
		}

		estimates := fallback.EstimateMonthly(record, monthlyWindowSize)
		for i := range buckets {
			if i < len(estimates) && estimates[i] > 0 {
				buckets[i].Commits += estimates[i]
				buckets[i].Estimated = true
			}
		}
	}

	return buckets
}
