package cohort

import (
	"testing"
	"time"

	"github.com/BrainStation-23/learnathon-leaderboard/internal/types"
	"github.com/stretchr/testify/assert"
)

func TestClassifyActivityUsesLatestCommitOverStaleUpdate(t *testing.T) {
	now := time.Date(2024, time.May, 15, 0, 0, 0, 0, time.UTC)
	policy := DefaultActivityPolicy()

	record := types.RepoRecord{
		ID:          "r",
		LastUpdated: now.Add(-60 * 24 * time.Hour),
		Commits: []types.RawCommit{
			{SHA: "a", CommittedAt: now.Add(-2 * 24 * time.Hour)},
		},
		Contributors: []types.Contributor{{Login: "dev"}},
	}

	bucket := classifyActivity(record, nil, policy, now)
	assert.Equal(t, ActivityOne, bucket)
}

func TestClassifyActivityCapsAtThreeOrMore(t *testing.T) {
	now := time.Date(2024, time.May, 15, 0, 0, 0, 0, time.UTC)
	policy := DefaultActivityPolicy()

	record := types.RepoRecord{
		ID:          "r",
		LastUpdated: now.Add(-24 * time.Hour),
		Contributors: []types.Contributor{
			{Login: "a"}, {Login: "b"}, {Login: "c"}, {Login: "d"}, {Login: "e"},
		},
	}

	bucket := classifyActivity(record, nil, policy, now)
	assert.Equal(t, ActivityThreePlus, bucket)
}

func TestFunnelStatusDefaultsToStillActive(t *testing.T) {
	assert.Equal(t, types.FunnelStillActive, funnelStatus(types.RepoRecord{}))
	assert.Equal(t, types.FunnelStillActive, funnelStatus(types.RepoRecord{FunnelStatus: "garbage"}))
	assert.Equal(t, types.FunnelDroppedOut, funnelStatus(types.RepoRecord{FunnelStatus: types.FunnelDroppedOut}))
}

func TestFilteredContributorsPreservesOrder(t *testing.T) {
	contributors := []types.Contributor{
		{Login: "a"}, {Login: "bot"}, {Login: "b"},
	}
	excluded := map[string]struct{}{"bot": {}}

	kept := filteredContributors(contributors, excluded)
	assert.Len(t, kept, 2)
	assert.Equal(t, "a", kept[0].Login)
	assert.Equal(t, "b", kept[1].Login)
}
