package cohort

import "sort"

// hallOfFameSize caps each tech-stack group at its top repositories
const hallOfFameSize = 3

// buildHallOfFame groups the ranked leaderboard by tech stack and keeps the
// top three repositories per stack. Input items must already be sorted
// descending by total score, so group membership order falls out of the
// iteration. Groups are ordered by their own best repository's score;
// stacks with no repositories never appear.
func buildHallOfFame(ranked []LeaderboardItem) []StackGroup {
	groupIndex := make(map[string]int)
	groups := make([]StackGroup, 0)

	for _, item := range ranked {
		for _, stack := range item.TechStacks {
			if stack == "" {
				continue
			}

			idx, seen := groupIndex[stack]
			if !seen {
				groupIndex[stack] = len(groups)
				groups = append(groups, StackGroup{Stack: stack})
				idx = len(groups) - 1
			}

			if len(groups[idx].Top) < hallOfFameSize {
				groups[idx].Top = append(groups[idx].Top, item)
			}
		}
	}

	// Stable sort keeps first-encounter order for groups whose leaders tie.
	sort.SliceStable(groups, func(i, j int) bool {
		return groups[i].Top[0].Scores.TotalScore > groups[j].Top[0].Scores.TotalScore
	})

	return groups
}
