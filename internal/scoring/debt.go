package scoring

import (
	"regexp"
	"strconv"
)

// SonarCloud reports technical debt as a combined duration string such as
// "5d 3h", "2d" or "7h". The day and hour components are independent and
// either may be absent.
var (
	debtDaysPattern  = regexp.MustCompile(`(\d+)d`)
	debtHoursPattern = regexp.MustCompile(`(\d+)h`)
)

// ParseDebtHours converts a technical-debt duration string to total hours.
// Unrecognized components count as zero, so an empty or malformed string
// yields 0 hours rather than an error.
func ParseDebtHours(debt string) int {
	days := 0
	if m := debtDaysPattern.FindStringSubmatch(debt); m != nil {
		days, _ = strconv.Atoi(m[1])
	}

	hours := 0
	if m := debtHoursPattern.FindStringSubmatch(debt); m != nil {
		hours, _ = strconv.Atoi(m[1])
	}

	return days*24 + hours
}
