package contacts

import (
	"strings"
	"time"
)

const monthDayLayout = "01-02"

// BirthdayMonthDays lists the "MM-DD" keys of every calendar day in
// [today, today+days]. In non-leap years "02-29" is added next to "02-28"
// so that leap-day birthdays are not skipped.
func BirthdayMonthDays(today time.Time, days int) []string {
	y, m, d := today.Date()
	start := time.Date(y, m, d, 0, 0, 0, 0, time.UTC)

	keys := make([]string, 0, days+2)
	for i := 0; i <= days; i++ {
		day := start.AddDate(0, 0, i)
		key := day.Format(monthDayLayout)
		keys = append(keys, key)
		if key == "02-28" && !isLeap(day.Year()) {
			keys = append(keys, "02-29")
		}
	}
	return keys
}

func isLeap(year int) bool {
	return year%4 == 0 && (year%100 != 0 || year%400 == 0)
}

// likePattern wraps term for a substring LIKE match, escaping the LIKE
// metacharacters with a backslash.
func likePattern(term string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return "%" + r.Replace(term) + "%"
}
