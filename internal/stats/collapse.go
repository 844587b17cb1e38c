package stats

import (
	"fmt"
	"strconv"
)

// minRangeRun is the shortest run of consecutive values written as a range.
const minRangeRun = 3

// Collapse formats ascending distinct values, replacing each maximal run of
// at least three consecutive integers with "first-last".
func Collapse(values []int) []string {
	out := make([]string, 0, len(values))
	for i := 0; i < len(values); {
		end := i
		for end+1 < len(values) && values[end+1] == values[end]+1 {
			end++
		}
		if end-i+1 >= minRangeRun {
			out = append(out, fmt.Sprintf("%d-%d", values[i], values[end]))
			i = end + 1
			continue
		}
		out = append(out, strconv.Itoa(values[i]))
		i++
	}
	return out
}

// FormatValues formats values one per string.
func FormatValues(values []int) []string {
	out := make([]string, len(values))
	for i, v := range values {
		out[i] = strconv.Itoa(v)
	}
	return out
}
