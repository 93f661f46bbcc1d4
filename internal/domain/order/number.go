package order

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

const numberPrefix = "OC"

// NumberPrefix is the per-month prefix, e.g. "OC-2025-01-".
func NumberPrefix(at time.Time) string {
	at = at.UTC()
	return fmt.Sprintf("%s-%04d-%02d-", numberPrefix, at.Year(), int(at.Month()))
}

// NextNumber returns the number following last within the month of at.
// An empty or foreign last starts the sequence at 001.
func NextNumber(last string, at time.Time) string {
	prefix := NumberPrefix(at)
	seq := 0
	if strings.HasPrefix(last, prefix) {
		if n, err := strconv.Atoi(strings.TrimPrefix(last, prefix)); err == nil {
			seq = n
		}
	}
	return fmt.Sprintf("%s%03d", prefix, seq+1)
}
