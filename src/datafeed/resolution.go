package datafeed

import (
	"fmt"
	"strconv"
	"strings"
)

var DefaultSupportedResolutions = []string{"1", "5", "15", "30", "60", "240", "720", "1D", "1W"}
var DefaultIntradayMultipliers = []string{"1", "5", "15", "30", "60", "240", "720"}

// ResolutionMinutes maps a resolution token to its bucket width in minutes.
// Numeric tokens are minutes; D and W suffixes are days and weeks ("1D", "D", "2W").
func ResolutionMinutes(resolution string) (int, error) {
	r := strings.ToUpper(strings.TrimSpace(resolution))
	if r == "" {
		return 0, fmt.Errorf("empty resolution")
	}

	unit := 1
	switch r[len(r)-1] {
	case 'D':
		unit = 1440
		r = r[:len(r)-1]
	case 'W':
		unit = 10080
		r = r[:len(r)-1]
	}

	n := 1
	if r != "" {
		v, err := strconv.Atoi(r)
		if err != nil || v <= 0 {
			return 0, fmt.Errorf("invalid resolution %q", resolution)
		}
		n = v
	}
	return n * unit, nil
}

// ResolutionSeconds is ResolutionMinutes in seconds.
func ResolutionSeconds(resolution string) (int64, error) {
	m, err := ResolutionMinutes(resolution)
	if err != nil {
		return 0, err
	}
	return int64(m) * 60, nil
}
