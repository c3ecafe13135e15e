// Package duration parses the compact TTL strings used in configuration ("5m", "10d", "1w").
package duration

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
)

var ErrInvalid = errors.New("invalid duration")

var units = map[string]time.Duration{
	"ms": time.Millisecond,
	"s":  time.Second,
	"m":  time.Minute,
	"h":  time.Hour,
	"d":  24 * time.Hour,
	"w":  7 * 24 * time.Hour,
	"y":  365*24*time.Hour + 6*time.Hour,
}

// Parse accepts a single number+unit ("15m", "10d", "1.5h"), a bare number of seconds ("300"),
// or anything time.ParseDuration accepts ("1h30m").
func Parse(s string) (time.Duration, error) {
	s = strings.TrimSpace(strings.ToLower(s))
	if s == "" {
		return 0, fmt.Errorf("%w: empty", ErrInvalid)
	}

	if secs, err := strconv.ParseFloat(s, 64); err == nil {
		return scaled(secs, time.Second, s)
	}

	i := len(s)
	for i > 0 && (s[i-1] < '0' || s[i-1] > '9') {
		i--
	}
	num, unit := s[:i], s[i:]
	if mult, ok := units[unit]; ok {
		if v, err := strconv.ParseFloat(num, 64); err == nil {
			return scaled(v, mult, s)
		}
	}

	d, err := time.ParseDuration(s)
	if err != nil {
		return 0, fmt.Errorf("%w: %q", ErrInvalid, s)
	}
	return checked(d, s)
}

// scaled rejects NaN, infinities and products past the int64 range before converting.
func scaled(v float64, unit time.Duration, s string) (time.Duration, error) {
	f := v * float64(unit)
	if math.IsNaN(f) || math.Abs(f) >= math.MaxInt64 {
		return 0, fmt.Errorf("%w: %q out of range", ErrInvalid, s)
	}
	return checked(time.Duration(f), s)
}

func checked(d time.Duration, s string) (time.Duration, error) {
	if d <= 0 {
		return 0, fmt.Errorf("%w: %q must be positive", ErrInvalid, s)
	}
	return d, nil
}
