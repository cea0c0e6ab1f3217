package reconcile

import (
	"fmt"
	"slices"
	"strings"
	"time"
)

// Outcome records why a (date, time) pair did or did not produce a timestamp.
// Every outcome other than Parsed yields an absent timestamp; the distinction
// only feeds data-quality counters.
type Outcome int

const (
	Parsed Outcome = iota
	Empty
	Sentinel
	NullToken
	Malformed
)

// Outcomes lists every outcome in reporting order.
var Outcomes = []Outcome{Parsed, Empty, Sentinel, NullToken, Malformed}

func (o Outcome) String() string {
	switch o {
	case Parsed:
		return "parsed"
	case Empty:
		return "empty"
	case Sentinel:
		return "sentinel"
	case NullToken:
		return "null_token"
	case Malformed:
		return "malformed"
	default:
		return "unknown"
	}
}

// MarshalText renders the outcome by name so it can key JSON maps.
func (o Outcome) MarshalText() ([]byte, error) {
	return []byte(o.String()), nil
}

func (o *Outcome) UnmarshalText(b []byte) error {
	for _, known := range Outcomes {
		if known.String() == string(b) {
			*o = known
			return nil
		}
	}
	return fmt.Errorf("unknown outcome %q", b)
}

// Reconciler turns a raw date field and a raw time field into a canonical timestamp.
type Reconciler struct {
	// Layouts are tried in order against "<date> <time>"; the first match wins.
	Layouts []string
	// SentinelYear marks placeholder dates that parse but mean "never happened".
	SentinelYear  int
	SentinelDates []string
	SentinelTimes []string
	// NullTokens are compared case-insensitively.
	NullTokens []string
	Location   *time.Location
}

// Default returns the reconciler used by every ingestion path.
func Default() *Reconciler {
	return &Reconciler{
		Layouts: []string{
			"2/1/2006 15:04:05",
			"2/1/2006 15:04",
			"2006-01-02 15:04:05",
			"2006-01-02 15:04",
		},
		SentinelYear:  1900,
		SentinelDates: []string{"31/12/1900", "1900-12-31"},
		SentinelTimes: []string{":", "00:00", "00:00:00"},
		NullTokens:    []string{"nan", "null", "none", "nat"},
		Location:      time.UTC,
	}
}

// WithLocation returns a copy of r that interprets wall-clock values in loc.
func (r *Reconciler) WithLocation(loc *time.Location) *Reconciler {
	c := *r
	c.Location = loc
	return &c
}

// Reconcile never fails: anything unusable comes back as a nil timestamp.
func (r *Reconciler) Reconcile(date, clock string) (*time.Time, Outcome) {
	// 1. Trim both sides
	date = strings.TrimSpace(date)
	clock = strings.TrimSpace(clock)

	// 2. Reject unusable components before attempting a parse
	if date == "" || clock == "" {
		return nil, Empty
	}
	if r.isNullToken(date) || r.isNullToken(clock) {
		return nil, NullToken
	}
	if slices.Contains(r.SentinelDates, date) || slices.Contains(r.SentinelTimes, clock) || zeroClock(clock) {
		return nil, Sentinel
	}

	// 3. Ordered layouts, first success wins
	loc := r.Location
	if loc == nil {
		loc = time.UTC
	}
	combined := date + " " + clock
	for _, layout := range r.Layouts {
		ts, err := time.ParseInLocation(layout, combined, loc)
		if err != nil {
			continue
		}
		// 4. A placeholder year can still parse cleanly
		if ts.Year() == r.SentinelYear {
			return nil, Sentinel
		}
		return &ts, Parsed
	}

	return nil, Malformed
}

func (r *Reconciler) isNullToken(v string) bool {
	for _, token := range r.NullTokens {
		if strings.EqualFold(v, token) {
			return true
		}
	}
	return false
}

// zeroClock reports whether every digit of clock is zero, in any spelling
// ("0:00", "00:00:00.000").
func zeroClock(clock string) bool {
	return clock != "" && strings.Trim(clock, "0:.") == ""
}
