// Package recur wraps the rrule recurrence engine behind the small query
// surface the habit engine needs: canonical string (de)serialization,
// next-occurrence lookup, and calendar-day due checks.
package recur

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/teambition/rrule-go"
)

const dtstartLayout = "20060102T150405Z"

// Rule is a recurrence rule. It serializes to its canonical string form
// ("DTSTART:...\nRRULE:FREQ=...") and deserializes back into a live rule
// object, never a raw string.
type Rule struct {
	text string
	rr   *rrule.RRule
}

// Parse builds a Rule from its string form. Accepted inputs are either a
// bare rule ("FREQ=DAILY;INTERVAL=2") or the two-line form with a DTSTART
// prefix produced by Canonical. A bare rule is anchored at the parse
// instant and keeps that anchor in its canonical form, so reviving it later
// yields the same schedule instead of re-anchoring at the current clock.
func Parse(s string) (Rule, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return Rule{}, fmt.Errorf("parsing recurrence rule: empty string")
	}

	var dtstart time.Time
	rulePart := s

	for _, line := range strings.Split(s, "\n") {
		line = strings.TrimSpace(line)
		switch {
		case strings.HasPrefix(line, "DTSTART"):
			value := line[strings.Index(line, ":")+1:]
			t, err := parseDTStart(value)
			if err != nil {
				return Rule{}, err
			}
			dtstart = t
		case strings.HasPrefix(line, "RRULE:"):
			rulePart = strings.TrimPrefix(line, "RRULE:")
		default:
			rulePart = line
		}
	}

	opt, err := rrule.StrToROption(rulePart)
	if err != nil {
		return Rule{}, fmt.Errorf("parsing recurrence rule %q: %w", s, err)
	}
	if dtstart.IsZero() {
		// Without an explicit anchor rrule would pick one at construction
		// time, shifting the schedule on every revival.
		dtstart = time.Now().UTC().Truncate(time.Second)
	}
	opt.Dtstart = dtstart

	rr, err := rrule.NewRRule(*opt)
	if err != nil {
		return Rule{}, fmt.Errorf("building recurrence rule %q: %w", s, err)
	}

	r := Rule{rr: rr}
	r.text = canonical(opt)
	return r, nil
}

// MustParse is Parse for rules known to be valid, such as test fixtures and
// the built-in catalog.
func MustParse(s string) Rule {
	r, err := Parse(s)
	if err != nil {
		panic(err)
	}
	return r
}

func parseDTStart(value string) (time.Time, error) {
	value = strings.TrimSpace(value)
	if t, err := time.Parse(dtstartLayout, value); err == nil {
		return t, nil
	}
	t, err := time.ParseInLocation("20060102T150405", value, time.Local)
	if err != nil {
		return time.Time{}, fmt.Errorf("parsing DTSTART %q: %w", value, err)
	}
	return t, nil
}

func canonical(opt *rrule.ROption) string {
	return "DTSTART:" + opt.Dtstart.UTC().Format(dtstartLayout) + "\nRRULE:" + opt.RRuleString()
}

// IsZero reports whether r holds no rule.
func (r Rule) IsZero() bool {
	return r.rr == nil
}

// Canonical returns the rule's canonical string form.
func (r Rule) Canonical() string {
	return r.text
}

// NextOnOrAfter returns the first occurrence at or after t, and whether one
// exists.
func (r Rule) NextOnOrAfter(t time.Time) (time.Time, bool) {
	if r.rr == nil {
		return time.Time{}, false
	}
	next := r.rr.After(t, true)
	if next.IsZero() {
		return time.Time{}, false
	}
	return next, true
}

// Occurrences returns the first n occurrences at or after t.
func (r Rule) Occurrences(t time.Time, n int) []time.Time {
	out := make([]time.Time, 0, n)
	cur := t
	for len(out) < n {
		next, ok := r.NextOnOrAfter(cur)
		if !ok {
			break
		}
		out = append(out, next)
		cur = next.Add(time.Second)
	}
	return out
}

// DueOn reports whether the rule has an occurrence on the calendar day of
// day. The next occurrence at or after the start of that day is truncated to
// local wall-clock date components before comparison, so a rule firing at
// 14:00 still counts as due for the whole day.
func (r Rule) DueOn(day time.Time) bool {
	start := StartOfDay(day)
	next, ok := r.NextOnOrAfter(start)
	if !ok {
		return false
	}
	return StartOfDay(next).Equal(start)
}

// MarshalJSON serializes the rule to its canonical string form.
func (r Rule) MarshalJSON() ([]byte, error) {
	return json.Marshal(r.text)
}

// UnmarshalJSON revives a rule from its string form.
func (r *Rule) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	if s == "" {
		*r = Rule{}
		return nil
	}
	parsed, err := Parse(s)
	if err != nil {
		return err
	}
	*r = parsed
	return nil
}

// StartOfDay truncates t to midnight using local wall-clock date components,
// not UTC, to avoid timezone-boundary mismatches.
func StartOfDay(t time.Time) time.Time {
	t = t.Local()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.Local)
}

// DayString formats t's local calendar day as an ISO date string, the key
// format used throughout the habit log.
func DayString(t time.Time) string {
	return t.Local().Format("2006-01-02")
}
