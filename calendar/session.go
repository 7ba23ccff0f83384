package calendar

import (
	"fmt"
	"sort"
	"time"

	"github.com/rustyeddy/intraday/market"
)

// Window is a half-open intraday interval [Start, End) expressed as offsets
// from midnight.
type Window struct {
	Start time.Duration
	End   time.Duration
}

// ParseWindow builds a window from two HH:MM:SS clocks.
func ParseWindow(start, end string) (Window, error) {
	s, err := market.ParseClock(start)
	if err != nil {
		return Window{}, err
	}
	e, err := market.ParseClock(end)
	if err != nil {
		return Window{}, err
	}
	if e <= s {
		return Window{}, fmt.Errorf("window %s-%s: end must be after start", start, end)
	}
	return Window{Start: s, End: e}, nil
}

func (w Window) String() string {
	return market.FormatClock(w.Start) + "-" + market.FormatClock(w.End)
}

func (w Window) Contains(clock time.Duration) bool {
	return clock >= w.Start && clock < w.End
}

// On anchors the window to day's date.
func (w Window) On(day time.Time) (start, end time.Time) {
	mid := market.Midnight(day)
	return mid.Add(w.Start), mid.Add(w.End)
}

// Steps returns how many ticks of interval fit in the window.
func (w Window) Steps(interval time.Duration) int {
	if interval <= 0 {
		return 0
	}
	span := w.End - w.Start
	n := int(span / interval)
	if span%interval != 0 {
		n++
	}
	return n
}

// Sessions is the ordered, non-overlapping set of windows for one day.
type Sessions []Window

// DefaultSessions are the morning and afternoon windows, opened a minute
// early and closed a minute late around the exchange sessions.
func DefaultSessions() Sessions {
	am, _ := ParseWindow("09:14:00", "11:31:00")
	pm, _ := ParseWindow("12:59:00", "15:01:00")
	return Sessions{am, pm}
}

// NewSessions sorts windows by start and rejects overlaps.
func NewSessions(ws ...Window) (Sessions, error) {
	out := append(Sessions(nil), ws...)
	sort.Slice(out, func(i, j int) bool { return out[i].Start < out[j].Start })
	for i := 1; i < len(out); i++ {
		if out[i].Start < out[i-1].End {
			return nil, fmt.Errorf("window %s overlaps %s", out[i], out[i-1])
		}
	}
	return out, nil
}

// Contains reports whether t's wall clock falls inside any window.
func (s Sessions) Contains(t time.Time) bool {
	clock := market.SinceMidnight(t)
	for _, w := range s {
		if w.Contains(clock) {
			return true
		}
	}
	return false
}

// Next returns the start of the first window that opens after t on t's
// day. ok is false once the last window has started.
func (s Sessions) Next(t time.Time) (start time.Time, ok bool) {
	clock := market.SinceMidnight(t)
	for _, w := range s {
		if w.Start > clock {
			st, _ := w.On(t)
			return st, true
		}
	}
	return time.Time{}, false
}

// Closed reports whether t is at or after the end of the last window.
func (s Sessions) Closed(t time.Time) bool {
	if len(s) == 0 {
		return true
	}
	return market.SinceMidnight(t) >= s[len(s)-1].End
}
