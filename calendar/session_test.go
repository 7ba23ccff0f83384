package calendar

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func at(t *testing.T, date, clock string) time.Time {
	t.Helper()
	ts, err := time.ParseInLocation("2006-01-02 15:04:05", date+" "+clock, shanghai)
	require.NoError(t, err)
	return ts
}

func TestParseWindow(t *testing.T) {
	t.Parallel()

	w, err := ParseWindow("09:14:00", "11:31:00")
	require.NoError(t, err)
	assert.Equal(t, "09:14:00-11:31:00", w.String())

	_, err = ParseWindow("11:00:00", "10:00:00")
	assert.Error(t, err)
	_, err = ParseWindow("9am", "10:00:00")
	assert.Error(t, err)
}

func TestWindowHalfOpen(t *testing.T) {
	t.Parallel()

	s := DefaultSessions()
	tests := []struct {
		clock string
		in    bool
	}{
		{"09:13:59", false},
		{"09:14:00", true},
		{"11:30:59", true},
		{"11:31:00", false},
		{"12:30:00", false},
		{"12:59:00", true},
		{"15:00:59", true},
		{"15:01:00", false},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.clock, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.in, s.Contains(at(t, "2025-03-03", tt.clock)))
		})
	}
}

func TestSessionsNextAndClosed(t *testing.T) {
	t.Parallel()

	s := DefaultSessions()

	next, ok := s.Next(at(t, "2025-03-03", "08:00:00"))
	require.True(t, ok)
	assert.Equal(t, at(t, "2025-03-03", "09:14:00"), next)

	next, ok = s.Next(at(t, "2025-03-03", "11:40:00"))
	require.True(t, ok)
	assert.Equal(t, at(t, "2025-03-03", "12:59:00"), next)

	_, ok = s.Next(at(t, "2025-03-03", "13:00:00"))
	assert.False(t, ok)

	assert.False(t, s.Closed(at(t, "2025-03-03", "15:00:59")))
	assert.True(t, s.Closed(at(t, "2025-03-03", "15:01:00")))
}

func TestWindowSteps(t *testing.T) {
	t.Parallel()

	s := DefaultSessions()
	assert.Equal(t, 411, s[0].Steps(20*time.Second))
	assert.Equal(t, 366, s[1].Steps(20*time.Second))

	w, err := ParseWindow("10:00:00", "10:00:50")
	require.NoError(t, err)
	assert.Equal(t, 3, w.Steps(20*time.Second))
	assert.Equal(t, 0, w.Steps(0))
}

func TestNewSessionsRejectsOverlap(t *testing.T) {
	t.Parallel()

	a, _ := ParseWindow("09:00:00", "10:00:00")
	b, _ := ParseWindow("09:30:00", "11:00:00")
	_, err := NewSessions(b, a)
	assert.Error(t, err)

	c, _ := ParseWindow("13:00:00", "14:00:00")
	s, err := NewSessions(c, a)
	require.NoError(t, err)
	assert.Equal(t, a, s[0])
}
