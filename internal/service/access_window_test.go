package service

import (
	"testing"
	"time"

	"github.com/stemsi/exstem-assessment/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func schedule(start, end time.Duration, minutes int) model.ExamSchedule {
	return model.ExamSchedule{
		Date:            time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC),
		StartTime:       start,
		EndTime:         end,
		DurationMinutes: minutes,
	}
}

func TestEvaluateWindow(t *testing.T) {
	s := schedule(8*time.Hour, 10*time.Hour, 60)
	day := time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC)

	tests := []struct {
		name string
		now  time.Time
		want WindowState
	}{
		{"before start", day.Add(7*time.Hour + 59*time.Minute), WindowNotYetOpen},
		{"exactly at start", day.Add(8 * time.Hour), WindowOpen},
		{"inside", day.Add(9 * time.Hour), WindowOpen},
		{"exactly at end", day.Add(10 * time.Hour), WindowOpen},
		{"just after end", day.Add(10*time.Hour + time.Second), WindowExpired},
		{"previous day", day.Add(-time.Hour), WindowNotYetOpen},
		{"next day", day.Add(33 * time.Hour), WindowExpired},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, EvaluateWindow(s, tt.now, time.UTC))
		})
	}
}

func TestWindowStateErr(t *testing.T) {
	assert.ErrorIs(t, WindowNotYetOpen.Err(), ErrNotYetOpen)
	assert.ErrorIs(t, WindowExpired.Err(), ErrWindowExpired)
	assert.NoError(t, WindowOpen.Err())
}

func TestWindowBoundsUsesExamLocation(t *testing.T) {
	jakarta := time.FixedZone("WIB", 7*60*60)
	s := schedule(8*time.Hour, 10*time.Hour, 60)

	start, end := WindowBounds(s, jakarta)
	assert.Equal(t, time.Date(2026, 3, 2, 1, 0, 0, 0, time.UTC), start)
	assert.Equal(t, time.Date(2026, 3, 2, 3, 0, 0, 0, time.UTC), end)
	assert.Equal(t, time.UTC, start.Location())

	// 08:30 WIB is open even though it is 01:30 UTC.
	assert.Equal(t, WindowOpen, EvaluateWindow(s, time.Date(2026, 3, 2, 1, 30, 0, 0, time.UTC), jakarta))
	assert.Equal(t, WindowNotYetOpen, EvaluateWindow(s, time.Date(2026, 3, 2, 0, 30, 0, 0, time.UTC), jakarta))
}

func TestWindowBoundsCrossesMidnight(t *testing.T) {
	s := schedule(22*time.Hour, 1*time.Hour, 60)

	start, end := WindowBounds(s, time.UTC)
	assert.Equal(t, time.Date(2026, 3, 2, 22, 0, 0, 0, time.UTC), start)
	assert.Equal(t, time.Date(2026, 3, 3, 1, 0, 0, 0, time.UTC), end)
	assert.Equal(t, WindowOpen, EvaluateWindow(s, time.Date(2026, 3, 3, 0, 30, 0, 0, time.UTC), time.UTC))
}

func TestWindowBoundsEqualTimesDoNotRollOver(t *testing.T) {
	s := schedule(9*time.Hour, 9*time.Hour, 60)
	at := time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)

	start, end := WindowBounds(s, time.UTC)
	assert.Equal(t, at, start)
	assert.Equal(t, at, end)

	tests := []struct {
		name string
		now  time.Time
		want WindowState
	}{
		{"just before", at.Add(-time.Second), WindowNotYetOpen},
		{"the instant", at, WindowOpen},
		{"just after", at.Add(time.Second), WindowExpired},
		{"an hour later", at.Add(time.Hour), WindowExpired},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, EvaluateWindow(s, tt.now, time.UTC))
		})
	}
}

func TestWindowBoundsNilLocation(t *testing.T) {
	s := schedule(8*time.Hour, 10*time.Hour, 60)
	start, _ := WindowBounds(s, nil)
	assert.Equal(t, time.Date(2026, 3, 2, 8, 0, 0, 0, time.UTC), start)
}

func TestSessionDeadline(t *testing.T) {
	s := schedule(8*time.Hour, 10*time.Hour, 60)
	day := time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC)

	t.Run("full allowance inside the window", func(t *testing.T) {
		started := day.Add(8*time.Hour + 15*time.Minute)
		assert.Equal(t, started.Add(time.Hour), sessionDeadline(s, started, time.UTC))
	})

	t.Run("clamped to window end", func(t *testing.T) {
		started := day.Add(9*time.Hour + 30*time.Minute)
		got := sessionDeadline(s, started, time.UTC)
		require.Equal(t, day.Add(10*time.Hour), got)
		assert.Equal(t, 30*time.Minute, got.Sub(started))
	})
}
