package schedule

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateSlots(t *testing.T) {
	slots := GenerateSlots()

	require.NotEmpty(t, slots)
	assert.Equal(t, "06:00", slots[0])
	assert.Equal(t, "21:30", slots[len(slots)-1])
	// 06:00..21:30 is 32 half hours, minus 14:00, 14:30, 15:00.
	assert.Len(t, slots, 29)

	assert.Contains(t, slots, "13:30")
	assert.NotContains(t, slots, "14:00")
	assert.NotContains(t, slots, "14:30")
	assert.NotContains(t, slots, "15:00")
	assert.Contains(t, slots, "15:30")

	for i := 1; i < len(slots); i++ {
		prev, _ := ParseClock(slots[i-1])
		cur, _ := ParseClock(slots[i])
		assert.Greater(t, cur, prev)
		assert.Zero(t, (cur-OpeningClock)%SlotStep)
	}
}

func TestGenerateSlotsIsDeterministic(t *testing.T) {
	first := GenerateSlots()
	first[0] = "mutated"

	assert.Equal(t, GenerateSlots(), GenerateSlots())
	assert.Equal(t, "06:00", GenerateSlots()[0])
}

func TestIsSlot(t *testing.T) {
	for _, s := range GenerateSlots() {
		clock, err := ParseClock(s)
		require.NoError(t, err)
		assert.True(t, IsSlot(clock), s)
	}

	for _, s := range []string{"05:30", "06:15", "14:00", "15:00", "22:00"} {
		clock, err := ParseClock(s)
		require.NoError(t, err)
		assert.False(t, IsSlot(clock), s)
	}
}

func TestParseClock(t *testing.T) {
	tests := []struct {
		in      string
		want    int
		wantErr bool
	}{
		{"00:00", 0, false},
		{"09:30", 570, false},
		{"23:59", 1439, false},
		{"9:30", 0, true},
		{"24:00", 0, true},
		{"10:60", 0, true},
		{"10-30", 0, true},
		{"ab:cd", 0, true},
		{"", 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseClock(tt.in)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrInvalidClock)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, tt.in, FormatClock(got))
		})
	}
}

func TestStartOfAndClockOf(t *testing.T) {
	loc, err := time.LoadLocation("Europe/Rome")
	require.NoError(t, err)

	day, err := ParseDate("2026-03-29", loc)
	require.NoError(t, err)

	start := StartOf(day, 9*60+30, loc)
	assert.Equal(t, 9, start.Hour())
	assert.Equal(t, 30, start.Minute())
	assert.Equal(t, 9*60+30, ClockOf(start, loc))
	assert.True(t, Day(start, loc).Equal(day))
}
