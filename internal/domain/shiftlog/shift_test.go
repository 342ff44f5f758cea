package shiftlog

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolveShift_Boundaries(t *testing.T) {
	loc := time.FixedZone("UTC-4", -4*60*60)

	tests := []struct {
		hour, minute int
		want         Shift
	}{
		{6, 59, ShiftNight},
		{7, 0, ShiftDay},
		{14, 59, ShiftDay},
		{15, 0, ShiftEvening},
		{22, 59, ShiftEvening},
		{23, 0, ShiftNight},
		{2, 0, ShiftNight},
		{0, 0, ShiftNight},
	}
	for _, tt := range tests {
		ts := time.Date(2024, time.March, 10, tt.hour, tt.minute, 0, 0, loc)
		assert.Equal(t, tt.want, ResolveShift(ts, loc), "hour %02d:%02d", tt.hour, tt.minute)
	}
}

func TestResolveShift_ConvertsToLocation(t *testing.T) {
	loc := time.FixedZone("UTC-4", -4*60*60)

	// 02:30 UTC is 22:30 the previous day in UTC-4: still evening there.
	ts := time.Date(2024, time.March, 10, 2, 30, 0, 0, time.UTC)
	assert.Equal(t, ShiftEvening, ResolveShift(ts, loc))
	assert.Equal(t, ShiftNight, ResolveShift(ts, time.UTC))
}

func TestParseShift(t *testing.T) {
	s, ok := ParseShift("  Dia ")
	require.True(t, ok)
	assert.Equal(t, ShiftDay, s)

	s, ok = ParseShift("NOCHE")
	require.True(t, ok)
	assert.Equal(t, ShiftNight, s)

	_, ok = ParseShift("madrugada")
	assert.False(t, ok)
}

func TestNicknamesForShift(t *testing.T) {
	n := &Nicknames{UserID: 7}
	n.Evening.String = "Luna"
	n.Evening.Valid = true

	label, ok := n.ForShift(ShiftEvening)
	require.True(t, ok)
	assert.Equal(t, "Luna", label)

	_, ok = n.ForShift(ShiftDay)
	assert.False(t, ok)
}
