package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidShiftType(t *testing.T) {
	assert.True(t, ValidShiftType(ShiftMorning))
	assert.True(t, ValidShiftType(ShiftAfternoon))
	assert.True(t, ValidShiftType(ShiftNight))
	assert.False(t, ValidShiftType("morning"))
	assert.False(t, ValidShiftType(""))
	assert.False(t, ValidShiftType("DAWN"))
}

func TestCanTransition(t *testing.T) {
	cases := []struct {
		from, to string
		want     bool
	}{
		{StatusDraft, StatusInProgress, true},
		{StatusDraft, StatusFinalized, true},
		{StatusDraft, StatusDraft, true},
		{StatusInProgress, StatusFinalized, true},
		{StatusInProgress, StatusInProgress, true},
		{StatusInProgress, StatusDraft, false},
		{StatusFinalized, StatusDraft, false},
		{StatusFinalized, StatusInProgress, false},
		{StatusFinalized, StatusFinalized, false},
		{"", StatusDraft, false},
	}
	for _, c := range cases {
		assert.Equal(t, c.want, CanTransition(c.from, c.to), "%s -> %s", c.from, c.to)
	}
}
