package timetable

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/sma-timetable-api/internal/models"
)

func TestStructureForNormal(t *testing.T) {
	s, err := StructureFor(ModeNormal)
	require.NoError(t, err)
	assert.Len(t, s.Days, 5)
	assert.Len(t, s.Periods, 9)
	assert.Len(t, s.Slots(), 45)

	first := s.Slots()[0]
	assert.Equal(t, models.DayMonday, first.Day)
	assert.Equal(t, models.Clock(8, 0), first.Start)
	assert.Equal(t, models.Clock(8, 40), first.End)
	assert.Equal(t, Period{Start: models.Clock(15, 40), End: models.Clock(16, 20)}, s.Periods[8])
}

func TestStructureForRemedial(t *testing.T) {
	s, err := StructureFor(ModeRemedial)
	require.NoError(t, err)
	assert.Equal(t, models.DaySaturday, s.Days[len(s.Days)-1])
	assert.Len(t, s.Slots(), 36)
	assert.Equal(t, []string{"Mon", "Tue", "Wed", "Thu", "Fri", "Sat"}, s.DayCodes())
}

func TestStructureForIsIndependentCopy(t *testing.T) {
	a, _ := StructureFor(ModeNormal)
	a.Periods[0] = Period{}
	b, _ := StructureFor(ModeNormal)
	assert.Equal(t, models.Clock(8, 0), b.Periods[0].Start)
}

func TestStructureForUnknownMode(t *testing.T) {
	_, err := StructureFor("evening")
	assert.Error(t, err)
	_, err = ParseMode("evening")
	assert.Error(t, err)
}

func TestStructureContainsRequiresFullPeriod(t *testing.T) {
	normal, _ := StructureFor(ModeNormal)
	remedial, _ := StructureFor(ModeRemedial)

	assert.True(t, normal.Contains(models.DayMonday, models.Clock(8, 0), models.Clock(8, 40)))
	assert.False(t, normal.Contains(models.DayMonday, models.Clock(8, 0), models.Clock(9, 0)))
	assert.True(t, remedial.Contains(models.DayMonday, models.Clock(8, 0), models.Clock(9, 0)))
	assert.False(t, normal.Contains(models.DaySaturday, models.Clock(8, 0), models.Clock(8, 40)))
}
