// Package timetable holds the pure timetable rules: the fixed weekly structures, the grid
// wire format, constraint validation, replacement planning and lesson statistics.
package timetable

import (
	"fmt"

	"github.com/noah-isme/sma-timetable-api/internal/models"
)

// Mode selects which fixed structure a timetable uses.
type Mode string

const (
	ModeNormal   Mode = "normal"
	ModeRemedial Mode = "remedial"
)

// ParseMode validates a mode path or query value.
func ParseMode(value string) (Mode, error) {
	switch Mode(value) {
	case ModeNormal, ModeRemedial:
		return Mode(value), nil
	}
	return "", fmt.Errorf("unknown timetable mode %q", value)
}

// Period is a teaching period within a day.
type Period struct {
	Start models.TimeOfDay `json:"start"`
	End   models.TimeOfDay `json:"end"`
}

// Slot is a (day, period) pair of a structure.
type Slot struct {
	Day models.Day `json:"day"`
	Period
}

// Structure is the fixed set of days and periods of a mode.
type Structure struct {
	Mode    Mode         `json:"mode"`
	Days    []models.Day `json:"days"`
	Periods []Period     `json:"periods"`
}

func period(sh, sm, eh, em int) Period {
	return Period{Start: models.Clock(sh, sm), End: models.Clock(eh, em)}
}

// StructureFor returns a fresh copy of the fixed structure for mode.
func StructureFor(mode Mode) (Structure, error) {
	switch mode {
	case ModeNormal:
		return Structure{
			Mode: ModeNormal,
			Days: []models.Day{
				models.DayMonday, models.DayTuesday, models.DayWednesday, models.DayThursday, models.DayFriday,
			},
			Periods: []Period{
				period(8, 0, 8, 40),
				period(8, 40, 9, 20),
				period(9, 40, 10, 20),
				period(10, 20, 11, 0),
				period(11, 10, 11, 50),
				period(11, 50, 12, 30),
				period(14, 20, 15, 0),
				period(15, 0, 15, 40),
				period(15, 40, 16, 20),
			},
		}, nil
	case ModeRemedial:
		return Structure{
			Mode: ModeRemedial,
			Days: []models.Day{
				models.DayMonday, models.DayTuesday, models.DayWednesday, models.DayThursday, models.DayFriday,
				models.DaySaturday,
			},
			Periods: []Period{
				period(16, 30, 17, 30),
				period(19, 0, 20, 0),
				period(13, 30, 14, 20),
				period(7, 0, 8, 0),
				period(8, 0, 9, 0),
				period(9, 0, 10, 0),
			},
		}, nil
	}
	return Structure{}, fmt.Errorf("unknown timetable mode %q", mode)
}

// Slots returns every day × period pair, days outermost.
func (s Structure) Slots() []Slot {
	slots := make([]Slot, 0, len(s.Days)*len(s.Periods))
	for _, day := range s.Days {
		for _, p := range s.Periods {
			slots = append(slots, Slot{Day: day, Period: p})
		}
	}
	return slots
}

// Contains reports whether (day, start, end) is a slot of the structure. Both ends of the
// period must match so that overlapping start times of different modes stay apart.
func (s Structure) Contains(day models.Day, start, end models.TimeOfDay) bool {
	return s.hasDay(day) && s.PeriodIndex(start, end) >= 0
}

// PeriodIndex returns the position of the period, or -1.
func (s Structure) PeriodIndex(start, end models.TimeOfDay) int {
	for i, p := range s.Periods {
		if p.Start == start && p.End == end {
			return i
		}
	}
	return -1
}

func (s Structure) hasDay(day models.Day) bool {
	for _, d := range s.Days {
		if d == day {
			return true
		}
	}
	return false
}

// StartTimes lists period start times in structure order.
func (s Structure) StartTimes() []models.TimeOfDay {
	out := make([]models.TimeOfDay, len(s.Periods))
	for i, p := range s.Periods {
		out[i] = p.Start
	}
	return out
}

// DayCodes lists the day codes as strings, convenient for SQL array parameters.
func (s Structure) DayCodes() []string {
	out := make([]string, len(s.Days))
	for i, d := range s.Days {
		out[i] = string(d)
	}
	return out
}
