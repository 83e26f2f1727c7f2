package timetable

import (
	"github.com/noah-isme/sma-timetable-api/internal/models"
)

// CellState is the display state of a cell of a teacher's own timetable.
type CellState string

const (
	CellEmpty       CellState = "EMPTY"
	CellScheduled   CellState = "SCHEDULED"
	CellPending     CellState = "PENDING"
	CellNotAttended CellState = "NOT_ATTENDED"
	CellAttended    CellState = "ATTENDED"
)

// TeacherCell is one slot of a teacher's grid.
type TeacherCell struct {
	Slot
	State   CellState               `json:"state"`
	Entries []models.TimetableEntry `json:"entries"`
}

// TeacherGrid lays out a teacher's entries over the structure. Without a week every occupied
// cell is SCHEDULED; with a week the cell shows the best status among its lessons, and
// lessons without records show as PENDING.
func TeacherGrid(structure Structure, entries []models.TimetableEntry, statuses map[LessonKey]models.AttendanceStatus, withWeek bool) []TeacherCell {
	bySlot := make(map[Slot][]models.TimetableEntry)
	for _, entry := range entries {
		if !structure.Contains(entry.Day, entry.StartTime, entry.EndTime) {
			continue
		}
		slot := Slot{Day: entry.Day, Period: Period{Start: entry.StartTime, End: entry.EndTime}}
		bySlot[slot] = append(bySlot[slot], entry)
	}

	slots := structure.Slots()
	cells := make([]TeacherCell, 0, len(slots))
	for _, slot := range slots {
		cell := TeacherCell{Slot: slot, State: CellEmpty, Entries: bySlot[slot]}
		if len(cell.Entries) > 0 {
			cell.State = CellScheduled
			if withWeek {
				best := models.AttendanceUnknown
				for _, entry := range cell.Entries {
					if s := statuses[KeyOf(entry)]; s > best {
						best = s
					}
				}
				cell.State = stateFor(best)
			}
		}
		if cell.Entries == nil {
			cell.Entries = []models.TimetableEntry{}
		}
		cells = append(cells, cell)
	}
	return cells
}

// MergeStatuses collapses lesson rows to the best attendance status per logical lesson.
func MergeStatuses(rows []models.LessonRow) map[LessonKey]models.AttendanceStatus {
	out := make(map[LessonKey]models.AttendanceStatus, len(rows))
	for _, row := range rows {
		key := LessonKey{TeacherID: row.TeacherID, SubjectID: row.SubjectID, Day: row.Day, Start: row.StartTime, End: row.EndTime}
		if row.Status > out[key] {
			out[key] = row.Status
		}
	}
	return out
}

func stateFor(status models.AttendanceStatus) CellState {
	switch status {
	case models.AttendanceAttended:
		return CellAttended
	case models.AttendanceNotAttended:
		return CellNotAttended
	default:
		return CellPending
	}
}
