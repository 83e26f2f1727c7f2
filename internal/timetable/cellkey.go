package timetable

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/noah-isme/sma-timetable-api/internal/models"
)

// MaxSubIndex is the number of parallel positions a grid cell offers.
const MaxSubIndex = 3

const cellPrefix = "cell_"

// CellKey addresses one position of the builder grid.
type CellKey struct {
	ClassGroupID int64
	Day          models.Day
	Start        models.TimeOfDay
	End          models.TimeOfDay
	SubIndex     int
}

// String encodes the key as cell_{class}_{day}_{HHMM}_{HHMM}_{sub}.
func (k CellKey) String() string {
	return fmt.Sprintf("%s%s_%d", cellPrefix, k.Slot().String(), k.SubIndex)
}

// Slot drops the sub-index.
func (k CellKey) Slot() SlotKey {
	return SlotKey{ClassGroupID: k.ClassGroupID, Day: k.Day, Start: k.Start, End: k.End}
}

// ParseCellKey decodes a key produced by CellKey.String.
func ParseCellKey(raw string) (CellKey, error) {
	if !strings.HasPrefix(raw, cellPrefix) {
		return CellKey{}, fmt.Errorf("cell key %q: missing %q prefix", raw, cellPrefix)
	}
	parts := strings.Split(strings.TrimPrefix(raw, cellPrefix), "_")
	if len(parts) != 5 {
		return CellKey{}, fmt.Errorf("cell key %q: expected 5 segments, got %d", raw, len(parts))
	}
	classGroupID, err := strconv.ParseInt(parts[0], 10, 64)
	if err != nil || classGroupID <= 0 {
		return CellKey{}, fmt.Errorf("cell key %q: invalid class group", raw)
	}
	day, err := models.ParseDay(parts[1])
	if err != nil {
		return CellKey{}, fmt.Errorf("cell key %q: %w", raw, err)
	}
	start, err := models.ParseHHMM(parts[2])
	if err != nil {
		return CellKey{}, fmt.Errorf("cell key %q: %w", raw, err)
	}
	end, err := models.ParseHHMM(parts[3])
	if err != nil {
		return CellKey{}, fmt.Errorf("cell key %q: %w", raw, err)
	}
	sub, err := strconv.Atoi(parts[4])
	if err != nil || sub < 1 || sub > MaxSubIndex {
		return CellKey{}, fmt.Errorf("cell key %q: sub-index must be 1..%d", raw, MaxSubIndex)
	}
	return CellKey{ClassGroupID: classGroupID, Day: day, Start: start, End: end, SubIndex: sub}, nil
}

// SlotKey is a class group in one slot, the grouping key of the master grid.
type SlotKey struct {
	ClassGroupID int64
	Day          models.Day
	Start        models.TimeOfDay
	End          models.TimeOfDay
}

func (k SlotKey) String() string {
	return fmt.Sprintf("%d_%s_%s_%s", k.ClassGroupID, k.Day, k.Start.HHMM(), k.End.HHMM())
}

// Assignment is a subject taught by a teacher, encoded as "{subject_id}-{teacher_id}".
type Assignment struct {
	SubjectID int64 `json:"subject_id"`
	TeacherID int64 `json:"teacher_id"`
}

func (a Assignment) String() string {
	return fmt.Sprintf("%d-%d", a.SubjectID, a.TeacherID)
}

// ParseAssignment decodes a cell value.
func ParseAssignment(raw string) (Assignment, error) {
	subjectPart, teacherPart, ok := strings.Cut(strings.TrimSpace(raw), "-")
	if !ok {
		return Assignment{}, fmt.Errorf("assignment %q: expected subject-teacher", raw)
	}
	subjectID, err := strconv.ParseInt(subjectPart, 10, 64)
	if err != nil || subjectID <= 0 {
		return Assignment{}, fmt.Errorf("assignment %q: invalid subject id", raw)
	}
	teacherID, err := strconv.ParseInt(teacherPart, 10, 64)
	if err != nil || teacherID <= 0 {
		return Assignment{}, fmt.Errorf("assignment %q: invalid teacher id", raw)
	}
	return Assignment{SubjectID: subjectID, TeacherID: teacherID}, nil
}

// Cell is a parsed, non-empty grid position.
type Cell struct {
	Key        CellKey
	Assignment Assignment
}

// Grid maps grid positions to their assignment.
type Grid map[CellKey]Assignment

// Values encodes the grid in its wire form.
func (g Grid) Values() map[string]string {
	out := make(map[string]string, len(g))
	for key, a := range g {
		out[key.String()] = a.String()
	}
	return out
}

// GridFromCells builds a grid from parsed cells.
func GridFromCells(cells []Cell) Grid {
	grid := make(Grid, len(cells))
	for _, c := range cells {
		grid[c.Key] = c.Assignment
	}
	return grid
}
