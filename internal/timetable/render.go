package timetable

import (
	"sort"

	"github.com/noah-isme/sma-timetable-api/internal/models"
)

// RenderGrid places the in-scope entries of the selected class groups onto the builder grid.
// A link is drawn at its stored sub-index when that position is free, otherwise at the first
// free position; links that find no free position are dropped.
func RenderGrid(entries []models.TimetableEntry, structure Structure, selected []int64) Grid {
	selectedSet := make(map[int64]struct{}, len(selected))
	for _, id := range selected {
		selectedSet[id] = struct{}{}
	}

	type placement struct {
		slot       SlotKey
		sub        int
		assignment Assignment
		order      LessonKey
	}
	var pending []placement
	for _, entry := range entries {
		if !structure.Contains(entry.Day, entry.StartTime, entry.EndTime) {
			continue
		}
		for _, link := range entry.ClassGroups {
			if _, ok := selectedSet[link.ClassGroupID]; !ok {
				continue
			}
			pending = append(pending, placement{
				slot:       SlotKey{ClassGroupID: link.ClassGroupID, Day: entry.Day, Start: entry.StartTime, End: entry.EndTime},
				sub:        link.SubIndex,
				assignment: Assignment{SubjectID: entry.SubjectID, TeacherID: entry.TeacherID},
				order:      KeyOf(entry),
			})
		}
	}
	sort.SliceStable(pending, func(i, j int) bool {
		if pending[i].sub != pending[j].sub {
			return pending[i].sub < pending[j].sub
		}
		return pending[i].order.less(pending[j].order)
	})

	grid := make(Grid, len(pending))
	var overflow []placement
	for _, p := range pending {
		key := CellKey{ClassGroupID: p.slot.ClassGroupID, Day: p.slot.Day, Start: p.slot.Start, End: p.slot.End, SubIndex: p.sub}
		if p.sub < 1 || p.sub > MaxSubIndex {
			overflow = append(overflow, p)
			continue
		}
		if _, taken := grid[key]; taken {
			overflow = append(overflow, p)
			continue
		}
		grid[key] = p.assignment
	}
	for _, p := range overflow {
		for sub := 1; sub <= MaxSubIndex; sub++ {
			key := CellKey{ClassGroupID: p.slot.ClassGroupID, Day: p.slot.Day, Start: p.slot.Start, End: p.slot.End, SubIndex: sub}
			if _, taken := grid[key]; !taken {
				grid[key] = p.assignment
				break
			}
		}
	}
	return grid
}

// MasterGrid groups in-scope entries by class group slot for the read-only master view.
// Entries within a slot are ordered by lesson key.
func MasterGrid(entries []models.TimetableEntry, structure Structure) map[SlotKey][]models.TimetableEntry {
	ordered := append([]models.TimetableEntry(nil), entries...)
	sort.SliceStable(ordered, func(i, j int) bool { return KeyOf(ordered[i]).less(KeyOf(ordered[j])) })

	grid := make(map[SlotKey][]models.TimetableEntry)
	for _, entry := range ordered {
		if !structure.Contains(entry.Day, entry.StartTime, entry.EndTime) {
			continue
		}
		for _, link := range entry.ClassGroups {
			key := SlotKey{ClassGroupID: link.ClassGroupID, Day: entry.Day, Start: entry.StartTime, End: entry.EndTime}
			grid[key] = append(grid[key], entry)
		}
	}
	return grid
}
