package timetable

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// ParseError describes one rejected grid value.
type ParseError struct {
	Field  string `json:"field"`
	Value  string `json:"value"`
	Reason string `json:"reason"`
}

func (e ParseError) Error() string {
	return fmt.Sprintf("%s=%q: %s", e.Field, e.Value, e.Reason)
}

// ParseGrid reads the submitted values for the selected class groups across every slot of
// the structure. Empty values are skipped. Malformed keys of selected class groups and
// malformed values are collected as ParseErrors while scanning continues; the caller must
// not persist anything when errors are returned. Keys of unselected class groups or
// outside the structure are ignored.
func ParseGrid(structure Structure, classGroupIDs []int64, values map[string]string) ([]Cell, []ParseError) {
	var parseErrs []ParseError

	selected := uniqueIDs(classGroupIDs)
	selectedSet := make(map[int64]struct{}, len(selected))
	for _, id := range selected {
		selectedSet[id] = struct{}{}
	}

	normalized := make(map[CellKey]string, len(values))
	fields := make([]string, 0, len(values))
	for field := range values {
		fields = append(fields, field)
	}
	sort.Strings(fields)
	for _, field := range fields {
		value := strings.TrimSpace(values[field])
		if value == "" {
			continue
		}
		key, err := ParseCellKey(field)
		if err != nil {
			if _, ok := selectedSet[keyClassGroup(field)]; !ok {
				continue
			}
			parseErrs = append(parseErrs, ParseError{Field: field, Value: value, Reason: err.Error()})
			continue
		}
		normalized[key] = value
	}

	var cells []Cell
	for _, classGroupID := range selected {
		for _, slot := range structure.Slots() {
			for sub := 1; sub <= MaxSubIndex; sub++ {
				key := CellKey{
					ClassGroupID: classGroupID,
					Day:          slot.Day,
					Start:        slot.Start,
					End:          slot.End,
					SubIndex:     sub,
				}
				value, ok := normalized[key]
				if !ok {
					continue
				}
				assignment, err := ParseAssignment(value)
				if err != nil {
					parseErrs = append(parseErrs, ParseError{Field: key.String(), Value: value, Reason: err.Error()})
					continue
				}
				cells = append(cells, Cell{Key: key, Assignment: assignment})
			}
		}
	}
	return cells, parseErrs
}

// keyClassGroup extracts the class group segment of a cell key, or 0 when it has none.
func keyClassGroup(raw string) int64 {
	if !strings.HasPrefix(raw, cellPrefix) {
		return 0
	}
	head, _, _ := strings.Cut(strings.TrimPrefix(raw, cellPrefix), "_")
	id, err := strconv.ParseInt(head, 10, 64)
	if err != nil {
		return 0
	}
	return id
}

// uniqueIDs drops duplicates and non-positive ids, keeping first-seen order.
func uniqueIDs(ids []int64) []int64 {
	seen := make(map[int64]struct{}, len(ids))
	out := make([]int64, 0, len(ids))
	for _, id := range ids {
		if id <= 0 {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
