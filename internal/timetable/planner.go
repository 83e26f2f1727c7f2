package timetable

import (
	"sort"

	"github.com/noah-isme/sma-timetable-api/internal/models"
)

// LessonKey identifies a logical lesson: one teacher, one subject, one period of a day.
type LessonKey struct {
	TeacherID int64
	SubjectID int64
	Day       models.Day
	Start     models.TimeOfDay
	End       models.TimeOfDay
}

// KeyOf returns the logical lesson key of an entry.
func KeyOf(e models.TimetableEntry) LessonKey {
	return LessonKey{TeacherID: e.TeacherID, SubjectID: e.SubjectID, Day: e.Day, Start: e.StartTime, End: e.EndTime}
}

func (k LessonKey) less(o LessonKey) bool {
	a := teacherSlot{TeacherID: k.TeacherID, Day: k.Day, Start: k.Start, End: k.End}
	b := teacherSlot{TeacherID: o.TeacherID, Day: o.Day, Start: o.Start, End: o.End}
	if a != b {
		return a.less(b)
	}
	return k.SubjectID < o.SubjectID
}

// Lesson is a logical lesson with the class groups attending it.
type Lesson struct {
	Key         LessonKey
	ClassGroups []models.EntryClassGroup
}

// Entry materialises the lesson as an unsaved timetable entry.
func (l Lesson) Entry() models.TimetableEntry {
	return models.TimetableEntry{
		SubjectID:   l.Key.SubjectID,
		TeacherID:   l.Key.TeacherID,
		Day:         l.Key.Day,
		StartTime:   l.Key.Start,
		EndTime:     l.Key.End,
		ClassGroups: append([]models.EntryClassGroup(nil), l.ClassGroups...),
	}
}

// BuildLessons groups validated cells into one lesson per key. A class group repeating the
// same assignment in one slot is linked once, at its lowest sub-index.
func BuildLessons(cells []Cell) []Lesson {
	links := make(map[LessonKey]map[int64]int)
	for _, c := range cells {
		key := LessonKey{
			TeacherID: c.Assignment.TeacherID,
			SubjectID: c.Assignment.SubjectID,
			Day:       c.Key.Day,
			Start:     c.Key.Start,
			End:       c.Key.End,
		}
		if links[key] == nil {
			links[key] = make(map[int64]int)
		}
		if sub, ok := links[key][c.Key.ClassGroupID]; !ok || c.Key.SubIndex < sub {
			links[key][c.Key.ClassGroupID] = c.Key.SubIndex
		}
	}

	lessons := make([]Lesson, 0, len(links))
	for key, byGroup := range links {
		lessons = append(lessons, Lesson{Key: key, ClassGroups: linksFromMap(byGroup)})
	}
	sortLessons(lessons)
	return lessons
}

// Plan is the set of row changes that replaces the edited class groups' timetable.
type Plan struct {
	Delete []models.TimetableEntry
	Insert []models.TimetableEntry
	Kept   []models.TimetableEntry
}

// Empty reports whether the plan changes nothing.
func (p Plan) Empty() bool {
	return len(p.Delete) == 0 && len(p.Insert) == 0
}

// Result lists the entries that exist for the edited scope once the plan is applied.
func (p Plan) Result() []models.TimetableEntry {
	out := make([]models.TimetableEntry, 0, len(p.Kept)+len(p.Insert))
	out = append(out, p.Kept...)
	out = append(out, p.Insert...)
	return out
}

// PlanReplace computes how to make the in-scope timetable of the edited class groups equal to
// lessons. Current entries within the structure that touch an edited class group are
// superseded; links of other class groups on those entries survive and are merged into the
// lesson with the same key, or re-created on their own. Superseded entries already equal to a
// desired lesson are kept untouched, so replaying a submission yields an empty plan.
// Inserted entries carry no ID.
func PlanReplace(current []models.TimetableEntry, structure Structure, edited []int64, lessons []Lesson) Plan {
	editedSet := make(map[int64]struct{}, len(edited))
	for _, id := range edited {
		editedSet[id] = struct{}{}
	}

	desired := make(map[LessonKey]map[int64]int, len(lessons))
	for _, l := range lessons {
		byGroup := make(map[int64]int, len(l.ClassGroups))
		for _, link := range l.ClassGroups {
			byGroup[link.ClassGroupID] = link.SubIndex
		}
		desired[l.Key] = byGroup
	}

	var superseded []models.TimetableEntry
	for _, entry := range current {
		if !structure.Contains(entry.Day, entry.StartTime, entry.EndTime) || !touches(entry, editedSet) {
			continue
		}
		superseded = append(superseded, entry)
		for _, link := range entry.ClassGroups {
			if _, isEdited := editedSet[link.ClassGroupID]; isEdited {
				continue
			}
			key := KeyOf(entry)
			if desired[key] == nil {
				desired[key] = make(map[int64]int)
			}
			if sub, ok := desired[key][link.ClassGroupID]; !ok || link.SubIndex < sub {
				desired[key][link.ClassGroupID] = link.SubIndex
			}
		}
	}
	sort.SliceStable(superseded, func(i, j int) bool { return superseded[i].ID < superseded[j].ID })

	var plan Plan
	for _, entry := range superseded {
		key := KeyOf(entry)
		want, ok := desired[key]
		if ok && sameLinks(entry.ClassGroups, want) {
			plan.Kept = append(plan.Kept, entry)
			delete(desired, key)
			continue
		}
		plan.Delete = append(plan.Delete, entry)
	}

	inserts := make([]Lesson, 0, len(desired))
	for key, byGroup := range desired {
		if len(byGroup) == 0 {
			continue
		}
		inserts = append(inserts, Lesson{Key: key, ClassGroups: linksFromMap(byGroup)})
	}
	sortLessons(inserts)
	for _, l := range inserts {
		plan.Insert = append(plan.Insert, l.Entry())
	}
	return plan
}

// PlanClear supersedes every in-scope entry of the edited class groups, preserving links of
// other class groups.
func PlanClear(current []models.TimetableEntry, structure Structure, edited []int64) Plan {
	return PlanReplace(current, structure, edited, nil)
}

func touches(entry models.TimetableEntry, set map[int64]struct{}) bool {
	for _, link := range entry.ClassGroups {
		if _, ok := set[link.ClassGroupID]; ok {
			return true
		}
	}
	return false
}

func sameLinks(links []models.EntryClassGroup, want map[int64]int) bool {
	if len(links) != len(want) {
		return false
	}
	for _, link := range links {
		sub, ok := want[link.ClassGroupID]
		if !ok || sub != link.SubIndex {
			return false
		}
	}
	return true
}

func linksFromMap(byGroup map[int64]int) []models.EntryClassGroup {
	out := make([]models.EntryClassGroup, 0, len(byGroup))
	for id, sub := range byGroup {
		out = append(out, models.EntryClassGroup{ClassGroupID: id, SubIndex: sub})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ClassGroupID < out[j].ClassGroupID })
	return out
}

func sortLessons(lessons []Lesson) {
	sort.Slice(lessons, func(i, j int) bool { return lessons[i].Key.less(lessons[j].Key) })
}
