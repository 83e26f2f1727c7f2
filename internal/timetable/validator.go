package timetable

import (
	"sort"

	"github.com/noah-isme/sma-timetable-api/internal/models"
)

// Violation messages shown to timetable editors.
const (
	MessageSlotConflict = "A teacher cannot be assigned different subjects in the same time slot. " +
		"Adjust the timetable so each teacher has only one subject per slot."
	MessageJointSubject = "Cannot assign this teacher to multiple classes at the same time " +
		"unless the subject is configured as a joint subject."
	MessageJointClassGroups = "These classes are not configured as a single joint class group for this " +
		"subject and time. Please configure a JointClassGroupSet or select fewer classes."
)

// ViolationKind classifies a rejected block.
type ViolationKind string

const (
	ViolationSlotConflict     ViolationKind = "SLOT_CONFLICT"
	ViolationJointSubject     ViolationKind = "JOINT_SUBJECT"
	ViolationJointClassGroups ViolationKind = "JOINT_CLASS_GROUPS"
)

// Violation is one constraint failure.
type Violation struct {
	Kind          ViolationKind    `json:"kind"`
	TeacherID     int64            `json:"teacher_id"`
	Day           models.Day       `json:"day"`
	Start         models.TimeOfDay `json:"start"`
	End           models.TimeOfDay `json:"end"`
	SubjectIDs    []int64          `json:"subject_ids"`
	ClassGroupIDs []int64          `json:"class_group_ids,omitempty"`
	Message       string           `json:"message"`
}

// JointConfig is the active joint configuration used by validation.
type JointConfig struct {
	subjects map[int64]struct{}
	tags     map[int64]string
	members  map[string][]int64
}

// NewJointConfig builds the configuration from active records only. Sets are applied in name
// order; a class group listed by several sets takes the tag of the last one.
func NewJointConfig(subjects []models.JointSubject, sets []models.JointClassGroupSet) JointConfig {
	cfg := JointConfig{
		subjects: make(map[int64]struct{}),
		tags:     make(map[int64]string),
		members:  make(map[string][]int64),
	}
	for _, s := range subjects {
		if s.Active {
			cfg.subjects[s.SubjectID] = struct{}{}
		}
	}
	ordered := make([]models.JointClassGroupSet, 0, len(sets))
	for _, set := range sets {
		if set.Active {
			ordered = append(ordered, set)
		}
	}
	sort.Slice(ordered, func(i, j int) bool { return ordered[i].Name < ordered[j].Name })
	for _, set := range ordered {
		for _, id := range set.ClassGroupIDs {
			cfg.tags[id] = set.Name
		}
		if len(set.ClassGroupIDs) >= 2 {
			cfg.members[set.Name] = sortedIDs(set.ClassGroupIDs)
		}
	}
	return cfg
}

// IsJointSubject reports whether subjectID is an active joint subject.
func (c JointConfig) IsJointSubject(subjectID int64) bool {
	_, ok := c.subjects[subjectID]
	return ok
}

// Tag returns the joint set name of a class group.
func (c JointConfig) Tag(classGroupID int64) (string, bool) {
	tag, ok := c.tags[classGroupID]
	return tag, ok
}

// SubjectIDs lists active joint subjects in ascending order.
func (c JointConfig) SubjectIDs() []int64 {
	out := make([]int64, 0, len(c.subjects))
	for id := range c.subjects {
		out = append(out, id)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// ClassGroupTags maps class groups to tags for sets with at least two members.
func (c JointConfig) ClassGroupTags() map[int64]string {
	out := make(map[int64]string)
	for tag, ids := range c.members {
		for _, id := range ids {
			if c.tags[id] == tag {
				out[id] = tag
			}
		}
	}
	return out
}

// GroupMembers maps tags to their members for sets with at least two members.
func (c JointConfig) GroupMembers() map[string][]int64 {
	out := make(map[string][]int64, len(c.members))
	for tag, ids := range c.members {
		out[tag] = append([]int64(nil), ids...)
	}
	return out
}

type teacherSlot struct {
	TeacherID int64
	Day       models.Day
	Start     models.TimeOfDay
	End       models.TimeOfDay
}

func (a teacherSlot) less(b teacherSlot) bool {
	if a.TeacherID != b.TeacherID {
		return a.TeacherID < b.TeacherID
	}
	if a.Day != b.Day {
		return a.Day.Ordinal() < b.Day.Ordinal()
	}
	if a.Start != b.Start {
		return a.Start < b.Start
	}
	return a.End < b.End
}

type block struct {
	slot      teacherSlot
	subjectID int64
}

// Validate checks the submitted cells as one batch. Slot conflicts are reported first; joint
// rules are only evaluated when no teacher holds two subjects in a slot. Violations come back
// in ascending (teacher, day, start, end, subject) order and an empty result means the batch
// is acceptable.
func Validate(cells []Cell, joint JointConfig) []Violation {
	return ValidateAgainst(cells, nil, joint)
}

// ValidateAgainst validates cells together with existing cells of class groups outside the
// edit. Only blocks containing at least one submitted cell can be reported.
func ValidateAgainst(cells, existing []Cell, joint JointConfig) []Violation {
	subjects := make(map[teacherSlot]map[int64]struct{})
	classes := make(map[block]map[int64]struct{})
	submitted := make(map[block]struct{})

	add := func(c Cell, own bool) {
		ts := teacherSlot{TeacherID: c.Assignment.TeacherID, Day: c.Key.Day, Start: c.Key.Start, End: c.Key.End}
		if subjects[ts] == nil {
			subjects[ts] = make(map[int64]struct{})
		}
		subjects[ts][c.Assignment.SubjectID] = struct{}{}

		b := block{slot: ts, subjectID: c.Assignment.SubjectID}
		if classes[b] == nil {
			classes[b] = make(map[int64]struct{})
		}
		classes[b][c.Key.ClassGroupID] = struct{}{}
		if own {
			submitted[b] = struct{}{}
		}
	}
	for _, c := range cells {
		add(c, true)
	}
	for _, c := range existing {
		add(c, false)
	}

	touched := make(map[teacherSlot]struct{}, len(submitted))
	for b := range submitted {
		touched[b.slot] = struct{}{}
	}

	var conflicts []Violation
	for ts, subjectSet := range subjects {
		if len(subjectSet) <= 1 {
			continue
		}
		if _, ok := touched[ts]; !ok {
			continue
		}
		conflicts = append(conflicts, Violation{
			Kind:       ViolationSlotConflict,
			TeacherID:  ts.TeacherID,
			Day:        ts.Day,
			Start:      ts.Start,
			End:        ts.End,
			SubjectIDs: setToSorted(subjectSet),
			Message:    MessageSlotConflict,
		})
	}
	if len(conflicts) > 0 {
		sortViolations(conflicts)
		return conflicts
	}

	var violations []Violation
	for b, classSet := range classes {
		if len(classSet) <= 1 {
			continue
		}
		if _, ok := submitted[b]; !ok {
			continue
		}
		v := Violation{
			TeacherID:     b.slot.TeacherID,
			Day:           b.slot.Day,
			Start:         b.slot.Start,
			End:           b.slot.End,
			SubjectIDs:    []int64{b.subjectID},
			ClassGroupIDs: setToSorted(classSet),
		}
		if !joint.IsJointSubject(b.subjectID) {
			v.Kind = ViolationJointSubject
			v.Message = MessageJointSubject
			violations = append(violations, v)
			continue
		}
		if !joint.sharesTag(v.ClassGroupIDs) {
			v.Kind = ViolationJointClassGroups
			v.Message = MessageJointClassGroups
			violations = append(violations, v)
		}
	}
	sortViolations(violations)
	return violations
}

// sharesTag is true when every class group has a tag and all tags are equal.
func (c JointConfig) sharesTag(classGroupIDs []int64) bool {
	var first string
	for i, id := range classGroupIDs {
		tag, ok := c.tags[id]
		if !ok {
			return false
		}
		if i == 0 {
			first = tag
			continue
		}
		if tag != first {
			return false
		}
	}
	return true
}

func sortViolations(vs []Violation) {
	sort.SliceStable(vs, func(i, j int) bool {
		a := teacherSlot{TeacherID: vs[i].TeacherID, Day: vs[i].Day, Start: vs[i].Start, End: vs[i].End}
		b := teacherSlot{TeacherID: vs[j].TeacherID, Day: vs[j].Day, Start: vs[j].Start, End: vs[j].End}
		if a != b {
			return a.less(b)
		}
		return vs[i].SubjectIDs[0] < vs[j].SubjectIDs[0]
	})
}

func setToSorted(set map[int64]struct{}) []int64 {
	out := make([]int64, 0, len(set))
	for id := range set {
		out = append(out, id)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

func sortedIDs(ids []int64) []int64 {
	out := append([]int64(nil), ids...)
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}
