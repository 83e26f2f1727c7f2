package timetable

import (
	"github.com/noah-isme/sma-timetable-api/internal/models"
)

const (
	classF2N int64 = 1
	classF2S int64 = 2
	classF3N int64 = 3

	subjectMath    int64 = 10
	subjectPhysics int64 = 11

	teacherT1 int64 = 100
	teacherT2 int64 = 101
)

var (
	monFirst = Slot{Day: models.DayMonday, Period: Period{Start: models.Clock(8, 0), End: models.Clock(8, 40)}}
)

func cellAt(classGroupID int64, slot Slot, sub int, subjectID, teacherID int64) Cell {
	return Cell{
		Key:        CellKey{ClassGroupID: classGroupID, Day: slot.Day, Start: slot.Start, End: slot.End, SubIndex: sub},
		Assignment: Assignment{SubjectID: subjectID, TeacherID: teacherID},
	}
}

func entryAt(id string, slot Slot, subjectID, teacherID int64, links ...models.EntryClassGroup) models.TimetableEntry {
	return models.TimetableEntry{
		ID:          id,
		SubjectID:   subjectID,
		TeacherID:   teacherID,
		Day:         slot.Day,
		StartTime:   slot.Start,
		EndTime:     slot.End,
		ClassGroups: links,
	}
}

func link(classGroupID int64, sub int) models.EntryClassGroup {
	return models.EntryClassGroup{ClassGroupID: classGroupID, SubIndex: sub}
}

func jointMathF2() JointConfig {
	return NewJointConfig(
		[]models.JointSubject{{SubjectID: subjectMath, Active: true}},
		[]models.JointClassGroupSet{{Name: "F2", Active: true, ClassGroupIDs: []int64{classF2N, classF2S}}},
	)
}
