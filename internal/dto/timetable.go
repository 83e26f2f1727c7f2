package dto

import (
	"github.com/noah-isme/sma-timetable-api/internal/models"
	"github.com/noah-isme/sma-timetable-api/internal/timetable"
)

// Builder actions.
const (
	TimetableActionSave  = "save"
	TimetableActionClear = "clear"
)

// TimetableSubmission is one builder form post. Cells maps grid cell keys such as
// "cell_12_Mon_0800_0840_1" to "subjectId-teacherId" values; empty values are ignored.
type TimetableSubmission struct {
	Action        string            `json:"action" form:"action"`
	ClassGroupIDs []int64           `json:"classGroupIds" form:"classes" validate:"required,min=1,dive,gt=0"`
	Cells         map[string]string `json:"cells"`
}

// TimetableSaveResult reports an accepted submission. Cells re-populates the next render.
type TimetableSaveResult struct {
	Mode          timetable.Mode    `json:"mode"`
	Action        string            `json:"action"`
	ClassGroupIDs []int64           `json:"classGroupIds"`
	Cells         map[string]string `json:"cells"`
	Inserted      int               `json:"inserted"`
	Deleted       int               `json:"deleted"`
	Kept          int               `json:"kept"`
	Message       string            `json:"message"`
}

// TimetableRejection is returned alongside a rejected submission so the editor can keep the
// posted values and highlight the failing blocks.
type TimetableRejection struct {
	Cells       map[string]string      `json:"cells"`
	Violations  []timetable.Violation  `json:"violations,omitempty"`
	ParseErrors []timetable.ParseError `json:"parseErrors,omitempty"`
}

// SubjectTeacherOption is a selectable cell value.
type SubjectTeacherOption struct {
	Key   string `json:"key"`
	Label string `json:"label"`
}

// BuilderQuery selects the class groups shown in the builder.
type BuilderQuery struct {
	ClassGroupIDs []int64 `form:"classes" validate:"omitempty,dive,gt=0"`
}

// BuilderView is everything the builder page needs to render one mode.
type BuilderView struct {
	Structure             timetable.Structure    `json:"structure"`
	Times                 []string               `json:"times"`
	ClassGroups           []models.ClassGroup    `json:"classGroups"`
	SelectedClassGroupIDs []int64                `json:"selectedClassGroupIds"`
	Options               []SubjectTeacherOption `json:"options"`
	Cells                 map[string]string      `json:"cells"`
	JointSubjectIDs       []int64                `json:"jointSubjectIds"`
	ClassGroupTags        map[int64]string       `json:"classGroupTags"`
	JointGroups           map[string][]int64     `json:"jointGroups"`
}

// MasterTimetable groups every in-scope entry by class group and slot key.
type MasterTimetable struct {
	Structure timetable.Structure                `json:"structure"`
	Slots     map[string][]models.TimetableEntry `json:"slots"`
}
