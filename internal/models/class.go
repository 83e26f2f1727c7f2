package models

// ClassGroup is a cohort of students that shares a timetable row, e.g. "F2 North".
type ClassGroup struct {
	ID             int64  `db:"id" json:"id"`
	Name           string `db:"name" json:"name"`
	ClassTeacherID *int64 `db:"class_teacher_id" json:"class_teacher_id,omitempty"`
}
