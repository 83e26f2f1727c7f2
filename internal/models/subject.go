package models

// Subject represents an academic subject.
type Subject struct {
	ID   int64  `db:"id" json:"id"`
	Name string `db:"name" json:"name"`
}

// SubjectTeacher is a selectable subject and teacher pairing offered by the builder.
type SubjectTeacher struct {
	SubjectID   int64  `db:"subject_id" json:"subject_id"`
	SubjectName string `db:"subject_name" json:"subject_name"`
	TeacherID   int64  `db:"teacher_id" json:"teacher_id"`
	TeacherName string `db:"teacher_name" json:"teacher_name"`
}
