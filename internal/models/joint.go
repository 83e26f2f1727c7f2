package models

import "time"

// JointSubject flags a subject that may be taught to several class groups at once.
type JointSubject struct {
	SubjectID   int64     `db:"subject_id" json:"subject_id"`
	SubjectName string    `db:"subject_name" json:"subject_name"`
	Active      bool      `db:"active" json:"active"`
	UpdatedAt   time.Time `db:"updated_at" json:"updated_at"`
}

// JointClassGroupSet is a named set of class groups permitted to share a joint lesson.
type JointClassGroupSet struct {
	ID            string    `db:"id" json:"id"`
	Name          string    `db:"name" json:"name"`
	Active        bool      `db:"active" json:"active"`
	CreatedAt     time.Time `db:"created_at" json:"created_at"`
	UpdatedAt     time.Time `db:"updated_at" json:"updated_at"`
	ClassGroupIDs []int64   `db:"-" json:"class_group_ids"`
}

// JointSetMember is a row of joint_class_group_set_members.
type JointSetMember struct {
	SetID        string `db:"set_id"`
	ClassGroupID int64  `db:"class_group_id"`
}
