package models

import (
	"database/sql/driver"
	"fmt"
	"strings"
	"time"
)

// AttendanceStatus is the attendance outcome of a lesson. Values are ordered so that a
// greater value wins when rows of one logical lesson are merged.
type AttendanceStatus uint8

const (
	AttendanceUnknown AttendanceStatus = iota
	AttendancePending
	AttendanceNotAttended
	AttendanceAttended
)

var attendanceNames = map[AttendanceStatus]string{
	AttendanceUnknown:     "UNKNOWN",
	AttendancePending:     "PENDING",
	AttendanceNotAttended: "NOT_ATTENDED",
	AttendanceAttended:    "ATTENDED",
}

// ParseAttendanceStatus accepts the canonical names as well as labels like "Not Attended".
func ParseAttendanceStatus(value string) (AttendanceStatus, error) {
	normalized := strings.ToUpper(strings.TrimSpace(value))
	normalized = strings.ReplaceAll(normalized, " ", "_")
	switch normalized {
	case "PENDING":
		return AttendancePending, nil
	case "NOT_ATTENDED":
		return AttendanceNotAttended, nil
	case "ATTENDED":
		return AttendanceAttended, nil
	}
	return AttendanceUnknown, fmt.Errorf("invalid attendance status %q", value)
}

func (s AttendanceStatus) String() string {
	if name, ok := attendanceNames[s]; ok {
		return name
	}
	return attendanceNames[AttendanceUnknown]
}

// MarshalText implements encoding.TextMarshaler.
func (s AttendanceStatus) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (s *AttendanceStatus) UnmarshalText(text []byte) error {
	parsed, err := ParseAttendanceStatus(string(text))
	if err != nil {
		return err
	}
	*s = parsed
	return nil
}

// Scan implements sql.Scanner. Unrecognised stored values scan as AttendanceUnknown.
func (s *AttendanceStatus) Scan(src interface{}) error {
	switch v := src.(type) {
	case nil:
		*s = AttendanceUnknown
	case []byte:
		*s, _ = ParseAttendanceStatus(string(v))
	case string:
		*s, _ = ParseAttendanceStatus(v)
	default:
		return fmt.Errorf("scan attendance status: unsupported type %T", src)
	}
	return nil
}

// Value implements driver.Valuer.
func (s AttendanceStatus) Value() (driver.Value, error) {
	if s == AttendanceUnknown {
		return nil, nil
	}
	return s.String(), nil
}

// PaymentStatus is the payment state of a lesson, ordered like AttendanceStatus.
type PaymentStatus uint8

const (
	PaymentNone PaymentStatus = iota
	PaymentUnpaid
	PaymentPaid
)

// ParsePaymentStatus parses "PAID" or "UNPAID" case-insensitively.
func ParsePaymentStatus(value string) (PaymentStatus, error) {
	switch strings.ToUpper(strings.TrimSpace(value)) {
	case "PAID":
		return PaymentPaid, nil
	case "UNPAID":
		return PaymentUnpaid, nil
	}
	return PaymentNone, fmt.Errorf("invalid payment status %q", value)
}

func (p PaymentStatus) String() string {
	switch p {
	case PaymentPaid:
		return "PAID"
	case PaymentUnpaid:
		return "UNPAID"
	default:
		return "NONE"
	}
}

// MarshalText implements encoding.TextMarshaler.
func (p PaymentStatus) MarshalText() ([]byte, error) {
	return []byte(p.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (p *PaymentStatus) UnmarshalText(text []byte) error {
	parsed, err := ParsePaymentStatus(string(text))
	if err != nil {
		return err
	}
	*p = parsed
	return nil
}

// Scan implements sql.Scanner. NULL and unrecognised values scan as PaymentNone.
func (p *PaymentStatus) Scan(src interface{}) error {
	switch v := src.(type) {
	case nil:
		*p = PaymentNone
	case []byte:
		*p, _ = ParsePaymentStatus(string(v))
	case string:
		*p, _ = ParsePaymentStatus(v)
	default:
		return fmt.Errorf("scan payment status: unsupported type %T", src)
	}
	return nil
}

// Value implements driver.Valuer.
func (p PaymentStatus) Value() (driver.Value, error) {
	if p == PaymentNone {
		return nil, nil
	}
	return p.String(), nil
}

// Week is a numbered teaching week.
type Week struct {
	ID        string    `db:"id" json:"id"`
	Number    int       `db:"number" json:"number"`
	StartDate time.Time `db:"start_date" json:"start_date"`
	EndDate   time.Time `db:"end_date" json:"end_date"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

// LessonRecord tracks attendance and payment for one timetable entry in one week.
type LessonRecord struct {
	ID            string           `db:"id" json:"id"`
	WeekID        string           `db:"week_id" json:"week_id"`
	EntryID       string           `db:"entry_id" json:"entry_id"`
	TeacherID     int64            `db:"teacher_id" json:"teacher_id"`
	Status        AttendanceStatus `db:"status" json:"status"`
	PaymentStatus PaymentStatus    `db:"payment_status" json:"payment_status"`
	Amount        float64          `db:"amount" json:"amount"`
	MarkedBy      *string          `db:"marked_by" json:"marked_by,omitempty"`
	MarkedAt      *time.Time       `db:"marked_at" json:"marked_at,omitempty"`
	CreatedAt     time.Time        `db:"created_at" json:"created_at"`
	UpdatedAt     time.Time        `db:"updated_at" json:"updated_at"`
}

// LessonRow is a lesson record joined with its timetable entry, the input of lesson statistics.
type LessonRow struct {
	RecordID      string           `db:"record_id" json:"record_id"`
	WeekID        string           `db:"week_id" json:"week_id"`
	EntryID       string           `db:"entry_id" json:"entry_id"`
	TeacherID     int64            `db:"teacher_id" json:"teacher_id"`
	TeacherName   string           `db:"teacher_name" json:"teacher_name"`
	SubjectID     int64            `db:"subject_id" json:"subject_id"`
	Day           Day              `db:"day" json:"day"`
	StartTime     TimeOfDay        `db:"start_time" json:"start_time"`
	EndTime       TimeOfDay        `db:"end_time" json:"end_time"`
	Status        AttendanceStatus `db:"status" json:"status"`
	PaymentStatus PaymentStatus    `db:"payment_status" json:"payment_status"`
	Amount        float64          `db:"amount" json:"amount"`
}

// LessonRowFilter narrows the rows used for statistics.
type LessonRowFilter struct {
	WeekID    string
	TeacherID *int64
}

// LogicalLesson is the collapsed view of every row sharing (week, teacher, day, start, end, subject).
type LogicalLesson struct {
	WeekID        string           `json:"week_id"`
	TeacherID     int64            `json:"teacher_id"`
	TeacherName   string           `json:"teacher_name"`
	SubjectID     int64            `json:"subject_id"`
	Day           Day              `json:"day"`
	StartTime     TimeOfDay        `json:"start_time"`
	EndTime       TimeOfDay        `json:"end_time"`
	Status        AttendanceStatus `json:"status"`
	PaymentStatus PaymentStatus    `json:"payment_status"`
	PaidAmount    float64          `json:"paid_amount"`
	UnpaidAmount  float64          `json:"unpaid_amount"`
	Rows          int              `json:"rows"`
}

// LessonCounters aggregates logical lessons.
type LessonCounters struct {
	Total          int     `json:"total"`
	Attended       int     `json:"attended"`
	NotAttended    int     `json:"not_attended"`
	Pending        int     `json:"pending"`
	Paid           int     `json:"paid"`
	Unpaid         int     `json:"unpaid"`
	PaidAmount     float64 `json:"paid_amount"`
	UnpaidAmount   float64 `json:"unpaid_amount"`
	AttendedPct    float64 `json:"attended_pct"`
	NotAttendedPct float64 `json:"not_attended_pct"`
	PendingPct     float64 `json:"pending_pct"`
}

// TeacherLessonStats is the per-teacher breakdown of LessonStats.
type TeacherLessonStats struct {
	TeacherID   int64  `json:"teacher_id"`
	TeacherName string `json:"teacher_name"`
	LessonCounters
}

// LessonStats summarises logical lessons overall and per teacher.
type LessonStats struct {
	LessonCounters
	PerTeacher []TeacherLessonStats `json:"per_teacher"`
}
