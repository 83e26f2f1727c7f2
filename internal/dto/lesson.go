package dto

import (
	"time"

	"github.com/noah-isme/sma-timetable-api/internal/models"
	"github.com/noah-isme/sma-timetable-api/internal/timetable"
)

// CreateWeekRequest registers a teaching week.
type CreateWeekRequest struct {
	Number    int       `json:"number" validate:"required,min=1"`
	StartDate time.Time `json:"startDate" validate:"required"`
	EndDate   time.Time `json:"endDate" validate:"required"`
}

// GenerateLessonsRequest creates lesson records for a week from the timetable of a mode.
type GenerateLessonsRequest struct {
	WeekID string `json:"weekId" validate:"required,uuid"`
	Mode   string `json:"mode" validate:"required,oneof=normal remedial"`
}

// GenerateLessonsResponse reports how many records were created.
type GenerateLessonsResponse struct {
	WeekID  string `json:"weekId"`
	Mode    string `json:"mode"`
	Created int    `json:"created"`
}

// UpdateLessonStatusRequest marks attendance of a lesson record.
type UpdateLessonStatusRequest struct {
	Status string `json:"status" validate:"required"`
}

// UpdatePaymentsRequest bulk updates payment status.
type UpdatePaymentsRequest struct {
	RecordIDs     []string `json:"recordIds" validate:"required,min=1,dive,uuid"`
	PaymentStatus string   `json:"paymentStatus" validate:"required,oneof=PAID UNPAID"`
}

// UpdatePaymentsResponse reports the number of updated records.
type UpdatePaymentsResponse struct {
	Updated int64 `json:"updated"`
}

// LessonStatsQuery scopes lesson statistics.
type LessonStatsQuery struct {
	Mode      string `form:"mode" validate:"omitempty,oneof=normal remedial"`
	WeekID    string `form:"weekId" validate:"omitempty,uuid"`
	TeacherID *int64 `form:"teacherId" validate:"omitempty,gt=0"`
}

// LessonStatsResponse carries the collapsed lessons and their summary.
type LessonStatsResponse struct {
	Mode    timetable.Mode         `json:"mode"`
	WeekID  string                 `json:"weekId,omitempty"`
	Stats   models.LessonStats     `json:"stats"`
	Lessons []models.LogicalLesson `json:"lessons"`
}

// TeacherTimetableQuery selects the mode and optional week of a teacher's grid.
type TeacherTimetableQuery struct {
	Mode   string `form:"mode" validate:"omitempty,oneof=normal remedial"`
	WeekID string `form:"weekId" validate:"omitempty,uuid"`
}

// TeacherTimetableResponse is a teacher's own grid.
type TeacherTimetableResponse struct {
	Teacher   models.Teacher          `json:"teacher"`
	Structure timetable.Structure     `json:"structure"`
	WeekID    string                  `json:"weekId,omitempty"`
	Cells     []timetable.TeacherCell `json:"cells"`
}
