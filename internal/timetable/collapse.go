package timetable

import (
	"math"
	"sort"

	"github.com/noah-isme/sma-timetable-api/internal/models"
)

type logicalKey struct {
	WeekID string
	Lesson LessonKey
}

// CollapseLessons merges lesson rows of the same week and logical lesson. The highest
// attendance and payment status win; paid and unpaid amounts are summed per row.
func CollapseLessons(rows []models.LessonRow) []models.LogicalLesson {
	index := make(map[logicalKey]int)
	var out []models.LogicalLesson
	keys := make([]logicalKey, 0)

	for _, row := range rows {
		key := logicalKey{
			WeekID: row.WeekID,
			Lesson: LessonKey{TeacherID: row.TeacherID, SubjectID: row.SubjectID, Day: row.Day, Start: row.StartTime, End: row.EndTime},
		}
		pos, ok := index[key]
		if !ok {
			pos = len(out)
			index[key] = pos
			keys = append(keys, key)
			out = append(out, models.LogicalLesson{
				WeekID:      row.WeekID,
				TeacherID:   row.TeacherID,
				TeacherName: row.TeacherName,
				SubjectID:   row.SubjectID,
				Day:         row.Day,
				StartTime:   row.StartTime,
				EndTime:     row.EndTime,
			})
		}
		agg := &out[pos]
		agg.Rows++
		if row.Status > agg.Status {
			agg.Status = row.Status
		}
		if row.PaymentStatus > agg.PaymentStatus {
			agg.PaymentStatus = row.PaymentStatus
		}
		switch row.PaymentStatus {
		case models.PaymentPaid:
			agg.PaidAmount += row.Amount
		case models.PaymentUnpaid:
			agg.UnpaidAmount += row.Amount
		}
	}

	order := make([]int, len(out))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(i, j int) bool {
		a, b := keys[order[i]], keys[order[j]]
		if a.WeekID != b.WeekID {
			return a.WeekID < b.WeekID
		}
		return a.Lesson.less(b.Lesson)
	})
	sorted := make([]models.LogicalLesson, len(out))
	for i, pos := range order {
		sorted[i] = out[pos]
	}
	return sorted
}

// SummarizeLessons counts logical lessons overall and per teacher. Lessons without a definite
// attendance outcome count as pending.
func SummarizeLessons(lessons []models.LogicalLesson) models.LessonStats {
	var stats models.LessonStats
	perTeacher := make(map[int64]*models.TeacherLessonStats)

	for _, lesson := range lessons {
		count(&stats.LessonCounters, lesson)

		t, ok := perTeacher[lesson.TeacherID]
		if !ok {
			t = &models.TeacherLessonStats{TeacherID: lesson.TeacherID, TeacherName: lesson.TeacherName}
			perTeacher[lesson.TeacherID] = t
		}
		count(&t.LessonCounters, lesson)
	}

	finish(&stats.LessonCounters)
	stats.PerTeacher = make([]models.TeacherLessonStats, 0, len(perTeacher))
	for _, t := range perTeacher {
		finish(&t.LessonCounters)
		stats.PerTeacher = append(stats.PerTeacher, *t)
	}
	sort.Slice(stats.PerTeacher, func(i, j int) bool {
		a, b := stats.PerTeacher[i], stats.PerTeacher[j]
		if a.TeacherName != b.TeacherName {
			return a.TeacherName < b.TeacherName
		}
		return a.TeacherID < b.TeacherID
	})
	return stats
}

func count(c *models.LessonCounters, lesson models.LogicalLesson) {
	c.Total++
	switch lesson.Status {
	case models.AttendanceAttended:
		c.Attended++
	case models.AttendanceNotAttended:
		c.NotAttended++
	default:
		c.Pending++
	}
	switch lesson.PaymentStatus {
	case models.PaymentPaid:
		c.Paid++
	case models.PaymentUnpaid:
		c.Unpaid++
	}
	c.PaidAmount += lesson.PaidAmount
	c.UnpaidAmount += lesson.UnpaidAmount
}

func finish(c *models.LessonCounters) {
	c.AttendedPct = percent(c.Attended, c.Total)
	c.NotAttendedPct = percent(c.NotAttended, c.Total)
	c.PendingPct = percent(c.Pending, c.Total)
}

// percent rounds to one decimal place.
func percent(part, total int) float64 {
	if total == 0 {
		return 0
	}
	return math.Round(1000*float64(part)/float64(total)) / 10
}
