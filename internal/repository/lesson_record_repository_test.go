package repository

import (
	"context"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/sma-timetable-api/internal/models"
)

func TestLessonRecordRepositoryInsertMissingCountsCreated(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewLessonRecordRepository(db)

	mock.ExpectExec(regexp.QuoteMeta("ON CONFLICT (week_id, entry_id) DO NOTHING")).
		WithArgs(sqlmock.AnyArg(), "week-1", "entry-1", int64(100), "PENDING", "UNPAID", 400.0, sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta("ON CONFLICT (week_id, entry_id) DO NOTHING")).
		WithArgs(sqlmock.AnyArg(), "week-1", "entry-2", int64(101), "PENDING", "UNPAID", 400.0, sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 0))

	records := []models.LessonRecord{
		{WeekID: "week-1", EntryID: "entry-1", TeacherID: 100, Status: models.AttendancePending, PaymentStatus: models.PaymentUnpaid, Amount: 400},
		{WeekID: "week-1", EntryID: "entry-2", TeacherID: 101, Status: models.AttendancePending, PaymentStatus: models.PaymentUnpaid, Amount: 400},
	}
	created, err := repo.InsertMissing(context.Background(), nil, records)
	require.NoError(t, err)
	assert.Equal(t, 1, created)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestLessonRecordRepositoryUpdatePayments(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewLessonRecordRepository(db)

	mock.ExpectExec(regexp.QuoteMeta("UPDATE lesson_records SET payment_status = $2, updated_at = $3 WHERE id = ANY($1)")).
		WithArgs(sqlmock.AnyArg(), "PAID", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 2))

	affected, err := repo.UpdatePayments(context.Background(), []string{"r1", "r2"}, models.PaymentPaid)
	require.NoError(t, err)
	assert.Equal(t, int64(2), affected)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestLessonRecordRepositoryListRows(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewLessonRecordRepository(db)

	teacherID := int64(100)
	mock.ExpectQuery(regexp.QuoteMeta("WHERE lr.week_id = $1 AND e.teacher_id = $2 AND e.day = ANY($3)")).
		WithArgs("week-1", teacherID, sqlmock.AnyArg()).
		WillReturnRows(sqlmock.NewRows([]string{"record_id", "week_id", "entry_id", "teacher_id", "teacher_name", "subject_id", "day", "start_time", "end_time", "status", "payment_status", "amount"}).
			AddRow("r1", "week-1", "entry-1", 100, "Alice", 10, "Mon", "16:30:00", "17:30:00", "ATTENDED", nil, "400.00"))

	rows, err := repo.ListRows(context.Background(), models.LessonRowFilter{WeekID: "week-1", TeacherID: &teacherID}, []string{"Mon"})
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, models.AttendanceAttended, rows[0].Status)
	assert.Equal(t, models.PaymentNone, rows[0].PaymentStatus)
	assert.Equal(t, 400.0, rows[0].Amount)
	assert.Equal(t, models.Clock(16, 30), rows[0].StartTime)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestWeekRepositoryCreate(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewWeekRepository(db)

	start := time.Date(2026, 1, 5, 0, 0, 0, 0, time.UTC)
	end := start.AddDate(0, 0, 6)
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO weeks")).
		WithArgs(sqlmock.AnyArg(), 1, start, end, sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(1, 1))

	week := &models.Week{Number: 1, StartDate: start, EndDate: end}
	require.NoError(t, repo.Create(context.Background(), week))
	assert.NotEmpty(t, week.ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}
