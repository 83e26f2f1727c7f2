package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/noah-isme/sma-timetable-api/internal/models"
)

// LessonRecordRepository persists weekly lesson records.
type LessonRecordRepository struct {
	db *sqlx.DB
}

// NewLessonRecordRepository constructs a LessonRecordRepository.
func NewLessonRecordRepository(db *sqlx.DB) *LessonRecordRepository {
	return &LessonRecordRepository{db: db}
}

func (r *LessonRecordRepository) exec(exec sqlx.ExtContext) sqlx.ExtContext {
	if exec != nil {
		return exec
	}
	return r.db
}

// InsertMissing creates records that do not exist yet for their (week, entry) pair and
// reports how many rows were created.
func (r *LessonRecordRepository) InsertMissing(ctx context.Context, exec sqlx.ExtContext, records []models.LessonRecord) (int, error) {
	target := r.exec(exec)
	now := time.Now().UTC()

	const query = `
INSERT INTO lesson_records (id, week_id, entry_id, teacher_id, status, payment_status, amount, created_at, updated_at)
VALUES (:id, :week_id, :entry_id, :teacher_id, :status, :payment_status, :amount, :created_at, :updated_at)
ON CONFLICT (week_id, entry_id) DO NOTHING`

	created := 0
	for i := range records {
		record := &records[i]
		if record.ID == "" {
			record.ID = uuid.NewString()
		}
		record.CreatedAt = now
		record.UpdatedAt = now
		res, err := sqlx.NamedExecContext(ctx, target, query, record)
		if err != nil {
			return created, fmt.Errorf("insert lesson record: %w", err)
		}
		if affected, err := res.RowsAffected(); err == nil && affected > 0 {
			created++
		}
	}
	return created, nil
}

// FindByID fetches a record by ID.
func (r *LessonRecordRepository) FindByID(ctx context.Context, id string) (*models.LessonRecord, error) {
	const query = `SELECT id, week_id, entry_id, teacher_id, status, payment_status, amount, marked_by, marked_at, created_at, updated_at
FROM lesson_records WHERE id = $1`
	var record models.LessonRecord
	if err := r.db.GetContext(ctx, &record, query, id); err != nil {
		return nil, err
	}
	return &record, nil
}

// UpdateStatus stores an attendance outcome.
func (r *LessonRecordRepository) UpdateStatus(ctx context.Context, id string, status models.AttendanceStatus, markedBy string) error {
	now := time.Now().UTC()
	const query = `UPDATE lesson_records SET status = $2, marked_by = $3, marked_at = $4, updated_at = $4 WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, id, status, markedBy, now); err != nil {
		return fmt.Errorf("update lesson status: %w", err)
	}
	return nil
}

// UpdatePayments sets the payment status of several records and returns the affected count.
func (r *LessonRecordRepository) UpdatePayments(ctx context.Context, ids []string, status models.PaymentStatus) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	const query = `UPDATE lesson_records SET payment_status = $2, updated_at = $3 WHERE id = ANY($1)`
	res, err := r.db.ExecContext(ctx, query, pq.Array(ids), status, time.Now().UTC())
	if err != nil {
		return 0, fmt.Errorf("update lesson payments: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("update lesson payments: %w", err)
	}
	return affected, nil
}

// ListRows returns records joined with their timetable entry and teacher.
func (r *LessonRecordRepository) ListRows(ctx context.Context, filter models.LessonRowFilter, days []string) ([]models.LessonRow, error) {
	var conditions []string
	var args []interface{}

	if filter.WeekID != "" {
		conditions = append(conditions, fmt.Sprintf("lr.week_id = $%d", len(args)+1))
		args = append(args, filter.WeekID)
	}
	if filter.TeacherID != nil {
		conditions = append(conditions, fmt.Sprintf("e.teacher_id = $%d", len(args)+1))
		args = append(args, *filter.TeacherID)
	}
	if len(days) > 0 {
		conditions = append(conditions, fmt.Sprintf("e.day = ANY($%d)", len(args)+1))
		args = append(args, pq.Array(days))
	}

	query := `SELECT lr.id AS record_id, lr.week_id, lr.entry_id, e.teacher_id, t.full_name AS teacher_name, e.subject_id,
e.day, e.start_time, e.end_time, lr.status, lr.payment_status, lr.amount
FROM lesson_records lr
JOIN timetable_entries e ON e.id = lr.entry_id
JOIN teachers t ON t.id = e.teacher_id`
	if len(conditions) > 0 {
		query += " WHERE " + strings.Join(conditions, " AND ")
	}
	query += " ORDER BY lr.week_id ASC, e.teacher_id ASC, e.day ASC, e.start_time ASC"

	var rows []models.LessonRow
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("list lesson rows: %w", err)
	}
	return rows, nil
}
