package service

import (
	"context"
	"database/sql"
	"errors"

	"github.com/go-playground/validator/v10"
	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	"github.com/noah-isme/sma-timetable-api/internal/dto"
	"github.com/noah-isme/sma-timetable-api/internal/models"
	"github.com/noah-isme/sma-timetable-api/internal/timetable"
	"github.com/noah-isme/sma-timetable-api/pkg/database"
	appErrors "github.com/noah-isme/sma-timetable-api/pkg/errors"
)

// DefaultLessonAmount is paid per lesson when no amount is configured.
const DefaultLessonAmount = 400

type weekStore interface {
	List(ctx context.Context) ([]models.Week, error)
	FindByID(ctx context.Context, id string) (*models.Week, error)
	Create(ctx context.Context, week *models.Week) error
}

type lessonRecordStore interface {
	InsertMissing(ctx context.Context, exec sqlx.ExtContext, records []models.LessonRecord) (int, error)
	FindByID(ctx context.Context, id string) (*models.LessonRecord, error)
	UpdateStatus(ctx context.Context, id string, status models.AttendanceStatus, markedBy string) error
	UpdatePayments(ctx context.Context, ids []string, status models.PaymentStatus) (int64, error)
	ListRows(ctx context.Context, filter models.LessonRowFilter, days []string) ([]models.LessonRow, error)
}

type timetableEntryLister interface {
	List(ctx context.Context, exec sqlx.ExtContext, filter models.TimetableEntryFilter) ([]models.TimetableEntry, error)
}

type teacherReader interface {
	FindByID(ctx context.Context, id int64) (*models.Teacher, error)
	FindByUserID(ctx context.Context, userID string) (*models.Teacher, error)
}

// LessonServiceConfig controls record generation.
type LessonServiceConfig struct {
	DefaultAmount float64
}

// LessonService tracks weekly lessons derived from the timetable.
type LessonService struct {
	weeks     weekStore
	records   lessonRecordStore
	entries   timetableEntryLister
	teachers  teacherReader
	tx        txProvider
	metrics   *MetricsService
	validator *validator.Validate
	logger    *zap.Logger
	cfg       LessonServiceConfig
}

// NewLessonService constructs the lesson service.
func NewLessonService(
	weeks weekStore,
	records lessonRecordStore,
	entries timetableEntryLister,
	teachers teacherReader,
	tx txProvider,
	metrics *MetricsService,
	validate *validator.Validate,
	logger *zap.Logger,
	cfg LessonServiceConfig,
) *LessonService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.DefaultAmount <= 0 {
		cfg.DefaultAmount = DefaultLessonAmount
	}
	return &LessonService{
		weeks:     weeks,
		records:   records,
		entries:   entries,
		teachers:  teachers,
		tx:        tx,
		metrics:   metrics,
		validator: validate,
		logger:    logger,
		cfg:       cfg,
	}
}

// ListWeeks returns every week.
func (s *LessonService) ListWeeks(ctx context.Context) ([]models.Week, error) {
	weeks, err := s.weeks.List(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list weeks")
	}
	return weeks, nil
}

// CreateWeek registers a week.
func (s *LessonService) CreateWeek(ctx context.Context, req dto.CreateWeekRequest) (*models.Week, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid payload")
	}
	if req.EndDate.Before(req.StartDate) {
		return nil, appErrors.Clone(appErrors.ErrValidation, "endDate must not be before startDate")
	}
	week := &models.Week{Number: req.Number, StartDate: req.StartDate, EndDate: req.EndDate}
	if err := s.weeks.Create(ctx, week); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create week")
	}
	return week, nil
}

func (s *LessonService) findWeek(ctx context.Context, id string) (*models.Week, error) {
	week, err := s.weeks.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "week not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load week")
	}
	return week, nil
}

// Generate creates one pending, unpaid record per in-scope timetable entry for the week.
// Records that already exist are left alone, so repeated calls only add what is missing.
func (s *LessonService) Generate(ctx context.Context, req dto.GenerateLessonsRequest) (*dto.GenerateLessonsResponse, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid payload")
	}
	structure, err := structureFor(req.Mode)
	if err != nil {
		return nil, err
	}
	week, err := s.findWeek(ctx, req.WeekID)
	if err != nil {
		return nil, err
	}

	entries, err := s.entries.List(ctx, nil, models.TimetableEntryFilter{Days: structure.DayCodes()})
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load timetable")
	}
	records := make([]models.LessonRecord, 0, len(entries))
	for _, entry := range entries {
		if !structure.Contains(entry.Day, entry.StartTime, entry.EndTime) {
			continue
		}
		records = append(records, models.LessonRecord{
			WeekID:        week.ID,
			EntryID:       entry.ID,
			TeacherID:     entry.TeacherID,
			Status:        models.AttendancePending,
			PaymentStatus: models.PaymentUnpaid,
			Amount:        s.cfg.DefaultAmount,
		})
	}

	created := 0
	err = database.WithTx(ctx, s.tx, func(tx *sqlx.Tx) error {
		n, err := s.records.InsertMissing(ctx, tx, records)
		created = n
		return err
	})
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to generate lessons")
	}

	s.metrics.RecordLessonsGenerated(string(structure.Mode), created)
	s.logger.Info("lesson records generated",
		zap.String("week_id", week.ID),
		zap.String("mode", string(structure.Mode)),
		zap.Int("candidates", len(records)),
		zap.Int("created", created),
	)
	return &dto.GenerateLessonsResponse{WeekID: week.ID, Mode: string(structure.Mode), Created: created}, nil
}

// resolveTeacherID returns the teacher behind the caller's token.
func (s *LessonService) resolveTeacherID(ctx context.Context, claims *models.JWTClaims) (int64, error) {
	if claims.TeacherID != nil {
		return *claims.TeacherID, nil
	}
	teacher, err := s.teachers.FindByUserID(ctx, claims.UserID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, appErrors.Clone(appErrors.ErrForbidden, "account is not linked to a teacher")
		}
		return 0, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load teacher")
	}
	return teacher.ID, nil
}

// UpdateStatus records attendance. Admins may mark any record, teachers only their own.
func (s *LessonService) UpdateStatus(ctx context.Context, claims *models.JWTClaims, id string, req dto.UpdateLessonStatusRequest) (*models.LessonRecord, error) {
	if claims == nil {
		return nil, appErrors.ErrUnauthorized
	}
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid payload")
	}
	status, err := models.ParseAttendanceStatus(req.Status)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, err.Error())
	}

	record, err := s.records.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "lesson record not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load lesson record")
	}

	if !claims.Role.IsAdmin() {
		if claims.Role != models.RoleTeacher {
			return nil, appErrors.Clone(appErrors.ErrForbidden, "only teachers and admins can mark lessons")
		}
		teacherID, err := s.resolveTeacherID(ctx, claims)
		if err != nil {
			return nil, err
		}
		if teacherID != record.TeacherID {
			return nil, appErrors.Clone(appErrors.ErrForbidden, "lesson belongs to another teacher")
		}
	}

	if err := s.records.UpdateStatus(ctx, record.ID, status, claims.UserID); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update lesson status")
	}
	record.Status = status
	markedBy := claims.UserID
	record.MarkedBy = &markedBy
	s.logger.Info("lesson status updated", zap.String("record_id", record.ID), zap.String("status", status.String()), zap.String("user_id", claims.UserID))
	return record, nil
}

// UpdatePayments sets the payment status of several records.
func (s *LessonService) UpdatePayments(ctx context.Context, req dto.UpdatePaymentsRequest) (*dto.UpdatePaymentsResponse, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid payload")
	}
	status, err := models.ParsePaymentStatus(req.PaymentStatus)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, err.Error())
	}
	updated, err := s.records.UpdatePayments(ctx, req.RecordIDs, status)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update payments")
	}
	s.logger.Info("lesson payments updated", zap.Int("requested", len(req.RecordIDs)), zap.Int64("updated", updated), zap.String("status", status.String()))
	return &dto.UpdatePaymentsResponse{Updated: updated}, nil
}

// Stats collapses lesson records into logical lessons and summarises them.
func (s *LessonService) Stats(ctx context.Context, query dto.LessonStatsQuery) (*dto.LessonStatsResponse, error) {
	if err := s.validator.Struct(query); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid query")
	}
	mode := query.Mode
	if mode == "" {
		mode = string(timetable.ModeNormal)
	}
	structure, err := structureFor(mode)
	if err != nil {
		return nil, err
	}

	rows, err := s.records.ListRows(ctx, models.LessonRowFilter{WeekID: query.WeekID, TeacherID: query.TeacherID}, structure.DayCodes())
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load lessons")
	}
	inScope := rows[:0]
	for _, row := range rows {
		if structure.Contains(row.Day, row.StartTime, row.EndTime) {
			inScope = append(inScope, row)
		}
	}

	lessons := timetable.CollapseLessons(inScope)
	return &dto.LessonStatsResponse{
		Mode:    structure.Mode,
		WeekID:  query.WeekID,
		Stats:   timetable.SummarizeLessons(lessons),
		Lessons: lessons,
	}, nil
}

// TeacherTimetable lays out a teacher's entries; with a week each cell shows its attendance.
func (s *LessonService) TeacherTimetable(ctx context.Context, teacherID int64, query dto.TeacherTimetableQuery) (*dto.TeacherTimetableResponse, error) {
	if err := s.validator.Struct(query); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid query")
	}
	mode := query.Mode
	if mode == "" {
		mode = string(timetable.ModeNormal)
	}
	structure, err := structureFor(mode)
	if err != nil {
		return nil, err
	}
	teacher, err := s.teachers.FindByID(ctx, teacherID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "teacher not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load teacher")
	}

	entries, err := s.entries.List(ctx, nil, models.TimetableEntryFilter{Days: structure.DayCodes(), TeacherIDs: []int64{teacher.ID}})
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load timetable")
	}

	var statuses map[timetable.LessonKey]models.AttendanceStatus
	withWeek := query.WeekID != ""
	if withWeek {
		if _, err := s.findWeek(ctx, query.WeekID); err != nil {
			return nil, err
		}
		id := teacher.ID
		rows, err := s.records.ListRows(ctx, models.LessonRowFilter{WeekID: query.WeekID, TeacherID: &id}, structure.DayCodes())
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load lessons")
		}
		statuses = timetable.MergeStatuses(rows)
	}

	return &dto.TeacherTimetableResponse{
		Teacher:   *teacher,
		Structure: structure,
		WeekID:    query.WeekID,
		Cells:     timetable.TeacherGrid(structure, entries, statuses, withWeek),
	}, nil
}

// MyTimetable is TeacherTimetable for the caller.
func (s *LessonService) MyTimetable(ctx context.Context, claims *models.JWTClaims, query dto.TeacherTimetableQuery) (*dto.TeacherTimetableResponse, error) {
	if claims == nil {
		return nil, appErrors.ErrUnauthorized
	}
	teacherID, err := s.resolveTeacherID(ctx, claims)
	if err != nil {
		return nil, err
	}
	return s.TeacherTimetable(ctx, teacherID, query)
}
