package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/noah-isme/sma-timetable-api/internal/dto"
	"github.com/noah-isme/sma-timetable-api/internal/models"
	"github.com/noah-isme/sma-timetable-api/internal/timetable"
	appErrors "github.com/noah-isme/sma-timetable-api/pkg/errors"
)

const (
	classF2N int64 = 1
	classF2S int64 = 2
	classF3N int64 = 3

	subjectMath    int64 = 10
	subjectPhysics int64 = 11

	teacherT1 int64 = 100
	teacherT2 int64 = 101
)

type txProviderMock struct {
	db   *sqlx.DB
	mock sqlmock.Sqlmock
}

func newTxProviderMock(t *testing.T) (txProvider, sqlmock.Sqlmock) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	sqlxdb := sqlx.NewDb(db, "sqlmock")
	t.Cleanup(func() { db.Close() })
	return &txProviderMock{db: sqlxdb, mock: mock}, mock
}

func (t *txProviderMock) BeginTxx(ctx context.Context, opts *sql.TxOptions) (*sqlx.Tx, error) {
	return t.db.BeginTxx(ctx, opts)
}

type entryStoreStub struct {
	rows      []models.TimetableEntry
	nextID    int
	locked    []string
	deleted   []string
	inserted  []models.TimetableEntry
	insertErr error
}

func (s *entryStoreStub) LockScope(ctx context.Context, exec sqlx.ExtContext, scope string) error {
	s.locked = append(s.locked, scope)
	return nil
}

func (s *entryStoreStub) List(ctx context.Context, exec sqlx.ExtContext, filter models.TimetableEntryFilter) ([]models.TimetableEntry, error) {
	var out []models.TimetableEntry
	for _, row := range s.rows {
		if len(filter.Days) > 0 && !containsString(filter.Days, string(row.Day)) {
			continue
		}
		if len(filter.TeacherIDs) > 0 && !containsInt64(filter.TeacherIDs, row.TeacherID) {
			continue
		}
		if len(filter.ClassGroupIDs) > 0 {
			match := false
			for _, id := range filter.ClassGroupIDs {
				if row.HasClassGroup(id) {
					match = true
				}
			}
			if !match {
				continue
			}
		}
		out = append(out, row)
	}
	return out, nil
}

func (s *entryStoreStub) Delete(ctx context.Context, exec sqlx.ExtContext, ids []string) error {
	s.deleted = append(s.deleted, ids...)
	kept := s.rows[:0]
	for _, row := range s.rows {
		if !containsString(ids, row.ID) {
			kept = append(kept, row)
		}
	}
	s.rows = kept
	return nil
}

func (s *entryStoreStub) Insert(ctx context.Context, exec sqlx.ExtContext, entries []models.TimetableEntry) error {
	if s.insertErr != nil {
		return s.insertErr
	}
	for i := range entries {
		s.nextID++
		entries[i].ID = fmt.Sprintf("entry-%d", s.nextID)
		s.rows = append(s.rows, entries[i])
		s.inserted = append(s.inserted, entries[i])
	}
	return nil
}

type classGroupStub struct {
	groups []models.ClassGroup
}

func (s classGroupStub) List(ctx context.Context) ([]models.ClassGroup, error) {
	return s.groups, nil
}

func (s classGroupStub) ExistingIDs(ctx context.Context, ids []int64) ([]int64, error) {
	var out []int64
	for _, g := range s.groups {
		if containsInt64(ids, g.ID) {
			out = append(out, g.ID)
		}
	}
	return out, nil
}

type subjectCatalogStub struct{}

func (subjectCatalogStub) List(ctx context.Context) ([]models.Subject, error) {
	return []models.Subject{{ID: subjectMath, Name: "Math"}, {ID: subjectPhysics, Name: "Physics"}}, nil
}

func (subjectCatalogStub) ListPairs(ctx context.Context) ([]models.SubjectTeacher, error) {
	return []models.SubjectTeacher{
		{SubjectID: subjectMath, SubjectName: "Math", TeacherID: teacherT1, TeacherName: "Ana"},
		{SubjectID: subjectPhysics, SubjectName: "Physics", TeacherID: teacherT2, TeacherName: "Budi"},
	}, nil
}

type teacherListStub struct {
	teachers []models.Teacher
}

func (s teacherListStub) List(ctx context.Context) ([]models.Teacher, error) {
	return s.teachers, nil
}

type jointReaderStub struct {
	subjects []models.JointSubject
	sets     []models.JointClassGroupSet
}

func (s jointReaderStub) ListSubjects(ctx context.Context) ([]models.JointSubject, error) {
	return s.subjects, nil
}

func (s jointReaderStub) ListSets(ctx context.Context) ([]models.JointClassGroupSet, error) {
	return s.sets, nil
}

type memoryCache struct {
	values      map[string][]byte
	invalidated []string
}

func newMemoryCache() *memoryCache {
	return &memoryCache{values: make(map[string][]byte)}
}

func (c *memoryCache) Get(ctx context.Context, key string, dest interface{}) bool {
	raw, ok := c.values[key]
	if !ok {
		return false
	}
	return json.Unmarshal(raw, dest) == nil
}

func (c *memoryCache) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) {
	raw, err := json.Marshal(value)
	if err == nil {
		c.values[key] = raw
	}
}

func (c *memoryCache) Invalidate(ctx context.Context, pattern string) {
	c.invalidated = append(c.invalidated, pattern)
	delete(c.values, pattern)
}

func containsString(values []string, v string) bool {
	for _, candidate := range values {
		if candidate == v {
			return true
		}
	}
	return false
}

func containsInt64(values []int64, v int64) bool {
	for _, candidate := range values {
		if candidate == v {
			return true
		}
	}
	return false
}

type timetableFixture struct {
	service *TimetableService
	store   *entryStoreStub
	cache   *memoryCache
	metrics *MetricsService
	mock    sqlmock.Sqlmock
}

func jointMathF2() jointReaderStub {
	return jointReaderStub{
		subjects: []models.JointSubject{{SubjectID: subjectMath, Active: true}},
		sets:     []models.JointClassGroupSet{{Name: "F2", Active: true, ClassGroupIDs: []int64{classF2N, classF2S}}},
	}
}

func newTimetableFixture(t *testing.T, joint jointReaderStub, cfg TimetableServiceConfig, rows ...models.TimetableEntry) timetableFixture {
	t.Helper()
	tx, mock := newTxProviderMock(t)
	store := &entryStoreStub{rows: rows}
	cache := newMemoryCache()
	metrics := NewMetricsService()
	classes := classGroupStub{groups: []models.ClassGroup{
		{ID: classF2N, Name: "F2 North"},
		{ID: classF2S, Name: "F2 South"},
		{ID: classF3N, Name: "F3 North"},
	}}
	teachers := teacherListStub{teachers: []models.Teacher{
		{ID: teacherT1, FullName: "Ana", Active: true},
		{ID: teacherT2, FullName: "Budi", Active: true},
	}}
	svc := NewTimetableService(store, classes, subjectCatalogStub{}, teachers, joint, tx, cache, metrics, nil, zap.NewNop(), cfg)
	return timetableFixture{service: svc, store: store, cache: cache, metrics: metrics, mock: mock}
}

func storedEntry(id string, day models.Day, start, end models.TimeOfDay, subjectID, teacherID int64, links ...models.EntryClassGroup) models.TimetableEntry {
	return models.TimetableEntry{
		ID:          id,
		SubjectID:   subjectID,
		TeacherID:   teacherID,
		Day:         day,
		StartTime:   start,
		EndTime:     end,
		ClassGroups: links,
	}
}

func TestTimetableServiceSaveAcceptsJointLesson(t *testing.T) {
	fx := newTimetableFixture(t, jointMathF2(), TimetableServiceConfig{})
	fx.mock.ExpectBegin()
	fx.mock.ExpectCommit()

	values := map[string]string{
		"cell_1_Mon_0800_0840_1": "10-100",
		"cell_2_Mon_0800_0840_1": "10-100",
		"cell_1_Tue_0840_0920_2": "11-101",
	}
	result, err := fx.service.Submit(context.Background(), "normal", dto.TimetableSubmission{
		Action:        "save",
		ClassGroupIDs: []int64{classF2S, classF2N},
		Cells:         values,
	})
	require.NoError(t, err)
	assert.Equal(t, 2, result.Inserted)
	assert.Zero(t, result.Deleted)
	assert.Equal(t, []int64{classF2N, classF2S}, result.ClassGroupIDs)
	assert.Equal(t, values, result.Cells)
	assert.Equal(t, []string{"normal"}, fx.store.locked)
	assert.Equal(t, []string{"timetable:master:normal"}, fx.cache.invalidated)

	require.Len(t, fx.store.rows, 2)
	assert.Equal(t, []int64{classF2N, classF2S}, fx.store.rows[0].ClassGroupIDs())
	assert.Equal(t, 1.0, testutil.ToFloat64(fx.metrics.timetableSaves.WithLabelValues("normal", "save", "accepted")))
	assert.NoError(t, fx.mock.ExpectationsWereMet())
}

type warmerStub struct {
	modes []string
}

func (w *warmerStub) Enqueue(mode string) (bool, error) {
	w.modes = append(w.modes, mode)
	return true, nil
}

func TestTimetableServiceSaveSchedulesMasterWarmUp(t *testing.T) {
	fx := newTimetableFixture(t, jointMathF2(), TimetableServiceConfig{})
	warmer := &warmerStub{}
	fx.service.SetWarmer(warmer)
	fx.mock.ExpectBegin()
	fx.mock.ExpectCommit()

	_, err := fx.service.Submit(context.Background(), "remedial", dto.TimetableSubmission{
		Action:        "save",
		ClassGroupIDs: []int64{classF2N},
		Cells:         map[string]string{"cell_1_Sat_0800_0900_1": "11-101"},
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"remedial"}, warmer.modes)

	require.NoError(t, fx.service.WarmMaster(context.Background(), "remedial"))
	master, cached, err := fx.service.Master(context.Background(), "remedial")
	require.NoError(t, err)
	assert.True(t, cached)
	assert.Len(t, master.Slots, 1)
	assert.NoError(t, fx.mock.ExpectationsWereMet())
}

func TestTimetableServiceResaveIsIdempotent(t *testing.T) {
	fx := newTimetableFixture(t, jointMathF2(), TimetableServiceConfig{})
	req := dto.TimetableSubmission{
		Action:        "save",
		ClassGroupIDs: []int64{classF2N},
		Cells:         map[string]string{"cell_1_Mon_0800_0840_1": "10-100"},
	}

	fx.mock.ExpectBegin()
	fx.mock.ExpectCommit()
	_, err := fx.service.Submit(context.Background(), "normal", req)
	require.NoError(t, err)

	fx.mock.ExpectBegin()
	fx.mock.ExpectCommit()
	result, err := fx.service.Submit(context.Background(), "normal", req)
	require.NoError(t, err)
	assert.Zero(t, result.Inserted)
	assert.Zero(t, result.Deleted)
	assert.Equal(t, 1, result.Kept)
	assert.Len(t, fx.store.rows, 1)
	assert.Equal(t, req.Cells, result.Cells)
	assert.NoError(t, fx.mock.ExpectationsWereMet())
}

func TestTimetableServiceExtendingLessonIntoJointReplacesEntry(t *testing.T) {
	existing := storedEntry("generated", models.DayMonday, models.Clock(8, 0), models.Clock(8, 40), subjectMath, teacherT1,
		models.EntryClassGroup{ClassGroupID: classF2N, SubIndex: 1})
	fx := newTimetableFixture(t, jointMathF2(), TimetableServiceConfig{}, existing)
	fx.mock.ExpectBegin()
	fx.mock.ExpectCommit()

	result, err := fx.service.Submit(context.Background(), "normal", dto.TimetableSubmission{
		Action:        "save",
		ClassGroupIDs: []int64{classF2N, classF2S},
		Cells: map[string]string{
			"cell_1_Mon_0800_0840_1": "10-100",
			"cell_2_Mon_0800_0840_1": "10-100",
		},
	})
	require.NoError(t, err)
	assert.Equal(t, 1, result.Deleted)
	assert.Equal(t, 1, result.Inserted)
	assert.Equal(t, []string{"generated"}, fx.store.deleted)
	require.Len(t, fx.store.rows, 1)
	assert.NotEqual(t, "generated", fx.store.rows[0].ID)
	assert.Equal(t, []int64{classF2N, classF2S}, fx.store.rows[0].ClassGroupIDs())
	assert.NoError(t, fx.mock.ExpectationsWereMet())
}

func TestTimetableServiceRejectsSlotConflict(t *testing.T) {
	existing := storedEntry("keep", models.DayFriday, models.Clock(8, 0), models.Clock(8, 40), subjectPhysics, teacherT2, models.EntryClassGroup{ClassGroupID: classF2N, SubIndex: 1})
	fx := newTimetableFixture(t, jointMathF2(), TimetableServiceConfig{}, existing)

	_, err := fx.service.Submit(context.Background(), "normal", dto.TimetableSubmission{
		Action:        "save",
		ClassGroupIDs: []int64{classF2N},
		Cells: map[string]string{
			"cell_1_Mon_0800_0840_1": "10-100",
			"cell_1_Mon_0800_0840_2": "11-100",
		},
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, appErrors.ErrSlotConflict)

	var rejected *TimetableRejectedError
	require.True(t, errors.As(err, &rejected))
	require.Len(t, rejected.Rejection.Violations, 1)
	assert.Equal(t, []int64{subjectMath, subjectPhysics}, rejected.Rejection.Violations[0].SubjectIDs)
	assert.Equal(t, "11-100", rejected.Rejection.Cells["cell_1_Mon_0800_0840_2"])
	assert.Equal(t, rejected.Rejection.Violations[0].Message, appErrors.FromError(err).Message)
	assert.Equal(t, 1.0, testutil.ToFloat64(fx.metrics.timetableSaves.WithLabelValues("normal", "save", "rejected")))

	assert.Equal(t, []models.TimetableEntry{existing}, fx.store.rows)
	assert.Empty(t, fx.store.locked)
	assert.Equal(t, 1.0, testutil.ToFloat64(fx.metrics.violations.WithLabelValues("SLOT_CONFLICT")))
	assert.NoError(t, fx.mock.ExpectationsWereMet())
}

func TestTimetableServiceRejectsNonJointSubject(t *testing.T) {
	joint := jointMathF2()
	joint.subjects = nil
	fx := newTimetableFixture(t, joint, TimetableServiceConfig{})

	_, err := fx.service.Submit(context.Background(), "normal", dto.TimetableSubmission{
		Action:        "save",
		ClassGroupIDs: []int64{classF2N, classF2S},
		Cells: map[string]string{
			"cell_1_Mon_0800_0840_1": "10-100",
			"cell_2_Mon_0800_0840_1": "10-100",
		},
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, appErrors.ErrJointConfig)
	appErr := appErrors.FromError(err)
	assert.Equal(t, timetable.MessageJointSubject, appErr.Message)
	assert.Empty(t, fx.store.rows)
}

func TestTimetableServiceRejectsClassGroupsOutsideJointSet(t *testing.T) {
	fx := newTimetableFixture(t, jointMathF2(), TimetableServiceConfig{})

	_, err := fx.service.Submit(context.Background(), "normal", dto.TimetableSubmission{
		Action:        "save",
		ClassGroupIDs: []int64{classF2N, classF3N},
		Cells: map[string]string{
			"cell_1_Mon_0800_0840_1": "10-100",
			"cell_3_Mon_0800_0840_1": "10-100",
		},
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, appErrors.ErrJointConfig)
	assert.Equal(t, timetable.MessageJointClassGroups, appErrors.FromError(err).Message)
}

func TestTimetableServiceRejectsUnreadableValues(t *testing.T) {
	fx := newTimetableFixture(t, jointMathF2(), TimetableServiceConfig{})

	_, err := fx.service.Submit(context.Background(), "normal", dto.TimetableSubmission{
		Action:        "save",
		ClassGroupIDs: []int64{classF2N},
		Cells: map[string]string{
			"cell_1_Mon_0800_0840_1": "10-100",
			"cell_1_Mon_0840_0920_1": "maths",
		},
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, appErrors.ErrTimetableParse)

	var rejected *TimetableRejectedError
	require.True(t, errors.As(err, &rejected))
	require.Len(t, rejected.Rejection.ParseErrors, 1)
	assert.Equal(t, "cell_1_Mon_0840_0920_1", rejected.Rejection.ParseErrors[0].Field)
	assert.Empty(t, fx.store.rows)
}

func TestTimetableServiceUnknownActionIsNoop(t *testing.T) {
	existing := storedEntry("keep", models.DayMonday, models.Clock(8, 0), models.Clock(8, 40), subjectMath, teacherT1, models.EntryClassGroup{ClassGroupID: classF2N, SubIndex: 1})
	fx := newTimetableFixture(t, jointMathF2(), TimetableServiceConfig{}, existing)

	_, err := fx.service.Submit(context.Background(), "normal", dto.TimetableSubmission{
		Action:        "publish",
		ClassGroupIDs: []int64{classF2N},
	})
	assert.ErrorIs(t, err, appErrors.ErrUnknownAction)
	assert.Len(t, fx.store.rows, 1)
	assert.Equal(t, 1.0, testutil.ToFloat64(fx.metrics.timetableSaves.WithLabelValues("normal", "unknown", "rejected")))
	assert.NoError(t, fx.mock.ExpectationsWereMet())
}

func TestTimetableServiceValidatesSelection(t *testing.T) {
	fx := newTimetableFixture(t, jointMathF2(), TimetableServiceConfig{})

	_, err := fx.service.Submit(context.Background(), "normal", dto.TimetableSubmission{Action: "save"})
	assert.ErrorIs(t, err, appErrors.ErrValidation)
	assert.Equal(t, 1.0, testutil.ToFloat64(fx.metrics.timetableSaves.WithLabelValues("normal", "save", "rejected")))

	_, err = fx.service.Submit(context.Background(), "normal", dto.TimetableSubmission{Action: "save", ClassGroupIDs: []int64{99}})
	assert.ErrorIs(t, err, appErrors.ErrValidation)

	_, err = fx.service.Submit(context.Background(), "evening", dto.TimetableSubmission{Action: "save", ClassGroupIDs: []int64{classF2N}})
	assert.ErrorIs(t, err, appErrors.ErrNotFound)
}

func TestTimetableServiceClearKeepsPartnerLinks(t *testing.T) {
	joint := storedEntry("joint", models.DayMonday, models.Clock(8, 0), models.Clock(8, 40), subjectMath, teacherT1,
		models.EntryClassGroup{ClassGroupID: classF2N, SubIndex: 1},
		models.EntryClassGroup{ClassGroupID: classF2S, SubIndex: 1},
	)
	remedial := storedEntry("remedial", models.DaySaturday, models.Clock(7, 0), models.Clock(8, 0), subjectPhysics, teacherT2,
		models.EntryClassGroup{ClassGroupID: classF2N, SubIndex: 1},
	)
	fx := newTimetableFixture(t, jointMathF2(), TimetableServiceConfig{}, joint, remedial)
	fx.mock.ExpectBegin()
	fx.mock.ExpectCommit()

	result, err := fx.service.Submit(context.Background(), "normal", dto.TimetableSubmission{
		Action:        "clear",
		ClassGroupIDs: []int64{classF2N},
	})
	require.NoError(t, err)
	assert.Equal(t, 1, result.Deleted)
	assert.Equal(t, 1, result.Inserted)
	assert.Empty(t, result.Cells)
	assert.Equal(t, []string{"joint"}, fx.store.deleted)

	require.Len(t, fx.store.rows, 2)
	for _, row := range fx.store.rows {
		if row.ID == "remedial" {
			continue
		}
		assert.Equal(t, []int64{classF2S}, row.ClassGroupIDs())
	}
	assert.NoError(t, fx.mock.ExpectationsWereMet())
}

func TestTimetableServiceRollsBackOnInsertFailure(t *testing.T) {
	fx := newTimetableFixture(t, jointMathF2(), TimetableServiceConfig{})
	fx.store.insertErr = errors.New("insert failed")
	fx.mock.ExpectBegin()
	fx.mock.ExpectRollback()

	_, err := fx.service.Submit(context.Background(), "normal", dto.TimetableSubmission{
		Action:        "save",
		ClassGroupIDs: []int64{classF2N},
		Cells:         map[string]string{"cell_1_Mon_0800_0840_1": "10-100"},
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, appErrors.ErrInternal)
	assert.Empty(t, fx.cache.invalidated)
	assert.NoError(t, fx.mock.ExpectationsWereMet())
}

func TestTimetableServiceChecksExistingRowsWhenEnabled(t *testing.T) {
	elsewhere := storedEntry("f3", models.DayMonday, models.Clock(8, 0), models.Clock(8, 40), subjectPhysics, teacherT1,
		models.EntryClassGroup{ClassGroupID: classF3N, SubIndex: 1},
	)
	req := dto.TimetableSubmission{
		Action:        "save",
		ClassGroupIDs: []int64{classF2N},
		Cells:         map[string]string{"cell_1_Mon_0800_0840_1": "10-100"},
	}

	strict := newTimetableFixture(t, jointMathF2(), TimetableServiceConfig{CheckExisting: true}, elsewhere)
	_, err := strict.service.Submit(context.Background(), "normal", req)
	assert.ErrorIs(t, err, appErrors.ErrSlotConflict)

	batchOnly := newTimetableFixture(t, jointMathF2(), TimetableServiceConfig{}, elsewhere)
	batchOnly.mock.ExpectBegin()
	batchOnly.mock.ExpectCommit()
	_, err = batchOnly.service.Submit(context.Background(), "normal", req)
	require.NoError(t, err)
	assert.Len(t, batchOnly.store.rows, 2)
}

func TestTimetableServiceBuilder(t *testing.T) {
	stored := storedEntry("a", models.DayMonday, models.Clock(8, 0), models.Clock(8, 40), subjectMath, teacherT1,
		models.EntryClassGroup{ClassGroupID: classF2N, SubIndex: 2},
		models.EntryClassGroup{ClassGroupID: classF2S, SubIndex: 1},
	)
	fx := newTimetableFixture(t, jointMathF2(), TimetableServiceConfig{}, stored)

	view, err := fx.service.Builder(context.Background(), "normal", dto.BuilderQuery{ClassGroupIDs: []int64{classF2N, 42}})
	require.NoError(t, err)
	assert.Equal(t, []int64{classF2N}, view.SelectedClassGroupIDs)
	assert.Equal(t, map[string]string{"cell_1_Mon_0800_0840_2": "10-100"}, view.Cells)
	assert.Len(t, view.ClassGroups, 3)
	assert.Equal(t, dto.SubjectTeacherOption{Key: "10-100", Label: "Math - Ana"}, view.Options[0])
	assert.Equal(t, []int64{subjectMath}, view.JointSubjectIDs)
	assert.Equal(t, map[int64]string{classF2N: "F2", classF2S: "F2"}, view.ClassGroupTags)
	assert.Equal(t, map[string][]int64{"F2": {classF2N, classF2S}}, view.JointGroups)
	assert.Equal(t, "08:00", view.Times[0])
	assert.Len(t, view.Times, 9)
}

func TestTimetableServiceMasterIsCached(t *testing.T) {
	stored := storedEntry("a", models.DayMonday, models.Clock(8, 0), models.Clock(8, 40), subjectMath, teacherT1,
		models.EntryClassGroup{ClassGroupID: classF2N, SubIndex: 1},
		models.EntryClassGroup{ClassGroupID: classF2S, SubIndex: 1},
	)
	fx := newTimetableFixture(t, jointMathF2(), TimetableServiceConfig{}, stored)

	master, cached, err := fx.service.Master(context.Background(), "normal")
	require.NoError(t, err)
	assert.False(t, cached)
	require.Len(t, master.Slots, 2)
	assert.Equal(t, "a", master.Slots["1_Mon_0800_0840"][0].ID)

	fx.store.rows = nil
	again, cached, err := fx.service.Master(context.Background(), "normal")
	require.NoError(t, err)
	assert.True(t, cached)
	assert.Len(t, again.Slots, 2)
}

func TestTimetableServiceExportMaster(t *testing.T) {
	stored := storedEntry("a", models.DayMonday, models.Clock(8, 0), models.Clock(8, 40), subjectMath, teacherT1,
		models.EntryClassGroup{ClassGroupID: classF2S, SubIndex: 1},
		models.EntryClassGroup{ClassGroupID: classF2N, SubIndex: 1},
	)
	fx := newTimetableFixture(t, jointMathF2(), TimetableServiceConfig{}, stored)

	file, err := fx.service.ExportMaster(context.Background(), "normal")
	require.NoError(t, err)
	assert.Equal(t, "timetable-normal.csv", file.Name)
	assert.Equal(t, "text/csv", file.ContentType)
	assert.Equal(t, "class_group,day,start,end,subject,teacher\n"+
		"F2 North,Mon,08:00,08:40,Math,Ana\n"+
		"F2 South,Mon,08:00,08:40,Math,Ana\n", string(file.Body))

	_, err = fx.service.ExportMaster(context.Background(), "weekend")
	assert.ErrorIs(t, err, appErrors.ErrNotFound)
}
