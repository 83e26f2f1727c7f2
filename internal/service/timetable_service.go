package service

import (
	"context"
	"database/sql"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	"github.com/noah-isme/sma-timetable-api/internal/dto"
	"github.com/noah-isme/sma-timetable-api/internal/models"
	"github.com/noah-isme/sma-timetable-api/internal/timetable"
	"github.com/noah-isme/sma-timetable-api/pkg/database"
	appErrors "github.com/noah-isme/sma-timetable-api/pkg/errors"
	"github.com/noah-isme/sma-timetable-api/pkg/export"
)

type timetableEntryStore interface {
	LockScope(ctx context.Context, exec sqlx.ExtContext, scope string) error
	List(ctx context.Context, exec sqlx.ExtContext, filter models.TimetableEntryFilter) ([]models.TimetableEntry, error)
	Delete(ctx context.Context, exec sqlx.ExtContext, ids []string) error
	Insert(ctx context.Context, exec sqlx.ExtContext, entries []models.TimetableEntry) error
}

type classGroupReader interface {
	List(ctx context.Context) ([]models.ClassGroup, error)
	ExistingIDs(ctx context.Context, ids []int64) ([]int64, error)
}

type subjectCatalog interface {
	List(ctx context.Context) ([]models.Subject, error)
	ListPairs(ctx context.Context) ([]models.SubjectTeacher, error)
}

type teacherLister interface {
	List(ctx context.Context) ([]models.Teacher, error)
}

type jointConfigReader interface {
	ListSubjects(ctx context.Context) ([]models.JointSubject, error)
	ListSets(ctx context.Context) ([]models.JointClassGroupSet, error)
}

type txProvider interface {
	BeginTxx(ctx context.Context, opts *sql.TxOptions) (*sqlx.Tx, error)
}

// TimetableCache is the subset of CacheService used for master grids.
type TimetableCache interface {
	Get(ctx context.Context, key string, dest interface{}) bool
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration)
	Invalidate(ctx context.Context, pattern string)
}

// MasterWarmer schedules a background rebuild of a mode's cached master grid.
type MasterWarmer interface {
	Enqueue(mode string) (bool, error)
}

// TimetableServiceConfig governs builder behaviour.
type TimetableServiceConfig struct {
	// CheckExisting validates submissions together with stored entries of class groups
	// outside the edit.
	CheckExisting bool
	CacheTTL      time.Duration
}

// TimetableRejectedError is returned when a submission is refused. It carries what the editor
// needs to redisplay the form.
type TimetableRejectedError struct {
	Err       *appErrors.Error
	Rejection dto.TimetableRejection
}

func (e *TimetableRejectedError) Error() string { return e.Err.Error() }

func (e *TimetableRejectedError) Unwrap() error { return e.Err }

// TimetableService parses, validates and persists builder submissions and serves the builder
// and master views.
type TimetableService struct {
	entries   timetableEntryStore
	classes   classGroupReader
	subjects  subjectCatalog
	teachers  teacherLister
	joint     jointConfigReader
	tx        txProvider
	cache     TimetableCache
	metrics   *MetricsService
	validator *validator.Validate
	logger    *zap.Logger
	cfg       TimetableServiceConfig
	exporter  *export.CSVExporter
	warmer    MasterWarmer
}

// NewTimetableService wires builder dependencies.
func NewTimetableService(
	entries timetableEntryStore,
	classes classGroupReader,
	subjects subjectCatalog,
	teachers teacherLister,
	joint jointConfigReader,
	tx txProvider,
	cache TimetableCache,
	metrics *MetricsService,
	validate *validator.Validate,
	logger *zap.Logger,
	cfg TimetableServiceConfig,
) *TimetableService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.CacheTTL <= 0 {
		cfg.CacheTTL = 5 * time.Minute
	}
	return &TimetableService{
		entries:   entries,
		classes:   classes,
		subjects:  subjects,
		teachers:  teachers,
		joint:     joint,
		tx:        tx,
		cache:     cache,
		metrics:   metrics,
		validator: validate,
		logger:    logger,
		cfg:       cfg,
		exporter:  export.NewCSVExporter(),
	}
}

const actionUnknown = "unknown"

// submissionAction normalizes a builder action; anything but save or clear is unknown.
func submissionAction(raw string) string {
	action := strings.ToLower(strings.TrimSpace(raw))
	if action != dto.TimetableActionSave && action != dto.TimetableActionClear {
		return actionUnknown
	}
	return action
}

func masterCacheKey(mode timetable.Mode) string {
	return "timetable:master:" + string(mode)
}

func structureFor(mode string) (timetable.Structure, error) {
	parsed, err := timetable.ParseMode(mode)
	if err != nil {
		return timetable.Structure{}, appErrors.Clone(appErrors.ErrNotFound, err.Error())
	}
	structure, err := timetable.StructureFor(parsed)
	if err != nil {
		return timetable.Structure{}, appErrors.Clone(appErrors.ErrNotFound, err.Error())
	}
	return structure, nil
}

// Submit handles a builder post: save replaces the timetable of the selected class groups
// with the submitted grid, clear empties it. Any other action is refused without changes.
func (s *TimetableService) Submit(ctx context.Context, mode string, req dto.TimetableSubmission) (*dto.TimetableSaveResult, error) {
	structure, err := structureFor(mode)
	if err != nil {
		return nil, err
	}
	action := submissionAction(req.Action)
	if err := s.validator.Struct(req); err != nil {
		s.metrics.RecordTimetableSubmission(string(structure.Mode), action, "rejected", 0, 0, 0)
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid timetable submission")
	}
	if action == actionUnknown {
		s.metrics.RecordTimetableSubmission(string(structure.Mode), action, "rejected", 0, 0, 0)
		return nil, appErrors.ErrUnknownAction
	}

	selected, err := s.selectClassGroups(ctx, req.ClassGroupIDs)
	if err != nil {
		return nil, err
	}

	var lessons []timetable.Lesson
	if action == dto.TimetableActionSave {
		lessons, err = s.validateSubmission(ctx, structure, selected, req.Cells)
		if err != nil {
			s.metrics.RecordTimetableSubmission(string(structure.Mode), action, "rejected", 0, 0, 0)
			return nil, err
		}
	}

	var plan timetable.Plan
	err = database.WithTx(ctx, s.tx, func(tx *sqlx.Tx) error {
		if err := s.entries.LockScope(ctx, tx, string(structure.Mode)); err != nil {
			return err
		}
		current, err := s.entries.List(ctx, tx, models.TimetableEntryFilter{
			Days:          structure.DayCodes(),
			ClassGroupIDs: selected,
		})
		if err != nil {
			return err
		}
		plan = timetable.PlanReplace(current, structure, selected, lessons)
		ids := make([]string, 0, len(plan.Delete))
		for _, entry := range plan.Delete {
			ids = append(ids, entry.ID)
		}
		if err := s.entries.Delete(ctx, tx, ids); err != nil {
			return err
		}
		return s.entries.Insert(ctx, tx, plan.Insert)
	})
	if err != nil {
		s.metrics.RecordTimetableSubmission(string(structure.Mode), action, "failed", 0, 0, 0)
		s.logger.Error("timetable submission failed",
			zap.String("mode", string(structure.Mode)),
			zap.String("action", action),
			zap.Int64s("class_group_ids", selected),
			zap.Error(err),
		)
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to save timetable")
	}

	if s.cache != nil {
		s.cache.Invalidate(ctx, masterCacheKey(structure.Mode))
		s.warm(structure.Mode)
	}
	s.metrics.RecordTimetableSubmission(string(structure.Mode), action, "accepted", len(plan.Insert), len(plan.Delete), len(plan.Kept))
	s.logger.Info("timetable submission accepted",
		zap.String("mode", string(structure.Mode)),
		zap.String("action", action),
		zap.Int64s("class_group_ids", selected),
		zap.Int("inserted", len(plan.Insert)),
		zap.Int("deleted", len(plan.Delete)),
		zap.Int("kept", len(plan.Kept)),
	)

	message := "Timetable saved."
	if action == dto.TimetableActionClear {
		message = "Timetable cleared."
	}
	return &dto.TimetableSaveResult{
		Mode:          structure.Mode,
		Action:        action,
		ClassGroupIDs: selected,
		Cells:         timetable.RenderGrid(plan.Result(), structure, selected).Values(),
		Inserted:      len(plan.Insert),
		Deleted:       len(plan.Delete),
		Kept:          len(plan.Kept),
		Message:       message,
	}, nil
}

func (s *TimetableService) selectClassGroups(ctx context.Context, ids []int64) ([]int64, error) {
	existing, err := s.classes.ExistingIDs(ctx, ids)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load class groups")
	}
	known := make(map[int64]struct{}, len(existing))
	for _, id := range existing {
		known[id] = struct{}{}
	}
	seen := make(map[int64]struct{}, len(ids))
	selected := make([]int64, 0, len(ids))
	var missing []string
	for _, id := range ids {
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		if _, ok := known[id]; !ok {
			missing = append(missing, fmt.Sprint(id))
			continue
		}
		selected = append(selected, id)
	}
	if len(missing) > 0 {
		return nil, appErrors.Clone(appErrors.ErrValidation, "unknown class groups: "+strings.Join(missing, ", "))
	}
	sort.Slice(selected, func(i, j int) bool { return selected[i] < selected[j] })
	return selected, nil
}

// validateSubmission parses and checks the grid, returning the lessons to persist.
func (s *TimetableService) validateSubmission(ctx context.Context, structure timetable.Structure, selected []int64, values map[string]string) ([]timetable.Lesson, error) {
	cells, parseErrs := timetable.ParseGrid(structure, selected, values)
	if len(parseErrs) > 0 {
		s.logger.Warn("timetable submission unreadable",
			zap.String("mode", string(structure.Mode)),
			zap.Int("errors", len(parseErrs)),
			zap.String("first", parseErrs[0].Error()),
		)
		return nil, &TimetableRejectedError{
			Err:       appErrors.ErrTimetableParse,
			Rejection: dto.TimetableRejection{Cells: values, ParseErrors: parseErrs},
		}
	}

	joint, err := s.loadJointConfig(ctx)
	if err != nil {
		return nil, err
	}

	var existing []timetable.Cell
	if s.cfg.CheckExisting && len(cells) > 0 {
		existing, err = s.existingCells(ctx, structure, selected, cells)
		if err != nil {
			return nil, err
		}
	}

	violations := timetable.ValidateAgainst(cells, existing, joint)
	if len(violations) > 0 {
		for _, v := range violations {
			s.metrics.RecordViolation(string(v.Kind))
		}
		first := violations[0]
		s.logger.Info("timetable submission rejected",
			zap.String("mode", string(structure.Mode)),
			zap.String("kind", string(first.Kind)),
			zap.Int64("teacher_id", first.TeacherID),
			zap.String("day", string(first.Day)),
			zap.String("start", first.Start.String()),
			zap.Int("violations", len(violations)),
		)
		base := appErrors.Clone(appErrors.ErrJointConfig, first.Message)
		if first.Kind == timetable.ViolationSlotConflict {
			base = appErrors.Clone(appErrors.ErrSlotConflict, first.Message)
		}
		return nil, &TimetableRejectedError{
			Err:       base,
			Rejection: dto.TimetableRejection{Cells: values, Violations: violations},
		}
	}
	return timetable.BuildLessons(cells), nil
}

func (s *TimetableService) loadJointConfig(ctx context.Context) (timetable.JointConfig, error) {
	subjects, err := s.joint.ListSubjects(ctx)
	if err != nil {
		return timetable.JointConfig{}, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load joint subjects")
	}
	sets, err := s.joint.ListSets(ctx)
	if err != nil {
		return timetable.JointConfig{}, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load joint class group sets")
	}
	return timetable.NewJointConfig(subjects, sets), nil
}

// existingCells returns stored placements of the submitting teachers in class groups outside
// the edit.
func (s *TimetableService) existingCells(ctx context.Context, structure timetable.Structure, selected []int64, cells []timetable.Cell) ([]timetable.Cell, error) {
	teacherSet := make(map[int64]struct{})
	for _, c := range cells {
		teacherSet[c.Assignment.TeacherID] = struct{}{}
	}
	teacherIDs := make([]int64, 0, len(teacherSet))
	for id := range teacherSet {
		teacherIDs = append(teacherIDs, id)
	}
	sort.Slice(teacherIDs, func(i, j int) bool { return teacherIDs[i] < teacherIDs[j] })

	entries, err := s.entries.List(ctx, nil, models.TimetableEntryFilter{Days: structure.DayCodes(), TeacherIDs: teacherIDs})
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load timetable")
	}
	edited := make(map[int64]struct{}, len(selected))
	for _, id := range selected {
		edited[id] = struct{}{}
	}
	var out []timetable.Cell
	for _, entry := range entries {
		if !structure.Contains(entry.Day, entry.StartTime, entry.EndTime) {
			continue
		}
		for _, link := range entry.ClassGroups {
			if _, ok := edited[link.ClassGroupID]; ok {
				continue
			}
			out = append(out, timetable.Cell{
				Key: timetable.CellKey{
					ClassGroupID: link.ClassGroupID,
					Day:          entry.Day,
					Start:        entry.StartTime,
					End:          entry.EndTime,
					SubIndex:     link.SubIndex,
				},
				Assignment: timetable.Assignment{SubjectID: entry.SubjectID, TeacherID: entry.TeacherID},
			})
		}
	}
	return out, nil
}

// Builder returns the data needed to render the builder for the selected class groups.
func (s *TimetableService) Builder(ctx context.Context, mode string, query dto.BuilderQuery) (*dto.BuilderView, error) {
	structure, err := structureFor(mode)
	if err != nil {
		return nil, err
	}
	if err := s.validator.Struct(query); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid class group selection")
	}

	classGroups, err := s.classes.List(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load class groups")
	}
	known := make(map[int64]struct{}, len(classGroups))
	for _, cg := range classGroups {
		known[cg.ID] = struct{}{}
	}
	selected := make([]int64, 0, len(query.ClassGroupIDs))
	for _, id := range query.ClassGroupIDs {
		if _, ok := known[id]; ok {
			selected = append(selected, id)
			delete(known, id)
		}
	}

	pairs, err := s.subjects.ListPairs(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load subject teacher pairs")
	}
	options := make([]dto.SubjectTeacherOption, 0, len(pairs))
	for _, p := range pairs {
		options = append(options, dto.SubjectTeacherOption{
			Key:   timetable.Assignment{SubjectID: p.SubjectID, TeacherID: p.TeacherID}.String(),
			Label: p.SubjectName + " - " + p.TeacherName,
		})
	}

	cells := map[string]string{}
	if len(selected) > 0 {
		entries, err := s.entries.List(ctx, nil, models.TimetableEntryFilter{Days: structure.DayCodes(), ClassGroupIDs: selected})
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load timetable")
		}
		cells = timetable.RenderGrid(entries, structure, selected).Values()
	}

	joint, err := s.loadJointConfig(ctx)
	if err != nil {
		return nil, err
	}

	times := make([]string, 0, len(structure.Periods))
	for _, start := range structure.StartTimes() {
		times = append(times, start.String())
	}

	return &dto.BuilderView{
		Structure:             structure,
		Times:                 times,
		ClassGroups:           classGroups,
		SelectedClassGroupIDs: selected,
		Options:               options,
		Cells:                 cells,
		JointSubjectIDs:       joint.SubjectIDs(),
		ClassGroupTags:        joint.ClassGroupTags(),
		JointGroups:           joint.GroupMembers(),
	}, nil
}

// Master returns every in-scope entry grouped by class group and slot. Results are cached
// until the next accepted submission of the mode.
func (s *TimetableService) Master(ctx context.Context, mode string) (*dto.MasterTimetable, bool, error) {
	structure, err := structureFor(mode)
	if err != nil {
		return nil, false, err
	}
	key := masterCacheKey(structure.Mode)
	if s.cache != nil {
		var cached dto.MasterTimetable
		if s.cache.Get(ctx, key, &cached) {
			return &cached, true, nil
		}
	}

	entries, err := s.entries.List(ctx, nil, models.TimetableEntryFilter{Days: structure.DayCodes()})
	if err != nil {
		return nil, false, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load timetable")
	}
	grid := timetable.MasterGrid(entries, structure)
	result := &dto.MasterTimetable{Structure: structure, Slots: make(map[string][]models.TimetableEntry, len(grid))}
	for slot, slotEntries := range grid {
		result.Slots[slot.String()] = slotEntries
	}
	if s.cache != nil {
		s.cache.Set(ctx, key, result, s.cfg.CacheTTL)
	}
	return result, false, nil
}

// SetWarmer enables background master grid rebuilds after accepted submissions.
func (s *TimetableService) SetWarmer(w MasterWarmer) {
	s.warmer = w
}

// WarmMaster rebuilds the cached master grid of a mode. It is the handler of the warm-up queue.
func (s *TimetableService) WarmMaster(ctx context.Context, mode string) error {
	_, _, err := s.Master(ctx, mode)
	return err
}

func (s *TimetableService) warm(mode timetable.Mode) {
	if s.warmer == nil {
		return
	}
	if _, err := s.warmer.Enqueue(string(mode)); err != nil {
		s.logger.Warn("master warm-up not scheduled", zap.String("mode", string(mode)), zap.Error(err))
	}
}

// ExportMaster renders the master timetable as CSV, one row per class group placement.
func (s *TimetableService) ExportMaster(ctx context.Context, mode string) (*export.File, error) {
	structure, err := structureFor(mode)
	if err != nil {
		return nil, err
	}
	entries, err := s.entries.List(ctx, nil, models.TimetableEntryFilter{Days: structure.DayCodes()})
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load timetable")
	}
	classGroups, err := s.classes.List(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load class groups")
	}
	subjects, err := s.subjects.List(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load subjects")
	}
	teachers, err := s.teachers.List(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load teachers")
	}

	classNames := make(map[int64]string, len(classGroups))
	for _, cg := range classGroups {
		classNames[cg.ID] = cg.Name
	}
	subjectNames := make(map[int64]string, len(subjects))
	for _, subject := range subjects {
		subjectNames[subject.ID] = subject.Name
	}
	teacherNames := make(map[int64]string, len(teachers))
	for _, teacher := range teachers {
		teacherNames[teacher.ID] = teacher.FullName
	}

	grid := timetable.MasterGrid(entries, structure)
	slots := make([]timetable.SlotKey, 0, len(grid))
	for slot := range grid {
		slots = append(slots, slot)
	}
	sort.Slice(slots, func(i, j int) bool {
		a, b := slots[i], slots[j]
		if classNames[a.ClassGroupID] != classNames[b.ClassGroupID] {
			return classNames[a.ClassGroupID] < classNames[b.ClassGroupID]
		}
		if a.ClassGroupID != b.ClassGroupID {
			return a.ClassGroupID < b.ClassGroupID
		}
		if a.Day != b.Day {
			return a.Day.Ordinal() < b.Day.Ordinal()
		}
		return a.Start < b.Start
	})

	table := export.Table{Headers: []string{"class_group", "day", "start", "end", "subject", "teacher"}}
	for _, slot := range slots {
		for _, entry := range grid[slot] {
			table.Append(
				classNames[slot.ClassGroupID],
				string(slot.Day),
				slot.Start.String(),
				slot.End.String(),
				subjectNames[entry.SubjectID],
				teacherNames[entry.TeacherID],
			)
		}
	}
	file, err := s.exporter.CSVFile(table, fmt.Sprintf("timetable-%s", structure.Mode))
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to export timetable")
	}
	return file, nil
}
