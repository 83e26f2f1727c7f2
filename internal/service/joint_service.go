package service

import (
	"context"
	"database/sql"
	"errors"
	"sort"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	"github.com/noah-isme/sma-timetable-api/internal/dto"
	"github.com/noah-isme/sma-timetable-api/internal/models"
	"github.com/noah-isme/sma-timetable-api/pkg/database"
	appErrors "github.com/noah-isme/sma-timetable-api/pkg/errors"
)

type jointConfigStore interface {
	jointConfigReader
	UpsertSubject(ctx context.Context, subject *models.JointSubject) error
	FindSet(ctx context.Context, id string) (*models.JointClassGroupSet, error)
	NameExists(ctx context.Context, name, excludeID string) (bool, error)
	CreateSet(ctx context.Context, exec sqlx.ExtContext, set *models.JointClassGroupSet) error
	UpdateSet(ctx context.Context, exec sqlx.ExtContext, set *models.JointClassGroupSet) error
	ReplaceMembers(ctx context.Context, exec sqlx.ExtContext, setID string, classGroupIDs []int64) error
	DeleteSet(ctx context.Context, exec sqlx.ExtContext, id string) error
}

type subjectFinder interface {
	FindByID(ctx context.Context, id int64) (*models.Subject, error)
}

// JointConfigService manages joint subjects and joint class group sets.
type JointConfigService struct {
	store     jointConfigStore
	subjects  subjectFinder
	classes   classGroupReader
	tx        txProvider
	validator *validator.Validate
	logger    *zap.Logger
}

// NewJointConfigService constructs the service.
func NewJointConfigService(store jointConfigStore, subjects subjectFinder, classes classGroupReader, tx txProvider, validate *validator.Validate, logger *zap.Logger) *JointConfigService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &JointConfigService{store: store, subjects: subjects, classes: classes, tx: tx, validator: validate, logger: logger}
}

// ListSubjects returns every configured joint subject, active or not.
func (s *JointConfigService) ListSubjects(ctx context.Context) ([]models.JointSubject, error) {
	subjects, err := s.store.ListSubjects(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list joint subjects")
	}
	return subjects, nil
}

// SetSubject marks a subject as joint or not.
func (s *JointConfigService) SetSubject(ctx context.Context, subjectID int64, req dto.UpdateJointSubjectRequest) (*models.JointSubject, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid payload")
	}
	subject, err := s.subjects.FindByID(ctx, subjectID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "subject not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load subject")
	}
	joint := &models.JointSubject{SubjectID: subject.ID, SubjectName: subject.Name, Active: *req.Active}
	if err := s.store.UpsertSubject(ctx, joint); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update joint subject")
	}
	s.logger.Info("joint subject updated", zap.Int64("subject_id", subject.ID), zap.Bool("active", joint.Active))
	return joint, nil
}

// ListSets returns all joint class group sets with members.
func (s *JointConfigService) ListSets(ctx context.Context) ([]models.JointClassGroupSet, error) {
	sets, err := s.store.ListSets(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list joint class group sets")
	}
	return sets, nil
}

// GetSet returns one set.
func (s *JointConfigService) GetSet(ctx context.Context, id string) (*models.JointClassGroupSet, error) {
	set, err := s.store.FindSet(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "joint class group set not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load joint class group set")
	}
	return set, nil
}

// CreateSet stores a new set and its members in one transaction.
func (s *JointConfigService) CreateSet(ctx context.Context, req dto.JointSetRequest) (*models.JointClassGroupSet, error) {
	set, err := s.prepareSet(ctx, "", req)
	if err != nil {
		return nil, err
	}
	err = database.WithTx(ctx, s.tx, func(tx *sqlx.Tx) error {
		if err := s.store.CreateSet(ctx, tx, set); err != nil {
			return err
		}
		return s.store.ReplaceMembers(ctx, tx, set.ID, set.ClassGroupIDs)
	})
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create joint class group set")
	}
	s.logger.Info("joint class group set created", zap.String("set_id", set.ID), zap.String("name", set.Name), zap.Int64s("class_group_ids", set.ClassGroupIDs))
	return set, nil
}

// UpdateSet renames, toggles and replaces the members of a set.
func (s *JointConfigService) UpdateSet(ctx context.Context, id string, req dto.JointSetRequest) (*models.JointClassGroupSet, error) {
	existing, err := s.GetSet(ctx, id)
	if err != nil {
		return nil, err
	}
	if req.Active == nil {
		active := existing.Active
		req.Active = &active
	}
	set, err := s.prepareSet(ctx, id, req)
	if err != nil {
		return nil, err
	}
	set.CreatedAt = existing.CreatedAt
	err = database.WithTx(ctx, s.tx, func(tx *sqlx.Tx) error {
		if err := s.store.UpdateSet(ctx, tx, set); err != nil {
			return err
		}
		return s.store.ReplaceMembers(ctx, tx, set.ID, set.ClassGroupIDs)
	})
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "joint class group set not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update joint class group set")
	}
	s.logger.Info("joint class group set updated", zap.String("set_id", set.ID), zap.Int64s("class_group_ids", set.ClassGroupIDs))
	return set, nil
}

// DeleteSet removes a set and its members.
func (s *JointConfigService) DeleteSet(ctx context.Context, id string) error {
	err := database.WithTx(ctx, s.tx, func(tx *sqlx.Tx) error {
		return s.store.DeleteSet(ctx, tx, id)
	})
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "joint class group set not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete joint class group set")
	}
	s.logger.Info("joint class group set deleted", zap.String("set_id", id))
	return nil
}

func (s *JointConfigService) prepareSet(ctx context.Context, id string, req dto.JointSetRequest) (*models.JointClassGroupSet, error) {
	req.Name = strings.TrimSpace(req.Name)
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid payload")
	}

	members := make([]int64, 0, len(req.ClassGroupIDs))
	seen := make(map[int64]struct{}, len(req.ClassGroupIDs))
	for _, cg := range req.ClassGroupIDs {
		if _, ok := seen[cg]; ok {
			continue
		}
		seen[cg] = struct{}{}
		members = append(members, cg)
	}
	sort.Slice(members, func(i, j int) bool { return members[i] < members[j] })

	existing, err := s.classes.ExistingIDs(ctx, members)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load class groups")
	}
	if len(existing) != len(members) {
		return nil, appErrors.Clone(appErrors.ErrValidation, "joint set references unknown class groups")
	}

	taken, err := s.store.NameExists(ctx, req.Name, id)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check joint set name")
	}
	if taken {
		return nil, appErrors.Clone(appErrors.ErrConflict, "joint class group set name already exists")
	}

	active := true
	if req.Active != nil {
		active = *req.Active
	}
	return &models.JointClassGroupSet{ID: id, Name: req.Name, Active: active, ClassGroupIDs: members}, nil
}
