package service

import (
	"context"
	"database/sql"
	"testing"

	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/sma-timetable-api/internal/dto"
	"github.com/noah-isme/sma-timetable-api/internal/models"
	appErrors "github.com/noah-isme/sma-timetable-api/pkg/errors"
)

type jointStoreStub struct {
	jointReaderStub
	upserted   []models.JointSubject
	created    []models.JointClassGroupSet
	updated    []models.JointClassGroupSet
	members    map[string][]int64
	deleted    []string
	takenNames map[string]bool
	membersErr error
}

func newJointStoreStub() *jointStoreStub {
	return &jointStoreStub{members: make(map[string][]int64), takenNames: make(map[string]bool)}
}

func (s *jointStoreStub) UpsertSubject(ctx context.Context, subject *models.JointSubject) error {
	s.upserted = append(s.upserted, *subject)
	return nil
}

func (s *jointStoreStub) FindSet(ctx context.Context, id string) (*models.JointClassGroupSet, error) {
	for _, set := range s.sets {
		if set.ID == id {
			found := set
			return &found, nil
		}
	}
	return nil, sql.ErrNoRows
}

func (s *jointStoreStub) NameExists(ctx context.Context, name, excludeID string) (bool, error) {
	return s.takenNames[name], nil
}

func (s *jointStoreStub) CreateSet(ctx context.Context, exec sqlx.ExtContext, set *models.JointClassGroupSet) error {
	set.ID = "set-new"
	s.created = append(s.created, *set)
	return nil
}

func (s *jointStoreStub) UpdateSet(ctx context.Context, exec sqlx.ExtContext, set *models.JointClassGroupSet) error {
	s.updated = append(s.updated, *set)
	return nil
}

func (s *jointStoreStub) ReplaceMembers(ctx context.Context, exec sqlx.ExtContext, setID string, classGroupIDs []int64) error {
	if s.membersErr != nil {
		return s.membersErr
	}
	s.members[setID] = classGroupIDs
	return nil
}

func (s *jointStoreStub) DeleteSet(ctx context.Context, exec sqlx.ExtContext, id string) error {
	if _, err := s.FindSet(ctx, id); err != nil {
		return err
	}
	s.deleted = append(s.deleted, id)
	return nil
}

type subjectFinderStub struct{}

func (subjectFinderStub) FindByID(ctx context.Context, id int64) (*models.Subject, error) {
	if id == subjectMath {
		return &models.Subject{ID: subjectMath, Name: "Math"}, nil
	}
	return nil, sql.ErrNoRows
}

func newJointFixture(t *testing.T) (*JointConfigService, *jointStoreStub, *txProviderMock) {
	t.Helper()
	tx, _ := newTxProviderMock(t)
	store := newJointStoreStub()
	classes := classGroupStub{groups: []models.ClassGroup{{ID: classF2N, Name: "F2 North"}, {ID: classF2S, Name: "F2 South"}}}
	svc := NewJointConfigService(store, subjectFinderStub{}, classes, tx, nil, nil)
	return svc, store, tx.(*txProviderMock)
}

func boolPtr(v bool) *bool { return &v }

func TestJointConfigServiceSetSubject(t *testing.T) {
	svc, store, _ := newJointFixture(t)

	subject, err := svc.SetSubject(context.Background(), subjectMath, dto.UpdateJointSubjectRequest{Active: boolPtr(true)})
	require.NoError(t, err)
	assert.Equal(t, "Math", subject.SubjectName)
	require.Len(t, store.upserted, 1)
	assert.True(t, store.upserted[0].Active)

	_, err = svc.SetSubject(context.Background(), 999, dto.UpdateJointSubjectRequest{Active: boolPtr(true)})
	assert.ErrorIs(t, err, appErrors.ErrNotFound)

	_, err = svc.SetSubject(context.Background(), subjectMath, dto.UpdateJointSubjectRequest{})
	assert.ErrorIs(t, err, appErrors.ErrValidation)
}

func TestJointConfigServiceCreateSet(t *testing.T) {
	svc, store, tx := newJointFixture(t)
	tx.mock.ExpectBegin()
	tx.mock.ExpectCommit()

	set, err := svc.CreateSet(context.Background(), dto.JointSetRequest{
		Name:          "  F2  ",
		ClassGroupIDs: []int64{classF2S, classF2N, classF2S},
	})
	require.NoError(t, err)
	assert.Equal(t, "set-new", set.ID)
	assert.Equal(t, "F2", set.Name)
	assert.True(t, set.Active)
	assert.Equal(t, []int64{classF2N, classF2S}, store.members["set-new"])
	assert.NoError(t, tx.mock.ExpectationsWereMet())
}

func TestJointConfigServiceCreateSetRejectsDuplicateNameAndUnknownGroups(t *testing.T) {
	svc, store, tx := newJointFixture(t)
	store.takenNames["F2"] = true

	_, err := svc.CreateSet(context.Background(), dto.JointSetRequest{Name: "F2", ClassGroupIDs: []int64{classF2N, classF2S}})
	assert.ErrorIs(t, err, appErrors.ErrConflict)

	_, err = svc.CreateSet(context.Background(), dto.JointSetRequest{Name: "F9", ClassGroupIDs: []int64{classF2N, 77}})
	assert.ErrorIs(t, err, appErrors.ErrValidation)

	_, err = svc.CreateSet(context.Background(), dto.JointSetRequest{Name: "", ClassGroupIDs: []int64{classF2N}})
	assert.ErrorIs(t, err, appErrors.ErrValidation)

	assert.Empty(t, store.created)
	assert.NoError(t, tx.mock.ExpectationsWereMet())
}

func TestJointConfigServiceCreateSetRollsBackOnMemberFailure(t *testing.T) {
	svc, store, tx := newJointFixture(t)
	store.membersErr = sql.ErrConnDone
	tx.mock.ExpectBegin()
	tx.mock.ExpectRollback()

	_, err := svc.CreateSet(context.Background(), dto.JointSetRequest{Name: "F2", ClassGroupIDs: []int64{classF2N, classF2S}})
	assert.ErrorIs(t, err, appErrors.ErrInternal)
	assert.NoError(t, tx.mock.ExpectationsWereMet())
}

func TestJointConfigServiceUpdateSetKeepsActiveFlag(t *testing.T) {
	svc, store, tx := newJointFixture(t)
	store.sets = []models.JointClassGroupSet{{ID: "set-1", Name: "F2", Active: false, ClassGroupIDs: []int64{classF2N}}}
	tx.mock.ExpectBegin()
	tx.mock.ExpectCommit()

	set, err := svc.UpdateSet(context.Background(), "set-1", dto.JointSetRequest{Name: "Form 2", ClassGroupIDs: []int64{classF2N, classF2S}})
	require.NoError(t, err)
	assert.False(t, set.Active)
	assert.Equal(t, "Form 2", store.updated[0].Name)
	assert.Equal(t, []int64{classF2N, classF2S}, store.members["set-1"])

	_, err = svc.UpdateSet(context.Background(), "missing", dto.JointSetRequest{Name: "X", ClassGroupIDs: []int64{classF2N}})
	assert.ErrorIs(t, err, appErrors.ErrNotFound)
	assert.NoError(t, tx.mock.ExpectationsWereMet())
}

func TestJointConfigServiceDeleteSet(t *testing.T) {
	svc, store, tx := newJointFixture(t)
	store.sets = []models.JointClassGroupSet{{ID: "set-1", Name: "F2"}}
	tx.mock.ExpectBegin()
	tx.mock.ExpectCommit()
	tx.mock.ExpectBegin()
	tx.mock.ExpectRollback()

	require.NoError(t, svc.DeleteSet(context.Background(), "set-1"))
	assert.Equal(t, []string{"set-1"}, store.deleted)

	err := svc.DeleteSet(context.Background(), "missing")
	assert.ErrorIs(t, err, appErrors.ErrNotFound)
	assert.NoError(t, tx.mock.ExpectationsWereMet())
}
