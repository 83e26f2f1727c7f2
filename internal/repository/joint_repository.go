package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/noah-isme/sma-timetable-api/internal/models"
)

// JointRepository persists joint subjects and joint class group sets.
type JointRepository struct {
	db *sqlx.DB
}

// NewJointRepository constructs a JointRepository.
func NewJointRepository(db *sqlx.DB) *JointRepository {
	return &JointRepository{db: db}
}

func (r *JointRepository) exec(exec sqlx.ExtContext) sqlx.ExtContext {
	if exec != nil {
		return exec
	}
	return r.db
}

// ListSubjects returns configured joint subjects with their subject names.
func (r *JointRepository) ListSubjects(ctx context.Context) ([]models.JointSubject, error) {
	const query = `SELECT j.subject_id, s.name AS subject_name, j.active, j.updated_at
FROM joint_subjects j JOIN subjects s ON s.id = j.subject_id
ORDER BY s.name ASC`
	var subjects []models.JointSubject
	if err := r.db.SelectContext(ctx, &subjects, query); err != nil {
		return nil, fmt.Errorf("list joint subjects: %w", err)
	}
	return subjects, nil
}

// UpsertSubject sets the joint flag of a subject.
func (r *JointRepository) UpsertSubject(ctx context.Context, subject *models.JointSubject) error {
	subject.UpdatedAt = time.Now().UTC()
	const query = `
INSERT INTO joint_subjects (subject_id, active, updated_at)
VALUES (:subject_id, :active, :updated_at)
ON CONFLICT (subject_id) DO UPDATE
SET active = EXCLUDED.active,
    updated_at = EXCLUDED.updated_at`
	if _, err := r.db.NamedExecContext(ctx, query, subject); err != nil {
		return fmt.Errorf("upsert joint subject: %w", err)
	}
	return nil
}

// ListSets returns all sets with their members.
func (r *JointRepository) ListSets(ctx context.Context) ([]models.JointClassGroupSet, error) {
	const query = `SELECT id, name, active, created_at, updated_at FROM joint_class_group_sets ORDER BY name ASC`
	var sets []models.JointClassGroupSet
	if err := r.db.SelectContext(ctx, &sets, query); err != nil {
		return nil, fmt.Errorf("list joint class group sets: %w", err)
	}
	if err := r.attachMembers(ctx, r.db, sets); err != nil {
		return nil, err
	}
	return sets, nil
}

// FindSet fetches a set with members by id.
func (r *JointRepository) FindSet(ctx context.Context, id string) (*models.JointClassGroupSet, error) {
	const query = `SELECT id, name, active, created_at, updated_at FROM joint_class_group_sets WHERE id = $1`
	var set models.JointClassGroupSet
	if err := r.db.GetContext(ctx, &set, query, id); err != nil {
		return nil, err
	}
	sets := []models.JointClassGroupSet{set}
	if err := r.attachMembers(ctx, r.db, sets); err != nil {
		return nil, err
	}
	return &sets[0], nil
}

func (r *JointRepository) attachMembers(ctx context.Context, target sqlx.ExtContext, sets []models.JointClassGroupSet) error {
	if len(sets) == 0 {
		return nil
	}
	ids := make([]string, len(sets))
	index := make(map[string]int, len(sets))
	for i := range sets {
		ids[i] = sets[i].ID
		index[sets[i].ID] = i
		sets[i].ClassGroupIDs = []int64{}
	}
	const query = `SELECT set_id, class_group_id FROM joint_class_group_set_members WHERE set_id = ANY($1) ORDER BY set_id ASC, class_group_id ASC`
	var members []models.JointSetMember
	if err := sqlx.SelectContext(ctx, target, &members, query, pq.Array(ids)); err != nil {
		return fmt.Errorf("list joint class group set members: %w", err)
	}
	for _, m := range members {
		if i, ok := index[m.SetID]; ok {
			sets[i].ClassGroupIDs = append(sets[i].ClassGroupIDs, m.ClassGroupID)
		}
	}
	return nil
}

// NameExists checks whether another set already uses name.
func (r *JointRepository) NameExists(ctx context.Context, name, excludeID string) (bool, error) {
	query := "SELECT 1 FROM joint_class_group_sets WHERE LOWER(name) = LOWER($1)"
	args := []interface{}{name}
	if excludeID != "" {
		query += " AND id <> $2"
		args = append(args, excludeID)
	}
	var exists int
	if err := r.db.GetContext(ctx, &exists, query+" LIMIT 1", args...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return false, nil
		}
		return false, fmt.Errorf("check joint set name: %w", err)
	}
	return true, nil
}

// CreateSet inserts a set row; members are written with ReplaceMembers.
func (r *JointRepository) CreateSet(ctx context.Context, exec sqlx.ExtContext, set *models.JointClassGroupSet) error {
	if set.ID == "" {
		set.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	set.CreatedAt = now
	set.UpdatedAt = now
	const query = `
INSERT INTO joint_class_group_sets (id, name, active, created_at, updated_at)
VALUES (:id, :name, :active, :created_at, :updated_at)`
	if _, err := sqlx.NamedExecContext(ctx, r.exec(exec), query, set); err != nil {
		return fmt.Errorf("create joint class group set: %w", err)
	}
	return nil
}

// UpdateSet updates name and active flag.
func (r *JointRepository) UpdateSet(ctx context.Context, exec sqlx.ExtContext, set *models.JointClassGroupSet) error {
	set.UpdatedAt = time.Now().UTC()
	const query = `UPDATE joint_class_group_sets SET name = :name, active = :active, updated_at = :updated_at WHERE id = :id`
	res, err := sqlx.NamedExecContext(ctx, r.exec(exec), query, set)
	if err != nil {
		return fmt.Errorf("update joint class group set: %w", err)
	}
	if affected, err := res.RowsAffected(); err == nil && affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// ReplaceMembers rewrites the member list of a set.
func (r *JointRepository) ReplaceMembers(ctx context.Context, exec sqlx.ExtContext, setID string, classGroupIDs []int64) error {
	target := r.exec(exec)
	if _, err := target.ExecContext(ctx, "DELETE FROM joint_class_group_set_members WHERE set_id = $1", setID); err != nil {
		return fmt.Errorf("clear joint set members: %w", err)
	}
	for _, id := range classGroupIDs {
		if _, err := target.ExecContext(ctx, "INSERT INTO joint_class_group_set_members (set_id, class_group_id) VALUES ($1, $2)", setID, id); err != nil {
			return fmt.Errorf("insert joint set member: %w", err)
		}
	}
	return nil
}

// DeleteSet removes a set and its members.
func (r *JointRepository) DeleteSet(ctx context.Context, exec sqlx.ExtContext, id string) error {
	target := r.exec(exec)
	if _, err := target.ExecContext(ctx, "DELETE FROM joint_class_group_set_members WHERE set_id = $1", id); err != nil {
		return fmt.Errorf("delete joint set members: %w", err)
	}
	res, err := target.ExecContext(ctx, "DELETE FROM joint_class_group_sets WHERE id = $1", id)
	if err != nil {
		return fmt.Errorf("delete joint class group set: %w", err)
	}
	if affected, err := res.RowsAffected(); err == nil && affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}
