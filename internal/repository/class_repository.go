package repository

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/noah-isme/sma-timetable-api/internal/models"
)

// ClassGroupRepository reads class groups.
type ClassGroupRepository struct {
	db *sqlx.DB
}

// NewClassGroupRepository constructs a ClassGroupRepository.
func NewClassGroupRepository(db *sqlx.DB) *ClassGroupRepository {
	return &ClassGroupRepository{db: db}
}

// List returns every class group ordered by name.
func (r *ClassGroupRepository) List(ctx context.Context) ([]models.ClassGroup, error) {
	const query = `SELECT id, name, class_teacher_id FROM class_groups ORDER BY name ASC, id ASC`
	var groups []models.ClassGroup
	if err := r.db.SelectContext(ctx, &groups, query); err != nil {
		return nil, fmt.Errorf("list class groups: %w", err)
	}
	return groups, nil
}

// ExistingIDs returns the subset of ids that exist.
func (r *ClassGroupRepository) ExistingIDs(ctx context.Context, ids []int64) ([]int64, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	const query = `SELECT id FROM class_groups WHERE id = ANY($1) ORDER BY id ASC`
	var found []int64
	if err := r.db.SelectContext(ctx, &found, query, pq.Array(ids)); err != nil {
		return nil, fmt.Errorf("lookup class groups: %w", err)
	}
	return found, nil
}
