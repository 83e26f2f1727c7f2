package repository

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/sma-timetable-api/internal/models"
)

// SubjectRepository reads subjects and the subject/teacher pairs offered by the builder.
type SubjectRepository struct {
	db *sqlx.DB
}

// NewSubjectRepository constructs a SubjectRepository.
func NewSubjectRepository(db *sqlx.DB) *SubjectRepository {
	return &SubjectRepository{db: db}
}

// List returns subjects ordered by name.
func (r *SubjectRepository) List(ctx context.Context) ([]models.Subject, error) {
	const query = `SELECT id, name FROM subjects ORDER BY name ASC, id ASC`
	var subjects []models.Subject
	if err := r.db.SelectContext(ctx, &subjects, query); err != nil {
		return nil, fmt.Errorf("list subjects: %w", err)
	}
	return subjects, nil
}

// FindByID fetches a subject by ID.
func (r *SubjectRepository) FindByID(ctx context.Context, id int64) (*models.Subject, error) {
	const query = `SELECT id, name FROM subjects WHERE id = $1`
	var subject models.Subject
	if err := r.db.GetContext(ctx, &subject, query, id); err != nil {
		return nil, err
	}
	return &subject, nil
}

// ListPairs returns every subject combined with every active teacher.
func (r *SubjectRepository) ListPairs(ctx context.Context) ([]models.SubjectTeacher, error) {
	const query = `SELECT s.id AS subject_id, s.name AS subject_name, t.id AS teacher_id, t.full_name AS teacher_name
FROM subjects s CROSS JOIN teachers t
WHERE t.active = TRUE
ORDER BY s.name ASC, t.full_name ASC`
	var pairs []models.SubjectTeacher
	if err := r.db.SelectContext(ctx, &pairs, query); err != nil {
		return nil, fmt.Errorf("list subject teacher pairs: %w", err)
	}
	return pairs, nil
}
