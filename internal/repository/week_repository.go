package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/sma-timetable-api/internal/models"
)

// WeekRepository persists teaching weeks.
type WeekRepository struct {
	db *sqlx.DB
}

// NewWeekRepository constructs a WeekRepository.
func NewWeekRepository(db *sqlx.DB) *WeekRepository {
	return &WeekRepository{db: db}
}

// List returns weeks ordered by number.
func (r *WeekRepository) List(ctx context.Context) ([]models.Week, error) {
	const query = `SELECT id, number, start_date, end_date, created_at FROM weeks ORDER BY number ASC, start_date ASC`
	var weeks []models.Week
	if err := r.db.SelectContext(ctx, &weeks, query); err != nil {
		return nil, fmt.Errorf("list weeks: %w", err)
	}
	return weeks, nil
}

// FindByID fetches a week by ID.
func (r *WeekRepository) FindByID(ctx context.Context, id string) (*models.Week, error) {
	const query = `SELECT id, number, start_date, end_date, created_at FROM weeks WHERE id = $1`
	var week models.Week
	if err := r.db.GetContext(ctx, &week, query, id); err != nil {
		return nil, err
	}
	return &week, nil
}

// Create inserts a week.
func (r *WeekRepository) Create(ctx context.Context, week *models.Week) error {
	if week.ID == "" {
		week.ID = uuid.NewString()
	}
	week.CreatedAt = time.Now().UTC()
	const query = `
INSERT INTO weeks (id, number, start_date, end_date, created_at)
VALUES (:id, :number, :start_date, :end_date, :created_at)`
	if _, err := r.db.NamedExecContext(ctx, query, week); err != nil {
		return fmt.Errorf("create week: %w", err)
	}
	return nil
}
