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

const timetableEntryColumns = "e.id, e.subject_id, e.teacher_id, e.day, e.start_time, e.end_time, e.created_at, e.updated_at"

// TimetableRepository persists timetable entries and their class group links.
type TimetableRepository struct {
	db *sqlx.DB
}

// NewTimetableRepository creates a new timetable repository.
func NewTimetableRepository(db *sqlx.DB) *TimetableRepository {
	return &TimetableRepository{db: db}
}

func (r *TimetableRepository) exec(exec sqlx.ExtContext) sqlx.ExtContext {
	if exec != nil {
		return exec
	}
	return r.db
}

// LockScope takes a transaction scoped advisory lock so concurrent edits of one timetable
// mode are serialised. It must run inside a transaction.
func (r *TimetableRepository) LockScope(ctx context.Context, exec sqlx.ExtContext, scope string) error {
	if _, err := r.exec(exec).ExecContext(ctx, "SELECT pg_advisory_xact_lock(hashtext($1))", "timetable:"+scope); err != nil {
		return fmt.Errorf("lock timetable scope %s: %w", scope, err)
	}
	return nil
}

// List returns entries matching the filter with their class group links loaded.
func (r *TimetableRepository) List(ctx context.Context, exec sqlx.ExtContext, filter models.TimetableEntryFilter) ([]models.TimetableEntry, error) {
	target := r.exec(exec)
	var conditions []string
	var args []interface{}

	if len(filter.Days) > 0 {
		conditions = append(conditions, fmt.Sprintf("e.day = ANY($%d)", len(args)+1))
		args = append(args, pq.Array(filter.Days))
	}
	if len(filter.ClassGroupIDs) > 0 {
		conditions = append(conditions, fmt.Sprintf("EXISTS (SELECT 1 FROM timetable_entry_class_groups l WHERE l.entry_id = e.id AND l.class_group_id = ANY($%d))", len(args)+1))
		args = append(args, pq.Array(filter.ClassGroupIDs))
	}
	if len(filter.TeacherIDs) > 0 {
		conditions = append(conditions, fmt.Sprintf("e.teacher_id = ANY($%d)", len(args)+1))
		args = append(args, pq.Array(filter.TeacherIDs))
	}

	query := fmt.Sprintf("SELECT %s FROM timetable_entries e", timetableEntryColumns)
	if len(conditions) > 0 {
		query += " WHERE " + strings.Join(conditions, " AND ")
	}
	query += " ORDER BY e.teacher_id ASC, e.day ASC, e.start_time ASC, e.subject_id ASC"

	var entries []models.TimetableEntry
	if err := sqlx.SelectContext(ctx, target, &entries, query, args...); err != nil {
		return nil, fmt.Errorf("list timetable entries: %w", err)
	}
	if err := r.attachLinks(ctx, target, entries); err != nil {
		return nil, err
	}
	return entries, nil
}

func (r *TimetableRepository) attachLinks(ctx context.Context, target sqlx.ExtContext, entries []models.TimetableEntry) error {
	if len(entries) == 0 {
		return nil
	}
	ids := make([]string, len(entries))
	index := make(map[string]int, len(entries))
	for i := range entries {
		ids[i] = entries[i].ID
		index[entries[i].ID] = i
		entries[i].ClassGroups = []models.EntryClassGroup{}
	}

	const query = `SELECT entry_id, class_group_id, sub_index FROM timetable_entry_class_groups
WHERE entry_id = ANY($1) ORDER BY entry_id ASC, class_group_id ASC`
	var links []models.EntryClassGroup
	if err := sqlx.SelectContext(ctx, target, &links, query, pq.Array(ids)); err != nil {
		return fmt.Errorf("list timetable entry class groups: %w", err)
	}
	for _, link := range links {
		if i, ok := index[link.EntryID]; ok {
			entries[i].ClassGroups = append(entries[i].ClassGroups, link)
		}
	}
	return nil
}

// Delete removes entries by id together with their links and lesson records.
func (r *TimetableRepository) Delete(ctx context.Context, exec sqlx.ExtContext, ids []string) error {
	if len(ids) == 0 {
		return nil
	}
	target := r.exec(exec)
	if _, err := target.ExecContext(ctx, "DELETE FROM lesson_records WHERE entry_id = ANY($1)", pq.Array(ids)); err != nil {
		return fmt.Errorf("delete lesson records: %w", err)
	}
	if _, err := target.ExecContext(ctx, "DELETE FROM timetable_entry_class_groups WHERE entry_id = ANY($1)", pq.Array(ids)); err != nil {
		return fmt.Errorf("delete timetable entry class groups: %w", err)
	}
	if _, err := target.ExecContext(ctx, "DELETE FROM timetable_entries WHERE id = ANY($1)", pq.Array(ids)); err != nil {
		return fmt.Errorf("delete timetable entries: %w", err)
	}
	return nil
}

// Insert stores new entries with their links, assigning ids and timestamps in place.
func (r *TimetableRepository) Insert(ctx context.Context, exec sqlx.ExtContext, entries []models.TimetableEntry) error {
	if len(entries) == 0 {
		return nil
	}
	target := r.exec(exec)
	now := time.Now().UTC()

	const entryQuery = `
INSERT INTO timetable_entries (id, subject_id, teacher_id, day, start_time, end_time, created_at, updated_at)
VALUES (:id, :subject_id, :teacher_id, :day, :start_time, :end_time, :created_at, :updated_at)`
	const linkQuery = `
INSERT INTO timetable_entry_class_groups (entry_id, class_group_id, sub_index)
VALUES (:entry_id, :class_group_id, :sub_index)`

	for i := range entries {
		entry := &entries[i]
		if entry.ID == "" {
			entry.ID = uuid.NewString()
		}
		entry.CreatedAt = now
		entry.UpdatedAt = now
		if _, err := sqlx.NamedExecContext(ctx, target, entryQuery, entry); err != nil {
			return fmt.Errorf("insert timetable entry: %w", err)
		}
		for j := range entry.ClassGroups {
			link := &entry.ClassGroups[j]
			link.EntryID = entry.ID
			if _, err := sqlx.NamedExecContext(ctx, target, linkQuery, link); err != nil {
				return fmt.Errorf("insert timetable entry class group: %w", err)
			}
		}
	}
	return nil
}
