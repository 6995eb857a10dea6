package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/jmoiron/sqlx/types"

	"github.com/shriyanssahoo/Byte-Me/internal/models"
)

// ExamScheduleRepository persists versioned exam calendars and sittings.
type ExamScheduleRepository struct {
	db *sqlx.DB
}

// NewExamScheduleRepository constructs repository.
func NewExamScheduleRepository(db *sqlx.DB) *ExamScheduleRepository {
	return &ExamScheduleRepository{db: db}
}

func (r *ExamScheduleRepository) exec(exec sqlx.ExtContext) sqlx.ExtContext {
	if exec != nil {
		return exec
	}
	return r.db
}

// CreateVersioned inserts an exam schedule assigning the next version for the
// term.
func (r *ExamScheduleRepository) CreateVersioned(ctx context.Context, exec sqlx.ExtContext, schedule *models.StoredExamSchedule) error {
	if schedule == nil {
		return fmt.Errorf("exam schedule payload is nil")
	}
	if schedule.Term == "" {
		return fmt.Errorf("term is required")
	}
	if schedule.ID == "" {
		schedule.ID = uuid.NewString()
	}
	if schedule.Status == "" {
		schedule.Status = models.TimetableStatusDraft
	}
	if len(schedule.Meta) == 0 {
		schedule.Meta = types.JSONText(`{}`)
	}
	now := time.Now().UTC()
	if schedule.CreatedAt.IsZero() {
		schedule.CreatedAt = now
	}
	schedule.UpdatedAt = now

	target := r.exec(exec)

	const nextVersionQuery = `SELECT COALESCE(MAX(version), 0) + 1 FROM exam_schedules WHERE term = $1`
	if err := sqlx.GetContext(ctx, target, &schedule.Version, nextVersionQuery, schedule.Term); err != nil {
		return fmt.Errorf("compute next exam schedule version: %w", err)
	}

	const insertQuery = `
INSERT INTO exam_schedules (id, term, version, status, meta, created_at, updated_at)
VALUES (:id, :term, :version, :status, :meta, :created_at, :updated_at)`
	if _, err := sqlx.NamedExecContext(ctx, target, insertQuery, schedule); err != nil {
		return fmt.Errorf("insert exam schedule: %w", err)
	}
	return nil
}

// InsertSittings persists the course sittings of one exam schedule.
func (r *ExamScheduleRepository) InsertSittings(ctx context.Context, exec sqlx.ExtContext, sittings []models.StoredExamSitting) error {
	if len(sittings) == 0 {
		return nil
	}
	target := r.exec(exec)
	now := time.Now().UTC()
	for i := range sittings {
		if sittings[i].ID == "" {
			sittings[i].ID = uuid.NewString()
		}
		if sittings[i].CreatedAt.IsZero() {
			sittings[i].CreatedAt = now
		}
	}
	const query = `
INSERT INTO exam_sittings (id, schedule_id, course_code, exam_date, session, room_ids, created_at)
VALUES (:id, :schedule_id, :course_code, :exam_date, :session, :room_ids, :created_at)`
	if _, err := sqlx.NamedExecContext(ctx, target, query, sittings); err != nil {
		return fmt.Errorf("insert exam sittings: %w", err)
	}
	return nil
}

// ListByTerm returns all stored versions for a term, newest first.
func (r *ExamScheduleRepository) ListByTerm(ctx context.Context, term string) ([]models.StoredExamSchedule, error) {
	const query = `SELECT id, term, version, status, meta, created_at, updated_at
FROM exam_schedules WHERE term = $1 ORDER BY version DESC`
	var schedules []models.StoredExamSchedule
	if err := r.db.SelectContext(ctx, &schedules, query, term); err != nil {
		return nil, fmt.Errorf("list exam schedules: %w", err)
	}
	return schedules, nil
}

// FindByID loads an exam schedule by its identifier.
func (r *ExamScheduleRepository) FindByID(ctx context.Context, id string) (*models.StoredExamSchedule, error) {
	const query = `SELECT id, term, version, status, meta, created_at, updated_at FROM exam_schedules WHERE id = $1`
	var schedule models.StoredExamSchedule
	if err := r.db.GetContext(ctx, &schedule, query, id); err != nil {
		return nil, err
	}
	return &schedule, nil
}

// ListSittings returns the sittings of one stored exam schedule in calendar
// order.
func (r *ExamScheduleRepository) ListSittings(ctx context.Context, scheduleID string) ([]models.StoredExamSitting, error) {
	const query = `SELECT id, schedule_id, course_code, exam_date, session, room_ids, created_at
FROM exam_sittings WHERE schedule_id = $1 ORDER BY exam_date, session, course_code`
	var sittings []models.StoredExamSitting
	if err := r.db.SelectContext(ctx, &sittings, query, scheduleID); err != nil {
		return nil, fmt.Errorf("list exam sittings: %w", err)
	}
	return sittings, nil
}

// Delete removes a stored exam schedule version and its sittings.
func (r *ExamScheduleRepository) Delete(ctx context.Context, id string) error {
	const sittingsQuery = `DELETE FROM exam_sittings WHERE schedule_id = $1`
	if _, err := r.db.ExecContext(ctx, sittingsQuery, id); err != nil {
		return fmt.Errorf("delete exam sittings: %w", err)
	}
	const query = `DELETE FROM exam_schedules WHERE id = $1`
	result, err := r.db.ExecContext(ctx, query, id)
	if err != nil {
		return fmt.Errorf("delete exam schedule: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("exam schedule rows affected: %w", err)
	}
	if affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// UpdateStatus updates the status (and optionally meta) of an exam schedule.
func (r *ExamScheduleRepository) UpdateStatus(ctx context.Context, exec sqlx.ExtContext, id string, status models.TimetableStatus, meta types.JSONText) error {
	target := r.exec(exec)
	now := time.Now().UTC()

	var (
		query string
		args  []interface{}
	)
	if len(meta) > 0 {
		query = `UPDATE exam_schedules SET status = $1, meta = $2, updated_at = $3 WHERE id = $4`
		args = []interface{}{status, meta, now, id}
	} else {
		query = `UPDATE exam_schedules SET status = $1, updated_at = $2 WHERE id = $3`
		args = []interface{}{status, now, id}
	}
	result, err := target.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("update exam schedule status: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("exam schedule status rows affected: %w", err)
	}
	if affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}
