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

// TimetableRepository persists versioned weekly timetables and their booking
// rows.
type TimetableRepository struct {
	db *sqlx.DB
}

// NewTimetableRepository constructs repository.
func NewTimetableRepository(db *sqlx.DB) *TimetableRepository {
	return &TimetableRepository{db: db}
}

func (r *TimetableRepository) exec(exec sqlx.ExtContext) sqlx.ExtContext {
	if exec != nil {
		return exec
	}
	return r.db
}

// CreateVersioned inserts a timetable assigning the next version for the term.
func (r *TimetableRepository) CreateVersioned(ctx context.Context, exec sqlx.ExtContext, timetable *models.StoredTimetable) error {
	if timetable == nil {
		return fmt.Errorf("timetable payload is nil")
	}
	if timetable.Term == "" {
		return fmt.Errorf("term is required")
	}
	if timetable.ID == "" {
		timetable.ID = uuid.NewString()
	}
	if timetable.Status == "" {
		timetable.Status = models.TimetableStatusDraft
	}
	if len(timetable.Meta) == 0 {
		timetable.Meta = types.JSONText(`{}`)
	}
	now := time.Now().UTC()
	if timetable.CreatedAt.IsZero() {
		timetable.CreatedAt = now
	}
	timetable.UpdatedAt = now

	target := r.exec(exec)

	const nextVersionQuery = `SELECT COALESCE(MAX(version), 0) + 1 FROM timetables WHERE term = $1`
	if err := sqlx.GetContext(ctx, target, &timetable.Version, nextVersionQuery, timetable.Term); err != nil {
		return fmt.Errorf("compute next timetable version: %w", err)
	}

	const insertQuery = `
INSERT INTO timetables (id, term, version, status, meta, created_at, updated_at)
VALUES (:id, :term, :version, :status, :meta, :created_at, :updated_at)`
	if _, err := sqlx.NamedExecContext(ctx, target, insertQuery, timetable); err != nil {
		return fmt.Errorf("insert timetable: %w", err)
	}
	return nil
}

// InsertBookings persists the committed booking rows of one timetable.
func (r *TimetableRepository) InsertBookings(ctx context.Context, exec sqlx.ExtContext, bookings []models.StoredBooking) error {
	if len(bookings) == 0 {
		return nil
	}
	target := r.exec(exec)
	now := time.Now().UTC()
	for i := range bookings {
		if bookings[i].ID == "" {
			bookings[i].ID = uuid.NewString()
		}
		if bookings[i].CreatedAt.IsZero() {
			bookings[i].CreatedAt = now
		}
	}
	const query = `
INSERT INTO timetable_bookings (id, timetable_id, session_id, course_code, session_type, period, day, slot_start, slot_length, resource_kind, resource_id, created_at)
VALUES (:id, :timetable_id, :session_id, :course_code, :session_type, :period, :day, :slot_start, :slot_length, :resource_kind, :resource_id, :created_at)`
	if _, err := sqlx.NamedExecContext(ctx, target, query, bookings); err != nil {
		return fmt.Errorf("insert timetable bookings: %w", err)
	}
	return nil
}

// ListByTerm returns all stored versions for a term, newest first.
func (r *TimetableRepository) ListByTerm(ctx context.Context, term string) ([]models.StoredTimetable, error) {
	const query = `SELECT id, term, version, status, meta, created_at, updated_at
FROM timetables WHERE term = $1 ORDER BY version DESC`
	var timetables []models.StoredTimetable
	if err := r.db.SelectContext(ctx, &timetables, query, term); err != nil {
		return nil, fmt.Errorf("list timetables: %w", err)
	}
	return timetables, nil
}

// FindByID loads a timetable by its identifier.
func (r *TimetableRepository) FindByID(ctx context.Context, id string) (*models.StoredTimetable, error) {
	const query = `SELECT id, term, version, status, meta, created_at, updated_at FROM timetables WHERE id = $1`
	var timetable models.StoredTimetable
	if err := r.db.GetContext(ctx, &timetable, query, id); err != nil {
		return nil, err
	}
	return &timetable, nil
}

// ListBookings returns the booking rows of one stored timetable in a stable
// order.
func (r *TimetableRepository) ListBookings(ctx context.Context, timetableID string) ([]models.StoredBooking, error) {
	const query = `SELECT id, timetable_id, session_id, course_code, session_type, period, day, slot_start, slot_length, resource_kind, resource_id, created_at
FROM timetable_bookings WHERE timetable_id = $1 ORDER BY period, day, slot_start, resource_kind, resource_id`
	var bookings []models.StoredBooking
	if err := r.db.SelectContext(ctx, &bookings, query, timetableID); err != nil {
		return nil, fmt.Errorf("list timetable bookings: %w", err)
	}
	return bookings, nil
}

// Delete removes a stored timetable version and its bookings.
func (r *TimetableRepository) Delete(ctx context.Context, id string) error {
	const bookingsQuery = `DELETE FROM timetable_bookings WHERE timetable_id = $1`
	if _, err := r.db.ExecContext(ctx, bookingsQuery, id); err != nil {
		return fmt.Errorf("delete timetable bookings: %w", err)
	}
	const query = `DELETE FROM timetables WHERE id = $1`
	result, err := r.db.ExecContext(ctx, query, id)
	if err != nil {
		return fmt.Errorf("delete timetable: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("timetable rows affected: %w", err)
	}
	if affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// UpdateStatus updates the status (and optionally meta) of a timetable.
func (r *TimetableRepository) UpdateStatus(ctx context.Context, exec sqlx.ExtContext, id string, status models.TimetableStatus, meta types.JSONText) error {
	target := r.exec(exec)
	now := time.Now().UTC()

	var (
		query string
		args  []interface{}
	)
	if len(meta) > 0 {
		query = `UPDATE timetables SET status = $1, meta = $2, updated_at = $3 WHERE id = $4`
		args = []interface{}{status, meta, now, id}
	} else {
		query = `UPDATE timetables SET status = $1, updated_at = $2 WHERE id = $3`
		args = []interface{}{status, now, id}
	}
	result, err := target.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("update timetable status: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("timetable status rows affected: %w", err)
	}
	if affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}
