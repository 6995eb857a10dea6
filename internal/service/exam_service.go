package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/jmoiron/sqlx/types"
	"go.uber.org/zap"

	"github.com/shriyanssahoo/Byte-Me/internal/csvio"
	"github.com/shriyanssahoo/Byte-Me/internal/dto"
	"github.com/shriyanssahoo/Byte-Me/internal/exam"
	"github.com/shriyanssahoo/Byte-Me/internal/models"
	appErrors "github.com/shriyanssahoo/Byte-Me/pkg/errors"
)

const examDateLayout = "2006-01-02"

type examScheduleRepository interface {
	CreateVersioned(ctx context.Context, exec sqlx.ExtContext, schedule *models.StoredExamSchedule) error
	InsertSittings(ctx context.Context, exec sqlx.ExtContext, sittings []models.StoredExamSitting) error
	ListByTerm(ctx context.Context, term string) ([]models.StoredExamSchedule, error)
	FindByID(ctx context.Context, id string) (*models.StoredExamSchedule, error)
	ListSittings(ctx context.Context, scheduleID string) ([]models.StoredExamSitting, error)
	Delete(ctx context.Context, id string) error
	UpdateStatus(ctx context.Context, exec sqlx.ExtContext, id string, status models.TimetableStatus, meta types.JSONText) error
}

type examProposal struct {
	ProposalID  string
	Term        string
	Schedule    *models.ExamSchedule
	RequestedAt time.Time
}

type examProposalStore struct {
	ttl   time.Duration
	mu    sync.RWMutex
	items map[string]examProposal
}

func newExamProposalStore(ttl time.Duration) *examProposalStore {
	return &examProposalStore{ttl: ttl, items: make(map[string]examProposal)}
}

func (s *examProposalStore) Save(p examProposal) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.items[p.ProposalID] = p
}

func (s *examProposalStore) Get(id string) (examProposal, bool) {
	s.mu.RLock()
	p, ok := s.items[id]
	s.mu.RUnlock()
	if !ok {
		return examProposal{}, false
	}
	if time.Since(p.RequestedAt) > s.ttl {
		s.Delete(id)
		return examProposal{}, false
	}
	return p, true
}

func (s *examProposalStore) Delete(id string) {
	s.mu.Lock()
	delete(s.items, id)
	s.mu.Unlock()
}

// ExamService runs the exam allocator and persists accepted calendars.
type ExamService struct {
	repo      examScheduleRepository
	tx        txProvider
	metrics   *MetricsService
	validator *validator.Validate
	logger    *zap.Logger
	store     *examProposalStore
}

// NewExamService wires the exam allocation dependencies.
func NewExamService(
	repo examScheduleRepository,
	tx txProvider,
	metrics *MetricsService,
	validate *validator.Validate,
	logger *zap.Logger,
	proposalTTL time.Duration,
) *ExamService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if proposalTTL <= 0 {
		proposalTTL = 30 * time.Minute
	}
	return &ExamService{
		repo:      repo,
		tx:        tx,
		metrics:   metrics,
		validator: validate,
		logger:    logger,
		store:     newExamProposalStore(proposalTTL),
	}
}

// Generate builds the exam calendar, seating plan and invigilation roster
// and retains the result as an in-memory proposal.
func (s *ExamService) Generate(ctx context.Context, req dto.GenerateExamScheduleRequest) (*dto.GenerateExamScheduleResponse, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid exam generation payload")
	}
	start := time.Now()

	windowStart, err := time.Parse(examDateLayout, req.WindowStart)
	if err != nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, "invalid exam window start date")
	}
	windowEnd, err := time.Parse(examDateLayout, req.WindowEnd)
	if err != nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, "invalid exam window end date")
	}

	pool := make([]models.Faculty, 0, len(req.Faculty))
	for _, id := range req.Faculty {
		pool = append(pool, models.Faculty{ID: id})
	}

	allocator, err := exam.New(exam.Config{
		WindowStart:      windowStart,
		WindowEnd:        windowEnd,
		MaxPerDay:        req.MaxPerDay,
		InvigilatorsPool: pool,
	}, examRoomsFromDTO(req.Rooms), s.logger)
	if err != nil {
		return nil, err
	}

	schedule, err := allocator.Allocate(coursesFromDTO(req.Courses), studentsFromDTO(req.Students))
	if err != nil {
		return nil, err
	}

	proposal := examProposal{
		ProposalID:  uuid.NewString(),
		Term:        req.Term,
		Schedule:    schedule,
		RequestedAt: time.Now().UTC(),
	}
	s.store.Save(proposal)

	s.metrics.ObserveExamRun(time.Since(start), len(schedule.Exams), len(schedule.Unscheduled))
	s.logger.Info("exam schedule proposal generated",
		zap.String("proposal", proposal.ProposalID),
		zap.String("term", req.Term),
		zap.Int("exams", len(schedule.Exams)),
		zap.Int("unscheduled", len(schedule.Unscheduled)))

	return examProposalResponse(proposal), nil
}

// Save persists a proposal as the next exam schedule version for its term.
func (s *ExamService) Save(ctx context.Context, req dto.SaveExamScheduleRequest) (string, error) {
	if err := s.validator.Struct(req); err != nil {
		return "", appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid save exam schedule payload")
	}
	proposal, ok := s.store.Get(req.ProposalID)
	if !ok {
		return "", appErrors.Clone(appErrors.ErrNotFound, "proposal not found or expired")
	}
	if s.tx == nil {
		return "", appErrors.Clone(appErrors.ErrInternal, "transaction provider missing")
	}

	tx, err := s.tx.BeginTxx(ctx, nil)
	if err != nil {
		return "", appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to begin transaction")
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	metaBytes, marshalErr := json.Marshal(map[string]any{
		"generated":   proposal.RequestedAt,
		"exams":       len(proposal.Schedule.Exams),
		"unscheduled": len(proposal.Schedule.Unscheduled),
	})
	if marshalErr != nil {
		err = appErrors.Wrap(marshalErr, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to encode exam metadata")
		return "", err
	}

	record := &models.StoredExamSchedule{
		Term:   proposal.Term,
		Status: models.TimetableStatusDraft,
		Meta:   types.JSONText(metaBytes),
	}
	if err = s.repo.CreateVersioned(ctx, tx, record); err != nil {
		err = appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create exam schedule")
		return "", err
	}

	rows := make([]models.StoredExamSitting, 0, len(proposal.Schedule.Exams))
	for _, e := range proposal.Schedule.Exams {
		ids := make([]string, 0, len(e.Rooms))
		for _, alloc := range e.Rooms {
			ids = append(ids, alloc.RoomID)
		}
		rows = append(rows, models.StoredExamSitting{
			ScheduleID: record.ID,
			CourseCode: e.CourseCode,
			ExamDate:   e.Slot.Date,
			Session:    string(e.Slot.Session),
			RoomIDs:    strings.Join(ids, ","),
		})
	}
	if err = s.repo.InsertSittings(ctx, tx, rows); err != nil {
		err = appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to persist exam sittings")
		return "", err
	}

	if req.Publish {
		if err = s.repo.UpdateStatus(ctx, tx, record.ID, models.TimetableStatusPublished, nil); err != nil {
			err = appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to publish exam schedule")
			return "", err
		}
	}

	if err = tx.Commit(); err != nil {
		err = appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to commit exam schedule transaction")
		return "", err
	}

	s.store.Delete(req.ProposalID)
	return record.ID, nil
}

// List returns stored exam schedule versions for a term.
func (s *ExamService) List(ctx context.Context, query dto.ExamScheduleQuery) ([]models.StoredExamSchedule, error) {
	if query.Term == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "term is required")
	}
	list, err := s.repo.ListByTerm(ctx, query.Term)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list exam schedules")
	}
	return list, nil
}

// GetSittings returns sitting rows of one stored exam schedule.
func (s *ExamService) GetSittings(ctx context.Context, scheduleID string) ([]models.StoredExamSitting, error) {
	if scheduleID == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "exam schedule id is required")
	}
	if _, err := s.repo.FindByID(ctx, scheduleID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "exam schedule not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load exam schedule")
	}
	sittings, err := s.repo.ListSittings(ctx, scheduleID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list exam sittings")
	}
	return sittings, nil
}

// Delete removes a draft exam schedule version.
func (s *ExamService) Delete(ctx context.Context, scheduleID string) error {
	record, err := s.repo.FindByID(ctx, scheduleID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "exam schedule not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load exam schedule")
	}
	if record.Status != models.TimetableStatusDraft {
		return appErrors.Clone(appErrors.ErrConflict, "only draft exam schedules can be deleted")
	}
	if err := s.repo.Delete(ctx, scheduleID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "exam schedule not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete exam schedule")
	}
	return nil
}

// ExportCSV renders a retained exam proposal as CSV.
func (s *ExamService) ExportCSV(proposalID string) (string, error) {
	p, ok := s.store.Get(proposalID)
	if !ok {
		return "", appErrors.Clone(appErrors.ErrNotFound, "proposal not found or expired")
	}
	out, err := csvio.ExamScheduleCSV(p.Schedule)
	if err != nil {
		return "", appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render exam schedule csv")
	}
	return out, nil
}

// Proposal returns a retained exam proposal for export or inspection.
func (s *ExamService) Proposal(id string) (*models.ExamSchedule, bool) {
	p, ok := s.store.Get(id)
	if !ok {
		return nil, false
	}
	return p.Schedule, true
}

func examProposalResponse(p examProposal) *dto.GenerateExamScheduleResponse {
	resp := &dto.GenerateExamScheduleResponse{
		ProposalID: p.ProposalID,
		Term:       p.Term,
	}
	for _, e := range p.Schedule.Exams {
		rooms := make([]string, 0, len(e.Rooms))
		for _, alloc := range e.Rooms {
			rooms = append(rooms, fmt.Sprintf("%s (%d)", alloc.RoomID, len(alloc.Rolls)))
		}
		resp.Exams = append(resp.Exams, dto.ExamView{
			CourseCode: e.CourseCode,
			Department: e.Department,
			Date:       e.Slot.Date.Format(examDateLayout),
			Session:    string(e.Slot.Session),
			Rooms:      rooms,
			Students:   len(e.Students),
		})
	}
	for _, seat := range p.Schedule.Seating {
		resp.Seating = append(resp.Seating, dto.SeatView{
			RoomID:     seat.RoomID,
			Column:     seat.Column,
			Row:        seat.Row,
			Roll:       seat.Roll,
			CourseCode: seat.CourseCode,
		})
	}
	for _, duty := range p.Schedule.Invigilations {
		resp.Invigilations = append(resp.Invigilations, dto.InvigilationView{
			RoomID:    duty.RoomID,
			Date:      duty.Slot.Date.Format(examDateLayout),
			Session:   string(duty.Slot.Session),
			FacultyID: duty.FacultyID,
		})
	}
	for _, u := range p.Schedule.Unscheduled {
		resp.Unscheduled = append(resp.Unscheduled, dto.UnscheduledExamView{
			CourseCode: u.CourseCode,
			Reason:     u.Reason,
		})
	}
	return resp
}

func examRoomsFromDTO(in []dto.ExamRoomInput) []models.ExamRoom {
	out := make([]models.ExamRoom, 0, len(in))
	for _, r := range in {
		out = append(out, models.ExamRoom{
			ID:       r.ID,
			Capacity: r.Capacity,
			Rows:     r.Rows,
			Columns:  r.Columns,
		})
	}
	return out
}

func studentsFromDTO(in []dto.StudentInput) []models.Student {
	out := make([]models.Student, 0, len(in))
	for _, s := range in {
		out = append(out, models.Student{
			Roll:       s.Roll,
			Name:       s.Name,
			Department: s.Department,
			Section:    s.Section,
			Semester:   s.Semester,
			Courses:    s.Courses,
		})
	}
	return out
}
