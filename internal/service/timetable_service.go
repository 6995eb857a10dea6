package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/jmoiron/sqlx/types"
	"go.uber.org/zap"

	"github.com/shriyanssahoo/Byte-Me/internal/bundler"
	"github.com/shriyanssahoo/Byte-Me/internal/csvio"
	"github.com/shriyanssahoo/Byte-Me/internal/dto"
	"github.com/shriyanssahoo/Byte-Me/internal/models"
	"github.com/shriyanssahoo/Byte-Me/internal/scheduler"
	"github.com/shriyanssahoo/Byte-Me/internal/timegrid"
	appErrors "github.com/shriyanssahoo/Byte-Me/pkg/errors"
	"github.com/shriyanssahoo/Byte-Me/pkg/jobs"
)

type timetableRepository interface {
	CreateVersioned(ctx context.Context, exec sqlx.ExtContext, timetable *models.StoredTimetable) error
	InsertBookings(ctx context.Context, exec sqlx.ExtContext, bookings []models.StoredBooking) error
	ListByTerm(ctx context.Context, term string) ([]models.StoredTimetable, error)
	FindByID(ctx context.Context, id string) (*models.StoredTimetable, error)
	ListBookings(ctx context.Context, timetableID string) ([]models.StoredBooking, error)
	Delete(ctx context.Context, id string) error
	UpdateStatus(ctx context.Context, exec sqlx.ExtContext, id string, status models.TimetableStatus, meta types.JSONText) error
}

type txProvider interface {
	BeginTxx(ctx context.Context, opts *sql.TxOptions) (*sqlx.Tx, error)
}

type timetableProposal struct {
	ProposalID  string
	Term        string
	Timetable   *models.Timetable
	Rejected    []bundler.Rejected
	Violations  []models.Violation
	RequestedAt time.Time
}

type timetableProposalStore struct {
	ttl   time.Duration
	mu    sync.RWMutex
	items map[string]timetableProposal
}

func newTimetableProposalStore(ttl time.Duration) *timetableProposalStore {
	return &timetableProposalStore{ttl: ttl, items: make(map[string]timetableProposal)}
}

func (s *timetableProposalStore) Save(p timetableProposal) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.items[p.ProposalID] = p
}

func (s *timetableProposalStore) Get(id string) (timetableProposal, bool) {
	s.mu.RLock()
	p, ok := s.items[id]
	s.mu.RUnlock()
	if !ok {
		return timetableProposal{}, false
	}
	if time.Since(p.RequestedAt) > s.ttl {
		s.Delete(id)
		return timetableProposal{}, false
	}
	return p, true
}

func (s *timetableProposalStore) Delete(id string) {
	s.mu.Lock()
	delete(s.items, id)
	s.mu.Unlock()
}

// TimetableService runs the scheduling engine and persists accepted
// proposals as versioned timetables.
type TimetableService struct {
	repo      timetableRepository
	tx        txProvider
	grid      *timegrid.Grid
	schedCfg  scheduler.Config
	metrics   *MetricsService
	cache     *CacheService
	exports   *jobs.Queue
	validator *validator.Validate
	logger    *zap.Logger
	store     *timetableProposalStore
}

// TimetableServiceConfig governs proposal retention, the engine bounds and
// the optional collaborators.
type TimetableServiceConfig struct {
	ProposalTTL time.Duration
	Scheduler   scheduler.Config
	Cache       *CacheService
	Exports     *jobs.Queue
}

// ExportJob is the payload handed to the export queue after a save.
type ExportJob struct {
	TimetableID string
	Term        string
	Timetable   *models.Timetable
}

// NewTimetableService wires the engine dependencies.
func NewTimetableService(
	repo timetableRepository,
	tx txProvider,
	grid *timegrid.Grid,
	metrics *MetricsService,
	validate *validator.Validate,
	logger *zap.Logger,
	cfg TimetableServiceConfig,
) *TimetableService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.ProposalTTL <= 0 {
		cfg.ProposalTTL = 30 * time.Minute
	}
	if cfg.Scheduler.Days <= 0 {
		cfg.Scheduler = scheduler.DefaultConfig()
	}
	return &TimetableService{
		repo:      repo,
		tx:        tx,
		grid:      grid,
		schedCfg:  cfg.Scheduler,
		metrics:   metrics,
		cache:     cfg.Cache,
		exports:   cfg.Exports,
		validator: validate,
		logger:    logger,
		store:     newTimetableProposalStore(cfg.ProposalTTL),
	}
}

// Generate runs the full pipeline: bundle the catalog, place all sessions
// phase by phase, validate, and retain the result as an in-memory proposal.
func (s *TimetableService) Generate(ctx context.Context, req dto.GenerateTimetableRequest) (*dto.GenerateTimetableResponse, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid timetable generation payload")
	}
	start := time.Now()

	courses := coursesFromDTO(req.Courses)
	rooms := roomsFromDTO(req.Rooms)
	sections := sectionsFromDTO(req.Sections)

	bundled := bundler.New(s.grid, s.logger).Bundle(courses, sections, rooms)

	engine, err := scheduler.New(s.grid, rooms, s.schedCfg, s.logger)
	if err != nil {
		return nil, err
	}
	timetable, err := engine.Run(bundled)
	if err != nil {
		return nil, err
	}

	violations := scheduler.NewValidator(s.grid, rooms).Validate(timetable, bundled)

	proposal := timetableProposal{
		ProposalID:  uuid.NewString(),
		Term:        req.Term,
		Timetable:   timetable,
		Rejected:    bundled.Rejected,
		Violations:  violations,
		RequestedAt: time.Now().UTC(),
	}
	s.store.Save(proposal)

	s.metrics.ObserveScheduleRun(time.Since(start), len(timetable.Bookings), len(timetable.Unscheduled))
	s.logger.Info("timetable proposal generated",
		zap.String("proposal", proposal.ProposalID),
		zap.String("term", req.Term),
		zap.Int("bookings", len(timetable.Bookings)),
		zap.Int("unscheduled", len(timetable.Unscheduled)),
		zap.Int("violations", len(violations)))

	return s.proposalResponse(proposal), nil
}

// Save persists a proposal as the next timetable version for its term.
func (s *TimetableService) Save(ctx context.Context, req dto.SaveTimetableRequest) (string, error) {
	if err := s.validator.Struct(req); err != nil {
		return "", appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid save timetable payload")
	}
	proposal, ok := s.store.Get(req.ProposalID)
	if !ok {
		return "", appErrors.Clone(appErrors.ErrNotFound, "proposal not found or expired")
	}
	if len(proposal.Violations) > 0 {
		return "", appErrors.Clone(appErrors.ErrConflict, "proposal contains constraint violations")
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
		"bookings":    len(proposal.Timetable.Bookings),
		"unscheduled": len(proposal.Timetable.Unscheduled),
		"rejected":    len(proposal.Rejected),
	})
	if marshalErr != nil {
		err = appErrors.Wrap(marshalErr, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to encode timetable metadata")
		return "", err
	}

	record := &models.StoredTimetable{
		Term:   proposal.Term,
		Status: models.TimetableStatusDraft,
		Meta:   types.JSONText(metaBytes),
	}
	if err = s.repo.CreateVersioned(ctx, tx, record); err != nil {
		err = appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create timetable")
		return "", err
	}

	rows := make([]models.StoredBooking, 0, len(proposal.Timetable.Bookings))
	for _, b := range proposal.Timetable.Bookings {
		rows = append(rows, models.StoredBooking{
			TimetableID: record.ID,
			SessionID:   b.SessionID,
			CourseCode:  b.CourseCode,
			Session:     string(b.Session),
			Period:      string(b.Period),
			Day:         int(b.Day),
			SlotStart:   b.Slots.Start,
			SlotLength:  b.Slots.Length,
			Kind:        string(b.Kind),
			ResourceID:  b.ResourceID,
		})
	}
	if err = s.repo.InsertBookings(ctx, tx, rows); err != nil {
		err = appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to persist bookings")
		return "", err
	}

	if req.Publish {
		if err = s.repo.UpdateStatus(ctx, tx, record.ID, models.TimetableStatusPublished, nil); err != nil {
			err = appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to publish timetable")
			return "", err
		}
	}

	if err = tx.Commit(); err != nil {
		err = appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to commit timetable transaction")
		return "", err
	}

	s.store.Delete(req.ProposalID)
	_ = s.cache.Invalidate(ctx, "timetable:"+proposal.Term+":*")

	if s.exports != nil {
		if enqueueErr := s.exports.Enqueue(jobs.Job{
			ID:      record.ID,
			Type:    "timetable.export",
			Payload: ExportJob{TimetableID: record.ID, Term: proposal.Term, Timetable: proposal.Timetable},
		}); enqueueErr != nil {
			s.logger.Warn("failed to enqueue timetable export", zap.String("timetable", record.ID), zap.Error(enqueueErr))
		}
	}
	return record.ID, nil
}

// List returns stored timetable versions for a term.
func (s *TimetableService) List(ctx context.Context, query dto.TimetableQuery) ([]models.StoredTimetable, error) {
	if query.Term == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "term is required")
	}
	list, err := s.repo.ListByTerm(ctx, query.Term)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list timetables")
	}
	return list, nil
}

// GetBookings returns booking rows of one stored timetable.
func (s *TimetableService) GetBookings(ctx context.Context, timetableID string) ([]models.StoredBooking, error) {
	if timetableID == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "timetable id is required")
	}
	record, err := s.repo.FindByID(ctx, timetableID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "timetable not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load timetable")
	}

	cacheKey := bookingsCacheKey(record.Term, timetableID)
	var bookings []models.StoredBooking
	if hit, _ := s.cache.Get(ctx, cacheKey, &bookings); hit {
		return bookings, nil
	}

	bookings, err = s.repo.ListBookings(ctx, timetableID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list bookings")
	}
	_ = s.cache.Set(ctx, cacheKey, bookings, 0)
	return bookings, nil
}

// Delete removes a draft timetable version.
func (s *TimetableService) Delete(ctx context.Context, timetableID string) error {
	record, err := s.repo.FindByID(ctx, timetableID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "timetable not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load timetable")
	}
	if record.Status != models.TimetableStatusDraft {
		return appErrors.Clone(appErrors.ErrConflict, "only draft timetables can be deleted")
	}
	if err := s.repo.Delete(ctx, timetableID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "timetable not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete timetable")
	}
	_ = s.cache.Invalidate(ctx, bookingsCacheKey(record.Term, timetableID))
	return nil
}

func bookingsCacheKey(term, timetableID string) string {
	return "timetable:" + term + ":bookings:" + timetableID
}

// ExportCSV renders a retained proposal as CSV.
func (s *TimetableService) ExportCSV(proposalID string) (string, error) {
	p, ok := s.store.Get(proposalID)
	if !ok {
		return "", appErrors.Clone(appErrors.ErrNotFound, "proposal not found or expired")
	}
	out, err := csvio.TimetableCSV(p.Timetable, s.grid)
	if err != nil {
		return "", appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render timetable csv")
	}
	return out, nil
}

// Proposal returns a retained proposal for export or inspection.
func (s *TimetableService) Proposal(id string) (*models.Timetable, bool) {
	p, ok := s.store.Get(id)
	if !ok {
		return nil, false
	}
	return p.Timetable, true
}

func (s *TimetableService) proposalResponse(p timetableProposal) *dto.GenerateTimetableResponse {
	resp := &dto.GenerateTimetableResponse{
		ProposalID: p.ProposalID,
		Term:       p.Term,
	}
	for _, b := range p.Timetable.Bookings {
		resp.Bookings = append(resp.Bookings, dto.BookingView{
			SessionID:  b.SessionID,
			CourseCode: b.CourseCode,
			Session:    string(b.Session),
			Period:     string(b.Period),
			Day:        b.Day.String(),
			Start:      s.grid.SlotClock(b.Slots.Start),
			End:        s.grid.SlotClock(b.Slots.End()),
			Kind:       string(b.Kind),
			ResourceID: b.ResourceID,
			State:      string(b.State),
			Basket:     b.Basket,
		})
	}
	for _, u := range p.Timetable.Unscheduled {
		resp.Unscheduled = append(resp.Unscheduled, dto.UnscheduledView{
			CourseCode: u.CourseCode,
			SectionID:  u.SectionID,
			Session:    string(u.Session),
			Period:     string(u.Period),
			Reason:     u.Reason,
		})
	}
	for _, r := range p.Rejected {
		resp.Rejected = append(resp.Rejected, dto.RejectedCourseView{
			CourseCode: r.CourseCode,
			Reason:     r.Err.Error(),
		})
	}
	for _, v := range p.Violations {
		resp.Violations = append(resp.Violations, dto.ViolationView{
			Kind:       v.Kind,
			CourseCode: v.CourseCode,
			ResourceID: v.ResourceID,
			Day:        v.Day.String(),
			Detail:     v.Detail,
		})
	}
	return resp
}

func coursesFromDTO(in []dto.CourseInput) []models.Course {
	out := make([]models.Course, 0, len(in))
	for _, c := range in {
		period := models.Period(c.Period)
		if period == "" {
			period = models.PeriodFull
		}
		out = append(out, models.Course{
			Code:         c.Code,
			Name:         c.Name,
			Department:   c.Department,
			Semester:     c.Semester,
			LTPSC:        c.LTPSC,
			Credits:      c.Credits,
			Instructors:  c.Instructors,
			Enrolled:     c.Enrolled,
			Elective:     c.Elective,
			HalfSemester: c.HalfSemester,
			Combined:     c.Combined,
			Period:       period,
			Basket:       c.Basket,
		})
	}
	return out
}

func roomsFromDTO(in []dto.RoomInput) []models.Room {
	out := make([]models.Room, 0, len(in))
	for _, r := range in {
		out = append(out, models.Room{
			ID:         r.ID,
			Type:       models.RoomType(r.Type),
			Capacity:   r.Capacity,
			Facilities: r.Facilities,
		})
	}
	return out
}

func sectionsFromDTO(in []dto.SectionInput) []models.Section {
	out := make([]models.Section, 0, len(in))
	for _, s := range in {
		out = append(out, models.Section{
			ID:         s.ID,
			Department: s.Department,
			Semester:   s.Semester,
			Label:      s.Label,
			Strength:   s.Strength,
		})
	}
	return out
}
