package service

import (
	"context"
	"database/sql"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/jmoiron/sqlx/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shriyanssahoo/Byte-Me/internal/dto"
	"github.com/shriyanssahoo/Byte-Me/internal/models"
	"github.com/shriyanssahoo/Byte-Me/internal/timegrid"
	appErrors "github.com/shriyanssahoo/Byte-Me/pkg/errors"
)

type timetableRepoStub struct {
	timetables map[string]*models.StoredTimetable
	bookings   map[string][]models.StoredBooking
	createErr  error
}

func newTimetableRepoStub() *timetableRepoStub {
	return &timetableRepoStub{
		timetables: make(map[string]*models.StoredTimetable),
		bookings:   make(map[string][]models.StoredBooking),
	}
}

func (s *timetableRepoStub) CreateVersioned(ctx context.Context, exec sqlx.ExtContext, timetable *models.StoredTimetable) error {
	if s.createErr != nil {
		return s.createErr
	}
	timetable.ID = uuid.NewString()
	timetable.Version = len(s.timetables) + 1
	s.timetables[timetable.ID] = timetable
	return nil
}

func (s *timetableRepoStub) InsertBookings(ctx context.Context, exec sqlx.ExtContext, bookings []models.StoredBooking) error {
	for _, b := range bookings {
		s.bookings[b.TimetableID] = append(s.bookings[b.TimetableID], b)
	}
	return nil
}

func (s *timetableRepoStub) ListByTerm(ctx context.Context, term string) ([]models.StoredTimetable, error) {
	var out []models.StoredTimetable
	for _, t := range s.timetables {
		if t.Term == term {
			out = append(out, *t)
		}
	}
	return out, nil
}

func (s *timetableRepoStub) FindByID(ctx context.Context, id string) (*models.StoredTimetable, error) {
	t, ok := s.timetables[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return t, nil
}

func (s *timetableRepoStub) ListBookings(ctx context.Context, timetableID string) ([]models.StoredBooking, error) {
	return s.bookings[timetableID], nil
}

func (s *timetableRepoStub) Delete(ctx context.Context, id string) error {
	if _, ok := s.timetables[id]; !ok {
		return sql.ErrNoRows
	}
	delete(s.timetables, id)
	delete(s.bookings, id)
	return nil
}

func (s *timetableRepoStub) UpdateStatus(ctx context.Context, exec sqlx.ExtContext, id string, status models.TimetableStatus, meta types.JSONText) error {
	t, ok := s.timetables[id]
	if !ok {
		return sql.ErrNoRows
	}
	t.Status = status
	return nil
}

type txProviderMock struct {
	db *sqlx.DB
}

func (t *txProviderMock) BeginTxx(ctx context.Context, opts *sql.TxOptions) (*sqlx.Tx, error) {
	return t.db.BeginTxx(ctx, opts)
}

func newTxProviderMock(t *testing.T) (txProvider, sqlmock.Sqlmock) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	sqlxdb := sqlx.NewDb(db, "sqlmock")
	t.Cleanup(func() { db.Close() })
	return &txProviderMock{db: sqlxdb}, mock
}

func testGrid(t *testing.T) *timegrid.Grid {
	grid, err := timegrid.New(timegrid.DefaultConfig())
	require.NoError(t, err)
	return grid
}

func generateRequest() dto.GenerateTimetableRequest {
	return dto.GenerateTimetableRequest{
		Term: "2026-monsoon",
		Courses: []dto.CourseInput{
			{Code: "CS101", Name: "Programming", Department: "CSE", Semester: 1, LTPSC: "3-1-0-0-4", Credits: 4, Instructors: []string{"F1"}, Enrolled: 60, Period: "FULL"},
		},
		Rooms: []dto.RoomInput{
			{ID: "C-101", Type: "classroom", Capacity: 80},
			{ID: "L-101", Type: "lab", Capacity: 80},
		},
		Sections: []dto.SectionInput{
			{ID: "CSE-1-A", Department: "CSE", Semester: 1, Label: "A", Strength: 60},
		},
	}
}

func newTimetableServiceFixture(t *testing.T, repo timetableRepository, tx txProvider) *TimetableService {
	return NewTimetableService(repo, tx, testGrid(t), NewMetricsService(), nil, nil, TimetableServiceConfig{})
}

func TestTimetableServiceGenerateSuccess(t *testing.T) {
	service := newTimetableServiceFixture(t, newTimetableRepoStub(), nil)

	resp, err := service.Generate(context.Background(), generateRequest())
	require.NoError(t, err)
	assert.NotEmpty(t, resp.ProposalID)
	assert.NotEmpty(t, resp.Bookings)
	assert.Empty(t, resp.Unscheduled)
	assert.Empty(t, resp.Rejected)
	assert.Empty(t, resp.Violations)
}

func TestTimetableServiceGenerateValidatesPayload(t *testing.T) {
	service := newTimetableServiceFixture(t, newTimetableRepoStub(), nil)

	_, err := service.Generate(context.Background(), dto.GenerateTimetableRequest{})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestTimetableServiceGenerateReportsRejectedCourses(t *testing.T) {
	service := newTimetableServiceFixture(t, newTimetableRepoStub(), nil)

	req := generateRequest()
	req.Courses = append(req.Courses, dto.CourseInput{
		Code: "BAD", Name: "Bad", Department: "CSE", Semester: 1,
		LTPSC: "oops", Credits: 3, Instructors: []string{"F2"}, Enrolled: 10,
	})

	resp, err := service.Generate(context.Background(), req)
	require.NoError(t, err)
	require.Len(t, resp.Rejected, 1)
	assert.Equal(t, "BAD", resp.Rejected[0].CourseCode)
}

func TestTimetableServiceSaveDraft(t *testing.T) {
	repo := newTimetableRepoStub()
	tx, mock := newTxProviderMock(t)
	service := newTimetableServiceFixture(t, repo, tx)

	resp, err := service.Generate(context.Background(), generateRequest())
	require.NoError(t, err)

	mock.ExpectBegin()
	mock.ExpectCommit()

	id, err := service.Save(context.Background(), dto.SaveTimetableRequest{ProposalID: resp.ProposalID})
	require.NoError(t, err)
	assert.NotEmpty(t, id)
	assert.Equal(t, models.TimetableStatusDraft, repo.timetables[id].Status)
	assert.Len(t, repo.bookings[id], len(resp.Bookings))
	assert.NoError(t, mock.ExpectationsWereMet())

	// proposal is consumed on save
	_, err = service.Save(context.Background(), dto.SaveTimetableRequest{ProposalID: resp.ProposalID})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}

func TestTimetableServiceSavePublishes(t *testing.T) {
	repo := newTimetableRepoStub()
	tx, mock := newTxProviderMock(t)
	service := newTimetableServiceFixture(t, repo, tx)

	resp, err := service.Generate(context.Background(), generateRequest())
	require.NoError(t, err)

	mock.ExpectBegin()
	mock.ExpectCommit()

	id, err := service.Save(context.Background(), dto.SaveTimetableRequest{ProposalID: resp.ProposalID, Publish: true})
	require.NoError(t, err)
	assert.Equal(t, models.TimetableStatusPublished, repo.timetables[id].Status)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTimetableServiceSaveUnknownProposal(t *testing.T) {
	tx, _ := newTxProviderMock(t)
	service := newTimetableServiceFixture(t, newTimetableRepoStub(), tx)

	_, err := service.Save(context.Background(), dto.SaveTimetableRequest{ProposalID: uuid.NewString()})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}

func TestTimetableServiceSaveRollsBackOnRepoError(t *testing.T) {
	repo := newTimetableRepoStub()
	repo.createErr = assert.AnError
	tx, mock := newTxProviderMock(t)
	service := newTimetableServiceFixture(t, repo, tx)

	resp, err := service.Generate(context.Background(), generateRequest())
	require.NoError(t, err)

	mock.ExpectBegin()
	mock.ExpectRollback()

	_, err = service.Save(context.Background(), dto.SaveTimetableRequest{ProposalID: resp.ProposalID})
	require.Error(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTimetableServiceDeleteDraftOnly(t *testing.T) {
	repo := newTimetableRepoStub()
	tx, mock := newTxProviderMock(t)
	service := newTimetableServiceFixture(t, repo, tx)

	resp, err := service.Generate(context.Background(), generateRequest())
	require.NoError(t, err)

	mock.ExpectBegin()
	mock.ExpectCommit()
	id, err := service.Save(context.Background(), dto.SaveTimetableRequest{ProposalID: resp.ProposalID, Publish: true})
	require.NoError(t, err)

	err = service.Delete(context.Background(), id)
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrConflict.Code, appErrors.FromError(err).Code)

	repo.timetables[id].Status = models.TimetableStatusDraft
	require.NoError(t, service.Delete(context.Background(), id))
	_, err = service.GetBookings(context.Background(), id)
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}

func TestTimetableServiceProposalExpires(t *testing.T) {
	service := NewTimetableService(newTimetableRepoStub(), nil, testGrid(t), nil, nil, nil, TimetableServiceConfig{ProposalTTL: time.Nanosecond})

	resp, err := service.Generate(context.Background(), generateRequest())
	require.NoError(t, err)

	time.Sleep(time.Millisecond)
	_, ok := service.Proposal(resp.ProposalID)
	assert.False(t, ok)
}

func TestGenerateMirrorsFinalSemester(t *testing.T) {
	service := newTimetableServiceFixture(t, newTimetableRepoStub(), nil)

	// No explicit period on the catalog record: the final semester still
	// gets exactly one PRE pattern and its POST copy, with a clean
	// validation report.
	req := generateRequest()
	req.Courses = []dto.CourseInput{
		{Code: "CS701", Name: "Distributed Systems", Department: "CSE", Semester: 7, LTPSC: "3-0-0-0-3", Credits: 3, Instructors: []string{"F1"}, Enrolled: 40},
	}
	req.Sections = []dto.SectionInput{
		{ID: "CSE-7-A", Department: "CSE", Semester: 7, Label: "A", Strength: 40},
	}

	resp, err := service.Generate(context.Background(), req)
	require.NoError(t, err)

	var pre, post int
	for _, b := range resp.Bookings {
		if b.Kind != string(models.ResourceSection) {
			continue
		}
		switch b.Period {
		case string(models.PeriodPre):
			pre++
		case string(models.PeriodPost):
			post++
		}
	}
	assert.Equal(t, 2, pre)
	assert.Equal(t, 2, post)
	assert.Empty(t, resp.Violations)
	assert.Empty(t, resp.Unscheduled)
}
