package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/shriyanssahoo/Byte-Me/internal/dto"
	"github.com/shriyanssahoo/Byte-Me/internal/models"
	"github.com/shriyanssahoo/Byte-Me/internal/service"
	appErrors "github.com/shriyanssahoo/Byte-Me/pkg/errors"
	"github.com/shriyanssahoo/Byte-Me/pkg/response"
)

type examAllocator interface {
	Generate(ctx context.Context, req dto.GenerateExamScheduleRequest) (*dto.GenerateExamScheduleResponse, error)
	Save(ctx context.Context, req dto.SaveExamScheduleRequest) (string, error)
	List(ctx context.Context, query dto.ExamScheduleQuery) ([]models.StoredExamSchedule, error)
	GetSittings(ctx context.Context, scheduleID string) ([]models.StoredExamSitting, error)
	Delete(ctx context.Context, scheduleID string) error
	ExportCSV(proposalID string) (string, error)
}

// ExamHandler exposes exam scheduling endpoints.
type ExamHandler struct {
	service examAllocator
}

// NewExamHandler constructs the handler.
func NewExamHandler(svc *service.ExamService) *ExamHandler {
	return &ExamHandler{service: svc}
}

// Generate builds an exam calendar proposal without persisting it.
func (h *ExamHandler) Generate(c *gin.Context) {
	var req dto.GenerateExamScheduleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid generate payload"))
		return
	}
	result, err := h.service.Generate(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, result, nil)
}

// Save persists a proposal as the next exam schedule version.
func (h *ExamHandler) Save(c *gin.Context) {
	var req dto.SaveExamScheduleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid save payload"))
		return
	}
	id, err := h.service.Save(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, gin.H{"examScheduleId": id})
}

// List returns stored exam schedule versions for a term.
func (h *ExamHandler) List(c *gin.Context) {
	query := dto.ExamScheduleQuery{Term: c.Query("term")}
	result, err := h.service.List(c.Request.Context(), query)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, result, nil)
}

// Sittings returns the sitting rows of one stored exam schedule.
func (h *ExamHandler) Sittings(c *gin.Context) {
	sittings, err := h.service.GetSittings(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, sittings, nil)
}

// Delete removes a draft exam schedule version.
func (h *ExamHandler) Delete(c *gin.Context) {
	if err := h.service.Delete(c.Request.Context(), c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// Export streams a retained proposal's exam calendar as CSV.
func (h *ExamHandler) Export(c *gin.Context) {
	out, err := h.service.ExportCSV(c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	c.Header("Content-Disposition", `attachment; filename="exam-schedule.csv"`)
	c.Data(http.StatusOK, "text/csv", []byte(out))
}
