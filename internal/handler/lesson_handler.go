package handler

import (
	"context"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/sma-timetable-api/internal/dto"
	"github.com/noah-isme/sma-timetable-api/internal/models"
	"github.com/noah-isme/sma-timetable-api/internal/service"
	appErrors "github.com/noah-isme/sma-timetable-api/pkg/errors"
	"github.com/noah-isme/sma-timetable-api/pkg/response"
)

type lessonTracker interface {
	ListWeeks(ctx context.Context) ([]models.Week, error)
	CreateWeek(ctx context.Context, req dto.CreateWeekRequest) (*models.Week, error)
	Generate(ctx context.Context, req dto.GenerateLessonsRequest) (*dto.GenerateLessonsResponse, error)
	UpdateStatus(ctx context.Context, claims *models.JWTClaims, id string, req dto.UpdateLessonStatusRequest) (*models.LessonRecord, error)
	UpdatePayments(ctx context.Context, req dto.UpdatePaymentsRequest) (*dto.UpdatePaymentsResponse, error)
	Stats(ctx context.Context, query dto.LessonStatsQuery) (*dto.LessonStatsResponse, error)
	TeacherTimetable(ctx context.Context, teacherID int64, query dto.TeacherTimetableQuery) (*dto.TeacherTimetableResponse, error)
	MyTimetable(ctx context.Context, claims *models.JWTClaims, query dto.TeacherTimetableQuery) (*dto.TeacherTimetableResponse, error)
}

// LessonHandler serves weeks, lesson records and teacher timetables.
type LessonHandler struct {
	service lessonTracker
}

// NewLessonHandler constructs the handler.
func NewLessonHandler(svc *service.LessonService) *LessonHandler {
	return &LessonHandler{service: svc}
}

// ListWeeks godoc
// @Summary List teaching weeks
// @Tags Lessons
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /weeks [get]
func (h *LessonHandler) ListWeeks(c *gin.Context) {
	weeks, err := h.service.ListWeeks(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, weeks)
}

// CreateWeek godoc
// @Summary Create a teaching week
// @Tags Lessons
// @Accept json
// @Produce json
// @Param payload body dto.CreateWeekRequest true "Week"
// @Success 201 {object} response.Envelope
// @Router /weeks [post]
func (h *LessonHandler) CreateWeek(c *gin.Context) {
	var req dto.CreateWeekRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	week, err := h.service.CreateWeek(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, week)
}

// Generate godoc
// @Summary Generate lesson records for a week
// @Description Creates one pending record per timetable entry of the mode. Existing records are kept.
// @Tags Lessons
// @Accept json
// @Produce json
// @Param payload body dto.GenerateLessonsRequest true "Week and mode"
// @Success 200 {object} response.Envelope
// @Router /lessons/generate [post]
func (h *LessonHandler) Generate(c *gin.Context) {
	var req dto.GenerateLessonsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	result, err := h.service.Generate(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, result)
}

// UpdateStatus godoc
// @Summary Mark attendance of a lesson record
// @Tags Lessons
// @Accept json
// @Produce json
// @Param id path string true "Lesson record ID"
// @Param payload body dto.UpdateLessonStatusRequest true "Status"
// @Success 200 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Router /lessons/{id}/status [patch]
func (h *LessonHandler) UpdateStatus(c *gin.Context) {
	var req dto.UpdateLessonStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	record, err := h.service.UpdateStatus(c.Request.Context(), claimsFromContext(c), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, record)
}

// UpdatePayments godoc
// @Summary Bulk update lesson payment status
// @Tags Lessons
// @Accept json
// @Produce json
// @Param payload body dto.UpdatePaymentsRequest true "Records and status"
// @Success 200 {object} response.Envelope
// @Router /lessons/payments [post]
func (h *LessonHandler) UpdatePayments(c *gin.Context) {
	var req dto.UpdatePaymentsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	result, err := h.service.UpdatePayments(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, result)
}

// Stats godoc
// @Summary Lesson statistics
// @Description Rows of a joint lesson count once; amounts are summed per row.
// @Tags Lessons
// @Produce json
// @Param mode query string false "Timetable mode" Enums(normal, remedial)
// @Param weekId query string false "Week ID"
// @Param teacherId query int false "Teacher ID"
// @Success 200 {object} response.Envelope
// @Router /lessons/stats [get]
func (h *LessonHandler) Stats(c *gin.Context) {
	query := dto.LessonStatsQuery{Mode: c.Query("mode"), WeekID: c.Query("weekId")}
	if raw := c.Query("teacherId"); raw != "" {
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid teacherId"))
			return
		}
		query.TeacherID = &id
	}
	stats, err := h.service.Stats(c.Request.Context(), query)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, stats)
}

// TeacherTimetable godoc
// @Summary A teacher's timetable
// @Tags Lessons
// @Produce json
// @Param id path int true "Teacher ID"
// @Param mode query string false "Timetable mode" Enums(normal, remedial)
// @Param weekId query string false "Week ID"
// @Success 200 {object} response.Envelope
// @Router /teachers/{id}/timetable [get]
func (h *LessonHandler) TeacherTimetable(c *gin.Context) {
	teacherID, err := int64Param(c, "id")
	if err != nil {
		response.Error(c, err)
		return
	}
	result, err := h.service.TeacherTimetable(c.Request.Context(), teacherID, teacherTimetableQuery(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, result)
}

// MyTimetable godoc
// @Summary The caller's own teaching timetable
// @Tags Lessons
// @Produce json
// @Param mode query string false "Timetable mode" Enums(normal, remedial)
// @Param weekId query string false "Week ID"
// @Success 200 {object} response.Envelope
// @Router /me/timetable [get]
func (h *LessonHandler) MyTimetable(c *gin.Context) {
	result, err := h.service.MyTimetable(c.Request.Context(), claimsFromContext(c), teacherTimetableQuery(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, result)
}

func teacherTimetableQuery(c *gin.Context) dto.TeacherTimetableQuery {
	return dto.TeacherTimetableQuery{Mode: c.Query("mode"), WeekID: c.Query("weekId")}
}
