package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/sma-timetable-api/internal/dto"
	"github.com/noah-isme/sma-timetable-api/internal/models"
	"github.com/noah-isme/sma-timetable-api/internal/service"
	appErrors "github.com/noah-isme/sma-timetable-api/pkg/errors"
	"github.com/noah-isme/sma-timetable-api/pkg/response"
)

type jointConfigurator interface {
	ListSubjects(ctx context.Context) ([]models.JointSubject, error)
	SetSubject(ctx context.Context, subjectID int64, req dto.UpdateJointSubjectRequest) (*models.JointSubject, error)
	ListSets(ctx context.Context) ([]models.JointClassGroupSet, error)
	GetSet(ctx context.Context, id string) (*models.JointClassGroupSet, error)
	CreateSet(ctx context.Context, req dto.JointSetRequest) (*models.JointClassGroupSet, error)
	UpdateSet(ctx context.Context, id string, req dto.JointSetRequest) (*models.JointClassGroupSet, error)
	DeleteSet(ctx context.Context, id string) error
}

// JointHandler manages joint subjects and joint class group sets.
type JointHandler struct {
	service jointConfigurator
}

// NewJointHandler constructs the handler.
func NewJointHandler(svc *service.JointConfigService) *JointHandler {
	return &JointHandler{service: svc}
}

// ListSubjects godoc
// @Summary List joint subjects
// @Tags Joint
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /joint/subjects [get]
func (h *JointHandler) ListSubjects(c *gin.Context) {
	subjects, err := h.service.ListSubjects(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, subjects)
}

// SetSubject godoc
// @Summary Enable or disable joint teaching for a subject
// @Tags Joint
// @Accept json
// @Produce json
// @Param subjectId path int true "Subject ID"
// @Param payload body dto.UpdateJointSubjectRequest true "Joint flag"
// @Success 200 {object} response.Envelope
// @Router /joint/subjects/{subjectId} [put]
func (h *JointHandler) SetSubject(c *gin.Context) {
	subjectID, err := int64Param(c, "subjectId")
	if err != nil {
		response.Error(c, err)
		return
	}
	var req dto.UpdateJointSubjectRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	subject, err := h.service.SetSubject(c.Request.Context(), subjectID, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, subject)
}

// ListSets godoc
// @Summary List joint class group sets
// @Tags Joint
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /joint/sets [get]
func (h *JointHandler) ListSets(c *gin.Context) {
	sets, err := h.service.ListSets(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, sets)
}

// GetSet godoc
// @Summary Get a joint class group set
// @Tags Joint
// @Produce json
// @Param id path string true "Set ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /joint/sets/{id} [get]
func (h *JointHandler) GetSet(c *gin.Context) {
	set, err := h.service.GetSet(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, set)
}

// CreateSet godoc
// @Summary Create a joint class group set
// @Tags Joint
// @Accept json
// @Produce json
// @Param payload body dto.JointSetRequest true "Set"
// @Success 201 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /joint/sets [post]
func (h *JointHandler) CreateSet(c *gin.Context) {
	var req dto.JointSetRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	set, err := h.service.CreateSet(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, set)
}

// UpdateSet godoc
// @Summary Replace a joint class group set
// @Tags Joint
// @Accept json
// @Produce json
// @Param id path string true "Set ID"
// @Param payload body dto.JointSetRequest true "Set"
// @Success 200 {object} response.Envelope
// @Router /joint/sets/{id} [put]
func (h *JointHandler) UpdateSet(c *gin.Context) {
	var req dto.JointSetRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	set, err := h.service.UpdateSet(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, set)
}

// DeleteSet godoc
// @Summary Delete a joint class group set
// @Tags Joint
// @Param id path string true "Set ID"
// @Success 204
// @Router /joint/sets/{id} [delete]
func (h *JointHandler) DeleteSet(c *gin.Context) {
	if err := h.service.DeleteSet(c.Request.Context(), c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}
