package handler

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/sma-timetable-api/internal/dto"
	"github.com/noah-isme/sma-timetable-api/internal/middleware"
	"github.com/noah-isme/sma-timetable-api/internal/service"
	appErrors "github.com/noah-isme/sma-timetable-api/pkg/errors"
	"github.com/noah-isme/sma-timetable-api/pkg/export"
	"github.com/noah-isme/sma-timetable-api/pkg/response"
)

const cellFieldPrefix = "cell_"

// classFormFields are the form fields carrying selected class group ids.
var classFormFields = []string{"classes", "selected_classes"}

type timetableBuilder interface {
	Submit(ctx context.Context, mode string, req dto.TimetableSubmission) (*dto.TimetableSaveResult, error)
	Builder(ctx context.Context, mode string, query dto.BuilderQuery) (*dto.BuilderView, error)
	Master(ctx context.Context, mode string) (*dto.MasterTimetable, bool, error)
	ExportMaster(ctx context.Context, mode string) (*export.File, error)
}

// TimetableHandler exposes the timetable builder and master views.
type TimetableHandler struct {
	service timetableBuilder
}

// NewTimetableHandler constructs the handler.
func NewTimetableHandler(svc *service.TimetableService) *TimetableHandler {
	return &TimetableHandler{service: svc}
}

// Builder godoc
// @Summary Load the timetable builder
// @Description Returns the period structure, selectable subject/teacher pairs, the current grid of the selected class groups and the joint configuration.
// @Tags Timetable
// @Produce json
// @Param mode path string true "Timetable mode" Enums(normal, remedial)
// @Param classes query []int false "Selected class group IDs" collectionFormat(multi)
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /timetables/{mode}/builder [get]
func (h *TimetableHandler) Builder(c *gin.Context) {
	ids, err := int64List(c.QueryArray("classes"), "classes")
	if err != nil {
		response.Error(c, err)
		return
	}
	view, err := h.service.Builder(c.Request.Context(), c.Param("mode"), dto.BuilderQuery{ClassGroupIDs: ids})
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, view)
}

// Submit godoc
// @Summary Save or clear the timetable of the selected class groups
// @Description Accepts JSON or an HTML form post. Form posts carry "action", repeated "classes" and one "cell_{classGroupId}_{day}_{HHMM}_{HHMM}_{sub}" field per cell. Rejected submissions echo the posted cells with violations.
// @Tags Timetable
// @Accept json
// @Accept x-www-form-urlencoded
// @Produce json
// @Param mode path string true "Timetable mode" Enums(normal, remedial)
// @Param payload body dto.TimetableSubmission true "Builder submission"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Failure 422 {object} response.Envelope
// @Router /timetables/{mode}/builder [post]
func (h *TimetableHandler) Submit(c *gin.Context) {
	req, err := bindSubmission(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	result, err := h.service.Submit(c.Request.Context(), c.Param("mode"), req)
	if err != nil {
		var rejected *service.TimetableRejectedError
		if errors.As(err, &rejected) {
			response.Error(c, err, rejected.Rejection)
			return
		}
		response.Error(c, err)
		return
	}
	response.OK(c, result)
}

func bindSubmission(c *gin.Context) (dto.TimetableSubmission, error) {
	var req dto.TimetableSubmission
	if strings.HasPrefix(c.ContentType(), "application/json") {
		if err := c.ShouldBindJSON(&req); err != nil {
			return req, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid timetable payload")
		}
		return req, nil
	}

	if err := c.Request.ParseForm(); err != nil {
		return req, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid timetable form")
	}
	var rawIDs []string
	for _, field := range classFormFields {
		rawIDs = append(rawIDs, c.Request.PostForm[field]...)
	}
	ids, err := int64List(rawIDs, "classes")
	if err != nil {
		return req, err
	}
	req.Action = c.Request.PostForm.Get("action")
	req.ClassGroupIDs = ids
	req.Cells = make(map[string]string)
	for field, values := range c.Request.PostForm {
		if strings.HasPrefix(field, cellFieldPrefix) && len(values) > 0 {
			req.Cells[field] = values[0]
		}
	}
	return req, nil
}

// Master godoc
// @Summary Master timetable of a mode
// @Description Every entry grouped by "{classGroupId}_{day}_{HHMM}_{HHMM}". Served from cache when available.
// @Tags Timetable
// @Produce json
// @Param mode path string true "Timetable mode" Enums(normal, remedial)
// @Success 200 {object} response.Envelope
// @Router /timetables/{mode}/master [get]
func (h *TimetableHandler) Master(c *gin.Context) {
	master, cached, err := h.service.Master(c.Request.Context(), c.Param("mode"))
	if err != nil {
		response.Error(c, err)
		return
	}
	middleware.SetCacheHit(c, cached)
	response.OK(c, master, middleware.ExtractMeta(c))
}

// Export godoc
// @Summary Export the master timetable as CSV
// @Tags Timetable
// @Produce text/csv
// @Param mode path string true "Timetable mode" Enums(normal, remedial)
// @Success 200 {file} file
// @Failure 404 {object} response.Envelope
// @Router /timetables/{mode}/master/export [get]
func (h *TimetableHandler) Export(c *gin.Context) {
	file, err := h.service.ExportMaster(c.Request.Context(), c.Param("mode"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Attachment(c, file.Name, file.ContentType, file.Body)
}
