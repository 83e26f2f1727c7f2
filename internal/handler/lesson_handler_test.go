package handler

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/sma-timetable-api/internal/dto"
	"github.com/noah-isme/sma-timetable-api/internal/middleware"
	"github.com/noah-isme/sma-timetable-api/internal/models"
	appErrors "github.com/noah-isme/sma-timetable-api/pkg/errors"
)

type lessonTrackerMock struct {
	claims    *models.JWTClaims
	statsQ    dto.LessonStatsQuery
	teacherID int64
}

func (m *lessonTrackerMock) ListWeeks(ctx context.Context) ([]models.Week, error) {
	return []models.Week{{ID: "w1", Number: 1}}, nil
}

func (m *lessonTrackerMock) CreateWeek(ctx context.Context, req dto.CreateWeekRequest) (*models.Week, error) {
	return &models.Week{ID: "w2", Number: req.Number}, nil
}

func (m *lessonTrackerMock) Generate(ctx context.Context, req dto.GenerateLessonsRequest) (*dto.GenerateLessonsResponse, error) {
	return &dto.GenerateLessonsResponse{WeekID: req.WeekID, Mode: req.Mode, Created: 3}, nil
}

func (m *lessonTrackerMock) UpdateStatus(ctx context.Context, claims *models.JWTClaims, id string, req dto.UpdateLessonStatusRequest) (*models.LessonRecord, error) {
	m.claims = claims
	if claims == nil {
		return nil, appErrors.ErrUnauthorized
	}
	return &models.LessonRecord{ID: id}, nil
}

func (m *lessonTrackerMock) UpdatePayments(ctx context.Context, req dto.UpdatePaymentsRequest) (*dto.UpdatePaymentsResponse, error) {
	return &dto.UpdatePaymentsResponse{Updated: int64(len(req.RecordIDs))}, nil
}

func (m *lessonTrackerMock) Stats(ctx context.Context, query dto.LessonStatsQuery) (*dto.LessonStatsResponse, error) {
	m.statsQ = query
	return &dto.LessonStatsResponse{}, nil
}

func (m *lessonTrackerMock) TeacherTimetable(ctx context.Context, teacherID int64, query dto.TeacherTimetableQuery) (*dto.TeacherTimetableResponse, error) {
	m.teacherID = teacherID
	return &dto.TeacherTimetableResponse{}, nil
}

func (m *lessonTrackerMock) MyTimetable(ctx context.Context, claims *models.JWTClaims, query dto.TeacherTimetableQuery) (*dto.TeacherTimetableResponse, error) {
	m.claims = claims
	return &dto.TeacherTimetableResponse{}, nil
}

func TestLessonHandlerUpdateStatusPassesClaims(t *testing.T) {
	gin.SetMode(gin.TestMode)
	mockSvc := &lessonTrackerMock{}
	handler := &LessonHandler{service: mockSvc}
	claims := &models.JWTClaims{UserID: "user-1", Role: models.RoleTeacher}

	req, _ := http.NewRequest(http.MethodPatch, "/lessons/r1/status", bytes.NewReader([]byte(`{"status":"ATTENDED"}`)))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = req
	c.Params = gin.Params{{Key: "id", Value: "r1"}}
	c.Set(middleware.ContextUserKey, claims)

	handler.UpdateStatus(c)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Same(t, claims, mockSvc.claims)
}

func TestLessonHandlerStatsParsesTeacherID(t *testing.T) {
	gin.SetMode(gin.TestMode)
	mockSvc := &lessonTrackerMock{}
	handler := &LessonHandler{service: mockSvc}
	router := gin.New()
	router.GET("/lessons/stats", handler.Stats)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/lessons/stats?mode=remedial&teacherId=12", nil))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "remedial", mockSvc.statsQ.Mode)
	require.NotNil(t, mockSvc.statsQ.TeacherID)
	assert.Equal(t, int64(12), *mockSvc.statsQ.TeacherID)

	w = httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/lessons/stats?teacherId=x", nil))
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestLessonHandlerTeacherTimetableRequiresNumericID(t *testing.T) {
	gin.SetMode(gin.TestMode)
	mockSvc := &lessonTrackerMock{}
	handler := &LessonHandler{service: mockSvc}
	router := gin.New()
	router.GET("/teachers/:id/timetable", handler.TeacherTimetable)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/teachers/7/timetable?weekId=w1", nil))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, int64(7), mockSvc.teacherID)

	w = httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/teachers/abc/timetable", nil))
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestLessonHandlerCreateWeekValidation(t *testing.T) {
	gin.SetMode(gin.TestMode)
	handler := &LessonHandler{service: &lessonTrackerMock{}}
	req, _ := http.NewRequest(http.MethodPost, "/weeks", bytes.NewReader([]byte(`{"number":`)))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = req

	handler.CreateWeek(c)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}
