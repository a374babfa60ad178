package handler

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/luct-reporting-api/internal/middleware"
	"github.com/noah-isme/luct-reporting-api/internal/models"
	"github.com/noah-isme/luct-reporting-api/internal/service"
)

func TestReportHandlerSubmitRequiresAuth(t *testing.T) {
	gin.SetMode(gin.TestMode)
	handler := NewReportHandler(service.NewReportService(nil, nil, nil, nil, nil, nil))
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	req, _ := http.NewRequest(http.MethodPost, "/reports", bytes.NewReader([]byte(`{}`)))
	req.Header.Set("Content-Type", "application/json")
	c.Request = req

	handler.Submit(c)
	require.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestReportHandlerSubmitInvalidBody(t *testing.T) {
	gin.SetMode(gin.TestMode)
	handler := NewReportHandler(service.NewReportService(nil, nil, nil, nil, nil, nil))
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	req, _ := http.NewRequest(http.MethodPost, "/reports", bytes.NewReader([]byte(`not-json`)))
	req.Header.Set("Content-Type", "application/json")
	c.Request = req
	c.Set(middleware.ContextUserKey, &models.JWTClaims{UserID: "lect-1", Role: models.RoleLecturer})

	handler.Submit(c)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestReportHandlerListRejectsStudents(t *testing.T) {
	gin.SetMode(gin.TestMode)
	handler := NewReportHandler(service.NewReportService(nil, nil, nil, nil, nil, nil))
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	req, _ := http.NewRequest(http.MethodGet, "/reports", nil)
	c.Request = req
	c.Set(middleware.ContextUserKey, &models.JWTClaims{UserID: "stud-1", Role: models.RoleStudent})

	handler.List(c)
	assert.Equal(t, http.StatusForbidden, w.Code)
}
