package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/grievance-api/internal/dto"
	"github.com/noah-isme/grievance-api/internal/middleware"
	"github.com/noah-isme/grievance-api/internal/models"
	"github.com/noah-isme/grievance-api/internal/service"
	appErrors "github.com/noah-isme/grievance-api/pkg/errors"
)

type grievanceServiceMock struct {
	submitErr      error
	transitionErr  error
	lastQuery      dto.GrievanceQuery
	lastActor      models.Actor
	lastID         string
	lastTransition dto.TransitionGrievanceRequest
	listResp       []models.Grievance
}

func (m *grievanceServiceMock) Submit(ctx context.Context, req dto.SubmitGrievanceRequest, actor models.Actor) (*models.Grievance, error) {
	m.lastActor = actor
	if m.submitErr != nil {
		return nil, m.submitErr
	}
	return &models.Grievance{GrievanceID: "GRV-00000000100A", Category: req.Category, SubCategory: req.SubCategory,
		SubmittedBy: actor.ID, Status: models.StatusSubmitted}, nil
}

func (m *grievanceServiceMock) List(ctx context.Context, query dto.GrievanceQuery, actor models.Actor) ([]models.Grievance, error) {
	m.lastQuery = query
	m.lastActor = actor
	return m.listResp, nil
}

func (m *grievanceServiceMock) Get(ctx context.Context, id string, actor models.Actor) (*models.Grievance, error) {
	m.lastID = id
	return nil, appErrors.Clone(appErrors.ErrNotFound, "grievance not found")
}

func (m *grievanceServiceMock) History(ctx context.Context, id string, actor models.Actor) ([]models.GrievanceHistory, error) {
	return []models.GrievanceHistory{}, nil
}

func (m *grievanceServiceMock) Transitions(ctx context.Context, id string, actor models.Actor) (*dto.TransitionOptions, error) {
	return &dto.TransitionOptions{GrievanceID: id, Allowed: []models.GrievanceStatus{}}, nil
}

func (m *grievanceServiceMock) Transition(ctx context.Context, id string, req dto.TransitionGrievanceRequest, actor models.Actor) (*dto.TransitionResult, error) {
	m.lastID = id
	m.lastTransition = req
	if m.transitionErr != nil {
		return nil, m.transitionErr
	}
	return &dto.TransitionResult{Grievance: &models.Grievance{GrievanceID: id, Status: req.Status}}, nil
}

func (m *grievanceServiceMock) Stats(ctx context.Context, actor models.Actor) (*models.GrievanceStats, error) {
	return &models.GrievanceStats{Total: 2, Submitted: 2}, nil
}

type exporterMock struct {
	file *service.ExportFile
	err  error
}

func (m *exporterMock) Export(ctx context.Context, query dto.ExportQuery, actor models.Actor) (*service.ExportFile, error) {
	return m.file, m.err
}

type envelope struct {
	Data  json.RawMessage        `json:"data"`
	Error *appErrors.Error       `json:"error"`
	Meta  map[string]interface{} `json:"meta"`
}

func newContext(method, target string, body interface{}, claims *models.JWTClaims) (*gin.Context, *httptest.ResponseRecorder) {
	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	var reader *bytes.Reader
	switch v := body.(type) {
	case nil:
		reader = bytes.NewReader(nil)
	case string:
		reader = bytes.NewReader([]byte(v))
	default:
		raw, _ := json.Marshal(v)
		reader = bytes.NewReader(raw)
	}
	req, _ := http.NewRequest(method, target, reader)
	req.Header.Set("Content-Type", "application/json")
	c.Request = req
	if claims != nil {
		c.Set(middleware.ContextUserKey, claims)
	}
	return c, w
}

func decode(t *testing.T, w *httptest.ResponseRecorder) envelope {
	t.Helper()
	var env envelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env))
	return env
}

var (
	studentClaims = &models.JWTClaims{UserID: "student-1", Role: models.RoleStudent}
	adminClaims   = &models.JWTClaims{UserID: "admin-1", Role: models.RoleAdmin}
)

func TestGrievanceHandlerSubmit(t *testing.T) {
	svc := &grievanceServiceMock{}
	h := NewGrievanceHandler(svc, nil)
	c, w := newContext(http.MethodPost, "/grievances", dto.SubmitGrievanceRequest{
		Category:    models.CategoryPlacement,
		SubCategory: "Placement Cell Support",
		Title:       "No response",
		Description: "Emails are not answered",
		Details:     map[string]string{"issueType": "Communication"},
	}, studentClaims)

	h.Submit(c)

	require.Equal(t, http.StatusCreated, w.Code)
	env := decode(t, w)
	var g models.Grievance
	require.NoError(t, json.Unmarshal(env.Data, &g))
	assert.Equal(t, "GRV-00000000100A", g.GrievanceID)
	assert.Equal(t, models.Actor{ID: "student-1", Role: models.RoleStudent}, svc.lastActor)
}

func TestGrievanceHandlerSubmitErrors(t *testing.T) {
	h := NewGrievanceHandler(&grievanceServiceMock{
		submitErr: appErrors.WithField(appErrors.ErrMissingRequiredField, "examName", "examName is required"),
	}, nil)

	c, w := newContext(http.MethodPost, "/grievances", map[string]string{"category": "examination"}, studentClaims)
	h.Submit(c)
	require.Equal(t, http.StatusBadRequest, w.Code)
	env := decode(t, w)
	assert.Equal(t, "MISSING_REQUIRED_FIELD", env.Error.Code)
	assert.Equal(t, "examName", env.Error.Field)

	c, w = newContext(http.MethodPost, "/grievances", "{not json", studentClaims)
	h.Submit(c)
	require.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "VALIDATION_ERROR", decode(t, w).Error.Code)

	c, w = newContext(http.MethodPost, "/grievances", map[string]string{}, nil)
	h.Submit(c)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestGrievanceHandlerListFilters(t *testing.T) {
	svc := &grievanceServiceMock{listResp: []models.Grievance{{GrievanceID: "GRV-1"}}}
	h := NewGrievanceHandler(svc, nil)

	c, w := newContext(http.MethodGet, "/grievances?status=all&category=facility", nil, adminClaims)
	h.List(c)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, dto.GrievanceQuery{Status: "all", Category: "facility"}, svc.lastQuery)
	assert.Equal(t, float64(1), decode(t, w).Meta["count"])

	c, w = newContext(http.MethodGet, "/grievances?status=archived", nil, adminClaims)
	h.List(c)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestGrievanceHandlerGetNotFound(t *testing.T) {
	svc := &grievanceServiceMock{}
	h := NewGrievanceHandler(svc, nil)
	c, w := newContext(http.MethodGet, "/grievances/GRV-X", nil, studentClaims)
	c.Params = gin.Params{{Key: "id", Value: "GRV-X"}}

	h.Get(c)
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "GRV-X", svc.lastID)
}

func TestGrievanceHandlerTransition(t *testing.T) {
	svc := &grievanceServiceMock{}
	h := NewGrievanceHandler(svc, nil)

	c, w := newContext(http.MethodPost, "/grievances/GRV-1/transition", dto.TransitionGrievanceRequest{
		Status:             models.StatusResolved,
		ResolutionComments: "Fixed",
		ExpectedStatus:     models.StatusInProgress,
	}, adminClaims)
	c.Params = gin.Params{{Key: "id", Value: "GRV-1"}}
	h.Transition(c)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, models.StatusInProgress, svc.lastTransition.ExpectedStatus)

	c, w = newContext(http.MethodPost, "/grievances/GRV-1/transition", map[string]string{}, adminClaims)
	c.Params = gin.Params{{Key: "id", Value: "GRV-1"}}
	h.Transition(c)
	require.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "status", decode(t, w).Error.Field)
}

func TestGrievanceHandlerTransitionErrorStatuses(t *testing.T) {
	cases := []struct {
		err  error
		want int
	}{
		{appErrors.Clone(appErrors.ErrInvalidTransition, "no"), http.StatusConflict},
		{appErrors.Clone(appErrors.ErrConflict, "stale"), http.StatusConflict},
		{appErrors.Clone(appErrors.ErrUnauthorizedAction, "no"), http.StatusForbidden},
		{appErrors.Clone(appErrors.ErrMissingResolution, "no"), http.StatusBadRequest},
	}
	for _, tc := range cases {
		h := NewGrievanceHandler(&grievanceServiceMock{transitionErr: tc.err}, nil)
		c, w := newContext(http.MethodPost, "/grievances/GRV-1/transition", map[string]string{"status": "closed"}, adminClaims)
		c.Params = gin.Params{{Key: "id", Value: "GRV-1"}}
		h.Transition(c)
		assert.Equal(t, tc.want, w.Code, tc.err.Error())
	}
}

func TestGrievanceHandlerExport(t *testing.T) {
	h := NewGrievanceHandler(&grievanceServiceMock{}, nil)
	c, w := newContext(http.MethodGet, "/grievances/export", nil, adminClaims)
	h.Export(c)
	assert.Equal(t, http.StatusNotFound, w.Code)

	h = NewGrievanceHandler(&grievanceServiceMock{}, &exporterMock{file: &service.ExportFile{
		Filename:    "grievances.csv",
		ContentType: "text/csv",
		Body:        []byte("grievanceId\nGRV-1\n"),
		Rows:        1,
		Truncated:   true,
	}})
	q := url.Values{"format": {"csv"}}
	c, w = newContext(http.MethodGet, "/grievances/export?"+q.Encode(), nil, adminClaims)
	h.Export(c)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, `attachment; filename="grievances.csv"`, w.Header().Get("Content-Disposition"))
	assert.Equal(t, "true", w.Header().Get("X-Export-Truncated"))
	assert.Equal(t, "1", w.Header().Get("X-Export-Rows"))

	c, w = newContext(http.MethodGet, "/grievances/export?format=xlsx", nil, adminClaims)
	h.Export(c)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestGrievanceHandlerStats(t *testing.T) {
	h := NewGrievanceHandler(&grievanceServiceMock{}, nil)
	c, w := newContext(http.MethodGet, "/grievances/stats", nil, adminClaims)
	h.Stats(c)
	require.Equal(t, http.StatusOK, w.Code)

	var stats models.GrievanceStats
	require.NoError(t, json.Unmarshal(decode(t, w).Data, &stats))
	assert.Equal(t, 2, stats.Total)
}
