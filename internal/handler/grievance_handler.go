package handler

import (
	"context"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/grievance-api/internal/dto"
	"github.com/noah-isme/grievance-api/internal/models"
	"github.com/noah-isme/grievance-api/internal/service"
	appErrors "github.com/noah-isme/grievance-api/pkg/errors"
	"github.com/noah-isme/grievance-api/pkg/response"
)

type grievanceService interface {
	Submit(ctx context.Context, req dto.SubmitGrievanceRequest, actor models.Actor) (*models.Grievance, error)
	List(ctx context.Context, query dto.GrievanceQuery, actor models.Actor) ([]models.Grievance, error)
	Get(ctx context.Context, id string, actor models.Actor) (*models.Grievance, error)
	History(ctx context.Context, id string, actor models.Actor) ([]models.GrievanceHistory, error)
	Transitions(ctx context.Context, id string, actor models.Actor) (*dto.TransitionOptions, error)
	Transition(ctx context.Context, id string, req dto.TransitionGrievanceRequest, actor models.Actor) (*dto.TransitionResult, error)
	Stats(ctx context.Context, actor models.Actor) (*models.GrievanceStats, error)
}

type grievanceExporter interface {
	Export(ctx context.Context, query dto.ExportQuery, actor models.Actor) (*service.ExportFile, error)
}

// GrievanceHandler exposes REST endpoints for grievance workflows.
type GrievanceHandler struct {
	service  grievanceService
	exporter grievanceExporter
}

// NewGrievanceHandler constructs the handler. exporter may be nil when exports are disabled.
func NewGrievanceHandler(service grievanceService, exporter grievanceExporter) *GrievanceHandler {
	return &GrievanceHandler{service: service, exporter: exporter}
}

// Submit godoc
// @Summary File a grievance
// @Tags Grievances
// @Accept json
// @Produce json
// @Param payload body dto.SubmitGrievanceRequest true "Grievance payload"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 503 {object} response.Envelope
// @Router /grievances [post]
func (h *GrievanceHandler) Submit(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	var req dto.SubmitGrievanceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid grievance payload"))
		return
	}
	g, err := h.service.Submit(c.Request.Context(), req, actor)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, g)
}

// List godoc
// @Summary List visible grievances
// @Description Submitters see their own grievances, reviewers see all. Newest first.
// @Tags Grievances
// @Produce json
// @Param status query string false "Status filter or all"
// @Param category query string false "Category filter or all"
// @Success 200 {object} response.Envelope
// @Router /grievances [get]
func (h *GrievanceHandler) List(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	var query dto.GrievanceQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid grievance filters"))
		return
	}
	grievances, err := h.service.List(c.Request.Context(), query, actor)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, grievances, map[string]interface{}{"count": len(grievances)})
}

// Get godoc
// @Summary Get grievance detail
// @Tags Grievances
// @Produce json
// @Param id path string true "Grievance ID or internal ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /grievances/{id} [get]
func (h *GrievanceHandler) Get(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	g, err := h.service.Get(c.Request.Context(), c.Param("id"), actor)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, g)
}

// History godoc
// @Summary List grievance status history
// @Tags Grievances
// @Produce json
// @Param id path string true "Grievance ID"
// @Success 200 {object} response.Envelope
// @Router /grievances/{id}/history [get]
func (h *GrievanceHandler) History(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	history, err := h.service.History(c.Request.Context(), c.Param("id"), actor)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, history)
}

// Transitions godoc
// @Summary List statuses the caller may move a grievance to
// @Tags Grievances
// @Produce json
// @Param id path string true "Grievance ID"
// @Success 200 {object} response.Envelope
// @Router /grievances/{id}/transitions [get]
func (h *GrievanceHandler) Transitions(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	opts, err := h.service.Transitions(c.Request.Context(), c.Param("id"), actor)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, opts)
}

// Transition godoc
// @Summary Change grievance status
// @Tags Grievances
// @Accept json
// @Produce json
// @Param id path string true "Grievance ID"
// @Param payload body dto.TransitionGrievanceRequest true "Target status"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /grievances/{id}/transition [post]
func (h *GrievanceHandler) Transition(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	var req dto.TransitionGrievanceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.WithField(appErrors.ErrValidation, "status", "target status is required"))
		return
	}
	result, err := h.service.Transition(c.Request.Context(), c.Param("id"), req, actor)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, result)
}

// Stats godoc
// @Summary Grievance counts per status
// @Tags Grievances
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /grievances/stats [get]
func (h *GrievanceHandler) Stats(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	stats, err := h.service.Stats(c.Request.Context(), actor)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, stats)
}

// Export godoc
// @Summary Export grievances
// @Tags Grievances
// @Produce text/csv
// @Produce application/pdf
// @Param format query string false "csv or pdf"
// @Param status query string false "Status filter or all"
// @Param category query string false "Category filter or all"
// @Success 200 {file} file
// @Router /grievances/export [get]
func (h *GrievanceHandler) Export(c *gin.Context) {
	if h.exporter == nil {
		response.Error(c, appErrors.Clone(appErrors.ErrNotFound, "exports are disabled"))
		return
	}
	actor, ok := actorFromContext(c)
	if !ok {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	var query dto.ExportQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid export parameters"))
		return
	}
	file, err := h.exporter.Export(c.Request.Context(), query, actor)
	if err != nil {
		response.Error(c, err)
		return
	}
	c.Header("X-Export-Rows", strconv.Itoa(file.Rows))
	if file.Truncated {
		c.Header("X-Export-Truncated", "true")
	}
	response.Attachment(c, file.Filename, file.ContentType, file.Body)
}
