package handler

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/grievance-api/internal/dto"
	"github.com/noah-isme/grievance-api/internal/grievance"
	"github.com/noah-isme/grievance-api/internal/models"
	"github.com/noah-isme/grievance-api/pkg/response"
)

type taxonomyService interface {
	Taxonomy() []dto.TaxonomyCategory
	Schema(category models.GrievanceCategory, subCategory string) (grievance.FieldSchema, error)
}

// TaxonomyHandler serves the category tree and field schemas used by submission forms.
type TaxonomyHandler struct {
	service taxonomyService
}

func NewTaxonomyHandler(service taxonomyService) *TaxonomyHandler {
	return &TaxonomyHandler{service: service}
}

// List godoc
// @Summary List categories, sub-categories and field schemas
// @Tags Taxonomy
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /taxonomy [get]
func (h *TaxonomyHandler) List(c *gin.Context) {
	response.JSON(c, http.StatusOK, h.service.Taxonomy())
}

// Schema godoc
// @Summary Get the field schema for a sub-category
// @Tags Taxonomy
// @Produce json
// @Param category path string true "Category"
// @Param subCategory path string true "Sub-category"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /taxonomy/{category}/{subCategory} [get]
func (h *TaxonomyHandler) Schema(c *gin.Context) {
	// Sub-category names may contain a slash, e.g. "Lab/Equipment".
	subCategory := strings.TrimPrefix(c.Param("subCategory"), "/")
	schema, err := h.service.Schema(models.GrievanceCategory(c.Param("category")), subCategory)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, schema)
}
