package dto

import (
	"github.com/noah-isme/grievance-api/internal/grievance"
	"github.com/noah-isme/grievance-api/internal/models"
)

// FilterAll disables a list filter, mirroring the dashboard "all" option.
const FilterAll = "all"

// SubmitGrievanceRequest is the payload for filing a grievance. Field level
// checks happen in the taxonomy validator so errors follow schema order.
type SubmitGrievanceRequest struct {
	Category    models.GrievanceCategory `json:"category"`
	SubCategory string                   `json:"subCategory"`
	Title       string                   `json:"title"`
	Description string                   `json:"description"`
	Details     map[string]string        `json:"details"`
}

// TransitionGrievanceRequest asks to move a grievance to a new status.
// ExpectedStatus, when set, must match the stored status.
type TransitionGrievanceRequest struct {
	Status             models.GrievanceStatus `json:"status" binding:"required"`
	ResolutionComments string                 `json:"resolutionComments"`
	ExpectedStatus     models.GrievanceStatus `json:"expectedStatus,omitempty"`
}

// GrievanceQuery mirrors supported listing filters.
type GrievanceQuery struct {
	Status   string `form:"status" binding:"omitempty,oneof=all submitted in_progress resolved closed"`
	Category string `form:"category" binding:"omitempty,max=32"`
}

// Filter converts the query into an engine visibility filter.
func (q GrievanceQuery) Filter() grievance.VisibilityFilter {
	var filter grievance.VisibilityFilter
	if q.Status != "" && q.Status != FilterAll {
		filter.Status = models.GrievanceStatus(q.Status)
	}
	if q.Category != "" && q.Category != FilterAll {
		filter.Category = models.GrievanceCategory(q.Category)
	}
	return filter
}

// ExportQuery selects the export format on top of the list filters.
type ExportQuery struct {
	GrievanceQuery
	Format string `form:"format" binding:"omitempty,oneof=csv pdf"`
}

// TaxonomyCategory lists a category with its sub-category schemas.
type TaxonomyCategory struct {
	Category      models.GrievanceCategory `json:"category"`
	SubCategories []grievance.FieldSchema  `json:"subCategories"`
}

// TransitionOptions reports where the caller may move a grievance next.
type TransitionOptions struct {
	GrievanceID string                   `json:"grievanceId"`
	Status      models.GrievanceStatus   `json:"status"`
	Terminal    bool                     `json:"terminal"`
	Allowed     []models.GrievanceStatus `json:"allowed"`
}

// TransitionResult is the outcome of a committed transition.
type TransitionResult struct {
	Grievance *models.Grievance        `json:"grievance"`
	History   *models.GrievanceHistory `json:"history"`
}
