package grievance

import (
	"sort"

	"github.com/noah-isme/grievance-api/internal/models"
)

// VisibilityFilter narrows the visible set. Empty fields mean no filter.
type VisibilityFilter struct {
	Status   models.GrievanceStatus
	Category models.GrievanceCategory
}

// Visible derives the records actor may see, newest first. Submitter-class
// actors see exactly their own records and filters are ignored;
// reviewer-class actors see everything narrowed by filter.
func Visible(actor models.Actor, records []models.Grievance, filter VisibilityFilter) []models.Grievance {
	if !actor.Role.IsReviewer() {
		filter = VisibilityFilter{}
	}
	out := make([]models.Grievance, 0, len(records))
	for _, r := range records {
		if !CanView(actor, r) {
			continue
		}
		if filter.Status != "" && r.Status != filter.Status {
			continue
		}
		if filter.Category != "" && r.Category != filter.Category {
			continue
		}
		out = append(out, r)
	}
	sort.SliceStable(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].GrievanceID > out[j].GrievanceID
	})
	return out
}

// CanView reports whether actor may see record.
func CanView(actor models.Actor, record models.Grievance) bool {
	switch {
	case actor.Role.IsReviewer():
		return true
	case actor.Role.IsSubmitter():
		return actor.ID != "" && record.SubmittedBy == actor.ID
	default:
		return false
	}
}
