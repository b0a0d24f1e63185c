package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"
)

// GrievanceCategory is the top-level classification chosen at submission.
type GrievanceCategory string

const (
	CategoryAcademic    GrievanceCategory = "academic"
	CategoryFacility    GrievanceCategory = "facility"
	CategoryExamination GrievanceCategory = "examination"
	CategoryPlacement   GrievanceCategory = "placement"
	CategoryOther       GrievanceCategory = "other"
)

// GrievanceStatus captures the lifecycle state of a grievance.
type GrievanceStatus string

const (
	StatusSubmitted  GrievanceStatus = "submitted"
	StatusInProgress GrievanceStatus = "in_progress"
	StatusResolved   GrievanceStatus = "resolved"
	StatusClosed     GrievanceStatus = "closed"
)

// GrievanceStatuses lists every status in lifecycle order.
var GrievanceStatuses = []GrievanceStatus{StatusSubmitted, StatusInProgress, StatusResolved, StatusClosed}

// Valid reports whether the status is part of the lifecycle.
func (s GrievanceStatus) Valid() bool {
	switch s {
	case StatusSubmitted, StatusInProgress, StatusResolved, StatusClosed:
		return true
	}
	return false
}

// Details holds the category-specific structured fields keyed by field key.
type Details map[string]string

// Value implements driver.Valuer storing details as JSON.
func (d Details) Value() (driver.Value, error) {
	if d == nil {
		return []byte("{}"), nil
	}
	return json.Marshal(map[string]string(d))
}

// Scan implements sql.Scanner for JSON/JSONB columns.
func (d *Details) Scan(src interface{}) error {
	var raw []byte
	switch v := src.(type) {
	case nil:
		*d = Details{}
		return nil
	case []byte:
		raw = v
	case string:
		raw = []byte(v)
	default:
		return fmt.Errorf("unsupported details type %T", src)
	}
	out := Details{}
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, &out); err != nil {
			return fmt.Errorf("decode details: %w", err)
		}
	}
	*d = out
	return nil
}

// Clone returns an independent copy of the details.
func (d Details) Clone() Details {
	if d == nil {
		return nil
	}
	out := make(Details, len(d))
	for k, v := range d {
		out[k] = v
	}
	return out
}

// Grievance is a filed grievance tracked through its lifecycle.
type Grievance struct {
	ID                 string            `db:"id" json:"id"`
	GrievanceID        string            `db:"grievance_id" json:"grievanceId"`
	Category           GrievanceCategory `db:"category" json:"category"`
	SubCategory        string            `db:"sub_category" json:"subCategory"`
	Title              string            `db:"title" json:"title"`
	Description        string            `db:"description" json:"description"`
	Details            Details           `db:"details" json:"details"`
	SubmittedBy        string            `db:"submitted_by" json:"submittedBy"`
	Status             GrievanceStatus   `db:"status" json:"status"`
	ResolutionComments *string           `db:"resolution_comments" json:"resolutionComments,omitempty"`
	CreatedAt          time.Time         `db:"created_at" json:"createdAt"`
	UpdatedAt          time.Time         `db:"updated_at" json:"updatedAt"`
}

// GrievanceFilter constrains listing queries. Empty values mean no filter.
type GrievanceFilter struct {
	Status      GrievanceStatus
	Category    GrievanceCategory
	SubmittedBy string
	Limit       int
	Offset      int
}

// GrievanceHistory is an immutable record of one committed status change.
type GrievanceHistory struct {
	ID          string          `db:"id" json:"id"`
	GrievanceID string          `db:"grievance_id" json:"grievanceId"`
	FromStatus  GrievanceStatus `db:"from_status" json:"fromStatus"`
	ToStatus    GrievanceStatus `db:"to_status" json:"toStatus"`
	ChangedBy   string          `db:"changed_by" json:"changedBy"`
	Comment     *string         `db:"comment" json:"comment,omitempty"`
	ChangedAt   time.Time       `db:"changed_at" json:"changedAt"`
}

// GrievanceStats aggregates grievance counts per status.
type GrievanceStats struct {
	Total      int `json:"total"`
	Submitted  int `json:"submitted"`
	InProgress int `json:"inProgress"`
	Resolved   int `json:"resolved"`
	Closed     int `json:"closed"`
}

// StatusCount is a single status bucket returned by aggregate queries.
type StatusCount struct {
	Status GrievanceStatus `db:"status" json:"status"`
	Count  int             `db:"count" json:"count"`
}
