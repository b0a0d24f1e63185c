package grievance

import (
	"fmt"
	"strings"
	"time"

	"github.com/noah-isme/grievance-api/internal/models"
	appErrors "github.com/noah-isme/grievance-api/pkg/errors"
)

type transitionRule struct {
	requiresResolution bool
}

// transitions is the complete set of allowed status changes. Every listed
// transition requires a reviewer-class actor; anything absent is rejected.
// in_progress -> closed intentionally needs no resolution text.
var transitions = map[models.GrievanceStatus]map[models.GrievanceStatus]transitionRule{
	models.StatusSubmitted: {
		models.StatusInProgress: {},
		models.StatusResolved:   {requiresResolution: true},
	},
	models.StatusInProgress: {
		models.StatusResolved: {requiresResolution: true},
		models.StatusClosed:   {},
	},
	models.StatusResolved: {
		models.StatusClosed: {},
	},
	models.StatusClosed: {},
}

// TransitionRequest is a requested status change by an actor.
type TransitionRequest struct {
	To                 models.GrievanceStatus
	Actor              models.Actor
	ResolutionComments string
	// Now stamps UpdatedAt; zero uses the current UTC time.
	Now time.Time
}

// CanTransition reports whether from -> to is listed in the transition table.
func CanTransition(from, to models.GrievanceStatus) bool {
	_, ok := transitions[from][to]
	return ok
}

// AllowedTransitions lists the statuses role may move a record in from to.
func AllowedTransitions(from models.GrievanceStatus, role models.UserRole) []models.GrievanceStatus {
	if !role.IsReviewer() {
		return []models.GrievanceStatus{}
	}
	out := make([]models.GrievanceStatus, 0, 2)
	for _, candidate := range models.GrievanceStatuses {
		if CanTransition(from, candidate) {
			out = append(out, candidate)
		}
	}
	return out
}

// IsTerminal reports whether no transition leaves status.
func IsTerminal(status models.GrievanceStatus) bool {
	return len(transitions[status]) == 0
}

// Transition applies req to record and returns the updated copy. The input
// record is never modified.
func Transition(record models.Grievance, req TransitionRequest) (*models.Grievance, error) {
	from := record.Status
	to := req.To

	rule, ok := transitions[from][to]
	if !ok {
		return nil, appErrors.Clone(appErrors.ErrInvalidTransition, fmt.Sprintf("cannot move grievance from %q to %q", from, to))
	}
	if !req.Actor.Role.IsReviewer() {
		return nil, appErrors.Clone(appErrors.ErrUnauthorizedAction, fmt.Sprintf("role %q may not move grievance to %s", roleLabel(req.Actor.Role), to))
	}

	comments := strings.TrimSpace(req.ResolutionComments)
	if rule.requiresResolution && comments == "" {
		return nil, appErrors.Clone(appErrors.ErrMissingResolution, fmt.Sprintf("resolution comments are required to move grievance to %s", to))
	}
	if !rule.requiresResolution && comments != "" {
		return nil, appErrors.WithField(appErrors.ErrValidation, "resolutionComments", fmt.Sprintf("resolution comments are only accepted when moving to %s", models.StatusResolved))
	}

	now := req.Now
	if now.IsZero() {
		now = time.Now().UTC()
	}

	updated := record
	updated.Details = record.Details.Clone()
	updated.Status = to
	updated.UpdatedAt = now
	if rule.requiresResolution {
		updated.ResolutionComments = &comments
	} else if record.ResolutionComments != nil {
		kept := *record.ResolutionComments
		updated.ResolutionComments = &kept
	}
	return &updated, nil
}

func roleLabel(role models.UserRole) string {
	if role == "" {
		return "anonymous"
	}
	return string(role)
}
