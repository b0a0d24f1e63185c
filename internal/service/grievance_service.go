package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/noah-isme/grievance-api/internal/dto"
	"github.com/noah-isme/grievance-api/internal/grievance"
	"github.com/noah-isme/grievance-api/internal/models"
	"github.com/noah-isme/grievance-api/internal/repository"
	appErrors "github.com/noah-isme/grievance-api/pkg/errors"
)

const statsCacheKey = "grievances:stats"

type grievanceStore interface {
	Create(ctx context.Context, g *models.Grievance) error
	GetByID(ctx context.Context, id string) (*models.Grievance, error)
	GetByGrievanceID(ctx context.Context, grievanceID string) (*models.Grievance, error)
	List(ctx context.Context, filter models.GrievanceFilter) ([]models.Grievance, error)
	CountByStatus(ctx context.Context, filter models.GrievanceFilter) ([]models.StatusCount, error)
	UpdateStatus(ctx context.Context, params repository.UpdateStatusParams) (*models.GrievanceHistory, error)
	ListHistory(ctx context.Context, id string) ([]models.GrievanceHistory, error)
}

type identifierAssigner interface {
	Assign(ctx context.Context, claim func(ctx context.Context, id string) error) (string, error)
}

// GrievanceService orchestrates submission, lookup and lifecycle changes.
type GrievanceService struct {
	repo      grievanceStore
	ids       identifierAssigner
	registry  *grievance.Registry
	validator *grievance.Validator
	cache     *CacheService
	metrics   *MetricsService
	statsTTL  time.Duration
	logger    *zap.Logger
	now       func() time.Time
}

// GrievanceServiceOption configures the service.
type GrievanceServiceOption func(*GrievanceService)

// WithGrievanceRegistry swaps the taxonomy used for validation and lookups.
func WithGrievanceRegistry(registry *grievance.Registry) GrievanceServiceOption {
	return func(s *GrievanceService) {
		if registry != nil {
			s.registry = registry
			s.validator = grievance.NewValidator(registry, nil)
		}
	}
}

// WithGrievanceCache enables the statistics cache.
func WithGrievanceCache(cache *CacheService, ttl time.Duration) GrievanceServiceOption {
	return func(s *GrievanceService) {
		s.cache = cache
		s.statsTTL = ttl
	}
}

func WithGrievanceMetrics(metrics *MetricsService) GrievanceServiceOption {
	return func(s *GrievanceService) {
		s.metrics = metrics
	}
}

// WithGrievanceClock overrides the time source used for timestamps.
func WithGrievanceClock(now func() time.Time) GrievanceServiceOption {
	return func(s *GrievanceService) {
		if now != nil {
			s.now = now
		}
	}
}

// NewGrievanceService constructs the service with defaults.
func NewGrievanceService(repo grievanceStore, ids identifierAssigner, logger *zap.Logger, opts ...GrievanceServiceOption) *GrievanceService {
	if logger == nil {
		logger = zap.NewNop()
	}
	registry := grievance.DefaultRegistry()
	svc := &GrievanceService{
		repo:      repo,
		ids:       ids,
		registry:  registry,
		validator: grievance.NewValidator(registry, nil),
		logger:    logger,
		now:       time.Now,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(svc)
		}
	}
	return svc
}

// Taxonomy returns every category with its sub-category schemas in display order.
func (s *GrievanceService) Taxonomy() []dto.TaxonomyCategory {
	categories := s.registry.Categories()
	out := make([]dto.TaxonomyCategory, 0, len(categories))
	for _, category := range categories {
		subs := s.registry.SubCategoriesFor(category)
		schemas := make([]grievance.FieldSchema, 0, len(subs))
		for _, sub := range subs {
			schema, err := s.registry.SchemaFor(category, sub)
			if err != nil {
				continue
			}
			schemas = append(schemas, schema)
		}
		out = append(out, dto.TaxonomyCategory{Category: category, SubCategories: schemas})
	}
	return out
}

// Schema resolves one field schema.
func (s *GrievanceService) Schema(category models.GrievanceCategory, subCategory string) (grievance.FieldSchema, error) {
	return s.registry.SchemaFor(category, subCategory)
}

// Submit validates the request, assigns a unique identifier and persists the
// grievance in the submitted status.
func (s *GrievanceService) Submit(ctx context.Context, req dto.SubmitGrievanceRequest, actor models.Actor) (*models.Grievance, error) {
	if actor.ID == "" {
		return nil, appErrors.ErrUnauthorized
	}
	validated, err := s.validator.Validate(grievance.Submission{
		Category:    req.Category,
		SubCategory: req.SubCategory,
		Title:       req.Title,
		Description: req.Description,
		Details:     req.Details,
	})
	if err != nil {
		s.reject("submit", err)
		return nil, err
	}

	now := s.now().UTC()
	record := &models.Grievance{
		ID:          uuid.NewString(),
		Category:    validated.Category,
		SubCategory: validated.SubCategory,
		Title:       validated.Title,
		Description: validated.Description,
		Details:     validated.Details,
		SubmittedBy: actor.ID,
		Status:      models.StatusSubmitted,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	assigned, err := s.ids.Assign(ctx, func(ctx context.Context, id string) error {
		record.GrievanceID = id
		return s.repo.Create(ctx, record)
	})
	if err != nil {
		var appErr *appErrors.Error
		if errors.As(err, &appErr) {
			s.reject("submit", err)
			s.logger.Error("grievance identifier assignment failed", zap.String("actor_id", actor.ID), zap.Error(err))
			return nil, err
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to submit grievance")
	}
	record.GrievanceID = assigned

	s.metrics.RecordSubmission(record.Category)
	s.cache.Invalidate(ctx, statsCacheKey)
	s.logger.Info("grievance submitted",
		zap.String("grievance_id", record.GrievanceID),
		zap.String("category", string(record.Category)),
		zap.String("sub_category", record.SubCategory),
		zap.String("actor_id", actor.ID),
	)
	return record, nil
}

// List returns the grievances visible to actor, newest first.
func (s *GrievanceService) List(ctx context.Context, query dto.GrievanceQuery, actor models.Actor) ([]models.Grievance, error) {
	filter := query.Filter()
	if !actor.Role.IsReviewer() && (!actor.Role.IsSubmitter() || actor.ID == "") {
		return []models.Grievance{}, nil
	}
	repoFilter := models.GrievanceFilter{SubmittedBy: actor.ID}
	if actor.Role.IsReviewer() {
		repoFilter = models.GrievanceFilter{Status: filter.Status, Category: filter.Category}
	}
	records, err := s.repo.List(ctx, repoFilter)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list grievances")
	}
	return grievance.Visible(actor, records, filter), nil
}

// Get fetches a grievance by internal or public identifier. Records the actor
// may not see are reported as not found.
func (s *GrievanceService) Get(ctx context.Context, id string, actor models.Actor) (*models.Grievance, error) {
	var (
		record *models.Grievance
		err    error
	)
	if _, parseErr := uuid.Parse(id); parseErr == nil {
		record, err = s.repo.GetByID(ctx, id)
	} else {
		record, err = s.repo.GetByGrievanceID(ctx, id)
	}
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "grievance not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load grievance")
	}
	if !grievance.CanView(actor, *record) {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "grievance not found")
	}
	return record, nil
}

// History lists the committed status changes of a visible grievance.
func (s *GrievanceService) History(ctx context.Context, id string, actor models.Actor) ([]models.GrievanceHistory, error) {
	record, err := s.Get(ctx, id, actor)
	if err != nil {
		return nil, err
	}
	history, err := s.repo.ListHistory(ctx, record.ID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load grievance history")
	}
	if history == nil {
		history = []models.GrievanceHistory{}
	}
	return history, nil
}

// Transitions reports the statuses actor may move the grievance to.
func (s *GrievanceService) Transitions(ctx context.Context, id string, actor models.Actor) (*dto.TransitionOptions, error) {
	record, err := s.Get(ctx, id, actor)
	if err != nil {
		return nil, err
	}
	return &dto.TransitionOptions{
		GrievanceID: record.GrievanceID,
		Status:      record.Status,
		Terminal:    grievance.IsTerminal(record.Status),
		Allowed:     grievance.AllowedTransitions(record.Status, actor.Role),
	}, nil
}

// Transition applies a lifecycle change. The write only succeeds while the
// stored status still equals the status the decision was based on; otherwise
// a conflict is returned and nothing changes.
func (s *GrievanceService) Transition(ctx context.Context, id string, req dto.TransitionGrievanceRequest, actor models.Actor) (*dto.TransitionResult, error) {
	record, err := s.Get(ctx, id, actor)
	if err != nil {
		return nil, err
	}
	if req.ExpectedStatus != "" && req.ExpectedStatus != record.Status {
		s.reject("transition", appErrors.ErrConflict)
		return nil, appErrors.Clone(appErrors.ErrConflict, fmt.Sprintf("grievance is %s, expected %s", record.Status, req.ExpectedStatus))
	}

	updated, err := grievance.Transition(*record, grievance.TransitionRequest{
		To:                 req.Status,
		Actor:              actor,
		ResolutionComments: req.ResolutionComments,
		Now:                s.now().UTC(),
	})
	if err != nil {
		s.reject("transition", err)
		return nil, err
	}

	history, err := s.repo.UpdateStatus(ctx, repository.UpdateStatusParams{
		ID:                 record.ID,
		From:               record.Status,
		To:                 updated.Status,
		ResolutionComments: updated.ResolutionComments,
		ChangedBy:          actor.ID,
		ChangedAt:          updated.UpdatedAt,
	})
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			s.metrics.RecordStaleWrite()
			s.reject("transition", appErrors.ErrConflict)
			return nil, appErrors.Clone(appErrors.ErrConflict, "grievance status changed concurrently")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update grievance status")
	}

	s.metrics.RecordTransition(record.Status, updated.Status)
	s.cache.Invalidate(ctx, statsCacheKey)
	s.logger.Info("grievance status changed",
		zap.String("grievance_id", record.GrievanceID),
		zap.String("from", string(record.Status)),
		zap.String("to", string(updated.Status)),
		zap.String("actor_id", actor.ID),
	)
	return &dto.TransitionResult{Grievance: updated, History: history}, nil
}

// Stats returns the per-status dashboard counts, served from cache when possible.
func (s *GrievanceService) Stats(ctx context.Context, actor models.Actor) (*models.GrievanceStats, error) {
	if !actor.Role.IsReviewer() {
		return nil, appErrors.Clone(appErrors.ErrUnauthorizedAction, "only reviewers may view grievance statistics")
	}
	var cached models.GrievanceStats
	if s.cache.Get(ctx, statsCacheKey, &cached) {
		return &cached, nil
	}
	return s.RefreshStats(ctx)
}

// RefreshStats recomputes the counts, stores them in the cache and publishes
// them as gauges.
func (s *GrievanceService) RefreshStats(ctx context.Context) (*models.GrievanceStats, error) {
	counts, err := s.repo.CountByStatus(ctx, models.GrievanceFilter{})
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to compute grievance statistics")
	}
	stats := summarize(counts)
	s.cache.Set(ctx, statsCacheKey, stats, s.statsTTL)
	s.metrics.SetStatusCounts(stats)
	return &stats, nil
}

func summarize(counts []models.StatusCount) models.GrievanceStats {
	var stats models.GrievanceStats
	for _, c := range counts {
		stats.Total += c.Count
		switch c.Status {
		case models.StatusSubmitted:
			stats.Submitted += c.Count
		case models.StatusInProgress:
			stats.InProgress += c.Count
		case models.StatusResolved:
			stats.Resolved += c.Count
		case models.StatusClosed:
			stats.Closed += c.Count
		}
	}
	return stats
}

func (s *GrievanceService) reject(operation string, err error) {
	s.metrics.RecordRejection(operation, appErrors.FromError(err).Code)
}
