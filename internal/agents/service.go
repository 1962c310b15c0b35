package agents

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"agentmarket/server/internal/auth"
	"agentmarket/server/internal/errs"
	"agentmarket/server/internal/models"

	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

const catalogCacheKey = "agents:approved"

// Service owns the agent catalog: developer-created listings moderated
// by admins. The approved catalog is optionally cached in redis.
type Service struct {
	db       *gorm.DB
	cache    *redis.Client // nil disables caching
	cacheTTL time.Duration
	log      *logrus.Entry
}

// NewService creates a new agent catalog service. cache may be nil.
func NewService(db *gorm.DB, cache *redis.Client, cacheTTL time.Duration) *Service {
	return &Service{
		db:       db,
		cache:    cache,
		cacheTTL: cacheTTL,
		log:      logrus.WithField("component", "agents"),
	}
}

// CreateInput carries a new agent listing.
type CreateInput struct {
	Name         string   `json:"name"`
	Description  string   `json:"description"`
	Category     string   `json:"category"`
	InputFormat  string   `json:"input_format"`
	OutputFormat string   `json:"output_format"`
	PricingModel string   `json:"pricing_model"`
	HourlyRate   *float64 `json:"hourly_rate"`
	APIEndpoint  *string  `json:"api_endpoint"`
}

// Create registers a new listing. Requires the developer role; the
// listing starts in pending until an admin moderates it.
func (s *Service) Create(ctx context.Context, caller auth.Context, in CreateInput) (*models.Agent, error) {
	if caller.Role != models.RoleDeveloper && caller.Role != models.RoleAdmin {
		return nil, errs.Validation("developer role required to create agents")
	}
	if in.Name == "" {
		return nil, errs.Validation("name is required")
	}
	if !models.ValidCategory(in.Category) {
		return nil, errs.Validation("unknown category %q", in.Category)
	}
	if in.PricingModel == "" {
		in.PricingModel = models.PricingFree
	}
	if !models.ValidPricingModel(in.PricingModel) {
		return nil, errs.Validation("unknown pricing model %q", in.PricingModel)
	}

	now := time.Now()
	agent := &models.Agent{
		ID:           uuid.New().String(),
		UserID:       caller.UserID,
		Name:         in.Name,
		Description:  in.Description,
		Category:     in.Category,
		InputFormat:  in.InputFormat,
		OutputFormat: in.OutputFormat,
		PricingModel: in.PricingModel,
		HourlyRate:   in.HourlyRate,
		APIEndpoint:  in.APIEndpoint,
		Status:       models.AgentStatusPending,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	if err := s.db.WithContext(ctx).Create(agent).Error; err != nil {
		return nil, errs.Dependency("failed to create agent", err)
	}
	return agent, nil
}

// GetByID returns an agent. Unapproved listings are visible only to
// their owner and admins.
func (s *Service) GetByID(ctx context.Context, caller auth.Context, agentID string) (*models.Agent, error) {
	var agent models.Agent
	if err := s.db.WithContext(ctx).First(&agent, "id = ?", agentID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errs.NotFound("agent not found: %s", agentID)
		}
		return nil, errs.Dependency("failed to load agent", err)
	}

	if agent.Status != models.AgentStatusApproved &&
		agent.UserID != caller.UserID && caller.Role != models.RoleAdmin {
		return nil, errs.NotFound("agent not found: %s", agentID)
	}
	return &agent, nil
}

// CatalogFilter narrows the public catalog listing.
type CatalogFilter struct {
	Category string
	Search   string
	Limit    int
}

// ListApproved returns the public catalog. The unfiltered listing is
// served from cache when redis is configured.
func (s *Service) ListApproved(ctx context.Context, f CatalogFilter) ([]models.Agent, error) {
	cacheable := s.cache != nil && f.Category == "" && f.Search == "" && f.Limit == 0

	if cacheable {
		if data, err := s.cache.Get(ctx, catalogCacheKey).Bytes(); err == nil {
			var cached []models.Agent
			if err := json.Unmarshal(data, &cached); err == nil {
				return cached, nil
			}
		}
	}

	limit := f.Limit
	if limit <= 0 || limit > 200 {
		limit = 50
	}

	query := s.db.WithContext(ctx).Where("status = ?", models.AgentStatusApproved)
	if f.Category != "" {
		query = query.Where("category = ?", f.Category)
	}
	if f.Search != "" {
		pattern := "%" + f.Search + "%"
		query = query.Where("name LIKE ? OR description LIKE ?", pattern, pattern)
	}

	var out []models.Agent
	if err := query.Order("avg_rating DESC, created_at DESC").Limit(limit).Find(&out).Error; err != nil {
		return nil, errs.Dependency("failed to list agents", err)
	}

	if cacheable {
		if data, err := json.Marshal(out); err == nil {
			if err := s.cache.Set(ctx, catalogCacheKey, data, s.cacheTTL).Err(); err != nil {
				s.log.WithError(err).Warn("failed to cache agent catalog")
			}
		}
	}

	return out, nil
}

// ListMine returns the caller's own listings regardless of status.
func (s *Service) ListMine(ctx context.Context, caller auth.Context) ([]models.Agent, error) {
	var out []models.Agent
	if err := s.db.WithContext(ctx).
		Where("user_id = ?", caller.UserID).
		Order("created_at DESC").
		Find(&out).Error; err != nil {
		return nil, errs.Dependency("failed to list agents", err)
	}
	return out, nil
}

// ListPending returns listings awaiting moderation. Admin only.
func (s *Service) ListPending(ctx context.Context, caller auth.Context) ([]models.Agent, error) {
	if caller.Role != models.RoleAdmin {
		return nil, errs.Validation("admin role required")
	}

	var out []models.Agent
	if err := s.db.WithContext(ctx).
		Where("status = ?", models.AgentStatusPending).
		Order("created_at ASC").
		Find(&out).Error; err != nil {
		return nil, errs.Dependency("failed to list pending agents", err)
	}
	return out, nil
}

// Approve moves a pending listing into the public catalog. Admin only.
func (s *Service) Approve(ctx context.Context, caller auth.Context, agentID string) (*models.Agent, error) {
	return s.moderate(ctx, caller, agentID, models.AgentStatusApproved)
}

// Reject declines a pending listing. Admin only.
func (s *Service) Reject(ctx context.Context, caller auth.Context, agentID string) (*models.Agent, error) {
	return s.moderate(ctx, caller, agentID, models.AgentStatusRejected)
}

func (s *Service) moderate(ctx context.Context, caller auth.Context, agentID, status string) (*models.Agent, error) {
	if caller.Role != models.RoleAdmin {
		return nil, errs.Validation("admin role required")
	}

	var agent models.Agent
	if err := s.db.WithContext(ctx).First(&agent, "id = ?", agentID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errs.NotFound("agent not found: %s", agentID)
		}
		return nil, errs.Dependency("failed to load agent", err)
	}

	agent.Status = status
	agent.UpdatedAt = time.Now()
	if err := s.db.WithContext(ctx).Save(&agent).Error; err != nil {
		return nil, errs.Dependency("failed to update agent", err)
	}

	s.invalidateCatalog(ctx)

	return &agent, nil
}

func (s *Service) invalidateCatalog(ctx context.Context) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Del(ctx, catalogCacheKey).Err(); err != nil {
		s.log.WithError(err).Warn("failed to invalidate agent catalog cache")
	}
}
