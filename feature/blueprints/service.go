package blueprints

import (
	"context"
	"fmt"
	"strconv"

	"blueprint-library/feature/blueprints/models"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Service exposes read access to the synced collections, filtered by the
// viewer's access scope.
type Service struct {
	db     *gorm.DB
	logger *zap.Logger
}

// NewService creates a new blueprints service.
func NewService(db *gorm.DB, logger *zap.Logger) *Service {
	return &Service{db: db, logger: logger}
}

// BlueprintView is a Blueprint annotated with its resolved location name.
type BlueprintView struct {
	models.Blueprint
	LocationName string `json:"location_name"`
}

// ListBlueprints returns the blueprints visible within the scope, optionally
// filtered by a search over type name or location id.
func (s *Service) ListBlueprints(ctx context.Context, scope AccessScope, search string) ([]BlueprintView, error) {
	q := s.db.WithContext(ctx).Model(&models.Blueprint{}).
		Preload("Type").
		Joins("JOIN owners ON owners.id = blueprints.owner_id")
	q = scope.Apply(q)
	if search != "" {
		q = q.Joins("JOIN eve_types ON eve_types.id = blueprints.type_id").
			Where("eve_types.name LIKE ? OR blueprints.location_id LIKE ?",
				"%"+search+"%", "%"+search+"%")
	}

	var rows []models.Blueprint
	if err := q.Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("failed to list blueprints: %w", err)
	}
	return s.annotateLocations(ctx, rows)
}

// GetBlueprint returns a single visible blueprint and its linked jobs.
func (s *Service) GetBlueprint(ctx context.Context, scope AccessScope, id uint) (*BlueprintView, []models.IndustryJob, error) {
	q := s.db.WithContext(ctx).Model(&models.Blueprint{}).
		Preload("Type").
		Joins("JOIN owners ON owners.id = blueprints.owner_id").
		Where("blueprints.id = ?", id)
	q = scope.Apply(q)

	var row models.Blueprint
	if err := q.First(&row).Error; err != nil {
		return nil, nil, err
	}

	views, err := s.annotateLocations(ctx, []models.Blueprint{row})
	if err != nil {
		return nil, nil, err
	}

	var jobs []models.IndustryJob
	if err := s.db.WithContext(ctx).Where("blueprint_id = ?", row.ID).Find(&jobs).Error; err != nil {
		return nil, nil, fmt.Errorf("failed to list linked jobs: %w", err)
	}
	return &views[0], jobs, nil
}

// ListIndustryJobs returns the industry jobs visible within the scope.
func (s *Service) ListIndustryJobs(ctx context.Context, scope AccessScope) ([]models.IndustryJob, error) {
	q := s.db.WithContext(ctx).Model(&models.IndustryJob{}).
		Joins("JOIN owners ON owners.id = industry_jobs.owner_id").
		Order("industry_jobs.end_date asc")
	q = scope.Apply(q)

	var rows []models.IndustryJob
	if err := q.Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("failed to list industry jobs: %w", err)
	}
	return rows, nil
}

// ListLocations returns the location name cache, resolved and pending.
func (s *Service) ListLocations(ctx context.Context) ([]models.BlueprintLocation, error) {
	var rows []models.BlueprintLocation
	if err := s.db.WithContext(ctx).Order("id asc").Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("failed to list locations: %w", err)
	}
	return rows, nil
}

// annotateLocations resolves display names for the blueprints' location ids:
// public catalog first, then the structure cache, then the raw id.
func (s *Service) annotateLocations(ctx context.Context, rows []models.Blueprint) ([]BlueprintView, error) {
	ids := make([]int64, 0, len(rows))
	seen := make(map[int64]bool, len(rows))
	for _, row := range rows {
		if row.LocationID != 0 && !seen[row.LocationID] {
			seen[row.LocationID] = true
			ids = append(ids, row.LocationID)
		}
	}

	names := make(map[int64]string, len(ids))
	if len(ids) > 0 {
		var entities []models.EveEntity
		if err := s.db.WithContext(ctx).Where("id IN ?", ids).Find(&entities).Error; err != nil {
			return nil, fmt.Errorf("failed to look up entities: %w", err)
		}
		for _, e := range entities {
			names[e.ID] = e.Name
		}

		var locations []models.BlueprintLocation
		if err := s.db.WithContext(ctx).Where("id IN ?", ids).Find(&locations).Error; err != nil {
			return nil, fmt.Errorf("failed to look up locations: %w", err)
		}
		for _, l := range locations {
			if _, ok := names[l.ID]; !ok && l.Name != "" {
				names[l.ID] = l.Name
			}
		}
	}

	views := make([]BlueprintView, len(rows))
	for i, row := range rows {
		name, ok := names[row.LocationID]
		if !ok {
			name = strconv.FormatInt(row.LocationID, 10)
		}
		views[i] = BlueprintView{Blueprint: row, LocationName: name}
	}
	return views, nil
}
