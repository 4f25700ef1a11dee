package sync

import (
	"context"
	"fmt"

	"blueprint-library/feature/blueprints/models"

	"go.uber.org/zap"
)

// EnrichTypeNames replaces placeholder type names with the real ones via the
// bulk name resolver. Types the resolver does not know stay flagged for a
// later pass.
func (s *Syncer) EnrichTypeNames(ctx context.Context) error {
	log := s.logger.With(zap.String("task", "types"))

	var pending []models.EveType
	if err := s.db.WithContext(ctx).Where("placeholder = ?", true).Find(&pending).Error; err != nil {
		return fmt.Errorf("failed to list placeholder types: %w", err)
	}
	if len(pending) == 0 {
		return nil
	}

	ids := make([]int64, len(pending))
	for i, t := range pending {
		ids[i] = int64(t.ID)
	}
	refs, err := s.client.ResolveNames(ctx, ids)
	if err != nil {
		log.Warn("Type name resolution failed", zap.Error(err))
		return nil
	}

	for _, ref := range refs {
		if ref.Category != "inventory_type" {
			continue
		}
		err := s.db.WithContext(ctx).Model(&models.EveType{}).
			Where("id = ?", ref.ID).
			Updates(map[string]any{"name": ref.Name, "placeholder": false}).Error
		if err != nil {
			return fmt.Errorf("failed to store type name for %d: %w", ref.ID, err)
		}
	}
	log.Debug("Type names enriched", zap.Int("pending", len(pending)), zap.Int("resolved", len(refs)))
	return nil
}
