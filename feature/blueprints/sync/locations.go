package sync

import (
	"context"
	"fmt"
	"strings"

	"blueprint-library/feature/blueprints/models"

	"go.uber.org/zap"
	"gorm.io/gorm/clause"
)

// ResolveLocations populates names for location identifiers that are still
// unresolved. Phase 1 uses the unauthenticated bulk resolver; identifiers it
// does not return (typically player structures) are retried with an
// authenticated per-structure lookup in phase 2.
func (s *Syncer) ResolveLocations(ctx context.Context) error {
	log := s.logger.With(zap.String("task", "locations"))

	var unresolved []models.BlueprintLocation
	if err := s.db.WithContext(ctx).Where("name = ?", "").Find(&unresolved).Error; err != nil {
		return fmt.Errorf("failed to list unresolved locations: %w", err)
	}
	if len(unresolved) == 0 {
		return nil
	}

	// Phase 1: bulk public resolution.
	ids := make([]int64, len(unresolved))
	for i, loc := range unresolved {
		ids[i] = loc.ID
	}
	refs, err := s.client.ResolveNames(ctx, ids)
	if err != nil {
		// Still worth trying phase 2 with whatever remains unresolved.
		log.Warn("Bulk name resolution failed", zap.Error(err))
		refs = nil
	}
	for _, ref := range refs {
		if err := s.applyResolution(ctx, ref.ID, ref.Name, normalizeCategory(ref.Category)); err != nil {
			return err
		}
		// Feed the public entity catalog so future blueprint syncs stop
		// registering this identifier.
		entity := models.EveEntity{ID: ref.ID, Name: ref.Name, Category: ref.Category}
		if err := s.db.WithContext(ctx).Clauses(clause.OnConflict{UpdateAll: true}).Create(&entity).Error; err != nil {
			return fmt.Errorf("failed to cache entity %d: %w", ref.ID, err)
		}
	}

	// Phase 2: authenticated per-structure lookups.
	var remaining []models.BlueprintLocation
	if err := s.db.WithContext(ctx).Where("name = ?", "").Find(&remaining).Error; err != nil {
		return fmt.Errorf("failed to list unresolved locations: %w", err)
	}
	if len(remaining) == 0 {
		return nil
	}

	token, ok := s.elevatedToken(ctx)
	if !ok {
		log.Info("No elevated credential available; structures stay unresolved",
			zap.Int("remaining", len(remaining)))
		return nil
	}

	for _, loc := range remaining {
		structure, err := s.client.Structure(ctx, loc.ID, token)
		if err != nil {
			// Left for a future pass.
			log.Warn("Structure lookup failed", zap.Int64("location_id", loc.ID), zap.Error(err))
			continue
		}
		name := structure.Name
		if name == "" {
			name = models.PlaceholderStructureName(loc.ID)
		}
		if err := s.applyResolution(ctx, loc.ID, name, models.CategoryStructure); err != nil {
			return err
		}
	}
	return nil
}

// applyResolution writes a resolved name. Last-write-wins is fine here: a
// concurrent pass converges to the same values.
func (s *Syncer) applyResolution(ctx context.Context, locationID int64, name, category string) error {
	err := s.db.WithContext(ctx).Model(&models.BlueprintLocation{}).
		Where("id = ?", locationID).
		Updates(map[string]any{"name": name, "category": category}).Error
	if err != nil {
		return fmt.Errorf("failed to store resolution for %d: %w", locationID, err)
	}
	return nil
}

// elevatedToken selects a credential able to read structure data: corporate
// owners in corporation-id order, first one whose token retrieval succeeds.
// The ordering makes the selection reproducible across passes.
func (s *Syncer) elevatedToken(ctx context.Context) (string, bool) {
	var directors []models.Owner
	err := s.db.WithContext(ctx).
		Where("is_corporation = ?", true).
		Order("corporation_id asc").
		Find(&directors).Error
	if err != nil {
		s.logger.Warn("Failed to list director candidates", zap.Error(err))
		return "", false
	}
	for _, d := range directors {
		token, err := s.tokens.Token(ctx, d.CharacterID)
		if err == nil {
			return token, true
		}
		s.logger.Debug("Elevated credential candidate rejected",
			zap.Int64("character_id", d.CharacterID), zap.Error(err))
	}
	return "", false
}

// normalizeCategory maps ESI's lowercase categories onto the title-cased form
// the category column uses throughout.
func normalizeCategory(category string) string {
	switch category {
	case "station":
		return models.CategoryStation
	case "structure":
		return models.CategoryStructure
	case "":
		return models.CategoryUnknown
	}
	parts := strings.Split(category, "_")
	for i, p := range parts {
		if p != "" {
			parts[i] = strings.ToUpper(p[:1]) + p[1:]
		}
	}
	return strings.Join(parts, " ")
}
