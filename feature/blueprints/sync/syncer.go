package sync

import (
	"context"
	"fmt"
	"sync"

	"blueprint-library/core/esi"
	"blueprint-library/feature/blueprints/models"

	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// TokenProvider supplies access tokens for tracked characters.
type TokenProvider interface {
	Token(ctx context.Context, characterID int64) (string, error)
}

// Syncer runs the synchronization tasks against the persisted store.
type Syncer struct {
	db     *gorm.DB
	client *esi.Client
	tokens TokenProvider
	logger *zap.Logger
	locks  ownerLocks
}

// New creates a Syncer.
func New(db *gorm.DB, client *esi.Client, tokens TokenProvider, logger *zap.Logger) *Syncer {
	return &Syncer{db: db, client: client, tokens: tokens, logger: logger}
}

// SyncAllBlueprints reconciles the blueprint collection of every tracked
// owner. Owner-scoped failures are absorbed; only store failures are returned.
func (s *Syncer) SyncAllBlueprints(ctx context.Context) error {
	var owners []models.Owner
	if err := s.db.WithContext(ctx).Find(&owners).Error; err != nil {
		return fmt.Errorf("failed to list owners: %w", err)
	}
	for _, owner := range owners {
		if err := s.syncOwnerBlueprints(ctx, owner); err != nil {
			return err
		}
	}
	return nil
}

func (s *Syncer) syncOwnerBlueprints(ctx context.Context, owner models.Owner) error {
	log := s.logger.With(zap.String("task", "blueprints"), zap.String("owner", owner.String()))

	token, err := s.tokens.Token(ctx, owner.CharacterID)
	if err != nil {
		log.Warn("Skipping owner: no usable credential", zap.Error(err))
		return nil
	}

	var remote []esi.Blueprint
	if owner.IsCorporation && owner.CorporationID != nil {
		remote, err = s.client.CorporationBlueprints(ctx, *owner.CorporationID, token)
	} else {
		remote, err = s.client.CharacterBlueprints(ctx, owner.CharacterID, token)
	}
	if err != nil {
		log.Warn("Skipping owner: blueprint fetch failed", zap.Error(err))
		return nil
	}

	unlock := s.locks.lock(owner.ID)
	defer unlock()

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		seen := make([]int64, 0, len(remote))
		for _, bp := range remote {
			// The remote reported this item, so the deletion phase must not
			// remove it even if storing the record fails.
			seen = append(seen, bp.ItemID)
			if err := upsertBlueprint(tx, owner, bp); err != nil {
				log.Warn("Failed to store blueprint record",
					zap.Int64("item_id", bp.ItemID), zap.Error(err))
			}
		}

		// Detach jobs pointing at blueprints about to be removed. The FK is
		// declared SET NULL but not every driver enforces it.
		stale := tx.Model(&models.Blueprint{}).Select("id").Where("owner_id = ?", owner.ID)
		if len(seen) > 0 {
			stale = stale.Where("item_id NOT IN ?", seen)
		}
		if err := tx.Model(&models.IndustryJob{}).
			Where("blueprint_id IN (?)", stale).
			Update("blueprint_id", nil).Error; err != nil {
			return err
		}

		return deleteByExclusion(tx, &models.Blueprint{}, owner.ID, "item_id", seen)
	})
	if err != nil {
		return fmt.Errorf("blueprint reconcile failed for %s: %w", owner, err)
	}

	log.Debug("Owner blueprints reconciled", zap.Int("records", len(remote)))
	return nil
}

func upsertBlueprint(tx *gorm.DB, owner models.Owner, bp esi.Blueprint) error {
	if err := getOrCreateType(tx, bp.TypeID); err != nil {
		return err
	}

	row := models.Blueprint{
		OwnerID:            owner.ID,
		ItemID:             bp.ItemID,
		TypeID:             bp.TypeID,
		Quantity:           bp.Quantity,
		TimeEfficiency:     bp.TimeEfficiency,
		MaterialEfficiency: bp.MaterialEfficiency,
		Runs:               bp.Runs,
		LocationID:         bp.LocationID,
		LocationFlag:       bp.LocationFlag,
	}
	if err := tx.Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "owner_id"}, {Name: "item_id"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"type_id", "quantity", "time_efficiency", "material_efficiency",
			"runs", "location_id", "location_flag",
		}),
	}).Create(&row).Error; err != nil {
		return err
	}

	return registerLocation(tx, bp.LocationID)
}

// getOrCreateType inserts a minimal type row with a placeholder name on first
// sight; the type enrichment task fills in the real name later.
func getOrCreateType(tx *gorm.DB, typeID int32) error {
	row := models.EveType{
		ID:          typeID,
		Name:        models.PlaceholderTypeName(typeID),
		Placeholder: true,
	}
	return tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&row).Error
}

// registerLocation records a location identifier for later name resolution
// when the public entity catalog does not know it.
func registerLocation(tx *gorm.DB, locationID int64) error {
	if locationID == 0 {
		return nil
	}
	var known int64
	if err := tx.Model(&models.EveEntity{}).Where("id = ?", locationID).Count(&known).Error; err != nil {
		return err
	}
	if known > 0 {
		return nil
	}
	row := models.BlueprintLocation{ID: locationID, Name: "", Category: models.CategoryUnknown}
	return tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&row).Error
}

// deleteByExclusion removes the owner's rows whose identifier was not seen in
// the current snapshot. An empty snapshot removes all of the owner's rows.
func deleteByExclusion(tx *gorm.DB, model any, ownerID uint, idColumn string, seen []int64) error {
	q := tx.Where("owner_id = ?", ownerID)
	if len(seen) > 0 {
		q = q.Where(idColumn+" NOT IN ?", seen)
	}
	return q.Delete(model).Error
}

// ownerLocks serializes reconcile-and-delete sequences per owner so
// overlapping passes cannot race each other's deletion phase.
type ownerLocks struct {
	mu sync.Mutex
	m  map[uint]*sync.Mutex
}

func (l *ownerLocks) lock(ownerID uint) func() {
	l.mu.Lock()
	if l.m == nil {
		l.m = make(map[uint]*sync.Mutex)
	}
	om, ok := l.m[ownerID]
	if !ok {
		om = &sync.Mutex{}
		l.m[ownerID] = om
	}
	l.mu.Unlock()
	om.Lock()
	return om.Unlock
}
