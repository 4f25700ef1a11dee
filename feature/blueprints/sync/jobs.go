package sync

import (
	"context"
	"fmt"
	"strconv"

	"blueprint-library/core/esi"
	"blueprint-library/feature/blueprints/models"

	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// activityNames maps ESI industry activity ids to readable names.
var activityNames = map[int32]string{
	1: "manufacturing",
	3: "researching_time_efficiency",
	4: "researching_material_efficiency",
	5: "copying",
	7: "reverse_engineering",
	8: "invention",
	9: "reaction",
}

func activityName(id int32) string {
	if name, ok := activityNames[id]; ok {
		return name
	}
	return strconv.Itoa(int(id))
}

// SyncAllIndustryJobs reconciles the active industry jobs of every tracked
// owner. Jobs no longer reported as active are pruned.
func (s *Syncer) SyncAllIndustryJobs(ctx context.Context) error {
	var owners []models.Owner
	if err := s.db.WithContext(ctx).Find(&owners).Error; err != nil {
		return fmt.Errorf("failed to list owners: %w", err)
	}
	for _, owner := range owners {
		if err := s.syncOwnerJobs(ctx, owner); err != nil {
			return err
		}
	}
	return nil
}

func (s *Syncer) syncOwnerJobs(ctx context.Context, owner models.Owner) error {
	log := s.logger.With(zap.String("task", "jobs"), zap.String("owner", owner.String()))

	token, err := s.tokens.Token(ctx, owner.CharacterID)
	if err != nil {
		log.Warn("Skipping owner: no usable credential", zap.Error(err))
		return nil
	}

	var remote []esi.IndustryJob
	if owner.IsCorporation && owner.CorporationID != nil {
		remote, err = s.client.CorporationIndustryJobs(ctx, *owner.CorporationID, token)
	} else {
		remote, err = s.client.CharacterIndustryJobs(ctx, owner.CharacterID, token)
	}
	if err != nil {
		log.Warn("Skipping owner: job fetch failed", zap.Error(err))
		return nil
	}

	unlock := s.locks.lock(owner.ID)
	defer unlock()

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		// One lookup table instead of a query per record.
		blueprintIDs, err := ownerBlueprintIndex(tx, owner.ID)
		if err != nil {
			return err
		}

		seen := make([]int64, 0, len(remote))
		for _, job := range remote {
			seen = append(seen, job.JobID)
			if err := upsertJob(tx, owner, job, blueprintIDs); err != nil {
				log.Warn("Failed to store job record",
					zap.Int64("job_id", job.JobID), zap.Error(err))
			}
		}

		return deleteByExclusion(tx, &models.IndustryJob{}, owner.ID, "job_id", seen)
	})
	if err != nil {
		return fmt.Errorf("job reconcile failed for %s: %w", owner, err)
	}

	log.Debug("Owner jobs reconciled", zap.Int("records", len(remote)))
	return nil
}

// ownerBlueprintIndex maps the owner's blueprint item ids to row ids for job
// linking.
func ownerBlueprintIndex(tx *gorm.DB, ownerID uint) (map[int64]uint, error) {
	var rows []models.Blueprint
	if err := tx.Select("id", "item_id").Where("owner_id = ?", ownerID).Find(&rows).Error; err != nil {
		return nil, err
	}
	index := make(map[int64]uint, len(rows))
	for _, row := range rows {
		index[row.ItemID] = row.ID
	}
	return index, nil
}

func upsertJob(tx *gorm.DB, owner models.Owner, job esi.IndustryJob, blueprintIDs map[int64]uint) error {
	status := job.Status
	if status == "" {
		status = "active"
	}

	// A job whose blueprint cannot be matched is stored with a null link, not
	// dropped.
	var blueprintID *uint
	if id, ok := blueprintIDs[job.BlueprintID]; ok && job.BlueprintID != 0 {
		blueprintID = &id
	}

	row := models.IndustryJob{
		JobID:       job.JobID,
		OwnerID:     owner.ID,
		Activity:    activityName(job.ActivityID),
		Status:      status,
		BlueprintID: blueprintID,
		StartDate:   job.StartDate,
		EndDate:     job.EndDate,
	}
	return tx.Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "job_id"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"owner_id", "activity", "status", "blueprint_id", "start_date", "end_date",
		}),
	}).Create(&row).Error
}
