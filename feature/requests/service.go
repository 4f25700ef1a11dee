package requests

import (
	"context"
	"errors"
	"fmt"
	"time"

	"blueprint-library/feature/blueprints/models"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ErrAlreadyDecided is returned when approving or denying a request that is no
// longer open.
var ErrAlreadyDecided = errors.New("request already decided")

// Service manages the blueprint request workflow.
type Service struct {
	db     *gorm.DB
	logger *zap.Logger
}

// NewService creates a new requests service.
func NewService(db *gorm.DB, logger *zap.Logger) *Service {
	return &Service{db: db, logger: logger}
}

// Create opens a new request for a blueprint type.
func (s *Service) Create(ctx context.Context, characterID int64, characterName string, typeID int32) (*models.BlueprintRequest, error) {
	// The requested type may not have been synced yet; register it with a
	// placeholder name like the sync engine does.
	row := models.EveType{
		ID:          typeID,
		Name:        models.PlaceholderTypeName(typeID),
		Placeholder: true,
	}
	if err := s.db.WithContext(ctx).Clauses(clause.OnConflict{DoNothing: true}).Create(&row).Error; err != nil {
		return nil, fmt.Errorf("failed to register requested type: %w", err)
	}

	req := models.BlueprintRequest{
		Reference:     uuid.NewString(),
		CharacterID:   characterID,
		CharacterName: characterName,
		TypeID:        typeID,
		Status:        models.RequestStatusOpen,
		RequestedAt:   time.Now().UTC(),
	}
	if err := s.db.WithContext(ctx).Create(&req).Error; err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	s.logger.Info("Blueprint request created",
		zap.String("reference", req.Reference),
		zap.Int64("character_id", characterID),
		zap.Int32("type_id", typeID),
	)
	return &req, nil
}

// ListForCharacter returns a character's own requests, newest first.
func (s *Service) ListForCharacter(ctx context.Context, characterID int64) ([]models.BlueprintRequest, error) {
	var rows []models.BlueprintRequest
	err := s.db.WithContext(ctx).Preload("Type").
		Where("character_id = ?", characterID).
		Order("requested_at desc").
		Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list requests: %w", err)
	}
	return rows, nil
}

// ListOpen returns the manager queue, oldest first.
func (s *Service) ListOpen(ctx context.Context) ([]models.BlueprintRequest, error) {
	var rows []models.BlueprintRequest
	err := s.db.WithContext(ctx).Preload("Type").
		Where("status = ?", models.RequestStatusOpen).
		Order("requested_at asc").
		Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list open requests: %w", err)
	}
	return rows, nil
}

// Decide approves or denies an open request. Decided requests are immutable.
func (s *Service) Decide(ctx context.Context, reference, status, decidedBy, notes string) (*models.BlueprintRequest, error) {
	if status != models.RequestStatusApproved && status != models.RequestStatusDenied {
		return nil, fmt.Errorf("invalid decision status %q", status)
	}

	var req models.BlueprintRequest
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("reference = ?", reference).First(&req).Error; err != nil {
			return err
		}
		if req.Status != models.RequestStatusOpen {
			return ErrAlreadyDecided
		}
		now := time.Now().UTC()
		req.Status = status
		req.DecidedAt = &now
		req.DecidedBy = decidedBy
		if notes != "" {
			req.Notes = notes
		}
		return tx.Save(&req).Error
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("Blueprint request decided",
		zap.String("reference", req.Reference),
		zap.String("status", req.Status),
		zap.String("decided_by", decidedBy),
	)
	return &req, nil
}
