package cmd

import (
	"context"
	"fmt"
	"time"

	"blueprint-library/core/config"
	"blueprint-library/core/database"
	"blueprint-library/core/sso"
	"blueprint-library/feature/blueprints/models"

	"github.com/spf13/cobra"
	"gorm.io/gorm/clause"
)

var (
	ownerCharacterID   int64
	ownerCharacterName string
	ownerCorporationID int64
	ownerCorporation   string

	tokenCharacterID  int64
	tokenRefreshToken string
	tokenScopes       string
)

// ownerCmd manages tracked owners.
var ownerCmd = &cobra.Command{
	Use:   "owner",
	Short: "Manage tracked blueprint owners",
}

// ownerAddCmd registers a character or corporation for tracking. A corporate
// owner is created when --corporation-id is given; the character is then the
// director used for credential retrieval.
var ownerAddCmd = &cobra.Command{
	Use:   "add",
	Short: "Track a character or corporation",
	RunE: func(cmd *cobra.Command, args []string) error {
		if ownerCharacterID == 0 {
			return fmt.Errorf("--character-id is required")
		}

		cfg, err := config.LoadConfig(".")
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}
		db, err := database.Connect(cfg.Database)
		if err != nil {
			return fmt.Errorf("failed to connect to database: %w", err)
		}
		if err := db.AutoMigrate(models.All()...); err != nil {
			return fmt.Errorf("failed to migrate schema: %w", err)
		}

		owner := models.Owner{
			CharacterID:   ownerCharacterID,
			CharacterName: ownerCharacterName,
		}
		if ownerCorporationID != 0 {
			owner.IsCorporation = true
			owner.CorporationID = &ownerCorporationID
			owner.CorporationName = ownerCorporation
		}
		if err := db.Clauses(clause.OnConflict{DoNothing: true}).Create(&owner).Error; err != nil {
			return fmt.Errorf("failed to register owner: %w", err)
		}

		fmt.Printf("Tracking %s\n", owner)
		return nil
	},
}

// tokenCmd manages stored SSO grants.
var tokenCmd = &cobra.Command{
	Use:   "token",
	Short: "Manage stored SSO grants",
}

// tokenAddCmd stores a refresh token for a character. The access token is
// obtained lazily on the next sync pass.
var tokenAddCmd = &cobra.Command{
	Use:   "add",
	Short: "Store a refresh token for a character",
	RunE: func(cmd *cobra.Command, args []string) error {
		if tokenCharacterID == 0 || tokenRefreshToken == "" {
			return fmt.Errorf("--character-id and --refresh-token are required")
		}

		cfg, err := config.LoadConfig(".")
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}
		db, err := database.Connect(cfg.Database)
		if err != nil {
			return fmt.Errorf("failed to connect to database: %w", err)
		}
		if err := db.AutoMigrate(&sso.CharacterToken{}); err != nil {
			return fmt.Errorf("failed to migrate schema: %w", err)
		}

		provider := sso.NewProvider(db, cfg.SSO)
		err = provider.Save(context.Background(), sso.CharacterToken{
			CharacterID:  tokenCharacterID,
			RefreshToken: tokenRefreshToken,
			Scopes:       tokenScopes,
			ExpiresAt:    time.Now().UTC(), // force a refresh on first use
		})
		if err != nil {
			return fmt.Errorf("failed to store token: %w", err)
		}

		fmt.Printf("Stored grant for character %d\n", tokenCharacterID)
		return nil
	},
}

func init() {
	ownerAddCmd.Flags().Int64Var(&ownerCharacterID, "character-id", 0, "EVE character id backing this owner")
	ownerAddCmd.Flags().StringVar(&ownerCharacterName, "character-name", "", "Character display name")
	ownerAddCmd.Flags().Int64Var(&ownerCorporationID, "corporation-id", 0, "EVE corporation id (makes this a corporate owner)")
	ownerAddCmd.Flags().StringVar(&ownerCorporation, "corporation-name", "", "Corporation display name")
	ownerCmd.AddCommand(ownerAddCmd)

	tokenAddCmd.Flags().Int64Var(&tokenCharacterID, "character-id", 0, "EVE character id")
	tokenAddCmd.Flags().StringVar(&tokenRefreshToken, "refresh-token", "", "SSO refresh token")
	tokenAddCmd.Flags().StringVar(&tokenScopes, "scopes", "", "Granted scopes (informational)")
	tokenCmd.AddCommand(tokenAddCmd)

	RootCmd.AddCommand(ownerCmd, tokenCmd)
}
