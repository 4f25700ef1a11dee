package sso

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/oauth2"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// expiryLeeway is subtracted from the stored expiry so a token about to lapse
// mid-pass is refreshed up front.
const expiryLeeway = 60 * time.Second

// CharacterToken is a stored SSO grant for one character.
type CharacterToken struct {
	CharacterID  int64 `gorm:"primaryKey"`
	RefreshToken string
	AccessToken  string
	ExpiresAt    time.Time
	Scopes       string
}

// TableName overrides the table name.
func (CharacterToken) TableName() string {
	return "character_tokens"
}

// Provider issues access tokens for tracked characters, refreshing through the
// SSO token endpoint when the cached access token has expired.
type Provider struct {
	db  *gorm.DB
	cfg Config
}

// NewProvider creates a credential provider backed by the given store.
func NewProvider(db *gorm.DB, cfg Config) *Provider {
	return &Provider{db: db, cfg: cfg}
}

// Token returns a usable access token for the character. A character without a
// stored grant, or whose refresh is rejected, yields an error the caller is
// expected to absorb by skipping that owner for the current pass.
func (p *Provider) Token(ctx context.Context, characterID int64) (string, error) {
	var row CharacterToken
	if err := p.db.WithContext(ctx).First(&row, "character_id = ?", characterID).Error; err != nil {
		return "", fmt.Errorf("no stored token for character %d: %w", characterID, err)
	}

	if row.AccessToken != "" && time.Until(row.ExpiresAt) > expiryLeeway {
		return row.AccessToken, nil
	}

	conf := &oauth2.Config{
		ClientID:     p.cfg.ClientID,
		ClientSecret: p.cfg.ClientSecret,
		Endpoint:     oauth2.Endpoint{TokenURL: p.cfg.TokenURL},
	}
	tok, err := conf.TokenSource(ctx, &oauth2.Token{RefreshToken: row.RefreshToken}).Token()
	if err != nil {
		return "", fmt.Errorf("token refresh failed for character %d: %w", characterID, err)
	}

	row.AccessToken = tok.AccessToken
	row.ExpiresAt = tok.Expiry
	if tok.RefreshToken != "" {
		// SSO rotates refresh tokens; losing the new one invalidates the grant.
		row.RefreshToken = tok.RefreshToken
	}
	if err := p.db.WithContext(ctx).Save(&row).Error; err != nil {
		return "", fmt.Errorf("failed to persist refreshed token: %w", err)
	}

	return tok.AccessToken, nil
}

// Save stores or updates a character's grant.
func (p *Provider) Save(ctx context.Context, tok CharacterToken) error {
	return p.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "character_id"}},
		UpdateAll: true,
	}).Create(&tok).Error
}
