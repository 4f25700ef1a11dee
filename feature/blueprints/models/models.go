package models

import (
	"fmt"
	"time"
)

// Location categories stored on BlueprintLocation and EveEntity.
const (
	CategoryStation   = "Station"
	CategoryStructure = "Structure"
	CategoryUnknown   = "Unknown"
)

// Owner is a tracked blueprint owner: a character, or a corporation accessed
// through a director's character.
type Owner struct {
	ID uint `gorm:"primaryKey" json:"id"`
	// CharacterID is the character used to retrieve data for this owner.
	CharacterID   int64  `gorm:"uniqueIndex:idx_character_kind" json:"character_id"`
	CharacterName string `json:"character_name"`
	// CorporationID is set iff the owner is a corporation. At most one
	// corporate owner exists per corporation.
	CorporationID   *int64 `gorm:"uniqueIndex" json:"corporation_id,omitempty"`
	CorporationName string `json:"corporation_name,omitempty"`
	IsCorporation   bool   `gorm:"uniqueIndex:idx_character_kind" json:"is_corporation"`
}

func (o Owner) String() string {
	if o.IsCorporation {
		return fmt.Sprintf("Corp: %s", o.CorporationName)
	}
	return fmt.Sprintf("Char: %s", o.CharacterName)
}

// EveType is a cached type reference. Placeholder marks rows created with a
// synthesized name, awaiting enrichment.
type EveType struct {
	ID          int32  `gorm:"primaryKey" json:"id"`
	Name        string `json:"name"`
	Placeholder bool   `json:"-"`
}

// PlaceholderTypeName is the synthesized display name for a type whose real
// name has not been resolved yet.
func PlaceholderTypeName(typeID int32) string {
	return fmt.Sprintf("Type %d", typeID)
}

// EveEntity is the public entity catalog cache (stations, systems, ...).
// A location identifier absent from this catalog is registered as an
// unresolved BlueprintLocation instead.
type EveEntity struct {
	ID       int64  `gorm:"primaryKey" json:"id"`
	Name     string `json:"name"`
	Category string `json:"category"`
}

// Blueprint is a blueprint instance held by an Owner. The pair
// (owner, item id) uniquely identifies it.
type Blueprint struct {
	ID      uint  `gorm:"primaryKey" json:"id"`
	OwnerID uint  `gorm:"uniqueIndex:idx_owner_item" json:"owner_id"`
	Owner   Owner `gorm:"constraint:OnDelete:CASCADE" json:"-"`
	// ItemID is the blueprint item identifier reported by ESI.
	ItemID int64   `gorm:"uniqueIndex:idx_owner_item" json:"item_id"`
	TypeID int32   `json:"type_id"`
	Type   EveType `gorm:"foreignKey:TypeID" json:"type"`
	// Quantity follows ESI semantics: -1 single original, -2 copy,
	// positive values are stacked originals.
	Quantity           int64 `json:"quantity"`
	TimeEfficiency     int32 `json:"time_efficiency"`
	MaterialEfficiency int32 `json:"material_efficiency"`
	// Runs remaining; -1 means an original with unlimited runs.
	Runs         int32  `json:"runs"`
	LocationID   int64  `json:"location_id"`
	LocationFlag string `json:"location_flag"`
}

// IsOriginal reports whether the blueprint is an original (BPO) rather than a
// copy (BPC).
func (b Blueprint) IsOriginal() bool {
	return b.Runs == -1 || b.Quantity == -1
}

// IndustryJob is an active industry job synced from ESI. The blueprint link is
// best effort: it is null when the originating blueprint cannot be matched.
type IndustryJob struct {
	ID      uint  `gorm:"primaryKey" json:"id"`
	JobID   int64 `gorm:"uniqueIndex" json:"job_id"`
	OwnerID uint  `gorm:"index" json:"owner_id"`
	Owner   Owner `gorm:"constraint:OnDelete:CASCADE" json:"-"`
	// Activity is the human-readable activity kind (manufacturing, copying...).
	Activity    string     `json:"activity"`
	Status      string     `json:"status"`
	BlueprintID *uint      `json:"blueprint_id,omitempty"`
	Blueprint   *Blueprint `gorm:"constraint:OnDelete:SET NULL" json:"-"`
	StartDate   *time.Time `json:"start_date,omitempty"`
	EndDate     *time.Time `json:"end_date,omitempty"`
}

// BlueprintLocation is a cached, owner-agnostic name resolution for a location
// identifier. An empty name means the location is still unresolved.
type BlueprintLocation struct {
	ID       int64  `gorm:"primaryKey" json:"id"`
	Name     string `json:"name"`
	Category string `json:"category"`
}

// Resolved reports whether the location has a display name.
func (l BlueprintLocation) Resolved() bool {
	return l.Name != ""
}

// PlaceholderStructureName is the synthesized display name for a structure
// whose remote name is blank.
func PlaceholderStructureName(locationID int64) string {
	return fmt.Sprintf("Structure %d", locationID)
}

// Request statuses for the blueprint request workflow.
const (
	RequestStatusOpen     = "open"
	RequestStatusApproved = "approved"
	RequestStatusDenied   = "denied"
)

// BlueprintRequest is a user request for a blueprint copy.
type BlueprintRequest struct {
	ID uint `gorm:"primaryKey" json:"-"`
	// Reference is the public identifier exposed over HTTP.
	Reference     string  `gorm:"uniqueIndex;size:36" json:"reference"`
	CharacterID   int64   `json:"character_id"`
	CharacterName string  `json:"character_name"`
	TypeID        int32   `json:"type_id"`
	Type          EveType `gorm:"foreignKey:TypeID" json:"type"`
	Status        string  `gorm:"size:10;default:open" json:"status"`
	Notes         string  `json:"notes,omitempty"`
	RequestedAt   time.Time  `json:"requested_at"`
	DecidedAt     *time.Time `json:"decided_at,omitempty"`
	DecidedBy     string     `json:"decided_by,omitempty"`
}

// All returns every model for schema migration.
func All() []any {
	return []any{
		&Owner{},
		&EveType{},
		&EveEntity{},
		&Blueprint{},
		&IndustryJob{},
		&BlueprintLocation{},
		&BlueprintRequest{},
	}
}
