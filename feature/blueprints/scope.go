package blueprints

import "gorm.io/gorm"

// AccessScope is the visibility of one viewer, computed once per request and
// passed into store-level filters. No ambient state: the surrounding auth
// system decides what goes in, the store only applies it.
type AccessScope struct {
	// AllianceWide grants visibility of every owner.
	AllianceWide bool
	// CorporationIDs are the corporations whose corporate owners are visible.
	CorporationIDs []int64
	// CharacterIDs are the characters whose personal owners are visible.
	CharacterIDs []int64
}

// Apply narrows a query (already joined against owners) to the scope.
func (s AccessScope) Apply(q *gorm.DB) *gorm.DB {
	if s.AllianceWide {
		return q
	}
	return q.Where(
		"(owners.is_corporation = ? AND owners.corporation_id IN ?) OR (owners.is_corporation = ? AND owners.character_id IN ?)",
		true, s.CorporationIDs, false, s.CharacterIDs,
	)
}
