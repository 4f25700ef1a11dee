package sync_test

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"blueprint-library/core/database"
	"blueprint-library/core/esi"
	"blueprint-library/feature/blueprints/models"
	blueprintsync "blueprint-library/feature/blueprints/sync"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// staticTokens is a TokenProvider stub: characters without an entry fail with
// a credential error.
type staticTokens map[int64]string

func (s staticTokens) Token(ctx context.Context, characterID int64) (string, error) {
	tok, ok := s[characterID]
	if !ok {
		return "", fmt.Errorf("no stored token for character %d", characterID)
	}
	return tok, nil
}

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := database.Connect(database.Config{Driver: "sqlite", Name: ":memory:"})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(models.All()...))
	return db
}

func newTestClient(t *testing.T, handler http.Handler) *esi.Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return esi.NewClient(esi.Config{
		BaseURL:           srv.URL,
		UserAgent:         "blueprint-library-test",
		TimeoutSeconds:    5,
		RequestsPerSecond: 1000,
		Burst:             1000,
	})
}

func writeJSON(t *testing.T, w http.ResponseWriter, v any) {
	t.Helper()
	w.Header().Set("Content-Type", "application/json")
	require.NoError(t, json.NewEncoder(w).Encode(v))
}

func createPersonalOwner(t *testing.T, db *gorm.DB, characterID int64, name string) models.Owner {
	t.Helper()
	owner := models.Owner{CharacterID: characterID, CharacterName: name}
	require.NoError(t, db.Create(&owner).Error)
	return owner
}

func createCorporateOwner(t *testing.T, db *gorm.DB, characterID, corporationID int64, name string) models.Owner {
	t.Helper()
	owner := models.Owner{
		CharacterID:     characterID,
		CharacterName:   "Director of " + name,
		CorporationID:   &corporationID,
		CorporationName: name,
		IsCorporation:   true,
	}
	require.NoError(t, db.Create(&owner).Error)
	return owner
}

func seedBlueprint(t *testing.T, db *gorm.DB, owner models.Owner, itemID int64, typeID int32, runs int32) models.Blueprint {
	t.Helper()
	typeRow := models.EveType{ID: typeID, Name: models.PlaceholderTypeName(typeID), Placeholder: true}
	require.NoError(t, db.Where(models.EveType{ID: typeID}).FirstOrCreate(&typeRow).Error)
	bp := models.Blueprint{
		OwnerID:      owner.ID,
		ItemID:       itemID,
		TypeID:       typeID,
		Quantity:     -1,
		Runs:         runs,
		LocationID:   60003760,
		LocationFlag: "Hangar",
	}
	require.NoError(t, db.Create(&bp).Error)
	return bp
}

func ownerItemIDs(t *testing.T, db *gorm.DB, ownerID uint) []int64 {
	t.Helper()
	var ids []int64
	require.NoError(t, db.Model(&models.Blueprint{}).
		Where("owner_id = ?", ownerID).
		Order("item_id asc").
		Pluck("item_id", &ids).Error)
	return ids
}

func TestBlueprintSyncReconcilesSnapshot(t *testing.T) {
	db := newTestDB(t)
	owner := createPersonalOwner(t, db, 1001, "Pilot One")
	seedBlueprint(t, db, owner, 101, 587, 10)
	seedBlueprint(t, db, owner, 102, 587, 3)

	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/characters/1001/blueprints/", r.URL.Path)
		writeJSON(t, w, []esi.Blueprint{
			{ItemID: 101, TypeID: 587, Quantity: -2, Runs: 5, LocationID: 60003760, LocationFlag: "Hangar"},
			{ItemID: 103, TypeID: 11568, Quantity: -1, Runs: -1, LocationID: 60003760, LocationFlag: "Hangar"},
		})
	}))

	syncer := blueprintsync.New(db, client, staticTokens{1001: "tok"}, zap.NewNop())
	require.NoError(t, syncer.SyncAllBlueprints(context.Background()))

	// Persisted item ids now equal exactly the remote snapshot.
	assert.Equal(t, []int64{101, 103}, ownerItemIDs(t, db, owner.ID))

	var updated models.Blueprint
	require.NoError(t, db.Where("owner_id = ? AND item_id = ?", owner.ID, 101).First(&updated).Error)
	assert.Equal(t, int32(5), updated.Runs)
	assert.Equal(t, int64(-2), updated.Quantity)

	// The new type reference was created with a placeholder name.
	var newType models.EveType
	require.NoError(t, db.First(&newType, "id = ?", 11568).Error)
	assert.Equal(t, "Type 11568", newType.Name)
	assert.True(t, newType.Placeholder)
}

func TestBlueprintSyncIsIdempotent(t *testing.T) {
	db := newTestDB(t)
	owner := createPersonalOwner(t, db, 1001, "Pilot One")

	snapshot := []esi.Blueprint{
		{ItemID: 101, TypeID: 587, Quantity: -1, TimeEfficiency: 20, MaterialEfficiency: 10, Runs: -1, LocationID: 60003760, LocationFlag: "Hangar"},
		{ItemID: 102, TypeID: 587, Quantity: -2, Runs: 7, LocationID: 60003760, LocationFlag: "CorpSAG1"},
	}
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(t, w, snapshot)
	}))

	syncer := blueprintsync.New(db, client, staticTokens{1001: "tok"}, zap.NewNop())
	require.NoError(t, syncer.SyncAllBlueprints(context.Background()))

	var first []models.Blueprint
	require.NoError(t, db.Where("owner_id = ?", owner.ID).Order("item_id asc").Find(&first).Error)

	require.NoError(t, syncer.SyncAllBlueprints(context.Background()))

	var second []models.Blueprint
	require.NoError(t, db.Where("owner_id = ?", owner.ID).Order("item_id asc").Find(&second).Error)

	// Same snapshot, same rows: no spurious updates, no deletions.
	assert.Equal(t, first, second)
}

func TestBlueprintSyncIsolatesTransportFailure(t *testing.T) {
	db := newTestDB(t)
	ownerA := createPersonalOwner(t, db, 1001, "Pilot A")
	ownerB := createPersonalOwner(t, db, 1002, "Pilot B")
	seedBlueprint(t, db, ownerA, 201, 587, 4)
	seedBlueprint(t, db, ownerB, 301, 587, 4)

	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/characters/1001/blueprints/":
			http.Error(w, `{"error":"internal server error"}`, http.StatusInternalServerError)
		case "/characters/1002/blueprints/":
			writeJSON(t, w, []esi.Blueprint{
				{ItemID: 302, TypeID: 587, Quantity: -2, Runs: 1, LocationID: 60003760},
			})
		default:
			http.NotFound(w, r)
		}
	}))

	syncer := blueprintsync.New(db, client, staticTokens{1001: "tok", 1002: "tok"}, zap.NewNop())
	require.NoError(t, syncer.SyncAllBlueprints(context.Background()))

	// Owner A's failure left its rows untouched; owner B was still reconciled.
	assert.Equal(t, []int64{201}, ownerItemIDs(t, db, ownerA.ID))
	assert.Equal(t, []int64{302}, ownerItemIDs(t, db, ownerB.ID))
}

func TestBlueprintSyncIsolatesCredentialFailure(t *testing.T) {
	db := newTestDB(t)
	ownerA := createPersonalOwner(t, db, 1001, "Pilot A")
	ownerB := createPersonalOwner(t, db, 1002, "Pilot B")
	seedBlueprint(t, db, ownerA, 201, 587, 4)

	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/characters/1002/blueprints/", r.URL.Path)
		writeJSON(t, w, []esi.Blueprint{
			{ItemID: 302, TypeID: 587, Quantity: -2, Runs: 1, LocationID: 60003760},
		})
	}))

	// Only owner B holds a grant.
	syncer := blueprintsync.New(db, client, staticTokens{1002: "tok"}, zap.NewNop())
	require.NoError(t, syncer.SyncAllBlueprints(context.Background()))

	assert.Equal(t, []int64{201}, ownerItemIDs(t, db, ownerA.ID))
	assert.Equal(t, []int64{302}, ownerItemIDs(t, db, ownerB.ID))
}

func TestBlueprintSyncUsesCorporationEndpoint(t *testing.T) {
	db := newTestDB(t)
	owner := createCorporateOwner(t, db, 1001, 2001, "Acme Industries")

	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/corporations/2001/blueprints/", r.URL.Path)
		require.Equal(t, "Bearer director-tok", r.Header.Get("Authorization"))
		writeJSON(t, w, []esi.Blueprint{
			{ItemID: 401, TypeID: 587, Quantity: -1, Runs: -1, LocationID: 60003760},
		})
	}))

	syncer := blueprintsync.New(db, client, staticTokens{1001: "director-tok"}, zap.NewNop())
	require.NoError(t, syncer.SyncAllBlueprints(context.Background()))

	assert.Equal(t, []int64{401}, ownerItemIDs(t, db, owner.ID))
}

func TestBlueprintSyncRegistersUnknownLocations(t *testing.T) {
	db := newTestDB(t)
	createPersonalOwner(t, db, 1001, "Pilot One")

	// Jita is in the public catalog; the citadel is not.
	require.NoError(t, db.Create(&models.EveEntity{
		ID: 60003760, Name: "Jita IV - Moon 4 - Caldari Navy Assembly Plant", Category: "station",
	}).Error)

	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(t, w, []esi.Blueprint{
			{ItemID: 101, TypeID: 587, Quantity: -1, Runs: -1, LocationID: 60003760, LocationFlag: "Hangar"},
			{ItemID: 102, TypeID: 587, Quantity: -2, Runs: 3, LocationID: 1021000000001, LocationFlag: "CorpSAG1"},
		})
	}))

	syncer := blueprintsync.New(db, client, staticTokens{1001: "tok"}, zap.NewNop())
	require.NoError(t, syncer.SyncAllBlueprints(context.Background()))

	var registered models.BlueprintLocation
	require.NoError(t, db.First(&registered, "id = ?", int64(1021000000001)).Error)
	assert.Empty(t, registered.Name)
	assert.False(t, registered.Resolved())

	var jitaRows int64
	require.NoError(t, db.Model(&models.BlueprintLocation{}).Where("id = ?", int64(60003760)).Count(&jitaRows).Error)
	assert.Zero(t, jitaRows, "catalog entities must not be registered for resolution")
}

func TestBlueprintSyncToleratesRecordFailures(t *testing.T) {
	db := newTestDB(t)
	owner := createPersonalOwner(t, db, 1001, "Pilot One")
	seedBlueprint(t, db, owner, 101, 587, 10)
	seedBlueprint(t, db, owner, 102, 587, 3)

	// Every upsert now fails at the type lookup, but the remote still reports
	// item 101.
	require.NoError(t, db.Migrator().DropTable(&models.EveType{}))

	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(t, w, []esi.Blueprint{
			{ItemID: 101, TypeID: 587, Quantity: -2, Runs: 5, LocationID: 60003760},
			{ItemID: 103, TypeID: 11568, Quantity: -1, Runs: -1, LocationID: 60003760},
		})
	}))

	syncer := blueprintsync.New(db, client, staticTokens{1001: "tok"}, zap.NewNop())
	require.NoError(t, syncer.SyncAllBlueprints(context.Background()))

	// A failed record never aborts the pass and never feeds the deletion
	// phase: 101 survives unchanged, 103 could not be stored, 102 is still
	// pruned as absent from the snapshot.
	assert.Equal(t, []int64{101}, ownerItemIDs(t, db, owner.ID))

	var kept models.Blueprint
	require.NoError(t, db.Where("owner_id = ? AND item_id = ?", owner.ID, 101).First(&kept).Error)
	assert.Equal(t, int32(10), kept.Runs)
}

func TestBlueprintSyncPropagatesStoreFailure(t *testing.T) {
	db := newTestDB(t)
	createPersonalOwner(t, db, 1001, "Pilot One")
	require.NoError(t, db.Migrator().DropTable(&models.Blueprint{}))

	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(t, w, []esi.Blueprint{
			{ItemID: 101, TypeID: 587, Quantity: -1, Runs: -1, LocationID: 60003760},
		})
	}))

	// A broken store is not an owner-scoped condition; the pass must abort
	// rather than keep reconciling against it.
	syncer := blueprintsync.New(db, client, staticTokens{1001: "tok"}, zap.NewNop())
	assert.Error(t, syncer.SyncAllBlueprints(context.Background()))
}

func TestJobSyncLinksBlueprints(t *testing.T) {
	db := newTestDB(t)
	owner := createPersonalOwner(t, db, 1001, "Pilot One")
	bp := seedBlueprint(t, db, owner, 101, 587, 10)

	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/characters/1001/industry/jobs/", r.URL.Path)
		require.Equal(t, "false", r.URL.Query().Get("include_completed"))
		writeJSON(t, w, []esi.IndustryJob{
			{JobID: 9001, ActivityID: 1, BlueprintID: 101, Status: "active"},
			{JobID: 9002, ActivityID: 5, BlueprintID: 999, Status: "active"},
		})
	}))

	syncer := blueprintsync.New(db, client, staticTokens{1001: "tok"}, zap.NewNop())
	require.NoError(t, syncer.SyncAllIndustryJobs(context.Background()))

	var linked models.IndustryJob
	require.NoError(t, db.First(&linked, "job_id = ?", int64(9001)).Error)
	require.NotNil(t, linked.BlueprintID)
	assert.Equal(t, bp.ID, *linked.BlueprintID)
	assert.Equal(t, "manufacturing", linked.Activity)

	// A job referencing an unknown blueprint is stored with a null link, not
	// dropped.
	var unlinked models.IndustryJob
	require.NoError(t, db.First(&unlinked, "job_id = ?", int64(9002)).Error)
	assert.Nil(t, unlinked.BlueprintID)
	assert.Equal(t, "copying", unlinked.Activity)
}

func TestJobSyncPrunesAbsentJobs(t *testing.T) {
	db := newTestDB(t)
	owner := createPersonalOwner(t, db, 1001, "Pilot One")
	require.NoError(t, db.Create(&models.IndustryJob{
		JobID: 9001, OwnerID: owner.ID, Activity: "manufacturing", Status: "active",
	}).Error)

	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(t, w, []esi.IndustryJob{
			{JobID: 9002, ActivityID: 8, Status: "active"},
		})
	}))

	syncer := blueprintsync.New(db, client, staticTokens{1001: "tok"}, zap.NewNop())
	require.NoError(t, syncer.SyncAllIndustryJobs(context.Background()))

	var ids []int64
	require.NoError(t, db.Model(&models.IndustryJob{}).
		Where("owner_id = ?", owner.ID).
		Pluck("job_id", &ids).Error)
	assert.Equal(t, []int64{9002}, ids)
}

func TestBlueprintSyncDetachesJobsOfRemovedBlueprints(t *testing.T) {
	db := newTestDB(t)
	owner := createPersonalOwner(t, db, 1001, "Pilot One")
	bp := seedBlueprint(t, db, owner, 101, 587, 10)
	require.NoError(t, db.Create(&models.IndustryJob{
		JobID: 9001, OwnerID: owner.ID, Activity: "manufacturing", Status: "active", BlueprintID: &bp.ID,
	}).Error)

	// The blueprint vanished from the snapshot; the job is still active.
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(t, w, []esi.Blueprint{})
	}))

	syncer := blueprintsync.New(db, client, staticTokens{1001: "tok"}, zap.NewNop())
	require.NoError(t, syncer.SyncAllBlueprints(context.Background()))

	assert.Empty(t, ownerItemIDs(t, db, owner.ID))

	var job models.IndustryJob
	require.NoError(t, db.First(&job, "job_id = ?", int64(9001)).Error)
	assert.Nil(t, job.BlueprintID)
}

func TestEnrichTypeNames(t *testing.T) {
	db := newTestDB(t)
	require.NoError(t, db.Create(&models.EveType{ID: 587, Name: "Type 587", Placeholder: true}).Error)
	require.NoError(t, db.Create(&models.EveType{ID: 11568, Name: "Avatar Blueprint", Placeholder: false}).Error)

	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "/universe/names/", r.URL.Path)

		var ids []int64
		require.NoError(t, json.NewDecoder(r.Body).Decode(&ids))
		assert.Equal(t, []int64{587}, ids)

		writeJSON(t, w, []esi.NameRef{
			{ID: 587, Name: "Rifter", Category: "inventory_type"},
		})
	}))

	syncer := blueprintsync.New(db, client, staticTokens{}, zap.NewNop())
	require.NoError(t, syncer.EnrichTypeNames(context.Background()))

	var enriched models.EveType
	require.NoError(t, db.First(&enriched, "id = ?", 587).Error)
	assert.Equal(t, "Rifter", enriched.Name)
	assert.False(t, enriched.Placeholder)
}
