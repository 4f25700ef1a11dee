package sync_test

import (
	"context"
	"encoding/json"
	"net/http"
	"sync/atomic"
	"testing"

	"blueprint-library/core/esi"
	"blueprint-library/feature/blueprints/models"
	blueprintsync "blueprint-library/feature/blueprints/sync"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

func unresolvedCount(t *testing.T, db *gorm.DB) int64 {
	t.Helper()
	var n int64
	require.NoError(t, db.Model(&models.BlueprintLocation{}).Where("name = ?", "").Count(&n).Error)
	return n
}

func TestResolveLocationsNothingPendingMakesNoCalls(t *testing.T) {
	db := newTestDB(t)
	require.NoError(t, db.Create(&models.BlueprintLocation{
		ID: 60003760, Name: "Jita IV - Moon 4 - Caldari Navy Assembly Plant", Category: models.CategoryStation,
	}).Error)

	var calls int64
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt64(&calls, 1)
		http.NotFound(w, r)
	}))

	syncer := blueprintsync.New(db, client, staticTokens{}, zap.NewNop())
	require.NoError(t, syncer.ResolveLocations(context.Background()))
	assert.Zero(t, atomic.LoadInt64(&calls))
}

func TestResolveLocationsStationViaBulkResolver(t *testing.T) {
	db := newTestDB(t)
	require.NoError(t, db.Create(&models.BlueprintLocation{ID: 60003760, Category: models.CategoryUnknown}).Error)

	var structureCalls int64
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/universe/names/":
			var ids []int64
			require.NoError(t, json.NewDecoder(r.Body).Decode(&ids))
			assert.Equal(t, []int64{60003760}, ids)
			writeJSON(t, w, []esi.NameRef{
				{ID: 60003760, Name: "Jita IV - Moon 4 - Caldari Navy Assembly Plant", Category: "station"},
			})
		default:
			atomic.AddInt64(&structureCalls, 1)
			http.NotFound(w, r)
		}
	}))

	syncer := blueprintsync.New(db, client, staticTokens{}, zap.NewNop())
	require.NoError(t, syncer.ResolveLocations(context.Background()))

	var loc models.BlueprintLocation
	require.NoError(t, db.First(&loc, "id = ?", int64(60003760)).Error)
	assert.Equal(t, "Jita IV - Moon 4 - Caldari Navy Assembly Plant", loc.Name)
	assert.Equal(t, models.CategoryStation, loc.Category)
	assert.True(t, loc.Resolved())

	// The resolution also feeds the public entity catalog.
	var entity models.EveEntity
	require.NoError(t, db.First(&entity, "id = ?", int64(60003760)).Error)
	assert.Equal(t, "station", entity.Category)

	// A station resolves in phase 1; the structure endpoint stays untouched.
	assert.Zero(t, atomic.LoadInt64(&structureCalls))
}

func TestResolveLocationsStructureViaElevatedCredential(t *testing.T) {
	db := newTestDB(t)
	createCorporateOwner(t, db, 1001, 2001, "Acme Industries")
	require.NoError(t, db.Create(&models.BlueprintLocation{ID: 60003760, Category: models.CategoryUnknown}).Error)
	require.NoError(t, db.Create(&models.BlueprintLocation{ID: 1021000000001, Category: models.CategoryUnknown}).Error)

	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/universe/names/":
			// The bulk resolver knows stations but not player structures.
			writeJSON(t, w, []esi.NameRef{
				{ID: 60003760, Name: "Jita IV - Moon 4 - Caldari Navy Assembly Plant", Category: "station"},
			})
		case "/universe/structures/1021000000001/":
			require.Equal(t, "Bearer director-tok", r.Header.Get("Authorization"))
			writeJSON(t, w, esi.Structure{Name: "Perimeter - Tranquility Trading Tower", SolarSystemID: 30000144, TypeID: 35834})
		default:
			http.NotFound(w, r)
		}
	}))

	syncer := blueprintsync.New(db, client, staticTokens{1001: "director-tok"}, zap.NewNop())
	require.NoError(t, syncer.ResolveLocations(context.Background()))

	var structure models.BlueprintLocation
	require.NoError(t, db.First(&structure, "id = ?", int64(1021000000001)).Error)
	assert.Equal(t, "Perimeter - Tranquility Trading Tower", structure.Name)
	assert.Equal(t, models.CategoryStructure, structure.Category)

	assert.Zero(t, unresolvedCount(t, db))
}

func TestResolveLocationsTitleCasesOtherCategories(t *testing.T) {
	db := newTestDB(t)
	require.NoError(t, db.Create(&models.BlueprintLocation{ID: 30000142, Category: models.CategoryUnknown}).Error)

	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(t, w, []esi.NameRef{
			{ID: 30000142, Name: "Jita", Category: "solar_system"},
		})
	}))

	syncer := blueprintsync.New(db, client, staticTokens{}, zap.NewNop())
	require.NoError(t, syncer.ResolveLocations(context.Background()))

	// The stored category follows the same casing as Station/Structure.
	var loc models.BlueprintLocation
	require.NoError(t, db.First(&loc, "id = ?", int64(30000142)).Error)
	assert.Equal(t, "Solar System", loc.Category)
	assert.Equal(t, "Jita", loc.Name)
}

func TestResolveLocationsWithoutElevatedCredential(t *testing.T) {
	db := newTestDB(t)
	// Personal owners never qualify as director candidates.
	createPersonalOwner(t, db, 1001, "Pilot One")
	require.NoError(t, db.Create(&models.BlueprintLocation{ID: 1021000000001, Category: models.CategoryUnknown}).Error)

	var structureCalls int64
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/universe/names/":
			writeJSON(t, w, []esi.NameRef{})
		default:
			atomic.AddInt64(&structureCalls, 1)
			http.NotFound(w, r)
		}
	}))

	syncer := blueprintsync.New(db, client, staticTokens{1001: "tok"}, zap.NewNop())
	require.NoError(t, syncer.ResolveLocations(context.Background()))

	// The identifier stays pending for a future pass instead of failing.
	assert.Equal(t, int64(1), unresolvedCount(t, db))
	assert.Zero(t, atomic.LoadInt64(&structureCalls))
}

func TestResolveLocationsSkipsFailingStructures(t *testing.T) {
	db := newTestDB(t)
	createCorporateOwner(t, db, 1001, 2001, "Acme Industries")
	require.NoError(t, db.Create(&models.BlueprintLocation{ID: 1021000000001, Category: models.CategoryUnknown}).Error)
	require.NoError(t, db.Create(&models.BlueprintLocation{ID: 1021000000002, Category: models.CategoryUnknown}).Error)

	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/universe/names/":
			writeJSON(t, w, []esi.NameRef{})
		case "/universe/structures/1021000000001/":
			// No docking access to this structure.
			http.Error(w, `{"error":"forbidden"}`, http.StatusForbidden)
		case "/universe/structures/1021000000002/":
			writeJSON(t, w, esi.Structure{Name: "Home Fortizar", SolarSystemID: 30000142, TypeID: 35833})
		default:
			http.NotFound(w, r)
		}
	}))

	syncer := blueprintsync.New(db, client, staticTokens{1001: "tok"}, zap.NewNop())
	require.NoError(t, syncer.ResolveLocations(context.Background()))

	var denied models.BlueprintLocation
	require.NoError(t, db.First(&denied, "id = ?", int64(1021000000001)).Error)
	assert.False(t, denied.Resolved())

	var resolved models.BlueprintLocation
	require.NoError(t, db.First(&resolved, "id = ?", int64(1021000000002)).Error)
	assert.Equal(t, "Home Fortizar", resolved.Name)
}

func TestResolveLocationsBlankStructureName(t *testing.T) {
	db := newTestDB(t)
	createCorporateOwner(t, db, 1001, 2001, "Acme Industries")
	require.NoError(t, db.Create(&models.BlueprintLocation{ID: 1021000000001, Category: models.CategoryUnknown}).Error)

	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/universe/names/":
			writeJSON(t, w, []esi.NameRef{})
		case "/universe/structures/1021000000001/":
			writeJSON(t, w, esi.Structure{SolarSystemID: 30000142, TypeID: 35833})
		default:
			http.NotFound(w, r)
		}
	}))

	syncer := blueprintsync.New(db, client, staticTokens{1001: "tok"}, zap.NewNop())
	require.NoError(t, syncer.ResolveLocations(context.Background()))

	var loc models.BlueprintLocation
	require.NoError(t, db.First(&loc, "id = ?", int64(1021000000001)).Error)
	assert.Equal(t, "Structure 1021000000001", loc.Name)
	assert.Equal(t, models.CategoryStructure, loc.Category)
}

func TestElevatedCredentialPrefersLowestCorporation(t *testing.T) {
	db := newTestDB(t)
	createCorporateOwner(t, db, 1002, 2002, "Beta Corp")
	createCorporateOwner(t, db, 1001, 2001, "Acme Industries")
	require.NoError(t, db.Create(&models.BlueprintLocation{ID: 1021000000001, Category: models.CategoryUnknown}).Error)

	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/universe/names/":
			writeJSON(t, w, []esi.NameRef{})
		case "/universe/structures/1021000000001/":
			// Corporation 2001 sorts first, so its director's token is used.
			require.Equal(t, "Bearer acme-tok", r.Header.Get("Authorization"))
			writeJSON(t, w, esi.Structure{Name: "Home Fortizar", SolarSystemID: 30000142, TypeID: 35833})
		default:
			http.NotFound(w, r)
		}
	}))

	syncer := blueprintsync.New(db, client, staticTokens{1001: "acme-tok", 1002: "beta-tok"}, zap.NewNop())
	require.NoError(t, syncer.ResolveLocations(context.Background()))
	assert.Zero(t, unresolvedCount(t, db))
}
