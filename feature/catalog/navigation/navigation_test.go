package navigation

import (
	"fmt"
	"testing"
	"time"

	"catalog-manager/feature/catalog/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(models.All()...))
	return db
}

type navFixture struct {
	product *models.Product
	// variants by SKU
	variants map[string]*models.Variant
	groups   map[string]*models.VariantGroup
}

// seedNavFixture builds a product with two attribute axes and three
// variants: (Azul,5), (Azul,7), (Verde,5). The (Verde,7) combination does
// not exist, which is what the relation must surface.
func seedNavFixture(t *testing.T, db *gorm.DB) *navFixture {
	t.Helper()

	f := &navFixture{
		variants: make(map[string]*models.Variant),
		groups:   make(map[string]*models.VariantGroup),
	}

	f.product = &models.Product{Name: "Linha", Slug: "linha", Active: true}
	require.NoError(t, db.Create(f.product).Error)
	productID := f.product.ID

	types := map[string]*models.AttributeType{}
	for i, slug := range []string{"cor", "numero"} {
		at := &models.AttributeType{
			Name: slug, Slug: slug,
			Scope: models.ScopeProduct, ProductID: &productID,
			DisplayOrder: i,
		}
		require.NoError(t, db.Create(at).Error)
		types[slug] = at
	}

	options := map[string]*models.AttributeOption{}
	option := func(typeSlug, value string) *models.AttributeOption {
		key := typeSlug + "=" + value
		if o, ok := options[key]; ok {
			return o
		}
		o := &models.AttributeOption{
			AttributeTypeID: types[typeSlug].ID,
			ProductID:       &productID,
			Value:           value,
		}
		require.NoError(t, db.Create(o).Error)
		options[key] = o
		return o
	}

	addVariant := func(sku string, price float64, selection map[string]string) {
		v := &models.Variant{
			ProductID: productID, SKU: sku, Name: sku,
			SalePrice: price, Active: true,
		}
		require.NoError(t, db.Create(v).Error)
		for typeSlug, value := range selection {
			o := option(typeSlug, value)
			require.NoError(t, db.Create(&models.VariantAttribute{
				VariantID:         v.ID,
				AttributeTypeID:   types[typeSlug].ID,
				AttributeOptionID: o.ID,
			}).Error)
		}
		f.variants[sku] = v
	}

	addVariant("L-AZ-5", 10, map[string]string{"cor": "Azul", "numero": "5"})
	addVariant("L-AZ-7", 20, map[string]string{"cor": "Azul", "numero": "7"})
	addVariant("L-VE-5", 30, map[string]string{"cor": "Verde", "numero": "5"})

	addGroup := func(slug string, skus ...string) {
		g := &models.VariantGroup{ProductID: productID, Name: slug, Slug: slug, Active: true}
		require.NoError(t, db.Create(g).Error)
		for pos, sku := range skus {
			require.NoError(t, db.Create(&models.VariantGroupMember{
				GroupID:   g.ID,
				VariantID: f.variants[sku].ID,
				Position:  pos,
			}).Error)
		}
		f.groups[slug] = g
	}

	addGroup("azuis", "L-AZ-5", "L-AZ-7")
	addGroup("cinco", "L-AZ-5", "L-VE-5")

	return f
}

func snapshot(t *testing.T, db *gorm.DB, productID uint) *Snapshot {
	t.Helper()
	snap, err := buildSnapshot(db, productID)
	require.NoError(t, err)
	return snap
}

func TestRelationOffersOnlyObservedCombinations(t *testing.T) {
	db := setupTestDB(t)
	f := seedNavFixture(t, db)

	rel, err := BuildRelation(db, f.product.ID)
	require.NoError(t, err)

	assert.Equal(t, []string{"cor", "numero"}, rel.Types())
	assert.Equal(t, []string{"5", "7"}, rel.Values("numero"))

	// Verde only ever ships as numero 5.
	assert.Equal(t, []string{"5"}, rel.Compatible(map[string]string{"cor": "Verde"}, "numero"))
	assert.Equal(t, []string{"5", "7"}, rel.Compatible(map[string]string{"cor": "Azul"}, "numero"))

	// numero=7 exists only in Azul
	assert.Equal(t, []string{"Azul"}, rel.Compatible(map[string]string{"numero": "7"}, "cor"))

	// a pin on the queried type itself never narrows it
	assert.Equal(t, []string{"5", "7"},
		rel.Compatible(map[string]string{"numero": "5"}, "numero"))
}

func TestRelationIgnoresRetiredVariants(t *testing.T) {
	db := setupTestDB(t)
	f := seedNavFixture(t, db)

	require.NoError(t, db.Model(f.variants["L-VE-5"]).Update("active", false).Error)

	rel, err := BuildRelation(db, f.product.ID)
	require.NoError(t, err)
	assert.Len(t, rel.Variants, 2)
	assert.Empty(t, rel.Compatible(map[string]string{"cor": "Verde"}, "numero"))
}

func TestResolvePrefersGroupAndBreaksTiesByID(t *testing.T) {
	db := setupTestDB(t)
	f := seedNavFixture(t, db)
	snap := snapshot(t, db, f.product.ID)

	// Both groups satisfy one pin each and share a qualifying member; the
	// lower group id wins.
	target, err := Resolve(snap, Query{Overrides: map[string]string{"cor": "Azul", "numero": "5"}})
	require.NoError(t, err)

	assert.Equal(t, "group", target.Kind)
	assert.Equal(t, "azuis", target.GroupSlug)
	assert.Equal(t, f.groups["azuis"].ID, target.GroupID)

	assert.Equal(t, []Option{{"Azul", true}, {"Verde", true}}, target.Available["cor"])
	assert.Equal(t, []Option{{"5", true}, {"7", true}}, target.Available["numero"])
}

func TestResolveFallsBackToBestVariant(t *testing.T) {
	db := setupTestDB(t)
	f := seedNavFixture(t, db)
	snap := snapshot(t, db, f.product.ID)

	// (Verde, 7) exists nowhere and conflicts with both groups' shared
	// values, so the best partial variant wins.
	target, err := Resolve(snap, Query{Overrides: map[string]string{"cor": "Verde", "numero": "7"}})
	require.NoError(t, err)

	assert.Equal(t, "variant", target.Kind)
	assert.Equal(t, "L-AZ-7", target.SKU)

	// only Azul ships as numero 7; Verde stays listed but unreachable
	assert.Equal(t, []Option{{"Azul", true}, {"Verde", false}}, target.Available["cor"])
}

func TestResolveListsUnreachableOptions(t *testing.T) {
	db := setupTestDB(t)
	f := seedNavFixture(t, db)
	snap := snapshot(t, db, f.product.ID)

	// Pinning Verde leaves numero=7 observed but unreachable.
	target, err := Resolve(snap, Query{Overrides: map[string]string{"cor": "Verde"}})
	require.NoError(t, err)

	assert.Equal(t, []Option{{"5", true}, {"7", false}}, target.Available["numero"])
	// the pin on cor itself never narrows the cor panel
	assert.Equal(t, []Option{{"Azul", true}, {"Verde", true}}, target.Available["cor"])
}

func TestResolveFromVariantContext(t *testing.T) {
	db := setupTestDB(t)
	f := seedNavFixture(t, db)
	snap := snapshot(t, db, f.product.ID)

	// Standing on Verde/5 and switching the color keeps numero pinned.
	target, err := Resolve(snap, Query{
		VariantID: f.variants["L-VE-5"].ID,
		Overrides: map[string]string{"cor": "Azul"},
	})
	require.NoError(t, err)

	assert.Equal(t, map[string]string{"cor": "Azul", "numero": "5"}, target.Selection)
	assert.Equal(t, "group", target.Kind)
	assert.Equal(t, "azuis", target.GroupSlug)
}

func TestResolveFromGroupContext(t *testing.T) {
	db := setupTestDB(t)
	f := seedNavFixture(t, db)
	snap := snapshot(t, db, f.product.ID)

	// "cinco" shares numero=5; picking Verde on top lands on its member.
	target, err := Resolve(snap, Query{
		GroupSlug: "cinco",
		Overrides: map[string]string{"cor": "Verde"},
	})
	require.NoError(t, err)

	assert.Equal(t, map[string]string{"numero": "5", "cor": "Verde"}, target.Selection)
	assert.Equal(t, "group", target.Kind)
	assert.Equal(t, "cinco", target.GroupSlug)
}

// seedThicknessFixture builds a product where every thickness ships in its
// own length: (numero=8, comprimento=350m) and (numero=5, comprimento=230m),
// with a group anchored on the numero=8 variant.
func seedThicknessFixture(t *testing.T, db *gorm.DB) *navFixture {
	t.Helper()

	f := &navFixture{
		variants: make(map[string]*models.Variant),
		groups:   make(map[string]*models.VariantGroup),
	}

	f.product = &models.Product{Name: "Linha Pipa", Slug: "linha-pipa", Active: true}
	require.NoError(t, db.Create(f.product).Error)
	productID := f.product.ID

	types := map[string]*models.AttributeType{}
	for i, slug := range []string{"numero", "comprimento"} {
		at := &models.AttributeType{
			Name: slug, Slug: slug,
			Scope: models.ScopeProduct, ProductID: &productID,
			DisplayOrder: i,
		}
		require.NoError(t, db.Create(at).Error)
		types[slug] = at
	}

	addVariant := func(sku string, selection map[string]string) {
		v := &models.Variant{ProductID: productID, SKU: sku, Name: sku, Active: true}
		require.NoError(t, db.Create(v).Error)
		for typeSlug, value := range selection {
			o := &models.AttributeOption{
				AttributeTypeID: types[typeSlug].ID,
				ProductID:       &productID,
				Value:           value,
			}
			require.NoError(t, db.Create(o).Error)
			require.NoError(t, db.Create(&models.VariantAttribute{
				VariantID:         v.ID,
				AttributeTypeID:   types[typeSlug].ID,
				AttributeOptionID: o.ID,
			}).Error)
		}
		f.variants[sku] = v
	}

	addVariant("P-8-350", map[string]string{"numero": "8", "comprimento": "350m"})
	addVariant("P-5-230", map[string]string{"numero": "5", "comprimento": "230m"})

	g := &models.VariantGroup{ProductID: productID, Name: "oito", Slug: "oito", Active: true}
	require.NoError(t, db.Create(g).Error)
	require.NoError(t, db.Create(&models.VariantGroupMember{
		GroupID: g.ID, VariantID: f.variants["P-8-350"].ID,
	}).Error)
	f.groups["oito"] = g

	return f
}

func TestResolveOverrideNeverLandsOnReplacedValue(t *testing.T) {
	db := setupTestDB(t)
	f := seedThicknessFixture(t, db)
	snap := snapshot(t, db, f.product.ID)

	// Standing on the numero=8 group and picking numero=5 must not fall
	// back to the numero=8 variant just because it carries the group's
	// comprimento: the length follows the thickness, not the other way.
	target, err := Resolve(snap, Query{
		GroupSlug: "oito",
		Overrides: map[string]string{"numero": "5"},
	})
	require.NoError(t, err)

	assert.Equal(t, "variant", target.Kind)
	assert.Equal(t, "P-5-230", target.SKU)
	assert.Equal(t, map[string]string{"numero": "5"}, target.Selection)

	assert.Equal(t, []Option{{"230m", true}, {"350m", false}}, target.Available["comprimento"])
}

func TestResolveRejectsUnknownContext(t *testing.T) {
	db := setupTestDB(t)
	f := seedNavFixture(t, db)
	snap := snapshot(t, db, f.product.ID)

	_, err := Resolve(snap, Query{GroupSlug: "inexistente"})
	assert.Error(t, err)

	_, err = Resolve(snap, Query{VariantID: 99999})
	assert.Error(t, err)
}

func TestResolveIsDeterministic(t *testing.T) {
	db := setupTestDB(t)
	f := seedNavFixture(t, db)
	snap := snapshot(t, db, f.product.ID)

	q := Query{Overrides: map[string]string{"numero": "5"}}
	first, err := Resolve(snap, q)
	require.NoError(t, err)

	for i := 0; i < 10; i++ {
		again, err := Resolve(snap, q)
		require.NoError(t, err)
		assert.Equal(t, first, again)
	}
}

func TestBuildGroupViewsDerivesSharedAttributes(t *testing.T) {
	db := setupTestDB(t)
	f := seedNavFixture(t, db)

	rel, err := BuildRelation(db, f.product.ID)
	require.NoError(t, err)
	views, err := BuildGroupViews(db, rel)
	require.NoError(t, err)
	require.Len(t, views, 2)

	byName := map[string]GroupView{}
	for _, v := range views {
		byName[v.Slug] = v
	}

	azuis := byName["azuis"]
	assert.Equal(t, map[string]string{"cor": "Azul"}, azuis.Shared)
	assert.Equal(t, 10.0, azuis.PriceMin)
	assert.Equal(t, 20.0, azuis.PriceMax)

	cinco := byName["cinco"]
	assert.Equal(t, map[string]string{"numero": "5"}, cinco.Shared)
	assert.Equal(t, 30.0, cinco.PriceMax)
}

func TestCacheReturnsFreshSnapshotAfterInvalidate(t *testing.T) {
	db := setupTestDB(t)
	f := seedNavFixture(t, db)

	cache := NewCache(db, time.Minute)

	first, err := cache.Snapshot(f.product.ID)
	require.NoError(t, err)
	again, err := cache.Snapshot(f.product.ID)
	require.NoError(t, err)
	assert.Same(t, first, again)

	require.NoError(t, db.Model(f.variants["L-AZ-7"]).Update("active", false).Error)

	// still served from cache
	stale, err := cache.Snapshot(f.product.ID)
	require.NoError(t, err)
	assert.Len(t, stale.Relation.Variants, 3)

	cache.Invalidate(f.product.ID)
	fresh, err := cache.Snapshot(f.product.ID)
	require.NoError(t, err)
	assert.Len(t, fresh.Relation.Variants, 2)
}

func TestCacheZeroTTLDisablesCaching(t *testing.T) {
	db := setupTestDB(t)
	f := seedNavFixture(t, db)

	cache := NewCache(db, 0)

	_, err := cache.Snapshot(f.product.ID)
	require.NoError(t, err)

	require.NoError(t, db.Model(f.variants["L-AZ-7"]).Update("active", false).Error)

	snap, err := cache.Snapshot(f.product.ID)
	require.NoError(t, err)
	assert.Len(t, snap.Relation.Variants, 2)
}
