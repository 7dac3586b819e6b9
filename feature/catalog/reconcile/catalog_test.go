package reconcile

import (
	"testing"

	"catalog-manager/feature/catalog/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEnsureTypeMatchesCaseInsensitively(t *testing.T) {
	db := setupTestDB(t)
	product := &models.Product{Name: "Tinta", Slug: "tinta"}
	require.NoError(t, db.Create(product).Error)
	require.NoError(t, db.Create(&models.AttributeType{
		Name: "Cor", Slug: "cor", Scope: models.ScopeGlobal,
	}).Error)

	cat, err := NewCatalog(db, product)
	require.NoError(t, err)

	attrType, created, err := cat.EnsureType("COR", 0)
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, "Cor", attrType.Name)
	assert.Equal(t, models.ScopeGlobal, attrType.Scope)
}

func TestEnsureTypeCreatesProductScoped(t *testing.T) {
	db := setupTestDB(t)
	product := &models.Product{Name: "Tinta", Slug: "tinta"}
	require.NoError(t, db.Create(product).Error)

	cat, err := NewCatalog(db, product)
	require.NoError(t, err)

	attrType, created, err := cat.EnsureType("Número", 2)
	require.NoError(t, err)
	assert.True(t, created)
	assert.Equal(t, "numero", attrType.Slug)
	assert.Equal(t, models.ScopeProduct, attrType.Scope)
	require.NotNil(t, attrType.ProductID)
	assert.Equal(t, product.ID, *attrType.ProductID)
	assert.Equal(t, 2, attrType.DisplayOrder)

	// second call resolves from the in-memory index
	again, created, err := cat.EnsureType("numero", 5)
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, attrType.ID, again.ID)
}

func TestEnsureOptionReusesGlobalByFilterGroup(t *testing.T) {
	db := setupTestDB(t)
	product := &models.Product{Name: "Tinta", Slug: "tinta"}
	require.NoError(t, db.Create(product).Error)

	attrType := &models.AttributeType{Name: "Cor", Slug: "cor", Scope: models.ScopeGlobal}
	require.NoError(t, db.Create(attrType).Error)
	global := &models.AttributeOption{
		AttributeTypeID: attrType.ID,
		Value:           "Azul Marinho",
		FilterGroup:     "Azul",
	}
	require.NoError(t, db.Create(global).Error)

	cat, err := NewCatalog(db, product)
	require.NoError(t, err)

	option, created, err := cat.EnsureOption(attrType, "azul", 0)
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, global.ID, option.ID)
}

func TestEnsureOptionPrefersProductScoped(t *testing.T) {
	db := setupTestDB(t)
	product := &models.Product{Name: "Tinta", Slug: "tinta"}
	require.NoError(t, db.Create(product).Error)

	attrType := &models.AttributeType{Name: "Cor", Slug: "cor", Scope: models.ScopeGlobal}
	require.NoError(t, db.Create(attrType).Error)
	require.NoError(t, db.Create(&models.AttributeOption{
		AttributeTypeID: attrType.ID, Value: "Azul",
	}).Error)
	productID := product.ID
	scoped := &models.AttributeOption{
		AttributeTypeID: attrType.ID, ProductID: &productID, Value: "Azul",
	}
	require.NoError(t, db.Create(scoped).Error)

	cat, err := NewCatalog(db, product)
	require.NoError(t, err)

	option, created, err := cat.EnsureOption(attrType, "Azul", 0)
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, scoped.ID, option.ID)
}

func TestApplyCreatesTypesAndOptions(t *testing.T) {
	db := setupTestDB(t)
	product := &models.Product{Name: "Tinta", Slug: "tinta"}
	require.NoError(t, db.Create(product).Error)

	cat, err := NewCatalog(db, product)
	require.NoError(t, err)

	specs := []AttributeSpec{
		{Attribute: "Cor", Values: []string{"Azul", "Verde"}},
		{Attribute: "Número", Values: []string{"5"}},
	}
	rep := &FacetReport{}
	require.NoError(t, cat.Apply(specs, rep))
	assert.Equal(t, 5, rep.Creates) // 2 types + 3 options

	resolved, err := cat.Resolve(specs)
	require.NoError(t, err)
	assert.NotNil(t, resolved["Cor"]["Azul"])
	assert.NotNil(t, resolved["Número"]["5"])

	// re-applying the same facet creates nothing
	rep = &FacetReport{}
	require.NoError(t, cat.Apply(specs, rep))
	assert.Zero(t, rep.Creates)
}

func TestApplyRejectsEmptyValue(t *testing.T) {
	db := setupTestDB(t)
	product := &models.Product{Name: "Tinta", Slug: "tinta"}
	require.NoError(t, db.Create(product).Error)

	cat, err := NewCatalog(db, product)
	require.NoError(t, err)

	err = cat.Apply([]AttributeSpec{{Attribute: "Cor", Values: []string{""}}}, &FacetReport{})
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
}
