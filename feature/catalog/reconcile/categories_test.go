package reconcile

import (
	"testing"

	"catalog-manager/feature/catalog/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEnsureCategoryFindsAndCreatesByIdentity(t *testing.T) {
	db := setupTestDB(t)

	root, created, err := ensureCategory(db, "Pintura", nil)
	require.NoError(t, err)
	assert.True(t, created)
	assert.Equal(t, "Pintura", root.Path)
	assert.Equal(t, 0, root.Depth)
	assert.Nil(t, root.ParentID)

	child, created, err := ensureCategory(db, "Tinta", root)
	require.NoError(t, err)
	assert.True(t, created)
	assert.Equal(t, "Pintura > Tinta", child.Path)
	assert.Equal(t, 1, child.Depth)

	again, created, err := ensureCategory(db, "Tinta", root)
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, child.ID, again.ID)

	// same slug under no parent is a different node
	other, created, err := ensureCategory(db, "Tinta", nil)
	require.NoError(t, err)
	assert.True(t, created)
	assert.NotEqual(t, child.ID, other.ID)
}

func TestEnsureCategoryPropagatesRenames(t *testing.T) {
	db := setupTestDB(t)

	root, _, err := ensureCategory(db, "Pintura", nil)
	require.NoError(t, err)
	_, _, err = ensureCategory(db, "Tinta", root)
	require.NoError(t, err)

	// Same slug, different casing: the node is renamed in place and the
	// child's materialized path follows on the next walk.
	renamed, created, err := ensureCategory(db, "PINTURA", nil)
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, root.ID, renamed.ID)
	assert.Equal(t, "PINTURA", renamed.Name)

	child, created, err := ensureCategory(db, "Tinta", renamed)
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, "PINTURA > Tinta", child.Path)
}

func TestAncestorChainDetectsCycle(t *testing.T) {
	db := setupTestDB(t)

	a := models.Category{Name: "A", Slug: "a"}
	require.NoError(t, db.Create(&a).Error)
	b := models.Category{Name: "B", Slug: "b", ParentID: &a.ID}
	require.NoError(t, db.Create(&b).Error)
	// corrupt the parent pointer to close a loop
	require.NoError(t, db.Model(&a).Update("parent_id", b.ID).Error)

	_, err := AncestorChain(db, b.ID)
	var cycle *CategoryCycleError
	require.ErrorAs(t, err, &cycle)
}

func TestAncestorChainWalksToRoot(t *testing.T) {
	db := setupTestDB(t)

	root, _, err := ensureCategory(db, "Pintura", nil)
	require.NoError(t, err)
	mid, _, err := ensureCategory(db, "Tinta", root)
	require.NoError(t, err)
	leaf, _, err := ensureCategory(db, "Tinta para Tecido", mid)
	require.NoError(t, err)

	ids, err := AncestorChain(db, leaf.ID)
	require.NoError(t, err)
	assert.Equal(t, []uint{leaf.ID, mid.ID, root.ID}, ids)
}

func TestReconcileCategoriesPrunesImpliedMemberships(t *testing.T) {
	db := setupTestDB(t)
	product := &models.Product{Name: "Tinta", Slug: "tinta"}
	require.NoError(t, db.Create(product).Error)

	rec := Recorders{Prices: NopPriceHistory{}, Changes: NopChangeSet{}}

	specs := []CategorySpec{{Name: "Tinta", Path: []string{"Pintura", "Tinta"}}}
	rep := &FacetReport{}
	require.NoError(t, ReconcileCategories(db, product, specs, rec, rep))
	assert.Equal(t, 4, rep.Creates) // 2 nodes + 2 memberships

	// Moving the product to a sibling branch prunes the old memberships
	// but never touches the nodes themselves.
	specs = []CategorySpec{{Name: "Verniz", Path: []string{"Pintura", "Verniz"}}}
	rep = &FacetReport{}
	require.NoError(t, ReconcileCategories(db, product, specs, rec, rep))
	assert.Equal(t, 1, rep.Retires)

	var memberships []models.ProductCategory
	require.NoError(t, db.Where("product_id = ?", product.ID).Find(&memberships).Error)
	assert.Len(t, memberships, 2)

	var nodes int64
	require.NoError(t, db.Model(&models.Category{}).Count(&nodes).Error)
	assert.EqualValues(t, 3, nodes)
}

func TestReconcileCategoriesLeafIsExplicit(t *testing.T) {
	db := setupTestDB(t)
	product := &models.Product{Name: "Tinta", Slug: "tinta"}
	require.NoError(t, db.Create(product).Error)

	rec := Recorders{Prices: NopPriceHistory{}, Changes: NopChangeSet{}}
	specs := []CategorySpec{{Name: "Tinta", Path: []string{"Pintura", "Tinta"}}}
	require.NoError(t, ReconcileCategories(db, product, specs, rec, &FacetReport{}))

	var leaf models.Category
	require.NoError(t, db.Where("slug = ? AND parent_id IS NOT NULL", "tinta").First(&leaf).Error)

	var membership models.ProductCategory
	require.NoError(t, db.Where("product_id = ? AND category_id = ?", product.ID, leaf.ID).
		First(&membership).Error)
	assert.True(t, membership.Explicit)

	var root models.Category
	require.NoError(t, db.Where("slug = ? AND parent_id IS NULL", "pintura").First(&root).Error)
	require.NoError(t, db.Where("product_id = ? AND category_id = ?", product.ID, root.ID).
		First(&membership).Error)
	assert.False(t, membership.Explicit)
}
