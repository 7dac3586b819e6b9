package reconcile

import (
	"testing"

	"catalog-manager/feature/catalog/models"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"
)

func setupMockDB(t *testing.T) (*gorm.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("Failed to open mock sql db: %v", err)
	}

	dialector := mysql.New(mysql.Config{
		Conn:                      db,
		SkipInitializeWithVersion: true,
	})

	gormDB, err := gorm.Open(dialector, &gorm.Config{})
	if err != nil {
		t.Fatalf("Failed to open gorm db: %v", err)
	}

	return gormDB, mock
}

func TestIdentityKeyIsOrderInsensitive(t *testing.T) {
	assert.Equal(t, "3-17-42", IdentityKey([]uint{42, 3, 17}))
	assert.Equal(t, IdentityKey([]uint{1, 2}), IdentityKey([]uint{2, 1}))
	assert.Equal(t, "", IdentityKey(nil))
}

func TestGenerateVariantName(t *testing.T) {
	product := &models.Product{Name: "Tinta para Tecido"}

	options := []resolvedOption{
		{attrType: &models.AttributeType{Name: "Cor"}, option: &models.AttributeOption{Value: "Azul"}},
		{attrType: &models.AttributeType{Name: "Número"}, option: &models.AttributeOption{Value: "5", DisplayName: "Nº 5"}},
	}
	assert.Equal(t, "Tinta para Tecido - Azul / Nº 5", generateVariantName(product, options))

	assert.Equal(t, "Tinta para Tecido", generateVariantName(product, nil))
}

func TestFloatPtrEqual(t *testing.T) {
	a, b := 1.5, 1.5
	c := 2.0
	assert.True(t, floatPtrEqual(nil, nil))
	assert.True(t, floatPtrEqual(&a, &b))
	assert.False(t, floatPtrEqual(&a, &c))
	assert.False(t, floatPtrEqual(&a, nil))
}

// An empty spec set against an empty variant table must only read.
func TestReconcileVariantsEmptyIsReadOnly(t *testing.T) {
	db, mock := setupMockDB(t)

	rows := sqlmock.NewRows([]string{"id", "product_id", "sku", "active"})
	mock.ExpectQuery("SELECT \\* FROM `variants`").WillReturnRows(rows)

	product := &models.Product{ID: 7}
	rec := Recorders{Prices: NopPriceHistory{}, Changes: NopChangeSet{}}
	rep := &FacetReport{}

	err := ReconcileVariants(db, product, nil, nil, rec, rep)
	require.NoError(t, err)

	assert.Zero(t, rep.Creates+rep.Updates+rep.Retires)
	assert.NoError(t, mock.ExpectationsWereMet())
}
