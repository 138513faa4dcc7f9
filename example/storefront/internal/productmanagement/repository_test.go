package productmanagement_test

import (
	"context"
	"errors"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	testifymock "github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"

	"github.com/tigerroll/storefront/example/storefront/internal/productmanagement"
	dbconfig "github.com/tigerroll/storefront/pkg/web/adapter/database/config"
	gormadapter "github.com/tigerroll/storefront/pkg/web/adapter/database/gorm"
	"github.com/tigerroll/storefront/pkg/web/core/tx"
	"github.com/tigerroll/storefront/pkg/web/support/util/exception"
	"github.com/tigerroll/storefront/pkg/web/test"
)

// setupGormMock wires a Repository to a sqlmock-backed MySQL dialect.
func setupGormMock(t *testing.T) (sqlmock.Sqlmock, *productmanagement.Repository) {
	sqlDB, mock, err := sqlmock.New()
	require.NoError(t, err)

	gormDB, err := gorm.Open(mysql.New(mysql.Config{
		Conn:                      sqlDB,
		SkipInitializeWithVersion: true,
	}), &gorm.Config{})
	require.NoError(t, err)

	conn, err := gormadapter.NewGormDBAdapter(gormDB, dbconfig.DatabaseConfig{Type: "mysql"}, "mock_db")
	require.NoError(t, err)
	t.Cleanup(func() {
		mock.ExpectClose()
		_ = sqlDB.Close()
	})
	return mock, productmanagement.NewRepository(test.NewTestSingleConnectionResolver(conn), "mock_db")
}

func TestRepository_UpdateProductIncrementsVersion(t *testing.T) {
	_, repo := setupGormMock(t)

	mockTx := new(test.MockTx)
	mockTx.On("ExecuteUpdate", testifymock.Anything, testifymock.Anything, "UPDATE", "product_management_product",
		map[string]interface{}{"version": int64(3)}).Return(int64(1), nil)
	ctx := tx.WithTx(context.Background(), mockTx)

	product := &productmanagement.Product{ID: "p1", Version: 3}
	require.NoError(t, repo.UpdateProduct(ctx, product))
	assert.EqualValues(t, 4, product.Version)
	mockTx.AssertExpectations(t)
}

func TestRepository_UpdateProductOptimisticLocking(t *testing.T) {
	_, repo := setupGormMock(t)

	mockTx := new(test.MockTx)
	mockTx.On("ExecuteUpdate", testifymock.Anything, testifymock.Anything, "UPDATE", "product_management_product",
		map[string]interface{}{"version": int64(3)}).Return(int64(0), nil)
	ctx := tx.WithTx(context.Background(), mockTx)

	product := &productmanagement.Product{ID: "p1", Version: 3}
	err := repo.UpdateProduct(ctx, product)
	require.Error(t, err)
	assert.True(t, exception.IsOptimisticLockingFailure(err))
	assert.EqualValues(t, 3, product.Version, "a failed update keeps the original version")
	mockTx.AssertExpectations(t)
}

func TestRepository_CreateProductDuplicate(t *testing.T) {
	_, repo := setupGormMock(t)

	mockTx := new(test.MockTx)
	mockTx.On("ExecuteUpdate", testifymock.Anything, testifymock.Anything, "CREATE", "", testifymock.Anything).
		Return(int64(0), errors.New("Error 1062 (23000): Duplicate entry 'SKU-1' for key 'idx_product_management_product_sku'"))
	ctx := tx.WithTx(context.Background(), mockTx)

	err := repo.CreateProduct(ctx, &productmanagement.Product{ID: "p1", SKU: "SKU-1"})
	assert.ErrorIs(t, err, exception.ErrConflict)
	assert.Contains(t, err.Error(), "SKU-1")
}

func TestRepository_FindProductReadsThroughTx(t *testing.T) {
	_, repo := setupGormMock(t)

	mockTx := new(test.MockTx)
	mockTx.On("ExecuteQuery", testifymock.Anything, testifymock.Anything, map[string]interface{}{"id": "p1"}).
		Run(func(args testifymock.Arguments) {
			*args.Get(1).(*[]productmanagement.Product) = []productmanagement.Product{{ID: "p1", SKU: "SKU-1"}}
		}).Return(nil)
	mockTx.On("ExecuteQuery", testifymock.Anything, testifymock.Anything, map[string]interface{}{"id": "p2"}).Return(nil)
	ctx := tx.WithTx(context.Background(), mockTx)

	found, err := repo.FindProduct(ctx, "p1")
	require.NoError(t, err)
	assert.Equal(t, "SKU-1", found.SKU)

	_, err = repo.FindProduct(ctx, "p2")
	assert.ErrorIs(t, err, exception.ErrNotFound)
	mockTx.AssertExpectations(t)
}

func TestRepository_DeleteProductRemovesMovementsFirst(t *testing.T) {
	_, repo := setupGormMock(t)

	mockTx := new(test.MockTx)
	movements := mockTx.On("ExecuteUpdate", testifymock.Anything, testifymock.Anything, "DELETE", "product_management_stockmovement",
		map[string]interface{}{"product_id": "p1"}).Return(int64(2), nil).Once()
	mockTx.On("ExecuteUpdate", testifymock.Anything, testifymock.Anything, "DELETE", "product_management_product",
		map[string]interface{}(nil)).Return(int64(0), nil).Once().NotBefore(movements)
	ctx := tx.WithTx(context.Background(), mockTx)

	err := repo.DeleteProduct(ctx, "p1")
	assert.ErrorIs(t, err, exception.ErrNotFound)
	mockTx.AssertExpectations(t)
}

func TestRepository_ListProductsQueriesConnection(t *testing.T) {
	mock, repo := setupGormMock(t)

	rows := sqlmock.NewRows([]string{"id", "sku", "name", "price_cents", "currency", "stock", "active", "version"}).
		AddRow("p1", "A", "Alpha", 100, "EUR", 1, true, 1).
		AddRow("p2", "B", "Beta", 200, "EUR", 0, true, 3)
	mock.ExpectQuery("SELECT \\* FROM `product_management_product` WHERE `active` = \\? ORDER BY sku ASC").WillReturnRows(rows)

	products, err := repo.ListProducts(context.Background(), productmanagement.ProductFilter{ActiveOnly: true, Limit: 2})
	require.NoError(t, err)
	require.Len(t, products, 2)
	assert.Equal(t, "B", products[1].SKU)
	assert.EqualValues(t, 3, products[1].Version)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRepository_CountProductsError(t *testing.T) {
	mock, repo := setupGormMock(t)
	mock.ExpectQuery("SELECT count\\(\\*\\) FROM `product_management_product`").WillReturnError(assert.AnError)

	_, err := repo.CountProducts(context.Background(), productmanagement.ProductFilter{CategoryID: "c1"})
	require.Error(t, err)
	assert.ErrorIs(t, err, assert.AnError)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRepository_UnresolvableConnection(t *testing.T) {
	resolver := &test.MockDBConnectionResolver{}
	resolver.On("ResolveDBConnection", testifymock.Anything, "default").Return(nil, assert.AnError)
	repo := productmanagement.NewRepository(resolver, "default")

	_, err := repo.ListCategories(context.Background())
	assert.ErrorIs(t, err, exception.ErrUnavailable)
	_, err = repo.FindProduct(context.Background(), "p1")
	assert.ErrorIs(t, err, exception.ErrUnavailable)
}
