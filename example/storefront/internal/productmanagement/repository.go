package productmanagement

import (
	"context"
	"fmt"
	"strings"

	"github.com/tigerroll/storefront/pkg/web/adapter/database"
	"github.com/tigerroll/storefront/pkg/web/core/tx"
	"github.com/tigerroll/storefront/pkg/web/support/util/exception"
)

// ProductFilter narrows ListProducts and CountProducts.
type ProductFilter struct {
	CategoryID string
	ActiveOnly bool
	Limit      int
	Offset     int
}

func (f ProductFilter) query() map[string]interface{} {
	q := map[string]interface{}{}
	if f.CategoryID != "" {
		q["category_id"] = f.CategoryID
	}
	if f.ActiveOnly {
		q["active"] = true
	}
	return q
}

// Repository persists catalog entities on one named database connection.
// Writes and reads made with a tx.Tx in the context run inside that transaction.
type Repository struct {
	dbResolver database.DBConnectionResolver
	dbName     string
}

// NewRepository creates a Repository on the connection dbName.
func NewRepository(dbResolver database.DBConnectionResolver, dbName string) *Repository {
	return &Repository{dbResolver: dbResolver, dbName: dbName}
}

// DBName returns the name of the connection the repository uses.
func (r *Repository) DBName() string {
	return r.dbName
}

func (r *Repository) getDBConnection(ctx context.Context) (database.DBConnection, error) {
	conn, err := r.dbResolver.ResolveDBConnection(ctx, r.dbName)
	if err != nil {
		return nil, exception.NewAppErrorf("productmanagement.Repository", exception.ErrUnavailable, "failed to resolve database connection '%s'", r.dbName, err)
	}
	return conn, nil
}

// getTxExecutor returns the Tx in ctx, or the connection when there is none.
func (r *Repository) getTxExecutor(ctx context.Context) (tx.TxExecutor, error) {
	if t, ok := tx.TxFromContext(ctx); ok {
		return t, nil
	}
	return r.getDBConnection(ctx)
}

type querier interface {
	ExecuteQuery(ctx context.Context, target interface{}, query map[string]interface{}) error
}

// getQuerier returns the Tx in ctx, or the connection when there is none.
func (r *Repository) getQuerier(ctx context.Context) (querier, error) {
	if t, ok := tx.TxFromContext(ctx); ok {
		return t, nil
	}
	return r.getDBConnection(ctx)
}

// isDuplicateKeyError matches unique constraint violations of SQLite, MySQL and PostgreSQL.
func isDuplicateKeyError(err error) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	return strings.Contains(msg, "UNIQUE constraint failed") || // SQLite
		strings.Contains(msg, "Error 1062") || // MySQL
		strings.Contains(msg, "duplicate key value violates unique constraint") // PostgreSQL
}

func (r *Repository) create(ctx context.Context, op string, entity interface{}, what string) error {
	executor, err := r.getTxExecutor(ctx)
	if err != nil {
		return err
	}
	if _, err := executor.ExecuteUpdate(ctx, entity, "CREATE", "", nil); err != nil {
		if isDuplicateKeyError(err) {
			return exception.NewAppErrorf(op, exception.ErrConflict, "%s already exists", what, err)
		}
		return exception.NewAppErrorf(op, nil, "failed to create %s", what, err)
	}
	return nil
}

// --- Category ---

// CreateCategory inserts category. A duplicate slug is exception.ErrConflict.
func (r *Repository) CreateCategory(ctx context.Context, category *Category) error {
	return r.create(ctx, "productmanagement.Repository.CreateCategory", category, fmt.Sprintf("category '%s'", category.Slug))
}

// FindCategory returns the category with id, or exception.ErrNotFound.
func (r *Repository) FindCategory(ctx context.Context, id string) (*Category, error) {
	const op = "productmanagement.Repository.FindCategory"
	q, err := r.getQuerier(ctx)
	if err != nil {
		return nil, err
	}
	var found []Category
	if err := q.ExecuteQuery(ctx, &found, map[string]interface{}{"id": id}); err != nil {
		return nil, exception.NewAppErrorf(op, nil, "failed to find category '%s'", id, err)
	}
	if len(found) == 0 {
		return nil, exception.NewAppErrorf(op, exception.ErrNotFound, "category '%s' not found", id)
	}
	return &found[0], nil
}

// ListCategories returns every category ordered by name.
func (r *Repository) ListCategories(ctx context.Context) ([]Category, error) {
	conn, err := r.getDBConnection(ctx)
	if err != nil {
		return nil, err
	}
	out := []Category{}
	if err := conn.ExecuteQueryAdvanced(ctx, &out, nil, "name ASC, slug ASC", 0, 0); err != nil {
		return nil, exception.NewAppError("productmanagement.Repository.ListCategories", "failed to list categories", nil, err)
	}
	return out, nil
}

// --- Product ---

// CreateProduct inserts product. A duplicate SKU is exception.ErrConflict.
func (r *Repository) CreateProduct(ctx context.Context, product *Product) error {
	return r.create(ctx, "productmanagement.Repository.CreateProduct", product, fmt.Sprintf("product with SKU '%s'", product.SKU))
}

// FindProduct returns the product with id, or exception.ErrNotFound.
func (r *Repository) FindProduct(ctx context.Context, id string) (*Product, error) {
	const op = "productmanagement.Repository.FindProduct"
	q, err := r.getQuerier(ctx)
	if err != nil {
		return nil, err
	}
	var found []Product
	if err := q.ExecuteQuery(ctx, &found, map[string]interface{}{"id": id}); err != nil {
		return nil, exception.NewAppErrorf(op, nil, "failed to find product '%s'", id, err)
	}
	if len(found) == 0 {
		return nil, exception.NewAppErrorf(op, exception.ErrNotFound, "product '%s' not found", id)
	}
	return &found[0], nil
}

// ListProducts returns one page of products ordered by SKU.
// A zero Limit returns every matching product.
func (r *Repository) ListProducts(ctx context.Context, filter ProductFilter) ([]Product, error) {
	conn, err := r.getDBConnection(ctx)
	if err != nil {
		return nil, err
	}
	out := []Product{}
	if err := conn.ExecuteQueryAdvanced(ctx, &out, filter.query(), "sku ASC", filter.Limit, filter.Offset); err != nil {
		return nil, exception.NewAppError("productmanagement.Repository.ListProducts", "failed to list products", nil, err)
	}
	return out, nil
}

// CountProducts counts the products matching filter, ignoring paging.
func (r *Repository) CountProducts(ctx context.Context, filter ProductFilter) (int64, error) {
	conn, err := r.getDBConnection(ctx)
	if err != nil {
		return 0, err
	}
	n, err := conn.Count(ctx, &Product{}, filter.query())
	if err != nil {
		return 0, exception.NewAppError("productmanagement.Repository.CountProducts", "failed to count products", nil, err)
	}
	return n, nil
}

// UpdateProduct writes product if its stored version still equals product.Version,
// and increments product.Version. A stale version is an optimistic locking failure
// and leaves product.Version unchanged.
func (r *Repository) UpdateProduct(ctx context.Context, product *Product) error {
	const op = "productmanagement.Repository.UpdateProduct"
	executor, err := r.getTxExecutor(ctx)
	if err != nil {
		return err
	}

	originalVersion := product.Version
	product.Version++
	rowsAffected, err := executor.ExecuteUpdate(ctx, product, "UPDATE", productTable, map[string]interface{}{"version": originalVersion})
	if err != nil {
		product.Version = originalVersion
		if isDuplicateKeyError(err) {
			return exception.NewAppErrorf(op, exception.ErrConflict, "product with SKU '%s' already exists", product.SKU, err)
		}
		return exception.NewAppErrorf(op, nil, "failed to update product '%s'", product.ID, err)
	}
	if rowsAffected == 0 {
		product.Version = originalVersion
		return exception.NewOptimisticLockingFailureException(op, fmt.Sprintf("product '%s' with version %d not found for update", product.ID, originalVersion), nil)
	}
	return nil
}

// DeleteProduct removes the product and its stock movements.
func (r *Repository) DeleteProduct(ctx context.Context, id string) error {
	const op = "productmanagement.Repository.DeleteProduct"
	executor, err := r.getTxExecutor(ctx)
	if err != nil {
		return err
	}
	if _, err := executor.ExecuteUpdate(ctx, &StockMovement{}, "DELETE", stockMovementTable, map[string]interface{}{"product_id": id}); err != nil {
		return exception.NewAppErrorf(op, nil, "failed to delete stock movements of product '%s'", id, err)
	}
	rowsAffected, err := executor.ExecuteUpdate(ctx, &Product{ID: id}, "DELETE", productTable, nil)
	if err != nil {
		return exception.NewAppErrorf(op, nil, "failed to delete product '%s'", id, err)
	}
	if rowsAffected == 0 {
		return exception.NewAppErrorf(op, exception.ErrNotFound, "product '%s' not found", id)
	}
	return nil
}

// --- StockMovement ---

// CreateMovement inserts movement.
func (r *Repository) CreateMovement(ctx context.Context, movement *StockMovement) error {
	return r.create(ctx, "productmanagement.Repository.CreateMovement", movement, fmt.Sprintf("stock movement '%s'", movement.ID))
}

// ListMovements returns the movements of a product, oldest first.
func (r *Repository) ListMovements(ctx context.Context, productID string) ([]StockMovement, error) {
	conn, err := r.getDBConnection(ctx)
	if err != nil {
		return nil, err
	}
	out := []StockMovement{}
	if err := conn.ExecuteQueryAdvanced(ctx, &out, map[string]interface{}{"product_id": productID}, "created_at ASC, id ASC", 0, 0); err != nil {
		return nil, exception.NewAppErrorf("productmanagement.Repository.ListMovements", nil, "failed to list movements of product '%s'", productID, err)
	}
	return out, nil
}
