package productmanagement

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/hashicorp/go-multierror"

	"github.com/tigerroll/storefront/pkg/web/adapter/storage"
	"github.com/tigerroll/storefront/pkg/web/component/export"
	"github.com/tigerroll/storefront/pkg/web/core/metrics"
	"github.com/tigerroll/storefront/pkg/web/core/tx"
	"github.com/tigerroll/storefront/pkg/web/support/util/exception"
	"github.com/tigerroll/storefront/pkg/web/support/util/logger"
)

const (
	defaultPageSize = 20
	maxPageSize     = 100
	maxSKULength    = 64
	maxNameLength   = 255
	maxReasonLength = 255

	exportBaseDir     = "catalog/products"
	uncategorizedSlug = "uncategorized"
	exportCompression = "SNAPPY"
)

var (
	currencyPattern = regexp.MustCompile(`^[A-Z]{3}$`)
	slugPattern     = regexp.MustCompile(`^[a-z0-9]+(?:-[a-z0-9]+)*$`)
)

// ProductInput is the payload of CreateProduct. Active defaults to true.
type ProductInput struct {
	SKU         string  `json:"sku"`
	Name        string  `json:"name"`
	Description string  `json:"description"`
	CategoryID  *string `json:"category_id"`
	PriceCents  int64   `json:"price_cents"`
	Currency    string  `json:"currency"`
	Stock       int64   `json:"stock"`
	Active      *bool   `json:"active"`
}

// ProductUpdate is the payload of UpdateProduct. Stock only changes through AdjustStock.
type ProductUpdate struct {
	SKU         string  `json:"sku"`
	Name        string  `json:"name"`
	Description string  `json:"description"`
	CategoryID  *string `json:"category_id"`
	PriceCents  int64   `json:"price_cents"`
	Currency    string  `json:"currency"`
	Active      bool    `json:"active"`
}

// CategoryInput is the payload of CreateCategory.
type CategoryInput struct {
	Slug string `json:"slug"`
	Name string `json:"name"`
}

// Page is one page of ListProducts.
type Page struct {
	Items  []Product `json:"items"`
	Total  int64     `json:"total"`
	Limit  int       `json:"limit"`
	Offset int       `json:"offset"`
}

// ExportResult describes one catalog export.
type ExportResult struct {
	Objects []string `json:"objects"`
	Rows    int      `json:"rows"`
	Bytes   int64    `json:"bytes"`
}

// Service implements the catalog operations on top of Repository.
type Service struct {
	repo            *Repository
	txManager       tx.TransactionManager
	storageResolver storage.StorageConnectionResolver
	recorder        metrics.MetricRecorder
	tracer          metrics.Tracer
	now             func() time.Time
}

// NewService creates a Service. storageResolver may be nil, in which case
// ExportCatalog is unavailable.
func NewService(
	repo *Repository,
	txManager tx.TransactionManager,
	storageResolver storage.StorageConnectionResolver,
	recorder metrics.MetricRecorder,
	tracer metrics.Tracer,
) *Service {
	if recorder == nil {
		recorder = metrics.NewNoOpMetricRecorder()
	}
	if tracer == nil {
		tracer = metrics.NewNoOpTracer()
	}
	return &Service{
		repo:            repo,
		txManager:       txManager,
		storageResolver: storageResolver,
		recorder:        recorder,
		tracer:          tracer,
		now:             func() time.Time { return time.Now().UTC() },
	}
}

// observe starts a span for operation. The returned function ends it and
// records the outcome.
func (s *Service) observe(ctx context.Context, operation string, attributes map[string]interface{}) (context.Context, func(error)) {
	start := time.Now()
	ctx, end := s.tracer.StartSpan(ctx, "productmanagement."+operation, attributes)
	return ctx, func(err error) {
		if err != nil {
			s.tracer.RecordError(ctx, "productmanagement", err)
		}
		s.recorder.RecordOperation(ctx, Name, operation, err)
		s.recorder.RecordDuration(ctx, "productmanagement."+operation, time.Since(start), map[string]string{"status": statusTag(err)})
		end()
	}
}

func statusTag(err error) string {
	if err != nil {
		return "error"
	}
	return "success"
}

// validationErrors collects every problem of one payload into a single ErrInvalidArgument.
type validationErrors struct {
	errs *multierror.Error
}

func (v *validationErrors) addf(format string, a ...interface{}) {
	v.errs = multierror.Append(v.errs, fmt.Errorf(format, a...))
}

func (v *validationErrors) err(op string) error {
	if v.errs == nil {
		return nil
	}
	v.errs.ErrorFormat = func(es []error) string {
		msgs := make([]string, len(es))
		for i, e := range es {
			msgs[i] = e.Error()
		}
		return strings.Join(msgs, "; ")
	}
	return exception.NewAppError(op, v.errs.Error(), exception.ErrInvalidArgument, nil)
}

func validateProductFields(v *validationErrors, sku, name string, priceCents int64, currency string) {
	switch {
	case strings.TrimSpace(sku) == "":
		v.addf("sku is required")
	case len(sku) > maxSKULength:
		v.addf("sku must be at most %d characters", maxSKULength)
	}
	switch {
	case strings.TrimSpace(name) == "":
		v.addf("name is required")
	case len(name) > maxNameLength:
		v.addf("name must be at most %d characters", maxNameLength)
	}
	if priceCents < 0 {
		v.addf("price_cents must not be negative")
	}
	if !currencyPattern.MatchString(currency) {
		v.addf("currency must be three upper-case letters")
	}
}

func normalizeCategoryID(id *string) *string {
	if id == nil || strings.TrimSpace(*id) == "" {
		return nil
	}
	trimmed := strings.TrimSpace(*id)
	return &trimmed
}

// checkCategory turns a missing category into ErrInvalidArgument.
func (s *Service) checkCategory(ctx context.Context, op string, categoryID *string) error {
	if categoryID == nil {
		return nil
	}
	if _, err := s.repo.FindCategory(ctx, *categoryID); err != nil {
		if errors.Is(err, exception.ErrNotFound) {
			return exception.NewAppErrorf(op, exception.ErrInvalidArgument, "category '%s' does not exist", *categoryID)
		}
		return err
	}
	return nil
}

// --- Categories ---

// CreateCategory validates and stores a new category.
func (s *Service) CreateCategory(ctx context.Context, in CategoryInput) (category *Category, err error) {
	const op = "productmanagement.Service.CreateCategory"
	ctx, done := s.observe(ctx, "create_category", map[string]interface{}{"slug": in.Slug})
	defer func() { done(err) }()

	v := &validationErrors{}
	if !slugPattern.MatchString(in.Slug) || len(in.Slug) > maxSKULength {
		v.addf("slug must be lower-case letters, digits and single hyphens, at most %d characters", maxSKULength)
	}
	if strings.TrimSpace(in.Name) == "" {
		v.addf("name is required")
	}
	if err := v.err(op); err != nil {
		return nil, err
	}

	category = &Category{ID: uuid.NewString(), Slug: in.Slug, Name: strings.TrimSpace(in.Name), CreatedAt: s.now()}
	if err := s.repo.CreateCategory(ctx, category); err != nil {
		return nil, err
	}
	logger.Infof("Created category '%s' (%s).", category.Slug, category.ID)
	return category, nil
}

// ListCategories returns every category.
func (s *Service) ListCategories(ctx context.Context) (categories []Category, err error) {
	ctx, done := s.observe(ctx, "list_categories", nil)
	defer func() { done(err) }()
	return s.repo.ListCategories(ctx)
}

// --- Products ---

// CreateProduct validates and stores a new product at version 1.
func (s *Service) CreateProduct(ctx context.Context, in ProductInput) (product *Product, err error) {
	const op = "productmanagement.Service.CreateProduct"
	ctx, done := s.observe(ctx, "create_product", map[string]interface{}{"sku": in.SKU})
	defer func() { done(err) }()

	v := &validationErrors{}
	validateProductFields(v, in.SKU, in.Name, in.PriceCents, in.Currency)
	if in.Stock < 0 {
		v.addf("stock must not be negative")
	}
	if err := v.err(op); err != nil {
		return nil, err
	}
	categoryID := normalizeCategoryID(in.CategoryID)
	if err := s.checkCategory(ctx, op, categoryID); err != nil {
		return nil, err
	}

	active := true
	if in.Active != nil {
		active = *in.Active
	}
	now := s.now()
	product = &Product{
		ID:          uuid.NewString(),
		SKU:         strings.TrimSpace(in.SKU),
		Name:        strings.TrimSpace(in.Name),
		Description: in.Description,
		CategoryID:  categoryID,
		PriceCents:  in.PriceCents,
		Currency:    in.Currency,
		Stock:       in.Stock,
		Active:      active,
		Version:     1,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := s.repo.CreateProduct(ctx, product); err != nil {
		return nil, err
	}
	logger.Infof("Created product '%s' (%s).", product.SKU, product.ID)
	return product, nil
}

// GetProduct returns one product or exception.ErrNotFound.
func (s *Service) GetProduct(ctx context.Context, id string) (product *Product, err error) {
	ctx, done := s.observe(ctx, "get_product", map[string]interface{}{"product_id": id})
	defer func() { done(err) }()
	return s.repo.FindProduct(ctx, id)
}

// ListProducts returns one page of products ordered by SKU. Limit defaults to
// 20 and is capped at 100.
func (s *Service) ListProducts(ctx context.Context, filter ProductFilter) (page *Page, err error) {
	const op = "productmanagement.Service.ListProducts"
	ctx, done := s.observe(ctx, "list_products", nil)
	defer func() { done(err) }()

	if filter.Offset < 0 {
		return nil, exception.NewAppError(op, "offset must not be negative", exception.ErrInvalidArgument, nil)
	}
	switch {
	case filter.Limit <= 0:
		filter.Limit = defaultPageSize
	case filter.Limit > maxPageSize:
		filter.Limit = maxPageSize
	}

	items, err := s.repo.ListProducts(ctx, filter)
	if err != nil {
		return nil, err
	}
	total, err := s.repo.CountProducts(ctx, filter)
	if err != nil {
		return nil, err
	}
	return &Page{Items: items, Total: total, Limit: filter.Limit, Offset: filter.Offset}, nil
}

// UpdateProduct replaces the editable fields of a product whose current
// version is expectedVersion. Any other version is an optimistic locking failure.
func (s *Service) UpdateProduct(ctx context.Context, id string, expectedVersion int64, in ProductUpdate) (product *Product, err error) {
	const op = "productmanagement.Service.UpdateProduct"
	ctx, done := s.observe(ctx, "update_product", map[string]interface{}{"product_id": id, "version": expectedVersion})
	defer func() { done(err) }()

	v := &validationErrors{}
	if expectedVersion <= 0 {
		v.addf("version is required")
	}
	validateProductFields(v, in.SKU, in.Name, in.PriceCents, in.Currency)
	if err := v.err(op); err != nil {
		return nil, err
	}
	categoryID := normalizeCategoryID(in.CategoryID)

	err = tx.Run(ctx, s.txManager, func(ctx context.Context) error {
		current, err := s.repo.FindProduct(ctx, id)
		if err != nil {
			return err
		}
		if current.Version != expectedVersion {
			return exception.NewOptimisticLockingFailureException(op,
				fmt.Sprintf("product '%s' is at version %d, not %d", id, current.Version, expectedVersion), nil)
		}
		if err := s.checkCategory(ctx, op, categoryID); err != nil {
			return err
		}

		current.SKU = strings.TrimSpace(in.SKU)
		current.Name = strings.TrimSpace(in.Name)
		current.Description = in.Description
		current.CategoryID = categoryID
		current.PriceCents = in.PriceCents
		current.Currency = in.Currency
		current.Active = in.Active
		current.UpdatedAt = s.now()
		if err := s.repo.UpdateProduct(ctx, current); err != nil {
			return err
		}
		product = current
		return nil
	})
	if err != nil {
		return nil, err
	}
	logger.Debugf("Updated product '%s' to version %d.", product.ID, product.Version)
	return product, nil
}

// DeleteProduct removes a product together with its stock movements.
func (s *Service) DeleteProduct(ctx context.Context, id string) (err error) {
	ctx, done := s.observe(ctx, "delete_product", map[string]interface{}{"product_id": id})
	defer func() { done(err) }()

	err = tx.Run(ctx, s.txManager, func(ctx context.Context) error {
		return s.repo.DeleteProduct(ctx, id)
	})
	if err != nil {
		return err
	}
	logger.Infof("Deleted product '%s'.", id)
	return nil
}

// AdjustStock adds delta to the stock of a product and records a StockMovement
// in the same transaction. A result below zero is rejected.
func (s *Service) AdjustStock(ctx context.Context, id string, delta int64, reason string) (product *Product, err error) {
	const op = "productmanagement.Service.AdjustStock"
	ctx, done := s.observe(ctx, "adjust_stock", map[string]interface{}{"product_id": id, "delta": delta})
	defer func() { done(err) }()

	reason = strings.TrimSpace(reason)
	v := &validationErrors{}
	if delta == 0 {
		v.addf("delta must not be zero")
	}
	switch {
	case reason == "":
		v.addf("reason is required")
	case len(reason) > maxReasonLength:
		v.addf("reason must be at most %d characters", maxReasonLength)
	}
	if err := v.err(op); err != nil {
		return nil, err
	}

	err = tx.Run(ctx, s.txManager, func(ctx context.Context) error {
		current, err := s.repo.FindProduct(ctx, id)
		if err != nil {
			return err
		}
		next := current.Stock + delta
		if next < 0 {
			return exception.NewAppErrorf(op, exception.ErrInvalidArgument,
				"stock of product '%s' would become %d (current %d, delta %d)", id, next, current.Stock, delta)
		}

		now := s.now()
		current.Stock = next
		current.UpdatedAt = now
		if err := s.repo.UpdateProduct(ctx, current); err != nil {
			return err
		}
		movement := &StockMovement{
			ID:             uuid.NewString(),
			ProductID:      id,
			Delta:          delta,
			Reason:         reason,
			ResultingStock: next,
			CreatedAt:      now,
		}
		if err := s.repo.CreateMovement(ctx, movement); err != nil {
			return err
		}
		product = current
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.tracer.RecordEvent(ctx, "stock_adjusted", map[string]interface{}{"resulting_stock": product.Stock})
	return product, nil
}

// ListMovements returns the stock history of an existing product.
func (s *Service) ListMovements(ctx context.Context, productID string) (movements []StockMovement, err error) {
	ctx, done := s.observe(ctx, "list_movements", map[string]interface{}{"product_id": productID})
	defer func() { done(err) }()

	if _, err := s.repo.FindProduct(ctx, productID); err != nil {
		return nil, err
	}
	return s.repo.ListMovements(ctx, productID)
}

// --- Export ---

// ExportCatalog writes every product as parquet into the app's export
// storage, one file per category under catalog/products/category=<slug>/.
// When some partitions fail, the objects that were uploaded are returned
// together with the error.
func (s *Service) ExportCatalog(ctx context.Context) (result *ExportResult, err error) {
	const op = "productmanagement.Service.ExportCatalog"
	ctx, done := s.observe(ctx, "export_catalog", nil)
	rows := 0
	var bytes int64
	defer func() {
		s.recorder.RecordExport(ctx, Name, rows, bytes, err)
		done(err)
	}()

	if s.storageResolver == nil {
		return nil, exception.NewAppError(op, "no storage is configured for exports", exception.ErrUnavailable, nil)
	}
	storageRef, err := s.storageResolver.ResolveStorageConnectionName(ctx, Name, "")
	if err != nil {
		return nil, exception.NewAppError(op, "no storage is configured for exports", exception.ErrUnavailable, err)
	}

	categories, err := s.repo.ListCategories(ctx)
	if err != nil {
		return nil, err
	}
	slugs := make(map[string]string, len(categories))
	for _, c := range categories {
		slugs[c.ID] = c.Slug
	}
	products, err := s.repo.ListProducts(ctx, ProductFilter{})
	if err != nil {
		return nil, err
	}

	catalog := make([]CatalogRow, 0, len(products))
	for _, p := range products {
		slug := uncategorizedSlug
		if p.CategoryID != nil {
			if known, ok := slugs[*p.CategoryID]; ok {
				slug = known
			}
		}
		catalog = append(catalog, CatalogRow{
			ID:           p.ID,
			SKU:          p.SKU,
			Name:         p.Name,
			CategorySlug: slug,
			PriceCents:   p.PriceCents,
			Currency:     p.Currency,
			Stock:        p.Stock,
			Active:       p.Active,
			UpdatedAt:    p.UpdatedAt.UnixMilli(),
		})
	}

	exporter, err := export.NewParquetExporter[CatalogRow]("catalog", map[string]interface{}{
		"storage_ref":     storageRef,
		"output_base_dir": exportBaseDir,
		"compression":     exportCompression,
	}, s.storageResolver, new(CatalogRow), func(row CatalogRow) (string, error) {
		return "category=" + row.CategorySlug, nil
	})
	if err != nil {
		return nil, err
	}
	res, err := exporter.Export(ctx, catalog)
	rows, bytes = res.Rows, res.Bytes
	if err != nil {
		if len(res.Objects) == 0 {
			return nil, err
		}
		logger.Warnf("Catalog export on '%s' failed after uploading %d object(s): %s",
			storageRef, len(res.Objects), strings.Join(res.Objects, ", "))
		return newExportResult(res), err
	}
	logger.Infof("Exported %d products into %d object(s) on '%s'.", res.Rows, len(res.Objects), storageRef)
	return newExportResult(res), nil
}

func newExportResult(res export.Result) *ExportResult {
	return &ExportResult{Objects: append([]string{}, res.Objects...), Rows: res.Rows, Bytes: res.Bytes}
}
