package productmanagement

import "time"

// Table names follow the "<app label>_<model>" convention.
const (
	categoryTable      = "product_management_category"
	productTable       = "product_management_product"
	stockMovementTable = "product_management_stockmovement"
)

// Category groups products.
type Category struct {
	ID        string    `gorm:"column:id;primaryKey;size:36" json:"id"`
	Slug      string    `gorm:"column:slug;size:64;not null;uniqueIndex" json:"slug"`
	Name      string    `gorm:"column:name;size:255;not null" json:"name"`
	CreatedAt time.Time `gorm:"column:created_at;not null" json:"created_at"`
}

// TableName implements gorm's Tabler.
func (Category) TableName() string { return categoryTable }

// Product is a sellable item. Version is incremented on every update and
// guards against lost updates.
type Product struct {
	ID          string    `gorm:"column:id;primaryKey;size:36" json:"id"`
	SKU         string    `gorm:"column:sku;size:64;not null;uniqueIndex" json:"sku"`
	Name        string    `gorm:"column:name;size:255;not null" json:"name"`
	Description string    `gorm:"column:description;not null;default:''" json:"description"`
	CategoryID  *string   `gorm:"column:category_id;size:36;index" json:"category_id,omitempty"`
	PriceCents  int64     `gorm:"column:price_cents;not null" json:"price_cents"`
	Currency    string    `gorm:"column:currency;size:3;not null" json:"currency"`
	Stock       int64     `gorm:"column:stock;not null;default:0" json:"stock"`
	Active      bool      `gorm:"column:active;not null" json:"active"`
	Version     int64     `gorm:"column:version;not null;default:1" json:"version"`
	CreatedAt   time.Time `gorm:"column:created_at;not null" json:"created_at"`
	UpdatedAt   time.Time `gorm:"column:updated_at;not null" json:"updated_at"`
}

// TableName implements gorm's Tabler.
func (Product) TableName() string { return productTable }

// StockMovement records one stock adjustment. It is written in the same
// transaction as the product update it describes.
type StockMovement struct {
	ID             string    `gorm:"column:id;primaryKey;size:36" json:"id"`
	ProductID      string    `gorm:"column:product_id;size:36;not null;index" json:"product_id"`
	Delta          int64     `gorm:"column:delta;not null" json:"delta"`
	Reason         string    `gorm:"column:reason;size:255;not null" json:"reason"`
	ResultingStock int64     `gorm:"column:resulting_stock;not null" json:"resulting_stock"`
	CreatedAt      time.Time `gorm:"column:created_at;not null" json:"created_at"`
}

// TableName implements gorm's Tabler.
func (StockMovement) TableName() string { return stockMovementTable }

// CatalogRow is one exported product.
type CatalogRow struct {
	ID           string `parquet:"name=id,type=BYTE_ARRAY,convertedtype=UTF8"`
	SKU          string `parquet:"name=sku,type=BYTE_ARRAY,convertedtype=UTF8"`
	Name         string `parquet:"name=name,type=BYTE_ARRAY,convertedtype=UTF8"`
	CategorySlug string `parquet:"name=category_slug,type=BYTE_ARRAY,convertedtype=UTF8"`
	PriceCents   int64  `parquet:"name=price_cents,type=INT64"`
	Currency     string `parquet:"name=currency,type=BYTE_ARRAY,convertedtype=UTF8"`
	Stock        int64  `parquet:"name=stock,type=INT64"`
	Active       bool   `parquet:"name=active,type=BOOLEAN"`
	UpdatedAt    int64  `parquet:"name=updated_at,type=INT64,convertedtype=TIMESTAMP_MILLIS"`
}
