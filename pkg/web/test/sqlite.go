package test

import (
	"path/filepath"
	"testing"

	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	dbadapter "github.com/tigerroll/storefront/pkg/web/adapter/database"
	dbconfig "github.com/tigerroll/storefront/pkg/web/adapter/database/config"
	gormadapter "github.com/tigerroll/storefront/pkg/web/adapter/database/gorm"
	_ "github.com/tigerroll/storefront/pkg/web/adapter/database/gorm/sqlite" // registers the "sqlite" dialector
	"github.com/tigerroll/storefront/pkg/web/core/tx"
)

// SQLiteFixture is a file-backed SQLite database private to one test.
type SQLiteFixture struct {
	Conn      *gormadapter.GormDBAdapter
	Resolver  dbadapter.DBConnectionResolver
	TxManager tx.TransactionManager
}

// NewSQLiteFixture opens a fresh SQLite database under t.TempDir() named name.
// The connection is closed when the test ends.
func NewSQLiteFixture(t testing.TB, name string) *SQLiteFixture {
	t.Helper()

	cfg := dbconfig.DatabaseConfig{
		Type:     "sqlite",
		Database: filepath.Join(t.TempDir(), name+".db"),
	}
	factory, err := gormadapter.GetDialectorFactory("sqlite")
	if err != nil {
		t.Fatalf("sqlite dialector not registered: %v", err)
	}
	dialector, err := factory(cfg)
	if err != nil {
		t.Fatalf("failed to create sqlite dialector: %v", err)
	}
	db, err := gorm.Open(dialector, &gorm.Config{Logger: gormlogger.Default.LogMode(gormlogger.Silent)})
	if err != nil {
		t.Fatalf("failed to open sqlite database: %v", err)
	}
	conn, err := gormadapter.NewGormDBAdapter(db, cfg, name)
	if err != nil {
		t.Fatalf("failed to wrap sqlite database: %v", err)
	}
	t.Cleanup(func() { _ = conn.Close() })

	resolver := &testSingleConnectionResolver{conn: conn}
	return &SQLiteFixture{
		Conn:      conn,
		Resolver:  resolver,
		TxManager: gormadapter.NewGormTransactionManagerFactory(resolver).NewTransactionManager(conn),
	}
}
