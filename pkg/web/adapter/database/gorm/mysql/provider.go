// Package mysql provides a gorm DBProvider implementation for MySQL databases.
package mysql

import (
	"fmt"
	"net"
	"strconv"
	"time"

	mysqldriver "github.com/go-sql-driver/mysql"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"

	"github.com/tigerroll/storefront/pkg/web/adapter/database"
	dbconfig "github.com/tigerroll/storefront/pkg/web/adapter/database/config"
	gormadapter "github.com/tigerroll/storefront/pkg/web/adapter/database/gorm"
	"github.com/tigerroll/storefront/pkg/web/core/config"
)

func init() {
	gormadapter.RegisterDialector("mysql", func(cfg dbconfig.DatabaseConfig) (gorm.Dialector, error) {
		dsn, err := ConnectionString(cfg)
		if err != nil {
			return nil, err
		}
		return mysql.Open(dsn), nil
	})
}

// ConnectionString builds the MySQL DSN with utf8mb4, parsed times, multi-statement
// execution and the local time zone.
func ConnectionString(c dbconfig.DatabaseConfig) (string, error) {
	if c.Host == "" || c.Database == "" {
		return "", fmt.Errorf("MySQL connection requires host and database")
	}
	port := c.Port
	if port == 0 {
		port = 3306
	}

	dc := mysqldriver.NewConfig()
	dc.User = c.User
	dc.Passwd = c.Password
	dc.Net = "tcp"
	dc.Addr = net.JoinHostPort(c.Host, strconv.Itoa(port))
	dc.DBName = c.Database
	dc.ParseTime = true
	// Migration files hold several statements each.
	dc.MultiStatements = true
	dc.Loc = time.Local
	dc.Params = map[string]string{"charset": "utf8mb4"}
	return dc.FormatDSN(), nil
}

// MySQLDBProvider implements database.DBProvider for MySQL connections.
type MySQLDBProvider struct {
	*gormadapter.BaseProvider
}

// NewProvider creates a new database.DBProvider for MySQL.
func NewProvider(cfg *config.Config) database.DBProvider {
	return &MySQLDBProvider{BaseProvider: gormadapter.NewBaseProvider(cfg, "mysql")}
}
