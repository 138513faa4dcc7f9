package health

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/fx"

	"github.com/tigerroll/storefront/pkg/web/adapter/database"
	"github.com/tigerroll/storefront/pkg/web/core/apps"
	"github.com/tigerroll/storefront/pkg/web/core/config"
	"github.com/tigerroll/storefront/pkg/web/server"
)

const pingTimeout = 2 * time.Second

// Report is the body of GET /health/.
type Report struct {
	Status    string            `json:"status"`
	AppsReady bool              `json:"apps_ready"`
	Apps      []string          `json:"apps"`
	Database  map[string]string `json:"database,omitempty"`
}

// Checker builds health reports.
type Checker struct {
	registry *apps.Registry
	resolver database.DBConnectionResolver
	dbRef    string
}

// CheckerParams defines the dependencies of NewChecker. The database is optional.
type CheckerParams struct {
	fx.In
	Registry *apps.Registry
	Config   *config.Config
	Resolver database.DBConnectionResolver `optional:"true"`
}

// NewChecker creates a Checker that pings the default database connection.
func NewChecker(p CheckerParams) *Checker {
	return &Checker{
		registry: p.Registry,
		resolver: p.Resolver,
		dbRef:    p.Config.Storefront.Infrastructure.DefaultDBRef,
	}
}

// Check reports "ok" when every ready hook ran and the default database answers.
func (c *Checker) Check(ctx context.Context) Report {
	report := Report{Status: "ok", AppsReady: c.registry.Ready(), Apps: []string{}}
	for _, cfg := range c.registry.GetAppConfigs() {
		report.Apps = append(report.Apps, cfg.Label())
	}
	if !report.AppsReady {
		report.Status = "unavailable"
	}

	if c.resolver != nil && c.dbRef != "" {
		pingCtx, cancel := context.WithTimeout(ctx, pingTimeout)
		defer cancel()
		report.Database = map[string]string{c.dbRef: "ok"}
		if _, err := c.resolver.ResolveDBConnection(pingCtx, c.dbRef); err != nil {
			report.Database[c.dbRef] = err.Error()
			report.Status = "unavailable"
		}
	}
	return report
}

// NewRoutes mounts GET /health/.
func NewRoutes(c *Checker) server.AppRoutes {
	return server.AppRoutes{
		Label: Name,
		Mount: func(r chi.Router) {
			r.Get("/", func(w http.ResponseWriter, r *http.Request) {
				report := c.Check(r.Context())
				status := http.StatusOK
				if report.Status != "ok" {
					status = http.StatusServiceUnavailable
				}
				server.WriteJSON(w, status, report)
			})
		},
	}
}
