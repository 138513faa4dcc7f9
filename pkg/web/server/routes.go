package server

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/fx"

	"github.com/tigerroll/storefront/pkg/web/core/apps"
	"github.com/tigerroll/storefront/pkg/web/core/config"
	metrics "github.com/tigerroll/storefront/pkg/web/core/metrics"
	"github.com/tigerroll/storefront/pkg/web/support/util/logger"
)

// AppRoutesGroup is the Fx group applications contribute AppRoutes to.
const AppRoutesGroup = `group:"app_routes"`

// AppRoutes mounts an application's handlers under "/<Label>".
type AppRoutes struct {
	// Label is the registry label of the owning app.
	Label string
	// Mount registers the app's routes on a sub-router.
	Mount func(r chi.Router)
}

// AsAppRoutes annotates constructor so that its AppRoutes result joins AppRoutesGroup.
func AsAppRoutes(constructor interface{}) fx.Option {
	return fx.Provide(fx.Annotate(constructor, fx.ResultTags(AppRoutesGroup)))
}

// AppInfo is the JSON view of an AppConfig.
type AppInfo struct {
	Name        string `json:"name"`
	Label       string `json:"label"`
	VerboseName string `json:"verbose_name"`
}

func appInfo(cfg apps.AppConfig) AppInfo {
	return AppInfo{Name: cfg.Name(), Label: cfg.Label(), VerboseName: cfg.VerboseName()}
}

// RouterParams defines the dependencies of NewRouter.
type RouterParams struct {
	fx.In
	Config   *config.WebConfig
	Registry *apps.Registry
	Recorder metrics.MetricRecorder
	Routes   []AppRoutes         `group:"app_routes"`
	Gatherer prometheus.Gatherer `optional:"true"`
}

// NewRouter builds the HTTP handler. The registry must already be populated,
// since routes of apps that are not installed are skipped.
func NewRouter(p RouterParams) chi.Router {
	r := chi.NewRouter()
	r.Use(RequestID)
	r.Use(Recoverer)
	if p.Recorder != nil {
		r.Use(Metrics(p.Recorder))
	}
	r.Use(Tracing("github.com/tigerroll/storefront/pkg/web/server"))
	r.Use(RequestLogger)
	if p.Config.RateLimit.Enabled && p.Config.RateLimit.RequestsPerMinute > 0 {
		r.Use(RateLimit(p.Config.RateLimit.RequestsPerMinute))
	}
	r.Use(BodyLimit(p.Config.MaxBodyBytes))

	r.NotFound(func(w http.ResponseWriter, req *http.Request) {
		WriteJSON(w, http.StatusNotFound, ErrorResponse{
			Error:     http.StatusText(http.StatusNotFound),
			Message:   "no route for " + req.URL.Path,
			RequestID: RequestIDFromContext(req.Context()),
		})
	})

	r.Get("/apps", listApps(p.Registry))
	r.Get("/apps/{label}", getApp(p.Registry))
	if p.Gatherer != nil {
		r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(p.Gatherer, promhttp.HandlerOpts{}))
	}

	for _, route := range p.Routes {
		if route.Mount == nil {
			continue
		}
		if _, err := p.Registry.GetAppConfig(route.Label); err != nil {
			logger.Warnf("Skipping routes of app '%s': %v", route.Label, err)
			continue
		}
		r.Route("/"+route.Label, route.Mount)
		logger.Debugf("Mounted routes of app '%s' at /%s.", route.Label, route.Label)
	}
	return r
}

func listApps(registry *apps.Registry) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !registry.AppsReady() {
			WriteError(w, r, apps.ErrAppRegistryNotReady)
			return
		}
		configs := registry.GetAppConfigs()
		out := make([]AppInfo, 0, len(configs))
		for _, cfg := range configs {
			out = append(out, appInfo(cfg))
		}
		WriteJSON(w, http.StatusOK, out)
	}
}

func getApp(registry *apps.Registry) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		cfg, err := registry.GetAppConfig(chi.URLParam(r, "label"))
		if err != nil {
			WriteError(w, r, err)
			return
		}
		WriteJSON(w, http.StatusOK, appInfo(cfg))
	}
}
