package apps

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/hashicorp/go-multierror"

	"github.com/tigerroll/storefront/pkg/web/support/util/logger"
)

// HookObserver is notified after each ready hook returns.
type HookObserver func(label string, elapsed time.Duration, err error)

// Option configures a Registry.
type Option func(*Registry)

// WithHookObserver registers fn to be called after each ready hook.
func WithHookObserver(fn HookObserver) Option {
	return func(r *Registry) {
		r.observers = append(r.observers, fn)
	}
}

// Registry holds the installed application configs, keyed by label.
// Populate fills it once; every other method is safe for concurrent use.
type Registry struct {
	populateMu sync.Mutex

	mu          sync.RWMutex
	byLabel     map[string]AppConfig
	ordered     []AppConfig
	models      []interface{}
	appsReady   bool
	modelsReady bool
	ready       bool
	// populating is set while ready hooks run.
	populating bool

	observers []HookObserver
}

// NewRegistry creates an empty, not yet ready Registry.
func NewRegistry(opts ...Option) *Registry {
	r := &Registry{byLabel: make(map[string]AppConfig)}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Populate registers configs and makes them ready. It is idempotent: once the
// registry is ready later calls return nil without doing anything.
//
// Population runs in three phases: configs are validated and indexed, models
// are collected, then ready hooks run in registration order. Lookups work from
// the end of the first phase, so hooks may query the registry. If any phase
// fails the registry is left empty and not ready.
//
// Any call made while ready hooks run returns ErrPopulateNotReentrant, whatever
// context it carries. Calls arriving earlier wait for the first one to finish.
func (r *Registry) Populate(ctx context.Context, configs []AppConfig) error {
	if r.hooksRunning() {
		return ErrPopulateNotReentrant
	}

	r.populateMu.Lock()
	defer r.populateMu.Unlock()

	if r.Ready() {
		return nil
	}

	byLabel, err := index(configs)
	if err != nil {
		return err
	}

	r.mu.Lock()
	r.byLabel = byLabel
	r.ordered = append([]AppConfig(nil), configs...)
	r.appsReady = true
	r.mu.Unlock()
	logger.Debugf("App registry indexed %d application(s).", len(configs))

	var models []interface{}
	for _, cfg := range configs {
		if mp, ok := cfg.(ModelsProvider); ok {
			models = append(models, mp.Models()...)
		}
	}
	r.mu.Lock()
	r.models = models
	r.modelsReady = true
	r.populating = true
	r.mu.Unlock()

	for _, cfg := range configs {
		hook, ok := cfg.(ReadyHook)
		if !ok {
			continue
		}
		start := time.Now()
		hookErr := hook.Ready(ctx)
		for _, observe := range r.observers {
			observe(cfg.Label(), time.Since(start), hookErr)
		}
		if hookErr != nil {
			r.reset()
			return fmt.Errorf("ready hook of app '%s' failed: %w", cfg.Label(), hookErr)
		}
		logger.Debugf("App '%s' is ready.", cfg.Label())
	}

	r.mu.Lock()
	r.ready = true
	r.populating = false
	r.mu.Unlock()
	logger.Infof("App registry ready: %s", strings.Join(labels(configs), ", "))
	return nil
}

// index validates configs and builds the label index.
func index(configs []AppConfig) (map[string]AppConfig, error) {
	var result *multierror.Error
	byLabel := make(map[string]AppConfig, len(configs))
	names := make(map[string]int, len(configs))
	labelCounts := make(map[string]int, len(configs))

	for i, cfg := range configs {
		if cfg == nil {
			result = multierror.Append(result, fmt.Errorf("app config #%d is nil", i))
			continue
		}
		if cfg.Name() == "" {
			result = multierror.Append(result, fmt.Errorf("app config #%d (%T) has an empty name", i, cfg))
			continue
		}
		label := cfg.Label()
		if !IsValidLabel(label) {
			result = multierror.Append(result, fmt.Errorf("the app label '%s' of '%s' is not a valid identifier", label, cfg.Name()))
			continue
		}
		names[cfg.Name()]++
		labelCounts[label]++
		byLabel[label] = cfg
	}
	if err := result.ErrorOrNil(); err != nil {
		return nil, err
	}

	if dups := duplicates(labelCounts); len(dups) > 0 {
		return nil, fmt.Errorf("%w, duplicates: %s", ErrDuplicateLabel, strings.Join(dups, ", "))
	}
	if dups := duplicates(names); len(dups) > 0 {
		return nil, fmt.Errorf("%w, duplicates: %s", ErrDuplicateName, strings.Join(dups, ", "))
	}
	return byLabel, nil
}

func duplicates(counts map[string]int) []string {
	var dups []string
	for k, n := range counts {
		if n > 1 {
			dups = append(dups, k)
		}
	}
	sort.Strings(dups)
	return dups
}

func labels(configs []AppConfig) []string {
	out := make([]string, len(configs))
	for i, cfg := range configs {
		out[i] = cfg.Label()
	}
	return out
}

func (r *Registry) reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.byLabel = make(map[string]AppConfig)
	r.ordered = nil
	r.models = nil
	r.appsReady = false
	r.modelsReady = false
	r.ready = false
	r.populating = false
}

func (r *Registry) hooksRunning() bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.populating && !r.ready
}

// GetAppConfig returns the config registered under label.
func (r *Registry) GetAppConfig(label string) (AppConfig, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if !r.appsReady {
		return nil, ErrAppRegistryNotReady
	}
	if cfg, ok := r.byLabel[label]; ok {
		return cfg, nil
	}
	notFound := &AppNotFoundError{Label: label}
	for _, cfg := range r.ordered {
		if cfg.Name() == label {
			notFound.Suggestion = cfg.Label()
			break
		}
	}
	return nil, notFound
}

// GetAppConfigs returns every registered config in registration order.
// It returns nil until the registry is populated.
func (r *Registry) GetAppConfigs() []AppConfig {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if !r.appsReady {
		return nil
	}
	return append([]AppConfig(nil), r.ordered...)
}

// IsInstalled reports whether an application with the given name is registered.
func (r *Registry) IsInstalled(name string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, cfg := range r.ordered {
		if cfg.Name() == name {
			return true
		}
	}
	return false
}

// GetModels returns the models of every app implementing ModelsProvider.
func (r *Registry) GetModels() ([]interface{}, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if !r.modelsReady {
		return nil, ErrModelsNotReady
	}
	return append([]interface{}(nil), r.models...), nil
}

// AppsReady reports whether configs are indexed and lookups are possible.
func (r *Registry) AppsReady() bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.appsReady
}

// Ready reports whether every ready hook has completed.
func (r *Registry) Ready() bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.ready
}

// OrderByInstalledApps restricts provided to the configs named in installed,
// in that order. An empty installed list keeps every provided config in the
// order given. A name in installed with no matching config is an error.
func OrderByInstalledApps(installed []string, provided []AppConfig) ([]AppConfig, error) {
	if len(installed) == 0 {
		return provided, nil
	}

	var result *multierror.Error
	byName := make(map[string]AppConfig, len(provided))
	for _, cfg := range provided {
		if cfg == nil {
			continue
		}
		if _, dup := byName[cfg.Name()]; dup {
			result = multierror.Append(result, fmt.Errorf("%w, duplicates: %s", ErrDuplicateName, cfg.Name()))
			continue
		}
		byName[cfg.Name()] = cfg
	}

	ordered := make([]AppConfig, 0, len(installed))
	for _, name := range installed {
		cfg, ok := byName[name]
		if !ok {
			result = multierror.Append(result, fmt.Errorf("installed app '%s' has no registered config", name))
			continue
		}
		ordered = append(ordered, cfg)
	}
	if err := result.ErrorOrNil(); err != nil {
		return nil, err
	}

	for name := range byName {
		if !contains(installed, name) {
			logger.Debugf("App '%s' is provided but not installed; skipping.", name)
		}
	}
	return ordered, nil
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
