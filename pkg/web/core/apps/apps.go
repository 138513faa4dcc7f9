// Package apps implements the application registry of the storefront web framework.
//
// An application is a self-contained unit (models, migrations, routes) described
// by an AppConfig. Configs are collected at start-up, validated, indexed by label
// and then made ready in registration order. After that the registry is read-only.
package apps

import (
	"context"
	"io/fs"
	"regexp"
	"strings"
	"unicode"
)

// AppConfig describes one installed application.
type AppConfig interface {
	// Name is the unique identifier of the application, e.g. "product_management".
	Name() string
	// Label is the registry key. It must be a valid identifier.
	Label() string
	// VerboseName is the human-readable name.
	VerboseName() string
	// Path is the filesystem or import path of the application. It may be empty.
	Path() string
}

// ReadyHook is implemented by configs that need to run code once every app is registered.
// Ready must pass the context it receives to any registry call it makes.
type ReadyHook interface {
	Ready(ctx context.Context) error
}

// ModelsProvider is implemented by configs that own persistent models.
type ModelsProvider interface {
	Models() []interface{}
}

// MigrationsProvider is implemented by configs that ship SQL migrations.
// It returns the filesystem and the directory within it holding the migration files.
type MigrationsProvider interface {
	Migrations() (fs.FS, string)
}

// BaseAppConfig is an embeddable AppConfig. Only AppName is required.
type BaseAppConfig struct {
	AppName        string
	AppLabel       string
	AppVerboseName string
	AppPath        string
}

// Name implements AppConfig.
func (c BaseAppConfig) Name() string {
	return c.AppName
}

// Label implements AppConfig. It defaults to the last segment of the name.
func (c BaseAppConfig) Label() string {
	if c.AppLabel != "" {
		return c.AppLabel
	}
	return DefaultLabel(c.AppName)
}

// VerboseName implements AppConfig. It defaults to the title-cased label.
func (c BaseAppConfig) VerboseName() string {
	if c.AppVerboseName != "" {
		return c.AppVerboseName
	}
	return DefaultVerboseName(c.Label())
}

// Path implements AppConfig.
func (c BaseAppConfig) Path() string {
	return c.AppPath
}

var labelPattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// IsValidLabel reports whether label can be used as a registry key.
func IsValidLabel(label string) bool {
	return labelPattern.MatchString(label)
}

// DefaultLabel returns the part of name after its last '.' or '/'.
func DefaultLabel(name string) string {
	if i := strings.LastIndexAny(name, "./"); i >= 0 {
		return name[i+1:]
	}
	return name
}

// DefaultVerboseName turns a label such as "product_management" into "Product Management".
func DefaultVerboseName(label string) string {
	words := strings.FieldsFunc(label, func(r rune) bool { return r == '_' || unicode.IsSpace(r) })
	for i, w := range words {
		runes := []rune(strings.ToLower(w))
		runes[0] = unicode.ToUpper(runes[0])
		words[i] = string(runes)
	}
	return strings.Join(words, " ")
}
