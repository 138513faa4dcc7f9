package apps

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/tigerroll/storefront/pkg/web/support/util/exception"
)

var (
	// ErrAppRegistryNotReady is returned by lookups made before the registry is populated.
	ErrAppRegistryNotReady = errors.New("Apps aren't loaded yet.")
	// ErrModelsNotReady is returned by GetModels before models are collected.
	ErrModelsNotReady = errors.New("Models aren't loaded yet.")
	// ErrAppNotFound matches every AppNotFoundError.
	ErrAppNotFound = errors.New("app not found")
	// ErrDuplicateLabel is returned when two configs share a label.
	ErrDuplicateLabel = errors.New("Application labels aren't unique")
	// ErrDuplicateName is returned when two configs share a name.
	ErrDuplicateName = errors.New("Application names aren't unique")
	// ErrPopulateNotReentrant is returned when Populate is called from a ready hook.
	ErrPopulateNotReentrant = errors.New("Populate() isn't reentrant")
)

// AppNotFoundError reports a lookup of a label that is not installed.
type AppNotFoundError struct {
	Label string
	// Suggestion is the label of an app whose name equals Label, if any.
	Suggestion string
}

func (e *AppNotFoundError) Error() string {
	msg := fmt.Sprintf("No installed app with label '%s'.", e.Label)
	if e.Suggestion != "" {
		msg += fmt.Sprintf(" Did you mean '%s'?", e.Suggestion)
	}
	return msg
}

// Is makes errors.Is(err, ErrAppNotFound) hold.
func (e *AppNotFoundError) Is(target error) bool {
	return target == ErrAppNotFound
}

func init() {
	exception.RegisterErrorType("apps.ErrAppNotFound", ErrAppNotFound, http.StatusNotFound)
	exception.RegisterErrorType("apps.ErrAppRegistryNotReady", ErrAppRegistryNotReady, http.StatusServiceUnavailable)
	exception.RegisterErrorType("apps.ErrModelsNotReady", ErrModelsNotReady, http.StatusServiceUnavailable)
}
