package logger

import (
	"strings"

	"github.com/rs/zerolog"
	"go.uber.org/fx/fxevent"
)

// FxLoggerAdapter writes fx lifecycle events as structured entries of the "fx" component.
type FxLoggerAdapter struct{}

// NewFxLoggerAdapter creates a new instance of FxLoggerAdapter.
func NewFxLoggerAdapter() fxevent.Logger {
	return &FxLoggerAdapter{}
}

// LogEvent logs events from Fx. Successful hooks and provides are debug
// entries; failures are errors carrying the failing function.
func (l *FxLoggerAdapter) LogEvent(event fxevent.Event) {
	log := WithComponent("fx")

	switch e := event.(type) {
	case *fxevent.OnStartExecuting:
		log.Debug().Str("callee", shortFunctionName(e.FunctionName)).Str("caller", e.CallerName).Msg("OnStart hook executing")
	case *fxevent.OnStartExecuted:
		hookResult(log, "OnStart", e.FunctionName, e.Runtime.String(), e.Err)
	case *fxevent.OnStopExecuting:
		log.Debug().Str("callee", shortFunctionName(e.FunctionName)).Str("caller", e.CallerName).Msg("OnStop hook executing")
	case *fxevent.OnStopExecuted:
		hookResult(log, "OnStop", e.FunctionName, e.Runtime.String(), e.Err)
	case *fxevent.Supplied:
		if e.Err != nil {
			log.Error().Err(e.Err).Str("type", e.TypeName).Msg("Supply failed")
			return
		}
		log.Debug().Str("type", e.TypeName).Msg("Supplied")
	case *fxevent.Provided:
		if e.Err != nil {
			log.Error().Err(e.Err).Str("constructor", e.ConstructorName).Msg("Provide failed")
			return
		}
		log.Debug().Strs("types", e.OutputTypeNames).Str("constructor", shortFunctionName(e.ConstructorName)).Msg("Provided")
	case *fxevent.Decorated:
		if e.Err != nil {
			log.Error().Err(e.Err).Str("decorator", e.DecoratorName).Msg("Decorate failed")
			return
		}
		log.Debug().Strs("types", e.OutputTypeNames).Str("decorator", shortFunctionName(e.DecoratorName)).Msg("Decorated")
	case *fxevent.Invoking:
		log.Debug().Str("function", shortFunctionName(e.FunctionName)).Msg("Invoking")
	case *fxevent.Invoked:
		if e.Err != nil {
			log.Error().Err(e.Err).Str("function", e.FunctionName).Str("stack", e.Trace).Msg("Invoke failed")
		}
	case *fxevent.Stopping:
		log.Info().Str("signal", strings.ToUpper(e.Signal.String())).Msg("Stopping signal received")
	case *fxevent.Stopped:
		if e.Err != nil {
			log.Error().Err(e.Err).Msg("Stop failed")
		}
	case *fxevent.RollingBack:
		log.Error().Err(e.StartErr).Msg("Start failed, rolling back")
	case *fxevent.RolledBack:
		if e.Err != nil {
			log.Error().Err(e.Err).Msg("Rollback failed")
		}
	case *fxevent.Started:
		if e.Err != nil {
			log.Error().Err(e.Err).Msg("Start failed")
			return
		}
		log.Info().Msg("Application started.")
	case *fxevent.LoggerInitialized:
		if e.Err != nil {
			log.Error().Err(e.Err).Msg("Logger initialization failed")
			return
		}
		log.Debug().Str("constructor", e.ConstructorName).Msg("Custom logger initialized")
	}
}

func hookResult(log zerolog.Logger, kind, function, runtime string, err error) {
	if err != nil {
		log.Error().Err(err).Str("callee", shortFunctionName(function)).Msg(kind + " hook failed")
		return
	}
	log.Debug().Str("callee", shortFunctionName(function)).Str("runtime", runtime).Msg(kind + " hook executed")
}

// shortFunctionName strips the anonymous function suffix (".func1") fx reports for closures.
func shortFunctionName(funcName string) string {
	if idx := strings.LastIndex(funcName, ".func"); idx != -1 {
		return funcName[:idx]
	}
	return funcName
}
