package cli

import (
	"fmt"

	"github.com/gosubtrans/gosubtrans/internal/suberrors"
)

// ExitCode maps a command error to spec.md §6's exit-code contract:
// 0 success, 1 translation failed, 2 invalid arguments/config, 3 user
// abort.
func ExitCode(err error) int {
	if err == nil {
		return 0
	}
	switch err.(type) {
	case *suberrors.TranslationAbortedError:
		return 3
	case *suberrors.SettingsError, *suberrors.ProviderConfigurationError, *argError:
		return 2
	default:
		return 1
	}
}

// argError marks a command-line validation failure (spec.md §6 exit
// code 2), distinct from a translation-time failure.
type argError struct{ msg string }

func (e *argError) Error() string { return e.msg }

func newArgError(format string, args ...any) *argError {
	return &argError{msg: fmt.Sprintf(format, args...)}
}
