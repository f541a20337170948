package cli

import (
	"encoding/json"
	"errors"
	"strings"

	"github.com/mesh-intelligence/repokit/pkg/schema"
	"github.com/mesh-intelligence/repokit/pkg/types"
)

// Exit codes.
const (
	exitSuccess   = 0
	exitUserError = 1
	exitSysError  = 2
)

// exitError attaches an exit code to an error.
type exitError struct {
	code int
	err  error
}

func (e *exitError) Error() string { return e.err.Error() }
func (e *exitError) Unwrap() error { return e.err }

func userError(err error) error {
	return &exitError{code: exitUserError, err: err}
}

func sysError(err error) error {
	return &exitError{code: exitSysError, err: err}
}

// userErrors are failures caused by the request rather than the system.
var userErrors = []error{
	types.ErrNotFound,
	types.ErrIntegrity,
	types.ErrInvalidPagination,
	types.ErrUnknownField,
	types.ErrBackendEmpty,
	types.ErrBackendUnknown,
	types.ErrDSNMissing,
	schema.ErrUnknownKind,
	schema.ErrKindMismatch,
	schema.ErrConversion,
}

// exitCode maps an error returned by a command to the process exit code.
// Domain errors are user errors even when wrapped as system errors.
func exitCode(err error) int {
	if err == nil {
		return exitSuccess
	}
	for _, target := range userErrors {
		if errors.Is(err, target) {
			return exitUserError
		}
	}
	var syntax *json.SyntaxError
	var typ *json.UnmarshalTypeError
	if errors.As(err, &syntax) || errors.As(err, &typ) {
		return exitUserError
	}
	var ee *exitError
	if errors.As(err, &ee) {
		return ee.code
	}
	// cobra reports unknown commands and bad arguments as plain errors.
	msg := err.Error()
	if strings.HasPrefix(msg, "unknown command") || strings.Contains(msg, "arg(s)") {
		return exitUserError
	}
	return exitSysError
}
