package main

import (
	"os"

	"github.com/loykin/jirarun/internal/common"
)

// ExitHandler provides a testable way to handle program termination
type ExitHandler interface {
	Exit(code int)
	LogFatalError(err error, msg string, keyvals ...any)
}

// DefaultExitHandler implements ExitHandler for production use
type DefaultExitHandler struct {
	exit func(int)
}

// Exit terminates the program with the given exit code
func (h *DefaultExitHandler) Exit(code int) {
	if h.exit != nil {
		h.exit(code)
		return
	}
	os.Exit(code)
}

// LogFatalError logs at error level through the configured logger and exits with status 1.
func (h *DefaultExitHandler) LogFatalError(err error, msg string, keyvals ...any) {
	allKeyvals := append([]any{"error", err}, keyvals...)
	common.GetLogger().WithComponent("main").Error(msg, allKeyvals...)
	h.Exit(1)
}

// Global exit handler (can be replaced for testing)
var exitHandler ExitHandler = &DefaultExitHandler{}
