package cmd

import (
	"encoding/json"
	"fmt"
	"os"

	"statement-reconciliation-service/pkg/errors"
	"statement-reconciliation-service/pkg/logger"
)

// CLIErrorHandler turns classified errors into user-facing messages and
// exit codes.
type CLIErrorHandler struct {
	logger  logger.Logger
	verbose bool
}

// NewCLIErrorHandler creates a new CLI error handler
func NewCLIErrorHandler() *CLIErrorHandler {
	return &CLIErrorHandler{
		logger:  logger.GetGlobalLogger().WithComponent("cli"),
		verbose: verbose,
	}
}

// HandleError prints a user-friendly message and returns the exit code.
func (h *CLIErrorHandler) HandleError(err error) int {
	if err == nil {
		return 0
	}

	h.logger.WithError(err).Error("Command failed")

	// Batch shape first: a RowErrors also unwraps to its first row's
	// classified error, which would hide the other rows.
	var rowErrs *errors.RowErrors
	if ok := asRowErrors(err, &rowErrs); ok {
		return h.handleRowErrors(rowErrs)
	}

	if classified, ok := errors.As(err); ok {
		return h.handleClassifiedError(classified)
	}

	fmt.Fprintf(os.Stderr, "Error: %v\n", err)
	return 1
}

func (h *CLIErrorHandler) handleClassifiedError(err *errors.Error) int {
	fmt.Fprintf(os.Stderr, "Error: %s\n", err.Message)

	if len(err.Context) > 0 {
		fmt.Fprintf(os.Stderr, "\nContext:\n")
		for key, value := range err.Context {
			fmt.Fprintf(os.Stderr, "  %s: %v\n", key, value)
		}
	}

	if err.Suggestion != "" {
		fmt.Fprintf(os.Stderr, "\nSuggestion: %s\n", err.Suggestion)
	}

	if err.Retryable() {
		fmt.Fprintf(os.Stderr, "\nThis operation is safe to retry: nothing was committed.\n")
	}

	if h.verbose && err.Cause != nil {
		fmt.Fprintf(os.Stderr, "\nUnderlying error: %v\n", err.Cause)
	}

	return err.GetExitCode()
}

func (h *CLIErrorHandler) handleRowErrors(errs *errors.RowErrors) int {
	fmt.Fprintf(os.Stderr, "Error: %d row(s) failed validation\n", len(errs.Errors))
	for i, e := range errs.Errors {
		fmt.Fprintf(os.Stderr, "  %d. %s\n", i+1, e.Message)
		if i >= 9 && len(errs.Errors) > 10 {
			fmt.Fprintf(os.Stderr, "  ... and %d more\n", len(errs.Errors)-10)
			break
		}
	}
	fmt.Fprintf(os.Stderr, "\nNothing was committed; fix the rows and resubmit the whole batch.\n")
	return 3
}

func asRowErrors(err error, target **errors.RowErrors) bool {
	re, ok := err.(*errors.RowErrors)
	if !ok {
		return false
	}
	*target = re
	return true
}

// printJSON renders a command result to stdout.
func printJSON(v interface{}) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
