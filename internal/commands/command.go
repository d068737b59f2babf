// Package commands provides the command interface and implementations.
package commands

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"

	"taskman/internal/apperr"
	"taskman/internal/config"
	"taskman/internal/exitcode"
	"taskman/internal/logging"
	"taskman/internal/service"
	"taskman/internal/session"
)

// Command defines the interface for CLI commands.
type Command interface {
	// Name returns the primary command name.
	Name() string

	// Aliases returns alternative names for the command.
	Aliases() []string

	// Synopsis returns a short description for help output.
	Synopsis() string

	// Usage returns the usage string for help output.
	Usage() string

	// NeedsAuth returns true if the command requires a stored session.
	// Commands like help, version, login, logout return false.
	NeedsAuth() bool

	// RegisterFlags registers command-specific flags.
	RegisterFlags(fs *flag.FlagSet)

	// Run executes the command.
	// args contains positional arguments after flag parsing.
	// Returns exit code.
	Run(ctx context.Context, env *Env, args []string, out, errOut io.Writer) int
}

// ConnectFunc creates a Service bound to a session token.
type ConnectFunc func(ctx context.Context, token string) (service.Service, error)

// Env is what the dispatcher hands to a command.
type Env struct {
	// Cfg is always provided (config dir, paths, backend).
	Cfg *config.Config

	// Svc is bound to the stored session. It is nil if NeedsAuth() returns false.
	Svc service.Service

	// Session owns the token. Always provided.
	Session *session.State

	// Connect creates a Service for a token obtained after dispatch (tui login).
	Connect ConnectFunc

	Log *slog.Logger

	// In is read by prompts.
	In io.Reader
}

func (e *Env) logger() *slog.Logger {
	if e == nil {
		return logging.Discard()
	}
	return logging.OrDiscard(e.Log)
}

// reportError prints a failure and returns its exit code. Classified
// failures print their static message; the cause goes to the debug log. A
// rejected token keeps the operation's message but exits with the auth code.
func reportError(env *Env, errOut io.Writer, err error) int {
	unauthorized := errors.Is(err, service.ErrUnauthorized)
	var aerr *apperr.Error
	if errors.As(err, &aerr) {
		env.logger().Debug("request failed", "kind", int(aerr.Kind), "cause", aerr.Err)
		fmt.Fprintf(errOut, "error: %s\n", aerr.Kind.Message())
		if unauthorized {
			return exitcode.AuthError
		}
		return aerr.Kind.ExitCode()
	}
	if unauthorized {
		env.logger().Debug("request failed", "cause", err)
		fmt.Fprintf(errOut, "error: %s\n", apperr.AuthUnreachable.Message())
		return exitcode.AuthError
	}
	fmt.Fprintf(errOut, "error: %v\n", err)
	return exitcode.BackendError
}

// reportSubmitError separates local validation failures from remote ones.
func reportSubmitError(env *Env, errOut io.Writer, err error) int {
	if _, ok := apperr.KindOf(err); ok || errors.Is(err, service.ErrUnauthorized) {
		return reportError(env, errOut, err)
	}
	fmt.Fprintf(errOut, "error: %v\n", err)
	return exitcode.UserError
}

func printOK(env *Env, out io.Writer) int {
	if !env.Cfg.Quiet {
		fmt.Fprintln(out, "ok")
	}
	return exitcode.Success
}

// optString is a string flag that records whether it was set.
type optString struct {
	val string
	set bool
}

func (o *optString) String() string { return o.val }

func (o *optString) Set(s string) error {
	o.val = s
	o.set = true
	return nil
}
