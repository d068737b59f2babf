package cli

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"taskman/internal/commands"
	"taskman/internal/config"
	"taskman/internal/exitcode"
	"taskman/internal/logging"
	"taskman/internal/service"
	"taskman/internal/session"
)

// ServiceFactory creates a Service bound to a session token.
// Used to inject the backend during dispatch.
type ServiceFactory func(ctx context.Context, cfg *config.Config, token string, log *slog.Logger) (service.Service, error)

// AuthFactory creates the Authenticator used by login and register.
type AuthFactory func(ctx context.Context, cfg *config.Config, prompt io.Writer, log *slog.Logger) (service.Authenticator, error)

// Dispatcher handles command-line parsing and dispatch.
type Dispatcher struct {
	registry *commands.Registry
	services ServiceFactory
	auth     AuthFactory
	in       io.Reader
}

// NewDispatcher creates a new dispatcher with the given registry and backend factories.
func NewDispatcher(registry *commands.Registry, services ServiceFactory, auth AuthFactory) *Dispatcher {
	return &Dispatcher{
		registry: registry,
		services: services,
		auth:     auth,
	}
}

// SetInput sets the reader used for interactive prompts.
func (d *Dispatcher) SetInput(r io.Reader) {
	d.in = r
}

// Run parses arguments and dispatches to the appropriate command.
// Returns the exit code.
func (d *Dispatcher) Run(ctx context.Context, args []string, out, errOut io.Writer) int {
	// No args -> dispatch to "list" command with no args
	if len(args) == 0 {
		return d.dispatch(ctx, "list", nil, out, errOut)
	}

	cmdName := args[0]

	// If first token starts with -, it's an error (flags require a command)
	if strings.HasPrefix(cmdName, "-") {
		fmt.Fprintf(errOut, "error: unknown command: %s\n", cmdName)
		return exitcode.UserError
	}
	return d.dispatch(ctx, cmdName, args[1:], out, errOut)
}

func (d *Dispatcher) dispatch(ctx context.Context, cmdName string, args []string, out, errOut io.Writer) int {
	cmd, ok := d.registry.Find(cmdName)
	if !ok {
		fmt.Fprintf(errOut, "error: unknown command: %s\n", cmdName)
		return exitcode.UserError
	}
	return d.dispatchCommand(ctx, cmd, args, out, errOut)
}

type commonFlags struct {
	configDir string
	apiURL    string
	backend   string
	quiet     bool
	debug     bool
}

func (d *Dispatcher) dispatchCommand(ctx context.Context, cmd commands.Command, args []string, out, errOut io.Writer) int {
	// Create flag set with custom error handling
	fs := flag.NewFlagSet(cmd.Name(), flag.ContinueOnError)
	fs.SetOutput(io.Discard) // We handle errors ourselves

	var common commonFlags
	fs.StringVar(&common.configDir, "config", "", "")
	fs.StringVar(&common.apiURL, "api", "", "")
	fs.StringVar(&common.backend, "backend", "", "")
	fs.BoolVar(&common.quiet, "quiet", false, "")
	fs.BoolVar(&common.debug, "debug", false, "")

	// Register command-specific flags
	cmd.RegisterFlags(fs)

	positionalArgs, err := parseInterspersed(fs, args)
	if err != nil {
		fmt.Fprintf(errOut, "error: %s\n", err)
		return exitcode.UserError
	}

	cfg, err := loadConfig(common)
	if err != nil {
		fmt.Fprintf(errOut, "error: %s\n", err)
		return exitcode.UserError
	}
	log := logging.New(errOut, cfg.Debug)
	log.Debug("dispatch", "command", cmd.Name(), "backend", cfg.Backend, "api", cfg.APIURL, "config", cfg.Dir)

	var authn service.Authenticator
	if d.auth != nil {
		if authn, err = d.auth(ctx, cfg, errOut, log); err != nil {
			fmt.Fprintf(errOut, "error: %s\n", err)
			return exitcode.AuthError
		}
	}

	sess := session.New(authn, session.NewFileStore(cfg.SessionPath()), log)
	// An unreadable session file counts as logged out; login overwrites it and
	// logout removes it.
	if _, err := sess.Restore(); err != nil {
		log.Debug("ignoring stored session", "path", cfg.SessionPath(), "err", err)
	}

	env := &commands.Env{
		Cfg:     cfg,
		Session: sess,
		Log:     log,
		In:      d.in,
	}
	if d.services != nil {
		env.Connect = func(ctx context.Context, token string) (service.Service, error) {
			return d.services(ctx, cfg, token, log)
		}
	}

	// Check auth requirements
	if cmd.NeedsAuth() {
		if !sess.LoggedIn() {
			fmt.Fprintf(errOut, "error: not logged in (run: %s login)\n", config.AppName)
			return exitcode.AuthError
		}
		if env.Connect == nil {
			fmt.Fprintln(errOut, "error: no backend configured")
			return exitcode.BackendError
		}
		env.Svc, err = env.Connect(ctx, sess.Token())
		if err != nil {
			if errors.Is(err, service.ErrUnauthorized) {
				fmt.Fprintf(errOut, "error: auth error: %s\n", err)
				return exitcode.AuthError
			}
			fmt.Fprintf(errOut, "error: backend error: %s\n", err)
			return exitcode.BackendError
		}
	}

	return cmd.Run(ctx, env, positionalArgs, out, errOut)
}

// parseInterspersed parses flags anywhere among the positional arguments, so
// "add Buy milk --due 2024-05-01" sets --due. Everything after "--" is
// positional.
func parseInterspersed(fs *flag.FlagSet, args []string) ([]string, error) {
	var positional []string
	for {
		if err := fs.Parse(args); err != nil {
			return nil, errors.New(flagError(err))
		}
		rest := fs.Args()
		if len(rest) == 0 {
			return positional, nil
		}
		if consumed := len(args) - len(rest); consumed > 0 && args[consumed-1] == "--" {
			return append(positional, rest...), nil
		}
		// flag stops at the first non-flag; "-" alone is the only such token
		// starting with a dash.
		if rest[0] == "-" {
			return nil, fmt.Errorf("unknown flag: %s", rest[0])
		}
		positional = append(positional, rest[0])
		args = rest[1:]
	}
}

// loadConfig builds the config and applies command-line overrides.
func loadConfig(f commonFlags) (*config.Config, error) {
	cfg, err := config.New(f.configDir)
	if err != nil {
		return nil, err
	}
	if f.apiURL != "" {
		cfg.APIURL = f.apiURL
	}
	if f.backend != "" {
		cfg.Backend = f.backend
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	cfg.Quiet = f.quiet
	cfg.Debug = f.debug
	return cfg, nil
}

// flagError rewrites flag package errors into the CLI's message format.
func flagError(err error) string {
	errStr := err.Error()

	// Missing flag value
	if strings.HasPrefix(errStr, "flag needs an argument:") {
		return "flag needs an argument: " + strings.TrimSpace(strings.TrimPrefix(errStr, "flag needs an argument:"))
	}

	// Unknown flag
	if strings.HasPrefix(errStr, "flag provided but not defined:") {
		return "unknown flag: " + strings.TrimSpace(strings.TrimPrefix(errStr, "flag provided but not defined:"))
	}
	return errStr
}
