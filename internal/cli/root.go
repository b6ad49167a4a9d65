// Package cli implements the cauldron command-line interface.
package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/mesh-intelligence/cauldron/pkg/cauldron"
	"github.com/mesh-intelligence/cauldron/pkg/types"
)

// Exit codes.
const (
	exitSuccess   = 0
	exitUserError = 1
	exitSysError  = 2
)

// rootFlags holds global flag values accessible to all subcommands.
type rootFlags struct {
	configDir string
	dataDir   string
	backend   string
	logLevel  string
	jsonMode  bool
}

// app carries state shared by the commands of one root command.
type app struct {
	flags     rootFlags
	configDir string
	config    types.Config
	logger    *slog.Logger
}

// NewRootCmd creates the top-level "cauldron" command with global flags
// and all subcommands registered.
func NewRootCmd() *cobra.Command {
	a := &app{}
	root := &cobra.Command{
		Use:   "cauldron",
		Short: "An endless crafting game engine",
		Long: "Cauldron combines elements into new ones. Every pair is resolved once,\n" +
			"remembered forever, and credited to whoever found it first.",
		Version:           cauldron.Version,
		SilenceUsage:      true,
		SilenceErrors:     true,
		PersistentPreRunE: a.setup,
	}

	pf := root.PersistentFlags()
	pf.StringVar(&a.flags.configDir, "config-dir", "", "configuration directory (default: platform config dir)")
	pf.StringVar(&a.flags.dataDir, "data-dir", "", "data directory (default: platform data dir)")
	pf.StringVar(&a.flags.backend, "backend", "", "storage backend: sqlite, redis, or memory (default: from config.yaml)")
	pf.StringVar(&a.flags.logLevel, "log-level", "warn", "log level: debug, info, warn, error")
	pf.BoolVar(&a.flags.jsonMode, "json", false, "output in JSON format")

	root.AddCommand(
		newVersionCmd(),
		a.newInitCmd(),
		a.newConfigCmd(),
		a.newCombineCmd(),
		a.newElementsCmd(),
		a.newRecipesCmd(),
		a.newServeCmd(),
		a.newWatchCmd(),
		a.newExportCmd(),
		a.newImportCmd(),
	)
	return root
}

// Execute runs the root command until it finishes or the process receives
// SIGINT or SIGTERM, and returns the process exit code.
func Execute() int {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	root := NewRootCmd()
	if err := root.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "cauldron:", err)
		return exitCode(err)
	}
	return exitSuccess
}

// setup configures logging and, for commands that need a store, resolves
// the configuration.
func (a *app) setup(cmd *cobra.Command, _ []string) error {
	level, err := parseLevel(a.flags.logLevel)
	if err != nil {
		return err
	}
	a.logger = slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: level}))
	slog.SetDefault(a.logger)

	switch cmd.Name() {
	case "version", "help":
		return nil
	}
	return a.loadConfig()
}

func parseLevel(s string) (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(strings.TrimSpace(s))); err != nil {
		return 0, usageErrorf("invalid --log-level %q", s)
	}
	return level, nil
}

// usageError marks errors caused by how the command was invoked.
type usageError struct{ msg string }

func (e *usageError) Error() string { return e.msg }

func usageErrorf(format string, args ...any) error {
	return &usageError{msg: fmt.Sprintf(format, args...)}
}

// exitCode maps an error to exitUserError for bad input and exitSysError
// for environment and storage failures.
func exitCode(err error) int {
	var ue *usageError
	switch {
	case err == nil:
		return exitSuccess
	case errors.As(err, &ue),
		errors.Is(err, types.ErrUnknownElement),
		errors.Is(err, types.ErrInvalidName),
		errors.Is(err, types.ErrBackendUnknown),
		errors.Is(err, types.ErrBackendEmpty),
		errors.Is(err, types.ErrRedisAddrEmpty),
		errors.Is(err, types.ErrTimeoutNegative):
		return exitUserError
	case errors.Is(err, types.ErrStoreUnavailable),
		errors.Is(err, types.ErrStoreDetached),
		errors.Is(err, os.ErrPermission),
		errors.Is(err, os.ErrNotExist):
		return exitSysError
	case strings.HasPrefix(err.Error(), "unknown command"),
		strings.HasPrefix(err.Error(), "unknown flag"),
		strings.Contains(err.Error(), "arg(s)"):
		return exitUserError
	default:
		return exitSysError
	}
}

// out returns the command's standard output writer.
func out(cmd *cobra.Command) io.Writer {
	return cmd.OutOrStdout()
}
