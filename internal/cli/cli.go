// Package cli implements the spark-prompt command line interface.
//
// Every command runs against the service layer; the TUI and the HTTP API are
// started from here as the tui and serve commands.
package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/dpshade/spark-prompt/internal/clipboard"
	"github.com/dpshade/spark-prompt/internal/config"
	apperrors "github.com/dpshade/spark-prompt/internal/errors"
	"github.com/dpshade/spark-prompt/internal/locale"
	"github.com/dpshade/spark-prompt/internal/logging"
	"github.com/dpshade/spark-prompt/internal/service"
	"github.com/dpshade/spark-prompt/internal/workstation"
)

type globalFlags struct {
	dir    string
	locale string
	debug  bool
}

// CLI handles command-line operations
type CLI struct {
	service   *service.Service
	logger    *zap.Logger
	clipboard *clipboard.Clipboard
	flags     globalFlags
}

// NewCLI creates a new CLI handler. A nil service is built from the global
// flags when the first command runs.
func NewCLI(svc *service.Service) *CLI {
	c := &CLI{service: svc, logger: zap.NewNop()}
	if svc != nil {
		c.logger = svc.Logger()
	}
	return c
}

// Execute runs the command line and returns the process exit code
func Execute(ctx context.Context, version string, args []string) int {
	c := NewCLI(nil)
	root := c.RootCommand(version)
	root.SetArgs(args)

	err := root.ExecuteContext(ctx)
	defer func() { _ = c.logger.Sync() }()
	if err != nil {
		fmt.Fprintln(root.ErrOrStderr(), c.errorHandler().FormatError(err))
		return 1
	}
	return 0
}

// RootCommand builds the command tree
func (c *CLI) RootCommand(version string) *cobra.Command {
	root := &cobra.Command{
		Use:   "spark-prompt",
		Short: "Compose image prompts from templates and localized variable banks",
		Long: `spark-prompt renders prompt templates whose {{key}} placeholders are filled
from variable banks. Run without a command to start the interactive workstation.`,
		Version:           version,
		SilenceErrors:     true,
		SilenceUsage:      true,
		PersistentPreRunE: c.setup,
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runTUI(cmd, "")
		},
	}

	pf := root.PersistentFlags()
	pf.StringVar(&c.flags.dir, "dir", "", "data directory (default $"+config.EnvDir+" or ~/.spark-prompt)")
	pf.StringVar(&c.flags.locale, "locale", "", "content locale: cn or en (default $"+config.EnvLocale+" or the system locale)")
	pf.BoolVar(&c.flags.debug, "debug", false, "enable debug logging")

	root.AddCommand(
		c.initCommand(),
		c.templatesCommand(),
		c.renderCommand(),
		c.promptCommand(),
		c.insertCommand(),
		c.copyCommand(),
		c.selectionsCommand(),
		c.banksCommand(),
		c.categoriesCommand(),
		c.generateCommand(),
		c.historyCommand(),
		c.syncCommand(),
		c.serveCommand(),
		c.tuiCommand(),
	)
	return root
}

// setup loads the configuration and builds the service
func (c *CLI) setup(cmd *cobra.Command, args []string) error {
	if c.service != nil {
		return nil
	}

	cfg, err := config.Load(c.flags.dir)
	if err != nil {
		return apperrors.Wrap(err, apperrors.ErrCodeInvalidFormat, "could not load configuration")
	}
	if c.flags.locale != "" {
		cfg.Locale = c.flags.locale
	}
	if c.flags.debug {
		cfg.Debug = true
	}

	logger, err := logging.New(cfg.Debug)
	if err != nil {
		return apperrors.Wrap(err, apperrors.ErrCodeInternalError, "could not initialize logging")
	}
	c.logger = logger

	svc, err := service.NewService(cfg, logger)
	if err != nil {
		return apperrors.Wrap(err, apperrors.ErrCodeStorageFailure, "could not open library")
	}
	c.service = svc
	return nil
}

func (c *CLI) errorHandler() *apperrors.CLIErrorHandler {
	verbose := c.flags.debug
	if c.service != nil {
		verbose = verbose || c.service.Config().Debug
	}
	return apperrors.NewCLIErrorHandler(verbose, c.logger)
}

func (c *CLI) locale() string {
	if c.flags.locale != "" {
		return locale.Normalize(c.flags.locale)
	}
	return c.service.DefaultLocale()
}

func (c *CLI) clip(cmd *cobra.Command) *clipboard.Clipboard {
	if c.clipboard == nil {
		c.clipboard = clipboard.New(cmd.ErrOrStderr())
	}
	return c.clipboard
}

// sessionFlags are shared by the commands that resolve a template
type sessionFlags struct {
	sets      []string
	selection string
}

func (f *sessionFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringArrayVar(&f.sets, "set", nil, "override an occurrence: identity=value (repeatable)")
	cmd.Flags().StringVar(&f.selection, "selection", "", "apply a saved selection before --set overrides")
}

// parseSets turns identity=value pairs into a selection map
func parseSets(sets []string) (map[string]string, error) {
	values := make(map[string]string, len(sets))
	for _, s := range sets {
		id, value, ok := strings.Cut(s, "=")
		if !ok || strings.TrimSpace(id) == "" {
			return nil, apperrors.ValidationError(fmt.Sprintf("invalid --set %q, expected identity=value", s))
		}
		values[strings.TrimSpace(id)] = value
	}
	return values, nil
}

// openSession opens templateID in the CLI locale and applies the session flags
func (c *CLI) openSession(ctx context.Context, templateID string, f sessionFlags) (workstation.Session, error) {
	values, err := parseSets(f.sets)
	if err != nil {
		return workstation.Session{}, err
	}
	session, err := c.service.OpenSession(ctx, templateID, c.locale())
	if err != nil {
		return workstation.Session{}, err
	}
	if f.selection != "" {
		if session, err = c.service.ApplySelection(session, f.selection); err != nil {
			return workstation.Session{}, err
		}
	}
	for id, value := range values {
		session = session.Select(id, value)
	}
	return session, nil
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func readContent(inline, file string) (string, bool, error) {
	switch {
	case file == "-":
		data, err := io.ReadAll(os.Stdin)
		if err != nil {
			return "", false, apperrors.Wrap(err, apperrors.ErrCodeInvalidInput, "could not read stdin")
		}
		return string(data), true, nil
	case file != "":
		data, err := os.ReadFile(file)
		if err != nil {
			return "", false, apperrors.Wrap(err, apperrors.ErrCodeFileNotFound, "could not read content file").WithContext("path", file)
		}
		return string(data), true, nil
	case inline != "":
		return inline, true, nil
	}
	return "", false, nil
}
