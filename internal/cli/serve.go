package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/dpshade/spark-prompt/internal/api"
	"github.com/dpshade/spark-prompt/internal/ui"
)

func (c *CLI) initCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "init",
		Short: "Initialize the library with the built-in templates and banks",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := c.service.InitLibrary(); err != nil {
				return err
			}
			if err := c.service.LoadLibrary(cmd.Context()); err != nil {
				return err
			}
			if _, err := c.service.ListTemplates(); err != nil {
				return err
			}

			cfg := c.service.Config()
			if _, err := os.Stat(cfg.Path()); os.IsNotExist(err) {
				if err := cfg.Save(); err != nil {
					return fmt.Errorf("failed to write configuration: %w", err)
				}
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Initialized spark-prompt library in %s\n", c.service.Storage().GetBaseDir())
			return nil
		},
	}
}

func (c *CLI) serveCommand() *cobra.Command {
	var addr string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP API server",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if addr == "" {
				addr = c.service.Config().Server.Addr
			}
			fmt.Fprintf(cmd.OutOrStdout(), "API server listening on http://%s (docs at /api/docs)\n", addr)
			return api.NewAPIServer(c.service, addr, c.logger.Named("api")).Start(cmd.Context())
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "listen address (default from config)")
	return cmd
}

func (c *CLI) tuiCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "tui [template-id]",
		Short: "Start the interactive workstation",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id := ""
			if len(args) == 1 {
				id = args[0]
			}
			return c.runTUI(cmd, id)
		},
	}
}

func (c *CLI) runTUI(cmd *cobra.Command, templateID string) error {
	return ui.Run(cmd.Context(), c.service, ui.Options{
		TemplateID: templateID,
		Locale:     c.locale(),
		Debug:      c.flags.debug || c.service.Config().Debug,
	})
}
