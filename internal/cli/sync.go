package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	apperrors "github.com/dpshade/spark-prompt/internal/errors"
	"github.com/dpshade/spark-prompt/internal/git"
)

func (c *CLI) syncCommand() *cobra.Command {
	var message string
	cmd := &cobra.Command{
		Use:   "sync",
		Short: "Commit, pull and push the library with its git remote",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			g, err := c.gitSync()
			if err != nil {
				return err
			}
			if err := g.SyncChanges(cmd.Context(), message); err != nil {
				return err
			}
			if err := c.service.ReloadLibrary(cmd.Context()); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Library synced")
			return nil
		},
	}
	cmd.Flags().StringVarP(&message, "message", "m", "Update library", "commit message")

	cmd.AddCommand(
		&cobra.Command{
			Use:   "setup <repo-url>",
			Short: "Initialize git in the library and set its remote",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				g, err := c.gitSync()
				if err != nil {
					return err
				}
				if err := g.Setup(cmd.Context(), args[0]); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Library %s now syncs with %s\n", c.service.Storage().GetBaseDir(), args[0])
				return nil
			},
		},
		&cobra.Command{
			Use:   "status",
			Short: "Show the library's sync status",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				g, err := c.gitSync()
				if err != nil {
					return err
				}
				st, err := g.Status(cmd.Context())
				if err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				fmt.Fprintln(out, st.String())
				if st.Remote != "" {
					fmt.Fprintf(out, "  Remote: %s\n", st.Remote)
				}
				if st.Branch != "" {
					fmt.Fprintf(out, "  Branch: %s\n", st.Branch)
				}
				return nil
			},
		},
		&cobra.Command{
			Use:   "pull",
			Short: "Pull library changes from the remote",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				g, err := c.gitSync()
				if err != nil {
					return err
				}
				if err := g.Pull(cmd.Context()); err != nil {
					return err
				}
				return c.service.ReloadLibrary(cmd.Context())
			},
		},
	)
	return cmd
}

func (c *CLI) gitSync() (*git.Sync, error) {
	if !git.Available() {
		return nil, apperrors.NewAppError(apperrors.ErrCodeNotConfigured, "git is not installed")
	}
	return git.NewSync(c.service.Storage().GetBaseDir(), c.logger.Named("git")), nil
}
