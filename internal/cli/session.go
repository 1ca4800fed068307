package cli

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/spf13/cobra"

	apperrors "github.com/dpshade/spark-prompt/internal/errors"
	"github.com/dpshade/spark-prompt/internal/renderer"
)

func (c *CLI) renderCommand() *cobra.Command {
	var sf sessionFlags
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "render <id>",
		Short: "Preview a template as blocks with its variable occurrences",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			session, err := c.openSession(cmd.Context(), args[0], sf)
			if err != nil {
				return err
			}
			blocks := session.Blocks()
			if asJSON {
				return writeJSON(cmd.OutOrStdout(), blocks)
			}
			writeBlocks(cmd.OutOrStdout(), blocks)
			return nil
		},
	}
	sf.register(cmd)
	cmd.Flags().BoolVar(&asJSON, "json", false, "print the block tree as JSON")
	return cmd
}

// writeBlocks prints a block preview: variables in brackets, then one row per occurrence
func writeBlocks(w io.Writer, blocks []renderer.BlockNode) {
	for _, b := range blocks {
		switch b.Kind {
		case renderer.BlockHeading:
			fmt.Fprintf(w, "%s %s\n", strings.Repeat("#", b.Level), b.Text)
		default:
			var line strings.Builder
			for _, span := range b.Spans {
				if span.Kind == renderer.SpanVariable {
					line.WriteString("[" + span.Variable.Display + "]")
					continue
				}
				line.WriteString(span.Text)
			}
			fmt.Fprintln(w, line.String())
		}
	}

	vars := renderer.Variables(blocks)
	if len(vars) == 0 {
		return
	}
	tbl := table.New().
		Border(lipgloss.NormalBorder()).
		Headers("IDENTITY", "CATEGORY", "SOURCE", "VALUE")
	for _, v := range vars {
		tbl.Row(v.Identity, v.Category.Label, v.Source.String(), v.Display)
	}
	fmt.Fprintln(w)
	fmt.Fprintln(w, tbl.String())
}

func (c *CLI) promptCommand() *cobra.Command {
	var sf sessionFlags
	var asJSON, pretty bool
	var saveAs string

	cmd := &cobra.Command{
		Use:   "prompt <id>",
		Short: "Print the resolved prompt of a template",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			session, err := c.openSession(cmd.Context(), args[0], sf)
			if err != nil {
				return err
			}
			if saveAs != "" {
				if err := c.service.SaveSelection(session, saveAs); err != nil {
					return err
				}
			}

			out := cmd.OutOrStdout()
			switch {
			case asJSON:
				text, err := session.Renderer().RenderJSON()
				if err != nil {
					return apperrors.Wrap(err, apperrors.ErrCodeInternalError, "could not encode prompt")
				}
				fmt.Fprintln(out, text)
			case pretty:
				r, err := glamour.NewTermRenderer(glamour.WithAutoStyle(), glamour.WithWordWrap(80))
				if err != nil {
					return apperrors.Wrap(err, apperrors.ErrCodeInternalError, "could not create renderer")
				}
				rendered, err := r.Render(session.Prompt())
				if err != nil {
					return apperrors.Wrap(err, apperrors.ErrCodeInternalError, "could not render prompt")
				}
				fmt.Fprint(out, rendered)
			default:
				fmt.Fprintln(out, session.Prompt())
			}
			return nil
		},
	}
	sf.register(cmd)
	cmd.Flags().BoolVar(&asJSON, "json", false, "print the prompt as a JSON message array")
	cmd.Flags().BoolVar(&pretty, "pretty", false, "render the prompt as markdown")
	cmd.Flags().StringVar(&saveAs, "save-selection", "", "save the selections under a name")
	return cmd
}

func (c *CLI) insertCommand() *cobra.Command {
	var at int
	var key string
	var save bool

	cmd := &cobra.Command{
		Use:   "insert <id>",
		Short: "Insert a {{key}} placeholder at a rune offset of the content",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if strings.TrimSpace(key) == "" {
				return apperrors.NewAppError(apperrors.ErrCodeMissingField, "--key is required")
			}
			session, err := c.service.OpenSession(cmd.Context(), args[0], c.locale())
			if err != nil {
				return err
			}
			session = session.InsertToken(at, key)

			if save {
				if _, err := c.service.SetTemplateContent(args[0], session.Locale, session.Content()); err != nil {
					return err
				}
			}
			fmt.Fprintln(cmd.OutOrStdout(), session.Content())
			return nil
		},
	}
	cmd.Flags().IntVar(&at, "at", 0, "cursor position as a rune index (clamped to the content)")
	cmd.Flags().StringVar(&key, "key", "", "bank key to insert")
	cmd.Flags().BoolVar(&save, "save", false, "store the edited content")
	return cmd
}

func (c *CLI) copyCommand() *cobra.Command {
	var sf sessionFlags
	cmd := &cobra.Command{
		Use:   "copy <id>",
		Short: "Copy the resolved prompt to the clipboard",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			session, err := c.openSession(cmd.Context(), args[0], sf)
			if err != nil {
				return err
			}
			msg, err := c.clip(cmd).CopyWithFallback(cmd.Context(), session.Prompt())
			if err != nil {
				return apperrors.Wrap(err, apperrors.ErrCodeServiceUnavailable, "could not copy prompt")
			}
			fmt.Fprintln(cmd.OutOrStdout(), msg)
			return nil
		},
	}
	sf.register(cmd)
	return cmd
}

func (c *CLI) selectionsCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "selections",
		Short: "Manage saved selections",
	}
	cmd.AddCommand(
		&cobra.Command{
			Use:     "list <template-id>",
			Aliases: []string{"ls"},
			Short:   "List the saved selections of a template",
			Args:    cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				list, err := c.service.ListSelections(args[0])
				if err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				if len(list) == 0 {
					fmt.Fprintln(out, "No saved selections")
					return nil
				}
				for _, sel := range list {
					fmt.Fprintf(out, "%s (%d values, %s)\n", sel.Name, len(sel.Values), sel.CreatedAt.Format("2006-01-02 15:04"))
				}
				return nil
			},
		},
		&cobra.Command{
			Use:     "delete <template-id> <name>",
			Aliases: []string{"rm"},
			Short:   "Delete a saved selection",
			Args:    cobra.ExactArgs(2),
			RunE: func(cmd *cobra.Command, args []string) error {
				if err := c.service.DeleteSelection(args[0], args[1]); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Deleted selection %s\n", args[1])
				return nil
			},
		},
	)
	return cmd
}
