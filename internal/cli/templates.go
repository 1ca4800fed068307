package cli

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/spf13/cobra"

	apperrors "github.com/dpshade/spark-prompt/internal/errors"
	"github.com/dpshade/spark-prompt/internal/models"
	"github.com/dpshade/spark-prompt/internal/placeholder"
)

func (c *CLI) templatesCommand() *cobra.Command {
	var format, query string
	list := func(cmd *cobra.Command, args []string) error {
		templates, err := c.service.SearchTemplates(query, c.locale())
		if err != nil {
			return err
		}
		return formatTemplates(cmd.OutOrStdout(), templates, c.locale(), format)
	}

	cmd := &cobra.Command{
		Use:     "templates",
		Aliases: []string{"template", "tpl"},
		Short:   "Manage prompt templates",
		Args:    cobra.NoArgs,
		RunE:    list,
	}
	cmd.PersistentFlags().StringVarP(&format, "format", "f", "text", "output format: text, table, json or ids")

	listCmd := &cobra.Command{
		Use:     "list",
		Aliases: []string{"ls"},
		Short:   "List templates",
		Args:    cobra.NoArgs,
		RunE:    list,
	}
	listCmd.Flags().StringVarP(&query, "query", "q", "", "fuzzy filter on name, id and tags")

	cmd.AddCommand(
		listCmd,
		&cobra.Command{
			Use:     "show <id>",
			Aliases: []string{"get"},
			Short:   "Show a template",
			Args:    cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				t, err := c.service.GetTemplate(args[0])
				if err != nil {
					return err
				}
				return formatSingleTemplate(cmd.OutOrStdout(), t, c.locale(), format)
			},
		},
		c.newTemplateCommand(&format),
		&cobra.Command{
			Use:     "delete <id>",
			Aliases: []string{"rm"},
			Short:   "Delete a template",
			Args:    cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				if err := c.service.DeleteTemplate(args[0]); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Deleted template %s\n", args[0])
				return nil
			},
		},
		c.setContentCommand(),
		&cobra.Command{
			Use:   "cover <id> <url-or-path>",
			Short: "Copy an image into the library and use it as the template cover",
			Args:  cobra.ExactArgs(2),
			RunE: func(cmd *cobra.Command, args []string) error {
				t, err := c.service.SetTemplateCover(cmd.Context(), args[0], args[1])
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Cover of %s saved to %s\n", t.ID, t.ImageURL)
				return nil
			},
		},
	)
	return cmd
}

func (c *CLI) newTemplateCommand(format *string) *cobra.Command {
	var name, content, file, author string
	var tags []string

	cmd := &cobra.Command{
		Use:     "new",
		Aliases: []string{"create"},
		Short:   "Create a template in the current locale",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			text, ok, err := readContent(content, file)
			if err != nil {
				return err
			}
			if !ok {
				return apperrors.NewAppError(apperrors.ErrCodeMissingField, "template content is required (--content or --file)")
			}
			loc := c.locale()
			t := models.Template{
				Name:    models.LocalizedText{loc: name},
				Content: models.LocalizedText{loc: text},
				Author:  author,
				Tags:    tags,
			}
			created, err := c.service.CreateTemplate(t)
			if err != nil {
				return err
			}
			if *format == "json" {
				return writeJSON(cmd.OutOrStdout(), created)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Created template %s\n", created.ID)
			return nil
		},
	}
	cmd.Flags().StringVar(&name, "name", "", "template name")
	cmd.Flags().StringVar(&content, "content", "", "template content")
	cmd.Flags().StringVar(&file, "file", "", "read content from a file (- for stdin)")
	cmd.Flags().StringVar(&author, "author", "", "template author")
	cmd.Flags().StringSliceVar(&tags, "tag", nil, "tag (repeatable)")
	return cmd
}

func (c *CLI) setContentCommand() *cobra.Command {
	var content, file string
	cmd := &cobra.Command{
		Use:   "set-content <id>",
		Short: "Replace the content of a template in the current locale",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			text, ok, err := readContent(content, file)
			if err != nil {
				return err
			}
			if !ok {
				return apperrors.NewAppError(apperrors.ErrCodeMissingField, "content is required (--content or --file)")
			}
			if _, err := c.service.SetTemplateContent(args[0], c.locale(), text); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Updated %s content of %s\n", c.locale(), args[0])
			return nil
		},
	}
	cmd.Flags().StringVar(&content, "content", "", "new content")
	cmd.Flags().StringVar(&file, "file", "", "read content from a file (- for stdin)")
	return cmd
}

// formatTemplates writes a template list in one of the output formats
func formatTemplates(w io.Writer, templates []models.Template, loc, format string) error {
	switch format {
	case "json":
		return writeJSON(w, templates)
	case "ids":
		for _, t := range templates {
			fmt.Fprintln(w, t.ID)
		}
	case "table":
		tbl := table.New().
			Border(lipgloss.NormalBorder()).
			Headers("ID", "NAME", "VARIABLES", "TAGS")
		for _, t := range templates {
			name := t.NameFor(loc)
			if runes := []rune(name); len(runes) > 30 {
				name = string(runes[:27]) + "..."
			}
			tbl.Row(t.ID, name, fmt.Sprint(len(placeholder.Identities(t.ContentFor(loc)))), strings.Join(t.Tags, ", "))
		}
		fmt.Fprintln(w, tbl.String())
	default:
		for _, t := range templates {
			fmt.Fprintf(w, "%s - %s\n", t.ID, t.NameFor(loc))
			if len(t.Tags) > 0 {
				fmt.Fprintf(w, "  Tags: %s\n", strings.Join(t.Tags, ", "))
			}
		}
	}
	return nil
}

// formatSingleTemplate writes one template in one of the output formats
func formatSingleTemplate(w io.Writer, t models.Template, loc, format string) error {
	if format == "json" {
		return writeJSON(w, t)
	}

	fmt.Fprintf(w, "ID: %s\n", t.ID)
	fmt.Fprintf(w, "Name: %s\n", t.NameFor(loc))
	if t.Author != "" {
		fmt.Fprintf(w, "Author: %s\n", t.Author)
	}
	if len(t.Tags) > 0 {
		fmt.Fprintf(w, "Tags: %s\n", strings.Join(t.Tags, ", "))
	}
	if t.ImageURL != "" {
		fmt.Fprintf(w, "Image: %s\n", t.ImageURL)
	}
	content := t.ContentFor(loc)
	if ids := placeholder.Identities(content); len(ids) > 0 {
		fmt.Fprintf(w, "Occurrences: %s\n", strings.Join(ids, ", "))
	}
	fmt.Fprintf(w, "\nContent:\n%s\n", content)
	return nil
}
