package cli

import (
	"fmt"
	"io"
	"slices"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/spf13/cobra"

	apperrors "github.com/dpshade/spark-prompt/internal/errors"
	"github.com/dpshade/spark-prompt/internal/models"
	"github.com/dpshade/spark-prompt/internal/service"
)

func (c *CLI) banksCommand() *cobra.Command {
	var category, format string

	list := func(cmd *cobra.Command, args []string) error {
		if err := c.service.LoadLibrary(cmd.Context()); err != nil {
			return err
		}
		query := strings.Join(args, " ")
		return formatBanks(cmd.OutOrStdout(), c.service.SearchBanks(query, category, c.locale()), format)
	}

	cmd := &cobra.Command{
		Use:     "banks",
		Aliases: []string{"bank"},
		Short:   "Browse and import variable banks",
		Args:    cobra.NoArgs,
		RunE:    list,
	}
	cmd.PersistentFlags().StringVarP(&category, "category", "c", service.AllCategories, "category filter")
	cmd.PersistentFlags().StringVarP(&format, "format", "f", "text", "output format: text, table, json or keys")

	cmd.AddCommand(
		&cobra.Command{
			Use:     "list",
			Aliases: []string{"ls"},
			Short:   "List banks",
			Args:    cobra.NoArgs,
			RunE:    list,
		},
		&cobra.Command{
			Use:   "search <query>",
			Short: "Fuzzy search banks by key and label",
			Args:  cobra.MinimumNArgs(1),
			RunE:  list,
		},
		c.importCommand(),
		c.setBankCommand(&category),
		&cobra.Command{
			Use:     "delete <key>",
			Aliases: []string{"rm"},
			Short:   "Delete a bank",
			Args:    cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				if err := c.service.DeleteBank(args[0]); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Deleted bank %s\n", args[0])
				return nil
			},
		},
	)
	return cmd
}

// setBankCommand creates or edits a bank in the current locale. Unset flags
// keep the stored values of an existing bank.
func (c *CLI) setBankCommand(category *string) *cobra.Command {
	var label string
	var options []string
	var appendOptions bool

	cmd := &cobra.Command{
		Use:   "set <key>",
		Short: "Create or update a bank (--category picks its category)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := c.service.LoadLibrary(cmd.Context()); err != nil {
				return err
			}
			key, loc := args[0], c.locale()
			existing, found := c.service.Banks()[key]

			item := models.BankItem{
				Label:    existing.Label.Clone(),
				Category: existing.Category,
				Options:  slices.Clone(existing.Options),
			}
			if item.Label == nil {
				item.Label = models.LocalizedText{}
			}
			if label != "" {
				item.Label[loc] = label
			}
			if cmd.Flags().Changed("category") && *category != service.AllCategories {
				item.Category = *category
			}
			if len(options) > 0 {
				if !appendOptions {
					item.Options = nil
				}
				for _, opt := range options {
					item.Options = append(item.Options, models.LocalizedText{loc: opt})
				}
			}
			if !found && len(item.Options) == 0 {
				return apperrors.NewAppError(apperrors.ErrCodeMissingField, "a new bank needs at least one --option")
			}

			if err := c.service.SaveBank(key, item); err != nil {
				return err
			}
			verb := "Updated"
			if !found {
				verb = "Created"
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s bank %s (%d options)\n", verb, key, len(item.Options))
			return nil
		},
	}
	cmd.Flags().StringVar(&label, "label", "", "bank label in the current locale")
	cmd.Flags().StringArrayVar(&options, "option", nil, "option in the current locale (repeatable)")
	cmd.Flags().BoolVar(&appendOptions, "append", false, "add the options instead of replacing them")
	return cmd
}

func (c *CLI) importCommand() *cobra.Command {
	var dryRun bool
	cmd := &cobra.Command{
		Use:   "import <path>",
		Short: "Import a YAML or JSON bank pack",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			if dryRun {
				_, result, err := c.service.PreviewBankPack(args[0])
				if err != nil {
					return err
				}
				fmt.Fprintf(out, "Pack %s would import %d banks: %s\n", result.Name, len(result.Keys), strings.Join(result.Keys, ", "))
				writeConflicts(out, result.Conflicts)
				return nil
			}

			result, err := c.service.ImportBankPack(args[0])
			if err != nil {
				return err
			}
			fmt.Fprintf(out, "Imported %d banks from %s\n", len(result.Keys), result.Name)
			writeConflicts(out, result.Conflicts)
			return nil
		},
	}
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "report what would change without writing")
	return cmd
}

func writeConflicts(w io.Writer, conflicts []string) {
	if len(conflicts) > 0 {
		fmt.Fprintf(w, "Replaced existing banks: %s\n", strings.Join(conflicts, ", "))
	}
}

func (c *CLI) categoriesCommand() *cobra.Command {
	list := func(cmd *cobra.Command, args []string) error {
		if err := c.service.LoadLibrary(cmd.Context()); err != nil {
			return err
		}
		categories := c.service.Categories()
		ids := make([]string, 0, len(categories))
		for id := range categories {
			ids = append(ids, id)
		}
		slices.Sort(ids)

		loc := c.locale()
		for _, id := range ids {
			cat := categories[id]
			fmt.Fprintf(cmd.OutOrStdout(), "%s - %s (%s)\n", id, cat.LabelFor(loc), cat.Color)
		}
		return nil
	}

	cmd := &cobra.Command{
		Use:   "categories",
		Short: "Manage bank categories",
		Args:  cobra.NoArgs,
		RunE:  list,
	}

	var label, color string
	set := &cobra.Command{
		Use:   "set <id>",
		Short: "Create or update a category",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := c.service.LoadLibrary(cmd.Context()); err != nil {
				return err
			}
			id := args[0]
			existing := c.service.Categories()[id]
			cat := models.Category{Label: existing.Label.Clone(), Color: existing.Color}
			if cat.Label == nil {
				cat.Label = models.LocalizedText{}
			}
			if label != "" {
				cat.Label[c.locale()] = label
			}
			if color != "" {
				cat.Color = color
			}
			if err := c.service.SaveCategory(id, cat); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Saved category %s\n", id)
			return nil
		},
	}
	set.Flags().StringVar(&label, "label", "", "category label in the current locale")
	set.Flags().StringVar(&color, "color", "", "category color")

	cmd.AddCommand(
		&cobra.Command{
			Use:     "list",
			Aliases: []string{"ls"},
			Short:   "List bank categories",
			Args:    cobra.NoArgs,
			RunE:    list,
		},
		set,
		&cobra.Command{
			Use:     "delete <id>",
			Aliases: []string{"rm"},
			Short:   "Delete a category",
			Args:    cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				if err := c.service.DeleteCategory(args[0]); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Deleted category %s\n", args[0])
				return nil
			},
		},
	)
	return cmd
}

// formatBanks writes bank matches in one of the output formats
func formatBanks(w io.Writer, banks []service.BankMatch, format string) error {
	switch format {
	case "json":
		return writeJSON(w, banks)
	case "keys":
		for _, b := range banks {
			fmt.Fprintln(w, b.Key)
		}
	case "table":
		tbl := table.New().
			Border(lipgloss.NormalBorder()).
			Headers("KEY", "LABEL", "CATEGORY", "DEFAULT", "OPTIONS")
		for _, b := range banks {
			def := ""
			if len(b.Options) > 0 {
				def = b.Options[0]
			}
			tbl.Row(b.Key, b.Label, b.Category.Label, def, fmt.Sprint(len(b.Options)))
		}
		fmt.Fprintln(w, tbl.String())
	default:
		for _, b := range banks {
			fmt.Fprintf(w, "%s - %s [%s]\n", b.Key, b.Label, b.Category.Label)
			if len(b.Options) > 0 {
				fmt.Fprintf(w, "  %s\n", strings.Join(b.Options, " | "))
			}
		}
	}
	return nil
}
