package cli

import (
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	"github.com/dpshade/spark-prompt/internal/models"
	"github.com/dpshade/spark-prompt/internal/service"
)

func (c *CLI) generateCommand() *cobra.Command {
	var sf sessionFlags
	var opts service.GenerateOptions
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "generate <id>",
		Short: "Generate images from the resolved prompt of a template",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			session, err := c.openSession(cmd.Context(), args[0], sf)
			if err != nil {
				return err
			}
			record, err := c.service.Generate(cmd.Context(), session, opts)
			if err != nil {
				return err
			}
			if asJSON {
				return writeJSON(cmd.OutOrStdout(), record)
			}
			writeRecord(cmd.OutOrStdout(), record)
			return nil
		},
	}
	sf.register(cmd)
	cmd.Flags().StringVar(&opts.Model, "model", "", "model name (default from config)")
	cmd.Flags().StringVar(&opts.Size, "size", "", "image size (default from config)")
	cmd.Flags().StringArrayVar(&opts.Images, "image", nil, "reference image URL (repeatable)")
	cmd.Flags().BoolVar(&asJSON, "json", false, "print the history record as JSON")
	return cmd
}

func (c *CLI) historyCommand() *cobra.Command {
	var templateID string
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show generation history",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			history, err := c.service.History()
			if err != nil {
				return err
			}
			filtered := history[:0]
			for _, r := range history {
				if templateID == "" || r.TemplateID == templateID {
					filtered = append(filtered, r)
				}
			}
			if asJSON {
				return writeJSON(cmd.OutOrStdout(), filtered)
			}
			if len(filtered) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No generation history")
				return nil
			}
			for _, r := range filtered {
				writeRecord(cmd.OutOrStdout(), r)
				fmt.Fprintln(cmd.OutOrStdout())
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&templateID, "template", "", "only show records of a template")
	cmd.Flags().BoolVar(&asJSON, "json", false, "print records as JSON")

	cmd.AddCommand(&cobra.Command{
		Use:     "delete <record-id>",
		Aliases: []string{"rm"},
		Short:   "Delete a history record and its local images",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := c.service.DeleteHistoryRecord(args[0]); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Deleted history record %s\n", args[0])
			return nil
		},
	})
	return cmd
}

func writeRecord(w io.Writer, r models.HistoryRecord) {
	fmt.Fprintf(w, "%s  %s  %s\n", r.ID, r.TemplateID, time.Unix(r.Timestamp, 0).Format("2006-01-02 15:04"))
	fmt.Fprintf(w, "  Prompt: %s\n", r.Params.Prompt)
	for _, img := range r.Images {
		fmt.Fprintf(w, "  Image: %s\n", img.URL)
	}
}
