package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/emcd/librovore/pkg/core"
	"github.com/emcd/librovore/pkg/prov/mdhtml"
)

func newSummarizeInventoryCmd(flags *cmdFlags) *cobra.Command {
	var (
		shared  sharedFlags
		query   string
		groupBy string
		asHTML  bool
	)

	cmd := &cobra.Command{
		Use:   "summarize-inventory <source>",
		Short: "Render a plain-text summary of a documentation source's inventory",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(flags)
			if err != nil {
				return err
			}

			filters, err := shared.parseFilters()
			if err != nil {
				return err
			}

			svc := bootstrap(cfg)

			summary, err := svc.SummarizeInventory(cmd.Context(), args[0], core.SummarizeInventoryParams{
				Filters:       filters,
				ProcessorName: shared.processorName,
				Query:         query,
				GroupBy:       groupBy,
				Behaviors:     shared.behaviors(),
			})
			if err != nil {
				return fmt.Errorf("summarize-inventory failed: %w", err)
			}

			if !asHTML {
				fmt.Fprint(cmd.OutOrStdout(), summary)
				return nil
			}

			html, err := mdhtml.Render(mdhtml.FromSummaryLines(summary))
			if err != nil {
				return fmt.Errorf("summarize-inventory failed: %w", err)
			}

			fmt.Fprintln(cmd.OutOrStdout(), string(html))

			return nil
		},
	}

	addSharedFlags(cmd, &shared)
	cmd.Flags().StringVar(&query, "query", "", "optional name query to narrow the summarized inventory")
	cmd.Flags().StringVar(&groupBy, "group-by", "", "group counts by a specifics field (e.g. role, domain)")
	cmd.Flags().BoolVar(&asHTML, "html", false, "render the summary as sanitized HTML instead of plain text")

	return cmd
}
