package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/emcd/librovore/pkg/core"
)

func newQueryContentCmd(flags *cmdFlags) *cobra.Command {
	var (
		shared          sharedFlags
		resultsMax      int
		includeSnippets bool
	)

	cmd := &cobra.Command{
		Use:   "query-content <source> <query>",
		Short: "Search a documentation source and extract matching page content",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(flags)
			if err != nil {
				return err
			}

			filters, err := shared.parseFilters()
			if err != nil {
				return err
			}

			max := resultsMax
			if max <= 0 {
				max = cfg.Defaults.ResultsMaxContent
			}

			svc := bootstrap(cfg)

			resp, err := svc.QueryContent(cmd.Context(), args[0], core.QueryContentParams{
				Filters:         filters,
				ProcessorName:   shared.processorName,
				Query:           args[1],
				Behaviors:       shared.behaviors(),
				IncludeSnippets: includeSnippets,
				ResultsMax:      max,
			})
			if err != nil {
				return fmt.Errorf("query-content failed: %w", err)
			}

			return printJSON(cmd, resp)
		},
	}

	addSharedFlags(cmd, &shared)
	cmd.Flags().IntVar(&resultsMax, "results-max", 0, "maximum results to return (default from configuration)")
	cmd.Flags().BoolVar(&includeSnippets, "include-snippets", true, "include a content snippet per document")

	return cmd
}
