package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/emcd/librovore/pkg/core"
	"github.com/emcd/librovore/pkg/model"
)

func newQueryInventoryCmd(flags *cmdFlags) *cobra.Command {
	var (
		shared     sharedFlags
		resultsMax int
	)

	cmd := &cobra.Command{
		Use:   "query-inventory <source> <query>",
		Short: "Search a documentation source's inventory by name",
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
				max = cfg.Defaults.ResultsMaxInventory
			}

			svc := bootstrap(cfg)

			resp, err := svc.QueryInventory(cmd.Context(), args[0], core.QueryInventoryParams{
				Filters:       filters,
				ProcessorName: shared.processorName,
				Query:         args[1],
				Behaviors:     shared.behaviors(),
				Details:       model.DetailsDocumentation,
				ResultsMax:    max,
			})
			if err != nil {
				return fmt.Errorf("query-inventory failed: %w", err)
			}

			return printJSON(cmd, resp)
		},
	}

	addSharedFlags(cmd, &shared)
	cmd.Flags().IntVar(&resultsMax, "results-max", 0, "maximum results to return (default from configuration)")

	return cmd
}
