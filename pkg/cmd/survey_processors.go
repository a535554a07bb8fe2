package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newSurveyProcessorsCmd(flags *cmdFlags) *cobra.Command {
	var name string

	cmd := &cobra.Command{
		Use:   "survey-processors",
		Short: "List the registered inventory and structure processors and their capabilities",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(flags)
			if err != nil {
				return err
			}

			svc := bootstrap(cfg)

			resp, err := svc.SurveyProcessors(cmd.Context(), name)
			if err != nil {
				return fmt.Errorf("survey-processors failed: %w", err)
			}

			return printJSON(cmd, resp)
		},
	}

	cmd.Flags().StringVar(&name, "name", "", "restrict the survey to a single named processor")

	return cmd
}
