package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newDetectCmd(flags *cmdFlags) *cobra.Command {
	var processorName string

	cmd := &cobra.Command{
		Use:   "detect <source>",
		Short: "Detect which processors can handle a documentation source",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(flags)
			if err != nil {
				return err
			}

			svc := bootstrap(cfg)

			resp, err := svc.Detect(cmd.Context(), args[0], processorName)
			if err != nil {
				return fmt.Errorf("detect failed: %w", err)
			}

			return printJSON(cmd, resp)
		},
	}

	cmd.Flags().StringVar(&processorName, "processor", "", "restrict detection to a single named processor")

	return cmd
}
