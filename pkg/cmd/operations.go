package cmd

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/emcd/librovore/pkg/model"
)

// sharedFlags are the flags common to every query-style subcommand: a
// repeatable --filter key=value, the search-behavior knobs, and a processor
// name override.
type sharedFlags struct {
	filters        []string
	matchMode      string
	processorName  string
	fuzzyThreshold int
}

func addSharedFlags(cmd *cobra.Command, flags *sharedFlags) {
	cmd.Flags().StringArrayVar(&flags.filters, "filter", nil, "filter as key=value; may be repeated")
	cmd.Flags().StringVar(&flags.matchMode, "match-mode", "fuzzy", "name-matching mode: exact, regex, or fuzzy")
	cmd.Flags().IntVar(&flags.fuzzyThreshold, "fuzzy-threshold", 50, "minimum fuzzy-match score (0-100)")
	cmd.Flags().StringVar(&flags.processorName, "processor", "", "restrict to a single named processor")
}

func (f sharedFlags) parseFilters() (map[string]any, error) {
	if len(f.filters) == 0 {
		return nil, nil
	}

	out := make(map[string]any, len(f.filters))

	for _, raw := range f.filters {
		key, value, ok := strings.Cut(raw, "=")
		if !ok {
			return nil, fmt.Errorf("invalid --filter %q: expected key=value", raw)
		}

		out[key] = value
	}

	return out, nil
}

func (f sharedFlags) behaviors() model.SearchBehaviors {
	return model.SearchBehaviors{
		MatchMode:      model.MatchMode(f.matchMode),
		FuzzyThreshold: f.fuzzyThreshold,
	}
}

// printJSON marshals v with indentation and writes it to the command's
// configured output stream.
func printJSON(cmd *cobra.Command, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode response: %w", err)
	}

	fmt.Fprintln(cmd.OutOrStdout(), string(data))

	return nil
}
