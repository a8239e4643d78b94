package main

import (
	"fmt"
	"maps"
	"slices"
	"strings"

	"github.com/spf13/cobra"

	"github.com/ent0n29/prenova/internal/app"
	"github.com/ent0n29/prenova/internal/config"
	"github.com/ent0n29/prenova/internal/inference"
)

var checkModelsCmd = &cobra.Command{
	Use:   "check-models",
	Short: "Load both classifier pipelines and classify a sample vector",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		cfg, err := config.Load()
		if err != nil {
			return fmt.Errorf("config error: %w", err)
		}
		maternal, fetal, err := app.Models(cfg)
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		for _, p := range []*inference.Pipeline{maternal, fetal} {
			spec := p.Spec()
			sample := make([]any, len(spec.Features))
			for i := range sample {
				sample[i] = 0.0
			}
			res, err := p.Classify(sample)
			if err != nil {
				return fmt.Errorf("%s: %w", spec.Name, err)
			}
			fmt.Fprintf(out, "%-9s ok  features=%d labels=%s zero-vector=%s\n",
				spec.Name, len(spec.Features), labelList(spec), res.Label)
		}
		return nil
	},
}

func labelList(spec inference.Spec) string {
	parts := make([]string, 0, len(spec.Labels))
	for _, id := range slices.Sorted(maps.Keys(spec.Labels)) {
		parts = append(parts, fmt.Sprintf("%d=%s", id, spec.Labels[id]))
	}
	return strings.Join(parts, ",")
}
