package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"admuse/internal/llm"
)

var (
	generateCountry         string
	generateCount           int
	generateOrgContext      string
	generateOfferingContext string
)

// generateCmd runs the full pipeline for a fresh campaign brief.
var generateCmd = &cobra.Command{
	Use:   "generate [offering description]",
	Short: "Generate a fresh persona set with portraits",
	Long: `Generates a new persona set for the given offering and produces a portrait
for each persona. Replaces any existing persona set.

Example:
  admuse generate "trail running shoes" --country NO --count 5`,
	Args: cobra.MinimumNArgs(1),
	RunE: runGenerate,
}

func init() {
	generateCmd.Flags().StringVar(&generateCountry, "country", "", "target country")
	generateCmd.Flags().IntVar(&generateCount, "count", 0, "persona count (1-5, default from config)")
	generateCmd.Flags().StringVar(&generateOrgContext, "org-context", "", "organization background")
	generateCmd.Flags().StringVar(&generateOfferingContext, "offering-context", "", "extra offering background")
}

func runGenerate(cmd *cobra.Command, args []string) error {
	p, err := buildPipeline(true)
	if err != nil {
		return err
	}
	defer p.close()

	count := generateCount
	if count <= 0 {
		count = p.cfg.Batch.PersonaCount
	}

	ctx := cmdContext()
	if err := p.store.SetVisibleCount(ctx, count); err != nil {
		return err
	}

	brief := llm.Request{
		OfferingDescription: args[0],
		Country:             generateCountry,
		Count:               p.store.VisibleCount(),
		OrganizationContext: generateOrgContext,
		OfferingContext:     generateOfferingContext,
	}

	logger.Info("generating personas",
		zap.String("offering", brief.OfferingDescription),
		zap.Int("count", brief.Count))

	stop := watchEvents(p.orch)
	result, err := p.orch.GenerateBatch(ctx, brief)
	stop()
	if err != nil {
		return err
	}

	fmt.Printf("Batch finished: %s (%d/%d portraits, %v)\n",
		result.Outcome, result.SuccessCount, result.Total, result.Duration.Round(10*time.Millisecond))
	printSlots(p)
	return nil
}
