package cli

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/aravindh-murugesan/coldsnap/internal/breaker/model"
)

var discoverCommand = &cobra.Command{
	Use:     "discover",
	GroupID: "coldsnap",
	Short:   "Enumerate resources across the configured regions and kinds",
	Long:    `Fans out across every region/kind pair on a bounded worker pool and prints what it found. Makes no changes.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		fmt.Println(headerStyle.Render("coldsnap - Discover"))

		ctx := context.Background()
		if timeout > 0 {
			var cancel context.CancelFunc
			ctx, cancel = context.WithTimeout(ctx, time.Duration(timeout)*time.Second)
			defer cancel()
		}

		rt, err := newRuntime(ctx)
		if err != nil {
			return err
		}

		regions := parseRegions()
		kinds := kindsFromStrings(parseKinds())

		resources, err := rt.orchestrator.DiscoverAll(ctx, regions, kinds)
		if err != nil {
			return err
		}

		rt.logger.Info("discovery complete", "resource_count", len(resources))
		for _, r := range resources {
			fmt.Printf("%-18s %-14s %-20s %s\n", r.Kind, r.Region, r.State, r.ID)
		}

		return nil
	},
}

func kindsFromStrings(raw []string) []model.Kind {
	kinds := make([]model.Kind, 0, len(raw))
	for _, k := range raw {
		kinds = append(kinds, model.Kind(k))
	}
	return kinds
}

func init() {
	rootCommand.AddCommand(discoverCommand)
}
