package cli

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/aravindh-murugesan/coldsnap/internal/breaker/model"
	"github.com/aravindh-murugesan/coldsnap/internal/breaker/ops"
	"github.com/aravindh-murugesan/coldsnap/internal/breaker/orchestrator"
	"github.com/aravindh-murugesan/coldsnap/internal/breaker/snapshot"
	"github.com/aravindh-murugesan/coldsnap/internal/notifications"
)

var (
	pauseDryRun          bool
	pauseTagsFlag        []string
	pauseExcludeTagsFlag []string
	pauseIDsFlag         []string
	pauseExcludeIDsFlag  []string
)

var pauseCommand = &cobra.Command{
	Use:     "pause",
	GroupID: "coldsnap",
	Short:   "Pause every pausable resource across the configured regions and kinds",
	Long:    `Discovers resources, applies any filters, freezes their original state, then pauses them on a bounded worker pool. Saves a snapshot on completion unless --dry-run is set.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		fmt.Println(headerStyle.Render("coldsnap - Pause"))

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

		resources, err := rt.orchestrator.DiscoverAll(ctx, parseRegions(), kindsFromStrings(parseKinds()))
		if err != nil {
			return err
		}

		filter := ops.Filter{
			Tags:        parseKV(pauseTagsFlag),
			ExcludeTags: parseKV(pauseExcludeTagsFlag),
			IDs:         pauseIDsFlag,
			ExcludeIDs:  pauseExcludeIDsFlag,
		}
		filtered := ops.Apply(resources, filter)

		pausable := ops.Pausable(filtered, func(r model.Resource) bool {
			d, err := rt.registry.Get(ctx, r.Kind, r.Region)
			if err != nil {
				return false
			}
			return d.Pausable(r)
		})

		rt.logger.Info("pause candidates identified", "total_discovered", len(resources), "after_filter", len(filtered), "pausable", len(pausable))

		if len(pausable) == 0 {
			fmt.Println("No pausable resources found.")
			return nil
		}

		if pauseDryRun {
			for _, result := range ops.DryRunPause(pausable) {
				fmt.Println(result.Message)
			}
			return nil
		}

		results, snap, err := rt.orchestrator.Pause(ctx, pausable)
		if err != nil {
			return err
		}

		store, err := openDefaultStore()
		if err != nil {
			return err
		}
		if err := store.Save(snap); err != nil {
			return err
		}

		printSummaryAndNotify(rt, results, snap.ID)
		fmt.Printf("Snapshot saved: %s (estimated monthly savings: $%.2f)\n", snap.ID, snap.EstimatedMonthlySavings)

		return nil
	},
}

func parseKV(pairs []string) map[string]string {
	out := make(map[string]string, len(pairs))
	for _, p := range pairs {
		for i := 0; i < len(p); i++ {
			if p[i] == '=' {
				out[p[:i]] = p[i+1:]
				break
			}
		}
	}
	return out
}

func openDefaultStore() (*snapshot.Store, error) {
	dir, err := snapshot.DefaultDir()
	if err != nil {
		return nil, err
	}
	return snapshot.Open(dir)
}

func printSummaryAndNotify(rt *runtime, results []model.OperationResult, snapshotID string) {
	summary := orchestrator.Summarize(results)
	rt.logger.Info("operation summary",
		"total", summary.Total,
		"success", summary.Success,
		"failed", summary.Failed,
		"success_ratio", summary.SuccessRatio,
		"total_duration_seconds", summary.TotalDuration)

	if summary.Failed == 0 || webhookURL == "" {
		return
	}

	webhook := notifications.Webhook{URL: webhookURL, Username: webhookUsername, Password: webhookPassword}
	for _, f := range summary.FailedResources {
		if err := webhook.Notify(notifications.OperationFailure{
			Service:      "coldsnap",
			ResourceKind: string(f.Kind),
			ResourceID:   f.ID,
			Region:       f.Region,
			Message:      f.Message,
			SnapshotID:   snapshotID,
		}); err != nil {
			rt.logger.Error("failed to send failure notification", "error", err)
		}
	}
}

func init() {
	rootCommand.AddCommand(pauseCommand)
	pauseCommand.Flags().BoolVar(&pauseDryRun, "dry-run", false, "Show what would be paused without making changes")
	pauseCommand.Flags().StringArrayVar(&pauseTagsFlag, "tag", nil, "Required tag match key=value (repeatable)")
	pauseCommand.Flags().StringArrayVar(&pauseExcludeTagsFlag, "exclude-tag", nil, "Exclude resources matching tag key=value (repeatable)")
	pauseCommand.Flags().StringArrayVar(&pauseIDsFlag, "id", nil, "Restrict to this resource id (repeatable)")
	pauseCommand.Flags().StringArrayVar(&pauseExcludeIDsFlag, "exclude-id", nil, "Exclude this resource id (repeatable)")
}
