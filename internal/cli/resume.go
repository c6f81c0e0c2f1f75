package cli

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/aravindh-murugesan/coldsnap/internal/breaker/breakerrors"
	"github.com/aravindh-murugesan/coldsnap/internal/breaker/model"
	"github.com/aravindh-murugesan/coldsnap/internal/breaker/ops"
	"github.com/aravindh-murugesan/coldsnap/internal/breaker/snapshot"
)

var (
	resumeSnapshotID string
	resumeRegion     string
	resumeDryRun     bool
)

var resumeCommand = &cobra.Command{
	Use:     "resume",
	GroupID: "coldsnap",
	Short:   "Resume resources from a saved snapshot",
	Long:    `Loads a snapshot (by --snapshot-id, or the latest one for --regions if omitted) and resumes every resource it recorded back to its original state.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		fmt.Println(headerStyle.Render("coldsnap - Resume"))

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

		store, err := openDefaultStore()
		if err != nil {
			return err
		}

		snap, found, err := loadSnapshotForResume(store)
		if err != nil {
			return err
		}
		if !found {
			return breakerrors.Statef("cli.resume", nil, "no matching snapshot found")
		}

		rt.logger.Info("resuming from snapshot", "snapshot_id", snap.ID, "resource_count", len(snap.Resources))

		if resumeDryRun {
			for _, result := range ops.DryRunResume(snap.Resources) {
				fmt.Println(result.Message)
			}
			return nil
		}

		results, err := rt.orchestrator.Resume(ctx, snap)
		if err != nil {
			return err
		}

		printSummaryAndNotify(rt, results, snap.ID)
		return nil
	},
}

func loadSnapshotForResume(store *snapshot.Store) (model.Snapshot, bool, error) {
	if resumeSnapshotID != "" {
		return store.Load(resumeSnapshotID)
	}
	return store.LoadLatest(resumeRegion)
}

func init() {
	rootCommand.AddCommand(resumeCommand)
	resumeCommand.Flags().StringVar(&resumeSnapshotID, "snapshot-id", "", "Snapshot id to resume (defaults to the latest)")
	resumeCommand.Flags().StringVar(&resumeRegion, "region", "", "Restrict the latest-snapshot lookup to this region")
	resumeCommand.Flags().BoolVar(&resumeDryRun, "dry-run", false, "Show what would be resumed without making changes")
}
