package cli

import (
	"fmt"
	"sort"

	"github.com/spf13/cobra"

	"github.com/aravindh-murugesan/coldsnap/internal/breaker/breakerrors"
)

var snapshotsTrimKeep int

var snapshotsCommand = &cobra.Command{
	Use:     "snapshots",
	GroupID: "coldsnap",
	Short:   "Inspect and manage saved snapshots",
}

var snapshotsListCommand = &cobra.Command{
	Use:   "list",
	Short: "List saved snapshots, newest first",
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := openDefaultStore()
		if err != nil {
			return err
		}

		summaries, err := store.List()
		if err != nil {
			return err
		}

		sort.Slice(summaries, func(i, j int) bool {
			return summaries[i].Timestamp.After(summaries[j].Timestamp)
		})

		if len(summaries) == 0 {
			fmt.Println("No snapshots found.")
			return nil
		}

		for _, s := range summaries {
			fmt.Printf("%-28s %-16s %-20s %3d resources  $%.2f/mo\n",
				s.ID, s.Region, s.Timestamp.Format("2006-01-02 15:04:05"), s.ResourceCount, s.EstimatedMonthlySavings)
		}
		return nil
	},
}

var snapshotsShowCommand = &cobra.Command{
	Use:   "show <snapshot-id>",
	Short: "Show the resources and operation results recorded in a snapshot",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := openDefaultStore()
		if err != nil {
			return err
		}

		snap, found, err := store.Load(args[0])
		if err != nil {
			return err
		}
		if !found {
			return breakerrors.Statef("cli.snapshots.show", nil, "snapshot %s not found", args[0])
		}

		fmt.Printf("Snapshot %s (%s), %d resources, estimated savings $%.2f/mo\n",
			snap.ID, snap.Timestamp.Format("2006-01-02 15:04:05"), len(snap.Resources), snap.EstimatedMonthlySavings)
		for _, r := range snap.Resources {
			original := snap.OriginalStates[r.Key()]
			fmt.Printf("  %-18s %-14s %-20s original=%s\n", r.Kind, r.Region, r.ID, original.State)
		}
		for _, res := range snap.OperationResults {
			status := "ok"
			if !res.Success {
				status = "FAILED"
			}
			fmt.Printf("  [%s] %s %s %s: %s\n", status, res.Op, res.Resource.Kind, res.Resource.ID, res.Message)
		}
		return nil
	},
}

var snapshotsDeleteCommand = &cobra.Command{
	Use:   "delete <snapshot-id>",
	Short: "Delete a saved snapshot",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := openDefaultStore()
		if err != nil {
			return err
		}

		deleted, err := store.Delete(args[0])
		if err != nil {
			return err
		}
		if !deleted {
			return breakerrors.Statef("cli.snapshots.delete", nil, "snapshot %s not found", args[0])
		}

		fmt.Printf("Deleted snapshot %s\n", args[0])
		return nil
	},
}

var snapshotsTrimCommand = &cobra.Command{
	Use:   "trim",
	Short: "Delete all but the most recent --keep snapshots",
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := openDefaultStore()
		if err != nil {
			return err
		}

		removed, err := store.Trim(snapshotsTrimKeep)
		if err != nil {
			return err
		}

		fmt.Printf("Removed %d snapshot(s), keeping the %d most recent\n", removed, snapshotsTrimKeep)
		return nil
	},
}

func init() {
	rootCommand.AddCommand(snapshotsCommand)
	snapshotsCommand.AddCommand(snapshotsListCommand, snapshotsShowCommand, snapshotsDeleteCommand, snapshotsTrimCommand)
	snapshotsTrimCommand.Flags().IntVar(&snapshotsTrimKeep, "keep", 10, "Number of most recent snapshots to retain")
}
