package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/pubscope/pubscope/internal/snapshot"
)

// newSnapshotCmd builds the snapshot command group. Snapshots let a
// team track how a topology's anomaly profile shifts between releases.
func newSnapshotCmd(configPath *string, tau, lambda *float64, minLCP, topK *int) *cobra.Command {
	var storeDir string

	cmd := &cobra.Command{
		Use:   "snapshot",
		Short: "Capture and compare analysis runs over time",
	}
	cmd.PersistentFlags().StringVar(&storeDir, "store", ".pubscope", "Snapshot store directory")

	var saveTag, saveMsg string
	saveCmd := &cobra.Command{
		Use:   "save <dataset.json>",
		Short: "Analyze a dataset and store the result as a snapshot",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := analysisConfig(*configPath, cmd, *tau, *lambda, *minLCP, *topK)
			if err != nil {
				return err
			}
			res, err := analyze(cmd.Context(), args[0], cfg)
			if err != nil {
				return err
			}

			store, err := snapshot.NewStore(storeDir)
			if err != nil {
				return err
			}
			snap := snapshot.Capture(res, saveTag, saveMsg)
			if err := store.Save(snap); err != nil {
				return err
			}

			fmt.Printf("saved snapshot %s (%d anomalies, top score %.2f)\n",
				snap.ID[:8], snap.Anomalies, snap.TopScore)
			if snap.ParentID != "" {
				fmt.Printf("parent %s\n", snap.ParentID[:8])
			}
			return nil
		},
	}
	saveCmd.Flags().StringVar(&saveTag, "tag", "", "Tag for the snapshot")
	saveCmd.Flags().StringVar(&saveMsg, "message", "", "Snapshot description")

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "List stored snapshots, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := snapshot.NewStore(storeDir)
			if err != nil {
				return err
			}
			sums := store.List()
			if len(sums) == 0 {
				fmt.Println("no snapshots")
				return nil
			}
			fmt.Printf("%-18s %-20s %-12s %9s %9s\n", "ID", "CREATED", "DATASET", "ANOMALIES", "TOP")
			for _, s := range sums {
				id := s.ID[:8]
				if s.Tag != "" {
					id = fmt.Sprintf("%s (%s)", s.ID[:8], s.Tag)
				}
				fmt.Printf("%-18s %-20s %-12s %9d %9.2f\n",
					id, s.CreatedAt.Format("2006-01-02 15:04:05"), s.Dataset, s.Anomalies, s.TopScore)
			}
			return nil
		},
	}

	diffCmd := &cobra.Command{
		Use:   "diff <old-ref> <new-ref>",
		Short: "Show ranking changes between two snapshots",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := snapshot.NewStore(storeDir)
			if err != nil {
				return err
			}
			oldSnap, err := store.Resolve(args[0])
			if err != nil {
				return err
			}
			newSnap, err := store.Resolve(args[1])
			if err != nil {
				return err
			}
			snapshot.Compare(oldSnap, newSnap).Write(os.Stdout)
			return nil
		},
	}

	tagCmd := &cobra.Command{
		Use:   "tag <id> <tag>",
		Short: "Tag a stored snapshot",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := snapshot.NewStore(storeDir)
			if err != nil {
				return err
			}
			snap, err := store.Resolve(args[0])
			if err != nil {
				return err
			}
			return store.Tag(snap.ID, args[1])
		},
	}

	deleteCmd := &cobra.Command{
		Use:   "delete <ref>",
		Short: "Delete a stored snapshot",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := snapshot.NewStore(storeDir)
			if err != nil {
				return err
			}
			snap, err := store.Resolve(args[0])
			if err != nil {
				return err
			}
			return store.Delete(snap.ID)
		},
	}

	cmd.AddCommand(saveCmd, listCmd, diffCmd, tagCmd, deleteCmd)
	return cmd
}
