package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/praetorian-inc/framer/pkg/store"
)

var (
	mergeOutput string
)

var mergeCmd = &cobra.Command{
	Use:   "merge <source1.db> <source2.db> [source3.db...]",
	Short: "Merge multiple packet databases",
	Long: `Merge multiple Framer packet databases into a single output database.

This is useful for combining captures from several gateway instances or
from separate replay runs.

Deduplication is automatic - a packet (same channel, sequence and payload)
and a profile are only stored once in the merged database.`,
	Args: cobra.MinimumNArgs(2),
	RunE: runMerge,
}

func init() {
	mergeCmd.Flags().StringVarP(&mergeOutput, "output", "o", "merged.db", "Output database path")
}

func runMerge(cmd *cobra.Command, args []string) error {
	stats, err := store.Merge(store.MergeConfig{
		SourcePaths: args,
		DestPath:    mergeOutput,
	})
	if err != nil {
		return fmt.Errorf("merge failed: %w", err)
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Merge complete:\n")
	fmt.Fprintf(cmd.OutOrStdout(), "  Sources processed: %d\n", stats.SourcesProcessed)
	fmt.Fprintf(cmd.OutOrStdout(), "  Profiles merged: %d\n", stats.ProfilesMerged)
	fmt.Fprintf(cmd.OutOrStdout(), "  Packets merged: %d\n", stats.PacketsMerged)
	fmt.Fprintf(cmd.OutOrStdout(), "Output: %s\n", mergeOutput)

	return nil
}
