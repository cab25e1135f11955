package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "print tree height, leaf count, and live-key count",
	RunE:  runStats,
}

func runStats(cmd *cobra.Command, args []string) error {
	tree, err := openTree()
	if err != nil {
		return err
	}
	defer tree.Close()

	stats, err := tree.Stats()
	if err != nil {
		return err
	}
	length, err := tree.Len()
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "height:     %d\n", stats.Height)
	fmt.Fprintf(out, "leaves:     %d\n", stats.LeafCount)
	fmt.Fprintf(out, "keys:       %d\n", stats.TotalKeys)
	fmt.Fprintf(out, "len (ctr):  %d\n", length)
	return nil
}
