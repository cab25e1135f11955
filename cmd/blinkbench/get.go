package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"
)

var getCmd = &cobra.Command{
	Use:   "get <key>",
	Short: "point-lookup a single key",
	Args:  cobra.ExactArgs(1),
	RunE:  runGet,
}

func runGet(cmd *cobra.Command, args []string) error {
	key, err := strconv.ParseInt(args[0], 10, 64)
	if err != nil {
		return fmt.Errorf("blinkbench get: bad key %q: %w", args[0], err)
	}

	tree, err := openTree()
	if err != nil {
		return err
	}
	defer tree.Close()

	value, ok, err := tree.Get(key)
	if err != nil {
		return err
	}
	if !ok {
		fmt.Fprintf(cmd.OutOrStdout(), "%d: not found\n", key)
		return nil
	}
	fmt.Fprintf(cmd.OutOrStdout(), "%d: %s\n", key, value)
	return nil
}
