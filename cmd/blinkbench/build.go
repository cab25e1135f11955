package main

import (
	"bufio"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"
)

var buildCmd = &cobra.Command{
	Use:   "build",
	Short: "load key\\tvalue pairs from stdin into the tree",
	RunE:  runBuild,
}

func runBuild(cmd *cobra.Command, args []string) error {
	tree, err := openTree()
	if err != nil {
		return err
	}
	defer tree.Close()

	scanner := bufio.NewScanner(os.Stdin)
	loaded := 0
	for scanner.Scan() {
		line := scanner.Text()
		if line == "" {
			continue
		}
		parts := strings.SplitN(line, "\t", 2)
		if len(parts) != 2 {
			return fmt.Errorf("blinkbench build: malformed line %q, want key\\tvalue", line)
		}
		key, err := strconv.ParseInt(parts[0], 10, 64)
		if err != nil {
			return fmt.Errorf("blinkbench build: bad key %q: %w", parts[0], err)
		}
		if _, _, err := tree.Put(key, parts[1]); err != nil {
			return err
		}
		loaded++
	}
	if err := scanner.Err(); err != nil {
		return err
	}

	fmt.Fprintf(cmd.OutOrStdout(), "loaded %d entries\n", loaded)
	return nil
}
