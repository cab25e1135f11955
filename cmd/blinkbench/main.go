// Command blinkbench is a small demo/benchmark CLI over blinkidx, in the
// same shape pebble/cmd/pebble is over the pebble storage engine: one
// cobra command tree, one long-lived tree instance per invocation.
package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/oba-ldap/blinkidx"
)

var (
	dbPath  string
	maxSize int
	verbose int
)

var rootCmd = &cobra.Command{
	Use:   "blinkbench [command] (flags)",
	Short: "blinkidx benchmarking/introspection tool",
}

func main() {
	cobra.EnableCommandSorting = false

	rootCmd.PersistentFlags().StringVar(&dbPath, "db", "blinkbench.db",
		"path to the FileStore-backed tree; \":memory:\" uses a MemStore")
	rootCmd.PersistentFlags().IntVar(&maxSize, "max-node-size", 32,
		"tree-wide max live-entry bound B (even, 6-126)")
	rootCmd.PersistentFlags().CountVarP(&verbose, "verbose", "v",
		"enable per-operation event logging")

	rootCmd.AddCommand(buildCmd, getCmd, scanCmd, statsCmd)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newLogger() *slog.Logger {
	level := slog.LevelWarn
	if verbose > 0 {
		level = slog.LevelInfo
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
}

// listener adapts a *slog.Logger into a blinkidx.ModificationListener,
// logging each put, update and remove the tree reports once the mutation
// is installed and its node lock released.
func listener(log *slog.Logger) blinkidx.ModificationListener[int64, string] {
	return func(kind blinkidx.ModKind, key int64, value string) {
		log.Info("modification", "kind", kind, "key", key)
	}
}
