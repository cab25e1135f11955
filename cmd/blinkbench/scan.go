package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/oba-ldap/blinkidx"
)

var (
	scanLower          string
	scanUpper          string
	scanLowerExclusive bool
	scanUpperExclusive bool
	scanReverse        bool
)

var scanCmd = &cobra.Command{
	Use:   "scan",
	Short: "range-scan the tree between --lower and --upper",
	RunE:  runScan,
}

func init() {
	scanCmd.Flags().StringVar(&scanLower, "lower", "", "lower bound key (empty means unbounded)")
	scanCmd.Flags().StringVar(&scanUpper, "upper", "", "upper bound key (empty means unbounded)")
	scanCmd.Flags().BoolVar(&scanLowerExclusive, "lower-exclusive", false, "exclude the lower bound")
	scanCmd.Flags().BoolVar(&scanUpperExclusive, "upper-exclusive", false, "exclude the upper bound")
	scanCmd.Flags().BoolVarP(&scanReverse, "reverse", "r", false, "walk in descending key order")
}

func parseBound(s string, inclusive bool) (*blinkidx.Bound[int64], error) {
	if s == "" {
		return nil, nil
	}
	key, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return nil, fmt.Errorf("blinkbench scan: bad bound %q: %w", s, err)
	}
	return &blinkidx.Bound[int64]{Key: key, Inclusive: inclusive}, nil
}

func runScan(cmd *cobra.Command, args []string) error {
	lower, err := parseBound(scanLower, !scanLowerExclusive)
	if err != nil {
		return err
	}
	upper, err := parseBound(scanUpper, !scanUpperExclusive)
	if err != nil {
		return err
	}

	tree, err := openTree()
	if err != nil {
		return err
	}
	defer tree.Close()

	out := cmd.OutOrStdout()
	bounds := blinkidx.ScanBounds[int64]{Lower: lower, Upper: upper}

	if scanReverse {
		it := tree.DescendingIterator(bounds)
		for it.Next() {
			fmt.Fprintf(out, "%d: %s\n", it.Key(), it.Value())
		}
		return it.Err()
	}

	it, err := tree.Iterator(bounds)
	if err != nil {
		return err
	}
	defer it.Close()
	for it.Next() {
		fmt.Fprintf(out, "%d: %s\n", it.Key(), it.Value())
	}
	return it.Err()
}
