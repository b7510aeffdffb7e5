package main

import (
	"github.com/spf13/cobra"
)

var (
	// Global flags.
	configFile string
	verbose    bool
)

var rootCmd = &cobra.Command{
	Use:   "tiercache-bench",
	Short: "Benchmark cache policies, wrappers and strategies",
	Long: `tiercache-bench drives a skewed read/write workload through a cache tier
and a caching strategy backed by an in-memory store.

Settings come from a YAML file (see config.Default for the layout); flags
override the loaded values.

Examples:
  # LRU memory cache, cache-aside, 10s run
  tiercache-bench run

  # 2Q behind a partitioned wrapper with write-behind saves
  tiercache-bench run --policy 2q --wrapper partitioned --strategy write-behind

  # Start from a config file and expose pprof
  tiercache-bench run --config tiercache.yaml --pprof :6060`,
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configFile, "config", "c", "", "YAML config file (default: built-in defaults)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")
}
