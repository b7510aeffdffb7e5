// Command tiercache-bench runs a synthetic Zipf workload through a caching
// strategy and exposes Prometheus metrics and optional pprof endpoints.
package main

import (
	"os"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
