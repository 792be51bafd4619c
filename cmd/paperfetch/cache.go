package main

import (
	"github.com/spf13/cobra"

	"github.com/LLLin000/paper-fetcher/internal/cache"
)

var cacheCmd = &cobra.Command{
	Use:   "cache",
	Short: "Inspect or clear the result cache",
}

var cacheStatsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show cache entry count and size",
	Args:  cobra.NoArgs,
	Run:   runCacheStats,
}

var cacheClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Delete all cached results",
	Args:  cobra.NoArgs,
	Run:   runCacheClear,
}

func init() {
	cacheCmd.AddCommand(cacheStatsCmd)
	cacheCmd.AddCommand(cacheClearCmd)
	rootCmd.AddCommand(cacheCmd)
}

// mustOpenCache opens the result cache, exits on error.
func mustOpenCache() *cache.Cache {
	cfg := mustLoadConfig()
	c, err := cache.New(cfg.CachePath())
	if err != nil {
		exitWithError(ExitConfigError, "opening cache: %v", err)
	}
	return c
}

func runCacheStats(cmd *cobra.Command, args []string) {
	c := mustOpenCache()
	info, err := c.Stat()
	if err != nil {
		exitWithError(ExitError, "reading cache: %v", err)
	}

	if humanOutput {
		outputHuman("%d entries, %s\n", info.Entries, formatBytes(info.TotalSize))
	} else {
		outputJSON(info)
	}
}

func runCacheClear(cmd *cobra.Command, args []string) {
	c := mustOpenCache()
	if err := c.Clear(); err != nil {
		exitWithError(ExitError, "clearing cache: %v", err)
	}

	if humanOutput {
		outputHuman("Cache cleared\n")
	} else {
		outputJSON(StatusResponse{Status: "cleared"})
	}
}
