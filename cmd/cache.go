package main

import (
	"fmt"
	"io"
	"os"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/sells-group/finresearch/internal/cache"
)

var cacheCmd = &cobra.Command{
	Use:   "cache",
	Short: "Inspect or clear the response cache",
}

var cacheClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Delete every cached response",
	RunE: func(cmd *cobra.Command, _ []string) error {
		c, err := cache.New(cfg.Cache.Dir, cfg.Cache.TTL())
		if err != nil {
			return err
		}
		n, err := c.Clear()
		if err != nil {
			return eris.Wrap(err, "cache clear")
		}
		fmt.Fprintf(os.Stdout, "Removed %d cached responses from %s.\n", n, cfg.Cache.Dir)
		return nil
	},
}

var cacheStatsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show cache size",
	RunE: func(cmd *cobra.Command, _ []string) error {
		c, err := cache.New(cfg.Cache.Dir, cfg.Cache.TTL())
		if err != nil {
			return err
		}
		formatCacheStats(os.Stdout, cfg.Cache.Dir, c.Stats())
		return nil
	},
}

func formatCacheStats(w io.Writer, dir string, s cache.Stats) {
	fmt.Fprintf(w, "Directory: %s\n", dir)
	fmt.Fprintf(w, "Entries:   %d\n", s.Entries)
	fmt.Fprintf(w, "Requests:  %d (hits %d, misses %d, hit rate %.1f%%)\n", s.Total, s.Hits, s.Misses, s.HitRate)
}

func init() {
	cacheCmd.AddCommand(cacheClearCmd, cacheStatsCmd)
	rootCmd.AddCommand(cacheCmd)
}
