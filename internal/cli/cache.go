package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ppiankov/charta/internal/cache"
)

// cacheCmd represents the cache command
var cacheCmd = &cobra.Command{
	Use:   "cache",
	Short: "Inspect and clean the lemma and LLM cache",
	Long: `Inspect and clean the on-disk cache of lemmatizer answers ("lemma") and
LLM label distributions ("llm").

Example:
  charta cache stats
  charta cache prune
  charta cache clear llm`,
}

var cacheStatsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show entries per namespace",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		disk, dir, err := openDiskCache()
		if err != nil {
			return err
		}
		stats, err := disk.Stats()
		if err != nil {
			return err
		}
		if len(stats) == 0 {
			fmt.Printf("Cache %s is empty\n", dir)
			return nil
		}

		fmt.Printf("Cache: %s\n\n", dir)
		fmt.Printf("%-12s  %8s  %8s  %10s  %s\n", "NAMESPACE", "ENTRIES", "EXPIRED", "BYTES", "OLDEST")
		for _, st := range stats {
			oldest := "-"
			if !st.Oldest.IsZero() {
				oldest = st.Oldest.Format("2006-01-02 15:04")
			}
			fmt.Printf("%-12s  %8d  %8d  %10d  %s\n", st.Namespace, st.Entries, st.Expired, st.Bytes, oldest)
		}
		return nil
	},
}

var cachePruneCmd = &cobra.Command{
	Use:   "prune",
	Short: "Delete expired entries",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		disk, _, err := openDiskCache()
		if err != nil {
			return err
		}
		removed, err := disk.Prune()
		if err != nil {
			return err
		}
		fmt.Printf("✓ Removed %d expired entries\n", removed)
		return nil
	},
}

var cacheClearCmd = &cobra.Command{
	Use:   "clear [namespace]",
	Short: "Delete one namespace or the whole cache",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		disk, dir, err := openDiskCache()
		if err != nil {
			return err
		}
		namespace := ""
		if len(args) == 1 {
			namespace = args[0]
		}
		if err := disk.Purge(namespace); err != nil {
			return err
		}
		if namespace == "" {
			fmt.Printf("✓ Cleared %s\n", dir)
		} else {
			fmt.Printf("✓ Cleared namespace %s in %s\n", namespace, dir)
		}
		return nil
	},
}

func openDiskCache() (*cache.DiskCache, string, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, "", err
	}
	return cache.NewDiskCache(cfg.Cache.Dir, cfg.Cache.DiskTTL), cfg.Cache.Dir, nil
}

func init() {
	rootCmd.AddCommand(cacheCmd)
	cacheCmd.AddCommand(cacheStatsCmd)
	cacheCmd.AddCommand(cachePruneCmd)
	cacheCmd.AddCommand(cacheClearCmd)
}
