package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/roach88/cypher2sql/internal/cache"
)

// CacheStats is the payload of the cache commands.
type CacheStats struct {
	Dir     string `json:"dir"`
	Entries int    `json:"entries"`
	Purged  bool   `json:"purged,omitempty"`
}

func (s CacheStats) String() string {
	if s.Purged {
		return fmt.Sprintf("Purged %d entr(ies) from %s", s.Entries, s.Dir)
	}
	return fmt.Sprintf("%s: %d entr(ies)", s.Dir, s.Entries)
}

// NewCacheCommand creates the cache command group.
func NewCacheCommand(rootOpts *RootOptions) *cobra.Command {
	var dir string

	cmd := &cobra.Command{
		Use:   "cache",
		Short: "Inspect or clear the translation cache",
	}
	cmd.PersistentFlags().StringVar(&dir, "cache-dir", "", "cache directory (default from config)")

	stats := &cobra.Command{
		Use:           "stats",
		Short:         "Count cached translations",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCache(rootOpts, cmd, dir, false)
		},
	}
	purge := &cobra.Command{
		Use:           "purge",
		Short:         "Remove every cached translation",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCache(rootOpts, cmd, dir, true)
		},
	}
	cmd.AddCommand(stats, purge)
	return cmd
}

func runCache(opts *RootOptions, cmd *cobra.Command, dir string, purge bool) error {
	formatter := opts.formatter(cmd)
	if dir == "" {
		dir = opts.settings().CacheDir()
	}

	if _, err := os.Stat(dir); err != nil {
		formatter.VerboseLog("no cache at %s", dir)
		return formatter.Success(CacheStats{Dir: dir, Purged: purge})
	}

	c, err := cache.Open(dir)
	if err != nil {
		formatter.Error(ErrCodeStore, err.Error(), nil)
		return WrapExitError(ExitCommandError, "failed to open cache", err)
	}
	defer c.Close()

	n, err := c.Len()
	if err != nil {
		formatter.Error(ErrCodeStore, err.Error(), nil)
		return WrapExitError(ExitCommandError, "cache", err)
	}
	if purge {
		if err := c.Purge(); err != nil {
			formatter.Error(ErrCodeStore, err.Error(), nil)
			return WrapExitError(ExitCommandError, "cache purge", err)
		}
	}
	return formatter.Success(CacheStats{Dir: dir, Entries: n, Purged: purge})
}
