package cli

import (
	"github.com/spf13/cobra"

	"github.com/rcliao/msg-memory/internal/store"
)

func init() {
	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Show memory statistics",
		Run:   runStats,
	}

	RootCmd.AddCommand(cmd)
}

func runStats(cmd *cobra.Command, args []string) {
	cfg := loadConfig(cmd)
	logger := newLogger(cfg)
	defer logger.Sync()

	mem, path, err := openMemoryStore(cfg, logger)
	if err != nil {
		exitErr("open memory store", err)
	}
	defer mem.Close()

	stats, err := store.ComputeStats(cmd.Context(), mem, cfg.Memory.Backend, path)
	if err != nil {
		exitErr("stats", err)
	}
	printJSON(stats)
}
