package cli

import (
	"fmt"
	"os"
	"os/signal"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/rcliao/msg-memory/internal/memory"
)

func init() {
	cmd := &cobra.Command{
		Use:   "reprocess",
		Short: "Extract memories from stored message history",
		Long: "Walk the newest messages across all conversations through memory extraction, in batches. " +
			"Interrupting stops after the current message and prints what was done so far.",
		Run: runReprocess,
	}

	cmd.Flags().IntP("limit", "l", -1, "Number of most recent messages to process (default: memory.message_limit)")

	RootCmd.AddCommand(cmd)
}

func runReprocess(cmd *cobra.Command, args []string) {
	cfg := loadConfig(cmd)
	logger := newLogger(cfg)
	defer logger.Sync()

	if !cfg.Memory.Enabled {
		exitErr("reprocess", fmt.Errorf("memory is disabled in config"))
	}
	limit, _ := cmd.Flags().GetInt("limit")
	if limit < 0 {
		limit = cfg.Memory.MessageLimit
	}

	db, err := openStore(cfg)
	if err != nil {
		exitErr("open store", err)
	}
	defer db.Close()

	mem, _, err := openMemoryStore(cfg, logger)
	if err != nil {
		exitErr("open memory store", err)
	}
	defer mem.Close()

	rp := memory.NewReprocessor(db, newManager(cfg, mem, logger), cfg.Reprocess, logger)
	rp.OnProgress = func(p memory.Progress) {
		if p.State != memory.StateBatching {
			logger.Info("reprocess", zap.String("state", string(p.State)))
			return
		}
		logger.Debug("reprocess",
			zap.Int("batch", p.Batch),
			zap.Int("batches", p.Batches),
			zap.Int("item", p.Item),
			zap.Int("total", p.Total),
			zap.Stringer("outcome", p.Outcome),
		)
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
	defer stop()

	res, err := rp.ReprocessAll(ctx, limit)
	printJSON(res)
	if err != nil {
		exitErr("reprocess", err)
	}
}
