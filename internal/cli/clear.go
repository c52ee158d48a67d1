package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

func init() {
	clearCmd := &cobra.Command{
		Use:   "clear",
		Short: "Delete every memory",
		Run:   runClear,
	}
	clearCmd.Flags().Bool("yes", false, "Confirm deletion")

	trimCmd := &cobra.Command{
		Use:   "trim",
		Short: "Drop the oldest memories beyond the limit",
		Long:  "Keep only the newest memories. Useful after lowering memory.message_limit.",
		Run:   runTrim,
	}
	trimCmd.Flags().IntP("limit", "l", -1, "Capacity to enforce (default: memory.message_limit)")

	RootCmd.AddCommand(clearCmd, trimCmd)
}

func runClear(cmd *cobra.Command, args []string) {
	if yes, _ := cmd.Flags().GetBool("yes"); !yes {
		exitErr("clear", fmt.Errorf("refusing to delete all memories without --yes"))
	}

	cfg := loadConfig(cmd)
	logger := newLogger(cfg)
	defer logger.Sync()

	mem, _, err := openMemoryStore(cfg, logger)
	if err != nil {
		exitErr("open memory store", err)
	}
	defer mem.Close()

	if err := mem.ClearAll(cmd.Context()); err != nil {
		exitErr("clear", err)
	}
	fmt.Println(`{"ok":true}`)
}

func runTrim(cmd *cobra.Command, args []string) {
	cfg := loadConfig(cmd)
	logger := newLogger(cfg)
	defer logger.Sync()

	limit, _ := cmd.Flags().GetInt("limit")
	if limit < 0 {
		limit = cfg.Memory.MessageLimit
	}

	mem, _, err := openMemoryStore(cfg, logger)
	if err != nil {
		exitErr("open memory store", err)
	}
	defer mem.Close()

	if err := mem.TrimToLimit(cmd.Context(), limit); err != nil {
		exitErr("trim", err)
	}
	items, err := mem.ListAll(cmd.Context())
	if err != nil {
		exitErr("trim", err)
	}
	fmt.Printf(`{"ok":true,"limit":%d,"remaining":%d}`+"\n", limit, len(items))
}
