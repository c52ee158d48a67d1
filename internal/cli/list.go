package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

func init() {
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List memories, newest first",
		Run:   runList,
	}

	cmd.Flags().IntP("limit", "l", 0, "Max results (0 = all)")
	cmd.Flags().Bool("text-only", false, "Only output extracted text")

	RootCmd.AddCommand(cmd)
}

func runList(cmd *cobra.Command, args []string) {
	limit, _ := cmd.Flags().GetInt("limit")
	textOnly, _ := cmd.Flags().GetBool("text-only")

	cfg := loadConfig(cmd)
	logger := newLogger(cfg)
	defer logger.Sync()

	mem, _, err := openMemoryStore(cfg, logger)
	if err != nil {
		exitErr("open memory store", err)
	}
	defer mem.Close()

	items, err := mem.ListAll(cmd.Context())
	if err != nil {
		exitErr("list", err)
	}
	if limit > 0 && len(items) > limit {
		items = items[:limit]
	}

	if textOnly {
		for _, it := range items {
			fmt.Printf("[%s] %s\n", it.Category, it.ExtractedText)
		}
		return
	}
	printJSON(items)
}
