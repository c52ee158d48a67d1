package cli

import (
	"strings"

	"github.com/spf13/cobra"

	"github.com/rcliao/msg-memory/internal/store"
)

func init() {
	cmd := &cobra.Command{
		Use:   "query [text]",
		Short: "Find memories relevant to a conversation",
		Long: "Return the newest memories outside the excluded conversation. " +
			"When text is given, only memories whose text, original message or category contain it are returned.",
		Run: runQuery,
	}

	cmd.Flags().StringP("exclude", "x", "", "Conversation id to leave out (usually the current one)")
	cmd.Flags().IntP("limit", "l", store.DefaultRelevantLimit, "Max results")

	RootCmd.AddCommand(cmd)
}

func runQuery(cmd *cobra.Command, args []string) {
	exclude, _ := cmd.Flags().GetString("exclude")
	limit, _ := cmd.Flags().GetInt("limit")

	cfg := loadConfig(cmd)
	logger := newLogger(cfg)
	defer logger.Sync()

	mem, _, err := openMemoryStore(cfg, logger)
	if err != nil {
		exitErr("open memory store", err)
	}
	defer mem.Close()

	items, err := mem.QueryRelevant(cmd.Context(), store.RelevantParams{
		ExcludeConversationID: exclude,
		Query:                 strings.Join(args, " "),
		Limit:                 limit,
	})
	if err != nil {
		exitErr("query", err)
	}
	printJSON(items)
}
