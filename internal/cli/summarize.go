package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

func init() {
	summarizeCmd := &cobra.Command{
		Use:   "summarize <conversation>",
		Short: "Summarize a conversation",
		Args:  cobra.ExactArgs(1),
		Run:   runSummarize,
	}

	actionsCmd := &cobra.Command{
		Use:   "actions <conversation>",
		Short: "List tasks, appointments and reminders in a conversation",
		Args:  cobra.ExactArgs(1),
		Run:   runActions,
	}

	RootCmd.AddCommand(summarizeCmd, actionsCmd)
}

func runSummarize(cmd *cobra.Command, args []string) {
	cfg := loadConfig(cmd)
	logger := newLogger(cfg)
	defer logger.Sync()

	conv, history := loadConversation(cmd, cfg, args[0])
	a, done := newAssistant(cfg, logger)
	defer done()

	summary, err := a.Summarize(cmd.Context(), conv, history)
	if err != nil {
		exitErr("summarize", err)
	}
	fmt.Println(summary)
}

func runActions(cmd *cobra.Command, args []string) {
	cfg := loadConfig(cmd)
	logger := newLogger(cfg)
	defer logger.Sync()

	conv, history := loadConversation(cmd, cfg, args[0])
	a, done := newAssistant(cfg, logger)
	defer done()

	items, err := a.ActionItems(cmd.Context(), conv, history)
	if err != nil {
		exitErr("actions", err)
	}
	printJSON(items)
}
