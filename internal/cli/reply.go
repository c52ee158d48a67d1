package cli

import (
	"github.com/spf13/cobra"
)

func init() {
	cmd := &cobra.Command{
		Use:   "reply <conversation>",
		Short: "Suggest replies for a conversation",
		Args:  cobra.ExactArgs(1),
		Run:   runReply,
	}

	RootCmd.AddCommand(cmd)
}

func runReply(cmd *cobra.Command, args []string) {
	cfg := loadConfig(cmd)
	logger := newLogger(cfg)
	defer logger.Sync()

	conv, history := loadConversation(cmd, cfg, args[0])
	a, done := newAssistant(cfg, logger)
	defer done()

	replies, err := a.SmartReplies(cmd.Context(), conv, history)
	if err != nil {
		exitErr("reply", err)
	}
	printJSON(replies)
}
