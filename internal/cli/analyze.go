package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/rcliao/msg-memory/internal/assistant"
)

func init() {
	analyzeCmd := &cobra.Command{
		Use:   "analyze [text]",
		Short: "Check a message for spam, inappropriate content and sensitive data",
		Run:   runAnalyze,
	}

	checkCmd := &cobra.Command{
		Use:   "check [text]",
		Short: "Flag writing issues without calling a model",
		Run:   runCheck,
	}

	RootCmd.AddCommand(analyzeCmd, checkCmd)
}

func runAnalyze(cmd *cobra.Command, args []string) {
	text := readText(args)
	if strings.TrimSpace(text) == "" {
		exitErr("analyze", fmt.Errorf("text is required (positional arg or stdin)"))
	}

	cfg := loadConfig(cmd)
	logger := newLogger(cfg)
	defer logger.Sync()

	a, done := newAssistant(cfg, logger)
	defer done()

	an, err := a.AnalyzeContent(cmd.Context(), text)
	if err != nil {
		exitErr("analyze", err)
	}
	printJSON(an)
}

func runCheck(cmd *cobra.Command, args []string) {
	printJSON(assistant.CheckWriting(readText(args)))
}
