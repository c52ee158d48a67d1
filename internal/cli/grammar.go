package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

func init() {
	cmd := &cobra.Command{
		Use:   "grammar [text]",
		Short: "Fix grammar, spelling and punctuation only",
		Run:   runGrammar,
	}

	RootCmd.AddCommand(cmd)
}

func runGrammar(cmd *cobra.Command, args []string) {
	text := readText(args)
	if strings.TrimSpace(text) == "" {
		exitErr("grammar", fmt.Errorf("text is required (positional arg or stdin)"))
	}

	cfg := loadConfig(cmd)
	logger := newLogger(cfg)
	defer logger.Sync()

	a, done := newAssistant(cfg, logger)
	defer done()

	out, err := a.CheckGrammar(cmd.Context(), text)
	if err != nil {
		exitErr("grammar", err)
	}
	fmt.Println(out)
}
