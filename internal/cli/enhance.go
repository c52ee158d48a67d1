package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/rcliao/msg-memory/internal/model"
	"github.com/rcliao/msg-memory/internal/prompt"
)

func init() {
	cmd := &cobra.Command{
		Use:   "enhance [text]",
		Short: "Rewrite a draft message",
		Long:  "Improve a draft in the chosen tone. Text can be a positional arg or piped via stdin.",
		Run:   runEnhance,
	}

	cmd.Flags().StringP("tone", "t", "neutral", "Tone: formal, casual, enthusiastic, neutral")
	cmd.Flags().String("context", "", "Extra context for the model")
	cmd.Flags().String("conversation", "", "Conversation the draft belongs to; memories from other conversations are used")
	cmd.Flags().Bool("multiple", false, "Return three variants instead of one")

	RootCmd.AddCommand(cmd)
}

func runEnhance(cmd *cobra.Command, args []string) {
	tone, _ := cmd.Flags().GetString("tone")
	extra, _ := cmd.Flags().GetString("context")
	convID, _ := cmd.Flags().GetString("conversation")
	multiple, _ := cmd.Flags().GetBool("multiple")

	text := readText(args)
	if strings.TrimSpace(text) == "" {
		exitErr("enhance", fmt.Errorf("text is required (positional arg or stdin)"))
	}

	cfg := loadConfig(cmd)
	logger := newLogger(cfg)
	defer logger.Sync()

	var conv *model.Conversation
	if convID != "" {
		c, _ := loadConversation(cmd, cfg, convID)
		conv = &c
	}

	a, done := newAssistant(cfg, logger)
	defer done()

	if multiple {
		variants, err := a.EnhanceMultiple(cmd.Context(), text, extra, conv)
		if err != nil {
			exitErr("enhance", err)
		}
		printJSON(variants)
		return
	}

	out, err := a.Enhance(cmd.Context(), text, prompt.ParseTone(tone), extra, conv)
	if err != nil {
		exitErr("enhance", err)
	}
	fmt.Println(out)
}
