package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/rcliao/msg-memory/internal/store"
	"github.com/rcliao/msg-memory/internal/twofa"
)

var twofaCmd = &cobra.Command{
	Use:   "twofa",
	Short: "Manage detected 2FA codes",
}

func init() {
	scanCmd := &cobra.Command{
		Use:   "scan",
		Short: "Look for codes in recent messages from short senders",
		Run:   runTwofaScan,
	}

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "List stored codes, newest first",
		Run:   runTwofaList,
	}

	usedCmd := &cobra.Command{
		Use:   "used <id>",
		Short: "Mark a code as used",
		Args:  cobra.ExactArgs(1),
		Run:   runTwofaUsed,
	}

	clearCmd := &cobra.Command{
		Use:   "clear",
		Short: "Delete all stored codes",
		Run:   runTwofaClear,
	}

	explainCmd := &cobra.Command{
		Use:   "explain [text]",
		Short: "Show how a message would be classified",
		Run:   runTwofaExplain,
	}
	explainCmd.Flags().StringP("sender", "s", "", "Sender address or short code")
	explainCmd.Flags().Bool("text", false, "Print a plain-text report instead of JSON")

	twofaCmd.AddCommand(scanCmd, listCmd, usedCmd, clearCmd, explainCmd)
	RootCmd.AddCommand(twofaCmd)
}

func openCodes(cmd *cobra.Command) (*twofa.Manager, *store.SQLiteStore) {
	cfg := loadConfig(cmd)
	logger := newLogger(cfg)
	db, err := openStore(cfg)
	if err != nil {
		exitErr("open store", err)
	}
	return twofa.NewManager(db, db, cfg.TwoFA.Keep, logger), db
}

func runTwofaScan(cmd *cobra.Command, args []string) {
	m, db := openCodes(cmd)
	defer db.Close()

	res, err := m.ScanExisting(cmd.Context())
	if err != nil {
		exitErr("scan", err)
	}
	printJSON(res)
}

func runTwofaList(cmd *cobra.Command, args []string) {
	m, db := openCodes(cmd)
	defer db.Close()

	codes, err := m.List(cmd.Context())
	if err != nil {
		exitErr("list codes", err)
	}
	printJSON(codes)
}

func runTwofaUsed(cmd *cobra.Command, args []string) {
	m, db := openCodes(cmd)
	defer db.Close()

	if err := m.MarkUsed(cmd.Context(), args[0]); err != nil {
		exitErr("mark used", err)
	}
	fmt.Printf(`{"ok":true,"id":%q}`+"\n", args[0])
}

func runTwofaClear(cmd *cobra.Command, args []string) {
	m, db := openCodes(cmd)
	defer db.Close()

	if err := m.Clear(cmd.Context()); err != nil {
		exitErr("clear codes", err)
	}
	fmt.Println(`{"ok":true}`)
}

func runTwofaExplain(cmd *cobra.Command, args []string) {
	sender, _ := cmd.Flags().GetString("sender")
	asText, _ := cmd.Flags().GetBool("text")

	text := readText(args)
	if strings.TrimSpace(text) == "" {
		exitErr("explain", fmt.Errorf("text is required (positional arg or stdin)"))
	}

	e := twofa.Explain(text, sender)
	if asText {
		fmt.Print(e.String())
		return
	}
	printJSON(e)
}
