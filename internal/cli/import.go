package cli

import (
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/rcliao/msg-memory/internal/store"
)

func init() {
	cmd := &cobra.Command{
		Use:   "import [file]",
		Short: "Import memories from JSON",
		Long: "Import a memory document (stdin or file). Expects the format produced by export; " +
			"older documents with legacy field names are accepted.",
		Args: cobra.MaximumNArgs(1),
		Run:  runImport,
	}

	cmd.Flags().Bool("merge", false, "Keep existing memories and add the imported ones")

	RootCmd.AddCommand(cmd)
}

func runImport(cmd *cobra.Command, args []string) {
	merge, _ := cmd.Flags().GetBool("merge")

	var r io.Reader = os.Stdin
	if len(args) == 1 {
		f, err := os.Open(args[0])
		if err != nil {
			exitErr("open input", err)
		}
		defer f.Close()
		r = f
	}

	cfg := loadConfig(cmd)
	logger := newLogger(cfg)
	defer logger.Sync()

	mem, _, err := openMemoryStore(cfg, logger)
	if err != nil {
		exitErr("open memory store", err)
	}
	defer mem.Close()

	res, err := store.Import(cmd.Context(), mem, r, store.ImportParams{
		Merge: merge,
		Limit: cfg.Memory.MessageLimit,
	})
	if err != nil {
		exitErr("import", err)
	}
	printJSON(res)
}
