package cli

import (
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/rcliao/msg-memory/internal/store"
)

func init() {
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export memories as JSON",
		Long:  "Write the memory document ({lastUpdatedAt, items}) to stdout or a file.",
		Run:   runExport,
	}

	cmd.Flags().StringP("out", "o", "", "Output file (default: stdout)")

	RootCmd.AddCommand(cmd)
}

func runExport(cmd *cobra.Command, args []string) {
	out, _ := cmd.Flags().GetString("out")

	cfg := loadConfig(cmd)
	logger := newLogger(cfg)
	defer logger.Sync()

	mem, _, err := openMemoryStore(cfg, logger)
	if err != nil {
		exitErr("open memory store", err)
	}
	defer mem.Close()

	var w io.Writer = os.Stdout
	if out != "" {
		f, err := os.Create(out)
		if err != nil {
			exitErr("create output", err)
		}
		defer f.Close()
		w = f
	}

	if err := store.Export(cmd.Context(), mem, w); err != nil {
		exitErr("export", err)
	}
}
