package cli

import (
	"github.com/spf13/cobra"

	"github.com/rcliao/msg-memory/internal/provider"
)

func init() {
	cmd := &cobra.Command{
		Use:   "probe",
		Short: "Check that the configured provider is reachable",
		Run:   runProbe,
	}

	RootCmd.AddCommand(cmd)
}

func runProbe(cmd *cobra.Command, args []string) {
	cfg := loadConfig(cmd)
	logger := newLogger(cfg)
	defer logger.Sync()

	p := provider.New(cfg, logger)
	if p.Kind() == provider.KindDisabled {
		exitErr("probe", provider.ErrDisabled)
	}
	if err := provider.Probe(cmd.Context(), p); err != nil {
		exitErr("probe", err)
	}
	printJSON(map[string]any{"ok": true, "provider": p.Kind()})
}
