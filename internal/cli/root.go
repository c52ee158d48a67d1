// Package cli implements the msg-memory CLI commands.
package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/rcliao/msg-memory/internal/assistant"
	"github.com/rcliao/msg-memory/internal/config"
	"github.com/rcliao/msg-memory/internal/logging"
	"github.com/rcliao/msg-memory/internal/memory"
	"github.com/rcliao/msg-memory/internal/model"
	"github.com/rcliao/msg-memory/internal/provider"
	"github.com/rcliao/msg-memory/internal/store"
)

var (
	configPath string
	dbPath     string
	logLevel   string
)

// RootCmd is the top-level command.
var RootCmd = &cobra.Command{
	Use:   "msg-memory",
	Short: "Conversation memory for a messaging client",
	Long: "Extracts facts from chat messages with a local or hosted model, keeps the newest few as memories, " +
		"and uses them for smart replies and message enhancement. Also tracks recent 2FA codes.",
}

func init() {
	RootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Config file (default: $MSG_MEMORY_CONFIG or ~/.msg-memory/config.yaml)")
	RootCmd.PersistentFlags().StringVarP(&dbPath, "db", "d", "", "Message database path (overrides config and $MSG_MEMORY_DB)")
	RootCmd.PersistentFlags().String("log-level", "", "Log level: debug, info, warn, error")
}

func getConfigPath() string {
	if configPath != "" {
		return configPath
	}
	if env := os.Getenv("MSG_MEMORY_CONFIG"); env != "" {
		return env
	}
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".msg-memory", "config.yaml")
}

// loadConfig reads the config and applies command-line overrides.
func loadConfig(cmd *cobra.Command) *config.Config {
	cfg, err := config.Load(getConfigPath())
	if err != nil {
		exitErr("load config", err)
	}
	if dbPath != "" {
		cfg.DB = dbPath
	}
	if lvl, _ := cmd.Flags().GetString("log-level"); lvl != "" {
		cfg.Log.Level = lvl
	}
	return cfg
}

func newLogger(cfg *config.Config) *zap.Logger {
	logger, err := logging.New(cfg.Log)
	if err != nil {
		exitErr("init logger", err)
	}
	return logger
}

// openStore opens the message database, which also holds 2FA codes.
func openStore(cfg *config.Config) (*store.SQLiteStore, error) {
	return store.NewSQLiteStore(cfg.DB)
}

// openMemoryStore opens the configured memory backend and returns it with
// the path it lives at.
func openMemoryStore(cfg *config.Config, logger *zap.Logger) (store.MemoryStore, string, error) {
	switch cfg.Memory.Backend {
	case "sqlite":
		s, err := store.NewSQLiteStore(cfg.DB)
		return s, cfg.DB, err
	default:
		s, err := store.NewJSONStore(cfg.Memory.Path, logger)
		return s, cfg.Memory.Path, err
	}
}

func newManager(cfg *config.Config, mem store.MemoryStore, logger *zap.Logger) *memory.Manager {
	prov := provider.New(cfg, logger)
	return memory.NewManager(memory.NewExtractor(prov, logger), mem, memory.Options{
		Limit:            cfg.Memory.MessageLimit,
		MinMessageLength: cfg.Memory.MinMessageLength,
	}, logger)
}

// readText returns the positional args joined, or stdin when it is piped.
func readText(args []string) string {
	if len(args) > 0 {
		return strings.Join(args, " ")
	}
	stat, _ := os.Stdin.Stat()
	if stat != nil && (stat.Mode()&os.ModeCharDevice) == 0 {
		b, err := io.ReadAll(os.Stdin)
		if err != nil {
			exitErr("read stdin", err)
		}
		return strings.TrimRight(string(b), "\n")
	}
	return ""
}

func printJSON(v any) {
	b, _ := json.MarshalIndent(v, "", "  ")
	fmt.Println(string(b))
}

func exitErr(msg string, err error) {
	fmt.Fprintf(os.Stderr, "error: %s: %v\n", msg, err)
	os.Exit(1)
}

// newAssistant builds an Assistant whose memory lookups go to the
// configured memory store. The returned func releases the store.
func newAssistant(cfg *config.Config, logger *zap.Logger) (*assistant.Assistant, func()) {
	prov := provider.New(cfg, logger)
	if !cfg.Memory.Enabled {
		return assistant.New(prov, nil, logger), func() {}
	}
	mem, _, err := openMemoryStore(cfg, logger)
	if err != nil {
		exitErr("open memory store", err)
	}
	return assistant.New(prov, newManager(cfg, mem, logger), logger), func() { mem.Close() }
}

// loadConversation reads a conversation and its history from the message
// database.
func loadConversation(cmd *cobra.Command, cfg *config.Config, guid string) (model.Conversation, []model.Message) {
	db, err := openStore(cfg)
	if err != nil {
		exitErr("open store", err)
	}
	defer db.Close()

	conv, err := db.Conversation(cmd.Context(), guid)
	if err != nil {
		exitErr("load conversation", err)
	}
	msgs, err := db.Messages(cmd.Context(), guid)
	if err != nil {
		exitErr("load messages", err)
	}
	return conv, msgs
}
