package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/rcliao/msg-memory/internal/memory"
	"github.com/rcliao/msg-memory/internal/model"
	"github.com/rcliao/msg-memory/internal/twofa"
)

// ingestRecord is one line of ingest input.
type ingestRecord struct {
	Conversation string    `json:"conversation"`
	Title        string    `json:"title"`
	Group        bool      `json:"group"`
	Sender       string    `json:"sender"`
	Text         string    `json:"text"`
	Date         time.Time `json:"date"`
	Outgoing     bool      `json:"outgoing"`
}

func init() {
	cmd := &cobra.Command{
		Use:   "ingest [file]",
		Short: "Record incoming messages and process them",
		Long: "Read messages as JSON lines (stdin or file), store them in the message database and run " +
			"memory extraction and 2FA detection on each.\n\n" +
			`Each line: {"conversation":"chat-1","title":"Friends","group":true,"sender":"Sam","text":"...","date":"2025-01-02T15:04:05Z","outgoing":false}`,
		Args: cobra.MaximumNArgs(1),
		Run:  runIngest,
	}

	cmd.Flags().Bool("store-only", false, "Store messages without running extraction or 2FA detection")

	RootCmd.AddCommand(cmd)
}

func runIngest(cmd *cobra.Command, args []string) {
	storeOnly, _ := cmd.Flags().GetBool("store-only")

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

	db, err := openStore(cfg)
	if err != nil {
		exitErr("open store", err)
	}
	defer db.Close()

	var manager *memory.Manager
	if !storeOnly && cfg.AI.Enabled && cfg.Memory.Enabled {
		mem, _, err := openMemoryStore(cfg, logger)
		if err != nil {
			exitErr("open memory store", err)
		}
		defer mem.Close()
		manager = newManager(cfg, mem, logger)
	}
	var codes memory.CodeHandler
	if !storeOnly && cfg.TwoFA.Enabled {
		codes = twofa.NewManager(db, db, cfg.TwoFA.Keep, logger)
	}

	receiver := memory.NewReceiver(manager, codes, logger)
	events := make(chan memory.Event)
	g, ctx := errgroup.WithContext(cmd.Context())
	g.Go(func() error { return receiver.Run(ctx, events) })

	ingested := 0
	g.Go(func() error {
		defer close(events)
		dec := json.NewDecoder(r)
		for {
			var rec ingestRecord
			if err := dec.Decode(&rec); err != nil {
				if errors.Is(err, io.EOF) {
					return nil
				}
				return fmt.Errorf("decode message %d: %w", ingested+1, err)
			}
			ev, err := storeRecord(ctx, db, rec)
			if err != nil {
				return err
			}
			ingested++
			logger.Debug("message stored", zap.String("conversation", ev.Conversation.Key()), zap.Int64("id", ev.Message.ID))

			select {
			case events <- ev:
			case <-ctx.Done():
				return ctx.Err()
			}
		}
	})

	if err := g.Wait(); err != nil {
		exitErr("ingest", err)
	}
	printJSON(map[string]any{
		"ingested": ingested,
		"receiver": receiver.Stats(),
	})
}

type messageWriter interface {
	UpsertConversation(ctx context.Context, c model.Conversation) error
	AddMessage(ctx context.Context, m model.Message) (model.Message, error)
}

func storeRecord(ctx context.Context, db messageWriter, rec ingestRecord) (memory.Event, error) {
	if rec.Conversation == "" {
		return memory.Event{}, fmt.Errorf("message without conversation")
	}
	conv := model.Conversation{GUID: rec.Conversation, Title: rec.Title, IsGroup: rec.Group}
	if err := db.UpsertConversation(ctx, conv); err != nil {
		return memory.Event{}, err
	}
	msg, err := db.AddMessage(ctx, model.Message{
		ConversationGUID: rec.Conversation,
		Sender:           rec.Sender,
		Text:             rec.Text,
		Date:             rec.Date,
		Outgoing:         rec.Outgoing,
	})
	if err != nil {
		return memory.Event{}, err
	}
	return memory.Event{Message: msg, Conversation: conv}, nil
}
