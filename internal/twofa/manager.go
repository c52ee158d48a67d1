package twofa

import (
	"context"
	"fmt"
	"time"

	"github.com/oklog/ulid/v2"
	"go.uber.org/zap"

	"github.com/rcliao/msg-memory/internal/logging"
	"github.com/rcliao/msg-memory/internal/model"
	"github.com/rcliao/msg-memory/internal/store"
)

// Scan limits for existing history.
const (
	DefaultKeep       = 3
	scanMaxSenderLen  = 10
	scanMessageWindow = 40
	scanMaxCodes      = 3
)

// Manager detects codes in messages and keeps the newest few.
type Manager struct {
	codes  store.CodeStore
	source store.MessageSource
	keep   int
	logger *zap.Logger
	now    func() time.Time
}

// NewManager creates a Manager. source may be nil when existing history is
// never scanned.
func NewManager(codes store.CodeStore, source store.MessageSource, keep int, logger *zap.Logger) *Manager {
	if keep <= 0 {
		keep = DefaultKeep
	}
	return &Manager{codes: codes, source: source, keep: keep, logger: logging.OrNop(logger), now: time.Now}
}

// HandleMessage stores every code found in msg and returns the first one,
// or nil when msg does not look like a verification text.
func (m *Manager) HandleMessage(ctx context.Context, msg model.Message) (*model.TwoFACode, error) {
	if msg.Outgoing || !IsCandidate(msg.Text, msg.Sender) {
		return nil, nil
	}
	found := ExtractCodes(msg.Text)
	if len(found) == 0 {
		m.logger.Debug("no 2fa codes in candidate message", zap.String("sender", msg.Sender))
		return nil, nil
	}

	ts := msg.Date
	if ts.IsZero() {
		ts = m.now()
	}
	service := DetectService(msg.Text, msg.Sender)

	var first *model.TwoFACode
	for _, code := range found {
		c := model.TwoFACode{
			ID:          ulid.Make().String(),
			Code:        code,
			Service:     service,
			PhoneNumber: msg.Sender,
			MessageText: msg.Text,
			Timestamp:   ts,
		}
		added, err := m.codes.SaveCode(ctx, c, m.keep)
		if err != nil {
			return nil, fmt.Errorf("save code: %w", err)
		}
		if added {
			m.logger.Info("2fa code stored", zap.String("service", service))
		}
		if first == nil {
			first = &c
		}
	}
	return first, nil
}

// ScanResult summarizes a scan of existing messages.
type ScanResult struct {
	MessagesProcessed int `json:"messages_processed"`
	CodesFound        int `json:"codes_found"`
}

// ScanExisting looks for codes in the most recent messages from short
// senders and stops once a few have been found.
func (m *Manager) ScanExisting(ctx context.Context) (ScanResult, error) {
	var res ScanResult
	if m.source == nil {
		return res, fmt.Errorf("no message source configured")
	}
	msgs, err := m.source.RecentShortSenderMessages(ctx, scanMaxSenderLen, scanMessageWindow)
	if err != nil {
		return res, fmt.Errorf("load messages: %w", err)
	}
	for _, msg := range msgs {
		if res.CodesFound >= scanMaxCodes {
			break
		}
		if err := ctx.Err(); err != nil {
			return res, err
		}
		res.MessagesProcessed++
		code, err := m.HandleMessage(ctx, msg)
		if err != nil {
			return res, err
		}
		if code != nil {
			res.CodesFound++
		}
	}
	m.logger.Info("2fa scan complete",
		zap.Int("messages", res.MessagesProcessed),
		zap.Int("codes", res.CodesFound),
	)
	return res, nil
}

// List returns the stored codes, newest first.
func (m *Manager) List(ctx context.Context) ([]model.TwoFACode, error) {
	return m.codes.ListCodes(ctx)
}

// MarkUsed flags the code with id as used.
func (m *Manager) MarkUsed(ctx context.Context, id string) error {
	return m.codes.MarkUsed(ctx, id)
}

// Clear removes every stored code.
func (m *Manager) Clear(ctx context.Context) error {
	return m.codes.ClearCodes(ctx)
}
