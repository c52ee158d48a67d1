package store

import (
	"context"
	"fmt"
	"time"

	"github.com/rcliao/msg-memory/internal/model"
)

// SaveCode inserts c and prunes all but the keep newest codes by timestamp.
// A code already stored with the same value and timestamp is ignored.
func (s *SQLiteStore) SaveCode(ctx context.Context, c model.TwoFACode, keep int) (bool, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return false, err
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx,
		`INSERT OR IGNORE INTO twofa_codes (id, code, service, phone_number, message_text, timestamp, used)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		c.ID, c.Code, c.Service, c.PhoneNumber, c.MessageText, c.Timestamp.UnixNano(), c.Used)
	if err != nil {
		return false, fmt.Errorf("insert code: %w", err)
	}
	n, _ := res.RowsAffected()

	if keep < 0 {
		keep = 0
	}
	_, err = tx.ExecContext(ctx,
		`DELETE FROM twofa_codes WHERE id NOT IN (
			SELECT id FROM twofa_codes ORDER BY timestamp DESC, rowid DESC LIMIT ?
		)`, keep)
	if err != nil {
		return false, fmt.Errorf("prune codes: %w", err)
	}
	return n > 0, tx.Commit()
}

// ListCodes returns stored codes, newest first.
func (s *SQLiteStore) ListCodes(ctx context.Context) ([]model.TwoFACode, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, code, service, phone_number, message_text, timestamp, used
		 FROM twofa_codes ORDER BY timestamp DESC, rowid DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	codes := []model.TwoFACode{}
	for rows.Next() {
		var c model.TwoFACode
		var ts int64
		if err := rows.Scan(&c.ID, &c.Code, &c.Service, &c.PhoneNumber, &c.MessageText, &ts, &c.Used); err != nil {
			return nil, err
		}
		c.Timestamp = time.Unix(0, ts).UTC()
		codes = append(codes, c)
	}
	return codes, rows.Err()
}

// MarkUsed flags a code as consumed.
func (s *SQLiteStore) MarkUsed(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `UPDATE twofa_codes SET used = 1 WHERE id = ?`, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("code not found: %s", id)
	}
	return nil
}

// ClearCodes removes every stored code.
func (s *SQLiteStore) ClearCodes(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM twofa_codes`)
	return err
}

var _ CodeStore = (*SQLiteStore)(nil)
