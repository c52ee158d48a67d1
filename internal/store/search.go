package store

import (
	"context"
	"strings"

	"github.com/rcliao/msg-memory/internal/model"
)

// QueryRelevant finds the newest items outside the excluded conversation
// whose extracted text, original text or category contains the query.
func (s *SQLiteStore) QueryRelevant(ctx context.Context, p RelevantParams) ([]model.MemoryItem, error) {
	limit := p.Limit
	if limit <= 0 {
		limit = DefaultRelevantLimit
	}

	where := []string{"1 = 1"}
	var args []any
	if p.ExcludeConversationID != "" {
		where = append(where, "conversation_id != ?")
		args = append(args, p.ExcludeConversationID)
	}

	// lower() in SQLite only folds ASCII, so the text match runs in Go.
	query := strings.ToLower(strings.TrimSpace(p.Query))

	rows, err := s.db.QueryContext(ctx,
		`SELECT `+memoryColumns+` FROM memory_items
		 WHERE `+strings.Join(where, " AND ")+`
		 ORDER BY created_at DESC, seq DESC`, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []model.MemoryItem{}
	for rows.Next() && len(out) < limit {
		it, err := scanMemory(rows)
		if err != nil {
			return nil, err
		}
		if query != "" && !matchesQuery(it, query) {
			continue
		}
		out = append(out, it)
	}
	return out, rows.Err()
}
