package sqlite

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/nao1215/nobiasmedia/internal/store"
)

// ListSourceTypes は作成日時の新しい順にソース種別を返す。
func (s *Store) ListSourceTypes(ctx context.Context) ([]store.SourceType, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id, source_type, created_at, updated_at
		FROM source_types ORDER BY created_at DESC, rowid DESC`)
	if err != nil {
		return nil, fmt.Errorf("ソース種別一覧の取得に失敗: %w", err)
	}
	defer func() { _ = rows.Close() }()

	sourceTypes := make([]store.SourceType, 0)
	for rows.Next() {
		var st store.SourceType
		var createdAt, updatedAt int64
		if err := rows.Scan(&st.ID, &st.Label, &createdAt, &updatedAt); err != nil {
			return nil, fmt.Errorf("ソース種別の読み込みに失敗: %w", err)
		}
		st.CreatedAt = fromNanos(createdAt)
		st.UpdatedAt = fromNanos(updatedAt)
		sourceTypes = append(sourceTypes, st)
	}
	return sourceTypes, rows.Err()
}

// CreateSourceType はソース種別を保存する。
func (s *Store) CreateSourceType(ctx context.Context, st *store.SourceType) error {
	if st.ID == "" {
		st.ID = uuid.New().String()
	}
	if st.CreatedAt.IsZero() {
		st.CreatedAt = time.Now().UTC()
	}
	st.UpdatedAt = st.CreatedAt

	if _, err := s.db.ExecContext(ctx,
		"INSERT INTO source_types (id, source_type, created_at, updated_at) VALUES (?, ?, ?, ?)",
		st.ID, st.Label, toNanos(st.CreatedAt), toNanos(st.UpdatedAt),
	); err != nil {
		return fmt.Errorf("ソース種別の作成に失敗: %w", err)
	}
	return nil
}
