package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/nao1215/nobiasmedia/internal/store"
)

// ListArticles は作成日時の新しい順に記事を返す。sourceカラムは読み込まない。
func (s *Store) ListArticles(ctx context.Context, filter store.ListFilter) ([]store.Article, int64, error) {
	where := ""
	var args []any
	if filter.Category != "" {
		// カテゴリは小文字で保存されるため、検索語も小文字にして比較する
		where = " WHERE category = ?"
		args = append(args, strings.ToLower(filter.Category))
	}

	var total int64
	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM articles"+where, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("記事件数の取得に失敗: %w", err)
	}

	limit := filter.Limit
	if limit <= 0 {
		limit = -1
	}
	offset := max(filter.Offset, 0)

	query := `SELECT id, title, content, summary, image_url, category, created_at, updated_at
		FROM articles` + where + `
		ORDER BY created_at DESC, rowid DESC
		LIMIT ? OFFSET ?`
	rows, err := s.db.QueryContext(ctx, query, append(args, limit, offset)...)
	if err != nil {
		return nil, 0, fmt.Errorf("記事一覧の取得に失敗: %w", err)
	}
	defer func() { _ = rows.Close() }()

	articles := make([]store.Article, 0)
	for rows.Next() {
		var a store.Article
		var createdAt, updatedAt int64
		if err := rows.Scan(&a.ID, &a.Title, &a.Content, &a.Summary, &a.ImageURL, &a.Category, &createdAt, &updatedAt); err != nil {
			return nil, 0, fmt.Errorf("記事の読み込みに失敗: %w", err)
		}
		a.CreatedAt = fromNanos(createdAt)
		a.UpdatedAt = fromNanos(updatedAt)
		articles = append(articles, a)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("記事一覧の読み込みに失敗: %w", err)
	}
	return articles, total, nil
}

// GetArticle は記事を1件取得する。
func (s *Store) GetArticle(ctx context.Context, id string) (*store.Article, error) {
	var a store.Article
	var source string
	var createdAt, updatedAt int64
	err := s.db.QueryRowContext(ctx, `SELECT id, title, content, summary, image_url, category, source, created_at, updated_at
		FROM articles WHERE id = ?`, id).
		Scan(&a.ID, &a.Title, &a.Content, &a.Summary, &a.ImageURL, &a.Category, &source, &createdAt, &updatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, store.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("記事の取得に失敗: %w", err)
	}

	if err := json.Unmarshal([]byte(source), &a.Source); err != nil {
		return nil, fmt.Errorf("sourceのデシリアライズに失敗: %w", err)
	}
	a.CreatedAt = fromNanos(createdAt)
	a.UpdatedAt = fromNanos(updatedAt)
	return &a, nil
}

// CreateArticle は記事を保存する。IDが空の場合はUUIDを割り当てる。
func (s *Store) CreateArticle(ctx context.Context, a *store.Article) error {
	if a.ID == "" {
		a.ID = uuid.New().String()
	}
	if a.CreatedAt.IsZero() {
		a.CreatedAt = time.Now().UTC()
	}
	a.UpdatedAt = a.CreatedAt

	source, err := marshalSource(a.Source)
	if err != nil {
		return err
	}

	if _, err := s.db.ExecContext(ctx, `INSERT INTO articles
		(id, title, content, summary, image_url, category, source, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		a.ID, a.Title, a.Content, a.Summary, a.ImageURL, a.Category, source, toNanos(a.CreatedAt), toNanos(a.UpdatedAt),
	); err != nil {
		return fmt.Errorf("記事の作成に失敗: %w", err)
	}
	return nil
}

// UpdateArticle は記事の内容を置き換え、UpdatedAtを更新する。
func (s *Store) UpdateArticle(ctx context.Context, a *store.Article) error {
	source, err := marshalSource(a.Source)
	if err != nil {
		return err
	}

	a.UpdatedAt = time.Now().UTC()
	res, err := s.db.ExecContext(ctx, `UPDATE articles
		SET title = ?, content = ?, summary = ?, image_url = ?, category = ?, source = ?, updated_at = ?
		WHERE id = ?`,
		a.Title, a.Content, a.Summary, a.ImageURL, a.Category, source, toNanos(a.UpdatedAt), a.ID,
	)
	if err != nil {
		return fmt.Errorf("記事の更新に失敗: %w", err)
	}
	return requireAffected(res)
}

// DeleteArticle は記事を1件削除する。
func (s *Store) DeleteArticle(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, "DELETE FROM articles WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("記事の削除に失敗: %w", err)
	}
	return requireAffected(res)
}

// DeleteArticles は指定した記事をまとめて削除する。存在しないIDは無視する。
func (s *Store) DeleteArticles(ctx context.Context, ids []string) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}

	placeholders := strings.TrimSuffix(strings.Repeat("?, ", len(ids)), ", ")
	args := make([]any, 0, len(ids))
	for _, id := range ids {
		args = append(args, id)
	}

	res, err := s.db.ExecContext(ctx, "DELETE FROM articles WHERE id IN ("+placeholders+")", args...)
	if err != nil {
		return 0, fmt.Errorf("記事の一括削除に失敗: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("削除件数の取得に失敗: %w", err)
	}
	return n, nil
}

// marshalSource はsourceをJSON配列に変換する。nilは空配列として保存する。
func marshalSource(source []store.SourceRef) (string, error) {
	if source == nil {
		source = []store.SourceRef{}
	}
	b, err := json.Marshal(source)
	if err != nil {
		return "", fmt.Errorf("sourceのシリアライズに失敗: %w", err)
	}
	return string(b), nil
}

// requireAffected は更新・削除の対象が存在したかを確認する。
func requireAffected(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("影響件数の取得に失敗: %w", err)
	}
	if n == 0 {
		return store.ErrNotFound
	}
	return nil
}
