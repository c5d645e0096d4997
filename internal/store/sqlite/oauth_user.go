package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/nao1215/nobiasmedia/internal/store"
)

// UpsertOAuthUser は初回サインインでユーザーを作成し、以降はサインイン履歴を追記する。
// 作成・更新と履歴の追記は1つのトランザクションで行う。
func (s *Store) UpsertOAuthUser(ctx context.Context, email, name string, details json.RawMessage, at time.Time) (*store.OAuthUser, error) {
	if len(details) == 0 {
		details = json.RawMessage("{}")
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("トランザクション開始に失敗: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	// 既存ユーザーは表示名と最終サインイン日時のみ更新し、作成日時は保持する
	if _, err := tx.ExecContext(ctx, `INSERT INTO oauth_users (email, name, created_at, updated_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(email) DO UPDATE SET name = excluded.name, updated_at = excluded.updated_at`,
		email, name, toNanos(at), toNanos(at),
	); err != nil {
		return nil, fmt.Errorf("OAuthユーザーの保存に失敗: %w", err)
	}

	if _, err := tx.ExecContext(ctx,
		"INSERT INTO oauth_login_events (email, logged_at, details) VALUES (?, ?, ?)",
		email, toNanos(at), string(details),
	); err != nil {
		return nil, fmt.Errorf("サインイン履歴の追記に失敗: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("トランザクションのコミットに失敗: %w", err)
	}

	return s.GetOAuthUser(ctx, email)
}

// GetOAuthUser はメールアドレスでユーザーとサインイン履歴を取得する。
func (s *Store) GetOAuthUser(ctx context.Context, email string) (*store.OAuthUser, error) {
	var u store.OAuthUser
	var createdAt, updatedAt int64
	err := s.db.QueryRowContext(ctx,
		"SELECT email, name, created_at, updated_at FROM oauth_users WHERE email = ?", email,
	).Scan(&u.Email, &u.Name, &createdAt, &updatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, store.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("OAuthユーザーの取得に失敗: %w", err)
	}
	u.CreatedAt = fromNanos(createdAt)
	u.UpdatedAt = fromNanos(updatedAt)

	rows, err := s.db.QueryContext(ctx,
		"SELECT logged_at, details FROM oauth_login_events WHERE email = ? ORDER BY id", email)
	if err != nil {
		return nil, fmt.Errorf("サインイン履歴の取得に失敗: %w", err)
	}
	defer func() { _ = rows.Close() }()

	u.Logins = make([]store.LoginEvent, 0)
	for rows.Next() {
		var loggedAt int64
		var details string
		if err := rows.Scan(&loggedAt, &details); err != nil {
			return nil, fmt.Errorf("サインイン履歴の読み込みに失敗: %w", err)
		}
		u.Logins = append(u.Logins, store.LoginEvent{
			Date:    fromNanos(loggedAt),
			Details: json.RawMessage(details),
		})
	}
	return &u, rows.Err()
}
