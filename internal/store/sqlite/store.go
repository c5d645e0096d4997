package sqlite

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"time"

	"github.com/nao1215/nobiasmedia/internal/store"
	"github.com/nao1215/nobiasmedia/pkg/migration"
	_ "modernc.org/sqlite"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// Store はSQLiteを使ったstore.Storeの実装。
type Store struct {
	// db はSQLiteデータベース接続。
	db *sql.DB
}

var _ store.Store = (*Store)(nil)

// Open はSQLiteデータベースを開き、マイグレーションを適用する。
// dsnにはファイルパス、またはテスト用に ":memory:" を指定する。
func Open(ctx context.Context, dsn string) (*Store, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("データベース接続に失敗: %w", err)
	}
	// SQLiteの書き込みは1接続ずつ。インメモリDBも接続ごとに別物になるため1接続に固定する
	db.SetMaxOpenConns(1)

	if _, err := db.ExecContext(ctx, "PRAGMA foreign_keys = ON"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("外部キー制約の有効化に失敗: %w", err)
	}

	if err := migration.Run(ctx, db, migrationsFS, "migrations"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("スキーマ初期化に失敗: %w", err)
	}

	return &Store{db: db}, nil
}

// Close はデータベース接続を閉じる。
func (s *Store) Close() error {
	return s.db.Close()
}

// toNanos は時刻をUnixNanoに変換する。
func toNanos(t time.Time) int64 {
	return t.UTC().UnixNano()
}

// fromNanos はUnixNanoを時刻に変換する。
func fromNanos(n int64) time.Time {
	return time.Unix(0, n).UTC()
}
