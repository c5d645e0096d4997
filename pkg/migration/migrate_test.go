package migration

import (
	"context"
	"database/sql"
	"testing"
	"testing/fstest"

	_ "modernc.org/sqlite"
)

// openTestDB はテスト用のインメモリSQLiteを開く。
func openTestDB(t *testing.T) *sql.DB {
	t.Helper()

	db, err := sql.Open("sqlite", ":memory:")
	if err != nil {
		t.Fatalf("インメモリDBの作成に失敗: %v", err)
	}
	// インメモリDBは接続ごとに別物になるため1接続に固定する
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = db.Close() })
	return db
}

// TestRun はマイグレーションの適用を検証する。
func TestRun(t *testing.T) {
	t.Parallel()

	t.Run("バージョン順に適用され、再実行してもスキップされること", func(t *testing.T) {
		t.Parallel()

		db := openTestDB(t)
		fsys := fstest.MapFS{
			"migrations/000002_add_body.up.sql":       {Data: []byte("ALTER TABLE notes ADD COLUMN body TEXT NOT NULL DEFAULT '';")},
			"migrations/000001_create_notes.up.sql":   {Data: []byte("CREATE TABLE notes (id TEXT PRIMARY KEY);")},
			"migrations/000001_create_notes.down.sql": {Data: []byte("DROP TABLE notes;")},
			"migrations/README.md":                    {Data: []byte("ignored")},
		}

		ctx := context.Background()
		if err := Run(ctx, db, fsys, "migrations"); err != nil {
			t.Fatalf("Run()でエラーが発生: %v", err)
		}
		if err := Run(ctx, db, fsys, "migrations"); err != nil {
			t.Fatalf("2回目のRun()でエラーが発生: %v", err)
		}

		applied, err := AppliedVersions(ctx, db)
		if err != nil {
			t.Fatalf("AppliedVersions()でエラーが発生: %v", err)
		}
		if len(applied) != 2 || !applied[1] || !applied[2] {
			t.Errorf("applied = %v, want {1, 2}", applied)
		}

		if _, err := db.ExecContext(ctx, "INSERT INTO notes (id, body) VALUES ('a', 'b')"); err != nil {
			t.Errorf("マイグレーション後のテーブルに挿入できない: %v", err)
		}
	})

	t.Run("不正なSQLの場合はエラーになりバージョンが記録されないこと", func(t *testing.T) {
		t.Parallel()

		db := openTestDB(t)
		fsys := fstest.MapFS{
			"m/000001_broken.up.sql": {Data: []byte("CREATE TABLE;")},
		}

		ctx := context.Background()
		if err := Run(ctx, db, fsys, "m"); err == nil {
			t.Fatal("Run()がエラーを返すべきだが、nilが返った")
		}

		applied, err := AppliedVersions(ctx, db)
		if err != nil {
			t.Fatalf("AppliedVersions()でエラーが発生: %v", err)
		}
		if applied[1] {
			t.Error("失敗したマイグレーションが記録されている")
		}
	})

	t.Run("バージョンが重複している場合はエラーになること", func(t *testing.T) {
		t.Parallel()

		db := openTestDB(t)
		fsys := fstest.MapFS{
			"m/000001_a.up.sql": {Data: []byte("CREATE TABLE a (id TEXT);")},
			"m/1_b.up.sql":      {Data: []byte("CREATE TABLE b (id TEXT);")},
		}

		if err := Run(context.Background(), db, fsys, "m"); err == nil {
			t.Fatal("Run()がエラーを返すべきだが、nilが返った")
		}
	})
}
