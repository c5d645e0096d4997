// nobiasmedia APIサーバーのエントリポイント。
// 記事とソース種別のCRUD、管理者ログインとGoogleサインイン、
// 新着記事のリアルタイム通知を1つのプロセスで提供する。
package main

import (
	"context"
	"log"

	"github.com/nao1215/nobiasmedia/internal/api"
	"github.com/nao1215/nobiasmedia/internal/config"
	"github.com/nao1215/nobiasmedia/internal/realtime"
	"github.com/nao1215/nobiasmedia/internal/store"
	mongostore "github.com/nao1215/nobiasmedia/internal/store/mongo"
	sqlitestore "github.com/nao1215/nobiasmedia/internal/store/sqlite"
	"github.com/nao1215/nobiasmedia/pkg/identity"
	"github.com/nao1215/nobiasmedia/pkg/metrics"
	"github.com/nao1215/nobiasmedia/pkg/token"
	"golang.org/x/crypto/bcrypt"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("設定の読み込みに失敗: %v", err)
	}

	st, err := openStore(context.Background(), cfg)
	if err != nil {
		log.Fatalf("データベース接続に失敗: %v", err)
	}
	defer st.Close()

	provider, err := identity.NewStaticProvider(cfg.AdminEmail, cfg.AdminPassword, bcrypt.DefaultCost)
	if err != nil {
		log.Fatalf("管理者アカウントの初期化に失敗: %v", err)
	}

	var verifier identity.Verifier
	if cfg.GoogleVerify {
		verifier = identity.NewGoogleVerifier(cfg.GoogleUserInfoURL)
		log.Printf("Googleサインインをuserinfoエンドポイントで検証します: %s", cfg.GoogleUserInfoURL)
	}

	m := metrics.New()
	hub := realtime.NewHub(cfg.AllowedOrigins, realtime.WithClientCountHook(m.SetRealtimeClients))
	defer hub.Close()

	server, err := api.NewServer(api.Options{
		Port:                 cfg.Port,
		Store:                st,
		Tokens:               token.NewService(cfg.JWTSecret, cfg.JWTRefreshSecret),
		Identity:             provider,
		Verifier:             verifier,
		Notifier:             hub,
		Realtime:             hub,
		Metrics:              m,
		AllowedOrigins:       cfg.AllowedOrigins,
		CookieSecure:         cfg.CookieSecure,
		LegacyNotFoundStatus: cfg.LegacyNotFoundStatus,
		AllowCategoryUpdate:  cfg.AllowCategoryUpdate,
	})
	if err != nil {
		log.Fatalf("APIサーバーの初期化に失敗: %v", err)
	}

	log.Printf("nobiasmedia APIサーバーを起動します: :%s", cfg.Port)
	if err := server.Run(); err != nil {
		log.Fatalf("APIサーバーの起動に失敗: %v", err)
	}
}

// openStore はMONGODB_URIが設定されていればMongoDB、そうでなければSQLiteを開く。
func openStore(ctx context.Context, cfg config.Config) (store.Store, error) {
	if cfg.MongoURI != "" {
		log.Printf("MongoDBに接続します: database=%s", cfg.MongoDatabase)
		return mongostore.Open(ctx, cfg.MongoURI, cfg.MongoDatabase)
	}
	log.Printf("SQLiteを使用します: %s", cfg.SQLitePath)
	return sqlitestore.Open(ctx, cfg.SQLitePath)
}
