package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
)

// Config はAPIサーバーの設定。
type Config struct {
	// Port はリッスンポート。
	Port string
	// MongoURI はMongoDBの接続URI。空の場合はSQLiteを使用する。
	MongoURI string
	// MongoDatabase はMongoDBのデータベース名。
	MongoDatabase string
	// SQLitePath はSQLiteのデータベースファイルパス。
	SQLitePath string
	// JWTSecret はアクセストークンの署名鍵。
	JWTSecret string
	// JWTRefreshSecret はリフレッシュトークンの署名鍵。
	JWTRefreshSecret string
	// AdminEmail は管理者のメールアドレス。
	AdminEmail string
	// AdminPassword は管理者のパスワード。起動時にbcryptハッシュ化して保持する。
	AdminPassword string
	// AllowedOrigins はCORSとWebSocketで許可するオリジン。
	AllowedOrigins []string
	// CookieSecure はセッションCookieにSecure属性を付けるかどうか。
	CookieSecure bool
	// GoogleVerify はGoogleサインイン時にuserinfoエンドポイントで検証するかどうか。
	GoogleVerify bool
	// GoogleUserInfoURL はGoogle userinfo APIのベースURL。
	GoogleUserInfoURL string
	// LegacyNotFoundStatus は記事が見つからない場合に404ではなく400を返すかどうか。
	LegacyNotFoundStatus bool
	// AllowCategoryUpdate は記事更新時にカテゴリの変更を許可するかどうか。
	AllowCategoryUpdate bool
}

// Load は環境変数から設定を読み込む。
func Load() (Config, error) {
	return load(os.Getenv)
}

// load はgetenvを使って設定を読み込む。
func load(getenv func(string) string) (Config, error) {
	cfg := Config{
		Port:              getEnvOr(getenv, "PORT", "5002"),
		MongoURI:          getenv("MONGODB_URI"),
		MongoDatabase:     getEnvOr(getenv, "MONGODB_DATABASE", "nobiasmedia"),
		SQLitePath:        getEnvOr(getenv, "SQLITE_PATH", "/data/nobiasmedia.db"),
		JWTSecret:         getEnvOr(getenv, "JWT_SECRET", "dev-secret-key"),
		JWTRefreshSecret:  getEnvOr(getenv, "JWT_REFRESH_SECRET", "dev-refresh-secret-key"),
		AdminEmail:        getEnvOr(getenv, "ADMIN_EMAIL", "admin@nbm.com"),
		AdminPassword:     getEnvOr(getenv, "ADMIN_PASSWORD", "maniisadmin"),
		AllowedOrigins:    splitList(getEnvOr(getenv, "FRONTEND_URL", "http://localhost:3000")),
		GoogleUserInfoURL: getEnvOr(getenv, "GOOGLE_USERINFO_URL", "https://www.googleapis.com"),
	}

	flags := []struct {
		key  string
		dest *bool
	}{
		{key: "COOKIE_SECURE", dest: &cfg.CookieSecure},
		{key: "GOOGLE_VERIFY", dest: &cfg.GoogleVerify},
		{key: "LEGACY_NOT_FOUND_STATUS", dest: &cfg.LegacyNotFoundStatus},
		{key: "ALLOW_CATEGORY_UPDATE", dest: &cfg.AllowCategoryUpdate},
	}
	for _, f := range flags {
		v, err := parseBool(getenv, f.key)
		if err != nil {
			return Config{}, err
		}
		*f.dest = v
	}

	if cfg.JWTSecret == cfg.JWTRefreshSecret {
		return Config{}, errors.New("JWT_SECRETとJWT_REFRESH_SECRETには異なる値を設定してください")
	}
	return cfg, nil
}

// getEnvOr は環境変数を取得し、設定されていない場合はデフォルト値を返す。
func getEnvOr(getenv func(string) string, key, defaultValue string) string {
	if v := getenv(key); v != "" {
		return v
	}
	return defaultValue
}

// parseBool は真偽値の環境変数を読み取る。未設定の場合はfalse。
func parseBool(getenv func(string) string, key string) (bool, error) {
	v := getenv(key)
	if v == "" {
		return false, nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return false, fmt.Errorf("環境変数%sの値が不正です（%q）: %w", key, v, err)
	}
	return b, nil
}

// splitList はカンマ区切りの値を分割し、空要素を除いて返す。
func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
