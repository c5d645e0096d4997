package store

import (
	"context"
	"encoding/json"
	"errors"
	"time"
)

// ErrNotFound は指定したIDのドキュメントが存在しないことを表す。
var ErrNotFound = errors.New("not found")

// Article はニュース記事。
type Article struct {
	// ID は記事の識別子。
	ID string
	// Title は記事のタイトル。
	Title string
	// Content は記事の本文。
	Content string
	// Summary は記事の要約。
	Summary string
	// ImageURL は記事の画像URL。base64のdata URLの場合もある。
	ImageURL string
	// Category は小文字化されたカテゴリ。
	Category string
	// Source は引用元の一覧。一覧取得では読み込まない。
	Source []SourceRef
	// CreatedAt は作成日時。
	CreatedAt time.Time
	// UpdatedAt は更新日時。
	UpdatedAt time.Time
}

// SourceRef は記事が引用するソース。
type SourceRef struct {
	// SourceType はバイアスラベル（例: "Right / Traditionalist"）。
	SourceType string `json:"source_type" bson:"source_type"`
	// ID は参照するソース種別のID。
	ID string `json:"_id" bson:"_id"`
	// URL は引用元のURL。
	URL string `json:"url" bson:"url"`
}

// SourceType はソースに付与するバイアスラベル。
type SourceType struct {
	// ID はソース種別の識別子。
	ID string
	// Label はラベル文字列。
	Label string
	// CreatedAt は作成日時。
	CreatedAt time.Time
	// UpdatedAt は更新日時。
	UpdatedAt time.Time
}

// OAuthUser は外部ID（Google）でサインインしたユーザー。
type OAuthUser struct {
	// Email はユーザーを一意に識別するメールアドレス。
	Email string
	// Name は表示名。
	Name string
	// CreatedAt は初回サインイン日時。
	CreatedAt time.Time
	// UpdatedAt は最終サインイン日時。
	UpdatedAt time.Time
	// Logins はサインイン履歴。古い順に追記される。
	Logins []LoginEvent
}

// LoginEvent は1回分のサインイン記録。
type LoginEvent struct {
	// Date はサインイン日時。
	Date time.Time
	// Details はプロバイダから受け取った生のペイロード。
	Details json.RawMessage
}

// ListFilter は記事一覧の取得条件。
type ListFilter struct {
	// Category は大文字小文字を区別しない完全一致の条件。空の場合は全件。
	Category string
	// Offset は読み飛ばす件数。
	Offset int
	// Limit は取得する最大件数。
	Limit int
}

// ArticleStore は記事の永続化を行う。
type ArticleStore interface {
	// ListArticles は作成日時の新しい順に記事を返す。Sourceは読み込まない。
	// 2番目の戻り値は条件に一致する総件数。
	ListArticles(ctx context.Context, filter ListFilter) ([]Article, int64, error)
	// GetArticle は記事を1件取得する。存在しない場合はErrNotFoundを返す。
	GetArticle(ctx context.Context, id string) (*Article, error)
	// CreateArticle は記事を保存し、IDを設定する。
	CreateArticle(ctx context.Context, a *Article) error
	// UpdateArticle は記事の内容を置き換える。存在しない場合はErrNotFoundを返す。
	UpdateArticle(ctx context.Context, a *Article) error
	// DeleteArticle は記事を1件削除する。存在しない場合はErrNotFoundを返す。
	DeleteArticle(ctx context.Context, id string) error
	// DeleteArticles は指定した記事をまとめて削除し、削除件数を返す。
	DeleteArticles(ctx context.Context, ids []string) (int64, error)
}

// SourceTypeStore はソース種別の永続化を行う。
type SourceTypeStore interface {
	// ListSourceTypes は作成日時の新しい順にソース種別を返す。
	ListSourceTypes(ctx context.Context) ([]SourceType, error)
	// CreateSourceType はソース種別を保存し、IDを設定する。
	CreateSourceType(ctx context.Context, st *SourceType) error
}

// OAuthUserStore は外部IDユーザーの永続化を行う。
type OAuthUserStore interface {
	// UpsertOAuthUser は初回はユーザーを作成し、2回目以降はサインイン履歴を追記する。
	UpsertOAuthUser(ctx context.Context, email, name string, details json.RawMessage, at time.Time) (*OAuthUser, error)
	// GetOAuthUser はメールアドレスでユーザーを取得する。存在しない場合はErrNotFoundを返す。
	GetOAuthUser(ctx context.Context, email string) (*OAuthUser, error)
}

// Store は全ての永続化操作をまとめたもの。
type Store interface {
	ArticleStore
	SourceTypeStore
	OAuthUserStore
	// Close は接続を閉じる。
	Close() error
}
