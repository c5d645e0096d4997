package event

import (
	"encoding/json"
	"time"
)

// Type はリアルタイム配信するイベントの種類を表す。
// クライアントはこの値でイベントを振り分ける。
type Type string

const (
	// TypeNewArticle は記事が新しく公開されたことを表す。
	// クライアントは受信後に1ページ目を再取得する。
	TypeNewArticle Type = "newArticle"
)

// Event は接続中のクライアントへ配信するイベントの封筒。
type Event struct {
	// ID はイベントの一意識別子（UUID）。
	ID string `json:"id"`
	// Type はイベントの種類。
	Type Type `json:"event"`
	// Data はイベント固有のデータ（JSON形式）。
	Data json.RawMessage `json:"data"`
	// CreatedAt はイベントが作成された日時。
	CreatedAt time.Time `json:"createdAt"`
}

// NewArticleData はnewArticleイベントのデータ。
// 公開一覧と同じくsourceは含めない。
type NewArticleData struct {
	// ID は記事の識別子。
	ID string `json:"_id"`
	// Title は記事のタイトル。
	Title string `json:"title"`
	// Summary は記事の要約。
	Summary string `json:"summary"`
	// ImageURL は記事の画像URL。
	ImageURL string `json:"imageUrl"`
	// Category は記事のカテゴリ。
	Category string `json:"category"`
	// CreatedAt は記事の作成日時。
	CreatedAt time.Time `json:"createdAt"`
}
