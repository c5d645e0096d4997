// Package store は記事・ソース種別・OAuthユーザーの永続化インターフェースとモデルを定義する。
//
// 実装は本番用のMongoDB（internal/store/mongo）と、開発・テスト用の
// SQLite（internal/store/sqlite）の2種類がある。
package store
