// Package sqlite はmodernc.org/sqliteを使ったstore.Storeの実装を提供する。
//
// ローカル開発とテストで使用する。スキーマはembedされたマイグレーションで管理する。
package sqlite
