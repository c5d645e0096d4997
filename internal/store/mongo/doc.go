// Package mongo はMongoDBを使ったstore.Storeの実装を提供する。
//
// コレクション名とフィールド名は既存のデータベースと互換性を保つため、
// news / sourcetypes / oauthusers とキャメルケースのフィールド名を使用する。
package mongo
