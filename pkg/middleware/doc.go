// Package middleware はGinベースのHTTP APIで使用する共通ミドルウェアを提供する。
//
// Cookieによるセッション検証と権限チェック、パニックリカバリ、
// 認証情報付きのCORS設定を含む。
package middleware
