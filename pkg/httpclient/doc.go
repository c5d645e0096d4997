// Package httpclient は外部HTTP APIを呼び出すJSONクライアントを提供する。
//
// Googleのuserinfoエンドポイントのように、Bearerトークンで認可される
// JSON APIとの通信パターンを統一する。
package httpclient
