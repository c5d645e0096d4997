// Package token はアクセストークンとリフレッシュトークンの発行・検証を提供する。
//
// トークンはHS256で署名されたステートレスなJWTであり、サーバー側には保存しない。
// アクセストークンとリフレッシュトークンはそれぞれ独立した秘密鍵で署名する。
package token
