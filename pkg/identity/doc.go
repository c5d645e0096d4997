// Package identity は管理者の資格情報チェックと外部IDの検証を提供する。
//
// 資格情報のチェックはProviderインターフェースに委譲され、差し替え可能である。
// StaticProviderは単一の管理者アカウントをbcryptハッシュで保持する。
package identity
