package identity

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/nao1215/nobiasmedia/pkg/httpclient"
)

// DefaultGoogleUserInfoURL はGoogleのuserinfoエンドポイントのベースURL。
const DefaultGoogleUserInfoURL = "https://www.googleapis.com"

// ErrUnverified は外部IDの検証に失敗したことを表す。
var ErrUnverified = errors.New("external identity could not be verified")

// Verifier はクライアントから送られた外部IDのペイロードを検証する。
type Verifier interface {
	// Verify はaccessTokenの所有者がemailであることを確認する。
	Verify(ctx context.Context, accessToken, email string) error
}

// GoogleVerifier はGoogleのuserinfoエンドポイントでアクセストークンを検証する。
type GoogleVerifier struct {
	// client はuserinfoエンドポイントへのHTTPクライアント。
	client *httpclient.Client
}

// googleUserInfo はuserinfoエンドポイントのレスポンスのうち使用する項目。
type googleUserInfo struct {
	// Email はトークン所有者のメールアドレス。
	Email string `json:"email"`
	// EmailVerified はGoogleがメールアドレスを確認済みかどうか。
	EmailVerified bool `json:"email_verified"`
}

// NewGoogleVerifier は新しいGoogleVerifierを生成する。
func NewGoogleVerifier(baseURL string) *GoogleVerifier {
	if baseURL == "" {
		baseURL = DefaultGoogleUserInfoURL
	}
	return &GoogleVerifier{client: httpclient.New(strings.TrimRight(baseURL, "/"))}
}

// Verify はアクセストークンでuserinfoを取得し、メールアドレスが一致するか確認する。
func (v *GoogleVerifier) Verify(ctx context.Context, accessToken, email string) error {
	if accessToken == "" {
		return fmt.Errorf("%w: access_tokenがありません", ErrUnverified)
	}

	var info googleUserInfo
	err := v.client.GetJSON(httpclient.WithBearerToken(ctx, accessToken), "/oauth2/v3/userinfo", &info)
	var statusErr *httpclient.StatusError
	if errors.As(err, &statusErr) {
		return fmt.Errorf("%w: userinfoがstatus=%dを返しました", ErrUnverified, statusErr.StatusCode)
	}
	if err != nil {
		return fmt.Errorf("userinfoの取得に失敗: %w", err)
	}

	if !info.EmailVerified || !strings.EqualFold(info.Email, email) {
		return fmt.Errorf("%w: メールアドレスが一致しません", ErrUnverified)
	}
	return nil
}
