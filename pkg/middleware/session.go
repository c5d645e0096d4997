package middleware

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/nao1215/nobiasmedia/pkg/token"
)

// SessionCookieName はアクセストークンを運ぶhttp-only Cookieの名前。
const SessionCookieName = "access_token"

// コンテキストキー。
const (
	contextKeyClaims       = "session_claims"
	contextKeySessionError = "session_error"
)

// エラーメッセージ。既存クライアントとの互換のため英語のまま返す。
const (
	msgTokenMandatory = "Access Token is Mandatory"
	msgTokenInvalid   = "Access Token is Invalid or Expired"
	msgNotAuthorized  = "You are not Authorized!"
)

// Authenticate はセッションCookieのアクセストークンを検証するGinミドルウェアを返す。
// リクエストは中断せず、検証結果（クレームまたはエラー）をコンテキストに格納する。
// セッションが必須かどうかはRequireSessionやハンドラー側で判断する。
func Authenticate(tokens *token.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		raw, err := c.Cookie(SessionCookieName)
		if err != nil {
			raw = ""
		}

		claims, err := tokens.VerifyAccessToken(raw)
		if err != nil {
			c.Set(contextKeySessionError, err)
		} else {
			c.Set(contextKeyClaims, claims)
		}
		c.Next()
	}
}

// RequireSession は有効なセッションがない場合に401で中断するGinミドルウェアを返す。
// Authenticateが事前に適用されている必要がある。
func RequireSession() gin.HandlerFunc {
	return func(c *gin.Context) {
		if _, ok := GetClaims(c); ok {
			c.Next()
			return
		}
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"message": SessionErrorMessage(c)})
	}
}

// RequireRole はセッションの権限がroleでない場合に401で中断するGinミドルウェアを返す。
// RequireSessionの後に適用する。
func RequireRole(role token.Role) gin.HandlerFunc {
	return func(c *gin.Context) {
		claims, ok := GetClaims(c)
		if !ok || claims.Role != role {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"message": msgNotAuthorized})
			return
		}
		c.Next()
	}
}

// GetClaims はGinコンテキストから検証済みのクレームを取得する。
func GetClaims(c *gin.Context) (*token.Claims, bool) {
	v, ok := c.Get(contextKeyClaims)
	if !ok {
		return nil, false
	}
	claims, ok := v.(*token.Claims)
	return claims, ok && claims != nil
}

// SessionErrorMessage はセッション検証の失敗理由をクライアント向けのメッセージにして返す。
func SessionErrorMessage(c *gin.Context) string {
	v, _ := c.Get(contextKeySessionError)
	if err, ok := v.(error); ok && !errors.Is(err, token.ErrMissing) {
		return msgTokenInvalid
	}
	return msgTokenMandatory
}

// SetSessionCookie はアクセストークンをhttp-only Cookieとしてレスポンスに設定する。
func SetSessionCookie(c *gin.Context, accessToken string, ttl time.Duration, secure bool) {
	c.SetSameSite(sameSite(secure))
	c.SetCookie(SessionCookieName, accessToken, int(ttl.Seconds()), "/", "", secure, true)
}

// ClearSessionCookie はセッションCookieを削除する。
func ClearSessionCookie(c *gin.Context, secure bool) {
	c.SetSameSite(sameSite(secure))
	c.SetCookie(SessionCookieName, "", -1, "/", "", secure, true)
}

// sameSite はSecure属性に応じたSameSite属性を返す。
// クロスサイトでCookieを送るにはSameSite=NoneとSecureの両方が必要になる。
func sameSite(secure bool) http.SameSite {
	if secure {
		return http.SameSiteNoneMode
	}
	return http.SameSiteLaxMode
}
