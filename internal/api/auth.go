package api

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/nao1215/nobiasmedia/pkg/identity"
	"github.com/nao1215/nobiasmedia/pkg/middleware"
	"github.com/nao1215/nobiasmedia/pkg/token"
)

// loginRequest は管理者ログインのリクエストボディ。
type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// loginResponse は管理者ログインのレスポンス形式。
type loginResponse struct {
	Success      bool         `json:"success"`
	Message      string       `json:"message"`
	Token        string       `json:"token"`
	RefreshToken string       `json:"refreshToken"`
	User         userResponse `json:"user"`
}

// regenerateRequest はアクセストークン再発行のリクエストボディ。
type regenerateRequest struct {
	RefreshToken string `json:"refreshToken"`
}

// googleSignInRequest はGoogleサインインのペイロードのうち使用する項目。
// それ以外の項目はそのままサインイン履歴に保存する。
type googleSignInRequest struct {
	Email       string `json:"email"`
	Name        string `json:"name"`
	AccessToken string `json:"access_token"`
}

// handleLogin は管理者ログインを処理するハンドラを返す。
// 成功時はアクセストークンをCookieに設定し、リフレッシュトークンと共に返す。
func (s *Server) handleLogin() gin.HandlerFunc {
	return func(c *gin.Context) {
		var req loginRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			respondMessage(c, http.StatusBadRequest, "Invalid request body")
			return
		}

		id, err := s.identity.Authenticate(c.Request.Context(), req.Email, req.Password)
		if errors.Is(err, identity.ErrInvalidCredentials) {
			respondMessage(c, http.StatusUnauthorized, "Invalid Credentials")
			return
		}
		if err != nil {
			log.Printf("ログインエラー: %v", err)
			c.JSON(http.StatusInternalServerError, gin.H{"success": false, "message": "An error occurred during login"})
			return
		}

		access, err := s.tokens.IssueAccessToken(id.Email, id.Role)
		if err != nil {
			log.Printf("アクセストークン発行エラー: %v", err)
			c.JSON(http.StatusInternalServerError, gin.H{"success": false, "message": "An error occurred during login"})
			return
		}
		refresh, err := s.tokens.IssueRefreshToken(id.Email, id.Role)
		if err != nil {
			log.Printf("リフレッシュトークン発行エラー: %v", err)
			c.JSON(http.StatusInternalServerError, gin.H{"success": false, "message": "An error occurred during login"})
			return
		}

		middleware.SetSessionCookie(c, access, s.tokens.AccessTTL(), s.cookieSecure)
		c.JSON(http.StatusOK, loginResponse{
			Success:      true,
			Message:      "Login successful",
			Token:        access,
			RefreshToken: refresh,
			User:         userResponse{Email: id.Email, Role: string(id.Role)},
		})
	}
}

// handleRegenerateAccessToken はリフレッシュトークンからアクセストークンを再発行するハンドラを返す。
func (s *Server) handleRegenerateAccessToken() gin.HandlerFunc {
	return func(c *gin.Context) {
		var req regenerateRequest
		// ボディが不正な場合はトークン未指定として扱う
		_ = c.ShouldBindJSON(&req)

		access, _, err := s.tokens.Refresh(req.RefreshToken)
		switch {
		case errors.Is(err, token.ErrMissing):
			respondMessage(c, http.StatusUnauthorized, "Missing token")
			return
		case errors.Is(err, token.ErrInvalidOrExpired):
			respondMessage(c, http.StatusForbidden, "Invalid token")
			return
		case err != nil:
			log.Printf("アクセストークン再発行エラー: %v", err)
			respondMessage(c, http.StatusInternalServerError, "Internal Server Error")
			return
		}

		middleware.SetSessionCookie(c, access, s.tokens.AccessTTL(), s.cookieSecure)
		c.JSON(http.StatusCreated, gin.H{"accessToken": access})
	}
}

// handleVerifyAccessToken はセッションCookieのアクセストークンが有効か確認するハンドラを返す。
func (s *Server) handleVerifyAccessToken() gin.HandlerFunc {
	return func(c *gin.Context) {
		if _, ok := middleware.GetClaims(c); !ok {
			respondMessage(c, http.StatusUnauthorized, middleware.SessionErrorMessage(c))
			return
		}
		respondMessage(c, http.StatusOK, "Token is Valid")
	}
}

// handleGoogleSignIn はGoogleサインインを処理するハンドラを返す。
// ユーザーを登録（2回目以降は履歴を追記）し、user権限のアクセストークンをCookieに設定する。
// トークン自体はレスポンスボディに含めない。
func (s *Server) handleGoogleSignIn() gin.HandlerFunc {
	return func(c *gin.Context) {
		raw, err := c.GetRawData()
		if err != nil {
			respondMessage(c, http.StatusBadRequest, "Invalid request body")
			return
		}

		var req googleSignInRequest
		var payload map[string]json.RawMessage
		if err := json.Unmarshal(raw, &req); err != nil {
			respondMessage(c, http.StatusBadRequest, "Invalid request body")
			return
		}
		if err := json.Unmarshal(raw, &payload); err != nil {
			respondMessage(c, http.StatusBadRequest, "Invalid request body")
			return
		}

		email := strings.ToLower(strings.TrimSpace(req.Email))
		name := strings.TrimSpace(req.Name)
		if email == "" || name == "" {
			respondMessage(c, http.StatusBadRequest, "Email and Name are required")
			return
		}

		if s.verifier != nil {
			err := s.verifier.Verify(c.Request.Context(), req.AccessToken, email)
			if errors.Is(err, identity.ErrUnverified) {
				respondMessage(c, http.StatusUnauthorized, "Google Sign-In could not be verified")
				return
			}
			if err != nil {
				log.Printf("Googleサインイン検証エラー: %v", err)
				respondMessage(c, http.StatusBadGateway, "Google Sign-In verification is unavailable")
				return
			}
		}

		// プロバイダのアクセストークンは履歴に残さない
		delete(payload, "access_token")
		details, err := json.Marshal(payload)
		if err != nil {
			respondMessage(c, http.StatusBadRequest, "Invalid request body")
			return
		}

		user, err := s.store.UpsertOAuthUser(c.Request.Context(), email, name, details, time.Now().UTC())
		if err != nil {
			log.Printf("OAuthユーザー登録エラー: %v", err)
			respondMessage(c, http.StatusInternalServerError, "Internal Server Error")
			return
		}

		access, err := s.tokens.IssueAccessToken(user.Email, token.RoleUser)
		if err != nil {
			log.Printf("アクセストークン発行エラー: %v", err)
			respondMessage(c, http.StatusInternalServerError, "Internal Server Error")
			return
		}

		middleware.SetSessionCookie(c, access, s.tokens.AccessTTL(), s.cookieSecure)
		c.JSON(http.StatusOK, gin.H{
			"user":  userResponse{Email: user.Email, Name: user.Name, Role: string(token.RoleUser)},
			"token": "Active",
		})
	}
}

// handleLogout はセッションCookieを削除するハンドラを返す。
// トークンはステートレスなため、Cookieを持たないクライアント側のコピーは期限まで有効なまま。
func (s *Server) handleLogout() gin.HandlerFunc {
	return func(c *gin.Context) {
		middleware.ClearSessionCookie(c, s.cookieSecure)
		respondMessage(c, http.StatusOK, "Logged out")
	}
}
