package middleware

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/nao1215/nobiasmedia/pkg/token"
)

func init() {
	gin.SetMode(gin.TestMode)
}

// テスト用の署名鍵。
const (
	testAccessSecret  = "test-access-secret-for-middleware"
	testRefreshSecret = "test-refresh-secret-for-middleware"
)

// newSessionRouter はセッション検証付きのテスト用ルーターを生成する。
func newSessionRouter(tokens *token.Service, extra ...gin.HandlerFunc) *gin.Engine {
	router := gin.New()
	router.Use(Authenticate(tokens))
	handlers := append(extra, func(c *gin.Context) {
		claims, _ := GetClaims(c)
		c.JSON(http.StatusOK, gin.H{"email": claims.Email, "role": claims.Role})
	})
	router.GET("/protected", handlers...)
	return router
}

// messageOf はレスポンスボディのmessageを取り出す。
func messageOf(t *testing.T, w *httptest.ResponseRecorder) string {
	t.Helper()
	var body map[string]string
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("レスポンスボディのパースに失敗: %v", err)
	}
	return body["message"]
}

// TestRequireSession はRequireSessionミドルウェアを検証する。
func TestRequireSession(t *testing.T) {
	t.Parallel()

	tokens := token.NewService(testAccessSecret, testRefreshSecret)

	t.Run("有効なCookieで認証が成功すること", func(t *testing.T) {
		t.Parallel()

		access, err := tokens.IssueAccessToken("admin@nbm.com", token.RoleAdmin)
		if err != nil {
			t.Fatalf("IssueAccessToken()でエラーが発生: %v", err)
		}

		router := newSessionRouter(tokens, RequireSession())
		req := httptest.NewRequest(http.MethodGet, "/protected", nil)
		req.AddCookie(&http.Cookie{Name: SessionCookieName, Value: access})
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		if w.Code != http.StatusOK {
			t.Fatalf("ステータスコード = %d, want %d", w.Code, http.StatusOK)
		}
		var body map[string]string
		if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
			t.Fatalf("レスポンスボディのパースに失敗: %v", err)
		}
		if body["email"] != "admin@nbm.com" || body["role"] != "admin" {
			t.Errorf("body = %v, want email=admin@nbm.com role=admin", body)
		}
	})

	t.Run("Cookieが無い場合は401とMandatoryメッセージが返ること", func(t *testing.T) {
		t.Parallel()

		router := newSessionRouter(tokens, RequireSession())
		req := httptest.NewRequest(http.MethodGet, "/protected", nil)
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		if w.Code != http.StatusUnauthorized {
			t.Errorf("ステータスコード = %d, want %d", w.Code, http.StatusUnauthorized)
		}
		if got := messageOf(t, w); got != "Access Token is Mandatory" {
			t.Errorf("message = %q, want %q", got, "Access Token is Mandatory")
		}
	})

	t.Run("不正なトークンの場合は401とInvalidメッセージが返ること", func(t *testing.T) {
		t.Parallel()

		router := newSessionRouter(tokens, RequireSession())
		req := httptest.NewRequest(http.MethodGet, "/protected", nil)
		req.AddCookie(&http.Cookie{Name: SessionCookieName, Value: "garbage"})
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		if w.Code != http.StatusUnauthorized {
			t.Errorf("ステータスコード = %d, want %d", w.Code, http.StatusUnauthorized)
		}
		if got := messageOf(t, w); got != "Access Token is Invalid or Expired" {
			t.Errorf("message = %q, want %q", got, "Access Token is Invalid or Expired")
		}
	})

	t.Run("期限切れのトークンは拒否されること", func(t *testing.T) {
		t.Parallel()

		expired := token.NewService(testAccessSecret, testRefreshSecret, token.WithAccessTTL(-time.Minute))
		access, err := expired.IssueAccessToken("old@nbm.com", token.RoleAdmin)
		if err != nil {
			t.Fatalf("IssueAccessToken()でエラーが発生: %v", err)
		}

		router := newSessionRouter(tokens, RequireSession())
		req := httptest.NewRequest(http.MethodGet, "/protected", nil)
		req.AddCookie(&http.Cookie{Name: SessionCookieName, Value: access})
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		if w.Code != http.StatusUnauthorized {
			t.Errorf("ステータスコード = %d, want %d", w.Code, http.StatusUnauthorized)
		}
	})

	t.Run("リフレッシュトークンはセッションとして受理されないこと", func(t *testing.T) {
		t.Parallel()

		refresh, err := tokens.IssueRefreshToken("admin@nbm.com", token.RoleAdmin)
		if err != nil {
			t.Fatalf("IssueRefreshToken()でエラーが発生: %v", err)
		}

		router := newSessionRouter(tokens, RequireSession())
		req := httptest.NewRequest(http.MethodGet, "/protected", nil)
		req.AddCookie(&http.Cookie{Name: SessionCookieName, Value: refresh})
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		if w.Code != http.StatusUnauthorized {
			t.Errorf("ステータスコード = %d, want %d", w.Code, http.StatusUnauthorized)
		}
	})

	t.Run("Authorizationヘッダーのトークンは使用されないこと", func(t *testing.T) {
		t.Parallel()

		access, err := tokens.IssueAccessToken("admin@nbm.com", token.RoleAdmin)
		if err != nil {
			t.Fatalf("IssueAccessToken()でエラーが発生: %v", err)
		}

		router := newSessionRouter(tokens, RequireSession())
		req := httptest.NewRequest(http.MethodGet, "/protected", nil)
		req.Header.Set("Authorization", "Bearer "+access)
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		if w.Code != http.StatusUnauthorized {
			t.Errorf("ステータスコード = %d, want %d", w.Code, http.StatusUnauthorized)
		}
	})
}

// TestRequireRole はRequireRoleミドルウェアを検証する。
func TestRequireRole(t *testing.T) {
	t.Parallel()

	tokens := token.NewService(testAccessSecret, testRefreshSecret)

	tests := []struct {
		name     string
		role     token.Role
		wantCode int
	}{
		{name: "adminは通過できること", role: token.RoleAdmin, wantCode: http.StatusOK},
		{name: "userは401で拒否されること", role: token.RoleUser, wantCode: http.StatusUnauthorized},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			access, err := tokens.IssueAccessToken("someone@example.com", tt.role)
			if err != nil {
				t.Fatalf("IssueAccessToken()でエラーが発生: %v", err)
			}

			router := newSessionRouter(tokens, RequireSession(), RequireRole(token.RoleAdmin))
			req := httptest.NewRequest(http.MethodGet, "/protected", nil)
			req.AddCookie(&http.Cookie{Name: SessionCookieName, Value: access})
			w := httptest.NewRecorder()
			router.ServeHTTP(w, req)

			if w.Code != tt.wantCode {
				t.Fatalf("ステータスコード = %d, want %d", w.Code, tt.wantCode)
			}
			if tt.wantCode == http.StatusUnauthorized {
				if got := messageOf(t, w); got != "You are not Authorized!" {
					t.Errorf("message = %q, want %q", got, "You are not Authorized!")
				}
			}
		})
	}
}

// TestSessionCookie はセッションCookieの設定と削除を検証する。
func TestSessionCookie(t *testing.T) {
	t.Parallel()

	t.Run("http-onlyでCookieが設定されること", func(t *testing.T) {
		t.Parallel()

		router := gin.New()
		router.GET("/login", func(c *gin.Context) {
			SetSessionCookie(c, "tok", time.Hour, false)
			c.Status(http.StatusOK)
		})

		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/login", nil))

		header := w.Header().Get("Set-Cookie")
		if !strings.Contains(header, SessionCookieName+"=tok") {
			t.Errorf("Set-Cookie = %q, want %s=tok を含む", header, SessionCookieName)
		}
		if !strings.Contains(header, "HttpOnly") {
			t.Errorf("Set-Cookie = %q, want HttpOnly を含む", header)
		}
		if !strings.Contains(header, "Max-Age=3600") {
			t.Errorf("Set-Cookie = %q, want Max-Age=3600 を含む", header)
		}
	})

	t.Run("secure指定時はSecureとSameSite=Noneが付与されること", func(t *testing.T) {
		t.Parallel()

		router := gin.New()
		router.GET("/login", func(c *gin.Context) {
			SetSessionCookie(c, "tok", time.Hour, true)
			c.Status(http.StatusOK)
		})

		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/login", nil))

		header := w.Header().Get("Set-Cookie")
		if !strings.Contains(header, "Secure") || !strings.Contains(header, "SameSite=None") {
			t.Errorf("Set-Cookie = %q, want Secure と SameSite=None を含む", header)
		}
	})

	t.Run("ClearSessionCookieでCookieが失効すること", func(t *testing.T) {
		t.Parallel()

		router := gin.New()
		router.GET("/logout", func(c *gin.Context) {
			ClearSessionCookie(c, false)
			c.Status(http.StatusOK)
		})

		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/logout", nil))

		header := w.Header().Get("Set-Cookie")
		if !strings.Contains(header, SessionCookieName+"=;") || !strings.Contains(header, "Max-Age=0") {
			t.Errorf("Set-Cookie = %q, want 空の値と Max-Age=0", header)
		}
	})
}
