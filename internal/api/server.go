package api

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/nao1215/nobiasmedia/internal/store"
	"github.com/nao1215/nobiasmedia/pkg/event"
	"github.com/nao1215/nobiasmedia/pkg/identity"
	"github.com/nao1215/nobiasmedia/pkg/metrics"
	"github.com/nao1215/nobiasmedia/pkg/middleware"
	"github.com/nao1215/nobiasmedia/pkg/token"
)

// maxBodyBytes はリクエストボディの上限。記事画像をbase64で受け取るため大きめにしている。
const maxBodyBytes = 50 << 20

// Notifier は接続中のクライアントへイベントを配信する。
type Notifier interface {
	// Broadcast はイベントを配信する。呼び出し元をブロックしてはならない。
	Broadcast(e *event.Event)
}

// Options はServerの構成要素と設定。
type Options struct {
	// Port はリッスンポート。
	Port string
	// Store は記事・ソース種別・OAuthユーザーの永続化先。
	Store store.Store
	// Tokens はアクセストークンとリフレッシュトークンの発行・検証を行う。
	Tokens *token.Service
	// Identity は管理者ログインの資格情報を検証する。
	Identity identity.Provider
	// Verifier はGoogleサインインのペイロードを検証する。nilの場合は検証しない。
	Verifier identity.Verifier
	// Notifier は記事作成時のイベント配信先。nilの場合は配信しない。
	Notifier Notifier
	// Realtime は GET /ws で公開するWebSocketハンドラー。nilの場合はルートを登録しない。
	Realtime http.Handler
	// Metrics はPrometheusメトリクス。nilの場合は新しく生成する。
	Metrics *metrics.Metrics
	// AllowedOrigins はCORSで許可するオリジン。
	AllowedOrigins []string
	// CookieSecure はセッションCookieにSecure属性を付けるかどうか。
	CookieSecure bool
	// LegacyNotFoundStatus は記事が見つからない場合に404ではなく400を返すかどうか。
	LegacyNotFoundStatus bool
	// AllowCategoryUpdate は記事更新時にカテゴリの変更を許可するかどうか。
	AllowCategoryUpdate bool
}

// Server はnobiasmedia APIのHTTPサーバー。
type Server struct {
	// router はGinのHTTPルーター。
	router *gin.Engine
	// port はサーバーのリッスンポート。
	port string
	// store は永続化先。
	store store.Store
	// tokens はトークンサービス。
	tokens *token.Service
	// identity は管理者の資格情報プロバイダ。
	identity identity.Provider
	// verifier はGoogleサインインの検証器。
	verifier identity.Verifier
	// notifier はイベント配信先。
	notifier Notifier
	// realtime はWebSocketハンドラー。
	realtime http.Handler
	// metrics はPrometheusメトリクス。
	metrics *metrics.Metrics
	// cookieSecure はCookieのSecure属性。
	cookieSecure bool
	// legacyNotFoundStatus は404の代わりに400を返すかどうか。
	legacyNotFoundStatus bool
	// allowCategoryUpdate は更新時のカテゴリ変更を許可するかどうか。
	allowCategoryUpdate bool
}

// NewServer は新しいAPIサーバーを生成する。
func NewServer(opts Options) (*Server, error) {
	if opts.Store == nil {
		return nil, errors.New("storeが指定されていません")
	}
	if opts.Tokens == nil {
		return nil, errors.New("トークンサービスが指定されていません")
	}
	if opts.Identity == nil {
		return nil, errors.New("資格情報プロバイダが指定されていません")
	}
	if opts.Metrics == nil {
		opts.Metrics = metrics.New()
	}

	router := gin.New()
	router.Use(middleware.Recovery())
	router.Use(gin.Logger())
	router.Use(opts.Metrics.Middleware())
	router.Use(middleware.CORS(opts.AllowedOrigins))
	router.Use(limitBody(maxBodyBytes))

	s := &Server{
		router:               router,
		port:                 opts.Port,
		store:                opts.Store,
		tokens:               opts.Tokens,
		identity:             opts.Identity,
		verifier:             opts.Verifier,
		notifier:             opts.Notifier,
		realtime:             opts.Realtime,
		metrics:              opts.Metrics,
		cookieSecure:         opts.CookieSecure,
		legacyNotFoundStatus: opts.LegacyNotFoundStatus,
		allowCategoryUpdate:  opts.AllowCategoryUpdate,
	}
	s.setupRoutes()

	return s, nil
}

// Run はHTTPサーバーを起動する。
func (s *Server) Run() error {
	return s.router.Run(fmt.Sprintf(":%s", s.port))
}

// setupRoutes はAPIルーティングを設定する。
func (s *Server) setupRoutes() {
	s.router.GET("/", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"message": "Welcome to Nobiasmedia API"})
	})

	// ヘルスチェック
	s.router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok", "service": "nobiasmedia-api"})
	})
	s.router.GET("/metrics", gin.WrapH(s.metrics.Handler()))

	// 新着記事のリアルタイム通知
	if s.realtime != nil {
		s.router.GET("/ws", gin.WrapH(s.realtime))
	}

	api := s.router.Group("/api")
	api.Use(middleware.Authenticate(s.tokens))

	// 認証エンドポイント（認証不要）
	auth := api.Group("/auth")
	{
		auth.POST("/login", s.handleLogin())
		auth.POST("/regenerateAccessToken", s.handleRegenerateAccessToken())
		auth.POST("/verifyAccessToken", s.handleVerifyAccessToken())
		auth.POST("/googleSignIn", s.handleGoogleSignIn())
		auth.POST("/logout", s.handleLogout())
	}

	// 公開エンドポイント
	api.GET("/news", s.handleListNews())
	api.GET("/news/:id", s.handleGetNews())
	api.GET("/category/:cat", s.handleListByCategory())
	api.GET("/source", s.handleListSourceTypes())

	// 管理者専用エンドポイント
	admin := api.Group("", middleware.RequireSession(), middleware.RequireRole(token.RoleAdmin))
	{
		admin.POST("/news", s.handleCreateNews())
		admin.PUT("/news", s.handleUpdateNews())
		admin.DELETE("/news/:id", s.handleDeleteNews())
		admin.DELETE("/news", s.handleDeleteNewsBulk())
		admin.POST("/source", s.handleCreateSourceType())
	}
}

// limitBody はリクエストボディのサイズを制限するGinミドルウェアを返す。
func limitBody(n int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.Request.Body != nil {
			c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, n)
		}
		c.Next()
	}
}

// respondMessage はメッセージを {"message": ...} 形式で返す。
func respondMessage(c *gin.Context, status int, message string) {
	c.JSON(status, gin.H{"message": message})
}

// notFoundStatus は記事が見つからない場合のステータスコードを返す。
func (s *Server) notFoundStatus() int {
	if s.legacyNotFoundStatus {
		return http.StatusBadRequest
	}
	return http.StatusNotFound
}
