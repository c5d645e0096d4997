package api

import (
	"errors"
	"log"
	"math"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/nao1215/nobiasmedia/internal/store"
	"github.com/nao1215/nobiasmedia/pkg/event"
	"github.com/nao1215/nobiasmedia/pkg/middleware"
)

const (
	// pageSize は1ページあたりの記事数。
	pageSize = 10
	// placeholderImageURL は画像未指定時に使うプレースホルダー画像のURL接頭辞。
	placeholderImageURL = "https://placehold.co/300x200?text="
)

// createArticleRequest は記事作成のリクエストボディ。
type createArticleRequest struct {
	Title    string            `json:"title" binding:"required"`
	Content  string            `json:"content" binding:"required"`
	Summary  string            `json:"summary" binding:"required"`
	ImageURL string            `json:"imageUrl"`
	Category string            `json:"category" binding:"required"`
	Source   []store.SourceRef `json:"source"`
}

// updateArticleRequest は記事更新のリクエストボディ。
// 空のフィールドは既存の値を維持する。sourceは省略時のみ既存の値を維持する。
type updateArticleRequest struct {
	ID       string             `json:"_id"`
	Title    string             `json:"title"`
	Content  string             `json:"content"`
	Summary  string             `json:"summary"`
	ImageURL string             `json:"imageUrl"`
	Category string             `json:"category"`
	Source   *[]store.SourceRef `json:"source"`
}

// deleteArticlesRequest は記事一括削除のリクエストボディ。
type deleteArticlesRequest struct {
	IDs []string `json:"_id"`
}

// handleListNews は記事一覧を新しい順に返すハンドラを返す。sourceは含めない。
func (s *Server) handleListNews() gin.HandlerFunc {
	return func(c *gin.Context) {
		s.listArticles(c, "")
	}
}

// handleListByCategory は指定カテゴリの記事一覧を返すハンドラを返す。
// カテゴリは大文字小文字を区別せず完全一致で比較する。
func (s *Server) handleListByCategory() gin.HandlerFunc {
	return func(c *gin.Context) {
		category := strings.TrimSpace(c.Param("cat"))
		if category == "" {
			respondMessage(c, http.StatusBadRequest, "Category is Mandatory!")
			return
		}
		s.listArticles(c, category)
	}
}

// listArticles はページング付きの記事一覧を返す共通処理。
func (s *Server) listArticles(c *gin.Context, category string) {
	page := parsePage(c.Query("page"))

	articles, total, err := s.store.ListArticles(c.Request.Context(), store.ListFilter{
		Category: category,
		Offset:   pageOffset(page),
		Limit:    pageSize,
	})
	if err != nil {
		log.Printf("記事一覧取得エラー: %v", err)
		respondMessage(c, http.StatusInternalServerError, "Internal Server Error")
		return
	}

	responses := make([]articleResponse, 0, len(articles))
	for i := range articles {
		responses = append(responses, toArticleResponse(&articles[i], false))
	}

	c.JSON(http.StatusOK, listResponse{
		Articles:    responses,
		CurrentPage: page,
		TotalPages:  (total + pageSize - 1) / pageSize,
	})
}

// parsePage はpageクエリを解釈する。未指定・不正値・1未満は1とする。
func parsePage(raw string) int {
	page, err := strconv.Atoi(raw)
	if err != nil || page < 1 {
		return 1
	}
	return page
}

// pageOffset はページ番号を取得開始位置に変換する。
// intに収まらない位置は math.MaxInt とし、空の一覧を返させる。
func pageOffset(page int) int {
	if page-1 > math.MaxInt/pageSize {
		return math.MaxInt
	}
	return (page - 1) * pageSize
}

// handleGetNews は記事を1件返すハンドラを返す。
// source=true の場合は有効なセッションが必要で、sourceを含めて返す。
func (s *Server) handleGetNews() gin.HandlerFunc {
	return func(c *gin.Context) {
		withSource := c.Query("source") == "true"
		if withSource {
			if _, ok := middleware.GetClaims(c); !ok {
				respondMessage(c, http.StatusUnauthorized, middleware.SessionErrorMessage(c))
				return
			}
		}

		article, err := s.store.GetArticle(c.Request.Context(), c.Param("id"))
		if errors.Is(err, store.ErrNotFound) {
			respondMessage(c, s.notFoundStatus(), "Article not found")
			return
		}
		if err != nil {
			log.Printf("記事取得エラー: %v", err)
			respondMessage(c, http.StatusInternalServerError, "Internal Server Error")
			return
		}

		c.JSON(http.StatusOK, toArticleResponse(article, withSource))
	}
}

// handleCreateNews は記事を作成するハンドラを返す。
// 作成後、接続中のクライアントへnewArticleイベントを配信する。
func (s *Server) handleCreateNews() gin.HandlerFunc {
	return func(c *gin.Context) {
		var req createArticleRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			respondMessage(c, http.StatusBadRequest, "Missing required fields")
			return
		}

		article := &store.Article{
			Title:    strings.TrimSpace(req.Title),
			Content:  strings.TrimSpace(req.Content),
			Summary:  strings.TrimSpace(req.Summary),
			ImageURL: strings.TrimSpace(req.ImageURL),
			Category: strings.ToLower(strings.TrimSpace(req.Category)),
			Source:   trimSources(req.Source),
		}
		if article.Title == "" || article.Content == "" || article.Summary == "" || article.Category == "" {
			respondMessage(c, http.StatusBadRequest, "Missing required fields")
			return
		}
		if article.ImageURL == "" {
			article.ImageURL = placeholderImageURL + strings.ReplaceAll(article.Title, " ", "+")
		}

		if err := s.store.CreateArticle(c.Request.Context(), article); err != nil {
			log.Printf("記事作成エラー: %v", err)
			respondMessage(c, http.StatusInternalServerError, "Internal Server Error")
			return
		}
		log.Printf("記事を作成しました: id=%s, title=%s", article.ID, article.Title)

		s.metrics.ArticleCreated()
		s.notifyNewArticle(article)

		c.JSON(http.StatusCreated, toArticleResponse(article, true))
	}
}

// notifyNewArticle はnewArticleイベントを配信する。sourceは含めない。
func (s *Server) notifyNewArticle(a *store.Article) {
	if s.notifier == nil {
		return
	}

	e, err := event.New(event.TypeNewArticle, event.NewArticleData{
		ID:        a.ID,
		Title:     a.Title,
		Summary:   a.Summary,
		ImageURL:  a.ImageURL,
		Category:  a.Category,
		CreatedAt: a.CreatedAt,
	})
	if err != nil {
		log.Printf("イベント生成エラー: %v", err)
		return
	}
	s.notifier.Broadcast(e)
}

// handleUpdateNews は記事を部分更新するハンドラを返す。
func (s *Server) handleUpdateNews() gin.HandlerFunc {
	return func(c *gin.Context) {
		var req updateArticleRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			respondMessage(c, http.StatusBadRequest, "Invalid request body")
			return
		}
		if strings.TrimSpace(req.ID) == "" {
			respondMessage(c, http.StatusBadRequest, "Article Id Required")
			return
		}

		article, err := s.store.GetArticle(c.Request.Context(), strings.TrimSpace(req.ID))
		if errors.Is(err, store.ErrNotFound) {
			respondMessage(c, s.notFoundStatus(), "Article not found")
			return
		}
		if err != nil {
			log.Printf("記事取得エラー: %v", err)
			respondMessage(c, http.StatusInternalServerError, "Internal Server Error")
			return
		}

		s.applyUpdate(article, &req)

		err = s.store.UpdateArticle(c.Request.Context(), article)
		if errors.Is(err, store.ErrNotFound) {
			// 取得から更新までの間に削除された
			respondMessage(c, s.notFoundStatus(), "Article not found")
			return
		}
		if err != nil {
			log.Printf("記事更新エラー: %v", err)
			respondMessage(c, http.StatusInternalServerError, "Internal Server Error")
			return
		}

		c.JSON(http.StatusOK, toArticleResponse(article, true))
	}
}

// applyUpdate はリクエストの値を記事に反映する。空の値は既存の値を維持する。
// カテゴリはallowCategoryUpdateが有効な場合のみ変更する。
func (s *Server) applyUpdate(a *store.Article, req *updateArticleRequest) {
	if v := strings.TrimSpace(req.Title); v != "" {
		a.Title = v
	}
	if v := strings.TrimSpace(req.Content); v != "" {
		a.Content = v
	}
	if v := strings.TrimSpace(req.Summary); v != "" {
		a.Summary = v
	}
	if v := strings.TrimSpace(req.ImageURL); v != "" {
		a.ImageURL = v
	}
	if v := strings.TrimSpace(req.Category); v != "" && s.allowCategoryUpdate {
		a.Category = strings.ToLower(v)
	}
	if req.Source != nil {
		a.Source = trimSources(*req.Source)
	}
}

// trimSources はソースの各フィールドの前後の空白を取り除く。
func trimSources(src []store.SourceRef) []store.SourceRef {
	out := make([]store.SourceRef, 0, len(src))
	for _, ref := range src {
		out = append(out, store.SourceRef{
			SourceType: strings.TrimSpace(ref.SourceType),
			ID:         strings.TrimSpace(ref.ID),
			URL:        strings.TrimSpace(ref.URL),
		})
	}
	return out
}

// handleDeleteNews は記事を1件削除するハンドラを返す。
func (s *Server) handleDeleteNews() gin.HandlerFunc {
	return func(c *gin.Context) {
		err := s.store.DeleteArticle(c.Request.Context(), c.Param("id"))
		if errors.Is(err, store.ErrNotFound) {
			respondMessage(c, s.notFoundStatus(), "Article not found")
			return
		}
		if err != nil {
			log.Printf("記事削除エラー: %v", err)
			respondMessage(c, http.StatusInternalServerError, "Internal Server Error")
			return
		}
		respondMessage(c, http.StatusOK, "Article deleted successfully")
	}
}

// handleDeleteNewsBulk は記事をまとめて削除するハンドラを返す。
// 存在しないIDは無視し、成功として扱う。
func (s *Server) handleDeleteNewsBulk() gin.HandlerFunc {
	return func(c *gin.Context) {
		var req deleteArticlesRequest
		if err := c.ShouldBindJSON(&req); err != nil || len(req.IDs) == 0 {
			respondMessage(c, http.StatusBadRequest, "Article Id(s) required")
			return
		}

		n, err := s.store.DeleteArticles(c.Request.Context(), req.IDs)
		if err != nil {
			log.Printf("記事一括削除エラー: %v", err)
			respondMessage(c, http.StatusInternalServerError, "Internal Server Error")
			return
		}

		c.JSON(http.StatusOK, gin.H{
			"message":      "Article(s) deleted successfully",
			"deletedCount": n,
		})
	}
}
