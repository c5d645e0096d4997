package api

import (
	"time"

	"github.com/nao1215/nobiasmedia/internal/store"
)

// articleResponse は記事のレスポンス形式。
type articleResponse struct {
	ID       string `json:"_id"`
	Title    string `json:"title"`
	Content  string `json:"content"`
	Summary  string `json:"summary"`
	ImageURL string `json:"imageUrl"`
	Category string `json:"category"`
	// Source はnilの場合フィールドごと省略する。
	Source    *[]store.SourceRef `json:"source,omitempty"`
	CreatedAt time.Time          `json:"createdAt"`
	UpdatedAt time.Time          `json:"updatedAt"`
}

// toArticleResponse はstore.ArticleをarticleResponseに変換する。
// withSourceがfalseの場合はsourceフィールドを含めない。
func toArticleResponse(a *store.Article, withSource bool) articleResponse {
	resp := articleResponse{
		ID:        a.ID,
		Title:     a.Title,
		Content:   a.Content,
		Summary:   a.Summary,
		ImageURL:  a.ImageURL,
		Category:  a.Category,
		CreatedAt: a.CreatedAt,
		UpdatedAt: a.UpdatedAt,
	}
	if withSource {
		source := a.Source
		if source == nil {
			source = []store.SourceRef{}
		}
		resp.Source = &source
	}
	return resp
}

// listResponse はページング付き記事一覧のレスポンス形式。
type listResponse struct {
	Articles    []articleResponse `json:"articles"`
	CurrentPage int               `json:"currentPage"`
	TotalPages  int64             `json:"totalPages"`
}

// sourceTypeResponse はソース種別のレスポンス形式。
type sourceTypeResponse struct {
	ID         string    `json:"_id"`
	SourceType string    `json:"source_type"`
	CreatedAt  time.Time `json:"createdAt"`
	UpdatedAt  time.Time `json:"updatedAt"`
}

// toSourceTypeResponse はstore.SourceTypeをsourceTypeResponseに変換する。
func toSourceTypeResponse(st *store.SourceType) sourceTypeResponse {
	return sourceTypeResponse{
		ID:         st.ID,
		SourceType: st.Label,
		CreatedAt:  st.CreatedAt,
		UpdatedAt:  st.UpdatedAt,
	}
}

// userResponse はログインユーザーのレスポンス形式。
type userResponse struct {
	Email string `json:"email"`
	Name  string `json:"name,omitempty"`
	Role  string `json:"role"`
}
