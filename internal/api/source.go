package api

import (
	"errors"
	"io"
	"log"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/nao1215/nobiasmedia/internal/store"
)

// createSourceTypeRequest はソース種別作成のリクエストボディ。
type createSourceTypeRequest struct {
	SourceType string `json:"source_type"`
}

// handleListSourceTypes はソース種別を新しい順に返すハンドラを返す。
func (s *Server) handleListSourceTypes() gin.HandlerFunc {
	return func(c *gin.Context) {
		types, err := s.store.ListSourceTypes(c.Request.Context())
		if err != nil {
			log.Printf("ソース種別一覧取得エラー: %v", err)
			respondMessage(c, http.StatusInternalServerError, "Internal Server Error")
			return
		}

		responses := make([]sourceTypeResponse, 0, len(types))
		for i := range types {
			responses = append(responses, toSourceTypeResponse(&types[i]))
		}
		c.JSON(http.StatusOK, responses)
	}
}

// handleCreateSourceType はソース種別を作成するハンドラを返す。
func (s *Server) handleCreateSourceType() gin.HandlerFunc {
	return func(c *gin.Context) {
		var req createSourceTypeRequest
		// 空のボディはラベル未指定として扱い、JSONとして不正なボディのみ拒否する
		if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
			respondMessage(c, http.StatusBadRequest, "Invalid request body")
			return
		}

		label := strings.TrimSpace(req.SourceType)
		if label == "" {
			respondMessage(c, http.StatusBadRequest, "Source Type cannot be empty!")
			return
		}

		st := &store.SourceType{Label: label}
		if err := s.store.CreateSourceType(c.Request.Context(), st); err != nil {
			log.Printf("ソース種別作成エラー: %v", err)
			respondMessage(c, http.StatusInternalServerError, "Internal Server Error")
			return
		}

		c.JSON(http.StatusCreated, toSourceTypeResponse(st))
	}
}
