package mongo

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/nao1215/nobiasmedia/internal/store"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// newsDocument はnewsコレクションのドキュメント。
type newsDocument struct {
	ID        primitive.ObjectID `bson:"_id,omitempty"`
	Title     string             `bson:"title"`
	Content   string             `bson:"content"`
	Summary   string             `bson:"summary"`
	ImageURL  string             `bson:"imageUrl"`
	Category  string             `bson:"category"`
	Source    []store.SourceRef  `bson:"source"`
	CreatedAt time.Time          `bson:"createdAt"`
	UpdatedAt time.Time          `bson:"updatedAt"`
}

// toArticle はドキュメントをモデルに変換する。
func (d newsDocument) toArticle() store.Article {
	return store.Article{
		ID:        d.ID.Hex(),
		Title:     d.Title,
		Content:   d.Content,
		Summary:   d.Summary,
		ImageURL:  d.ImageURL,
		Category:  d.Category,
		Source:    d.Source,
		CreatedAt: d.CreatedAt.UTC(),
		UpdatedAt: d.UpdatedAt.UTC(),
	}
}

// categoryFilter はカテゴリの大文字小文字を区別しない完全一致条件を作る。
// 入力は小文字化したうえで正規表現としてエスケープする。
func categoryFilter(category string) bson.M {
	if category == "" {
		return bson.M{}
	}
	return bson.M{"category": primitive.Regex{
		Pattern: "^" + regexp.QuoteMeta(strings.ToLower(category)) + "$",
		Options: "i",
	}}
}

// ListArticles は作成日時の新しい順に記事を返す。sourceは射影で除外する。
func (s *Store) ListArticles(ctx context.Context, filter store.ListFilter) ([]store.Article, int64, error) {
	query := categoryFilter(filter.Category)

	opts := options.Find().
		SetSort(bson.D{{Key: "createdAt", Value: -1}, {Key: "_id", Value: -1}}).
		SetProjection(bson.M{"source": 0}).
		SetSkip(int64(max(filter.Offset, 0)))
	if filter.Limit > 0 {
		opts.SetLimit(int64(filter.Limit))
	}

	cursor, err := s.news.Find(ctx, query, opts)
	if err != nil {
		return nil, 0, fmt.Errorf("記事一覧の取得に失敗: %w", err)
	}
	defer cursor.Close(ctx)

	var docs []newsDocument
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, 0, fmt.Errorf("記事一覧の読み込みに失敗: %w", err)
	}

	total, err := s.news.CountDocuments(ctx, query)
	if err != nil {
		return nil, 0, fmt.Errorf("記事件数の取得に失敗: %w", err)
	}

	articles := make([]store.Article, 0, len(docs))
	for _, d := range docs {
		a := d.toArticle()
		a.Source = nil
		articles = append(articles, a)
	}
	return articles, total, nil
}

// GetArticle は記事を1件取得する。IDが不正な形式の場合もErrNotFoundを返す。
func (s *Store) GetArticle(ctx context.Context, id string) (*store.Article, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, store.ErrNotFound
	}

	var doc newsDocument
	err = s.news.FindOne(ctx, bson.M{"_id": oid}).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, store.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("記事の取得に失敗: %w", err)
	}

	a := doc.toArticle()
	if a.Source == nil {
		a.Source = []store.SourceRef{}
	}
	return &a, nil
}

// CreateArticle は記事を保存し、割り当てられたObjectIDを設定する。
func (s *Store) CreateArticle(ctx context.Context, a *store.Article) error {
	if a.CreatedAt.IsZero() {
		a.CreatedAt = time.Now().UTC()
	}
	a.UpdatedAt = a.CreatedAt

	source := a.Source
	if source == nil {
		source = []store.SourceRef{}
	}

	res, err := s.news.InsertOne(ctx, newsDocument{
		Title:     a.Title,
		Content:   a.Content,
		Summary:   a.Summary,
		ImageURL:  a.ImageURL,
		Category:  a.Category,
		Source:    source,
		CreatedAt: a.CreatedAt,
		UpdatedAt: a.UpdatedAt,
	})
	if err != nil {
		return fmt.Errorf("記事の作成に失敗: %w", err)
	}

	oid, ok := res.InsertedID.(primitive.ObjectID)
	if !ok {
		return fmt.Errorf("想定外のID型です: %T", res.InsertedID)
	}
	a.ID = oid.Hex()
	return nil
}

// UpdateArticle は記事の内容を置き換え、updatedAtを更新する。
func (s *Store) UpdateArticle(ctx context.Context, a *store.Article) error {
	oid, err := primitive.ObjectIDFromHex(a.ID)
	if err != nil {
		return store.ErrNotFound
	}

	source := a.Source
	if source == nil {
		source = []store.SourceRef{}
	}

	a.UpdatedAt = time.Now().UTC()
	res, err := s.news.UpdateOne(ctx, bson.M{"_id": oid}, bson.M{"$set": bson.M{
		"title":     a.Title,
		"content":   a.Content,
		"summary":   a.Summary,
		"imageUrl":  a.ImageURL,
		"category":  a.Category,
		"source":    source,
		"updatedAt": a.UpdatedAt,
	}})
	if err != nil {
		return fmt.Errorf("記事の更新に失敗: %w", err)
	}
	if res.MatchedCount == 0 {
		return store.ErrNotFound
	}
	return nil
}

// DeleteArticle は記事を1件削除する。
func (s *Store) DeleteArticle(ctx context.Context, id string) error {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return store.ErrNotFound
	}

	res, err := s.news.DeleteOne(ctx, bson.M{"_id": oid})
	if err != nil {
		return fmt.Errorf("記事の削除に失敗: %w", err)
	}
	if res.DeletedCount == 0 {
		return store.ErrNotFound
	}
	return nil
}

// DeleteArticles は指定した記事をまとめて削除する。不正な形式のIDは無視する。
func (s *Store) DeleteArticles(ctx context.Context, ids []string) (int64, error) {
	oids := make([]primitive.ObjectID, 0, len(ids))
	for _, id := range ids {
		if oid, err := primitive.ObjectIDFromHex(id); err == nil {
			oids = append(oids, oid)
		}
	}
	if len(oids) == 0 {
		return 0, nil
	}

	res, err := s.news.DeleteMany(ctx, bson.M{"_id": bson.M{"$in": oids}})
	if err != nil {
		return 0, fmt.Errorf("記事の一括削除に失敗: %w", err)
	}
	return res.DeletedCount, nil
}
