package mongo

import (
	"context"
	"fmt"
	"time"

	"github.com/nao1215/nobiasmedia/internal/store"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// sourceTypeDocument はsourcetypesコレクションのドキュメント。
type sourceTypeDocument struct {
	ID         primitive.ObjectID `bson:"_id,omitempty"`
	SourceType string             `bson:"source_type"`
	CreatedAt  time.Time          `bson:"createdAt"`
	UpdatedAt  time.Time          `bson:"updatedAt"`
}

// ListSourceTypes は作成日時の新しい順にソース種別を返す。
func (s *Store) ListSourceTypes(ctx context.Context) ([]store.SourceType, error) {
	cursor, err := s.sourceTypes.Find(ctx, bson.M{},
		options.Find().SetSort(bson.D{{Key: "createdAt", Value: -1}, {Key: "_id", Value: -1}}))
	if err != nil {
		return nil, fmt.Errorf("ソース種別一覧の取得に失敗: %w", err)
	}
	defer cursor.Close(ctx)

	var docs []sourceTypeDocument
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("ソース種別一覧の読み込みに失敗: %w", err)
	}

	sourceTypes := make([]store.SourceType, 0, len(docs))
	for _, d := range docs {
		sourceTypes = append(sourceTypes, store.SourceType{
			ID:        d.ID.Hex(),
			Label:     d.SourceType,
			CreatedAt: d.CreatedAt.UTC(),
			UpdatedAt: d.UpdatedAt.UTC(),
		})
	}
	return sourceTypes, nil
}

// CreateSourceType はソース種別を保存し、割り当てられたObjectIDを設定する。
func (s *Store) CreateSourceType(ctx context.Context, st *store.SourceType) error {
	if st.CreatedAt.IsZero() {
		st.CreatedAt = time.Now().UTC()
	}
	st.UpdatedAt = st.CreatedAt

	res, err := s.sourceTypes.InsertOne(ctx, sourceTypeDocument{
		SourceType: st.Label,
		CreatedAt:  st.CreatedAt,
		UpdatedAt:  st.UpdatedAt,
	})
	if err != nil {
		return fmt.Errorf("ソース種別の作成に失敗: %w", err)
	}

	oid, ok := res.InsertedID.(primitive.ObjectID)
	if !ok {
		return fmt.Errorf("想定外のID型です: %T", res.InsertedID)
	}
	st.ID = oid.Hex()
	return nil
}
