package mongo

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/nao1215/nobiasmedia/internal/store"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const (
	// collectionNews は記事のコレクション名。
	collectionNews = "news"
	// collectionSourceTypes はソース種別のコレクション名。
	collectionSourceTypes = "sourcetypes"
	// collectionOAuthUsers はOAuthユーザーのコレクション名。
	collectionOAuthUsers = "oauthusers"
)

// Store はMongoDBを使ったstore.Storeの実装。
type Store struct {
	// client はMongoDBクライアント。
	client *mongo.Client
	// news は記事コレクション。
	news *mongo.Collection
	// sourceTypes はソース種別コレクション。
	sourceTypes *mongo.Collection
	// oauthUsers はOAuthユーザーコレクション。
	oauthUsers *mongo.Collection
}

var _ store.Store = (*Store)(nil)

// Open はMongoDBに接続し、疎通確認とインデックス作成を行う。
func Open(ctx context.Context, uri, database string) (*Store, error) {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("MongoDBへの接続に失敗: %w", err)
	}

	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("MongoDBの疎通確認に失敗: %w", err)
	}

	db := client.Database(database)
	s := &Store{
		client:      client,
		news:        db.Collection(collectionNews),
		sourceTypes: db.Collection(collectionSourceTypes),
		oauthUsers:  db.Collection(collectionOAuthUsers),
	}

	if err := s.createIndexes(ctx); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("インデックスの作成に失敗: %w", err)
	}

	return s, nil
}

// createIndexes は一覧のソートとメールアドレスの一意性に必要なインデックスを作成する。
func (s *Store) createIndexes(ctx context.Context) error {
	if _, err := s.news.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "createdAt", Value: -1}}},
		{Keys: bson.D{{Key: "category", Value: 1}, {Key: "createdAt", Value: -1}}},
	}); err != nil {
		return fmt.Errorf("newsのインデックス作成に失敗: %w", err)
	}

	if _, err := s.sourceTypes.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "createdAt", Value: -1}},
	}); err != nil {
		return fmt.Errorf("sourcetypesのインデックス作成に失敗: %w", err)
	}

	if _, err := s.oauthUsers.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "email", Value: 1}},
		Options: options.Index().SetUnique(true),
	}); err != nil {
		// 既存データに重複がある場合でも起動は継続する
		log.Printf("oauthusersの一意インデックス作成に失敗: %v", err)
	}
	return nil
}

// Close はMongoDBとの接続を切断する。
func (s *Store) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return s.client.Disconnect(ctx)
}
