package mongo

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/nao1215/nobiasmedia/internal/store"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// oauthUserDocument はoauthusersコレクションのドキュメント。
type oauthUserDocument struct {
	Email     string              `bson:"email"`
	Name      string              `bson:"name"`
	CreatedAt time.Time           `bson:"createdAt"`
	UpdatedAt time.Time           `bson:"updatedAt"`
	UserData  []loginDataDocument `bson:"user_data"`
}

// loginDataDocument はuser_data配列の要素。
type loginDataDocument struct {
	Date        time.Time `bson:"date"`
	UserDetails bson.Raw  `bson:"user_details"`
}

// UpsertOAuthUser は初回サインインでユーザーを作成し、以降はuser_dataに履歴を追記する。
// 1回のfindOneAndUpdateで行うため、同時サインインでもユーザーは1件にまとまる。
func (s *Store) UpsertOAuthUser(ctx context.Context, email, name string, details json.RawMessage, at time.Time) (*store.OAuthUser, error) {
	if len(details) == 0 {
		details = json.RawMessage("{}")
	}

	var userDetails bson.D
	if err := bson.UnmarshalExtJSON(details, false, &userDetails); err != nil {
		return nil, fmt.Errorf("ペイロードの変換に失敗: %w", err)
	}

	update := bson.M{
		"$setOnInsert": bson.M{"createdAt": at},
		"$set":         bson.M{"name": name, "updatedAt": at},
		"$push":        bson.M{"user_data": bson.M{"date": at, "user_details": userDetails}},
	}
	opts := options.FindOneAndUpdate().SetUpsert(true).SetReturnDocument(options.After)

	var doc oauthUserDocument
	if err := s.oauthUsers.FindOneAndUpdate(ctx, bson.M{"email": email}, update, opts).Decode(&doc); err != nil {
		return nil, fmt.Errorf("OAuthユーザーの保存に失敗: %w", err)
	}
	return doc.toOAuthUser()
}

// GetOAuthUser はメールアドレスでユーザーを取得する。
func (s *Store) GetOAuthUser(ctx context.Context, email string) (*store.OAuthUser, error) {
	var doc oauthUserDocument
	err := s.oauthUsers.FindOne(ctx, bson.M{"email": email}).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, store.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("OAuthユーザーの取得に失敗: %w", err)
	}
	return doc.toOAuthUser()
}

// toOAuthUser はドキュメントをモデルに変換する。user_detailsはJSONに戻す。
func (d oauthUserDocument) toOAuthUser() (*store.OAuthUser, error) {
	u := &store.OAuthUser{
		Email:     d.Email,
		Name:      d.Name,
		CreatedAt: d.CreatedAt.UTC(),
		UpdatedAt: d.UpdatedAt.UTC(),
		Logins:    make([]store.LoginEvent, 0, len(d.UserData)),
	}
	for _, ld := range d.UserData {
		details := json.RawMessage("{}")
		if len(ld.UserDetails) > 0 {
			b, err := bson.MarshalExtJSON(ld.UserDetails, false, false)
			if err != nil {
				return nil, fmt.Errorf("user_detailsの変換に失敗: %w", err)
			}
			details = b
		}
		u.Logins = append(u.Logins, store.LoginEvent{Date: ld.Date.UTC(), Details: details})
	}
	return u, nil
}
