package token

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Role はセッションが持つ権限を表す。
type Role string

const (
	// RoleAdmin は記事やソース種別を管理できる管理者。
	RoleAdmin Role = "admin"
	// RoleUser はGoogleサインインで認証された一般ユーザー。
	RoleUser Role = "user"
)

const (
	// DefaultAccessTTL はアクセストークンの有効期間。
	DefaultAccessTTL = 24 * time.Hour
	// DefaultRefreshTTL はリフレッシュトークンの有効期間。
	DefaultRefreshTTL = 7 * 24 * time.Hour
	// issuer はトークンの発行者名。
	issuer = "nobiasmedia-api"
)

var (
	// ErrMissing はトークンが指定されていないことを表す。
	ErrMissing = errors.New("token is missing")
	// ErrInvalidOrExpired は署名または有効期限の検証に失敗したことを表す。
	ErrInvalidOrExpired = errors.New("token is invalid or expired")
)

// Claims はトークンのクレーム（ペイロード）を表す。
type Claims struct {
	jwt.RegisteredClaims
	// Email はセッション所有者のメールアドレス。
	Email string `json:"email"`
	// Role はセッションの権限。
	Role Role `json:"role"`
}

// Issue はemailとroleを含むトークンを生成し、secretで署名する。
func Issue(secret []byte, email string, role Role, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			IssuedAt:  jwt.NewNumericDate(now),
			Issuer:    issuer,
		},
		Email: email,
		Role:  role,
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(secret)
	if err != nil {
		return "", fmt.Errorf("トークンの署名に失敗: %w", err)
	}
	return signed, nil
}

// Verify はトークンの署名と有効期限を検証し、クレームを返す。
// 空文字列の場合はErrMissing、それ以外の失敗はErrInvalidOrExpiredを返す。
func Verify(tokenString string, secret []byte) (*Claims, error) {
	if tokenString == "" {
		return nil, ErrMissing
	}

	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(_ *jwt.Token) (any, error) {
		return secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithExpirationRequired())
	if err != nil || !token.Valid {
		return nil, fmt.Errorf("%w: %v", ErrInvalidOrExpired, err)
	}
	return claims, nil
}

// Service はアクセストークンとリフレッシュトークンの秘密鍵を保持し、発行・検証・再発行を行う。
type Service struct {
	// accessSecret はアクセストークンの署名鍵。
	accessSecret []byte
	// refreshSecret はリフレッシュトークンの署名鍵。
	refreshSecret []byte
	// accessTTL はアクセストークンの有効期間。
	accessTTL time.Duration
	// refreshTTL はリフレッシュトークンの有効期間。
	refreshTTL time.Duration
}

// Option はServiceの設定を変更する関数。
type Option func(*Service)

// WithAccessTTL はアクセストークンの有効期間を変更する。
func WithAccessTTL(ttl time.Duration) Option {
	return func(s *Service) { s.accessTTL = ttl }
}

// WithRefreshTTL はリフレッシュトークンの有効期間を変更する。
func WithRefreshTTL(ttl time.Duration) Option {
	return func(s *Service) { s.refreshTTL = ttl }
}

// NewService は新しいServiceを生成する。
func NewService(accessSecret, refreshSecret string, opts ...Option) *Service {
	s := &Service{
		accessSecret:  []byte(accessSecret),
		refreshSecret: []byte(refreshSecret),
		accessTTL:     DefaultAccessTTL,
		refreshTTL:    DefaultRefreshTTL,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// AccessTTL はアクセストークンの有効期間を返す。Cookieの有効期限に使用する。
func (s *Service) AccessTTL() time.Duration {
	return s.accessTTL
}

// IssueAccessToken はアクセストークンを発行する。
func (s *Service) IssueAccessToken(email string, role Role) (string, error) {
	return Issue(s.accessSecret, email, role, s.accessTTL)
}

// IssueRefreshToken はリフレッシュトークンを発行する。
func (s *Service) IssueRefreshToken(email string, role Role) (string, error) {
	return Issue(s.refreshSecret, email, role, s.refreshTTL)
}

// VerifyAccessToken はアクセストークンを検証する。
func (s *Service) VerifyAccessToken(tokenString string) (*Claims, error) {
	return Verify(tokenString, s.accessSecret)
}

// VerifyRefreshToken はリフレッシュトークンを検証する。
func (s *Service) VerifyRefreshToken(tokenString string) (*Claims, error) {
	return Verify(tokenString, s.refreshSecret)
}

// Refresh はリフレッシュトークンを検証し、同じemailとroleを持つ新しいアクセストークンを発行する。
func (s *Service) Refresh(refreshToken string) (string, *Claims, error) {
	claims, err := s.VerifyRefreshToken(refreshToken)
	if err != nil {
		return "", nil, err
	}

	accessToken, err := s.IssueAccessToken(claims.Email, claims.Role)
	if err != nil {
		return "", nil, err
	}
	return accessToken, claims, nil
}
