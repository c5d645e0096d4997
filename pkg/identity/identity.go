package identity

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"

	"github.com/nao1215/nobiasmedia/pkg/token"
	"golang.org/x/crypto/bcrypt"
)

// ErrInvalidCredentials はメールアドレスまたはパスワードが一致しないことを表す。
var ErrInvalidCredentials = errors.New("invalid credentials")

// Identity は認証に成功したアカウントを表す。
type Identity struct {
	// Email はアカウントのメールアドレス。
	Email string
	// Role はアカウントに付与する権限。
	Role token.Role
}

// Provider はメールアドレスとパスワードでアカウントを認証する。
type Provider interface {
	// Authenticate は資格情報を検証する。不一致の場合はErrInvalidCredentialsを返す。
	Authenticate(ctx context.Context, email, password string) (*Identity, error)
}

// StaticProvider は設定で与えられた単一の管理者アカウントを認証する。
// パスワードは平文では保持せず、bcryptハッシュのみを保持する。
type StaticProvider struct {
	// email は管理者のメールアドレス。
	email string
	// passwordHash はパスワードのbcryptハッシュ。
	passwordHash []byte
}

// NewStaticProvider は平文パスワードをハッシュ化してStaticProviderを生成する。
// costにはbcryptのコスト（通常はbcrypt.DefaultCost）を指定する。
func NewStaticProvider(email, password string, cost int) (*StaticProvider, error) {
	if email == "" || password == "" {
		return nil, errors.New("管理者のメールアドレスとパスワードは必須です")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), cost)
	if err != nil {
		return nil, fmt.Errorf("パスワードのハッシュ化に失敗: %w", err)
	}
	return &StaticProvider{email: email, passwordHash: hash}, nil
}

// Authenticate は管理者アカウントの資格情報を検証する。
func (p *StaticProvider) Authenticate(_ context.Context, email, password string) (*Identity, error) {
	emailMatch := subtle.ConstantTimeCompare([]byte(email), []byte(p.email)) == 1
	// メールアドレスが一致しない場合もハッシュ比較を行い、応答時間を揃える
	passwordErr := bcrypt.CompareHashAndPassword(p.passwordHash, []byte(password))
	if !emailMatch || passwordErr != nil {
		return nil, ErrInvalidCredentials
	}
	return &Identity{Email: p.email, Role: token.RoleAdmin}, nil
}
